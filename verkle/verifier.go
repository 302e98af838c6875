package verkle

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/crate-crypto/go-ipa/banderwagon"
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
	"github.com/crate-crypto/go-ipa/common"
)

// Verify checks that proof attests to the given (key, value) pairs against
// root -- the trie's root commitment, delivered out of band (it is not
// itself part of the wire proof). values[i] is the claimed value for
// keys[i], or nil to claim that key has never been written.
//
// Verify does not attempt to apply any updates implied by the queried
// values to produce a new root: that is out of scope for this proof
// system (see the design notes for the Open Question this resolves).
func Verify(cfg *Config, root banderwagon.Element, keys, values [][]byte, proof *Proof) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: no keys to verify", ErrInvalidArgument)
	}
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys but %d values", ErrInvalidArgument, len(keys), len(values))
	}
	for _, k := range keys {
		if len(k) != KeySize {
			return fmt.Errorf("%w: key has length %d, want %d", ErrInvalidArgument, len(k), KeySize)
		}
	}
	for _, v := range values {
		if v != nil && len(v) != 32 {
			return fmt.Errorf("%w: value has length %d, want 32", ErrInvalidArgument, len(v))
		}
	}
	if dup := findDuplicateKey(keys); dup != nil {
		return fmt.Errorf("%w: duplicate query key %x", ErrInvalidArgument, dup)
	}

	stems := distinctSortedStems(keys)
	if len(stems) != len(proof.Depths) || len(stems) != len(proof.ExtensionPresent) {
		return reject(ReasonMalformedProof, "got %d stems but %d depths / %d extension_present entries",
			len(stems), len(proof.Depths), len(proof.ExtensionPresent))
	}
	if !strictlySortedStems(proof.OtherStems) {
		return reject(ReasonMalformedProof, "other_stems is not strictly sorted")
	}

	depthByStem := map[[StemSize]byte]byte{}
	extPresentByStem := map[[StemSize]byte]ExtPresent{}
	var stemsWithExtension [][StemSize]byte
	stemByUniquePrefix := map[string][StemSize]byte{}

	for i, stem := range stems {
		depth := proof.Depths[i]
		ext := proof.ExtensionPresent[i]
		depthByStem[stem] = depth
		extPresentByStem[stem] = ext

		switch ext {
		case Present:
			stemsWithExtension = append(stemsWithExtension, stem)
			stemByUniquePrefix[string(stem[:depth])] = stem
		case NoExtension:
			stemByUniquePrefix[string(stem[:depth])] = stem
		case OtherStem:
			prefix := stem[:depth]
			if other, ok := findStemWithPrefix(proof.OtherStems, prefix); ok {
				stemByUniquePrefix[string(prefix)] = other
			}
		default:
			return reject(ReasonBadExtensionPresent, "stem %x: extension_present=%d", stem, ext)
		}
	}
	sort.Slice(stemsWithExtension, func(i, j int) bool {
		return bytes.Compare(stemsWithExtension[i][:], stemsWithExtension[j][:]) < 0
	})

	allIndices := map[indexKey]bool{{kindInner, ""}: true} // the root is always implicitly included
	allIndicesSub := map[subKey]bool{}
	leafValues := map[subKey]fr.Element{}

	for ki, key := range keys {
		var stem [StemSize]byte
		copy(stem[:], key[:StemSize])
		value := values[ki]
		depth := depthByStem[stem]
		ext := extPresentByStem[stem]

		for i := 0; i < int(depth); i++ {
			id := string(stem[:i])
			allIndices[indexKey{kindInner, id}] = true
			allIndicesSub[subKey{indexKey{kindInner, id}, stem[i]}] = true
		}

		switch ext {
		case Present:
			suffix := key[StemSize]
			ik := indexKey{kindExtension, string(stem[:])}
			allIndices[ik] = true
			allIndicesSub[subKey{ik, 0}] = true
			allIndicesSub[subKey{ik, 1}] = true
			half := byte(2 + suffix/128)
			allIndicesSub[subKey{ik, half}] = true

			var one fr.Element
			one.SetUint64(1)
			leafValues[subKey{ik, 0}] = one
			leafValues[subKey{ik, 1}] = stemToField(stem)

			hk := kindSuffixC1
			if suffix >= 128 {
				hk = kindSuffixC2
			}
			hik := indexKey{hk, string(stem[:])}
			allIndices[hik] = true
			lowSub := (2 * suffix) % 256
			highSub := (2*suffix + 1) % 256
			allIndicesSub[subKey{hik, lowSub}] = true
			allIndicesSub[subKey{hik, highSub}] = true

			var lower, upper fr.Element
			if value != nil {
				lower, upper = valueHalves(value)
			}
			leafValues[subKey{hik, lowSub}] = lower
			leafValues[subKey{hik, highSub}] = upper

		case OtherStem:
			if value != nil {
				return reject(ReasonValuePresentWithoutExtension, "key %x claims a value but stem %x resolves to a different stem's extension", key, stem)
			}
			prefix := stem[:depth]
			other, found := findStemInList(stemsWithExtension, prefix)
			if !found {
				other, found = findStemWithPrefix(proof.OtherStems, prefix)
			}
			if !found {
				return reject(ReasonOtherStemUnresolved, "no stem in other_stems shares prefix %x", prefix)
			}
			oik := indexKey{kindExtension, string(other[:])}
			if !allIndices[oik] {
				allIndices[oik] = true
				allIndicesSub[subKey{oik, 0}] = true
				allIndicesSub[subKey{oik, 1}] = true
				var one fr.Element
				one.SetUint64(1)
				leafValues[subKey{oik, 0}] = one
				leafValues[subKey{oik, 1}] = stemToField(other)
			}

		case NoExtension:
			if value != nil {
				return reject(ReasonValuePresentWithoutExtension, "key %x claims a value but stem %x has no extension", key, stem)
			}
		}
	}

	sortedIdx := make([]indexKey, 0, len(allIndices))
	for k := range allIndices {
		sortedIdx = append(sortedIdx, k)
	}
	sort.Slice(sortedIdx, func(i, j int) bool { return indexKeyLess(sortedIdx[i], sortedIdx[j]) })

	if len(sortedIdx) != len(proof.Commitments)+1 {
		return reject(ReasonCommitmentCountMismatch, "expected %d commitments, proof has %d", len(sortedIdx)-1, len(proof.Commitments))
	}

	commitmentByIndex := map[indexKey]banderwagon.Element{sortedIdx[0]: root}
	for i, ik := range sortedIdx[1:] {
		commitmentByIndex[ik] = proof.Commitments[i]
	}

	sortedSub := make([]subKey, 0, len(allIndicesSub))
	for k := range allIndicesSub {
		sortedSub = append(sortedSub, k)
	}
	sort.Slice(sortedSub, func(i, j int) bool { return subKeyLess(sortedSub[i], sortedSub[j]) })

	Cs := make([]banderwagon.Element, len(sortedSub))
	zs := make([]uint8, len(sortedSub))
	ys := make([]fr.Element, len(sortedSub))

	for i, sk := range sortedSub {
		Cs[i] = commitmentByIndex[sk.indexKey]
		zs[i] = sk.sub

		switch sk.kind {
		case kindInner:
			childID := sk.id + string([]byte{sk.sub})
			if c, ok := commitmentByIndex[indexKey{kindInner, childID}]; ok {
				ys[i] = fieldFromCommitment(c)
				continue
			}
			stem, ok := stemByUniquePrefix[childID]
			if !ok {
				ys[i] = fr.Element{}
				continue
			}
			if ep, known := extPresentByStem[stem]; !known || ep == Present {
				if c, ok := commitmentByIndex[indexKey{kindExtension, string(stem[:])}]; ok {
					ys[i] = fieldFromCommitment(c)
					continue
				}
			}
			ys[i] = fr.Element{}
		case kindExtension:
			if sk.sub < 2 {
				ys[i] = leafValues[sk]
				continue
			}
			hk := kindSuffixC1
			if sk.sub == 3 {
				hk = kindSuffixC2
			}
			ys[i] = fieldFromCommitment(commitmentByIndex[indexKey{hk, sk.id}])
		case kindSuffixC1, kindSuffixC2:
			ys[i] = leafValues[sk]
		}
	}

	tr := common.NewTranscript("multiproof")
	if !checkMultiproof(cfg, tr, Cs, zs, ys, multiproof{D: proof.D, ipaProof: proof.IPA}) {
		return ReasonIPACheckFailed
	}
	return nil
}

func distinctSortedStems(keys [][]byte) [][StemSize]byte {
	set := map[[StemSize]byte]bool{}
	for _, k := range keys {
		var stem [StemSize]byte
		copy(stem[:], k[:StemSize])
		set[stem] = true
	}
	out := make([][StemSize]byte, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func strictlySortedStems(stems [][StemSize]byte) bool {
	for i := 1; i < len(stems); i++ {
		if bytes.Compare(stems[i-1][:], stems[i][:]) >= 0 {
			return false
		}
	}
	return true
}

// findStemWithPrefix binary-searches a sorted slice of stems for one whose
// first len(prefix) bytes equal prefix. Used for resolving other_stems in
// O(log n), which matters: a linear scan here is a denial-of-service
// vector against a verifier fed an adversarial proof with many stems.
func findStemWithPrefix(stems [][StemSize]byte, prefix []byte) ([StemSize]byte, bool) {
	depth := len(prefix)
	i := sort.Search(len(stems), func(i int) bool {
		return bytes.Compare(stems[i][:depth], prefix) >= 0
	})
	if i < len(stems) && bytes.Equal(stems[i][:depth], prefix) {
		return stems[i], true
	}
	return [StemSize]byte{}, false
}

// findStemInList mirrors findStemWithPrefix but over a slice that may not
// have been normalized yet by the caller; it is still sorted by the time
// this is called (stemsWithExtension is sorted once, up front).
func findStemInList(stems [][StemSize]byte, prefix []byte) ([StemSize]byte, bool) {
	return findStemWithPrefix(stems, prefix)
}
