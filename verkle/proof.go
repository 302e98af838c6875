package verkle

import (
	"bytes"
	"fmt"
	"sort"

	ipa "github.com/crate-crypto/go-ipa"
	"github.com/crate-crypto/go-ipa/banderwagon"
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
	"github.com/crate-crypto/go-ipa/common"
)

// commitmentKind identifies which of a node's commitments an opening
// refers to: an inner node has one, an extension/suffix node effectively
// has three (the outer commitment, plus its two half-commitments C1/C2).
// Ordered so that sorting (kind, id, subindex) triples matches the wire
// and in-memory canonical ordering throughout this package.
type commitmentKind uint8

const (
	kindInner     commitmentKind = 0
	kindExtension commitmentKind = 1
	kindSuffixC1  commitmentKind = 2
	kindSuffixC2  commitmentKind = 3
)

// ExtPresent records, for one stem queried in a proof, whether the trie
// held an extension (suffix) node for that exact stem.
type ExtPresent byte

const (
	// NoExtension means the descent bottomed out at an empty child slot:
	// the stem has never had any value written under it.
	NoExtension ExtPresent = 0
	// Present means the trie holds an extension node for exactly this
	// stem.
	Present ExtPresent = 1
	// OtherStem means the descent reached an extension node, but for a
	// different stem that happens to share the queried stem's prefix
	// down to this depth.
	OtherStem ExtPresent = 2
)

// Proof is a verkle multiproof for a batch of keys: a single IPA multipoint
// opening argument plus the bookkeeping the verifier needs to know which
// opening corresponds to which key.
type Proof struct {
	Depths           []byte         // one entry per distinct queried stem, sorted by stem
	ExtensionPresent []ExtPresent   // parallel to Depths
	Commitments      []banderwagon.Element // all opened commitments except the root, sorted by (kind, id)
	OtherStems       [][StemSize]byte      // sorted, strictly increasing
	D                banderwagon.Element
	IPA              ipa.IPAProof
}

type indexKey struct {
	kind commitmentKind
	id   string
}

type subKey struct {
	indexKey
	sub byte
}

// nodeRef holds either a *innerNode or a *suffixNode. Which of a suffix
// node's commitments (outer / C1 / C2) is meant comes from the kind of the
// indexKey/subKey it is stored under.
type nodeRef struct {
	inner  *innerNode
	suffix *suffixNode
}

// Prove builds a Proof attesting to the value (or absence of a value) at
// every key in keys.
func Prove(cfg *Config, t *Tree, keys [][]byte) (*Proof, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys to prove", ErrInvalidArgument)
	}
	for _, k := range keys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("%w: key has length %d, want %d", ErrInvalidArgument, len(k), KeySize)
		}
	}
	if dup := findDuplicateKey(keys); dup != nil {
		return nil, fmt.Errorf("%w: duplicate query key %x", ErrInvalidArgument, dup)
	}

	nodesByIndex := map[indexKey]nodeRef{}
	nodesBySub := map[subKey]nodeRef{}
	depthsByStem := map[[StemSize]byte]byte{}
	extPresentByStem := map[[StemSize]byte]ExtPresent{}
	otherStemsSet := map[[StemSize]byte]bool{}

	for _, key := range keys {
		var stem [StemSize]byte
		copy(stem[:], key[:StemSize])
		suffix := key[StemSize]

		res := t.findNodeWithPath(stem)
		for stepIdx, step := range res.steps {
			id := string(stem[:stepIdx])
			ik := indexKey{kindInner, id}
			nodesByIndex[ik] = nodeRef{inner: step.node}
			nodesBySub[subKey{ik, step.index}] = nodeRef{inner: step.node}
		}

		switch {
		case res.suffix != nil && res.suffix.stem == stem:
			depthsByStem[stem] = byte(len(res.steps))
			extPresentByStem[stem] = Present

			ik := indexKey{kindExtension, string(stem[:])}
			nodesByIndex[ik] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{ik, 0}] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{ik, 1}] = nodeRef{suffix: res.suffix}
			half := byte(2 + suffix/128)
			nodesBySub[subKey{ik, half}] = nodeRef{suffix: res.suffix}

			hk := kindSuffixC1
			if suffix >= 128 {
				hk = kindSuffixC2
			}
			hik := indexKey{hk, string(stem[:])}
			nodesByIndex[hik] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{hik, (2 * suffix) % 256}] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{hik, (2*suffix + 1) % 256}] = nodeRef{suffix: res.suffix}

		case res.suffix != nil: // different stem at this slot
			depthsByStem[stem] = byte(len(res.steps))
			extPresentByStem[stem] = OtherStem
			other := res.suffix.stem
			otherStemsSet[other] = true

			ik := indexKey{kindExtension, string(other[:])}
			nodesByIndex[ik] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{ik, 0}] = nodeRef{suffix: res.suffix}
			nodesBySub[subKey{ik, 1}] = nodeRef{suffix: res.suffix}

		default: // empty slot
			depthsByStem[stem] = byte(len(res.steps))
			extPresentByStem[stem] = NoExtension
		}
	}

	// Stems that carry their own extension node don't need to appear in
	// other_stems even if some OtherStem case pointed at them.
	for stem, ep := range extPresentByStem {
		if ep == Present {
			delete(otherStemsSet, stem)
		}
	}

	stems := sortedStemKeys(depthsByStem)
	depths := make([]byte, len(stems))
	extPresent := make([]ExtPresent, len(stems))
	for i, s := range stems {
		depths[i] = depthsByStem[s]
		extPresent[i] = extPresentByStem[s]
	}

	otherStems := make([][StemSize]byte, 0, len(otherStemsSet))
	for s := range otherStemsSet {
		otherStems = append(otherStems, s)
	}
	sort.Slice(otherStems, func(i, j int) bool {
		return bytes.Compare(otherStems[i][:], otherStems[j][:]) < 0
	})

	subKeys := make([]subKey, 0, len(nodesBySub))
	for k := range nodesBySub {
		subKeys = append(subKeys, k)
	}
	sort.Slice(subKeys, func(i, j int) bool { return subKeyLess(subKeys[i], subKeys[j]) })

	Cs := make([]banderwagon.Element, len(subKeys))
	fs := make([][]fr.Element, len(subKeys))
	zs := make([]uint8, len(subKeys))
	ys := make([]fr.Element, len(subKeys))

	for i, sk := range subKeys {
		ref := nodesBySub[sk]
		zs[i] = sk.sub
		switch sk.kind {
		case kindInner:
			Cs[i] = ref.inner.commitmentPoint(cfg)
			f := make([]fr.Element, Width)
			for j, c := range ref.inner.children {
				if c != nil {
					f[j] = c.commitmentField(cfg)
				}
			}
			fs[i] = f
			ys[i] = f[sk.sub]
		case kindExtension:
			Cs[i] = ref.suffix.commitmentPoint(cfg)
			f := make([]fr.Element, Width)
			f[0].SetUint64(1)
			f[1] = stemToField(ref.suffix.stem)
			f[2] = ref.suffix.c1Field
			f[3] = ref.suffix.c2Field
			fs[i] = f
			ys[i] = f[sk.sub]
		case kindSuffixC1, kindSuffixC2:
			half := ref.suffix.c1
			if sk.kind == kindSuffixC2 {
				half = ref.suffix.c2
			}
			Cs[i] = half
			f := suffixHalfField(ref.suffix, sk.kind)
			fs[i] = f
			ys[i] = f[sk.sub]
		}
	}

	tr := common.NewTranscript("multiproof")
	mp := createMultiproof(cfg, tr, Cs, fs, zs, ys)

	sortedIdx := sortedIndexKeys(nodesByIndex)
	commitments := make([]banderwagon.Element, 0, len(sortedIdx)-1)
	for _, ik := range sortedIdx[1:] { // skip the root (always index 0, kindInner, "")
		ref := nodesByIndex[ik]
		switch ik.kind {
		case kindInner, kindExtension:
			if ik.kind == kindInner {
				commitments = append(commitments, ref.inner.commitmentPoint(cfg))
			} else {
				commitments = append(commitments, ref.suffix.commitmentPoint(cfg))
			}
		case kindSuffixC1:
			commitments = append(commitments, ref.suffix.c1)
		case kindSuffixC2:
			commitments = append(commitments, ref.suffix.c2)
		}
	}

	return &Proof{
		Depths:           depths,
		ExtensionPresent: extPresent,
		Commitments:      commitments,
		OtherStems:       otherStems,
		D:                mp.D,
		IPA:              mp.ipaProof,
	}, nil
}

func suffixHalfField(s *suffixNode, kind commitmentKind) []fr.Element {
	f := make([]fr.Element, Width)
	base := 0
	if kind == kindSuffixC2 {
		base = Width / 2
	}
	for i := 0; i < Width/2; i++ {
		if v := s.values[base+i]; v != nil {
			lower, upper := valueHalves(v)
			f[2*i] = lower
			f[2*i+1] = upper
		}
	}
	return f
}

func findDuplicateKey(keys [][]byte) []byte {
	seen := map[string]bool{}
	for _, k := range keys {
		s := string(k)
		if seen[s] {
			return k
		}
		seen[s] = true
	}
	return nil
}

func sortedStemKeys(m map[[StemSize]byte]byte) [][StemSize]byte {
	out := make([][StemSize]byte, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func sortedIndexKeys(m map[indexKey]nodeRef) []indexKey {
	out := make([]indexKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return indexKeyLess(out[i], out[j]) })
	return out
}

func indexKeyLess(a, b indexKey) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.id < b.id
}

func subKeyLess(a, b subKey) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.id != b.id {
		return a.id < b.id
	}
	return a.sub < b.sub
}
