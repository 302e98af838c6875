package verkle

import (
	"github.com/crate-crypto/go-ipa/banderwagon"
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
)

// node is the tagged-variant trie node: either an innerNode or a
// suffixNode. The Python reference represents both as untyped dicts keyed
// by string/int; here the two shapes are distinct Go types behind a common
// interface, so a caller can never accidentally read a suffix-node-only
// field off an inner node or vice versa.
type node interface {
	// commitmentField returns the field image of this node's outer
	// commitment, computing it (and any missing children) first if
	// necessary.
	commitmentField(cfg *Config) fr.Element
	// commitmentPoint returns the node's outer commitment group element.
	commitmentPoint(cfg *Config) banderwagon.Element
}

// innerNode is an VERKLE_TRIE_NODE_TYPE_INNER node: up to Width children,
// indexed by the next stem byte on the path from the root.
type innerNode struct {
	children [Width]node

	hasCommitment      bool
	commitment         banderwagon.Element
	commitmentFieldVal fr.Element
}

// suffixNode is a VERKLE_TRIE_NODE_TYPE_SUFFIX_TREE node (called an
// "extension and suffix tree" node in EIP-prose): it owns one 31-byte stem
// and up to Width 32-byte values, split into two 128-wide halves C1/C2 each
// committed separately and folded into one outer commitment together with
// the stem itself.
type suffixNode struct {
	stem   [31]byte
	values [Width][]byte // nil entry = absent suffix

	hasCommitment      bool
	c1, c2             banderwagon.Element
	c1Field            fr.Element
	c2Field            fr.Element
	commitment         banderwagon.Element
	commitmentFieldVal fr.Element
}

func newSuffixNode(stem [31]byte) *suffixNode {
	return &suffixNode{stem: stem}
}

// valueHalves splits a 32-byte value into its two field inputs: the low
// 16 bytes get a 2^128 marker added so that a present-but-zero half is
// distinguishable from an absent suffix (which contributes a literal 0).
func valueHalves(value []byte) (lower, upper fr.Element) {
	lower = leBytesToField(value[:16])
	var marker fr.Element
	marker.SetUint64(1)
	marker = shiftLeft128(marker)
	lower.Add(&lower, &marker)
	upper = leBytesToField(value[16:32])
	return
}

// shiftLeft128 returns x * 2^128 reduced mod the scalar field order.
func shiftLeft128(x fr.Element) fr.Element {
	var two128 fr.Element
	// 2^128 as a field element: built via repeated squaring from 2.
	two128.SetUint64(2)
	for i := 0; i < 7; i++ {
		two128.Square(&two128)
	}
	var out fr.Element
	out.Mul(&x, &two128)
	return out
}

func (n *innerNode) computeCommitment(cfg *Config) {
	var values [Width]fr.Element
	for i, c := range n.children {
		if c == nil {
			continue
		}
		values[i] = c.commitmentField(cfg)
	}
	n.commitment = commitSparse(cfg, values[:])
	n.commitmentFieldVal = fieldFromCommitment(n.commitment)
	n.hasCommitment = true
}

func (n *innerNode) commitmentField(cfg *Config) fr.Element {
	if !n.hasCommitment {
		n.computeCommitment(cfg)
	}
	return n.commitmentFieldVal
}

func (n *innerNode) commitmentPoint(cfg *Config) banderwagon.Element {
	if !n.hasCommitment {
		n.computeCommitment(cfg)
	}
	return n.commitment
}

func (s *suffixNode) computeCommitment(cfg *Config) {
	var c1in, c2in [Width]fr.Element
	for i := 0; i < Width/2; i++ {
		if v := s.values[i]; v != nil {
			lower, upper := valueHalves(v)
			c1in[2*i] = lower
			c1in[2*i+1] = upper
		}
		if v := s.values[Width/2+i]; v != nil {
			lower, upper := valueHalves(v)
			c2in[2*i] = lower
			c2in[2*i+1] = upper
		}
	}
	s.c1 = commitSparse(cfg, c1in[:])
	s.c2 = commitSparse(cfg, c2in[:])
	s.c1Field = fieldFromCommitment(s.c1)
	s.c2Field = fieldFromCommitment(s.c2)

	var outer [Width]fr.Element
	outer[0].SetUint64(1)
	outer[1] = stemToField(s.stem)
	outer[2] = s.c1Field
	outer[3] = s.c2Field
	s.commitment = commitSparse(cfg, outer[:])
	s.commitmentFieldVal = fieldFromCommitment(s.commitment)
	s.hasCommitment = true
}

func (s *suffixNode) commitmentField(cfg *Config) fr.Element {
	if !s.hasCommitment {
		s.computeCommitment(cfg)
	}
	return s.commitmentFieldVal
}

func (s *suffixNode) commitmentPoint(cfg *Config) banderwagon.Element {
	if !s.hasCommitment {
		s.computeCommitment(cfg)
	}
	return s.commitment
}

// commitSparse computes a Pedersen vector commitment sum(values[i] * G[i])
// over the node's basis, skipping zero entries (most nodes are sparse: an
// inner node has at most Width live children but typically far fewer).
func commitSparse(cfg *Config, values []fr.Element) banderwagon.Element {
	var acc banderwagon.Element
	acc.SetIdentity()
	for i, v := range values {
		if v.IsZero() {
			continue
		}
		var term banderwagon.Element
		g := cfg.G(i)
		term.ScalarMul(&g, &v)
		acc.Add(&acc, &term)
	}
	return acc
}

// fieldFromCommitment is commitment_to_field: the little-endian byte image
// of a serialized group element, reduced mod the scalar field order.
func fieldFromCommitment(p banderwagon.Element) fr.Element {
	b := p.Bytes()
	return leBytesToField(b[:])
}
