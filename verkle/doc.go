// Package verkle implements an authenticated key/value map backed by a
// Verkle trie: a 256-ary trie over 32-byte keys whose nodes are Pedersen
// vector commitments over the Bandersnatch/banderwagon group, opened with a
// single IPA-based multiproof per batch of queries.
//
// The trie shape, insertion algorithm, multiproof construction and wire
// format are implemented here; the underlying scalar field, group
// arithmetic and single-polynomial IPA argument are supplied by
// github.com/crate-crypto/go-ipa and treated as a trusted primitive.
package verkle
