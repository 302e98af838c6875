package verkle

import (
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
	"github.com/holiman/uint256"
)

// leBytesToField interprets b as a little-endian integer and reduces it
// modulo the scalar field order. Both the stem-as-integer opening (z=1 on
// an extension node) and each 16-byte value half go through this path, so
// it is centralized here rather than inlined at each call site.
//
// The bytes are reversed into a big-endian buffer and loaded into a
// uint256.Int (the same 256-bit integer type used for balances and other
// on-chain quantities elsewhere in this stack), which is converted to
// math/big only to hand it to fr.Element.SetBigInt.
func leBytesToField(b []byte) fr.Element {
	var rev [32]byte
	n := len(b)
	for i := 0; i < n && i < 32; i++ {
		rev[31-i] = b[i]
	}
	var u uint256.Int
	u.SetBytes(rev[:])

	var out fr.Element
	big := u.ToBig()
	out.SetBigInt(big)
	return out
}

// stemToField returns the 31-byte stem interpreted as a little-endian
// integer and reduced modulo the scalar field order -- the z=1 opening of
// an extension node.
func stemToField(stem [31]byte) fr.Element {
	return leBytesToField(stem[:])
}
