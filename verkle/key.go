package verkle

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// StemSize is the length, in bytes, of a trie stem (the first 31 bytes of
// a key).
const StemSize = 31

// KeySize is the length, in bytes, of a full trie key.
const KeySize = 32

// Leaf suffixes for the account-header stem, following the Ethereum
// state-tree layout: every account's header fields (version, balance,
// nonce, code hash, code size) live as five suffixes of one shared stem.
const (
	VersionLeafKey  = 0
	BalanceLeafKey  = 1
	NonceLeafKey    = 2
	CodeHashLeafKey = 3
	CodeSizeLeafKey = 4
)

// CodeOffset, HeaderStorageOffset and MaxCodeChunksPerStem govern how code
// chunks and storage slots are spread across stems beyond the account
// header stem.
const (
	CodeOffset           = 128
	HeaderStorageOffset  = 64
	MaxCodeChunksPerStem = 128 // Width - CodeOffset
)

// treeKey derives the 32-byte trie key for (address, treeIndex, subIndex):
// the stem is the first 31 bytes of blake2b-256 over a 40-byte buffer
// holding address, treeIndex as 8 little-endian bytes, then 12 zero bytes;
// the suffix is subIndex. treeIndex 0 is the account header stem; non-zero treeIndex
// values address code-chunk and storage-slot stems beyond the header.
func treeKey(addr common.Address, treeIndex uint64, subIndex byte) [KeySize]byte {
	var buf [40]byte
	copy(buf[:20], addr[:])
	for i := 0; i < 8; i++ {
		buf[20+i] = byte(treeIndex >> (8 * i))
	}
	h := blake2b.Sum256(buf[:])

	var key [KeySize]byte
	copy(key[:StemSize], h[:StemSize])
	key[StemSize] = subIndex
	return key
}

// GetTreeKeyForVersion returns the trie key for an account's version field.
func GetTreeKeyForVersion(addr common.Address) [KeySize]byte {
	return treeKey(addr, 0, VersionLeafKey)
}

// GetTreeKeyForBalance returns the trie key for an account's balance field.
func GetTreeKeyForBalance(addr common.Address) [KeySize]byte {
	return treeKey(addr, 0, BalanceLeafKey)
}

// GetTreeKeyForNonce returns the trie key for an account's nonce field.
func GetTreeKeyForNonce(addr common.Address) [KeySize]byte {
	return treeKey(addr, 0, NonceLeafKey)
}

// GetTreeKeyForCodeHash returns the trie key for an account's code hash.
func GetTreeKeyForCodeHash(addr common.Address) [KeySize]byte {
	return treeKey(addr, 0, CodeHashLeafKey)
}

// GetTreeKeyForCodeSize returns the trie key for an account's code size.
func GetTreeKeyForCodeSize(addr common.Address) [KeySize]byte {
	return treeKey(addr, 0, CodeSizeLeafKey)
}

// GetTreeKeyForCodeChunk returns the trie key for the chunk-th 32-byte
// chunk of an account's code. The first MaxCodeChunksPerStem chunks occupy
// suffixes CodeOffset..Width-1 of the account header stem; later chunks
// fill the stems at tree index 1, 2, ... Width chunks at a time.
func GetTreeKeyForCodeChunk(addr common.Address, chunk uint64) [KeySize]byte {
	pos := CodeOffset + chunk
	treeIndex := pos / Width
	subIndex := byte(pos % Width)
	return treeKey(addr, treeIndex, subIndex)
}

// GetTreeKeyForStorageSlot returns the trie key for a storage slot. Slots
// below CodeOffset-HeaderStorageOffset live packed into the account header
// stem at suffix HeaderStorageOffset+slot; a larger slot, with
// pos = slot-(CodeOffset-HeaderStorageOffset), lives at tree index
// 1+pos/Width, suffix pos%Width.
func GetTreeKeyForStorageSlot(addr common.Address, slot uint64) [KeySize]byte {
	if slot < CodeOffset-HeaderStorageOffset {
		return treeKey(addr, 0, byte(HeaderStorageOffset+slot))
	}
	pos := slot - (CodeOffset - HeaderStorageOffset)
	treeIndex := 1 + pos/Width
	subIndex := byte(pos % Width)
	return treeKey(addr, treeIndex, subIndex)
}

// AccountHeaderKeys returns the five trie keys that make up an account's
// header record, in VersionLeafKey..CodeSizeLeafKey order.
func AccountHeaderKeys(addr common.Address) [5][KeySize]byte {
	return [5][KeySize]byte{
		GetTreeKeyForVersion(addr),
		GetTreeKeyForBalance(addr),
		GetTreeKeyForNonce(addr),
		GetTreeKeyForCodeHash(addr),
		GetTreeKeyForCodeSize(addr),
	}
}

// StemFromKey returns the first 31 bytes of key, the stem.
func StemFromKey(key [KeySize]byte) [StemSize]byte {
	var stem [StemSize]byte
	copy(stem[:], key[:StemSize])
	return stem
}

// SuffixFromKey returns the last byte of key, the suffix.
func SuffixFromKey(key [KeySize]byte) byte {
	return key[StemSize]
}

// VerkleKeyFromAddress builds the trie key for an address's account-header
// stem at the given suffix, e.g. VerkleKeyFromAddress(addr, BalanceLeafKey).
func VerkleKeyFromAddress(addr common.Address, suffix byte) [KeySize]byte {
	return treeKey(addr, 0, suffix)
}
