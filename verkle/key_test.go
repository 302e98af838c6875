package verkle

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTreeKeyDeterministic(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000001")
	k1 := treeKey(addr, 3, 7)
	k2 := treeKey(addr, 3, 7)
	if k1 != k2 {
		t.Fatalf("treeKey should be deterministic for the same inputs")
	}
}

func TestTreeKeyVariesWithTreeIndexAndSubIndex(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000002")
	base := treeKey(addr, 0, 0)
	diffIndex := treeKey(addr, 1, 0)
	diffSub := treeKey(addr, 0, 1)

	if StemFromKey(base) == StemFromKey(diffIndex) {
		t.Fatalf("different tree indices should produce different stems")
	}
	if StemFromKey(base) != StemFromKey(diffSub) {
		t.Fatalf("different suffixes within the same stem should share a stem")
	}
	if SuffixFromKey(diffSub) != 1 {
		t.Fatalf("suffix should equal the requested subIndex")
	}
}

func TestAccountHeaderKeysShareAStem(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000003")
	keys := AccountHeaderKeys(addr)
	stem := StemFromKey(keys[0])
	for i, k := range keys {
		if StemFromKey(k) != stem {
			t.Fatalf("header key %d has a different stem than the others", i)
		}
	}
	wantSuffixes := []byte{VersionLeafKey, BalanceLeafKey, NonceLeafKey, CodeHashLeafKey, CodeSizeLeafKey}
	for i, k := range keys {
		if SuffixFromKey(k) != wantSuffixes[i] {
			t.Fatalf("header key %d has suffix %d, want %d", i, SuffixFromKey(k), wantSuffixes[i])
		}
	}
}

func TestVerkleKeyFromAddressMatchesExplicitGetters(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000004")
	if VerkleKeyFromAddress(addr, BalanceLeafKey) != GetTreeKeyForBalance(addr) {
		t.Fatalf("VerkleKeyFromAddress(BalanceLeafKey) should match GetTreeKeyForBalance")
	}
	if VerkleKeyFromAddress(addr, NonceLeafKey) != GetTreeKeyForNonce(addr) {
		t.Fatalf("VerkleKeyFromAddress(NonceLeafKey) should match GetTreeKeyForNonce")
	}
}

func TestCodeChunkKeysSpreadAcrossStems(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000005")
	first := GetTreeKeyForCodeChunk(addr, 0)
	farChunk := GetTreeKeyForCodeChunk(addr, MaxCodeChunksPerStem+1)
	if StemFromKey(first) == StemFromKey(farChunk) {
		t.Fatalf("code chunks far enough apart should land in different stems")
	}
}

func TestStorageSlotBelowOffsetSharesHeaderStem(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000006")
	header := GetTreeKeyForVersion(addr)
	slot := GetTreeKeyForStorageSlot(addr, 0)
	if StemFromKey(header) != StemFromKey(slot) {
		t.Fatalf("small storage slots should be packed into the account header stem")
	}
	if SuffixFromKey(slot) != HeaderStorageOffset {
		t.Fatalf("slot 0 should land at suffix HeaderStorageOffset, got %d", SuffixFromKey(slot))
	}
}

func TestStorageSlotBeyondOffsetGetsOwnStem(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000007")
	header := GetTreeKeyForVersion(addr)
	bigSlot := GetTreeKeyForStorageSlot(addr, Width)
	if StemFromKey(header) == StemFromKey(bigSlot) {
		t.Fatalf("storage slots beyond the header budget should get a dedicated stem")
	}
}

func TestTreeKeyDiffersByAddress(t *testing.T) {
	a1 := common.HexToAddress("0x00000000000000000000000000000000000008")
	a2 := common.HexToAddress("0x00000000000000000000000000000000000009")
	k1 := GetTreeKeyForBalance(a1)
	k2 := GetTreeKeyForBalance(a2)
	if bytes.Equal(k1[:], k2[:]) {
		t.Fatalf("different addresses should derive different keys")
	}
}
