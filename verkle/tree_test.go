package verkle

import (
	"bytes"
	"math/rand"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func randomKey(r *rand.Rand) []byte {
	k := make([]byte, KeySize)
	r.Read(k)
	return k
}

func randomValue(r *rand.Rand) []byte {
	v := make([]byte, 32)
	r.Read(v)
	return v
}

func TestEmptyTrieRootIsIdentity(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	root := tr.Root()
	var identity = cfg.G(0)
	identity.SetIdentity()
	if !root.Equal(&identity) {
		t.Fatalf("empty trie root should be the identity point")
	}
}

func TestInsertThenGet(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)

	key := make([]byte, KeySize)
	key[0] = 0x01
	value := bytes.Repeat([]byte{0xAB}, 32)

	if err := tr.Insert(key, value); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, ok := tr.Get(key)
	if !ok {
		t.Fatalf("Get: expected key present")
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("Get returned %x, want %x", got, value)
	}
}

func TestGetAbsentKey(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	key := make([]byte, KeySize)
	if _, ok := tr.Get(key); ok {
		t.Fatalf("expected absent key in empty trie")
	}

	other := make([]byte, KeySize)
	other[0] = 1
	tr.Insert(other, bytes.Repeat([]byte{1}, 32))
	if _, ok := tr.Get(key); ok {
		t.Fatalf("expected absent key after unrelated insert")
	}
}

func TestOverwriteUpdatesValueAndRoot(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)

	key := make([]byte, KeySize)
	key[5] = 7
	v1 := bytes.Repeat([]byte{1}, 32)
	v2 := bytes.Repeat([]byte{2}, 32)

	if err := tr.Insert(key, v1); err != nil {
		t.Fatal(err)
	}
	rootAfterV1 := tr.Root()

	if err := tr.Insert(key, v2); err != nil {
		t.Fatal(err)
	}
	rootAfterV2 := tr.Root()

	if rootAfterV1.Equal(&rootAfterV2) {
		t.Fatalf("root commitment should change after overwriting a value")
	}
	got, _ := tr.Get(key)
	if !bytes.Equal(got, v2) {
		t.Fatalf("Get returned stale value after overwrite")
	}
}

func TestInsertIdempotent(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	key := make([]byte, KeySize)
	key[0] = 9
	v := bytes.Repeat([]byte{3}, 32)

	tr.Insert(key, v)
	r1 := tr.Root()
	tr.Insert(key, v)
	r2 := tr.Root()
	if !r1.Equal(&r2) {
		t.Fatalf("re-inserting the same value should not change the root")
	}
}

func TestCollidingStemsProduceExpectedDepth(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)

	var k1, k2 [KeySize]byte
	// Share the first 30 bytes, diverge at byte 30 (the last stem byte).
	for i := 0; i < 30; i++ {
		k1[i] = 0x42
		k2[i] = 0x42
	}
	k1[30] = 0x00
	k2[30] = 0x01
	k1[31] = 0
	k2[31] = 0

	if err := tr.Insert(k1[:], bytes.Repeat([]byte{1}, 32)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(k2[:], bytes.Repeat([]byte{2}, 32)); err != nil {
		t.Fatal(err)
	}

	var stem1 [StemSize]byte
	copy(stem1[:], k1[:StemSize])
	res := tr.findNodeWithPath(stem1)
	if len(res.steps) != 31 {
		t.Fatalf("colliding stems diverging at the last byte should need 31 inner hops, got %d", len(res.steps))
	}

	v1, ok := tr.Get(k1[:])
	if !ok || !bytes.Equal(v1, bytes.Repeat([]byte{1}, 32)) {
		t.Fatalf("k1 lookup failed after split")
	}
	v2, ok := tr.Get(k2[:])
	if !ok || !bytes.Equal(v2, bytes.Repeat([]byte{2}, 32)) {
		t.Fatalf("k2 lookup failed after split")
	}
}

func TestBulkBuildMatchesIncrementalInsert(t *testing.T) {
	cfg := testConfig(t)
	r := rand.New(rand.NewSource(1))

	keys := make([][]byte, 200)
	values := make([][]byte, 200)
	for i := range keys {
		keys[i] = randomKey(r)
		values[i] = randomValue(r)
	}

	incremental := NewTree(cfg)
	for i := range keys {
		if err := incremental.Insert(keys[i], values[i]); err != nil {
			t.Fatal(err)
		}
	}

	bulk := NewTree(cfg)
	for i := range keys {
		if err := bulk.InsertNoCommitmentUpdate(keys[i], values[i]); err != nil {
			t.Fatal(err)
		}
	}
	bulk.ComputeCommitments()

	r1 := incremental.Root()
	r2 := bulk.Root()
	if !r1.Equal(&r2) {
		t.Fatalf("incremental and bulk-built tries with the same keys should have the same root")
	}
}

func TestUniqueLeavesDoNotCollapse(t *testing.T) {
	cfg := testConfig(t)
	r := rand.New(rand.NewSource(2))
	tr := NewTree(cfg)

	want := map[string][]byte{}
	for i := 0; i < 64; i++ {
		k := randomKey(r)
		v := randomValue(r)
		if err := tr.Insert(k, v); err != nil {
			t.Fatal(err)
		}
		want[string(k)] = v
	}
	for k, v := range want {
		got, ok := tr.Get([]byte(k))
		if !ok {
			t.Fatalf("key %x missing after inserts", k)
		}
		if !bytes.Equal(got, v) {
			t.Fatalf("key %x: got %x want %x", k, got, v)
		}
	}
}
