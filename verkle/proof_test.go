package verkle

import (
	"bytes"
	"math/rand"
	"testing"
)

func buildRandomTree(t *testing.T, cfg *Config, seed int64, n int) (*Tree, map[string][]byte) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	tr := NewTree(cfg)
	values := map[string][]byte{}
	for i := 0; i < n; i++ {
		k := randomKey(r)
		v := randomValue(r)
		if err := tr.InsertNoCommitmentUpdate(k, v); err != nil {
			t.Fatal(err)
		}
		values[string(k)] = v
	}
	tr.ComputeCommitments()
	return tr, values
}

func TestProofCompletenessForExistingKeys(t *testing.T) {
	cfg := testConfig(t)
	tr, values := buildRandomTree(t, cfg, 10, 100)

	keys := make([][]byte, 0, 10)
	vals := make([][]byte, 0, 10)
	i := 0
	for k, v := range values {
		if i >= 10 {
			break
		}
		keys = append(keys, []byte(k))
		vals = append(vals, v)
		i++
	}

	proof, err := Prove(cfg, tr, keys)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	root := tr.Root()
	if err := Verify(cfg, root, keys, vals, proof); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProofNonMembership(t *testing.T) {
	cfg := testConfig(t)
	tr, _ := buildRandomTree(t, cfg, 11, 50)

	r := rand.New(rand.NewSource(999))
	absentKey := randomKey(r)
	if _, ok := tr.Get(absentKey); ok {
		t.Skip("random key collided with an existing one")
	}

	proof, err := Prove(cfg, tr, [][]byte{absentKey})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	root := tr.Root()
	if err := Verify(cfg, root, [][]byte{absentKey}, [][]byte{nil}, proof); err != nil {
		t.Fatalf("Verify of absent key failed: %v", err)
	}
}

func TestProofSoundnessRejectsFlippedByte(t *testing.T) {
	cfg := testConfig(t)
	tr, values := buildRandomTree(t, cfg, 12, 50)

	var key []byte
	var val []byte
	for k, v := range values {
		key, val = []byte(k), v
		break
	}

	proof, err := Prove(cfg, tr, [][]byte{key})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	root := tr.Root()

	wrongVal := bytes.Clone(val)
	wrongVal[0] ^= 0xFF
	if err := Verify(cfg, root, [][]byte{key}, [][]byte{wrongVal}, proof); err == nil {
		t.Fatalf("Verify should reject a proof checked against a flipped value")
	}
}

func TestProofScenarioNoExtension(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	// Insert one key so the trie is non-empty, then query a sibling stem
	// that was never written.
	present := make([]byte, KeySize)
	present[0] = 1
	tr.Insert(present, bytes.Repeat([]byte{1}, 32))

	absent := make([]byte, KeySize)
	absent[0] = 2

	proof, err := Prove(cfg, tr, [][]byte{absent})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.ExtensionPresent) != 1 || proof.ExtensionPresent[0] != NoExtension {
		t.Fatalf("expected NoExtension, got %v", proof.ExtensionPresent)
	}
	root := tr.Root()
	if err := Verify(cfg, root, [][]byte{absent}, [][]byte{nil}, proof); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProofScenarioOtherStem(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)

	var k1, k2 [KeySize]byte
	for i := 0; i < 31; i++ {
		k1[i] = 0x77
	}
	k1[30] = 0x00
	k2 = k1
	k2[30] = 0x01 // different stem, shares the first 30 bytes

	tr.Insert(k1[:], bytes.Repeat([]byte{9}, 32))

	// k2's stem was never written: querying k2 should report OtherStem
	// (k1's extension occupies the slot where k2's would live).
	proof, err := Prove(cfg, tr, [][]byte{k2[:]})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.ExtensionPresent) != 1 || proof.ExtensionPresent[0] != OtherStem {
		t.Fatalf("expected OtherStem, got %v", proof.ExtensionPresent)
	}
	root := tr.Root()
	if err := Verify(cfg, root, [][]byte{k2[:]}, [][]byte{nil}, proof); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProofScenarioOverwriteThenProve(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	key := make([]byte, KeySize)
	key[3] = 5

	tr.Insert(key, bytes.Repeat([]byte{1}, 32))
	newVal := bytes.Repeat([]byte{2}, 32)
	tr.Insert(key, newVal)

	proof, err := Prove(cfg, tr, [][]byte{key})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	root := tr.Root()
	if err := Verify(cfg, root, [][]byte{key}, [][]byte{newVal}, proof); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProofSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	tr, values := buildRandomTree(t, cfg, 13, 30)

	var key []byte
	var val []byte
	for k, v := range values {
		key, val = []byte(k), v
		break
	}

	proof, err := Prove(cfg, tr, [][]byte{key})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	data, err := proof.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	root := tr.Root()
	if err := Verify(cfg, root, [][]byte{key}, [][]byte{val}, decoded); err != nil {
		t.Fatalf("Verify of round-tripped proof failed: %v", err)
	}
}

func TestProveRejectsDuplicateKeys(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	key := make([]byte, KeySize)
	tr.Insert(key, bytes.Repeat([]byte{1}, 32))

	_, err := Prove(cfg, tr, [][]byte{key, key})
	if err == nil {
		t.Fatalf("expected error for duplicate query keys")
	}
}

func TestVerifyRejectsWrongKeyLength(t *testing.T) {
	cfg := testConfig(t)
	tr := NewTree(cfg)
	key := make([]byte, KeySize)
	tr.Insert(key, bytes.Repeat([]byte{1}, 32))
	proof, _ := Prove(cfg, tr, [][]byte{key})
	root := tr.Root()

	err := Verify(cfg, root, [][]byte{key[:31]}, [][]byte{nil}, proof)
	if err == nil {
		t.Fatalf("expected error for wrong-length key")
	}
}
