package verkle

import (
	"fmt"

	ipa "github.com/crate-crypto/go-ipa"
	"github.com/crate-crypto/go-ipa/banderwagon"
	"golang.org/x/crypto/blake2b"
)

// Width is the trie's fan-out: each inner node has Width children and each
// suffix node's two sub-commitments each cover Width/2 suffixes (Width
// field slots, two per value).
const Width = 256

// Config bundles the public parameters shared by every trie, prover and
// verifier in a process: the Pedersen basis (go-ipa's IPAConfig) plus an
// auxiliary generator Q. Q is folded into BasisFingerprint only; no
// commitment in this package uses it (the extension commitment's constant
// term is committed against G(0)). The domain's barycentric weights are
// package-level tables in field.go, not taken from the IPAConfig.
//
// Config replaces the Python reference's module-level BASIS/ipa_utils
// globals with an explicit, constructible object: every operation that
// needs public parameters takes a *Config rather than reaching for package
// state.
type Config struct {
	conf *ipa.IPAConfig
	q    banderwagon.Element
}

// NewConfig builds the default configuration, deriving the Pedersen basis
// deterministically via go-ipa's own IPAConfig construction. Unlike the
// Python proof of concept's generate_basis (which drew WIDTH+1 fresh random
// points on every run), this basis is reproducible across processes: two
// independently built Configs commit identically, which is what lets
// BasisFingerprint serve as a cheap sanity check between cooperating
// parties instead of an out-of-band basis exchange.
func NewConfig() (*Config, error) {
	conf, err := ipa.NewIPAConfig()
	if err != nil {
		return nil, fmt.Errorf("verkle: building IPA config: %w", err)
	}
	return &Config{
		conf: conf,
		q:    banderwagon.Generator(),
	}, nil
}

// G returns the i-th basis point, i in [0, Width).
func (c *Config) G(i int) banderwagon.Element {
	return c.conf.SRS[i]
}

// BasisFingerprint returns a short, stable digest of the basis in use. Two
// Configs with the same fingerprint share the same SRS and will therefore
// produce interoperable commitments and proofs; this is a diagnostic aid,
// not a cryptographic commitment to the basis.
func (c *Config) BasisFingerprint() [16]byte {
	h, _ := blake2b.New(16, nil)
	for i := 0; i < Width; i++ {
		b := c.conf.SRS[i].Bytes()
		h.Write(b[:])
	}
	qb := c.q.Bytes()
	h.Write(qb[:])
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}
