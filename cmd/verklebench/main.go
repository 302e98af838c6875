// Command verklebench builds a random verkle trie, commits it, and proves
// and checks a multiproof over a sample of its keys, printing timings for
// each stage.
//
// Usage:
//
//	verklebench [flags]
//
// Flags:
//
//	--stems         Number of random stems to insert (default: 1000)
//	--chunks        Values to insert per stem, suffixes 0..chunks-1 (default: 8)
//	--proof-keys    Existing keys to include in the sample proof (default: 5000)
//	--absent-keys   Additional never-written keys to include (default: 100)
//	--verbosity     Log level: debug, info, warn, error (default: info)
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/eth2030/verkle-trie/internal/log"
	"github.com/eth2030/verkle-trie/verkle"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type config struct {
	stems      int
	chunks     int
	proofKeys  int
	absentKeys int
	verbosity  string
}

func parseFlags(args []string) (config, bool, int) {
	fs := flag.NewFlagSet("verklebench", flag.ContinueOnError)
	cfg := config{}
	fs.IntVar(&cfg.stems, "stems", 1000, "number of random stems to insert")
	fs.IntVar(&cfg.chunks, "chunks", 8, "values to insert per stem, suffixes 0..chunks-1")
	fs.IntVar(&cfg.proofKeys, "proof-keys", 5000, "existing keys to include in the sample proof")
	fs.IntVar(&cfg.absentKeys, "absent-keys", 100, "additional never-written keys to include")
	fs.StringVar(&cfg.verbosity, "verbosity", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if cfg.chunks < 1 || cfg.chunks > verkle.Width {
		fmt.Fprintf(os.Stderr, "verklebench: --chunks must be in [1, %d]\n", verkle.Width)
		return cfg, true, 2
	}
	return cfg, false, 0
}

func levelFor(verbosity string) slog.Level {
	switch verbosity {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}
	log.SetDefault(log.New(levelFor(cfg.verbosity)))
	logger := log.Default().Module("verklebench")

	vcfg, err := verkle.NewConfig()
	if err != nil {
		logger.Error("building config", "err", err)
		return 1
	}
	logger.Info("loaded basis", "fingerprint", fmt.Sprintf("%x", vcfg.BasisFingerprint()))

	tr := verkle.NewTree(vcfg)
	values := map[string][]byte{}
	keys := make([][]byte, 0, cfg.stems*cfg.chunks)

	start := time.Now()
	for i := 0; i < cfg.stems; i++ {
		stem := randomStem()
		for suffix := 0; suffix < cfg.chunks; suffix++ {
			key := append(append([]byte{}, stem[:]...), byte(suffix))
			value := randomValue()
			if err := tr.InsertNoCommitmentUpdate(key, value); err != nil {
				logger.Error("insert", "err", err)
				return 1
			}
			values[string(key)] = value
			keys = append(keys, key)
		}
	}
	insertElapsed := time.Since(start)
	logger.Info("inserted elements", "count", len(keys), "elapsed", insertElapsed.String())

	start = time.Now()
	tr.ComputeCommitments()
	root := tr.Root()
	commitElapsed := time.Since(start)
	logger.Info("computed root commitment", "elapsed", commitElapsed.String())

	proofKeys := make([][]byte, 0, cfg.proofKeys+cfg.absentKeys)
	proofValues := make([][]byte, 0, cap(proofKeys))
	for i := 0; i < cfg.proofKeys && i < len(keys); i++ {
		k := keys[i]
		proofKeys = append(proofKeys, k)
		proofValues = append(proofValues, values[string(k)])
	}
	for i := 0; i < cfg.absentKeys; i++ {
		k := randomKey()
		if _, ok := values[string(k)]; ok {
			continue
		}
		proofKeys = append(proofKeys, k)
		proofValues = append(proofValues, nil)
	}

	start = time.Now()
	proof, err := verkle.Prove(vcfg, tr, proofKeys)
	if err != nil {
		logger.Error("prove", "err", err)
		return 1
	}
	proveElapsed := time.Since(start)

	data, err := proof.Marshal()
	if err != nil {
		logger.Error("marshal proof", "err", err)
		return 1
	}
	logger.Info("built proof", "keys", len(proofKeys), "bytes", len(data), "elapsed", proveElapsed.String())

	start = time.Now()
	if err := verkle.Verify(vcfg, root, proofKeys, proofValues, proof); err != nil {
		logger.Error("proof did not verify", "err", err)
		return 1
	}
	checkElapsed := time.Since(start)
	logger.Info("checked proof", "elapsed", checkElapsed.String())

	return 0
}

func randomStem() [verkle.StemSize]byte {
	var s [verkle.StemSize]byte
	if _, err := rand.Read(s[:]); err != nil {
		panic(err)
	}
	return s
}

func randomKey() []byte {
	k := make([]byte, verkle.KeySize)
	if _, err := rand.Read(k); err != nil {
		panic(err)
	}
	return k
}

func randomValue() []byte {
	v := make([]byte, 32)
	if _, err := rand.Read(v); err != nil {
		panic(err)
	}
	return v
}
