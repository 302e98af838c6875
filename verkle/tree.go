package verkle

import (
	"fmt"

	"github.com/crate-crypto/go-ipa/banderwagon"
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"

	vlog "github.com/eth2030/verkle-trie/internal/log"
)

// Tree is an authenticated key/value map over 32-byte keys, backed by a
// Width-ary Verkle trie rooted at an inner node.
type Tree struct {
	cfg  *Config
	root *innerNode
	log  *vlog.Logger
}

// NewTree creates an empty trie under the given Config.
func NewTree(cfg *Config) *Tree {
	return &Tree{
		cfg:  cfg,
		root: &innerNode{},
		log:  vlog.Default().Module("verkle"),
	}
}

// checkKeyValue validates a key/value pair for insertion. value must be an
// actual 32-byte value, never nil: absence of a value is represented by
// never having inserted one, not by inserting a nil placeholder -- Insert
// and InsertNoCommitmentUpdate must treat every written value identically,
// and a nil value is ambiguous between "absent" (InsertNoCommitmentUpdate's
// suffixNode.values semantics) and "present, all zero bytes".
func checkKeyValue(key, value []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: key has length %d, want %d", ErrInvalidArgument, len(key), KeySize)
	}
	if len(value) != 32 {
		return fmt.Errorf("%w: value has length %d, want 32", ErrInvalidArgument, len(value))
	}
	return nil
}

// pathStep is one inner node visited on the way to a key, together with
// the child index taken from it.
type pathStep struct {
	index byte
	node  *innerNode
}

// InsertNoCommitmentUpdate inserts or overwrites a value without
// recomputing any commitments, for bulk-building a trie whose commitments
// are computed once at the end via ComputeCommitments. It is substantially
// cheaper than repeated Insert calls when loading many keys at once.
func (t *Tree) InsertNoCommitmentUpdate(key, value []byte) error {
	if err := checkKeyValue(key, value); err != nil {
		return err
	}
	var stem [StemSize]byte
	copy(stem[:], key[:StemSize])
	suffix := key[StemSize]

	cur := t.root
	depth := 0
	for {
		index := stem[depth]
		depth++
		switch child := cur.children[index].(type) {
		case nil:
			sn := newSuffixNode(stem)
			sn.values[suffix] = value
			cur.children[index] = sn
			return nil
		case *suffixNode:
			if child.stem == stem {
				child.values[suffix] = value
				return nil
			}
			// Collision: walk down the shared prefix of the two stems,
			// building a chain of inner nodes, then place both suffix
			// nodes at the first diverging byte.
			oldStem := child.stem
			newInner := &innerNode{}
			cur.children[index] = newInner
			cur = newInner
			for oldStem[depth] == stem[depth] {
				next := &innerNode{}
				cur.children[stem[depth]] = next
				cur = next
				depth++
			}
			cur.children[stem[depth]] = newSuffixNode(stem)
			cur.children[stem[depth]].(*suffixNode).values[suffix] = value
			cur.children[oldStem[depth]] = child
			return nil
		default:
			cur = child.(*innerNode)
		}
	}
}

// ComputeCommitments computes every missing commitment reachable from the
// root through nodes that themselves lack a commitment. Call this once
// after a batch of InsertNoCommitmentUpdate calls. A node whose commitment
// already exists is neither recomputed nor descended into, so values
// written with InsertNoCommitmentUpdate below an already-committed node are
// not reflected in the root.
func (t *Tree) ComputeCommitments() {
	t.log.Debug("computing missing commitments")
	t.root.commitmentField(t.cfg)
}

// Root returns the root commitment, computing any missing commitments
// first.
func (t *Tree) Root() banderwagon.Element {
	return t.root.commitmentPoint(t.cfg)
}

// Insert inserts or overwrites a value, updating every commitment on the
// path to the root immediately. This is the incremental counterpart to
// InsertNoCommitmentUpdate + ComputeCommitments: it recomputes only the
// delta each changed node contributes to its parent, rather than
// recommitting whole nodes from scratch.
func (t *Tree) Insert(key, value []byte) error {
	if err := checkKeyValue(key, value); err != nil {
		return err
	}
	var stem [StemSize]byte
	copy(stem[:], key[:StemSize])
	suffix := key[StemSize]

	var path []pathStep
	cur := t.root
	depth := 0
	for {
		index := stem[depth]
		// Materialize cur's commitment from its children before anything
		// below it changes, so propagate adds deltas to a commitment that
		// reflects the pre-insert state (a fresh or bulk-built node has none).
		cur.commitmentPoint(t.cfg)
		path = append(path, pathStep{index: index, node: cur})
		depth++

		switch child := cur.children[index].(type) {
		case nil:
			sn := newSuffixNode(stem)
			sn.values[suffix] = value
			cur.children[index] = sn
			valueChange := sn.commitmentField(t.cfg)
			t.propagate(path, valueChange)
			return nil

		case *suffixNode:
			if child.stem == stem {
				valueChange := t.updateSuffixInPlace(child, suffix, value)
				t.propagate(path, valueChange)
				return nil
			}
			oldField := child.commitmentField(t.cfg)
			newInner := t.splitSuffixNode(child, stem, suffix, value, depth)
			cur.children[index] = newInner
			newField := newInner.commitmentField(t.cfg)
			var delta fr.Element
			delta.Sub(&newField, &oldField)
			t.propagate(path, delta)
			return nil

		default:
			cur = child.(*innerNode)
		}
	}
}

// updateSuffixInPlace overwrites one suffix in an existing suffix node,
// updating C1/C2 and the outer commitment via their exact deltas (mirroring
// the Python reference's incremental update), and returns the resulting
// change in the node's own commitment field, to be propagated upward.
func (t *Tree) updateSuffixInPlace(sn *suffixNode, suffix byte, value []byte) fr.Element {
	// Ensure the node's commitments (C1/C2/outer) are already materialized;
	// every suffix node reaches this point only after having been
	// committed once, either at creation or at split time.
	oldOuterField := sn.commitmentField(t.cfg)

	var oldLower, oldUpper fr.Element
	if old := sn.values[suffix]; old != nil {
		oldLower, oldUpper = valueHalves(old)
	}
	newLower, newUpper := valueHalves(value)
	sn.values[suffix] = value

	var dLower, dUpper fr.Element
	dLower.Sub(&newLower, &oldLower)
	dUpper.Sub(&newUpper, &oldUpper)

	gLower := t.cfg.G(int(2*int(suffix)) % Width)
	gUpper := t.cfg.G(int(2*int(suffix)+1) % Width)
	var termLower, termUpper banderwagon.Element
	termLower.ScalarMul(&gLower, &dLower)
	termUpper.ScalarMul(&gUpper, &dUpper)

	var which *banderwagon.Element
	var whichField *fr.Element
	var outerGIndex int
	if suffix < Width/2 {
		which, whichField, outerGIndex = &sn.c1, &sn.c1Field, 2
	} else {
		which, whichField, outerGIndex = &sn.c2, &sn.c2Field, 3
	}
	which.Add(which, &termLower)
	which.Add(which, &termUpper)

	newHalfField := fieldFromCommitment(*which)
	var halfDelta fr.Element
	halfDelta.Sub(&newHalfField, whichField)
	*whichField = newHalfField

	outerG := t.cfg.G(outerGIndex)
	var outerTerm banderwagon.Element
	outerTerm.ScalarMul(&outerG, &halfDelta)
	sn.commitment.Add(&sn.commitment, &outerTerm)

	newOuterField := fieldFromCommitment(sn.commitment)
	sn.commitmentFieldVal = newOuterField

	var valueChange fr.Element
	valueChange.Sub(&newOuterField, &oldOuterField)
	return valueChange
}

// splitSuffixNode replaces a colliding suffix node with a chain of inner
// nodes down to the first byte at which the old and new stems diverge,
// placing both suffix nodes as siblings there. It returns the new
// top-of-chain inner node; the new nodes' commitments are computed on
// first read.
func (t *Tree) splitSuffixNode(old *suffixNode, newStem [StemSize]byte, newSuffix byte, value []byte, depth int) *innerNode {
	oldStem := old.stem
	top := &innerNode{}
	cur := top
	d := depth
	for oldStem[d] == newStem[d] {
		next := &innerNode{}
		cur.children[newStem[d]] = next
		cur = next
		d++
	}
	sn := newSuffixNode(newStem)
	sn.values[newSuffix] = value
	cur.children[newStem[d]] = sn
	cur.children[oldStem[d]] = old
	return top
}

// propagate threads a commitment-field delta up through path, updating
// each ancestor's commitment by delta*G[index] exactly as the child's
// commitment changed, and re-deriving the new delta for the next ancestor
// up.
func (t *Tree) propagate(path []pathStep, valueChange fr.Element) {
	for i := len(path) - 1; i >= 0; i-- {
		step := path[i]
		g := t.cfg.G(int(step.index))
		var term banderwagon.Element
		term.ScalarMul(&g, &valueChange)
		step.node.commitment.Add(&step.node.commitment, &term)
		step.node.hasCommitment = true

		newField := fieldFromCommitment(step.node.commitment)
		var delta fr.Element
		delta.Sub(&newField, &step.node.commitmentFieldVal)
		step.node.commitmentFieldVal = newField
		valueChange = delta
	}
}

// pathResult describes what Get/findNodeWithPath found on the way to a
// key: the sequence of inner nodes visited (for proof construction) and
// the terminal suffix node, if the descent reached one.
type pathResult struct {
	steps  []pathStep
	suffix *suffixNode // nil if descent bottomed out on a missing child
}

// findNodeWithPath descends to key's stem, recording every inner node
// visited. It stops either at a suffix node (whose stem may or may not
// equal the target stem -- the caller must compare) or at a nil child.
func (t *Tree) findNodeWithPath(stem [StemSize]byte) pathResult {
	var steps []pathStep
	cur := t.root
	depth := 0
	for {
		index := stem[depth]
		steps = append(steps, pathStep{index: index, node: cur})
		depth++
		switch child := cur.children[index].(type) {
		case nil:
			return pathResult{steps: steps}
		case *suffixNode:
			return pathResult{steps: steps, suffix: child}
		default:
			cur = child.(*innerNode)
		}
	}
}

// Get returns the value stored at key, or (nil, false) if no value was
// ever written there.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	if len(key) != KeySize {
		return nil, false
	}
	var stem [StemSize]byte
	copy(stem[:], key[:StemSize])
	suffix := key[StemSize]

	res := t.findNodeWithPath(stem)
	if res.suffix == nil || res.suffix.stem != stem {
		return nil, false
	}
	v := res.suffix.values[suffix]
	if v == nil {
		return nil, false
	}
	return v, true
}
