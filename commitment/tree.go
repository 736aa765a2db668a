// Package commitment implements C3: quad encoding into Merkle leaves and the
// fixed-depth Merkle tree datasets are committed under (spec.md §4.2).
package commitment

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/zkerr"
)

// Commitment is the disclosed root of a committed dataset, together with
// the oracle/depth metadata required to verify inclusion against it
// (spec.md §4.2, §6.1).
type Commitment struct {
	Root   field.Element
	Depth  uint8
	HashID config.HashID
}

// InclusionWitness is the per-leaf proof of membership C8's prover attaches
// to every witness quad: the Merkle path siblings from leaf to root, and a
// direction bit per level recording whether the path node at that level is
// the left or right child (0 = left, 1 = right). Grounded on the fixed-
// depth-with-padding pattern; the bitset backing Directions mirrors the
// teacher's own preference for packed bit-level state over []bool.
type InclusionWitness struct {
	LeafIndex  uint64
	Path       []field.Element
	Directions *bitset.BitSet
}

// Tree is a fully materialized Merkle tree over a dataset's encoded quads.
// It is an in-memory construction aid for Commit/Prove; only the Commitment
// (root) is ever disclosed.
type Tree struct {
	oracle field.Oracle
	depth  uint8
	leaves []field.Element
	levels [][]field.Element // levels[0] = leaves (padded), levels[len-1] = [root]
}

// Encoder is the subset of rdf.Encoder's surface the quad-leaf encoding
// needs, kept narrow so commitment does not import rdf's full surface area
// beyond what C3 specifies.
type Encoder interface {
	EncodeTerm(t rdf.Term) (field.Element, error)
}

// EncodeQuadLeaf computes the Merkle leaf value for a single quad:
// h4(E(s), E(p), E(o), E(g)) (spec.md §4.2's "quad encoding via h4").
func EncodeQuadLeaf(oracle field.Oracle, enc Encoder, q rdf.Quad) (field.Element, error) {
	if err := q.Validate(); err != nil {
		return field.Element{}, err
	}
	s, err := enc.EncodeTerm(q.Subject)
	if err != nil {
		return field.Element{}, err
	}
	p, err := enc.EncodeTerm(q.Predicate)
	if err != nil {
		return field.Element{}, err
	}
	o, err := enc.EncodeTerm(q.Object)
	if err != nil {
		return field.Element{}, err
	}
	g, err := enc.EncodeTerm(q.Graph)
	if err != nil {
		return field.Element{}, err
	}
	return oracle.H4(s, p, o, g), nil
}

// Build constructs the fixed-depth Merkle tree over quads, encoding each
// quad to a leaf and zero-padding up to the tree's full 2^depth capacity.
// Datasets exceeding capacity fail with ErrDatasetTooLarge rather than
// silently truncating (spec.md §4.2 edge case).
func Build(oracle field.Oracle, enc Encoder, depth uint8, quads []rdf.Quad) (*Tree, error) {
	capacity := uint64(1) << depth
	if uint64(len(quads)) > capacity {
		return nil, fmt.Errorf("%w: %d quads exceeds capacity 2^%d = %d", zkerr.ErrDatasetTooLarge, len(quads), depth, capacity)
	}

	leaves := make([]field.Element, capacity)
	for i, q := range quads {
		leaf, err := EncodeQuadLeaf(oracle, enc, q)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}
	// Remaining leaves stay field.Zero(), the padding value (spec.md §4.2).

	levels := make([][]field.Element, depth+1)
	levels[0] = leaves
	for lvl := uint8(0); lvl < depth; lvl++ {
		cur := levels[lvl]
		next := make([]field.Element, len(cur)/2)
		for i := 0; i < len(next); i++ {
			next[i] = oracle.H2(cur[2*i], cur[2*i+1])
		}
		levels[lvl+1] = next
	}

	return &Tree{oracle: oracle, depth: depth, leaves: leaves, levels: levels}, nil
}

// Commitment returns the disclosed root, paired with the metadata needed to
// verify inclusion against it.
func (t *Tree) Commitment(hashID config.HashID) Commitment {
	return Commitment{Root: t.levels[t.depth][0], Depth: t.depth, HashID: hashID}
}

// Prove returns the inclusion witness for the leaf at the given index.
func (t *Tree) Prove(leafIndex uint64) (InclusionWitness, error) {
	capacity := uint64(1) << t.depth
	if leafIndex >= capacity {
		return InclusionWitness{}, fmt.Errorf("rdf/commitment: leaf index %d out of range [0, %d)", leafIndex, capacity)
	}
	path := make([]field.Element, t.depth)
	directions := bitset.New(uint(t.depth))
	idx := leafIndex
	for lvl := uint8(0); lvl < t.depth; lvl++ {
		level := t.levels[lvl]
		isRight := idx%2 == 1
		var sibling field.Element
		if isRight {
			sibling = level[idx-1]
			directions.Set(uint(lvl))
		} else {
			sibling = level[idx+1]
		}
		path[lvl] = sibling
		idx /= 2
	}
	return InclusionWitness{LeafIndex: leafIndex, Path: path, Directions: directions}, nil
}

// VerifyInclusion recomputes the root from a leaf value and its witness,
// and reports whether it matches the commitment's disclosed root.
func VerifyInclusion(oracle field.Oracle, commitment Commitment, leaf field.Element, w InclusionWitness) bool {
	if len(w.Path) != int(commitment.Depth) {
		return false
	}
	cur := leaf
	for lvl := 0; lvl < len(w.Path); lvl++ {
		sibling := w.Path[lvl]
		if w.Directions.Test(uint(lvl)) {
			cur = oracle.H2(sibling, cur)
		} else {
			cur = oracle.H2(cur, sibling)
		}
	}
	return cur.Equal(commitment.Root)
}
