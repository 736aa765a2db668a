package rdf

import (
	"fmt"

	"github.com/luxfi/zkrdf/zkerr"
)

// Direction identifies a position within a Quad. Grounded on cayley's
// quad.Direction, generalized with a Graph position (cayley models graphs as
// a separate quad store dimension; zkrdf treats the graph term as the
// fourth quad position directly, per spec.md §2's "quad = (s, p, o, g)").
type Direction uint8

const (
	Subject Direction = iota
	Predicate
	Object
	Graph
)

// Directions enumerates all four quad positions in a fixed, stable order —
// the order C3's quad encoding (h4) and C8's slot-term array both rely on.
var Directions = [4]Direction{Subject, Predicate, Object, Graph}

func (d Direction) String() string {
	switch d {
	case Subject:
		return "subject"
	case Predicate:
		return "predicate"
	case Object:
		return "object"
	case Graph:
		return "graph"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Quad is a single signed-dataset entry (spec.md §2). A triple in the
// unnamed graph sets Graph to DefaultGraph() explicitly; the zero-value Term
// is an IRI with an empty value, not the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// Get returns the term occupying the given position.
func (q Quad) Get(d Direction) Term {
	switch d {
	case Subject:
		return q.Subject
	case Predicate:
		return q.Predicate
	case Object:
		return q.Object
	case Graph:
		return q.Graph
	default:
		panic(fmt.Sprintf("rdf: invalid direction %d", uint8(d)))
	}
}

// Validate rejects a quad that cannot legally belong to a committed dataset:
// variables in any position, or a predicate that is not an IRI.
func (q Quad) Validate() error {
	for _, d := range Directions {
		t := q.Get(d)
		if t.IsVariable() {
			return fmt.Errorf("%w: quad %s position holds a variable", zkerr.ErrTypeError, d)
		}
	}
	switch q.Predicate.Type {
	case TermIRI:
	default:
		return fmt.Errorf("%w: predicate must be an IRI, got %s", zkerr.ErrTypeError, q.Predicate.Type)
	}
	return nil
}

// NQuad renders q in N-Quads-like notation (a supplemental pretty-printer;
// spec.md externalizes RDF surface syntax, so this is for logs and test
// fixtures, not a conformant serializer). Grounded on cayley's quad.NQuad().
func (q Quad) NQuad() string {
	if q.Graph.Type == TermDefaultGraph {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

func (q Quad) String() string { return q.NQuad() }

// ByQuadString sorts quads by their NQuad() rendering, a deterministic
// tie-break ordering for callers that need a stable dataset iteration
// order. Grounded on cayley's quad.ByQuadString.
type ByQuadString []Quad

func (s ByQuadString) Len() int      { return len(s) }
func (s ByQuadString) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s ByQuadString) Less(i, j int) bool {
	return s[i].NQuad() < s[j].NQuad()
}
