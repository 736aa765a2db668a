package rdf

// Pattern is a basic graph pattern triple/quad where any position may hold
// a variable. Grounded on aleksaelezovic-trigo's store.Pattern, generalized
// from triples to quads (the graph position can itself be bound or
// variable, spec.md §5's GRAPH clause handling).
type Pattern struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// Get returns the term occupying the given position.
func (p Pattern) Get(d Direction) Term {
	switch d {
	case Subject:
		return p.Subject
	case Predicate:
		return p.Predicate
	case Object:
		return p.Object
	case Graph:
		return p.Graph
	default:
		return Term{}
	}
}

// Variables returns the distinct variable names referenced anywhere in p,
// in quad-position order (subject, predicate, object, graph), skipping
// repeats of a variable already bound by an earlier position within the
// same pattern (spec.md C6: "a variable bound more than once within a
// single BGP slot becomes a Unify constraint").
func (p Pattern) Variables() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range Directions {
		t := p.Get(d)
		if t.IsVariable() && !seen[t.Value] {
			seen[t.Value] = true
			out = append(out, t.Value)
		}
	}
	return out
}

// BoundPositions returns the quad positions of p that hold a ground term
// (not a variable), grounded on trigo's selectIndex heuristic (bound S/P/O/G
// positions guide index selection). C8's prover does not call it: it tries
// slots in program order and quads in ascending index order.
func (p Pattern) BoundPositions() []Direction {
	var out []Direction
	for _, d := range Directions {
		if !p.Get(d).IsVariable() {
			out = append(out, d)
		}
	}
	return out
}
