package sparql

import "github.com/luxfi/zkrdf/rdf"

// ExprOp tags which filter-expression operator an Expr node represents
// (spec.md §5's in-scope FILTER expression grammar).
type ExprOp uint8

const (
	ExprTerm ExprOp = iota // a literal/IRI constant or a variable reference
	ExprSameTerm
	ExprEq
	ExprNeq
	ExprLt
	ExprLe
	ExprGt
	ExprGe
	ExprAnd
	ExprOr
	ExprNot
	ExprBound
	ExprIsIRI
	ExprIsBlank
	ExprIsLiteral
	ExprStr
	ExprLang
	ExprDatatype
	ExprLangMatches
	ExprRegex
	ExprIn    // IN (...), expanded by C5 into a disjunction of ExprEq
	ExprNotIn // NOT IN (...), expanded by C5 into a conjunction of ExprNeq
)

// Expr is the filter-expression tree (spec.md §5, "Filter Expression
// Lowering" / C7). Variable references are represented as ExprTerm nodes
// holding an rdf.Variable term.
type Expr struct {
	Op ExprOp

	// ExprTerm
	Term rdf.Term

	// Unary/binary operands.
	A *Expr
	B *Expr

	// ExprIn / ExprNotIn
	List []Expr

	// ExprRegex
	Pattern string
	Flags   string
}

// Var constructs a variable-reference expression.
func Var(name string) Expr { return Expr{Op: ExprTerm, Term: rdf.Variable(name)} }

// Const constructs a ground-term constant expression.
func Const(t rdf.Term) Expr { return Expr{Op: ExprTerm, Term: t} }

func bin(op ExprOp, a, b Expr) Expr { return Expr{Op: op, A: &a, B: &b} }
func un(op ExprOp, a Expr) Expr     { return Expr{Op: op, A: &a} }

// Variables returns the distinct variable names referenced anywhere in the
// expression tree, in left-to-right traversal order.
func (e Expr) Variables() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(x Expr) {
		if x.Op == ExprTerm && x.Term.IsVariable() && !seen[x.Term.Value] {
			seen[x.Term.Value] = true
			out = append(out, x.Term.Value)
		}
		if x.A != nil {
			walk(*x.A)
		}
		if x.B != nil {
			walk(*x.B)
		}
		for _, c := range x.List {
			walk(c)
		}
	}
	walk(e)
	return out
}
