// Package sparql defines the SPARQL algebra and filter-expression trees
// zkrdf's compiler pipeline consumes, and a minimal recursive-descent
// parser producing them from query text. Parsing and evaluating SPARQL
// result sets against live data is out of scope (spec.md §1): this parser
// exists only to produce the raw Algebra tree that C5 (normalize) and C6
// (lower) then transform into a constraint program.
package sparql

import "github.com/luxfi/zkrdf/rdf"

// PathOp identifies a property-path combinator (spec.md §5's "path
// expressions" feature, expanded away entirely by C5 before lowering).
type PathOp uint8

const (
	PathNone    PathOp = iota // a plain predicate IRI, not a compound path
	PathInverse               // ^p
	PathSeq                   // p1/p2
	PathAlt                   // p1|p2
	PathOpt                   // p?
	PathPlus                  // p+
	PathStar                  // p*
)

// Path is a (possibly compound) property path. Leaf paths hold Pred;
// compound paths hold Left/Right per Op's arity.
type Path struct {
	Op    PathOp
	Pred  rdf.Term // valid when Op == PathNone
	Left  *Path
	Right *Path // valid when Op == PathSeq or PathAlt
}

// SimplePath constructs a leaf path from a single predicate term.
func SimplePath(pred rdf.Term) Path { return Path{Op: PathNone, Pred: pred} }

// TriplePattern is a BGP pattern whose predicate position may be a compound
// property path, prior to C5's path expansion into plain BGP joins.
type TriplePattern struct {
	Subject rdf.Term
	Path    Path
	Object  rdf.Term
}

// Algebra is the tagged union of SPARQL algebra operators this module
// supports lowering (spec.md §5's in-scope operator set, plus the
// pre-normalization forms C5 expands away: property paths, VALUES, IN).
// Exactly one of the named fields is meaningful, selected by Op.
type Algebra struct {
	Op AlgebraOp

	// Bgp
	Patterns []TriplePattern

	// Join, Union, LeftJoin: Left/Right are the two sub-algebras.
	Left  *Algebra
	Right *Algebra
	// LeftJoin's optional filter expression. Parse never sets it: a FILTER
	// inside OPTIONAL { ... } stays a Filter node within Right, and lowering
	// does not read this field.
	JoinFilter Expr

	// Filter
	Condition Expr
	Inner     *Algebra

	// Extend (BIND)
	ExtendVar  string
	ExtendExpr Expr

	// Graph
	GraphTerm rdf.Term

	// Project
	ProjectVars []string

	// Values
	ValuesVars []string
	ValuesRows [][]rdf.Term // a zero-value rdf.Term entry in a row means UNDEF

	// Slice (LIMIT/OFFSET) and modifiers, recorded for envelope
	// post-processing (spec.md §5: "solution modifiers are recorded... not
	// enforced inside the ZK constraint system").
	Distinct bool
	Reduced  bool
	OrderBy  []OrderKey
	Offset   int64
	Limit    int64 // -1 means unset
}

// OrderKey is one ORDER BY key, recorded for post-processing only.
type OrderKey struct {
	Expr       Expr
	Descending bool
}

// AlgebraOp tags which operator an Algebra node represents.
type AlgebraOp uint8

const (
	OpBgp AlgebraOp = iota
	OpJoin
	OpUnion
	OpLeftJoin
	OpFilter
	OpExtend
	OpGraph
	OpProject
	OpValues
	OpSlice
	OpAsk
)

// NoLimit is the sentinel Limit value meaning "no LIMIT clause".
const NoLimit int64 = -1
