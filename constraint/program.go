// Package constraint defines the constraint-program data model C6 lowers a
// normalized algebra tree into, and C8's backtracking prover finds a
// witness for (spec.md §5, "Algebra Lowering").
package constraint

import (
	"fmt"

	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/zkerr"
)

// Slot is one BGP quad position in the constraint program: the four
// encoded term coordinates, the Merkle inclusion path for that quad, and
// which disclosed root it must verify against (a query may touch more than
// one signed dataset, hence RootIndex rather than a single implicit root).
type Slot struct {
	Terms      [4]field.Element // subject, predicate, object, graph (rdf.Direction order)
	Path       []field.Element
	Directions []bool
	RootIndex  int
}

// AssertionKind tags which invariant an Assertion checks (spec.md §5).
type AssertionKind uint8

const (
	AssertSigOk        AssertionKind = iota // the disclosed root at RootIndex is validly signed
	AssertInclusion                         // a slot's quad is included under its root
	AssertTermEq                            // two encoded values are equal
	AssertUnify                             // two BGP slot positions carrying the same variable agree
	AssertVarBind                           // a variable is bound to a specific encoded constant (BIND, VALUES)
	AssertFilterPred                        // a lowered FILTER predicate holds
	AssertBranchOneHot                      // exactly one UNION branch indicator is set
	AssertOptionalFlag                      // an OPTIONAL's is-bound flag is boolean (0 or 1)
)

func (k AssertionKind) String() string {
	switch k {
	case AssertSigOk:
		return "SigOk"
	case AssertInclusion:
		return "Inclusion"
	case AssertTermEq:
		return "TermEq"
	case AssertUnify:
		return "Unify"
	case AssertVarBind:
		return "VarBind"
	case AssertFilterPred:
		return "FilterPred"
	case AssertBranchOneHot:
		return "BranchOneHot"
	case AssertOptionalFlag:
		return "OptionalFlag"
	default:
		return fmt.Sprintf("AssertionKind(%d)", uint8(k))
	}
}

// ValueRefKind tags which value family a ValueRef addresses.
type ValueRefKind uint8

const (
	// RefSlot addresses one of a BGP slot's four term coordinates.
	RefSlot ValueRefKind = iota
	// RefFree addresses a free variable binding not tied to any quad slot
	// (e.g. BIND(5 AS ?x), a VALUES-bound constant, or a FILTER sub-result).
	RefFree
)

// ValueRef addresses a single field-element value somewhere in the
// witness: either a BGP slot's term coordinate, or a free-standing bound
// variable. Kept as one sum type so TermEq/Unify/FilterPred assertions can
// compare any two bound values uniformly regardless of where they live.
type ValueRef struct {
	Kind     ValueRefKind
	Slot     int // valid when Kind == RefSlot
	Position int // 0=subject,1=predicate,2=object,3=graph; valid when Kind == RefSlot
	Free     int // valid when Kind == RefFree
}

// SlotValueRef addresses a BGP slot's term coordinate.
func SlotValueRef(slot, position int) ValueRef {
	return ValueRef{Kind: RefSlot, Slot: slot, Position: position}
}

// FreeValueRef addresses a free-standing bound variable.
func FreeValueRef(free int) ValueRef {
	return ValueRef{Kind: RefFree, Free: free}
}

// FilterPredKind names which lowered filter shape an AssertFilterPred
// assertion enforces (spec.md §5's "Filter Expression Lowering" / C7).
type FilterPredKind uint8

const (
	FilterEq FilterPredKind = iota
	FilterNeq
	FilterLt
	FilterLe
	FilterGt
	FilterGe
	FilterAnd
	FilterOr
	FilterNot
	FilterBound
	FilterIsIRI     // isIRI(x), resolved against x's underlying term type
	FilterIsBlank   // isBlank(x)
	FilterIsLiteral // isLiteral(x)
)

// Assertion is a single constraint the proof backend must enforce over the
// witness (spec.md §5). Exactly the fields relevant to Kind are populated.
type Assertion struct {
	Kind AssertionKind

	// SigOk
	RootIndex int

	// Inclusion
	Slot int

	// TermEq / Unify: the two value references being compared.
	Left  ValueRef
	Right ValueRef

	// VarBind: the slot/position bound, and the constant it must equal.
	Bound ValueRef
	Value field.Element

	// FilterPred
	FilterKind  FilterPredKind
	Operands    []ValueRef    // references into slot term coordinates
	Hidden      []int        // indices into Program.HiddenNumeric this assertion consumes
	RangeWidth  uint32       // bit width used for ordered-comparison range checks
	SubChecks   []int        // indices of other assertions this one combines (And/Or/Not)

	// BranchOneHot: the flag variable indices (into Program.BranchFlags)
	// that must sum to exactly one.
	BranchFlags []int

	// OptionalFlag: the flag variable index (into Program.OptionalFlags).
	FlagIndex int

	// Guard optionally restricts enforcement of this assertion to only the
	// witness branches where a UNION/OPTIONAL indicator takes a specific
	// value (e.g. a slot's Inclusion assertion only needs to hold when its
	// UNION branch was actually selected). GuardKind == GuardNone means the
	// assertion is unconditional.
	GuardKind  GuardKind
	GuardIndex int
	GuardValue bool
}

// GuardKind tags which flag family (if any) conditions an assertion.
type GuardKind uint8

const (
	GuardNone GuardKind = iota
	GuardBranch
	GuardOptional
)

// HiddenNumericInput is one hidden (witness-only, never disclosed) numeric
// value C7's ordered-comparison lowering introduces: the value-comparable
// "special" coordinate (spec.md §4.1) of one operand of an ordered
// comparison (<, <=, >, >=), computed by C8 "in C6's declared fixed order".
// A constant operand's special value is already known at lowering time; a
// variable operand's depends on which quad the prover ultimately binds to
// Source, so C8 fills Value in after witness search completes.
type HiddenNumericInput struct {
	Description string // human-readable purpose, for debugging only

	IsConstant bool
	Value      field.Element // pre-filled when IsConstant; filled by C8 otherwise

	// Source names the slot position whose final term's special value
	// C8 must compute, when IsConstant is false.
	Source ValueRef
}

// Program is the complete constraint program a normalized query lowers
// into (spec.md §5). It names zero or more signed roots (a query may span
// multiple signed datasets), the BGP slots whose quads must be proven
// included, the query's projected variables, and the assertions the proof
// backend must satisfy.
type Program struct {
	PublicKeys []field.Element // one per disclosed dataset signature, indexed by RootIndex
	Roots      []field.Element // disclosed Merkle roots, indexed by RootIndex

	Slots []Slot

	// Variables maps a query variable name to the Program's deterministic
	// binding order (spec.md: the prover computes hidden numeric inputs "in
	// C6's declared fixed order" — Variables gives that same fixed order
	// for bindings disclosed to the verifier).
	Variables []string

	// VariableRefs gives, for each Variables[i], the ValueRef its bound
	// value is resolved through — so a witness can disclose bindings (C9)
	// without re-deriving the lowering pass's internal equivalence classes.
	VariableRefs []ValueRef

	// HiddenNumeric holds every hidden numeric witness value C7 introduced,
	// in declaration order; C8 fills in the Value fields during witness
	// construction.
	HiddenNumeric []HiddenNumericInput

	// BranchFlags / OptionalFlags are witness-only 0/1 indicator variables
	// for UNION branch selection and OPTIONAL match/no-match, respectively.
	BranchFlagCount   int
	OptionalFlagCount int

	// FreeValues holds witness-only bound values not tied to any BGP slot
	// (BIND targets, VALUES constants, filter sub-expression results),
	// addressed by ValueRef{Kind: RefFree}. C8 fills these in.
	FreeValues []field.Element

	Assertions []Assertion
}

// NewProgram returns an empty Program ready for C6's lowering pass to
// populate incrementally.
func NewProgram() *Program {
	return &Program{}
}

// AddSlot appends a new BGP slot and returns its index.
func (p *Program) AddSlot(rootIndex int) int {
	p.Slots = append(p.Slots, Slot{RootIndex: rootIndex})
	return len(p.Slots) - 1
}

// AddVariable registers a query variable, returning its existing index if
// already registered (so repeated references share one binding slot).
func (p *Program) AddVariable(name string) int {
	for i, v := range p.Variables {
		if v == name {
			return i
		}
	}
	p.Variables = append(p.Variables, name)
	return len(p.Variables) - 1
}

// AddConstantHiddenNumeric appends a hidden numeric input whose value is
// already known at lowering time (a FILTER operand that is a literal
// constant), returning its index.
func (p *Program) AddConstantHiddenNumeric(description string, value field.Element) int {
	p.HiddenNumeric = append(p.HiddenNumeric, HiddenNumericInput{Description: description, IsConstant: true, Value: value})
	return len(p.HiddenNumeric) - 1
}

// AddVariableHiddenNumeric appends a hidden numeric input whose value
// depends on which quad the prover binds to source, returning its index.
func (p *Program) AddVariableHiddenNumeric(description string, source ValueRef) int {
	p.HiddenNumeric = append(p.HiddenNumeric, HiddenNumericInput{Description: description, Source: source})
	return len(p.HiddenNumeric) - 1
}

// NewBranchFlag allocates a fresh UNION branch indicator and returns its
// index.
func (p *Program) NewBranchFlag() int {
	idx := p.BranchFlagCount
	p.BranchFlagCount++
	return idx
}

// NewOptionalFlag allocates a fresh OPTIONAL is-bound indicator and returns
// its index.
func (p *Program) NewOptionalFlag() int {
	idx := p.OptionalFlagCount
	p.OptionalFlagCount++
	return idx
}

// AddFreeValue allocates a fresh free-standing bound value and returns its
// ValueRef.
func (p *Program) AddFreeValue() ValueRef {
	idx := len(p.FreeValues)
	p.FreeValues = append(p.FreeValues, field.Element{})
	return FreeValueRef(idx)
}

// Validate enforces the structural invariants every Program must satisfy
// before a prover or backend consumes it: slot/root-index bounds, and
// every ValueRef addressing a real slot and in-range position.
func (p *Program) Validate() error {
	checkRef := func(r ValueRef) error {
		switch r.Kind {
		case RefSlot:
			if r.Slot < 0 || r.Slot >= len(p.Slots) {
				return fmt.Errorf("%w: slot reference %d out of range [0,%d)", zkerr.ErrTypeError, r.Slot, len(p.Slots))
			}
			if r.Position < 0 || r.Position > 3 {
				return fmt.Errorf("%w: slot position %d out of range [0,3]", zkerr.ErrTypeError, r.Position)
			}
		case RefFree:
			if r.Free < 0 || r.Free >= len(p.FreeValues) {
				return fmt.Errorf("%w: free value reference %d out of range [0,%d)", zkerr.ErrTypeError, r.Free, len(p.FreeValues))
			}
		default:
			return fmt.Errorf("%w: unrecognized value reference kind %d", zkerr.ErrTypeError, r.Kind)
		}
		return nil
	}
	for _, s := range p.Slots {
		if s.RootIndex < 0 || s.RootIndex >= len(p.Roots) {
			return fmt.Errorf("%w: slot root index %d out of range [0,%d)", zkerr.ErrTypeError, s.RootIndex, len(p.Roots))
		}
	}
	for _, a := range p.Assertions {
		switch a.Kind {
		case AssertInclusion:
			if a.Slot < 0 || a.Slot >= len(p.Slots) {
				return fmt.Errorf("%w: inclusion assertion references out-of-range slot %d", zkerr.ErrTypeError, a.Slot)
			}
		case AssertTermEq, AssertUnify:
			if err := checkRef(a.Left); err != nil {
				return err
			}
			if err := checkRef(a.Right); err != nil {
				return err
			}
		case AssertVarBind:
			if err := checkRef(a.Bound); err != nil {
				return err
			}
		case AssertFilterPred:
			for _, op := range a.Operands {
				if err := checkRef(op); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
