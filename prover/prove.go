// Package prover implements C8: backtracking search for a witness
// satisfying a constraint.Program against a concrete dataset (spec.md §5,
// "Prover Input Builder").
package prover

import (
	"context"
	"fmt"
	"sort"

	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/zkerr"
)

// Witness is a fully resolved assignment for every value the proof backend
// needs: per-slot quads (encoded terms + Merkle inclusion paths), free
// variable bindings, hidden numeric filter inputs, and branch/optional
// flags. It is never disclosed in full; the backend consumes it to build a
// proof and the envelope discloses only what C9 names.
type Witness struct {
	Program *constraint.Program // the same Program, now with Slots.Terms/Path/Directions filled

	FreeValues    []field.Element
	HiddenNumeric []field.Element
	BranchFlags   []bool
	OptionalFlags []bool

	// Bindings maps each query variable to its resolved encoded value, in
	// Program.Variables order (spec.md §6.3's disclosed bindings).
	Bindings []field.Element
}

// Dataset is the concrete quad set a query is proven against, paired with
// the Merkle tree already built over it (so the prover can fetch inclusion
// witnesses without rebuilding the tree).
type Dataset struct {
	Quads   []rdf.Quad
	Tree    *commitment.Tree
	Oracle  field.Oracle
	Encoder *rdf.Encoder
}

type refKey struct {
	kind constraint.ValueRefKind
	a, b int
}

func key(r constraint.ValueRef) refKey {
	if r.Kind == constraint.RefSlot {
		return refKey{kind: constraint.RefSlot, a: r.Slot, b: r.Position}
	}
	return refKey{kind: constraint.RefFree, a: r.Free}
}

// searchState holds one in-progress candidate assignment during
// backtracking.
type searchState struct {
	ds       Dataset
	prog     *constraint.Program
	resolved map[refKey]field.Element
	slotQuad map[int]int // slot index -> chosen quad index in ds.Quads
	flags    map[int]bool
	optFlags map[int]bool
}

// Prove runs C8's backtracking search and returns the first witness found,
// consistent with the spec's "deterministic tie-break on AmbiguousBinding
// (lowest quad index at first divergence)": slots are tried in ascending
// quad-index order, so the first witness found is also the canonical one.
// If a second, materially different witness also satisfies the program,
// Prove reports ErrAmbiguousBinding rather than silently picking one.
func Prove(ctx context.Context, prog *constraint.Program, ds Dataset) (*Witness, error) {
	flagCombos := enumerateFlagCombos(prog)

	var found *searchState
	for _, combo := range flagCombos {
		st := &searchState{
			ds:       ds,
			prog:     prog,
			resolved: map[refKey]field.Element{},
			slotQuad: map[int]int{},
			flags:    combo.branch,
			optFlags: combo.optional,
		}
		ok, err := st.search(ctx, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if found != nil && !sameAssignment(found, st) {
			return nil, fmt.Errorf("%w: more than one distinct witness satisfies the query", zkerr.ErrAmbiguousBinding)
		}
		if found == nil {
			found = st
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no quad assignment satisfies the query's constraints", zkerr.ErrNoSatisfyingAssignment)
	}
	return found.materialize()
}

func sameAssignment(a, b *searchState) bool {
	if len(a.slotQuad) != len(b.slotQuad) {
		return false
	}
	for slot, qa := range a.slotQuad {
		qb, ok := b.slotQuad[slot]
		if !ok || qa != qb {
			return false
		}
	}
	return true
}

type flagCombo struct {
	branch   map[int]bool
	optional map[int]bool
}

// enumerateFlagCombos lists every branch/optional flag assignment to try,
// largest (true-leaning, i.e. "prefer the optional matched" and "prefer the
// left UNION branch") first — a deterministic preference order, not a
// semantic requirement.
func enumerateFlagCombos(prog *constraint.Program) []flagCombo {
	n := prog.BranchFlagCount + prog.OptionalFlagCount
	combos := make([]flagCombo, 0, 1<<uint(n))
	for mask := 0; mask < (1 << uint(n)); mask++ {
		fc := flagCombo{branch: map[int]bool{}, optional: map[int]bool{}}
		for i := 0; i < prog.BranchFlagCount; i++ {
			fc.branch[i] = mask&(1<<uint(i)) == 0 // prefer true (left branch) first
		}
		for i := 0; i < prog.OptionalFlagCount; i++ {
			fc.optional[i] = mask&(1<<uint(prog.BranchFlagCount+i)) == 0
		}
		combos = append(combos, fc)
	}
	return combos
}

// search assigns a quad to every active slot in order, then checks all
// active constraints once every slot in the current prefix is assigned.
func (s *searchState) search(ctx context.Context, slotIdx int) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", zkerr.ErrCancelled, ctx.Err())
	default:
	}

	if slotIdx >= len(s.prog.Slots) {
		return s.checkFreeAndAssertions()
	}

	if !s.slotActive(slotIdx) {
		return s.search(ctx, slotIdx+1)
	}

	for qi := range s.ds.Quads {
		saveResolved := cloneResolved(s.resolved)
		if s.tryAssignSlot(slotIdx, qi) {
			ok, err := s.search(ctx, slotIdx+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		s.resolved = saveResolved
		delete(s.slotQuad, slotIdx)
	}
	return false, nil
}

func cloneResolved(m map[refKey]field.Element) map[refKey]field.Element {
	out := make(map[refKey]field.Element, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// slotActive reports whether slotIdx's Inclusion assertion (if any) is
// active under the current flag assignment.
func (s *searchState) slotActive(slotIdx int) bool {
	for _, a := range s.prog.Assertions {
		if a.Kind == constraint.AssertInclusion && a.Slot == slotIdx {
			return s.guardActive(a.GuardKind, a.GuardIndex, a.GuardValue)
		}
	}
	return true
}

func (s *searchState) guardActive(kind constraint.GuardKind, idx int, want bool) bool {
	switch kind {
	case constraint.GuardNone:
		return true
	case constraint.GuardBranch:
		return s.flags[idx] == want
	case constraint.GuardOptional:
		return s.optFlags[idx] == want
	default:
		return false
	}
}

// tryAssignSlot tentatively assigns dataset quad qi to slot, encoding its
// four terms and checking them against any already-resolved values at the
// same positions (from an earlier VarBind/Unify in a prior slot). It
// returns false (and leaves s.resolved unmodified by the caller's
// responsibility to restore) if the assignment is inconsistent.
func (s *searchState) tryAssignSlot(slot, qi int) bool {
	q := s.ds.Quads[qi]
	terms := [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	values := [4]field.Element{}
	for pos, t := range terms {
		v, err := s.ds.Encoder.EncodeTerm(t)
		if err != nil {
			return false
		}
		values[pos] = v
		k := refKey{kind: constraint.RefSlot, a: slot, b: pos}
		if existing, ok := s.resolved[k]; ok && !existing.Equal(v) {
			return false
		}
		s.resolved[k] = v
	}
	if !s.slotConstraintsHold(slot, values) {
		return false
	}
	s.slotQuad[slot] = qi
	return true
}

// slotConstraintsHold checks every active VarBind/Unify/TermEq assertion
// touching this slot's positions against the just-assigned values,
// propagating resolved values to the other side of each constraint.
func (s *searchState) slotConstraintsHold(slot int, values [4]field.Element) bool {
	for _, a := range s.prog.Assertions {
		if !s.guardActive(a.GuardKind, a.GuardIndex, a.GuardValue) {
			continue
		}
		switch a.Kind {
		case constraint.AssertVarBind:
			if a.Bound.Kind == constraint.RefSlot && a.Bound.Slot == slot {
				if !values[a.Bound.Position].Equal(a.Value) {
					return false
				}
			}
		case constraint.AssertUnify, constraint.AssertTermEq:
			if !s.propagateEquality(a.Left, a.Right) {
				return false
			}
		}
	}
	return true
}

// propagateEquality enforces that two ValueRefs carry the same value,
// resolving whichever side is still unknown from the other when possible.
func (s *searchState) propagateEquality(left, right constraint.ValueRef) bool {
	lv, lok := s.resolved[key(left)]
	rv, rok := s.resolved[key(right)]
	switch {
	case lok && rok:
		return lv.Equal(rv)
	case lok && !rok:
		s.resolved[key(right)] = lv
		return true
	case !lok && rok:
		s.resolved[key(left)] = rv
		return true
	default:
		return true // neither side known yet; checked again once resolved
	}
}

// termForRef recovers the raw, undecoded rdf.Term bound to ref's position,
// for the filter operations (ordered comparison, isIRI/isBlank/isLiteral)
// that need to reason about a term's actual value or type rather than its
// opaque encoding. Only slot-anchored refs carry a known origin term; a
// free value introduced by BIND/VALUES has none recorded, so those filter
// forms are not supported against BIND-derived variables.
func (s *searchState) termForRef(ref constraint.ValueRef) (rdf.Term, bool) {
	if ref.Kind != constraint.RefSlot {
		return rdf.Term{}, false
	}
	qi, ok := s.slotQuad[ref.Slot]
	if !ok {
		return rdf.Term{}, false
	}
	q := s.ds.Quads[qi]
	terms := [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph}
	if ref.Position < 0 || ref.Position > 3 {
		return rdf.Term{}, false
	}
	return terms[ref.Position], true
}

// resolveHiddenNumeric computes the value of one HiddenNumericInput: a
// constant operand's value is already known; a variable operand's special
// coordinate is computed from the term its Source ref ultimately resolved
// to, once the search has assigned every slot.
func (s *searchState) resolveHiddenNumeric(idx int) (field.Element, error) {
	h := s.prog.HiddenNumeric[idx]
	if h.IsConstant {
		return h.Value, nil
	}
	t, ok := s.termForRef(h.Source)
	if !ok {
		return field.Element{}, fmt.Errorf("%w: cannot recover the underlying term for a hidden numeric input's source", zkerr.ErrUnsupportedFeature)
	}
	return s.ds.Encoder.SpecialValue(t)
}

// setResolved writes v into key(ref), failing if a different value is
// already recorded there (a contradiction in the current branch).
func (s *searchState) setResolved(ref constraint.ValueRef, v field.Element) bool {
	k := key(ref)
	if existing, ok := s.resolved[k]; ok {
		return existing.Equal(v)
	}
	s.resolved[k] = v
	return true
}

// evalFilterPred computes a FilterPred assertion's result from its already-
// resolved operands (and any hidden numeric inputs), writing the result
// into the assertion's trailing result ValueRef and cross-checking it
// against any value already recorded there (notably the top-level FILTER
// condition, pinned to 1 via a separate AssertVarBind). It reports false,
// not an error, when the computed value contradicts one already recorded —
// that is an ordinary dead end for the backtracking search, not a fault.
func (s *searchState) evalFilterPred(a constraint.Assertion) (bool, error) {
	operand := func(i int) (field.Element, bool) {
		v, ok := s.resolved[key(a.Operands[i])]
		return v, ok
	}
	boolElem := func(b bool) field.Element {
		if b {
			return field.One()
		}
		return field.Zero()
	}
	isTrue := func(v field.Element) bool { return !v.IsZero() }

	switch a.FilterKind {
	case constraint.FilterEq, constraint.FilterNeq:
		left, lok := operand(0)
		right, rok := operand(1)
		if !lok || !rok {
			return true, nil // not yet resolvable; re-checked on a later pass
		}
		eq := left.Equal(right)
		result := eq
		if a.FilterKind == constraint.FilterNeq {
			result = !eq
		}
		return s.setResolved(a.Operands[2], boolElem(result)), nil

	case constraint.FilterAnd, constraint.FilterOr:
		left, lok := operand(0)
		right, rok := operand(1)
		if !lok || !rok {
			return true, nil
		}
		var result bool
		if a.FilterKind == constraint.FilterAnd {
			result = isTrue(left) && isTrue(right)
		} else {
			result = isTrue(left) || isTrue(right)
		}
		return s.setResolved(a.Operands[2], boolElem(result)), nil

	case constraint.FilterNot:
		inner, ok := operand(0)
		if !ok {
			return true, nil
		}
		return s.setResolved(a.Operands[1], boolElem(!isTrue(inner))), nil

	case constraint.FilterIsIRI, constraint.FilterIsBlank, constraint.FilterIsLiteral:
		t, ok := s.termForRef(a.Operands[0])
		if !ok {
			return true, nil
		}
		var want rdf.TermType
		switch a.FilterKind {
		case constraint.FilterIsIRI:
			want = rdf.TermIRI
		case constraint.FilterIsBlank:
			want = rdf.TermBlank
		default:
			want = rdf.TermLiteral
		}
		return s.setResolved(a.Operands[1], boolElem(t.Type == want)), nil

	case constraint.FilterLt, constraint.FilterLe, constraint.FilterGt, constraint.FilterGe:
		if len(a.Hidden) != 2 {
			return false, fmt.Errorf("%w: ordered comparison assertion missing hidden operand indices", zkerr.ErrTypeError)
		}
		left, err := s.resolveHiddenNumeric(a.Hidden[0])
		if err != nil {
			return false, err
		}
		right, err := s.resolveHiddenNumeric(a.Hidden[1])
		if err != nil {
			return false, err
		}
		c := left.Cmp(right)
		var result bool
		switch a.FilterKind {
		case constraint.FilterLt:
			result = c < 0
		case constraint.FilterLe:
			result = c <= 0
		case constraint.FilterGt:
			result = c > 0
		case constraint.FilterGe:
			result = c >= 0
		}
		return s.setResolved(a.Operands[0], boolElem(result)), nil

	default:
		return false, fmt.Errorf("%w: unsupported filter predicate kind %d", zkerr.ErrUnsupportedFeature, a.FilterKind)
	}
}

// checkFreeAndAssertions verifies every assertion once all slots are
// assigned: VarBind/Unify constraints not anchored to a specific slot
// (pure free-value bindings), and FilterPred assertions (C7).
func (s *searchState) checkFreeAndAssertions() (bool, error) {
	for _, a := range s.prog.Assertions {
		if !s.guardActive(a.GuardKind, a.GuardIndex, a.GuardValue) {
			continue
		}
		switch a.Kind {
		case constraint.AssertVarBind:
			if a.Bound.Kind == constraint.RefFree {
				if existing, ok := s.resolved[key(a.Bound)]; ok && !existing.Equal(a.Value) {
					return false, nil
				}
				s.resolved[key(a.Bound)] = a.Value
			}
		case constraint.AssertUnify, constraint.AssertTermEq:
			if !s.propagateEquality(a.Left, a.Right) {
				return false, nil
			}
		case constraint.AssertBranchOneHot:
			sum := 0
			for _, idx := range a.BranchFlags {
				if s.flags[idx] {
					sum++
				}
			}
			if sum != 1 {
				return false, nil
			}
		}
	}
	// A second propagation pass catches chains resolved out of order
	// (A==B resolved before B's own value was known).
	for _, a := range s.prog.Assertions {
		if !s.guardActive(a.GuardKind, a.GuardIndex, a.GuardValue) {
			continue
		}
		if a.Kind == constraint.AssertUnify || a.Kind == constraint.AssertTermEq {
			if !s.propagateEquality(a.Left, a.Right) {
				return false, nil
			}
		}
	}
	for _, a := range s.prog.Assertions {
		if a.Kind != constraint.AssertFilterPred {
			continue
		}
		if !s.guardActive(a.GuardKind, a.GuardIndex, a.GuardValue) {
			continue
		}
		ok, err := s.evalFilterPred(a)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	// Every referenced free/slot value must have resolved to something by
	// now, or the query is under-constrained.
	for free := range s.prog.FreeValues {
		if _, ok := s.resolved[refKey{kind: constraint.RefFree, a: free}]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// materialize converts a fully resolved searchState into the disclosed
// Witness the proof backend and envelope layer consume.
func (s *searchState) materialize() (*Witness, error) {
	prog := s.prog
	slotIdxs := make([]int, 0, len(prog.Slots))
	for i := range prog.Slots {
		slotIdxs = append(slotIdxs, i)
	}
	sort.Ints(slotIdxs)

	for _, slotIdx := range slotIdxs {
		// Terms are filled for inactive slots too: a variable first bound in an
		// untaken UNION branch has its value propagated there, and the taken
		// branch's active Unify assertions compare against that position.
		terms := [4]field.Element{}
		for pos := 0; pos < 4; pos++ {
			terms[pos] = s.resolved[refKey{kind: constraint.RefSlot, a: slotIdx, b: pos}]
		}
		prog.Slots[slotIdx].Terms = terms
		qi, active := s.slotQuad[slotIdx]
		if !active {
			continue
		}
		q := s.ds.Quads[qi]
		leaf, err := commitment.EncodeQuadLeaf(s.ds.Oracle, s.ds.Encoder, q)
		if err != nil {
			return nil, err
		}
		witness, err := s.ds.Tree.Prove(uint64(qi))
		if err != nil {
			return nil, err
		}
		prog.Slots[slotIdx].Path = witness.Path
		directions := make([]bool, len(witness.Path))
		for i := range directions {
			directions[i] = witness.Directions.Test(uint(i))
		}
		prog.Slots[slotIdx].Directions = directions
		_ = leaf // recomputed for parity with the tree Prove built the path from; not re-verified here
	}

	freeValues := make([]field.Element, len(prog.FreeValues))
	for i := range freeValues {
		freeValues[i] = s.resolved[refKey{kind: constraint.RefFree, a: i}]
	}

	hidden := make([]field.Element, len(prog.HiddenNumeric))
	for i := range prog.HiddenNumeric {
		v, err := s.resolveHiddenNumeric(i)
		if err != nil {
			return nil, err
		}
		hidden[i] = v
	}

	branchFlags := make([]bool, prog.BranchFlagCount)
	for i := range branchFlags {
		branchFlags[i] = s.flags[i]
	}
	optionalFlags := make([]bool, prog.OptionalFlagCount)
	for i := range optionalFlags {
		optionalFlags[i] = s.optFlags[i]
	}

	bindings := make([]field.Element, len(prog.Variables))
	for i, ref := range prog.VariableRefs {
		v, ok := s.resolved[key(ref)]
		if !ok {
			return nil, fmt.Errorf("%w: projected variable %q resolved to no value", zkerr.ErrTypeError, prog.Variables[i])
		}
		bindings[i] = v
	}

	return &Witness{
		Program:       prog,
		FreeValues:    freeValues,
		HiddenNumeric: hidden,
		BranchFlags:   branchFlags,
		OptionalFlags: optionalFlags,
		Bindings:      bindings,
	}, nil
}
