// Package lower implements C6 (Algebra Lowering) and C7 (Filter Expression
// Lowering): turning a normalized sparql.Algebra tree into a
// constraint.Program (spec.md §5).
package lower

import (
	"fmt"
	"sort"

	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/normalize"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
	"github.com/luxfi/zkrdf/zkerr"
)

// Dataset is the single signed, committed dataset a query is lowered
// against. Multi-dataset queries are out of SPEC_FULL.md's scope for this
// release; Program.Roots/PublicKeys still carry one entry (RootIndex 0) so
// the data model has room to grow into multiple datasets later without a
// breaking change.
type Dataset struct {
	Commitment commitment.Commitment
	PublicKey  field.Element
}

// ctx carries the lowering pass's mutable state through the recursive walk.
type ctx struct {
	prog   *constraint.Program
	enc    *rdf.Encoder
	cfg    *config.Config
	uf     *unionFind
	varRef map[string]constraint.ValueRef // root variable name -> representative ValueRef

	ambientGraph *rdf.Term // non-nil inside a GRAPH{...} block
}

// Lower compiles a normalized query against a single dataset into a
// constraint.Program (C6), including C7's filter-expression lowering.
func Lower(res *normalize.Result, ds Dataset, oracle field.Oracle, enc *rdf.Encoder, cfg *config.Config) (*constraint.Program, error) {
	prog := constraint.NewProgram()
	prog.Roots = []field.Element{ds.Commitment.Root}
	prog.PublicKeys = []field.Element{ds.PublicKey}
	prog.Assertions = append(prog.Assertions, constraint.Assertion{Kind: constraint.AssertSigOk, RootIndex: 0})

	for _, v := range res.ProjectVars {
		prog.AddVariable(v)
	}

	c := &ctx{prog: prog, enc: enc, cfg: cfg, uf: newUnionFind(), varRef: map[string]constraint.ValueRef{}}
	if err := c.lowerAlgebra(res.Algebra, constraint.GuardNone, 0, false); err != nil {
		return nil, err
	}
	prog.VariableRefs = make([]constraint.ValueRef, len(prog.Variables))
	for i, v := range prog.Variables {
		ref, ok := c.varRef[c.uf.find(v)]
		if !ok {
			return nil, fmt.Errorf("%w: projected variable ?%s is never bound by the query body", zkerr.ErrTypeError, v)
		}
		prog.VariableRefs[i] = ref
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return prog, nil
}

// lowerAlgebra recursively lowers a, threading a single optional guard
// (branch/optional flag + expected value) that every assertion it emits
// must be conditioned on.
func (c *ctx) lowerAlgebra(a *sparql.Algebra, guardKind constraint.GuardKind, guardIndex int, guardValue bool) error {
	if a == nil {
		return nil
	}
	switch a.Op {
	case sparql.OpBgp:
		return c.lowerBgp(a, guardKind, guardIndex, guardValue)
	case sparql.OpJoin:
		if err := c.lowerAlgebra(a.Left, guardKind, guardIndex, guardValue); err != nil {
			return err
		}
		return c.lowerAlgebra(a.Right, guardKind, guardIndex, guardValue)
	case sparql.OpUnion:
		// One flag per branch, asserted to sum to exactly 1 (both backends'
		// AssertBranchOneHot is "sum of the listed flags == 1"). A single
		// shared flag with Right guarded by its complement would instead
		// force flag==1 literally, permanently disabling the Right branch.
		flagL := c.prog.NewBranchFlag()
		flagR := c.prog.NewBranchFlag()
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind:        constraint.AssertBranchOneHot,
			BranchFlags: []int{flagL, flagR},
		})
		if err := c.lowerAlgebra(a.Left, constraint.GuardBranch, flagL, true); err != nil {
			return err
		}
		return c.lowerAlgebra(a.Right, constraint.GuardBranch, flagR, true)
	case sparql.OpLeftJoin:
		if err := c.lowerAlgebra(a.Left, guardKind, guardIndex, guardValue); err != nil {
			return err
		}
		flag := c.prog.NewOptionalFlag()
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind:      constraint.AssertOptionalFlag,
			FlagIndex: flag,
		})
		before := make(map[string]bool, len(c.varRef))
		for root := range c.varRef {
			before[root] = true
		}
		if err := c.lowerAlgebra(a.Right, constraint.GuardOptional, flag, true); err != nil {
			return err
		}
		// A variable first bound inside this OPTIONAL has no binding at all
		// when it doesn't match. Redirect its representative to a free value
		// that unifies with the real binding when matched and otherwise
		// resolves to the UNBOUND sentinel (spec.md §4.5, Invariant 3: every
		// projected variable resolves to exactly one value).
		var newRoots []string
		for root := range c.varRef {
			if !before[root] {
				newRoots = append(newRoots, root)
			}
		}
		// Order by representative ref, not map order, so every lowering of
		// the same query allocates the same free values and assertions.
		rank := func(r constraint.ValueRef) int { return int(r.Kind)<<40 | (r.Slot*4 + r.Position + r.Free) }
		sort.Slice(newRoots, func(i, j int) bool { return rank(c.varRef[newRoots[i]]) < rank(c.varRef[newRoots[j]]) })
		for _, root := range newRoots {
			ref := c.varRef[root]
			freeRef := c.prog.AddFreeValue()
			c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
				Kind: constraint.AssertUnify, Left: freeRef, Right: ref,
				GuardKind: constraint.GuardOptional, GuardIndex: flag, GuardValue: true,
			})
			c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
				Kind: constraint.AssertVarBind, Bound: freeRef, Value: field.Sentinel(),
				GuardKind: constraint.GuardOptional, GuardIndex: flag, GuardValue: false,
			})
			c.varRef[root] = freeRef
		}
		return nil
	case sparql.OpFilter:
		if err := c.lowerAlgebra(a.Inner, guardKind, guardIndex, guardValue); err != nil {
			return err
		}
		cond, err := c.lowerExpr(a.Condition, guardKind, guardIndex, guardValue)
		if err != nil {
			return err
		}
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind: constraint.AssertVarBind, Bound: cond, Value: field.One(),
			GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
		})
		return nil
	case sparql.OpExtend:
		if err := c.lowerAlgebra(a.Inner, guardKind, guardIndex, guardValue); err != nil {
			return err
		}
		return c.lowerExtend(a, guardKind, guardIndex, guardValue)
	case sparql.OpGraph:
		prevAmbient := c.ambientGraph
		g := a.GraphTerm
		c.ambientGraph = &g
		err := c.lowerAlgebra(a.Inner, guardKind, guardIndex, guardValue)
		c.ambientGraph = prevAmbient
		return err
	default:
		return fmt.Errorf("%w: cannot lower algebra operator %d", zkerr.ErrUnsupportedFeature, a.Op)
	}
}

func (c *ctx) lowerBgp(a *sparql.Algebra, guardKind constraint.GuardKind, guardIndex int, guardValue bool) error {
	for _, tp := range a.Patterns {
		if tp.Path.Op != sparql.PathNone {
			return fmt.Errorf("%w: property paths must be expanded before lowering", zkerr.ErrUnsupportedFeature)
		}
		graphTerm := rdf.DefaultGraph()
		if c.ambientGraph != nil {
			graphTerm = *c.ambientGraph
		}
		slotIdx := c.prog.AddSlot(0)
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind: constraint.AssertInclusion, Slot: slotIdx,
			GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
		})

		positions := [4]rdf.Term{tp.Subject, tp.Path.Pred, tp.Object, graphTerm}
		for pos, term := range positions {
			ref := constraint.SlotValueRef(slotIdx, pos)
			if err := c.bindTerm(term, ref, guardKind, guardIndex, guardValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindTerm records how a quad position's term participates in the
// constraint program: a ground term is encoded immediately and fixed via a
// VarBind assertion on ref; a variable joins its equivalence class
// and, if this is not its class's first occurrence, is Unify-checked
// against the class's representative.
func (c *ctx) bindTerm(term rdf.Term, ref constraint.ValueRef, guardKind constraint.GuardKind, guardIndex int, guardValue bool) error {
	if term.IsVariable() {
		root := c.uf.find(term.Value)
		if rep, ok := c.varRef[root]; ok {
			c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
				Kind: constraint.AssertUnify, Left: rep, Right: ref,
				GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
			})
		} else {
			c.varRef[root] = ref
		}
		return nil
	}
	value, err := c.enc.EncodeTerm(term)
	if err != nil {
		return err
	}
	c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
		Kind: constraint.AssertVarBind, Bound: ref, Value: value,
		GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
	})
	return nil
}

// lowerExtend handles BIND(expr AS ?var): the module supports binding a
// variable to a ground constant or to a copy of another already-bound
// variable (the two shapes C5's property-path and VALUES expansion
// produce); arbitrary computed expressions are not in scope.
func (c *ctx) lowerExtend(a *sparql.Algebra, guardKind constraint.GuardKind, guardIndex int, guardValue bool) error {
	root := c.uf.find(a.ExtendVar)
	if _, already := c.varRef[root]; already {
		return fmt.Errorf("%w: variable ?%s is bound more than once", zkerr.ErrTypeError, a.ExtendVar)
	}
	if a.ExtendExpr.Op != sparql.ExprTerm {
		return fmt.Errorf("%w: BIND only supports constant or variable-copy expressions", zkerr.ErrUnsupportedFeature)
	}
	ref := c.prog.AddFreeValue()
	if err := c.bindTerm(a.ExtendExpr.Term, ref, guardKind, guardIndex, guardValue); err != nil {
		return err
	}
	c.varRef[root] = ref
	return nil
}
