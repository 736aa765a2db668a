package lower

import (
	"fmt"

	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
	"github.com/luxfi/zkrdf/zkerr"
)

// lowerExpr lowers a FILTER expression (C7, spec.md §5) into assertions
// producing a boolean (0/1) witness value, and returns the ValueRef that
// value lives at. The caller of a top-level FILTER's condition is
// responsible for asserting the returned ref equals one.
func (c *ctx) lowerExpr(e sparql.Expr, guardKind constraint.GuardKind, guardIndex int, guardValue bool) (constraint.ValueRef, error) {
	switch e.Op {
	case sparql.ExprTerm:
		if e.Term.IsVariable() {
			root := c.uf.find(e.Term.Value)
			if rep, ok := c.varRef[root]; ok {
				return rep, nil
			}
			return constraint.ValueRef{}, fmt.Errorf("%w: filter references unbound variable ?%s", zkerr.ErrTypeError, e.Term.Value)
		}
		value, err := c.enc.EncodeTerm(e.Term)
		if err != nil {
			return constraint.ValueRef{}, err
		}
		ref := c.prog.AddFreeValue()
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind: constraint.AssertVarBind, Bound: ref, Value: value,
			GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
		})
		return ref, nil

	case sparql.ExprAnd, sparql.ExprOr:
		left, err := c.lowerExpr(*e.A, guardKind, guardIndex, guardValue)
		if err != nil {
			return constraint.ValueRef{}, err
		}
		right, err := c.lowerExpr(*e.B, guardKind, guardIndex, guardValue)
		if err != nil {
			return constraint.ValueRef{}, err
		}
		kind := constraint.FilterAnd
		if e.Op == sparql.ExprOr {
			kind = constraint.FilterOr
		}
		return c.emitBoolResult(kind, []constraint.ValueRef{left, right}, nil, guardKind, guardIndex, guardValue)

	case sparql.ExprNot:
		inner, err := c.lowerExpr(*e.A, guardKind, guardIndex, guardValue)
		if err != nil {
			return constraint.ValueRef{}, err
		}
		return c.emitBoolResult(constraint.FilterNot, []constraint.ValueRef{inner}, nil, guardKind, guardIndex, guardValue)

	case sparql.ExprEq, sparql.ExprNeq, sparql.ExprSameTerm:
		left, right, err := c.lowerComparisonOperands(e)
		if err != nil {
			return constraint.ValueRef{}, err
		}
		kind := constraint.FilterEq
		if e.Op == sparql.ExprNeq {
			kind = constraint.FilterNeq
		}
		return c.emitBoolResult(kind, []constraint.ValueRef{left, right}, nil, guardKind, guardIndex, guardValue)

	case sparql.ExprLt, sparql.ExprLe, sparql.ExprGt, sparql.ExprGe:
		return c.lowerOrderedComparison(e, guardKind, guardIndex, guardValue)

	case sparql.ExprBound:
		if e.A.Op != sparql.ExprTerm || !e.A.Term.IsVariable() {
			return constraint.ValueRef{}, fmt.Errorf("%w: BOUND() requires a variable argument", zkerr.ErrUnsupportedFeature)
		}
		root := c.uf.find(e.A.Term.Value)
		_, bound := c.varRef[root]
		ref := c.prog.AddFreeValue()
		var v field.Element
		if bound {
			v = field.One()
		}
		c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
			Kind: constraint.AssertVarBind, Bound: ref, Value: v,
			GuardKind: guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
		})
		return ref, nil

	case sparql.ExprIsIRI, sparql.ExprIsBlank, sparql.ExprIsLiteral:
		if e.A.Op != sparql.ExprTerm || !e.A.Term.IsVariable() {
			return constraint.ValueRef{}, fmt.Errorf("%w: isIRI/isBlank/isLiteral require a variable argument", zkerr.ErrUnsupportedFeature)
		}
		root := c.uf.find(e.A.Term.Value)
		operand, ok := c.varRef[root]
		if !ok {
			return constraint.ValueRef{}, fmt.Errorf("%w: filter references unbound variable ?%s", zkerr.ErrTypeError, e.A.Term.Value)
		}
		var kind constraint.FilterPredKind
		switch e.Op {
		case sparql.ExprIsIRI:
			kind = constraint.FilterIsIRI
		case sparql.ExprIsBlank:
			kind = constraint.FilterIsBlank
		default:
			kind = constraint.FilterIsLiteral
		}
		return c.emitBoolResult(kind, []constraint.ValueRef{operand}, nil, guardKind, guardIndex, guardValue)

	case sparql.ExprStr, sparql.ExprLang, sparql.ExprDatatype, sparql.ExprLangMatches, sparql.ExprRegex:
		return constraint.ValueRef{}, fmt.Errorf("%w: string-introspection filter functions are not supported", zkerr.ErrUnsupportedFeature)

	default:
		return constraint.ValueRef{}, fmt.Errorf("%w: unsupported filter expression operator %d", zkerr.ErrUnsupportedFeature, e.Op)
	}
}

// lowerComparisonOperands lowers both sides of a binary comparison to
// ValueRefs with lowerExpr; a variable or constant operand lowers to its
// encoded term value, so equality checks compare encoded term values.
func (c *ctx) lowerComparisonOperands(e sparql.Expr) (constraint.ValueRef, constraint.ValueRef, error) {
	left, err := c.lowerExpr(*e.A, constraint.GuardNone, 0, false)
	if err != nil {
		return constraint.ValueRef{}, constraint.ValueRef{}, err
	}
	right, err := c.lowerExpr(*e.B, constraint.GuardNone, 0, false)
	if err != nil {
		return constraint.ValueRef{}, constraint.ValueRef{}, err
	}
	return left, right, nil
}

// emitBoolResult allocates a fresh free value to hold a boolean filter
// sub-result and records the FilterPred assertion that computes it from its
// operands.
func (c *ctx) emitBoolResult(kind constraint.FilterPredKind, operands []constraint.ValueRef, hidden []int, guardKind constraint.GuardKind, guardIndex int, guardValue bool) (constraint.ValueRef, error) {
	result := c.prog.AddFreeValue()
	c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
		Kind:       constraint.AssertFilterPred,
		FilterKind: kind,
		Operands:   append(append([]constraint.ValueRef{}, operands...), result),
		Hidden:     hidden,
		GuardKind:  guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
	})
	return result, nil
}

// lowerOrderedComparison lowers <, <=, >, >= (spec.md §5 C7) using the
// hidden range-check witness scheme: two hidden numeric inputs carry the
// special coordinate of each operand (left, then right), and the backend
// range-checks their difference against Config.RangeWidth bits (grounded on gnark's
// std/math/cmp.BoundedComparator pattern, adapted in
// internal/backend/gnarkbackend).
func (c *ctx) lowerOrderedComparison(e sparql.Expr, guardKind constraint.GuardKind, guardIndex int, guardValue bool) (constraint.ValueRef, error) {
	leftTerm, rightTerm, ok := bothGroundOrVarTerms(*e.A, *e.B)
	if !ok {
		return constraint.ValueRef{}, fmt.Errorf("%w: ordered comparisons require two term operands", zkerr.ErrUnsupportedFeature)
	}
	if leftTerm.Type == rdf.TermLiteral && !rdf.HasNumericSpecial(leftTerm.Datatype) ||
		rightTerm.Type == rdf.TermLiteral && !rdf.HasNumericSpecial(rightTerm.Datatype) {
		return constraint.ValueRef{}, fmt.Errorf("%w: ordered comparison operand has no value-comparable datatype", zkerr.ErrTypeError)
	}

	leftHidden, err := c.specialValueHidden(leftTerm, "left operand")
	if err != nil {
		return constraint.ValueRef{}, err
	}
	rightHidden, err := c.specialValueHidden(rightTerm, "right operand")
	if err != nil {
		return constraint.ValueRef{}, err
	}

	var kind constraint.FilterPredKind
	switch e.Op {
	case sparql.ExprLt:
		kind = constraint.FilterLt
	case sparql.ExprLe:
		kind = constraint.FilterLe
	case sparql.ExprGt:
		kind = constraint.FilterGt
	case sparql.ExprGe:
		kind = constraint.FilterGe
	}

	result := c.prog.AddFreeValue()
	c.prog.Assertions = append(c.prog.Assertions, constraint.Assertion{
		Kind:       constraint.AssertFilterPred,
		FilterKind: kind,
		Operands:   []constraint.ValueRef{result},
		Hidden:     []int{leftHidden, rightHidden},
		RangeWidth: c.cfg.RangeWidth,
		GuardKind:  guardKind, GuardIndex: guardIndex, GuardValue: guardValue,
	})
	return result, nil
}

// specialValueHidden registers a hidden numeric input for one operand of an
// ordered comparison: a constant operand's special value is computable
// immediately; a variable operand's depends on C8's eventual quad choice,
// so it is registered against that variable's resolved slot position.
func (c *ctx) specialValueHidden(t rdf.Term, desc string) (int, error) {
	if !t.IsVariable() {
		v, err := c.enc.SpecialValue(t)
		if err != nil {
			return 0, err
		}
		return c.prog.AddConstantHiddenNumeric(desc, v), nil
	}
	root := c.uf.find(t.Value)
	ref, ok := c.varRef[root]
	if !ok {
		return 0, fmt.Errorf("%w: filter references unbound variable ?%s", zkerr.ErrTypeError, t.Value)
	}
	return c.prog.AddVariableHiddenNumeric(desc, ref), nil
}

// bothGroundOrVarTerms extracts the rdf.Term each side of a comparison
// denotes, when both sides are plain ExprTerm nodes (the only shape C7
// needs to support for range-check lowering — arithmetic expressions on
// either side are out of scope).
func bothGroundOrVarTerms(a, b sparql.Expr) (rdf.Term, rdf.Term, bool) {
	if a.Op != sparql.ExprTerm || b.Op != sparql.ExprTerm {
		return rdf.Term{}, rdf.Term{}, false
	}
	return a.Term, b.Term, true
}
