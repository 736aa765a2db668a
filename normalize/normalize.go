// Package normalize implements C5: rewriting a raw sparql.Algebra tree into
// the normalized form C6 lowers into a constraint program (spec.md §5).
// Property paths are expanded into plain BGP joins, VALUES into a UNION of
// BIND (Extend) chains, one per row, IN/NOT IN into disjunctions/conjunctions
// of equality filters, ASK into a SELECT with an empty projection, and
// solution modifiers (DISTINCT/REDUCED/ORDER BY/LIMIT/OFFSET) are stripped
// off and recorded for envelope post-processing rather than enforced
// in-circuit. Path repetition (p+, p*) is unrolled up to
// Config.PathSegmentMax steps. Normalize rejects a top-level form other than
// SELECT/ASK and any operator it has no rewrite for; aggregates, subqueries,
// MINUS, SERVICE, CONSTRUCT/DESCRIBE, EXISTS/NOT EXISTS and negated property
// sets never reach it, because sparql.Parse already fails on them.
package normalize

import (
	"fmt"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
	"github.com/luxfi/zkrdf/zkerr"
)

// PostProcessing records the solution modifiers stripped out of the
// algebra, for the envelope layer (C9) to apply after verification
// (spec.md §5: "recorded... applied by the verifier outside the proof").
type PostProcessing struct {
	Distinct bool
	Reduced  bool
	OrderBy  []sparql.OrderKey
	Offset   int64
	Limit    int64
	IsAsk    bool
}

// Result is the normalized algebra plus the post-processing the original
// query requested.
type Result struct {
	Algebra     *sparql.Algebra
	ProjectVars []string
	PostProc    PostProcessing
}

var freshCounter int

func freshVar(prefix string) string {
	freshCounter++
	return fmt.Sprintf("__%s%d", prefix, freshCounter)
}

// Normalize applies C5 to a parsed query's raw algebra tree.
func Normalize(a *sparql.Algebra, cfg *config.Config) (*Result, error) {
	var inner *sparql.Algebra
	var projectVars []string
	post := PostProcessing{Limit: sparql.NoLimit}

	switch a.Op {
	case sparql.OpProject:
		inner = a.Inner
		projectVars = a.ProjectVars
		post.Distinct, post.Reduced = a.Distinct, a.Reduced
		post.OrderBy, post.Offset, post.Limit = a.OrderBy, a.Offset, a.Limit
	case sparql.OpAsk:
		inner = a.Inner
		post.IsAsk = true
	default:
		return nil, fmt.Errorf("%w: top-level query form must be SELECT or ASK", zkerr.ErrUnsupportedFeature)
	}

	expanded, err := expand(inner, cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Algebra: expanded, ProjectVars: projectVars, PostProc: post}, nil
}

// expand recursively rewrites a.
func expand(a *sparql.Algebra, cfg *config.Config) (*sparql.Algebra, error) {
	if a == nil {
		return &sparql.Algebra{Op: sparql.OpBgp}, nil
	}
	switch a.Op {
	case sparql.OpBgp:
		return expandBgp(a, cfg)
	case sparql.OpJoin:
		left, err := expand(a.Left, cfg)
		if err != nil {
			return nil, err
		}
		right, err := expand(a.Right, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpJoin, Left: left, Right: right}, nil
	case sparql.OpUnion:
		left, err := expand(a.Left, cfg)
		if err != nil {
			return nil, err
		}
		right, err := expand(a.Right, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpUnion, Left: left, Right: right}, nil
	case sparql.OpLeftJoin:
		left, err := expand(a.Left, cfg)
		if err != nil {
			return nil, err
		}
		right, err := expand(a.Right, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpLeftJoin, Left: left, Right: right, JoinFilter: a.JoinFilter}, nil
	case sparql.OpFilter:
		inner, err := expand(a.Inner, cfg)
		if err != nil {
			return nil, err
		}
		cond, err := expandExprIn(a.Condition)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpFilter, Inner: inner, Condition: cond}, nil
	case sparql.OpExtend:
		inner, err := expand(a.Inner, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpExtend, Inner: inner, ExtendVar: a.ExtendVar, ExtendExpr: a.ExtendExpr}, nil
	case sparql.OpGraph:
		inner, err := expand(a.Inner, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpGraph, GraphTerm: a.GraphTerm, Inner: inner}, nil
	case sparql.OpValues:
		return expandValues(a), nil
	default:
		return nil, fmt.Errorf("%w: algebra operator %d is not supported inside a query body", zkerr.ErrUnsupportedFeature, a.Op)
	}
}

// expandValues rewrites VALUES (?v1 ?v2) { (a b) (c d) } into a UNION with
// one branch per row: each branch is a chain of Extend (BIND) nodes over an
// empty BGP, binding each variable to the row's constant (an UNDEF entry
// binds nothing), since the spec's normalized form only knows
// BGP/Join/Union/LeftJoin/Filter/Extend/Graph (spec.md §5).
func expandValues(a *sparql.Algebra) *sparql.Algebra {
	if len(a.ValuesRows) == 0 {
		// An empty VALUES block contributes no solutions; model as an
		// unsatisfiable filter over an empty BGP.
		return &sparql.Algebra{
			Op:        sparql.OpFilter,
			Inner:     &sparql.Algebra{Op: sparql.OpBgp},
			Condition: sparql.Const(rdf.PlainLiteral("false")),
		}
	}
	var branches *sparql.Algebra
	for _, row := range a.ValuesRows {
		var branch *sparql.Algebra = &sparql.Algebra{Op: sparql.OpBgp}
		for i, varName := range a.ValuesVars {
			if i >= len(row) {
				continue
			}
			term := row[i]
			if term.Type == 0 && term.Value == "" && term.Datatype == "" {
				// UNDEF: no binding constraint for this row/variable.
				continue
			}
			branch = &sparql.Algebra{
				Op:        sparql.OpExtend,
				Inner:     branch,
				ExtendVar: varName,
				ExtendExpr: sparql.Const(term),
			}
		}
		if branches == nil {
			branches = branch
		} else {
			branches = &sparql.Algebra{Op: sparql.OpUnion, Left: branches, Right: branch}
		}
	}
	return branches
}

// expandExprIn rewrites IN/NOT IN into disjunctions/conjunctions of
// equality comparisons (spec.md §5: "IN / NOT IN ... expanded into a
// disjunction or conjunction of equality/inequality constraints").
func expandExprIn(e sparql.Expr) (sparql.Expr, error) {
	switch e.Op {
	case sparql.ExprIn:
		if len(e.List) == 0 {
			return sparql.Const(rdf.PlainLiteral("false")), nil
		}
		var acc sparql.Expr
		for i, item := range e.List {
			eq := sparql.Expr{Op: sparql.ExprEq, A: e.A, B: &item}
			if i == 0 {
				acc = eq
			} else {
				accCopy := acc
				acc = sparql.Expr{Op: sparql.ExprOr, A: &accCopy, B: &eq}
			}
		}
		return acc, nil
	case sparql.ExprNotIn:
		if len(e.List) == 0 {
			return sparql.Const(rdf.PlainLiteral("true")), nil
		}
		var acc sparql.Expr
		for i, item := range e.List {
			neq := sparql.Expr{Op: sparql.ExprNeq, A: e.A, B: &item}
			if i == 0 {
				acc = neq
			} else {
				accCopy := acc
				acc = sparql.Expr{Op: sparql.ExprAnd, A: &accCopy, B: &neq}
			}
		}
		return acc, nil
	default:
		out := e
		if e.A != nil {
			a, err := expandExprIn(*e.A)
			if err != nil {
				return sparql.Expr{}, err
			}
			out.A = &a
		}
		if e.B != nil {
			b, err := expandExprIn(*e.B)
			if err != nil {
				return sparql.Expr{}, err
			}
			out.B = &b
		}
		return out, nil
	}
}
