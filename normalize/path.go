package normalize

import (
	"fmt"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
	"github.com/luxfi/zkrdf/zkerr"
)

// expandBgp expands every triple pattern's property path into a join of
// simple-predicate patterns, folding the (possibly many) expanded patterns
// of a Bgp node into a Join tree of single-pattern Bgp nodes, the plain
// join/union algebra spec.md §5 expects to see after C5.
func expandBgp(a *sparql.Algebra, cfg *config.Config) (*sparql.Algebra, error) {
	var acc *sparql.Algebra
	for _, tp := range a.Patterns {
		expanded, err := expandPath(tp.Subject, tp.Path, tp.Object, cfg)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = expanded
		} else {
			acc = &sparql.Algebra{Op: sparql.OpJoin, Left: acc, Right: expanded}
		}
	}
	if acc == nil {
		return &sparql.Algebra{Op: sparql.OpBgp}, nil
	}
	return acc, nil
}

// expandPath expands a single (subject, path, object) triple pattern into
// an equivalent algebra tree built from Bgp/Join/Union nodes, plus the
// Extend or Filter node of each zero-length step (spec.md §5's
// property-path expansion).
func expandPath(subject rdf.Term, path sparql.Path, object rdf.Term, cfg *config.Config) (*sparql.Algebra, error) {
	switch path.Op {
	case sparql.PathNone:
		return &sparql.Algebra{Op: sparql.OpBgp, Patterns: []sparql.TriplePattern{
			{Subject: subject, Path: sparql.SimplePath(path.Pred), Object: object},
		}}, nil

	case sparql.PathInverse:
		return expandPath(object, *path.Left, subject, cfg)

	case sparql.PathSeq:
		mid := rdf.Variable(freshVar("path"))
		left, err := expandPath(subject, *path.Left, mid, cfg)
		if err != nil {
			return nil, err
		}
		right, err := expandPath(mid, *path.Right, object, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpJoin, Left: left, Right: right}, nil

	case sparql.PathAlt:
		left, err := expandPath(subject, *path.Left, object, cfg)
		if err != nil {
			return nil, err
		}
		right, err := expandPath(subject, *path.Right, object, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpUnion, Left: left, Right: right}, nil

	case sparql.PathOpt:
		// p? = {} UNION p, modeled as a zero-length branch (subject=object,
		// realized by binding object to a copy of subject via Extend) union
		// the one-step branch.
		zero, err := zeroLengthBranch(subject, object)
		if err != nil {
			return nil, err
		}
		one, err := expandPath(subject, *path.Left, object, cfg)
		if err != nil {
			return nil, err
		}
		return &sparql.Algebra{Op: sparql.OpUnion, Left: zero, Right: one}, nil

	case sparql.PathPlus, sparql.PathStar:
		if cfg.PathSegmentMax == 0 {
			return nil, fmt.Errorf("%w: property path repetition requires a positive PathSegmentMax", zkerr.ErrUnsupportedFeature)
		}
		minLen := 1
		if path.Op == sparql.PathStar {
			minLen = 0
		}
		var branches *sparql.Algebra
		for k := minLen; k <= int(cfg.PathSegmentMax); k++ {
			var branch *sparql.Algebra
			var err error
			if k == 0 {
				branch, err = zeroLengthBranch(subject, object)
			} else {
				branch, err = expandFixedRepeat(subject, *path.Left, object, k, cfg)
			}
			if err != nil {
				return nil, err
			}
			if branches == nil {
				branches = branch
			} else {
				branches = &sparql.Algebra{Op: sparql.OpUnion, Left: branches, Right: branch}
			}
		}
		return branches, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized property path operator", zkerr.ErrUnsupportedFeature)
	}
}

// expandFixedRepeat unrolls exactly k repetitions of a sub-path into a
// chain of fresh intermediate variables.
func expandFixedRepeat(subject rdf.Term, sub sparql.Path, object rdf.Term, k int, cfg *config.Config) (*sparql.Algebra, error) {
	cur := subject
	var acc *sparql.Algebra
	for i := 0; i < k; i++ {
		next := object
		if i < k-1 {
			next = rdf.Variable(freshVar("path"))
		}
		step, err := expandPath(cur, sub, next, cfg)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = step
		} else {
			acc = &sparql.Algebra{Op: sparql.OpJoin, Left: acc, Right: step}
		}
		cur = next
	}
	return acc, nil
}

// zeroLengthBranch models a zero-length path step: object must equal
// subject. If one is a variable, it is bound to the other via Extend over an
// empty BGP (there is no "copy a term into a variable" BGP primitive). If
// both are ground terms, the branch is a FILTER(subject = object) over an
// empty BGP.
func zeroLengthBranch(subject, object rdf.Term) (*sparql.Algebra, error) {
	base := &sparql.Algebra{Op: sparql.OpBgp}
	switch {
	case object.IsVariable():
		return &sparql.Algebra{Op: sparql.OpExtend, Inner: base, ExtendVar: object.Value, ExtendExpr: sparql.Const(subject)}, nil
	case subject.IsVariable():
		return &sparql.Algebra{Op: sparql.OpExtend, Inner: base, ExtendVar: subject.Value, ExtendExpr: sparql.Const(object)}, nil
	default:
		return &sparql.Algebra{Op: sparql.OpFilter, Inner: base, Condition: sparql.Expr{
			Op: sparql.ExprEq,
			A:  ptr(sparql.Const(subject)),
			B:  ptr(sparql.Const(object)),
		}}, nil
	}
}

func ptr(e sparql.Expr) *sparql.Expr { return &e }
