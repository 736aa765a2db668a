package sparql

import (
	"fmt"

	"github.com/luxfi/zkrdf/zkerr"
)

// parseConstraint parses a FILTER's argument: a parenthesized expression or
// a bare built-in call (spec.md §5's Constraint grammar production).
func (p *parser) parseConstraint() (Expr, error) {
	return p.parseExpr()
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOrExpr()
}

func (p *parser) parseOrExpr() (Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return Expr{}, err
	}
	for p.isPunct("||") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		right, err := p.parseAndExpr()
		if err != nil {
			return Expr{}, err
		}
		left = bin(ExprOr, left, right)
	}
	return left, nil
}

func (p *parser) parseAndExpr() (Expr, error) {
	left, err := p.parseRelationalExpr()
	if err != nil {
		return Expr{}, err
	}
	for p.isPunct("&&") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		right, err := p.parseRelationalExpr()
		if err != nil {
			return Expr{}, err
		}
		left = bin(ExprAnd, left, right)
	}
	return left, nil
}

func (p *parser) parseRelationalExpr() (Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return Expr{}, err
	}
	if p.isKeyword("IN") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Op: ExprIn, A: &left, List: list}, nil
	}
	if p.isKeyword("NOT") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		if err := p.expectKeyword("IN"); err != nil {
			return Expr{}, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Op: ExprNotIn, A: &left, List: list}, nil
	}
	var op ExprOp
	matched := true
	switch {
	case p.isPunct("="):
		op = ExprEq
	case p.isPunct("!="):
		op = ExprNeq
	case p.isPunct("<="):
		op = ExprLe
	case p.isPunct(">="):
		op = ExprGe
	case p.isPunct("<"):
		op = ExprLt
	case p.isPunct(">"):
		op = ExprGt
	default:
		matched = false
	}
	if !matched {
		return left, nil
	}
	if err := p.advance(); err != nil {
		return Expr{}, err
	}
	right, err := p.parseUnaryExpr()
	if err != nil {
		return Expr{}, err
	}
	return bin(op, left, right), nil
}

func (p *parser) parseExprList() ([]Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var list []Expr
	for !p.isPunct(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseUnaryExpr() (Expr, error) {
	if p.isPunct("!") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		inner, err := p.parseUnaryExpr()
		if err != nil {
			return Expr{}, err
		}
		return un(ExprNot, inner), nil
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	if p.isPunct("(") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return Expr{}, err
		}
		return inner, nil
	}
	if p.cur.kind == tokKeyword {
		switch p.cur.text {
		case "BOUND":
			return p.parseUnaryCall(ExprBound)
		case "ISIRI", "ISURI":
			return p.parseUnaryCall(ExprIsIRI)
		case "ISBLANK":
			return p.parseUnaryCall(ExprIsBlank)
		case "ISLITERAL":
			return p.parseUnaryCall(ExprIsLiteral)
		case "STR":
			return p.parseUnaryCall(ExprStr)
		case "LANG":
			return p.parseUnaryCall(ExprLang)
		case "DATATYPE":
			return p.parseUnaryCall(ExprDatatype)
		case "LANGMATCHES":
			return p.parseBinaryCall(ExprLangMatches)
		case "SAMETERM":
			return p.parseBinaryCall(ExprSameTerm)
		case "REGEX":
			return p.parseRegexCall()
		}
	}
	t, err := p.parseVarOrTerm()
	if err != nil {
		return Expr{}, err
	}
	return Const(t), nil
}

func (p *parser) parseUnaryCall(op ExprOp) (Expr, error) {
	if err := p.advance(); err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct("("); err != nil {
		return Expr{}, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct(")"); err != nil {
		return Expr{}, err
	}
	return un(op, inner), nil
}

func (p *parser) parseBinaryCall(op ExprOp) (Expr, error) {
	if err := p.advance(); err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct("("); err != nil {
		return Expr{}, err
	}
	a, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct(","); err != nil {
		return Expr{}, err
	}
	b, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct(")"); err != nil {
		return Expr{}, err
	}
	return bin(op, a, b), nil
}

func (p *parser) parseRegexCall() (Expr, error) {
	if err := p.advance(); err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct("("); err != nil {
		return Expr{}, err
	}
	a, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	if err := p.expectPunct(","); err != nil {
		return Expr{}, err
	}
	if p.cur.kind != tokString {
		return Expr{}, fmt.Errorf("%w: REGEX pattern must be a string literal", zkerr.ErrParseError)
	}
	pattern := p.cur.text
	if err := p.advance(); err != nil {
		return Expr{}, err
	}
	flags := ""
	if p.isPunct(",") {
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
		if p.cur.kind != tokString {
			return Expr{}, fmt.Errorf("%w: REGEX flags must be a string literal", zkerr.ErrParseError)
		}
		flags = p.cur.text
		if err := p.advance(); err != nil {
			return Expr{}, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return Expr{}, err
	}
	return Expr{Op: ExprRegex, A: &a, Pattern: pattern, Flags: flags}, nil
}
