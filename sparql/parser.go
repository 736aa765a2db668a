package sparql

import (
	"fmt"
	"strings"

	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/zkerr"
)

// Parse parses SPARQL query text into a raw Algebra tree, prior to any C5
// normalization. Only the SELECT/ASK forms and the operator subset spec.md
// §5 names as in-scope are supported; anything else is rejected rather than
// guessed at. Most such input fails with ErrParseError, since the grammar
// has no production for it; a few recognised forms (predicate-object lists)
// fail with ErrUnsupportedFeature.
func Parse(queryText string) (*Algebra, error) {
	p := &parser{lex: newLexer(queryText), prefixes: map[string]string{}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseQuery()
}

type parser struct {
	lex      *lexer
	cur      token
	prefixes map[string]string
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *parser) isPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return fmt.Errorf("%w: expected %q, got %q", zkerr.ErrParseError, s, p.cur.text)
	}
	return p.advance()
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return fmt.Errorf("%w: expected %s, got %q", zkerr.ErrParseError, kw, p.cur.text)
	}
	return p.advance()
}

func (p *parser) parseQuery() (*Algebra, error) {
	for p.isKeyword("PREFIX") {
		if err := p.parsePrefixDecl(); err != nil {
			return nil, err
		}
	}
	switch {
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	case p.isKeyword("ASK"):
		return p.parseAsk()
	default:
		return nil, fmt.Errorf("%w: expected SELECT or ASK, got %q", zkerr.ErrParseError, p.cur.text)
	}
}

func (p *parser) parsePrefixDecl() error {
	if err := p.advance(); err != nil { // consume PREFIX
		return err
	}
	if p.cur.kind != tokPunct && p.cur.kind != tokPrefixedName {
		return fmt.Errorf("%w: expected prefix label", zkerr.ErrParseError)
	}
	label := p.cur.text
	label = strings.TrimSuffix(label, ":")
	if err := p.advance(); err != nil {
		return err
	}
	if p.cur.kind != tokIRI {
		return fmt.Errorf("%w: expected IRI after PREFIX %s:", zkerr.ErrParseError, label)
	}
	p.prefixes[label] = p.cur.text
	return p.advance()
}

func (p *parser) resolveIRI(prefixedName string) (string, error) {
	idx := strings.IndexByte(prefixedName, ':')
	if idx < 0 {
		return "", fmt.Errorf("%w: malformed prefixed name %q", zkerr.ErrParseError, prefixedName)
	}
	label, local := prefixedName[:idx], prefixedName[idx+1:]
	base, ok := p.prefixes[label]
	if !ok {
		return "", fmt.Errorf("%w: undeclared prefix %q", zkerr.ErrParseError, label)
	}
	return base + local, nil
}

func (p *parser) parseSelect() (*Algebra, error) {
	if err := p.advance(); err != nil { // consume SELECT
		return nil, err
	}
	distinct, reduced := false, false
	if p.isKeyword("DISTINCT") {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.isKeyword("REDUCED") {
		reduced = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	var vars []string
	star := false
	if p.isPunct("*") {
		star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for p.cur.kind == tokVar {
			vars = append(vars, p.cur.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if len(vars) == 0 {
			return nil, fmt.Errorf("%w: SELECT requires a variable list or *", zkerr.ErrParseError)
		}
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	if star {
		seen := map[string]bool{}
		vars = nil
		for _, p := range patternVariables(where) {
			if !seen[p] {
				seen[p] = true
				vars = append(vars, p)
			}
		}
	}

	modifiers, err := p.parseSolutionModifiers()
	if err != nil {
		return nil, err
	}
	modifiers.Distinct = distinct
	modifiers.Reduced = reduced
	modifiers.ProjectVars = vars
	modifiers.Op = OpProject
	modifiers.Inner = where
	return &modifiers, nil
}

func (p *parser) parseAsk() (*Algebra, error) {
	if err := p.advance(); err != nil { // consume ASK
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &Algebra{Op: OpAsk, Inner: where}, nil
}

// parseSolutionModifiers parses the trailing ORDER BY / LIMIT / OFFSET
// clauses into an Algebra whose Inner is left nil for the caller to fill in.
func (p *parser) parseSolutionModifiers() (Algebra, error) {
	a := Algebra{Limit: NoLimit}
	if p.isKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return a, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return a, err
		}
		for p.cur.kind == tokVar || p.isKeyword("ASC") || p.isKeyword("DESC") {
			desc := false
			if p.isKeyword("ASC") || p.isKeyword("DESC") {
				desc = p.cur.text == "DESC"
				if err := p.advance(); err != nil {
					return a, err
				}
				if err := p.expectPunct("("); err != nil {
					return a, err
				}
				e, err := p.parseExpr()
				if err != nil {
					return a, err
				}
				if err := p.expectPunct(")"); err != nil {
					return a, err
				}
				a.OrderBy = append(a.OrderBy, OrderKey{Expr: e, Descending: desc})
				continue
			}
			e, err := p.parseExpr()
			if err != nil {
				return a, err
			}
			a.OrderBy = append(a.OrderBy, OrderKey{Expr: e, Descending: desc})
		}
	}
	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return a, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return a, err
		}
		a.Limit = n
	}
	if p.isKeyword("OFFSET") {
		if err := p.advance(); err != nil {
			return a, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return a, err
		}
		a.Offset = n
	}
	return a, nil
}

func (p *parser) parseIntLiteral() (int64, error) {
	if p.cur.kind != tokNumber {
		return 0, fmt.Errorf("%w: expected integer, got %q", zkerr.ErrParseError, p.cur.text)
	}
	var n int64
	_, err := fmt.Sscanf(p.cur.text, "%d", &n)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid integer %q", zkerr.ErrParseError, p.cur.text)
	}
	return n, p.advance()
}

// parseGroupGraphPattern parses "{ ... }" into a single Algebra tree,
// folding the block's triples/OPTIONAL/UNION/FILTER/BIND/GRAPH/VALUES
// clauses left-to-right into nested Join/LeftJoin/Union/Filter/Extend nodes
// (the textbook SPARQL-to-algebra translation, restricted to spec.md §5's
// in-scope operators).
func (p *parser) parseGroupGraphPattern() (*Algebra, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var acc *Algebra
	join := func(next *Algebra) {
		if acc == nil {
			acc = next
			return
		}
		acc = &Algebra{Op: OpJoin, Left: acc, Right: next}
	}

	for !p.isPunct("}") {
		switch {
		case p.isKeyword("OPTIONAL"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = inner
			} else {
				acc = &Algebra{Op: OpLeftJoin, Left: acc, Right: inner}
			}
		case p.isKeyword("FILTER"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			cond, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = &Algebra{Op: OpBgp}
			}
			acc = &Algebra{Op: OpFilter, Inner: acc, Condition: cond}
		case p.isKeyword("BIND"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			if p.cur.kind != tokVar {
				return nil, fmt.Errorf("%w: BIND ... AS requires a variable", zkerr.ErrParseError)
			}
			varName := p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			if acc == nil {
				acc = &Algebra{Op: OpBgp}
			}
			acc = &Algebra{Op: OpExtend, Inner: acc, ExtendVar: varName, ExtendExpr: e}
		case p.isKeyword("GRAPH"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			gterm, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			join(&Algebra{Op: OpGraph, GraphTerm: gterm, Inner: inner})
		case p.isKeyword("VALUES"):
			values, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			join(values)
		case p.isPunct("{"):
			// Either a nested group, or the left side of a UNION.
			left, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.isKeyword("UNION") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseGroupGraphPattern()
				if err != nil {
					return nil, err
				}
				join(&Algebra{Op: OpUnion, Left: left, Right: right})
			} else {
				join(left)
			}
		default:
			bgp, err := p.parseTriples()
			if err != nil {
				return nil, err
			}
			join(bgp)
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &Algebra{Op: OpBgp}
	}
	return acc, nil
}

// parseTriples parses one or more "." terminated triple patterns (with
// possible property-path predicates) into a single Bgp node.
func (p *parser) parseTriples() (*Algebra, error) {
	var patterns []TriplePattern
	for {
		subj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		obj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, TriplePattern{Subject: subj, Path: path, Object: obj})
		if p.isPunct(";") {
			return nil, fmt.Errorf("%w: predicate-object lists are not supported, repeat the subject instead", zkerr.ErrUnsupportedFeature)
		}
		if !p.isPunct(".") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isPunct("}") || p.cur.kind == tokEOF {
			break
		}
		if p.isKeyword("OPTIONAL") || p.isKeyword("FILTER") || p.isKeyword("BIND") ||
			p.isKeyword("GRAPH") || p.isKeyword("VALUES") || p.isPunct("{") {
			break
		}
	}
	return &Algebra{Op: OpBgp, Patterns: patterns}, nil
}

func (p *parser) parsePath() (Path, error) {
	left, err := p.parsePathUnary()
	if err != nil {
		return Path{}, err
	}
	for p.isPunct("/") || p.isPunct("|") {
		op := PathSeq
		if p.isPunct("|") {
			op = PathAlt
		}
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		right, err := p.parsePathUnary()
		if err != nil {
			return Path{}, err
		}
		l, r := left, right
		left = Path{Op: op, Left: &l, Right: &r}
	}
	return left, nil
}

func (p *parser) parsePathUnary() (Path, error) {
	if p.isPunct("^") {
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		inner, err := p.parsePathPrimary()
		if err != nil {
			return Path{}, err
		}
		return Path{Op: PathInverse, Left: &inner}, nil
	}
	base, err := p.parsePathPrimary()
	if err != nil {
		return Path{}, err
	}
	switch {
	case p.isPunct("?"):
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		return Path{Op: PathOpt, Left: &base}, nil
	case p.isPunct("+"):
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		return Path{Op: PathPlus, Left: &base}, nil
	case p.isPunct("*"):
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		return Path{Op: PathStar, Left: &base}, nil
	default:
		return base, nil
	}
}

func (p *parser) parsePathPrimary() (Path, error) {
	if p.isPunct("(") {
		if err := p.advance(); err != nil {
			return Path{}, err
		}
		inner, err := p.parsePath()
		if err != nil {
			return Path{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return Path{}, err
		}
		return inner, nil
	}
	t, err := p.parsePredicateTerm()
	if err != nil {
		return Path{}, err
	}
	return SimplePath(t), nil
}

func (p *parser) parsePredicateTerm() (rdf.Term, error) {
	if p.isKeyword("A") {
		if err := p.advance(); err != nil {
			return rdf.Term{}, err
		}
		return rdf.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), nil
	}
	return p.parseVarOrTerm()
}

// parseVarOrTerm parses a single variable, IRI, prefixed name, blank node,
// or literal into an rdf.Term.
func (p *parser) parseVarOrTerm() (rdf.Term, error) {
	switch p.cur.kind {
	case tokVar:
		name := p.cur.text
		return rdf.Variable(name), p.advance()
	case tokIRI:
		iri := p.cur.text
		return rdf.IRI(iri), p.advance()
	case tokPrefixedName:
		iri, err := p.resolveIRI(p.cur.text)
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.IRI(iri), p.advance()
	case tokBlank:
		label := p.cur.text
		return rdf.Blank(label), p.advance()
	case tokString:
		tok := p.cur
		var dt string
		if tok.datatype != "" {
			if strings.Contains(tok.datatype, ":") && !strings.HasPrefix(tok.datatype, "http") {
				resolved, err := p.resolveIRI(tok.datatype)
				if err != nil {
					return rdf.Term{}, err
				}
				dt = resolved
			} else {
				dt = tok.datatype
			}
		}
		if err := p.advance(); err != nil {
			return rdf.Term{}, err
		}
		switch {
		case tok.lang != "":
			return rdf.LangLiteral(tok.text, tok.lang), nil
		case dt != "":
			return rdf.TypedLiteral(tok.text, dt), nil
		default:
			return rdf.PlainLiteral(tok.text), nil
		}
	case tokNumber:
		lexical := p.cur.text
		dt := "http://www.w3.org/2001/XMLSchema#integer"
		if strings.Contains(lexical, ".") {
			dt = "http://www.w3.org/2001/XMLSchema#decimal"
		}
		if err := p.advance(); err != nil {
			return rdf.Term{}, err
		}
		return rdf.TypedLiteral(lexical, dt), nil
	case tokBoolean:
		lexical := strings.ToLower(p.cur.text)
		if err := p.advance(); err != nil {
			return rdf.Term{}, err
		}
		return rdf.TypedLiteral(lexical, "http://www.w3.org/2001/XMLSchema#boolean"), nil
	default:
		return rdf.Term{}, fmt.Errorf("%w: expected a term, got %q", zkerr.ErrParseError, p.cur.text)
	}
}

func (p *parser) parseValues() (*Algebra, error) {
	if err := p.advance(); err != nil { // consume VALUES
		return nil, err
	}
	var vars []string
	multi := p.isPunct("(")
	if multi {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.cur.kind == tokVar {
			vars = append(vars, p.cur.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	} else {
		if p.cur.kind != tokVar {
			return nil, fmt.Errorf("%w: expected variable after VALUES", zkerr.ErrParseError)
		}
		vars = append(vars, p.cur.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var rows [][]rdf.Term
	for !p.isPunct("}") {
		var row []rdf.Term
		rowParen := p.isPunct("(")
		if rowParen {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		n := 1
		if rowParen {
			n = len(vars)
		}
		for i := 0; i < n; i++ {
			if p.isKeyword("UNDEF") {
				row = append(row, rdf.Term{})
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			t, err := p.parseVarOrTerm()
			if err != nil {
				return nil, err
			}
			row = append(row, t)
		}
		if rowParen {
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return &Algebra{Op: OpValues, ValuesVars: vars, ValuesRows: rows}, nil
}

// patternVariables collects the distinct variables a WHERE clause's Algebra
// tree projects, for SELECT * expansion.
func patternVariables(a *Algebra) []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var walk func(*Algebra)
	walk = func(a *Algebra) {
		if a == nil {
			return
		}
		for _, tp := range a.Patterns {
			for _, v := range (rdf.Pattern{Subject: tp.Subject, Object: tp.Object}).Variables() {
				add(v)
			}
		}
		if a.ExtendVar != "" {
			add(a.ExtendVar)
		}
		for _, v := range a.ValuesVars {
			add(v)
		}
		walk(a.Left)
		walk(a.Right)
		walk(a.Inner)
	}
	walk(a)
	return out
}
