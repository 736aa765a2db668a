package sparql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/luxfi/zkrdf/zkerr"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPrefixedName
	tokVar
	tokString
	tokNumber
	tokBoolean
	tokPunct
	tokKeyword
	tokBlank
)

type token struct {
	kind tokenKind
	text string
	// for tokString: the parsed lexical value, language tag, datatype IRI
	lang     string
	datatype string
}

// lexer tokenizes a (small, practical) subset of SPARQL 1.1 query syntax:
// enough to cover SELECT/ASK queries using IRIs, prefixed names, variables,
// literals, BGPs, property paths, OPTIONAL/UNION/FILTER/GRAPH/BIND/VALUES
// and solution modifiers. Grounded on the pack's general lexing style
// (hand-rolled scanners over a rune slice); there is no SPARQL-parsing
// library anywhere in the retrieved dependency corpus.
type lexer struct {
	src    []rune
	pos    int
	prefix map[string]string
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), prefix: map[string]string{}}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipSpaceAndComments() {
	for {
		for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

var puncts = []string{
	"{", "}", "(", ")", ".", ",", ";",
	"^^", "^", "/", "|", "?", "+", "*",
	"!=", "!", "<=", ">=", "=", "<", ">",
	"&&", "||",
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF}, nil
	}

	switch {
	case r == '?' || r == '$':
		return l.lexVar()
	case r == '<':
		// Could be an IRIREF or the '<' / '<=' comparison operator.
		if l.pos+1 < len(l.src) && isIRIStart(l.src[l.pos+1]) {
			return l.lexIRIRef()
		}
		return l.lexPunct()
	case r == '"' || r == '\'':
		return l.lexString()
	case unicode.IsDigit(r) || (r == '-' && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1])):
		return l.lexNumber()
	case r == '_' && l.pos+1 < len(l.src) && l.src[l.pos+1] == ':':
		return l.lexBlank()
	case isNameStart(r):
		return l.lexNameOrKeyword()
	default:
		return l.lexPunct()
	}
}

func isIRIStart(r rune) bool {
	return r != '>' && r != ' '
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

func (l *lexer) lexVar() (token, error) {
	start := l.pos
	l.pos++ // consume ? or $
	for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokVar, text: string(l.src[start+1 : l.pos])}, nil
}

func (l *lexer) lexIRIRef() (token, error) {
	start := l.pos
	l.pos++ // consume '<'
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{}, fmt.Errorf("%w: unterminated IRI reference starting at %d", zkerr.ErrParseError, start)
	}
	text := string(l.src[start+1 : l.pos])
	l.pos++ // consume '>'
	return token{kind: tokIRI, text: text}, nil
}

func (l *lexer) lexBlank() (token, error) {
	start := l.pos
	l.pos += 2 // consume "_:"
	for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokBlank, text: string(l.src[start+2 : l.pos])}, nil
}

func (l *lexer) lexString() (token, error) {
	quote := l.src[l.pos]
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{}, fmt.Errorf("%w: unterminated string literal starting at %d", zkerr.ErrParseError, start)
	}
	l.pos++ // closing quote

	tok := token{kind: tokString, text: sb.String()}
	if r, ok := l.peekRune(); ok && r == '@' {
		l.pos++
		langStart := l.pos
		for l.pos < len(l.src) && (isNameChar(l.src[l.pos])) {
			l.pos++
		}
		tok.lang = string(l.src[langStart:l.pos])
	} else if l.pos+1 < len(l.src) && l.src[l.pos] == '^' && l.src[l.pos+1] == '^' {
		l.pos += 2
		dtTok, err := l.next()
		if err != nil {
			return token{}, err
		}
		tok.datatype = dtTok.text
	}
	return tok, nil
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos])}, nil
}

func (l *lexer) lexNameOrKeyword() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
		l.pos++
	}
	// prefixed name: prefix ':' local
	if l.pos < len(l.src) && l.src[l.pos] == ':' {
		prefixPart := string(l.src[start:l.pos])
		l.pos++
		localStart := l.pos
		for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokPrefixedName, text: prefixPart + ":" + string(l.src[localStart:l.pos])}, nil
	}
	word := string(l.src[start:l.pos])
	upper := strings.ToUpper(word)
	switch upper {
	case "TRUE", "FALSE":
		return token{kind: tokBoolean, text: upper}, nil
	case "SELECT", "ASK", "WHERE", "OPTIONAL", "UNION", "FILTER", "GRAPH", "BIND", "AS",
		"VALUES", "UNDEF", "PREFIX", "DISTINCT", "REDUCED", "ORDER", "BY", "ASC", "DESC",
		"LIMIT", "OFFSET", "IN", "NOT", "BOUND", "ISIRI", "ISURI", "ISBLANK", "ISLITERAL",
		"STR", "LANG", "DATATYPE", "LANGMATCHES", "REGEX", "SAMETERM", "A":
		return token{kind: tokKeyword, text: upper}, nil
	default:
		return token{kind: tokPunct, text: word}, nil
	}
}

func (l *lexer) lexPunct() (token, error) {
	for _, p := range puncts {
		if l.hasPrefix(p) {
			l.pos += len([]rune(p))
			return token{kind: tokPunct, text: p}, nil
		}
	}
	r := l.src[l.pos]
	l.pos++
	return token{}, fmt.Errorf("%w: unexpected character %q at position %d", zkerr.ErrParseError, r, l.pos-1)
}

func (l *lexer) hasPrefix(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}
