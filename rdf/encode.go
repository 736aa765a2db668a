package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/zkerr"
)

const (
	xsdBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	xsdInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	xsdInt      = "http://www.w3.org/2001/XMLSchema#int"
	xsdLong     = "http://www.w3.org/2001/XMLSchema#long"
	xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	xsdString   = "http://www.w3.org/2001/XMLSchema#string"
)

// Encoder applies C2's deterministic field encoding, parameterized by the
// Oracle and Config a given deployment is configured with (every term a
// dataset or query touches must be encoded under byte-identical
// configuration, spec.md invariant 4).
type Encoder struct {
	oracle field.Oracle
	cfg    *config.Config
}

// NewEncoder builds an Encoder bound to the given oracle and config.
func NewEncoder(oracle field.Oracle, cfg *config.Config) *Encoder {
	return &Encoder{oracle: oracle, cfg: cfg}
}

// EncodeTerm computes E(t) = h2([type_code(t), encode_value(t)])
// (spec.md §4.1). Variables have no field encoding; callers must resolve a
// variable to a ground term (via a witness binding) before calling this.
func (e *Encoder) EncodeTerm(t Term) (field.Element, error) {
	if t.IsVariable() {
		return field.Element{}, fmt.Errorf("%w: cannot encode an unbound variable ?%s", zkerr.ErrTypeError, t.Value)
	}
	value, err := e.encodeValue(t)
	if err != nil {
		return field.Element{}, err
	}
	return e.oracle.H2(typeCode(t.Type), value), nil
}

// typeCode lifts a TermType into F — the first coordinate of encode_term.
func typeCode(tt TermType) field.Element {
	return field.FromUint64(uint64(tt))
}

// encodeValue computes the second coordinate of encode_term: a single field
// element summarizing the term's value, irrespective of type (spec.md
// §4.1). IRIs and blank nodes reduce their label through encode_string;
// literals use the 4-coordinate h4 encoding; the default graph has no
// value, so it uses the zero element.
func (e *Encoder) encodeValue(t Term) (field.Element, error) {
	switch t.Type {
	case TermIRI, TermBlank:
		return e.encodeString(t.Value), nil
	case TermDefaultGraph:
		return field.Zero(), nil
	case TermLiteral:
		return e.encodeLiteralValue(t)
	default:
		return field.Element{}, fmt.Errorf("%w: %s", zkerr.ErrUnsupportedTermType, t.Type)
	}
}

// encodeString reduces an arbitrary string into F via the configured
// byte-hash provider h_s (spec.md §4.1).
func (e *Encoder) encodeString(s string) field.Element {
	return e.oracle.HashBytes([]byte(s))
}

// encodeLiteralValue computes h4([encode_string(val), special,
// encode_string(lang), encode_string(datatype)]) (spec.md §4.1). The
// "special" coordinate carries a value-comparable numeric or datetime
// representation so C7's filter lowering can reason about ordering without
// decoding the lexical form back out of a hash.
func (e *Encoder) encodeLiteralValue(t Term) (field.Element, error) {
	lexical := t.Value
	datatype := t.Datatype
	lang := t.Lang

	if t.Datatype == "" && t.Lang == "" && e.cfg.StringLiteralPolicy == config.StringPolicyUnified {
		datatype = xsdString
	}

	langCoord := lang
	if e.cfg.FoldLanguageCase {
		langCoord = strings.ToLower(langCoord)
	}

	special, err := e.specialCoordinate(lexical, datatype)
	if err != nil {
		return field.Element{}, err
	}

	return e.oracle.H4(
		e.encodeString(lexical),
		special,
		e.encodeString(langCoord),
		e.encodeString(datatype),
	), nil
}

// specialCoordinate computes the value-comparable coordinate for a literal's
// datatype: the numeric value for xsd:integer/int/long, 0/1 for
// xsd:boolean, a Unix-millisecond timestamp for xsd:dateTime, and zero for
// any other datatype (no value-level comparison is defined for it).
func (e *Encoder) specialCoordinate(lexical, datatype string) (field.Element, error) {
	switch datatype {
	case xsdInteger, xsdInt, xsdLong:
		n, err := strconv.ParseInt(strings.TrimSpace(lexical), 10, 64)
		if err != nil {
			return field.Element{}, fmt.Errorf("%w: %q is not a valid xsd:integer: %v", zkerr.ErrParseError, lexical, err)
		}
		bound := e.cfg.LiteralOverflowBound
		if n > bound || n < -bound {
			return field.Element{}, fmt.Errorf("%w: %d exceeds configured literal overflow bound %d", zkerr.ErrLiteralOverflow, n, bound)
		}
		return field.FromInt64(n), nil
	case xsdBoolean:
		switch strings.TrimSpace(lexical) {
		case "true", "1":
			return field.One(), nil
		case "false", "0":
			return field.Zero(), nil
		default:
			return field.Element{}, fmt.Errorf("%w: %q is not a valid xsd:boolean", zkerr.ErrParseError, lexical)
		}
	case xsdDateTime:
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(lexical))
		if err != nil {
			return field.Element{}, fmt.Errorf("%w: %q is not a valid xsd:dateTime: %v", zkerr.ErrDatetimeParse, lexical, err)
		}
		return field.FromInt64(ts.UnixMilli()), nil
	default:
		return field.Zero(), nil
	}
}

// HasNumericSpecial reports whether t's datatype defines a value-comparable
// special coordinate, i.e. whether C7 may lower an ordered comparison
// (<, <=, >, >=) against it.
func HasNumericSpecial(datatype string) bool {
	switch datatype {
	case xsdInteger, xsdInt, xsdLong, xsdBoolean, xsdDateTime:
		return true
	default:
		return false
	}
}

// SpecialValue exposes the special-coordinate computation for C7's filter
// lowering, which needs the raw comparable value (not hashed into h4) to
// build the hidden range-check witness.
func (e *Encoder) SpecialValue(t Term) (field.Element, error) {
	if t.Type != TermLiteral {
		return field.Element{}, fmt.Errorf("%w: special coordinate only defined for literals", zkerr.ErrTypeError)
	}
	return e.specialCoordinate(t.Value, t.Datatype)
}
