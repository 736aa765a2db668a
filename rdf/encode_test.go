package rdf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
)

func newEncoder(t *testing.T) *Encoder {
	t.Helper()
	cfg, err := config.New()
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	return NewEncoder(oracle, cfg)
}

func TestEncodeTermDeterministic(t *testing.T) {
	enc := newEncoder(t)
	a, err := enc.EncodeTerm(IRI("http://example.org/alice"))
	require.NoError(t, err)
	b, err := enc.EncodeTerm(IRI("http://example.org/alice"))
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestEncodeTermDistinguishesTypes(t *testing.T) {
	enc := newEncoder(t)
	iri, err := enc.EncodeTerm(IRI("http://example.org/x"))
	require.NoError(t, err)
	blank, err := enc.EncodeTerm(Blank("http://example.org/x"))
	require.NoError(t, err)
	require.False(t, iri.Equal(blank), "an IRI and a blank node with the same label string must not collide")
}

func TestEncodeTermDistinguishesLiteralVsIRI(t *testing.T) {
	enc := newEncoder(t)
	iri, err := enc.EncodeTerm(IRI("42"))
	require.NoError(t, err)
	lit, err := enc.EncodeTerm(PlainLiteral("42"))
	require.NoError(t, err)
	require.False(t, iri.Equal(lit))
}

func TestEncodeLiteralDatatypeMatters(t *testing.T) {
	enc := newEncoder(t)
	a, err := enc.EncodeTerm(TypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"))
	require.NoError(t, err)
	b, err := enc.EncodeTerm(PlainLiteral("42"))
	require.NoError(t, err)
	require.False(t, a.Equal(b), "same lexical form with different datatype must encode differently")
}

func TestEncodeVariableRejected(t *testing.T) {
	enc := newEncoder(t)
	_, err := enc.EncodeTerm(Variable("x"))
	require.Error(t, err)
}

func TestSpecialCoordinateOrdering(t *testing.T) {
	enc := newEncoder(t)
	five, err := enc.SpecialValue(TypedLiteral("5", "http://www.w3.org/2001/XMLSchema#integer"))
	require.NoError(t, err)
	ten, err := enc.SpecialValue(TypedLiteral("10", "http://www.w3.org/2001/XMLSchema#integer"))
	require.NoError(t, err)
	require.Equal(t, -1, five.Cmp(ten))
}

func TestSpecialCoordinateOverflow(t *testing.T) {
	cfg, err := config.New(config.WithLiteralOverflowBound(100))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := NewEncoder(oracle, cfg)

	_, err = enc.SpecialValue(TypedLiteral("1000", "http://www.w3.org/2001/XMLSchema#integer"))
	require.Error(t, err)
}

func TestSpecialCoordinateBadDatetime(t *testing.T) {
	enc := newEncoder(t)
	_, err := enc.SpecialValue(TypedLiteral("not-a-date", "http://www.w3.org/2001/XMLSchema#dateTime"))
	require.Error(t, err)
}

func TestQuadValidateRejectsVariable(t *testing.T) {
	q := Quad{
		Subject:   IRI("http://example.org/s"),
		Predicate: IRI("http://example.org/p"),
		Object:    Variable("o"),
		Graph:     DefaultGraph(),
	}
	require.Error(t, q.Validate())
}

func TestQuadNQuad(t *testing.T) {
	q := Quad{
		Subject:   IRI("http://example.org/s"),
		Predicate: IRI("http://example.org/p"),
		Object:    PlainLiteral("hello"),
		Graph:     DefaultGraph(),
	}
	require.Equal(t, `<http://example.org/s> <http://example.org/p> "hello" .`, q.NQuad())
}

func TestPatternVariables(t *testing.T) {
	p := Pattern{
		Subject:   Variable("s"),
		Predicate: IRI("http://example.org/knows"),
		Object:    Variable("s"),
		Graph:     Variable("g"),
	}
	require.Equal(t, []string{"s", "g"}, p.Variables())
}
