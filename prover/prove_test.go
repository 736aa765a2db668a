package prover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/lower"
	"github.com/luxfi/zkrdf/normalize"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
)

type fixture struct {
	oracle field.Oracle
	enc    *rdf.Encoder
	cfg    *config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg, err := config.New(config.WithMerkleDepth(4))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)
	return fixture{oracle: oracle, enc: enc, cfg: cfg}
}

func (f fixture) build(t *testing.T, quads []rdf.Quad) (*commitment.Tree, lower.Dataset, Dataset) {
	t.Helper()
	tree, err := commitment.Build(f.oracle, f.enc, f.cfg.MerkleDepth, quads)
	require.NoError(t, err)
	lds := lower.Dataset{Commitment: tree.Commitment(f.cfg.HashID), PublicKey: field.FromUint64(9)}
	pds := Dataset{Quads: quads, Tree: tree, Oracle: f.oracle, Encoder: f.enc}
	return tree, lds, pds
}

func TestProveSimpleBgpProducesWitness(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/alice"),
		Predicate: rdf.IRI("http://example.org/name"),
		Object:    rdf.PlainLiteral("Alice"),
		Graph:     rdf.DefaultGraph(),
	}}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ?p ex:name ?name }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	w, err := Prove(context.Background(), prog, pds)
	require.NoError(t, err)
	require.Len(t, w.Bindings, 1)
	expect, err := f.enc.EncodeTerm(rdf.PlainLiteral("Alice"))
	require.NoError(t, err)
	require.True(t, w.Bindings[0].Equal(expect))
}

func TestProveUnsatisfiableQueryFails(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/alice"),
		Predicate: rdf.IRI("http://example.org/name"),
		Object:    rdf.PlainLiteral("Alice"),
		Graph:     rdf.DefaultGraph(),
	}}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { ?p ex:role ex:Admin }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	_, err = Prove(context.Background(), prog, pds)
	require.Error(t, err)
}

func TestProveUnionPicksSatisfiableBranch(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/bob"),
		Predicate: rdf.IRI("http://example.org/role"),
		Object:    rdf.IRI("http://example.org/User"),
		Graph:     rdf.DefaultGraph(),
	}}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { { ?p ex:role ex:Admin } UNION { ?p ex:role ex:User } }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	w, err := Prove(context.Background(), prog, pds)
	require.NoError(t, err)
	expect, err := f.enc.EncodeTerm(rdf.IRI("http://example.org/bob"))
	require.NoError(t, err)
	require.True(t, w.Bindings[0].Equal(expect))
}

func TestProveOptionalUnmatchedResolvesFalse(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/alice"),
		Predicate: rdf.IRI("http://example.org/name"),
		Object:    rdf.PlainLiteral("Alice"),
		Graph:     rdf.DefaultGraph(),
	}}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { ?p ex:name ?name . OPTIONAL { ?p ex:nickname ?nick } }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	w, err := Prove(context.Background(), prog, pds)
	require.NoError(t, err)
	require.Len(t, w.OptionalFlags, 1)
	require.False(t, w.OptionalFlags[0])
}

func TestProveOptionalExclusiveVarResolvesToSentinelWhenUnmatched(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/alice"),
		Predicate: rdf.IRI("http://example.org/name"),
		Object:    rdf.PlainLiteral("Alice"),
		Graph:     rdf.DefaultGraph(),
	}}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p ?nick WHERE { ?p ex:name ?name . OPTIONAL { ?p ex:nickname ?nick } }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	w, err := Prove(context.Background(), prog, pds)
	require.NoError(t, err)
	require.Len(t, w.OptionalFlags, 1)
	require.False(t, w.OptionalFlags[0])

	nickIdx := -1
	for i, v := range prog.Variables {
		if v == "nick" {
			nickIdx = i
		}
	}
	require.GreaterOrEqual(t, nickIdx, 0)
	require.True(t, w.Bindings[nickIdx].Equal(field.Sentinel()))
}

func TestProveNumericFilterRange(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{
		{
			Subject:   rdf.IRI("http://example.org/alice"),
			Predicate: rdf.IRI("http://example.org/age"),
			Object:    rdf.TypedLiteral("30", "http://www.w3.org/2001/XMLSchema#integer"),
			Graph:     rdf.DefaultGraph(),
		},
		{
			Subject:   rdf.IRI("http://example.org/bob"),
			Predicate: rdf.IRI("http://example.org/age"),
			Object:    rdf.TypedLiteral("10", "http://www.w3.org/2001/XMLSchema#integer"),
			Graph:     rdf.DefaultGraph(),
		},
	}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { ?p ex:age ?age . FILTER(?age > "18"^^<http://www.w3.org/2001/XMLSchema#integer>) }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	w, err := Prove(context.Background(), prog, pds)
	require.NoError(t, err)
	expect, err := f.enc.EncodeTerm(rdf.IRI("http://example.org/alice"))
	require.NoError(t, err)
	require.True(t, w.Bindings[0].Equal(expect))
}

func TestProveAmbiguousDatasetDetected(t *testing.T) {
	f := newFixture(t)
	quads := []rdf.Quad{
		{
			Subject:   rdf.IRI("http://example.org/alice"),
			Predicate: rdf.IRI("http://example.org/knows"),
			Object:    rdf.IRI("http://example.org/carol"),
			Graph:     rdf.DefaultGraph(),
		},
		{
			Subject:   rdf.IRI("http://example.org/bob"),
			Predicate: rdf.IRI("http://example.org/knows"),
			Object:    rdf.IRI("http://example.org/carol"),
			Graph:     rdf.DefaultGraph(),
		},
	}
	_, lds, pds := f.build(t, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { ?p ex:knows ex:carol }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, f.cfg)
	require.NoError(t, err)
	prog, err := lower.Lower(res, lds, f.oracle, f.enc, f.cfg)
	require.NoError(t, err)

	_, err = Prove(context.Background(), prog, pds)
	require.Error(t, err)
}
