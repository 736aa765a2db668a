package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/normalize"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/sparql"
)

func testDataset(t *testing.T, oracle field.Oracle, enc *rdf.Encoder, cfg *config.Config, quads []rdf.Quad) Dataset {
	t.Helper()
	tree, err := commitment.Build(oracle, enc, cfg.MerkleDepth, quads)
	require.NoError(t, err)
	return Dataset{Commitment: tree.Commitment(cfg.HashID), PublicKey: field.FromUint64(7)}
}

func TestLowerSimpleBgp(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)

	quads := []rdf.Quad{{
		Subject:   rdf.IRI("http://example.org/alice"),
		Predicate: rdf.IRI("http://example.org/name"),
		Object:    rdf.PlainLiteral("Alice"),
		Graph:     rdf.DefaultGraph(),
	}}
	ds := testDataset(t, oracle, enc, cfg, quads)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ?p ex:name ?name }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, cfg)
	require.NoError(t, err)

	prog, err := Lower(res, ds, oracle, enc, cfg)
	require.NoError(t, err)
	require.Len(t, prog.Slots, 1)
	require.NoError(t, prog.Validate())
}

func TestLowerRejectsUnboundProjectedVariable(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)
	ds := testDataset(t, oracle, enc, cfg, nil)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?missing WHERE { ?p ex:name ?name }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, cfg)
	require.NoError(t, err)

	_, err = Lower(res, ds, oracle, enc, cfg)
	require.Error(t, err)
}

func TestLowerUnionEmitsBranchOneHot(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)
	ds := testDataset(t, oracle, enc, cfg, nil)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { { ?p ex:role ex:Admin } UNION { ?p ex:role ex:User } }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, cfg)
	require.NoError(t, err)

	prog, err := Lower(res, ds, oracle, enc, cfg)
	require.NoError(t, err)
	found := false
	for _, as := range prog.Assertions {
		if as.Kind == constraint.AssertBranchOneHot {
			found = true
		}
	}
	require.True(t, found)
}

func TestLowerNumericFilter(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)
	ds := testDataset(t, oracle, enc, cfg, nil)

	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE { ?p ex:age ?age . FILTER(?age > "18"^^<http://www.w3.org/2001/XMLSchema#integer>) }
	`)
	require.NoError(t, err)
	res, err := normalize.Normalize(a, cfg)
	require.NoError(t, err)

	prog, err := Lower(res, ds, oracle, enc, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, prog.HiddenNumeric)
}
