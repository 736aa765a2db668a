package commitment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/rdf"
)

func testQuads() []rdf.Quad {
	return []rdf.Quad{
		{
			Subject:   rdf.IRI("http://example.org/alice"),
			Predicate: rdf.IRI("http://example.org/knows"),
			Object:    rdf.IRI("http://example.org/bob"),
			Graph:     rdf.DefaultGraph(),
		},
		{
			Subject:   rdf.IRI("http://example.org/bob"),
			Predicate: rdf.IRI("http://example.org/age"),
			Object:    rdf.TypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"),
			Graph:     rdf.DefaultGraph(),
		},
	}
}

func TestBuildAndVerifyInclusion(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)

	quads := testQuads()
	tree, err := Build(oracle, enc, cfg.MerkleDepth, quads)
	require.NoError(t, err)

	commit := tree.Commitment(cfg.HashID)

	for i, q := range quads {
		leaf, err := EncodeQuadLeaf(oracle, enc, q)
		require.NoError(t, err)
		witness, err := tree.Prove(uint64(i))
		require.NoError(t, err)
		require.True(t, VerifyInclusion(oracle, commit, leaf, witness))
	}
}

func TestVerifyInclusionRejectsWrongLeaf(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(3))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)

	quads := testQuads()
	tree, err := Build(oracle, enc, cfg.MerkleDepth, quads)
	require.NoError(t, err)
	commit := tree.Commitment(cfg.HashID)

	witness, err := tree.Prove(0)
	require.NoError(t, err)
	wrongLeaf, err := EncodeQuadLeaf(oracle, enc, quads[1])
	require.NoError(t, err)

	require.False(t, VerifyInclusion(oracle, commit, wrongLeaf, witness))
}

func TestBuildRejectsOversizedDataset(t *testing.T) {
	cfg, err := config.New(config.WithMerkleDepth(1))
	require.NoError(t, err)
	oracle, err := field.NewOracle(cfg)
	require.NoError(t, err)
	enc := rdf.NewEncoder(oracle, cfg)

	quads := testQuads()
	quads = append(quads, quads...) // 4 quads, capacity 2^1 = 2

	_, err = Build(oracle, enc, cfg.MerkleDepth, quads)
	require.Error(t, err)
}
