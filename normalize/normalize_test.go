package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/sparql"
)

func TestNormalizeSimpleSelect(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ?p ex:name ?name }
	`)
	require.NoError(t, err)
	res, err := Normalize(a, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, res.ProjectVars)
	require.Equal(t, sparql.OpBgp, res.Algebra.Op)
}

func TestNormalizeExpandsPropertyPathSequence(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?x ?y WHERE { ?x ex:knows/ex:knows ?y }
	`)
	require.NoError(t, err)
	res, err := Normalize(a, cfg)
	require.NoError(t, err)
	require.Equal(t, sparql.OpJoin, res.Algebra.Op)
}

func TestNormalizeExpandsStarWithinBudget(t *testing.T) {
	cfg, err := config.New(config.WithPathSegmentMax(2))
	require.NoError(t, err)
	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?x ?y WHERE { ?x ex:knows* ?y }
	`)
	require.NoError(t, err)
	res, err := Normalize(a, cfg)
	require.NoError(t, err)
	require.Equal(t, sparql.OpUnion, res.Algebra.Op)
}

func TestNormalizeAskSetsIsAsk(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		ASK WHERE { ?p ex:name "Alice" }
	`)
	require.NoError(t, err)
	res, err := Normalize(a, cfg)
	require.NoError(t, err)
	require.True(t, res.PostProc.IsAsk)
}

func TestNormalizeExpandsIn(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	a, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ?x ex:role ?r . FILTER(?r IN (ex:Admin, ex:User)) }
	`)
	require.NoError(t, err)
	res, err := Normalize(a, cfg)
	require.NoError(t, err)
	require.Equal(t, sparql.OpFilter, res.Algebra.Op)
	require.Equal(t, sparql.ExprOr, res.Algebra.Condition.Op)
}

// TestNormalizePostProcessingStableAcrossParses re-normalizing the same
// query text twice must yield byte-for-byte identical PostProcessing
// (C6/C7 lower a Program from whichever copy a verifier re-parses, so any
// nondeterminism here would silently diverge prover and verifier). cmp.Diff
// gives a readable field-by-field report if that ever regresses, rather than
// just "not equal".
func TestNormalizePostProcessingStableAcrossParses(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	query := `
		PREFIX ex: <http://example.org/>
		SELECT DISTINCT ?x WHERE { ?x ex:role ?r } ORDER BY ?x LIMIT 10 OFFSET 2
	`
	a1, err := sparql.Parse(query)
	require.NoError(t, err)
	res1, err := Normalize(a1, cfg)
	require.NoError(t, err)

	a2, err := sparql.Parse(query)
	require.NoError(t, err)
	res2, err := Normalize(a2, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(res1.PostProc, res2.PostProc); diff != "" {
		t.Fatalf("PostProcessing differs across identical parses (-first +second):\n%s", diff)
	}
}
