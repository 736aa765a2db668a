package sparql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	a, err := Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			?p ex:name ?name .
			?p ex:age ?age .
			FILTER(?age > 18)
		}
	`)
	require.NoError(t, err)
	require.Equal(t, OpProject, a.Op)
	require.Equal(t, []string{"name"}, a.ProjectVars)
	require.Equal(t, OpFilter, a.Inner.Op)
	require.Equal(t, ExprGt, a.Inner.Condition.Op)
}

func TestParseOptionalAndUnion(t *testing.T) {
	a, err := Parse(`
		PREFIX ex: <http://example.org/>
		SELECT * WHERE {
			?p ex:name ?name .
			OPTIONAL { ?p ex:nickname ?nick }
			{ ?p ex:role ex:Admin } UNION { ?p ex:role ex:User }
		}
	`)
	require.NoError(t, err)
	require.Equal(t, OpProject, a.Op)
	require.NotEmpty(t, a.ProjectVars)
}

func TestParseAsk(t *testing.T) {
	a, err := Parse(`
		PREFIX ex: <http://example.org/>
		ASK WHERE { ?p ex:name "Alice" }
	`)
	require.NoError(t, err)
	require.Equal(t, OpAsk, a.Op)
}

func TestParsePropertyPath(t *testing.T) {
	a, err := Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ?x ex:knows/ex:knows ?y }
	`)
	require.NoError(t, err)
	bgp := a.Inner
	require.Equal(t, OpBgp, bgp.Op)
	require.Len(t, bgp.Patterns, 1)
	require.Equal(t, PathSeq, bgp.Patterns[0].Path.Op)
}

func TestParseRejectsAggregates(t *testing.T) {
	_, err := Parse(`SELECT (COUNT(?x) AS ?c) WHERE { ?x ?p ?o }`)
	require.Error(t, err)
}

func TestParseLimitOffset(t *testing.T) {
	a, err := Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ?x ex:p ?o } LIMIT 10 OFFSET 5
	`)
	require.NoError(t, err)
	require.Equal(t, int64(10), a.Limit)
	require.Equal(t, int64(5), a.Offset)
}
