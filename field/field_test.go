package field

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/config"
)

func TestElementArithmetic(t *testing.T) {
	a := FromUint64(3)
	b := FromUint64(4)
	require.True(t, a.Add(b).Equal(FromUint64(7)))
	require.True(t, a.Mul(b).Equal(FromUint64(12)))
	require.False(t, a.Equal(b))
}

func TestHexRoundTrip(t *testing.T) {
	a := FromUint64(123456789)
	s := a.Hex()
	b, err := ParseHex(s)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestSentinelIsStable(t *testing.T) {
	require.True(t, Sentinel().Equal(Sentinel()))
	require.False(t, Sentinel().Equal(Zero()))
}

func TestOracleDeterministic(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	oracle, err := NewOracle(cfg)
	require.NoError(t, err)

	a, b := FromUint64(1), FromUint64(2)
	h1 := oracle.H2(a, b)
	h2 := oracle.H2(a, b)
	require.True(t, h1.Equal(h2), "H2 must be deterministic across invocations")

	h3 := oracle.H2(b, a)
	require.False(t, h1.Equal(h3), "H2 must not be symmetric in its arguments")
}

func TestOracleH4Deterministic(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	oracle, err := NewOracle(cfg)
	require.NoError(t, err)

	elems := [4]Element{FromUint64(1), FromUint64(2), FromUint64(3), FromUint64(4)}
	h1 := oracle.H4(elems[0], elems[1], elems[2], elems[3])
	h2 := oracle.H4(elems[0], elems[1], elems[2], elems[3])
	require.True(t, h1.Equal(h2))
}

func TestHashBytesDeterministic(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	oracle, err := NewOracle(cfg)
	require.NoError(t, err)

	h1 := oracle.HashBytes([]byte("http://example.org/a"))
	h2 := oracle.HashBytes([]byte("http://example.org/a"))
	require.True(t, h1.Equal(h2))

	h3 := oracle.HashBytes([]byte("http://example.org/b"))
	require.False(t, h1.Equal(h3))
}

func TestUnrecognizedHashIDRejected(t *testing.T) {
	_, err := config.New(config.Option(func(c *config.Config) {
		c.HashID = "unknown-hash"
	}))
	require.Error(t, err)
}

// TestElementAlgebraicLaws property-checks the field laws Add/Mul rely on
// everywhere else in the module (commutativity, associativity, and the
// Bytes/SetBytes round trip), generating random elements across many runs
// rather than hand-picking a handful of fixed cases.
func TestElementAlgebraicLaws(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	props := gopter.NewProperties(parameters)

	genElement := gen.UInt64().Map(func(v uint64) Element { return FromUint64(v) })

	props.Property("addition commutes", prop.ForAll(
		func(a, b Element) bool { return a.Add(b).Equal(b.Add(a)) },
		genElement, genElement,
	))
	props.Property("multiplication associates", prop.ForAll(
		func(a, b, c Element) bool { return a.Mul(b).Mul(c).Equal(a.Mul(b.Mul(c))) },
		genElement, genElement, genElement,
	))
	props.Property("Bytes/SetBytes round-trips", prop.ForAll(
		func(a Element) bool {
			b := a.Bytes()
			return SetBytes(b[:]).Equal(a)
		},
		genElement,
	))

	props.TestingRun(t)
}
