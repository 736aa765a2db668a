package signer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)

	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)

	root := field.FromUint64(42)
	sig, err := s.Sign(root, priv)
	require.NoError(t, err)

	require.True(t, s.Verify(root, sig, pub))
}

func TestVerifyRejectsTamperedRoot(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)

	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)

	root := field.FromUint64(42)
	sig, err := s.Sign(root, priv)
	require.NoError(t, err)

	tampered := field.FromUint64(43)
	require.False(t, s.Verify(tampered, sig, pub))
}

func TestUnrecognizedSignerRejected(t *testing.T) {
	_, err := config.New(config.Option(func(c *config.Config) {
		c.SignerID = "unknown-signer"
	}))
	require.Error(t, err)
}
