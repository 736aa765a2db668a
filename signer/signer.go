// Package signer implements C4: the pluggable Signer interface datasets are
// authenticated under, and the concrete eddsa-bn254 scheme (spec.md §4.3,
// §6.1). A Signer signs and verifies over a committed dataset's Merkle
// root, never over individual quads.
package signer

import (
	"crypto/rand"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/zkerr"
)

// Signature is the opaque, scheme-specific signature bytes over a Merkle
// root (spec.md §6.1's "(root, signature, public_key)" tuple).
type Signature []byte

// PublicKey is the opaque, scheme-specific public key bytes.
type PublicKey []byte

// Signer is the abstract dataset-authentication interface. Two prove/verify
// calls MUST be configured with the identical Signer scheme (invariant 4).
type Signer interface {
	// Sign produces a signature over root under priv.
	Sign(root field.Element, priv []byte) (Signature, error)
	// Verify reports whether sig is a valid signature over root under pub.
	Verify(root field.Element, sig Signature, pub PublicKey) bool
	// ID returns the identifier disclosed in the envelope (spec.md §6.1).
	ID() config.SignerID
}

// New constructs the Signer registered under cfg.SignerID. Unrecognized
// identifiers are rejected rather than silently defaulted (spec.md §9).
func New(cfg *config.Config) (Signer, error) {
	switch cfg.SignerID {
	case config.SignerEdDSABN254:
		return &eddsaSigner{}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized signer id %q", config.ErrUnsupportedSignerScheme, cfg.SignerID)
	}
}

// GenerateKeyPair produces a fresh EdDSA-BN254 key pair suitable for signing
// a committed dataset's root. Key generation is ambient tooling (not one of
// C1-C9's core operations) provided so callers and tests don't need to
// reach into gnark-crypto directly.
func GenerateKeyPair() (priv []byte, pub PublicKey, err error) {
	key, err := eddsa.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: eddsa key generation: %v", zkerr.ErrBackendError, err)
	}
	return key.Bytes(), key.PublicKey.Bytes(), nil
}

// PublicKeyFromPrivate derives the public key bytes for an EdDSA-BN254
// private key, so a caller holding only priv (e.g. SignDataset) never has
// to thread the public key through separately.
func PublicKeyFromPrivate(priv []byte) (PublicKey, error) {
	var key eddsa.PrivateKey
	if _, err := key.SetBytes(priv); err != nil {
		return nil, fmt.Errorf("%w: invalid eddsa private key: %v", zkerr.ErrBackendError, err)
	}
	return PublicKey(key.PublicKey.Bytes()), nil
}

// eddsaSigner signs over the Merkle root's canonical byte representation
// using EdDSA on the twisted Edwards curve embedded in BN254, with MiMC as
// the signature scheme's internal hash function — gnark-crypto's own
// pairing of eddsa with mimc for BN254-native circuits.
type eddsaSigner struct{}

func (eddsaSigner) ID() config.SignerID { return config.SignerEdDSABN254 }

func (eddsaSigner) hashFunc() hash.Hash {
	return mimc.NewMiMC()
}

func (s eddsaSigner) Sign(root field.Element, priv []byte) (Signature, error) {
	var key eddsa.PrivateKey
	if _, err := key.SetBytes(priv); err != nil {
		return nil, fmt.Errorf("%w: invalid eddsa private key: %v", zkerr.ErrBackendError, err)
	}
	rootBytes := root.Bytes()
	sig, err := key.Sign(rootBytes[:], s.hashFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: eddsa sign: %v", zkerr.ErrBackendError, err)
	}
	return Signature(sig), nil
}

func (s eddsaSigner) Verify(root field.Element, sig Signature, pub PublicKey) bool {
	var key eddsa.PublicKey
	if _, err := key.SetBytes(pub); err != nil {
		return false
	}
	rootBytes := root.Bytes()
	ok, err := key.Verify(sig, rootBytes[:], s.hashFunc())
	if err != nil {
		return false
	}
	return ok
}
