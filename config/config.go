// Package config defines the read-only configuration threaded explicitly
// through every zkrdf entry point. There is no global mutable configuration
// singleton (spec.md §5, §9): a Config value is constructed once, via
// functional options in the style of the teacher's generic constructors, and
// passed down through normalization, lowering, witness building and
// verification.
package config

import (
	"fmt"
)

// HashID identifies a registered HashOracle implementation (field §6.1).
type HashID string

// SignerID identifies a registered Signer implementation (field §6.1).
type SignerID string

// BackendID identifies a registered proof Backend implementation (field §6.1).
type BackendID string

const (
	// HashPoseidon2BN254 is the default hash oracle: a SNARK-friendly
	// permutation over the BN254 scalar field (SPEC_FULL.md §B).
	HashPoseidon2BN254 HashID = "poseidon2-bn254"
	// HashMiMCBN254 is an alternate hash oracle, useful for circuits that
	// already budget for MiMC rounds elsewhere.
	HashMiMCBN254 HashID = "mimc-bn254"
)

const (
	// SignerEdDSABN254 is the default signer: EdDSA over the twisted
	// Edwards curve embedded in BN254.
	SignerEdDSABN254 SignerID = "eddsa-bn254"
)

const (
	// BackendFiatShamirReference is the non-succinct reference backend
	// (internal/backend/fsbackend) used for tests and examples. It is NOT
	// a zero-knowledge proof system: it reveals the witness to the
	// verifier. See SPEC_FULL.md §B.
	BackendFiatShamirReference BackendID = "fs-reference"
	// BackendGnarkGroth16BN254 drives a real gnark groth16 circuit over
	// BN254 (internal/backend/gnarkbackend).
	BackendGnarkGroth16BN254 BackendID = "gnark-groth16-bn254"
)

// ByteHashID identifies a registered bytes->field hash provider used for h_s.
type ByteHashID string

const (
	ByteHashBlake3  ByteHashID = "blake3"
	ByteHashBlake2b ByteHashID = "blake2b"
)

// StringPolicy controls the open question (spec.md §9) of whether
// xsd:string-typed literals and plain literals encode identically.
type StringPolicy uint8

const (
	// StringPolicyDistinct keeps xsd:string and plain literals as distinct
	// terms (distinct datatype coordinates). This is the spec's default.
	StringPolicyDistinct StringPolicy = iota
	// StringPolicyUnified treats them as the same term, per RDF 1.1 value
	// semantics, by normalizing the datatype coordinate before encoding.
	StringPolicyUnified
)

// Config is the single immutable configuration value threaded through every
// entry point. Two prove/verify calls MUST use byte-identical configuration
// for encodings to match (invariant 4, spec.md §3).
type Config struct {
	HashID     HashID
	SignerID   SignerID
	BackendID  BackendID
	ByteHashID ByteHashID

	// MerkleDepth (D) upper-bounds dataset size at 2^D quads.
	MerkleDepth uint8

	// PathSegmentMax bounds unrolled property-path length (C5).
	PathSegmentMax uint32

	// LiteralOverflowBound is the maximum absolute magnitude accepted for
	// xsd:integer literals (C2, LiteralOverflow).
	LiteralOverflowBound int64

	// RangeWidth is the bit width of the hidden range-check witnesses C7
	// introduces for ordered comparisons.
	RangeWidth uint32

	// FoldLanguageCase enables BCP 47 case folding of language tags before
	// encoding (spec.md §9 open question).
	FoldLanguageCase bool

	// StringLiteralPolicy resolves the xsd:string/plain-literal open
	// question (spec.md §9).
	StringLiteralPolicy StringPolicy

	// MaxSlots bounds the gnark backend's circuit slot capacity (SPEC_FULL.md
	// §B); unused slots are padded. MaxAssertions is recorded but not read
	// by any backend: the circuit holds exactly the Program's assertions.
	MaxSlots      int
	MaxAssertions int
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithHash selects the HashOracle identifier.
func WithHash(id HashID) Option { return func(c *Config) { c.HashID = id } }

// WithByteHash selects the bytes->field hash provider used for h_s.
func WithByteHash(id ByteHashID) Option { return func(c *Config) { c.ByteHashID = id } }

// WithSigner selects the Signer identifier.
func WithSigner(id SignerID) Option { return func(c *Config) { c.SignerID = id } }

// WithBackend selects the proof Backend identifier.
func WithBackend(id BackendID) Option { return func(c *Config) { c.BackendID = id } }

// WithMerkleDepth sets D, the fixed Merkle tree depth.
func WithMerkleDepth(d uint8) Option { return func(c *Config) { c.MerkleDepth = d } }

// WithPathSegmentMax bounds unrolled property-path length.
func WithPathSegmentMax(n uint32) Option { return func(c *Config) { c.PathSegmentMax = n } }

// WithLiteralOverflowBound bounds accepted xsd:integer magnitude.
func WithLiteralOverflowBound(n int64) Option {
	return func(c *Config) { c.LiteralOverflowBound = n }
}

// WithRangeWidth sets the bit width of hidden range-check witnesses.
func WithRangeWidth(n uint32) Option { return func(c *Config) { c.RangeWidth = n } }

// WithLanguageCaseFolding toggles BCP 47 case folding before encoding.
func WithLanguageCaseFolding(enabled bool) Option {
	return func(c *Config) { c.FoldLanguageCase = enabled }
}

// WithStringLiteralPolicy resolves the xsd:string/plain-literal open question.
func WithStringLiteralPolicy(p StringPolicy) Option {
	return func(c *Config) { c.StringLiteralPolicy = p }
}

// WithCircuitCapacity bounds the gnark reference backend's fixed circuit size.
func WithCircuitCapacity(maxSlots, maxAssertions int) Option {
	return func(c *Config) {
		c.MaxSlots = maxSlots
		c.MaxAssertions = maxAssertions
	}
}

// New builds a Config with sensible defaults (D=20, poseidon2 hash,
// Blake3 h_s, EdDSA signer, fs-reference backend); tests that need a
// smaller tree pass WithMerkleDepth.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		HashID:               HashPoseidon2BN254,
		SignerID:             SignerEdDSABN254,
		BackendID:            BackendFiatShamirReference,
		ByteHashID:           ByteHashBlake3,
		MerkleDepth:          20,
		PathSegmentMax:       8,
		LiteralOverflowBound: 1 << 62,
		RangeWidth:           64,
		FoldLanguageCase:     false,
		StringLiteralPolicy:  StringPolicyDistinct,
		MaxSlots:             64,
		MaxAssertions:        1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the Configuration error kinds of spec.md §7.
func (c *Config) Validate() error {
	if c.MerkleDepth < 1 {
		return fmt.Errorf("%w: merkle depth must be >= 1, got %d", ErrMerkleDepthTooSmall, c.MerkleDepth)
	}
	if c.MerkleDepth > 63 {
		return fmt.Errorf("%w: merkle depth %d overflows leaf-index arithmetic", ErrMerkleDepthTooSmall, c.MerkleDepth)
	}
	if c.RangeWidth == 0 || c.RangeWidth > 250 {
		return fmt.Errorf("%w: range width %d out of bounds", ErrRangeWidthOutOfBounds, c.RangeWidth)
	}
	switch c.HashID {
	case HashPoseidon2BN254, HashMiMCBN254:
	default:
		return fmt.Errorf("%w: unrecognized hash id %q", ErrHashMismatch, c.HashID)
	}
	switch c.ByteHashID {
	case ByteHashBlake3, ByteHashBlake2b:
	default:
		return fmt.Errorf("%w: unrecognized byte-hash id %q", ErrHashMismatch, c.ByteHashID)
	}
	switch c.SignerID {
	case SignerEdDSABN254:
	default:
		return fmt.Errorf("%w: unrecognized signer id %q", ErrUnsupportedSignerScheme, c.SignerID)
	}
	switch c.BackendID {
	case BackendFiatShamirReference, BackendGnarkGroth16BN254:
	default:
		return fmt.Errorf("unrecognized backend id %q", c.BackendID)
	}
	return nil
}

// Capacity returns 2^D, the maximum number of quads a dataset may hold.
func (c *Config) Capacity() uint64 {
	return uint64(1) << c.MerkleDepth
}
