package field

import (
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/zkrdf/config"
)

// Oracle is the abstract hash provider C1 specifies: h2 and h4 are
// field-to-field compression functions, hash_bytes reduces an arbitrary byte
// string into F (used by encode_string, spec.md §4.1). Two prove/verify
// calls MUST be configured with the identical Oracle (invariant 4).
type Oracle interface {
	// H2 is the two-to-one compression function used for Merkle internal
	// nodes and the type-code/value-encoding pair in encode_term.
	H2(a, b Element) Element
	// H4 is the four-to-one compression function used for quad encoding
	// and the 4-coordinate literal encoding.
	H4(a, b, c, d Element) Element
	// HashBytes reduces an arbitrary byte string into F.
	HashBytes(data []byte) Element
	// ID returns the identifier disclosed in the envelope (spec.md §6.1).
	ID() config.HashID
}

// NewOracle constructs the Oracle registered under cfg.HashID, using
// cfg.ByteHashID for HashBytes. Unrecognized identifiers are rejected rather
// than silently defaulted (spec.md §9 "Plugin architecture for
// hashes/signers").
func NewOracle(cfg *config.Config) (Oracle, error) {
	byteHasher, err := newByteHasher(cfg.ByteHashID)
	if err != nil {
		return nil, err
	}
	switch cfg.HashID {
	case config.HashPoseidon2BN254:
		return &sumHasher{
			id:         cfg.HashID,
			newHash:    poseidon2.NewMerkleDamgardHasher,
			byteHasher: byteHasher,
		}, nil
	case config.HashMiMCBN254:
		return &sumHasher{
			id:         cfg.HashID,
			newHash:    mimc.NewMiMC,
			byteHasher: byteHasher,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized hash id %q", config.ErrHashMismatch, cfg.HashID)
	}
}

// sumHasher adapts a gnark-crypto hash.Hash factory (poseidon2's
// Merkle-Damgard sponge, or mimc.NewMiMC — both implement hash.Hash by
// writing field-element byte representations and summing) into the Oracle
// interface. Both providers follow the same write-then-sum shape, grounded
// on parsdao-pars/zk/poseidon.go's use of poseidon2.NewMerkleDamgardHasher.
type sumHasher struct {
	id         config.HashID
	newHash    func() hash.Hash
	byteHasher byteHasher
}

func (s *sumHasher) ID() config.HashID { return s.id }

func (s *sumHasher) compress(elems ...Element) Element {
	h := s.newHash()
	for _, e := range elems {
		b := e.Bytes()
		h.Write(b[:])
	}
	return SetBytes(h.Sum(nil))
}

func (s *sumHasher) H2(a, b Element) Element       { return s.compress(a, b) }
func (s *sumHasher) H4(a, b, c, d Element) Element { return s.compress(a, b, c, d) }

func (s *sumHasher) HashBytes(data []byte) Element {
	return s.byteHasher.hashBytes(data)
}

// byteHasher reduces an arbitrary-length byte string into F for
// encode_string (spec.md §4.1). Two independent providers are registered
// (blake3 from the pack's parsdao-pars dependency, blake2b from
// golang.org/x/crypto) so Config can disclose which one a given deployment
// uses, per the "reject unrecognized identifiers" design note.
type byteHasher interface {
	hashBytes(data []byte) Element
}

func newByteHasher(id config.ByteHashID) (byteHasher, error) {
	switch id {
	case config.ByteHashBlake3:
		return blake3Hasher{}, nil
	case config.ByteHashBlake2b:
		return blake2bHasher{}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized byte-hash id %q", config.ErrHashMismatch, id)
	}
}

type blake2bHasher struct{}

func (blake2bHasher) hashBytes(data []byte) Element {
	digest := blake2b.Sum256(data)
	return FromBytesLE(digest[:])
}
