// Package field provides the prime field element F that every RDF term,
// quad, Merkle node and constraint-program value is encoded into (spec.md
// §3: "An element of a prime field of order >= 2^250").
//
// The concrete field is the BN254 scalar field from gnark-crypto
// (github.com/consensys/gnark-crypto/ecc/bn254/fr), a 254-bit prime field —
// comfortably above the spec's floor, and the field gnark's own BN254
// circuits already operate in, so the gnark backend adapter
// (internal/backend/gnarkbackend) needs no field conversion at the
// boundary (SPEC_FULL.md §B).
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"
)

// Element is a single element of F. The zero value is the additive identity.
type Element struct {
	inner fr.Element
}

// Zero returns the additive identity.
func Zero() Element { return Element{} }

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.inner.SetOne()
	return e
}

// FromUint64 lifts a uint64 into F.
func FromUint64(v uint64) Element {
	var e Element
	e.inner.SetUint64(v)
	return e
}

// FromInt64 lifts a signed int64 into F, wrapping negative values to
// F's additive inverse (two's-complement-free modular representation).
func FromInt64(v int64) Element {
	var e Element
	bi := big.NewInt(v)
	e.inner.SetBigInt(bi)
	return e
}

// FromBigInt reduces a big.Int modulo the field order.
func FromBigInt(v *big.Int) Element {
	var e Element
	e.inner.SetBigInt(v)
	return e
}

// FromBytesLE interprets b as a little-endian integer and reduces it modulo
// the field order — the scheme used by encode_string (spec.md §4.1).
func FromBytesLE(b []byte) Element {
	bi := new(big.Int)
	le := make([]byte, len(b))
	for i, c := range b {
		le[len(b)-1-i] = c
	}
	bi.SetBytes(le)
	return FromBigInt(bi)
}

// Sentinel is the reserved UNBOUND value documented in spec.md §9. h2's
// range is the full field, so no field constant is formally guaranteed
// unreachable; the module fixes 2^251 (a round value with no plausible
// preimage under any configured hash that an honest prover would ever need
// to produce) as the sentinel. It is the same constant under every Config.
func Sentinel() Element {
	one := new(big.Int).Lsh(big.NewInt(1), 251)
	return FromBigInt(one)
}

func (e Element) Add(o Element) Element {
	var r Element
	r.inner.Add(&e.inner, &o.inner)
	return r
}

func (e Element) Sub(o Element) Element {
	var r Element
	r.inner.Sub(&e.inner, &o.inner)
	return r
}

func (e Element) Mul(o Element) Element {
	var r Element
	r.inner.Mul(&e.inner, &o.inner)
	return r
}

func (e Element) Neg() Element {
	var r Element
	r.inner.Neg(&e.inner)
	return r
}

// Equal reports field equality — the only equality the core relies on
// (spec.md §3).
func (e Element) Equal(o Element) bool {
	return e.inner.Equal(&o.inner)
}

func (e Element) IsZero() bool {
	return e.inner.IsZero()
}

// Cmp gives an unsigned ordering over the canonical [0, modulus)
// representatives. The core only relies on this within the bounded
// subrange a range-checked comparison (C7) establishes; general field
// elements have no meaningful "less than".
func (e Element) Cmp(o Element) int {
	ebi := e.BigInt()
	obi := o.BigInt()
	return ebi.Cmp(obi)
}

// BigInt returns the canonical non-negative representative in [0, modulus).
func (e Element) BigInt() *big.Int {
	var bi big.Int
	e.inner.BigInt(&bi)
	return &bi
}

// Bytes returns the big-endian 32-byte canonical representation.
func (e Element) Bytes() [32]byte {
	return e.inner.Bytes()
}

// SetBytes parses a big-endian 32-byte canonical representation.
func SetBytes(b []byte) Element {
	var e Element
	e.inner.SetBytes(b)
	return e
}

// String renders the element as a decimal string, for logging and the
// envelope's hex/JSON disclosure layer.
func (e Element) String() string {
	return e.inner.String()
}

// Hex renders the element as a "0x"-prefixed big-endian hex string, the
// wire representation spec.md §6.3 mandates for field elements.
func (e Element) Hex() string {
	b := e.Bytes()
	return fmt.Sprintf("0x%x", b[:])
}

// ParseHex parses the "0x"-prefixed hex representation produced by Hex.
func ParseHex(s string) (Element, error) {
	bi, ok := new(big.Int).SetString(trimHexPrefix(s), 16)
	if !ok {
		return Element{}, fmt.Errorf("field: invalid hex element %q", s)
	}
	return FromBigInt(bi), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Inner exposes the underlying gnark-crypto element for packages (notably
// internal/backend/gnarkbackend) that need to hand it directly to gnark APIs
// expecting fr.Element / frontend.Variable-compatible big.Int values.
func (e Element) Inner() fr.Element {
	return e.inner
}

// MarshalBinary implements encoding.BinaryMarshaler over the canonical
// 32-byte representation, for encoders that defer to it instead of
// reflecting over Element's unexported inner field.
func (e Element) MarshalBinary() ([]byte, error) {
	b := e.Bytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary.
func (e *Element) UnmarshalBinary(data []byte) error {
	*e = SetBytes(data)
	return nil
}

// MarshalCBOR implements cbor.Marshaler so Element round-trips through the
// envelope's CBOR wire format (SPEC_FULL.md §6) as its canonical 32-byte
// representation rather than as a reflected (and field-unexported, hence
// empty) struct.
func (e Element) MarshalCBOR() ([]byte, error) {
	b := e.Bytes()
	return cbor.Marshal(b[:])
}

// UnmarshalCBOR implements cbor.Unmarshaler, the inverse of MarshalCBOR.
func (e *Element) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	*e = SetBytes(b)
	return nil
}
