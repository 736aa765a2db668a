// Package envelope implements C9: the disclosure and proof envelope a
// prover emits and a verifier consumes (spec.md §6). An Envelope bundles
// everything needed to check a proof without access to the source
// dataset: the query, its normalized form, the configuration it was built
// under, the disclosed Merkle root(s), signer public key(s) and
// signatures, the projected variable bindings, the backend's opaque
// proof, and the solution modifiers C5 stripped out for post-processing.
package envelope

import (
	"context"
	"fmt"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/zkrdf/backend"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/normalize"
	"github.com/luxfi/zkrdf/signer"
	"github.com/luxfi/zkrdf/zkerr"
)

// Version is the envelope wire format version, bumped whenever a
// backward-incompatible field is added.
const Version = 1

// WireVersion is Version rendered as a semver string, so a verifier can
// express "I accept any envelope compatible with 1.x" instead of an exact
// integer match, the same compatibility-range idiom gnark itself uses for
// its own backend/curve version gating.
var WireVersion = semver.MustParse("1.0.0")

// CompatibleRange is the semver range Verify checks an envelope's integer
// Version against, before any signature or proof check. Decode does not
// check the version.
var CompatibleRange = semver.MustParseRange(">=1.0.0 <2.0.0")

// Envelope is the complete, self-describing disclosure a prover hands a
// verifier (spec.md §6.1). Roots/PublicKeys/Signatures are parallel slices
// indexed the same way constraint.Program.Roots is (a query may touch more
// than one signed dataset).
type Envelope struct {
	Version int

	QueryText       string
	NormalizedQuery string // a debug-readable rendering, not re-parsed by Verify

	Config config.Config

	Roots      []field.Element
	PublicKeys []signer.PublicKey
	Signatures []signer.Signature

	Variables []string
	Bindings  []field.Element

	Proof backend.Proof

	PostProc normalize.PostProcessing
}

// Encode serializes e to CBOR, the same wire format the module's backends
// already use for opaque witness/proof data (fsbackend, gnark proof bytes
// carried as-is inside Proof).
func Encode(e *Envelope) ([]byte, error) {
	data, err := cbor.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: envelope encode: %v", zkerr.ErrBackendError, err)
	}
	return data, nil
}

// Decode parses a CBOR-encoded Envelope.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", zkerr.ErrVerifyFailed, err)
	}
	return &e, nil
}

// DisclosureInfo summarizes what a query discloses before it is ever
// proven, so a caller can decide whether to proceed (spec.md §6.2's
// "info(query_text, config) -> DisclosureInfo").
type DisclosureInfo struct {
	ProjectedVariables []string
	PostProc           normalize.PostProcessing
	RequiresBackend    config.BackendID
}

// Info reports what a query would disclose under cfg, without touching any
// dataset or running the prover.
func Info(res *normalize.Result, cfg *config.Config) DisclosureInfo {
	return DisclosureInfo{
		ProjectedVariables: res.ProjectVars,
		PostProc:           res.PostProc,
		RequiresBackend:    cfg.BackendID,
	}
}

// VerificationResult is the outcome of verifying an Envelope: whether it
// checked out, and the bindings a caller should treat as the query result.
type VerificationResult struct {
	Valid    bool
	Bindings map[string]field.Element
}

// Verify checks an envelope end to end: first every disclosed root's
// signature (AssertSigOk is a classical signature check the proof backend
// never sees — hiding the signer's identity is not a goal of this system),
// then the backend proof against the envelope's public inputs. Solution
// modifiers (DISTINCT/ORDER BY/LIMIT/OFFSET) are the caller's concern to
// apply afterward, exactly as C5 deferred them out of the proof.
func Verify(ctx context.Context, e *Envelope, prog *constraint.Program, sgn signer.Signer, b backend.Backend) (*VerificationResult, error) {
	declared, err := semver.Parse(fmt.Sprintf("%d.0.0", e.Version))
	if err != nil || !CompatibleRange(declared) {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", zkerr.ErrVerifyFailed, e.Version)
	}
	if len(e.Roots) != len(e.PublicKeys) || len(e.Roots) != len(e.Signatures) {
		return nil, fmt.Errorf("%w: envelope has %d roots, %d public keys, %d signatures", zkerr.ErrVerifyFailed, len(e.Roots), len(e.PublicKeys), len(e.Signatures))
	}
	if len(e.Roots) != len(prog.Roots) {
		return nil, fmt.Errorf("%w: envelope discloses %d roots, program declares %d", zkerr.ErrVerifyFailed, len(e.Roots), len(prog.Roots))
	}
	for i := range e.Roots {
		if !e.Roots[i].Equal(prog.Roots[i]) {
			return nil, fmt.Errorf("%w: disclosed root %d does not match the program it accompanies", zkerr.ErrVerifyFailed, i)
		}
	}

	for _, a := range prog.Assertions {
		if a.Kind != constraint.AssertSigOk {
			continue
		}
		if a.RootIndex >= len(e.Roots) {
			return nil, fmt.Errorf("%w: SigOk assertion references out-of-range root %d", zkerr.ErrVerifyFailed, a.RootIndex)
		}
		if !sgn.Verify(e.Roots[a.RootIndex], e.Signatures[a.RootIndex], e.PublicKeys[a.RootIndex]) {
			return nil, fmt.Errorf("%w: signature over root %d does not verify", zkerr.ErrVerifyFailed, a.RootIndex)
		}
	}

	if err := b.Verify(ctx, prog, &e.Proof, e.Bindings); err != nil {
		return nil, err
	}

	bindings := make(map[string]field.Element, len(e.Variables))
	for i, name := range e.Variables {
		if i < len(e.Bindings) {
			bindings[name] = e.Bindings[i]
		}
	}
	return &VerificationResult{Valid: true, Bindings: bindings}, nil
}
