// Package backend defines the pluggable proof backend C8's witness is
// handed to (spec.md §5 "Prover Input Builder" / §6 "Disclosure & Proof
// Envelope"). Exactly one concrete backend is selected per Config.BackendID;
// every entry point threads the same Config end to end so a verifier reads
// proofs with the backend that produced them (invariant 4, spec.md §3).
package backend

import (
	"context"

	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/prover"
)

// Proof is an opaque, backend-specific proof blob plus the verifying key
// material a verifier needs, both disclosed as opaque bytes in the envelope
// (spec.md §6.1).
type Proof struct {
	BackendID config.BackendID
	ProofData []byte
	VerifyKey []byte
}

// Backend turns a satisfied constraint.Program + prover.Witness into a
// Proof, and later checks a Proof against the Program's public inputs
// (roots, public keys, disclosed bindings) without the witness.
type Backend interface {
	ID() config.BackendID

	// Prove builds a proof that w satisfies prog, against cfg's circuit
	// capacity parameters. The witness is consumed, never returned.
	Prove(ctx context.Context, prog *constraint.Program, w *prover.Witness, cfg *config.Config) (*Proof, error)

	// Verify checks proof against prog's public inputs alone — it never
	// sees a witness. disclosedBindings holds the same values the envelope
	// discloses for prog.Variables, in that order; implementations that
	// disclose bindings as proof public inputs check them here.
	Verify(ctx context.Context, prog *constraint.Program, proof *Proof, disclosedBindings []field.Element) error
}
