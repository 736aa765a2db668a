// Package gnarkbackend implements the succinct proof backend
// (config.BackendGnarkGroth16BN254) over a real gnark groth16 circuit
// (SPEC_FULL.md §B). The circuit has a fixed slot capacity
// (Config.MaxSlots): a lowered constraint.Program with fewer slots is padded
// with disabled slots. Its assertions are compiled exactly as the Program
// lists them; Config.MaxAssertions is not read.
//
// The in-circuit hash oracle is always MiMC (gnark ships a std/hash/mimc
// gadget with exact parity to the gnark-crypto MiMC used outside circuits);
// Poseidon2 remains the default for the fs-reference backend and for
// datasets that never need a succinct proof, but a Program destined for this
// backend must be built under config.HashMiMCBN254 (see DESIGN.md).
package gnarkbackend

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	gnarkconstraint "github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"

	zkbackend "github.com/luxfi/zkrdf/backend"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/prover"
	"github.com/luxfi/zkrdf/zkerr"
)

// Backend is the groth16/BN254 backend.Backend implementation.
type Backend struct {
	cfg *config.Config
}

// New constructs the gnark backend bound to cfg's circuit capacity.
func New(cfg *config.Config) *Backend { return &Backend{cfg: cfg} }

func (b *Backend) ID() config.BackendID { return config.BackendGnarkGroth16BN254 }

// circuit is the fixed-shape R1CS the whole module's constraint family
// compiles to. Every slot/assertion costs its rows whether active or not —
// the same fixed-capacity tradeoff commitment.Tree already makes for depth.
type circuit struct {
	// Public inputs: disclosed dataset roots, disclosed variable bindings.
	Roots    []frontend.Variable `gnark:",public"`
	Bindings []frontend.Variable `gnark:",public"`

	// Witness (private).
	SlotTerms      [][4]frontend.Variable
	SlotPaths      [][]frontend.Variable
	SlotDirections [][]frontend.Variable
	SlotActive     []frontend.Variable

	FreeValues    []frontend.Variable
	HiddenNumeric []frontend.Variable
	BranchFlags   []frontend.Variable
	OptionalFlags []frontend.Variable

	// depth/assertions/rangeWidth/slotRoot/varRefs are compile-time shape,
	// not circuit wires: they close over the same Program every Prove/
	// Verify call for a given query recompiles the circuit from, so the
	// R1CS structure (not just the assignment) is identical between the
	// two sides.
	depth      int
	assertions []constraint.Assertion
	rangeWidth uint32
	slotRoot   []int
	varRefs    []constraint.ValueRef
}

func newTemplate(prog *constraint.Program, cfg *config.Config) *circuit {
	c := &circuit{
		depth:      int(cfg.MerkleDepth),
		assertions: prog.Assertions,
		rangeWidth: cfg.RangeWidth,
		slotRoot:   make([]int, cfg.MaxSlots),
	}
	c.Roots = make([]frontend.Variable, len(prog.Roots))
	c.Bindings = make([]frontend.Variable, len(prog.Variables))
	c.varRefs = prog.VariableRefs

	c.SlotTerms = make([][4]frontend.Variable, cfg.MaxSlots)
	c.SlotPaths = make([][]frontend.Variable, cfg.MaxSlots)
	c.SlotDirections = make([][]frontend.Variable, cfg.MaxSlots)
	c.SlotActive = make([]frontend.Variable, cfg.MaxSlots)
	for i := range c.SlotPaths {
		c.SlotPaths[i] = make([]frontend.Variable, c.depth)
		c.SlotDirections[i] = make([]frontend.Variable, c.depth)
		if i < len(prog.Slots) {
			c.slotRoot[i] = prog.Slots[i].RootIndex
		}
	}

	c.FreeValues = make([]frontend.Variable, maxInt(len(prog.FreeValues), 1))
	c.HiddenNumeric = make([]frontend.Variable, maxInt(len(prog.HiddenNumeric), 1))
	c.BranchFlags = make([]frontend.Variable, maxInt(prog.BranchFlagCount, 1))
	c.OptionalFlags = make([]frontend.Variable, maxInt(prog.OptionalFlagCount, 1))
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *circuit) valueOf(ref constraint.ValueRef) frontend.Variable {
	if ref.Kind == constraint.RefSlot {
		return c.SlotTerms[ref.Slot][ref.Position]
	}
	return c.FreeValues[ref.Free]
}

func (c *circuit) guardVar(api frontend.API, kind constraint.GuardKind, idx int, want bool) frontend.Variable {
	switch kind {
	case constraint.GuardBranch:
		if want {
			return c.BranchFlags[idx]
		}
		return api.Sub(1, c.BranchFlags[idx])
	case constraint.GuardOptional:
		if want {
			return c.OptionalFlags[idx]
		}
		return api.Sub(1, c.OptionalFlags[idx])
	default:
		return frontend.Variable(1)
	}
}

// Define builds the R1CS: for every slot, a MiMC Merkle-inclusion check
// relaxed by SlotActive; for every assertion, its arithmetic constraint
// relaxed by its guard variable. A circuit has no control flow, so an
// inactive branch's constraints are not skipped but multiplied down to
// trivially-true — the standard gnark idiom for conditional constraints.
func (c *circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	for i, terms := range c.SlotTerms {
		h.Reset()
		h.Write(terms[0], terms[1], terms[2], terms[3])
		cur := h.Sum()
		for lvl := 0; lvl < c.depth; lvl++ {
			sibling := c.SlotPaths[i][lvl]
			dir := c.SlotDirections[i][lvl]
			left := api.Select(dir, sibling, cur)
			right := api.Select(dir, cur, sibling)
			h.Reset()
			h.Write(left, right)
			cur = h.Sum()
		}
		root := c.Roots[c.slotRoot[i]]
		api.AssertIsEqual(api.Mul(api.Sub(cur, root), c.SlotActive[i]), 0)
	}

	rc := newRangeChecker(api, c.rangeWidth)

	for _, a := range c.assertions {
		guard := c.guardVar(api, a.GuardKind, a.GuardIndex, a.GuardValue)
		switch a.Kind {
		case constraint.AssertTermEq, constraint.AssertUnify:
			l := c.valueOf(a.Left)
			r := c.valueOf(a.Right)
			api.AssertIsEqual(api.Mul(api.Sub(l, r), guard), 0)
		case constraint.AssertVarBind:
			v := c.valueOf(a.Bound)
			api.AssertIsEqual(api.Mul(api.Sub(v, a.Value.BigInt()), guard), 0)
		case constraint.AssertBranchOneHot:
			sum := frontend.Variable(0)
			for _, f := range a.BranchFlags {
				sum = api.Add(sum, c.BranchFlags[f])
			}
			api.AssertIsEqual(sum, 1)
		case constraint.AssertOptionalFlag:
			g := c.OptionalFlags[a.FlagIndex]
			api.AssertIsEqual(api.Mul(g, api.Sub(1, g)), 0)
		case constraint.AssertFilterPred:
			if err := c.defineFilterPred(api, rc, a, guard); err != nil {
				return err
			}
		}
	}

	for i, ref := range c.varRefs {
		api.AssertIsEqual(c.valueOf(ref), c.Bindings[i])
	}
	return nil
}

func compile(prog *constraint.Program, cfg *config.Config) (gnarkconstraint.ConstraintSystem, *circuit, error) {
	tpl := newTemplate(prog, cfg)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, tpl)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: circuit compile failed: %v", zkerr.ErrBackendError, err)
	}
	return ccs, tpl, nil
}

func (b *Backend) Prove(_ context.Context, prog *constraint.Program, w *prover.Witness, cfg *config.Config) (*zkbackend.Proof, error) {
	ccs, tpl, err := compile(prog, cfg)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: groth16 setup failed: %v", zkerr.ErrBackendError, err)
	}
	assignment := assignWitness(tpl, prog, w)
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: witness assignment failed: %v", zkerr.ErrBackendError, err)
	}
	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		return nil, fmt.Errorf("%w: groth16 prove failed: %v", zkerr.ErrBackendError, err)
	}

	var proofBuf, vkBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", zkerr.ErrBackendError, err)
	}
	if _, err := vk.WriteTo(&vkBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", zkerr.ErrBackendError, err)
	}
	return &zkbackend.Proof{BackendID: b.ID(), ProofData: proofBuf.Bytes(), VerifyKey: vkBuf.Bytes()}, nil
}

func (b *Backend) Verify(_ context.Context, prog *constraint.Program, proof *zkbackend.Proof, disclosedBindings []field.Element) error {
	if proof.BackendID != config.BackendGnarkGroth16BN254 {
		return fmt.Errorf("%w: proof was produced by backend %q, not %q", zkerr.ErrVerifyFailed, proof.BackendID, config.BackendGnarkGroth16BN254)
	}
	_, tpl, err := compile(prog, b.cfg)
	if err != nil {
		return err
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(proof.VerifyKey)); err != nil {
		return fmt.Errorf("%w: %v", zkerr.ErrVerifyFailed, err)
	}
	gProof := groth16.NewProof(ecc.BN254)
	if _, err := gProof.ReadFrom(bytes.NewReader(proof.ProofData)); err != nil {
		return fmt.Errorf("%w: %v", zkerr.ErrVerifyFailed, err)
	}
	pubAssignment := publicAssignment(tpl, prog, disclosedBindings)
	pubWitness, err := frontend.NewWitness(pubAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: %v", zkerr.ErrVerifyFailed, err)
	}
	if err := groth16.Verify(gProof, vk, pubWitness); err != nil {
		return fmt.Errorf("%w: %v", zkerr.ErrVerifyFailed, err)
	}
	return nil
}
