package gnarkbackend

import (
	"github.com/consensys/gnark/frontend"

	"github.com/luxfi/zkrdf/constraint"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/prover"
)

// blank returns a fresh circuit with the same wire shape as tpl but every
// slice independently allocated, so assignWitness/publicAssignment never
// mutate the template compile() already used to build the R1CS.
func blank(tpl *circuit) *circuit {
	c := &circuit{
		depth:      tpl.depth,
		assertions: tpl.assertions,
		rangeWidth: tpl.rangeWidth,
		slotRoot:   tpl.slotRoot,
		varRefs:    tpl.varRefs,
	}
	c.Roots = make([]frontend.Variable, len(tpl.Roots))
	c.Bindings = make([]frontend.Variable, len(tpl.Bindings))
	c.SlotTerms = make([][4]frontend.Variable, len(tpl.SlotTerms))
	c.SlotPaths = make([][]frontend.Variable, len(tpl.SlotPaths))
	c.SlotDirections = make([][]frontend.Variable, len(tpl.SlotDirections))
	c.SlotActive = make([]frontend.Variable, len(tpl.SlotActive))
	for i := range c.SlotPaths {
		c.SlotPaths[i] = make([]frontend.Variable, tpl.depth)
		c.SlotDirections[i] = make([]frontend.Variable, tpl.depth)
	}
	c.FreeValues = make([]frontend.Variable, len(tpl.FreeValues))
	c.HiddenNumeric = make([]frontend.Variable, len(tpl.HiddenNumeric))
	c.BranchFlags = make([]frontend.Variable, len(tpl.BranchFlags))
	c.OptionalFlags = make([]frontend.Variable, len(tpl.OptionalFlags))
	return c
}

func elemVar(e field.Element) frontend.Variable { return e.BigInt() }

func boolVar(b bool) frontend.Variable {
	if b {
		return 1
	}
	return 0
}

// assignWitness builds the full (private + public) assignment for prog/w
// against tpl's fixed shape, zero-filling every slot/assertion slack the
// program didn't use.
func assignWitness(tpl *circuit, prog *constraint.Program, w *prover.Witness) *circuit {
	c := blank(tpl)

	for i := range c.Roots {
		if i < len(prog.Roots) {
			c.Roots[i] = elemVar(prog.Roots[i])
		} else {
			c.Roots[i] = 0
		}
	}
	for i := range c.Bindings {
		if i < len(w.Bindings) {
			c.Bindings[i] = elemVar(w.Bindings[i])
		} else {
			c.Bindings[i] = 0
		}
	}
	for i, slot := range prog.Slots {
		for p := 0; p < 4; p++ {
			c.SlotTerms[i][p] = elemVar(slot.Terms[p])
		}
		for lvl := 0; lvl < tpl.depth; lvl++ {
			if lvl < len(slot.Path) {
				c.SlotPaths[i][lvl] = elemVar(slot.Path[lvl])
				c.SlotDirections[i][lvl] = boolVar(slot.Directions[lvl])
			} else {
				c.SlotPaths[i][lvl] = 0
				c.SlotDirections[i][lvl] = 0
			}
		}
		c.SlotActive[i] = 1
	}
	for i := len(prog.Slots); i < len(c.SlotTerms); i++ {
		for p := 0; p < 4; p++ {
			c.SlotTerms[i][p] = 0
		}
		for lvl := 0; lvl < tpl.depth; lvl++ {
			c.SlotPaths[i][lvl] = 0
			c.SlotDirections[i][lvl] = 0
		}
		c.SlotActive[i] = 0
	}
	for i := range c.FreeValues {
		if i < len(w.FreeValues) {
			c.FreeValues[i] = elemVar(w.FreeValues[i])
		} else {
			c.FreeValues[i] = 0
		}
	}
	for i := range c.HiddenNumeric {
		if i < len(w.HiddenNumeric) {
			c.HiddenNumeric[i] = elemVar(w.HiddenNumeric[i])
		} else {
			c.HiddenNumeric[i] = 0
		}
	}
	for i := range c.BranchFlags {
		if i < len(w.BranchFlags) {
			c.BranchFlags[i] = boolVar(w.BranchFlags[i])
		} else {
			c.BranchFlags[i] = 0
		}
	}
	for i := range c.OptionalFlags {
		if i < len(w.OptionalFlags) {
			c.OptionalFlags[i] = boolVar(w.OptionalFlags[i])
		} else {
			c.OptionalFlags[i] = 0
		}
	}
	return c
}

// publicAssignment builds an assignment carrying only the public wires
// (Roots, Bindings), for frontend.NewWitness(..., frontend.PublicOnly()) on
// the verifier side, which never sees a prover.Witness.
func publicAssignment(tpl *circuit, prog *constraint.Program, disclosedBindings []field.Element) *circuit {
	c := blank(tpl)
	for i := range c.Roots {
		if i < len(prog.Roots) {
			c.Roots[i] = elemVar(prog.Roots[i])
		} else {
			c.Roots[i] = 0
		}
	}
	for i := range c.Bindings {
		if i < len(disclosedBindings) {
			c.Bindings[i] = elemVar(disclosedBindings[i])
		} else {
			c.Bindings[i] = 0
		}
	}
	return c
}
