package constraint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/zkrdf/field"
)

func TestProgramValidateAcceptsWellFormedRefs(t *testing.T) {
	p := NewProgram()
	p.Roots = []field.Element{field.FromUint64(1)}
	slot := p.AddSlot(0)
	free := p.AddFreeValue()
	p.Assertions = append(p.Assertions, Assertion{
		Kind:  AssertTermEq,
		Left:  SlotValueRef(slot, 0),
		Right: free,
	})
	require.NoError(t, p.Validate())
}

func TestProgramValidateRejectsOutOfRangeSlot(t *testing.T) {
	p := NewProgram()
	p.Roots = []field.Element{field.FromUint64(1)}
	p.Assertions = append(p.Assertions, Assertion{
		Kind: AssertInclusion,
		Slot: 5,
	})
	require.Error(t, p.Validate())
}

func TestAddVariableDedups(t *testing.T) {
	p := NewProgram()
	a := p.AddVariable("x")
	b := p.AddVariable("x")
	require.Equal(t, a, b)
}
