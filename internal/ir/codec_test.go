package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPreservesRendering(t *testing.T) {
	a := &Variable{ID: 0, Name: "a", Kind: KindInt, Declared: true}
	m := &Variable{ID: 1, Name: "m", Kind: KindBit, Size: 2, Declared: true}
	i := &Variable{ID: 2, Name: "i", Kind: KindInt, Declared: true}
	// same ID as a, from an independent subroutine frame
	s := &Variable{ID: 0, Name: "s", Kind: KindBool, Declared: true}

	program := &Program{
		Version:   "3.0",
		IntWidth:  32,
		NumQubits: 2,
		Subroutines: []*Subroutine{{Name: "flip", Body: []Statement{
			&DeclareWithInit{Var: s, Init: Literal{Kind: KindBool, Text: "true"}},
			&Gate{Name: "x", Qubits: []Qubit{{Index: 1}}},
		}}},
		Statements: []Statement{
			&DeclareWithInit{Var: a, Init: Literal{Kind: KindInt, Text: "1"}},
			&Declare{Var: m},
			&Measure{Qubit: Qubit{Index: 1}, Target: m, Index: 0},
			&Measure{Qubit: Qubit{Index: 0}, Target: m, Index: 1},
			&ForLoop{Var: i, Start: 0, Stop: 2, Step: 1, Body: []Statement{
				&Gate{Name: "h", Qubits: []Qubit{{Expr: "i"}}},
				&Assign{Target: a, Value: i},
			}},
			&If{Cond: a, Then: []Statement{&Call{Name: "flip"}}},
		},
	}

	data, err := Marshal(program)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, Print(program), Print(decoded))

	loop := decoded.Statements[4].(*ForLoop)
	assign := loop.Body[1].(*Assign)
	assert.Same(t, decoded.Statements[0].(*DeclareWithInit).Var, assign.Target,
		"references to one variable decode to one instance")
	assert.NotSame(t, decoded.Subroutines[0].Body[0].(*DeclareWithInit).Var, assign.Target)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xc1})
	assert.Error(t, err)
}
