package ir

import (
	"strings"
	"testing"
)

func TestNewPrinter(t *testing.T) {
	printer := NewPrinter()

	if printer == nil {
		t.Fatal("NewPrinter should not return nil")
	}

	if printer.indent != 0 {
		t.Errorf("NewPrinter should have indent 0, got %d", printer.indent)
	}

	if len(printer.lines) != 0 {
		t.Error("NewPrinter should have empty output")
	}
}

func TestPrintDeclarationsAndAssignments(t *testing.T) {
	a := &Variable{ID: 0, Name: "a", Kind: KindInt}
	b := &Variable{ID: 1, Name: "b", Kind: KindInt}
	f := &Variable{ID: 2, Name: "f", Kind: KindBool}

	program := &Program{
		Statements: []Statement{
			&Declare{Var: b},
			&DeclareWithInit{Var: a, Init: Literal{Kind: KindInt, Text: "5"}},
			&Assign{Target: b, Value: a},
			&DeclareWithInit{Var: f, Init: Literal{Kind: KindBool, Text: "False"}},
		},
	}

	expected := `OPENQASM 3.0;
int[32] b;
int[32] a = 5;
b = a;
bool f = false;`

	if got := Print(program); got != expected {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, expected)
	}
}

func TestPrintMeasurements(t *testing.T) {
	scalar := &Variable{Name: "__bit_0__", Kind: KindBit}
	vector := &Variable{Name: "__bit_1__", Kind: KindBit, Size: 2}

	program := &Program{
		NumQubits: 3,
		Statements: []Statement{
			&Declare{Var: scalar},
			&Measure{Qubit: Qubit{Index: 0}, Target: scalar, Index: -1},
			&Declare{Var: vector},
			&Measure{Qubit: Qubit{Index: 2}, Target: vector, Index: 0},
			&Measure{Qubit: Qubit{Index: 1}, Target: vector, Index: 1},
		},
	}

	expected := `OPENQASM 3.0;
qubit[3] __qubits__;
bit __bit_0__;
measure __qubits__[0] -> __bit_0__;
bit[2] __bit_1__;
measure __qubits__[2] -> __bit_1__[0];
measure __qubits__[1] -> __bit_1__[1];`

	if got := Print(program); got != expected {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, expected)
	}
}

func TestPrintControlFlow(t *testing.T) {
	i := &Variable{Name: "i", Kind: KindInt}
	c := &Variable{Name: "c", Kind: KindBit}

	program := &Program{
		NumQubits: 2,
		IntWidth:  64,
		Subroutines: []*Subroutine{
			{Name: "prep", Body: []Statement{&Gate{Name: "h", Qubits: []Qubit{{Index: 0}}}}},
		},
		Statements: []Statement{
			&Call{Name: "prep"},
			&ForLoop{Var: i, Start: 0, Stop: 2, Step: 1, Body: []Statement{
				&Gate{Name: "h", Qubits: []Qubit{{Expr: "i"}}},
			}},
			&Declare{Var: c},
			&WhileLoop{Cond: c, Body: []Statement{
				&If{Cond: c, Then: []Statement{&Break{}}, Else: []Statement{&Continue{}}},
			}},
			&Gate{Name: "cx", Qubits: []Qubit{{Index: 0}, {Index: 1}}},
		},
	}

	output := Print(program)

	expectedStrings := []string{
		"def prep() {\n    h __qubits__[0];\n}",
		"prep();",
		"for int[64] i in [0:1] {\n    h __qubits__[i];\n}",
		"while (c) {\n    if (c) {\n        break;\n    } else {\n        continue;\n    }\n}",
		"cx __qubits__[0], __qubits__[1];",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("output should contain %q, got:\n%s", expected, output)
		}
	}

	if strings.HasSuffix(output, "\n") {
		t.Error("output should not end with a newline")
	}
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		start, stop, step int
		want              string
	}{
		{0, 3, 1, "[0:2]"},
		{2, 10, 3, "[2:3:9]"},
		{5, 0, -1, "[5:-1:1]"},
	}

	for _, tt := range tests {
		if got := rangeString(tt.start, tt.stop, tt.step); got != tt.want {
			t.Errorf("rangeString(%d, %d, %d) = %q, want %q", tt.start, tt.stop, tt.step, got, tt.want)
		}
	}
}

func TestLiteralString(t *testing.T) {
	tests := []struct {
		lit  Literal
		want string
	}{
		{Literal{Kind: KindBool, Text: "True"}, "true"},
		{Literal{Kind: KindInt, Text: "-7"}, "-7"},
		{Literal{Kind: KindBit, Text: "1"}, "1"},
		{Literal{Kind: KindBit, Text: "0110"}, `"0110"`},
	}

	for _, tt := range tests {
		if got := tt.lit.String(); got != tt.want {
			t.Errorf("Literal%+v.String() = %q, want %q", tt.lit, got, tt.want)
		}
	}
}
