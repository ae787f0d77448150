package measure

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qconv/internal/config"
	"qconv/internal/errors"
	"qconv/internal/ir"
	"qconv/internal/program"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

var pos = source.Position{Filename: "test.qc", Line: 3, Column: 5}

func open(t *testing.T, cfg config.Config) *program.Context {
	t.Helper()
	ctx, err := program.NewScope(cfg).Open()
	require.NoError(t, err)
	return ctx
}

func measures(t *testing.T, ctx *program.Context) []*ir.Measure {
	t.Helper()
	prog, err := ctx.Close()
	require.NoError(t, err)
	var out []*ir.Measure
	for _, stmt := range prog.Statements {
		if m, ok := stmt.(*ir.Measure); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestWidthLaw(t *testing.T) {
	tests := []struct {
		name     string
		target   qubits.Identifier
		size     int
		measures int
	}{
		{"three qubits", qubits.List{qubits.Index(0), qubits.Index(1), qubits.Index(2)}, 3, 3},
		{"one qubit", qubits.Index(4), 0, 1},
		{"empty register", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := open(t, config.Default())
			bits, err := NewEmitter(ctx).Measure(tt.target, "", pos)
			require.NoError(t, err)

			assert.Equal(t, ir.KindBit, bits.Kind)
			assert.Equal(t, tt.size, bits.Size)
			assert.True(t, bits.Declared)
			assert.Len(t, measures(t, ctx), tt.measures)
		})
	}
}

func TestIndexOrderFollowsResolution(t *testing.T) {
	ctx := open(t, config.Default())
	bits, err := NewEmitter(ctx).Measure(qubits.List{qubits.Index(2), qubits.Index(0)}, "r", pos)
	require.NoError(t, err)
	assert.Equal(t, "r", bits.Name)

	got := measures(t, ctx)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Qubit.Index)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 0, got[1].Qubit.Index)
	assert.Equal(t, 1, got[1].Index)
}

func TestMeasureAllTracksRegister(t *testing.T) {
	ctx := open(t, config.Default())
	e := NewEmitter(ctx)

	_, err := ctx.Resolver().Resolve(qubits.Index(1))
	require.NoError(t, err)
	first, err := e.Measure(nil, "", pos)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Size)

	_, err = ctx.Resolver().Resolve(qubits.Index(3))
	require.NoError(t, err)
	second, err := e.Measure(nil, "", pos)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Size)
	assert.NotEqual(t, first.Name, second.Name)

	prog, err := ctx.Close()
	require.NoError(t, err)
	assert.Equal(t, "OPENQASM 3.0;\n"+
		"qubit[4] __qubits__;\n"+
		"bit __bit_0__;\n"+
		"measure __qubits__[1] -> __bit_0__;\n"+
		"bit[2] __bit_1__;\n"+
		"measure __qubits__[1] -> __bit_1__[0];\n"+
		"measure __qubits__[3] -> __bit_1__[1];", ir.Print(prog))
}

func TestStrictRejectsEmptyMeasurement(t *testing.T) {
	cfg := config.Default()
	cfg.StrictMeasure = true
	ctx := open(t, cfg)

	_, err := NewEmitter(ctx).Measure(nil, "", pos)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature))

	var be *errors.Error
	require.True(t, stderrors.As(err, &be))
	assert.Equal(t, pos, be.Position)
}

func TestMeasureInto(t *testing.T) {
	ctx := open(t, config.Default())
	e := NewEmitter(ctx)

	qs, err := e.Resolve(qubits.All{}, pos)
	require.NoError(t, err)
	assert.Empty(t, qs)

	qs, err = e.Resolve(qubits.Index(0), pos)
	require.NoError(t, err)
	bits, err := e.MeasureQubits(qs, "c", pos)
	require.NoError(t, err)
	require.NoError(t, e.MeasureInto(bits, qs, pos))

	wide, err := e.Resolve(qubits.List{qubits.Index(0), qubits.Index(1)}, pos)
	require.NoError(t, err)
	err = e.MeasureInto(bits, wide, pos)
	assert.True(t, stderrors.Is(err, errors.ErrTypeMismatch))

	assert.Len(t, measures(t, ctx), 2)
}

func TestUndefinedQubitName(t *testing.T) {
	ctx := open(t, config.Default())
	_, err := NewEmitter(ctx).Measure(qubits.Name("q"), "", pos)
	assert.True(t, stderrors.Is(err, errors.ErrUndefinedName))
}
