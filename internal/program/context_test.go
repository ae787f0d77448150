package program

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qconv/internal/config"
	"qconv/internal/errors"
	"qconv/internal/ir"
	"qconv/internal/qubits"
)

func openContext(t *testing.T) (*Scope, *Context) {
	t.Helper()
	scope := NewScope(config.Default())
	ctx, err := scope.Open()
	require.NoError(t, err)
	return scope, ctx
}

func TestOpenAppendClose(t *testing.T) {
	scope, ctx := openContext(t)

	a, err := ctx.NewVariable("a", ir.KindInt, 0)
	require.NoError(t, err)
	require.NoError(t, ctx.DeclareWithInit(a, ir.Literal{Kind: ir.KindInt, Text: "5"}))
	assert.True(t, a.Declared)

	prog, err := ctx.Close()
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	assert.Equal(t, 0, scope.Depth())
	assert.Equal(t, "OPENQASM 3.0;\nint[32] a = 5;", ir.Print(prog))
}

func TestAppendAfterCloseFails(t *testing.T) {
	_, ctx := openContext(t)

	_, err := ctx.Close()
	require.NoError(t, err)

	err = ctx.Append(&ir.Break{})
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed))

	_, err = ctx.Close()
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed), "second close fails")
}

func TestOpenTwiceRequiresReentrant(t *testing.T) {
	scope, outer := openContext(t)

	_, err := scope.Open()
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed))

	inner, err := scope.Open(Reentrant(), Named("sub"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.Depth())
	assert.Same(t, outer.Register(), inner.Register(), "nested frames share the register")
	assert.NotSame(t, outer.Variables(), inner.Variables())

	// the outer build is suspended while the nested frame is open
	err = outer.Append(&ir.Break{})
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed))
	_, err = outer.Close()
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed))

	_, err = inner.Resolver().Resolve(qubits.Index(2))
	require.NoError(t, err)

	_, err = inner.Close()
	require.NoError(t, err)

	require.NoError(t, outer.Append(&ir.Gate{Name: "x", Qubits: []ir.Qubit{{Index: 0}}}))
	prog, err := outer.Close()
	require.NoError(t, err)
	assert.Equal(t, 3, prog.NumQubits, "qubits used by the nested build stay visible")
}

func TestIndependentScopesDoNotLeak(t *testing.T) {
	_, first := openContext(t)
	_, second := openContext(t)

	_, err := first.Resolver().Resolve(qubits.Index(4))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Register().Len())
}

func TestAbortIsTerminal(t *testing.T) {
	scope, ctx := openContext(t)
	inner, err := scope.Open(Reentrant())
	require.NoError(t, err)

	cause := errors.Unsupported("goto", zeroPos)
	ctx.Abort(cause)

	assert.Equal(t, 0, scope.Depth())
	assert.Same(t, cause, ctx.Err())

	_, err = ctx.Close()
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed))
	err = inner.Append(&ir.Break{})
	assert.True(t, stderrors.Is(err, errors.ErrContextClosed), "nested frames die with their parent")

	_, err = scope.Open()
	assert.NoError(t, err, "the caller can reopen for a retry")
}

func TestDeclareOnce(t *testing.T) {
	_, ctx := openContext(t)

	v, err := ctx.NewVariable("b", ir.KindBool, 0)
	require.NoError(t, err)
	require.NoError(t, ctx.Declare(v))

	err = ctx.DeclareWithInit(v, ir.Literal{Kind: ir.KindBool, Text: "true"})
	assert.Error(t, err)

	undeclared, err := ctx.NewVariable("c", ir.KindBool, 0)
	require.NoError(t, err)
	assert.Error(t, ctx.Assign(undeclared, v))
}

func TestBlocks(t *testing.T) {
	_, ctx := openContext(t)

	require.NoError(t, ctx.PushBlock())
	require.NoError(t, ctx.Append(&ir.Continue{}))
	body, err := ctx.PopBlock()
	require.NoError(t, err)
	assert.Len(t, body, 1)

	_, err = ctx.PopBlock()
	assert.Error(t, err)

	require.NoError(t, ctx.PushBlock())
	_, err = ctx.Close()
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature), "unterminated block")
}

func TestVariableLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxVariables = 1
	ctx, err := NewScope(cfg).Open()
	require.NoError(t, err)

	_, err = ctx.NewVariable("a", ir.KindInt, 0)
	require.NoError(t, err)
	_, err = ctx.NewVariable("b", ir.KindInt, 0)
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))
}

func TestVariableTableRelease(t *testing.T) {
	table := NewVariableTable(0)

	i, err := table.New("i", ir.KindInt, 0)
	require.NoError(t, err)

	_, err = table.New("i", ir.KindInt, 0)
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))

	table.Release(i)
	again, err := table.New("i", ir.KindInt, 0)
	require.NoError(t, err)
	assert.NotEqual(t, i.ID, again.ID)
	assert.Equal(t, 2, table.Len())

	_, err = table.New("neg", ir.KindBit, -1)
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))
}

func TestNewBitNameSkipsTakenNames(t *testing.T) {
	_, ctx := openContext(t)

	_, err := ctx.NewVariable("__bit_0__", ir.KindBit, 0)
	require.NoError(t, err)

	assert.Equal(t, "__bit_1__", ctx.NewBitName())
	assert.Equal(t, "__bit_2__", ctx.NewBitName())
}

func TestBindingsRestore(t *testing.T) {
	b := NewBindings()
	prev, existed := b.Set("i", Binding{Kind: BindUntyped, Text: "7"})
	assert.False(t, existed)

	b.Restore("i", prev, existed)
	_, ok := b.Get("i")
	assert.False(t, ok)

	b.Set("q", Binding{Kind: BindQubit, Qubits: qubits.Index(1)})
	id, ok := b.Lookup("q")
	require.True(t, ok)
	assert.Equal(t, qubits.Index(1), id)

	_, ok = b.Variable("q")
	assert.False(t, ok)
}
