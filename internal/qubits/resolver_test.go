package qubits

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qconv/internal/errors"
	"qconv/internal/ir"
)

func indices(qs []ir.Qubit) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.Index
	}
	return out
}

func TestResolveAllOnEmptyRegister(t *testing.T) {
	r := NewResolver(NewRegister(0), nil)

	qs, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestResolveScalarRegistersIndex(t *testing.T) {
	reg := NewRegister(0)
	r := NewResolver(reg, nil)

	qs, err := r.Resolve(Index(3))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, indices(qs))
	assert.True(t, reg.Contains(3))
	assert.Equal(t, 4, reg.Size())
	assert.Equal(t, 1, reg.Len())
}

func TestResolveListPreservesOrderAndDuplicates(t *testing.T) {
	reg := NewRegister(0)
	r := NewResolver(reg, nil)

	qs, err := r.Resolve(List{Index(2), Index(0), Index(2)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 2}, indices(qs))
	assert.Equal(t, []int{0, 2}, reg.Snapshot())
}

func TestResolveAllIsEagerAndMonotonic(t *testing.T) {
	reg := NewRegister(0)
	r := NewResolver(reg, nil)

	_, err := r.Resolve(Index(1))
	require.NoError(t, err)

	first, err := r.Resolve(All{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, indices(first))

	_, err = r.Resolve(List{Index(4), Index(0)})
	require.NoError(t, err)

	second, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, indices(second))
	assert.Subset(t, indices(second), indices(first))

	// the earlier expansion is a snapshot
	assert.Equal(t, []int{1}, indices(first))
}

func TestResolveNameThroughLookup(t *testing.T) {
	bindings := map[string]Identifier{
		"q":     Index(5),
		"pair":  List{Name("q"), Index(0)},
		"loopy": Name("loopy"),
	}
	lookup := func(name string) (Identifier, bool) {
		id, ok := bindings[name]
		return id, ok
	}
	r := NewResolver(NewRegister(0), lookup)

	qs, err := r.Resolve(Name("pair"))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0}, indices(qs))

	_, err = r.Resolve(Name("missing"))
	assert.True(t, stderrors.Is(err, errors.ErrUndefinedName))

	_, err = r.Resolve(Name("loopy"))
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFeature))
}

func TestResolveDynamicRegistersSpan(t *testing.T) {
	reg := NewRegister(0)
	r := NewResolver(reg, nil)

	qs, err := r.Resolve(Dynamic{Expr: "i", Start: 0, Stop: 3, Step: 1})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.True(t, qs[0].IsDynamic())
	assert.Equal(t, "i", qs[0].Expr)
	assert.Equal(t, []int{0, 1, 2}, reg.Snapshot())
}

func TestResolveDynamicChecksBoundsFirst(t *testing.T) {
	reg := NewRegister(4)
	r := NewResolver(reg, nil)

	_, err := r.Resolve(Dynamic{Expr: "i", Start: 0, Stop: 100000000, Step: 1})
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))
	assert.Zero(t, reg.Len(), "nothing is recorded when the range overflows")

	_, err = r.Resolve(Dynamic{Expr: "i", Start: 3, Stop: -1, Step: -2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, reg.Snapshot())

	_, err = r.Resolve(Dynamic{Expr: "i", Start: 5, Stop: 0, Step: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestUnboundedRangeIsCapped(t *testing.T) {
	reg := NewRegister(0)
	r := NewResolver(reg, nil)

	_, err := r.Resolve(Dynamic{Expr: "i", Start: 0, Stop: MaxRange + 1, Step: 1})
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))
	assert.Zero(t, reg.Len())

	_, err = r.Resolve(Dynamic{Expr: "i", Start: 0, Stop: MaxRange, Step: 1})
	require.NoError(t, err)
	assert.Equal(t, MaxRange, reg.Size())
}

func TestRangeLen(t *testing.T) {
	assert.Equal(t, 3, RangeLen(0, 3, 1))
	assert.Equal(t, 2, RangeLen(0, 4, 3))
	assert.Equal(t, 2, RangeLen(3, -1, -2))
	assert.Equal(t, 0, RangeLen(3, 3, 1))
	assert.Equal(t, 0, RangeLen(0, 3, 0))
	assert.Equal(t, 0, RangeLen(0, 3, -1))
}

func TestRegisterLimit(t *testing.T) {
	r := NewResolver(NewRegister(2), nil)

	_, err := r.Resolve(Index(1))
	require.NoError(t, err)

	_, err = r.Resolve(Index(2))
	assert.True(t, stderrors.Is(err, errors.ErrAllocation))
}

func TestCloneIsIndependent(t *testing.T) {
	reg := NewRegister(0)
	require.NoError(t, reg.Add(0))

	clone := reg.Clone()
	require.NoError(t, clone.Add(7))

	assert.False(t, reg.Contains(7))
	assert.True(t, clone.Contains(0))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier(3))
	assert.True(t, IsIdentifier([]int{0, 1}))
	assert.True(t, IsIdentifier(Name("q")))
	assert.True(t, IsIdentifier(All{}))
	assert.False(t, IsIdentifier("q"))
	assert.False(t, IsIdentifier(1.5))

	id, ok := FromValue([]int{1, 0})
	require.True(t, ok)
	assert.Equal(t, List{Index(1), Index(0)}, id)
}
