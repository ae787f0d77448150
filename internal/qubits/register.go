package qubits

import (
	"fmt"
	"slices"

	"qconv/internal/errors"
)

// Register is the global qubit register of a build: the append-only set of
// every qubit index referenced so far. Nested builds share one Register.
type Register struct {
	seen  map[int]bool
	limit int
}

// NewRegister creates an empty register. A limit of zero means unbounded.
func NewRegister(limit int) *Register {
	return &Register{seen: make(map[int]bool), limit: limit}
}

// Add records index as referenced
func (r *Register) Add(index int) error {
	if index < 0 || (r.limit > 0 && index >= r.limit) {
		return errors.Allocation(qubitName(index), r.limit)
	}
	r.seen[index] = true
	return nil
}

// Contains reports whether index has been referenced
func (r *Register) Contains(index int) bool {
	return r.seen[index]
}

// Len returns the number of distinct referenced qubits
func (r *Register) Len() int {
	return len(r.seen)
}

// Size returns the width of a register holding every referenced index
func (r *Register) Size() int {
	size := 0
	for index := range r.seen {
		if index+1 > size {
			size = index + 1
		}
	}
	return size
}

// Snapshot returns the referenced indices in ascending order
func (r *Register) Snapshot() []int {
	out := make([]int, 0, len(r.seen))
	for index := range r.seen {
		out = append(out, index)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy, used to simulate resolution without
// touching the build's register
func (r *Register) Clone() *Register {
	c := NewRegister(r.limit)
	for index := range r.seen {
		c.seen[index] = true
	}
	return c
}

// MaxRange caps the indices one loop range may add to an unbounded register
const MaxRange = 1 << 16

// RangeLen returns the number of values of range(start, stop, step). A zero
// step yields none.
func RangeLen(start, stop, step int) int {
	switch {
	case step > 0 && start < stop:
		return (stop - start + step - 1) / step
	case step < 0 && start > stop:
		return (start - stop - step - 1) / -step
	default:
		return 0
	}
}

// AddRange records every value of range(start, stop, step). The bounds are
// checked before anything is recorded.
func (r *Register) AddRange(start, stop, step int) error {
	n := RangeLen(start, stop, step)
	if n == 0 {
		return nil
	}
	last := start + (n-1)*step
	lo, hi := min(start, last), max(start, last)
	if lo < 0 {
		return errors.Allocation(qubitName(lo), r.limit)
	}
	if r.limit > 0 && hi >= r.limit {
		return errors.Allocation(qubitName(hi), r.limit)
	}
	if r.limit <= 0 && n > MaxRange {
		return errors.Allocation(fmt.Sprintf("%d qubits for one loop range", n), MaxRange)
	}
	for v := start; n > 0; n-- {
		r.seen[v] = true
		v += step
	}
	return nil
}
