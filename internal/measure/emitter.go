// Package measure emits qubit measurements into freshly declared bit
// variables.
package measure

import (
	"fmt"

	"fortio.org/safecast"

	"qconv/internal/errors"
	"qconv/internal/ir"
	"qconv/internal/program"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

// Emitter appends measurement statements to a conversion context
type Emitter struct {
	ctx    *program.Context
	strict bool
}

// NewEmitter creates an emitter for ctx
func NewEmitter(ctx *program.Context) *Emitter {
	return &Emitter{ctx: ctx, strict: ctx.Config().StrictMeasure}
}

// Width returns the bit variable width for n resolved qubits: a vector of n
// for n > 1, otherwise a scalar
func Width(n int) int {
	if n > 1 {
		return n
	}
	return 0
}

// Measure resolves target (nil for every qubit referenced so far), declares
// a new bit variable named name (an anonymous one when name is empty) and
// measures each qubit into it in resolution order.
//
// Measuring zero qubits still declares a scalar bit that nothing writes,
// unless strict measurement is configured.
func (e *Emitter) Measure(target qubits.Identifier, name string, pos source.Position) (*ir.Variable, error) {
	qs, err := e.Resolve(target, pos)
	if err != nil {
		return nil, err
	}
	return e.MeasureQubits(qs, name, pos)
}

// Resolve returns the qubits a measurement of target reads at this point of
// the build
func (e *Emitter) Resolve(target qubits.Identifier, pos source.Position) ([]ir.Qubit, error) {
	qs, err := e.ctx.Resolver().Resolve(target)
	if err != nil {
		return nil, errors.At(errors.As(err), pos)
	}
	return qs, nil
}

// MeasureQubits measures already resolved qubits into a new bit variable
func (e *Emitter) MeasureQubits(qs []ir.Qubit, name string, pos source.Position) (*ir.Variable, error) {
	if len(qs) == 0 && e.strict {
		return nil, errors.New(errors.KindUnsupportedFeature, "measurement of an empty qubit set", pos).
			WithNote("no qubit has been referenced before this measurement").
			Build()
	}

	if _, err := safecast.Conv[uint32](len(qs)); err != nil {
		return nil, errors.New(errors.KindAllocation,
			fmt.Sprintf("cannot allocate bit[%d] for measurement", len(qs)), pos).Build()
	}

	if name == "" {
		name = e.ctx.NewBitName()
	}
	bits, err := e.ctx.NewVariable(name, ir.KindBit, Width(len(qs)))
	if err != nil {
		return nil, errors.At(errors.As(err), pos)
	}
	if err := e.ctx.Declare(bits); err != nil {
		return nil, errors.At(errors.As(err), pos)
	}
	if err := e.emit(qs, bits); err != nil {
		return nil, errors.At(errors.As(err), pos)
	}
	return bits, nil
}

// MeasureInto measures qs again into an already declared bit variable whose
// width matches
func (e *Emitter) MeasureInto(bits *ir.Variable, qs []ir.Qubit, pos source.Position) error {
	if bits.Kind != ir.KindBit || bits.Size != Width(len(qs)) {
		return errors.TypeMismatch(bits.Name, bits.TypeName(0), fmt.Sprintf("bit measurement of %d qubit(s)", len(qs)), pos)
	}
	if err := e.emit(qs, bits); err != nil {
		return errors.At(errors.As(err), pos)
	}
	return nil
}

func (e *Emitter) emit(qs []ir.Qubit, bits *ir.Variable) error {
	if len(qs) == 1 {
		return e.ctx.Append(&ir.Measure{Qubit: qs[0], Target: bits, Index: -1})
	}
	for i, q := range qs {
		if err := e.ctx.Append(&ir.Measure{Qubit: q, Target: bits, Index: i}); err != nil {
			return err
		}
	}
	return nil
}
