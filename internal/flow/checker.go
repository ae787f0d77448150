// Package flow tracks circuit-control nesting and rejects control transfers
// the circuit IR cannot express.
package flow

import (
	"fmt"

	"qconv/internal/errors"
	"qconv/internal/source"
)

// State is one circuit-control nesting marker
type State int

const (
	Outside State = iota
	InLoop
	InBranch
)

func (s State) String() string {
	switch s {
	case InLoop:
		return "loop"
	case InBranch:
		return "branch"
	default:
		return "outside"
	}
}

// ExitKind is a host-language loop exit construct
type ExitKind int

const (
	Break ExitKind = iota
	Continue
)

func (k ExitKind) String() string {
	if k == Continue {
		return "continue"
	}
	return "break"
}

// Stack is the nesting stack owned by a conversion context
type Stack struct {
	states []State
}

// Top returns the innermost marker, Outside when the stack is empty
func (s *Stack) Top() State {
	if len(s.states) == 0 {
		return Outside
	}
	return s.states[len(s.states)-1]
}

// Depth returns the number of open markers
func (s *Stack) Depth() int { return len(s.states) }

// InsideLoop reports whether any enclosing marker is a loop
func (s *Stack) InsideLoop() bool {
	for _, st := range s.states {
		if st == InLoop {
			return true
		}
	}
	return false
}

func (s *Stack) push(st State) { s.states = append(s.states, st) }

func (s *Stack) pop() (State, bool) {
	if len(s.states) == 0 {
		return Outside, false
	}
	st := s.states[len(s.states)-1]
	s.states = s.states[:len(s.states)-1]
	return st, true
}

// Checker validates structural events against the nesting stack
type Checker struct {
	stack *Stack
}

// NewChecker creates a checker over stack
func NewChecker(stack *Stack) *Checker {
	return &Checker{stack: stack}
}

// EnterLoop pushes a loop marker
func (c *Checker) EnterLoop() { c.stack.push(InLoop) }

// EnterBranch pushes a branch marker
func (c *Checker) EnterBranch() { c.stack.push(InBranch) }

// ExitLoop pops a loop marker
func (c *Checker) ExitLoop(pos source.Position) error { return c.exit(InLoop, pos) }

// ExitBranch pops a branch marker
func (c *Checker) ExitBranch(pos source.Position) error { return c.exit(InBranch, pos) }

func (c *Checker) exit(want State, pos source.Position) error {
	got, ok := c.stack.pop()
	if !ok {
		return errors.Unsupported(fmt.Sprintf("exit from %s with no open block", want), pos)
	}
	if got != want {
		return errors.Unsupported(fmt.Sprintf("exit from %s while inside a %s", want, got), pos)
	}
	return nil
}

// OnEarlyExit validates a break or continue. An exit directly inside a loop
// body is unconditional and has no circuit representation; one guarded by a
// branch inside a loop is kept as a structured statement.
func (c *Checker) OnEarlyExit(kind ExitKind, pos source.Position) error {
	switch {
	case c.stack.Top() == InLoop:
		return errors.EarlyExit(kind.String(), pos)
	case !c.stack.InsideLoop():
		return errors.Unsupported(fmt.Sprintf("'%s' outside of a loop", kind), pos)
	default:
		return nil
	}
}

// Unsupported reports any other construct the front end cannot linearize
func (c *Checker) Unsupported(construct string, pos source.Position) error {
	return errors.Unsupported(construct, pos)
}
