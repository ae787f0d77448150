// Package program owns the conversion context: the single accumulator of IR
// statements for a build, together with its variable table, bindings,
// nesting stack and the shared global qubit register.
package program

import (
	"fmt"

	"github.com/tliron/commonlog"

	"qconv/internal/config"
	"qconv/internal/errors"
	"qconv/internal/flow"
	"qconv/internal/ir"
	"qconv/internal/qubits"
	"qconv/internal/source"
)

var log = commonlog.GetLogger("qconv.program")

var zeroPos source.Position

// Scope is the scoped handle through which contexts are opened. The top
// frame is the active context; outer frames are suspended until it closes.
type Scope struct {
	cfg    config.Config
	frames []*Context
}

// NewScope creates a scope with no open context
func NewScope(cfg config.Config) *Scope {
	return &Scope{cfg: cfg}
}

// Config returns the options shared by every context of the scope
func (s *Scope) Config() config.Config { return s.cfg }

// Depth returns the number of open contexts
func (s *Scope) Depth() int { return len(s.frames) }

// Active returns the innermost open context
func (s *Scope) Active() (*Context, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	return s.frames[len(s.frames)-1], true
}

type openOptions struct {
	reentrant bool
	name      string
}

// OpenOption configures Scope.Open
type OpenOption func(*openOptions)

// Reentrant allows opening a nested frame while another context is open
func Reentrant() OpenOption {
	return func(o *openOptions) { o.reentrant = true }
}

// Named labels the context in logs and errors
func Named(name string) OpenOption {
	return func(o *openOptions) { o.name = name }
}

// Open creates an empty context. When a context is already open the call
// fails unless Reentrant is given, in which case a nested frame sharing the
// outer global register is pushed.
func (s *Scope) Open(opts ...OpenOption) (*Context, error) {
	o := openOptions{name: "main"}
	for _, opt := range opts {
		opt(&o)
	}

	var register *qubits.Register
	if outer, ok := s.Active(); ok {
		if !o.reentrant {
			return nil, errors.New(errors.KindContextClosed,
				fmt.Sprintf("cannot open '%s': context '%s' is already open", o.name, outer.name), zeroPos).
				WithHelp("close the open context first or open a re-entrant nested frame").
				Build()
		}
		register = outer.register
	} else {
		register = qubits.NewRegister(s.cfg.MaxQubits)
	}

	ctx := &Context{
		scope:    s,
		name:     o.name,
		depth:    len(s.frames),
		state:    stateOpen,
		vars:     NewVariableTable(s.cfg.MaxVariables),
		bindings: NewBindings(),
		register: register,
		blocks:   [][]ir.Statement{nil},
	}
	ctx.resolver = qubits.NewResolver(register, ctx.bindings.Lookup)
	ctx.checker = flow.NewChecker(&ctx.nesting)

	s.frames = append(s.frames, ctx)
	log.Debugf("opened context %q at depth %d", ctx.name, ctx.depth)
	return ctx, nil
}

func (s *Scope) remove(ctx *Context) {
	for i, f := range s.frames {
		if f == ctx {
			// frames above ctx cannot outlive it
			for _, above := range s.frames[i+1:] {
				above.state = stateAborted
			}
			s.frames = s.frames[:i]
			return
		}
	}
}

type contextState int

const (
	stateOpen contextState = iota
	stateClosed
	stateAborted
)

// Context accumulates the IR of one build frame
type Context struct {
	scope *Scope
	name  string
	depth int
	state contextState
	cause error

	blocks      [][]ir.Statement
	subroutines []*ir.Subroutine
	vars        *VariableTable
	bindings    *Bindings
	register    *qubits.Register
	resolver    *qubits.Resolver
	nesting     flow.Stack
	checker     *flow.Checker
	bitCounter  int
}

// Name returns the context label
func (c *Context) Name() string { return c.name }

// Depth returns the nesting depth of the frame, zero for the outermost build
func (c *Context) Depth() int { return c.depth }

// Config returns the build options
func (c *Context) Config() config.Config { return c.scope.cfg }

// Variables returns the frame's variable table
func (c *Context) Variables() *VariableTable { return c.vars }

// Bindings returns the frame's host name bindings
func (c *Context) Bindings() *Bindings { return c.bindings }

// Register returns the global qubit register, shared with outer frames
func (c *Context) Register() *qubits.Register { return c.register }

// Resolver returns the qubit resolver bound to this frame's names
func (c *Context) Resolver() *qubits.Resolver { return c.resolver }

// Nesting returns the circuit-control nesting stack
func (c *Context) Nesting() *flow.Stack { return &c.nesting }

// Checker returns the legality checker over the nesting stack
func (c *Context) Checker() *flow.Checker { return c.checker }

// Err returns the error that aborted the context, if any
func (c *Context) Err() error { return c.cause }

func (c *Context) usable(op string) error {
	switch c.state {
	case stateClosed:
		return errors.ContextClosed(op, fmt.Sprintf("context '%s' is closed", c.name))
	case stateAborted:
		return errors.ContextClosed(op, fmt.Sprintf("context '%s' was aborted", c.name))
	}
	if top, ok := c.scope.Active(); !ok || top != c {
		return errors.ContextClosed(op, fmt.Sprintf("context '%s' is suspended by a nested build", c.name))
	}
	return nil
}

// Append adds a statement to the innermost open block
func (c *Context) Append(stmt ir.Statement) error {
	if err := c.usable("append"); err != nil {
		return err
	}
	top := len(c.blocks) - 1
	c.blocks[top] = append(c.blocks[top], stmt)
	return nil
}

// PushBlock starts collecting statements for a nested body
func (c *Context) PushBlock() error {
	if err := c.usable("open block"); err != nil {
		return err
	}
	c.blocks = append(c.blocks, nil)
	return nil
}

// PopBlock ends the innermost nested body and returns its statements
func (c *Context) PopBlock() ([]ir.Statement, error) {
	if err := c.usable("close block"); err != nil {
		return nil, err
	}
	if len(c.blocks) == 1 {
		return nil, errors.Unsupported("closing a block that was never opened", zeroPos)
	}
	top := len(c.blocks) - 1
	body := c.blocks[top]
	c.blocks = c.blocks[:top]
	return body, nil
}

// NewVariable allocates an undeclared variable
func (c *Context) NewVariable(name string, kind ir.Kind, size int) (*ir.Variable, error) {
	if err := c.usable("allocate"); err != nil {
		return nil, err
	}
	return c.vars.New(name, kind, size)
}

// NewBitName returns the next anonymous measurement result name
func (c *Context) NewBitName() string {
	for {
		name := fmt.Sprintf("__bit_%d__", c.bitCounter)
		c.bitCounter++
		if _, taken := c.vars.Lookup(name); !taken {
			return name
		}
	}
}

// Declare emits a bare declaration of v
func (c *Context) Declare(v *ir.Variable) error {
	if err := c.checkUndeclared(v); err != nil {
		return err
	}
	if err := c.Append(&ir.Declare{Var: v}); err != nil {
		return err
	}
	v.Declared = true
	log.Debugf("%s: declare %s %s", c.name, v.Kind, v.Name)
	return nil
}

// DeclareWithInit emits a declaration of v with an initial value
func (c *Context) DeclareWithInit(v *ir.Variable, init ir.Operand) error {
	if err := c.checkUndeclared(v); err != nil {
		return err
	}
	if err := c.Append(&ir.DeclareWithInit{Var: v, Init: init}); err != nil {
		return err
	}
	v.Declared = true
	log.Debugf("%s: declare %s %s = %s", c.name, v.Kind, v.Name, init)
	return nil
}

// Assign emits target = value; target must already be declared
func (c *Context) Assign(target *ir.Variable, value ir.Operand) error {
	if !target.Declared {
		return errors.Unsupported(fmt.Sprintf("assignment to undeclared variable '%s'", target.Name), zeroPos)
	}
	return c.Append(&ir.Assign{Target: target, Value: value})
}

func (c *Context) checkUndeclared(v *ir.Variable) error {
	if v.Declared {
		return errors.Unsupported(fmt.Sprintf("second declaration of '%s'", v.Name), zeroPos)
	}
	return nil
}

// AddSubroutine records a subroutine built in a nested frame
func (c *Context) AddSubroutine(sub *ir.Subroutine) error {
	if err := c.usable("add subroutine"); err != nil {
		return err
	}
	for _, existing := range c.subroutines {
		if existing.Name == sub.Name {
			return errors.Unsupported(fmt.Sprintf("redefinition of subroutine '%s'", sub.Name), zeroPos)
		}
	}
	c.subroutines = append(c.subroutines, sub)
	return nil
}

// HasSubroutine reports whether name was defined in this frame
func (c *Context) HasSubroutine(name string) bool {
	for _, sub := range c.subroutines {
		if sub.Name == name {
			return true
		}
	}
	return false
}

// Close finalizes the context and returns its Program. No statement can be
// appended afterwards and a second Close fails.
func (c *Context) Close() (*ir.Program, error) {
	if err := c.usable("close"); err != nil {
		return nil, err
	}
	if len(c.blocks) != 1 || c.nesting.Depth() != 0 {
		err := errors.Unsupported(fmt.Sprintf("closing context '%s' with %d unterminated block(s)", c.name, len(c.blocks)-1), zeroPos)
		c.Abort(err)
		return nil, err
	}

	cfg := c.scope.cfg
	prog := &ir.Program{
		Version:       cfg.Version,
		IntWidth:      cfg.IntWidth,
		QubitRegister: cfg.QubitRegister,
		NumQubits:     c.register.Size(),
		Subroutines:   c.subroutines,
		Statements:    c.blocks[0],
	}

	c.state = stateClosed
	c.scope.remove(c)
	log.Debugf("closed context %q: %d statement(s), %d variable(s), %d qubit(s)",
		c.name, len(prog.Statements), c.vars.Len(), prog.NumQubits)
	return prog, nil
}

// Abort puts the context in its terminal state after a failed build. The
// statements appended so far are discarded with it.
func (c *Context) Abort(cause error) {
	if c.state == stateOpen {
		log.Debugf("aborting context %q: %v", c.name, cause)
	}
	c.state = stateAborted
	if c.cause == nil {
		c.cause = cause
	}
	c.scope.remove(c)
}
