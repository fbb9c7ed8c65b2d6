package ratel

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Context is an evaluation context: a parent-chained mapping of names to
// values plus a user-function table. Lookups walk the parent chain; Assign
// mutates the frame where a name is already bound, else defines locally,
// which gives closures their expected update semantics.
//
// A Context is not safe for concurrent mutation. Share compiled trees
// freely, but give each goroutine its own session context or serialize.
type Context struct {
	parent *Context
	vars   map[string]Value
	funcs  map[string]*FuncDef

	// The fields below are shared by every frame in a chain and are only
	// set on the root.
	settings *Settings
	units    UnitRegistry
	consts   ConstRegistry
	builtins FuncRegistry
	rec      *recursionTracker
	trace    *logrus.Logger
}

// ContextOption configures a new root context.
type ContextOption interface {
	ctxOption(*Context)
}

type (
	settingsOpt struct{ s *Settings }
	unitsOpt    struct{ r UnitRegistry }
	constsOpt   struct{ r ConstRegistry }
	funcsOpt    struct{ r FuncRegistry }
	varOpt      struct {
		name string
		val  Value
	}
	traceOpt struct{ log *logrus.Logger }
)

func (o settingsOpt) ctxOption(c *Context) { c.settings = o.s }
func (o unitsOpt) ctxOption(c *Context)    { c.units = o.r }
func (o constsOpt) ctxOption(c *Context)   { c.consts = o.r }
func (o funcsOpt) ctxOption(c *Context)    { c.builtins = o.r }
func (o varOpt) ctxOption(c *Context)      { c.vars[o.name] = o.val }
func (o traceOpt) ctxOption(c *Context)    { c.trace = o.log }

// WithSettings sets the engine settings for the context.
func WithSettings(s *Settings) ContextOption { return settingsOpt{s} }

// WithUnits replaces the unit registry.
func WithUnits(r UnitRegistry) ContextOption { return unitsOpt{r} }

// WithConstants replaces the constant registry.
func WithConstants(r ConstRegistry) ContextOption { return constsOpt{r} }

// WithFunctions replaces the builtin function registry.
func WithFunctions(r FuncRegistry) ContextOption { return funcsOpt{r} }

// WithVar predefines a variable.
func WithVar(name string, val Value) ContextOption { return varOpt{name, val} }

// WithTrace attaches a logger that receives debug-level evaluation traces.
func WithTrace(log *logrus.Logger) ContextOption { return traceOpt{log} }

// NewContext creates a root evaluation context with the default settings and
// registries, then applies the options in order.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		vars:     make(map[string]Value),
		funcs:    make(map[string]*FuncDef),
		settings: DefaultSettings(),
		units:    DefaultUnits(),
		consts:   DefaultConstants(),
		builtins: DefaultFuncs(),
	}
	for _, opt := range opts {
		opt.ctxOption(c)
	}
	c.rec = &recursionTracker{max: c.settings.MaxRecursionDepth}
	return c
}

// Child creates a fresh frame whose lookups fall through to c.
func (c *Context) Child() *Context {
	return &Context{parent: c, vars: make(map[string]Value), funcs: make(map[string]*FuncDef)}
}

func (c *Context) root() *Context {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Settings returns the engine settings governing this context chain.
func (c *Context) Settings() *Settings { return c.root().settings }

// Lookup walks the parent chain for a variable binding.
func (c *Context) Lookup(name string) (Value, bool) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Define binds name in this frame, shadowing any outer binding.
func (c *Context) Define(name string, v Value) {
	c.vars[name] = v
}

// Assign updates the nearest frame where name is already bound; if none,
// it defines name locally.
func (c *Context) Assign(name string, v Value) {
	for f := c; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return
		}
	}
	c.vars[name] = v
}

// LookupFunc walks the parent chain for a user function.
func (c *Context) LookupFunc(name string) (*FuncDef, bool) {
	for f := c; f != nil; f = f.parent {
		if fn, ok := f.funcs[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// DefineFunc binds a user function in this frame.
func (c *Context) DefineFunc(fn *FuncDef) {
	c.funcs[fn.Name] = fn
}

// Snapshot flattens the chain into a parentless copy, freezing the
// environment a lambda closes over at creation time. Inner frames shadow
// outer ones, and the shared root configuration is carried along.
func (c *Context) Snapshot() *Context {
	n := &Context{
		vars:  make(map[string]Value),
		funcs: make(map[string]*FuncDef),
	}
	var frames []*Context
	for f := c; f != nil; f = f.parent {
		frames = append(frames, f)
	}
	// Outermost first so inner frames overwrite.
	for i := len(frames) - 1; i >= 0; i-- {
		for k, v := range frames[i].vars {
			n.vars[k] = v
		}
		for k, v := range frames[i].funcs {
			n.funcs[k] = v
		}
	}
	r := c.root()
	n.settings = r.settings
	n.units = r.units
	n.consts = r.consts
	n.builtins = r.builtins
	n.rec = r.rec
	n.trace = r.trace
	return n
}

// Reset removes all variables and user functions from the context chain's
// current frame.
func (c *Context) Reset() {
	c.vars = make(map[string]Value)
	c.funcs = make(map[string]*FuncDef)
}

// Names returns the variable names bound anywhere in the chain, used by the
// implicit-multiplication splitter and by shells for completion.
func (c *Context) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for f := c; f != nil; f = f.parent {
		for k := range f.vars {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// recursionTracker bounds call depth deterministically. Every call site
// pairs enter with exit across both normal and error returns.
type recursionTracker struct {
	depth int
	max   int
}

func (r *recursionTracker) enter() error {
	if r.depth >= r.max {
		return &EvalError{Msg: "maximum recursion depth " + strconv.Itoa(r.max) + " exceeded"}
	}
	r.depth++
	return nil
}

func (r *recursionTracker) exit() {
	r.depth--
}
