package ratel

import (
	"strconv"
)

// Program is a compiled expression: source text plus the parsed tree. A
// Program is immutable once built and safe to share between goroutines;
// each evaluation gets its state from the context it is given.
type Program struct {
	src      string
	tree     Node
	settings *Settings
}

// Compile tokenizes and parses src against the default registries.
func Compile(src string, s *Settings) (*Program, error) {
	if s == nil {
		s = DefaultSettings()
	}
	toks, err := NewTokenizer(s, DefaultFuncs(), DefaultUnits(), DefaultConstants()).Tokenize(src)
	if err != nil {
		return nil, err
	}
	tree, err := ParseTokens(toks, s)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, tree: tree, settings: s}, nil
}

// CompileIn is Compile with the registries of an existing context, so the
// tokenizer classifies user-registered functions and units.
func CompileIn(src string, ctx *Context) (*Program, error) {
	r := ctx.root()
	toks, err := NewTokenizer(r.settings, r.builtins, r.units, r.consts).Tokenize(src)
	if err != nil {
		return nil, err
	}
	tree, err := ParseTokens(toks, r.settings)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, tree: tree, settings: r.settings}, nil
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Tree returns the parsed tree. Callers must not mutate it.
func (p *Program) Tree() Node { return p.tree }

// Evaluate runs the program in ctx. A nil context evaluates against a
// fresh one with the program's settings.
func (p *Program) Evaluate(ctx *Context) (Value, error) {
	if ctx == nil {
		ctx = NewContext(WithSettings(p.settings))
	}
	return eval(p.tree, ctx)
}

// Curve is the single-variable function façade over a compiled program:
// everything a root finder, numeric integrator, or plotter needs. The
// variable name and angle unit are fixed at construction. A Curve owns its
// context, so a single Curve must not be used from multiple goroutines;
// build one per goroutine from the same Program instead.
type Curve struct {
	prog *Program
	name string
	ctx  *Context
}

// NewCurve compiles src as a function of the named variable.
func NewCurve(src, variable string, s *Settings) (*Curve, error) {
	prog, err := Compile(src, s)
	if err != nil {
		return nil, err
	}
	return prog.Curve(variable), nil
}

// Curve binds a compiled program to a variable name.
func (p *Program) Curve(variable string) *Curve {
	return &Curve{
		prog: p,
		name: variable,
		ctx:  NewContext(WithSettings(p.settings)),
	}
}

// At evaluates the curve at x.
func (c *Curve) At(x float64) (float64, error) {
	frame := c.ctx.Child()
	frame.Define(c.name, FloatValue(x))
	v, err := eval(c.prog.tree, frame)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, &EvalError{Msg: "curve value is " + v.Kind.String() + ", not a number"}
	}
	return f, nil
}

// Var returns the curve's variable name.
func (c *Curve) Var() string { return c.name }

func (c *Curve) String() string {
	return c.name + " -> " + c.prog.src
}

// Eval is shorthand for compiling and evaluating src in a throwaway
// context, mostly useful in tests and examples.
func Eval(src string) (Value, error) {
	return EvalString(src, nil)
}

// MustEval is Eval that panics on error.
func MustEval(src string) Value {
	v, err := Eval(src)
	if err != nil {
		panic("ratel: " + strconv.Quote(src) + ": " + err.Error())
	}
	return v
}
