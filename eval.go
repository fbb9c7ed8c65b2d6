package ratel

import (
	"math/big"
	"strconv"
)

// Evaluate walks a tree against a context and reduces it to a single
// constant. Every expression node evaluates to exactly one Value; errors
// abort the walk immediately.
func Evaluate(n Node, ctx *Context) (Value, error) {
	return eval(n, ctx)
}

// EvalString tokenizes, parses, and evaluates src in ctx.
func EvalString(src string, ctx *Context) (Value, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	r := ctx.root()
	tk := NewTokenizer(r.settings, r.builtins, r.units, r.consts)
	n, err := tk.Parse(src)
	if err != nil {
		return Value{}, err
	}
	return eval(n, ctx)
}

func eval(n Node, ctx *Context) (Value, error) {
	switch n := n.(type) {
	case *Lit:
		return n.Val, nil
	case *Ident:
		return resolveIdent(n, ctx)
	case *ForcedRef:
		return resolveForced(n, ctx)
	case *Unary:
		return evalUnary(n, ctx)
	case *Binary:
		return evalBinary(n, ctx)
	case *Call:
		return evalCall(n, ctx)
	case *Assign:
		v, err := eval(n.X, ctx)
		if err != nil {
			return Value{}, err
		}
		ctx.Assign(n.Name, v)
		return v, nil
	case *FuncDefExpr:
		if !ctx.Settings().UserFunctions {
			return Value{}, evalErr(n, "user-defined function support is disabled")
		}
		fd := &FuncDef{Name: n.Name, Params: n.Params, Body: n.Body}
		ctx.DefineFunc(fd)
		return LambdaValue(&Lambda{Params: n.Params, Body: n.Body}), nil
	case *LambdaLit:
		if !ctx.Settings().Lambdas {
			return Value{}, evalErr(n, "lambda support is disabled")
		}
		// Lambdas are lexically scoped: snapshot the defining environment.
		return LambdaValue(&Lambda{Params: n.Params, Body: n.Body, Env: ctx.Snapshot()}), nil
	case *VectorLit:
		return evalVector(n, ctx)
	case *MatrixLit:
		return evalMatrix(n, ctx)
	case *RangeLit:
		return evalRange(n, ctx)
	case *Comprehension:
		return evalComprehension(n, ctx)
	case *IndexExpr:
		return evalIndex(n, ctx)
	case *SliceExpr:
		return evalSlice(n, ctx)
	case *Seq:
		var v Value
		var err error
		for _, s := range n.Stmts {
			v, err = eval(s, ctx)
			if err != nil {
				return Value{}, err
			}
		}
		return v, nil
	case *Convert:
		return evalConvert(n, ctx)
	case *UnitApply:
		return evalUnitApply(n, ctx)
	default:
		return Value{}, evalErr(n, "internal: unknown node kind")
	}
}

// resolveIdent resolves a bare identifier in general position. The priority
// is variable, then user function, then constant, then unit, then an
// implicit-multiplication split of the name; an identifier that survives
// all of those is undefined.
func resolveIdent(n *Ident, ctx *Context) (Value, error) {
	if v, ok := ctx.Lookup(n.Name); ok {
		return v, nil
	}
	if fd, ok := ctx.LookupFunc(n.Name); ok {
		return LambdaValue(&Lambda{Params: fd.Params, Body: fd.Body, Env: fd.Closure}), nil
	}
	r := ctx.root()
	if v, ok := r.consts.Get(n.Name); ok {
		return v, nil
	}
	if r.settings.Units {
		if u, ok := r.units.Get(n.Name); ok {
			return QuantityValue(&Quantity{Mag: big.NewRat(1, 1), Unit: u}), nil
		}
	}
	if v, ok, err := splitIdent(n.Name, ctx); ok || err != nil {
		return v, err
	}
	return Value{}, evalErr(n, "undefined name "+strconv.Quote(n.Name))
}

// splitIdent is the implicit-multiplication fallback: greedily find the
// longest defined-variable prefix of an unresolved identifier, then
// recursively resolve the remainder, multiplying the parts.
func splitIdent(name string, ctx *Context) (Value, bool, error) {
	if !ctx.Settings().ImplicitMultiply || len(name) < 2 {
		return Value{}, false, nil
	}
	for cut := len(name) - 1; cut >= 1; cut-- {
		head, ok := ctx.Lookup(name[:cut])
		if !ok {
			continue
		}
		tail, err := resolveIdent(&Ident{Name: name[cut:]}, ctx)
		if err != nil {
			continue
		}
		v, err := combine(OpMul, head, tail, ctx.Settings())
		if err != nil {
			return Value{}, true, err
		}
		return v, true, nil
	}
	return Value{}, false, nil
}

// resolveForced resolves $var, @unit, and #const, skipping the priority
// order and failing fast. #const deliberately bypasses variable shadowing.
func resolveForced(n *ForcedRef, ctx *Context) (Value, error) {
	r := ctx.root()
	switch n.Sigil {
	case '$':
		if v, ok := ctx.Lookup(n.Name); ok {
			return v, nil
		}
		return Value{}, evalErr(n, "undefined variable "+strconv.Quote(n.Name))
	case '@':
		if !r.settings.Units {
			return Value{}, evalErr(n, "unit support is disabled")
		}
		if u, ok := r.units.Get(n.Name); ok {
			return QuantityValue(&Quantity{Mag: big.NewRat(1, 1), Unit: u}), nil
		}
		return Value{}, evalErr(n, "undefined unit "+strconv.Quote(n.Name))
	case '#':
		if v, ok := r.consts.Get(n.Name); ok {
			return v, nil
		}
		return Value{}, evalErr(n, "undefined constant "+strconv.Quote(n.Name))
	}
	return Value{}, evalErr(n, "internal: unknown sigil")
}

func evalUnary(n *Unary, ctx *Context) (Value, error) {
	x, err := eval(n.X, ctx)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case OpPos:
		return x, nil
	case OpNeg:
		return negate(x, ctx.Settings())
	case OpNot:
		return BoolValue(!x.Truthy()), nil
	case OpFact:
		return mapUnary(x, factorial)
	case OpPercent:
		// 50% stores 50; coercion divides by 100 at use sites.
		r, ok := x.AsRat()
		if !ok {
			return Value{}, evalErr(n, "cannot take percent of "+x.Kind.String())
		}
		return PercentValue(r), nil
	}
	return Value{}, evalErr(n, "internal: unknown unary operator")
}

func evalBinary(n *Binary, ctx *Context) (Value, error) {
	switch n.Op {
	case OpAnd, OpOr:
		l, err := eval(n.L, ctx)
		if err != nil {
			return Value{}, err
		}
		// Short-circuit: the right side only evaluates when it decides.
		if n.Op == OpAnd && !l.Truthy() {
			return BoolValue(false), nil
		}
		if n.Op == OpOr && l.Truthy() {
			return BoolValue(true), nil
		}
		r, err := eval(n.R, ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r.Truthy()), nil
	}
	l, err := eval(n.L, ctx)
	if err != nil {
		return Value{}, err
	}
	r, err := eval(n.R, ctx)
	if err != nil {
		return Value{}, err
	}
	v, err := combine(n.Op, l, r, ctx.Settings())
	if err != nil {
		return Value{}, errAt(err, n)
	}
	return v, nil
}

// evalCall dispatches a named call. In call position the priority is user
// function, then builtin, then a variable bound to a lambda. The special
// form if evaluates only the selected branch.
func evalCall(n *Call, ctx *Context) (Value, error) {
	r := ctx.root()
	if n.Name == "if" {
		return evalIf(n, ctx)
	}
	if r.trace != nil {
		r.trace.WithField("func", n.Name).Debug("call")
	}
	if fd, ok := ctx.LookupFunc(n.Name); ok {
		return callUser(n, fd, ctx)
	}
	if b, ok := r.builtins.Get(n.Name); ok {
		return callBuiltin(n, b, ctx)
	}
	if v, ok := ctx.Lookup(n.Name); ok {
		if v.Kind == KindLambda {
			return callLambda(n, v.Fn, ctx)
		}
		return Value{}, evalErr(n, "cannot call "+v.Kind.String()+" "+strconv.Quote(n.Name))
	}
	return Value{}, evalErr(n, "undefined function "+strconv.Quote(n.Name))
}

func evalIf(n *Call, ctx *Context) (Value, error) {
	if len(n.Args) < 2 || len(n.Args) > 3 {
		return Value{}, evalErr(n, "if expects 2 or 3 arguments, got "+strconv.Itoa(len(n.Args)))
	}
	cond, err := eval(n.Args[0], ctx)
	if err != nil {
		return Value{}, err
	}
	if cond.Truthy() {
		return eval(n.Args[1], ctx)
	}
	if len(n.Args) == 3 {
		return eval(n.Args[2], ctx)
	}
	return BoolValue(false), nil
}

// callUser applies a user-defined function. A nil closure selects dynamic
// scoping: the body evaluates in a fresh child of the caller's context.
// A snapshot closure gives lexical scoping instead.
func callUser(n *Call, fd *FuncDef, ctx *Context) (Value, error) {
	if len(n.Args) != len(fd.Params) {
		return Value{}, evalErr(n, fd.Name+" expects "+strconv.Itoa(len(fd.Params))+" arguments, got "+strconv.Itoa(len(n.Args)))
	}
	args, err := evalArgs(n.Args, ctx)
	if err != nil {
		return Value{}, err
	}
	rec := ctx.root().rec
	if err := rec.enter(); err != nil {
		return Value{}, errAt(err, n)
	}
	defer rec.exit()
	var frame *Context
	if fd.Closure == nil {
		frame = ctx.Child()
	} else {
		frame = fd.Closure.Child()
	}
	for i, p := range fd.Params {
		frame.Define(p, args[i])
	}
	return eval(fd.Body, frame)
}

func callLambda(n *Call, fn *Lambda, ctx *Context) (Value, error) {
	args, err := evalArgs(n.Args, ctx)
	if err != nil {
		return Value{}, err
	}
	v, err := ApplyLambda(fn, args, ctx)
	if err != nil {
		return Value{}, errAt(err, n)
	}
	return v, nil
}

// ApplyLambda invokes a lambda value on already-evaluated arguments.
func ApplyLambda(fn *Lambda, args []Value, ctx *Context) (Value, error) {
	if len(args) != len(fn.Params) {
		return Value{}, &EvalError{Msg: "lambda expects " + strconv.Itoa(len(fn.Params)) + " arguments, got " + strconv.Itoa(len(args))}
	}
	rec := ctx.root().rec
	if err := rec.enter(); err != nil {
		return Value{}, err
	}
	defer rec.exit()
	var frame *Context
	if fn.Env == nil {
		frame = ctx.Child()
	} else {
		frame = fn.Env.Child()
	}
	for i, p := range fn.Params {
		frame.Define(p, args[i])
	}
	return eval(fn.Body, frame)
}

// callBuiltin enforces arity, evaluates arguments, and broadcasts
// single-argument builtins over vectors and matrices unless opted out.
func callBuiltin(n *Call, b *Builtin, ctx *Context) (Value, error) {
	if len(n.Args) < b.MinArgs || b.MaxArgs >= 0 && len(n.Args) > b.MaxArgs {
		return Value{}, evalErr(n, b.Name+" expects "+b.arityString()+" arguments, got "+strconv.Itoa(len(n.Args)))
	}
	args, err := evalArgs(n.Args, ctx)
	if err != nil {
		return Value{}, err
	}
	inv := &Invocation{Name: b.Name, Ctx: ctx}
	if !b.NoBroadcast && len(args) == 1 {
		switch args[0].Kind {
		case KindVector, KindMatrix, KindRange:
			v, err := mapUnary(args[0], func(e Value) (Value, error) {
				return b.Fn(inv, []Value{e})
			})
			if err != nil {
				return Value{}, errAt(err, n)
			}
			return v, nil
		}
	}
	v, err := b.Fn(inv, args)
	if err != nil {
		return Value{}, errAt(err, n)
	}
	return v, nil
}

func evalArgs(nodes []Node, ctx *Context) ([]Value, error) {
	args := make([]Value, len(nodes))
	for i, a := range nodes {
		v, err := eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// errAt attaches a node's position to an eval error that lacks one.
func errAt(err error, n Node) error {
	if ee, ok := err.(*EvalError); ok && ee.Line == 0 {
		ee.Line, ee.Col = n.Pos()
	}
	return err
}

func evalVector(n *VectorLit, ctx *Context) (Value, error) {
	if !ctx.Settings().Vectors {
		return Value{}, evalErr(n, "vector support is disabled")
	}
	out, err := evalArgs(n.Elems, ctx)
	if err != nil {
		return Value{}, err
	}
	return VectorValue(out), nil
}

func evalMatrix(n *MatrixLit, ctx *Context) (Value, error) {
	if !ctx.Settings().Matrices {
		return Value{}, evalErr(n, "matrix support is disabled")
	}
	out := make([][]Value, len(n.Rows))
	for i, row := range n.Rows {
		out[i] = make([]Value, len(row))
		for j, e := range row {
			v, err := eval(e, ctx)
			if err != nil {
				return Value{}, err
			}
			if !v.IsScalar() {
				return Value{}, evalErr(e, "matrix elements must be scalars, got "+v.Kind.String())
			}
			out[i][j] = v
		}
	}
	return MatrixValue(out), nil
}

func evalRange(n *RangeLit, ctx *Context) (Value, error) {
	start, err := evalRat(n.Start, ctx, "range start")
	if err != nil {
		return Value{}, err
	}
	end, err := evalRat(n.End, ctx, "range end")
	if err != nil {
		return Value{}, err
	}
	step := big.NewRat(1, 1)
	if end.Cmp(start) < 0 {
		step = big.NewRat(-1, 1)
	}
	if n.Step != nil {
		step, err = evalRat(n.Step, ctx, "range step")
		if err != nil {
			return Value{}, err
		}
		if step.Sign() == 0 {
			return Value{}, evalErr(n.Step, "range step cannot be zero")
		}
	}
	return RangeValue(&Range{Start: start, End: end, Step: step}), nil
}

func evalRat(n Node, ctx *Context, what string) (*big.Rat, error) {
	v, err := eval(n, ctx)
	if err != nil {
		return nil, err
	}
	r, ok := v.AsRat()
	if !ok {
		return nil, evalErr(n, what+" must be numeric, got "+v.Kind.String())
	}
	return r, nil
}

func evalComprehension(n *Comprehension, ctx *Context) (Value, error) {
	s := ctx.Settings()
	if !s.Comprehensions {
		return Value{}, evalErr(n, "comprehension support is disabled")
	}
	src, err := eval(n.Source, ctx)
	if err != nil {
		return Value{}, err
	}
	elems, err := iterable(src, s.MaxVectorSize)
	if err != nil {
		return Value{}, errAt(err, n.Source)
	}
	frame := ctx.Child()
	var out []Value
	for _, e := range elems {
		frame.Define(n.Var, e)
		if n.Cond != nil {
			keep, err := eval(n.Cond, frame)
			if err != nil {
				return Value{}, err
			}
			if !keep.Truthy() {
				continue
			}
		}
		v, err := eval(n.Expr, frame)
		if err != nil {
			return Value{}, err
		}
		if len(out) >= s.MaxVectorSize {
			return Value{}, evalErr(n, "comprehension exceeds maximum vector size "+strconv.Itoa(s.MaxVectorSize))
		}
		out = append(out, v)
	}
	return VectorValue(out), nil
}

// iterable adapts a value to a sequence of elements.
func iterable(v Value, maxSize int) ([]Value, error) {
	switch v.Kind {
	case KindVector:
		return v.Vec, nil
	case KindRange:
		return v.Rng.Materialize(maxSize)
	case KindMatrix:
		out := make([]Value, len(v.Mat))
		for i, row := range v.Mat {
			out[i] = VectorValue(row)
		}
		return out, nil
	case KindString:
		rs := []rune(v.Str)
		out := make([]Value, len(rs))
		for i, r := range rs {
			out[i] = StringValue(string(r))
		}
		return out, nil
	}
	return nil, &EvalError{Msg: "cannot iterate over " + v.Kind.String()}
}

func evalIndex(n *IndexExpr, ctx *Context) (Value, error) {
	x, err := eval(n.X, ctx)
	if err != nil {
		return Value{}, err
	}
	iv, err := eval(n.I, ctx)
	if err != nil {
		return Value{}, err
	}
	idx, err := intIndex(iv)
	if err != nil {
		return Value{}, errAt(err, n.I)
	}
	// Indexing is 1-based throughout.
	switch x.Kind {
	case KindVector:
		if idx < 1 || idx > len(x.Vec) {
			return Value{}, evalErr(n, "index "+strconv.Itoa(idx)+" out of range [1, "+strconv.Itoa(len(x.Vec))+"]")
		}
		return x.Vec[idx-1], nil
	case KindMatrix:
		if idx < 1 || idx > len(x.Mat) {
			return Value{}, evalErr(n, "row index "+strconv.Itoa(idx)+" out of range [1, "+strconv.Itoa(len(x.Mat))+"]")
		}
		return VectorValue(x.Mat[idx-1]), nil
	case KindString:
		rs := []rune(x.Str)
		if idx < 1 || idx > len(rs) {
			return Value{}, evalErr(n, "index "+strconv.Itoa(idx)+" out of range [1, "+strconv.Itoa(len(rs))+"]")
		}
		return StringValue(string(rs[idx-1])), nil
	case KindRange:
		elems, err := x.Rng.Materialize(ctx.Settings().MaxVectorSize)
		if err != nil {
			return Value{}, errAt(err, n)
		}
		if idx < 1 || idx > len(elems) {
			return Value{}, evalErr(n, "index "+strconv.Itoa(idx)+" out of range [1, "+strconv.Itoa(len(elems))+"]")
		}
		return elems[idx-1], nil
	}
	return Value{}, evalErr(n, "cannot index "+x.Kind.String())
}

func intIndex(v Value) (int, error) {
	r, ok := v.AsRat()
	if !ok {
		return 0, &EvalError{Msg: "index must be numeric, got " + v.Kind.String()}
	}
	i, isInt := ratIsInt(r)
	if !isInt {
		return 0, &EvalError{Msg: "index must be an integer"}
	}
	return int(i), nil
}

func evalSlice(n *SliceExpr, ctx *Context) (Value, error) {
	x, err := eval(n.X, ctx)
	if err != nil {
		return Value{}, err
	}
	var elems []Value
	switch x.Kind {
	case KindVector:
		elems = x.Vec
	case KindRange:
		elems, err = x.Rng.Materialize(ctx.Settings().MaxVectorSize)
		if err != nil {
			return Value{}, errAt(err, n)
		}
	case KindString:
		rs := []rune(x.Str)
		lo, hi, err := sliceBounds(n, ctx, len(rs))
		if err != nil {
			return Value{}, err
		}
		return StringValue(string(rs[lo-1 : hi])), nil
	default:
		return Value{}, evalErr(n, "cannot slice "+x.Kind.String())
	}
	lo, hi, err := sliceBounds(n, ctx, len(elems))
	if err != nil {
		return Value{}, err
	}
	out := make([]Value, hi-lo+1)
	copy(out, elems[lo-1:hi])
	return VectorValue(out), nil
}

// sliceBounds evaluates 1-based inclusive bounds, defaulting to the whole
// sequence when either end is omitted.
func sliceBounds(n *SliceExpr, ctx *Context, length int) (lo, hi int, err error) {
	lo, hi = 1, length
	if n.Lo != nil {
		v, err := eval(n.Lo, ctx)
		if err != nil {
			return 0, 0, err
		}
		if lo, err = intIndex(v); err != nil {
			return 0, 0, errAt(err, n.Lo)
		}
	}
	if n.Hi != nil {
		v, err := eval(n.Hi, ctx)
		if err != nil {
			return 0, 0, err
		}
		if hi, err = intIndex(v); err != nil {
			return 0, 0, errAt(err, n.Hi)
		}
	}
	if lo < 1 || hi > length || lo > hi+1 {
		return 0, 0, evalErr(n, "slice ["+strconv.Itoa(lo)+":"+strconv.Itoa(hi)+"] out of range for length "+strconv.Itoa(length))
	}
	return lo, hi, nil
}

func evalConvert(n *Convert, ctx *Context) (Value, error) {
	r := ctx.root()
	if !r.settings.Units {
		return Value{}, evalErr(n, "unit support is disabled")
	}
	to, ok := r.units.Get(n.Unit)
	if !ok {
		return Value{}, evalErr(n, "undefined unit "+strconv.Quote(n.Unit))
	}
	x, err := eval(n.X, ctx)
	if err != nil {
		return Value{}, err
	}
	if x.Kind != KindQuantity {
		return Value{}, evalErr(n, "cannot convert unitless "+x.Kind.String()+" to "+n.Unit)
	}
	q, err := x.Quant.Convert(to)
	if err != nil {
		return Value{}, errAt(err, n)
	}
	return QuantityValue(q), nil
}

func evalUnitApply(n *UnitApply, ctx *Context) (Value, error) {
	r := ctx.root()
	if !r.settings.Units {
		return Value{}, evalErr(n, "unit support is disabled")
	}
	u, ok := r.units.Get(n.Unit)
	if !ok {
		return Value{}, evalErr(n, "undefined unit "+strconv.Quote(n.Unit))
	}
	x, err := eval(n.X, ctx)
	if err != nil {
		return Value{}, err
	}
	mag, ok := x.AsRat()
	if !ok {
		return Value{}, evalErr(n, "cannot apply unit "+n.Unit+" to "+x.Kind.String())
	}
	return QuantityValue(&Quantity{Mag: mag, Unit: u}), nil
}
