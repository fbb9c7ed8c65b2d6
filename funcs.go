package ratel

import (
	"math"
	"math/big"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Invocation carries per-call state into a builtin: the name it was called
// by and the context of the call, used for angle-unit conversions.
type Invocation struct {
	Name string
	Ctx  *Context
}

// BuiltinFunc is the implementation of a builtin. Arguments arrive already
// evaluated and within the declared arity bounds.
type BuiltinFunc func(inv *Invocation, args []Value) (Value, error)

// Builtin declares a callable function: its arity bounds and whether the
// dispatcher may broadcast it elementwise over vector arguments. Functions
// that inspect whole sequences or strings opt out of broadcasting.
type Builtin struct {
	Name        string
	MinArgs     int
	MaxArgs     int // -1 means variadic
	NoBroadcast bool
	Fn          BuiltinFunc
}

func (b *Builtin) arityString() string {
	if b.MaxArgs < 0 {
		return "at least " + strconv.Itoa(b.MinArgs)
	}
	if b.MinArgs == b.MaxArgs {
		return strconv.Itoa(b.MinArgs)
	}
	return strconv.Itoa(b.MinArgs) + " to " + strconv.Itoa(b.MaxArgs)
}

// DefaultFuncs returns a fresh registry holding the standard function set.
func DefaultFuncs() FuncTable {
	t := make(FuncTable, len(builtinTable))
	for k, v := range builtinTable {
		t[k] = v
	}
	return t
}

var builtinTable = map[string]*Builtin{
	// if is a special form; the evaluator intercepts it before dispatch.
	// It is registered so the tokenizer classifies the name as a function.
	"if": {Name: "if", MinArgs: 2, MaxArgs: 3, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		return Value{}, &EvalError{Msg: "internal: if must be evaluated lazily"}
	}},

	"sin":  angleIn("sin", math.Sin),
	"cos":  angleIn("cos", math.Cos),
	"tan":  angleIn("tan", math.Tan),
	"asin": angleOut("asin", math.Asin, domainUnit),
	"acos": angleOut("acos", math.Acos, domainUnit),
	"atan": angleOut("atan", math.Atan, nil),
	"atan2": {Name: "atan2", MinArgs: 2, MaxArgs: 2, Fn: func(inv *Invocation, args []Value) (Value, error) {
		y, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		x, err := argFloat(inv, args, 1)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(fromRadians(math.Atan2(y, x), inv.Ctx.Settings().Angle)), nil
	}},
	"sinh":  monadic("sinh", math.Sinh, nil),
	"cosh":  monadic("cosh", math.Cosh, nil),
	"tanh":  monadic("tanh", math.Tanh, nil),
	"asinh": monadic("asinh", math.Asinh, nil),
	"acosh": monadic("acosh", math.Acosh, func(x float64) bool { return x >= 1 }),
	"atanh": monadic("atanh", math.Atanh, func(x float64) bool { return x > -1 && x < 1 }),

	"exp":   monadic("exp", math.Exp, nil),
	"ln":    monadic("ln", math.Log, domainPositive),
	"log":   logBuiltin(),
	"log2":  monadic("log2", math.Log2, domainPositive),
	"log10": monadic("log10", math.Log10, domainPositive),
	"sqrt":  sqrtBuiltin(),
	"cbrt":  monadic("cbrt", math.Cbrt, nil),

	"abs":   exactUnary("abs", absValue),
	"floor": exactUnary("floor", floorValue),
	"ceil":  exactUnary("ceil", ceilValue),
	"trunc": exactUnary("trunc", truncValue),
	"sign":  exactUnary("sign", signValue),
	"round": roundBuiltin(),
	"frac":  exactUnary("frac", fracValue),

	"fact": {Name: "fact", MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		return factorial(args[0])
	}},
	"gcd": intPair("gcd", func(a, b *big.Int) *big.Int { return new(big.Int).GCD(nil, nil, a, b) }),
	"lcm": intPair("lcm", func(a, b *big.Int) *big.Int {
		if a.Sign() == 0 || b.Sign() == 0 {
			return new(big.Int)
		}
		g := new(big.Int).GCD(nil, nil, a, b)
		return new(big.Int).Abs(new(big.Int).Div(new(big.Int).Mul(a, b), g))
	}),

	"min":    aggregate("min", reduceMin),
	"max":    aggregate("max", reduceMax),
	"sum":    aggregate("sum", reduceSum),
	"prod":   aggregate("prod", reduceProd),
	"mean":   aggregate("mean", reduceMean),
	"median": aggregate("median", reduceMedian),

	"len": {Name: "len", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		switch v := args[0]; v.Kind {
		case KindVector:
			return IntValue(int64(len(v.Vec))), nil
		case KindMatrix:
			return IntValue(int64(len(v.Mat))), nil
		case KindString:
			return IntValue(int64(len([]rune(v.Str)))), nil
		case KindRange:
			return IntValue(int64(v.Rng.Len())), nil
		}
		return Value{}, &EvalError{Msg: "len: cannot measure " + args[0].Kind.String()}
	}},
	"sort": {Name: "sort", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		elems, err := builtinElems(inv, args[0], "sort")
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, len(elems))
		copy(out, elems)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			c, err := compareValues(OpLt, out[i], out[j], inv.Ctx.Settings())
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return err == nil && c.Bool
		})
		if sortErr != nil {
			return Value{}, sortErr
		}
		return VectorValue(out), nil
	}},
	"reverse": {Name: "reverse", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if args[0].Kind == KindString {
			rs := []rune(args[0].Str)
			for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
				rs[i], rs[j] = rs[j], rs[i]
			}
			return StringValue(string(rs)), nil
		}
		elems, err := builtinElems(inv, args[0], "reverse")
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		return VectorValue(out), nil
	}},

	"dot": {Name: "dot", MinArgs: 2, MaxArgs: 2, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		a, err := builtinElems(inv, args[0], "dot")
		if err != nil {
			return Value{}, err
		}
		b, err := builtinElems(inv, args[1], "dot")
		if err != nil {
			return Value{}, err
		}
		return dotProduct(a, b, inv.Ctx.Settings())
	}},
	"cross": {Name: "cross", MinArgs: 2, MaxArgs: 2, NoBroadcast: true, Fn: crossProduct},
	"transpose": {Name: "transpose", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		m, err := asMatrix(args[0])
		if err != nil {
			return Value{}, err
		}
		if len(m) == 0 {
			return MatrixValue(nil), nil
		}
		out := make([][]Value, len(m[0]))
		for j := range out {
			out[j] = make([]Value, len(m))
			for i := range m {
				out[j][i] = m[i][j]
			}
		}
		return MatrixValue(out), nil
	}},
	"det": {Name: "det", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		m, err := asMatrix(args[0])
		if err != nil {
			return Value{}, err
		}
		if len(m) == 0 || len(m) != len(m[0]) {
			return Value{}, &EvalError{Msg: "det: matrix must be square"}
		}
		return determinant(m, inv.Ctx.Settings())
	}},
	"identity": {Name: "identity", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		n, err := argInt(args, 0, "identity")
		if err != nil {
			return Value{}, err
		}
		if n < 1 || n > inv.Ctx.Settings().MaxMatrixDim {
			return Value{}, &EvalError{Msg: "identity: size out of range"}
		}
		out := make([][]Value, n)
		for i := range out {
			out[i] = make([]Value, n)
			for j := range out[i] {
				if i == j {
					out[i][j] = IntValue(1)
				} else {
					out[i][j] = IntValue(0)
				}
			}
		}
		return MatrixValue(out), nil
	}},

	"upper": stringUnary("upper", strings.ToUpper),
	"lower": stringUnary("lower", strings.ToLower),
	"str": {Name: "str", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		return StringValue(Format(args[0], inv.Ctx.Settings())), nil
	}},
	"num": {Name: "num", MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if args[0].Kind != KindString {
			return Value{}, &EvalError{Msg: "num: expected a string, got " + args[0].Kind.String()}
		}
		s := strings.TrimSpace(args[0].Str)
		if r, ok := parseRatLexeme(s); ok {
			return RationalValue(r), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatValue(f), nil
		}
		return Value{}, &EvalError{Msg: "num: cannot parse " + strconv.Quote(s)}
	}},

	// Random functions are unseeded; they are the engine's only
	// non-determinism.
	"random": {Name: "random", MinArgs: 0, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if len(args) == 0 {
			return FloatValue(rand.Float64()), nil
		}
		n, err := argInt(args, 0, "random")
		if err != nil {
			return Value{}, err
		}
		if n < 1 {
			return Value{}, &EvalError{Msg: "random: bound must be positive"}
		}
		return IntValue(rand.Int63n(int64(n))), nil
	}},
	"randint": {Name: "randint", MinArgs: 2, MaxArgs: 2, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		lo, err := argInt(args, 0, "randint")
		if err != nil {
			return Value{}, err
		}
		hi, err := argInt(args, 1, "randint")
		if err != nil {
			return Value{}, err
		}
		if hi < lo {
			return Value{}, &EvalError{Msg: "randint: empty interval"}
		}
		return IntValue(int64(lo) + rand.Int63n(int64(hi-lo)+1)), nil
	}},
}

func domainPositive(x float64) bool { return x > 0 }
func domainUnit(x float64) bool     { return x >= -1 && x <= 1 }

// monadic wraps a float function of one variable, with an optional domain
// predicate checked before the call.
func monadic(name string, f func(float64) float64, domain func(float64) bool) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		if domain != nil && !domain(x) {
			return Value{}, &EvalError{Msg: name + ": " + strconv.FormatFloat(x, 'g', -1, 64) + " outside domain"}
		}
		return FloatValue(f(x)), nil
	}}
}

// angleIn wraps a trig function whose argument is an angle in the session's
// angle unit.
func angleIn(name string, f func(float64) float64) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f(toRadians(x, inv.Ctx.Settings().Angle))), nil
	}}
}

// angleOut wraps an inverse trig function whose result is an angle in the
// session's angle unit.
func angleOut(name string, f func(float64) float64, domain func(float64) bool) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		if domain != nil && !domain(x) {
			return Value{}, &EvalError{Msg: name + ": " + strconv.FormatFloat(x, 'g', -1, 64) + " outside domain"}
		}
		return FloatValue(fromRadians(f(x), inv.Ctx.Settings().Angle)), nil
	}}
}

func toRadians(x float64, unit AngleUnit) float64 {
	switch unit {
	case Degrees:
		return x * math.Pi / 180
	case Gradians:
		return x * math.Pi / 200
	}
	return x
}

func fromRadians(x float64, unit AngleUnit) float64 {
	switch unit {
	case Degrees:
		return x * 180 / math.Pi
	case Gradians:
		return x * 200 / math.Pi
	}
	return x
}

// sqrtBuiltin stays exact when the argument is a rational with perfect
// square numerator and denominator.
func sqrtBuiltin() *Builtin {
	return &Builtin{Name: "sqrt", MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if args[0].Kind == KindRational && !inv.Ctx.Settings().ForceDouble {
			r := args[0].Rat
			if r.Sign() < 0 {
				return Value{}, &EvalError{Msg: "sqrt: negative argument"}
			}
			nr := new(big.Int).Sqrt(r.Num())
			dr := new(big.Int).Sqrt(r.Denom())
			if new(big.Int).Mul(nr, nr).Cmp(r.Num()) == 0 && new(big.Int).Mul(dr, dr).Cmp(r.Denom()) == 0 {
				return RationalValue(new(big.Rat).SetFrac(nr, dr)), nil
			}
		}
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		if x < 0 {
			return Value{}, &EvalError{Msg: "sqrt: negative argument"}
		}
		return FloatValue(math.Sqrt(x)), nil
	}}
}

// logBuiltin is log(x) base 10, or log(x, base) with an explicit base.
func logBuiltin() *Builtin {
	return &Builtin{Name: "log", MinArgs: 1, MaxArgs: 2, Fn: func(inv *Invocation, args []Value) (Value, error) {
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		if x <= 0 {
			return Value{}, &EvalError{Msg: "log: " + strconv.FormatFloat(x, 'g', -1, 64) + " outside domain"}
		}
		if len(args) == 1 {
			return FloatValue(math.Log10(x)), nil
		}
		base, err := argFloat(inv, args, 1)
		if err != nil {
			return Value{}, err
		}
		if base <= 0 || base == 1 {
			return Value{}, &EvalError{Msg: "log: invalid base"}
		}
		return FloatValue(math.Log(x) / math.Log(base)), nil
	}}
}

func roundBuiltin() *Builtin {
	return &Builtin{Name: "round", MinArgs: 1, MaxArgs: 2, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if len(args) == 1 {
			return roundValue(args[0])
		}
		places, err := argInt(args, 1, "round")
		if err != nil {
			return Value{}, err
		}
		x, err := argFloat(inv, args, 0)
		if err != nil {
			return Value{}, err
		}
		scale := math.Pow(10, float64(places))
		return FloatValue(math.Round(x*scale) / scale), nil
	}}
}

// exactUnary wraps a value function that preserves exact rationals.
func exactUnary(name string, f func(Value) (Value, error)) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: 1, Fn: func(inv *Invocation, args []Value) (Value, error) {
		v, err := f(args[0])
		if err != nil {
			return Value{}, &EvalError{Msg: name + ": " + err.Error()}
		}
		return v, nil
	}}
}

func absValue(v Value) (Value, error) {
	switch v.Kind {
	case KindRational:
		return RationalValue(new(big.Rat).Abs(v.Rat)), nil
	case KindPercent:
		return PercentValue(new(big.Rat).Abs(v.Rat)), nil
	case KindFloat:
		return FloatValue(math.Abs(v.Float)), nil
	case KindQuantity:
		return QuantityValue(&Quantity{Mag: new(big.Rat).Abs(v.Quant.Mag), Unit: v.Quant.Unit}), nil
	}
	return Value{}, &EvalError{Msg: "cannot take absolute value of " + v.Kind.String()}
}

func floorValue(v Value) (Value, error) { return ratRound(v, func(q, r *big.Int) {
	if r.Sign() != 0 && q.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
}, math.Floor) }

func ceilValue(v Value) (Value, error) { return ratRound(v, func(q, r *big.Int) {
	if r.Sign() != 0 && q.Sign() >= 0 {
		q.Add(q, big.NewInt(1))
	}
}, math.Ceil) }

func truncValue(v Value) (Value, error) { return ratRound(v, func(q, r *big.Int) {}, math.Trunc) }

// roundValue rounds half away from zero, exactly on rationals.
func roundValue(v Value) (Value, error) {
	switch v.Kind {
	case KindRational, KindPercent:
		r := asPlainRat(v)
		q, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
		if rem.Sign() != 0 {
			twice := new(big.Int).Abs(new(big.Int).Mul(rem, big.NewInt(2)))
			if twice.Cmp(r.Denom()) >= 0 {
				if r.Sign() < 0 {
					q.Sub(q, big.NewInt(1))
				} else {
					q.Add(q, big.NewInt(1))
				}
			}
		}
		return RationalValue(new(big.Rat).SetInt(q)), nil
	}
	return ratRound(v, func(q, r *big.Int) {}, math.Round)
}

func asPlainRat(v Value) *big.Rat {
	if v.Kind == KindPercent {
		return new(big.Rat).Quo(v.Rat, big.NewRat(100, 1))
	}
	return v.Rat
}

// ratRound applies integer rounding. adjust fixes the truncated quotient q
// given the remainder r; floats fall through to ff.
func ratRound(v Value, adjust func(q, r *big.Int), ff func(float64) float64) (Value, error) {
	switch v.Kind {
	case KindRational, KindPercent:
		r := asPlainRat(v)
		q, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
		if rem.Sign() != 0 {
			adjust(q, rem)
		}
		return RationalValue(new(big.Rat).SetInt(q)), nil
	case KindFloat:
		return FloatValue(ff(v.Float)), nil
	case KindBool:
		if v.Bool {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	}
	return Value{}, &EvalError{Msg: "expected a number, got " + v.Kind.String()}
}

func signValue(v Value) (Value, error) {
	r, ok := v.AsRat()
	if ok {
		return IntValue(int64(r.Sign())), nil
	}
	if v.Kind == KindFloat {
		switch {
		case v.Float > 0:
			return IntValue(1), nil
		case v.Float < 0:
			return IntValue(-1), nil
		}
		return IntValue(0), nil
	}
	return Value{}, &EvalError{Msg: "expected a number, got " + v.Kind.String()}
}

func fracValue(v Value) (Value, error) {
	t, err := truncValue(v)
	if err != nil {
		return Value{}, err
	}
	switch v.Kind {
	case KindFloat:
		return FloatValue(v.Float - t.Float), nil
	case KindRational, KindPercent, KindBool:
		r, _ := v.AsRat()
		return RationalValue(new(big.Rat).Sub(r, t.Rat)), nil
	}
	return Value{}, &EvalError{Msg: "expected a number, got " + v.Kind.String()}
}

// intPair wraps an integer function of two variables.
func intPair(name string, f func(a, b *big.Int) *big.Int) *Builtin {
	return &Builtin{Name: name, MinArgs: 2, MaxArgs: 2, Fn: func(inv *Invocation, args []Value) (Value, error) {
		a, err := argBigInt(args, 0, name)
		if err != nil {
			return Value{}, err
		}
		b, err := argBigInt(args, 1, name)
		if err != nil {
			return Value{}, err
		}
		return RationalValue(new(big.Rat).SetInt(f(a, b))), nil
	}}
}

// aggregate wraps a reducer over a flat argument list or a single sequence.
func aggregate(name string, f func(inv *Invocation, elems []Value) (Value, error)) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: -1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		elems := args
		if len(args) == 1 {
			switch args[0].Kind {
			case KindVector, KindMatrix, KindRange:
				var err error
				elems, err = builtinElems(inv, args[0], name)
				if err != nil {
					return Value{}, err
				}
			}
		}
		if len(elems) == 0 {
			return Value{}, &EvalError{Msg: name + ": empty sequence"}
		}
		return f(inv, elems)
	}}
}

// builtinElems flattens a sequence argument to its elements. Matrices
// flatten in row-major order.
func builtinElems(inv *Invocation, v Value, name string) ([]Value, error) {
	switch v.Kind {
	case KindVector:
		return v.Vec, nil
	case KindRange:
		return v.Rng.Materialize(inv.Ctx.Settings().MaxVectorSize)
	case KindMatrix:
		var out []Value
		for _, row := range v.Mat {
			out = append(out, row...)
		}
		return out, nil
	}
	return nil, &EvalError{Msg: name + ": expected a sequence, got " + v.Kind.String()}
}

func reduceMin(inv *Invocation, elems []Value) (Value, error) {
	return reduceExtreme(inv, elems, OpLt)
}

func reduceMax(inv *Invocation, elems []Value) (Value, error) {
	return reduceExtreme(inv, elems, OpGt)
}

func reduceExtreme(inv *Invocation, elems []Value, op OpKind) (Value, error) {
	best := elems[0]
	for _, e := range elems[1:] {
		c, err := compareValues(op, e, best, inv.Ctx.Settings())
		if err != nil {
			return Value{}, err
		}
		if c.Bool {
			best = e
		}
	}
	return best, nil
}

func reduceSum(inv *Invocation, elems []Value) (Value, error) {
	sum := elems[0]
	for _, e := range elems[1:] {
		var err error
		sum, err = scalarOp(OpAdd, sum, e, inv.Ctx.Settings())
		if err != nil {
			return Value{}, err
		}
	}
	return sum, nil
}

func reduceProd(inv *Invocation, elems []Value) (Value, error) {
	prod := elems[0]
	for _, e := range elems[1:] {
		var err error
		prod, err = scalarOp(OpMul, prod, e, inv.Ctx.Settings())
		if err != nil {
			return Value{}, err
		}
	}
	return prod, nil
}

func reduceMean(inv *Invocation, elems []Value) (Value, error) {
	sum, err := reduceSum(inv, elems)
	if err != nil {
		return Value{}, err
	}
	return scalarOp(OpDiv, sum, IntValue(int64(len(elems))), inv.Ctx.Settings())
}

func reduceMedian(inv *Invocation, elems []Value) (Value, error) {
	s := inv.Ctx.Settings()
	out := make([]Value, len(elems))
	copy(out, elems)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := compareValues(OpLt, out[i], out[j], s)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return err == nil && c.Bool
	})
	if sortErr != nil {
		return Value{}, sortErr
	}
	mid := len(out) / 2
	if len(out)%2 == 1 {
		return out[mid], nil
	}
	sum, err := scalarOp(OpAdd, out[mid-1], out[mid], s)
	if err != nil {
		return Value{}, err
	}
	return scalarOp(OpDiv, sum, IntValue(2), s)
}

func crossProduct(inv *Invocation, args []Value) (Value, error) {
	a, err := builtinElems(inv, args[0], "cross")
	if err != nil {
		return Value{}, err
	}
	b, err := builtinElems(inv, args[1], "cross")
	if err != nil {
		return Value{}, err
	}
	if len(a) != 3 || len(b) != 3 {
		return Value{}, &EvalError{Msg: "cross: expected two 3-element vectors"}
	}
	s := inv.Ctx.Settings()
	comp := func(i, j int) (Value, error) {
		l, err := scalarOp(OpMul, a[i], b[j], s)
		if err != nil {
			return Value{}, err
		}
		r, err := scalarOp(OpMul, a[j], b[i], s)
		if err != nil {
			return Value{}, err
		}
		return scalarOp(OpSub, l, r, s)
	}
	x, err := comp(1, 2)
	if err != nil {
		return Value{}, err
	}
	y, err := comp(2, 0)
	if err != nil {
		return Value{}, err
	}
	z, err := comp(0, 1)
	if err != nil {
		return Value{}, err
	}
	return VectorValue([]Value{x, y, z}), nil
}

func asMatrix(v Value) ([][]Value, error) {
	switch v.Kind {
	case KindMatrix:
		return v.Mat, nil
	case KindVector:
		return [][]Value{v.Vec}, nil
	}
	return nil, &EvalError{Msg: "expected a matrix, got " + v.Kind.String()}
}

// determinant expands by cofactors; matrices stay small enough that the
// exact arithmetic dominates anyway.
func determinant(m [][]Value, s *Settings) (Value, error) {
	n := len(m)
	if n == 1 {
		return m[0][0], nil
	}
	if n == 2 {
		ad, err := scalarOp(OpMul, m[0][0], m[1][1], s)
		if err != nil {
			return Value{}, err
		}
		bc, err := scalarOp(OpMul, m[0][1], m[1][0], s)
		if err != nil {
			return Value{}, err
		}
		return scalarOp(OpSub, ad, bc, s)
	}
	det := IntValue(0)
	for j := 0; j < n; j++ {
		minor := make([][]Value, n-1)
		for i := 1; i < n; i++ {
			row := make([]Value, 0, n-1)
			for k := 0; k < n; k++ {
				if k != j {
					row = append(row, m[i][k])
				}
			}
			minor[i-1] = row
		}
		sub, err := determinant(minor, s)
		if err != nil {
			return Value{}, err
		}
		term, err := scalarOp(OpMul, m[0][j], sub, s)
		if err != nil {
			return Value{}, err
		}
		if j%2 == 0 {
			det, err = scalarOp(OpAdd, det, term, s)
		} else {
			det, err = scalarOp(OpSub, det, term, s)
		}
		if err != nil {
			return Value{}, err
		}
	}
	return det, nil
}

func stringUnary(name string, f func(string) string) *Builtin {
	return &Builtin{Name: name, MinArgs: 1, MaxArgs: 1, NoBroadcast: true, Fn: func(inv *Invocation, args []Value) (Value, error) {
		if args[0].Kind != KindString {
			return Value{}, &EvalError{Msg: name + ": expected a string, got " + args[0].Kind.String()}
		}
		return StringValue(f(args[0].Str)), nil
	}}
}

func argFloat(inv *Invocation, args []Value, i int) (float64, error) {
	f, ok := args[i].AsFloat()
	if !ok {
		return 0, &EvalError{Msg: inv.Name + ": expected a number, got " + args[i].Kind.String() + " (argument " + strconv.Itoa(i+1) + ")"}
	}
	return f, nil
}

func argInt(args []Value, i int, name string) (int, error) {
	r, ok := args[i].AsRat()
	if !ok {
		return 0, &EvalError{Msg: name + ": expected an integer, got " + args[i].Kind.String() + " (argument " + strconv.Itoa(i+1) + ")"}
	}
	n, isInt := ratIsInt(r)
	if !isInt {
		return 0, &EvalError{Msg: name + ": expected an integer (argument " + strconv.Itoa(i+1) + ")"}
	}
	return int(n), nil
}

func argBigInt(args []Value, i int, name string) (*big.Int, error) {
	r, ok := args[i].AsRat()
	if !ok || !r.IsInt() {
		return nil, &EvalError{Msg: name + ": expected an integer (argument " + strconv.Itoa(i+1) + ")"}
	}
	return new(big.Int).Set(r.Num()), nil
}
