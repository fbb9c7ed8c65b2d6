package ratel

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zephyrtronium/bigfloat"
)

// ValueKind tags the payload of a Value.
type ValueKind int8

const (
	KindNone ValueKind = iota
	// KindRational is an exact rational number, the default numeric domain.
	KindRational
	// KindFloat is an IEEE double.
	KindFloat
	// KindPercent is a percentage; 50% stores the magnitude 50 and coerces
	// to the rational 1/2 in arithmetic.
	KindPercent
	KindBool
	KindString
	// KindQuantity is a unit-tagged magnitude.
	KindQuantity
	KindVector
	KindMatrix
	KindRange
	KindLambda
)

func (k ValueKind) String() string {
	switch k {
	case KindRational:
		return "rational"
	case KindFloat:
		return "float"
	case KindPercent:
		return "percent"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindQuantity:
		return "quantity"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindRange:
		return "range"
	case KindLambda:
		return "lambda"
	default:
		return "none"
	}
}

// Value is an already-evaluated constant. The Kind tag determines which
// payload field is valid. Values are immutable once produced; vectors and
// matrices of Values are themselves Values, so evaluation never yields a
// partially-evaluated state.
type Value struct {
	Kind  ValueKind
	Rat   *big.Rat
	Float float64
	Bool  bool
	Str   string
	Quant *Quantity
	Vec   []Value
	Mat   [][]Value
	Rng   *Range
	Fn    *Lambda
}

// Quantity is a magnitude tagged with a unit.
type Quantity struct {
	Mag  *big.Rat
	Unit *Unit
}

// Range is a half-open-free arithmetic progression: Start..End step Step,
// inclusive of End when the step lands on it. Step is never zero.
type Range struct {
	Start, End, Step *big.Rat
}

// Lambda is a function literal. A nil Env means free variables resolve
// dynamically in the caller's context; otherwise they resolve lexically in
// the captured snapshot.
type Lambda struct {
	Params []string
	Body   Node
	Env    *Context
}

// FuncDef is a user-defined function. A nil Closure selects dynamic scoping,
// a non-nil Closure selects lexical scoping against the snapshot taken at
// definition time.
type FuncDef struct {
	Name    string
	Params  []string
	Body    Node
	Closure *Context
}

func RationalValue(r *big.Rat) Value { return Value{Kind: KindRational, Rat: r} }
func IntValue(n int64) Value         { return Value{Kind: KindRational, Rat: new(big.Rat).SetInt64(n)} }
func FloatValue(f float64) Value     { return Value{Kind: KindFloat, Float: f} }
func PercentValue(r *big.Rat) Value  { return Value{Kind: KindPercent, Rat: r} }
func BoolValue(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func StringValue(s string) Value     { return Value{Kind: KindString, Str: s} }
func VectorValue(v []Value) Value    { return Value{Kind: KindVector, Vec: v} }
func MatrixValue(m [][]Value) Value  { return Value{Kind: KindMatrix, Mat: m} }
func QuantityValue(q *Quantity) Value {
	return Value{Kind: KindQuantity, Quant: q}
}
func RangeValue(r *Range) Value   { return Value{Kind: KindRange, Rng: r} }
func LambdaValue(l *Lambda) Value { return Value{Kind: KindLambda, Fn: l} }

// IsScalar reports whether v participates in scalar arithmetic.
func (v Value) IsScalar() bool {
	switch v.Kind {
	case KindRational, KindFloat, KindPercent, KindBool, KindQuantity:
		return true
	}
	return false
}

// IsNumeric reports whether v coerces to a plain number.
func (v Value) IsNumeric() bool {
	switch v.Kind {
	case KindRational, KindFloat, KindPercent, KindBool:
		return true
	}
	return false
}

// AsRat converts a numeric value to an exact rational. Floats convert
// exactly through their binary representation. The second result is false
// for non-numeric kinds and non-finite floats.
func (v Value) AsRat() (*big.Rat, bool) {
	switch v.Kind {
	case KindRational:
		return v.Rat, true
	case KindPercent:
		return new(big.Rat).Quo(v.Rat, big.NewRat(100, 1)), true
	case KindBool:
		if v.Bool {
			return big.NewRat(1, 1), true
		}
		return big.NewRat(0, 1), true
	case KindFloat:
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(v.Float), true
	}
	return nil, false
}

// AsFloat converts a numeric value or quantity to an IEEE double.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindRational:
		f, _ := v.Rat.Float64()
		return f, true
	case KindPercent:
		f, _ := v.Rat.Float64()
		return f / 100, true
	case KindFloat:
		return v.Float, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindQuantity:
		f, _ := v.Quant.Mag.Float64()
		return f, true
	}
	return 0, false
}

// Truthy reports the boolean interpretation of v: false for zero, the empty
// string, and empty collections.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindRational, KindPercent:
		return v.Rat.Sign() != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	case KindVector:
		return len(v.Vec) > 0
	case KindMatrix:
		return len(v.Mat) > 0
	case KindQuantity:
		return v.Quant.Mag.Sign() != 0
	case KindRange, KindLambda:
		return true
	}
	return false
}

// numericPair coerces two numeric values into a common domain. It prefers
// exact rationals; either operand being a float, or ForceDouble, drops both
// to doubles.
func numericPair(a, b Value, s *Settings) (ra, rb *big.Rat, fa, fb float64, exact bool, ok bool) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return nil, nil, 0, 0, false, false
	}
	if s != nil && s.ForceDouble || a.Kind == KindFloat || b.Kind == KindFloat {
		fa, _ = a.AsFloat()
		fb, _ = b.AsFloat()
		return nil, nil, fa, fb, false, true
	}
	ra, _ = a.AsRat()
	rb, _ = b.AsRat()
	return ra, rb, 0, 0, true, true
}

// Equal reports deep equality of two values under numeric coercion:
// 1/2 == 0.5 == 50%.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		if v.Kind == KindFloat || o.Kind == KindFloat {
			a, _ := v.AsFloat()
			b, _ := o.AsFloat()
			return a == b
		}
		a, _ := v.AsRat()
		b, _ := o.AsRat()
		return a.Cmp(b) == 0
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindQuantity:
		if v.Quant.Unit.Dim != o.Quant.Unit.Dim {
			return false
		}
		return v.Quant.Unit.toBase(v.Quant.Mag).Cmp(o.Quant.Unit.toBase(o.Quant.Mag)) == 0
	case KindVector:
		if len(v.Vec) != len(o.Vec) {
			return false
		}
		for i := range v.Vec {
			if !v.Vec[i].Equal(o.Vec[i]) {
				return false
			}
		}
		return true
	case KindMatrix:
		if len(v.Mat) != len(o.Mat) {
			return false
		}
		for i := range v.Mat {
			if len(v.Mat[i]) != len(o.Mat[i]) {
				return false
			}
			for j := range v.Mat[i] {
				if !v.Mat[i][j].Equal(o.Mat[i][j]) {
					return false
				}
			}
		}
		return true
	case KindRange:
		return v.Rng.Start.Cmp(o.Rng.Start) == 0 && v.Rng.End.Cmp(o.Rng.End) == 0 && v.Rng.Step.Cmp(o.Rng.Step) == 0
	}
	return false
}

// Materialize expands a range into a vector, bounded by max elements.
func (r *Range) Materialize(max int) ([]Value, error) {
	if r.Step.Sign() == 0 {
		return nil, &EvalError{Msg: "range step cannot be zero"}
	}
	var out []Value
	cur := new(big.Rat).Set(r.Start)
	up := r.Step.Sign() > 0
	for {
		if up && cur.Cmp(r.End) > 0 || !up && cur.Cmp(r.End) < 0 {
			break
		}
		if len(out) >= max {
			return nil, &EvalError{Msg: "range exceeds maximum vector size " + strconv.Itoa(max)}
		}
		out = append(out, RationalValue(new(big.Rat).Set(cur)))
		cur = new(big.Rat).Add(cur, r.Step)
	}
	return out, nil
}

// Len returns the number of elements the range materializes to.
func (r *Range) Len() int {
	if r.Step.Sign() == 0 {
		return 0
	}
	span := new(big.Rat).Sub(r.End, r.Start)
	q := new(big.Rat).Quo(span, r.Step)
	if q.Sign() < 0 {
		return 0
	}
	f, _ := q.Float64()
	return int(math.Floor(f)) + 1
}

// ratIsInt reports whether r is an integer that fits an int64, and returns it.
func ratIsInt(r *big.Rat) (int64, bool) {
	if !r.IsInt() {
		return 0, false
	}
	if !r.Num().IsInt64() {
		return 0, false
	}
	return r.Num().Int64(), true
}

// ratPow raises base to an integer power exactly.
func ratPow(base *big.Rat, exp int64) (*big.Rat, error) {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	num := new(big.Int).Exp(base.Num(), big.NewInt(exp), nil)
	den := new(big.Int).Exp(base.Denom(), big.NewInt(exp), nil)
	if neg {
		if num.Sign() == 0 {
			return nil, &EvalError{Msg: "division by zero"}
		}
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den), nil
}

// powValues implements ^ for scalars. Integer exponents on rationals stay
// exact; everything else goes through arbitrary-precision pow and rounds to
// a double.
func powValues(a, b Value, s *Settings) (Value, error) {
	ra, rb, fa, fb, exact, ok := numericPair(a, b, s)
	if !ok {
		return Value{}, &EvalError{Msg: "cannot raise " + a.Kind.String() + " to " + b.Kind.String()}
	}
	if exact {
		if n, isInt := ratIsInt(rb); isInt && n > -256 && n < 256 {
			r, err := ratPow(ra, n)
			if err != nil {
				return Value{}, err
			}
			return RationalValue(r), nil
		}
		fa, _ = ra.Float64()
		fb, _ = rb.Float64()
	}
	if fa < 0 && fb != math.Trunc(fb) {
		return Value{}, &EvalError{Msg: "negative base with non-integer exponent"}
	}
	if fa < 0 {
		return FloatValue(math.Pow(fa, fb)), nil
	}
	if fa == 0 {
		if fb < 0 {
			return Value{}, &EvalError{Msg: "division by zero"}
		}
		return FloatValue(math.Pow(fa, fb)), nil
	}
	x := new(big.Float).SetPrec(64).SetFloat64(fa)
	y := new(big.Float).SetPrec(64).SetFloat64(fb)
	bigfloat.Pow(x, x, y)
	f, _ := x.Float64()
	return FloatValue(f), nil
}

// factorial computes n! for a non-negative integer value.
func factorial(v Value) (Value, error) {
	r, ok := v.AsRat()
	if !ok {
		return Value{}, &EvalError{Msg: "factorial of non-numeric " + v.Kind.String()}
	}
	n, isInt := ratIsInt(r)
	if !isInt || n < 0 {
		return Value{}, &EvalError{Msg: "factorial requires a non-negative integer"}
	}
	if n > 10000 {
		return Value{}, &EvalError{Msg: "factorial argument too large"}
	}
	acc := big.NewInt(1)
	for i := int64(2); i <= n; i++ {
		acc.Mul(acc, big.NewInt(i))
	}
	return RationalValue(new(big.Rat).SetInt(acc)), nil
}

// piFloat and eFloat produce the engine's transcendental constants. They are
// computed with bigfloat at generous precision and rounded once, so the
// doubles are correctly rounded.
func piFloat() float64 {
	f, _ := bigfloat.Pi(new(big.Float).SetPrec(128)).Float64()
	return f
}

func eFloat() float64 {
	one := new(big.Float).SetPrec(128).SetInt64(1)
	f, _ := bigfloat.Exp(new(big.Float).SetPrec(128), one).Float64()
	return f
}

// parseRatLexeme parses an integer, decimal, scientific, or a/b rational
// lexeme into an exact rational. It mirrors what the scanner accepts.
func parseRatLexeme(s string) (*big.Rat, bool) {
	if i := strings.IndexByte(s, '/'); i > 0 {
		num, ok1 := new(big.Int).SetString(s[:i], 10)
		den, ok2 := new(big.Int).SetString(s[i+1:], 10)
		if !ok1 || !ok2 || den.Sign() == 0 {
			return nil, false
		}
		return new(big.Rat).SetFrac(num, den), true
	}
	return new(big.Rat).SetString(s)
}
