package ratel

import (
	"math"
	"math/big"
	"strconv"
)

// combine applies a binary operator to two values, broadcasting elementwise
// over vectors and matrices. Mismatched shapes pad the shorter operand with
// zeros unless StrictShapes is set, in which case they are an error. The @
// operator never pads; matrix product shapes must agree exactly.
func combine(op OpKind, a, b Value, s *Settings) (Value, error) {
	switch op {
	case OpEq:
		return BoolValue(a.Equal(b)), nil
	case OpNe:
		return BoolValue(!a.Equal(b)), nil
	case OpLt, OpLe, OpGt, OpGe:
		return compareValues(op, a, b, s)
	case OpMatMul:
		return matApply(a, b, s)
	}
	a, b = materializeOperand(a, s), materializeOperand(b, s)
	switch {
	case a.Kind == KindMatrix || b.Kind == KindMatrix:
		return broadcastMatrix(op, a, b, s)
	case a.Kind == KindVector || b.Kind == KindVector:
		return broadcastVector(op, a, b, s)
	}
	return scalarOp(op, a, b, s)
}

// materializeOperand turns a range into a concrete vector for arithmetic.
func materializeOperand(v Value, s *Settings) Value {
	if v.Kind != KindRange {
		return v
	}
	elems, err := v.Rng.Materialize(s.MaxVectorSize)
	if err != nil {
		return v
	}
	return VectorValue(elems)
}

func broadcastVector(op OpKind, a, b Value, s *Settings) (Value, error) {
	if a.Kind == KindVector && b.Kind == KindVector {
		// A single-element vector broadcasts like a scalar.
		if len(a.Vec) == 1 && len(b.Vec) > 1 {
			return broadcastVector(op, a.Vec[0], b, s)
		}
		if len(b.Vec) == 1 && len(a.Vec) > 1 {
			return broadcastVector(op, a, b.Vec[0], s)
		}
		av, bv, err := padPair(a.Vec, b.Vec, s)
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, len(av))
		for i := range av {
			v, err := combine(op, av[i], bv[i], s)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return VectorValue(out), nil
	}
	// Scalar against vector: apply to every element.
	vec, scalar, scalarLeft := a, b, false
	if a.Kind != KindVector {
		vec, scalar, scalarLeft = b, a, true
	}
	out := make([]Value, len(vec.Vec))
	for i, e := range vec.Vec {
		var v Value
		var err error
		if scalarLeft {
			v, err = combine(op, scalar, e, s)
		} else {
			v, err = combine(op, e, scalar, s)
		}
		if err != nil {
			return Value{}, err
		}
		out[i] = v
	}
	return VectorValue(out), nil
}

func broadcastMatrix(op OpKind, a, b Value, s *Settings) (Value, error) {
	switch {
	case a.Kind == KindMatrix && b.Kind == KindMatrix:
		// A single row or column replicates across the other operand.
		if len(a.Mat) == 1 && len(b.Mat) > 1 && matCols(a.Mat) == matCols(b.Mat) {
			return mapRows(b.Mat, func(row []Value) (Value, error) {
				return broadcastVector(op, VectorValue(a.Mat[0]), VectorValue(row), s)
			})
		}
		if len(b.Mat) == 1 && len(a.Mat) > 1 && matCols(a.Mat) == matCols(b.Mat) {
			return mapRows(a.Mat, func(row []Value) (Value, error) {
				return broadcastVector(op, VectorValue(row), VectorValue(b.Mat[0]), s)
			})
		}
		if matCols(a.Mat) == 1 && matCols(b.Mat) > 1 && len(a.Mat) == len(b.Mat) {
			return combineColumn(op, a.Mat, b.Mat, true, s)
		}
		if matCols(b.Mat) == 1 && matCols(a.Mat) > 1 && len(a.Mat) == len(b.Mat) {
			return combineColumn(op, b.Mat, a.Mat, false, s)
		}
		am, bm, err := padMatrices(a.Mat, b.Mat, s)
		if err != nil {
			return Value{}, err
		}
		out := make([][]Value, len(am))
		for i := range am {
			out[i] = make([]Value, len(am[i]))
			for j := range am[i] {
				v, err := combine(op, am[i][j], bm[i][j], s)
				if err != nil {
					return Value{}, err
				}
				out[i][j] = v
			}
		}
		return MatrixValue(out), nil
	case a.Kind == KindMatrix && b.Kind == KindVector:
		return mapRows(a.Mat, func(row []Value) (Value, error) {
			return broadcastVector(op, VectorValue(row), b, s)
		})
	case a.Kind == KindVector && b.Kind == KindMatrix:
		return mapRows(b.Mat, func(row []Value) (Value, error) {
			return broadcastVector(op, a, VectorValue(row), s)
		})
	case a.Kind == KindMatrix:
		return mapRows(a.Mat, func(row []Value) (Value, error) {
			return broadcastVector(op, VectorValue(row), b, s)
		})
	default:
		return mapRows(b.Mat, func(row []Value) (Value, error) {
			return broadcastVector(op, a, VectorValue(row), s)
		})
	}
}

// combineColumn replicates a single-column matrix across the columns of the
// other operand. colLeft records which side of the operator the column sat on.
func combineColumn(op OpKind, col, other [][]Value, colLeft bool, s *Settings) (Value, error) {
	out := make([][]Value, len(other))
	for i, row := range other {
		out[i] = make([]Value, len(row))
		for j, e := range row {
			var v Value
			var err error
			if colLeft {
				v, err = combine(op, col[i][0], e, s)
			} else {
				v, err = combine(op, e, col[i][0], s)
			}
			if err != nil {
				return Value{}, err
			}
			out[i][j] = v
		}
	}
	return MatrixValue(out), nil
}

func mapRows(m [][]Value, f func([]Value) (Value, error)) (Value, error) {
	out := make([][]Value, len(m))
	for i, row := range m {
		v, err := f(row)
		if err != nil {
			return Value{}, err
		}
		out[i] = v.Vec
	}
	return MatrixValue(out), nil
}

// padPair equalizes two vectors, padding the shorter with zeros.
func padPair(a, b []Value, s *Settings) ([]Value, []Value, error) {
	if len(a) == len(b) {
		return a, b, nil
	}
	if s.StrictShapes {
		return nil, nil, &EvalError{Msg: "shape mismatch: " + strconv.Itoa(len(a)) + " vs " + strconv.Itoa(len(b)) + " elements"}
	}
	n := max(len(a), len(b))
	return padTo(a, n), padTo(b, n), nil
}

func padTo(v []Value, n int) []Value {
	if len(v) >= n {
		return v
	}
	out := make([]Value, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = IntValue(0)
	}
	return out
}

func padMatrices(a, b [][]Value, s *Settings) ([][]Value, [][]Value, error) {
	rows := max(len(a), len(b))
	cols := 0
	for _, r := range a {
		cols = max(cols, len(r))
	}
	for _, r := range b {
		cols = max(cols, len(r))
	}
	if s.StrictShapes && (len(a) != len(b) || matCols(a) != matCols(b)) {
		return nil, nil, &EvalError{Msg: "shape mismatch: " + shapeString(a) + " vs " + shapeString(b)}
	}
	return padMat(a, rows, cols), padMat(b, rows, cols), nil
}

func matCols(m [][]Value) int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

func shapeString(m [][]Value) string {
	return strconv.Itoa(len(m)) + "x" + strconv.Itoa(matCols(m))
}

func padMat(m [][]Value, rows, cols int) [][]Value {
	out := make([][]Value, rows)
	for i := range out {
		if i < len(m) {
			out[i] = padTo(m[i], cols)
		} else {
			out[i] = padTo(nil, cols)
		}
	}
	return out
}

// matApply implements the @ operator: matrix product, matrix-vector product,
// and vector dot product. Shapes must agree exactly.
func matApply(a, b Value, s *Settings) (Value, error) {
	a, b = materializeOperand(a, s), materializeOperand(b, s)
	switch {
	case a.Kind == KindVector && b.Kind == KindVector:
		return dotProduct(a.Vec, b.Vec, s)
	case a.Kind == KindMatrix && b.Kind == KindMatrix:
		if matCols(a.Mat) != len(b.Mat) {
			return Value{}, &EvalError{Msg: "matrix product shape mismatch: " + shapeString(a.Mat) + " @ " + shapeString(b.Mat)}
		}
		out := make([][]Value, len(a.Mat))
		for i := range a.Mat {
			out[i] = make([]Value, matCols(b.Mat))
			for j := range out[i] {
				col := make([]Value, len(b.Mat))
				for k := range b.Mat {
					col[k] = b.Mat[k][j]
				}
				v, err := dotProduct(a.Mat[i], col, s)
				if err != nil {
					return Value{}, err
				}
				out[i][j] = v
			}
		}
		return MatrixValue(out), nil
	case a.Kind == KindMatrix && b.Kind == KindVector:
		if matCols(a.Mat) != len(b.Vec) {
			return Value{}, &EvalError{Msg: "matrix-vector shape mismatch: " + shapeString(a.Mat) + " @ " + strconv.Itoa(len(b.Vec))}
		}
		out := make([]Value, len(a.Mat))
		for i, row := range a.Mat {
			v, err := dotProduct(row, b.Vec, s)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return VectorValue(out), nil
	case a.Kind == KindVector && b.Kind == KindMatrix:
		if len(a.Vec) != len(b.Mat) {
			return Value{}, &EvalError{Msg: "vector-matrix shape mismatch: " + strconv.Itoa(len(a.Vec)) + " @ " + shapeString(b.Mat)}
		}
		out := make([]Value, matCols(b.Mat))
		for j := range out {
			col := make([]Value, len(b.Mat))
			for k := range b.Mat {
				col[k] = b.Mat[k][j]
			}
			v, err := dotProduct(a.Vec, col, s)
			if err != nil {
				return Value{}, err
			}
			out[j] = v
		}
		return VectorValue(out), nil
	}
	return Value{}, &EvalError{Msg: "cannot apply @ to " + a.Kind.String() + " and " + b.Kind.String()}
}

// dotProduct is strict: both sequences must have the same length.
func dotProduct(a, b []Value, s *Settings) (Value, error) {
	if len(a) != len(b) {
		return Value{}, &EvalError{Msg: "dot product length mismatch: " + strconv.Itoa(len(a)) + " vs " + strconv.Itoa(len(b))}
	}
	if len(a) == 0 {
		return IntValue(0), nil
	}
	sum := IntValue(0)
	for i := range a {
		p, err := scalarOp(OpMul, a[i], b[i], s)
		if err != nil {
			return Value{}, err
		}
		sum, err = scalarOp(OpAdd, sum, p, s)
		if err != nil {
			return Value{}, err
		}
	}
	return sum, nil
}

// scalarOp applies an arithmetic operator to two scalars.
func scalarOp(op OpKind, a, b Value, s *Settings) (Value, error) {
	if a.Kind == KindString || b.Kind == KindString {
		if op == OpAdd && a.Kind == KindString && b.Kind == KindString {
			return StringValue(a.Str + b.Str), nil
		}
		return Value{}, &EvalError{Msg: "cannot apply " + op.String() + " to " + a.Kind.String() + " and " + b.Kind.String()}
	}
	if a.Kind == KindQuantity || b.Kind == KindQuantity {
		return quantityOp(op, a, b, s)
	}
	if op == OpPow {
		return powValues(a, b, s)
	}
	ra, rb, fa, fb, exact, ok := numericPair(a, b, s)
	if !ok {
		return Value{}, &EvalError{Msg: "cannot apply " + op.String() + " to " + a.Kind.String() + " and " + b.Kind.String()}
	}
	if exact {
		return ratOp(op, ra, rb)
	}
	return floatOp(op, fa, fb)
}

func ratOp(op OpKind, a, b *big.Rat) (Value, error) {
	switch op {
	case OpAdd:
		return RationalValue(new(big.Rat).Add(a, b)), nil
	case OpSub:
		return RationalValue(new(big.Rat).Sub(a, b)), nil
	case OpMul:
		return RationalValue(new(big.Rat).Mul(a, b)), nil
	case OpDiv:
		if b.Sign() == 0 {
			return Value{}, &EvalError{Msg: "division by zero"}
		}
		return RationalValue(new(big.Rat).Quo(a, b)), nil
	case OpMod:
		return ratMod(a, b)
	}
	return Value{}, &EvalError{Msg: "internal: unknown operator " + op.String()}
}

// ratMod is the floored modulo: a - b*floor(a/b), exact on rationals.
func ratMod(a, b *big.Rat) (Value, error) {
	if b.Sign() == 0 {
		return Value{}, &EvalError{Msg: "modulo by zero"}
	}
	q := new(big.Rat).Quo(a, b)
	fl := new(big.Int).Quo(q.Num(), q.Denom())
	if q.Sign() < 0 && new(big.Int).Rem(q.Num(), q.Denom()).Sign() != 0 {
		fl.Sub(fl, big.NewInt(1))
	}
	m := new(big.Rat).Sub(a, new(big.Rat).Mul(b, new(big.Rat).SetInt(fl)))
	return RationalValue(m), nil
}

func floatOp(op OpKind, a, b float64) (Value, error) {
	switch op {
	case OpAdd:
		return FloatValue(a + b), nil
	case OpSub:
		return FloatValue(a - b), nil
	case OpMul:
		return FloatValue(a * b), nil
	case OpDiv:
		if b == 0 {
			return Value{}, &EvalError{Msg: "division by zero"}
		}
		return FloatValue(a / b), nil
	case OpMod:
		if b == 0 {
			return Value{}, &EvalError{Msg: "modulo by zero"}
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return FloatValue(m), nil
	}
	return Value{}, &EvalError{Msg: "internal: unknown operator " + op.String()}
}

// quantityOp handles arithmetic where at least one side carries a unit.
// Addition and subtraction convert the right side into the left side's
// unit; multiplication and division admit one unitless side only.
func quantityOp(op OpKind, a, b Value, s *Settings) (Value, error) {
	switch op {
	case OpAdd, OpSub:
		if a.Kind != KindQuantity || b.Kind != KindQuantity {
			return Value{}, &EvalError{Msg: "cannot apply " + op.String() + " to " + a.Kind.String() + " and " + b.Kind.String()}
		}
		bc, err := b.Quant.Convert(a.Quant.Unit)
		if err != nil {
			return Value{}, err
		}
		mag := new(big.Rat)
		if op == OpAdd {
			mag.Add(a.Quant.Mag, bc.Mag)
		} else {
			mag.Sub(a.Quant.Mag, bc.Mag)
		}
		return QuantityValue(&Quantity{Mag: mag, Unit: a.Quant.Unit}), nil
	case OpMul, OpDiv:
		if a.Kind == KindQuantity && b.Kind == KindQuantity {
			return Value{}, &EvalError{Msg: "compound units are not supported"}
		}
		q, other := a, b
		if b.Kind == KindQuantity {
			q, other = b, a
			if op == OpDiv {
				return Value{}, &EvalError{Msg: "cannot divide " + a.Kind.String() + " by a quantity"}
			}
		}
		r, ok := other.AsRat()
		if !ok {
			return Value{}, &EvalError{Msg: "cannot apply " + op.String() + " to quantity and " + other.Kind.String()}
		}
		mag := new(big.Rat)
		if op == OpMul {
			mag.Mul(q.Quant.Mag, r)
		} else {
			if r.Sign() == 0 {
				return Value{}, &EvalError{Msg: "division by zero"}
			}
			mag.Quo(q.Quant.Mag, r)
		}
		return QuantityValue(&Quantity{Mag: mag, Unit: q.Quant.Unit}), nil
	}
	return Value{}, &EvalError{Msg: "cannot apply " + op.String() + " to quantities"}
}

// compareValues orders two scalars. Numbers compare numerically, strings
// lexically, quantities after converting to a common unit.
func compareValues(op OpKind, a, b Value, s *Settings) (Value, error) {
	var cmp int
	switch {
	case a.Kind == KindString && b.Kind == KindString:
		switch {
		case a.Str < b.Str:
			cmp = -1
		case a.Str > b.Str:
			cmp = 1
		}
	case a.Kind == KindQuantity && b.Kind == KindQuantity:
		bc, err := b.Quant.Convert(a.Quant.Unit)
		if err != nil {
			return Value{}, err
		}
		cmp = a.Quant.Mag.Cmp(bc.Mag)
	default:
		ra, rb, fa, fb, exact, ok := numericPair(a, b, s)
		if !ok {
			return Value{}, &EvalError{Msg: "cannot compare " + a.Kind.String() + " and " + b.Kind.String()}
		}
		if exact {
			cmp = ra.Cmp(rb)
		} else {
			switch {
			case fa < fb:
				cmp = -1
			case fa > fb:
				cmp = 1
			}
		}
	}
	switch op {
	case OpLt:
		return BoolValue(cmp < 0), nil
	case OpLe:
		return BoolValue(cmp <= 0), nil
	case OpGt:
		return BoolValue(cmp > 0), nil
	case OpGe:
		return BoolValue(cmp >= 0), nil
	}
	return Value{}, &EvalError{Msg: "internal: unknown comparison " + op.String()}
}

// negate flips the sign of a value, mapping over vectors and matrices.
func negate(v Value, s *Settings) (Value, error) {
	return mapUnary(v, func(e Value) (Value, error) {
		switch e.Kind {
		case KindRational:
			return RationalValue(new(big.Rat).Neg(e.Rat)), nil
		case KindPercent:
			return PercentValue(new(big.Rat).Neg(e.Rat)), nil
		case KindFloat:
			return FloatValue(-e.Float), nil
		case KindQuantity:
			return QuantityValue(&Quantity{Mag: new(big.Rat).Neg(e.Quant.Mag), Unit: e.Quant.Unit}), nil
		case KindBool:
			if e.Bool {
				return IntValue(-1), nil
			}
			return IntValue(0), nil
		}
		return Value{}, &EvalError{Msg: "cannot negate " + e.Kind.String()}
	})
}

// mapUnary applies f elementwise over vectors, matrices, and ranges, and
// directly to scalars.
func mapUnary(v Value, f func(Value) (Value, error)) (Value, error) {
	switch v.Kind {
	case KindVector:
		out := make([]Value, len(v.Vec))
		for i, e := range v.Vec {
			r, err := mapUnary(e, f)
			if err != nil {
				return Value{}, err
			}
			out[i] = r
		}
		return VectorValue(out), nil
	case KindMatrix:
		out := make([][]Value, len(v.Mat))
		for i, row := range v.Mat {
			out[i] = make([]Value, len(row))
			for j, e := range row {
				r, err := f(e)
				if err != nil {
					return Value{}, err
				}
				out[i][j] = r
			}
		}
		return MatrixValue(out), nil
	case KindRange:
		elems, err := v.Rng.Materialize(DefaultSettings().MaxVectorSize)
		if err != nil {
			return Value{}, err
		}
		return mapUnary(VectorValue(elems), f)
	}
	return f(v)
}
