package ratel

import (
	"math/big"
)

// The symbolic engine linearizes a tree into a postfix stack of leaf,
// operator, and call items and rewrites it recursively. Each item keeps a
// reference to the original subtree rooted at it so rules can reuse intact
// operands without rebuilding them from the stack.

type calcKind int8

const (
	calcLeaf calcKind = iota
	calcOp
	calcCall
)

type calcItem struct {
	kind calcKind
	op   OpKind // calcOp
	name string // calcCall
	argc int    // operand count for calcOp and calcCall
	node Node   // original subtree rooted here
}

// linearize flattens a tree post-order. Nodes outside the symbolic subset
// (vectors, assignments, comprehensions) are rejected up front.
func linearize(n Node, out []calcItem) ([]calcItem, error) {
	switch n := n.(type) {
	case *Lit:
		if !n.Val.IsNumeric() {
			return nil, &CalculusError{Op: "rewrite", Rule: "non-numeric literal"}
		}
		return append(out, calcItem{kind: calcLeaf, node: n}), nil
	case *Ident:
		return append(out, calcItem{kind: calcLeaf, node: n}), nil
	case *ForcedRef:
		return append(out, calcItem{kind: calcLeaf, node: n}), nil
	case *Unary:
		switch n.Op {
		case OpNeg, OpPos:
			out, err := linearize(n.X, out)
			if err != nil {
				return nil, err
			}
			return append(out, calcItem{kind: calcOp, op: n.Op, argc: 1, node: n}), nil
		}
		return nil, &CalculusError{Op: "rewrite", Rule: "operator " + n.Op.String()}
	case *Binary:
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv, OpPow:
			out, err := linearize(n.L, out)
			if err != nil {
				return nil, err
			}
			out, err = linearize(n.R, out)
			if err != nil {
				return nil, err
			}
			return append(out, calcItem{kind: calcOp, op: n.Op, argc: 2, node: n}), nil
		}
		return nil, &CalculusError{Op: "rewrite", Rule: "operator " + n.Op.String()}
	case *Call:
		if len(n.Args) != 1 {
			return nil, &CalculusError{Op: "rewrite", Rule: n.Name + " with " + itoa(len(n.Args)) + " arguments"}
		}
		out, err := linearize(n.Args[0], out)
		if err != nil {
			return nil, err
		}
		return append(out, calcItem{kind: calcCall, name: n.Name, argc: 1, node: n}), nil
	}
	return nil, &CalculusError{Op: "rewrite", Rule: "unsupported expression form"}
}

// span returns the index of the first item belonging to the subtree whose
// root sits at top.
func span(items []calcItem, top int) int {
	need := 1
	i := top
	for need > 0 {
		need += items[i].argc - 1
		i--
	}
	return i + 1
}

// operand returns the root indices of the children of the item at top, in
// left-to-right order.
func operands(items []calcItem, top int) []int {
	n := items[top].argc
	out := make([]int, n)
	end := top - 1
	for k := n - 1; k >= 0; k-- {
		out[k] = end
		end = span(items, end) - 1
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// containsVar reports whether the variable occurs free in the tree.
func containsVar(n Node, v string) bool {
	switch n := n.(type) {
	case *Lit:
		return false
	case *Ident:
		return n.Name == v
	case *ForcedRef:
		return n.Sigil == '$' && n.Name == v
	case *Unary:
		return containsVar(n.X, v)
	case *Binary:
		return containsVar(n.L, v) || containsVar(n.R, v)
	case *Call:
		for _, a := range n.Args {
			if containsVar(a, v) {
				return true
			}
		}
		return false
	}
	// Conservative: anything else is treated as depending on the variable.
	return true
}

// Tree constructors used by the rewriters.

func nLit(r *big.Rat) Node     { return &Lit{Val: RationalValue(r)} }
func nInt(v int64) Node        { return nLit(big.NewRat(v, 1)) }
func nIdent(name string) Node  { return &Ident{Name: name} }
func nNeg(x Node) Node         { return &Unary{Op: OpNeg, X: x} }
func nAdd(l, r Node) Node      { return &Binary{Op: OpAdd, L: l, R: r} }
func nSub(l, r Node) Node      { return &Binary{Op: OpSub, L: l, R: r} }
func nMul(l, r Node) Node      { return &Binary{Op: OpMul, L: l, R: r} }
func nDiv(l, r Node) Node      { return &Binary{Op: OpDiv, L: l, R: r} }
func nPow(l, r Node) Node      { return &Binary{Op: OpPow, L: l, R: r} }
func nCall(f string, x Node) Node {
	return &Call{Name: f, Args: []Node{x}}
}

// litRat extracts an exact rational from a literal or negated literal.
func litRat(n Node) (*big.Rat, bool) {
	switch n := n.(type) {
	case *Lit:
		return n.Val.AsRat()
	case *Unary:
		if n.Op == OpNeg {
			if r, ok := litRat(n.X); ok {
				return new(big.Rat).Neg(r), true
			}
		}
	}
	return nil, false
}

// Simplify rewrites a tree to a fixpoint of the local rewrite rules:
// constant folding, identity and absorbing elements, and double negation.
// It is idempotent.
func Simplify(n Node) Node {
	for {
		next := simplifyOnce(n)
		if Render(next) == Render(n) {
			return next
		}
		n = next
	}
}

func simplifyOnce(n Node) Node {
	switch n := n.(type) {
	case *Unary:
		x := simplifyOnce(n.X)
		switch n.Op {
		case OpPos:
			return x
		case OpNeg:
			if inner, ok := x.(*Unary); ok && inner.Op == OpNeg {
				return inner.X
			}
			if r, ok := litRat(x); ok {
				return nLit(new(big.Rat).Neg(r))
			}
			return nNeg(x)
		}
		return &Unary{Op: n.Op, X: x}
	case *Binary:
		l := simplifyOnce(n.L)
		r := simplifyOnce(n.R)
		if v := foldBinary(n.Op, l, r); v != nil {
			return v
		}
		return &Binary{Op: n.Op, L: l, R: r}
	case *Call:
		args := make([]Node, len(n.Args))
		for i, a := range n.Args {
			args[i] = simplifyOnce(a)
		}
		return &Call{Name: n.Name, Args: args}
	}
	return n
}

func foldBinary(op OpKind, l, r Node) Node {
	lr, lOK := litRat(l)
	rr, rOK := litRat(r)
	if lOK && rOK {
		if v := foldRats(op, lr, rr); v != nil {
			return v
		}
	}
	switch op {
	case OpAdd:
		if lOK && lr.Sign() == 0 {
			return r
		}
		if rOK && rr.Sign() == 0 {
			return l
		}
		if neg, ok := r.(*Unary); ok && neg.Op == OpNeg {
			return nSub(l, neg.X)
		}
	case OpSub:
		if rOK && rr.Sign() == 0 {
			return l
		}
		if lOK && lr.Sign() == 0 {
			return nNeg(r)
		}
		if neg, ok := r.(*Unary); ok && neg.Op == OpNeg {
			return nAdd(l, neg.X)
		}
	case OpMul:
		if lOK && lr.Sign() == 0 || rOK && rr.Sign() == 0 {
			return nInt(0)
		}
		if lOK && isOne(lr) {
			return r
		}
		if rOK && isOne(rr) {
			return l
		}
		if lOK && isMinusOne(lr) {
			return nNeg(r)
		}
		if rOK && isMinusOne(rr) {
			return nNeg(l)
		}
		// Lift division out of a product so rational factors meet.
		if d, ok := l.(*Binary); ok && d.Op == OpDiv {
			return nDiv(nMul(d.L, r), d.R)
		}
		if d, ok := r.(*Binary); ok && d.Op == OpDiv {
			return nDiv(nMul(l, d.L), d.R)
		}
		if v := combinePows(op, l, r); v != nil {
			return v
		}
	case OpDiv:
		if rOK && isOne(rr) {
			return l
		}
		if lOK && lr.Sign() == 0 && !(rOK && rr.Sign() == 0) {
			return nInt(0)
		}
		// Nested quotients flatten into a single one.
		if d, ok := l.(*Binary); ok && d.Op == OpDiv {
			return nDiv(d.L, nMul(d.R, r))
		}
		if d, ok := r.(*Binary); ok && d.Op == OpDiv {
			return nDiv(nMul(l, d.R), d.L)
		}
		if v := combinePows(op, l, r); v != nil {
			return v
		}
		// A literal denominator merges into the leading coefficient.
		if rOK && rr.Sign() != 0 {
			if c, rest := constFactor(l); !isOne(c) {
				return nMul(nLit(new(big.Rat).Quo(c, rr)), rest)
			}
		}
	case OpPow:
		if rOK && isOne(rr) {
			return l
		}
		if rOK && rr.Sign() == 0 {
			return nInt(1)
		}
		if lOK && isOne(lr) {
			return nInt(1)
		}
	}
	return nil
}

func foldRats(op OpKind, l, r *big.Rat) Node {
	switch op {
	case OpAdd:
		return nLit(new(big.Rat).Add(l, r))
	case OpSub:
		return nLit(new(big.Rat).Sub(l, r))
	case OpMul:
		return nLit(new(big.Rat).Mul(l, r))
	case OpDiv:
		if r.Sign() == 0 {
			return nil
		}
		return nLit(new(big.Rat).Quo(l, r))
	case OpPow:
		if e, ok := ratIsInt(r); ok && e > -64 && e < 64 {
			if v, err := ratPow(l, e); err == nil {
				return nLit(v)
			}
		}
	}
	return nil
}

// constFactor splits a tree into a rational coefficient and the remaining
// factor, peeling negation and literal multiplications. The coefficient is
// always freshly allocated.
func constFactor(n Node) (*big.Rat, Node) {
	switch n := n.(type) {
	case *Unary:
		if n.Op == OpNeg {
			c, rest := constFactor(n.X)
			return c.Neg(c), rest
		}
	case *Binary:
		if n.Op == OpMul {
			if c, ok := litRat(n.L); ok {
				cr, rest := constFactor(n.R)
				return cr.Mul(cr, c), rest
			}
			if c, ok := litRat(n.R); ok {
				cl, rest := constFactor(n.L)
				return cl.Mul(cl, c), rest
			}
		}
	}
	return big.NewRat(1, 1), n
}

// asPow views a tree as base^exponent with a literal exponent. Constants are
// excluded; numeric folding has its own rules for them.
func asPow(n Node) (base Node, exp *big.Rat, ok bool) {
	if _, isLit := litRat(n); isLit {
		return nil, nil, false
	}
	if b, isBin := n.(*Binary); isBin && b.Op == OpPow {
		if e, isLit := litRat(b.R); isLit {
			return b.L, new(big.Rat).Set(e), true
		}
		return nil, nil, false
	}
	return n, big.NewRat(1, 1), true
}

// combinePows merges a product or quotient of same-base powers with literal
// exponents, carrying literal coefficients along. Bases compare by their
// rendered form.
func combinePows(op OpKind, l, r Node) Node {
	cl, bl := constFactor(l)
	cr, br := constFactor(r)
	lb, le, lok := asPow(bl)
	rb, re, rok := asPow(br)
	if !lok || !rok || Render(lb) != Render(rb) {
		return nil
	}
	e := new(big.Rat)
	c := new(big.Rat)
	if op == OpMul {
		e.Add(le, re)
		c.Mul(cl, cr)
	} else {
		if cr.Sign() == 0 {
			return nil
		}
		e.Sub(le, re)
		c.Quo(cl, cr)
	}
	var p Node
	switch {
	case e.Sign() == 0:
		p = nInt(1)
	case isOne(e):
		p = lb
	default:
		p = nPow(lb, nLit(e))
	}
	if isOne(c) {
		return p
	}
	return nMul(nLit(c), p)
}

func isOne(r *big.Rat) bool      { return r.Cmp(big.NewRat(1, 1)) == 0 }
func isMinusOne(r *big.Rat) bool { return r.Cmp(big.NewRat(-1, 1)) == 0 }
