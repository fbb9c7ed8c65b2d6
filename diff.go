package ratel

import (
	"math/big"
)

// Differentiate returns the derivative of the tree with respect to the
// named variable as a new tree, simplified to a fixpoint. Expressions
// outside the rule set fail with a CalculusError naming the missing rule.
func Differentiate(n Node, variable string) (Node, error) {
	items, err := linearize(n, nil)
	if err != nil {
		if ce, ok := err.(*CalculusError); ok {
			ce.Op = "differentiate"
		}
		return nil, err
	}
	d := differ{items: items, v: variable}
	out, err := d.derive(len(items) - 1)
	if err != nil {
		return nil, err
	}
	return Simplify(out), nil
}

// DifferentiateString parses src and returns the rendered derivative.
func DifferentiateString(src, variable string, s *Settings) (string, error) {
	if s == nil {
		s = DefaultSettings()
	}
	toks, err := NewTokenizer(s, DefaultFuncs(), DefaultUnits(), DefaultConstants()).Tokenize(src)
	if err != nil {
		return "", err
	}
	n, err := ParseTokens(toks, s)
	if err != nil {
		return "", err
	}
	out, err := Differentiate(n, variable)
	if err != nil {
		return "", err
	}
	return Render(out), nil
}

type differ struct {
	items []calcItem
	v     string
}

// derive rewrites the postfix subtree rooted at top into its derivative.
func (d *differ) derive(top int) (Node, error) {
	it := d.items[top]
	switch it.kind {
	case calcLeaf:
		if containsVar(it.node, d.v) {
			return nInt(1), nil
		}
		return nInt(0), nil
	case calcOp:
		return d.deriveOp(top)
	case calcCall:
		return d.deriveCall(top)
	}
	return nil, &CalculusError{Op: "differentiate", Rule: "unsupported expression form"}
}

func (d *differ) deriveOp(top int) (Node, error) {
	it := d.items[top]
	kids := operands(d.items, top)
	if it.argc == 1 {
		dx, err := d.derive(kids[0])
		if err != nil {
			return nil, err
		}
		if it.op == OpNeg {
			return nNeg(dx), nil
		}
		return dx, nil
	}
	li, ri := kids[0], kids[1]
	l, r := d.items[li].node, d.items[ri].node
	switch it.op {
	case OpAdd, OpSub:
		dl, err := d.derive(li)
		if err != nil {
			return nil, err
		}
		dr, err := d.derive(ri)
		if err != nil {
			return nil, err
		}
		if it.op == OpAdd {
			return nAdd(dl, dr), nil
		}
		return nSub(dl, dr), nil
	case OpMul:
		// Constant multiples factor out before the product rule.
		if !containsVar(l, d.v) {
			dr, err := d.derive(ri)
			if err != nil {
				return nil, err
			}
			return nMul(l, dr), nil
		}
		if !containsVar(r, d.v) {
			dl, err := d.derive(li)
			if err != nil {
				return nil, err
			}
			return nMul(r, dl), nil
		}
		dl, err := d.derive(li)
		if err != nil {
			return nil, err
		}
		dr, err := d.derive(ri)
		if err != nil {
			return nil, err
		}
		return nAdd(nMul(dl, r), nMul(l, dr)), nil
	case OpDiv:
		if !containsVar(r, d.v) {
			dl, err := d.derive(li)
			if err != nil {
				return nil, err
			}
			return nDiv(dl, r), nil
		}
		dl, err := d.derive(li)
		if err != nil {
			return nil, err
		}
		dr, err := d.derive(ri)
		if err != nil {
			return nil, err
		}
		return nDiv(nSub(nMul(dl, r), nMul(l, dr)), nPow(r, nInt(2))), nil
	case OpPow:
		return d.derivePow(li, ri)
	}
	return nil, &CalculusError{Op: "differentiate", Rule: "operator " + it.op.String()}
}

// derivePow handles the three power shapes: u^c, c^u, and u^v.
func (d *differ) derivePow(li, ri int) (Node, error) {
	u, v := d.items[li].node, d.items[ri].node
	du, err := d.derive(li)
	if err != nil {
		return nil, err
	}
	if !containsVar(v, d.v) {
		// Power rule: c * u^(c-1) * u'.
		exp := nSub(v, nInt(1))
		if c, ok := litRat(v); ok {
			exp = nLit(new(big.Rat).Sub(c, big.NewRat(1, 1)))
		}
		return nMul(nMul(v, nPow(u, exp)), du), nil
	}
	dv, err := d.derive(ri)
	if err != nil {
		return nil, err
	}
	if !containsVar(u, d.v) {
		// Exponential rule: c^u * ln(c) * u'.
		return nMul(nMul(nPow(u, v), nCall("ln", u)), dv), nil
	}
	// General case: u^v * (v' ln u + v u'/u).
	return nMul(nPow(u, v), nAdd(nMul(dv, nCall("ln", u)), nMul(v, nDiv(du, u)))), nil
}

// diffRules maps a function name to the derivative of the outer function in
// terms of its argument. The chain rule supplies the inner factor.
var diffRules = map[string]func(u Node) Node{
	"sin":   func(u Node) Node { return nCall("cos", u) },
	"cos":   func(u Node) Node { return nNeg(nCall("sin", u)) },
	"tan":   func(u Node) Node { return nDiv(nInt(1), nPow(nCall("cos", u), nInt(2))) },
	"asin":  func(u Node) Node { return nDiv(nInt(1), nCall("sqrt", nSub(nInt(1), nPow(u, nInt(2))))) },
	"acos":  func(u Node) Node { return nNeg(nDiv(nInt(1), nCall("sqrt", nSub(nInt(1), nPow(u, nInt(2)))))) },
	"atan":  func(u Node) Node { return nDiv(nInt(1), nAdd(nInt(1), nPow(u, nInt(2)))) },
	"sinh":  func(u Node) Node { return nCall("cosh", u) },
	"cosh":  func(u Node) Node { return nCall("sinh", u) },
	"tanh":  func(u Node) Node { return nDiv(nInt(1), nPow(nCall("cosh", u), nInt(2))) },
	"exp":   func(u Node) Node { return nCall("exp", u) },
	"ln":    func(u Node) Node { return nDiv(nInt(1), u) },
	"log":   func(u Node) Node { return nDiv(nInt(1), nMul(u, nCall("ln", nInt(10)))) },
	"log2":  func(u Node) Node { return nDiv(nInt(1), nMul(u, nCall("ln", nInt(2)))) },
	"log10": func(u Node) Node { return nDiv(nInt(1), nMul(u, nCall("ln", nInt(10)))) },
	"sqrt":  func(u Node) Node { return nDiv(nInt(1), nMul(nInt(2), nCall("sqrt", u))) },
	"cbrt":  func(u Node) Node { return nDiv(nInt(1), nMul(nInt(3), nPow(u, big23()))) },
	"abs":   func(u Node) Node { return nDiv(u, nCall("abs", u)) },
}

func big23() Node { return nLit(big.NewRat(2, 3)) }

func (d *differ) deriveCall(top int) (Node, error) {
	it := d.items[top]
	rule, ok := diffRules[it.name]
	if !ok {
		return nil, &CalculusError{Op: "differentiate", Rule: "no rule for " + it.name}
	}
	kids := operands(d.items, top)
	u := d.items[kids[0]].node
	du, err := d.derive(kids[0])
	if err != nil {
		return nil, err
	}
	return nMul(rule(u), du), nil
}
