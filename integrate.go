package ratel

import (
	"math/big"
	"strings"
)

// Integrate returns the antiderivative of the tree with respect to the
// named variable, rendered as a string with the constant of integration
// appended. Patterns that would need substitution or partial fractions are
// rejected with a CalculusError naming the missing rule instead of being
// guessed at.
func Integrate(n Node, variable string) (string, error) {
	out, err := integrateNode(n, variable, 0)
	if err != nil {
		return "", err
	}
	return simplifyText(Render(Simplify(out))) + " + C", nil
}

// IntegrateString parses src and integrates it.
func IntegrateString(src, variable string, s *Settings) (string, error) {
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
	return Integrate(n, variable)
}

// byPartsLimit bounds integration-by-parts recursion; each step lowers the
// polynomial degree, so the bound only trips on malformed rewrites.
const byPartsLimit = 8

func integrateNode(n Node, v string, depth int) (Node, error) {
	items, err := linearize(Simplify(n), nil)
	if err != nil {
		if ce, ok := err.(*CalculusError); ok {
			ce.Op = "integrate"
		}
		return nil, err
	}
	in := integrator{items: items, v: v, depth: depth}
	return in.integrate(len(items) - 1)
}

type integrator struct {
	items []calcItem
	v     string
	depth int
}

func (in *integrator) integrate(top int) (Node, error) {
	it := in.items[top]
	switch it.kind {
	case calcLeaf:
		if containsVar(it.node, in.v) {
			// ∫x dx = x²/2
			return nDiv(nPow(nIdent(in.v), nInt(2)), nInt(2)), nil
		}
		return nMul(it.node, nIdent(in.v)), nil
	case calcOp:
		return in.integrateOp(top)
	case calcCall:
		return in.integrateCall(it.node.(*Call))
	}
	return nil, &CalculusError{Op: "integrate", Rule: "unsupported expression form"}
}

func (in *integrator) integrateOp(top int) (Node, error) {
	it := in.items[top]
	kids := operands(in.items, top)
	if it.argc == 1 {
		x, err := in.integrate(kids[0])
		if err != nil {
			return nil, err
		}
		if it.op == OpNeg {
			return nNeg(x), nil
		}
		return x, nil
	}
	li, ri := kids[0], kids[1]
	l, r := in.items[li].node, in.items[ri].node
	switch it.op {
	case OpAdd, OpSub:
		// Sums decompose independently.
		il, err := in.integrate(li)
		if err != nil {
			return nil, err
		}
		ir, err := in.integrate(ri)
		if err != nil {
			return nil, err
		}
		if it.op == OpAdd {
			return nAdd(il, ir), nil
		}
		return nSub(il, ir), nil
	case OpMul:
		if !containsVar(l, in.v) {
			ir, err := in.integrate(ri)
			if err != nil {
				return nil, err
			}
			return nMul(l, ir), nil
		}
		if !containsVar(r, in.v) {
			il, err := in.integrate(li)
			if err != nil {
				return nil, err
			}
			return nMul(r, il), nil
		}
		return in.byParts(l, r)
	case OpDiv:
		return in.integrateQuotient(l, r)
	case OpPow:
		return in.integratePow(l, r)
	}
	return nil, &CalculusError{Op: "integrate", Rule: "operator " + it.op.String()}
}

// byParts integrates a product where both factors depend on the variable.
// It accepts polynomial × transcendental, taking the polynomial as u, and
// logarithm × algebraic in LIATE order, taking the logarithm as u.
func (in *integrator) byParts(l, r Node) (Node, error) {
	if in.depth >= byPartsLimit {
		return nil, &CalculusError{Op: "integrate", Rule: "integration by parts did not terminate"}
	}
	var u, dv Node
	switch {
	case isLogCall(l, in.v) && isAlgebraic(r, in.v):
		u, dv = l, r
	case isLogCall(r, in.v) && isAlgebraic(l, in.v):
		u, dv = r, l
	case isPolynomial(l, in.v) && isTranscendental(r, in.v):
		u, dv = l, r
	case isPolynomial(r, in.v) && isTranscendental(l, in.v):
		u, dv = r, l
	default:
		return nil, &CalculusError{Op: "integrate", Rule: "product " + Render(l) + " * " + Render(r) + " has no by-parts pattern"}
	}
	// ∫u dv = u·V − ∫u′·V
	V, err := integrateNode(dv, in.v, in.depth+1)
	if err != nil {
		return nil, err
	}
	du, err := Differentiate(u, in.v)
	if err != nil {
		return nil, err
	}
	rest, err := integrateNode(Simplify(nMul(du, V)), in.v, in.depth+1)
	if err != nil {
		return nil, err
	}
	return nSub(nMul(u, V), rest), nil
}

// integrateQuotient recognizes constant denominators and the logarithmic
// derivative pattern ∫f′/f = ln|f|.
func (in *integrator) integrateQuotient(l, r Node) (Node, error) {
	if !containsVar(r, in.v) {
		il, err := integrateNode(l, in.v, in.depth)
		if err != nil {
			return nil, err
		}
		return nDiv(il, r), nil
	}
	if !containsVar(l, in.v) {
		// c/u rewrites to c·u⁻¹ and reuses the power rules.
		p, err := in.integratePow(r, nInt(-1))
		if err != nil {
			return nil, err
		}
		return nMul(l, p), nil
	}
	// Differentiate the denominator and compare against the numerator up to
	// a constant multiple.
	dr, err := Differentiate(r, in.v)
	if err != nil {
		return nil, err
	}
	cl, bl := constFactor(Simplify(l))
	cd, bd := constFactor(dr)
	if cd.Sign() != 0 && Render(bl) == Render(bd) {
		ratio := new(big.Rat).Quo(cl, cd)
		return nMul(nLit(ratio), nCall("ln", nCall("abs", r))), nil
	}
	return nil, &CalculusError{Op: "integrate", Rule: "quotient " + Render(l) + " / " + Render(r) + " needs substitution or partial fractions"}
}

func (in *integrator) integratePow(u, e Node) (Node, error) {
	if c, ok := litRat(e); ok && containsVar(u, in.v) {
		a, _, linear := linearIn(u, in.v)
		if !linear {
			return nil, &CalculusError{Op: "integrate", Rule: "power of " + Render(u) + " needs substitution"}
		}
		if isMinusOne(c) {
			// ∫(ax+b)⁻¹ = ln|ax+b| / a
			return nDiv(nCall("ln", nCall("abs", u)), nLit(a)), nil
		}
		c1 := new(big.Rat).Add(c, big.NewRat(1, 1))
		return nDiv(nPow(u, nLit(c1)), nMul(nLit(c1), nLit(a))), nil
	}
	if !containsVar(u, in.v) {
		a, _, linear := linearIn(e, in.v)
		if !linear {
			return nil, &CalculusError{Op: "integrate", Rule: "exponent " + Render(e) + " needs substitution"}
		}
		// ∫c^(ax+b) = c^(ax+b) / (a·ln c)
		return nDiv(nPow(u, e), nMul(nLit(a), nCall("ln", u))), nil
	}
	return nil, &CalculusError{Op: "integrate", Rule: "power " + Render(u) + " ^ " + Render(e) + " has no rule"}
}

// intRules maps a function name to the antiderivative of f(x) itself.
// Linear inner arguments divide the result by the leading coefficient; any
// other inner argument is rejected.
var intRules = map[string]func(u Node) Node{
	"sin":  func(u Node) Node { return nNeg(nCall("cos", u)) },
	"cos":  func(u Node) Node { return nCall("sin", u) },
	"tan":  func(u Node) Node { return nNeg(nCall("ln", nCall("abs", nCall("cos", u)))) },
	"exp":  func(u Node) Node { return nCall("exp", u) },
	"ln":   func(u Node) Node { return nSub(nMul(u, nCall("ln", u)), u) },
	"sinh": func(u Node) Node { return nCall("cosh", u) },
	"cosh": func(u Node) Node { return nCall("sinh", u) },
	"sqrt": func(u Node) Node { return nMul(nLit(big.NewRat(2, 3)), nPow(u, nLit(big.NewRat(3, 2)))) },
	"asin": func(u Node) Node {
		return nAdd(nMul(u, nCall("asin", u)), nCall("sqrt", nSub(nInt(1), nPow(u, nInt(2)))))
	},
	"atan": func(u Node) Node {
		return nSub(nMul(u, nCall("atan", u)), nMul(nLit(big.NewRat(1, 2)), nCall("ln", nAdd(nInt(1), nPow(u, nInt(2))))))
	},
}

func (in *integrator) integrateCall(c *Call) (Node, error) {
	rule, ok := intRules[c.Name]
	if !ok {
		return nil, &CalculusError{Op: "integrate", Rule: "no rule for " + c.Name}
	}
	u := c.Args[0]
	a, _, linear := linearIn(u, in.v)
	if !linear {
		return nil, &CalculusError{Op: "integrate", Rule: c.Name + "(" + Render(u) + ") needs substitution"}
	}
	body := rule(u)
	if isOne(a) {
		return body, nil
	}
	return nDiv(body, nLit(a)), nil
}

// linearIn decomposes a tree as a·v + b with constant a and b, requiring
// a nonzero leading coefficient.
func linearIn(n Node, v string) (a, b *big.Rat, ok bool) {
	a, b, ok = linearParts(n, v)
	if !ok || a.Sign() == 0 {
		return nil, nil, false
	}
	return a, b, true
}

func linearParts(n Node, v string) (a, b *big.Rat, ok bool) {
	zero := func() *big.Rat { return new(big.Rat) }
	switch n := n.(type) {
	case *Lit:
		if r, isNum := n.Val.AsRat(); isNum {
			// Copied: the caller folds the parts in place.
			return zero(), new(big.Rat).Set(r), true
		}
		return nil, nil, false
	case *Ident:
		if n.Name == v {
			return big.NewRat(1, 1), zero(), true
		}
		return nil, nil, false
	case *Unary:
		switch n.Op {
		case OpPos:
			return linearParts(n.X, v)
		case OpNeg:
			xa, xb, xok := linearParts(n.X, v)
			if !xok {
				return nil, nil, false
			}
			return xa.Neg(xa), xb.Neg(xb), true
		}
	case *Binary:
		la, lb, lok := linearParts(n.L, v)
		ra, rb, rok := linearParts(n.R, v)
		switch n.Op {
		case OpAdd:
			if lok && rok {
				return la.Add(la, ra), lb.Add(lb, rb), true
			}
		case OpSub:
			if lok && rok {
				return la.Sub(la, ra), lb.Sub(lb, rb), true
			}
		case OpMul:
			if lok && rok {
				switch {
				case la.Sign() == 0:
					return ra.Mul(ra, lb), rb.Mul(rb, lb), true
				case ra.Sign() == 0:
					return la.Mul(la, rb), lb.Mul(lb, rb), true
				}
			}
		case OpDiv:
			if lok && rok && ra.Sign() == 0 && rb.Sign() != 0 {
				return la.Quo(la, rb), lb.Quo(lb, rb), true
			}
		}
	}
	return nil, nil, false
}

// isPolynomial reports whether the tree is polynomial in v.
func isPolynomial(n Node, v string) bool {
	switch n := n.(type) {
	case *Lit:
		return n.Val.IsNumeric()
	case *Ident:
		return true
	case *Unary:
		return n.Op == OpNeg || n.Op == OpPos
	case *Binary:
		switch n.Op {
		case OpAdd, OpSub, OpMul:
			return isPolynomial(n.L, v) && isPolynomial(n.R, v)
		case OpDiv:
			return isPolynomial(n.L, v) && !containsVar(n.R, v)
		case OpPow:
			if e, ok := litRat(n.R); ok && e.IsInt() && e.Sign() >= 0 {
				return isPolynomial(n.L, v)
			}
		}
	}
	return false
}

// isTranscendental matches sin, cos, or exp of a linear argument, the
// shapes the by-parts tabular method handles.
func isTranscendental(n Node, v string) bool {
	c, ok := n.(*Call)
	if !ok || len(c.Args) != 1 {
		return false
	}
	switch c.Name {
	case "sin", "cos", "exp":
		_, _, linear := linearIn(c.Args[0], v)
		return linear
	}
	return false
}

// isLogCall matches logarithms of the bare variable for the LIATE pairing.
func isLogCall(n Node, v string) bool {
	c, ok := n.(*Call)
	if !ok || len(c.Args) != 1 {
		return false
	}
	switch c.Name {
	case "ln", "log", "log2", "log10":
		_, _, linear := linearIn(c.Args[0], v)
		return linear
	}
	return false
}

// isAlgebraic is the A of LIATE: polynomials and rational powers of v.
func isAlgebraic(n Node, v string) bool {
	if isPolynomial(n, v) {
		return true
	}
	if b, ok := n.(*Binary); ok && b.Op == OpPow {
		if _, isConst := litRat(b.R); isConst {
			return isPolynomial(b.L, v)
		}
	}
	return false
}

// simplifyText cancels textual noise left over by rendering: additions of
// zero, double negatives, and redundant outer parentheses. It runs to a
// fixpoint and is idempotent.
func simplifyText(s string) string {
	for {
		next := simplifyTextOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func simplifyTextOnce(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "+ -", "- ")
	s = strings.ReplaceAll(s, "- -", "+ ")
	s = strings.ReplaceAll(s, "--", "")
	s = strings.ReplaceAll(s, " + 0 ", " ")
	if strings.HasSuffix(s, " + 0") {
		s = strings.TrimSuffix(s, " + 0")
	}
	if strings.HasSuffix(s, " - 0") {
		s = strings.TrimSuffix(s, " - 0")
	}
	if strings.HasPrefix(s, "0 + ") {
		s = strings.TrimPrefix(s, "0 + ")
	}
	// Strip a redundant outer paren pair.
	if len(s) > 1 && s[0] == '(' && s[len(s)-1] == ')' {
		depth := 0
		balanced := true
		for i, r := range s {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 && i != len(s)-1 {
					balanced = false
				}
			}
			if !balanced {
				break
			}
		}
		if balanced {
			s = s[1 : len(s)-1]
		}
	}
	return s
}
