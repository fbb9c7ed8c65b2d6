package ratel

import (
	"strconv"
	"strings"
)

// OpKind identifies an operator in the syntax tree.
type OpKind int8

const (
	OpNone OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	// OpMatMul is @, true matrix multiplication, never element-wise.
	OpMatMul
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	// Unary operators.
	OpNeg
	OpPos
	OpNot
	// Postfix operators.
	OpFact
	OpPercent
)

func (op OpKind) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		// The word form: the renderer's output must re-lex, and %% is an
		// internal token spelling the scanner never produces.
		return "mod"
	case OpPow:
		return "^"
	case OpMatMul:
		return "@"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpNot:
		return "!"
	case OpFact:
		return "!"
	case OpPercent:
		return "%"
	default:
		return "?"
	}
}

// Node is a node of the abstract syntax tree. The hierarchy is closed: the
// evaluator and the symbolic engine switch exhaustively over the concrete
// types below, so adding a kind is a compiler-enforced single-point change.
type Node interface {
	// Pos returns the 1-based source position of the node.
	Pos() (line, col int)
	node()
}

type srcPos struct {
	line, col int
}

func (p srcPos) Pos() (int, int) { return p.line, p.col }
func (srcPos) node()             {}

func at(t Token) srcPos { return srcPos{t.Line, t.Col} }

// Lit is an already-evaluated constant embedded in the tree.
type Lit struct {
	srcPos
	Val Value
}

// Ident is a bare identifier resolved at evaluation time according to its
// syntactic position.
type Ident struct {
	srcPos
	Name string
}

// ForcedRef is a $var, @unit, or #const reference. The sigil skips the
// normal resolution priority and fails fast if the name is not of the forced
// kind. #const bypasses variable shadowing.
type ForcedRef struct {
	srcPos
	Sigil byte
	Name  string
}

// Unary applies a prefix or postfix operator.
type Unary struct {
	srcPos
	Op OpKind
	X  Node
}

// Binary applies a binary operator.
type Binary struct {
	srcPos
	Op   OpKind
	L, R Node
}

// Call applies a named function to arguments. Resolution prefers user
// functions, then builtins, then a variable bound to a lambda.
type Call struct {
	srcPos
	Name string
	Args []Node
}

// Assign is name := expr. The target bypasses identifier resolution.
type Assign struct {
	srcPos
	Name string
	X    Node
}

// FuncDefExpr is f(a, b) := body.
type FuncDefExpr struct {
	srcPos
	Name   string
	Params []string
	Body   Node
}

// LambdaLit is params -> body. Lambdas capture a snapshot of the defining
// context at evaluation time (lexical scoping).
type LambdaLit struct {
	srcPos
	Params []string
	Body   Node
}

// VectorLit is {a, b, c}.
type VectorLit struct {
	srcPos
	Elems []Node
}

// MatrixLit is [a, b; c, d] or [[a, b], [c, d]].
type MatrixLit struct {
	srcPos
	Rows [][]Node
}

// RangeLit is start..end with an optional step expression.
type RangeLit struct {
	srcPos
	Start, End Node
	Step       Node
}

// Comprehension is {expr for name in source if cond}; Cond may be nil.
type Comprehension struct {
	srcPos
	Expr   Node
	Var    string
	Source Node
	Cond   Node
}

// IndexExpr is x[i].
type IndexExpr struct {
	srcPos
	X, I Node
}

// SliceExpr is x[lo:hi]; either bound may be nil.
type SliceExpr struct {
	srcPos
	X      Node
	Lo, Hi Node
}

// Seq is a ;-separated statement sequence; its value is the last
// statement's value.
type Seq struct {
	srcPos
	Stmts []Node
}

// Convert is expr in unit.
type Convert struct {
	srcPos
	X    Node
	Unit string
}

// UnitApply is a numeric literal immediately followed by a unit name,
// e.g. 100 meters.
type UnitApply struct {
	srcPos
	X    Node
	Unit string
}

// Rendering. The renderer produces parseable text with minimal parentheses;
// the symbolic engine round-trips through it for structural comparison, so
// it must be deterministic.

const (
	precOr = iota + 1
	precAnd
	precCmp
	precConv
	precRange
	precAdd
	precMul
	precUnary
	precPow
	precPostfix
	precAtom
)

func opPrec(op OpKind) int {
	switch op {
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return precCmp
	case OpAdd, OpSub:
		return precAdd
	case OpMul, OpDiv, OpMod, OpMatMul:
		return precMul
	case OpPow:
		return precPow
	case OpNeg, OpPos, OpNot:
		return precUnary
	case OpFact, OpPercent:
		return precPostfix
	default:
		return precAtom
	}
}

// Render renders a node back to expression text.
func Render(n Node) string {
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n Node, outer int) {
	switch n := n.(type) {
	case *Lit:
		writeLitValue(b, n.Val)
	case *Ident:
		b.WriteString(n.Name)
	case *ForcedRef:
		b.WriteByte(n.Sigil)
		b.WriteString(n.Name)
	case *Unary:
		p := opPrec(n.Op)
		paren := p < outer
		if paren {
			b.WriteByte('(')
		}
		switch n.Op {
		case OpFact, OpPercent:
			writeNode(b, n.X, p+1)
			b.WriteString(n.Op.String())
		default:
			b.WriteString(n.Op.String())
			writeNode(b, n.X, p)
		}
		if paren {
			b.WriteByte(')')
		}
	case *Binary:
		p := opPrec(n.Op)
		paren := p < outer
		if paren {
			b.WriteByte('(')
		}
		if n.Op == OpPow {
			// Right-associative: a left-nested power needs parentheses,
			// a right-nested one does not.
			writeNode(b, n.L, p+1)
			b.WriteString("^")
			writeNode(b, n.R, p)
		} else {
			writeNode(b, n.L, p)
			b.WriteByte(' ')
			b.WriteString(n.Op.String())
			b.WriteByte(' ')
			writeNode(b, n.R, p+1)
		}
		if paren {
			b.WriteByte(')')
		}
	case *Call:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, a, 0)
		}
		b.WriteByte(')')
	case *Assign:
		b.WriteString(n.Name)
		b.WriteString(" := ")
		writeNode(b, n.X, 0)
	case *FuncDefExpr:
		b.WriteString(n.Name)
		b.WriteByte('(')
		b.WriteString(strings.Join(n.Params, ", "))
		b.WriteString(") := ")
		writeNode(b, n.Body, 0)
	case *LambdaLit:
		if len(n.Params) == 1 {
			b.WriteString(n.Params[0])
		} else {
			b.WriteByte('(')
			b.WriteString(strings.Join(n.Params, ", "))
			b.WriteByte(')')
		}
		b.WriteString(" -> ")
		writeNode(b, n.Body, 0)
	case *VectorLit:
		b.WriteByte('{')
		for i, e := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, e, 0)
		}
		b.WriteByte('}')
	case *MatrixLit:
		b.WriteByte('[')
		for i, row := range n.Rows {
			if i > 0 {
				b.WriteString("; ")
			}
			for j, e := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				writeNode(b, e, 0)
			}
		}
		b.WriteByte(']')
	case *RangeLit:
		paren := precRange < outer
		if paren {
			b.WriteByte('(')
		}
		writeNode(b, n.Start, precRange+1)
		b.WriteString("..")
		writeNode(b, n.End, precRange+1)
		if n.Step != nil {
			b.WriteString(" step ")
			writeNode(b, n.Step, precRange+1)
		}
		if paren {
			b.WriteByte(')')
		}
	case *Comprehension:
		b.WriteByte('{')
		writeNode(b, n.Expr, 0)
		b.WriteString(" for ")
		b.WriteString(n.Var)
		b.WriteString(" in ")
		writeNode(b, n.Source, 0)
		if n.Cond != nil {
			b.WriteString(" if ")
			writeNode(b, n.Cond, 0)
		}
		b.WriteByte('}')
	case *IndexExpr:
		writeNode(b, n.X, precPostfix)
		b.WriteByte('[')
		writeNode(b, n.I, 0)
		b.WriteByte(']')
	case *SliceExpr:
		writeNode(b, n.X, precPostfix)
		b.WriteByte('[')
		if n.Lo != nil {
			writeNode(b, n.Lo, 0)
		}
		b.WriteByte(':')
		if n.Hi != nil {
			writeNode(b, n.Hi, 0)
		}
		b.WriteByte(']')
	case *Seq:
		for i, s := range n.Stmts {
			if i > 0 {
				b.WriteString("; ")
			}
			writeNode(b, s, 0)
		}
	case *Convert:
		paren := precConv < outer
		if paren {
			b.WriteByte('(')
		}
		writeNode(b, n.X, precConv+1)
		b.WriteString(" in ")
		b.WriteString(n.Unit)
		if paren {
			b.WriteByte(')')
		}
	case *UnitApply:
		writeNode(b, n.X, precPostfix)
		b.WriteByte(' ')
		b.WriteString(n.Unit)
	default:
		b.WriteString("<?>")
	}
}

func writeLitValue(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindRational:
		if v.Rat.IsInt() {
			b.WriteString(v.Rat.Num().String())
			return
		}
		if v.Rat.Sign() < 0 {
			b.WriteString("(" + v.Rat.RatString() + ")")
			return
		}
		b.WriteString(v.Rat.RatString())
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindPercent:
		b.WriteString(v.Rat.RatString() + "%")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindString:
		b.WriteString(strconv.Quote(v.Str))
	default:
		b.WriteString("<" + v.Kind.String() + ">")
	}
}

// depth computes the nesting depth of a tree, used to enforce the
// expression-depth ceiling on programmatically assembled trees.
func depth(n Node) int {
	switch n := n.(type) {
	case nil:
		return 0
	case *Unary:
		return 1 + depth(n.X)
	case *Binary:
		return 1 + max(depth(n.L), depth(n.R))
	case *Call:
		d := 0
		for _, a := range n.Args {
			d = max(d, depth(a))
		}
		return 1 + d
	case *Assign:
		return 1 + depth(n.X)
	case *FuncDefExpr:
		return 1 + depth(n.Body)
	case *LambdaLit:
		return 1 + depth(n.Body)
	case *VectorLit:
		d := 0
		for _, e := range n.Elems {
			d = max(d, depth(e))
		}
		return 1 + d
	case *MatrixLit:
		d := 0
		for _, row := range n.Rows {
			for _, e := range row {
				d = max(d, depth(e))
			}
		}
		return 1 + d
	case *RangeLit:
		d := max(depth(n.Start), depth(n.End))
		if n.Step != nil {
			d = max(d, depth(n.Step))
		}
		return 1 + d
	case *Comprehension:
		d := max(depth(n.Expr), depth(n.Source))
		if n.Cond != nil {
			d = max(d, depth(n.Cond))
		}
		return 1 + d
	case *IndexExpr:
		return 1 + max(depth(n.X), depth(n.I))
	case *SliceExpr:
		d := depth(n.X)
		if n.Lo != nil {
			d = max(d, depth(n.Lo))
		}
		if n.Hi != nil {
			d = max(d, depth(n.Hi))
		}
		return 1 + d
	case *Seq:
		d := 0
		for _, s := range n.Stmts {
			d = max(d, depth(s))
		}
		return 1 + d
	case *Convert:
		return 1 + depth(n.X)
	case *UnitApply:
		return 1 + depth(n.X)
	default:
		return 1
	}
}
