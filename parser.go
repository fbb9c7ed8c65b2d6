package ratel

import "fmt"

// Parser turns a token sequence into a syntax tree. Binary operators are
// parsed by precedence climbing; vectors, matrices, ranges, lambdas,
// comprehensions, and postfix chains have dedicated sub-parsers.
type Parser struct {
	settings *Settings
	toks     []Token
	i        int
	depth    int
}

// NewParser builds a parser over an EOF-terminated token sequence.
func NewParser(toks []Token, s *Settings) *Parser {
	if s == nil {
		s = DefaultSettings()
	}
	return &Parser{settings: s, toks: toks}
}

// ParseString tokenizes and parses src with the default settings and
// registries.
func ParseString(src string) (Node, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks, nil)
}

// Parse tokenizes and parses src with the tokenizer's settings.
func (t *Tokenizer) Parse(src string) (Node, error) {
	toks, err := t.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks, t.settings)
}

// ParseTokens parses an EOF-terminated token sequence into a tree.
func ParseTokens(toks []Token, s *Settings) (Node, error) {
	p := NewParser(toks, s)
	n, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokEOF {
		return nil, p.errf("unexpected token %q", p.cur().Lexeme)
	}
	return n, nil
}

func (p *Parser) cur() Token  { return p.toks[p.i] }
func (p *Parser) peek() Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() Token {
	t := p.toks[p.i]
	if t.Kind != TokEOF {
		p.i++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) *ParseError {
	t := p.cur()
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: t.Line, Col: t.Col}
}

func (p *Parser) disabled(feature string) *ParseError {
	t := p.cur()
	return &ParseError{Feature: feature, Line: t.Line, Col: t.Col}
}

func (p *Parser) expectOp(lexeme string) error {
	if t := p.cur(); t.Kind != TokOp || t.Lexeme != lexeme {
		return p.errf("expected %q, found %q", lexeme, t.Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if p.cur().Kind != kind {
		return Token{}, p.errf("expected %s, found %q", what, p.cur().Lexeme)
	}
	return p.advance(), nil
}

// enter enforces the expression-depth ceiling on the recursive descent.
func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.settings.MaxExpressionDepth {
		return p.errf("maximum expression depth %d exceeded", p.settings.MaxExpressionDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

// identName extracts an identifier-like token's name. Registry
// classification does not stop a name from being an assignment target or a
// parameter.
func identName(t Token) (string, bool) {
	switch t.Kind {
	case TokIdent, TokFunc, TokUnit, TokConst:
		return t.Lexeme, true
	}
	return "", false
}

// parseProgram parses a ;-separated statement sequence.
func (p *Parser) parseProgram() (Node, error) {
	first := p.cur()
	var stmts []Node
	for {
		if p.cur().Kind == TokEOF {
			break
		}
		n, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, n)
		if p.cur().Kind == TokSemi {
			p.advance()
			continue
		}
		break
	}
	switch len(stmts) {
	case 0:
		return nil, p.errf("empty expression")
	case 1:
		return stmts[0], nil
	}
	return &Seq{srcPos: at(first), Stmts: stmts}, nil
}

// parseStatement disambiguates a leading identifier that could start a
// variable assignment, a function definition, or a plain expression, using
// bounded lookahead over the token buffer.
func (p *Parser) parseStatement() (Node, error) {
	t := p.cur()
	if name, ok := identName(t); ok {
		switch {
		case p.peek().Kind == TokAssign:
			p.advance()
			p.advance()
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &Assign{srcPos: at(t), Name: name, X: x}, nil
		case p.peek().Kind == TokLParen:
			if params, after, ok := p.scanDefHead(); ok {
				if !p.settings.UserFunctions {
					return nil, p.disabled("user-defined function")
				}
				p.i = after
				body, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				return &FuncDefExpr{srcPos: at(t), Name: name, Params: params, Body: body}, nil
			}
		}
	}
	return p.parseExpr()
}

// scanDefHead checks for ident '(' params ')' ':=' starting at the current
// token without consuming anything. It returns the parameter names and the
// index of the first body token.
func (p *Parser) scanDefHead() (params []string, after int, ok bool) {
	i := p.i + 2 // past name and (
	if i >= len(p.toks) {
		return nil, 0, false
	}
	if p.toks[i].Kind != TokRParen {
		for {
			name, isIdent := identName(p.toks[i])
			if !isIdent {
				return nil, 0, false
			}
			params = append(params, name)
			i++
			if p.toks[i].Kind == TokComma {
				i++
				continue
			}
			break
		}
	}
	if p.toks[i].Kind != TokRParen {
		return nil, 0, false
	}
	i++
	if i >= len(p.toks) || p.toks[i].Kind != TokAssign {
		return nil, 0, false
	}
	return params, i + 1, true
}

// parseExpr parses a full expression including unit conversion, the
// loosest-binding construct.
func (p *Parser) parseExpr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	n, err := p.parseBinary(precOr)
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokKeyword && p.cur().Lexeme == "in" {
		if !p.settings.Units {
			return nil, p.disabled("unit")
		}
		t := p.advance()
		unit := p.cur()
		name, ok := identName(unit)
		if !ok {
			return nil, p.errf("expected unit name after \"in\", found %q", unit.Lexeme)
		}
		p.advance()
		n = &Convert{srcPos: at(t), X: n, Unit: name}
	}
	return n, nil
}

// binOpFor maps an operator token to its tree kind and precedence level.
func binOpFor(t Token) (OpKind, int) {
	if t.Kind != TokOp {
		return OpNone, 0
	}
	switch t.Lexeme {
	case "||":
		return OpOr, precOr
	case "&&":
		return OpAnd, precAnd
	case "==":
		return OpEq, precCmp
	case "!=":
		return OpNe, precCmp
	case "<":
		return OpLt, precCmp
	case "<=":
		return OpLe, precCmp
	case ">":
		return OpGt, precCmp
	case ">=":
		return OpGe, precCmp
	case "+":
		return OpAdd, precAdd
	case "-":
		return OpSub, precAdd
	case "*":
		return OpMul, precMul
	case "/":
		return OpDiv, precMul
	case "%%":
		return OpMod, precMul
	case "@":
		return OpMatMul, precMul
	default:
		return OpNone, 0
	}
}

// parseBinary is the precedence climber for the left-associative binary
// ladder. Ranges slot in between comparison and addition; exponentiation is
// handled below the unary level because it binds tighter and associates
// right.
func (p *Parser) parseBinary(min int) (Node, error) {
	if min > precMul {
		return p.parseUnary()
	}
	if min == precConv {
		// Unit conversion is handled by parseExpr so a converted value
		// can still be compared and combined.
		return p.parseBinary(min + 1)
	}
	lhs, err := p.parseBinary(min + 1)
	if err != nil {
		return nil, err
	}
	if min == precRange {
		return p.parseRangeTail(lhs)
	}
	for {
		op, prec := binOpFor(p.cur())
		if op == OpNone || prec != min {
			return lhs, nil
		}
		t := p.advance()
		rhs, err := p.parseBinary(min + 1)
		if err != nil {
			return nil, err
		}
		lhs = &Binary{srcPos: at(t), Op: op, L: lhs, R: rhs}
	}
}

// parseRangeTail parses ..end [step s] after a parsed start expression.
func (p *Parser) parseRangeTail(start Node) (Node, error) {
	if p.cur().Kind != TokRange {
		return start, nil
	}
	t := p.advance()
	end, err := p.parseBinary(precAdd)
	if err != nil {
		return nil, err
	}
	var step Node
	if p.cur().Kind == TokKeyword && p.cur().Lexeme == "step" {
		p.advance()
		step, err = p.parseBinary(precAdd)
		if err != nil {
			return nil, err
		}
	}
	return &RangeLit{srcPos: at(t), Start: start, End: end, Step: step}, nil
}

// parseUnary parses prefix operators. Exponentiation binds tighter than
// unary minus, so -2^2 is -(2^2).
func (p *Parser) parseUnary() (Node, error) {
	t := p.cur()
	if t.Kind == TokOp {
		switch t.Lexeme {
		case "-":
			p.advance()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Unary{srcPos: at(t), Op: OpNeg, X: x}, nil
		case "+":
			p.advance()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Unary{srcPos: at(t), Op: OpPos, X: x}, nil
		case "!":
			p.advance()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Unary{srcPos: at(t), Op: OpNot, X: x}, nil
		}
	}
	return p.parsePower()
}

// parsePower parses right-associative exponentiation.
func (p *Parser) parsePower() (Node, error) {
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.Kind == TokOp && t.Lexeme == "^" {
		p.advance()
		// The right operand re-enters at the unary level so 2^-3 parses.
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Binary{srcPos: at(t), Op: OpPow, L: lhs, R: rhs}, nil
	}
	return lhs, nil
}

// parsePostfix parses subscripts, slices, factorial, percent, and unit
// application after a primary.
func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		switch {
		case t.Kind == TokLBracket:
			x, err = p.parseSubscript(x)
			if err != nil {
				return nil, err
			}
		case t.Kind == TokOp && t.Lexeme == "!":
			p.advance()
			x = &Unary{srcPos: at(t), Op: OpFact, X: x}
		case t.Kind == TokOp && t.Lexeme == "%":
			p.advance()
			x = &Unary{srcPos: at(t), Op: OpPercent, X: x}
		case t.Kind == TokUnit:
			if !p.settings.Units {
				return nil, p.disabled("unit")
			}
			p.advance()
			x = &UnitApply{srcPos: at(t), X: x, Unit: t.Lexeme}
		default:
			return x, nil
		}
	}
}

// parseSubscript parses x[i] and x[lo:hi]; either slice bound may be empty.
func (p *Parser) parseSubscript(x Node) (Node, error) {
	open := p.advance() // [
	var lo Node
	var err error
	if p.cur().Kind != TokColon {
		lo, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.cur().Kind == TokColon {
		p.advance()
		var hi Node
		if p.cur().Kind != TokRBracket {
			hi, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokRBracket, "]"); err != nil {
			return nil, err
		}
		return &SliceExpr{srcPos: at(open), X: x, Lo: lo, Hi: hi}, nil
	}
	if lo == nil {
		return nil, p.errf("empty subscript")
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return nil, err
	}
	return &IndexExpr{srcPos: at(open), X: x, I: lo}, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	t := p.cur()
	switch t.Kind {
	case TokNumber, TokString, TokBool:
		p.advance()
		return &Lit{srcPos: at(t), Val: t.Literal}, nil
	case TokIdent, TokConst, TokFunc, TokUnit:
		if p.peek().Kind == TokArrow {
			return p.parseLambda()
		}
		p.advance()
		if p.cur().Kind == TokLParen {
			return p.parseCall(t)
		}
		return &Ident{srcPos: at(t), Name: t.Lexeme}, nil
	case TokOp:
		switch t.Lexeme {
		case "$", "@", "#":
			return p.parseForcedRef()
		}
	case TokLParen:
		if p.lambdaAhead() {
			return p.parseLambda()
		}
		p.advance()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return n, nil
	case TokLBrace:
		return p.parseBrace()
	case TokLBracket:
		return p.parseMatrix()
	case TokEOF:
		return nil, p.errf("unexpected end of expression")
	}
	return nil, p.errf("unexpected token %q", t.Lexeme)
}

// parseForcedRef parses the $var, @unit, and #const disambiguation forms.
func (p *Parser) parseForcedRef() (Node, error) {
	sig := p.advance()
	if sig.Lexeme == "@" && !p.settings.Units {
		return nil, p.disabled("unit")
	}
	name, ok := identName(p.cur())
	if !ok {
		return nil, p.errf("expected name after %q", sig.Lexeme)
	}
	p.advance()
	return &ForcedRef{srcPos: at(sig), Sigil: sig.Lexeme[0], Name: name}, nil
}

// parseCall parses the argument list of a named call. The current token is
// the opening parenthesis.
func (p *Parser) parseCall(name Token) (Node, error) {
	p.advance() // (
	var args []Node
	if p.cur().Kind != TokRParen {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur().Kind == TokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return &Call{srcPos: at(name), Name: name.Lexeme, Args: args}, nil
}

// lambdaAhead reports whether the tokens from the current ( form a
// parenthesized lambda parameter list.
func (p *Parser) lambdaAhead() bool {
	i := p.i + 1
	if p.toks[i].Kind == TokRParen {
		return i+1 < len(p.toks) && p.toks[i+1].Kind == TokArrow
	}
	for {
		if _, ok := identName(p.toks[i]); !ok {
			return false
		}
		i++
		if p.toks[i].Kind == TokComma {
			i++
			continue
		}
		break
	}
	if p.toks[i].Kind != TokRParen {
		return false
	}
	return i+1 < len(p.toks) && p.toks[i+1].Kind == TokArrow
}

// parseLambda parses x -> body and (a, b) -> body.
func (p *Parser) parseLambda() (Node, error) {
	if !p.settings.Lambdas {
		return nil, p.disabled("lambda")
	}
	first := p.cur()
	var params []string
	if first.Kind == TokLParen {
		p.advance()
		for p.cur().Kind != TokRParen {
			name, ok := identName(p.cur())
			if !ok {
				return nil, p.errf("expected parameter name, found %q", p.cur().Lexeme)
			}
			params = append(params, name)
			p.advance()
			if p.cur().Kind == TokComma {
				p.advance()
			}
		}
		p.advance() // )
	} else {
		name, _ := identName(first)
		params = append(params, name)
		p.advance()
	}
	if _, err := p.expect(TokArrow, "->"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &LambdaLit{srcPos: at(first), Params: params, Body: body}, nil
}

// parseBrace parses {a, b, c} vectors and {expr for v in src if cond}
// comprehensions.
func (p *Parser) parseBrace() (Node, error) {
	open := p.advance() // {
	if !p.settings.Vectors {
		return nil, p.disabled("vector")
	}
	if p.cur().Kind == TokRBrace {
		p.advance()
		return &VectorLit{srcPos: at(open)}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == TokKeyword && p.cur().Lexeme == "for" {
		if !p.settings.Comprehensions {
			return nil, p.disabled("comprehension")
		}
		p.advance()
		name, ok := identName(p.cur())
		if !ok {
			return nil, p.errf("expected loop variable, found %q", p.cur().Lexeme)
		}
		p.advance()
		if t := p.cur(); t.Kind != TokKeyword || t.Lexeme != "in" {
			return nil, p.errf("expected \"in\", found %q", t.Lexeme)
		}
		p.advance()
		src, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var cond Node
		if p.cur().Lexeme == "if" {
			p.advance()
			cond, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokRBrace, "}"); err != nil {
			return nil, err
		}
		return &Comprehension{srcPos: at(open), Expr: first, Var: name, Source: src, Cond: cond}, nil
	}
	elems := []Node{first}
	for p.cur().Kind == TokComma {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	if len(elems) > p.settings.MaxVectorSize {
		return nil, p.errf("vector literal exceeds maximum size %d", p.settings.MaxVectorSize)
	}
	return &VectorLit{srcPos: at(open), Elems: elems}, nil
}

// parseMatrix parses [a, b; c, d] and the nested [[a, b], [c, d]] form.
func (p *Parser) parseMatrix() (Node, error) {
	open := p.advance() // [
	if !p.settings.Matrices {
		return nil, p.disabled("matrix")
	}
	var rows [][]Node
	row := []Node{}
	if p.cur().Kind != TokRBracket {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			switch p.cur().Kind {
			case TokComma:
				p.advance()
				continue
			case TokSemi:
				p.advance()
				rows = append(rows, row)
				row = []Node{}
				continue
			}
			break
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return nil, err
	}
	rows = flattenNestedRows(rows)
	if len(rows) == 0 {
		return nil, p.errf("empty matrix")
	}
	w := len(rows[0])
	for _, r := range rows {
		if len(r) != w {
			return nil, &ParseError{Msg: "matrix rows have unequal lengths", Line: open.Line, Col: open.Col}
		}
	}
	if len(rows) > p.settings.MaxMatrixDim || w > p.settings.MaxMatrixDim {
		return nil, p.errf("matrix literal exceeds maximum dimension %d", p.settings.MaxMatrixDim)
	}
	return &MatrixLit{srcPos: at(open), Rows: rows}, nil
}

// flattenNestedRows converts the [[1, 2], [3, 4]] spelling, which parses as
// one row of single-row matrices, into plain rows.
func flattenNestedRows(rows [][]Node) [][]Node {
	if len(rows) != 1 {
		return rows
	}
	var out [][]Node
	for _, e := range rows[0] {
		m, ok := e.(*MatrixLit)
		if !ok || len(m.Rows) != 1 {
			return rows
		}
		out = append(out, m.Rows[0])
	}
	if len(out) == 0 {
		return rows
	}
	return out
}
