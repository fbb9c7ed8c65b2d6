package ratel

import (
	"strings"
	"unicode"
)

// Tokenizer turns source text into a token stream. The scanner produces
// coarse tokens; a classification pass resolves bare identifiers against
// the injected registries; a final pass splices synthetic multiplication
// tokens for implicit-multiplication patterns when the feature is enabled.
type Tokenizer struct {
	settings *Settings
	funcs    FuncRegistry
	units    UnitRegistry
	consts   ConstRegistry
}

// NewTokenizer builds a tokenizer over the given settings and registries.
// Nil arguments select the defaults.
func NewTokenizer(s *Settings, funcs FuncRegistry, units UnitRegistry, consts ConstRegistry) *Tokenizer {
	if s == nil {
		s = DefaultSettings()
	}
	if funcs == nil {
		funcs = DefaultFuncs()
	}
	if units == nil {
		units = DefaultUnits()
	}
	if consts == nil {
		consts = DefaultConstants()
	}
	return &Tokenizer{settings: s, funcs: funcs, units: units, consts: consts}
}

// Tokenize scans src with the default settings and registries.
func Tokenize(src string) ([]Token, error) {
	return NewTokenizer(nil, nil, nil, nil).Tokenize(src)
}

// Tokenize scans src into an EOF-terminated token sequence.
func (t *Tokenizer) Tokenize(src string) ([]Token, error) {
	sc := &scanner{src: []rune(src), line: 1, col: 1}
	var toks []Token
	for {
		tok, err := sc.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	toks, err := t.classify(toks)
	if err != nil {
		return nil, err
	}
	if t.settings.ImplicitMultiply {
		toks = t.splice(toks)
	}
	return toks, nil
}

// classify resolves bare identifiers into keywords, word operators, bool
// literals, and registry-known function, unit, and constant names. Plain
// identifiers survive for context-sensitive resolution in the evaluator.
func (t *Tokenizer) classify(toks []Token) ([]Token, error) {
	for i, tok := range toks {
		if tok.Kind != TokIdent {
			continue
		}
		if len(tok.Lexeme) > t.settings.MaxIdentifierLen {
			return nil, &LexError{Text: tok.Lexeme, Kind: "identifier", Line: tok.Line, Col: tok.Col}
		}
		switch {
		case tok.Lexeme == "true" || tok.Lexeme == "false":
			toks[i].Kind = TokBool
			toks[i].Literal = BoolValue(tok.Lexeme == "true")
		case keywords[tok.Lexeme]:
			toks[i].Kind = TokKeyword
		case wordOps[tok.Lexeme] != "":
			toks[i].Kind = TokOp
			toks[i].Lexeme = wordOps[tok.Lexeme]
		case t.funcs.IsDefined(tok.Lexeme):
			toks[i].Kind = TokFunc
		case t.settings.Units && t.units.IsDefined(tok.Lexeme):
			toks[i].Kind = TokUnit
		case t.consts.IsDefined(tok.Lexeme):
			toks[i].Kind = TokConst
		}
	}
	return toks, nil
}

// splice inserts synthetic * tokens between adjacent tokens forming an
// implicit-multiplication pattern: number-identifier, number-paren,
// paren-paren, and paren-number. Units are exempt so that 100 meters stays
// a unit application.
func (t *Tokenizer) splice(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for i, tok := range toks {
		if i > 0 && spliceBetween(out[len(out)-1], tok) {
			out = append(out, Token{
				Kind:   TokOp,
				Lexeme: "*",
				Line:   tok.Line,
				Col:    tok.Col,
				synth:  true,
			})
		}
		out = append(out, tok)
	}
	return out
}

func spliceBetween(prev, cur Token) bool {
	switch prev.Kind {
	case TokNumber:
		switch cur.Kind {
		case TokIdent, TokFunc, TokConst, TokLParen:
			return true
		}
	case TokRParen:
		switch cur.Kind {
		case TokLParen, TokNumber, TokIdent, TokConst:
			return true
		}
	}
	return false
}

// scanner is the character-level pass. It works on the decoded rune slice
// so lookahead and backtracking are cheap.
type scanner struct {
	src  []rune
	i    int
	line int
	col  int
}

func (s *scanner) peek() rune {
	if s.i >= len(s.src) {
		return 0
	}
	return s.src[s.i]
}

func (s *scanner) peekAt(k int) rune {
	if s.i+k >= len(s.src) {
		return 0
	}
	return s.src[s.i+k]
}

func (s *scanner) advance() rune {
	r := s.src[s.i]
	s.i++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) errAt(line, col int, text, kind string) error {
	return &LexError{Text: text, Kind: kind, Line: line, Col: col}
}

func (s *scanner) next() (Token, error) {
	for s.i < len(s.src) && unicode.IsSpace(s.peek()) {
		s.advance()
	}
	line, col := s.line, s.col
	if s.i >= len(s.src) {
		return Token{Kind: TokEOF, Line: line, Col: col}, nil
	}
	r := s.peek()
	switch {
	case r >= '0' && r <= '9':
		return s.scanNumber(line, col)
	case r == '.' && isDigit(s.peekAt(1)):
		return s.scanNumber(line, col)
	case r == '_' || unicode.IsLetter(r):
		return s.scanIdent(line, col)
	case r == '"':
		return s.scanString(line, col)
	}
	s.advance()
	two := string(r) + string(s.peek())
	mk := func(kind TokenKind, lexeme string) Token {
		return Token{Kind: kind, Lexeme: lexeme, Line: line, Col: col}
	}
	switch two {
	case ":=":
		s.advance()
		return mk(TokAssign, ":="), nil
	case "->":
		s.advance()
		return mk(TokArrow, "->"), nil
	case "..":
		s.advance()
		return mk(TokRange, ".."), nil
	case "==", "!=", "<=", ">=", "&&", "||":
		s.advance()
		return mk(TokOp, two), nil
	}
	switch r {
	case '+', '-', '*', '/', '^', '%', '!', '<', '>', '@', '$', '#':
		return mk(TokOp, string(r)), nil
	case '(':
		return mk(TokLParen, "("), nil
	case ')':
		return mk(TokRParen, ")"), nil
	case '[':
		return mk(TokLBracket, "["), nil
	case ']':
		return mk(TokRBracket, "]"), nil
	case '{':
		return mk(TokLBrace, "{"), nil
	case '}':
		return mk(TokRBrace, "}"), nil
	case ',':
		return mk(TokComma, ","), nil
	case ';':
		return mk(TokSemi, ";"), nil
	case ':':
		return mk(TokColon, ":"), nil
	}
	return Token{}, s.errAt(line, col, string(r), "")
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// scanNumber scans integer, decimal, scientific, and rational a/b literals.
// A dot followed by a second dot belongs to a range operator, not the
// number. A slash denominator immediately followed by ^ is backed out so
// 6/3^2 keeps operator precedence.
func (s *scanner) scanNumber(line, col int) (Token, error) {
	start := s.i
	for isDigit(s.peek()) {
		s.advance()
	}
	intEnd := s.i
	sawDot := false
	if s.peek() == '.' && s.peekAt(1) != '.' {
		sawDot = true
		s.advance()
		if !isDigit(s.peek()) && intEnd == start {
			return Token{}, s.errAt(line, col, string(s.src[start:s.i]), "number")
		}
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	if r := s.peek(); r == 'e' || r == 'E' {
		// Malformed exponents are an error, not a fallback: 1e+ has no
		// other sensible reading.
		mark := s.i
		s.advance()
		if s.peek() == '+' || s.peek() == '-' {
			s.advance()
		}
		if !isDigit(s.peek()) {
			if unicode.IsLetter(s.peekAt(0)) || s.peekAt(0) == '_' {
				// 2e3x style: e starts an identifier; back out.
				s.reset(mark, line, col, mark-start)
			} else {
				return Token{}, s.errAt(line, col, string(s.src[start:s.i]), "number")
			}
		} else {
			for isDigit(s.peek()) {
				s.advance()
			}
		}
	} else if !sawDot && r == '/' && isDigit(s.peekAt(1)) {
		// Candidate rational literal.
		mark := s.i
		s.advance()
		zero := true
		for isDigit(s.peek()) {
			if s.peek() != '0' {
				zero = false
			}
			s.advance()
		}
		if r := s.peek(); zero || r == '^' || r == '.' || r == 'e' || r == 'E' {
			// A zero denominator stays a division so it fails at
			// evaluation, not in the lexer.
			s.reset(mark, line, col, mark-start)
		}
	}
	lexeme := string(s.src[start:s.i])
	rv, ok := parseRatLexeme(lexeme)
	if !ok {
		return Token{}, s.errAt(line, col, lexeme, "number")
	}
	lit := RationalValue(rv)
	if strings.ContainsAny(lexeme, "eE") {
		// Scientific notation evaluates as a double; plain decimals stay
		// exact rationals.
		f, _ := rv.Float64()
		lit = FloatValue(f)
	}
	return Token{Kind: TokNumber, Lexeme: lexeme, Literal: lit, Line: line, Col: col}, nil
}

// reset rewinds the scanner to absolute index mark on a single line.
func (s *scanner) reset(mark, line, col, consumed int) {
	s.i = mark
	s.line = line
	s.col = col + consumed
}

func (s *scanner) scanIdent(line, col int) (Token, error) {
	start := s.i
	for {
		r := s.peek()
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			s.advance()
			continue
		}
		break
	}
	return Token{Kind: TokIdent, Lexeme: string(s.src[start:s.i]), Line: line, Col: col}, nil
}

func (s *scanner) scanString(line, col int) (Token, error) {
	s.advance() // opening quote
	var b strings.Builder
	for {
		if s.i >= len(s.src) {
			return Token{}, s.errAt(line, col, b.String(), "string")
		}
		r := s.advance()
		switch r {
		case '"':
			str := b.String()
			return Token{
				Kind:    TokString,
				Lexeme:  str,
				Literal: StringValue(str),
				Line:    line,
				Col:     col,
			}, nil
		case '\\':
			if s.i >= len(s.src) {
				return Token{}, s.errAt(line, col, b.String(), "string")
			}
			e := s.advance()
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return Token{}, s.errAt(line, col, b.String()+"\\"+string(e), "string")
			}
		case '\n':
			return Token{}, s.errAt(line, col, b.String(), "string")
		default:
			b.WriteRune(r)
		}
	}
}
