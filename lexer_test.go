package ratel

import (
	"strings"
	"testing"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func lexemes(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if t.Kind == TokEOF {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Lexeme)
	}
	return b.String()
}

func TestTokenizeBasic(t *testing.T) {
	cases := []struct {
		src  string
		want []TokenKind
	}{
		{"2 + 3", []TokenKind{TokNumber, TokOp, TokNumber, TokEOF}},
		{"x := 1", []TokenKind{TokIdent, TokAssign, TokNumber, TokEOF}},
		{"sin(x)", []TokenKind{TokFunc, TokLParen, TokIdent, TokRParen, TokEOF}},
		{"1..10", []TokenKind{TokNumber, TokRange, TokNumber, TokEOF}},
		{"x -> x", []TokenKind{TokIdent, TokArrow, TokIdent, TokEOF}},
		{"a; b", []TokenKind{TokIdent, TokSemi, TokIdent, TokEOF}},
		{"true", []TokenKind{TokBool, TokEOF}},
		{"pi", []TokenKind{TokConst, TokEOF}},
		{"meters", []TokenKind{TokUnit, TokEOF}},
		{"for x in y", []TokenKind{TokKeyword, TokIdent, TokKeyword, TokIdent, TokEOF}},
		{`"hi"`, []TokenKind{TokString, TokEOF}},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, err := Tokenize(c.src)
			if err != nil {
				t.Fatalf("Tokenize(%q): %v", c.src, err)
			}
			got := kinds(toks)
			if len(got) != len(c.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", c.src, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %v, want %v", c.src, i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestTokenizeRationalLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want string // spaced lexemes after scanning
	}{
		// A slash between digits is one rational token...
		{"1/2", "1/2"},
		{"1/2 + 1/3", "1/2 + 1/3"},
		// ...unless the denominator is followed by something that binds
		// tighter than division, or is zero.
		{"6/3^2", "6 / 3 ^ 2"},
		{"1/2.5", "1 / 2.5"},
		{"1/3e2", "1 / 3e2"},
		{"1/0", "1 / 0"},
		{"1/00", "1 / 00"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, err := Tokenize(c.src)
			if err != nil {
				t.Fatalf("Tokenize(%q): %v", c.src, err)
			}
			if got := lexemes(toks); got != c.want {
				t.Errorf("Tokenize(%q) = %q, want %q", c.src, got, c.want)
			}
		})
	}
}

func TestTokenizeScientific(t *testing.T) {
	toks, err := Tokenize("1.5e3")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Literal.Kind != KindFloat {
		t.Errorf("1.5e3 lexed as %v, want float", toks[0].Literal.Kind)
	}
	toks, err = Tokenize("0.5")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Literal.Kind != KindRational {
		t.Errorf("0.5 lexed as %v, want exact rational", toks[0].Literal.Kind)
	}
	// 2ex: the e starts an identifier, not an exponent.
	toks, err = Tokenize("2ex")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Lexeme != "2" {
		t.Errorf("2ex first token %q, want %q", toks[0].Lexeme, "2")
	}
}

func TestTokenizeImplicitMultiply(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"2x", "2 * x"},
		{"2sin(x)", "2 * sin ( x )"},
		{"2pi", "2 * pi"},
		{"(a)(b)", "( a ) * ( b )"},
		{"(a)2", "( a ) * 2"},
		{"2(x)", "2 * ( x )"},
		// No splice before units: 100 meters is a quantity.
		{"100 meters", "100 meters"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, err := Tokenize(c.src)
			if err != nil {
				t.Fatalf("Tokenize(%q): %v", c.src, err)
			}
			if got := lexemes(toks); got != c.want {
				t.Errorf("Tokenize(%q) = %q, want %q", c.src, got, c.want)
			}
		})
	}
}

func TestTokenizeImplicitMultiplyDisabled(t *testing.T) {
	s := DefaultSettings()
	s.ImplicitMultiply = false
	tk := NewTokenizer(s, DefaultFuncs(), DefaultUnits(), DefaultConstants())
	toks, err := tk.Tokenize("2x")
	if err != nil {
		t.Fatal(err)
	}
	if got := lexemes(toks); got != "2 x" {
		t.Errorf("with splice disabled, 2x = %q", got)
	}
}

func TestTokenizeWordOperators(t *testing.T) {
	toks, err := Tokenize("a and b or not c mod d")
	if err != nil {
		t.Fatal(err)
	}
	var ops []string
	for _, tok := range toks {
		if tok.Kind == TokOp {
			ops = append(ops, tok.Lexeme)
		}
	}
	want := []string{"&&", "||", "!", "%%"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\t\"c\""`)
	if err != nil {
		t.Fatal(err)
	}
	want := "a\nb\t\"c\""
	if toks[0].Literal.Str != want {
		t.Errorf("escaped string = %q, want %q", toks[0].Literal.Str, want)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []string{
		`"unterminated`,
		"1e+",
		"~",
		strings.Repeat("a", 65), // identifier over the length ceiling
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := Tokenize(src)
			if err == nil {
				t.Fatalf("Tokenize(%q): expected error", src)
			}
			if _, ok := err.(*LexError); !ok {
				t.Errorf("Tokenize(%q): error type %T, want *LexError", src, err)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	toks, err := Tokenize("1 +\n  x")
	if err != nil {
		t.Fatal(err)
	}
	x := toks[2]
	if x.Line != 2 || x.Col != 3 {
		t.Errorf("x at %d:%d, want 2:3", x.Line, x.Col)
	}
}
