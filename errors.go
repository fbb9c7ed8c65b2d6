package ratel

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// PosError is an error with position information. Every error produced from
// invalid input implements PosError.
type PosError interface {
	error
	// Pos returns the 1-based line and column of the offending token.
	Pos() (line, col int)
}

// LexError indicates an invalid token: an illegal character, an unterminated
// string, or a malformed numeric literal.
type LexError struct {
	// Text is the partial token scanned when the error occurred, including
	// the offending rune.
	Text string
	// Kind is the type of token being scanned: "number", "string",
	// "identifier", or the empty string if none had been decided.
	Kind string
	Line int
	Col  int
}

func (err *LexError) Error() string {
	pos := "line " + strconv.Itoa(err.Line) + ":" + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + strconv.Quote(err.Text)
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + strconv.Quote(err.Text)
}

func (err *LexError) Pos() (int, int) { return err.Line, err.Col }

// ParseError indicates malformed syntax, an exceeded nesting ceiling, or use
// of a disabled language feature.
type ParseError struct {
	Msg  string
	Line int
	Col  int
	// Feature is non-empty when the error is a disabled language feature,
	// naming the feature.
	Feature string
}

func (err *ParseError) Error() string {
	pos := "line " + strconv.Itoa(err.Line) + ":" + strconv.Itoa(err.Col)
	if err.Feature != "" {
		return "parse error at " + pos + ": " + err.Feature + " support is disabled"
	}
	return "parse error at " + pos + ": " + err.Msg
}

func (err *ParseError) Pos() (int, int) { return err.Line, err.Col }

// EvalError indicates a failure during evaluation: a domain error, division
// by zero, an arity or type mismatch, an undefined name, or a disabled
// feature reached at run time.
type EvalError struct {
	Msg  string
	Line int
	Col  int
}

func (err *EvalError) Error() string {
	if err.Line == 0 {
		return "eval error: " + err.Msg
	}
	return "eval error at line " + strconv.Itoa(err.Line) + ":" + strconv.Itoa(err.Col) + ": " + err.Msg
}

func (err *EvalError) Pos() (int, int) { return err.Line, err.Col }

// CalculusError indicates that the symbolic engine has no rule for the
// requested rewrite. It is always explicit: the engine never falls back to a
// guess.
type CalculusError struct {
	// Op is "differentiate" or "integrate".
	Op string
	// Rule names the missing rule or the unsupported pattern.
	Rule string
}

func (err *CalculusError) Error() string {
	return "cannot " + err.Op + ": " + err.Rule
}

var (
	_ PosError = (*LexError)(nil)
	_ PosError = (*ParseError)(nil)
	_ PosError = (*EvalError)(nil)
)

// Report renders err against its source text as a caret-annotated snippet.
// Errors without position information are rendered as their plain message.
func Report(err error, src string) string {
	pe, ok := err.(PosError)
	if !ok {
		return err.Error()
	}
	line, col := pe.Pos()
	if line <= 0 {
		return err.Error()
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		line = len(lines)
	}
	text := lines[line-1]
	if col < 1 {
		col = 1
	}
	if n := utf8.RuneCountInString(text); col > n+1 {
		col = n + 1
	}
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteByte('\n')
	num := strconv.Itoa(line)
	b.WriteString("  " + num + " | " + text + "\n")
	b.WriteString("  " + strings.Repeat(" ", len(num)) + " | ")
	// Advance the caret by runes so multibyte source lines up. Columns
	// count runes, not bytes.
	pad := 0
	for _, r := range text {
		if pad >= col-1 {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		pad++
	}
	b.WriteByte('^')
	return b.String()
}

func evalErr(n Node, msg string) *EvalError {
	line, col := 0, 0
	if n != nil {
		line, col = n.Pos()
	}
	return &EvalError{Msg: msg, Line: line, Col: col}
}
