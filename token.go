package ratel

import "strconv"

// TokenKind classifies a scanned token.
type TokenKind int8

const (
	TokNone TokenKind = iota
	// TokEOF terminates every token stream produced by Tokenize.
	TokEOF
	// TokNumber is an integer, decimal, scientific, or rational literal.
	TokNumber
	// TokString is a quoted string literal with escapes resolved.
	TokString
	// TokBool is the literal true or false.
	TokBool
	// TokIdent is a bare identifier not recognized by any registry.
	TokIdent
	// TokKeyword is a reserved word: for, in, step.
	TokKeyword
	// TokFunc is an identifier registered as a function name.
	TokFunc
	// TokUnit is an identifier registered as a unit name.
	TokUnit
	// TokConst is an identifier registered as a named constant.
	TokConst
	// TokOp is an operator, including the synthetic * spliced for
	// implicit multiplication.
	TokOp
	// TokAssign is the := operator.
	TokAssign
	// TokArrow is the -> lambda operator.
	TokArrow
	// TokRange is the .. range operator.
	TokRange
	// TokLParen, TokRParen, TokLBracket, TokRBracket, TokLBrace, and
	// TokRBrace are the three bracket pairs.
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	// TokComma, TokSemi, and TokColon separate list elements, statements
	// and matrix rows, and slice bounds.
	TokComma
	TokSemi
	TokColon
)

func (k TokenKind) String() string {
	switch k {
	case TokNone:
		return "None"
	case TokEOF:
		return "EOF"
	case TokNumber:
		return "Number"
	case TokString:
		return "String"
	case TokBool:
		return "Bool"
	case TokIdent:
		return "Ident"
	case TokKeyword:
		return "Keyword"
	case TokFunc:
		return "Func"
	case TokUnit:
		return "Unit"
	case TokConst:
		return "Const"
	case TokOp:
		return "Op"
	case TokAssign:
		return "Assign"
	case TokArrow:
		return "Arrow"
	case TokRange:
		return "Range"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokLBracket:
		return "LBracket"
	case TokRBracket:
		return "RBracket"
	case TokLBrace:
		return "LBrace"
	case TokRBrace:
		return "RBrace"
	case TokComma:
		return "Comma"
	case TokSemi:
		return "Semi"
	case TokColon:
		return "Colon"
	default:
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Token is one lexical unit of an expression. Tokens are produced once by
// Tokenize and never mutated afterward.
type Token struct {
	Kind   TokenKind
	Lexeme string
	// Literal holds the decoded value for TokNumber, TokString, and
	// TokBool tokens, and is the zero Value otherwise.
	Literal Value
	// Line and Col are the 1-based position of the token's first rune.
	Line int
	Col  int
	// synth marks tokens spliced by the lexer rather than present in the
	// source, i.e. implicit multiplication.
	synth bool
}

func (t Token) String() string {
	return t.Kind.String() + ":" + t.Lexeme + "@" + strconv.Itoa(t.Line) + ":" + strconv.Itoa(t.Col)
}

// keywords are the reserved words recognized by the classifier. Logical
// operator words are rewritten to their operator forms instead.
var keywords = map[string]bool{
	"for":  true,
	"in":   true,
	"step": true,
}

// wordOps maps word-form operators to their symbolic spelling.
var wordOps = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
	"mod": "%%",
}
