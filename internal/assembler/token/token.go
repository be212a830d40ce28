package token

import "github.com/tessera-cpu/tasm/internal/assembler/keyword"

type Kind string

// Position locates a token in its source file. Line and Column are 1-based.
type Position struct {
	File   string
	Line   int
	Column int
}

// Token is the unit of exchange between lexer, preprocessor and parser.
// Lexeme is a slice of the lexer's retained source string; the lexer must
// outlive every token derived from it. IntVal/FloatVal/Str carry decoded
// literal values, Keyword the table entry for KEYWORD and
// PLACEHOLDER_KEYWORD tokens.
type Token struct {
	Kind     Kind
	Lexeme   string
	Pos      Position
	IntVal   int64
	FloatVal float64
	Str      string
	Keyword  *keyword.Entry
}

const (
	ILLEGAL Kind = "ILLEGAL"
	EOF     Kind = "EOF"
	NEWLINE Kind = "NEWLINE"

	// Identifiers + literals
	IDENT               Kind = "IDENT"
	KEYWORD             Kind = "KEYWORD"
	VARIABLE            Kind = "VARIABLE"
	PLACEHOLDER         Kind = "PLACEHOLDER"
	PLACEHOLDER_KEYWORD Kind = "PLACEHOLDER_KEYWORD"
	INT                 Kind = "INT"
	NUMBER              Kind = "NUMBER"
	CHAR                Kind = "CHAR"
	STRING              Kind = "STRING"

	// Operators
	PLUS     Kind = "+"
	MINUS    Kind = "-"
	ASTERISK Kind = "*"
	SLASH    Kind = "/"
	PERCENT  Kind = "%"
	POWER    Kind = "**"
	BANG     Kind = "!"
	TILDE    Kind = "~"
	AMP      Kind = "&"
	PIPE     Kind = "|"
	CARET    Kind = "^"
	SHL      Kind = "<<"
	SHR      Kind = ">>"
	AND      Kind = "&&"
	OR       Kind = "||"

	// Comparison
	EQ     Kind = "=="
	NOT_EQ Kind = "!="
	LT     Kind = "<"
	GT     Kind = ">"
	LT_EQ  Kind = "<="
	GT_EQ  Kind = ">="

	// Assignment
	ASSIGN     Kind = "="
	PLUS_EQ    Kind = "+="
	MINUS_EQ   Kind = "-="
	MUL_EQ     Kind = "*="
	DIV_EQ     Kind = "/="
	MOD_EQ     Kind = "%="
	POW_EQ     Kind = "**="
	SHL_EQ     Kind = "<<="
	SHR_EQ     Kind = ">>="
	AND_EQ     Kind = "&="
	OR_EQ      Kind = "|="
	XOR_EQ     Kind = "^="

	// Delimiters
	COMMA    Kind = ","
	COLON    Kind = ":"
	HASH     Kind = "#"
	PASTE    Kind = "##"
	LPAREN   Kind = "("
	RPAREN   Kind = ")"
	LBRACKET Kind = "["
	RBRACKET Kind = "]"
)

// assignBinop maps a compound assignment operator to the binary operator it
// applies before storing.
var assignBinop = map[Kind]Kind{
	PLUS_EQ:  PLUS,
	MINUS_EQ: MINUS,
	MUL_EQ:   ASTERISK,
	DIV_EQ:   SLASH,
	MOD_EQ:   PERCENT,
	POW_EQ:   POWER,
	SHL_EQ:   SHL,
	SHR_EQ:   SHR,
	AND_EQ:   AMP,
	OR_EQ:    PIPE,
	XOR_EQ:   CARET,
}

// IsAssign reports whether k is a plain or compound assignment operator.
func IsAssign(k Kind) bool {
	if k == ASSIGN {
		return true
	}
	_, ok := assignBinop[k]
	return ok
}

// BinopFor returns the binary operator a compound assignment applies, or ""
// for plain assignment.
func BinopFor(k Kind) Kind {
	return assignBinop[k]
}

// IsKeywordKind reports whether the token carries a keyword table entry of
// the given kind, seeing through placeholder-keyword tagging.
func (t Token) IsKeywordKind(k keyword.Kind) bool {
	return (t.Kind == KEYWORD || t.Kind == PLACEHOLDER_KEYWORD) && t.Keyword != nil && t.Keyword.Kind == k
}
