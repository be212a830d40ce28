package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Lexer tokenizes one source buffer and then serves the token vector through
// a cursor. The source string is retained for the lexer's lifetime; token
// lexemes are slices of it.
type Lexer struct {
	input        string
	file         string
	position     int  // current offset in input (bytes)
	readPosition int  // next reading position (bytes)
	ch           rune // current character
	line         int  // current line (1-based)
	column       int  // current column (1-based)

	tokens []token.Token
	cursor int
	good   bool
}

// symbols is the fixed operator/punctuation set, longest first so that
// multi-character operators win over their prefixes.
var symbols = []struct {
	text string
	kind token.Kind
}{
	{"**=", token.POW_EQ},
	{"<<=", token.SHL_EQ},
	{">>=", token.SHR_EQ},
	{"**", token.POWER},
	{"<<", token.SHL},
	{">>", token.SHR},
	{"==", token.EQ},
	{"!=", token.NOT_EQ},
	{"<=", token.LT_EQ},
	{">=", token.GT_EQ},
	{"&&", token.AND},
	{"||", token.OR},
	{"##", token.PASTE},
	{"+=", token.PLUS_EQ},
	{"-=", token.MINUS_EQ},
	{"*=", token.MUL_EQ},
	{"/=", token.DIV_EQ},
	{"%=", token.MOD_EQ},
	{"&=", token.AND_EQ},
	{"|=", token.OR_EQ},
	{"^=", token.XOR_EQ},
	{"+", token.PLUS},
	{"-", token.MINUS},
	{"*", token.ASTERISK},
	{"/", token.SLASH},
	{"%", token.PERCENT},
	{"=", token.ASSIGN},
	{"<", token.LT},
	{">", token.GT},
	{"!", token.BANG},
	{"~", token.TILDE},
	{"&", token.AMP},
	{"|", token.PIPE},
	{"^", token.CARET},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"[", token.LBRACKET},
	{"]", token.RBRACKET},
	{",", token.COMMA},
	{":", token.COLON},
	{"#", token.HASH},
}

// Load tokenizes input in one pass. The returned lexer is usable as a cursor
// even on error; Good reports whether tokenization completed cleanly.
func Load(input, file string) (*Lexer, error) {
	l := &Lexer{
		input:  input,
		file:   file,
		line:   1,
		column: 0,
		good:   true,
	}
	l.readChar()
	err := l.scanAll()
	if err != nil {
		l.good = false
	}
	return l, err
}

// FromTokens wraps an already-produced token run in a fresh cursor, so
// extracted or substituted token sequences can be re-consumed with the same
// machinery. A terminal EOF token is appended when missing.
func FromTokens(toks []token.Token, file string) *Lexer {
	l := &Lexer{file: file, line: 1, good: true}
	l.tokens = make([]token.Token, len(toks))
	copy(l.tokens, toks)
	if n := len(l.tokens); n == 0 || l.tokens[n-1].Kind != token.EOF {
		pos := token.Position{File: file, Line: 1, Column: 1}
		if n > 0 {
			pos = l.tokens[n-1].Pos
		}
		l.tokens = append(l.tokens, token.Token{Kind: token.EOF, Pos: pos})
	}
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += size

		if l.ch == '\n' {
			l.line++
			l.column = 0
		} else {
			l.column++
		}
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.column}
}

func (l *Lexer) errorf(pos token.Position, format string, args ...any) error {
	return errors.New(errors.Position{File: pos.File, Line: pos.Line, Column: pos.Column}, "lexer", format, args...)
}

func (l *Lexer) scanAll() error {
	for {
		tok, err := l.next()
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Kind == token.EOF {
			return nil
		}
	}
}

// next scans exactly one token.
func (l *Lexer) next() (token.Token, error) {
	l.skipBlanksAndComments()

	pos := l.currentPos()

	switch {
	case l.ch == 0:
		// EOF column sits one past the last character
		if pos.Column == 0 {
			pos.Column = 1
		}
		return token.Token{Kind: token.EOF, Pos: pos}, nil

	case l.ch == '\n':
		start := l.position
		l.readChar()
		return token.Token{Kind: token.NEWLINE, Lexeme: l.input[start : start+1], Pos: pos}, nil

	case isIdentStart(l.ch):
		lexeme := l.readIdentBody()
		tok := token.Token{Kind: token.IDENT, Lexeme: lexeme, Pos: pos}
		if entry, err := keyword.Lookup(strings.ToLower(lexeme)); err == nil {
			tok.Kind = token.KEYWORD
			tok.Keyword = entry
		}
		return tok, nil

	case l.ch == '$':
		start := l.position
		l.readChar()
		if !isIdentBody(l.ch) {
			return token.Token{}, l.errorf(pos, "expected variable name after '$'")
		}
		l.readIdentBody()
		return token.Token{Kind: token.VARIABLE, Lexeme: l.input[start:l.position], Pos: pos}, nil

	case l.ch == '@':
		start := l.position
		l.readChar()
		if !isIdentBody(l.ch) {
			return token.Token{}, l.errorf(pos, "expected placeholder name after '@'")
		}
		body := l.readIdentBody()
		tok := token.Token{Kind: token.PLACEHOLDER, Lexeme: l.input[start:l.position], Pos: pos}
		if entry, err := keyword.Lookup(strings.ToLower(body)); err == nil {
			tok.Kind = token.PLACEHOLDER_KEYWORD
			tok.Keyword = entry
		}
		return tok, nil

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '\'':
		return l.readCharLiteral(pos)

	case l.ch == '"':
		return l.readStringLiteral(pos)

	default:
		rest := l.input[l.position:]
		for _, sym := range symbols {
			if strings.HasPrefix(rest, sym.text) {
				for range sym.text {
					l.readChar()
				}
				return token.Token{Kind: sym.kind, Lexeme: rest[:len(sym.text)], Pos: pos}, nil
			}
		}
		return token.Token{}, l.errorf(pos, "invalid character %q", string(l.ch))
	}
}

// skipBlanksAndComments skips spaces, tabs, carriage returns and ';' comments.
// Newlines stay significant.
func (l *Lexer) skipBlanksAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == ';' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

func (l *Lexer) readIdentBody() string {
	start := l.position
	for isIdentBody(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber(pos token.Position) (token.Token, error) {
	start := l.position

	if l.ch == '0' {
		switch l.peekChar() {
		case 'b', 'B':
			return l.readPrefixedInt(pos, start, 2, isBinDigit)
		case 'o', 'O':
			return l.readPrefixedInt(pos, start, 8, isOctDigit)
		case 'x', 'X':
			return l.readPrefixedInt(pos, start, 16, isHexDigit)
		}
	}

	isNumber := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isNumber = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[start:l.position]
	if isNumber {
		v, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{}, l.errorf(pos, "invalid number literal %q", lexeme)
		}
		return token.Token{Kind: token.NUMBER, Lexeme: lexeme, Pos: pos, FloatVal: v}, nil
	}
	v, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return token.Token{}, l.errorf(pos, "invalid integer literal %q", lexeme)
	}
	return token.Token{Kind: token.INT, Lexeme: lexeme, Pos: pos, IntVal: v}, nil
}

func (l *Lexer) readPrefixedInt(pos token.Position, start int, base int, valid func(rune) bool) (token.Token, error) {
	l.readChar() // 0
	l.readChar() // b/o/x
	digits := l.position
	for valid(l.ch) {
		l.readChar()
	}
	if l.position == digits {
		return token.Token{}, l.errorf(pos, "missing digits after %q", l.input[start:l.position])
	}
	lexeme := l.input[start:l.position]
	v, err := strconv.ParseInt(l.input[digits:l.position], base, 64)
	if err != nil {
		return token.Token{}, l.errorf(pos, "invalid integer literal %q", lexeme)
	}
	return token.Token{Kind: token.INT, Lexeme: lexeme, Pos: pos, IntVal: v}, nil
}

func (l *Lexer) readCharLiteral(pos token.Position) (token.Token, error) {
	start := l.position
	l.readChar() // opening quote
	body := l.position
	for l.ch != '\'' && l.ch != '\n' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		if l.ch != 0 {
			l.readChar()
		}
	}
	if l.ch != '\'' {
		return token.Token{}, l.errorf(pos, "unterminated character literal")
	}
	raw := l.input[body:l.position]
	l.readChar() // closing quote

	decoded, err := decodeEscapes(raw)
	if err != nil {
		return token.Token{}, l.errorf(pos, "%s in character literal", err)
	}
	runes := []rune(decoded)
	if len(runes) != 1 {
		return token.Token{}, l.errorf(pos, "character literal must contain exactly one character")
	}
	return token.Token{
		Kind:   token.CHAR,
		Lexeme: l.input[start:l.position],
		Pos:    pos,
		IntVal: int64(runes[0]),
		Str:    decoded,
	}, nil
}

func (l *Lexer) readStringLiteral(pos token.Position) (token.Token, error) {
	start := l.position
	l.readChar() // opening quote
	body := l.position
	for l.ch != '"' && l.ch != '\n' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		if l.ch != 0 {
			l.readChar()
		}
	}
	if l.ch != '"' {
		return token.Token{}, l.errorf(pos, "unterminated string literal")
	}
	raw := l.input[body:l.position]
	l.readChar() // closing quote

	decoded, err := decodeEscapes(raw)
	if err != nil {
		return token.Token{}, l.errorf(pos, "%s in string literal", err)
	}
	return token.Token{
		Kind:   token.STRING,
		Lexeme: l.input[start:l.position],
		Pos:    pos,
		Str:    decoded,
	}, nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch == '.'
}

func isIdentBody(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.'
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isBinDigit(ch rune) bool { return ch == '0' || ch == '1' }

func isOctDigit(ch rune) bool { return ch >= '0' && ch <= '7' }

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
