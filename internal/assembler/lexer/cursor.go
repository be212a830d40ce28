package lexer

import (
	"fmt"

	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Cursor API over the token vector. The vector always ends in an EOF token;
// the cursor never moves past it. Erase and Inject exist for macro and
// placeholder substitution.

// Good reports whether tokenization completed without error.
func (l *Lexer) Good() bool { return l.good }

// Tokens returns the underlying token vector.
func (l *Lexer) Tokens() []token.Token { return l.tokens }

// File returns the source file hint this lexer was loaded with.
func (l *Lexer) File() string { return l.file }

// Pos returns the cursor position.
func (l *Lexer) Pos() int { return l.cursor }

// SetPos moves the cursor, clamped to the token vector.
func (l *Lexer) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > l.lastIndex() {
		pos = l.lastIndex()
	}
	l.cursor = pos
}

// Reset rewinds the cursor to the first token.
func (l *Lexer) Reset() { l.cursor = 0 }

// AtEnd reports whether the cursor sits on the terminal EOF token.
func (l *Lexer) AtEnd() bool {
	return l.Current().Kind == token.EOF
}

// Current returns the token under the cursor.
func (l *Lexer) Current() token.Token {
	if l.cursor >= len(l.tokens) {
		return l.tokens[l.lastIndex()]
	}
	return l.tokens[l.cursor]
}

// Peek returns the token at a signed offset from the cursor.
func (l *Lexer) Peek(offset int) (token.Token, error) {
	idx := l.cursor + offset
	if idx < 0 || idx >= len(l.tokens) {
		return token.Token{}, fmt.Errorf("token peek offset %d out of range", offset)
	}
	return l.tokens[idx], nil
}

// Advance returns the token under the cursor and moves past it.
func (l *Lexer) Advance() token.Token {
	tok := l.Current()
	if l.cursor < l.lastIndex() {
		l.cursor++
	}
	return tok
}

// Skip advances the cursor by n tokens.
func (l *Lexer) Skip(n int) {
	for i := 0; i < n && !l.AtEnd(); i++ {
		l.cursor++
	}
}

// SkipWhile advances past consecutive tokens of the given kind.
func (l *Lexer) SkipWhile(k token.Kind) {
	for !l.AtEnd() && l.Current().Kind == k {
		l.cursor++
	}
}

// Expect consumes and returns the current token when it has the wanted kind,
// or reports the caller's formatted message as an error.
func (l *Lexer) Expect(k token.Kind, format string, args ...any) (token.Token, error) {
	tok := l.Current()
	if tok.Kind != k {
		return token.Token{}, l.expectError(tok, format, args...)
	}
	return l.Advance(), nil
}

// ExpectKeyword consumes and returns the current token when it is a keyword
// of the wanted keyword kind.
func (l *Lexer) ExpectKeyword(k keyword.Kind, format string, args ...any) (token.Token, error) {
	tok := l.Current()
	if !tok.IsKeywordKind(k) {
		return token.Token{}, l.expectError(tok, format, args...)
	}
	return l.Advance(), nil
}

func (l *Lexer) expectError(tok token.Token, format string, args ...any) error {
	pos := errors.Position{File: tok.Pos.File, Line: tok.Pos.Line, Column: tok.Pos.Column}
	if tok.Kind == token.EOF {
		pos = errors.Position{File: l.file, Line: tok.Pos.Line, Column: tok.Pos.Column}
	}
	return errors.New(pos, "lexer", format, args...)
}

// Erase removes n tokens starting at the cursor. The cursor stays put, so
// later tokens shift into place. The terminal EOF token is never erased.
func (l *Lexer) Erase(n int) {
	end := l.cursor + n
	if end > l.lastIndex() {
		end = l.lastIndex()
	}
	if end <= l.cursor {
		return
	}
	l.tokens = append(l.tokens[:l.cursor], l.tokens[end:]...)
}

// Inject inserts toks at the cursor. With advance set, the cursor moves past
// the injected run.
func (l *Lexer) Inject(toks []token.Token, advance bool) {
	if len(toks) == 0 {
		return
	}
	rest := make([]token.Token, len(l.tokens[l.cursor:]))
	copy(rest, l.tokens[l.cursor:])
	l.tokens = append(l.tokens[:l.cursor], append(toks, rest...)...)
	if advance {
		l.cursor += len(toks)
	}
}

func (l *Lexer) lastIndex() int {
	if len(l.tokens) == 0 {
		return 0
	}
	return len(l.tokens) - 1
}
