package lexer

import (
	"testing"

	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

func mustLoad(t *testing.T, input string) *Lexer {
	t.Helper()
	l, err := Load(input, "test.asm")
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", input, err)
	}
	if !l.Good() {
		t.Fatalf("Load(%q) not good", input)
	}
	return l
}

func TestIntegerLiterals(t *testing.T) {
	l := mustLoad(t, "42 0x1F 0b101 0o17 0")

	expected := []int64{42, 31, 5, 15, 0}
	for i, want := range expected {
		tok := l.Advance()
		if tok.Kind != token.INT {
			t.Fatalf("test[%d] - expected INT, got %s(%q)", i, tok.Kind, tok.Lexeme)
		}
		if tok.IntVal != want {
			t.Fatalf("test[%d] - %q decoded to %d, want %d", i, tok.Lexeme, tok.IntVal, want)
		}
	}
	if !l.AtEnd() {
		t.Fatalf("expected EOF, got %q", l.Current().Lexeme)
	}
}

func TestNumberLiteral(t *testing.T) {
	l := mustLoad(t, "3.25")
	tok := l.Current()
	if tok.Kind != token.NUMBER || tok.FloatVal != 3.25 {
		t.Fatalf("expected NUMBER(3.25), got %s(%v)", tok.Kind, tok.FloatVal)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	l := mustLoad(t, "mov r0, loop_start .byte EQ")

	expected := []struct {
		kind token.Kind
		kw   keyword.Kind
	}{
		{token.KEYWORD, keyword.Instruction},
		{token.KEYWORD, keyword.Register},
		{token.COMMA, 0},
		{token.IDENT, 0},
		{token.KEYWORD, keyword.Directive},
		{token.KEYWORD, keyword.Condition},
	}
	for i, exp := range expected {
		tok := l.Advance()
		if tok.Kind != exp.kind {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, exp.kind, tok.Kind, tok.Lexeme)
		}
		if exp.kind == token.KEYWORD && tok.Keyword.Kind != exp.kw {
			t.Fatalf("test[%d] - %q classified as %s, want %s", i, tok.Lexeme, tok.Keyword.Kind, exp.kw)
		}
	}
}

func TestOperatorsLongestMatch(t *testing.T) {
	l := mustLoad(t, "**= <<= >>= ** << >> ## # == != <= >= && ||")

	expected := []token.Kind{
		token.POW_EQ, token.SHL_EQ, token.SHR_EQ, token.POWER, token.SHL,
		token.SHR, token.PASTE, token.HASH, token.EQ, token.NOT_EQ,
		token.LT_EQ, token.GT_EQ, token.AND, token.OR,
	}
	for i, want := range expected {
		tok := l.Advance()
		if tok.Kind != want {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, want, tok.Kind, tok.Lexeme)
		}
	}
}

func TestVariablesAndPlaceholders(t *testing.T) {
	l := mustLoad(t, "$count @param @r3")

	tok := l.Advance()
	if tok.Kind != token.VARIABLE || tok.Lexeme != "$count" {
		t.Fatalf("expected VARIABLE($count), got %s(%q)", tok.Kind, tok.Lexeme)
	}
	tok = l.Advance()
	if tok.Kind != token.PLACEHOLDER || tok.Lexeme != "@param" {
		t.Fatalf("expected PLACEHOLDER(@param), got %s(%q)", tok.Kind, tok.Lexeme)
	}
	tok = l.Advance()
	if tok.Kind != token.PLACEHOLDER_KEYWORD {
		t.Fatalf("expected PLACEHOLDER_KEYWORD(@r3), got %s(%q)", tok.Kind, tok.Lexeme)
	}
	if tok.Keyword == nil || tok.Keyword.Kind != keyword.Register {
		t.Fatalf("@r3 should carry the register keyword entry")
	}
}

func TestCharAndStringLiterals(t *testing.T) {
	l := mustLoad(t, `'A' '\n' "hi\tthere" "\x41"`)

	tok := l.Advance()
	if tok.Kind != token.CHAR || tok.IntVal != 'A' {
		t.Fatalf("expected CHAR(65), got %s(%d)", tok.Kind, tok.IntVal)
	}
	tok = l.Advance()
	if tok.Kind != token.CHAR || tok.IntVal != '\n' {
		t.Fatalf("expected CHAR(10), got %s(%d)", tok.Kind, tok.IntVal)
	}
	tok = l.Advance()
	if tok.Kind != token.STRING || tok.Str != "hi\tthere" {
		t.Fatalf("expected STRING(hi\\tthere), got %s(%q)", tok.Kind, tok.Str)
	}
	tok = l.Advance()
	if tok.Kind != token.STRING || tok.Str != "A" {
		t.Fatalf("expected STRING(A), got %s(%q)", tok.Kind, tok.Str)
	}
}

func TestCommentsAndNewlines(t *testing.T) {
	l := mustLoad(t, "nop ; comment to end of line\nhlt")

	expected := []token.Kind{token.KEYWORD, token.NEWLINE, token.KEYWORD, token.EOF}
	for i, want := range expected {
		tok := l.Advance()
		if tok.Kind != want {
			t.Fatalf("test[%d] - expected %s, got %s(%q)", i, want, tok.Kind, tok.Lexeme)
		}
	}
}

func TestPositions(t *testing.T) {
	l := mustLoad(t, "nop\n  mov r0, r1")

	nop := l.Advance()
	if nop.Pos.Line != 1 || nop.Pos.Column != 1 {
		t.Fatalf("nop at %d:%d, want 1:1", nop.Pos.Line, nop.Pos.Column)
	}
	l.Skip(1) // newline
	mov := l.Advance()
	if mov.Pos.Line != 2 || mov.Pos.Column != 3 {
		t.Fatalf("mov at %d:%d, want 2:3", mov.Pos.Line, mov.Pos.Column)
	}
	if mov.Pos.File != "test.asm" {
		t.Fatalf("mov file %q, want test.asm", mov.Pos.File)
	}
}

func TestLexicalErrors(t *testing.T) {
	bad := []string{
		"`",
		`"unterminated`,
		"'ab'",
		"'",
		"0x",
		"$ lonely",
	}
	for _, input := range bad {
		l, err := Load(input, "bad.asm")
		if err == nil {
			t.Errorf("Load(%q) succeeded, want error", input)
		}
		if l.Good() {
			t.Errorf("Load(%q) reported good after error", input)
		}
	}
}

func TestCursorBasics(t *testing.T) {
	l := mustLoad(t, "one two three")

	if tok, err := l.Peek(2); err != nil || tok.Lexeme != "three" {
		t.Fatalf("Peek(2) = %q, %v", tok.Lexeme, err)
	}
	if _, err := l.Peek(10); err == nil {
		t.Fatal("Peek(10) should be out of range")
	}

	first := l.Advance()
	if first.Lexeme != "one" {
		t.Fatalf("Advance() = %q, want one", first.Lexeme)
	}
	if _, err := l.Expect(token.IDENT, "want an identifier"); err != nil {
		t.Fatalf("Expect(IDENT) failed: %v", err)
	}
	if _, err := l.Expect(token.INT, "want an integer"); err == nil {
		t.Fatal("Expect(INT) on identifier should fail")
	}

	l.Reset()
	if l.Current().Lexeme != "one" {
		t.Fatalf("Reset left cursor at %q", l.Current().Lexeme)
	}
}

func TestEraseAndInject(t *testing.T) {
	l := mustLoad(t, "a b c")

	l.Erase(1)
	if l.Current().Lexeme != "b" {
		t.Fatalf("after Erase(1), cursor at %q, want b", l.Current().Lexeme)
	}

	l.Inject([]token.Token{{Kind: token.IDENT, Lexeme: "x"}, {Kind: token.IDENT, Lexeme: "y"}}, false)
	if l.Current().Lexeme != "x" {
		t.Fatalf("after Inject, cursor at %q, want x", l.Current().Lexeme)
	}

	var got []string
	for !l.AtEnd() {
		got = append(got, l.Advance().Lexeme)
	}
	want := []string{"x", "y", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("stream %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stream %v, want %v", got, want)
		}
	}

	// EOF is never erased
	l.Erase(5)
	if !l.AtEnd() {
		t.Fatal("expected cursor on EOF after erasing past the end")
	}
}
