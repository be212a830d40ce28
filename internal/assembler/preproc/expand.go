package preproc

import (
	"strconv"
	"strings"

	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// expandEnd is a synthetic sentinel appended to every injected replacement.
// It never reaches the output; crossing it closes the expansion region so
// expandDepth tracks how many expansions the cursor is currently inside,
// not how many happened in total.
const expandEnd token.Kind = "EXPAND_END"

func (pp *Preprocessor) leaveExpansion() {
	if pp.expandDepth > 0 {
		pp.expandDepth--
	}
}

// expandMacro replaces the macro invocation under the cursor with its
// substituted body. The cursor stays put so the injected tokens are
// re-scanned, which is what allows macros to expand to further macro calls;
// expandDepth caps runaway self-expansion, whether the recursive reference
// sits first in the body or behind ordinary tokens.
func (pp *Preprocessor) expandMacro(lx *lexer.Lexer) error {
	callTok := lx.Current()
	m, _ := pp.macros.Lookup(callTok.Lexeme)

	consumed := 1
	var args [][]token.Token

	if len(m.Params) > 0 {
		next, err := lx.Peek(1)
		if err != nil || next.Kind != token.LPAREN {
			pp.recordAt(callTok, "macro %q expects %d argument(s)", m.Name, len(m.Params))
			lx.Skip(1)
			return nil
		}
		var cur []token.Token
		depth := 1
		off := 2
	scan:
		for {
			t, err := lx.Peek(off)
			if err != nil || t.Kind == token.EOF || t.Kind == token.NEWLINE {
				pp.recordAt(callTok, "unterminated argument list for macro %q", m.Name)
				lx.Skip(1)
				return nil
			}
			switch t.Kind {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
				if depth == 0 {
					off++
					break scan
				}
			case token.COMMA:
				if depth == 1 {
					args = append(args, cur)
					cur = nil
					off++
					continue
				}
			}
			cur = append(cur, t)
			off++
		}
		args = append(args, cur)
		consumed = off
		if len(args) != len(m.Params) {
			pp.recordAt(callTok, "macro %q expects %d argument(s), got %d", m.Name, len(m.Params), len(args))
			lx.Erase(consumed)
			return nil
		}
	}

	pp.expandDepth++
	if pp.expandDepth > pp.maxRecursion {
		return pp.fatalAt(callTok, "macro expansion depth exceeds limit of %d", pp.maxRecursion)
	}

	replacement := pp.substitute(m, callTok, args)
	replacement = append(replacement, token.Token{Kind: expandEnd, Pos: callTok.Pos})
	lx.Erase(consumed)
	lx.Inject(replacement, false)
	return nil
}

// substitute walks a macro body binding placeholders against the argument
// list. .shift inside the body rotates the argument list for the remainder
// of the walk; '##' pastes the neighbouring tokens together.
func (pp *Preprocessor) substitute(m *Macro, callTok token.Token, args [][]token.Token) []token.Token {
	out := make([]token.Token, 0, len(m.Tokens))
	pasteNext := false

	appendTok := func(t token.Token) {
		if pasteNext && len(out) > 0 {
			out[len(out)-1] = pasteTokens(out[len(out)-1], t)
			pasteNext = false
			return
		}
		pasteNext = false
		out = append(out, t)
	}

	for i := 0; i < len(m.Tokens); i++ {
		t := m.Tokens[i]
		switch {
		case t.Kind == token.PASTE:
			pasteNext = true

		case isDirective(t, ".shift"):
			if len(args) > 1 {
				args = append(args[1:], args[0])
			}
			if i+1 < len(m.Tokens) && m.Tokens[i+1].Kind == token.NEWLINE {
				i++
			}

		case t.Kind == token.PLACEHOLDER || t.Kind == token.PLACEHOLDER_KEYWORD:
			span, ok := bindPlaceholder(m, args, t)
			switch {
			case ok:
				for _, at := range span {
					appendTok(at)
				}
			case t.Kind == token.PLACEHOLDER_KEYWORD:
				// unbound but spells a keyword: emit the keyword itself
				appendTok(token.Token{Kind: token.KEYWORD, Lexeme: t.Lexeme[1:], Pos: callTok.Pos, Keyword: t.Keyword})
			default:
				pp.recordAt(t, "placeholder %q is not bound by macro %q", t.Lexeme, m.Name)
			}

		default:
			appendTok(t)
		}
	}
	return out
}

// bindPlaceholder resolves '@name' against the parameter list and '@N'
// positionally, 1-based.
func bindPlaceholder(m *Macro, args [][]token.Token, t token.Token) ([]token.Token, bool) {
	name := t.Lexeme[1:]
	if idx, err := strconv.Atoi(name); err == nil {
		if idx >= 1 && idx <= len(args) {
			return args[idx-1], true
		}
		return nil, false
	}
	for i, p := range m.Params {
		if strings.EqualFold(p, name) {
			if i < len(args) {
				return args[i], true
			}
			return nil, false
		}
	}
	return nil, false
}

// pasteTokens merges two lexemes into one token and re-classifies the
// result: keyword, integer literal, or plain identifier.
func pasteTokens(a, b token.Token) token.Token {
	lexeme := a.Lexeme + b.Lexeme
	merged := token.Token{Kind: token.IDENT, Lexeme: lexeme, Pos: a.Pos}
	if entry, err := keyword.Lookup(strings.ToLower(lexeme)); err == nil {
		merged.Kind = token.KEYWORD
		merged.Keyword = entry
	} else if v, err := strconv.ParseInt(lexeme, 10, 64); err == nil {
		merged.Kind = token.INT
		merged.IntVal = v
	}
	return merged
}
