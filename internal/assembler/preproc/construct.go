package preproc

import (
	"math"
	"strconv"
	"strings"

	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Multi-line constructs (.if families and loops) are handled by scanning the
// token vector for the matching terminator, erasing the whole construct from
// the live stream, and re-processing the selected body through a fresh
// cursor. Dead branches are discarded without evaluation.

const (
	condExpr = iota
	condDefined
	condNotDefined
	condAlways
)

type condBranch struct {
	mode int
	cond []token.Token
	body []token.Token
}

func (pp *Preprocessor) conditional(lx *lexer.Lexer) error {
	toks := lx.Tokens()
	start := lx.Pos()
	head := toks[start]
	opener := strings.ToLower(head.Lexeme)

	mode := condExpr
	switch opener {
	case ".ifdef":
		mode = condDefined
	case ".ifndef":
		mode = condNotDefined
	}

	he := lineEnd(toks, start)
	cur := condBranch{mode: mode, cond: copyToks(trimSpan(toks[start+1 : he]))}

	var branches []condBranch
	bodyStart := he
	nest := 0
	end := -1
	i := he
	for end < 0 {
		if i >= len(toks) || toks[i].Kind == token.EOF {
			pp.recordAt(head, "unterminated %s", opener)
			lx.Erase(len(toks) - 1 - start)
			return nil
		}
		t := toks[i]
		le := lineEnd(toks, i)
		switch {
		case isAnyDirective(t, ".if", ".ifdef", ".ifndef"):
			nest++
		case isAnyDirective(t, ".endif", ".endc"):
			if nest == 0 {
				cur.body = copyToks(toks[bodyStart:i])
				branches = append(branches, cur)
				end = le
			} else {
				nest--
			}
		case nest == 0 && isAnyDirective(t, ".elseif", ".elif"):
			cur.body = copyToks(toks[bodyStart:i])
			branches = append(branches, cur)
			cur = condBranch{mode: condExpr, cond: copyToks(trimSpan(toks[i+1 : le]))}
			bodyStart = le
		case nest == 0 && isDirective(t, ".else"):
			cur.body = copyToks(toks[bodyStart:i])
			branches = append(branches, cur)
			cur = condBranch{mode: condAlways}
			bodyStart = le
		}
		i = le
	}

	lx.Erase(end - start)

	var selected []token.Token
	for _, b := range branches {
		take := false
		switch b.mode {
		case condAlways:
			take = true
		case condDefined, condNotDefined:
			name, ok := singleIdent(b.cond)
			if !ok {
				pp.recordAt(head, "%s expects a single macro name", opener)
				continue
			}
			take = pp.macros.IsDefined(name)
			if b.mode == condNotDefined {
				take = !take
			}
		default:
			if len(b.cond) == 0 {
				pp.recordAt(head, "conditional expects a condition expression")
				continue
			}
			v, err := Evaluate(b.cond, pp.macros)
			if err != nil {
				pp.recordErr(head, err)
				continue
			}
			take = v.Truthy()
		}
		if take {
			selected = b.body
			break
		}
	}
	if len(selected) == 0 {
		return nil
	}
	return pp.process(lexer.FromTokens(selected, head.Pos.File))
}

// scanBlock extracts a loop construct starting at the cursor: the head line
// after the opening directive, a copy of the body, and the construct's token
// length for erasure. Same-opener constructs nest.
func (pp *Preprocessor) scanBlock(lx *lexer.Lexer, openers, closers []string) (head, body []token.Token, length int, ok bool) {
	toks := lx.Tokens()
	start := lx.Pos()
	open := toks[start]
	he := lineEnd(toks, start)
	head = copyToks(trimSpan(toks[start+1 : he]))

	nest := 0
	i := he
	for {
		if i >= len(toks) || toks[i].Kind == token.EOF {
			pp.recordAt(open, "unterminated %s", strings.ToLower(open.Lexeme))
			lx.Erase(len(toks) - 1 - start)
			return nil, nil, 0, false
		}
		t := toks[i]
		le := lineEnd(toks, i)
		if isAnyDirective(t, openers...) {
			nest++
		} else if isAnyDirective(t, closers...) {
			if nest == 0 {
				body = copyToks(toks[he:i])
				return head, body, le - start, true
			}
			nest--
		}
		i = le
	}
}

// runBody re-processes one loop iteration's body. Reports whether the loop
// should stop: either a fatal error or a .break taken inside the body.
func (pp *Preprocessor) runBody(body []token.Token, file string) (bool, error) {
	err := pp.process(lexer.FromTokens(body, file))
	ctl := pp.ctl
	pp.ctl = ctlNone
	if err != nil {
		return true, err
	}
	return ctl == ctlBreak, nil
}

func (pp *Preprocessor) repeatLoop(lx *lexer.Lexer) error {
	open := lx.Current()
	head, body, length, ok := pp.scanBlock(lx, []string{".repeat", ".rept"}, []string{".endrepeat", ".endr"})
	if !ok {
		return nil
	}
	lx.Erase(length)

	v, err := Evaluate(head, pp.macros)
	if err != nil {
		pp.recordErr(open, err)
		return nil
	}
	if v.Kind() != Integer || v.Int() < 0 {
		pp.recordAt(open, ".repeat expects a non-negative integer count")
		return nil
	}

	pp.loopNest++
	defer func() { pp.loopNest-- }()
	for i := int64(0); i < v.Int(); i++ {
		stop, err := pp.runBody(body, open.Pos.File)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

func (pp *Preprocessor) forLoop(lx *lexer.Lexer) error {
	open := lx.Current()
	head, body, length, ok := pp.scanBlock(lx, []string{".for"}, []string{".endfor", ".endf"})
	if !ok {
		return nil
	}
	lx.Erase(length)

	if len(head) < 3 || head[0].Kind != token.IDENT || head[1].Kind != token.ASSIGN {
		pp.recordAt(open, ".for expects 'name = start, end[, step]'")
		return nil
	}
	name := head[0].Lexeme
	if err := ValidateName(name); err != nil {
		pp.recordAt(head[0], "%s", err)
		return nil
	}
	if pp.macros.IsDefined(name) {
		pp.recordAt(head[0], "loop variable %q is already defined", name)
		return nil
	}

	spans := splitTopLevel(head[2:])
	if len(spans) < 2 || len(spans) > 3 {
		pp.recordAt(open, ".for expects start and end bounds with an optional step")
		return nil
	}
	bounds := make([]int64, len(spans))
	for i, sp := range spans {
		v, err := Evaluate(sp, pp.macros)
		if err != nil {
			pp.recordErr(open, err)
			return nil
		}
		if v.Kind() != Integer {
			pp.recordAt(open, ".for bounds must be integers, got %s", v.TypeName())
			return nil
		}
		bounds[i] = v.Int()
	}
	begin, end := bounds[0], bounds[1]
	step := int64(1)
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		pp.recordAt(open, ".for step must not be zero")
		return nil
	}

	defer pp.macros.Remove(name)
	pp.loopNest++
	defer func() { pp.loopNest-- }()
	v := begin
	for (step > 0 && v <= end) || (step < 0 && v >= end) {
		pp.macros.Redefine(name, []token.Token{intToken(v, head[0].Pos)}, open.Pos.File, open.Pos.Line)
		stop, err := pp.runBody(body, open.Pos.File)
		if err != nil || stop {
			return err
		}
		// the next value would leave the int64 range, so it cannot be in
		// bounds either; advancing would wrap and loop forever
		if step > 0 && v > math.MaxInt64-step {
			return nil
		}
		if step < 0 && v < math.MinInt64-step {
			return nil
		}
		v += step
	}
	return nil
}

func (pp *Preprocessor) whileLoop(lx *lexer.Lexer) error {
	open := lx.Current()
	head, body, length, ok := pp.scanBlock(lx, []string{".while"}, []string{".endwhile", ".endw"})
	if !ok {
		return nil
	}
	lx.Erase(length)

	if len(head) == 0 {
		pp.recordAt(open, ".while expects a condition expression")
		return nil
	}

	pp.loopNest++
	defer func() { pp.loopNest-- }()
	for iter := 0; ; iter++ {
		if iter >= pp.maxRecursion {
			return pp.fatalAt(open, ".while exceeds the recursion limit of %d iterations", pp.maxRecursion)
		}
		v, err := Evaluate(head, pp.macros)
		if err != nil {
			pp.recordErr(open, err)
			return nil
		}
		if !v.Truthy() {
			return nil
		}
		stop, err := pp.runBody(body, open.Pos.File)
		if err != nil || stop {
			return err
		}
	}
}

// --- token span helpers ---

// lineEnd returns the index just past the newline terminating the line that
// starts at i. The terminal EOF token ends its line without being consumed.
func lineEnd(toks []token.Token, i int) int {
	for ; i < len(toks); i++ {
		switch toks[i].Kind {
		case token.NEWLINE:
			return i + 1
		case token.EOF:
			return i
		}
	}
	return i
}

func copyToks(toks []token.Token) []token.Token {
	if len(toks) == 0 {
		return nil
	}
	out := make([]token.Token, len(toks))
	copy(out, toks)
	return out
}

// splitTopLevel splits a span on commas outside parentheses.
func splitTopLevel(toks []token.Token) [][]token.Token {
	var spans [][]token.Token
	var cur []token.Token
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.COMMA:
			if depth == 0 {
				spans = append(spans, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return append(spans, cur)
}

func singleIdent(toks []token.Token) (string, bool) {
	if len(toks) == 1 && toks[0].Kind == token.IDENT {
		return toks[0].Lexeme, true
	}
	return "", false
}

func intToken(v int64, pos token.Position) token.Token {
	return token.Token{Kind: token.INT, Lexeme: strconv.FormatInt(v, 10), Pos: pos, IntVal: v}
}
