// Package parser consumes a preprocessed token stream and builds the AST.
// Statement-level recursive descent: labels, instructions, directives and
// variable assignments, separated by newlines. The first structural error
// aborts the parse; there is no resynchronization.
package parser

import (
	"github.com/tessera-cpu/tasm/internal/assembler/ast"
	"github.com/tessera-cpu/tasm/internal/assembler/env"
	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/preproc"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// fileFrame tracks which original source file a stretch of the flattened
// token stream came from, restored from push_file/pop_file pragmas.
type fileFrame struct {
	name  string
	base  int // flattened line the frame's numbering is anchored at
	saved int // lines attributed to this frame before a nested push
}

type Parser struct {
	lx     *lexer.Lexer
	env    *env.Store
	macros *preproc.Table // empty table; initializer expressions see no macros
	frames []fileFrame
	good   bool
}

// New builds a parser around an environment store. A nil store gets a fresh
// one, for callers that do not need to inspect variables afterwards.
func New(store *env.Store) *Parser {
	if store == nil {
		store = env.NewStore()
	}
	return &Parser{env: store, macros: preproc.NewTable()}
}

// Good reports whether the last Parse call completed without error.
func (p *Parser) Good() bool { return p.good }

// Env returns the environment store the parser defines variables in.
func (p *Parser) Env() *env.Store { return p.env }

// Parse consumes the lexer's token stream and returns the module root. On
// error no partial AST is returned.
func (p *Parser) Parse(lx *lexer.Lexer) (*ast.Module, error) {
	p.lx = lx
	p.good = true
	p.frames = nil

	mod := &ast.Module{Name: lx.File()}
	lx.Reset()
	lx.SkipWhile(token.NEWLINE)

	for !lx.AtEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			p.good = false
			return nil, err
		}
		if stmt != nil {
			mod.Statements = append(mod.Statements, stmt)
		}
		lx.SkipWhile(token.NEWLINE)
	}
	return mod, nil
}

// --- file context ---

// pos remaps a flattened-stream position into the original source file using
// the active push_file frame.
func (p *Parser) pos(t token.Token) token.Position {
	if len(p.frames) == 0 {
		return t.Pos
	}
	top := p.frames[len(p.frames)-1]
	return token.Position{File: top.name, Line: t.Pos.Line - top.base, Column: t.Pos.Column}
}

func (p *Parser) pushFile(name string, markerLine int) {
	if n := len(p.frames); n > 0 {
		p.frames[n-1].saved = markerLine - p.frames[n-1].base
	}
	p.frames = append(p.frames, fileFrame{name: name, base: markerLine})
}

func (p *Parser) popFile(markerLine int) {
	if len(p.frames) == 0 {
		return
	}
	p.frames = p.frames[:len(p.frames)-1]
	if n := len(p.frames); n > 0 {
		p.frames[n-1].base = markerLine - p.frames[n-1].saved
	}
}

// --- errors ---

func (p *Parser) errorf(t token.Token, format string, args ...any) error {
	pos := p.pos(t)
	return errors.New(errors.Position{File: pos.File, Line: pos.Line, Column: pos.Column}, "parser", format, args...)
}

// expectEndOfLine consumes the newline terminating a statement.
func (p *Parser) expectEndOfLine() error {
	t := p.lx.Current()
	if t.Kind == token.EOF {
		return nil
	}
	if t.Kind != token.NEWLINE {
		return p.errorf(t, "unexpected %q at end of statement", t.Lexeme)
	}
	p.lx.Skip(1)
	return nil
}

// --- statements ---

func (p *Parser) parseStatement() (ast.Statement, error) {
	t := p.lx.Current()

	switch {
	case t.Kind == token.IDENT:
		if next, err := p.lx.Peek(1); err == nil && next.Kind == token.COLON {
			p.lx.Skip(2)
			// a label may share its line with the statement it labels
			return &ast.LabelDef{Name: t.Lexeme, Pos: p.pos(t)}, nil
		}
		msg := "unknown instruction or directive %q"
		if hint := keyword.Suggest(t.Lexeme); hint != "" {
			return nil, p.errorf(t, msg+" (did you mean %q?)", t.Lexeme, hint)
		}
		return nil, p.errorf(t, msg, t.Lexeme)

	case t.IsKeywordKind(keyword.Instruction):
		return p.parseInstruction()

	case t.IsKeywordKind(keyword.Directive):
		return p.parseDirective()

	case t.Kind == token.VARIABLE:
		return p.parseAssignment()
	}

	return nil, p.errorf(t, "unexpected %q at start of statement", t.Lexeme)
}

func (p *Parser) parseInstruction() (ast.Statement, error) {
	mn := p.lx.Advance()
	inst := &ast.Instruction{Mnemonic: mn.Lexeme, Entry: mn.Keyword, Pos: p.pos(mn)}

	if k := p.lx.Current().Kind; k != token.NEWLINE && k != token.EOF {
		for {
			op, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			inst.Operands = append(inst.Operands, op)
			if p.lx.Current().Kind != token.COMMA {
				break
			}
			p.lx.Skip(1)
		}
	}

	min, max := int(mn.Keyword.P1), int(mn.Keyword.P2)
	if n := len(inst.Operands); n < min || n > max {
		if min == max {
			return nil, p.errorf(mn, "instruction %q expects %d operand(s), got %d", inst.Mnemonic, min, n)
		}
		return nil, p.errorf(mn, "instruction %q expects %d to %d operands, got %d", inst.Mnemonic, min, max, n)
	}
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (p *Parser) parseOperand() (ast.Operand, error) {
	t := p.lx.Current()

	switch {
	case t.Kind == token.HASH:
		p.lx.Skip(1)
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Immediate{Value: expr}, nil

	case t.IsKeywordKind(keyword.Register):
		p.lx.Skip(1)
		return &ast.Register{Name: t.Lexeme, Entry: t.Keyword}, nil

	case t.IsKeywordKind(keyword.Condition):
		p.lx.Skip(1)
		return &ast.Condition{Name: t.Lexeme, Entry: t.Keyword}, nil

	case t.Kind == token.LBRACKET:
		p.lx.Skip(1)
		inner := p.lx.Current()
		if inner.IsKeywordKind(keyword.Register) {
			p.lx.Skip(1)
			if _, err := p.lx.Expect(token.RBRACKET, "expected ']' after register %q", inner.Lexeme); err != nil {
				return nil, p.errorf(p.lx.Current(), "expected ']' after register %q", inner.Lexeme)
			}
			return &ast.IndirectReg{Name: inner.Lexeme, Entry: inner.Keyword}, nil
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.lx.Expect(token.RBRACKET, "expected ']' after indirect address"); err != nil {
			return nil, p.errorf(p.lx.Current(), "expected ']' after indirect address")
		}
		return &ast.IndirectExpr{Addr: expr}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.DirectAddr{Addr: expr}, nil
}

// --- directives ---

func (p *Parser) parseDirective() (ast.Statement, error) {
	t := p.lx.Current()

	switch t.Keyword.P0 {
	case keyword.DirOrg:
		p.lx.Skip(1)
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectEndOfLine(); err != nil {
			return nil, err
		}
		return &ast.OrgDirective{Address: expr, Pos: p.pos(t)}, nil

	case keyword.DirSection:
		p.lx.Skip(1)
		if err := p.expectEndOfLine(); err != nil {
			return nil, err
		}
		return &ast.SectionDirective{Name: t.Lexeme, Entry: t.Keyword, Pos: p.pos(t)}, nil

	case keyword.DirData:
		return p.parseDataDirective()

	case keyword.DirGlobal, keyword.DirExtern:
		return p.parseSymbolList()

	case keyword.DirLet, keyword.DirConst:
		return p.parseVarDecl()

	case keyword.DirPreproc:
		return p.parsePragma()
	}
	return nil, p.errorf(t, "unexpected directive %q", t.Lexeme)
}

func (p *Parser) parseDataDirective() (ast.Statement, error) {
	t := p.lx.Advance()
	dir := &ast.DataDirective{Name: t.Lexeme, Width: int(t.Keyword.P1), Pos: p.pos(t)}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		dir.Values = append(dir.Values, expr)
		if p.lx.Current().Kind != token.COMMA {
			break
		}
		p.lx.Skip(1)
	}
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}
	return dir, nil
}

func (p *Parser) parseSymbolList() (ast.Statement, error) {
	t := p.lx.Advance()
	var symbols []string
	for {
		name := p.lx.Current()
		if name.Kind != token.IDENT {
			return nil, p.errorf(name, "%s expects a symbol name, got %q", t.Lexeme, name.Lexeme)
		}
		p.lx.Skip(1)
		symbols = append(symbols, name.Lexeme)
		if p.lx.Current().Kind != token.COMMA {
			break
		}
		p.lx.Skip(1)
	}
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}
	if t.Keyword.P0 == keyword.DirGlobal {
		return &ast.GlobalDirective{Symbols: symbols, Pos: p.pos(t)}, nil
	}
	return &ast.ExternDirective{Symbols: symbols, Pos: p.pos(t)}, nil
}

// parseVarDecl handles .let and .const: the initializer is evaluated at
// parse time and forwarded to the environment store.
func (p *Parser) parseVarDecl() (ast.Statement, error) {
	t := p.lx.Advance()
	name := p.lx.Current()
	if name.Kind != token.IDENT {
		return nil, p.errorf(name, "%s expects a variable name, got %q", t.Lexeme, name.Lexeme)
	}
	p.lx.Skip(1)
	if p.lx.Current().Kind != token.ASSIGN {
		return nil, p.errorf(p.lx.Current(), "%s %s expects '=' and an initializer", t.Lexeme, name.Lexeme)
	}
	p.lx.Skip(1)

	start := p.lx.Pos()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	span := p.lx.Tokens()[start:p.lx.Pos()]
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}

	value, evalErr := preproc.Evaluate(span, p.macros)
	if evalErr != nil {
		return nil, p.errorf(name, "cannot evaluate initializer for %q: %s", name.Lexeme, evalErr)
	}

	pos := p.pos(name)
	epos := errors.Position{File: pos.File, Line: pos.Line, Column: pos.Column}
	isConst := t.Keyword.P0 == keyword.DirConst
	if isConst {
		err = p.env.DefineConstant(name.Lexeme, value, epos)
	} else {
		err = p.env.DefineVariable(name.Lexeme, value, epos)
	}
	if err != nil {
		return nil, err
	}
	return &ast.VarDecl{Name: name.Lexeme, Value: expr, IsConst: isConst, Pos: pos}, nil
}

// parseAssignment handles `$name = expr` and the compound forms.
func (p *Parser) parseAssignment() (ast.Statement, error) {
	v := p.lx.Advance()
	name := v.Lexeme[1:] // strip '$'

	op := p.lx.Current()
	if !token.IsAssign(op.Kind) {
		return nil, p.errorf(op, "expected an assignment operator after %q, got %q", v.Lexeme, op.Lexeme)
	}
	p.lx.Skip(1)

	start := p.lx.Pos()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	span := p.lx.Tokens()[start:p.lx.Pos()]
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}

	value, evalErr := preproc.Evaluate(span, p.macros)
	if evalErr != nil {
		return nil, p.errorf(v, "cannot evaluate assignment to %q: %s", v.Lexeme, evalErr)
	}

	pos := p.pos(v)
	epos := errors.Position{File: pos.File, Line: pos.Line, Column: pos.Column}
	if binop := token.BinopFor(op.Kind); binop != "" {
		old, err := p.env.GetValue(name, epos)
		if err != nil {
			return nil, err
		}
		value, evalErr = preproc.Apply(binop, old, value)
		if evalErr != nil {
			return nil, p.errorf(v, "cannot apply %q to %q: %s", string(op.Kind), v.Lexeme, evalErr)
		}
	}
	if err := p.env.SetValue(name, value, epos); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Name: name, Op: op.Kind, Value: expr, Pos: pos}, nil
}

// parsePragma handles the synthetic push_file/pop_file markers the
// preprocessor leaves in its output. Any other preprocessor directive
// reaching the parser is an error: preprocessing should have consumed it.
func (p *Parser) parsePragma() (ast.Statement, error) {
	t := p.lx.Current()
	if t.Lexeme != ".pragma" {
		return nil, p.errorf(t, "preprocessor directive %q is not allowed here", t.Lexeme)
	}
	p.lx.Skip(1)

	arg := p.lx.Current()
	switch arg.Lexeme {
	case "push_file":
		p.lx.Skip(1)
		pathTok, err := p.lx.Expect(token.STRING, "push_file pragma expects a quoted path")
		if err != nil {
			return nil, p.errorf(arg, "push_file pragma expects a quoted path")
		}
		if err := p.expectEndOfLine(); err != nil {
			return nil, err
		}
		p.pushFile(pathTok.Str, t.Pos.Line)
		return nil, nil
	case "pop_file":
		p.lx.Skip(1)
		if err := p.expectEndOfLine(); err != nil {
			return nil, err
		}
		p.popFile(t.Pos.Line)
		return nil, nil
	}
	return nil, p.errorf(arg, "unknown pragma %q", arg.Lexeme)
}
