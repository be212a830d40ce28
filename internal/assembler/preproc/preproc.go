// Package preproc implements the macro preprocessor: directive dispatch,
// macro expansion, conditional assembly, looping and file inclusion. The
// result is a flattened source text with synthetic file-context pragmas,
// meant to be re-tokenized by the lexer and handed to the parser.
package preproc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

const (
	DefaultMaxRecursionDepth = 256
	DefaultMaxIncludeDepth   = 16
)

// Options configures one preprocessing run.
type Options struct {
	MaxRecursionDepth int
	MaxIncludeDepth   int
	IncludeDirs       []string
	WorkDir           string
	Diag              io.Writer                    // .info/.warning stream
	ReadFile          func(string) ([]byte, error) // include loader, os.ReadFile by default
}

type loopCtl int

const (
	ctlNone loopCtl = iota
	ctlBreak
	ctlContinue
)

// Preprocessor drives directive dispatch over a completed lexer's token
// stream and accumulates the flattened output text. Non-fatal directive
// errors are collected so one run can surface several problems; .fatal and
// depth overflows abort immediately.
type Preprocessor struct {
	macros *Table
	errs   *errors.ErrorList

	maxRecursion int
	maxInclude   int
	includeDirs  []string
	workDir      string
	diag         io.Writer
	readFile     func(string) ([]byte, error)

	out          strings.Builder
	atLineStart  bool
	includeDepth int
	expandDepth  int
	loopNest     int
	ctl          loopCtl
	onceSeen     map[string]bool
}

func New(opts Options) *Preprocessor {
	pp := &Preprocessor{
		macros:       NewTable(),
		errs:         errors.NewErrorList(),
		maxRecursion: opts.MaxRecursionDepth,
		maxInclude:   opts.MaxIncludeDepth,
		includeDirs:  opts.IncludeDirs,
		workDir:      opts.WorkDir,
		diag:         opts.Diag,
		readFile:     opts.ReadFile,
		atLineStart:  true,
		onceSeen:     make(map[string]bool),
	}
	if pp.maxRecursion <= 0 {
		pp.maxRecursion = DefaultMaxRecursionDepth
	}
	if pp.maxInclude <= 0 {
		pp.maxInclude = DefaultMaxIncludeDepth
	}
	if pp.workDir == "" {
		pp.workDir = "."
	}
	if pp.diag == nil {
		pp.diag = os.Stderr
	}
	if pp.readFile == nil {
		pp.readFile = os.ReadFile
	}
	return pp
}

// Macros exposes the macro table, read-only by convention.
func (pp *Preprocessor) Macros() *Table { return pp.macros }

// Good reports whether preprocessing completed without any recorded error.
func (pp *Preprocessor) Good() bool { return !pp.errs.HasErrors() }

// Errors returns the accumulated diagnostics.
func (pp *Preprocessor) Errors() *errors.ErrorList { return pp.errs }

// Output returns the flattened preprocessed source text.
func (pp *Preprocessor) Output() string { return pp.out.String() }

// Run preprocesses a completed lexer's token stream. Only fatal conditions
// (.fatal, include-depth or recursion-depth overflow) are returned as an
// error; everything else is recorded and processing continues. Newline
// tokens pass through one-for-one, so blank lines survive into the output
// and the parser's file-context remap stays exact for line-preserving
// content.
func (pp *Preprocessor) Run(lx *lexer.Lexer) error {
	lx.Reset()
	pp.writePushFile(lx.File())
	err := pp.process(lx)
	pp.writePopFile()
	return err
}

func (pp *Preprocessor) process(lx *lexer.Lexer) error {
	for !lx.AtEnd() {
		if pp.ctl != ctlNone {
			return nil
		}
		tok := lx.Current()
		switch {
		case tok.Kind == token.NEWLINE:
			pp.emitNewline()
			lx.Skip(1)

		case tok.Kind == expandEnd:
			pp.leaveExpansion()
			lx.Skip(1)

		case tok.Kind == token.KEYWORD && tok.Keyword.Kind == keyword.Directive && tok.Keyword.P0 == keyword.DirPreproc:
			if err := pp.directive(lx); err != nil {
				return err
			}

		case tok.Kind == token.IDENT && pp.macros.IsDefined(tok.Lexeme):
			if err := pp.expandMacro(lx); err != nil {
				return err
			}

		case tok.Kind == token.PLACEHOLDER || tok.Kind == token.PLACEHOLDER_KEYWORD:
			pp.recordAt(tok, "placeholder %q outside a macro body", tok.Lexeme)
			lx.Skip(1)

		default:
			pp.emit(tok)
			lx.Skip(1)
		}
	}
	return nil
}

// --- output ---

func (pp *Preprocessor) emit(tok token.Token) {
	if !pp.atLineStart {
		pp.out.WriteByte(' ')
	}
	pp.out.WriteString(tok.Lexeme)
	pp.atLineStart = false
}

func (pp *Preprocessor) emitNewline() {
	pp.out.WriteByte('\n')
	pp.atLineStart = true
}

func (pp *Preprocessor) writePushFile(path string) {
	if !pp.atLineStart {
		pp.emitNewline()
	}
	fmt.Fprintf(&pp.out, ".pragma push_file %s\n", strconv.Quote(path))
	pp.atLineStart = true
}

func (pp *Preprocessor) writePopFile() {
	if !pp.atLineStart {
		pp.emitNewline()
	}
	pp.out.WriteString(".pragma pop_file\n")
	pp.atLineStart = true
}

// --- diagnostics ---

func (pp *Preprocessor) recordAt(tok token.Token, format string, args ...any) {
	pp.errs.Add(posOf(tok), "preproc", format, args...)
}

// recordErr files an error that may or may not carry a position already.
func (pp *Preprocessor) recordErr(tok token.Token, err error) {
	if ae, ok := err.(*errors.AsmError); ok {
		pp.errs.AddError(ae)
		return
	}
	pp.recordAt(tok, "%s", err)
}

func (pp *Preprocessor) fatalAt(tok token.Token, format string, args ...any) error {
	err := errors.New(posOf(tok), "preproc", format, args...)
	pp.errs.AddError(err)
	return err
}

func posOf(tok token.Token) errors.Position {
	return errors.Position{File: tok.Pos.File, Line: tok.Pos.Line, Column: tok.Pos.Column}
}

// restOfLine consumes and returns the tokens up to the next newline. The
// newline itself is consumed too and not returned. Expansion-end sentinels
// crossed along the way are settled here instead of being handed on.
func (pp *Preprocessor) restOfLine(lx *lexer.Lexer) []token.Token {
	var toks []token.Token
	for !lx.AtEnd() && lx.Current().Kind != token.NEWLINE {
		t := lx.Advance()
		if t.Kind == expandEnd {
			pp.leaveExpansion()
			continue
		}
		toks = append(toks, t)
	}
	if !lx.AtEnd() {
		lx.Skip(1)
	}
	return toks
}

// messageText renders a diagnostic directive's argument: a single string
// literal or an evaluable expression prints its value, anything else prints
// the raw lexemes.
func (pp *Preprocessor) messageText(toks []token.Token) string {
	if len(toks) == 1 && toks[0].Kind == token.STRING {
		return toks[0].Str
	}
	if v, err := Evaluate(toks, pp.macros); err == nil {
		return v.String()
	}
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Lexeme
	}
	return strings.Join(parts, " ")
}

// --- directive dispatch ---

func (pp *Preprocessor) directive(lx *lexer.Lexer) error {
	head := lx.Current()
	name := strings.ToLower(head.Lexeme)

	switch name {
	case ".include":
		return pp.includeFile(lx)
	case ".pragma":
		return pp.pragma(lx)
	case ".define":
		pp.defineTextMacro(lx)
	case ".macro":
		pp.defineBlockMacro(lx)
	case ".undef", ".purge":
		pp.undefine(lx)
	case ".if", ".ifdef", ".ifndef":
		return pp.conditional(lx)
	case ".repeat", ".rept":
		return pp.repeatLoop(lx)
	case ".for":
		return pp.forLoop(lx)
	case ".while":
		return pp.whileLoop(lx)
	case ".break":
		lx.Skip(1)
		pp.restOfLine(lx)
		if pp.loopNest == 0 {
			pp.recordAt(head, ".break outside a loop")
		} else {
			pp.ctl = ctlBreak
		}
	case ".continue":
		lx.Skip(1)
		pp.restOfLine(lx)
		if pp.loopNest == 0 {
			pp.recordAt(head, ".continue outside a loop")
		} else {
			pp.ctl = ctlContinue
		}
	case ".shift":
		lx.Skip(1)
		pp.restOfLine(lx)
		pp.recordAt(head, ".shift outside a macro expansion")
	case ".info":
		lx.Skip(1)
		fmt.Fprintf(pp.diag, "%s:%d: info: %s\n", head.Pos.File, head.Pos.Line, pp.messageText(pp.restOfLine(lx)))
	case ".warning", ".warn":
		lx.Skip(1)
		fmt.Fprintf(pp.diag, "%s:%d: warning: %s\n", head.Pos.File, head.Pos.Line, pp.messageText(pp.restOfLine(lx)))
	case ".error", ".err":
		lx.Skip(1)
		pp.recordAt(head, "%s", pp.messageText(pp.restOfLine(lx)))
	case ".fatal", ".fail", ".critical":
		lx.Skip(1)
		return pp.fatalAt(head, "%s", pp.messageText(pp.restOfLine(lx)))
	case ".assert":
		lx.Skip(1)
		cond := pp.restOfLine(lx)
		v, err := Evaluate(cond, pp.macros)
		if err != nil {
			pp.recordErr(head, err)
			break
		}
		if !v.Truthy() {
			parts := make([]string, len(cond))
			for i, t := range cond {
				parts[i] = t.Lexeme
			}
			pp.recordAt(head, "assertion failed: %s", strings.Join(parts, " "))
		}
	default:
		// .elseif/.else/.endif and loop terminators are consumed by their
		// opening construct; seeing one here means it is stray.
		lx.Skip(1)
		pp.restOfLine(lx)
		pp.recordAt(head, "stray %s directive", name)
	}
	return nil
}

// --- includes and pragmas ---

func (pp *Preprocessor) includeFile(lx *lexer.Lexer) error {
	head := lx.Advance()
	pathTok, err := lx.Expect(token.STRING, ".include expects a quoted file path")
	if err != nil {
		pp.recordAt(head, ".include expects a quoted file path")
		pp.restOfLine(lx)
		return nil
	}
	pp.restOfLine(lx)

	if pp.includeDepth+1 > pp.maxInclude {
		return pp.fatalAt(head, "include depth exceeds limit of %d", pp.maxInclude)
	}

	resolved, data, ok := pp.resolveInclude(head.Pos.File, pathTok.Str)
	if !ok {
		pp.recordAt(pathTok, "cannot find include file %q", pathTok.Str)
		return nil
	}
	if pp.onceSeen[resolved] {
		return nil
	}

	sub, lexErr := lexer.Load(string(data), resolved)
	if lexErr != nil {
		pp.recordErr(pathTok, lexErr)
		return nil
	}

	pp.writePushFile(resolved)
	pp.includeDepth++
	err = pp.process(sub)
	pp.includeDepth--
	pp.writePopFile()
	return err
}

// resolveInclude tries the including file's directory, the working
// directory, then the configured include directories. First match wins.
func (pp *Preprocessor) resolveInclude(from, path string) (string, []byte, bool) {
	if filepath.IsAbs(path) {
		if data, err := pp.readFile(path); err == nil {
			return filepath.Clean(path), data, true
		}
		return "", nil, false
	}
	candidates := []string{filepath.Join(filepath.Dir(from), path), filepath.Join(pp.workDir, path)}
	for _, dir := range pp.includeDirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, c := range candidates {
		if data, err := pp.readFile(c); err == nil {
			return filepath.Clean(c), data, true
		}
	}
	return "", nil, false
}

func (pp *Preprocessor) pragma(lx *lexer.Lexer) error {
	head := lx.Advance()
	toks := pp.restOfLine(lx)
	if len(toks) == 0 {
		pp.recordAt(head, ".pragma expects an argument")
		return nil
	}
	name := strings.ToLower(toks[0].Lexeme)
	switch name {
	case "once":
		pp.onceSeen[filepath.Clean(head.Pos.File)] = true
	case "max_recursion_depth", "max_include_depth":
		if len(toks) != 2 || toks[1].Kind != token.INT || toks[1].IntVal <= 0 {
			pp.recordAt(head, ".pragma %s expects a positive integer", name)
			return nil
		}
		if name == "max_recursion_depth" {
			pp.maxRecursion = int(toks[1].IntVal)
		} else {
			pp.maxInclude = int(toks[1].IntVal)
		}
	case "push_file", "pop_file":
		// synthetic markers already present in the input pass through
		pp.emit(head)
		for _, t := range toks {
			pp.emit(t)
		}
		pp.emitNewline()
	default:
		pp.recordAt(head, "unknown pragma %q", toks[0].Lexeme)
	}
	return nil
}

// --- macro definition ---

func (pp *Preprocessor) defineTextMacro(lx *lexer.Lexer) {
	head := lx.Advance()
	nameTok := lx.Current()
	if nameTok.Kind != token.IDENT {
		pp.recordAt(nameTok, ".define expects a macro name, got %q", nameTok.Lexeme)
		pp.restOfLine(lx)
		return
	}
	lx.Skip(1)
	replacement := pp.restOfLine(lx)
	if err := pp.macros.Define(nameTok.Lexeme, nil, replacement, head.Pos.File, head.Pos.Line); err != nil {
		pp.recordAt(nameTok, "%s", err)
	}
}

func (pp *Preprocessor) defineBlockMacro(lx *lexer.Lexer) {
	head := lx.Advance()
	nameTok := lx.Current()
	if nameTok.Kind != token.IDENT {
		pp.recordAt(nameTok, ".macro expects a macro name, got %q", nameTok.Lexeme)
		pp.restOfLine(lx)
		return
	}
	lx.Skip(1)

	// parameter names, comma separated, to end of line
	var params []string
	for !lx.AtEnd() && lx.Current().Kind != token.NEWLINE {
		t := lx.Advance()
		if t.Kind == token.COMMA {
			continue
		}
		if t.Kind != token.IDENT {
			pp.recordAt(t, "invalid macro parameter %q", t.Lexeme)
			continue
		}
		params = append(params, t.Lexeme)
	}
	if !lx.AtEnd() {
		lx.Skip(1)
	}

	// body runs to the matching .endm
	var body []token.Token
	nest := 0
	for {
		if lx.AtEnd() {
			pp.recordAt(head, "unterminated .macro %s", nameTok.Lexeme)
			return
		}
		t := lx.Current()
		if isDirective(t, ".macro") {
			nest++
		} else if isDirective(t, ".endm") {
			if nest == 0 {
				lx.Skip(1)
				pp.restOfLine(lx)
				break
			}
			nest--
		}
		body = append(body, lx.Advance())
	}

	if err := pp.macros.Define(nameTok.Lexeme, params, body, head.Pos.File, head.Pos.Line); err != nil {
		pp.recordAt(nameTok, "%s", err)
	}
}

func (pp *Preprocessor) undefine(lx *lexer.Lexer) {
	head := lx.Advance()
	nameTok := lx.Current()
	if nameTok.Kind != token.IDENT {
		pp.recordAt(nameTok, "%s expects a macro name, got %q", strings.ToLower(head.Lexeme), nameTok.Lexeme)
		pp.restOfLine(lx)
		return
	}
	lx.Skip(1)
	pp.restOfLine(lx)
	if err := pp.macros.Undefine(nameTok.Lexeme); err != nil {
		pp.recordAt(nameTok, "%s", err)
	}
}

func isDirective(t token.Token, name string) bool {
	return t.Kind == token.KEYWORD && t.Keyword.Kind == keyword.Directive &&
		t.Keyword.P0 == keyword.DirPreproc && strings.EqualFold(t.Lexeme, name)
}

func isAnyDirective(t token.Token, names ...string) bool {
	for _, n := range names {
		if isDirective(t, n) {
			return true
		}
	}
	return false
}
