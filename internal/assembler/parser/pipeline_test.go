package parser

import (
	"fmt"
	"testing"

	"github.com/tessera-cpu/tasm/internal/assembler/ast"
	"github.com/tessera-cpu/tasm/internal/assembler/env"
	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/preproc"
)

// runPipeline pushes a source file through the full front end: preprocess,
// re-lex the flattened output, parse.
func runPipeline(t *testing.T, source string, files map[string]string) (*ast.Module, *env.Store) {
	t.Helper()

	l, err := lexer.Load(source, "main.asm")
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	pp := preproc.New(preproc.Options{
		ReadFile: func(path string) ([]byte, error) {
			if body, ok := files[path]; ok {
				return []byte(body), nil
			}
			return nil, fmt.Errorf("open %s: no such file", path)
		},
	})
	if err := pp.Run(l); err != nil {
		t.Fatalf("preprocessing failed: %v", err)
	}
	if !pp.Good() {
		t.Fatalf("preprocessing errors:\n%s", pp.Errors().String())
	}

	flat, err := lexer.Load(pp.Output(), "main.asm")
	if err != nil {
		t.Fatalf("re-lexing failed: %v\noutput:\n%s", err, pp.Output())
	}
	store := env.NewStore()
	mod, err := New(store).Parse(flat)
	if err != nil {
		t.Fatalf("parsing failed: %v\noutput:\n%s", err, pp.Output())
	}
	return mod, store
}

func TestFullPipeline(t *testing.T) {
	source := `.define START 0x8000
.include "regs.inc"
.macro LOADI reg, val
ldi @reg, #@val
.endm
.org START
init:
LOADI(r0, ANSWER)
.for i = 1, 3
.byte i
.endfor
hlt
.let counter = START + 1
`
	files := map[string]string{
		"regs.inc": ".pragma once\n.define ANSWER 42\n",
	}

	mod, store := runPipeline(t, source, files)

	if len(mod.Statements) != 8 {
		t.Fatalf("got %d statements, want 8:\n%s", len(mod.Statements), mod.String())
	}

	org, ok := mod.Statements[0].(*ast.OrgDirective)
	if !ok {
		t.Fatalf("statement 0 = %#v, want .org", mod.Statements[0])
	}
	if lit, ok := org.Address.(*ast.IntLit); !ok || lit.Value != 0x8000 {
		t.Errorf(".org address = %#v, want expanded 0x8000", org.Address)
	}

	if label, ok := mod.Statements[1].(*ast.LabelDef); !ok || label.Name != "init" {
		t.Errorf("statement 1 = %#v, want label init", mod.Statements[1])
	}

	ldi, ok := mod.Statements[2].(*ast.Instruction)
	if !ok || ldi.Mnemonic != "ldi" {
		t.Fatalf("statement 2 = %#v, want expanded ldi", mod.Statements[2])
	}
	imm, ok := ldi.Operands[1].(*ast.Immediate)
	if !ok {
		t.Fatalf("ldi operand 1 = %#v, want immediate", ldi.Operands[1])
	}
	if lit, ok := imm.Value.(*ast.IntLit); !ok || lit.Value != 42 {
		t.Errorf("immediate = %#v, want the included ANSWER macro", imm.Value)
	}

	for i, want := range []int64{1, 2, 3} {
		data, ok := mod.Statements[3+i].(*ast.DataDirective)
		if !ok || len(data.Values) != 1 {
			t.Fatalf("statement %d = %#v, want unrolled .byte", 3+i, mod.Statements[3+i])
		}
		if lit, ok := data.Values[0].(*ast.IntLit); !ok || lit.Value != want {
			t.Errorf(".byte %d = %#v, want %d", i, data.Values[0], want)
		}
	}

	if hlt, ok := mod.Statements[6].(*ast.Instruction); !ok || hlt.Mnemonic != "hlt" {
		t.Errorf("statement 6 = %#v, want hlt", mod.Statements[6])
	}

	v, err := store.GetValue("counter", errors.Position{File: "main.asm", Line: 13})
	if err != nil || v.Int() != 0x8001 {
		t.Fatalf("counter = %v, %v; want 0x8001", v, err)
	}
}

func TestPipelineErrorNamesIncludedFile(t *testing.T) {
	source := ".include \"bad.inc\"\n"
	files := map[string]string{
		"bad.inc": "nop\nmov r0\n",
	}

	l, err := lexer.Load(source, "main.asm")
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	pp := preproc.New(preproc.Options{
		ReadFile: func(path string) ([]byte, error) {
			return []byte(files[path]), nil
		},
	})
	if err := pp.Run(l); err != nil {
		t.Fatalf("preprocessing failed: %v", err)
	}

	flat, err := lexer.Load(pp.Output(), "main.asm")
	if err != nil {
		t.Fatalf("re-lexing failed: %v", err)
	}
	_, err = New(nil).Parse(flat)
	if err == nil {
		t.Fatal("expected an arity error from the included file")
	}
	ae, ok := err.(*errors.AsmError)
	if !ok {
		t.Fatalf("error %T is not positioned", err)
	}
	if ae.Pos.File != "bad.inc" || ae.Pos.Line != 2 {
		t.Fatalf("error at %s, want bad.inc:2", ae.Pos)
	}
}

func TestPipelineLineNumbersSurviveBlankLines(t *testing.T) {
	source := "nop\n\n\nmov r0\n"

	l, err := lexer.Load(source, "main.asm")
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	pp := preproc.New(preproc.Options{})
	if err := pp.Run(l); err != nil {
		t.Fatalf("preprocessing failed: %v", err)
	}

	flat, err := lexer.Load(pp.Output(), "main.asm")
	if err != nil {
		t.Fatalf("re-lexing failed: %v", err)
	}
	_, err = New(nil).Parse(flat)
	if err == nil {
		t.Fatal("expected an arity error for mov")
	}
	ae, ok := err.(*errors.AsmError)
	if !ok {
		t.Fatalf("error %T is not positioned", err)
	}
	if ae.Pos.File != "main.asm" || ae.Pos.Line != 4 {
		t.Fatalf("error at %s, want main.asm:4", ae.Pos)
	}
}
