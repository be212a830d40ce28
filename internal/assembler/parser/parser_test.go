package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tessera-cpu/tasm/internal/assembler/ast"
	"github.com/tessera-cpu/tasm/internal/assembler/env"
	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/lexer"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

func parseSource(t *testing.T, input string) (*ast.Module, *Parser, error) {
	t.Helper()
	l, err := lexer.Load(input, "test.asm")
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	p := New(nil)
	mod, err := p.Parse(l)
	return mod, p, err
}

func mustParse(t *testing.T, input string) *ast.Module {
	t.Helper()
	mod, p, err := parseSource(t, input)
	if err != nil {
		t.Fatalf("parsing %q failed: %v", input, err)
	}
	if !p.Good() {
		t.Fatalf("parser not good after %q", input)
	}
	return mod
}

func TestModuleStatements(t *testing.T) {
	mod := mustParse(t, "start:\n  mov r0, r1\n  jmp start\n")

	if len(mod.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(mod.Statements))
	}
	label, ok := mod.Statements[0].(*ast.LabelDef)
	if !ok || label.Name != "start" {
		t.Fatalf("statement 0 = %#v, want label start", mod.Statements[0])
	}
	mov, ok := mod.Statements[1].(*ast.Instruction)
	if !ok || mov.Mnemonic != "mov" || len(mov.Operands) != 2 {
		t.Fatalf("statement 1 = %#v, want mov with 2 operands", mod.Statements[1])
	}
}

func TestLabelSharesLineWithInstruction(t *testing.T) {
	mod := mustParse(t, "loop: jmp loop\n")
	if len(mod.Statements) != 2 {
		t.Fatalf("got %d statements, want label + instruction", len(mod.Statements))
	}
}

func TestOperandForms(t *testing.T) {
	mod := mustParse(t, "ld r0, [r1]\nst [0x100], r0\nldi r0, #42\njmp eq, start\ncall start\n")

	ld := mod.Statements[0].(*ast.Instruction)
	if _, ok := ld.Operands[0].(*ast.Register); !ok {
		t.Errorf("ld operand 0 = %#v, want register", ld.Operands[0])
	}
	if ind, ok := ld.Operands[1].(*ast.IndirectReg); !ok || ind.Name != "r1" {
		t.Errorf("ld operand 1 = %#v, want [r1]", ld.Operands[1])
	}

	st := mod.Statements[1].(*ast.Instruction)
	if _, ok := st.Operands[0].(*ast.IndirectExpr); !ok {
		t.Errorf("st operand 0 = %#v, want expression-indirect", st.Operands[0])
	}

	ldi := mod.Statements[2].(*ast.Instruction)
	imm, ok := ldi.Operands[1].(*ast.Immediate)
	if !ok {
		t.Fatalf("ldi operand 1 = %#v, want immediate", ldi.Operands[1])
	}
	if lit, ok := imm.Value.(*ast.IntLit); !ok || lit.Value != 42 {
		t.Errorf("immediate value = %#v, want 42", imm.Value)
	}

	jmp := mod.Statements[3].(*ast.Instruction)
	if _, ok := jmp.Operands[0].(*ast.Condition); !ok {
		t.Errorf("jmp operand 0 = %#v, want condition", jmp.Operands[0])
	}
	if _, ok := jmp.Operands[1].(*ast.DirectAddr); !ok {
		t.Errorf("jmp operand 1 = %#v, want direct address", jmp.Operands[1])
	}
}

func TestExponentRightAssociative(t *testing.T) {
	mod := mustParse(t, ".byte 2 ** 3 ** 2\n")
	data := mod.Statements[0].(*ast.DataDirective)

	want := &ast.BinaryExpr{
		Op:   token.POWER,
		Left: &ast.IntLit{Value: 2, Lexeme: "2"},
		Right: &ast.BinaryExpr{
			Op:    token.POWER,
			Left:  &ast.IntLit{Value: 3, Lexeme: "3"},
			Right: &ast.IntLit{Value: 2, Lexeme: "2"},
		},
	}
	if diff := cmp.Diff(want, data.Values[0]); diff != "" {
		t.Fatalf("2 ** 3 ** 2 tree mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedence(t *testing.T) {
	mod := mustParse(t, ".byte 1 + 2 * 3\n")
	data := mod.Statements[0].(*ast.DataDirective)

	want := &ast.BinaryExpr{
		Op:   token.PLUS,
		Left: &ast.IntLit{Value: 1, Lexeme: "1"},
		Right: &ast.BinaryExpr{
			Op:    token.ASTERISK,
			Left:  &ast.IntLit{Value: 2, Lexeme: "2"},
			Right: &ast.IntLit{Value: 3, Lexeme: "3"},
		},
	}
	if diff := cmp.Diff(want, data.Values[0]); diff != "" {
		t.Fatalf("1 + 2 * 3 tree mismatch (-want +got):\n%s", diff)
	}
}

func TestByteDirectiveChildren(t *testing.T) {
	mod := mustParse(t, ".byte 1, 2, 3\n")
	data, ok := mod.Statements[0].(*ast.DataDirective)
	if !ok {
		t.Fatalf("statement = %#v, want data directive", mod.Statements[0])
	}
	if data.Width != 1 {
		t.Errorf("width = %d, want 1", data.Width)
	}
	if len(data.Values) != 3 {
		t.Fatalf("got %d values, want 3", len(data.Values))
	}
	for i, want := range []int64{1, 2, 3} {
		lit, ok := data.Values[i].(*ast.IntLit)
		if !ok || lit.Value != want {
			t.Errorf("value %d = %#v, want %d", i, data.Values[i], want)
		}
	}
}

func TestDirectives(t *testing.T) {
	mod := mustParse(t, ".org 0x8000\n.rom\n.global start, main\n.extern printf\n.word 0xFFFF\n")

	if org, ok := mod.Statements[0].(*ast.OrgDirective); !ok {
		t.Errorf("statement 0 = %#v, want .org", mod.Statements[0])
	} else if lit, ok := org.Address.(*ast.IntLit); !ok || lit.Value != 0x8000 {
		t.Errorf(".org address = %#v", org.Address)
	}
	if _, ok := mod.Statements[1].(*ast.SectionDirective); !ok {
		t.Errorf("statement 1 = %#v, want section", mod.Statements[1])
	}
	if g, ok := mod.Statements[2].(*ast.GlobalDirective); !ok || len(g.Symbols) != 2 {
		t.Errorf("statement 2 = %#v, want .global with 2 symbols", mod.Statements[2])
	}
	if e, ok := mod.Statements[3].(*ast.ExternDirective); !ok || e.Symbols[0] != "printf" {
		t.Errorf("statement 3 = %#v, want .extern printf", mod.Statements[3])
	}
	if w, ok := mod.Statements[4].(*ast.DataDirective); !ok || w.Width != 2 {
		t.Errorf("statement 4 = %#v, want .word", mod.Statements[4])
	}
}

func TestArityValidation(t *testing.T) {
	bad := []string{
		"mov r0\n",
		"nop r0\n",
		"add r0, r1, r2, r3\n",
		"push\n",
	}
	for _, input := range bad {
		_, p, err := parseSource(t, input)
		if err == nil {
			t.Errorf("%q should fail arity validation", input)
			continue
		}
		if p.Good() {
			t.Errorf("parser still good after %q", input)
		}
		if !strings.Contains(err.Error(), "operand") {
			t.Errorf("%q error %q should mention operands", input, err)
		}
	}
}

func TestUnknownMnemonic(t *testing.T) {
	_, _, err := parseSource(t, "frobnicate r0\n")
	if err == nil {
		t.Fatal("unknown mnemonic should fail")
	}
	if !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("error %q should name the mnemonic", err)
	}
}

func TestNoPartialASTOnError(t *testing.T) {
	mod, p, err := parseSource(t, "nop\nmov r0\n")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if mod != nil {
		t.Fatal("no partial AST may be exposed after a failure")
	}
	if p.Good() {
		t.Fatal("Good() must latch false on the first error")
	}
}

func TestLetConstAndAssignment(t *testing.T) {
	store := env.NewStore()
	l, err := lexer.Load(".let x = 40 + 2\n$x += 1\n.const limit = 0x10\n", "test.asm")
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	p := New(store)
	mod, err := p.Parse(l)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(mod.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(mod.Statements))
	}
	if decl, ok := mod.Statements[0].(*ast.VarDecl); !ok || decl.IsConst {
		t.Errorf("statement 0 = %#v, want .let", mod.Statements[0])
	}
	if assign, ok := mod.Statements[1].(*ast.AssignStmt); !ok || assign.Op != token.PLUS_EQ {
		t.Errorf("statement 1 = %#v, want +=", mod.Statements[1])
	}

	v, err := store.GetValue("x", errors.Position{File: "test.asm", Line: 4})
	if err != nil || v.Int() != 43 {
		t.Fatalf("x = %v, %v; want 43", v, err)
	}
	if !store.IsConstant("limit") {
		t.Error("limit should be constant")
	}
}

func TestConstantAssignmentRejected(t *testing.T) {
	_, _, err := parseSource(t, ".const limit = 5\n$limit = 6\n")
	if err == nil {
		t.Fatal("assigning to a constant should fail")
	}
	if !strings.Contains(err.Error(), "constant") || !strings.Contains(err.Error(), "test.asm:1") {
		t.Fatalf("error %q should name the constant's definition site", err)
	}
}

func TestVariableRedefinitionRejected(t *testing.T) {
	_, _, err := parseSource(t, ".let x = 1\n.let x = 2\n")
	if err == nil {
		t.Fatal("redefining a variable should fail")
	}
	if !strings.Contains(err.Error(), "test.asm:1") {
		t.Fatalf("error %q should name the original definition", err)
	}
}

func TestPushFileRestoresContext(t *testing.T) {
	input := ".pragma push_file \"main.asm\"\nmov r0\n.pragma pop_file\n"
	_, _, err := parseSource(t, input)
	if err == nil {
		t.Fatal("expected an arity error")
	}
	if !strings.Contains(err.Error(), "main.asm:1") {
		t.Fatalf("error %q should locate the statement in main.asm line 1", err)
	}
}
