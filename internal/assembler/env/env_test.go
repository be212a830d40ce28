package env

import (
	"strings"
	"testing"

	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/preproc"
)

func at(line int) errors.Position {
	return errors.Position{File: "prog.asm", Line: line, Column: 1}
}

func TestDefineGetSet(t *testing.T) {
	s := NewStore()

	if err := s.DefineVariable("x", preproc.IntValue(1), at(1)); err != nil {
		t.Fatalf("DefineVariable failed: %v", err)
	}
	v, err := s.GetValue("x", at(2))
	if err != nil || v.Int() != 1 {
		t.Fatalf("GetValue(x) = %v, %v", v, err)
	}
	if err := s.SetValue("x", preproc.IntValue(2), at(3)); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	v, _ = s.GetValue("x", at(4))
	if v.Int() != 2 {
		t.Fatalf("after SetValue, x = %d, want 2", v.Int())
	}
	if !s.Exists("x") || s.IsConstant("x") {
		t.Fatal("x should exist and not be constant")
	}
}

func TestRedefinitionNamesOriginalSite(t *testing.T) {
	s := NewStore()
	if err := s.DefineVariable("x", preproc.IntValue(1), at(3)); err != nil {
		t.Fatalf("DefineVariable failed: %v", err)
	}
	err := s.DefineConstant("x", preproc.IntValue(2), at(9))
	if err == nil {
		t.Fatal("redefinition should fail")
	}
	if !strings.Contains(err.Error(), "prog.asm:3") {
		t.Fatalf("error %q should name the original definition at prog.asm:3", err)
	}
}

func TestConstantRejectsMutation(t *testing.T) {
	s := NewStore()
	if err := s.DefineConstant("limit", preproc.IntValue(64), at(5)); err != nil {
		t.Fatalf("DefineConstant failed: %v", err)
	}
	if !s.IsConstant("limit") {
		t.Fatal("limit should be constant")
	}
	err := s.SetValue("limit", preproc.IntValue(0), at(8))
	if err == nil {
		t.Fatal("assigning to a constant should fail")
	}
	if !strings.Contains(err.Error(), "prog.asm:5") {
		t.Fatalf("error %q should name the definition at prog.asm:5", err)
	}
}

func TestAccessBeforeDefinition(t *testing.T) {
	s := NewStore()
	if _, err := s.GetValue("ghost", at(1)); err == nil {
		t.Fatal("GetValue on undefined name should fail")
	}
	if err := s.SetValue("ghost", preproc.IntValue(1), at(1)); err == nil {
		t.Fatal("SetValue on undefined name should fail")
	}
	if s.Exists("ghost") || s.IsConstant("ghost") {
		t.Fatal("ghost should not exist")
	}
}
