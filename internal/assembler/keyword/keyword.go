// Package keyword holds the static lookup table mapping mnemonics, register
// names, condition codes and directives to their metadata. The table is
// built once at init and never mutated.
package keyword

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/tessera-cpu/tasm/internal/assembler/cpu"
)

type Kind int

const (
	Instruction Kind = iota
	Register
	Condition
	Directive
)

func (k Kind) String() string {
	switch k {
	case Instruction:
		return "instruction"
	case Register:
		return "register"
	case Condition:
		return "condition"
	case Directive:
		return "directive"
	}
	return "unknown"
}

// Directive sub-kinds, stored in P0 of Directive entries.
const (
	DirOrg uint16 = iota
	DirSection
	DirData
	DirGlobal
	DirExtern
	DirLet
	DirConst
	DirPreproc
)

// Section selectors for DirSection entries (P1).
const (
	SectionRom uint16 = iota
	SectionRam
	SectionInt
)

// Entry describes one keyword. The meaning of P0/P1/P2 depends on Kind:
// Instruction: opcode, min operands, max operands.
// Register/Condition: index or code in P0.
// Directive: sub-kind in P0, selector or data width in P1.
type Entry struct {
	Name string
	Kind Kind
	P0   uint16
	P1   uint16
	P2   uint16
}

var entries = []Entry{
	{"nop", Instruction, cpu.OpNOP, 0, 0},
	{"hlt", Instruction, cpu.OpHLT, 0, 0},
	{"ret", Instruction, cpu.OpRET, 0, 0},
	{"reti", Instruction, cpu.OpRETI, 0, 0},
	{"ei", Instruction, cpu.OpEI, 0, 0},
	{"di", Instruction, cpu.OpDI, 0, 0},
	{"wfi", Instruction, cpu.OpWFI, 0, 0},

	{"mov", Instruction, cpu.OpMOV, 2, 2},
	{"ldi", Instruction, cpu.OpLDI, 2, 2},
	{"ld", Instruction, cpu.OpLD, 2, 2},
	{"st", Instruction, cpu.OpST, 2, 2},
	{"ldb", Instruction, cpu.OpLDB, 2, 2},
	{"stb", Instruction, cpu.OpSTB, 2, 2},

	{"add", Instruction, cpu.OpADD, 2, 3},
	{"sub", Instruction, cpu.OpSUB, 2, 3},
	{"and", Instruction, cpu.OpAND, 2, 3},
	{"or", Instruction, cpu.OpOR, 2, 3},
	{"xor", Instruction, cpu.OpXOR, 2, 3},
	{"mul", Instruction, cpu.OpMUL, 2, 3},
	{"div", Instruction, cpu.OpDIV, 2, 3},
	{"shl", Instruction, cpu.OpSHL, 2, 3},
	{"shr", Instruction, cpu.OpSHR, 2, 3},
	{"not", Instruction, cpu.OpNOT, 1, 2},
	{"neg", Instruction, cpu.OpNEG, 1, 2},
	{"cmp", Instruction, cpu.OpCMP, 2, 2},

	{"push", Instruction, cpu.OpPUSH, 1, 1},
	{"pop", Instruction, cpu.OpPOP, 1, 1},

	{"jmp", Instruction, cpu.OpJMP, 1, 2},
	{"call", Instruction, cpu.OpCALL, 1, 2},
	{"jr", Instruction, cpu.OpJR, 1, 2},

	{"r0", Register, cpu.RegR0, 0, 0},
	{"r1", Register, cpu.RegR1, 0, 0},
	{"r2", Register, cpu.RegR2, 0, 0},
	{"r3", Register, cpu.RegR3, 0, 0},
	{"r4", Register, cpu.RegR4, 0, 0},
	{"r5", Register, cpu.RegR5, 0, 0},
	{"r6", Register, cpu.RegR6, 0, 0},
	{"r7", Register, cpu.RegR7, 0, 0},
	{"sp", Register, cpu.RegSP, 0, 0},
	{"pc", Register, cpu.RegPC, 0, 0},

	{"eq", Condition, cpu.CondEQ, 0, 0},
	{"ne", Condition, cpu.CondNE, 0, 0},
	{"cs", Condition, cpu.CondCS, 0, 0},
	{"cc", Condition, cpu.CondCC, 0, 0},
	{"mi", Condition, cpu.CondMI, 0, 0},
	{"pl", Condition, cpu.CondPL, 0, 0},
	{"lt", Condition, cpu.CondLT, 0, 0},
	{"le", Condition, cpu.CondLE, 0, 0},
	{"gt", Condition, cpu.CondGT, 0, 0},
	{"ge", Condition, cpu.CondGE, 0, 0},

	{".org", Directive, DirOrg, 0, 0},
	{".rom", Directive, DirSection, SectionRom, 0},
	{".ram", Directive, DirSection, SectionRam, 0},
	{".int", Directive, DirSection, SectionInt, 0},
	{".byte", Directive, DirData, 1, 0},
	{".word", Directive, DirData, 2, 0},
	{".dword", Directive, DirData, 4, 0},
	{".global", Directive, DirGlobal, 0, 0},
	{".extern", Directive, DirExtern, 0, 0},
	{".let", Directive, DirLet, 0, 0},
	{".const", Directive, DirConst, 0, 0},

	{".include", Directive, DirPreproc, 0, 0},
	{".pragma", Directive, DirPreproc, 0, 0},
	{".define", Directive, DirPreproc, 0, 0},
	{".macro", Directive, DirPreproc, 0, 0},
	{".endm", Directive, DirPreproc, 0, 0},
	{".undef", Directive, DirPreproc, 0, 0},
	{".purge", Directive, DirPreproc, 0, 0},
	{".shift", Directive, DirPreproc, 0, 0},
	{".if", Directive, DirPreproc, 0, 0},
	{".elseif", Directive, DirPreproc, 0, 0},
	{".elif", Directive, DirPreproc, 0, 0},
	{".else", Directive, DirPreproc, 0, 0},
	{".endif", Directive, DirPreproc, 0, 0},
	{".endc", Directive, DirPreproc, 0, 0},
	{".ifdef", Directive, DirPreproc, 0, 0},
	{".ifndef", Directive, DirPreproc, 0, 0},
	{".repeat", Directive, DirPreproc, 0, 0},
	{".rept", Directive, DirPreproc, 0, 0},
	{".endrepeat", Directive, DirPreproc, 0, 0},
	{".endr", Directive, DirPreproc, 0, 0},
	{".for", Directive, DirPreproc, 0, 0},
	{".endfor", Directive, DirPreproc, 0, 0},
	{".endf", Directive, DirPreproc, 0, 0},
	{".while", Directive, DirPreproc, 0, 0},
	{".endwhile", Directive, DirPreproc, 0, 0},
	{".endw", Directive, DirPreproc, 0, 0},
	{".continue", Directive, DirPreproc, 0, 0},
	{".break", Directive, DirPreproc, 0, 0},
	{".info", Directive, DirPreproc, 0, 0},
	{".warning", Directive, DirPreproc, 0, 0},
	{".warn", Directive, DirPreproc, 0, 0},
	{".error", Directive, DirPreproc, 0, 0},
	{".err", Directive, DirPreproc, 0, 0},
	{".fatal", Directive, DirPreproc, 0, 0},
	{".fail", Directive, DirPreproc, 0, 0},
	{".critical", Directive, DirPreproc, 0, 0},
	{".assert", Directive, DirPreproc, 0, 0},
}

var byName map[string]*Entry

func init() {
	byName = make(map[string]*Entry, len(entries))
	for i := range entries {
		byName[entries[i].Name] = &entries[i]
	}
}

// Lookup finds the entry for name, case-insensitively.
func Lookup(name string) (*Entry, error) {
	if e, ok := byName[strings.ToLower(name)]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown keyword %q", name)
}

// IsKeyword reports whether name is reserved by the language.
func IsKeyword(name string) bool {
	_, ok := byName[strings.ToLower(name)]
	return ok
}

// Suggest returns the closest keyword to name, or "" when nothing is close
// enough to be worth mentioning in a diagnostic.
func Suggest(name string) string {
	names := make([]string, 0, len(entries))
	for i := range entries {
		names = append(names, entries[i].Name)
	}
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	if best.Distance > 3 {
		return ""
	}
	return best.Target
}
