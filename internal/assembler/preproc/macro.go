package preproc

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Macro is a named replacement token sequence. Params is empty for plain
// text-substitution macros; parameterized macros bind placeholder tokens in
// the body against call-site arguments.
type Macro struct {
	Name   string
	Params []string
	Tokens []token.Token
	File   string
	Line   int
}

// Table stores macros by name. Single-owner, no concurrent access.
type Table struct {
	macros map[string]*Macro
}

func NewTable() *Table {
	return &Table{macros: make(map[string]*Macro)}
}

// ValidateName checks the macro naming rules: leading letter or underscore,
// alphanumeric/underscore body, no reserved double-underscore prefix, no
// collision with language keywords.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("macro name must not be empty")
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("macro name %q uses the reserved '__' prefix", name)
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return fmt.Errorf("macro name %q must start with a letter or underscore", name)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("macro name %q contains invalid character %q", name, string(r))
		}
	}
	if keyword.IsKeyword(name) {
		return fmt.Errorf("macro name %q collides with a language keyword", name)
	}
	return nil
}

func (t *Table) Define(name string, params []string, toks []token.Token, file string, line int) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if prev, ok := t.macros[name]; ok {
		return fmt.Errorf("macro %q already defined at %s:%d", name, prev.File, prev.Line)
	}
	t.macros[name] = &Macro{Name: name, Params: params, Tokens: toks, File: file, Line: line}
	return nil
}

func (t *Table) Lookup(name string) (*Macro, error) {
	if m, ok := t.macros[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("macro %q is not defined", name)
}

func (t *Table) Undefine(name string) error {
	if _, ok := t.macros[name]; !ok {
		return fmt.Errorf("macro %q is not defined", name)
	}
	delete(t.macros, name)
	return nil
}

func (t *Table) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Redefine replaces a macro without the already-defined check. Loop variable
// bindings go through here on every iteration.
func (t *Table) Redefine(name string, toks []token.Token, file string, line int) {
	t.macros[name] = &Macro{Name: name, Tokens: toks, File: file, Line: line}
}

// Remove drops a macro if present. Used for loop variables, which are not
// required to exist.
func (t *Table) Remove(name string) {
	delete(t.macros, name)
}
