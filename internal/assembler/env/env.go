// Package env holds the assembly-time variable and constant bindings the
// parser creates for .let/.const directives and `$name` assignments.
package env

import (
	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/preproc"
)

type entry struct {
	value    preproc.Value
	constant bool
	pos      errors.Position
}

// Store maps variable names to their current values. Single-owner, no
// concurrent access; one store lives for the duration of a parse.
type Store struct {
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// DefineVariable binds a new mutable variable. Redefinition is an error that
// names the original definition site.
func (s *Store) DefineVariable(name string, v preproc.Value, pos errors.Position) error {
	return s.define(name, v, pos, false)
}

// DefineConstant binds a new immutable constant.
func (s *Store) DefineConstant(name string, v preproc.Value, pos errors.Position) error {
	return s.define(name, v, pos, true)
}

func (s *Store) define(name string, v preproc.Value, pos errors.Position, constant bool) error {
	if prev, ok := s.entries[name]; ok {
		what := "variable"
		if prev.constant {
			what = "constant"
		}
		return errors.New(pos, "env", "%q is already defined as a %s at %s", name, what, prev.pos)
	}
	s.entries[name] = &entry{value: v, constant: constant, pos: pos}
	return nil
}

// GetValue returns the current value of a defined name.
func (s *Store) GetValue(name string, pos errors.Position) (preproc.Value, error) {
	e, ok := s.entries[name]
	if !ok {
		return preproc.Value{}, errors.New(pos, "env", "%q is not defined", name)
	}
	return e.value, nil
}

// SetValue mutates an existing variable. Constants reject mutation with the
// original definition site in the message.
func (s *Store) SetValue(name string, v preproc.Value, pos errors.Position) error {
	e, ok := s.entries[name]
	if !ok {
		return errors.New(pos, "env", "%q is not defined", name)
	}
	if e.constant {
		return errors.New(pos, "env", "cannot assign to constant %q defined at %s", name, e.pos)
	}
	e.value = v
	return nil
}

func (s *Store) Exists(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// IsConstant reports whether a defined name is a constant. Undefined names
// report false.
func (s *Store) IsConstant(name string) bool {
	e, ok := s.entries[name]
	return ok && e.constant
}
