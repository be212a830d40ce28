// Package ast defines the syntax tree the parser produces. The node set is
// closed: statements, operands and expressions each form a small sealed
// interface, and ownership is strictly tree-shaped with no back-references.
package ast

import (
	"strings"

	"github.com/tessera-cpu/tasm/internal/assembler/keyword"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Node is the base interface for all AST nodes
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is the interface for all statement-level nodes
type Statement interface {
	Node
	Position() token.Position
	statementNode()
}

// Operand is the interface for instruction operands
type Operand interface {
	Node
	operandNode()
}

// Expression is the interface for all expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Module is the root node: an ordered list of statements from one source unit
type Module struct {
	Name       string // source file the module was parsed from
	Statements []Statement
}

func (m *Module) TokenLiteral() string { return "module" }

func (m *Module) String() string {
	var b strings.Builder
	for _, s := range m.Statements {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ============ STATEMENTS ============

// LabelDef represents a label definition: `name:`
type LabelDef struct {
	Name string
	Pos  token.Position
}

func (l *LabelDef) TokenLiteral() string     { return l.Name }
func (l *LabelDef) Position() token.Position { return l.Pos }
func (l *LabelDef) statementNode()           {}
func (l *LabelDef) String() string           { return l.Name + ":" }

// Instruction represents a mnemonic with its operand list
type Instruction struct {
	Mnemonic string
	Entry    *keyword.Entry
	Operands []Operand
	Pos      token.Position
}

func (i *Instruction) TokenLiteral() string     { return i.Mnemonic }
func (i *Instruction) Position() token.Position { return i.Pos }
func (i *Instruction) statementNode()           {}

func (i *Instruction) String() string {
	var b strings.Builder
	b.WriteString("    ")
	b.WriteString(i.Mnemonic)
	for n, op := range i.Operands {
		if n == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(op.String())
	}
	return b.String()
}

// OrgDirective sets the assembly origin: `.org expr`
type OrgDirective struct {
	Address Expression
	Pos     token.Position
}

func (o *OrgDirective) TokenLiteral() string     { return ".org" }
func (o *OrgDirective) Position() token.Position { return o.Pos }
func (o *OrgDirective) statementNode()           {}
func (o *OrgDirective) String() string           { return ".org " + o.Address.String() }

// SectionDirective selects an output section or vector: `.rom`, `.ram`, `.int`
type SectionDirective struct {
	Name  string
	Entry *keyword.Entry
	Pos   token.Position
}

func (s *SectionDirective) TokenLiteral() string     { return s.Name }
func (s *SectionDirective) Position() token.Position { return s.Pos }
func (s *SectionDirective) statementNode()           {}
func (s *SectionDirective) String() string           { return s.Name }

// DataDirective emits literal data: `.byte`, `.word`, `.dword`
type DataDirective struct {
	Name   string
	Width  int // bytes per element: 1, 2 or 4
	Values []Expression
	Pos    token.Position
}

func (d *DataDirective) TokenLiteral() string     { return d.Name }
func (d *DataDirective) Position() token.Position { return d.Pos }
func (d *DataDirective) statementNode()           {}

func (d *DataDirective) String() string {
	parts := make([]string, len(d.Values))
	for i, v := range d.Values {
		parts[i] = v.String()
	}
	return d.Name + " " + strings.Join(parts, ", ")
}

// GlobalDirective exports symbols: `.global a, b`
type GlobalDirective struct {
	Symbols []string
	Pos     token.Position
}

func (g *GlobalDirective) TokenLiteral() string     { return ".global" }
func (g *GlobalDirective) Position() token.Position { return g.Pos }
func (g *GlobalDirective) statementNode()           {}
func (g *GlobalDirective) String() string           { return ".global " + strings.Join(g.Symbols, ", ") }

// ExternDirective imports symbols: `.extern a, b`
type ExternDirective struct {
	Symbols []string
	Pos     token.Position
}

func (e *ExternDirective) TokenLiteral() string     { return ".extern" }
func (e *ExternDirective) Position() token.Position { return e.Pos }
func (e *ExternDirective) statementNode()           {}
func (e *ExternDirective) String() string           { return ".extern " + strings.Join(e.Symbols, ", ") }

// VarDecl declares an assembly-time variable or constant: `.let`/`.const`
type VarDecl struct {
	Name    string
	Value   Expression
	IsConst bool
	Pos     token.Position
}

func (v *VarDecl) TokenLiteral() string {
	if v.IsConst {
		return ".const"
	}
	return ".let"
}
func (v *VarDecl) Position() token.Position { return v.Pos }
func (v *VarDecl) statementNode()           {}
func (v *VarDecl) String() string           { return v.TokenLiteral() + " " + v.Name + " = " + v.Value.String() }

// AssignStmt mutates a variable: `$name = expr` or a compound form
type AssignStmt struct {
	Name  string
	Op    token.Kind // "=", "+=", "<<=", ...
	Value Expression
	Pos   token.Position
}

func (a *AssignStmt) TokenLiteral() string     { return "$" + a.Name }
func (a *AssignStmt) Position() token.Position { return a.Pos }
func (a *AssignStmt) statementNode()           {}
func (a *AssignStmt) String() string           { return "$" + a.Name + " " + string(a.Op) + " " + a.Value.String() }

// ============ OPERANDS ============

// Immediate is a literal-value operand: `#expr`
type Immediate struct {
	Value Expression
}

func (i *Immediate) TokenLiteral() string { return "#" }
func (i *Immediate) operandNode()         {}
func (i *Immediate) String() string       { return "#" + i.Value.String() }

// Register is a direct register operand
type Register struct {
	Name  string
	Entry *keyword.Entry
}

func (r *Register) TokenLiteral() string { return r.Name }
func (r *Register) operandNode()         {}
func (r *Register) String() string       { return r.Name }

// Condition is a condition-code operand on branch instructions
type Condition struct {
	Name  string
	Entry *keyword.Entry
}

func (c *Condition) TokenLiteral() string { return c.Name }
func (c *Condition) operandNode()         {}
func (c *Condition) String() string       { return c.Name }

// DirectAddr is a bracket-free expression used as an address
type DirectAddr struct {
	Addr Expression
}

func (d *DirectAddr) TokenLiteral() string { return d.Addr.TokenLiteral() }
func (d *DirectAddr) operandNode()         {}
func (d *DirectAddr) String() string       { return d.Addr.String() }

// IndirectReg is a register-indirect operand: `[r0]`
type IndirectReg struct {
	Name  string
	Entry *keyword.Entry
}

func (i *IndirectReg) TokenLiteral() string { return i.Name }
func (i *IndirectReg) operandNode()         {}
func (i *IndirectReg) String() string       { return "[" + i.Name + "]" }

// IndirectExpr is an expression-indirect operand: `[expr]`
type IndirectExpr struct {
	Addr Expression
}

func (i *IndirectExpr) TokenLiteral() string { return i.Addr.TokenLiteral() }
func (i *IndirectExpr) operandNode()         {}
func (i *IndirectExpr) String() string       { return "[" + i.Addr.String() + "]" }

// ============ EXPRESSIONS ============

// BinaryExpr is a left- or right-associative binary operation
type BinaryExpr struct {
	Op    token.Kind
	Left  Expression
	Right Expression
}

func (b *BinaryExpr) TokenLiteral() string { return string(b.Op) }
func (b *BinaryExpr) expressionNode()      {}
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

// UnaryExpr is a prefix operation: `!`, `~`, `+`, `-`
type UnaryExpr struct {
	Op      token.Kind
	Operand Expression
}

func (u *UnaryExpr) TokenLiteral() string { return string(u.Op) }
func (u *UnaryExpr) expressionNode()      {}
func (u *UnaryExpr) String() string       { return "(" + string(u.Op) + u.Operand.String() + ")" }

// GroupExpr is an explicitly parenthesized sub-expression
type GroupExpr struct {
	Inner Expression
}

func (g *GroupExpr) TokenLiteral() string { return "(" }
func (g *GroupExpr) expressionNode()      {}
func (g *GroupExpr) String() string       { return "(" + g.Inner.String() + ")" }

// IntLit is a decoded integer literal, any radix
type IntLit struct {
	Value  int64
	Lexeme string
}

func (i *IntLit) TokenLiteral() string { return i.Lexeme }
func (i *IntLit) expressionNode()      {}
func (i *IntLit) String() string       { return i.Lexeme }

// NumberLit is a fractional literal, converted to Q32.32 downstream
type NumberLit struct {
	Value  float64
	Lexeme string
}

func (n *NumberLit) TokenLiteral() string { return n.Lexeme }
func (n *NumberLit) expressionNode()      {}
func (n *NumberLit) String() string       { return n.Lexeme }

// CharLit is a single-character literal carrying its code point
type CharLit struct {
	Value  int64
	Lexeme string
}

func (c *CharLit) TokenLiteral() string { return c.Lexeme }
func (c *CharLit) expressionNode()      {}
func (c *CharLit) String() string       { return c.Lexeme }

// StringLit is an escape-decoded string literal
type StringLit struct {
	Value  string
	Lexeme string
}

func (s *StringLit) TokenLiteral() string { return s.Lexeme }
func (s *StringLit) expressionNode()      {}
func (s *StringLit) String() string       { return s.Lexeme }

// Ident is a bare identifier, typically a label reference
type Ident struct {
	Name string
}

func (i *Ident) TokenLiteral() string { return i.Name }
func (i *Ident) expressionNode()      {}
func (i *Ident) String() string       { return i.Name }

// VarRef references an assembly-time variable: `$name`
type VarRef struct {
	Name string
}

func (v *VarRef) TokenLiteral() string { return "$" + v.Name }
func (v *VarRef) expressionNode()      {}
func (v *VarRef) String() string       { return "$" + v.Name }

// Placeholder is a macro placeholder that survived preprocessing: `@name`
type Placeholder struct {
	Name string
}

func (p *Placeholder) TokenLiteral() string { return "@" + p.Name }
func (p *Placeholder) expressionNode()      {}
func (p *Placeholder) String() string       { return "@" + p.Name }
