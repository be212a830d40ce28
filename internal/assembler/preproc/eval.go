package preproc

import (
	"fmt"
	"math"

	"github.com/tessera-cpu/tasm/internal/assembler/errors"
	"github.com/tessera-cpu/tasm/internal/assembler/fixed"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// maxEvalDepth bounds macro-reference chains inside a single expression.
const maxEvalDepth = 64

// evaluator walks one token span with precedence-climbing recursive descent.
// The ladder, lowest to highest: logical-or, logical-and, bitwise-or,
// bitwise-xor, bitwise-and, equality, relational, shift, additive,
// multiplicative, exponent (right-associative), unary, primary. Evaluation
// has no side effects beyond macro-table reads.
type evaluator struct {
	toks   []token.Token
	pos    int
	macros *Table
	depth  int
}

// Evaluate computes the value of a token span against a read-only macro
// table. The span must form exactly one expression.
func Evaluate(toks []token.Token, macros *Table) (Value, error) {
	ev := &evaluator{toks: trimSpan(toks), macros: macros}
	if len(ev.toks) == 0 {
		return Value{}, fmt.Errorf("empty expression")
	}
	v, err := ev.logicalOr()
	if err != nil {
		return Value{}, err
	}
	if !ev.atEnd() {
		return Value{}, ev.errorf("unexpected %q after expression", ev.cur().Lexeme)
	}
	return v, nil
}

// Apply combines two already-evaluated values with a binary operator. The
// parser uses this for compound variable assignment; the coercion rules are
// the same ones infix evaluation applies.
func Apply(op token.Kind, a, b Value) (Value, error) {
	ev := &evaluator{}
	switch op {
	case token.PLUS:
		if a.Kind() == String && b.Kind() == String {
			return StringValue(a.Str() + b.Str()), nil
		}
		return ev.arith(op, a, b)
	case token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT:
		return ev.arith(op, a, b)
	case token.POWER:
		return ev.power(a, b)
	case token.SHL, token.SHR:
		x, y, err := ev.intPair(op, a, b)
		if err != nil {
			return Value{}, err
		}
		if y < 0 || y > 63 {
			return Value{}, ev.errorf("shift count %d out of range", y)
		}
		if op == token.SHL {
			return IntValue(x << uint(y)), nil
		}
		return IntValue(x >> uint(y)), nil
	case token.AMP, token.PIPE, token.CARET:
		x, y, err := ev.intPair(op, a, b)
		if err != nil {
			return Value{}, err
		}
		switch op {
		case token.AMP:
			return IntValue(x & y), nil
		case token.PIPE:
			return IntValue(x | y), nil
		}
		return IntValue(x ^ y), nil
	}
	return Value{}, ev.errorf("unsupported operator %q", string(op))
}

// trimSpan drops newline and EOF terminators from the span edges.
func trimSpan(toks []token.Token) []token.Token {
	end := len(toks)
	for end > 0 && (toks[end-1].Kind == token.NEWLINE || toks[end-1].Kind == token.EOF) {
		end--
	}
	return toks[:end]
}

func (ev *evaluator) atEnd() bool { return ev.pos >= len(ev.toks) }

func (ev *evaluator) cur() token.Token {
	if ev.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return ev.toks[ev.pos]
}

func (ev *evaluator) advance() token.Token {
	tok := ev.cur()
	if !ev.atEnd() {
		ev.pos++
	}
	return tok
}

func (ev *evaluator) errorf(format string, args ...any) error {
	pos := errors.Position{}
	if !ev.atEnd() {
		p := ev.cur().Pos
		pos = errors.Position{File: p.File, Line: p.Line, Column: p.Column}
	} else if len(ev.toks) > 0 {
		p := ev.toks[len(ev.toks)-1].Pos
		pos = errors.Position{File: p.File, Line: p.Line, Column: p.Column}
	}
	return errors.New(pos, "eval", format, args...)
}

func (ev *evaluator) logicalOr() (Value, error) {
	left, err := ev.logicalAnd()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == token.OR {
		ev.advance()
		right, err := ev.logicalAnd()
		if err != nil {
			return right, err
		}
		left = BoolValue(left.Truthy() || right.Truthy())
	}
	return left, nil
}

func (ev *evaluator) logicalAnd() (Value, error) {
	left, err := ev.bitOr()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == token.AND {
		ev.advance()
		right, err := ev.bitOr()
		if err != nil {
			return right, err
		}
		left = BoolValue(left.Truthy() && right.Truthy())
	}
	return left, nil
}

func (ev *evaluator) bitOr() (Value, error) {
	return ev.bitwiseLevel(token.PIPE, ev.bitXor, func(a, b int64) int64 { return a | b })
}

func (ev *evaluator) bitXor() (Value, error) {
	return ev.bitwiseLevel(token.CARET, ev.bitAnd, func(a, b int64) int64 { return a ^ b })
}

func (ev *evaluator) bitAnd() (Value, error) {
	return ev.bitwiseLevel(token.AMP, ev.equality, func(a, b int64) int64 { return a & b })
}

func (ev *evaluator) bitwiseLevel(op token.Kind, next func() (Value, error), apply func(a, b int64) int64) (Value, error) {
	left, err := next()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == op {
		opTok := ev.advance()
		right, err := next()
		if err != nil {
			return right, err
		}
		a, b, err := ev.intPair(opTok.Kind, left, right)
		if err != nil {
			return Value{}, err
		}
		left = IntValue(apply(a, b))
	}
	return left, nil
}

func (ev *evaluator) equality() (Value, error) {
	left, err := ev.relational()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == token.EQ || ev.cur().Kind == token.NOT_EQ {
		opTok := ev.advance()
		right, err := ev.relational()
		if err != nil {
			return right, err
		}
		eq, err := ev.valuesEqual(left, right)
		if err != nil {
			return Value{}, err
		}
		if opTok.Kind == token.NOT_EQ {
			eq = !eq
		}
		left = BoolValue(eq)
	}
	return left, nil
}

func (ev *evaluator) relational() (Value, error) {
	left, err := ev.shift()
	if err != nil {
		return left, err
	}
	for {
		k := ev.cur().Kind
		if k != token.LT && k != token.GT && k != token.LT_EQ && k != token.GT_EQ {
			return left, nil
		}
		ev.advance()
		right, err := ev.shift()
		if err != nil {
			return right, err
		}
		cmp, err := ev.compare(left, right)
		if err != nil {
			return Value{}, err
		}
		switch k {
		case token.LT:
			left = BoolValue(cmp < 0)
		case token.GT:
			left = BoolValue(cmp > 0)
		case token.LT_EQ:
			left = BoolValue(cmp <= 0)
		case token.GT_EQ:
			left = BoolValue(cmp >= 0)
		}
	}
}

func (ev *evaluator) shift() (Value, error) {
	left, err := ev.additive()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == token.SHL || ev.cur().Kind == token.SHR {
		opTok := ev.advance()
		right, err := ev.additive()
		if err != nil {
			return right, err
		}
		a, b, err := ev.intPair(opTok.Kind, left, right)
		if err != nil {
			return Value{}, err
		}
		if b < 0 || b > 63 {
			return Value{}, ev.errorf("shift count %d out of range", b)
		}
		if opTok.Kind == token.SHL {
			left = IntValue(a << uint(b))
		} else {
			left = IntValue(a >> uint(b))
		}
	}
	return left, nil
}

func (ev *evaluator) additive() (Value, error) {
	left, err := ev.multiplicative()
	if err != nil {
		return left, err
	}
	for ev.cur().Kind == token.PLUS || ev.cur().Kind == token.MINUS {
		opTok := ev.advance()
		right, err := ev.multiplicative()
		if err != nil {
			return right, err
		}
		if opTok.Kind == token.PLUS && left.Kind() == String && right.Kind() == String {
			left = StringValue(left.Str() + right.Str())
			continue
		}
		left, err = ev.arith(opTok.Kind, left, right)
		if err != nil {
			return Value{}, err
		}
	}
	return left, nil
}

func (ev *evaluator) multiplicative() (Value, error) {
	left, err := ev.exponent()
	if err != nil {
		return left, err
	}
	for {
		k := ev.cur().Kind
		if k != token.ASTERISK && k != token.SLASH && k != token.PERCENT {
			return left, nil
		}
		ev.advance()
		right, err := ev.exponent()
		if err != nil {
			return right, err
		}
		left, err = ev.arith(k, left, right)
		if err != nil {
			return Value{}, err
		}
	}
}

// exponent is right-associative: 2 ** 3 ** 2 is 2 ** (3 ** 2).
func (ev *evaluator) exponent() (Value, error) {
	base, err := ev.unary()
	if err != nil {
		return base, err
	}
	if ev.cur().Kind != token.POWER {
		return base, nil
	}
	ev.advance()
	exp, err := ev.exponent()
	if err != nil {
		return exp, err
	}
	return ev.power(base, exp)
}

func (ev *evaluator) power(base, exp Value) (Value, error) {
	if base.Kind() == Integer && exp.Kind() == Integer && exp.Int() >= 0 {
		b, e := base.Int(), exp.Int()
		switch b {
		case 0, 1:
			if e == 0 {
				return IntValue(1), nil
			}
			return IntValue(b), nil
		case -1:
			if e%2 == 0 {
				return IntValue(1), nil
			}
			return IntValue(-1), nil
		}
		// |b| >= 2, so anything past 2^63 cannot fit an int64
		if e > 63 {
			return Value{}, ev.errorf("integer exponent %d out of range", e)
		}
		result := int64(1)
		for ; e > 0; e >>= 1 {
			if e&1 == 1 {
				result *= b
			}
			if e > 1 {
				b *= b
			}
		}
		return IntValue(result), nil
	}
	b, err := ev.toFloat(base)
	if err != nil {
		return Value{}, err
	}
	e, err := ev.toFloat(exp)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(fixed.FromFloat(math.Pow(b, e))), nil
}

func (ev *evaluator) unary() (Value, error) {
	switch ev.cur().Kind {
	case token.BANG:
		ev.advance()
		v, err := ev.unary()
		if err != nil {
			return v, err
		}
		return BoolValue(!v.Truthy()), nil
	case token.TILDE:
		ev.advance()
		v, err := ev.unary()
		if err != nil {
			return v, err
		}
		if v.Kind() != Integer {
			return Value{}, ev.errorf("operator '~' requires an integer, got %s", v.TypeName())
		}
		return IntValue(^v.Int()), nil
	case token.PLUS:
		ev.advance()
		v, err := ev.unary()
		if err != nil {
			return v, err
		}
		if v.Kind() != Integer && v.Kind() != Number {
			return Value{}, ev.errorf("unary '+' requires a numeric operand, got %s", v.TypeName())
		}
		return v, nil
	case token.MINUS:
		ev.advance()
		v, err := ev.unary()
		if err != nil {
			return v, err
		}
		switch v.Kind() {
		case Integer:
			return IntValue(-v.Int()), nil
		case Number:
			return NumberValue(v.Number().Neg()), nil
		}
		return Value{}, ev.errorf("unary '-' requires a numeric operand, got %s", v.TypeName())
	}
	return ev.primary()
}

func (ev *evaluator) primary() (Value, error) {
	tok := ev.cur()
	switch tok.Kind {
	case token.INT:
		ev.advance()
		return IntValue(tok.IntVal), nil
	case token.NUMBER:
		ev.advance()
		return NumberValue(fixed.FromFloat(tok.FloatVal)), nil
	case token.CHAR:
		ev.advance()
		return IntValue(tok.IntVal), nil
	case token.STRING:
		ev.advance()
		return StringValue(tok.Str), nil
	case token.LPAREN:
		ev.advance()
		v, err := ev.logicalOr()
		if err != nil {
			return v, err
		}
		if ev.cur().Kind != token.RPAREN {
			return Value{}, ev.errorf("expected ')' to close grouped expression")
		}
		ev.advance()
		return v, nil
	case token.IDENT:
		return ev.identifier()
	case token.EOF:
		return Value{}, ev.errorf("unexpected end of expression")
	}
	return Value{}, ev.errorf("unexpected %q in expression", tok.Lexeme)
}

func (ev *evaluator) identifier() (Value, error) {
	tok := ev.advance()
	name := tok.Lexeme

	switch name {
	case "true":
		return BoolValue(true), nil
	case "false":
		return BoolValue(false), nil
	}

	if ev.cur().Kind == token.LPAREN {
		return ev.call(name)
	}

	macro, err := ev.macros.Lookup(name)
	if err != nil {
		return Value{}, ev.errorf("unknown identifier %q", name)
	}
	if len(macro.Params) > 0 {
		return Value{}, ev.errorf("parameterized macro %q cannot be used as a value", name)
	}
	if ev.depth+1 > maxEvalDepth {
		return Value{}, ev.errorf("macro reference chain for %q exceeds depth %d", name, maxEvalDepth)
	}
	sub := &evaluator{toks: trimSpan(macro.Tokens), macros: ev.macros, depth: ev.depth + 1}
	if len(sub.toks) == 0 {
		return VoidValue(), nil
	}
	v, err := sub.logicalOr()
	if err != nil {
		return Value{}, err
	}
	if !sub.atEnd() {
		return Value{}, ev.errorf("macro %q does not expand to a single expression", name)
	}
	return v, nil
}

// call evaluates name(args...). defined() keeps its argument as a raw
// identifier instead of evaluating it.
func (ev *evaluator) call(name string) (Value, error) {
	ev.advance() // (

	if name == "defined" {
		arg := ev.cur()
		if arg.Kind != token.IDENT {
			return Value{}, ev.errorf("defined() expects a macro name, got %q", arg.Lexeme)
		}
		ev.advance()
		if ev.cur().Kind != token.RPAREN {
			return Value{}, ev.errorf("expected ')' after defined() argument")
		}
		ev.advance()
		return BoolValue(ev.macros.IsDefined(arg.Lexeme)), nil
	}

	var args []Value
	if ev.cur().Kind != token.RPAREN {
		for {
			v, err := ev.logicalOr()
			if err != nil {
				return v, err
			}
			args = append(args, v)
			if ev.cur().Kind != token.COMMA {
				break
			}
			ev.advance()
		}
	}
	if ev.cur().Kind != token.RPAREN {
		return Value{}, ev.errorf("expected ')' to close call to %q", name)
	}
	ev.advance()

	if name == "typeof" {
		if len(args) != 1 {
			return Value{}, ev.errorf("typeof() expects 1 argument, got %d", len(args))
		}
		return StringValue(args[0].TypeName()), nil
	}

	fn, ok := builtins[name]
	if !ok {
		return Value{}, ev.errorf("unknown function %q", name)
	}
	if len(args) != fn.arity {
		return Value{}, ev.errorf("%s() expects %d argument(s), got %d", name, fn.arity, len(args))
	}
	return fn.apply(ev, args)
}

// --- coercion helpers ---

func (ev *evaluator) intPair(op token.Kind, a, b Value) (int64, int64, error) {
	if a.Kind() != Integer || b.Kind() != Integer {
		return 0, 0, ev.errorf("operator %q requires integer operands, got %s and %s", string(op), a.TypeName(), b.TypeName())
	}
	return a.Int(), b.Int(), nil
}

func (ev *evaluator) toNumber(v Value) (fixed.Number, error) {
	switch v.Kind() {
	case Integer:
		return fixed.FromInt(v.Int()), nil
	case Number:
		return v.Number(), nil
	}
	return 0, ev.errorf("expected a numeric value, got %s", v.TypeName())
}

func (ev *evaluator) toFloat(v Value) (float64, error) {
	n, err := ev.toNumber(v)
	if err != nil {
		return 0, err
	}
	return n.Float(), nil
}

// arith applies + - * / % with integer+number promotion to number.
func (ev *evaluator) arith(op token.Kind, a, b Value) (Value, error) {
	if a.Kind() == Integer && b.Kind() == Integer {
		x, y := a.Int(), b.Int()
		switch op {
		case token.PLUS:
			return IntValue(x + y), nil
		case token.MINUS:
			return IntValue(x - y), nil
		case token.ASTERISK:
			return IntValue(x * y), nil
		case token.SLASH:
			if y == 0 {
				return Value{}, ev.errorf("division by zero")
			}
			return IntValue(x / y), nil
		case token.PERCENT:
			if y == 0 {
				return Value{}, ev.errorf("modulo by zero")
			}
			return IntValue(x % y), nil
		}
	}

	x, err := ev.toNumber(a)
	if err != nil {
		return Value{}, ev.errorf("operator %q cannot combine %s and %s", string(op), a.TypeName(), b.TypeName())
	}
	y, err := ev.toNumber(b)
	if err != nil {
		return Value{}, ev.errorf("operator %q cannot combine %s and %s", string(op), a.TypeName(), b.TypeName())
	}
	switch op {
	case token.PLUS:
		return NumberValue(x.Add(y)), nil
	case token.MINUS:
		return NumberValue(x.Sub(y)), nil
	case token.ASTERISK:
		return NumberValue(x.Mul(y)), nil
	case token.SLASH:
		if y == 0 {
			return Value{}, ev.errorf("division by zero")
		}
		q, ok := x.Div(y)
		if !ok {
			return Value{}, ev.errorf("fixed-point quotient out of range")
		}
		return NumberValue(q), nil
	case token.PERCENT:
		if y == 0 {
			return Value{}, ev.errorf("modulo by zero")
		}
		return NumberValue(x.Mod(y)), nil
	}
	return Value{}, ev.errorf("unsupported operator %q", string(op))
}

func (ev *evaluator) valuesEqual(a, b Value) (bool, error) {
	switch {
	case a.Kind() == Integer && b.Kind() == Integer:
		return a.Int() == b.Int(), nil
	case a.Kind() == String && b.Kind() == String:
		return a.Str() == b.Str(), nil
	case a.Kind() == Boolean && b.Kind() == Boolean:
		return a.Bool() == b.Bool(), nil
	case a.Kind() == Void && b.Kind() == Void:
		return true, nil
	}
	// number/integer pairs compare raw fixed-point bit patterns
	x, err := ev.toNumber(a)
	if err != nil {
		return false, ev.errorf("cannot compare %s with %s", a.TypeName(), b.TypeName())
	}
	y, err := ev.toNumber(b)
	if err != nil {
		return false, ev.errorf("cannot compare %s with %s", a.TypeName(), b.TypeName())
	}
	return x.Eq(y), nil
}

func (ev *evaluator) compare(a, b Value) (int, error) {
	if a.Kind() == String && b.Kind() == String {
		switch {
		case a.Str() < b.Str():
			return -1, nil
		case a.Str() > b.Str():
			return 1, nil
		}
		return 0, nil
	}
	x, err := ev.toNumber(a)
	if err != nil {
		return 0, ev.errorf("cannot order %s against %s", a.TypeName(), b.TypeName())
	}
	y, err := ev.toNumber(b)
	if err != nil {
		return 0, ev.errorf("cannot order %s against %s", a.TypeName(), b.TypeName())
	}
	switch {
	case x.Less(y):
		return -1, nil
	case y.Less(x):
		return 1, nil
	}
	return 0, nil
}
