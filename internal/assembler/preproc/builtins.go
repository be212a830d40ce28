package preproc

import (
	"math"
	"math/bits"
	"strings"

	"github.com/tessera-cpu/tasm/internal/assembler/fixed"
)

// builtin is one expression-language function. Arity is strict; mismatches
// are reported by the caller before apply runs.
type builtin struct {
	arity int
	apply func(ev *evaluator, args []Value) (Value, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		// integer bit manipulation
		"high": {1, func(ev *evaluator, args []Value) (Value, error) {
			if args[0].Kind() != Integer {
				return Value{}, ev.errorf("high() expects an integer, got %s", args[0].TypeName())
			}
			return IntValue((args[0].Int() >> 8) & 0xFF), nil
		}},
		"low": {1, func(ev *evaluator, args []Value) (Value, error) {
			if args[0].Kind() != Integer {
				return Value{}, ev.errorf("low() expects an integer, got %s", args[0].TypeName())
			}
			return IntValue(args[0].Int() & 0xFF), nil
		}},
		"bitwidth": {1, func(ev *evaluator, args []Value) (Value, error) {
			if args[0].Kind() != Integer {
				return Value{}, ev.errorf("bitwidth() expects an integer, got %s", args[0].TypeName())
			}
			return IntValue(int64(bits.Len64(uint64(args[0].Int())))), nil
		}},

		// numeric utility
		"abs": {1, func(ev *evaluator, args []Value) (Value, error) {
			switch args[0].Kind() {
			case Integer:
				v := args[0].Int()
				if v < 0 {
					v = -v
				}
				return IntValue(v), nil
			case Number:
				n := args[0].Number()
				if n < 0 {
					n = n.Neg()
				}
				return NumberValue(n), nil
			}
			return Value{}, ev.errorf("abs() expects a numeric argument, got %s", args[0].TypeName())
		}},
		"min": {2, func(ev *evaluator, args []Value) (Value, error) {
			cmp, err := ev.compare(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			if cmp <= 0 {
				return args[0], nil
			}
			return args[1], nil
		}},
		"max": {2, func(ev *evaluator, args []Value) (Value, error) {
			cmp, err := ev.compare(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			if cmp >= 0 {
				return args[0], nil
			}
			return args[1], nil
		}},
		"clamp": {3, func(ev *evaluator, args []Value) (Value, error) {
			lo, err := ev.compare(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			if lo < 0 {
				return args[1], nil
			}
			hi, err := ev.compare(args[0], args[2])
			if err != nil {
				return Value{}, err
			}
			if hi > 0 {
				return args[2], nil
			}
			return args[0], nil
		}},

		// fixed-point arithmetic over the raw Q32.32 representation
		"fmul": {2, fixedBinop(func(a, b fixed.Number) (fixed.Number, bool) { return a.Mul(b), true })},
		"fdiv": {2, fixedBinop(func(a, b fixed.Number) (fixed.Number, bool) {
			return a.Div(b)
		})},
		"fmod": {2, fixedBinop(func(a, b fixed.Number) (fixed.Number, bool) {
			if b == 0 {
				return 0, false
			}
			return a.Mod(b), true
		})},

		// fixed-point conversion
		"fint": {1, func(ev *evaluator, args []Value) (Value, error) {
			n, err := ev.toNumber(args[0])
			if err != nil {
				return Value{}, err
			}
			return IntValue(n.Int()), nil
		}},
		"ffrac": {1, func(ev *evaluator, args []Value) (Value, error) {
			n, err := ev.toNumber(args[0])
			if err != nil {
				return Value{}, err
			}
			return NumberValue(n.Frac()), nil
		}},
		"round": {1, fixedToInt(fixed.Number.Round)},
		"ceil":  {1, fixedToInt(fixed.Number.Ceil)},
		"floor": {1, fixedToInt(fixed.Number.Floor)},
		"trunc": {1, fixedToInt(fixed.Number.Trunc)},

		// transcendental math
		"pow": {2, func(ev *evaluator, args []Value) (Value, error) {
			return ev.power(args[0], args[1])
		}},
		"sqrt":  {1, floatFunc("sqrt", math.Sqrt, func(x float64) bool { return x >= 0 })},
		"exp":   {1, floatFunc("exp", math.Exp, nil)},
		"ln":    {1, floatFunc("ln", math.Log, func(x float64) bool { return x > 0 })},
		"log2":  {1, floatFunc("log2", math.Log2, func(x float64) bool { return x > 0 })},
		"log10": {1, floatFunc("log10", math.Log10, func(x float64) bool { return x > 0 })},
		"log": {2, func(ev *evaluator, args []Value) (Value, error) {
			x, err := ev.toFloat(args[0])
			if err != nil {
				return Value{}, err
			}
			base, err := ev.toFloat(args[1])
			if err != nil {
				return Value{}, err
			}
			if x <= 0 || base <= 0 || base == 1 {
				return Value{}, ev.errorf("log() domain error")
			}
			return NumberValue(fixed.FromFloat(math.Log(x) / math.Log(base))), nil
		}},

		// trigonometry
		"sin":  {1, floatFunc("sin", math.Sin, nil)},
		"cos":  {1, floatFunc("cos", math.Cos, nil)},
		"tan":  {1, floatFunc("tan", math.Tan, nil)},
		"asin": {1, floatFunc("asin", math.Asin, func(x float64) bool { return x >= -1 && x <= 1 })},
		"acos": {1, floatFunc("acos", math.Acos, func(x float64) bool { return x >= -1 && x <= 1 })},
		"atan": {1, floatFunc("atan", math.Atan, nil)},
		"atan2": {2, func(ev *evaluator, args []Value) (Value, error) {
			y, err := ev.toFloat(args[0])
			if err != nil {
				return Value{}, err
			}
			x, err := ev.toFloat(args[1])
			if err != nil {
				return Value{}, err
			}
			return NumberValue(fixed.FromFloat(math.Atan2(y, x))), nil
		}},

		// string functions
		"strlen": {1, func(ev *evaluator, args []Value) (Value, error) {
			s, err := stringArg(ev, "strlen", args[0])
			if err != nil {
				return Value{}, err
			}
			return IntValue(int64(len(s))), nil
		}},
		"strcmp": {2, func(ev *evaluator, args []Value) (Value, error) {
			a, err := stringArg(ev, "strcmp", args[0])
			if err != nil {
				return Value{}, err
			}
			b, err := stringArg(ev, "strcmp", args[1])
			if err != nil {
				return Value{}, err
			}
			return IntValue(int64(strings.Compare(a, b))), nil
		}},
		"substr": {3, func(ev *evaluator, args []Value) (Value, error) {
			s, err := stringArg(ev, "substr", args[0])
			if err != nil {
				return Value{}, err
			}
			if args[1].Kind() != Integer || args[2].Kind() != Integer {
				return Value{}, ev.errorf("substr() expects integer start and length")
			}
			start, length := args[1].Int(), args[2].Int()
			if start < 0 || length < 0 || start+length > int64(len(s)) {
				return Value{}, ev.errorf("substr(%q, %d, %d) out of range", s, start, length)
			}
			return StringValue(s[start : start+length]), nil
		}},
		"indexof": {2, func(ev *evaluator, args []Value) (Value, error) {
			s, err := stringArg(ev, "indexof", args[0])
			if err != nil {
				return Value{}, err
			}
			sub, err := stringArg(ev, "indexof", args[1])
			if err != nil {
				return Value{}, err
			}
			return IntValue(int64(strings.Index(s, sub))), nil
		}},
		"toupper": {1, func(ev *evaluator, args []Value) (Value, error) {
			s, err := stringArg(ev, "toupper", args[0])
			if err != nil {
				return Value{}, err
			}
			return StringValue(strings.ToUpper(s)), nil
		}},
		"tolower": {1, func(ev *evaluator, args []Value) (Value, error) {
			s, err := stringArg(ev, "tolower", args[0])
			if err != nil {
				return Value{}, err
			}
			return StringValue(strings.ToLower(s)), nil
		}},
		"concat": {2, func(ev *evaluator, args []Value) (Value, error) {
			a, err := stringArg(ev, "concat", args[0])
			if err != nil {
				return Value{}, err
			}
			b, err := stringArg(ev, "concat", args[1])
			if err != nil {
				return Value{}, err
			}
			return StringValue(a + b), nil
		}},
	}
}

func fixedBinop(op func(a, b fixed.Number) (fixed.Number, bool)) func(ev *evaluator, args []Value) (Value, error) {
	return func(ev *evaluator, args []Value) (Value, error) {
		a, err := ev.toNumber(args[0])
		if err != nil {
			return Value{}, err
		}
		b, err := ev.toNumber(args[1])
		if err != nil {
			return Value{}, err
		}
		res, ok := op(a, b)
		if !ok {
			return Value{}, ev.errorf("division by zero or result out of range")
		}
		return NumberValue(res), nil
	}
}

func fixedToInt(op func(fixed.Number) fixed.Number) func(ev *evaluator, args []Value) (Value, error) {
	return func(ev *evaluator, args []Value) (Value, error) {
		n, err := ev.toNumber(args[0])
		if err != nil {
			return Value{}, err
		}
		return IntValue(op(n).Int()), nil
	}
}

func floatFunc(name string, fn func(float64) float64, domain func(float64) bool) func(ev *evaluator, args []Value) (Value, error) {
	return func(ev *evaluator, args []Value) (Value, error) {
		x, err := ev.toFloat(args[0])
		if err != nil {
			return Value{}, err
		}
		if domain != nil && !domain(x) {
			return Value{}, ev.errorf("%s() domain error for %g", name, x)
		}
		return NumberValue(fixed.FromFloat(fn(x))), nil
	}
}

func stringArg(ev *evaluator, name string, v Value) (string, error) {
	if v.Kind() != String {
		return "", ev.errorf("%s() expects a string, got %s", name, v.TypeName())
	}
	return v.Str(), nil
}
