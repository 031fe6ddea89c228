package compiler

import (
	"math"
	"strings"

	"basic10/pkg/ic10"
)

// builtin describes a function that lowers to IC10 instructions. fold is nil
// for functions that cannot be evaluated at compile time.
type builtin struct {
	op   string // single-instruction lowering, "" when lowered by hand
	args int
	fold func(a []float64) float64
}

func unary(op string, f func(float64) float64) builtin {
	return builtin{op: op, args: 1, fold: func(a []float64) float64 { return f(a[0]) }}
}

func binary(op string, f func(a, b float64) float64) builtin {
	return builtin{op: op, args: 2, fold: func(a []float64) float64 { return f(a[0], a[1]) }}
}

// builtins is keyed by upper-cased name and shared read-only by every
// compile.
var builtins = map[string]builtin{
	"ABS":   unary("abs", math.Abs),
	"SQRT":  unary("sqrt", math.Sqrt),
	"CEIL":  unary("ceil", math.Ceil),
	"FLOOR": unary("floor", math.Floor),
	"ROUND": unary("round", ic10.Round),
	"TRUNC": unary("trunc", math.Trunc),
	"SIN":   unary("sin", math.Sin),
	"COS":   unary("cos", math.Cos),
	"TAN":   unary("tan", math.Tan),
	"ASIN":  unary("asin", math.Asin),
	"ACOS":  unary("acos", math.Acos),
	"ATAN":  unary("atan", math.Atan),
	"EXP":   unary("exp", math.Exp),
	"LOG":   unary("log", math.Log),
	"BNOT":  unary("not", ic10.Not),
	"MIN":   binary("min", math.Min),
	"MAX":   binary("max", math.Max),
	"ATAN2": binary("atan2", math.Atan2),
	"BAND":  binary("and", ic10.And),
	"BOR":   binary("or", ic10.Or),
	"BXOR":  binary("xor", ic10.Xor),
	"SHL":   binary("sll", ic10.ShiftLeft),
	"SHR":   binary("srl", ic10.ShiftRight),
	"SRA":   binary("sra", ic10.ShiftRightArith),
	"RND":   {op: "rand", args: 0},
	"SGN": {args: 1, fold: func(a []float64) float64 {
		switch {
		case a[0] > 0:
			return 1
		case a[0] < 0:
			return -1
		}
		return 0
	}},
	"LERP": {args: 3, fold: func(a []float64) float64 { return a[0] + (a[1]-a[0])*a[2] }},
	"CLAMP": {args: 3, fold: func(a []float64) float64 {
		return math.Min(math.Max(a[0], a[1]), a[2])
	}},
	"INRANGE": {args: 3, fold: func(a []float64) float64 {
		return boolValue(a[0] >= a[1] && a[0] <= a[2])
	}},
	"SDSE": {args: 1},
	"SDNS": {args: 1},
}

func lookupBuiltin(name string) (builtin, bool) {
	b, ok := builtins[strings.ToUpper(name)]
	return b, ok
}

// builtinConstants are the names every program can use without declaring
// them. Lookup is case-insensitive.
var builtinConstants = map[string]float64{
	"TRUE":    1,
	"FALSE":   0,
	"PI":      math.Pi,
	"E":       math.E,
	"DEG2RAD": math.Pi / 180,
	"RAD2DEG": 180 / math.Pi,

	// Colors
	"BLUE":   0,
	"GRAY":   1,
	"GREEN":  2,
	"ORANGE": 3,
	"RED":    4,
	"YELLOW": 5,
	"WHITE":  6,
	"BLACK":  7,
	"BROWN":  8,
	"KHAKI":  9,
	"PINK":   10,
	"PURPLE": 11,

	// Slot types
	"IMPORT":  0,
	"EXPORT":  1,
	"CONTENT": 2,
	"FUEL":    3,

	// Batch modes
	"AVERAGE": 0,
	"SUM":     1,
	"MINIMUM": 2,
	"MAXIMUM": 3,
}

func lookupBuiltinConstant(name string) (float64, bool) {
	v, ok := builtinConstants[strings.ToUpper(name)]
	return v, ok
}

func boolValue(b bool) float64 { return ic10.Bool(b) }
