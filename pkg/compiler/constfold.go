package compiler

import (
	"math"

	"basic10/pkg/ic10"
)

func formatValue(v float64) string { return ic10.FormatNumber(v) }

// constEntry is a CONST or DEFINE after pass 1. ok is false when the
// initializer could not be evaluated; any later use is then an error.
type constEntry struct {
	value  float64
	ok     bool
	line   int
	define bool
}

// fold evaluates e at compile time. It reports false when e depends on
// runtime state. The error is set only when e names a constant whose value
// could not be computed.
func (cg *CodeGen) fold(e Expr) (float64, bool, error) {
	switch n := e.(type) {
	case *NumberLit:
		return n.Value, true, nil

	case *StringLit:
		return float64(cg.hashes.Add(n.Value)), true, nil

	case *HashExpr:
		return float64(cg.hashes.Add(n.Text)), true, nil

	case *VarRef:
		if len(n.Indices) > 0 {
			return 0, false, nil
		}
		return cg.foldName(n.Name, n.Line)

	case *UnaryExpr:
		v, ok, err := cg.fold(n.Operand)
		if !ok || err != nil {
			return 0, false, err
		}
		switch n.Op {
		case MINUS:
			return -v, true, nil
		case PLUS:
			return v, true, nil
		case NOT:
			return boolValue(v == 0), true, nil
		case TILDE:
			return ic10.Not(v), true, nil
		}
		return 0, false, nil

	case *BinaryExpr:
		l, lok, err := cg.fold(n.Left)
		if err != nil {
			return 0, false, err
		}
		r, rok, err := cg.fold(n.Right)
		if err != nil || !lok || !rok {
			return 0, false, err
		}
		return foldBinary(n.Op, l, r)

	case *TernaryExpr:
		c, ok, err := cg.fold(n.Cond)
		if !ok || err != nil {
			return 0, false, err
		}
		if c != 0 {
			return cg.fold(n.Then)
		}
		return cg.fold(n.Else)

	case *CallExpr:
		if cg.isArray(n.Name) || cg.routines[n.Name] != nil {
			return 0, false, nil
		}
		b, found := lookupBuiltin(n.Name)
		if !found || b.fold == nil || len(n.Args) != b.args {
			return 0, false, nil
		}
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, ok, err := cg.fold(a)
			if !ok || err != nil {
				return 0, false, err
			}
			args[i] = v
		}
		v := b.fold(args)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false, nil
		}
		return v, true, nil
	}
	return 0, false, nil
}

// foldName resolves a bare name: user constants first, then variables
// (never constant), then built-in constants.
func (cg *CodeGen) foldName(name string, line int) (float64, bool, error) {
	if c, ok := cg.consts[name]; ok {
		if !c.ok {
			return 0, false, genErrorf(line, ErrConstantFold,
				"constant %s (declared on line %d) cannot be evaluated at compile time", name, c.line)
		}
		return c.value, true, nil
	}
	if cg.isVariable(name) || cg.aliases[name] != nil {
		return 0, false, nil
	}
	if v, ok := lookupBuiltinConstant(name); ok {
		return v, true, nil
	}
	return 0, false, nil
}

func foldBinary(op TokenType, l, r float64) (float64, bool, error) {
	var v float64
	switch op {
	case PLUS:
		v = l + r
	case MINUS:
		v = l - r
	case STAR:
		v = l * r
	case SLASH:
		if r == 0 {
			return 0, false, nil
		}
		v = l / r
	case MOD:
		if r == 0 {
			return 0, false, nil
		}
		v = ic10.Mod(l, r)
	case CARET:
		v = math.Pow(l, r)
	case AMP:
		v = ic10.And(l, r)
	case PIPE:
		v = ic10.Or(l, r)
	case XOR:
		v = ic10.Xor(l, r)
	case SHL_OP:
		v = ic10.ShiftLeft(l, r)
	case SHR_OP:
		v = ic10.ShiftRight(l, r)
	case EQUALS:
		v = boolValue(l == r)
	case NOT_EQ:
		v = boolValue(l != r)
	case LESS:
		v = boolValue(l < r)
	case GREATER:
		v = boolValue(l > r)
	case LESS_EQ:
		v = boolValue(l <= r)
	case GREATER_EQ:
		v = boolValue(l >= r)
	case AND:
		v = boolValue(l != 0 && r != 0)
	case OR:
		v = boolValue(l != 0 || r != 0)
	default:
		return 0, false, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}
