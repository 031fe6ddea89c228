package compiler

import (
	"strings"

	"basic10/pkg/ic10"
)

var branchOps = map[TokenType]string{
	EQUALS:     "beq",
	NOT_EQ:     "bne",
	LESS:       "blt",
	GREATER:    "bgt",
	LESS_EQ:    "ble",
	GREATER_EQ: "bge",
}

var negated = map[TokenType]TokenType{
	EQUALS:     NOT_EQ,
	NOT_EQ:     EQUALS,
	LESS:       GREATER_EQ,
	GREATER:    LESS_EQ,
	LESS_EQ:    GREATER,
	GREATER_EQ: LESS,
}

// mirrored gives the branch that tests b op a, used when the literal zero
// is on the left.
var mirrored = map[string]string{
	"beq": "beq",
	"bne": "bne",
	"blt": "bgt",
	"bgt": "blt",
	"ble": "bge",
	"bge": "ble",
}

// jumpIf emits code that continues at target when cond is want and falls
// through otherwise. Comparisons become a single branch, AND/OR are split
// into chains of branches and literal conditions fold away.
func (cg *CodeGen) jumpIf(cond Expr, want bool, target *ic10.Label) error {
	v, ok, err := cg.fold(cond)
	if err != nil {
		return err
	}
	if ok {
		if (v != 0) == want {
			cg.jump(target)
		}
		return nil
	}

	switch n := cond.(type) {
	case *UnaryExpr:
		if n.Op == NOT {
			return cg.jumpIf(n.Operand, !want, target)
		}

	case *BinaryExpr:
		switch n.Op {
		case AND:
			if !want {
				if err := cg.jumpIf(n.Left, false, target); err != nil {
					return err
				}
				return cg.jumpIf(n.Right, false, target)
			}
			skip := cg.newLabel()
			if err := cg.jumpIf(n.Left, false, skip); err != nil {
				return err
			}
			if err := cg.jumpIf(n.Right, true, target); err != nil {
				return err
			}
			cg.mark(skip)
			return nil

		case OR:
			if want {
				if err := cg.jumpIf(n.Left, true, target); err != nil {
					return err
				}
				return cg.jumpIf(n.Right, true, target)
			}
			then := cg.newLabel()
			if err := cg.jumpIf(n.Left, true, then); err != nil {
				return err
			}
			if err := cg.jumpIf(n.Right, false, target); err != nil {
				return err
			}
			cg.mark(then)
			return nil

		case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
			op := n.Op
			if !want {
				op = negated[op]
			}
			l, err := cg.eval(n.Left)
			if err != nil {
				return err
			}
			r, err := cg.eval(n.Right)
			if err != nil {
				return err
			}
			cg.compareBranch(branchOps[op], l, r, target)
			cg.release(l)
			cg.release(r)
			return nil
		}

	case *DeviceRead:
		if strings.EqualFold(n.Property, "Set") && n.Mode == BatchUnset {
			return cg.branchDeviceSet(n.Device, n.Line, want, target)
		}

	case *CallExpr:
		if cg.routines[n.Name] == nil && len(n.Args) == 1 {
			if dev, ok := n.Args[0].(*VarRef); ok {
				switch strings.ToUpper(n.Name) {
				case "SDSE":
					return cg.branchDeviceSet(dev.Name, n.Line, want, target)
				case "SDNS":
					return cg.branchDeviceSet(dev.Name, n.Line, !want, target)
				}
			}
		}
	}

	op, err := cg.eval(cond)
	if err != nil {
		return err
	}
	if want {
		cg.emit("bnez", op, ref(target))
	} else {
		cg.emit("beqz", op, ref(target))
	}
	cg.release(op)
	return nil
}

// compareBranch emits a two-operand branch, switching to the zero form when
// either side is the literal 0.
func (cg *CodeGen) compareBranch(op string, a, b ic10.Operand, target *ic10.Label) {
	if isZero(b) {
		cg.emit(op+"z", a, ref(target))
		return
	}
	if isZero(a) {
		cg.emit(mirrored[op]+"z", b, ref(target))
		return
	}
	cg.emit(op, a, b, ref(target))
}

func isZero(op ic10.Operand) bool {
	v, ok := op.(ic10.Immediate)
	return ok && v == 0
}

// branchDeviceSet jumps when a pin has a device connected (want) or has
// none (!want).
func (cg *CodeGen) branchDeviceSet(device string, line int, want bool, target *ic10.Label) error {
	pin, err := cg.pinOf(device, line)
	if err != nil {
		return err
	}
	if want {
		cg.emit("bdse", pin, ref(target))
	} else {
		cg.emit("bdns", pin, ref(target))
	}
	return nil
}
