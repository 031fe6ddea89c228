package compiler

import (
	"strings"

	"basic10/pkg/ic10"
)

var arithOps = map[TokenType]string{
	PLUS:   "add",
	MINUS:  "sub",
	STAR:   "mul",
	SLASH:  "div",
	MOD:    "mod",
	AMP:    "and",
	PIPE:   "or",
	XOR:    "xor",
	SHL_OP: "sll",
	SHR_OP: "srl",
}

var setOps = map[TokenType]string{
	EQUALS:     "seq",
	NOT_EQ:     "sne",
	LESS:       "slt",
	GREATER:    "sgt",
	LESS_EQ:    "sle",
	GREATER_EQ: "sge",
}

// mirroredSet swaps the sides of a comparison so a literal 0 on the left
// can use the zero form.
var mirroredSet = map[string]string{
	"seq": "seq",
	"sne": "sne",
	"slt": "sgt",
	"sgt": "slt",
	"sle": "sge",
	"sge": "sle",
}

// eval returns an operand holding the value of e: an immediate for
// constants, the variable's own register for plain variables and a
// temporary for everything else. Callers release the result.
func (cg *CodeGen) eval(e Expr) (ic10.Operand, error) {
	v, ok, err := cg.fold(e)
	if err != nil {
		return nil, err
	}
	if ok {
		return ic10.Immediate(v), nil
	}
	if ref, isRef := e.(*VarRef); isRef && len(ref.Indices) == 0 {
		return cg.readVar(ref)
	}
	t, err := cg.allocTemp()
	if err != nil {
		return nil, err
	}
	if err := cg.evalInto(t, e); err != nil {
		return nil, err
	}
	return t, nil
}

// readVar returns the register of a plain variable, or explains why the
// name has no value.
func (cg *CodeGen) readVar(ref *VarRef) (ic10.Operand, error) {
	switch {
	case cg.isVariable(ref.Name):
		return cg.varReg(ref.Name)
	case cg.aliases[ref.Name] != nil:
		return nil, genErrorf(ref.Line, ErrInvalid, "device alias %s has no value; read one of its properties", ref.Name)
	case cg.isArray(ref.Name):
		return nil, genErrorf(ref.Line, ErrInvalid, "array %s needs an index", ref.Name)
	}
	return nil, cg.undeclared(ref.Name, ref.Line)
}

// evalInto computes e into dst. dst is written only by the final
// instruction of a sequence, or after every operand has been read.
func (cg *CodeGen) evalInto(dst ic10.Register, e Expr) error {
	v, ok, err := cg.fold(e)
	if err != nil {
		return err
	}
	if ok {
		cg.emit("move", dst, ic10.Immediate(v))
		return nil
	}

	switch n := e.(type) {
	case *VarRef:
		if len(n.Indices) > 0 {
			return cg.genArrayLoad(dst, n.Name, n.Indices, n.Line)
		}
		src, err := cg.readVar(n)
		if err != nil {
			return err
		}
		if src != ic10.Operand(dst) {
			cg.emit("move", dst, src)
		}
		return nil

	case *BinaryExpr:
		return cg.genBinary(dst, n)

	case *UnaryExpr:
		op, err := cg.eval(n.Operand)
		if err != nil {
			return err
		}
		switch n.Op {
		case MINUS:
			cg.emit("sub", dst, ic10.Immediate(0), op)
		case NOT:
			cg.emit("seqz", dst, op)
		case TILDE:
			cg.emit("not", dst, op)
		default:
			if op != ic10.Operand(dst) {
				cg.emit("move", dst, op)
			}
		}
		cg.release(op)
		return nil

	case *IncDecExpr:
		if _, err := cg.assignTarget(n.Target.Name, n.Target.Line); err != nil {
			return err
		}
		r, err := cg.varReg(n.Target.Name)
		if err != nil {
			return err
		}
		op := "add"
		if n.Op == MINUS_MINUS {
			op = "sub"
		}
		if n.Prefix {
			cg.emit(op, r, r, ic10.Immediate(1))
			cg.store(n.Target.Name)
			if r != dst {
				cg.emit("move", dst, r)
			}
			return nil
		}
		if r != dst {
			cg.emit("move", dst, r)
		}
		cg.emit(op, r, r, ic10.Immediate(1))
		cg.store(n.Target.Name)
		return nil

	case *TernaryExpr:
		c, err := cg.eval(n.Cond)
		if err != nil {
			return err
		}
		a, err := cg.eval(n.Then)
		if err != nil {
			return err
		}
		b, err := cg.eval(n.Else)
		if err != nil {
			return err
		}
		cg.emit("select", dst, c, a, b)
		cg.release(c)
		cg.release(a)
		cg.release(b)
		return nil

	case *CallExpr:
		return cg.genCallExpr(dst, n)

	case *DeviceRead:
		return cg.genDeviceRead(dst, n)
	case *SlotRead:
		return cg.genSlotRead(dst, n)
	case *MemoryRead:
		return cg.genMemoryRead(dst, n)
	case *BatchRead:
		return cg.genBatchRead(dst, n)
	}
	return genErrorf(cg.line, ErrInvalid, "cannot evaluate %s", e)
}

func (cg *CodeGen) genArrayLoad(dst ic10.Register, name string, indices []Expr, line int) error {
	arr, err := cg.array(name, indices, line)
	if err != nil {
		return err
	}
	addr, err := cg.arrayAddress(name, arr, indices[0], line)
	if err != nil {
		return err
	}
	cg.emit("get", dst, db, addr)
	return nil
}

func (cg *CodeGen) genBinary(dst ic10.Register, n *BinaryExpr) error {
	switch n.Op {
	case AND, OR:
		l, err := cg.evalBool(n.Left)
		if err != nil {
			return err
		}
		r, err := cg.evalBool(n.Right)
		if err != nil {
			return err
		}
		op := "and"
		if n.Op == OR {
			op = "or"
		}
		cg.emit(op, dst, l, r)
		cg.release(l)
		cg.release(r)
		return nil

	case CARET:
		return cg.genPower(dst, n)
	}

	l, err := cg.eval(n.Left)
	if err != nil {
		return err
	}
	r, err := cg.eval(n.Right)
	if err != nil {
		return err
	}
	defer cg.release(l)
	defer cg.release(r)

	if op, ok := setOps[n.Op]; ok {
		switch {
		case isZero(r):
			cg.emit(op+"z", dst, l)
		case isZero(l):
			cg.emit(mirroredSet[op]+"z", dst, r)
		default:
			cg.emit(op, dst, l, r)
		}
		return nil
	}
	if op, ok := arithOps[n.Op]; ok {
		cg.emit(op, dst, l, r)
		return nil
	}
	return genErrorf(cg.line, ErrInvalid, "unsupported operator %s", n.Op)
}

// genPower lowers a^b. Squares multiply, everything else goes through
// exp(b * log(a)).
func (cg *CodeGen) genPower(dst ic10.Register, n *BinaryExpr) error {
	base, err := cg.eval(n.Left)
	if err != nil {
		return err
	}
	defer cg.release(base)
	if exp, ok, _ := cg.fold(n.Right); ok && exp == 2 {
		cg.emit("mul", dst, base, base)
		return nil
	}
	exp, err := cg.eval(n.Right)
	if err != nil {
		return err
	}
	defer cg.release(exp)
	cg.emit("log", scratchReg, base)
	cg.emit("mul", scratchReg, scratchReg, exp)
	cg.emit("exp", dst, scratchReg)
	return nil
}

func isBoolean(e Expr) bool {
	switch n := e.(type) {
	case *BinaryExpr:
		_, cmp := setOps[n.Op]
		return cmp || n.Op == AND || n.Op == OR
	case *UnaryExpr:
		return n.Op == NOT
	}
	return false
}

// evalBool evaluates e normalized to 0 or 1.
func (cg *CodeGen) evalBool(e Expr) (ic10.Operand, error) {
	op, err := cg.eval(e)
	if err != nil || isBoolean(e) {
		return op, err
	}
	if imm, ok := op.(ic10.Immediate); ok {
		return ic10.Immediate(boolValue(imm != 0)), nil
	}
	t := op
	if !cg.isTemp(op) {
		if t, err = cg.allocTemp(); err != nil {
			return nil, err
		}
	}
	cg.emit("snez", t, op)
	return t, nil
}

func (cg *CodeGen) genCallExpr(dst ic10.Register, n *CallExpr) error {
	if cg.isArray(n.Name) {
		return cg.genArrayLoad(dst, n.Name, n.Args, n.Line)
	}
	if r, ok := cg.routines[n.Name]; ok {
		if !r.function {
			return genErrorf(n.Line, ErrInvalid, "SUB %s does not return a value", n.Name)
		}
		if err := cg.genCall(r, n.Args, n.Line, dst); err != nil {
			return err
		}
		cg.emit("move", dst, resultReg)
		return nil
	}
	b, ok := lookupBuiltin(n.Name)
	if !ok {
		if cg.isVariable(n.Name) {
			return genErrorf(n.Line, ErrInvalid, "%s is not an array; declare it with DIM", n.Name)
		}
		return cg.unknownFunction(n.Name, n.Line)
	}
	if len(n.Args) != b.args {
		return genErrorf(n.Line, ErrInvalid, "%s takes %d arguments, got %d", strings.ToUpper(n.Name), b.args, len(n.Args))
	}

	name := strings.ToUpper(n.Name)
	if name == "SDSE" || name == "SDNS" {
		dev, ok := n.Args[0].(*VarRef)
		if !ok {
			return genErrorf(n.Line, ErrAddressing, "%s needs a device name", name)
		}
		pin, err := cg.pinOf(dev.Name, n.Line)
		if err != nil {
			return err
		}
		cg.emit(strings.ToLower(name), dst, pin)
		return nil
	}

	args := make([]ic10.Operand, len(n.Args))
	for i, a := range n.Args {
		op, err := cg.eval(a)
		if err != nil {
			return err
		}
		args[i] = op
	}
	defer func() {
		for _, a := range args {
			cg.release(a)
		}
	}()

	if b.op != "" {
		cg.emit(b.op, append([]ic10.Operand{dst}, args...)...)
		return nil
	}
	switch name {
	case "SGN":
		cg.emit("sltz", scratchReg, args[0])
		cg.emit("sgtz", dst, args[0])
		cg.emit("sub", dst, dst, scratchReg)
	case "LERP":
		cg.emit("sub", scratchReg, args[1], args[0])
		cg.emit("mul", scratchReg, scratchReg, args[2])
		cg.emit("add", dst, args[0], scratchReg)
	case "CLAMP":
		cg.emit("max", scratchReg, args[0], args[1])
		cg.emit("min", dst, scratchReg, args[2])
	case "INRANGE":
		cg.emit("sge", scratchReg, args[0], args[1])
		cg.emit("sle", dst, args[0], args[2])
		cg.emit("and", dst, dst, scratchReg)
	default:
		return genErrorf(n.Line, ErrInvalid, "%s cannot be used here", name)
	}
	return nil
}
