package compiler

import (
	"slices"

	"basic10/pkg/ic10"
)

var db = ic10.Symbol("db")

func (cg *CodeGen) genStmt(s Stmt) error {
	cg.line = s.SourceLine()
	cg.regs.beginStatement()

	switch n := s.(type) {
	case *DimStmt, *ConstStmt, *AliasStmt, *DataStmt:
		return nil

	case *LetStmt:
		return cg.genLet(n)

	case *IncDecStmt:
		op := PLUS_ASSIGN
		if n.Op == MINUS_MINUS {
			op = MINUS_ASSIGN
		}
		return cg.genLet(&LetStmt{stmtBase: n.stmtBase, Name: n.Target.Name, Indices: n.Target.Indices, Op: op, Value: &NumberLit{Value: 1}})

	case *IfStmt:
		return cg.genIf(n)
	case *ForStmt:
		return cg.genFor(n)
	case *WhileStmt:
		return cg.genWhile(n)
	case *DoLoopStmt:
		return cg.genDoLoop(n)
	case *SelectStmt:
		return cg.genSelect(n)

	case *BreakStmt:
		l, err := cg.breakTarget(n.Line)
		if err != nil {
			return err
		}
		cg.jump(l)
		return nil

	case *ContinueStmt:
		l, err := cg.continueTarget(n.Line)
		if err != nil {
			return err
		}
		cg.jump(l)
		return nil

	case *GotoStmt:
		l, err := cg.target(n.Target, n.Line)
		if err != nil {
			return err
		}
		cg.jump(l)
		return nil

	case *GosubStmt:
		l, err := cg.target(n.Target, n.Line)
		if err != nil {
			return err
		}
		cg.emit("jal", ref(l))
		return nil

	case *OnGotoStmt:
		return cg.genOnGoto(n)

	case *ReturnStmt:
		return cg.genReturn(n)

	case *LabelStmt:
		if n.Name != "" {
			cg.mark(cg.userLabels[n.Name])
		} else {
			cg.mark(cg.lineLabels[n.Number])
		}
		return nil

	case *SubStmt:
		return genErrorf(n.Line, ErrInvalid, "%s cannot be defined inside another block", n.Name)

	case *CallStmt:
		r, ok := cg.routines[n.Name]
		if !ok {
			return cg.unknownFunction(n.Name, n.Line)
		}
		return cg.genCall(r, n.Args, n.Line, nil)

	case *EndStmt:
		cg.jump(cg.endLabel)
		cg.endUsed = true
		return nil

	case *PrintStmt:
		for _, v := range n.Values {
			op, err := cg.eval(v)
			if err != nil {
				return err
			}
			cg.emit("s", db, ic10.Symbol("Setting"), op)
			cg.release(op)
		}
		return nil

	case *InputStmt:
		r, err := cg.assignTarget(n.Name, n.Line)
		if err != nil {
			return err
		}
		cg.emit("l", r, db, ic10.Symbol("Setting"))
		cg.store(n.Name)
		return nil

	case *SleepStmt:
		op, err := cg.eval(n.Duration)
		if err != nil {
			return err
		}
		cg.emit("sleep", op)
		cg.release(op)
		return nil

	case *YieldStmt:
		cg.emit("yield")
		return nil

	case *PushStmt:
		op, err := cg.eval(n.Value)
		if err != nil {
			return err
		}
		cg.emit("push", op)
		cg.release(op)
		return nil

	case *PopStmt:
		r, err := cg.assignTarget(n.Name, n.Line)
		if err != nil {
			return err
		}
		if n.Peek {
			cg.emit("peek", r)
		} else {
			cg.emit("pop", r)
		}
		cg.store(n.Name)
		return nil

	case *DeviceWriteStmt:
		return cg.genDeviceWrite(n)
	case *SlotWriteStmt:
		return cg.genSlotWrite(n)
	case *MemoryWriteStmt:
		return cg.genMemoryWrite(n)
	case *BatchWriteStmt:
		return cg.genBatchWrite(n)

	case *CommentStmt:
		if n.Meta {
			cg.prog.Comment(cg.line, "#"+n.Text, true)
		} else if cg.opts.PreserveComments {
			cg.prog.Comment(cg.line, n.Text, false)
		}
		return nil

	case *ReadStmt:
		if len(cg.data) == 0 {
			return genErrorf(n.Line, ErrInvalid, "READ without any DATA")
		}
		for _, name := range n.Names {
			r, err := cg.assignTarget(name, n.Line)
			if err != nil {
				return err
			}
			ptr, err := cg.varReg(dataPointer)
			if err != nil {
				return err
			}
			cg.emit("get", r, db, ptr)
			cg.store(name)
			cg.emit("add", ptr, ptr, ic10.Immediate(1))
			cg.store(dataPointer)
		}
		return nil

	case *RestoreStmt:
		if len(cg.data) == 0 || !cg.readUsed {
			return nil
		}
		ptr, err := cg.varReg(dataPointer)
		if err != nil {
			return err
		}
		cg.emit("move", ptr, ic10.Immediate(cg.dataBase))
		cg.store(dataPointer)
		return nil
	}
	return genErrorf(s.SourceLine(), ErrInvalid, "unsupported statement %s", s)
}

// assignTarget checks that name can be written and returns the register
// the new value goes to. Follow the write with cg.store.
func (cg *CodeGen) assignTarget(name string, line int) (ic10.Register, error) {
	if c, ok := cg.consts[name]; ok {
		return 0, genErrorf(line, ErrInvalid, "cannot assign to constant %s (declared on line %d)", name, c.line)
	}
	if cg.aliases[name] != nil {
		return 0, genErrorf(line, ErrInvalid, "cannot assign to device alias %s; write one of its properties instead", name)
	}
	if cg.isArray(name) {
		return 0, genErrorf(line, ErrInvalid, "array %s needs an index", name)
	}
	if !cg.isVariable(name) {
		return 0, cg.undeclared(name, line)
	}
	return cg.writeReg(name)
}

func compoundOp(tt TokenType) TokenType {
	switch tt {
	case PLUS_ASSIGN:
		return PLUS
	case MINUS_ASSIGN:
		return MINUS
	case STAR_ASSIGN:
		return STAR
	case SLASH_ASSIGN:
		return SLASH
	}
	return tt
}

func (cg *CodeGen) genLet(n *LetStmt) error {
	value := n.Value
	if value != nil && n.Op != ASSIGN {
		value = &BinaryExpr{Op: compoundOp(n.Op), Left: &VarRef{Name: n.Name, Indices: n.Indices, Line: n.Line}, Right: n.Value}
	}
	if len(n.Indices) > 0 {
		return cg.genArrayStore(n.Name, n.Indices, value, n.Line)
	}
	dst, err := cg.assignTarget(n.Name, n.Line)
	if err != nil || value == nil {
		return err
	}
	if err := cg.evalInto(dst, value); err != nil {
		return err
	}
	cg.store(n.Name)
	return nil
}

func (cg *CodeGen) genArrayStore(name string, indices []Expr, value Expr, line int) error {
	arr, err := cg.array(name, indices, line)
	if err != nil {
		return err
	}
	v, err := cg.eval(value)
	if err != nil {
		return err
	}
	addr, err := cg.arrayAddress(name, arr, indices[0], line)
	if err != nil {
		return err
	}
	cg.emit("put", db, addr, v)
	cg.release(v)
	return nil
}

func (cg *CodeGen) array(name string, indices []Expr, line int) (*arrayInfo, error) {
	arr := cg.arrays[name]
	if arr == nil {
		if cg.isVariable(name) {
			return nil, genErrorf(line, ErrInvalid, "%s is not an array; declare it with DIM", name)
		}
		return nil, cg.undeclared(name, line)
	}
	if len(indices) != 1 {
		return nil, genErrorf(line, ErrInvalid, "array %s takes exactly one index", name)
	}
	return arr, nil
}

// arrayAddress returns the stack address of arr[index]. A runtime index is
// offset into the scratch register.
func (cg *CodeGen) arrayAddress(name string, arr *arrayInfo, index Expr, line int) (ic10.Operand, error) {
	i, ok, err := cg.fold(index)
	if err != nil {
		return nil, err
	}
	if ok {
		if i < 0 || int(i) >= arr.size || float64(int(i)) != i {
			return nil, genErrorf(line, ErrInvalid, "index %s out of range for %s(%d)", formatValue(i), name, arr.size)
		}
		return ic10.Immediate(arr.base + int(i)), nil
	}
	idx, err := cg.eval(index)
	if err != nil {
		return nil, err
	}
	cg.emit("add", scratchReg, idx, ic10.Immediate(arr.base))
	cg.release(idx)
	return scratchReg, nil
}

//  Control flow

// directJump returns the label s jumps to when s is nothing but a jump.
func (cg *CodeGen) directJump(s Stmt) (*ic10.Label, bool, error) {
	switch n := s.(type) {
	case *GotoStmt:
		l, err := cg.target(n.Target, n.Line)
		return l, err == nil, err
	case *BreakStmt:
		l, err := cg.breakTarget(n.Line)
		return l, err == nil, err
	case *ContinueStmt:
		l, err := cg.continueTarget(n.Line)
		return l, err == nil, err
	}
	return nil, false, nil
}

func (cg *CodeGen) genIf(n *IfStmt) error {
	if len(n.Then) == 1 && len(n.Else) == 0 {
		l, ok, err := cg.directJump(n.Then[0])
		if err != nil {
			return err
		}
		if ok {
			return cg.jumpIf(n.Cond, true, l)
		}
	}

	elseL := cg.newLabel()
	if err := cg.jumpIf(n.Cond, false, elseL); err != nil {
		return err
	}
	if err := cg.genBlock(n.Then); err != nil {
		return err
	}
	if len(n.Else) == 0 {
		cg.mark(elseL)
		return nil
	}
	endL := cg.newLabel()
	if !cg.endsInJump() {
		cg.jump(endL)
	}
	cg.mark(elseL)
	if err := cg.genBlock(n.Else); err != nil {
		return err
	}
	cg.mark(endL)
	return nil
}

func (cg *CodeGen) genWhile(n *WhileStmt) error {
	top, end := cg.newLabel(), cg.newLabel()
	cg.mark(top)
	if err := cg.jumpIf(n.Cond, false, end); err != nil {
		return err
	}
	if err := cg.loopBody(n.Body, top, end); err != nil {
		return err
	}
	cg.line = n.Line
	cg.jump(top)
	cg.mark(end)
	return nil
}

func (cg *CodeGen) genDoLoop(n *DoLoopStmt) error {
	top, end := cg.newLabel(), cg.newLabel()
	cg.mark(top)
	if n.TestFirst && n.Cond != nil {
		if err := cg.jumpIf(n.Cond, n.Until, end); err != nil {
			return err
		}
		if err := cg.loopBody(n.Body, top, end); err != nil {
			return err
		}
		cg.line = n.Line
		cg.jump(top)
		cg.mark(end)
		return nil
	}

	cont := cg.newLabel()
	if err := cg.loopBody(n.Body, cont, end); err != nil {
		return err
	}
	cg.line = n.Line
	cg.regs.beginStatement()
	cg.mark(cont)
	if n.Cond == nil {
		cg.jump(top)
	} else if err := cg.jumpIf(n.Cond, !n.Until, top); err != nil {
		return err
	}
	cg.mark(end)
	return nil
}

func (cg *CodeGen) genFor(n *ForStmt) error {
	i, err := cg.assignTarget(n.Var, n.Line)
	if err != nil {
		return err
	}
	if err := cg.evalInto(i, n.Start); err != nil {
		return err
	}
	cg.store(n.Var)
	var step Expr = &NumberLit{Value: 1}
	if n.Step != nil {
		step = n.Step
	}
	stepVal, stepConst, err := cg.fold(step)
	if err != nil {
		return err
	}
	if stepConst && stepVal == 0 {
		return genErrorf(n.Line, ErrInvalid, "FOR %s has STEP 0 and never ends", n.Var)
	}

	top, cont, end := cg.newLabel(), cg.newLabel(), cg.newLabel()
	cg.mark(top)
	if stepConst {
		cmp := GREATER
		if stepVal < 0 {
			cmp = LESS
		}
		test := &BinaryExpr{Op: cmp, Left: &VarRef{Name: n.Var, Line: n.Line}, Right: n.End}
		if err := cg.jumpIf(test, true, end); err != nil {
			return err
		}
	} else {
		// (i - end) * step > 0 holds past the bound for either direction.
		if i, err = cg.varReg(n.Var); err != nil {
			return err
		}
		bound, err := cg.eval(n.End)
		if err != nil {
			return err
		}
		cg.emit("sub", scratchReg, i, bound)
		cg.release(bound)
		s, err := cg.eval(step)
		if err != nil {
			return err
		}
		cg.emit("mul", scratchReg, scratchReg, s)
		cg.release(s)
		cg.emit("bgtz", scratchReg, ref(end))
	}

	if err := cg.loopBody(n.Body, cont, end); err != nil {
		return err
	}

	cg.line = n.Line
	cg.regs.beginStatement()
	cg.mark(cont)
	if i, err = cg.varReg(n.Var); err != nil {
		return err
	}
	s, err := cg.eval(step)
	if err != nil {
		return err
	}
	cg.emit("add", i, i, s)
	cg.release(s)
	cg.store(n.Var)
	cg.jump(top)
	cg.mark(end)
	return nil
}

func (cg *CodeGen) loopBody(body []Stmt, cont, brk *ic10.Label) error {
	cg.loopStack = append(cg.loopStack, loopLabels{cont: cont, brk: brk})
	err := cg.genBlock(body)
	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
	return err
}

func (cg *CodeGen) breakTarget(line int) (*ic10.Label, error) {
	if len(cg.loopStack) == 0 {
		return nil, genErrorf(line, ErrOutsideLoop, "BREAK outside of a loop or SELECT")
	}
	return cg.loopStack[len(cg.loopStack)-1].brk, nil
}

func (cg *CodeGen) continueTarget(line int) (*ic10.Label, error) {
	for i := len(cg.loopStack) - 1; i >= 0; i-- {
		if l := cg.loopStack[i].cont; l != nil {
			return l, nil
		}
	}
	return nil, genErrorf(line, ErrOutsideLoop, "CONTINUE outside of a loop")
}

func (cg *CodeGen) genSelect(n *SelectStmt) error {
	subject, err := cg.eval(n.Subject)
	if err != nil {
		return err
	}
	arms := make([]*ic10.Label, len(n.Cases))
	for i, c := range n.Cases {
		arms[i] = cg.newLabel()
		for _, v := range c.Values {
			op, err := cg.eval(v)
			if err != nil {
				return err
			}
			cg.compareBranch("beq", subject, op, arms[i])
			cg.release(op)
		}
	}
	cg.release(subject)

	end := cg.newLabel()
	fallback := end
	if len(n.Default) > 0 {
		fallback = cg.newLabel()
	}
	cg.jump(fallback)

	cg.loopStack = append(cg.loopStack, loopLabels{brk: end})
	defer func() { cg.loopStack = cg.loopStack[:len(cg.loopStack)-1] }()
	for i, c := range n.Cases {
		cg.line = c.Line
		cg.mark(arms[i])
		if err := cg.genBlock(c.Body); err != nil {
			return err
		}
		if !cg.endsInJump() {
			cg.jump(end)
		}
	}
	if len(n.Default) > 0 {
		cg.mark(fallback)
		if err := cg.genBlock(n.Default); err != nil {
			return err
		}
	}
	cg.mark(end)
	return nil
}

// target resolves a GOTO/GOSUB destination.
func (cg *CodeGen) target(t JumpTarget, line int) (*ic10.Label, error) {
	if t.Label != "" {
		if l, ok := cg.userLabels[t.Label]; ok {
			return l, nil
		}
		if hint := suggest(t.Label, cg.syms.names(SymbolLabel)); hint != "" {
			return nil, genErrorf(line, ErrUnknownLabel, "unknown label %s (did you mean %s?)", t.Label, hint)
		}
		return nil, genErrorf(line, ErrUnknownLabel, "unknown label %s", t.Label)
	}
	if l, ok := cg.lineLabels[t.Number]; ok {
		return l, nil
	}
	return nil, genErrorf(line, ErrUnknownLabel, "line number %d does not exist", t.Number)
}

func (cg *CodeGen) genOnGoto(n *OnGotoStmt) error {
	sel, err := cg.eval(n.Selector)
	if err != nil {
		return err
	}
	op := "beq"
	if n.Gosub {
		op = "beqal"
	}
	// A subroutine may reuse the selector's register before the next
	// comparison runs, so keep a copy on the stack.
	keep := n.Gosub && len(n.Targets) > 1 && (cg.isTemp(sel) || cg.isTransient(sel))
	if keep {
		cg.emit("push", sel)
	}
	for i, t := range n.Targets {
		l, err := cg.target(t, n.Line)
		if err != nil {
			return err
		}
		if keep && i > 0 {
			cg.emit("peek", sel)
		}
		cg.emit(op, sel, ic10.Immediate(i+1), ref(l))
	}
	if keep {
		cg.emit("pop", sel)
	}
	cg.release(sel)
	return nil
}

func (cg *CodeGen) genReturn(n *ReturnStmt) error {
	r := cg.current
	if r == nil {
		if n.Value != nil {
			return genErrorf(n.Line, ErrInvalid, "RETURN with a value outside of a FUNCTION")
		}
		cg.emit("j", ic10.RA)
		return nil
	}
	if n.Value != nil {
		if !r.function {
			return genErrorf(n.Line, ErrInvalid, "SUB %s cannot return a value", r.name)
		}
		if err := cg.evalInto(resultReg, n.Value); err != nil {
			return err
		}
	}
	cg.jump(r.exit)
	return nil
}

// genCall moves the arguments into the parameter variables and jumps to
// the routine, leaving the return address in ra.
//
// Temporaries and homed variables the statement still needs are pushed
// around the call, since the routine body may reuse their registers. dst,
// when set, is overwritten with the result and needs no saving.
func (cg *CodeGen) genCall(r *routine, args []Expr, line int, dst ic10.Operand) error {
	if len(args) != len(r.params) {
		return genErrorf(line, ErrInvalid, "%s takes %d arguments, got %d", r.name, len(r.params), len(args))
	}
	params := make([]ic10.Register, len(r.params))
	for i, p := range r.params {
		reg, err := cg.writeReg(p)
		if err != nil {
			return err
		}
		params[i] = reg
	}
	ops := make([]ic10.Operand, len(args))
	for i, a := range args {
		op, err := cg.eval(a)
		if err != nil {
			return err
		}
		// A parameter written by an earlier move must not be read here.
		if reg, ok := op.(ic10.Register); ok && !cg.isTemp(op) {
			for _, p := range params[:i] {
				if p == reg {
					t, err := cg.allocTemp()
					if err != nil {
						return err
					}
					cg.emit("move", t, reg)
					op = t
					break
				}
			}
		}
		ops[i] = op
	}
	for i, op := range ops {
		if op != ic10.Operand(params[i]) {
			cg.emit("move", params[i], op)
		}
		cg.release(op)
	}
	for _, p := range r.params {
		cg.store(p)
	}

	var saved []ic10.Register
	for i := 0; i < allocatable; i++ {
		reg := ic10.Register(i)
		if ic10.Operand(reg) == dst || slices.Contains(params, reg) {
			continue
		}
		if cg.isTemp(reg) || cg.isTransient(reg) {
			saved = append(saved, reg)
		}
	}
	for _, reg := range saved {
		cg.emit("push", reg)
	}
	cg.emit("jal", ref(r.entry))
	for i := len(saved) - 1; i >= 0; i-- {
		cg.emit("pop", saved[i])
	}
	for _, p := range r.params {
		if cg.regs.homed[p] {
			cg.regs.unbind(p)
		}
	}
	return nil
}

func (cg *CodeGen) unknownFunction(name string, line int) error {
	if _, ok := lookupBuiltin(name); ok {
		return genErrorf(line, ErrInvalid, "the result of %s must be used", name)
	}
	candidates := cg.syms.names(SymbolSubroutine, SymbolFunction)
	if hint := suggest(name, candidates); hint != "" {
		return genErrorf(line, ErrUnknownFunction, "unknown function %s (did you mean %s?)", name, hint)
	}
	return genErrorf(line, ErrUnknownFunction, "unknown function %s", name)
}
