package compiler

import (
	"errors"
	"fmt"
	"math"

	"basic10/pkg/ic10"
)

// CodeGen walks the AST and emits IC10 lines with symbolic labels.
type CodeGen struct {
	opts   Options
	prog   ic10.Program
	syms   *SymbolTable
	hashes *ic10.HashRegistry
	regs   registerPool
	line   int // BASIC line of the statement being generated

	vars         map[string]bool
	consts       map[string]constEntry
	aliases      map[string]*deviceSpec
	arrays       map[string]*arrayInfo
	routines     map[string]*routine
	routineOrder []*routine
	userLabels   map[string]*ic10.Label
	lineLabels   map[int]*ic10.Label

	data     []float64
	dataBase int
	readUsed bool
	memTop   int

	nextLabel int
	loopStack []loopLabels
	current   *routine
	endLabel  *ic10.Label
	endUsed   bool
	warnings  []string
}

// loopLabels are the targets of CONTINUE and BREAK. SELECT pushes a frame
// with a nil cont so CONTINUE passes through it.
type loopLabels struct {
	cont *ic10.Label
	brk  *ic10.Label
}

type arrayInfo struct {
	base int
	size int
}

// routine is a SUB or FUNCTION. Parameters are ordinary variables.
type routine struct {
	name     string
	params   []string
	function bool
	body     []Stmt
	line     int
	entry    *ic10.Label
	exit     *ic10.Label
	used     bool
}

// dataPointer is the hidden variable READ advances. The '$' keeps it out
// of the user's namespace.
const dataPointer = "$data"

func newCodeGen(syms *SymbolTable, hashes *ic10.HashRegistry, opts Options) *CodeGen {
	cg := &CodeGen{
		opts:       opts,
		syms:       syms,
		hashes:     hashes,
		regs:       newRegisterPool(nil),
		vars:       make(map[string]bool),
		consts:     make(map[string]constEntry),
		aliases:    make(map[string]*deviceSpec),
		arrays:     make(map[string]*arrayInfo),
		routines:   make(map[string]*routine),
		userLabels: make(map[string]*ic10.Label),
		lineLabels: make(map[int]*ic10.Label),
		memTop:     ic10.StackSize,
	}
	cg.endLabel = cg.newLabel()
	return cg
}

func (cg *CodeGen) newLabel() *ic10.Label {
	l := &ic10.Label{Name: fmt.Sprintf("__L%d", cg.nextLabel), Kind: ic10.LabelInternal}
	cg.nextLabel++
	return l
}

func (cg *CodeGen) emit(op string, args ...ic10.Operand) {
	cg.prog.Emit(cg.line, op, args...)
}

// mark places l. Control can arrive from elsewhere, so registers loaded
// for homed variables are no longer trusted.
func (cg *CodeGen) mark(l *ic10.Label) {
	cg.prog.Mark(cg.line, l)
	cg.regs.dropTransients()
}

func (cg *CodeGen) jump(l *ic10.Label) {
	cg.emit("j", ref(l))
}

func ref(l *ic10.Label) ic10.Operand { return ic10.LabelRef{Label: l} }

func (cg *CodeGen) warnf(format string, args ...any) {
	cg.warnings = append(cg.warnings, fmt.Sprintf(format, args...))
}

func (cg *CodeGen) isVariable(name string) bool { return cg.vars[name] }

func (cg *CodeGen) isArray(name string) bool { return cg.arrays[name] != nil }

// endsInJump reports whether control cannot fall past the last emitted
// instruction.
func (cg *CodeGen) endsInJump() bool {
	last := cg.prog.Last()
	return last != nil && last.Op == "j"
}

// undeclared builds the error for a name that resolves to nothing, with a
// spelling suggestion when one is close.
func (cg *CodeGen) undeclared(name string, line int) error {
	candidates := cg.syms.names(SymbolVariable, SymbolConstant, SymbolDefine, SymbolAlias)
	if hint := suggest(name, candidates); hint != "" {
		return genErrorf(line, ErrUndeclared, "undeclared variable %s (did you mean %s?)", name, hint)
	}
	return genErrorf(line, ErrUndeclared, "undeclared variable %s", name)
}

//  Pass 1: declarations

func (cg *CodeGen) declareVar(name string, line int) {
	if cg.vars[name] {
		return
	}
	if _, ok := cg.consts[name]; ok || cg.aliases[name] != nil || cg.arrays[name] != nil {
		return
	}
	cg.vars[name] = true
	cg.syms.Define(name, line, SymbolVariable)
}

// redeclared reports an error if name is already a constant, alias, array
// or variable.
func (cg *CodeGen) redeclared(name string, line int) error {
	if sym, ok := cg.syms.Lookup(name); ok && sym.Kind != SymbolLabel && sym.Kind != SymbolSubroutine && sym.Kind != SymbolFunction {
		return genErrorf(line, ErrInvalid, "%s is already declared as a %s on line %d",
			name, lowerKind(sym.Kind), sym.Line)
	}
	return nil
}

func lowerKind(k SymbolKind) string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolAlias:
		return "device alias"
	case SymbolDefine, SymbolConstant:
		return "constant"
	}
	return "name"
}

// collect records every declaration so pass 2 can resolve names used
// before the line that declares them.
func (cg *CodeGen) collect(stmts []Stmt) error {
	for _, s := range stmts {
		cg.line = s.SourceLine()
		switch n := s.(type) {
		case *LetStmt:
			if len(n.Indices) == 0 {
				cg.declareVar(n.Name, n.Line)
			}
		case *ForStmt:
			cg.declareVar(n.Var, n.Line)
			if err := cg.collect(n.Body); err != nil {
				return err
			}
		case *InputStmt:
			cg.declareVar(n.Name, n.Line)
		case *PopStmt:
			cg.declareVar(n.Name, n.Line)
		case *ReadStmt:
			cg.readUsed = true
			for _, name := range n.Names {
				cg.declareVar(name, n.Line)
			}

		case *DimStmt:
			if err := cg.redeclared(n.Name, n.Line); err != nil {
				return err
			}
			size, ok, err := cg.fold(n.Size)
			if err != nil {
				return err
			}
			if !ok || size < 1 || size != math.Trunc(size) {
				return genErrorf(n.Line, ErrConstantFold, "size of array %s must be a positive whole constant", n.Name)
			}
			base, err := cg.allocMemory(int(size))
			if err != nil {
				return err
			}
			cg.arrays[n.Name] = &arrayInfo{base: base, size: int(size)}
			cg.syms.Define(n.Name, n.Line, SymbolVariable)

		case *ConstStmt:
			if err := cg.redeclared(n.Name, n.Line); err != nil {
				return err
			}
			v, ok, _ := cg.fold(n.Value)
			cg.consts[n.Name] = constEntry{value: v, ok: ok, line: n.Line, define: n.Define}
			kind := SymbolConstant
			if n.Define {
				kind = SymbolDefine
			}
			cg.syms.Define(n.Name, n.Line, kind)

		case *AliasStmt:
			if err := cg.redeclared(n.Name, n.Line); err != nil {
				return err
			}
			spec, err := cg.resolveRef(n.Device)
			if err != nil {
				return err
			}
			cg.aliases[n.Name] = spec
			cg.syms.Define(n.Name, n.Line, SymbolAlias)
			cg.syms.Devices[n.Name] = spec.String()

		case *LabelStmt:
			if n.Name == "" {
				cg.lineLabels[n.Number] = cg.newLabel()
				continue
			}
			if _, dup := cg.userLabels[n.Name]; dup {
				sym, _ := cg.syms.Lookup(n.Name)
				return genErrorf(n.Line, ErrInvalid, "duplicate label %s (first defined on line %d)", n.Name, sym.Line)
			}
			cg.userLabels[n.Name] = &ic10.Label{Name: n.Name, Kind: ic10.LabelUser}
			cg.syms.Define(n.Name, n.Line, SymbolLabel)

		case *SubStmt:
			if _, dup := cg.routines[n.Name]; dup {
				return genErrorf(n.Line, ErrInvalid, "%s is defined twice", n.Name)
			}
			r := &routine{
				name:     n.Name,
				params:   n.Params,
				function: n.Function,
				body:     n.Body,
				line:     n.Line,
				entry:    cg.newLabel(),
				exit:     cg.newLabel(),
			}
			cg.routines[n.Name] = r
			cg.routineOrder = append(cg.routineOrder, r)
			kind := SymbolSubroutine
			if n.Function {
				kind = SymbolFunction
			}
			cg.syms.Define(n.Name, n.Line, kind)
			for _, p := range n.Params {
				cg.declareVar(p, n.Line)
			}
			if err := cg.collect(n.Body); err != nil {
				return err
			}

		case *IfStmt:
			if err := cg.collect(n.Then); err != nil {
				return err
			}
			if err := cg.collect(n.Else); err != nil {
				return err
			}
		case *WhileStmt:
			if err := cg.collect(n.Body); err != nil {
				return err
			}
		case *DoLoopStmt:
			if err := cg.collect(n.Body); err != nil {
				return err
			}
		case *SelectStmt:
			for _, c := range n.Cases {
				if err := cg.collect(c.Body); err != nil {
					return err
				}
			}
			if err := cg.collect(n.Default); err != nil {
				return err
			}

		case *DataStmt:
			for _, e := range n.Values {
				v, ok, err := cg.fold(e)
				if err != nil {
					return err
				}
				if !ok {
					return genErrorf(n.Line, ErrConstantFold, "DATA value %s is not a constant", e)
				}
				cg.data = append(cg.data, v)
			}
		}
	}
	return nil
}

//  Pass 2: emission

// Generate lowers a parsed program to IC10 lines. Labels are still symbolic;
// pkg/asm resolves them.
func Generate(prog *Program, syms *SymbolTable, hashes *ic10.HashRegistry, opts Options) (*ic10.Program, []string, error) {
	cg := newCodeGen(syms, hashes, opts)
	if err := cg.collect(prog.Statements); err != nil {
		return nil, nil, err
	}
	if len(cg.data) > 0 {
		base, err := cg.allocMemory(len(cg.data))
		if err != nil {
			return nil, nil, err
		}
		cg.dataBase = base
	}

	reachable := reachableRoutines(prog.Statements, cg.routines)
	for _, r := range cg.routineOrder {
		if reachable[r.name] {
			r.used = true
			continue
		}
		kind := "SUB"
		if r.function {
			kind = "FUNCTION"
		}
		cg.warnf("line %d: %s %s is never called and was left out", r.line, kind, r.name)
	}

	homed := make(map[string]bool)
	base := cg.memTop
	warned := len(cg.warnings)
	for {
		err := cg.emitProgram(prog.Statements)
		var rehome *rehomeError
		if !errors.As(err, &rehome) {
			if err != nil {
				return nil, nil, err
			}
			break
		}
		homed[rehome.name] = true
		cg.prog = ic10.Program{}
		cg.regs = newRegisterPool(homed)
		cg.memTop = base
		cg.warnings = cg.warnings[:warned]
		clear(cg.syms.Registers)
		cg.loopStack = nil
		cg.current = nil
		cg.endUsed = false
	}

	removeRedundantJumps(&cg.prog)
	return &cg.prog, cg.warnings, nil
}

// emitProgram runs pass 2 once: the main program, then every routine that
// is called.
func (cg *CodeGen) emitProgram(stmts []Stmt) error {
	if err := cg.genPrologue(stmts); err != nil {
		return err
	}
	if err := cg.genBlock(stmts); err != nil {
		return err
	}

	first := true
	for _, r := range cg.routineOrder {
		if !r.used {
			continue
		}
		if first {
			cg.line = 0
			if !cg.endsInJump() {
				cg.jump(cg.endLabel)
				cg.endUsed = true
			}
			first = false
		}
		if err := cg.genRoutine(r); err != nil {
			return err
		}
	}
	if cg.endUsed {
		cg.line = 0
		cg.mark(cg.endLabel)
	}
	return nil
}

// genPrologue lays DATA values into stack memory before the first
// statement runs.
func (cg *CodeGen) genPrologue(stmts []Stmt) error {
	if len(cg.data) == 0 || !cg.readUsed {
		return nil
	}
	cg.line = firstDataLine(stmts)
	for i, v := range cg.data {
		cg.emit("put", ic10.Symbol("db"), ic10.Immediate(cg.dataBase+i), ic10.Immediate(v))
	}
	ptr, err := cg.varReg(dataPointer)
	if err != nil {
		return err
	}
	cg.emit("move", ptr, ic10.Immediate(cg.dataBase))
	cg.store(dataPointer)
	return nil
}

func firstDataLine(stmts []Stmt) int {
	line := 0
	walkStmts(stmts, func(s Stmt) {
		if d, ok := s.(*DataStmt); ok && line == 0 {
			line = d.Line
		}
	})
	return line
}

func (cg *CodeGen) genBlock(stmts []Stmt) error {
	for _, s := range stmts {
		if _, ok := s.(*SubStmt); ok {
			continue
		}
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genRoutine emits a SUB or FUNCTION body after the main program. Bodies
// that call other routines save ra on the stack.
func (cg *CodeGen) genRoutine(r *routine) error {
	cg.line = r.line
	cg.mark(r.entry)
	saveRA := callsAnything(r.body, cg.routines)
	if saveRA {
		cg.emit("push", ic10.RA)
	}
	cg.current = r
	if err := cg.genBlock(r.body); err != nil {
		return err
	}
	cg.current = nil
	cg.line = r.line
	cg.mark(r.exit)
	if saveRA {
		cg.emit("pop", ic10.RA)
	}
	cg.emit("j", ic10.RA)
	return nil
}
