package compiler

import (
	"fmt"

	"basic10/pkg/ic10"
)

const (
	// Registers r0..r13 hold variables and expression temporaries.
	allocatable = 14
	// scratchReg is consumed by the instruction right after it is written.
	scratchReg = ic10.Register(14)
	// resultReg carries FUNCTION results back to the caller.
	resultReg = ic10.Register(15)
)

// registerPool binds variables to registers for the rest of the program.
// A binding never moves, so every path through the code sees a variable in
// the same place. Variables listed in homed live in stack memory instead:
// each statement loads them into a transient register and every write is
// stored straight back.
type registerPool struct {
	owner [allocatable]string
	temp  [allocatable]bool

	bound  map[string]ic10.Register
	order  []string // variables bound for the whole program, oldest first
	homed  map[string]bool
	slots  map[string]int
	stale  map[string]bool // transient bound for a write, not loaded yet
	pinned map[string]bool
}

func newRegisterPool(homed map[string]bool) registerPool {
	return registerPool{
		bound:  make(map[string]ic10.Register),
		homed:  homed,
		slots:  make(map[string]int),
		stale:  make(map[string]bool),
		pinned: make(map[string]bool),
	}
}

// beginStatement forgets the pins, temporaries and transients of the
// previous statement.
func (p *registerPool) beginStatement() {
	clear(p.pinned)
	for i := range p.temp {
		p.temp[i] = false
	}
	p.dropTransients()
}

// dropTransients forgets the registers loaded for homed variables. Their
// stack slots stay authoritative.
func (p *registerPool) dropTransients() {
	for name := range p.bound {
		if p.homed[name] {
			p.unbind(name)
		}
	}
}

func (p *registerPool) free() (ic10.Register, bool) {
	for i := 0; i < allocatable; i++ {
		if p.owner[i] == "" && !p.temp[i] {
			return ic10.Register(i), true
		}
	}
	return 0, false
}

func (p *registerPool) unbind(name string) {
	r := p.bound[name]
	p.owner[r] = ""
	delete(p.bound, name)
	delete(p.stale, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// rehomeError reports that the registers ran out. Generate starts over
// with name kept in stack memory.
type rehomeError struct {
	name string
}

func (e *rehomeError) Error() string {
	return fmt.Sprintf("out of registers, %s must move to stack memory", e.name)
}

// varReg returns the register holding name, binding one on first use. A
// homed variable is loaded from its stack slot.
func (cg *CodeGen) varReg(name string) (ic10.Register, error) {
	return cg.bindVar(name, true)
}

// writeReg returns the register an assignment to name writes. A homed
// variable is not loaded unless the statement reads it first; cg.store
// puts the new value back.
func (cg *CodeGen) writeReg(name string) (ic10.Register, error) {
	return cg.bindVar(name, false)
}

func (cg *CodeGen) bindVar(name string, load bool) (ic10.Register, error) {
	p := &cg.regs
	p.pinned[name] = true
	if r, ok := p.bound[name]; ok {
		if load && p.stale[name] {
			cg.emit("get", r, db, ic10.Immediate(p.slots[name]))
			delete(p.stale, name)
		}
		return r, nil
	}
	r, err := cg.claimRegister()
	if err != nil {
		return 0, err
	}
	p.owner[r] = name
	p.bound[name] = r
	if !p.homed[name] {
		p.order = append(p.order, name)
		if _, ok := cg.syms.Registers[name]; !ok && name != dataPointer {
			cg.syms.Registers[name] = r.String()
		}
		return r, nil
	}
	slot, err := cg.homeSlot(name)
	if err != nil {
		return 0, err
	}
	if load {
		cg.emit("get", r, db, ic10.Immediate(slot))
	} else {
		p.stale[name] = true
	}
	return r, nil
}

// homeSlot returns the stack address of a homed variable, reserving it on
// first use.
func (cg *CodeGen) homeSlot(name string) (int, error) {
	p := &cg.regs
	if slot, ok := p.slots[name]; ok {
		return slot, nil
	}
	slot, err := cg.allocMemory(1)
	if err != nil {
		return 0, err
	}
	p.slots[name] = slot
	cg.warnf("line %d: out of registers, %s is kept in stack memory at %d", cg.line, name, slot)
	return slot, nil
}

// store writes a homed variable back to its stack slot after its register
// changed. Variables bound for the whole program need nothing.
func (cg *CodeGen) store(name string) {
	p := &cg.regs
	r, ok := p.bound[name]
	if !ok || !p.homed[name] {
		return
	}
	delete(p.stale, name)
	cg.emit("put", db, ic10.Immediate(p.slots[name]), r)
}

// allocTemp reserves a register for an intermediate value. Release it with
// cg.release once the value is consumed.
func (cg *CodeGen) allocTemp() (ic10.Register, error) {
	r, err := cg.claimRegister()
	if err != nil {
		return 0, err
	}
	cg.regs.temp[r] = true
	return r, nil
}

// release frees op if it is a temporary.
func (cg *CodeGen) release(op ic10.Operand) {
	if r, ok := op.(ic10.Register); ok && int(r) < allocatable {
		cg.regs.temp[r] = false
	}
}

func (cg *CodeGen) isTemp(op ic10.Operand) bool {
	r, ok := op.(ic10.Register)
	return ok && int(r) < allocatable && cg.regs.temp[r]
}

// isTransient reports whether op is a register loaded for a homed
// variable in this statement.
func (cg *CodeGen) isTransient(op ic10.Operand) bool {
	r, ok := op.(ic10.Register)
	if !ok || int(r) >= allocatable {
		return false
	}
	name := cg.regs.owner[r]
	return name != "" && cg.regs.homed[name]
}

// claimRegister hands out a free register. When none is left the oldest
// binding the statement does not use is chosen to live in stack memory and
// generation restarts.
func (cg *CodeGen) claimRegister() (ic10.Register, error) {
	p := &cg.regs
	if r, ok := p.free(); ok {
		return r, nil
	}
	for _, name := range p.order {
		if !p.pinned[name] {
			return 0, &rehomeError{name: name}
		}
	}
	return 0, genErrorf(cg.line, ErrInvalid, "statement needs more than %d registers", allocatable)
}

// allocMemory reserves n consecutive stack addresses below everything
// handed out so far and returns the lowest.
func (cg *CodeGen) allocMemory(n int) (int, error) {
	if cg.memTop-n < 0 {
		return 0, genErrorf(cg.line, ErrInvalid, "out of stack memory: %d more values do not fit in %d", n, ic10.StackSize)
	}
	cg.memTop -= n
	return cg.memTop, nil
}
