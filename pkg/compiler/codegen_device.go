package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"basic10/pkg/ic10"
)

// addressing is how an instruction reaches a device.
type addressing int

const (
	byPin  addressing = iota // l/s on d0..d5, db
	byType                   // lb/sb over every device of a prefab
	byName                   // lbn/sbn over devices of a prefab with a given name
	byID                     // ld/sd on one device reference id
)

// deviceSpec is a resolved ALIAS or DEVICE declaration.
type deviceSpec struct {
	mode    addressing
	pin     string
	hash    int32
	name    int32
	id      float64
	channel int // -1 when unset
}

func (d *deviceSpec) String() string {
	var s string
	switch d.mode {
	case byPin:
		s = d.pin
	case byType:
		s = fmt.Sprintf("type %d", d.hash)
	case byName:
		s = fmt.Sprintf("type %d name %d", d.hash, d.name)
	case byID:
		s = "id " + formatValue(d.id)
	}
	if d.channel >= 0 {
		s += fmt.Sprintf(" channel %d", d.channel)
	}
	return s
}

func (d *deviceSpec) hashOp() ic10.Operand { return ic10.Immediate(d.hash) }
func (d *deviceSpec) nameOp() ic10.Operand { return ic10.Immediate(d.name) }
func (d *deviceSpec) idOp() ic10.Operand   { return ic10.Immediate(d.id) }

// property maps a property name to a logic type, resolving Channel on
// channel-bound aliases.
func (d *deviceSpec) property(prop string) ic10.Operand {
	if d.channel >= 0 && strings.EqualFold(prop, "Channel") {
		return ic10.Symbol("Channel" + strconv.Itoa(d.channel))
	}
	return ic10.Symbol(prop)
}

func (cg *CodeGen) constHash(e Expr, what string) (int32, error) {
	v, ok, err := cg.fold(e)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, genErrorf(cg.line, ErrConstantFold, "%s %s must be a string or a constant hash", what, e)
	}
	return int32(v), nil
}

// resolveRef turns the right-hand side of an ALIAS into a deviceSpec.
func (cg *CodeGen) resolveRef(ref DeviceRef) (*deviceSpec, error) {
	switch r := ref.(type) {
	case *PinRef:
		return &deviceSpec{mode: byPin, pin: r.Pin, channel: r.Channel}, nil
	case *TypeRef:
		h, err := cg.constHash(r.Prefab, "device type")
		if err != nil {
			return nil, err
		}
		return &deviceSpec{mode: byType, hash: h, channel: r.Channel}, nil
	case *NamedRef:
		h, err := cg.constHash(r.Prefab, "device type")
		if err != nil {
			return nil, err
		}
		n, err := cg.constHash(r.Name, "device name")
		if err != nil {
			return nil, err
		}
		return &deviceSpec{mode: byName, hash: h, name: n, channel: -1}, nil
	case *IDRef:
		v, ok, err := cg.fold(r.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, genErrorf(cg.line, ErrConstantFold, "device id %s must be a constant", r.ID)
		}
		return &deviceSpec{mode: byID, id: v, channel: -1}, nil
	}
	return nil, genErrorf(cg.line, ErrAddressing, "unsupported device reference %s", ref)
}

// resolveDevice finds the device behind a name used in a device access.
// Bare pin names work without an ALIAS.
func (cg *CodeGen) resolveDevice(name string, line int) (*deviceSpec, error) {
	if spec := cg.aliases[name]; spec != nil {
		return spec, nil
	}
	if isPinName(name) {
		return &deviceSpec{mode: byPin, pin: strings.ToLower(name), channel: -1}, nil
	}
	if cg.isVariable(name) || cg.isArray(name) {
		return nil, genErrorf(line, ErrAddressing, "%s is a variable, not a device", name)
	}
	if hint := suggest(name, cg.syms.names(SymbolAlias)); hint != "" {
		return nil, genErrorf(line, ErrUndeclared, "undeclared device %s (did you mean %s?)", name, hint)
	}
	return nil, genErrorf(line, ErrUndeclared, "undeclared device %s", name)
}

func (cg *CodeGen) pinOf(device string, line int) (ic10.Operand, error) {
	spec, err := cg.resolveDevice(device, line)
	if err != nil {
		return nil, err
	}
	if spec.mode != byPin {
		return nil, genErrorf(line, ErrAddressing, "%s is not on a pin; only d0-d5 and db can be tested for a connected device", device)
	}
	return ic10.Symbol(spec.pin), nil
}

func batchModeOp(m BatchMode) ic10.Operand {
	if m == BatchUnset {
		m = BatchAverage
	}
	return ic10.Symbol(m.String())
}

func (cg *CodeGen) noBatchMode(m BatchMode, device string, line int) error {
	if m != BatchUnset {
		return genErrorf(line, ErrAddressing, "batch mode %s needs a device addressed by type, %s is not", m, device)
	}
	return nil
}

func (cg *CodeGen) genDeviceRead(dst ic10.Register, n *DeviceRead) error {
	spec, err := cg.resolveDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	prop := spec.property(n.Property)

	if n.Mode == BatchCount {
		// No count reduction exists; sum the prefab hash and divide it out.
		switch spec.mode {
		case byType:
			cg.emit("lb", dst, spec.hashOp(), ic10.Symbol("PrefabHash"), ic10.Symbol("Sum"))
		case byName:
			cg.emit("lbn", dst, spec.hashOp(), spec.nameOp(), ic10.Symbol("PrefabHash"), ic10.Symbol("Sum"))
		default:
			return genErrorf(n.Line, ErrAddressing, "%s.Count needs a device addressed by type", n.Device)
		}
		cg.emit("div", dst, dst, spec.hashOp())
		return nil
	}

	switch spec.mode {
	case byPin:
		if err := cg.noBatchMode(n.Mode, n.Device, n.Line); err != nil {
			return err
		}
		if strings.EqualFold(n.Property, "Set") {
			cg.emit("sdse", dst, ic10.Symbol(spec.pin))
			return nil
		}
		cg.emit("l", dst, ic10.Symbol(spec.pin), prop)
	case byType:
		cg.emit("lb", dst, spec.hashOp(), prop, batchModeOp(n.Mode))
	case byName:
		cg.emit("lbn", dst, spec.hashOp(), spec.nameOp(), prop, batchModeOp(n.Mode))
	case byID:
		if err := cg.noBatchMode(n.Mode, n.Device, n.Line); err != nil {
			return err
		}
		cg.emit("ld", dst, spec.idOp(), prop)
	}
	return nil
}

func (cg *CodeGen) genDeviceWrite(n *DeviceWriteStmt) error {
	spec, err := cg.resolveDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	v, err := cg.eval(n.Value)
	if err != nil {
		return err
	}
	prop := spec.property(n.Property)
	switch spec.mode {
	case byPin:
		cg.emit("s", ic10.Symbol(spec.pin), prop, v)
	case byType:
		cg.emit("sb", spec.hashOp(), prop, v)
	case byName:
		cg.emit("sbn", spec.hashOp(), spec.nameOp(), prop, v)
	case byID:
		cg.emit("sd", spec.idOp(), prop, v)
	}
	cg.release(v)
	return nil
}

func (cg *CodeGen) genSlotRead(dst ic10.Register, n *SlotRead) error {
	spec, err := cg.resolveDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	if spec.mode == byID {
		return genErrorf(n.Line, ErrAddressing, "slot reads are not supported on reference id device %s", n.Device)
	}
	slot, err := cg.eval(n.Slot)
	if err != nil {
		return err
	}
	prop := ic10.Symbol(n.Property)
	switch spec.mode {
	case byPin:
		if err := cg.noBatchMode(n.Mode, n.Device, n.Line); err != nil {
			return err
		}
		cg.emit("ls", dst, ic10.Symbol(spec.pin), slot, prop)
	case byType:
		cg.emit("lbs", dst, spec.hashOp(), slot, prop, batchModeOp(n.Mode))
	case byName:
		cg.emit("lbns", dst, spec.hashOp(), spec.nameOp(), slot, prop, batchModeOp(n.Mode))
	}
	cg.release(slot)
	return nil
}

func (cg *CodeGen) genSlotWrite(n *SlotWriteStmt) error {
	spec, err := cg.resolveDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	if spec.mode == byName || spec.mode == byID {
		return genErrorf(n.Line, ErrAddressing, "slot writes need a pin or type device, %s is not", n.Device)
	}
	slot, err := cg.eval(n.Slot)
	if err != nil {
		return err
	}
	v, err := cg.eval(n.Value)
	if err != nil {
		return err
	}
	prop := ic10.Symbol(n.Property)
	if spec.mode == byPin {
		cg.emit("ss", ic10.Symbol(spec.pin), slot, prop, v)
	} else {
		cg.emit("sbs", spec.hashOp(), slot, prop, v)
	}
	cg.release(slot)
	cg.release(v)
	return nil
}

// memoryDevice checks that a device can be reached by get/put or
// getd/putd.
func (cg *CodeGen) memoryDevice(device string, line int) (*deviceSpec, error) {
	spec, err := cg.resolveDevice(device, line)
	if err != nil {
		return nil, err
	}
	switch spec.mode {
	case byName:
		return nil, genErrorf(line, ErrMemoryTarget,
			"%s is addressed by name; stack memory can only be reached through a pin or a reference id (IC.ID[...])", device)
	case byType:
		return nil, genErrorf(line, ErrMemoryTarget,
			"%s is addressed by type; stack memory can only be reached through a pin or a reference id (IC.ID[...])", device)
	}
	return spec, nil
}

func (cg *CodeGen) genMemoryRead(dst ic10.Register, n *MemoryRead) error {
	spec, err := cg.memoryDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	addr, err := cg.eval(n.Address)
	if err != nil {
		return err
	}
	if spec.mode == byPin {
		cg.emit("get", dst, ic10.Symbol(spec.pin), addr)
	} else {
		cg.emit("getd", dst, spec.idOp(), addr)
	}
	cg.release(addr)
	return nil
}

func (cg *CodeGen) genMemoryWrite(n *MemoryWriteStmt) error {
	spec, err := cg.memoryDevice(n.Device, n.Line)
	if err != nil {
		return err
	}
	addr, err := cg.eval(n.Address)
	if err != nil {
		return err
	}
	v, err := cg.eval(n.Value)
	if err != nil {
		return err
	}
	if spec.mode == byPin {
		cg.emit("put", ic10.Symbol(spec.pin), addr, v)
	} else {
		cg.emit("putd", spec.idOp(), addr, v)
	}
	cg.release(addr)
	cg.release(v)
	return nil
}

// batchModeOperand renders a constant mode by name and anything else as a
// runtime operand.
func (cg *CodeGen) batchModeOperand(mode Expr) (ic10.Operand, error) {
	v, ok, err := cg.fold(mode)
	if err != nil {
		return nil, err
	}
	if ok {
		if v < 0 || int(v) >= len(ic10.BatchModes) || v != float64(int(v)) {
			return nil, genErrorf(cg.line, ErrAddressing, "batch mode %s is not one of Average, Sum, Minimum or Maximum", formatValue(v))
		}
		return ic10.Symbol(ic10.BatchModes[int(v)]), nil
	}
	return cg.eval(mode)
}

func (cg *CodeGen) genBatchRead(dst ic10.Register, n *BatchRead) error {
	hash, err := cg.eval(n.Hash)
	if err != nil {
		return err
	}
	var name ic10.Operand
	if n.Name != nil {
		if name, err = cg.eval(n.Name); err != nil {
			return err
		}
	}
	mode, err := cg.batchModeOperand(n.Mode)
	if err != nil {
		return err
	}
	prop := ic10.Symbol(n.Property)
	if name != nil {
		cg.emit("lbn", dst, hash, name, prop, mode)
		cg.release(name)
	} else {
		cg.emit("lb", dst, hash, prop, mode)
	}
	cg.release(hash)
	cg.release(mode)
	return nil
}

func (cg *CodeGen) genBatchWrite(n *BatchWriteStmt) error {
	hash, err := cg.eval(n.Hash)
	if err != nil {
		return err
	}
	var name ic10.Operand
	if n.Name != nil {
		if name, err = cg.eval(n.Name); err != nil {
			return err
		}
	}
	v, err := cg.eval(n.Value)
	if err != nil {
		return err
	}
	prop := ic10.Symbol(n.Property)
	if name != nil {
		cg.emit("sbn", hash, name, prop, v)
		cg.release(name)
	} else {
		cg.emit("sb", hash, prop, v)
	}
	cg.release(hash)
	cg.release(v)
	return nil
}
