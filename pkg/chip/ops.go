package chip

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"basic10/pkg/asm"
	"basic10/pkg/devices"
	"basic10/pkg/ic10"
)

func cmp(f func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 { return ic10.Bool(f(a, b)) }
}

func zero(f func(a float64) bool) func(a float64) float64 {
	return func(a float64) float64 { return ic10.Bool(f(a)) }
}

var binaryOps = map[string]func(a, b float64) float64{
	"add":   func(a, b float64) float64 { return a + b },
	"sub":   func(a, b float64) float64 { return a - b },
	"mul":   func(a, b float64) float64 { return a * b },
	"div":   func(a, b float64) float64 { return a / b },
	"mod":   ic10.Mod,
	"max":   math.Max,
	"min":   math.Min,
	"atan2": math.Atan2,
	"and":   ic10.And,
	"or":    ic10.Or,
	"xor":   ic10.Xor,
	"nor":   ic10.Nor,
	"sll":   ic10.ShiftLeft,
	"srl":   ic10.ShiftRight,
	"sra":   ic10.ShiftRightArith,
	"slt":   cmp(func(a, b float64) bool { return a < b }),
	"sgt":   cmp(func(a, b float64) bool { return a > b }),
	"sle":   cmp(func(a, b float64) bool { return a <= b }),
	"sge":   cmp(func(a, b float64) bool { return a >= b }),
	"seq":   cmp(func(a, b float64) bool { return a == b }),
	"sne":   cmp(func(a, b float64) bool { return a != b }),
}

var unaryOps = map[string]func(a float64) float64{
	"abs":   math.Abs,
	"sqrt":  math.Sqrt,
	"round": ic10.Round,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"trunc": math.Trunc,
	"exp":   math.Exp,
	"log":   math.Log,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"not":   ic10.Not,
	"seqz":  zero(func(a float64) bool { return a == 0 }),
	"snez":  zero(func(a float64) bool { return a != 0 }),
	"sltz":  zero(func(a float64) bool { return a < 0 }),
	"sgtz":  zero(func(a float64) bool { return a > 0 }),
	"slez":  zero(func(a float64) bool { return a <= 0 }),
	"sgez":  zero(func(a float64) bool { return a >= 0 }),
}

var branchOps = map[string]func(a, b float64) bool{
	"beq": func(a, b float64) bool { return a == b },
	"bne": func(a, b float64) bool { return a != b },
	"blt": func(a, b float64) bool { return a < b },
	"bgt": func(a, b float64) bool { return a > b },
	"ble": func(a, b float64) bool { return a <= b },
	"bge": func(a, b float64) bool { return a >= b },
}

var zeroBranchOps = map[string]func(a float64) bool{
	"beqz": func(a float64) bool { return a == 0 },
	"bnez": func(a float64) bool { return a != 0 },
	"bltz": func(a float64) bool { return a < 0 },
	"bgtz": func(a float64) bool { return a > 0 },
	"blez": func(a float64) bool { return a <= 0 },
	"bgez": func(a float64) bool { return a >= 0 },
}

var errHalt = errors.New("halt and catch fire")

// exec runs one instruction and returns the next program counter.
func (c *Chip) exec(in asm.Instruction) (int, error) {
	next := c.PC + 1
	a := in.Args

	if f, ok := binaryOps[in.Op]; ok {
		x, y, err := c.values2(a[1], a[2])
		if err != nil {
			return 0, err
		}
		return next, c.set(a[0], f(x, y))
	}
	if f, ok := unaryOps[in.Op]; ok {
		x, err := c.value(a[1])
		if err != nil {
			return 0, err
		}
		return next, c.set(a[0], f(x))
	}
	if f, ok := branchOps[in.Op]; ok {
		x, y, err := c.values2(a[0], a[1])
		if err != nil {
			return 0, err
		}
		if f(x, y) {
			return c.target(a[2])
		}
		return next, nil
	}
	if f, ok := zeroBranchOps[in.Op]; ok {
		x, err := c.value(a[0])
		if err != nil {
			return 0, err
		}
		if f(x) {
			return c.target(a[1])
		}
		return next, nil
	}

	switch in.Op {
	case "move":
		x, err := c.value(a[1])
		if err != nil {
			return 0, err
		}
		return next, c.set(a[0], x)
	case "alias":
		return next, c.alias(a[0], a[1])
	case "define":
		x, err := c.value(a[1])
		if err != nil {
			return 0, err
		}
		c.defines[a[0]] = x
		return next, nil
	case "select":
		cond, err := c.value(a[1])
		if err != nil {
			return 0, err
		}
		x, y, err := c.values2(a[2], a[3])
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return next, c.set(a[0], x)
		}
		return next, c.set(a[0], y)
	case "rand":
		return next, c.set(a[0], c.Rand.Float64())

	case "j":
		return c.target(a[0])
	case "jal":
		c.Regs[regRA] = float64(next)
		return c.target(a[0])
	case "jr":
		off, err := c.value(a[0])
		if err != nil {
			return 0, err
		}
		return c.PC + int(off), nil
	case "beqal":
		x, y, err := c.values2(a[0], a[1])
		if err != nil {
			return 0, err
		}
		if x == y {
			c.Regs[regRA] = float64(next)
			return c.target(a[2])
		}
		return next, nil
	case "bdse", "bdns":
		if c.connected(a[0]) == (in.Op == "bdse") {
			return c.target(a[1])
		}
		return next, nil
	case "sdse":
		return next, c.set(a[0], ic10.Bool(c.connected(a[1])))
	case "sdns":
		return next, c.set(a[0], ic10.Bool(!c.connected(a[1])))

	case "yield":
		c.yielded = true
		return next, nil
	case "sleep":
		secs, err := c.value(a[0])
		if err != nil {
			return 0, err
		}
		c.sleep = int(math.Ceil(secs / TickSeconds))
		return next, nil
	case "hcf":
		return 0, errHalt

	case "push":
		x, err := c.value(a[0])
		if err != nil {
			return 0, err
		}
		return next, c.push(x)
	case "pop", "peek":
		x, err := c.peek()
		if err != nil {
			return 0, err
		}
		if in.Op == "pop" {
			c.Regs[regSP]--
		}
		return next, c.set(a[0], x)
	case "get":
		d, err := c.device(a[1])
		if err != nil {
			return 0, err
		}
		return next, c.getMemory(d, a[0], a[2])
	case "put":
		d, err := c.device(a[0])
		if err != nil {
			return 0, err
		}
		return next, c.putMemory(d, a[1], a[2])
	case "getd":
		d, err := c.deviceByID(a[1])
		if err != nil {
			return 0, err
		}
		return next, c.getMemory(d, a[0], a[2])
	case "putd":
		d, err := c.deviceByID(a[0])
		if err != nil {
			return 0, err
		}
		return next, c.putMemory(d, a[1], a[2])
	}

	return next, c.execDevice(in)
}

// execDevice runs the logic instructions that talk to devices.
func (c *Chip) execDevice(in asm.Instruction) error {
	a := in.Args
	switch in.Op {
	case "l":
		d, err := c.device(a[1])
		if err != nil {
			return err
		}
		v, _ := d.Get(a[2])
		return c.set(a[0], v)
	case "s":
		d, err := c.device(a[0])
		if err != nil {
			return err
		}
		x, err := c.value(a[2])
		if err != nil {
			return err
		}
		return d.Set(a[1], x)
	case "ls":
		d, err := c.device(a[1])
		if err != nil {
			return err
		}
		slot, err := c.index(a[2])
		if err != nil {
			return err
		}
		v, err := d.GetSlot(slot, a[3])
		if err != nil {
			return err
		}
		return c.set(a[0], v)
	case "ss":
		d, err := c.device(a[0])
		if err != nil {
			return err
		}
		slot, err := c.index(a[1])
		if err != nil {
			return err
		}
		x, err := c.value(a[3])
		if err != nil {
			return err
		}
		return d.SetSlot(slot, a[2], x)
	case "ld":
		d, err := c.deviceByID(a[1])
		if err != nil {
			return err
		}
		v, _ := d.Get(a[2])
		return c.set(a[0], v)
	case "sd":
		d, err := c.deviceByID(a[0])
		if err != nil {
			return err
		}
		x, err := c.value(a[2])
		if err != nil {
			return err
		}
		return d.Set(a[1], x)

	case "lb", "lbn":
		hash, err := c.hash(a[1])
		if err != nil {
			return err
		}
		var name *int32
		rest := a[2:]
		if in.Op == "lbn" {
			n, err := c.hash(a[2])
			if err != nil {
				return err
			}
			name, rest = &n, a[3:]
		}
		mode, err := c.batchMode(rest[1])
		if err != nil {
			return err
		}
		v, err := c.Net.BatchRead(hash, name, rest[0], mode)
		if err != nil {
			return err
		}
		return c.set(a[0], v)
	case "lbs", "lbns":
		hash, err := c.hash(a[1])
		if err != nil {
			return err
		}
		var name *int32
		rest := a[2:]
		if in.Op == "lbns" {
			n, err := c.hash(a[2])
			if err != nil {
				return err
			}
			name, rest = &n, a[3:]
		}
		slot, err := c.index(rest[0])
		if err != nil {
			return err
		}
		mode, err := c.batchMode(rest[2])
		if err != nil {
			return err
		}
		v, err := c.Net.BatchReadSlot(hash, name, slot, rest[1], mode)
		if err != nil {
			return err
		}
		return c.set(a[0], v)
	case "sb", "sbn":
		hash, err := c.hash(a[0])
		if err != nil {
			return err
		}
		var name *int32
		rest := a[1:]
		if in.Op == "sbn" {
			n, err := c.hash(a[1])
			if err != nil {
				return err
			}
			name, rest = &n, a[2:]
		}
		x, err := c.value(rest[1])
		if err != nil {
			return err
		}
		return c.Net.BatchWrite(hash, name, rest[0], x)
	case "sbs":
		hash, err := c.hash(a[0])
		if err != nil {
			return err
		}
		slot, err := c.index(a[1])
		if err != nil {
			return err
		}
		x, err := c.value(a[3])
		if err != nil {
			return err
		}
		c.Net.BatchWriteSlot(hash, slot, a[2], x)
		return nil
	}
	return fmt.Errorf("unsupported instruction")
}

func (c *Chip) values2(x, y string) (float64, float64, error) {
	a, err := c.value(x)
	if err != nil {
		return 0, 0, err
	}
	b, err := c.value(y)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// value resolves a readable operand: a register, a define, a label, a
// HASH("...") literal or a number in decimal, $hex or %binary.
func (c *Chip) value(arg string) (float64, error) {
	if r, ok, err := c.register(arg); ok || err != nil {
		if err != nil {
			return 0, err
		}
		return c.Regs[r], nil
	}
	if v, ok := c.defines[arg]; ok {
		return v, nil
	}
	if line, ok := c.src.Labels[arg]; ok {
		return float64(line), nil
	}
	if s, ok := hashLiteral(arg); ok {
		return float64(ic10.Hash(s)), nil
	}
	switch {
	case strings.HasPrefix(arg, "$"):
		v, err := strconv.ParseInt(strings.ReplaceAll(arg[1:], "_", ""), 16, 64)
		if err == nil {
			return float64(v), nil
		}
	case strings.HasPrefix(arg, "%"):
		v, err := strconv.ParseInt(strings.ReplaceAll(arg[1:], "_", ""), 2, 64)
		if err == nil {
			return float64(v), nil
		}
	default:
		v, err := strconv.ParseFloat(arg, 64)
		if err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%q is not a number, register or define", arg)
}

func hashLiteral(arg string) (string, bool) {
	if strings.HasPrefix(arg, `HASH("`) && strings.HasSuffix(arg, `")`) && len(arg) >= 8 {
		return arg[6 : len(arg)-2], true
	}
	return "", false
}

// register resolves a register name, following aliases and indirection
// (rr1 is the register numbered by the value of r1). ok is false when arg
// does not name a register at all.
func (c *Chip) register(arg string) (int, bool, error) {
	if target, ok := c.aliases[arg]; ok {
		arg = target
	}
	switch arg {
	case "sp":
		return regSP, true, nil
	case "ra":
		return regRA, true, nil
	}
	depth := 0
	for depth < len(arg) && arg[depth] == 'r' {
		depth++
	}
	if depth == 0 || depth == len(arg) {
		return 0, false, nil
	}
	n, err := strconv.Atoi(arg[depth:])
	if err != nil {
		return 0, false, nil
	}
	for ; ; depth-- {
		if n < 0 || n >= ic10.NumRegisters+2 {
			return 0, true, fmt.Errorf("register %d out of range in %s", n, arg)
		}
		if depth == 1 {
			return n, true, nil
		}
		n = int(c.Regs[n])
	}
}

func (c *Chip) set(arg string, v float64) error {
	r, ok, err := c.register(arg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q is not a register", arg)
	}
	c.Regs[r] = v
	return nil
}

func (c *Chip) target(arg string) (int, error) {
	v, err := c.value(arg)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("jump to negative line %s", ic10.FormatNumber(v))
	}
	return int(v), nil
}

func (c *Chip) index(arg string) (int, error) {
	v, err := c.value(arg)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("index %s is not a whole number", ic10.FormatNumber(v))
	}
	return int(v), nil
}

func (c *Chip) hash(arg string) (int32, error) {
	v, err := c.value(arg)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// batchMode accepts a mode name or its number (0 Average .. 3 Maximum).
func (c *Chip) batchMode(arg string) (string, error) {
	for _, m := range ic10.BatchModes {
		if m == arg {
			return m, nil
		}
	}
	v, err := c.index(arg)
	if err != nil {
		return "", err
	}
	if v < 0 || v >= len(ic10.BatchModes) {
		return "", fmt.Errorf("unknown batch mode %d", v)
	}
	return ic10.BatchModes[v], nil
}

func (c *Chip) alias(name, target string) error {
	if t, ok := c.aliases[target]; ok {
		target = t
	}
	if _, ok, err := c.register(target); !ok || err != nil {
		if !isPin(target) {
			return fmt.Errorf("cannot alias %s to %s", name, target)
		}
	}
	c.aliases[name] = target
	return nil
}

func isPin(s string) bool {
	for _, p := range ic10.Pins {
		if p == s {
			return true
		}
	}
	return false
}

func (c *Chip) pin(arg string) string {
	if t, ok := c.aliases[arg]; ok {
		return t
	}
	return arg
}

func (c *Chip) connected(arg string) bool {
	_, ok := c.Net.Pin(c.pin(arg))
	return ok
}

func (c *Chip) device(arg string) (*devices.Device, error) {
	pin := c.pin(arg)
	if !isPin(pin) {
		return nil, fmt.Errorf("%q is not a device", arg)
	}
	d, ok := c.Net.Pin(pin)
	if !ok {
		return nil, fmt.Errorf("no device on %s", pin)
	}
	return d, nil
}

func (c *Chip) deviceByID(arg string) (*devices.Device, error) {
	id, err := c.value(arg)
	if err != nil {
		return nil, err
	}
	d, ok := c.Net.ByID(id)
	if !ok {
		return nil, fmt.Errorf("no device with reference id %s", ic10.FormatNumber(id))
	}
	return d, nil
}

func (c *Chip) getMemory(d *devices.Device, dst, addr string) error {
	i, err := c.value(addr)
	if err != nil {
		return err
	}
	v, err := d.Read(i)
	if err != nil {
		return err
	}
	return c.set(dst, v)
}

func (c *Chip) putMemory(d *devices.Device, addr, val string) error {
	i, x, err := c.values2(addr, val)
	if err != nil {
		return err
	}
	return d.Write(i, x)
}

func (c *Chip) push(v float64) error {
	sp := int(c.Regs[regSP])
	if sp < 0 || sp >= len(c.Stack()) {
		return fmt.Errorf("stack overflow at sp %d", sp)
	}
	c.Stack()[sp] = v
	c.Regs[regSP]++
	return nil
}

func (c *Chip) peek() (float64, error) {
	sp := int(c.Regs[regSP]) - 1
	if sp < 0 || sp >= len(c.Stack()) {
		return 0, errors.New("stack underflow")
	}
	return c.Stack()[sp], nil
}
