package ic10

import (
	"math"
	"strconv"
)

// Operand is one argument of an emitted instruction. The generator only ever
// produces Register, Immediate, Symbol and LabelRef values.
type Operand interface {
	operand()
	String() string
}

// Register is a general purpose register index. SP and RA are the two
// special registers that share the register file.
type Register int

const (
	SP Register = 16
	RA Register = 17
)

// NumRegisters is the number of general purpose registers r0..r15.
const NumRegisters = 16

func (Register) operand() {}

func (r Register) String() string {
	switch r {
	case SP:
		return "sp"
	case RA:
		return "ra"
	}
	return "r" + strconv.Itoa(int(r))
}

// Immediate is a literal numeric operand.
type Immediate float64

func (Immediate) operand() {}

func (v Immediate) String() string { return FormatNumber(float64(v)) }

// Symbol is an operand written out verbatim: device pins (d0, db), logic
// type names (Temperature), batch modes (Average) and defines.
type Symbol string

func (Symbol) operand() {}

func (s Symbol) String() string { return string(s) }

// LabelKind tells internal jump targets apart from labels the user wrote.
type LabelKind int

const (
	LabelInternal LabelKind = iota // resolved to a line number before output
	LabelUser                      // kept symbolic in the output
)

func (k LabelKind) String() string {
	if k == LabelUser {
		return "user"
	}
	return "internal"
}

// Label is a jump target. Internal labels get unique names from the
// generator's counter; their names never reach the final text.
type Label struct {
	Name string
	Kind LabelKind
}

// LabelRef is a jump operand pointing at a label.
type LabelRef struct {
	Label *Label
}

func (LabelRef) operand() {}

func (l LabelRef) String() string { return l.Label.Name }

// FormatNumber renders a value the way IC10 source writes numbers: integers
// without a fraction, everything else in shortest form.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
