package ic10

// Spec describes the shape of one mnemonic.
type Spec struct {
	Operands int // exact operand count
	Jump     int // index of the jump-target operand, -1 when the op does not jump
	Relative bool
}

// MaxLines is the program memory of an IC10 chip.
const MaxLines = 128

// StackSize is the number of values in a chip housing's stack memory.
const StackSize = 512

// Pins are the device ports of a chip housing. db is the housing itself.
var Pins = []string{"d0", "d1", "d2", "d3", "d4", "d5", "db"}

// BatchModes are the reduction modes accepted by lb/lbn/lbs/lbns.
var BatchModes = []string{"Average", "Sum", "Minimum", "Maximum"}

func op(n int) Spec { return Spec{Operands: n, Jump: -1} }

func branch(n, at int) Spec { return Spec{Operands: n, Jump: at} }

func relative(n, at int) Spec { return Spec{Operands: n, Jump: at, Relative: true} }

// ISA is the instruction set the compiler targets and the simulator runs.
var ISA = map[string]Spec{
	// data movement
	"move":   op(2),
	"alias":  op(2),
	"define": op(2),

	// arithmetic
	"add":   op(3),
	"sub":   op(3),
	"mul":   op(3),
	"div":   op(3),
	"mod":   op(3),
	"max":   op(3),
	"min":   op(3),
	"abs":   op(2),
	"sqrt":  op(2),
	"round": op(2),
	"floor": op(2),
	"ceil":  op(2),
	"trunc": op(2),
	"exp":   op(2),
	"log":   op(2),
	"sin":   op(2),
	"cos":   op(2),
	"tan":   op(2),
	"asin":  op(2),
	"acos":  op(2),
	"atan":  op(2),
	"atan2": op(3),
	"rand":  op(1),

	// bitwise
	"and": op(3),
	"or":  op(3),
	"xor": op(3),
	"nor": op(3),
	"not": op(2),
	"sll": op(3),
	"srl": op(3),
	"sra": op(3),

	// comparison
	"slt":    op(3),
	"sgt":    op(3),
	"sle":    op(3),
	"sge":    op(3),
	"seq":    op(3),
	"sne":    op(3),
	"seqz":   op(2),
	"snez":   op(2),
	"sltz":   op(2),
	"sgtz":   op(2),
	"slez":   op(2),
	"sgez":   op(2),
	"select": op(4),

	// flow control
	"j":    branch(1, 0),
	"jal":  branch(1, 0),
	"jr":   relative(1, 0),
	"beq":  branch(3, 2),
	"bne":  branch(3, 2),
	"blt":  branch(3, 2),
	"bgt":  branch(3, 2),
	"ble":  branch(3, 2),
	"bge":  branch(3, 2),
	"beqz": branch(2, 1),
	"bnez": branch(2, 1),
	"bltz": branch(2, 1),
	"bgtz": branch(2, 1),
	"blez": branch(2, 1),
	"bgez": branch(2, 1),

	// device set and call variants
	"beqal": branch(3, 2),
	"bdse":  branch(2, 1),
	"bdns":  branch(2, 1),
	"sdse":  op(2),
	"sdns":  op(2),

	// scheduling
	"yield": op(0),
	"sleep": op(1),
	"hcf":   op(0),

	// stack
	"push": op(1),
	"pop":  op(1),
	"peek": op(1),
	"get":  op(3),
	"put":  op(3),
	"getd": op(3),
	"putd": op(3),

	// device io
	"l":    op(3),
	"s":    op(3),
	"ls":   op(4),
	"ss":   op(4),
	"lb":   op(4),
	"sb":   op(3),
	"lbs":  op(5),
	"sbs":  op(4),
	"lbn":  op(5),
	"sbn":  op(4),
	"lbns": op(6),
	"ld":   op(3),
	"sd":   op(3),
}

// Lookup returns the shape of a mnemonic.
func Lookup(mnemonic string) (Spec, bool) {
	s, ok := ISA[mnemonic]
	return s, ok
}
