package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
}

// NumberLit is a numeric constant.
//
//	VAR x = 0x10
//	        ^^^^  NumberLit{Value: 16}
type NumberLit struct {
	Value float64
}

func (*NumberLit) exprNode()        {}
func (n *NumberLit) String() string { return formatValue(n.Value) }

// StringLit is a quoted string. Strings only appear where a name is hashed:
// device prefab names, device names and HASH().
type StringLit struct {
	Value string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Value) }

// VarRef is a read of a variable, constant or array element.
//
//	total = values[i] + offset
//	        ^^^^^^^^^   ^^^^^^
//	        VarRef{Name: "values", Indices: [i]}
//	                    VarRef{Name: "offset"}
type VarRef struct {
	Name    string
	Indices []Expr
	Line    int
}

func (*VarRef) exprNode() {}
func (v *VarRef) String() string {
	if len(v.Indices) == 0 {
		return v.Name
	}
	return fmt.Sprintf("%s%v", v.Name, v.Indices)
}

// BinaryExpr represents Left Op Right for arithmetic, bitwise, comparison
// and logical operators.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryExpr represents MINUS, NOT or TILDE applied to Operand.
type UnaryExpr struct {
	Op      TokenType
	Operand Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Operand) }

// IncDecExpr is ++x, --x, x++ or x-- used as a value.
type IncDecExpr struct {
	Op     TokenType // PLUS_PLUS or MINUS_MINUS
	Target *VarRef
	Prefix bool
}

func (*IncDecExpr) exprNode() {}
func (e *IncDecExpr) String() string {
	if e.Prefix {
		return fmt.Sprintf("(%s %s)", e.Op, e.Target)
	}
	return fmt.Sprintf("(%s %s)", e.Target, e.Op)
}

// TernaryExpr is IIF(Cond, Then, Else).
type TernaryExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*TernaryExpr) exprNode() {}
func (t *TernaryExpr) String() string {
	return fmt.Sprintf("IIF(%s, %s, %s)", t.Cond, t.Then, t.Else)
}

// CallExpr is name(args). It names a built-in, a user FUNCTION or, when the
// name was DIMmed, an array element written with parentheses.
type CallExpr struct {
	Name string
	Args []Expr
	Line int
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, joinExprs(c.Args))
}

// HashExpr is HASH("text"), folded to the CRC-32 name hash.
type HashExpr struct {
	Text string
}

func (*HashExpr) exprNode()        {}
func (h *HashExpr) String() string { return fmt.Sprintf("HASH(%q)", h.Text) }

// BatchMode selects how a batch read reduces the values of every matching
// device.
type BatchMode int

const (
	BatchUnset BatchMode = iota
	BatchAverage
	BatchSum
	BatchMinimum
	BatchMaximum
	BatchCount
)

var batchModeNames = [...]string{"", "Average", "Sum", "Minimum", "Maximum", "Count"}

func (m BatchMode) String() string { return batchModeNames[m] }

// DeviceRead is name.Property with an optional batch suffix.
//
//	temp = sensors.Temperature.Average
//	       ^^^^^^^ ^^^^^^^^^^^ ^^^^^^^
//	       Device  Property    Mode
type DeviceRead struct {
	Device   string
	Property string
	Mode     BatchMode
	Line     int
}

func (*DeviceRead) exprNode() {}
func (d *DeviceRead) String() string {
	if d.Mode != BatchUnset {
		return fmt.Sprintf("%s.%s.%s", d.Device, d.Property, d.Mode)
	}
	return fmt.Sprintf("%s.%s", d.Device, d.Property)
}

// SlotRead is name.Slot[n].Property or name[n].Property.
type SlotRead struct {
	Device   string
	Slot     Expr
	Property string
	Mode     BatchMode
	Line     int
}

func (*SlotRead) exprNode() {}
func (s *SlotRead) String() string {
	return fmt.Sprintf("%s.Slot[%s].%s", s.Device, s.Slot, s.Property)
}

// MemoryRead is name.Memory[address], a read of a device's stack memory.
type MemoryRead struct {
	Device  string
	Address Expr
	Line    int
}

func (*MemoryRead) exprNode() {}
func (m *MemoryRead) String() string {
	return fmt.Sprintf("%s.Memory[%s]", m.Device, m.Address)
}

// BatchRead is BATCHREAD(hash, Property, mode) or
// BATCHREAD(hash, name, Property, mode).
type BatchRead struct {
	Hash     Expr
	Name     Expr // nil unless filtered by device name
	Property string
	Mode     Expr
}

func (*BatchRead) exprNode() {}
func (b *BatchRead) String() string {
	if b.Name != nil {
		return fmt.Sprintf("BATCHREAD(%s, %s, %s, %s)", b.Hash, b.Name, b.Property, b.Mode)
	}
	return fmt.Sprintf("BATCHREAD(%s, %s, %s)", b.Hash, b.Property, b.Mode)
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

//  Device references

// DeviceRef is the compile-time address of a device named by ALIAS or
// DEVICE.
type DeviceRef interface {
	deviceRef()
	String() string
}

// PinRef addresses a housing port, d0..d5 or db.
//
//	ALIAS sensor d0
type PinRef struct {
	Pin     string
	Channel int // -1 when no channel was given
}

func (*PinRef) deviceRef()       {}
func (r *PinRef) String() string { return withChannel(r.Pin, r.Channel) }

// TypeRef addresses every device of a prefab on the network.
//
//	DEVICE sensors "StructureGasSensor"
//	ALIAS sensors = IC.Device["StructureGasSensor"]
type TypeRef struct {
	Prefab  Expr // StringLit to hash, or a numeric hash
	Channel int
}

func (*TypeRef) deviceRef() {}
func (r *TypeRef) String() string {
	return withChannel(fmt.Sprintf("IC.Device[%s]", r.Prefab), r.Channel)
}

// NamedRef addresses devices of a prefab that also carry a given name.
//
//	ALIAS pump = IC.Device["StructureVolumePump"].Name["Main Pump"]
type NamedRef struct {
	Prefab Expr
	Name   Expr
}

func (*NamedRef) deviceRef() {}
func (r *NamedRef) String() string {
	return fmt.Sprintf("IC.Device[%s].Name[%s]", r.Prefab, r.Name)
}

// IDRef addresses one device by its reference id.
type IDRef struct {
	ID Expr
}

func (*IDRef) deviceRef()       {}
func (r *IDRef) String() string { return fmt.Sprintf("IC.ID[%s]", r.ID) }

func withChannel(s string, ch int) string {
	if ch < 0 {
		return s
	}
	return fmt.Sprintf("%s.Channel[%d]", s, ch)
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	SourceLine() int
	String() string
}

// stmtBase carries the BASIC line a statement starts on.
type stmtBase struct {
	Line int
}

func (stmtBase) stmtNode()         {}
func (s stmtBase) SourceLine() int { return s.Line }

func at(tok Token) stmtBase { return stmtBase{Line: tok.Line} }

// LetStmt covers VAR, LET, plain assignment, compound assignment and array
// element assignment.
//
//	VAR x = 5        LetStmt{Name: "x", Op: ASSIGN, Declare: true}
//	x += 2           LetStmt{Name: "x", Op: PLUS_ASSIGN}
//	values(i) = 3    LetStmt{Name: "values", Indices: [i]}
type LetStmt struct {
	stmtBase
	Name    string
	Indices []Expr
	Op      TokenType
	Value   Expr // nil for VAR x without initializer
	Declare bool
}

func (l *LetStmt) String() string {
	target := l.Name
	if len(l.Indices) > 0 {
		target = fmt.Sprintf("%s%v", l.Name, l.Indices)
	}
	return fmt.Sprintf("Let(%s %s %s)", target, l.Op, l.Value)
}

// IncDecStmt is x++ or --x used as a statement.
type IncDecStmt struct {
	stmtBase
	Target *VarRef
	Op     TokenType
}

func (s *IncDecStmt) String() string { return fmt.Sprintf("IncDec(%s %s)", s.Target, s.Op) }

// DimStmt declares an array in stack memory.
type DimStmt struct {
	stmtBase
	Name string
	Size Expr
}

func (d *DimStmt) String() string { return fmt.Sprintf("Dim(%s[%s])", d.Name, d.Size) }

// ConstStmt is CONST NAME = expr or DEFINE NAME expr.
type ConstStmt struct {
	stmtBase
	Name   string
	Value  Expr
	Define bool
}

func (c *ConstStmt) String() string {
	kw := "Const"
	if c.Define {
		kw = "Define"
	}
	return fmt.Sprintf("%s(%s = %s)", kw, c.Name, c.Value)
}

// AliasStmt binds a name to a device, from ALIAS or DEVICE.
type AliasStmt struct {
	stmtBase
	Name   string
	Device DeviceRef
}

func (a *AliasStmt) String() string { return fmt.Sprintf("Alias(%s = %s)", a.Name, a.Device) }

// IfStmt is every IF layout. ELSEIF chains are nested IfStmts in Else.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (i *IfStmt) String() string {
	return fmt.Sprintf("If(%s, then=%d, else=%d)", i.Cond, len(i.Then), len(i.Else))
}

// ForStmt is FOR Var = Start TO End [STEP Step] ... NEXT.
type ForStmt struct {
	stmtBase
	Var   string
	Start Expr
	End   Expr
	Step  Expr // nil means 1
	Body  []Stmt
}

func (f *ForStmt) String() string {
	return fmt.Sprintf("For(%s = %s to %s step %v, body=%d)", f.Var, f.Start, f.End, f.Step, len(f.Body))
}

// WhileStmt is WHILE cond ... WEND.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body []Stmt
}

func (w *WhileStmt) String() string { return fmt.Sprintf("While(%s, body=%d)", w.Cond, len(w.Body)) }

// DoLoopStmt is DO ... LOOP with an optional WHILE/UNTIL test at either end.
type DoLoopStmt struct {
	stmtBase
	Cond      Expr // nil for an endless loop
	Until     bool // the loop exits when Cond becomes true
	TestFirst bool // the test sits on the DO line
	Body      []Stmt
}

func (d *DoLoopStmt) String() string {
	return fmt.Sprintf("DoLoop(%v, until=%v, first=%v, body=%d)", d.Cond, d.Until, d.TestFirst, len(d.Body))
}

// BreakStmt leaves the innermost loop or SELECT.
type BreakStmt struct{ stmtBase }

func (*BreakStmt) String() string { return "Break" }

// ContinueStmt jumps to the next iteration of the innermost loop.
type ContinueStmt struct{ stmtBase }

func (*ContinueStmt) String() string { return "Continue" }

// JumpTarget is either a user label or a legacy BASIC line number.
type JumpTarget struct {
	Label  string
	Number int
}

func (t JumpTarget) String() string {
	if t.Label != "" {
		return t.Label
	}
	return fmt.Sprint(t.Number)
}

// GotoStmt is GOTO target.
type GotoStmt struct {
	stmtBase
	Target JumpTarget
}

func (g *GotoStmt) String() string { return fmt.Sprintf("Goto(%s)", g.Target) }

// GosubStmt is GOSUB target.
type GosubStmt struct {
	stmtBase
	Target JumpTarget
}

func (g *GosubStmt) String() string { return fmt.Sprintf("Gosub(%s)", g.Target) }

// OnGotoStmt is ON expr GOTO|GOSUB t1, t2, ... (1-based selector).
type OnGotoStmt struct {
	stmtBase
	Selector Expr
	Targets  []JumpTarget
	Gosub    bool
}

func (o *OnGotoStmt) String() string {
	return fmt.Sprintf("On(%s, gosub=%v, %v)", o.Selector, o.Gosub, o.Targets)
}

// ReturnStmt leaves a GOSUB, SUB or FUNCTION.
type ReturnStmt struct {
	stmtBase
	Value Expr // nil without a value
}

func (r *ReturnStmt) String() string { return fmt.Sprintf("Return(%v)", r.Value) }

// LabelStmt is name: or, with Number set, a legacy BASIC line number.
type LabelStmt struct {
	stmtBase
	Name   string
	Number int
}

func (l *LabelStmt) String() string {
	if l.Name == "" {
		return fmt.Sprintf("LineNumber(%d)", l.Number)
	}
	return fmt.Sprintf("Label(%s)", l.Name)
}

// CaseClause is one CASE v1, v2 ... arm of a SELECT.
type CaseClause struct {
	Line   int
	Values []Expr
	Body   []Stmt
}

// SelectStmt is SELECT CASE subject ... END SELECT.
type SelectStmt struct {
	stmtBase
	Subject Expr
	Cases   []CaseClause
	Default []Stmt
}

func (s *SelectStmt) String() string {
	return fmt.Sprintf("Select(%s, cases=%d, default=%d)", s.Subject, len(s.Cases), len(s.Default))
}

// SubStmt is a SUB or FUNCTION definition.
type SubStmt struct {
	stmtBase
	Name     string
	Params   []string
	Body     []Stmt
	Function bool
}

func (s *SubStmt) String() string {
	kind := "Sub"
	if s.Function {
		kind = "Function"
	}
	return fmt.Sprintf("%s(%s(%s), body=%d)", kind, s.Name, strings.Join(s.Params, ", "), len(s.Body))
}

// CallStmt is CALL name(args) or a bare name(args) statement.
type CallStmt struct {
	stmtBase
	Name string
	Args []Expr
}

func (c *CallStmt) String() string { return fmt.Sprintf("Call(%s(%s))", c.Name, joinExprs(c.Args)) }

// EndStmt stops the program.
type EndStmt struct{ stmtBase }

func (*EndStmt) String() string { return "End" }

// PrintStmt writes values to the housing display.
type PrintStmt struct {
	stmtBase
	Values []Expr
}

func (p *PrintStmt) String() string { return fmt.Sprintf("Print(%s)", joinExprs(p.Values)) }

// InputStmt reads the housing setting into a variable.
type InputStmt struct {
	stmtBase
	Name string
}

func (i *InputStmt) String() string { return fmt.Sprintf("Input(%s)", i.Name) }

// SleepStmt is SLEEP n or WAIT(n).
type SleepStmt struct {
	stmtBase
	Duration Expr
}

func (s *SleepStmt) String() string { return fmt.Sprintf("Sleep(%s)", s.Duration) }

// YieldStmt pauses until the next game tick.
type YieldStmt struct{ stmtBase }

func (*YieldStmt) String() string { return "Yield" }

// PushStmt pushes a value on the housing stack.
type PushStmt struct {
	stmtBase
	Value Expr
}

func (p *PushStmt) String() string { return fmt.Sprintf("Push(%s)", p.Value) }

// PopStmt is POP name, or PEEK name when Peek is set.
type PopStmt struct {
	stmtBase
	Name string
	Peek bool
}

func (p *PopStmt) String() string {
	if p.Peek {
		return fmt.Sprintf("Peek(%s)", p.Name)
	}
	return fmt.Sprintf("Pop(%s)", p.Name)
}

// DeviceWriteStmt is name.Property = value.
type DeviceWriteStmt struct {
	stmtBase
	Device   string
	Property string
	Value    Expr
}

func (d *DeviceWriteStmt) String() string {
	return fmt.Sprintf("DeviceWrite(%s.%s = %s)", d.Device, d.Property, d.Value)
}

// SlotWriteStmt is name.Slot[n].Property = value or name[n].Property = value.
type SlotWriteStmt struct {
	stmtBase
	Device   string
	Slot     Expr
	Property string
	Value    Expr
}

func (s *SlotWriteStmt) String() string {
	return fmt.Sprintf("SlotWrite(%s[%s].%s = %s)", s.Device, s.Slot, s.Property, s.Value)
}

// MemoryWriteStmt is name.Memory[address] = value.
type MemoryWriteStmt struct {
	stmtBase
	Device  string
	Address Expr
	Value   Expr
}

func (m *MemoryWriteStmt) String() string {
	return fmt.Sprintf("MemoryWrite(%s[%s] = %s)", m.Device, m.Address, m.Value)
}

// BatchWriteStmt is BATCHWRITE(hash, Property, value) or
// BATCHWRITE(hash, name, Property, value).
type BatchWriteStmt struct {
	stmtBase
	Hash     Expr
	Name     Expr
	Property string
	Value    Expr
}

func (b *BatchWriteStmt) String() string {
	return fmt.Sprintf("BatchWrite(%s, %v, %s = %s)", b.Hash, b.Name, b.Property, b.Value)
}

// CommentStmt is a # or ## comment.
type CommentStmt struct {
	stmtBase
	Text string
	Meta bool
}

func (c *CommentStmt) String() string { return fmt.Sprintf("Comment(%q)", c.Text) }

// DataStmt lists values consumed by READ.
type DataStmt struct {
	stmtBase
	Values []Expr
}

func (d *DataStmt) String() string { return fmt.Sprintf("Data(%s)", joinExprs(d.Values)) }

// ReadStmt reads the next DATA values into variables.
type ReadStmt struct {
	stmtBase
	Names []string
}

func (r *ReadStmt) String() string { return fmt.Sprintf("Read(%s)", strings.Join(r.Names, ", ")) }

// RestoreStmt rewinds READ to the first DATA value.
type RestoreStmt struct{ stmtBase }

func (*RestoreStmt) String() string { return "Restore" }

// Program is the parsed source: top-level statements plus the index of every
// top-level statement that carried a legacy line number.
type Program struct {
	Statements []Stmt
	LineIndex  map[int]int
}
