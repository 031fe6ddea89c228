package ic10

import "strings"

// Line is one line of generated IC10 before label resolution. Exactly one of
// Op, Label or Comment is meaningful: an instruction, a label definition or a
// full-line comment.
type Line struct {
	Op      string
	Args    []Operand
	Label   *Label
	Comment string
	Meta    bool // a ## comment, kept even when comments are stripped
	Source  int  // originating BASIC line, 0 when synthetic
}

// IsInstruction reports whether the line executes an opcode.
func (l Line) IsInstruction() bool { return l.Op != "" }

// String renders the line without resolving labels.
func (l Line) String() string {
	switch {
	case l.Op != "":
		var sb strings.Builder
		sb.WriteString(l.Op)
		for _, a := range l.Args {
			sb.WriteByte(' ')
			sb.WriteString(a.String())
		}
		return sb.String()
	case l.Label != nil:
		return l.Label.Name + ":"
	default:
		return "#" + l.Comment
	}
}

// Program is an ordered list of lines produced by the code generator.
type Program struct {
	Lines []Line
}

// Emit appends an instruction.
func (p *Program) Emit(source int, op string, args ...Operand) {
	p.Lines = append(p.Lines, Line{Op: op, Args: args, Source: source})
}

// Mark appends a label definition.
func (p *Program) Mark(source int, l *Label) {
	p.Lines = append(p.Lines, Line{Label: l, Source: source})
}

// Comment appends a full-line comment. text is written after the '#'.
func (p *Program) Comment(source int, text string, meta bool) {
	p.Lines = append(p.Lines, Line{Comment: text, Meta: meta, Source: source})
}

// Last returns the most recently emitted instruction, skipping labels and
// comments, or nil when there is none.
func (p *Program) Last() *Line {
	for i := len(p.Lines) - 1; i >= 0; i-- {
		if p.Lines[i].IsInstruction() {
			return &p.Lines[i]
		}
		if p.Lines[i].Label != nil {
			return nil
		}
	}
	return nil
}

// String renders every line unresolved, one per line. Used for debugging.
func (p *Program) String() string {
	var sb strings.Builder
	for _, l := range p.Lines {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
