// Package asm resolves generated IC10 lines into final program text and
// parses IC10 text back into instructions for the simulator.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"basic10/pkg/ic10"
)

// Options controls rendering.
type Options struct {
	// LineComments appends " # <basic line>" to every instruction that
	// came from a source line.
	LineComments bool
}

// Listing is the resolved program.
type Listing struct {
	Code  string
	Lines []string

	// SourceMap maps 0-based output lines to 1-based BASIC lines. Lines
	// with no source are absent.
	SourceMap map[int]int

	// Labels maps user labels to the output line they mark.
	Labels map[string]int

	// InstructionCount counts output lines that are neither comments nor
	// blank. User label lines count.
	InstructionCount int
}

type Assembler struct {
	opts     Options
	internal map[*ic10.Label]int
	labels   map[string]int
}

func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts:     opts,
		internal: make(map[*ic10.Label]int),
		labels:   make(map[string]int),
	}
}

func Assemble(p *ic10.Program, opts Options) (*Listing, error) {
	return NewAssembler(opts).Assemble(p)
}

func (a *Assembler) Assemble(p *ic10.Program) (*Listing, error) {
	if err := a.pass1(p.Lines); err != nil {
		return nil, err
	}
	return a.pass2(p.Lines)
}

// pass1 assigns output line numbers. Internal labels take no line of their
// own; they resolve to the line that follows them.
func (a *Assembler) pass1(lines []ic10.Line) error {
	out := 0
	for _, l := range lines {
		switch {
		case l.Label != nil && l.Label.Kind == ic10.LabelInternal:
			if _, exists := a.internal[l.Label]; exists {
				return fmt.Errorf("internal label %s placed twice", l.Label.Name)
			}
			a.internal[l.Label] = out
			continue
		case l.Label != nil:
			if _, exists := a.labels[l.Label.Name]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", l.Label.Name, l.Source)
			}
			a.labels[l.Label.Name] = out
		case l.IsInstruction():
			spec, ok := ic10.Lookup(l.Op)
			if !ok {
				return fmt.Errorf("unknown instruction %q (from line %d)", l.Op, l.Source)
			}
			if len(l.Args) != spec.Operands {
				return fmt.Errorf("%s expects %d operands, got %d (from line %d)", l.Op, spec.Operands, len(l.Args), l.Source)
			}
		}
		out++
	}
	return nil
}

func (a *Assembler) pass2(lines []ic10.Line) (*Listing, error) {
	listing := &Listing{
		SourceMap: make(map[int]int),
		Labels:    a.labels,
	}
	for _, l := range lines {
		if l.Label != nil && l.Label.Kind == ic10.LabelInternal {
			continue
		}
		text, err := a.render(l)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		n := len(listing.Lines)
		if l.Source > 0 {
			listing.SourceMap[n] = l.Source
		}
		if l.Label != nil || l.IsInstruction() {
			listing.InstructionCount++
		}
		listing.Lines = append(listing.Lines, text)
	}
	listing.Code = strings.Join(listing.Lines, "\n")
	if len(listing.Lines) > 0 {
		listing.Code += "\n"
	}
	return listing, nil
}

func (a *Assembler) render(l ic10.Line) (string, error) {
	if !l.IsInstruction() {
		return l.String(), nil
	}
	var sb strings.Builder
	sb.WriteString(l.Op)
	for _, arg := range l.Args {
		sb.WriteByte(' ')
		ref, ok := arg.(ic10.LabelRef)
		if !ok {
			sb.WriteString(arg.String())
			continue
		}
		if ref.Label.Kind == ic10.LabelInternal {
			line, ok := a.internal[ref.Label]
			if !ok {
				return "", fmt.Errorf("jump to unplaced label %s (from line %d)", ref.Label.Name, l.Source)
			}
			sb.WriteString(strconv.Itoa(line))
			continue
		}
		if _, ok := a.labels[ref.Label.Name]; !ok {
			return "", fmt.Errorf("undefined label '%s' (from line %d)", ref.Label.Name, l.Source)
		}
		sb.WriteString(ref.Label.Name)
	}
	if a.opts.LineComments && l.Source > 0 {
		fmt.Fprintf(&sb, " # %d", l.Source)
	}
	return sb.String(), nil
}
