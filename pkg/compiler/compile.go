package compiler

import (
	"fmt"
	"sort"
	"time"

	"basic10/pkg/asm"
	"basic10/pkg/ic10"
)

// DefaultAuthor is written into the signature when Options.Author is empty.
const DefaultAuthor = "Basic-10"

// softLimit is where the line budget starts to get tight.
const softLimit = 116

// Options controls one compilation.
type Options struct {
	PreserveComments       bool
	EmitSourceLineComments bool
	Author                 string
	// Timestamp is printed in the signature. Zero means now.
	Timestamp time.Time
}

// Result is a successful compilation.
type Result struct {
	Code             string
	SourceMap        *SourceMap
	Warnings         []string
	InstructionCount int
	Symbols          *SymbolTable
	Hashes           *ic10.HashRegistry
}

// SourceMap links output lines (0-based, the numbers IC10 jumps use) to
// BASIC lines (1-based).
type SourceMap struct {
	toSource map[int]int
	toOutput map[int][]int

	Symbols   []Symbol
	Registers map[string]string
	Devices   map[string]string
}

func newSourceMap(lines map[int]int, syms *SymbolTable) *SourceMap {
	m := &SourceMap{
		toSource:  lines,
		toOutput:  make(map[int][]int),
		Symbols:   syms.All(),
		Registers: syms.Registers,
		Devices:   syms.Devices,
	}
	for out, src := range lines {
		m.toOutput[src] = append(m.toOutput[src], out)
	}
	for _, outs := range m.toOutput {
		sort.Ints(outs)
	}
	return m
}

// SourceLine returns the BASIC line that produced output line out.
func (m *SourceMap) SourceLine(out int) (int, bool) {
	src, ok := m.toSource[out]
	return src, ok
}

// OutputLines returns the output lines generated for a BASIC line, in
// order.
func (m *SourceMap) OutputLines(src int) []int {
	return m.toOutput[src]
}

// Entries returns every mapped output line in order as [output, source]
// pairs.
func (m *SourceMap) Entries() [][2]int {
	out := make([][2]int, 0, len(m.toSource))
	for o, s := range m.toSource {
		out = append(out, [2]int{o, s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func signature(opts Options) string {
	author := opts.Author
	if author == "" {
		author = DefaultAuthor
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf(" Basic-10 By %s on %s at %s", author, ts.Format("2006-01-02"), ts.Format("15:04"))
}

// Compile translates Basic-10 source into IC10 text.
func Compile(src string, opts Options) (*Result, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return nil, err
	}

	syms := NewSymbolTable()
	hashes := ic10.NewHashRegistry()
	out, warnings, err := Generate(prog, syms, hashes, opts)
	if err != nil {
		return nil, err
	}
	out.Comment(0, signature(opts), true)

	listing, err := asm.Assemble(out, asm.Options{LineComments: opts.EmitSourceLineComments})
	if err != nil {
		return nil, fmt.Errorf("assembly error: %w", err)
	}

	switch n := listing.InstructionCount; {
	case n > ic10.MaxLines:
		warnings = append(warnings, fmt.Sprintf("program is %d lines, an IC10 chip only holds %d", n, ic10.MaxLines))
	case n >= softLimit:
		warnings = append(warnings, fmt.Sprintf("program is %d lines, close to the %d line limit", n, ic10.MaxLines))
	}

	return &Result{
		Code:             listing.Code,
		SourceMap:        newSourceMap(listing.SourceMap, syms),
		Warnings:         warnings,
		InstructionCount: listing.InstructionCount,
		Symbols:          syms,
		Hashes:           hashes,
	}, nil
}
