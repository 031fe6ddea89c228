package asm

import (
	"fmt"
	"strings"

	"basic10/pkg/ic10"
)

// Instruction is one executable line of IC10 text.
type Instruction struct {
	Line int // 0-based line in the text
	Op   string
	Args []string
}

// Source is parsed IC10 text. Every text line keeps its index so jump
// targets stay line numbers.
type Source struct {
	Lines        int
	Instructions map[int]Instruction
	Labels       map[string]int
}

// Parse reads IC10 text. Labels resolve to their own line, which executes
// as a no-op.
func Parse(code string) (*Source, error) {
	code = strings.TrimSuffix(code, "\n")
	raw := strings.Split(code, "\n")
	src := &Source{
		Lines:        len(raw),
		Instructions: make(map[int]Instruction),
		Labels:       make(map[string]int),
	}
	if code == "" {
		src.Lines = 0
		return src, nil
	}
	for i, line := range raw {
		fields := strings.Fields(stripComments(line))
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 && strings.HasSuffix(fields[0], ":") {
			name := strings.TrimSuffix(fields[0], ":")
			if !isIdentifier(name) {
				return nil, fmt.Errorf("invalid label on line %d", i)
			}
			if _, exists := src.Labels[name]; exists {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", name, i)
			}
			src.Labels[name] = i
			continue
		}
		op := strings.ToLower(fields[0])
		spec, ok := ic10.Lookup(op)
		if !ok {
			return nil, fmt.Errorf("unknown instruction %q on line %d", fields[0], i)
		}
		if len(fields)-1 != spec.Operands {
			return nil, fmt.Errorf("%s expects %d operands, got %d on line %d", op, spec.Operands, len(fields)-1, i)
		}
		src.Instructions[i] = Instruction{Line: i, Op: op, Args: fields[1:]}
	}
	return src, nil
}

// CountInstructions counts the lines of code that are neither blank nor
// comments.
func CountInstructions(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(stripComments(line)) != "" {
			n++
		}
	}
	return n
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
