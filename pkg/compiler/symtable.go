package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// SymbolKind classifies a name declared by the program.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolAlias
	SymbolLabel
	SymbolSubroutine
	SymbolFunction
	SymbolDefine
	SymbolConstant
)

var symbolKindNames = [...]string{"Variable", "Alias", "Label", "Subroutine", "Function", "Define", "Constant"}

func (k SymbolKind) String() string { return symbolKindNames[k] }

// Symbol is one declaration and the BASIC line it first appears on.
type Symbol struct {
	Name string
	Line int
	Kind SymbolKind
}

// SymbolTable records every declared name. The first declaration of a name
// wins; later assignments do not move it.
type SymbolTable struct {
	defs map[string]Symbol

	// Registers maps variables to the register they were bound to.
	Registers map[string]string
	// Devices maps aliases to the device they address.
	Devices map[string]string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		defs:      make(map[string]Symbol),
		Registers: make(map[string]string),
		Devices:   make(map[string]string),
	}
}

// Define records name unless it is already known. It reports whether the
// name was new.
func (s *SymbolTable) Define(name string, line int, kind SymbolKind) bool {
	if _, ok := s.defs[name]; ok {
		return false
	}
	s.defs[name] = Symbol{Name: name, Line: line, Kind: kind}
	return true
}

func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	sym, ok := s.defs[name]
	return sym, ok
}

// All returns every symbol ordered by line, then name.
func (s *SymbolTable) All() []Symbol {
	out := make([]Symbol, 0, len(s.defs))
	for _, sym := range s.defs {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// names returns the declared names of the given kinds, for suggestions.
func (s *SymbolTable) names(kinds ...SymbolKind) []string {
	var out []string
	for name, sym := range s.defs {
		for _, k := range kinds {
			if sym.Kind == k {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.defs) == 0 {
		sb.WriteString("Symbols: (empty)\n")
		return sb.String()
	}
	sb.WriteString("Symbols:\n")
	for _, sym := range s.All() {
		extra := ""
		switch sym.Kind {
		case SymbolVariable:
			if r, ok := s.Registers[sym.Name]; ok {
				extra = " -> " + r
			}
		case SymbolAlias:
			extra = " -> " + s.Devices[sym.Name]
		}
		fmt.Fprintf(&sb, "  %-20s  %-10s line %d%s\n", sym.Name, sym.Kind, sym.Line, extra)
	}
	return sb.String()
}

// suggest returns the candidate closest to name by edit distance, or "" if
// none is close enough to be a likely typo.
func suggest(name string, candidates []string) string {
	limit := 2
	if len(name) <= 2 {
		limit = 1
	}
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := editDistance(strings.ToLower(name), strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
