package asm

import (
	"reflect"
	"strings"
	"testing"

	"basic10/pkg/ic10"
)

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"abc1", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	if got := stripComments("add r0 r0 1 # bump"); got != "add r0 r0 1 " {
		t.Errorf("stripComments = %q", got)
	}
}

func TestAssembleResolvesInternalLabels(t *testing.T) {
	top := &ic10.Label{Name: "__L0", Kind: ic10.LabelInternal}
	end := &ic10.Label{Name: "__L1", Kind: ic10.LabelInternal}

	var p ic10.Program
	p.Emit(1, "move", ic10.Register(0), ic10.Immediate(0))
	p.Mark(2, top)
	p.Emit(2, "bge", ic10.Register(0), ic10.Immediate(10), ic10.LabelRef{Label: end})
	p.Emit(3, "add", ic10.Register(0), ic10.Register(0), ic10.Immediate(1))
	p.Emit(4, "j", ic10.LabelRef{Label: top})
	p.Mark(4, end)
	p.Emit(5, "s", ic10.Symbol("db"), ic10.Symbol("Setting"), ic10.Register(0))

	listing, err := Assemble(&p, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := []string{
		"move r0 0",
		"bge r0 10 4",
		"add r0 r0 1",
		"j 1",
		"s db Setting r0",
	}
	if !reflect.DeepEqual(listing.Lines, want) {
		t.Errorf("lines = %q; want %q", listing.Lines, want)
	}
	if listing.InstructionCount != 5 {
		t.Errorf("InstructionCount = %d; want 5", listing.InstructionCount)
	}
	if strings.Contains(listing.Code, "__L") {
		t.Errorf("internal label leaked into output:\n%s", listing.Code)
	}
}

func TestAssembleKeepsUserLabels(t *testing.T) {
	loop := &ic10.Label{Name: "loop", Kind: ic10.LabelUser}

	var p ic10.Program
	p.Comment(0, " header", true)
	p.Mark(1, loop)
	p.Emit(2, "yield")
	p.Emit(3, "j", ic10.LabelRef{Label: loop})

	listing, err := Assemble(&p, Options{})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := "# header\nloop:\nyield\nj loop\n"
	if listing.Code != want {
		t.Errorf("Code = %q; want %q", listing.Code, want)
	}
	// The comment is not counted; the label line is.
	if listing.InstructionCount != 3 {
		t.Errorf("InstructionCount = %d; want 3", listing.InstructionCount)
	}
	if got := listing.Labels["loop"]; got != 1 {
		t.Errorf("Labels[loop] = %d; want 1", got)
	}
}

func TestAssembleLineComments(t *testing.T) {
	var p ic10.Program
	p.Emit(7, "yield")
	p.Emit(0, "hcf")

	listing, err := Assemble(&p, Options{LineComments: true})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := []string{"yield # 7", "hcf"}
	if !reflect.DeepEqual(listing.Lines, want) {
		t.Errorf("lines = %q; want %q", listing.Lines, want)
	}
}

func TestAssembleErrors(t *testing.T) {
	dup := &ic10.Label{Name: "here", Kind: ic10.LabelUser}
	missing := &ic10.Label{Name: "nowhere", Kind: ic10.LabelUser}
	unplaced := &ic10.Label{Name: "__L9", Kind: ic10.LabelInternal}

	tests := []struct {
		name    string
		build   func(p *ic10.Program)
		wantErr string
	}{
		{"duplicate label", func(p *ic10.Program) {
			p.Mark(1, dup)
			p.Mark(2, dup)
		}, "duplicate label 'here'"},
		{"undefined label", func(p *ic10.Program) {
			p.Emit(1, "j", ic10.LabelRef{Label: missing})
		}, "undefined label 'nowhere'"},
		{"unplaced internal label", func(p *ic10.Program) {
			p.Emit(1, "j", ic10.LabelRef{Label: unplaced})
		}, "unplaced label"},
		{"unknown instruction", func(p *ic10.Program) {
			p.Emit(1, "jmp", ic10.Immediate(0))
		}, "unknown instruction"},
		{"operand count", func(p *ic10.Program) {
			p.Emit(1, "add", ic10.Register(0), ic10.Immediate(1))
		}, "expects 3 operands"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p ic10.Program
			tc.build(&p)
			_, err := Assemble(&p, Options{})
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q; want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestParse(t *testing.T) {
	code := "# Basic-10\nstart:\nmove r0 5 # five\n\nbgt r0 3 start\n"
	src, err := Parse(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if src.Lines != 5 {
		t.Errorf("Lines = %d; want 5", src.Lines)
	}
	if got := src.Labels["start"]; got != 1 {
		t.Errorf("Labels[start] = %d; want 1", got)
	}
	want := map[int]Instruction{
		2: {Line: 2, Op: "move", Args: []string{"r0", "5"}},
		4: {Line: 4, Op: "bgt", Args: []string{"r0", "3", "start"}},
	}
	if !reflect.DeepEqual(src.Instructions, want) {
		t.Errorf("Instructions = %+v; want %+v", src.Instructions, want)
	}

	if _, err := Parse("move r0"); err == nil {
		t.Error("expected operand count error")
	}
	if _, err := Parse("frobnicate r0"); err == nil {
		t.Error("expected unknown instruction error")
	}
}

func TestCountInstructions(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"", 0},
		{"# only a comment\n", 0},
		{"loop:\nyield\nj loop\n", 3},
		{"move r0 1 # trailing\n\n   \n# c\nhcf\n", 2},
	}
	for _, tc := range tests {
		if got := CountInstructions(tc.code); got != tc.want {
			t.Errorf("CountInstructions(%q) = %d; want %d", tc.code, got, tc.want)
		}
	}
}
