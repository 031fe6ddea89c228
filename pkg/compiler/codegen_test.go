package compiler

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestCodegenExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "Constants Fold Into Moves",
			src:  "CONST LIMIT = 10 * 2\nVAR x = LIMIT + 1\nPRINT x",
			want: []string{"move r0 21", "s db Setting r0"},
		},
		{
			name: "Built-ins Fold",
			src:  "VAR x = ABS(-3) + MAX(2, 7)",
			want: []string{"move r0 10"},
		},
		{
			name: "Literal Operands",
			src:  "PRINT 1 + 2",
			want: []string{"s db Setting 3"},
		},
		{
			name: "Compound Assignment And Increments",
			src:  "VAR i = 0\ni += 2\ni++\ni--\ni *= 3",
			want: []string{"move r0 0", "add r0 r0 2", "add r0 r0 1", "sub r0 r0 1", "mul r0 r0 3"},
		},
		{
			name: "Unary Operators",
			src:  "VAR a = 2\nVAR b = -a\nVAR c = NOT a\nVAR d = ~a",
			want: []string{"move r0 2", "sub r1 0 r0", "seqz r2 r0", "not r3 r0"},
		},
		{
			name: "Comparison With Zero",
			src:  "VAR a = 2\nVAR b = a > 0\nVAR c = 0 < a\nVAR d = a <= 4",
			want: []string{"move r0 2", "sgtz r1 r0", "sgtz r2 r0", "sle r3 r0 4"},
		},
		{
			name: "Logical Values Are Normalized",
			src:  "VAR a = 1\nVAR b = 2\nVAR c = a AND b",
			want: []string{"move r0 1", "move r1 2", "snez r3 r0", "snez r4 r1", "and r2 r3 r4"},
		},
		{
			name: "Comparisons Need No Normalizing",
			src:  "VAR a = 1\nVAR c = a > 1 OR a < 0",
			want: []string{"move r0 1", "sgt r2 r0 1", "sltz r3 r0", "or r1 r2 r3"},
		},
		{
			name: "Power",
			src:  "VAR a = 3\nVAR b = a ^ 2\nVAR c = a ^ b",
			want: []string{"move r0 3", "mul r1 r0 r0", "log r14 r0", "mul r14 r14 r1", "exp r2 r14"},
		},
		{
			name: "Nested Arithmetic Uses Temporaries",
			src:  "VAR a = 1\nVAR b = 2\nVAR c = (a + b) * (a - b)",
			want: []string{"move r0 1", "move r1 2", "add r3 r0 r1", "sub r4 r0 r1", "mul r2 r3 r4"},
		},
		{
			name: "Bitwise And Shifts",
			src:  "VAR a = 6\nVAR b = a & 3\nVAR c = a << 2\nVAR d = BXOR(a, 1)",
			want: []string{"move r0 6", "and r1 r0 3", "sll r2 r0 2", "xor r3 r0 1"},
		},
		{
			name: "IIF",
			src:  "VAR a = 1\nVAR b = IIF(a > 0, 10, 20)",
			want: []string{"move r0 1", "sgtz r2 r0", "select r1 r2 10 20"},
		},
		{
			name: "Runtime Built-ins",
			src:  "VAR a = 2\nVAR b = SQRT(a)\nVAR c = MIN(a, b)\nVAR d = RND()",
			want: []string{"move r0 2", "sqrt r1 r0", "min r2 r0 r1", "rand r3"},
		},
		{
			name: "Hand Lowered Built-ins",
			src:  "VAR a = -2\nVAR s = SGN(a)\nVAR c = CLAMP(a, 0, 10)",
			want: []string{"move r0 -2", "sltz r14 r0", "sgtz r1 r0", "sub r1 r1 r14", "max r14 r0 0", "min r2 r14 10"},
		},
		{
			name: "LERP And INRANGE",
			src:  "VAR a = 1\nVAR l = LERP(a, 10, 0.5)\nVAR r = INRANGE(a, 0, 5)",
			want: []string{"move r0 1", "sub r14 10 r0", "mul r14 r14 0.5", "add r1 r0 r14", "sge r14 r0 0", "sle r2 r0 5", "and r2 r2 r14"},
		},
		{
			name: "Strings Are Hashes",
			src:  `VAR h = "Autolathe"`,
			want: []string{"move r0 914975607"},
		},
		{
			name: "Built-in Constants",
			src:  "VAR c = RED\nVAR t = TRUE",
			want: []string{"move r0 4", "move r1 1"},
		},
		{
			name: "Postfix Increment In Expression",
			src:  "VAR i = 1\nVAR j = i++",
			want: []string{"move r0 1", "move r1 r0", "add r0 r0 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.src, tt.want...)
		})
	}
}

func TestCodegenStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "Arrays",
			src:  "DIM v(4)\nVAR i = 1\nv(2) = 7\nv(i) = 8\nVAR x = v(i)",
			want: []string{"move r0 1", "put db 510 7", "add r14 r0 508", "put db r14 8", "add r14 r0 508", "get r1 db r14"},
		},
		{
			name: "Array Brackets",
			src:  "DIM v[2]\nv[1] = 3\nPRINT v[1]",
			want: []string{"put db 511 3", "get r0 db 511", "s db Setting r0"},
		},
		{
			name: "Stack",
			src:  "PUSH 5\nPOP x\nPEEK x",
			want: []string{"push 5", "pop r0", "peek r0"},
		},
		{
			name: "Timing",
			src:  "SLEEP 2\nYIELD",
			want: []string{"sleep 2", "yield"},
		},
		{
			name: "Input",
			src:  "INPUT x\nPRINT x",
			want: []string{"l r0 db Setting", "s db Setting r0"},
		},
		{
			name: "DATA And READ",
			src:  "DATA 10, 20\nREAD a\nREAD b\nRESTORE",
			want: []string{
				"put db 510 10",
				"put db 511 20",
				"move r0 510",
				"get r1 db r0",
				"add r0 r0 1",
				"get r2 db r0",
				"add r0 r0 1",
				"move r0 510",
			},
		},
		{
			name: "DATA Without READ Is Dropped",
			src:  "DATA 1, 2\nPRINT 3",
			want: []string{"s db Setting 3"},
		},
		{
			name: "Labels",
			src:  "loop:\nYIELD\nGOTO loop",
			want: []string{"loop:", "yield", "j loop"},
		},
		{
			name: "Line Numbers",
			src:  "10 x = 1\n20 GOTO 10",
			want: []string{"move r0 1", "j 0"},
		},
		{
			name: "END",
			src:  "PRINT 1\nEND\nPRINT 2",
			want: []string{"s db Setting 1", "j 3", "s db Setting 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.src, tt.want...)
		})
	}
}

func TestCodegenErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		kind     error
		fragment string
	}{
		{"Undeclared Variable", "VAR x = y", ErrUndeclared, "line 1: undeclared variable y"},
		{"Suggestion", "VAR count = 1\nPRINT cont", ErrUndeclared, "did you mean count?"},
		{"Unfoldable Constant", "VAR a = 1\nCONST B = a + 1\nPRINT B", ErrConstantFold, "cannot be evaluated at compile time"},
		{"Unknown Label", "start:\nGOTO strat", ErrUnknownLabel, "did you mean start?"},
		{"Missing Line Number", "GOTO 50", ErrUnknownLabel, "line number 50 does not exist"},
		{"BREAK Outside Loop", "BREAK", ErrOutsideLoop, "BREAK outside"},
		{"CONTINUE Outside Loop", "CONTINUE", ErrOutsideLoop, "CONTINUE outside"},
		{"CONTINUE In SELECT", "SELECT CASE 1\nCASE 1\nCONTINUE\nEND SELECT", ErrOutsideLoop, "CONTINUE outside"},
		{"Unknown Routine", "CALL Missing()", ErrUnknownFunction, "unknown function Missing"},
		{"Unknown Function", "VAR x = Sqr(2)", ErrUnknownFunction, "unknown function Sqr"},
		{"Assign To Constant", "CONST A = 1\nA = 2", ErrInvalid, "cannot assign to constant A"},
		{"Assign To Alias", "ALIAS s d0\ns = 2", ErrInvalid, "cannot assign to device alias s"},
		{"Zero Step", "FOR i = 1 TO 5 STEP 0\nNEXT", ErrInvalid, "STEP 0"},
		{"Index Out Of Range", "DIM v(3)\nv(5) = 1", ErrInvalid, "out of range"},
		{"Bad Array Size", "DIM v(0)", ErrConstantFold, "positive whole constant"},
		{"Variable Used As Array", "VAR a = 1\na(1) = 2", ErrInvalid, "not an array"},
		{"Wrong Argument Count", "VAR x = MAX(1)", ErrInvalid, "MAX takes 2 arguments, got 1"},
		{"SUB Value", "VAR x = Go()\nSUB Go\nEND SUB", ErrInvalid, "does not return a value"},
		{"Call Arity", "CALL Go(1)\nSUB Go\nEND SUB", ErrInvalid, "Go takes 0 arguments, got 1"},
		{"Return Value From SUB", "CALL Go()\nSUB Go\nRETURN 1\nEND SUB", ErrInvalid, "cannot return a value"},
		{"Redeclared Constant", "CONST A = 1\nCONST A = 2", ErrInvalid, "already declared"},
		{"Duplicate Label", "a:\na:", ErrInvalid, "duplicate label a"},
		{"READ Without DATA", "READ a", ErrInvalid, "READ without any DATA"},
		{"Discarded Built-in", "ABS(1)", ErrInvalid, "the result of ABS must be used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, tt.src, tt.kind, tt.fragment)
		})
	}
}

func TestCodegenSpillsWhenRegistersRunOut(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 15; i++ {
		sb.WriteString("VAR v")
		sb.WriteString(string(rune('a' + i - 1)))
		sb.WriteString(" = 1\n")
	}
	sb.WriteString("PRINT va\n")
	res := compileOK(t, sb.String())
	lines := codeLines(t, res)

	// va and vb live in stack memory, every write goes straight back
	want := []string{"move r0 1", "put db 511 r0", "move r0 1", "put db 510 r0", "move r0 1"}
	if got := lines[:5]; !reflect.DeepEqual(got, want) {
		t.Errorf("homed writes = %q, want %q", got, want)
	}
	if lines[16] != "move r12 1" {
		t.Errorf("vo should end up in r12:\n%s", res.Code)
	}
	want = []string{"get r13 db 511", "s db Setting r13"}
	if got := lines[17:]; !reflect.DeepEqual(got, want) {
		t.Errorf("reload sequence = %q, want %q", got, want)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 spill warnings, got %q", res.Warnings)
	}
	assertContains(t, res.Warnings[0], "out of registers, va is kept in stack memory at 511")
	assertContains(t, res.Warnings[1], "out of registers, vb is kept in stack memory at 510")
}

// A variable first written inside a branch must not move another variable
// out of its register on one path only.
func TestCodegenSpillInsideBranchKeepsBindings(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 14; i++ {
		fmt.Fprintf(&sb, "VAR v%d = %d\n", i, 100+i)
	}
	sb.WriteString("VAR c = 0\nIF c = 1 THEN VAR w = 7 ENDIF\nPRINT v1\n")
	res := compileOK(t, sb.String())
	lines := codeLines(t, res)

	// only the homed variables are ever stored, each right after its write
	puts := 0
	for i, l := range lines {
		if strings.HasPrefix(l, "put ") {
			puts++
			if i >= 6 {
				t.Errorf("line %d stores after the prologue: %q", i, l)
			}
		}
	}
	if puts != 3 {
		t.Errorf("expected 3 stores, got %d:\n%s", puts, res.Code)
	}
	want := []string{"get r13 db 511", "s db Setting r13"}
	if got := lines[len(lines)-2:]; !reflect.DeepEqual(got, want) {
		t.Errorf("PRINT v1 = %q, want %q\n%s", got, want, res.Code)
	}
}

func TestCodegenSpillSlotsSitBelowArrays(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("DIM buf(2)\n")
	for i := 1; i <= 15; i++ {
		sb.WriteString("VAR v")
		sb.WriteString(string(rune('a' + i - 1)))
		sb.WriteString(" = 1\n")
	}
	res := compileOK(t, sb.String())
	assertContains(t, res.Code, "put db 509 r0\n")
}
