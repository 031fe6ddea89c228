package compiler

import (
	"strings"
	"testing"
)

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "IF ELSE",
			src:  "VAR a = 1\nVAR b = 2\nVAR x = 0\nIF a > b THEN\n  x = 1\nELSE\n  x = 2\nENDIF\nPRINT x",
			want: []string{
				"move r0 1",
				"move r1 2",
				"move r2 0",
				"ble r0 r1 6",
				"move r2 1",
				"j 7",
				"move r2 2",
				"s db Setting r2",
			},
		},
		{
			name: "Single Line IF ENDIF",
			src:  "VAR a = 1\nVAR b = 2\nVAR x = 0\nIF a > b THEN x = 1 ENDIF",
			want: []string{"move r0 1", "move r1 2", "move r2 0", "ble r0 r1 5", "move r2 1"},
		},
		{
			name: "Single Line IF END IF",
			src:  "VAR a = 1\nVAR b = 2\nVAR x = 0\nIF a > b THEN x = 1 END IF\nPRINT x",
			want: []string{"move r0 1", "move r1 2", "move r2 0", "ble r0 r1 5", "move r2 1", "s db Setting r2"},
		},
		{
			name: "Single Line AND ENDIF",
			src:  "VAR a = 1\nVAR b = 2\nVAR c = 3\nVAR d = 4\nVAR x = 0\nIF a > b AND c < d THEN x = 1 ENDIF",
			want: []string{
				"move r0 1",
				"move r1 2",
				"move r2 3",
				"move r3 4",
				"move r4 0",
				"ble r0 r1 8",
				"bge r2 r3 8",
				"move r4 1",
			},
		},
		{
			name: "Single Line ELSE ENDIF",
			src:  "VAR a = 1\nVAR b = 2\nVAR x = 0\nIF a > b THEN x = 1 ELSE x = 2 ENDIF",
			want: []string{"move r0 1", "move r1 2", "move r2 0", "ble r0 r1 6", "move r2 1", "j 7", "move r2 2"},
		},
		{
			name: "Keyword Spelled Label",
			src:  "loop:\nYIELD\nGOTO loop",
			want: []string{"loop:", "yield", "j loop"},
		},
		{
			name: "Label Named loop Beside DO LOOP",
			src:  "VAR i = 0\nloop:\nDO\n  i += 1\nLOOP UNTIL i >= 5\nIF i < 10 THEN GOTO loop",
			want: []string{"move r0 0", "loop:", "add r0 r0 1", "blt r0 5 2", "blt r0 10 loop"},
		},
		{
			name: "AND Chains Branches",
			src:  "VAR a = 1\nVAR b = 2\nIF a > 0 AND b < 5 THEN PRINT 1\nPRINT 0",
			want: []string{"move r0 1", "move r1 2", "blez r0 5", "bge r1 5 5", "s db Setting 1", "s db Setting 0"},
		},
		{
			name: "OR Chains Branches",
			src:  "VAR a = 1\nVAR b = 2\nIF a = 1 OR b = 2 THEN PRINT 1\nPRINT 0",
			want: []string{"move r0 1", "move r1 2", "beq r0 1 4", "bne r1 2 5", "s db Setting 1", "s db Setting 0"},
		},
		{
			name: "IF GOTO Is One Branch",
			src:  "VAR i = 0\nstart:\ni += 1\nIF i < 10 THEN GOTO start",
			want: []string{"move r0 0", "start:", "add r0 r0 1", "blt r0 10 start"},
		},
		{
			name: "NOT Flips The Branch",
			src:  "VAR a = 0\nIF NOT a THEN PRINT 1",
			want: []string{"move r0 0", "bnez r0 3", "s db Setting 1"},
		},
		{
			name: "Constant False Condition",
			src:  "IF 0 THEN PRINT 1\nPRINT 2",
			want: []string{"j 2", "s db Setting 1", "s db Setting 2"},
		},
		{
			name: "Constant True Condition",
			src:  "IF 1 THEN PRINT 1",
			want: []string{"s db Setting 1"},
		},
		{
			name: "WHILE",
			src:  "VAR i = 0\nWHILE i < 10\n  i += 1\nWEND",
			want: []string{"move r0 0", "bge r0 10 4", "add r0 r0 1", "j 1"},
		},
		{
			name: "DO LOOP UNTIL",
			src:  "VAR i = 0\nDO\n  i += 1\nLOOP UNTIL i >= 5",
			want: []string{"move r0 0", "add r0 r0 1", "blt r0 5 1"},
		},
		{
			name: "BREAK",
			src:  "VAR i = 0\nDO\n  i += 1\n  IF i > 3 THEN BREAK\nLOOP\nPRINT i",
			want: []string{"move r0 0", "add r0 r0 1", "bgt r0 3 4", "j 1", "s db Setting r0"},
		},
		{
			name: "FOR",
			src:  "FOR i = 1 TO 3\n  PRINT i\nNEXT",
			want: []string{"move r0 1", "bgt r0 3 5", "s db Setting r0", "add r0 r0 1", "j 1"},
		},
		{
			name: "FOR Negative STEP",
			src:  "FOR i = 10 TO 0 STEP -2\n  PRINT i\nNEXT i",
			want: []string{"move r0 10", "bltz r0 5", "s db Setting r0", "add r0 r0 -2", "j 1"},
		},
		{
			name: "FOR Runtime STEP",
			src:  "VAR s = 2\nFOR i = 0 TO 10 STEP s\nNEXT",
			want: []string{
				"move r0 2",
				"move r1 0",
				"sub r14 r1 10",
				"mul r14 r14 r0",
				"bgtz r14 7",
				"add r1 r1 r0",
				"j 2",
			},
		},
		{
			name: "CONTINUE",
			src:  "FOR i = 1 TO 5\n  IF i = 3 THEN CONTINUE\n  PRINT i\nNEXT",
			want: []string{"move r0 1", "bgt r0 5 6", "beq r0 3 4", "s db Setting r0", "add r0 r0 1", "j 1"},
		},
		{
			name: "SELECT CASE",
			src:  "VAR x = 2\nSELECT CASE x\nCASE 1, 2\n  PRINT 1\nCASE 3\n  PRINT 3\nCASE ELSE\n  PRINT 0\nEND SELECT",
			want: []string{
				"move r0 2",
				"beq r0 1 5",
				"beq r0 2 5",
				"beq r0 3 7",
				"j 9",
				"s db Setting 1",
				"j 10",
				"s db Setting 3",
				"j 10",
				"s db Setting 0",
			},
		},
		{
			name: "GOSUB",
			src:  "GOSUB work\nEND\nwork:\nPRINT 1\nRETURN",
			want: []string{"jal work", "j 5", "work:", "s db Setting 1", "j ra"},
		},
		{
			name: "ON GOTO",
			src:  "VAR a = 2\nON a GOTO first, second\nfirst:\nPRINT 1\nsecond:\nPRINT 2",
			want: []string{"move r0 2", "beq r0 1 first", "beq r0 2 second", "first:", "s db Setting 1", "second:", "s db Setting 2"},
		},
		{
			name: "ON GOSUB",
			src:  "VAR a = 2\nON a GOSUB first, second\nEND\nfirst:\nRETURN\nsecond:\nRETURN",
			want: []string{"move r0 2", "beqal r0 1 first", "beqal r0 2 second", "j 8", "first:", "j ra", "second:", "j ra"},
		},
		{
			name: "ON GOSUB Keeps Computed Selector",
			src:  "VAR a = 1\nON a + 1 GOSUB first, second\nEND\nfirst:\nRETURN\nsecond:\nRETURN",
			want: []string{
				"move r0 1",
				"add r1 r0 1",
				"push r1",
				"beqal r1 1 first",
				"peek r1",
				"beqal r1 2 second",
				"pop r1",
				"j 12",
				"first:",
				"j ra",
				"second:",
				"j ra",
			},
		},
		{
			name: "Line Number GOTO",
			src:  "10 x = 1\n20 GOTO 10",
			want: []string{"move r0 1", "j 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.src, tt.want...)
		})
	}
}

func TestRoutines(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "SUB",
			src:  "CALL Greet()\nSUB Greet\n  PRINT 1\nEND SUB",
			want: []string{"jal 2", "j 4", "s db Setting 1", "j ra"},
		},
		{
			name: "FUNCTION",
			src:  "VAR x = Double(4)\nPRINT x\nFUNCTION Double(n)\n  RETURN n * 2\nEND FUNCTION",
			want: []string{"move r1 4", "jal 5", "move r0 r15", "s db Setting r0", "j 7", "mul r15 r1 2", "j ra"},
		},
		{
			name: "Nested Calls Save ra",
			src:  "CALL A()\nSUB A\n  CALL B()\nEND SUB\nSUB B\n  YIELD\nEND SUB",
			want: []string{"jal 2", "j 8", "push ra", "jal 6", "pop ra", "j ra", "yield", "j ra"},
		},
		{
			name: "Arguments Do Not Clobber Parameters",
			src:  "VAR x = 1\nVAR y = 2\nCALL Swap(y, x)\nSUB Swap(x, y)\n  VAR d = x - y\n  PRINT d\nEND SUB",
			want: []string{
				"move r0 1",
				"move r1 2",
				"move r2 r0",
				"move r0 r1",
				"move r1 r2",
				"jal 7",
				"j 10",
				"sub r2 r0 r1",
				"s db Setting r2",
				"j ra",
			},
		},
		{
			name: "Temporaries Survive Calls",
			src:  "VAR a = 2\nVAR x = a * 3 + Twice(a)\nFUNCTION Twice(n)\n  RETURN n * 2\nEND FUNCTION",
			want: []string{
				"move r0 2",
				"mul r2 r0 3",
				"move r4 r0",
				"push r2",
				"jal 9",
				"pop r2",
				"move r3 r15",
				"add r1 r2 r3",
				"j 11",
				"mul r15 r4 2",
				"j ra",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.src, tt.want...)
		})
	}
}

func TestUnusedRoutineIsLeftOut(t *testing.T) {
	res := compileOK(t, "PRINT 1\nSUB Unused\n  YIELD\nEND SUB")
	if got := codeLines(t, res); len(got) != 1 || got[0] != "s db Setting 1" {
		t.Errorf("unexpected code:\n%s", res.Code)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %q", res.Warnings)
	}
	assertContains(t, res.Warnings[0], "line 2: SUB Unused is never called and was left out")
}

func TestRoutineReachableOnlyFromRoutineIsKept(t *testing.T) {
	res := compileOK(t, "CALL A()\nSUB A\n  CALL B()\nEND SUB\nSUB B\n  YIELD\nEND SUB")
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %q", res.Warnings)
	}
	assertContains(t, res.Code, "yield\n")
}

func TestSingleLineIFBranchCount(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		branches int
	}{
		{"Comparison", "VAR a = 1\nVAR b = 2\nVAR x = 0\nIF a > b THEN x = 1 ENDIF", 1},
		{"AND", "VAR a = 1\nVAR b = 2\nVAR c = 3\nVAR d = 4\nVAR x = 0\nIF a > b AND c < d THEN x = 1 ENDIF", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branches := 0
			for _, line := range codeLines(t, compileOK(t, tt.src)) {
				op := strings.Fields(line)[0]
				if op == "and" || op == "sgt" || op == "slt" {
					t.Errorf("condition materialized a boolean: %s", line)
				}
				if op[0] == 'b' {
					branches++
				}
			}
			if branches != tt.branches {
				t.Errorf("got %d branches, want %d", branches, tt.branches)
			}
		})
	}
}
