package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func parseSource(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return prog
}

func stmtStrings(stmts []Stmt) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.String()
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Declarations",
			input:    "VAR x = 5\nx += 2\nLET y = x",
			expected: []string{"Let(x ASSIGN 5)", "Let(x PLUS_ASSIGN 2)", "Let(y ASSIGN x)"},
		},
		{
			name:     "Multiplication Binds Tighter",
			input:    "x = 1 + 2 * 3",
			expected: []string{"Let(x ASSIGN (1 PLUS (2 STAR 3)))"},
		},
		{
			name:     "Power Is Right Associative",
			input:    "x = 2 ^ 3 ^ 2",
			expected: []string{"Let(x ASSIGN (2 CARET (3 CARET 2)))"},
		},
		{
			name:     "NOT Wraps Comparison",
			input:    "x = NOT a = b AND c",
			expected: []string{"Let(x ASSIGN ((NOT (a EQUALS b)) AND c))"},
		},
		{
			name:     "AND Binds Tighter Than OR",
			input:    "x = a OR b AND c",
			expected: []string{"Let(x ASSIGN (a OR (b AND c)))"},
		},
		{
			name:     "Shift Below Additive",
			input:    "x = 1 << 2 + 1",
			expected: []string{"Let(x ASSIGN (1 SHL_OP (2 PLUS 1)))"},
		},
		{
			name:     "Negative Literal And Negation",
			input:    "x = -5\ny = a - -b",
			expected: []string{"Let(x ASSIGN -5)", "Let(y ASSIGN (a MINUS (MINUS b)))"},
		},
		{
			name:     "MOD And IIF",
			input:    "x = IIF(a MOD 3 > 1, 2, 3)",
			expected: []string{"Let(x ASSIGN IIF(((a MOD 3) GREATER 1), 2, 3))"},
		},
		{
			name:     "Hash",
			input:    `x = HASH("StructureGasSensor")`,
			expected: []string{`Let(x ASSIGN HASH("StructureGasSensor"))`},
		},
		{
			name:     "Arrays",
			input:    "DIM v(10)\nv(2) = 7\nx = v[2]",
			expected: []string{"Dim(v[10])", "Let(v[2] ASSIGN 7)", "Let(x ASSIGN v[2])"},
		},
		{
			name:     "Constants",
			input:    "CONST MAX = 10\nDEFINE LIMIT 5",
			expected: []string{"Const(MAX = 10)", "Define(LIMIT = 5)"},
		},
		{
			name: "Aliases",
			input: "ALIAS sensor d0\n" +
				`ALIAS gas = IC.Device["StructureGasSensor"].Name["Main"]` + "\n" +
				"ALIAS radio = d1.Channel[2]\n" +
				`DEVICE pumps "StructureVolumePump"` + "\n" +
				"ALIAS self = THIS\n" +
				"ALIAS far = IC.ID[12345]",
			expected: []string{
				"Alias(sensor = d0)",
				`Alias(gas = IC.Device["StructureGasSensor"].Name["Main"])`,
				"Alias(radio = d1.Channel[2])",
				`Alias(pumps = IC.Device["StructureVolumePump"])`,
				"Alias(self = db)",
				"Alias(far = IC.ID[12345])",
			},
		},
		{
			name:  "Device Reads",
			input: "x = sensor.Temperature\ny = gas.Pressure.Max\nw = sorter.Slot[0].Occupied\nm = d1.Memory[3]",
			expected: []string{
				"Let(x ASSIGN sensor.Temperature)",
				"Let(y ASSIGN gas.Pressure.Maximum)",
				"Let(w ASSIGN sorter.Slot[0].Occupied)",
				"Let(m ASSIGN d1.Memory[3])",
			},
		},
		{
			name:  "Device Writes",
			input: "sensor.On = 1\nsorter.Slot[1].Lock = 0\nd1.Memory[3] = 7\nTHIS.Setting = 2",
			expected: []string{
				"DeviceWrite(sensor.On = 1)",
				"SlotWrite(sorter[1].Lock = 0)",
				"MemoryWrite(d1[3] = 7)",
				"DeviceWrite(db.Setting = 2)",
			},
		},
		{
			name: "Batch Access",
			input: `BATCHWRITE(HASH("StructureWallLight"), On, 1)` + "\n" +
				`x = BATCHREAD(HASH("StructureBattery"), Charge, Sum)`,
			expected: []string{
				`BatchWrite(HASH("StructureWallLight"), <nil>, On = 1)`,
				`Let(x ASSIGN BATCHREAD(HASH("StructureBattery"), Charge, 1))`,
			},
		},
		{
			name:     "Single Line IF",
			input:    "IF a > 1 THEN PRINT a ELSE PRINT 0",
			expected: []string{"If((a GREATER 1), then=1, else=1)"},
		},
		{
			name:     "THEN Line Number",
			input:    "IF x THEN 100",
			expected: []string{"If(x, then=1, else=0)"},
		},
		{
			name:     "FOR With Step",
			input:    "FOR i = 1 TO 10 STEP 2\nPRINT i\nNEXT i",
			expected: []string{"For(i = 1 to 10 step 2, body=1)"},
		},
		{
			name:     "WHILE",
			input:    "WHILE a < 3\na += 1\nWEND",
			expected: []string{"While((a LESS 3), body=1)"},
		},
		{
			name:     "END WHILE",
			input:    "WHILE a < 3\na += 1\nEND WHILE",
			expected: []string{"While((a LESS 3), body=1)"},
		},
		{
			name:     "DO LOOP UNTIL",
			input:    "DO\na += 1\nLOOP UNTIL a >= 5",
			expected: []string{"DoLoop((a GREATER_EQ 5), until=true, first=false, body=1)"},
		},
		{
			name:     "DO WHILE LOOP",
			input:    "DO WHILE a\nYIELD\nLOOP",
			expected: []string{"DoLoop(a, until=false, first=true, body=1)"},
		},
		{
			name:     "SELECT CASE",
			input:    "SELECT CASE a\nCASE 1, 2\nPRINT 1\nCASE ELSE\nPRINT 0\nEND SELECT",
			expected: []string{"Select(a, cases=1, default=1)"},
		},
		{
			name:     "SUB",
			input:    "SUB Greet(a, b)\nPRINT a\nEND SUB",
			expected: []string{"Sub(Greet(a, b), body=1)"},
		},
		{
			name:     "FUNCTION",
			input:    "FUNCTION Double(n)\nRETURN n * 2\nEND FUNCTION",
			expected: []string{"Function(Double(n), body=1)"},
		},
		{
			name:     "ON GOTO",
			input:    "ON a GOTO first, 20",
			expected: []string{"On(a, gosub=false, [first 20])"},
		},
		{
			name:     "Labels And Jumps",
			input:    "start:\nGOTO start\nGOSUB 100\nRETURN",
			expected: []string{"Label(start)", "Goto(start)", "Gosub(100)", "Return(<nil>)"},
		},
		{
			name:     "Line Numbers",
			input:    "10 PRINT 1\n20 GOTO 10",
			expected: []string{"LineNumber(10)", "Print(1)", "LineNumber(20)", "Goto(10)"},
		},
		{
			name:     "Stack And Timing",
			input:    "PUSH 5\nPOP x\nPEEK y\nYIELD\nSLEEP 2\nINPUT z\nEND",
			expected: []string{"Push(5)", "Pop(x)", "Peek(y)", "Yield", "Sleep(2)", "Input(z)", "End"},
		},
		{
			name:     "DATA",
			input:    "DATA 1, 2, 3\nREAD a, b\nRESTORE",
			expected: []string{"Data(1, 2, 3)", "Read(a, b)", "Restore"},
		},
		{
			name:     "Increments",
			input:    "x++\n--y",
			expected: []string{"IncDec(x PLUS_PLUS)", "IncDec(y MINUS_MINUS)"},
		},
		{
			name:     "Calls",
			input:    "CALL Greet(1)\nGreet",
			expected: []string{"Call(Greet(1))", "Call(Greet())"},
		},
		{
			name:     "Comments",
			input:    "# note\n## keep",
			expected: []string{`Comment(" note")`, `Comment(" keep")`},
		},
		{
			name:     "Colon Separated",
			input:    "PRINT 1: PRINT 2",
			expected: []string{"Print(1)", "Print(2)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseSource(t, tt.input)
			got := stmtStrings(prog.Statements)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q)\n got: %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseElseIfChain(t *testing.T) {
	src := `IF a THEN
  x = 1
ELSEIF b THEN
  x = 2
ELSE
  x = 3
ENDIF`
	prog := parseSource(t, src)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	outer, ok := prog.Statements[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected *IfStmt, got %T", prog.Statements[0])
	}
	if len(outer.Then) != 1 || len(outer.Else) != 1 {
		t.Fatalf("outer IF: then=%d else=%d", len(outer.Then), len(outer.Else))
	}
	inner, ok := outer.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("ELSEIF should nest an *IfStmt, got %T", outer.Else[0])
	}
	if inner.Cond.String() != "b" {
		t.Errorf("inner condition = %s", inner.Cond)
	}
	if got := stmtStrings(inner.Else); !reflect.DeepEqual(got, []string{"Let(x ASSIGN 3)"}) {
		t.Errorf("inner else = %q", got)
	}
}

func TestParseHybridIf(t *testing.T) {
	src := "IF a THEN x = 1\nELSE\nx = 2\nENDIF\nPRINT x"
	prog := parseSource(t, src)
	got := stmtStrings(prog.Statements)
	want := []string{"If(a, then=1, else=1)", "Print(x)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseNestedSingleLineIf(t *testing.T) {
	// The ELSE belongs to the enclosing block IF, not the single-line one.
	src := "IF a THEN\nIF b THEN x = 1\nELSE\nx = 2\nENDIF"
	prog := parseSource(t, src)
	outer := prog.Statements[0].(*IfStmt)
	if len(outer.Then) != 1 || len(outer.Else) != 1 {
		t.Fatalf("outer IF: then=%d else=%d", len(outer.Then), len(outer.Else))
	}
	if inner := outer.Then[0].(*IfStmt); len(inner.Else) != 0 {
		t.Errorf("inner IF should have no ELSE, got %d", len(inner.Else))
	}
}

func TestParseLineIndex(t *testing.T) {
	prog := parseSource(t, "10 PRINT 1\n20 GOTO 10")
	want := map[int]int{10: 0, 20: 2}
	if !reflect.DeepEqual(prog.LineIndex, want) {
		t.Errorf("LineIndex = %v, want %v", prog.LineIndex, want)
	}
}

func TestParseStatementLines(t *testing.T) {
	prog := parseSource(t, "VAR a = 1\n\nPRINT a")
	if got := prog.Statements[1].SourceLine(); got != 3 {
		t.Errorf("PRINT should be on line 3, got %d", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		message string
	}{
		{"Unclosed FOR", "FOR i = 1 TO 3\nPRINT i", 1, "incomplete FOR construct"},
		{"NEXT Without FOR", "NEXT", 1, "NEXT without FOR"},
		{"Unclosed IF", "IF a THEN\nPRINT a", 1, "incomplete IF construct"},
		{"Nested SUB", "SUB A\nSUB B\nEND SUB\nEND SUB", 2, "cannot be nested"},
		{"Missing Paren", "x = (1 + 2", 1, "expected ')'"},
		{"Duplicate Line Number", "10 PRINT 1\n10 PRINT 2", 2, "duplicate line number 10"},
		{"VAR Without Name", "VAR 5", 1, "expected variable name after VAR"},
		{"Stray END SUB", "WHILE 1\nEND SUB", 2, "END SUB without SUB"},
		{"Two DO Tests", "DO WHILE a\nLOOP UNTIL b", 2, "both ends"},
		{"Mismatched NEXT", "FOR i = 1 TO 2\nNEXT j", 2, "NEXT j does not match FOR i"},
		{"Bad Pin", "ALIAS s = IC.Pin[9]", 1, "IC.Pin index"},
		{"Trailing Garbage", "PRINT 1 2", 1, "expected end of statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			_, err = Parse(tokens, tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
			}
			if synErr.Pos.Line != tt.line {
				t.Errorf("expected error on line %d, got %d (%v)", tt.line, synErr.Pos.Line, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.message)
			}
		})
	}
}

func TestSyntaxErrorSnippet(t *testing.T) {
	src := "VAR a = 1\nFOR i = 1 TO 3\nPRINT i"
	tokens, _ := Lex(src)
	_, err := Parse(tokens, src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "|> FOR i = 1 TO 3") {
		t.Errorf("error should quote the offending line, got %q", err.Error())
	}
}
