package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Layout
	NEWLINE    // end of a source line
	COLON      // : statement separator or label terminator
	LINENUMBER // integer at the start of a line, e.g. 10 PRINT x

	// Literals
	IDENTIFIER // variable, label, alias or function name
	NUMBER     // 42, 3.5, 0xFF, 0b1010, 1e3
	STRING     // "..."

	// Comments
	COMMENT      // # text
	META_COMMENT // ## text, always kept

	// Declarations
	LET    // "let"
	VAR    // "var"
	DIM    // "dim"
	CONST  // "const"
	DEFINE // "define"
	ALIAS  // "alias"
	DEVICE // "device"
	THIS   // "this", the chip housing

	// Conditionals
	IF      // "if"
	THEN    // "then"
	ELSE    // "else"
	ELSEIF  // "elseif"
	ENDIF   // "endif"
	SELECT  // "select"
	CASE    // "case"
	DEFAULT // "default"

	// Loops
	FOR      // "for"
	TO       // "to"
	STEP     // "step"
	NEXT     // "next"
	WHILE    // "while"
	WEND     // "wend" / "endwhile"
	DO       // "do"
	LOOP     // "loop"
	UNTIL    // "until"
	BREAK    // "break"
	CONTINUE // "continue"

	// Jumps and routines
	GOTO     // "goto"
	GOSUB    // "gosub"
	RETURN   // "return"
	ON       // "on"
	SUB      // "sub"
	FUNCTION // "function"
	CALL     // "call"
	END      // "end"

	// Runtime statements
	PRINT   // "print"
	INPUT   // "input"
	SLEEP   // "sleep"
	WAIT    // "wait"
	YIELD   // "yield"
	PUSH    // "push"
	POP     // "pop"
	PEEK    // "peek"
	DATA    // "data"
	READ    // "read"
	RESTORE // "restore"

	// Word operators
	AND // "and" / &&
	OR  // "or" / ||
	NOT // "not" / !
	XOR // "xor"
	MOD // "mod" / %

	// Arithmetic operators
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
	CARET  // ^ power
	AMP    // & bitwise and
	PIPE   // | bitwise or
	TILDE  // ~ bitwise not
	SHL_OP // <<
	SHR_OP // >>

	PLUS_PLUS   // ++
	MINUS_MINUS // --

	// Assignment / comparison
	ASSIGN       // = (also equality inside expressions)
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	STAR_ASSIGN  // *=
	SLASH_ASSIGN // /=

	EQUALS     // ==
	NOT_EQ     // <> or !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	DOT      // .
)

var tokenNames = [...]string{
	EOF:          "EOF",
	NEWLINE:      "NEWLINE",
	COLON:        "COLON",
	LINENUMBER:   "LINENUMBER",
	IDENTIFIER:   "IDENTIFIER",
	NUMBER:       "NUMBER",
	STRING:       "STRING",
	COMMENT:      "COMMENT",
	META_COMMENT: "META_COMMENT",
	LET:          "LET",
	VAR:          "VAR",
	DIM:          "DIM",
	CONST:        "CONST",
	DEFINE:       "DEFINE",
	ALIAS:        "ALIAS",
	DEVICE:       "DEVICE",
	THIS:         "THIS",
	IF:           "IF",
	THEN:         "THEN",
	ELSE:         "ELSE",
	ELSEIF:       "ELSEIF",
	ENDIF:        "ENDIF",
	SELECT:       "SELECT",
	CASE:         "CASE",
	DEFAULT:      "DEFAULT",
	FOR:          "FOR",
	TO:           "TO",
	STEP:         "STEP",
	NEXT:         "NEXT",
	WHILE:        "WHILE",
	WEND:         "WEND",
	DO:           "DO",
	LOOP:         "LOOP",
	UNTIL:        "UNTIL",
	BREAK:        "BREAK",
	CONTINUE:     "CONTINUE",
	GOTO:         "GOTO",
	GOSUB:        "GOSUB",
	RETURN:       "RETURN",
	ON:           "ON",
	SUB:          "SUB",
	FUNCTION:     "FUNCTION",
	CALL:         "CALL",
	END:          "END",
	PRINT:        "PRINT",
	INPUT:        "INPUT",
	SLEEP:        "SLEEP",
	WAIT:         "WAIT",
	YIELD:        "YIELD",
	PUSH:         "PUSH",
	POP:          "POP",
	PEEK:         "PEEK",
	DATA:         "DATA",
	READ:         "READ",
	RESTORE:      "RESTORE",
	AND:          "AND",
	OR:           "OR",
	NOT:          "NOT",
	XOR:          "XOR",
	MOD:          "MOD",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	STAR:         "STAR",
	SLASH:        "SLASH",
	CARET:        "CARET",
	AMP:          "AMP",
	PIPE:         "PIPE",
	TILDE:        "TILDE",
	SHL_OP:       "SHL_OP",
	SHR_OP:       "SHR_OP",
	PLUS_PLUS:    "PLUS_PLUS",
	MINUS_MINUS:  "MINUS_MINUS",
	ASSIGN:       "ASSIGN",
	PLUS_ASSIGN:  "PLUS_ASSIGN",
	MINUS_ASSIGN: "MINUS_ASSIGN",
	STAR_ASSIGN:  "STAR_ASSIGN",
	SLASH_ASSIGN: "SLASH_ASSIGN",
	EQUALS:       "EQUALS",
	NOT_EQ:       "NOT_EQ",
	LESS:         "LESS",
	GREATER:      "GREATER",
	LESS_EQ:      "LESS_EQ",
	GREATER_EQ:   "GREATER_EQ",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
	COMMA:        "COMMA",
	DOT:          "DOT",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isKeyword reports whether tt is one of the reserved words.
func (tt TokenType) isKeyword() bool {
	return tt >= LET && tt <= MOD
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Column int    // 1-based column of the first character
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}
