package compiler

import (
	"fmt"
	"strings"
	"unicode"
)

// keywords maps upper-cased source text to its keyword TokenType. Keywords
// are case-insensitive; anything not listed is an IDENTIFIER.
var keywords = map[string]TokenType{
	"LET":      LET,
	"VAR":      VAR,
	"DIM":      DIM,
	"CONST":    CONST,
	"DEFINE":   DEFINE,
	"ALIAS":    ALIAS,
	"DEVICE":   DEVICE,
	"THIS":     THIS,
	"IF":       IF,
	"THEN":     THEN,
	"ELSE":     ELSE,
	"ELSEIF":   ELSEIF,
	"ENDIF":    ENDIF,
	"SELECT":   SELECT,
	"CASE":     CASE,
	"DEFAULT":  DEFAULT,
	"FOR":      FOR,
	"TO":       TO,
	"STEP":     STEP,
	"NEXT":     NEXT,
	"WHILE":    WHILE,
	"WEND":     WEND,
	"ENDWHILE": WEND,
	"DO":       DO,
	"LOOP":     LOOP,
	"UNTIL":    UNTIL,
	"BREAK":    BREAK,
	"CONTINUE": CONTINUE,
	"GOTO":     GOTO,
	"GOSUB":    GOSUB,
	"RETURN":   RETURN,
	"ON":       ON,
	"SUB":      SUB,
	"FUNCTION": FUNCTION,
	"CALL":     CALL,
	"END":      END,
	"PRINT":    PRINT,
	"INPUT":    INPUT,
	"SLEEP":    SLEEP,
	"WAIT":     WAIT,
	"YIELD":    YIELD,
	"PUSH":     PUSH,
	"POP":      POP,
	"PEEK":     PEEK,
	"DATA":     DATA,
	"READ":     READ,
	"RESTORE":  RESTORE,
	"AND":      AND,
	"OR":       OR,
	"NOT":      NOT,
	"XOR":      XOR,
	"MOD":      MOD,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // 1-based column of the next rune

	// lineStart is true until the first token of the current line has been
	// produced; a number in that position is a LINENUMBER.
	lineStart bool
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1, lineStart: true}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skipBlanks skips spaces and tabs but stops at newlines, which are tokens.
func (l *Lexer) skipBlanks() {
	for l.pos < len(l.src) {
		switch l.peek() {
		case ' ', '\t', '\r', '\f', '\v':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) errorf(line, col int, format string, args ...any) error {
	return &LexError{Pos: Pos{Line: line, Column: col}, Msg: fmt.Sprintf(format, args...)}
}

// labelColon reports whether a ':' ending the line follows the cursor, so
// that a keyword spelling such as "loop:" defines a label.
func (l *Lexer) labelColon() bool {
	if l.peek() != ':' {
		return false
	}
	i := l.pos + 1
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t' || l.src[i] == '\r') {
		i++
	}
	return i == len(l.src) || l.src[i] == '\n' || l.src[i] == '#'
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent(line, col int) Token {
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[strings.ToUpper(lexeme)]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Column: col}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanNumber collects a decimal, hex (0x) or binary (0b) literal. Decimal
// literals may carry a fraction and an exponent.
func (l *Lexer) scanNumber(line, col int) (Token, error) {
	start := l.pos

	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		if !isHexDigit(l.peek()) {
			return Token{}, l.errorf(line, col, "malformed hex literal")
		}
		for isHexDigit(l.peek()) {
			l.advance()
		}
		return Token{NUMBER, string(l.src[start:l.pos]), line, col}, nil
	}
	if l.peek() == '0' && (l.peek2() == 'b' || l.peek2() == 'B') {
		l.advance()
		l.advance()
		if l.peek() != '0' && l.peek() != '1' {
			return Token{}, l.errorf(line, col, "malformed binary literal")
		}
		for l.peek() == '0' || l.peek() == '1' {
			l.advance()
		}
		return Token{NUMBER, string(l.src[start:l.pos]), line, col}, nil
	}

	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peek2()
		signed := (next == '+' || next == '-') && l.pos+2 < len(l.src) && unicode.IsDigit(l.src[l.pos+2])
		if unicode.IsDigit(next) || signed {
			l.advance()
			if signed {
				l.advance()
			}
			for unicode.IsDigit(l.peek()) {
				l.advance()
			}
		}
	}
	if r := l.peek(); unicode.IsLetter(r) || r == '_' {
		return Token{}, l.errorf(l.line, l.col, "unexpected character %q in number", r)
	}
	return Token{NUMBER, string(l.src[start:l.pos]), line, col}, nil
}

// scanString collects a double-quoted string. The opening quote has been
// consumed. Lexeme holds the unescaped contents.
func (l *Lexer) scanString(line, col int) (Token, error) {
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) || l.peek() == '\n' {
			return Token{}, l.errorf(line, col, "unterminated string literal")
		}
		r := l.advance()
		if r == '"' {
			return Token{STRING, sb.String(), line, col}, nil
		}
		if r == '\\' {
			switch esc := l.advance(); esc {
			case '"', '\\':
				sb.WriteRune(esc)
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				return Token{}, l.errorf(l.line, l.col-1, "unknown escape sequence \\%c", esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
}

// scanComment collects the rest of the line after '#' or "##". The marker
// has been consumed.
func (l *Lexer) scanComment(tt TokenType, line, col int) Token {
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
	text := strings.TrimRight(string(l.src[start:l.pos]), " \t\r")
	return Token{tt, text, line, col}
}

// nextToken scans and returns the next token from the source.
func (l *Lexer) nextToken() (Token, error) {
	l.skipBlanks()

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return Token{EOF, "", line, col}, nil
	}

	ch := l.peek()
	atStart := l.lineStart
	l.lineStart = false

	switch {
	case ch == '\n':
		l.advance()
		l.lineStart = true
		return Token{NEWLINE, "\\n", line, col}, nil
	case unicode.IsLetter(ch) || ch == '_':
		tok := l.scanIdent(line, col)
		if atStart && tok.Type != IDENTIFIER && l.labelColon() {
			tok.Type = IDENTIFIER
		}
		return tok, nil
	case unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peek2())):
		tok, err := l.scanNumber(line, col)
		if err != nil {
			return tok, err
		}
		if atStart && isPlainInteger(tok.Lexeme) {
			tok.Type = LINENUMBER
		}
		return tok, nil
	}

	l.advance()
	switch ch {
	case '"':
		return l.scanString(line, col)
	case '#':
		if l.peek() == '#' {
			l.advance()
			return l.scanComment(META_COMMENT, line, col), nil
		}
		return l.scanComment(COMMENT, line, col), nil
	case ':':
		return Token{COLON, ":", line, col}, nil
	case '(':
		return Token{LPAREN, "(", line, col}, nil
	case ')':
		return Token{RPAREN, ")", line, col}, nil
	case '[':
		return Token{LBRACKET, "[", line, col}, nil
	case ']':
		return Token{RBRACKET, "]", line, col}, nil
	case ',':
		return Token{COMMA, ",", line, col}, nil
	case '.':
		return Token{DOT, ".", line, col}, nil
	case '+':
		if l.peek() == '+' {
			l.advance()
			return Token{PLUS_PLUS, "++", line, col}, nil
		}
		if l.peek() == '=' {
			l.advance()
			return Token{PLUS_ASSIGN, "+=", line, col}, nil
		}
		return Token{PLUS, "+", line, col}, nil
	case '-':
		if l.peek() == '-' {
			l.advance()
			return Token{MINUS_MINUS, "--", line, col}, nil
		}
		if l.peek() == '=' {
			l.advance()
			return Token{MINUS_ASSIGN, "-=", line, col}, nil
		}
		return Token{MINUS, "-", line, col}, nil
	case '*':
		if l.peek() == '=' {
			l.advance()
			return Token{STAR_ASSIGN, "*=", line, col}, nil
		}
		return Token{STAR, "*", line, col}, nil
	case '/':
		if l.peek() == '=' {
			l.advance()
			return Token{SLASH_ASSIGN, "/=", line, col}, nil
		}
		return Token{SLASH, "/", line, col}, nil
	case '%':
		return Token{MOD, "%", line, col}, nil
	case '^':
		return Token{CARET, "^", line, col}, nil
	case '~':
		return Token{TILDE, "~", line, col}, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{AND, "&&", line, col}, nil
		}
		return Token{AMP, "&", line, col}, nil
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR, "||", line, col}, nil
		}
		return Token{PIPE, "|", line, col}, nil
	case '!':
		if l.peek() == '=' {
			l.advance()
			return Token{NOT_EQ, "!=", line, col}, nil
		}
		return Token{NOT, "!", line, col}, nil
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return Token{LESS_EQ, "<=", line, col}, nil
		case '>':
			l.advance()
			return Token{NOT_EQ, "<>", line, col}, nil
		case '<':
			l.advance()
			return Token{SHL_OP, "<<", line, col}, nil
		}
		return Token{LESS, "<", line, col}, nil
	case '>':
		switch l.peek() {
		case '=':
			l.advance()
			return Token{GREATER_EQ, ">=", line, col}, nil
		case '>':
			l.advance()
			return Token{SHR_OP, ">>", line, col}, nil
		}
		return Token{GREATER, ">", line, col}, nil
	case '=':
		if l.peek() == '=' {
			l.advance()
			return Token{EQUALS, "==", line, col}, nil
		}
		return Token{ASSIGN, "=", line, col}, nil
	default:
		return Token{}, l.errorf(line, col, "unexpected character %q", ch)
	}
}

func isPlainInteger(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *LexError on the first malformed token.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
