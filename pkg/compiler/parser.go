package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser holds the token stream and cursor for one parse.
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string

	openIfs   int  // multi-line IF blocks currently being parsed
	inRoutine bool // inside a SUB or FUNCTION body
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{
		tokens:      tokens,
		sourceLines: strings.Split(rawSource, "\n"),
	}
}

// errorf builds a positioned syntax error that quotes the offending line.
func (p *Parser) errorf(tok Token, format string, args ...any) error {
	snippet := ""
	if tok.Line > 0 && tok.Line <= len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[tok.Line-1])
	}
	return &SyntaxError{
		Pos:     Pos{Line: tok.Line, Column: tok.Column},
		Msg:     fmt.Sprintf(format, args...),
		Snippet: snippet,
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token n positions ahead. Past the end it returns the
// final EOF token.
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return Token{Type: EOF}
		}
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) check(tt TokenType) bool {
	return p.peek().Type == tt
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes a token of type tt or fails with a message naming what
// was expected.
func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s, found %s", what, describe(tok))
	}
	return p.advance(), nil
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	case IDENTIFIER, NUMBER, LINENUMBER:
		return fmt.Sprintf("%q", tok.Lexeme)
	case STRING:
		return fmt.Sprintf("string %q", tok.Lexeme)
	}
	if tok.Type.isKeyword() {
		return strings.ToUpper(tok.Lexeme)
	}
	return fmt.Sprintf("%q", tok.Lexeme)
}

// atLineEnd reports whether the current statement cannot continue.
func (p *Parser) atLineEnd() bool {
	switch p.peek().Type {
	case NEWLINE, EOF, COMMENT, META_COMMENT:
		return true
	}
	return false
}

// atEnd reports whether the cursor sits on END followed by tt, the closing
// form of a block such as END SUB.
func (p *Parser) atEnd(tt TokenType) bool {
	return p.check(END) && p.peekAt(1).Type == tt
}

func (p *Parser) skipSeparators() {
	for p.check(NEWLINE) || p.check(COLON) {
		p.advance()
	}
}

// endStatement checks that nothing but a separator or comment follows a
// complete statement.
func (p *Parser) endStatement() error {
	switch p.peek().Type {
	case NEWLINE, COLON, EOF, COMMENT, META_COMMENT:
		return nil
	}
	return p.errorf(p.peek(), "expected end of statement, found %s", describe(p.peek()))
}

// parseBlock parses statements until done reports a closing keyword. It
// fails with "incomplete construct" when input runs out or the cursor stops
// moving.
func (p *Parser) parseBlock(construct string, open Token, done func() bool) ([]Stmt, error) {
	var body []Stmt
	for {
		p.skipSeparators()
		if p.check(EOF) {
			return nil, p.errorf(open, "incomplete %s construct: reached end of input", construct)
		}
		if done() {
			return body, nil
		}
		if p.check(LINENUMBER) {
			tok := p.advance()
			n, _ := strconv.Atoi(tok.Lexeme)
			body = append(body, &LabelStmt{stmtBase: at(tok), Number: n})
			continue
		}

		before := p.pos
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if p.pos == before {
			return nil, p.errorf(p.peek(), "incomplete %s construct", construct)
		}
		body = append(body, stmt)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
	}
}

// parseProgram parses the whole token stream.
func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{LineIndex: make(map[int]int)}
	for {
		p.skipSeparators()
		if p.check(EOF) {
			return prog, nil
		}
		if p.check(LINENUMBER) {
			tok := p.advance()
			n, err := strconv.Atoi(tok.Lexeme)
			if err != nil {
				return nil, p.errorf(tok, "invalid line number %s", tok.Lexeme)
			}
			if _, dup := prog.LineIndex[n]; dup {
				return nil, p.errorf(tok, "duplicate line number %d", n)
			}
			prog.LineIndex[n] = len(prog.Statements)
			prog.Statements = append(prog.Statements, &LabelStmt{stmtBase: at(tok), Number: n})
			continue
		}

		before := p.pos
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if p.pos == before {
			return nil, p.errorf(p.peek(), "unexpected %s", describe(p.peek()))
		}
		prog.Statements = append(prog.Statements, stmt)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
	}
}

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case COMMENT, META_COMMENT:
		p.advance()
		return &CommentStmt{stmtBase: at(tok), Text: tok.Lexeme, Meta: tok.Type == META_COMMENT}, nil
	case LET, VAR:
		return p.parseLet()
	case DIM:
		return p.parseDim()
	case CONST, DEFINE:
		return p.parseConst()
	case ALIAS:
		return p.parseAlias()
	case DEVICE:
		return p.parseDevice()
	case IF:
		p.advance()
		return p.parseIfFrom(tok, false)
	case FOR:
		return p.parseFor()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDo()
	case SELECT:
		return p.parseSelect()
	case SUB, FUNCTION:
		return p.parseSub()
	case BREAK:
		p.advance()
		return &BreakStmt{at(tok)}, nil
	case CONTINUE:
		p.advance()
		return &ContinueStmt{at(tok)}, nil
	case GOTO, GOSUB:
		return p.parseGoto()
	case ON:
		return p.parseOn()
	case RETURN:
		return p.parseReturn()
	case CALL:
		return p.parseCall()
	case END:
		return p.parseEnd()
	case PRINT:
		return p.parsePrint()
	case INPUT:
		return p.parseInput()
	case SLEEP, WAIT:
		return p.parseSleep()
	case YIELD:
		p.advance()
		return &YieldStmt{at(tok)}, nil
	case PUSH:
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &PushStmt{stmtBase: at(tok), Value: v}, nil
	case POP, PEEK:
		p.advance()
		name, err := p.expect(IDENTIFIER, "variable name")
		if err != nil {
			return nil, err
		}
		return &PopStmt{stmtBase: at(tok), Name: name.Lexeme, Peek: tok.Type == PEEK}, nil
	case DATA:
		return p.parseData()
	case READ:
		return p.parseRead()
	case RESTORE:
		p.advance()
		return &RestoreStmt{at(tok)}, nil
	case PLUS_PLUS, MINUS_MINUS:
		p.advance()
		name, err := p.expect(IDENTIFIER, "variable after "+tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return &IncDecStmt{stmtBase: at(tok), Target: &VarRef{Name: name.Lexeme, Line: name.Line}, Op: tok.Type}, nil
	case IDENTIFIER:
		return p.parseIdentStatement()
	case THIS:
		p.advance()
		return p.parseDeviceWrite(Token{Type: IDENTIFIER, Lexeme: "db", Line: tok.Line, Column: tok.Column})
	case NEXT:
		return nil, p.errorf(tok, "NEXT without FOR")
	case WEND:
		return nil, p.errorf(tok, "%s without WHILE", strings.ToUpper(tok.Lexeme))
	case LOOP:
		return nil, p.errorf(tok, "LOOP without DO")
	case ELSE, ELSEIF, ENDIF:
		return nil, p.errorf(tok, "%s without IF", strings.ToUpper(tok.Lexeme))
	case CASE, DEFAULT:
		return nil, p.errorf(tok, "%s outside SELECT CASE", strings.ToUpper(tok.Lexeme))
	}
	return nil, p.errorf(tok, "unexpected %s at start of statement", describe(tok))
}

// Parse converts a token stream into a Program.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	return NewParser(tokens, rawSource).parseProgram()
}
