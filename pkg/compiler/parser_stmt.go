package compiler

import (
	"strconv"
	"strings"
)

// propertyKeywords are keywords that double as device logic type names,
// e.g. light.On or sorter.Mode, and are accepted after a '.'.
var propertyKeywords = map[TokenType]bool{
	ON:      true,
	DATA:    true,
	READ:    true,
	STEP:    true,
	INPUT:   true,
	WAIT:    true,
	SLEEP:   true,
	END:     true,
	NEXT:    true,
	RETURN:  true,
	DEFAULT: true,
	DO:      true,
	LOOP:    true,
	SELECT:  true,
	TO:      true,
	PRINT:   true,
	DEVICE:  true,
	RESTORE: true,
}

// propertyName consumes a logic type name after a '.'.
func (p *Parser) propertyName() (string, error) {
	tok := p.peek()
	if tok.Type == IDENTIFIER || propertyKeywords[tok.Type] {
		p.advance()
		return tok.Lexeme, nil
	}
	return "", p.errorf(tok, "expected property name, found %s", describe(tok))
}

// parseIndexExpr parses [expr] or (expr).
func (p *Parser) parseIndexExpr() (Expr, error) {
	open := p.peek()
	var closer TokenType
	switch open.Type {
	case LBRACKET:
		closer = RBRACKET
	case LPAREN:
		closer = RPAREN
	default:
		return nil, p.errorf(open, "expected '[' or '(', found %s", describe(open))
	}
	p.advance()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(closer, "closing "+closerText(closer)); err != nil {
		return nil, err
	}
	return e, nil
}

func closerText(tt TokenType) string {
	if tt == RBRACKET {
		return "']'"
	}
	return "')'"
}

// parseArgs parses (a, b, ...) with the opening parenthesis current.
func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []Expr
	if p.check(RPAREN) {
		p.advance()
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.check(COMMA) {
			p.advance()
			continue
		}
		if _, err := p.expect(RPAREN, "',' or ')'"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func isAssignOp(tt TokenType) bool {
	switch tt {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN:
		return true
	}
	return false
}

// parseLet handles VAR and LET declarations.
//
//	VAR x
//	VAR x = 5
//	LET values(2) = 7
func (p *Parser) parseLet() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "variable name after "+strings.ToUpper(kw.Lexeme))
	if err != nil {
		return nil, err
	}
	stmt := &LetStmt{stmtBase: at(kw), Name: name.Lexeme, Op: ASSIGN, Declare: true}
	if kw.Type == VAR && (p.atLineEnd() || p.check(COLON)) {
		return stmt, nil
	}
	if p.check(LPAREN) || p.check(LBRACKET) {
		idx, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		stmt.Indices = []Expr{idx}
	}
	op := p.peek()
	if !isAssignOp(op.Type) {
		return nil, p.errorf(op, "expected '=' after %s, found %s", name.Lexeme, describe(op))
	}
	p.advance()
	stmt.Op = op.Type
	if stmt.Value, err = p.parseExpr(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseDim handles DIM name(size).
func (p *Parser) parseDim() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "array name after DIM")
	if err != nil {
		return nil, err
	}
	size, err := p.parseIndexExpr()
	if err != nil {
		return nil, err
	}
	return &DimStmt{stmtBase: at(kw), Name: name.Lexeme, Size: size}, nil
}

// parseConst handles CONST NAME = expr and DEFINE NAME [=] expr.
func (p *Parser) parseConst() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "constant name after "+strings.ToUpper(kw.Lexeme))
	if err != nil {
		return nil, err
	}
	if kw.Type == CONST {
		if _, err := p.expect(ASSIGN, "'=' after constant name"); err != nil {
			return nil, err
		}
	} else if p.check(ASSIGN) {
		p.advance()
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ConstStmt{stmtBase: at(kw), Name: name.Lexeme, Value: value, Define: kw.Type == DEFINE}, nil
}

func isPinName(s string) bool {
	s = strings.ToLower(s)
	if s == "db" {
		return true
	}
	return len(s) == 2 && s[0] == 'd' && s[1] >= '0' && s[1] <= '5'
}

// parseAlias handles ALIAS name [=] device.
func (p *Parser) parseAlias() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "alias name")
	if err != nil {
		return nil, err
	}
	if p.check(ASSIGN) {
		p.advance()
	}
	ref, err := p.parseDeviceRef()
	if err != nil {
		return nil, err
	}
	return &AliasStmt{stmtBase: at(kw), Name: name.Lexeme, Device: ref}, nil
}

// parseDeviceRef parses the right-hand side of an ALIAS.
//
//	d0 | db | THIS | IC.Pin[n] | IC.Device[hash] | IC.Device[hash].Name[name] | IC.ID[id]
//
// followed by an optional .Channel[n].
func (p *Parser) parseDeviceRef() (DeviceRef, error) {
	tok := p.peek()
	var ref DeviceRef
	switch {
	case tok.Type == THIS:
		p.advance()
		ref = &PinRef{Pin: "db", Channel: -1}
	case tok.Type == IDENTIFIER && isPinName(tok.Lexeme):
		p.advance()
		ref = &PinRef{Pin: strings.ToLower(tok.Lexeme), Channel: -1}
	case tok.Type == IDENTIFIER && strings.EqualFold(tok.Lexeme, "IC"):
		p.advance()
		if _, err := p.expect(DOT, "'.' after IC"); err != nil {
			return nil, err
		}
		kind := p.peek()
		if kind.Type != IDENTIFIER && kind.Type != DEVICE {
			return nil, p.errorf(kind, "expected Pin, Device or ID, found %s", describe(kind))
		}
		p.advance()
		arg, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(kind.Lexeme) {
		case "PIN":
			n, ok := arg.(*NumberLit)
			if !ok || n.Value < 0 || n.Value > 5 || n.Value != float64(int(n.Value)) {
				return nil, p.errorf(kind, "IC.Pin index must be a literal between 0 and 5")
			}
			ref = &PinRef{Pin: "d" + strconv.Itoa(int(n.Value)), Channel: -1}
		case "DEVICE":
			if p.check(DOT) && p.peekAt(1).Type == IDENTIFIER && strings.EqualFold(p.peekAt(1).Lexeme, "Name") {
				p.advance()
				p.advance()
				name, err := p.parseIndexExpr()
				if err != nil {
					return nil, err
				}
				ref = &NamedRef{Prefab: arg, Name: name}
			} else {
				ref = &TypeRef{Prefab: arg, Channel: -1}
			}
		case "ID":
			ref = &IDRef{ID: arg}
		default:
			return nil, p.errorf(kind, "unknown device selector IC.%s", kind.Lexeme)
		}
	default:
		return nil, p.errorf(tok, "expected device reference, found %s", describe(tok))
	}

	if p.check(DOT) && p.peekAt(1).Type == IDENTIFIER && strings.EqualFold(p.peekAt(1).Lexeme, "Channel") {
		p.advance()
		chTok := p.advance()
		arg, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		n, ok := arg.(*NumberLit)
		if !ok || n.Value < 0 || n.Value > 7 || n.Value != float64(int(n.Value)) {
			return nil, p.errorf(chTok, "channel must be a literal between 0 and 7")
		}
		switch r := ref.(type) {
		case *PinRef:
			r.Channel = int(n.Value)
		case *TypeRef:
			r.Channel = int(n.Value)
		default:
			return nil, p.errorf(chTok, "channels are only supported on pin and type references")
		}
	}
	return ref, nil
}

// parseDevice handles DEVICE name [=] "Prefab" ["Name"].
func (p *Parser) parseDevice() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "device name")
	if err != nil {
		return nil, err
	}
	if p.check(ASSIGN) {
		p.advance()
	}
	prefab, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var ref DeviceRef = &TypeRef{Prefab: prefab, Channel: -1}
	if !p.atLineEnd() && !p.check(COLON) {
		devName, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ref = &NamedRef{Prefab: prefab, Name: devName}
	}
	return &AliasStmt{stmtBase: at(kw), Name: name.Lexeme, Device: ref}, nil
}

// atIfBranchEnd reports whether the cursor is on a keyword that closes the
// current IF branch.
func (p *Parser) atIfBranchEnd() bool {
	return p.check(ELSEIF) || p.check(ELSE) || p.check(ENDIF) || p.atEnd(IF)
}

func (p *Parser) atEndIf() bool {
	return p.check(ENDIF) || p.atEnd(IF)
}

func (p *Parser) expectEndIf(open Token) error {
	switch {
	case p.check(ENDIF):
		p.advance()
	case p.atEnd(IF):
		p.advance()
		p.advance()
	default:
		return p.errorf(open, "incomplete IF construct: expected ENDIF")
	}
	return nil
}

// parseIfFrom parses an IF or ELSEIF whose keyword has been consumed.
// inBlock is set for ELSEIF branches, which always continue to ENDIF.
func (p *Parser) parseIfFrom(open Token, inBlock bool) (Stmt, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(THEN, "THEN after condition"); err != nil {
		return nil, err
	}
	stmt := &IfStmt{stmtBase: at(open), Cond: cond}

	if p.atLineEnd() {
		p.openIfs++
		stmt.Then, err = p.parseBlock("IF", open, p.atIfBranchEnd)
		p.openIfs--
		if err != nil {
			return nil, err
		}
		return stmt, p.parseIfTail(open, stmt)
	}

	if stmt.Then, err = p.parseInline(); err != nil {
		return nil, err
	}
	if !inBlock {
		// IF c THEN x = 1 ENDIF closes on the same line.
		if p.atEndIf() {
			return stmt, p.expectEndIf(open)
		}
		if p.check(ELSE) {
			p.advance()
			if p.check(IF) {
				nested, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				stmt.Else = []Stmt{nested}
				return stmt, nil
			}
			if stmt.Else, err = p.parseInline(); err != nil {
				return nil, err
			}
			if p.atEndIf() {
				return stmt, p.expectEndIf(open)
			}
			return stmt, nil
		}
		if !p.hybridFollows() {
			return stmt, nil
		}
	}

	// Hybrid layout: keep trailing comments with the THEN branch and carry on
	// with ELSEIF/ELSE/ENDIF on the following lines.
	for p.check(NEWLINE) || p.check(COMMENT) || p.check(META_COMMENT) {
		tok := p.advance()
		if tok.Type != NEWLINE {
			stmt.Then = append(stmt.Then, &CommentStmt{stmtBase: at(tok), Text: tok.Lexeme, Meta: tok.Type == META_COMMENT})
		}
	}
	return stmt, p.parseIfTail(open, stmt)
}

// hybridFollows looks past the end of a single-line IF for an
// ELSEIF/ELSE/ENDIF that continues it. Inside an open multi-line IF those
// keywords belong to the enclosing IF.
func (p *Parser) hybridFollows() bool {
	if p.openIfs > 0 {
		return false
	}
	i := 0
	for {
		switch p.peekAt(i).Type {
		case NEWLINE, COMMENT, META_COMMENT:
			i++
			continue
		case ELSEIF, ELSE, ENDIF:
			return true
		case END:
			return p.peekAt(i+1).Type == IF
		}
		return false
	}
}

// parseIfTail parses the ELSEIF/ELSE/ENDIF part of a block IF.
func (p *Parser) parseIfTail(open Token, stmt *IfStmt) error {
	p.skipSeparators()
	switch {
	case p.check(ELSEIF):
		tok := p.advance()
		nested, err := p.parseIfFrom(tok, true)
		if err != nil {
			return err
		}
		stmt.Else = []Stmt{nested}
		return nil
	case p.check(ELSE):
		p.advance()
		if p.check(IF) {
			tok := p.advance()
			nested, err := p.parseIfFrom(tok, true)
			if err != nil {
				return err
			}
			stmt.Else = []Stmt{nested}
			return nil
		}
		p.openIfs++
		body, err := p.parseBlock("IF", open, p.atEndIf)
		p.openIfs--
		if err != nil {
			return err
		}
		stmt.Else = body
		return p.expectEndIf(open)
	}
	return p.expectEndIf(open)
}

// parseInline parses the colon-separated statements of a single-line IF
// branch. THEN 100 is shorthand for THEN GOTO 100.
func (p *Parser) parseInline() ([]Stmt, error) {
	if tok := p.peek(); tok.Type == NUMBER {
		p.advance()
		n, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, p.errorf(tok, "invalid line number %s", tok.Lexeme)
		}
		return []Stmt{&GotoStmt{stmtBase: at(tok), Target: JumpTarget{Number: n}}}, nil
	}

	var out []Stmt
	for {
		before := p.pos
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if p.pos == before {
			return nil, p.errorf(p.peek(), "incomplete IF construct")
		}
		out = append(out, stmt)
		if !p.check(COLON) {
			break
		}
		p.advance()
		if p.atLineEnd() || p.check(ELSE) || p.atEndIf() {
			break
		}
	}
	if !p.atLineEnd() && !p.check(ELSE) && !p.atEndIf() {
		return nil, p.errorf(p.peek(), "expected end of statement, found %s", describe(p.peek()))
	}
	return out, nil
}

// parseFor handles FOR v = a TO b [STEP s] ... NEXT [v].
func (p *Parser) parseFor() (Stmt, error) {
	kw := p.advance()
	v, err := p.expect(IDENTIFIER, "loop variable after FOR")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN, "'=' after loop variable"); err != nil {
		return nil, err
	}
	stmt := &ForStmt{stmtBase: at(kw), Var: v.Lexeme}
	if stmt.Start, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TO, "TO"); err != nil {
		return nil, err
	}
	if stmt.End, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if p.check(STEP) {
		p.advance()
		if stmt.Step, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if stmt.Body, err = p.parseBlock("FOR", kw, func() bool { return p.check(NEXT) }); err != nil {
		return nil, err
	}
	p.advance()
	if p.check(IDENTIFIER) {
		n := p.advance()
		if n.Lexeme != v.Lexeme {
			return nil, p.errorf(n, "NEXT %s does not match FOR %s", n.Lexeme, v.Lexeme)
		}
	}
	return stmt, nil
}

// parseWhile handles WHILE cond ... WEND.
func (p *Parser) parseWhile() (Stmt, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock("WHILE", kw, func() bool { return p.check(WEND) || p.atEnd(WHILE) })
	if err != nil {
		return nil, err
	}
	if p.check(END) {
		p.advance()
	}
	p.advance()
	return &WhileStmt{stmtBase: at(kw), Cond: cond, Body: body}, nil
}

// parseDo handles DO [WHILE|UNTIL cond] ... LOOP [WHILE|UNTIL cond].
func (p *Parser) parseDo() (Stmt, error) {
	kw := p.advance()
	stmt := &DoLoopStmt{stmtBase: at(kw)}
	var err error
	if p.check(WHILE) || p.check(UNTIL) {
		stmt.Until = p.advance().Type == UNTIL
		stmt.TestFirst = true
		if stmt.Cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if stmt.Body, err = p.parseBlock("DO", kw, func() bool { return p.check(LOOP) }); err != nil {
		return nil, err
	}
	loopTok := p.advance()
	if p.check(WHILE) || p.check(UNTIL) {
		if stmt.TestFirst {
			return nil, p.errorf(loopTok, "DO loop cannot test its condition at both ends")
		}
		stmt.Until = p.advance().Type == UNTIL
		if stmt.Cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseSelect handles SELECT CASE subject ... END SELECT.
func (p *Parser) parseSelect() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(CASE, "CASE after SELECT"); err != nil {
		return nil, err
	}
	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt := &SelectStmt{stmtBase: at(kw), Subject: subject}
	armEnd := func() bool { return p.check(CASE) || p.check(DEFAULT) || p.atEnd(SELECT) }
	seenDefault := false

	for {
		for p.check(NEWLINE) || p.check(COLON) || p.check(COMMENT) || p.check(META_COMMENT) {
			p.advance()
		}
		tok := p.peek()
		switch {
		case p.atEnd(SELECT):
			p.advance()
			p.advance()
			return stmt, nil
		case tok.Type == EOF:
			return nil, p.errorf(kw, "incomplete SELECT construct: expected END SELECT")
		case tok.Type == DEFAULT || (tok.Type == CASE && p.peekAt(1).Type == ELSE):
			if seenDefault {
				return nil, p.errorf(tok, "SELECT has more than one default arm")
			}
			seenDefault = true
			p.advance()
			if tok.Type == CASE {
				p.advance()
			}
			if p.check(COLON) {
				p.advance()
			}
			if stmt.Default, err = p.parseBlock("SELECT", kw, armEnd); err != nil {
				return nil, err
			}
		case tok.Type == CASE:
			p.advance()
			clause := CaseClause{Line: tok.Line}
			for {
				v, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				clause.Values = append(clause.Values, v)
				if !p.check(COMMA) {
					break
				}
				p.advance()
			}
			if clause.Body, err = p.parseBlock("SELECT", kw, armEnd); err != nil {
				return nil, err
			}
			stmt.Cases = append(stmt.Cases, clause)
		default:
			return nil, p.errorf(tok, "expected CASE, DEFAULT or END SELECT, found %s", describe(tok))
		}
	}
}

// parseSub handles SUB and FUNCTION definitions.
func (p *Parser) parseSub() (Stmt, error) {
	kw := p.advance()
	kind := strings.ToUpper(kw.Lexeme)
	if p.inRoutine {
		return nil, p.errorf(kw, "%s definitions cannot be nested", kind)
	}
	name, err := p.expect(IDENTIFIER, kind+" name")
	if err != nil {
		return nil, err
	}
	stmt := &SubStmt{stmtBase: at(kw), Name: name.Lexeme, Function: kw.Type == FUNCTION}
	if p.check(LPAREN) {
		p.advance()
		for !p.check(RPAREN) {
			param, err := p.expect(IDENTIFIER, "parameter name")
			if err != nil {
				return nil, err
			}
			stmt.Params = append(stmt.Params, param.Lexeme)
			if !p.check(COMMA) {
				break
			}
			p.advance()
		}
		if _, err := p.expect(RPAREN, "')' after parameters"); err != nil {
			return nil, err
		}
	}

	p.inRoutine = true
	stmt.Body, err = p.parseBlock(kind, kw, func() bool { return p.atEnd(kw.Type) })
	p.inRoutine = false
	if err != nil {
		return nil, err
	}
	p.advance()
	p.advance()
	return stmt, nil
}

// parseJumpTarget parses a line number or label name.
func (p *Parser) parseJumpTarget() (JumpTarget, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		n, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return JumpTarget{}, p.errorf(tok, "invalid line number %s", tok.Lexeme)
		}
		return JumpTarget{Number: n}, nil
	case IDENTIFIER:
		p.advance()
		return JumpTarget{Label: tok.Lexeme}, nil
	}
	// Labels may share a keyword's spelling, as in "loop:".
	if tok.Type.isKeyword() {
		p.advance()
		return JumpTarget{Label: tok.Lexeme}, nil
	}
	return JumpTarget{}, p.errorf(tok, "expected line number or label, found %s", describe(tok))
}

// parseGoto handles GOTO and GOSUB.
func (p *Parser) parseGoto() (Stmt, error) {
	kw := p.advance()
	target, err := p.parseJumpTarget()
	if err != nil {
		return nil, err
	}
	if kw.Type == GOSUB {
		return &GosubStmt{stmtBase: at(kw), Target: target}, nil
	}
	return &GotoStmt{stmtBase: at(kw), Target: target}, nil
}

// parseOn handles ON expr GOTO|GOSUB t1, t2, ...
func (p *Parser) parseOn() (Stmt, error) {
	kw := p.advance()
	sel, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt := &OnGotoStmt{stmtBase: at(kw), Selector: sel}
	switch p.peek().Type {
	case GOTO:
	case GOSUB:
		stmt.Gosub = true
	default:
		return nil, p.errorf(p.peek(), "expected GOTO or GOSUB after ON expression, found %s", describe(p.peek()))
	}
	p.advance()
	for {
		t, err := p.parseJumpTarget()
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, t)
		if !p.check(COMMA) {
			return stmt, nil
		}
		p.advance()
	}
}

func (p *Parser) parseReturn() (Stmt, error) {
	kw := p.advance()
	stmt := &ReturnStmt{stmtBase: at(kw)}
	if p.atLineEnd() || p.check(COLON) || p.check(ELSE) {
		return stmt, nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt.Value = v
	return stmt, nil
}

func (p *Parser) parseCall() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "routine name after CALL")
	if err != nil {
		return nil, err
	}
	stmt := &CallStmt{stmtBase: at(kw), Name: name.Lexeme}
	if p.check(LPAREN) {
		if stmt.Args, err = p.parseArgs(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseEnd() (Stmt, error) {
	kw := p.advance()
	switch next := p.peek(); next.Type {
	case IF, SUB, FUNCTION, SELECT, WHILE:
		name := strings.ToUpper(next.Lexeme)
		return nil, p.errorf(kw, "END %s without %s", name, name)
	}
	return &EndStmt{at(kw)}, nil
}

func (p *Parser) parsePrint() (Stmt, error) {
	kw := p.advance()
	stmt := &PrintStmt{stmtBase: at(kw)}
	for !p.atLineEnd() && !p.check(COLON) && !p.check(ELSE) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, v)
		if !p.check(COMMA) {
			break
		}
		p.advance()
	}
	if len(stmt.Values) == 0 {
		return nil, p.errorf(kw, "PRINT needs a value")
	}
	return stmt, nil
}

func (p *Parser) parseInput() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENTIFIER, "variable after INPUT")
	if err != nil {
		return nil, err
	}
	return &InputStmt{stmtBase: at(kw), Name: name.Lexeme}, nil
}

func (p *Parser) parseSleep() (Stmt, error) {
	kw := p.advance()
	d, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &SleepStmt{stmtBase: at(kw), Duration: d}, nil
}

func (p *Parser) parseData() (Stmt, error) {
	kw := p.advance()
	stmt := &DataStmt{stmtBase: at(kw)}
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, v)
		if !p.check(COMMA) {
			return stmt, nil
		}
		p.advance()
	}
}

func (p *Parser) parseRead() (Stmt, error) {
	kw := p.advance()
	stmt := &ReadStmt{stmtBase: at(kw)}
	for {
		name, err := p.expect(IDENTIFIER, "variable after READ")
		if err != nil {
			return nil, err
		}
		stmt.Names = append(stmt.Names, name.Lexeme)
		if !p.check(COMMA) {
			return stmt, nil
		}
		p.advance()
	}
}

// parseIdentStatement decides what a statement starting with an identifier
// is from the token after it: a label, a device or slot write, an array or
// plain assignment, an increment, or a call.
func (p *Parser) parseIdentStatement() (Stmt, error) {
	name := p.advance()

	if strings.EqualFold(name.Lexeme, "BATCHWRITE") && p.check(LPAREN) {
		return p.parseBatchWrite(name)
	}

	switch next := p.peek(); next.Type {
	case COLON:
		// The colon stays in the stream and ends the statement.
		return &LabelStmt{stmtBase: at(name), Name: name.Lexeme}, nil

	case DOT:
		return p.parseDeviceWrite(name)

	case LBRACKET:
		idx, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		if p.check(DOT) {
			p.advance()
			prop, err := p.propertyName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(ASSIGN, "'=' after slot property"); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &SlotWriteStmt{stmtBase: at(name), Device: name.Lexeme, Slot: idx, Property: prop, Value: value}, nil
		}
		return p.finishAssign(name, []Expr{idx})

	case LPAREN:
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if isAssignOp(p.peek().Type) {
			if len(args) != 1 {
				return nil, p.errorf(next, "arrays take exactly one index")
			}
			return p.finishAssign(name, args)
		}
		return &CallStmt{stmtBase: at(name), Name: name.Lexeme, Args: args}, nil

	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN:
		return p.finishAssign(name, nil)

	case PLUS_PLUS, MINUS_MINUS:
		p.advance()
		return &IncDecStmt{stmtBase: at(name), Target: &VarRef{Name: name.Lexeme, Line: name.Line}, Op: next.Type}, nil
	}

	if p.atLineEnd() || p.check(ELSE) || p.atEndIf() {
		return &CallStmt{stmtBase: at(name), Name: name.Lexeme}, nil
	}
	return nil, p.errorf(p.peek(), "unexpected %s after %s", describe(p.peek()), name.Lexeme)
}

// finishAssign parses "op value" for name or name[index].
func (p *Parser) finishAssign(name Token, indices []Expr) (Stmt, error) {
	op := p.peek()
	if !isAssignOp(op.Type) {
		return nil, p.errorf(op, "expected '=' after %s, found %s", name.Lexeme, describe(op))
	}
	p.advance()
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &LetStmt{stmtBase: at(name), Name: name.Lexeme, Indices: indices, Op: op.Type, Value: value}, nil
}

// parseDeviceWrite parses .Property = v, .Slot[n].Property = v or
// .Memory[n] = v after a device name.
func (p *Parser) parseDeviceWrite(device Token) (Stmt, error) {
	if _, err := p.expect(DOT, "'.' after device name"); err != nil {
		return nil, err
	}
	prop, err := p.propertyName()
	if err != nil {
		return nil, err
	}
	indexed := p.check(LBRACKET) || p.check(LPAREN)

	switch {
	case indexed && strings.EqualFold(prop, "Slot"):
		slot, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(DOT, "'.' after slot index"); err != nil {
			return nil, err
		}
		slotProp, err := p.propertyName()
		if err != nil {
			return nil, err
		}
		value, err := p.assignedValue(slotProp)
		if err != nil {
			return nil, err
		}
		return &SlotWriteStmt{stmtBase: at(device), Device: device.Lexeme, Slot: slot, Property: slotProp, Value: value}, nil

	case indexed && strings.EqualFold(prop, "Memory"):
		addr, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		value, err := p.assignedValue("Memory")
		if err != nil {
			return nil, err
		}
		return &MemoryWriteStmt{stmtBase: at(device), Device: device.Lexeme, Address: addr, Value: value}, nil
	}

	value, err := p.assignedValue(prop)
	if err != nil {
		return nil, err
	}
	return &DeviceWriteStmt{stmtBase: at(device), Device: device.Lexeme, Property: prop, Value: value}, nil
}

func (p *Parser) assignedValue(target string) (Expr, error) {
	if _, err := p.expect(ASSIGN, "'=' after "+target); err != nil {
		return nil, err
	}
	return p.parseExpr()
}

// parseBatchWrite handles BATCHWRITE(hash, [name,] Property, value).
func (p *Parser) parseBatchWrite(kw Token) (Stmt, error) {
	p.advance() // (
	hash, name, prop, err := p.parseBatchHead()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COMMA, "',' after property"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return &BatchWriteStmt{stmtBase: at(kw), Hash: hash, Name: name, Property: prop, Value: value}, nil
}

// parseBatchHead parses "hash, [name,] Property" inside BATCHREAD and
// BATCHWRITE. A string, number or HASH() in second position is a device
// name filter.
func (p *Parser) parseBatchHead() (hash, name Expr, prop string, err error) {
	if hash, err = p.parseExpr(); err != nil {
		return nil, nil, "", err
	}
	if _, err = p.expect(COMMA, "',' after hash"); err != nil {
		return nil, nil, "", err
	}
	tok := p.peek()
	isName := tok.Type == STRING || tok.Type == NUMBER ||
		(tok.Type == IDENTIFIER && strings.EqualFold(tok.Lexeme, "HASH") && p.peekAt(1).Type == LPAREN)
	if isName {
		if name, err = p.parseExpr(); err != nil {
			return nil, nil, "", err
		}
		if _, err = p.expect(COMMA, "',' after device name"); err != nil {
			return nil, nil, "", err
		}
	}
	prop, err = p.propertyName()
	return hash, name, prop, err
}
