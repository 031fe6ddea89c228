package compiler

import (
	"strconv"
	"strings"
)

// parseExpr is the entry point for expressions. Precedence, lowest first:
//
//	OR, AND, |, XOR, &, NOT, comparisons, << >>, + -, * / MOD, ^, unary, postfix
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

// parseBinaryLevel parses a left-associative level whose operands come from
// next.
func (p *Parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		matched := false
		for _, candidate := range ops {
			if op == candidate {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseAnd, OR)
}

func (p *Parser) parseAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitOr, AND)
}

func (p *Parser) parseBitOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitXor, PIPE)
}

func (p *Parser) parseBitXor() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitAnd, XOR)
}

func (p *Parser) parseBitAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseNot, AMP)
}

// parseNot handles prefix NOT, which binds looser than comparisons:
// NOT a = b is NOT (a = b).
func (p *Parser) parseNot() (Expr, error) {
	if p.check(NOT) {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, Operand: operand}, nil
	}
	return p.parseComparison()
}

// parseComparison handles = == <> != < > <= >=. A single '=' inside an
// expression is equality.
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		switch op {
		case ASSIGN:
			op = EQUALS
		case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseShift() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, SHL_OP, SHR_OP)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parsePower, STAR, SLASH, MOD)
}

// parsePower handles right-associative '^': 2 ^ 3 ^ 2 is 2 ^ 9.
func (p *Parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.check(CARET) {
		return base, nil
	}
	p.advance()
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: CARET, Left: base, Right: exp}, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case MINUS, TILDE, NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if n, ok := operand.(*NumberLit); ok && tok.Type == MINUS {
			return &NumberLit{Value: -n.Value}, nil
		}
		return &UnaryExpr{Op: tok.Type, Operand: operand}, nil
	case PLUS:
		p.advance()
		return p.parseUnary()
	case PLUS_PLUS, MINUS_MINUS:
		p.advance()
		name, err := p.expect(IDENTIFIER, "variable after "+tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return &IncDecExpr{Op: tok.Type, Target: &VarRef{Name: name.Lexeme, Line: name.Line}, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if v, ok := e.(*VarRef); ok && len(v.Indices) == 0 && (p.check(PLUS_PLUS) || p.check(MINUS_MINUS)) {
		op := p.advance()
		return &IncDecExpr{Op: op.Type, Target: v}, nil
	}
	return e, nil
}

// parseNumber converts a NUMBER lexeme: decimal, 0x hex or 0b binary.
func parseNumber(lexeme string) (float64, error) {
	lower := strings.ToLower(lexeme)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") {
		n, err := strconv.ParseInt(lower, 0, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(lexeme, 64)
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER, LINENUMBER:
		p.advance()
		v, err := parseNumber(tok.Lexeme)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %s", tok.Lexeme)
		}
		return &NumberLit{Value: v}, nil

	case STRING:
		p.advance()
		return &StringLit{Value: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return e, nil

	case THIS:
		p.advance()
		return p.parseDeviceAccess(Token{Type: IDENTIFIER, Lexeme: "db", Line: tok.Line, Column: tok.Column})

	case IDENTIFIER:
		return p.parseIdentExpr()
	}
	return nil, p.errorf(tok, "expected expression, found %s", describe(tok))
}

// parseIdentExpr resolves an identifier in expression position into a
// special built-in form, a call, a device access or a variable.
func (p *Parser) parseIdentExpr() (Expr, error) {
	name := p.advance()
	upper := strings.ToUpper(name.Lexeme)

	if p.check(LPAREN) {
		switch upper {
		case "HASH":
			p.advance()
			s, err := p.expect(STRING, "string in HASH()")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN, "')'"); err != nil {
				return nil, err
			}
			return &HashExpr{Text: s.Lexeme}, nil
		case "IIF":
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if len(args) != 3 {
				return nil, p.errorf(name, "IIF takes 3 arguments, got %d", len(args))
			}
			return &TernaryExpr{Cond: args[0], Then: args[1], Else: args[2]}, nil
		case "BATCHREAD":
			p.advance()
			hash, devName, prop, err := p.parseBatchHead()
			if err != nil {
				return nil, err
			}
			read := &BatchRead{Hash: hash, Name: devName, Property: prop, Mode: &NumberLit{Value: 0}}
			if p.check(COMMA) {
				p.advance()
				if read.Mode, err = p.parseBatchModeArg(); err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(RPAREN, "')'"); err != nil {
				return nil, err
			}
			return read, nil
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: name.Lexeme, Args: args, Line: name.Line}, nil
	}

	switch p.peek().Type {
	case DOT:
		return p.parseDeviceAccess(name)
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
			mode, err := p.parseBatchSuffix()
			if err != nil {
				return nil, err
			}
			return &SlotRead{Device: name.Lexeme, Slot: idx, Property: prop, Mode: mode, Line: name.Line}, nil
		}
		return &VarRef{Name: name.Lexeme, Indices: []Expr{idx}, Line: name.Line}, nil
	}
	return &VarRef{Name: name.Lexeme, Line: name.Line}, nil
}

// parseBatchModeArg accepts a mode name (Average, Sum, Min, Max, ...) or
// any numeric expression.
func (p *Parser) parseBatchModeArg() (Expr, error) {
	tok := p.peek()
	if tok.Type == IDENTIFIER {
		if m, ok := batchModeByName(tok.Lexeme); ok && m != BatchCount && p.peekAt(1).Type != LPAREN {
			p.advance()
			return &NumberLit{Value: float64(m - BatchAverage)}, nil
		}
	}
	return p.parseExpr()
}

func batchModeByName(s string) (BatchMode, bool) {
	switch strings.ToUpper(s) {
	case "AVERAGE", "AVG":
		return BatchAverage, true
	case "SUM":
		return BatchSum, true
	case "MIN", "MINIMUM":
		return BatchMinimum, true
	case "MAX", "MAXIMUM":
		return BatchMaximum, true
	case "COUNT":
		return BatchCount, true
	}
	return BatchUnset, false
}

// parseBatchSuffix consumes an optional .Average/.Sum/.Min/.Max/.Count.
func (p *Parser) parseBatchSuffix() (BatchMode, error) {
	if !p.check(DOT) || p.peekAt(1).Type != IDENTIFIER {
		return BatchUnset, nil
	}
	m, ok := batchModeByName(p.peekAt(1).Lexeme)
	if !ok {
		return BatchUnset, p.errorf(p.peekAt(1), "unknown batch mode %s", p.peekAt(1).Lexeme)
	}
	p.advance()
	p.advance()
	return m, nil
}

// parseDeviceAccess parses the part after a device name in expression
// position.
//
//	sensor.Temperature
//	sensors.Temperature.Max
//	sensors.Count
//	sorter.Slot[0].Occupied
//	chip.Memory[4]
func (p *Parser) parseDeviceAccess(device Token) (Expr, error) {
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
		mode, err := p.parseBatchSuffix()
		if err != nil {
			return nil, err
		}
		return &SlotRead{Device: device.Lexeme, Slot: slot, Property: slotProp, Mode: mode, Line: device.Line}, nil

	case indexed && strings.EqualFold(prop, "Memory"):
		addr, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		return &MemoryRead{Device: device.Lexeme, Address: addr, Line: device.Line}, nil

	case strings.EqualFold(prop, "Count") && !p.check(DOT):
		return &DeviceRead{Device: device.Lexeme, Mode: BatchCount, Line: device.Line}, nil
	}

	mode, err := p.parseBatchSuffix()
	if err != nil {
		return nil, err
	}
	return &DeviceRead{Device: device.Lexeme, Property: prop, Mode: mode, Line: device.Line}, nil
}
