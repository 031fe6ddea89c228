package compiler

import "basic10/pkg/ic10"

// reachableRoutines returns the SUBs and FUNCTIONs called, directly or
// transitively, from the main program.
func reachableRoutines(stmts []Stmt, routines map[string]*routine) map[string]bool {
	reachable := make(map[string]bool)
	var worklist []string

	addReachable := func(name string) {
		if _, ok := routines[name]; ok && !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	for call := range findCalls(stmts) {
		addReachable(call)
	}
	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]
		for call := range findCalls(routines[curr].body) {
			addReachable(call)
		}
	}
	return reachable
}

// callsAnything reports whether body transfers control somewhere that
// returns through ra.
func callsAnything(body []Stmt, routines map[string]*routine) bool {
	found := false
	walkStmts(body, func(s Stmt) {
		switch n := s.(type) {
		case *GosubStmt:
			found = true
		case *OnGotoStmt:
			found = found || n.Gosub
		}
	})
	if found {
		return true
	}
	for name := range findCalls(body) {
		if _, ok := routines[name]; ok {
			return true
		}
	}
	return false
}

// findCalls collects the names of every call statement and call
// expression in stmts. SUB bodies are not entered.
func findCalls(stmts []Stmt) map[string]bool {
	calls := make(map[string]bool)
	walkStmts(stmts, func(s Stmt) {
		if c, ok := s.(*CallStmt); ok {
			calls[c.Name] = true
		}
		for _, e := range stmtExprs(s) {
			findCallsExpr(e, calls)
		}
	})
	return calls
}

func findCallsExpr(e Expr, calls map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *CallExpr:
		calls[n.Name] = true
		for _, a := range n.Args {
			findCallsExpr(a, calls)
		}
	case *BinaryExpr:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *UnaryExpr:
		findCallsExpr(n.Operand, calls)
	case *TernaryExpr:
		findCallsExpr(n.Cond, calls)
		findCallsExpr(n.Then, calls)
		findCallsExpr(n.Else, calls)
	case *VarRef:
		for _, idx := range n.Indices {
			findCallsExpr(idx, calls)
		}
	case *SlotRead:
		findCallsExpr(n.Slot, calls)
	case *MemoryRead:
		findCallsExpr(n.Address, calls)
	case *BatchRead:
		findCallsExpr(n.Hash, calls)
		findCallsExpr(n.Name, calls)
		findCallsExpr(n.Mode, calls)
	}
}

// walkStmts visits every statement in stmts and in the blocks nested in
// them, except SUB and FUNCTION bodies.
func walkStmts(stmts []Stmt, visit func(Stmt)) {
	for _, s := range stmts {
		visit(s)
		switch n := s.(type) {
		case *IfStmt:
			walkStmts(n.Then, visit)
			walkStmts(n.Else, visit)
		case *ForStmt:
			walkStmts(n.Body, visit)
		case *WhileStmt:
			walkStmts(n.Body, visit)
		case *DoLoopStmt:
			walkStmts(n.Body, visit)
		case *SelectStmt:
			for _, c := range n.Cases {
				walkStmts(c.Body, visit)
			}
			walkStmts(n.Default, visit)
		}
	}
}

// stmtExprs lists the expressions a statement evaluates directly.
func stmtExprs(s Stmt) []Expr {
	switch n := s.(type) {
	case *LetStmt:
		return append(append([]Expr{}, n.Indices...), n.Value)
	case *IfStmt:
		return []Expr{n.Cond}
	case *ForStmt:
		return []Expr{n.Start, n.End, n.Step}
	case *WhileStmt:
		return []Expr{n.Cond}
	case *DoLoopStmt:
		return []Expr{n.Cond}
	case *OnGotoStmt:
		return []Expr{n.Selector}
	case *ReturnStmt:
		return []Expr{n.Value}
	case *SelectStmt:
		out := []Expr{n.Subject}
		for _, c := range n.Cases {
			out = append(out, c.Values...)
		}
		return out
	case *CallStmt:
		return n.Args
	case *PrintStmt:
		return n.Values
	case *SleepStmt:
		return []Expr{n.Duration}
	case *PushStmt:
		return []Expr{n.Value}
	case *DeviceWriteStmt:
		return []Expr{n.Value}
	case *SlotWriteStmt:
		return []Expr{n.Slot, n.Value}
	case *MemoryWriteStmt:
		return []Expr{n.Address, n.Value}
	case *BatchWriteStmt:
		return []Expr{n.Hash, n.Name, n.Value}
	}
	return nil
}

// removeRedundantJumps drops a j whose target label follows it with
// nothing but labels and comments in between.
func removeRedundantJumps(p *ic10.Program) {
	out := p.Lines[:0]
	for i, l := range p.Lines {
		if l.Op == "j" && len(l.Args) == 1 {
			if target, ok := l.Args[0].(ic10.LabelRef); ok && labelFollows(p.Lines[i+1:], target.Label) {
				continue
			}
		}
		out = append(out, l)
	}
	p.Lines = out
}

func labelFollows(lines []ic10.Line, target *ic10.Label) bool {
	for _, l := range lines {
		if l.IsInstruction() {
			return false
		}
		if l.Label == target {
			return true
		}
	}
	return false
}
