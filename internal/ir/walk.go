package ir

// ChildBlocks returns the nested blocks of s in source order.
func ChildBlocks(s *Stmt) []*Block {
	var out []*Block
	add := func(b *Block) {
		if b != nil {
			out = append(out, b)
		}
	}
	switch d := s.Data.(type) {
	case *IfData:
		add(d.Then)
		add(d.Else)
	case *WhileData:
		add(d.Body)
	case *DoLoopData:
		add(d.Body)
	case *TryData:
		add(d.Body)
		add(d.Handler)
	case *BlockData:
		add(d.Block)
	}
	return out
}

// StmtExprs returns pointers to the top-level expression slots of s, so callers
// can both read and replace them.
func StmtExprs(s *Stmt) []**Expr {
	var out []**Expr
	add := func(e **Expr) {
		if *e != nil {
			out = append(out, e)
		}
	}
	switch d := s.Data.(type) {
	case *AssignData:
		add(&d.Value)
	case *RegAssignData:
		add(&d.Value)
	case *CallData:
		add(&d.Target)
		for i := range d.Args {
			add(&d.Args[i])
		}
	case *IfData:
		add(&d.Cond)
	case *WhileData:
		add(&d.Cond)
	case *DoLoopData:
		add(&d.Start)
		add(&d.Cond)
		add(&d.Incr)
	case *SwitchData:
		add(&d.Value)
	case *CondGotoData:
		add(&d.Cond)
	case *ReturnData:
		add(&d.Value)
	case *ThrowData:
		add(&d.Value)
	case *EvalData:
		add(&d.Value)
	}
	return out
}

// WalkBlock visits every statement of b depth-first in source order. When fn
// returns false the children of that statement are skipped.
func WalkBlock(b *Block, fn func(s *Stmt) bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		if !fn(s) {
			continue
		}
		for _, child := range ChildBlocks(s) {
			WalkBlock(child, fn)
		}
	}
}

// WalkExpr visits e and all of its operands in pre-order.
func WalkExpr(e *Expr, fn func(e *Expr)) {
	if e == nil {
		return
	}
	fn(e)
	for _, op := range e.Operands {
		WalkExpr(op, fn)
	}
}

// WalkStmtExprs visits every expression node directly owned by s.
func WalkStmtExprs(s *Stmt, fn func(e *Expr)) {
	for _, slot := range StmtExprs(s) {
		WalkExpr(*slot, fn)
	}
}

// RewriteExpr replaces every node of e for which fn returns a non-nil
// replacement. Replacements are not visited again.
func RewriteExpr(e *Expr, fn func(e *Expr) *Expr) *Expr {
	if e == nil {
		return nil
	}
	if repl := fn(e); repl != nil {
		return repl
	}
	for i, op := range e.Operands {
		e.Operands[i] = RewriteExpr(op, fn)
	}
	return e
}

// FindStmt locates target inside root and returns its enclosing block and
// index.
func FindStmt(root *Block, target *Stmt) (*Block, int, bool) {
	if root == nil {
		return nil, -1, false
	}
	for i, s := range root.Stmts {
		if s == target {
			return root, i, true
		}
		for _, child := range ChildBlocks(s) {
			if b, idx, ok := FindStmt(child, target); ok {
				return b, idx, true
			}
		}
	}
	return nil, -1, false
}

// FindStmtByID locates the statement with the given id inside root.
func FindStmtByID(root *Block, id StmtID) *Stmt {
	var found *Stmt
	WalkBlock(root, func(s *Stmt) bool {
		if found != nil {
			return false
		}
		if s.ID == id {
			found = s
			return false
		}
		return true
	})
	return found
}

// CountStmts returns the number of statements in b, nested ones included.
func CountStmts(b *Block) int {
	n := 0
	WalkBlock(b, func(*Stmt) bool {
		n++
		return true
	})
	return n
}
