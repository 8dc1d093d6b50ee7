package ir

// CloneExpr returns a deep copy of e.
func CloneExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	out := *e
	if len(e.Operands) > 0 {
		out.Operands = make([]*Expr, len(e.Operands))
		for i, op := range e.Operands {
			out.Operands[i] = CloneExpr(op)
		}
	}
	return &out
}

func cloneExprs(es []*Expr) []*Expr {
	if es == nil {
		return nil
	}
	out := make([]*Expr, len(es))
	for i, e := range es {
		out[i] = CloneExpr(e)
	}
	return out
}

// CloneBlock returns a deep copy of b. Every statement of the copy gets a
// fresh id from m, so the copy never aliases the original.
func CloneBlock(m *Module, b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Stmts: make([]*Stmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, CloneStmt(m, s))
	}
	return out
}

// CloneStmt returns a deep copy of s with a fresh id.
func CloneStmt(m *Module, s *Stmt) *Stmt {
	var data StmtData
	switch d := s.Data.(type) {
	case *AssignData:
		data = &AssignData{Dst: d.Dst, Value: CloneExpr(d.Value)}
	case *RegAssignData:
		data = &RegAssignData{Reg: d.Reg, Value: CloneExpr(d.Value)}
	case *CallData:
		c := *d
		c.Target = CloneExpr(d.Target)
		c.Args = cloneExprs(d.Args)
		data = &c
	case *IfData:
		data = &IfData{Cond: CloneExpr(d.Cond), Then: CloneBlock(m, d.Then), Else: CloneBlock(m, d.Else)}
	case *WhileData:
		data = &WhileData{Cond: CloneExpr(d.Cond), Body: CloneBlock(m, d.Body)}
	case *DoLoopData:
		data = &DoLoopData{
			Var:   d.Var,
			Start: CloneExpr(d.Start),
			Cond:  CloneExpr(d.Cond),
			Incr:  CloneExpr(d.Incr),
			Body:  CloneBlock(m, d.Body),
		}
	case *SwitchData:
		data = &SwitchData{Value: CloneExpr(d.Value), Cases: append([]SwitchCase(nil), d.Cases...), Default: d.Default}
	case *LabelData:
		data = &LabelData{Label: d.Label}
	case *GotoData:
		data = &GotoData{Label: d.Label}
	case *CondGotoData:
		data = &CondGotoData{Cond: CloneExpr(d.Cond), Label: d.Label, OnFalse: d.OnFalse}
	case *ReturnData:
		data = &ReturnData{Value: CloneExpr(d.Value)}
	case *TryData:
		data = &TryData{Body: CloneBlock(m, d.Body), Handler: CloneBlock(m, d.Handler)}
	case *ThrowData:
		data = &ThrowData{Value: CloneExpr(d.Value)}
	case *EvalData:
		data = &EvalData{Value: CloneExpr(d.Value)}
	case *CommentData:
		data = &CommentData{Text: d.Text}
	case *BlockData:
		data = &BlockData{Block: CloneBlock(m, d.Block)}
	default:
		panic("ir: clone of unknown statement data")
	}
	return m.NewStmt(s.Kind, data)
}
