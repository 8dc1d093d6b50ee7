package irtext

import (
	"ipa/internal/diag"
	"ipa/internal/ir"
)

func (p *parser) parseBlock() *ir.Block {
	open := p.expect("{")
	b := &ir.Block{}
	for !p.accept("}") {
		if p.tok().Kind == EOF {
			p.fail(diag.IRSynUnclosedBrace, open.Pos, "unclosed block")
		}
		p.parseStmt(b)
	}
	return b
}

func (p *parser) add(b *ir.Block, kind ir.StmtKind, data ir.StmtData) {
	b.Stmts = append(b.Stmts, p.newStmt(kind, data))
}

func (p *parser) parseStmt(b *ir.Block) {
	t := p.tok()
	switch {
	case t.Is("var"):
		p.next()
		for {
			name := p.ident()
			p.declareLocal(name)
			if !p.accept(",") {
				break
			}
		}
		p.expect(";")
	case t.Is("const"):
		p.next()
		p.expect("var")
		name := p.ident()
		p.expect("=")
		c := p.parseConst()
		p.expect(";")
		sym := p.fn.Locals[p.declareLocal(name)]
		sym.IsConst = true
		sym.Init = &c
	case t.Is("if"):
		p.parseIf(b)
	case t.Is("unless"):
		p.next()
		p.expect("(")
		cond := p.parseExpr()
		p.expect(")")
		p.expect("goto")
		lbl := p.label(p.ident())
		p.expect(";")
		p.add(b, ir.StmtCondGoto, &ir.CondGotoData{Cond: cond, Label: lbl, OnFalse: true})
	case t.Is("while"):
		p.next()
		p.expect("(")
		cond := p.parseExpr()
		p.expect(")")
		p.add(b, ir.StmtWhile, &ir.WhileData{Cond: cond, Body: p.parseBlock()})
	case t.Is("do"):
		p.next()
		body := p.parseBlock()
		p.expect("while")
		p.expect("(")
		cond := p.parseExpr()
		p.expect(")")
		p.expect(";")
		p.add(b, ir.StmtDoWhile, &ir.WhileData{Cond: cond, Body: body})
	case t.Is("for"):
		p.parseFor(b)
	case t.Is("switch"):
		p.parseSwitch(b)
	case t.Is("goto"):
		p.next()
		lbl := p.label(p.ident())
		p.expect(";")
		p.add(b, ir.StmtGoto, &ir.GotoData{Label: lbl})
	case t.Is("return"):
		p.next()
		data := &ir.ReturnData{}
		if !p.tok().Is(";") {
			data.Value = p.parseExpr()
			p.fn.HasResult = true
		}
		p.expect(";")
		p.add(b, ir.StmtReturn, data)
	case t.Is("try"):
		p.next()
		body := p.parseBlock()
		p.expect("catch")
		p.add(b, ir.StmtTry, &ir.TryData{Body: body, Handler: p.parseBlock()})
	case t.Is("throw"), t.Is("eval"):
		p.next()
		v := p.parseExpr()
		p.expect(";")
		if t.Text == "throw" {
			p.add(b, ir.StmtThrow, &ir.ThrowData{Value: v})
		} else {
			p.add(b, ir.StmtEval, &ir.EvalData{Value: v})
		}
	case t.Is("comment"):
		p.next()
		s := p.tok()
		if s.Kind != String {
			p.fail(diag.IRSynUnexpectedToken, s.Pos, "expected string after comment, found %s", s)
		}
		p.next()
		p.expect(";")
		p.add(b, ir.StmtComment, &ir.CommentData{Text: s.Text})
	case t.Is("{"):
		p.add(b, ir.StmtBlock, &ir.BlockData{Block: p.parseBlock()})
	case p.startsCall():
		p.add(b, ir.StmtCall, p.parseCall(nil))
		p.expect(";")
	case t.Kind == Preg:
		p.next()
		p.expect("=")
		v := p.parseExpr()
		p.expect(";")
		p.add(b, ir.StmtRegAssign, &ir.RegAssignData{Reg: p.preg(t.Text), Value: v})
	case t.Kind == Ident && p.peek(1).Is(":"):
		name := p.ident()
		p.next()
		lbl := p.label(name)
		if p.labelDefs[lbl] {
			p.fail(diag.IRSemDuplicateLabel, name.Pos, "label %s defined twice", name.Text)
		}
		p.labelDefs[lbl] = true
		p.add(b, ir.StmtLabel, &ir.LabelData{Label: lbl})
	case t.Kind == Ident && p.peek(1).Is("="):
		name := p.ident()
		dst := p.assignable(name)
		p.next()
		if p.startsCall() {
			call := p.parseCall(&dst)
			p.expect(";")
			p.add(b, ir.StmtCall, call)
			return
		}
		v := p.parseExpr()
		p.expect(";")
		p.add(b, ir.StmtAssign, &ir.AssignData{Dst: dst, Value: v})
	default:
		p.fail(diag.IRSynUnexpectedToken, t.Pos, "expected statement, found %s", t)
	}
}

func (p *parser) declareLocal(name Token) ir.SymID {
	if _, dup := p.fn.LocalByName(name.Text); dup {
		p.fail(diag.IRSemDuplicate, name.Pos, "local %s redeclared", name.Text)
	}
	return p.fn.NewLocal(name.Text, ir.StorageLocal)
}

// assignable resolves the destination of an assignment.
func (p *parser) assignable(name Token) ir.SymRef {
	ref, sym, ok := p.lookupSym(name.Text)
	if !ok {
		p.fail(diag.IRSemUndefinedSymbol, name.Pos, "undefined symbol %s", name.Text)
	}
	if sym.IsConst {
		p.fail(diag.IRSemNotAssignable, name.Pos, "cannot assign to constant %s", name.Text)
	}
	return ref
}

func (p *parser) preg(name string) ir.PregID {
	if id, ok := p.fn.PregByName(name); ok {
		return id
	}
	return p.fn.NewPreg(name)
}

func (p *parser) parseIf(b *ir.Block) {
	p.expect("if")
	p.expect("(")
	cond := p.parseExpr()
	p.expect(")")
	if p.accept("goto") {
		lbl := p.label(p.ident())
		p.expect(";")
		p.add(b, ir.StmtCondGoto, &ir.CondGotoData{Cond: cond, Label: lbl})
		return
	}
	data := &ir.IfData{Cond: cond, Then: p.parseBlock()}
	if p.accept("else") {
		if p.tok().Is("if") {
			data.Else = &ir.Block{}
			p.parseIf(data.Else)
		} else {
			data.Else = p.parseBlock()
		}
	}
	p.add(b, ir.StmtIf, data)
}

func (p *parser) parseFor(b *ir.Block) {
	p.expect("for")
	p.expect("(")
	name := p.ident()
	v := p.assignable(name)
	p.expect("=")
	start := p.parseExpr()
	p.expect(";")
	cond := p.parseExpr()
	p.expect(";")
	again := p.ident()
	if again.Text != name.Text {
		p.fail(diag.IRSynUnexpectedToken, again.Pos, "for loop must update %s, found %s", name.Text, again.Text)
	}
	p.expect("=")
	incr := p.parseExpr()
	p.expect(")")
	p.add(b, ir.StmtDoLoop, &ir.DoLoopData{Var: v, Start: start, Cond: cond, Incr: incr, Body: p.parseBlock()})
}

func (p *parser) parseSwitch(b *ir.Block) {
	p.expect("switch")
	p.expect("(")
	data := &ir.SwitchData{Value: p.parseExpr()}
	p.expect(")")
	open := p.expect("{")
	for !p.accept("}") {
		t := p.tok()
		switch {
		case p.accept("case"):
			neg := p.accept("-")
			v := p.tok()
			if v.Kind != Int {
				p.fail(diag.IRSynUnexpectedToken, v.Pos, "expected case value, found %s", v)
			}
			p.next()
			p.expect(":")
			value := v.Value
			if neg {
				value = -value
			}
			data.Cases = append(data.Cases, ir.SwitchCase{Value: value, Label: p.label(p.ident())})
		case p.accept("default"):
			p.expect(":")
			data.Default = p.label(p.ident())
		case t.Kind == EOF:
			p.fail(diag.IRSynUnclosedBrace, open.Pos, "unclosed switch")
		default:
			p.fail(diag.IRSynUnexpectedToken, t.Pos, "expected case or default, found %s", t)
		}
		p.expect(";")
	}
	p.add(b, ir.StmtSwitch, data)
}

func (p *parser) startsCall() bool {
	t := p.tok()
	switch {
	case t.Is("vcall"), t.Is("intfcall"), t.Is("supercall"), t.Is("intrinsic"):
		return true
	case t.Is("("):
		return p.peek(1).Is("*")
	case t.Kind == Ident && !isKeyword(t.Text):
		return p.peek(1).Is("(")
	}
	return false
}

func (p *parser) parseCall(result *ir.SymRef) *ir.CallData {
	call := &ir.CallData{}
	if result != nil {
		call.HasResult = true
		call.Result = *result
	}
	t := p.tok()
	switch {
	case t.Is("vcall"), t.Is("intfcall"), t.Is("supercall"):
		p.next()
		switch t.Text {
		case "vcall":
			call.Kind = ir.CallVirtual
		case "intfcall":
			call.Kind = ir.CallInterface
		default:
			call.Kind = ir.CallSuper
		}
		class := p.ident()
		p.expect(".")
		call.Class = class.Text
		call.Method = p.ident().Text
		p.st.classRefs = append(p.st.classRefs, classRef{name: class.Text, pos: class.Pos})
	case t.Is("intrinsic"):
		p.next()
		call.Kind = ir.CallIntrinsic
		call.Intrinsic = p.ident().Text
	case t.Is("("):
		p.next()
		p.expect("*")
		call.Kind = ir.CallIndirect
		call.Target = p.parseExpr()
		p.expect(")")
	default:
		name := p.ident()
		if _, _, isSym := p.lookupSym(name.Text); isSym {
			p.fail(diag.IRSemUndefinedFunc, name.Pos, "%s is a variable; call it with (*%s)(...)", name.Text, name.Text)
		}
		call.Kind = ir.CallDirect
		call.Callee = p.funcRef(name.Text, name.Pos)
	}
	p.expect("(")
	for !p.tok().Is(")") {
		call.Args = append(call.Args, p.parseExpr())
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	return call
}
