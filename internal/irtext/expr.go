package irtext

import (
	"ipa/internal/diag"
	"ipa/internal/ir"
)

type binOp struct {
	prec int
	op   ir.Op
}

var binOps = map[string]binOp{
	"||": {1, ir.OpLor},
	"&&": {2, ir.OpLand},
	"|":  {3, ir.OpOr},
	"^":  {4, ir.OpXor},
	"&":  {5, ir.OpAnd},
	"==": {6, ir.OpEq},
	"!=": {6, ir.OpNe},
	"<":  {7, ir.OpLt},
	"<=": {7, ir.OpLe},
	">":  {7, ir.OpGt},
	">=": {7, ir.OpGe},
	"<<": {8, ir.OpShl},
	">>": {8, ir.OpShr},
	"+":  {9, ir.OpAdd},
	"-":  {9, ir.OpSub},
	"*":  {10, ir.OpMul},
	"/":  {10, ir.OpDiv},
	"%":  {10, ir.OpRem},
}

// parseExpr reads a full expression; c ? a : b binds loosest.
func (p *parser) parseExpr() *ir.Expr {
	cond := p.parseBinary(1)
	if !p.accept("?") {
		return cond
	}
	a := p.parseExpr()
	p.expect(":")
	b := p.parseExpr()
	return ir.Select(cond, a, b)
}

func (p *parser) parseBinary(minPrec int) *ir.Expr {
	lhs := p.parseUnary()
	for {
		t := p.tok()
		if t.Kind != Punct {
			return lhs
		}
		info, ok := binOps[t.Text]
		if !ok || info.prec < minPrec {
			return lhs
		}
		p.next()
		rhs := p.parseBinary(info.prec + 1)
		if info.op.IsCompare() {
			lhs = ir.Compare(info.op, lhs, rhs)
		} else {
			lhs = ir.Binary(info.op, lhs, rhs)
		}
	}
}

func (p *parser) parseUnary() *ir.Expr {
	t := p.tok()
	switch {
	case t.Is("-"):
		p.next()
		if n := p.tok(); n.Kind == Int {
			p.next()
			return ir.Int(-n.Value)
		}
		return ir.Unary(ir.OpNeg, p.parseUnary())
	case t.Is("!"):
		p.next()
		return ir.Unary(ir.OpNot, p.parseUnary())
	case t.Is("~"):
		p.next()
		return ir.Unary(ir.OpBnot, p.parseUnary())
	case t.Is("&"):
		p.next()
		name := p.ident()
		if ref, sym, ok := p.lookupSym(name.Text); ok {
			sym.AddrTaken = true
			return ir.AddrOf(ref)
		}
		return ir.FuncAddr(p.funcRef(name.Text, name.Pos))
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() *ir.Expr {
	t := p.tok()
	switch {
	case t.Kind == Int:
		p.next()
		return ir.Int(t.Value)
	case t.Kind == Preg:
		p.next()
		return ir.RegRead(p.preg(t.Text))
	case t.Is("("):
		p.next()
		e := p.parseExpr()
		p.expect(")")
		return e
	case t.Kind == Ident && !isKeyword(t.Text):
		p.next()
		ref, sym, ok := p.lookupSym(t.Text)
		if !ok {
			if p.m.FuncByName(t.Text) != nil {
				p.fail(diag.IRSemUndefinedSymbol, t.Pos, "function %s used as a value; take its address with &%s", t.Text, t.Text)
			}
			p.fail(diag.IRSemUndefinedSymbol, t.Pos, "undefined symbol %s", t.Text)
		}
		if !p.tok().Is("[") {
			return ir.Read(ref)
		}
		if !ref.Global || !sym.IsConst {
			p.fail(diag.IRSemBadConstInit, t.Pos, "only constant globals can be indexed, %s is not one", t.Text)
		}
		var idx []*ir.Expr
		for p.accept("[") {
			idx = append(idx, p.parseExpr())
			p.expect("]")
		}
		return ir.Index(ref, idx...)
	}
	p.fail(diag.IRSynExpectExpr, t.Pos, "expected expression, found %s", t)
	return nil
}
