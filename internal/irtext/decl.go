package irtext

import (
	"ipa/internal/diag"
	"ipa/internal/ir"
)

func (p *parser) parseFile() {
	for p.tok().Kind != EOF {
		t := p.tok()
		if t.Is("class") || t.Is("interface") || t.Is("abstract") {
			p.parseClass()
			continue
		}
		var words []Token
		for p.tok().Kind == Ident && !p.tok().Is("func") && !p.tok().Is("global") {
			words = append(words, p.next())
		}
		switch {
		case p.tok().Is("global"):
			p.parseGlobal(words)
		case p.tok().Is("func"):
			p.parseFunc(words)
		default:
			p.fail(diag.IRSynUnexpectedToken, p.tok().Pos, "expected declaration, found %s", p.tok())
		}
	}
}

func (p *parser) parseGlobal(words []Token) {
	sym := &ir.Symbol{Storage: ir.StorageGlobal}
	for _, w := range words {
		switch w.Text {
		case "static":
			sym.Storage = ir.StorageStatic
		case "const":
			sym.IsConst = true
		default:
			p.fail(diag.IRSynUnexpectedToken, w.Pos, "unexpected %s before global", w)
		}
	}
	p.expect("global")
	name := p.ident()
	sym.Name = name.Text
	if _, dup := p.m.GlobalByName(name.Text); dup || p.m.FuncByName(name.Text) != nil {
		p.fail(diag.IRSemDuplicate, name.Pos, "%s redeclared", name.Text)
	}
	if p.accept("=") {
		c := p.parseConst()
		sym.Init = &c
	}
	p.expect(";")
	p.m.AddGlobal(sym)
}

// parseConst reads an integer, a function address or a bracketed aggregate.
func (p *parser) parseConst() ir.Const {
	t := p.tok()
	switch {
	case t.Kind == Int:
		p.next()
		return ir.Const{Kind: ir.ConstInt, Int: t.Value}
	case t.Is("-") && p.peek(1).Kind == Int:
		p.next()
		return ir.Const{Kind: ir.ConstInt, Int: -p.next().Value}
	case t.Is("&"):
		p.next()
		name := p.ident()
		return ir.Const{Kind: ir.ConstFuncAddr, Func: p.funcRef(name.Text, name.Pos)}
	case t.Is("["):
		p.next()
		agg := ir.Const{Kind: ir.ConstAgg}
		for !p.tok().Is("]") {
			agg.Elems = append(agg.Elems, p.parseConst())
			if !p.accept(",") {
				break
			}
		}
		p.expect("]")
		return agg
	}
	p.fail(diag.IRSemBadConstInit, t.Pos, "expected constant initialiser, found %s", t)
	return ir.Const{}
}

func (p *parser) parseClass() {
	decl := &ir.ClassDecl{}
	if p.accept("abstract") {
		decl.Abstract = true
	}
	kw := p.tok()
	switch {
	case p.accept("interface"):
		decl.Interface = true
	case p.accept("class"):
	default:
		p.fail(diag.IRSynUnexpectedToken, kw.Pos, "expected class or interface, found %s", kw)
	}
	name := p.ident()
	decl.Name = name.Text
	if p.m.Class(name.Text) != nil {
		p.fail(diag.IRSemDuplicate, name.Pos, "class %s redeclared", name.Text)
	}
	if p.accept(":") {
		super := p.ident()
		decl.Super = super.Text
		p.st.classRefs = append(p.st.classRefs, classRef{name: super.Text, pos: super.Pos})
	}
	if p.accept("implements") {
		for {
			iface := p.ident()
			decl.Implements = append(decl.Implements, iface.Text)
			p.st.classRefs = append(p.st.classRefs, classRef{name: iface.Text, pos: iface.Pos})
			if !p.accept(",") {
				break
			}
		}
	}
	open := p.expect("{")
	for !p.accept("}") {
		if p.tok().Kind == EOF {
			p.fail(diag.IRSynUnclosedBrace, open.Pos, "unclosed class body")
		}
		sel := p.ident()
		md := ir.MethodDecl{Selector: sel.Text}
		if p.accept("=") {
			impl := p.ident()
			md.Func = p.funcRef(impl.Text, impl.Pos)
			f := p.m.Funcs[md.Func]
			f.Class, f.Method = decl.Name, sel.Text
		}
		p.expect(";")
		decl.Methods = append(decl.Methods, md)
	}
	p.m.Classes = append(p.m.Classes, decl)
}

func (p *parser) parseFunc(words []Token) {
	var attrs ir.FuncAttrs
	for _, w := range words {
		a, ok := ir.ParseAttr(w.Text)
		if !ok {
			p.fail(diag.IRSemUnknownAttr, w.Pos, "unknown function attribute %s", w.Text)
		}
		attrs |= a
	}
	p.expect("func")
	name := p.ident()
	f := p.declareFunc(name, attrs)

	p.fn = f
	p.labelRefs = make(map[ir.LabelID]diag.Pos)
	p.labelDefs = make(map[ir.LabelID]bool)
	defer func() { p.fn = nil }()

	p.expect("(")
	for !p.tok().Is(")") {
		if p.accept("...") {
			f.Attrs |= ir.AttrVarargs
			break
		}
		param := p.ident()
		if _, dup := f.LocalByName(param.Text); dup {
			p.fail(diag.IRSemDuplicate, param.Pos, "parameter %s repeated", param.Text)
		}
		f.NewFormal(param.Text)
		if !p.accept(",") {
			break
		}
	}
	p.expect(")")
	if p.accept("int") {
		f.HasResult = true
	}
	if p.accept(";") {
		return
	}
	p.st.funcs[f.ID].hasBody = true
	f.Body = p.parseBlock()
	p.checkLabels()
}

// declareFunc fills the placeholder for name, or creates the function.
func (p *parser) declareFunc(name Token, attrs ir.FuncAttrs) *ir.Func {
	if _, ok := p.m.GlobalByName(name.Text); ok {
		p.fail(diag.IRSemDuplicate, name.Pos, "%s is already a global", name.Text)
	}
	id := p.funcRef(name.Text, name.Pos)
	ref := p.st.funcs[id]
	if ref == nil || ref.hasBody {
		p.fail(diag.IRSemDuplicate, name.Pos, "function %s redefined", name.Text)
	}
	ref.declared = true
	f := p.m.Funcs[id]
	class, method := f.Class, f.Method
	*f = *ir.NewFunc(name.Text, attrs)
	f.ID, f.Class, f.Method = id, class, method
	return f
}

func (p *parser) checkLabels() {
	for id := 1; id < len(p.fn.Labels); id++ {
		lid := ir.LabelID(id)
		if !p.labelDefs[lid] {
			p.fail(diag.IRSemUndefinedLabel, p.labelRefs[lid], "label %s used but not defined", p.fn.Labels[id].Name)
		}
	}
}

func (p *parser) label(t Token) ir.LabelID {
	if id, ok := p.fn.LabelByName(t.Text); ok {
		return id
	}
	id := p.fn.NewLabel(t.Text)
	p.labelRefs[id] = t.Pos
	return id
}
