package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes m in the textual syntax accepted by the irtext parser.
func Fprint(w io.Writer, m *Module) error {
	p := &printer{m: m}
	for i := 1; i < len(m.Globals); i++ {
		p.global(m.Globals[i])
	}
	for _, c := range m.Classes {
		p.class(c)
	}
	for _, f := range m.LiveFuncs() {
		p.fn(f)
	}
	_, err := io.WriteString(w, p.sb.String())
	return err
}

// FuncString renders a single function.
func FuncString(m *Module, f *Func) string {
	p := &printer{m: m}
	p.fn(f)
	return p.sb.String()
}

// ExprString renders an expression in the scope of f.
func ExprString(m *Module, f *Func, e *Expr) string {
	p := &printer{m: m, f: f}
	p.expr(e)
	return p.sb.String()
}

type printer struct {
	m      *Module
	f      *Func
	sb     strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) constText(c *Const) string {
	if c == nil {
		return "0"
	}
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFuncAddr:
		return "&" + p.funcName(c.Func)
	case ConstAgg:
		parts := make([]string, len(c.Elems))
		for i := range c.Elems {
			parts[i] = p.constText(&c.Elems[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "0"
}

func (p *printer) global(s *Symbol) {
	var prefix string
	if s.Storage == StorageStatic {
		prefix += "static "
	}
	if s.IsConst {
		prefix += "const "
	}
	if s.Init != nil {
		p.line("%sglobal %s = %s;", prefix, s.Name, p.constText(s.Init))
		return
	}
	p.line("%sglobal %s;", prefix, s.Name)
}

func (p *printer) class(c *ClassDecl) {
	var head strings.Builder
	if c.Interface {
		head.WriteString("interface ")
	} else {
		if c.Abstract {
			head.WriteString("abstract ")
		}
		head.WriteString("class ")
	}
	head.WriteString(c.Name)
	if c.Super != "" {
		head.WriteString(" : " + c.Super)
	}
	if len(c.Implements) > 0 {
		head.WriteString(" implements " + strings.Join(c.Implements, ", "))
	}
	p.line("%s {", head.String())
	p.indent++
	for _, md := range c.Methods {
		if md.Func.IsValid() {
			p.line("%s = %s;", md.Selector, p.funcName(md.Func))
		} else {
			p.line("%s;", md.Selector)
		}
	}
	p.indent--
	p.line("}")
}

func (p *printer) funcName(id FuncID) string {
	if int(id) < len(p.m.Funcs) && p.m.Funcs[id] != nil {
		return p.m.Funcs[id].Name
	}
	return fmt.Sprintf("<func %d>", id)
}

func (p *printer) fn(f *Func) {
	p.f = f
	defer func() { p.f = nil }()

	params := make([]string, 0, len(f.Formals)+1)
	for _, id := range f.Formals {
		params = append(params, f.Locals[id].Name)
	}
	if f.Attrs.Has(AttrVarargs) {
		params = append(params, "...")
	}
	attrs := (f.Attrs &^ AttrVarargs).String()
	if attrs != "" {
		attrs += " "
	}
	result := ""
	if f.HasResult {
		result = " int"
	}
	header := fmt.Sprintf("%sfunc %s(%s)%s", attrs, f.Name, strings.Join(params, ", "), result)
	if f.Body == nil {
		p.line("%s;", header)
		return
	}
	p.line("%s {", header)
	p.indent++
	p.locals(f)
	p.stmts(f.Body)
	p.indent--
	p.line("}")
}

func (p *printer) locals(f *Func) {
	var plain []string
	for i := 1; i < len(f.Locals); i++ {
		s := f.Locals[i]
		if s == nil || s.Storage == StorageFormal {
			continue
		}
		if s.IsConst && s.Init != nil {
			p.line("const var %s = %s;", s.Name, p.constText(s.Init))
			continue
		}
		plain = append(plain, s.Name)
	}
	if len(plain) > 0 {
		p.line("var %s;", strings.Join(plain, ", "))
	}
}

func (p *printer) stmts(b *Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		p.stmt(s)
	}
}

func (p *printer) block(head string, b *Block) {
	if head == "" {
		p.line("{")
	} else {
		p.line("%s {", head)
	}
	p.indent++
	p.stmts(b)
	p.indent--
}

func (p *printer) symName(ref SymRef) string {
	if s := p.m.Symbol(p.f, ref); s != nil {
		return s.Name
	}
	if ref.Global {
		return fmt.Sprintf("<global %d>", ref.ID)
	}
	return fmt.Sprintf("<local %d>", ref.ID)
}

func (p *printer) labelName(id LabelID) string {
	if p.f != nil && int(id) < len(p.f.Labels) && id.IsValid() {
		return p.f.Labels[id].Name
	}
	return fmt.Sprintf("<label %d>", id)
}

func (p *printer) pregName(id PregID) string {
	if p.f != nil && int(id) < len(p.f.Pregs) && id.IsValid() {
		return "$" + p.f.Pregs[id].Name
	}
	return fmt.Sprintf("$<preg %d>", id)
}

func (p *printer) exprText(e *Expr) string {
	sub := &printer{m: p.m, f: p.f}
	sub.expr(e)
	return sub.sb.String()
}

func (p *printer) args(es []*Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.exprText(e)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) stmt(s *Stmt) {
	switch d := s.Data.(type) {
	case *AssignData:
		p.line("%s = %s;", p.symName(d.Dst), p.exprText(d.Value))
	case *RegAssignData:
		p.line("%s = %s;", p.pregName(d.Reg), p.exprText(d.Value))
	case *CallData:
		p.line("%s;", p.callText(d))
	case *IfData:
		p.block(fmt.Sprintf("if (%s)", p.exprText(d.Cond)), d.Then)
		if d.Else != nil {
			p.line("} else {")
			p.indent++
			p.stmts(d.Else)
			p.indent--
		}
		p.line("}")
	case *WhileData:
		if s.Kind == StmtDoWhile {
			p.block("do", d.Body)
			p.line("} while (%s);", p.exprText(d.Cond))
			return
		}
		p.block(fmt.Sprintf("while (%s)", p.exprText(d.Cond)), d.Body)
		p.line("}")
	case *DoLoopData:
		v := p.symName(d.Var)
		p.block(fmt.Sprintf("for (%s = %s; %s; %s = %s)", v, p.exprText(d.Start), p.exprText(d.Cond), v, p.exprText(d.Incr)), d.Body)
		p.line("}")
	case *SwitchData:
		p.line("switch (%s) {", p.exprText(d.Value))
		p.indent++
		for _, c := range d.Cases {
			p.line("case %d: %s;", c.Value, p.labelName(c.Label))
		}
		if d.Default.IsValid() {
			p.line("default: %s;", p.labelName(d.Default))
		}
		p.indent--
		p.line("}")
	case *LabelData:
		p.line("%s:", p.labelName(d.Label))
	case *GotoData:
		p.line("goto %s;", p.labelName(d.Label))
	case *CondGotoData:
		kw := "if"
		if d.OnFalse {
			kw = "unless"
		}
		p.line("%s (%s) goto %s;", kw, p.exprText(d.Cond), p.labelName(d.Label))
	case *ReturnData:
		if d.Value == nil {
			p.line("return;")
			return
		}
		p.line("return %s;", p.exprText(d.Value))
	case *TryData:
		p.block("try", d.Body)
		p.line("} catch {")
		p.indent++
		p.stmts(d.Handler)
		p.indent--
		p.line("}")
	case *ThrowData:
		p.line("throw %s;", p.exprText(d.Value))
	case *EvalData:
		p.line("eval %s;", p.exprText(d.Value))
	case *CommentData:
		p.line("comment %s;", strconv.Quote(d.Text))
	case *BlockData:
		p.block("", d.Block)
		p.line("}")
	default:
		p.line("<unknown %s>;", s.Kind)
	}
}

func (p *printer) callText(d *CallData) string {
	var sb strings.Builder
	if d.HasResult {
		sb.WriteString(p.symName(d.Result))
		sb.WriteString(" = ")
	}
	switch d.Kind {
	case CallDirect:
		sb.WriteString(p.funcName(d.Callee))
	case CallIndirect:
		fmt.Fprintf(&sb, "(*%s)", p.exprText(d.Target))
	case CallVirtual, CallInterface, CallSuper:
		fmt.Fprintf(&sb, "%s %s.%s", d.Kind, d.Class, d.Method)
	case CallIntrinsic:
		fmt.Fprintf(&sb, "intrinsic %s", d.Intrinsic)
	}
	fmt.Fprintf(&sb, "(%s)", p.args(d.Args))
	return sb.String()
}

func (p *printer) expr(e *Expr) {
	if e == nil {
		p.sb.WriteString("<nil>")
		return
	}
	switch e.Kind {
	case ExprConst:
		p.sb.WriteString(strconv.FormatInt(e.Value, 10))
	case ExprRead:
		p.sb.WriteString(p.symName(e.Sym))
	case ExprRegRead:
		p.sb.WriteString(p.pregName(e.Reg))
	case ExprAddrOf:
		p.sb.WriteString("&" + p.symName(e.Sym))
	case ExprFuncAddr:
		p.sb.WriteString("&" + p.funcName(e.Func))
	case ExprUnary:
		p.sb.WriteString(e.Op.String())
		if e.Operands[0].IsConst() {
			p.sb.WriteByte('(')
			p.expr(e.Operands[0])
			p.sb.WriteByte(')')
			return
		}
		p.expr(e.Operands[0])
	case ExprBinary, ExprCompare:
		p.sb.WriteByte('(')
		p.expr(e.Operands[0])
		fmt.Fprintf(&p.sb, " %s ", e.Op)
		p.expr(e.Operands[1])
		p.sb.WriteByte(')')
	case ExprSelect:
		p.sb.WriteByte('(')
		p.expr(e.Operands[0])
		p.sb.WriteString(" ? ")
		p.expr(e.Operands[1])
		p.sb.WriteString(" : ")
		p.expr(e.Operands[2])
		p.sb.WriteByte(')')
	case ExprIndex:
		p.sb.WriteString(p.symName(e.Sym))
		for _, idx := range e.Operands {
			p.sb.WriteByte('[')
			p.expr(idx)
			p.sb.WriteByte(']')
		}
	}
}
