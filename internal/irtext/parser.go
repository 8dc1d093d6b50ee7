// Package irtext reads the textual form of the IR.
//
// The syntax is C-like: globals, class and interface declarations, and
// functions whose bodies hold structured statements. Functions may be
// referenced before they are defined; globals, locals and classes are
// resolved once the whole input has been read. Parsing stops at the first
// error, which is returned as a diag.Diagnostic.
package irtext

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"ipa/internal/diag"
	"ipa/internal/ir"
)

// Source is one named input file.
type Source struct {
	Name string
	Data []byte
}

type funcRef struct {
	pos      diag.Pos // first reference
	declared bool
	hasBody  bool
}

type classRef struct {
	name string
	pos  diag.Pos
}

// state is shared by every file parsed into the same module.
type state struct {
	funcs     map[ir.FuncID]*funcRef
	classRefs []classRef
}

type parser struct {
	toks []Token
	pos  int
	m    *ir.Module
	st   *state

	fn        *ir.Func
	labelRefs map[ir.LabelID]diag.Pos
	labelDefs map[ir.LabelID]bool
}

type bailout struct{ err error }

// Parse reads a single file into a new module.
func Parse(file string, src []byte) (*ir.Module, error) {
	return ParseFiles(context.Background(), []Source{{Name: file, Data: src}})
}

// ParseString is Parse over an in-memory snippet.
func ParseString(src string) (*ir.Module, error) {
	return Parse("<input>", []byte(src))
}

// ParseFiles lexes every file in parallel and then parses them in order into
// one module, so functions defined in one file may be called from another.
func ParseFiles(ctx context.Context, srcs []Source) (*ir.Module, error) {
	if len(srcs) == 0 {
		return nil, fmt.Errorf("irtext: no input files")
	}
	streams := make([][]Token, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			toks, err := Tokenize(src.Name, src.Data)
			if err != nil {
				return err
			}
			streams[i] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(srcs[0].Name), filepath.Ext(srcs[0].Name))
	m := ir.NewModule(name)
	st := &state{funcs: make(map[ir.FuncID]*funcRef)}
	for _, toks := range streams {
		p := &parser{toks: toks, m: m, st: st}
		if err := p.run(p.parseFile); err != nil {
			return nil, err
		}
	}
	p := &parser{m: m, st: st}
	if err := p.run(p.finish); err != nil {
		return nil, err
	}
	if err := ir.Verify(m); err != nil {
		return nil, diag.NewError(diag.IRSemVerifyFailed, diag.Pos{File: srcs[0].Name}, err.Error())
	}
	return m, nil
}

func (p *parser) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	fn()
	return nil
}

func (p *parser) fail(code diag.Code, pos diag.Pos, format string, args ...any) {
	panic(bailout{err: diag.NewError(code, pos, fmt.Sprintf(format, args...))})
}

func (p *parser) tok() Token { return p.toks[p.pos] }

func (p *parser) peek(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.tok().Is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) Token {
	t := p.tok()
	if !t.Is(text) {
		code := diag.IRSynUnexpectedToken
		if text == ";" {
			code = diag.IRSynExpectSemicolon
		}
		p.fail(code, t.Pos, "expected %q, found %s", text, t)
	}
	return p.next()
}

func (p *parser) ident() Token {
	t := p.tok()
	if t.Kind != Ident || isKeyword(t.Text) {
		p.fail(diag.IRSynExpectIdent, t.Pos, "expected identifier, found %s", t)
	}
	return p.next()
}

var keywords = []string{
	"global", "func", "class", "interface", "implements", "abstract",
	"var", "const", "if", "else", "unless", "while", "do", "for", "switch",
	"case", "default", "goto", "return", "try", "catch", "throw", "eval",
	"comment", "vcall", "intfcall", "supercall", "intrinsic",
}

func isKeyword(s string) bool { return slices.Contains(keywords, s) }

// finish resolves everything that may have been referenced before its
// declaration.
func (p *parser) finish() {
	ids := make([]ir.FuncID, 0, len(p.st.funcs))
	for id := range p.st.funcs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if ref := p.st.funcs[id]; !ref.declared {
			p.fail(diag.IRSemUndefinedFunc, ref.pos, "undefined function %s", p.m.Funcs[id].Name)
		}
	}
	for _, ref := range p.st.classRefs {
		if p.m.Class(ref.name) == nil {
			p.fail(diag.IRSemUnknownClass, ref.pos, "unknown class or interface %s", ref.name)
		}
	}
}

// funcRef returns the function called name, creating a placeholder that must
// be defined before the input ends.
func (p *parser) funcRef(name string, pos diag.Pos) ir.FuncID {
	if f := p.m.FuncByName(name); f != nil {
		return f.ID
	}
	if _, ok := p.m.GlobalByName(name); ok {
		p.fail(diag.IRSemDuplicate, pos, "%s is a global, not a function", name)
	}
	id := p.m.AddFunc(ir.NewFunc(name, 0))
	p.st.funcs[id] = &funcRef{pos: pos}
	return id
}

func (p *parser) lookupSym(name string) (ir.SymRef, *ir.Symbol, bool) {
	if p.fn != nil {
		if id, ok := p.fn.LocalByName(name); ok {
			return ir.LocalRef(id), p.fn.Locals[id], true
		}
	}
	if id, ok := p.m.GlobalByName(name); ok {
		return ir.GlobalRef(id), p.m.Global(id), true
	}
	return ir.SymRef{}, nil, false
}

func (p *parser) newStmt(kind ir.StmtKind, data ir.StmtData) *ir.Stmt {
	return p.m.NewStmt(kind, data)
}
