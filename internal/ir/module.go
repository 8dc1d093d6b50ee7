package ir

import (
	"fmt"
	"slices"
)

// MethodDecl binds a selector to its implementation.
type MethodDecl struct {
	Selector string
	Func     FuncID
}

// ClassDecl is a class or interface declaration as written in the source.
type ClassDecl struct {
	Name       string
	Super      string
	Interface  bool
	Abstract   bool
	Implements []string
	Methods    []MethodDecl
}

// Module is the compilation context of one unit.
type Module struct {
	Name string

	Funcs   []*Func   // [0] is unused; deleted functions stay as tombstones
	Globals []*Symbol // [0] is unused
	Classes []*ClassDecl

	// FuncList is the compilation order, bottom-up once the call graph set it.
	FuncList []FuncID

	funcByName   map[string]FuncID
	globalByName map[string]SymID
	nextStmt     StmtID
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		Funcs:        []*Func{nil},
		Globals:      []*Symbol{nil},
		funcByName:   make(map[string]FuncID),
		globalByName: make(map[string]SymID),
	}
}

// AddFunc registers f and appends it to the function list.
func (m *Module) AddFunc(f *Func) FuncID {
	if _, dup := m.funcByName[f.Name]; dup {
		panic(fmt.Errorf("ir: duplicate function %q", f.Name))
	}
	m.Funcs = append(m.Funcs, f)
	f.ID = toID[FuncID](len(m.Funcs) - 1)
	m.funcByName[f.Name] = f.ID
	m.FuncList = append(m.FuncList, f.ID)
	return f.ID
}

// Func returns the live function with the given id, or nil.
func (m *Module) Func(id FuncID) *Func {
	if !id.IsValid() || int(id) >= len(m.Funcs) {
		return nil
	}
	f := m.Funcs[id]
	if f == nil || f.Deleted {
		return nil
	}
	return f
}

// FuncByName finds a live function.
func (m *Module) FuncByName(name string) *Func {
	id, ok := m.funcByName[name]
	if !ok {
		return nil
	}
	return m.Func(id)
}

// LiveFuncs returns all non-deleted functions in id order.
func (m *Module) LiveFuncs() []*Func {
	out := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil && !f.Deleted {
			out = append(out, f)
		}
	}
	return out
}

// DeleteFunc tombstones a function and drops it from every table that names it.
func (m *Module) DeleteFunc(id FuncID) {
	f := m.Func(id)
	if f == nil {
		panic(fmt.Errorf("ir: delete of unknown or deleted function %d", id))
	}
	f.Deleted = true
	delete(m.funcByName, f.Name)
	m.FuncList = slices.DeleteFunc(m.FuncList, func(x FuncID) bool { return x == id })
	for _, c := range m.Classes {
		c.Methods = slices.DeleteFunc(c.Methods, func(md MethodDecl) bool { return md.Func == id })
	}
}

// AddGlobal registers a global symbol.
func (m *Module) AddGlobal(sym *Symbol) SymID {
	if _, dup := m.globalByName[sym.Name]; dup {
		panic(fmt.Errorf("ir: duplicate global %q", sym.Name))
	}
	m.Globals = append(m.Globals, sym)
	id := toID[SymID](len(m.Globals) - 1)
	m.globalByName[sym.Name] = id
	return id
}

// Global returns the global symbol with the given id, or nil.
func (m *Module) Global(id SymID) *Symbol {
	if !id.IsValid() || int(id) >= len(m.Globals) {
		return nil
	}
	return m.Globals[id]
}

// GlobalByName finds a global symbol.
func (m *Module) GlobalByName(name string) (SymID, bool) {
	id, ok := m.globalByName[name]
	return id, ok
}

// Symbol resolves a reference in the scope of fn.
func (m *Module) Symbol(fn *Func, ref SymRef) *Symbol {
	if ref.Global {
		return m.Global(ref.ID)
	}
	if fn == nil {
		return nil
	}
	return fn.Local(ref.ID)
}

// Class finds a class declaration by name.
func (m *Module) Class(name string) *ClassDecl {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NewStmt allocates a statement with a fresh id.
func (m *Module) NewStmt(kind StmtKind, data StmtData) *Stmt {
	m.nextStmt++
	return &Stmt{Kind: kind, ID: m.nextStmt, Data: data}
}

// RenumberStmt gives s a fresh id.
func (m *Module) RenumberStmt(s *Stmt) {
	m.nextStmt++
	s.ID = m.nextStmt
}

// NumStmtIDs returns the number of statement ids handed out so far.
func (m *Module) NumStmtIDs() int { return int(m.nextStmt) }
