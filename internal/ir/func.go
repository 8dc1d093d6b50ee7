package ir

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// FuncAttrs represents function attributes as a bitmask.
type FuncAttrs uint32

const (
	// AttrStatic marks a file-static function.
	AttrStatic FuncAttrs = 1 << iota
	// AttrInline marks a function declared inline.
	AttrInline
	// AttrNoInline forbids inlining the function.
	AttrNoInline
	// AttrAlwaysInline requests inlining at every call site.
	AttrAlwaysInline
	// AttrExtern marks an externally visible inline definition.
	AttrExtern
	// AttrWeak marks a preemptable definition.
	AttrWeak
	// AttrVarargs marks a variadic function.
	AttrVarargs
	// AttrVirtual marks a virtual method.
	AttrVirtual
	// AttrFinal marks a method that cannot be overridden.
	AttrFinal
	// AttrOutlined marks a function produced by outlining.
	AttrOutlined
	// AttrPreferInline is the "prefer_inline on" pragma.
	AttrPreferInline
	// AttrNoPreferInline is the "prefer_inline off" pragma.
	AttrNoPreferInline
)

var attrNames = []struct {
	attr FuncAttrs
	name string
}{
	{AttrStatic, "static"},
	{AttrInline, "inline"},
	{AttrNoInline, "noinline"},
	{AttrAlwaysInline, "always_inline"},
	{AttrExtern, "extern"},
	{AttrWeak, "weak"},
	{AttrVarargs, "varargs"},
	{AttrVirtual, "virtual"},
	{AttrFinal, "final"},
	{AttrOutlined, "outlined"},
	{AttrPreferInline, "prefer_inline"},
	{AttrNoPreferInline, "no_prefer_inline"},
}

// Has returns true if the given attribute is set.
func (a FuncAttrs) Has(attr FuncAttrs) bool {
	return a&attr != 0
}

// String returns the attribute keywords separated by spaces.
func (a FuncAttrs) String() string {
	var parts []string
	for _, an := range attrNames {
		if a.Has(an.attr) {
			parts = append(parts, an.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseAttr maps a keyword to its attribute.
func ParseAttr(name string) (FuncAttrs, bool) {
	for _, an := range attrNames {
		if an.name == name {
			return an.attr, true
		}
	}
	return 0, false
}

// Preg is a virtual register.
type Preg struct {
	Name string
}

// Label is a jump target.
type Label struct {
	Name string
}

// Func is a function definition or declaration.
type Func struct {
	ID    FuncID
	Name  string
	Attrs FuncAttrs

	// Class and Method are set for methods bound by a class declaration.
	Class  string
	Method string

	Formals []SymID
	Locals  []*Symbol // [0] is unused
	Pregs   []Preg    // [0] is unused
	Labels  []Label   // [0] is unused

	Body      *Block // nil for declarations
	HasResult bool
	Deleted   bool
}

// NewFunc returns an empty function with initialised tables.
func NewFunc(name string, attrs FuncAttrs) *Func {
	return &Func{
		Name:   name,
		Attrs:  attrs,
		Locals: []*Symbol{nil},
		Pregs:  []Preg{{}},
		Labels: []Label{{}},
	}
}

func toID[T ~uint32](n int) T {
	id, err := safecast.Conv[T](n)
	if err != nil {
		panic(fmt.Errorf("ir: id overflow: %w", err))
	}
	return id
}

// NewLocal appends a symbol to the local table.
func (f *Func) NewLocal(name string, storage Storage) SymID {
	f.Locals = append(f.Locals, &Symbol{Name: name, Storage: storage})
	return toID[SymID](len(f.Locals) - 1)
}

// NewFormal appends a formal parameter.
func (f *Func) NewFormal(name string) SymID {
	id := f.NewLocal(name, StorageFormal)
	f.Formals = append(f.Formals, id)
	return id
}

// NewPreg appends a virtual register.
func (f *Func) NewPreg(name string) PregID {
	f.Pregs = append(f.Pregs, Preg{Name: name})
	return toID[PregID](len(f.Pregs) - 1)
}

// NewLabel appends a label.
func (f *Func) NewLabel(name string) LabelID {
	f.Labels = append(f.Labels, Label{Name: name})
	return toID[LabelID](len(f.Labels) - 1)
}

// Local returns the local symbol with the given id, or nil.
func (f *Func) Local(id SymID) *Symbol {
	if !id.IsValid() || int(id) >= len(f.Locals) {
		return nil
	}
	return f.Locals[id]
}

// LocalByName finds a local symbol by name.
func (f *Func) LocalByName(name string) (SymID, bool) {
	for i := 1; i < len(f.Locals); i++ {
		if f.Locals[i] != nil && f.Locals[i].Name == name {
			return toID[SymID](i), true
		}
	}
	return NoSymID, false
}

// LabelByName finds a label by name.
func (f *Func) LabelByName(name string) (LabelID, bool) {
	for i := 1; i < len(f.Labels); i++ {
		if f.Labels[i].Name == name {
			return toID[LabelID](i), true
		}
	}
	return NoLabelID, false
}

// PregByName finds a virtual register by name.
func (f *Func) PregByName(name string) (PregID, bool) {
	for i := 1; i < len(f.Pregs); i++ {
		if f.Pregs[i].Name == name {
			return toID[PregID](i), true
		}
	}
	return NoPregID, false
}

// FormalIndex returns the parameter position of a local symbol, or -1.
func (f *Func) FormalIndex(id SymID) int {
	for i, formal := range f.Formals {
		if formal == id {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the function has no statements.
func (f *Func) IsEmpty() bool {
	return f.Body == nil || len(f.Body.Stmts) == 0
}

// IsStatic reports whether the function is file-static.
func (f *Func) IsStatic() bool { return f.Attrs.Has(AttrStatic) }

// IsInline reports whether the function is declared inline.
func (f *Func) IsInline() bool { return f.Attrs.Has(AttrInline) }

// IsExtern reports whether the function is extern.
func (f *Func) IsExtern() bool { return f.Attrs.Has(AttrExtern) }

// Signature returns the function type used to match indirect calls.
func (f *Func) Signature() string {
	return FuncSignature(len(f.Formals), f.Attrs.Has(AttrVarargs), f.HasResult)
}

// FuncSignature formats a function type.
func FuncSignature(params int, varargs, result bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn(%d", params)
	if varargs {
		sb.WriteString(",...")
	}
	sb.WriteString(")")
	if result {
		sb.WriteString(" int")
	}
	return sb.String()
}
