// Package hierarchy answers dispatch questions over the class declarations of
// a module: which methods a virtual, interface or super call may reach.
package hierarchy

import (
	"slices"

	"ipa/internal/ir"
)

// Klass is one class or interface.
type Klass struct {
	Name      string
	Interface bool
	Abstract  bool

	Super        *Klass
	Subs         []*Klass
	Implements   []*Klass
	Implementers []*Klass // classes naming this interface directly

	// Incomplete is set when a super class or interface is not declared,
	// or the super chain is cyclic.
	Incomplete bool

	methods map[string]ir.FuncID
	order   []string
}

// Method returns the implementation declared by k itself.
func (k *Klass) Method(selector string) (ir.FuncID, bool) {
	id, ok := k.methods[selector]
	return id, ok && id.IsValid()
}

// Selectors returns k's own selectors in declaration order.
func (k *Klass) Selectors() []string { return slices.Clone(k.order) }

// Hierarchy indexes the classes of one module.
type Hierarchy struct {
	klasses map[string]*Klass
	order   []*Klass
}

// Build indexes m.Classes. Unknown super classes or interfaces mark the
// class incomplete rather than failing.
func Build(m *ir.Module) *Hierarchy {
	h := &Hierarchy{klasses: make(map[string]*Klass, len(m.Classes))}
	for _, c := range m.Classes {
		k := &Klass{
			Name:      c.Name,
			Interface: c.Interface,
			Abstract:  c.Abstract,
			methods:   make(map[string]ir.FuncID, len(c.Methods)),
		}
		for _, md := range c.Methods {
			if _, seen := k.methods[md.Selector]; !seen {
				k.order = append(k.order, md.Selector)
			}
			k.methods[md.Selector] = md.Func
		}
		h.klasses[c.Name] = k
		h.order = append(h.order, k)
	}
	for _, c := range m.Classes {
		k := h.klasses[c.Name]
		if c.Super != "" {
			if sup, ok := h.klasses[c.Super]; ok {
				k.Super = sup
				sup.Subs = append(sup.Subs, k)
			} else {
				k.Incomplete = true
			}
		}
		for _, name := range c.Implements {
			iface, ok := h.klasses[name]
			if !ok {
				k.Incomplete = true
				continue
			}
			k.Implements = append(k.Implements, iface)
			iface.Implementers = append(iface.Implementers, k)
		}
	}
	for _, k := range h.order {
		if cyclic(k) {
			k.Incomplete = true
			k.Super = nil
		}
	}
	return h
}

func cyclic(k *Klass) bool {
	seen := map[*Klass]bool{k: true}
	for cur := k.Super; cur != nil; cur = cur.Super {
		if seen[cur] {
			return true
		}
		seen[cur] = true
	}
	return false
}

// Klass finds a class by name.
func (h *Hierarchy) Klass(name string) *Klass { return h.klasses[name] }

// Klasses returns every class in declaration order.
func (h *Hierarchy) Klasses() []*Klass { return h.order }

// nearest walks from k up the super chain and returns the first
// implementation of selector.
func nearest(k *Klass, selector string) (ir.FuncID, bool) {
	for cur := k; cur != nil; cur = cur.Super {
		if id, ok := cur.Method(selector); ok {
			return id, true
		}
	}
	return ir.NoFuncID, false
}

func chainComplete(k *Klass) bool {
	for cur := k; cur != nil; cur = cur.Super {
		if cur.Incomplete {
			return false
		}
	}
	return true
}

type candidates struct {
	ids  []ir.FuncID
	seen map[ir.FuncID]bool
}

func (c *candidates) add(id ir.FuncID) {
	if c.seen == nil {
		c.seen = make(map[ir.FuncID]bool)
	}
	if !c.seen[id] {
		c.seen[id] = true
		c.ids = append(c.ids, id)
	}
}

// VirtualCandidates returns every method a virtual call on class.selector
// may dispatch to: the class's own implementation or, for a concrete class
// without one, the nearest inherited implementation, plus every override in
// its subclasses. complete is false when the class or part of its hierarchy
// is unknown; the returned set is then a lower bound.
func (h *Hierarchy) VirtualCandidates(class, selector string) (ids []ir.FuncID, complete bool) {
	k := h.klasses[class]
	if k == nil {
		return nil, false
	}
	var out candidates
	if id, ok := k.Method(selector); ok {
		out.add(id)
	} else if !k.Abstract && !k.Interface {
		if id, ok := nearest(k, selector); ok {
			out.add(id)
		}
	}
	complete = chainComplete(k)
	var walk func(*Klass)
	walk = func(sub *Klass) {
		for _, s := range sub.Subs {
			if s.Incomplete {
				complete = false
			}
			if id, ok := s.Method(selector); ok {
				out.add(id)
			}
			walk(s)
		}
	}
	walk(k)
	return out.ids, complete
}

// InterfaceCandidates returns the implementations of iface.selector in
// every class implementing iface (directly, through a sub-interface, or by
// inheriting from an implementing class).
func (h *Hierarchy) InterfaceCandidates(iface, selector string) (ids []ir.FuncID, complete bool) {
	k := h.klasses[iface]
	if k == nil {
		return nil, false
	}
	complete = !k.Incomplete
	var out candidates
	visited := make(map[*Klass]bool)
	var visitClass func(c *Klass)
	visitClass = func(c *Klass) {
		if visited[c] {
			return
		}
		visited[c] = true
		if c.Incomplete {
			complete = false
		}
		if c.Interface {
			for _, impl := range c.Implementers {
				visitClass(impl)
			}
			for _, sub := range c.Subs {
				visitClass(sub)
			}
			return
		}
		if id, ok := nearest(c, selector); ok {
			out.add(id)
		}
		for _, sub := range c.Subs {
			visitClass(sub)
		}
	}
	visitClass(k)
	return out.ids, complete
}

// SuperTarget resolves a super call on class.selector to the nearest
// implementation starting at class.
func (h *Hierarchy) SuperTarget(class, selector string) (ir.FuncID, bool) {
	k := h.klasses[class]
	if k == nil {
		return ir.NoFuncID, false
	}
	return nearest(k, selector)
}

// DropMethod forgets every binding of fn, keeping the hierarchy consistent
// with a deleted function.
func (h *Hierarchy) DropMethod(fn ir.FuncID) {
	for _, k := range h.order {
		for sel, id := range k.methods {
			if id == fn {
				delete(k.methods, sel)
				k.order = slices.DeleteFunc(k.order, func(s string) bool { return s == sel })
			}
		}
	}
}
