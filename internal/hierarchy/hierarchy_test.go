package hierarchy_test

import (
	"slices"
	"testing"

	"ipa/internal/hierarchy"
	"ipa/internal/ir"
	"ipa/internal/irtext"
)

const classes = `
class Shape { area = shape_area; name = shape_name; }
class Circle : Shape { area = circle_area; }
class Ring : Circle { area = ring_area; }
abstract class Poly : Shape { }
class Square : Poly { area = square_area; }
interface Drawable { draw; }
class Box implements Drawable { draw = box_draw; }
class Crate : Box { }
class Tin : Box { draw = tin_draw; }
class Orphan : Missing { area = orphan_area; }

func shape_area(s) { return 0; }
func shape_name(s) { return 0; }
func circle_area(s) { return 1; }
func ring_area(s) { return 2; }
func square_area(s) { return 3; }
func box_draw(s) { return 4; }
func tin_draw(s) { return 5; }
func orphan_area(s) { return 6; }
`

func names(m *ir.Module, ids []ir.FuncID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Funcs[id].Name)
	}
	slices.Sort(out)
	return out
}

func setup(t *testing.T) (*ir.Module, *hierarchy.Hierarchy) {
	t.Helper()
	m, err := irtext.ParseString(classes + "class Missing { }\n")
	if err != nil {
		t.Fatal(err)
	}
	return m, hierarchy.Build(m)
}

func TestVirtualCandidates(t *testing.T) {
	m, h := setup(t)
	ids, complete := h.VirtualCandidates("Circle", "area")
	if !complete {
		t.Fatal("Circle hierarchy should be complete")
	}
	if got := names(m, ids); !slices.Equal(got, []string{"circle_area", "ring_area"}) {
		t.Fatalf("Circle.area candidates = %v", got)
	}
	ids, _ = h.VirtualCandidates("Circle", "name")
	if got := names(m, ids); !slices.Equal(got, []string{"shape_name"}) {
		t.Fatalf("Circle.name candidates = %v", got)
	}
	ids, _ = h.VirtualCandidates("Poly", "area")
	if got := names(m, ids); !slices.Equal(got, []string{"square_area"}) {
		t.Fatalf("abstract Poly.area should not inherit, got %v", got)
	}
	if ids, complete := h.VirtualCandidates("Nope", "area"); ids != nil || complete {
		t.Fatalf("unknown class: %v, %v", ids, complete)
	}
}

func TestInterfaceCandidates(t *testing.T) {
	m, h := setup(t)
	ids, complete := h.InterfaceCandidates("Drawable", "draw")
	if !complete {
		t.Fatal("Drawable should be complete")
	}
	if got := names(m, ids); !slices.Equal(got, []string{"box_draw", "tin_draw"}) {
		t.Fatalf("Drawable.draw candidates = %v", got)
	}
}

func TestSuperTarget(t *testing.T) {
	m, h := setup(t)
	id, ok := h.SuperTarget("Ring", "name")
	if !ok || m.Funcs[id].Name != "shape_name" {
		t.Fatalf("Ring.name super target = %v, %v", id, ok)
	}
}

func TestDropMethod(t *testing.T) {
	m, h := setup(t)
	h.DropMethod(m.FuncByName("ring_area").ID)
	ids, _ := h.VirtualCandidates("Circle", "area")
	if got := names(m, ids); !slices.Equal(got, []string{"circle_area"}) {
		t.Fatalf("after drop: %v", got)
	}
}

func TestIncompleteHierarchy(t *testing.T) {
	m := ir.NewModule("t")
	m.Classes = append(m.Classes, &ir.ClassDecl{Name: "A", Super: "Ghost"})
	h := hierarchy.Build(m)
	if !h.Klass("A").Incomplete {
		t.Fatal("A should be incomplete")
	}
	ids, complete := h.VirtualCandidates("A", "f")
	if complete || len(ids) != 0 {
		t.Fatalf("got %v, %v; want empty and incomplete", ids, complete)
	}
}
