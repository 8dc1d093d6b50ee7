package irtext_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ipa/internal/diag"
	"ipa/internal/ir"
	"ipa/internal/irtext"
)

const sample = `
# sample module
global counter = 0;
static global limit = 4;
const global handler = &on_event;
const global table = [&inc, &dec];
class Shape { area = shape_area; }
class Circle : Shape { area = circle_area; }
interface Drawable { draw; }
class Box : Shape implements Drawable { draw = box_draw; }

static inline func callee(x) { return x + 1; }
func caller() { var t; t = callee(5); return t; }
extern func puts(s);

func on_event(e) { counter = counter + e; }
static func inc(v) int { return v + 1; }
static func dec(v) int { return v - 1; }
func shape_area(self) { return 0; }
func circle_area(self) { return 3; }
func box_draw(self) { eval self; }

func loops(n) {
  var i, acc;
  const var fp = &inc;
  acc = 0;
  for (i = 0; i < n; i = i + 1) {
    acc = (*fp)(acc);
  }
  while (acc > 10) { acc = acc - 1; }
  do { acc = acc + 2; } while (acc < 3);
  switch (acc) { case 1: one; case -2: two; default: other; }
one:
  $r = table[1];
  acc = (*$r)(acc);
  if (acc == 0) goto other;
  unless (acc) goto two;
two:
  try { throw -(1); } catch { acc = 5; }
other:
  comment "done";
  { acc = (acc > 2 ? acc : -acc); }
  vcall Shape.area(acc);
  intrinsic trap();
  return acc;
}
`

func mustParse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := irtext.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

func TestParseSample(t *testing.T) {
	m := mustParse(t, sample)
	callee := m.FuncByName("callee")
	if callee == nil {
		t.Fatal("callee not found")
	}
	if !callee.IsStatic() || !callee.IsInline() {
		t.Errorf("callee attrs = %s, want static inline", callee.Attrs)
	}
	if !callee.HasResult || len(callee.Formals) != 1 {
		t.Errorf("callee: result=%v formals=%d", callee.HasResult, len(callee.Formals))
	}
	if puts := m.FuncByName("puts"); puts == nil || puts.Body != nil || !puts.IsExtern() {
		t.Errorf("puts should be an extern declaration, got %+v", puts)
	}
	caller := m.FuncByName("caller")
	call := caller.Body.Stmts[0].Call()
	if call == nil || call.Kind != ir.CallDirect || call.Callee != callee.ID || !call.HasResult {
		t.Fatalf("unexpected first statement of caller: %+v", caller.Body.Stmts[0])
	}
	if c := m.Class("Box"); c == nil || c.Super != "Shape" || len(c.Implements) != 1 {
		t.Fatalf("Box = %+v", c)
	}
	if area := m.FuncByName("circle_area"); area.Class != "Circle" || area.Method != "area" {
		t.Errorf("circle_area bound to %s.%s", area.Class, area.Method)
	}
	id, ok := m.GlobalByName("table")
	if !ok {
		t.Fatal("table not declared")
	}
	tbl := m.Global(id)
	if !tbl.IsConst || tbl.Init == nil || len(tbl.Init.Elems) != 2 {
		t.Fatalf("table = %+v", tbl)
	}
	if tbl.Init.Elems[1].Func != m.FuncByName("dec").ID {
		t.Error("table[1] should point at dec")
	}
}

func TestRoundTrip(t *testing.T) {
	m := mustParse(t, sample)
	var first bytes.Buffer
	if err := ir.Fprint(&first, m); err != nil {
		t.Fatal(err)
	}
	again, err := irtext.ParseString(first.String())
	if err != nil {
		t.Fatalf("reparse printed module: %v\n%s", err, first.String())
	}
	var second bytes.Buffer
	if err := ir.Fprint(&second, again); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Fatalf("print is not stable:\n--- first\n%s\n--- second\n%s", first.String(), second.String())
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
		line int
	}{
		{"undefined function", "func f() {\n  g();\n}\n", diag.IRSemUndefinedFunc, 2},
		{"undefined symbol", "func f() {\n  x = 1;\n}\n", diag.IRSemUndefinedSymbol, 2},
		{"unclosed brace", "func f() {\n  return;\n", diag.IRSynUnclosedBrace, 1},
		{"missing semicolon", "func f() {\n  return 1\n}\n", diag.IRSynExpectSemicolon, 3},
		{"duplicate label", "func f() {\nL:\nL:\n}\n", diag.IRSemDuplicateLabel, 3},
		{"undefined label", "func f() {\n  goto L;\n}\n", diag.IRSemUndefinedLabel, 2},
		{"const assign", "const global c = 1;\nfunc f() {\n  c = 2;\n}\n", diag.IRSemNotAssignable, 3},
		{"unknown attr", "fast func f() {}\n", diag.IRSemUnknownAttr, 1},
		{"unknown class", "class A : B { }\n", diag.IRSemUnknownClass, 1},
		{"redefined", "func f() {}\nfunc f() {}\n", diag.IRSemDuplicate, 2},
		{"bad char", "func f() { @ }\n", diag.IRLexUnknownChar, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := irtext.ParseString(tc.src)
			var d diag.Diagnostic
			if !errors.As(err, &d) {
				t.Fatalf("expected a diagnostic, got %v", err)
			}
			if d.Code != tc.code {
				t.Fatalf("code = %s, want %s (%s)", d.Code.ID(), tc.code.ID(), d.Message)
			}
			if d.Pos.Line != tc.line {
				t.Fatalf("line = %d, want %d (%s)", d.Pos.Line, tc.line, d.Message)
			}
		})
	}
}

func TestForwardDeclarationThenDefinition(t *testing.T) {
	m := mustParse(t, "func g(a);\nfunc f() { g(1); }\nfunc g(a) { eval a; }\n")
	g := m.FuncByName("g")
	if g.Body == nil || len(g.Formals) != 1 {
		t.Fatalf("g = %+v", g)
	}
	if !strings.Contains(ir.FuncString(m, m.FuncByName("f")), "g(1);") {
		t.Fatal("call to g not printed")
	}
}

func TestAddressTakenMarked(t *testing.T) {
	m := mustParse(t, "func f(a) { var p; p = &a; return p; }")
	f := m.FuncByName("f")
	if !f.Locals[f.Formals[0]].AddrTaken {
		t.Fatal("formal whose address is taken should be marked")
	}
}

func TestParseFilesSharesModule(t *testing.T) {
	m, err := irtext.ParseFiles(t.Context(), []irtext.Source{
		{Name: "a.ipa", Data: []byte("func main() { helper(); }")},
		{Name: "b.ipa", Data: []byte("static func helper() { }")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "a" {
		t.Errorf("module name = %q, want a", m.Name)
	}
	if m.FuncByName("helper") == nil {
		t.Fatal("helper from the second file missing")
	}
}
