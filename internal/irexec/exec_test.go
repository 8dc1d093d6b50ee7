package irexec_test

import (
	"context"
	"errors"
	"testing"

	"ipa/internal/irexec"
	"ipa/internal/irtext"
)

func run(t *testing.T, src, fn string, args ...int64) int64 {
	t.Helper()
	m, err := irtext.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := irexec.Run(context.Background(), m, fn, args...)
	if err != nil {
		t.Fatalf("run %s: %v", fn, err)
	}
	return got
}

func TestCallAndReturn(t *testing.T) {
	src := `
static inline func callee(x) { return x + 1; }
func caller() { var t; t = callee(5); return t; }
`
	if got := run(t, src, "caller"); got != 6 {
		t.Fatalf("caller() = %d, want 6", got)
	}
}

func TestLoopsAndGlobals(t *testing.T) {
	src := `
global total = 0;
func sum(n) {
  var i;
  for (i = 1; i <= n; i = i + 1) { total = total + i; }
  while (n > 0) { n = n - 1; }
  do { n = n + 1; } while (n < 0);
  return total + n;
}
`
	if got := run(t, src, "sum", 4); got != 11 {
		t.Fatalf("sum(4) = %d, want 11", got)
	}
}

func TestGotoLeavesNestedBlocks(t *testing.T) {
	src := `
func f(x) {
  var r;
  r = 0;
  if (x > 0) {
    while (1) {
      r = r + 1;
      if (r == 3) goto done;
    }
  }
  r = 100;
done:
  return r;
}
`
	if got := run(t, src, "f", 1); got != 3 {
		t.Fatalf("f(1) = %d, want 3", got)
	}
	if got := run(t, src, "f", 0); got != 100 {
		t.Fatalf("f(0) = %d, want 100", got)
	}
}

func TestSwitchAndIndirect(t *testing.T) {
	src := `
const global table = [&inc, &dec];
static func inc(v) { return v + 1; }
static func dec(v) { return v - 1; }
func pick(k, v) {
  var fp, r;
  switch (k) { case 0: zero; default: other; }
zero:
  fp = table[0];
  goto call;
other:
  fp = &dec;
call:
  r = (*fp)(v);
  return (k == 7 ? -r : r);
}
`
	if got := run(t, src, "pick", 0, 10); got != 11 {
		t.Fatalf("pick(0, 10) = %d, want 11", got)
	}
	if got := run(t, src, "pick", 7, 10); got != -9 {
		t.Fatalf("pick(7, 10) = %d, want -9", got)
	}
}

func TestTryCatch(t *testing.T) {
	src := `
func boom(x) { if (x) { throw 1; } return 2; }
func guard(x) {
  var r;
  r = 0;
  try { r = boom(x); } catch { r = 9; }
  return r;
}
`
	if got := run(t, src, "guard", 1); got != 9 {
		t.Fatalf("guard(1) = %d, want 9", got)
	}
	if got := run(t, src, "guard", 0); got != 2 {
		t.Fatalf("guard(0) = %d, want 2", got)
	}
	m, _ := irtext.ParseString(src)
	if _, err := irexec.Run(context.Background(), m, "boom", 1); !errors.Is(err, irexec.ErrUncaught) {
		t.Fatalf("expected ErrUncaught, got %v", err)
	}
}

func TestVirtualDispatch(t *testing.T) {
	src := `
class Shape { area = shape_area; }
class Circle : Shape { }
func shape_area(s) { return 4; }
func f() { var a; a = vcall Circle.area(0); return a; }
`
	if got := run(t, src, "f"); got != 4 {
		t.Fatalf("f() = %d, want 4", got)
	}
}

func TestLimits(t *testing.T) {
	m, err := irtext.ParseString("func spin() { while (1) { } }\nfunc rec(n) { var r; r = rec(n); return r; }\n")
	if err != nil {
		t.Fatal(err)
	}
	mc, err := irexec.New(m, irexec.Options{MaxSteps: 1000, MaxDepth: 16})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mc.Call(context.Background(), "spin"); !errors.Is(err, irexec.ErrStepLimit) {
		t.Fatalf("spin: expected ErrStepLimit, got %v", err)
	}
	mc, _ = irexec.New(m, irexec.Options{MaxSteps: 100000, MaxDepth: 16})
	if _, err := mc.Call(context.Background(), "rec", 1); !errors.Is(err, irexec.ErrDepthLimit) {
		t.Fatalf("rec: expected ErrDepthLimit, got %v", err)
	}
}

func TestHostFunctions(t *testing.T) {
	m, err := irtext.ParseString("extern func twice(x);\nfunc f() { var r; r = twice(21); intrinsic note(r); return r; }\n")
	if err != nil {
		t.Fatal(err)
	}
	var noted int64
	mc, err := irexec.New(m, irexec.Options{Host: map[string]irexec.Intrinsic{
		"twice": func(args []irexec.Value) (irexec.Value, error) { return irexec.IntValue(args[0].N * 2), nil },
		"note": func(args []irexec.Value) (irexec.Value, error) {
			noted = args[0].N
			return irexec.Value{}, nil
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	v, err := mc.Call(context.Background(), "f")
	if err != nil {
		t.Fatal(err)
	}
	if v.N != 42 || noted != 42 {
		t.Fatalf("f() = %d, noted %d; want 42, 42", v.N, noted)
	}
}
