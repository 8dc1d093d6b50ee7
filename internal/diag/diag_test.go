package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"ipa/internal/diag"
)

func TestBagSortAndErr(t *testing.T) {
	bag := diag.NewBag(0)
	r := diag.BagReporter{Bag: bag}
	diag.ReportWarning(r, diag.InlineArgMismatch, diag.Pos{File: "b.ipa", Line: 1, Col: 1}, "args").Emit()
	diag.ReportError(r, diag.IRSynExpectSemicolon, diag.Pos{File: "a.ipa", Line: 3, Col: 2}, "missing ;").Emit()
	bag.Sort()
	if got := bag.Items()[0].Pos.File; got != "a.ipa" {
		t.Fatalf("first diagnostic file = %q, want a.ipa", got)
	}
	if !bag.HasErrors() {
		t.Fatal("expected HasErrors")
	}
	err := bag.Err()
	if err == nil || !strings.Contains(err.Error(), "a.ipa:3:2") {
		t.Fatalf("Err() = %v", err)
	}
}

func TestSeverityFails(t *testing.T) {
	for _, tc := range []struct {
		sev  diag.Severity
		want bool
		name string
	}{
		{diag.SevInfo, false, "INFO"},
		{diag.SevWarning, false, "WARNING"},
		{diag.SevError, true, "ERROR"},
	} {
		if got := tc.sev.Fails(); got != tc.want {
			t.Errorf("%s.Fails() = %v, want %v", tc.sev, got, tc.want)
		}
		if tc.sev.String() != tc.name {
			t.Errorf("String() = %q, want %q", tc.sev.String(), tc.name)
		}
	}
	bag := diag.NewBag(0)
	r := diag.BagReporter{Bag: bag}
	diag.ReportWarning(r, diag.InlineEmptyCallee, diag.Pos{File: "m.ipa"}, "dropped").Emit()
	if bag.HasErrors() || bag.Err() != nil {
		t.Errorf("a warning must not fail the run")
	}
}

func TestBagLimit(t *testing.T) {
	bag := diag.NewBag(1)
	if !bag.Add(diag.NewError(diag.IRLexBadNumber, diag.Pos{}, "x")) {
		t.Fatal("first add rejected")
	}
	if bag.Add(diag.NewError(diag.IRLexBadNumber, diag.Pos{}, "y")) {
		t.Fatal("add past the limit accepted")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := diag.NewBag(0)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	pos := diag.Pos{File: "m.ipa", Line: 4, Col: 7}
	for range 3 {
		diag.ReportWarning(r, diag.InlineArgMismatch, pos, "2 args, 1 formal").Emit()
	}
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
}

func TestFprint(t *testing.T) {
	d := diag.NewError(diag.IRSemUndefinedFunc, diag.Pos{File: "m.ipa", Line: 2, Col: 5}, "undefined function foo").
		WithNote(diag.Pos{File: "m.ipa", Line: 1, Col: 1}, "referenced here")
	var buf bytes.Buffer
	if err := diag.Fprint(&buf, []diag.Diagnostic{d}, false); err != nil {
		t.Fatal(err)
	}
	want := "m.ipa:2:5: ERROR IR1201: undefined function foo\n  m.ipa:1:1: note: referenced here\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
