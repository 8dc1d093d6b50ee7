package inline

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"ipa/internal/diag"
	"ipa/internal/ir"
)

// List is an inline or noinline list. A callee maps to the callers it is
// restricted to; an empty set applies to every call site.
type List struct {
	entries map[string]map[string]bool
}

// NewList returns an empty list.
func NewList() *List { return &List{entries: make(map[string]map[string]bool)} }

// Add lists callee, restricted to the given callers when any are named.
func (l *List) Add(callee string, callers ...string) {
	set, ok := l.entries[callee]
	if !ok {
		set = make(map[string]bool)
		l.entries[callee] = set
	}
	for _, c := range callers {
		set[c] = true
	}
}

// Len returns the number of listed callees.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Callees returns the listed callees in order.
func (l *List) Callees() []string {
	if l == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(l.entries))
}

// Match reports whether a call from caller to callee is listed, and whether
// the entry is restricted to particular callers.
func (l *List) Match(caller, callee string) (listed, callsite bool) {
	if l == nil {
		return false, false
	}
	set, ok := l.entries[callee]
	if !ok {
		return false, false
	}
	if len(set) == 0 {
		return true, false
	}
	return set[caller], true
}

// ParseList reads the list file format: a callee name per line, optionally
// followed by "->caller" lines restricting it; '#' starts a comment. Bad
// lines are reported and skipped.
func ParseList(r io.Reader, file string, rep diag.Reporter) (*List, error) {
	l := NewList()
	sc := bufio.NewScanner(r)
	current := ""
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pos := diag.Pos{File: file, Line: line, Col: 1}
		if caller, ok := strings.CutPrefix(text, "->"); ok {
			caller = strings.TrimSpace(caller)
			if current == "" || !isName(caller) {
				diag.ReportWarning(rep, diag.ListBadLine, pos, fmt.Sprintf("unexpected caller line %q", text)).Emit()
				continue
			}
			l.Add(current, caller)
			continue
		}
		if !isName(text) {
			diag.ReportWarning(rep, diag.ListBadLine, pos, fmt.Sprintf("bad function name %q", text)).Emit()
			current = ""
			continue
		}
		current = text
		l.Add(current)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return l, nil
}

// LoadList parses the list file at path.
func LoadList(path string, rep diag.Reporter) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inline list: %w", err)
	}
	defer f.Close()
	return ParseList(f, path, rep)
}

// CheckNames reports listed functions the module does not define.
func (l *List) CheckNames(m *ir.Module, file string, rep diag.Reporter) {
	for _, name := range l.Callees() {
		if m.FuncByName(name) == nil {
			diag.ReportWarning(rep, diag.ListUnknownFunc, diag.Pos{File: file}, fmt.Sprintf("unknown function %q", name)).Emit()
		}
	}
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '>' || (c == '-' && i == 0) {
			return false
		}
	}
	return true
}

// Lists bundles the name-based overrides of the inliner.
type Lists struct {
	Inline   *List
	NoInline *List
	// HardCoded callees are inlined at every site regardless of cost.
	HardCoded map[string]bool
}
