package inline

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/ir"
)

// Default profile thresholds.
const (
	DefaultProfileHot  uint64 = 2000
	DefaultProfileCold uint64 = 10
)

type profileKey struct{ caller, callee string }

// Profile holds measured call counts by caller and callee name.
type Profile struct {
	counts map[profileKey]uint64
	Hot    uint64
	Cold   uint64
}

// NewProfile returns an empty profile with the default thresholds.
func NewProfile() *Profile {
	return &Profile{counts: make(map[profileKey]uint64), Hot: DefaultProfileHot, Cold: DefaultProfileCold}
}

// Set records the count of calls from caller to callee. Repeated pairs add up.
func (p *Profile) Set(caller, callee string, count uint64) {
	p.counts[profileKey{caller, callee}] += count
}

// Len returns the number of profiled pairs.
func (p *Profile) Len() int { return len(p.counts) }

// Type classifies the calls from caller to callee.
func (p *Profile) Type(caller, callee string) callgraph.Temperature {
	if p == nil {
		return callgraph.TempUnknown
	}
	n, ok := p.counts[profileKey{caller, callee}]
	switch {
	case !ok:
		return callgraph.TempUnknown
	case n >= p.Hot:
		return callgraph.TempHot
	case n <= p.Cold:
		return callgraph.TempCold
	default:
		return callgraph.TempNormal
	}
}

// ParseProfile reads "caller callee count" lines. Bad lines are reported and
// skipped; '#' starts a comment.
func ParseProfile(r io.Reader, file string, rep diag.Reporter) (*Profile, error) {
	p := NewProfile()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		pos := diag.Pos{File: file, Line: line, Col: 1}
		if len(fields) != 3 {
			diag.ReportWarning(rep, diag.ProfileBadLine, pos, fmt.Sprintf("want 3 fields, got %d", len(fields))).Emit()
			continue
		}
		n, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			diag.ReportWarning(rep, diag.ProfileBadLine, pos, fmt.Sprintf("bad count %q", fields[2])).Emit()
			continue
		}
		p.Set(fields[0], fields[1], n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return p, nil
}

// LoadProfile parses the profile at path.
func LoadProfile(path string, rep diag.Reporter) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()
	return ParseProfile(f, path, rep)
}

// Apply sets the temperature of every direct call site named by the profile
// and returns how many sites it marked. Pairs naming functions the module
// does not define are reported.
func (p *Profile) Apply(g *callgraph.CallGraph, file string, rep diag.Reporter) int {
	m := g.Module
	unknown := make(map[string]bool)
	for k := range p.counts {
		for _, name := range []string{k.caller, k.callee} {
			if m.FuncByName(name) == nil {
				unknown[name] = true
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(unknown)) {
		diag.ReportWarning(rep, diag.ProfileUnknownFn, diag.Pos{File: file}, fmt.Sprintf("unknown function %q", name)).Emit()
	}
	marked := 0
	for _, n := range g.Nodes() {
		if n.IsExternal() {
			continue
		}
		for _, cs := range n.Callsites() {
			ci := cs.Info
			if ci.Kind != ir.CallDirect {
				continue
			}
			callee := m.Func(ci.Callee)
			if callee == nil {
				continue
			}
			if t := p.Type(n.Name(), callee.Name); t != callgraph.TempUnknown {
				ci.Temp = t
				marked++
			}
		}
	}
	return marked
}
