// Package snapshot stores call graphs and inline reports as msgpack files
// that later runs and external tools can diff.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ipa/internal/callgraph"
	"ipa/internal/inline"
)

// FormatVersion changes whenever the encoded layout does.
const FormatVersion = 1

// ErrFormat reports a snapshot written by an incompatible version.
var ErrFormat = errors.New("unsupported snapshot format")

// Snapshot is the file payload. Either part may be absent.
type Snapshot struct {
	Format int           `msgpack:"format"`
	Graph  *Graph        `msgpack:"graph,omitempty"`
	Inline *InlineReport `msgpack:"inline,omitempty"`
}

// Graph is a name-keyed picture of a call graph.
type Graph struct {
	Funcs []Func      `msgpack:"funcs"`
	Edges []Edge      `msgpack:"edges"`
	SCCs  []Component `msgpack:"sccs"`
	Order []string    `msgpack:"order"`
}

type Func struct {
	Name         string `msgpack:"name"`
	Static       bool   `msgpack:"static"`
	AddrTaken    bool   `msgpack:"addr_taken"`
	SCC          int    `msgpack:"scc"`
	InlinedTimes int    `msgpack:"inlined_times,omitempty"`
}

// Edge is one resolved target of one call site.
type Edge struct {
	Caller    string `msgpack:"caller"`
	Callee    string `msgpack:"callee"`
	Stmt      uint32 `msgpack:"stmt"`
	Kind      string `msgpack:"kind"`
	LoopDepth int    `msgpack:"loop_depth,omitempty"`
	Temp      string `msgpack:"temp,omitempty"`
	Verdict   string `msgpack:"verdict"`
}

type Component struct {
	ID        int      `msgpack:"id"`
	Members   []string `msgpack:"members"`
	Recursive bool     `msgpack:"recursive"`
}

// InlineReport is an inline.Report with codes spelled out.
type InlineReport struct {
	Inlined     map[string]int `msgpack:"inlined"`
	Failed      map[string]int `msgpack:"failed"`
	Dropped     int            `msgpack:"dropped"`
	AllCallers  int            `msgpack:"all_callers"`
	Removed     int            `msgpack:"removed"`
	InitialSize int64          `msgpack:"initial_size"`
	MaxSize     int64          `msgpack:"max_size"`
	PeakSize    int64          `msgpack:"peak_size"`
	FinalSize   int64          `msgpack:"final_size"`
}

// FromGraph captures the live nodes, their call sites and the current
// components of g.
func FromGraph(g *callgraph.CallGraph) *Graph {
	out := &Graph{}
	for _, n := range g.Nodes() {
		out.Funcs = append(out.Funcs, Func{
			Name:         n.Name(),
			Static:       n.Func.IsStatic(),
			AddrTaken:    n.AddrTaken,
			SCC:          n.SCC(),
			InlinedTimes: n.InlinedTimes,
		})
		for _, cs := range n.Callsites() {
			for _, target := range cs.Targets {
				callee := g.Node(target)
				if callee == nil {
					continue
				}
				out.Edges = append(out.Edges, Edge{
					Caller:    n.Name(),
					Callee:    callee.Name(),
					Stmt:      uint32(cs.Info.StmtID()),
					Kind:      cs.Info.Kind.String(),
					LoopDepth: cs.Info.LoopDepth,
					Temp:      tempName(cs.Info.Temp),
					Verdict:   cs.Info.Failed().String(),
				})
			}
		}
	}
	for _, c := range g.TopVec() {
		comp := Component{ID: c.ID(), Recursive: c.HasRecursion()}
		for _, id := range c.Nodes() {
			comp.Members = append(comp.Members, g.Node(id).Name())
		}
		out.SCCs = append(out.SCCs, comp)
	}
	for _, id := range g.CompilationOrder() {
		if fn := g.Module.Func(id); fn != nil {
			out.Order = append(out.Order, fn.Name)
		}
	}
	return out
}

func tempName(t callgraph.Temperature) string {
	if t == callgraph.TempUnknown {
		return ""
	}
	return t.String()
}

// FromReport converts an inliner report.
func FromReport(r *inline.Report) *InlineReport {
	out := &InlineReport{
		Inlined:     make(map[string]int, len(r.Inlined)),
		Failed:      make(map[string]int, len(r.Failed)),
		Dropped:     r.Dropped,
		AllCallers:  r.AllCallers,
		Removed:     r.Removed,
		InitialSize: r.InitialSize,
		MaxSize:     r.MaxSize,
		PeakSize:    r.PeakSize,
		FinalSize:   r.FinalSize,
	}
	for code, n := range r.Inlined {
		out.Inlined[code.String()] = n
	}
	for code, n := range r.Failed {
		out.Failed[code.String()] = n
	}
	return out
}

// Write encodes s into path through a temporary file in the same directory
// and renames it into place, so readers never see a partial snapshot.
func Write(path string, s *Snapshot) (err error) {
	s.Format = FormatVersion
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read decodes the snapshot at path.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var s Snapshot
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.Format != FormatVersion {
		return nil, fmt.Errorf("%s: %w %d", path, ErrFormat, s.Format)
	}
	return &s, nil
}
