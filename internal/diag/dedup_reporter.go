package diag

type dedupKey struct {
	code Code
	sev  Severity
	pos  Pos
	msg  string
}

// DedupReporter wraps another Reporter and suppresses repeats of the same
// code, severity, position and message. The inliner uses it so that a call
// site revisited by the greedy loop warns once.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, pos Pos, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code: code, sev: sev, pos: pos, msg: msg}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(code, sev, pos, msg, notes)
	}
}
