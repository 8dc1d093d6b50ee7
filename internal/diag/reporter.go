package diag

// Reporter receives diagnostics from a phase.
type Reporter interface {
	Report(code Code, sev Severity, pos Pos, msg string, notes []Note)
}

// ReportBuilder accumulates diagnostic details before emitting to Reporter.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

func NewReportBuilder(r Reporter, sev Severity, code Code, pos Pos, msg string) *ReportBuilder {
	return &ReportBuilder{reporter: r, diag: New(sev, code, pos, msg)}
}

func ReportError(r Reporter, code Code, pos Pos, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, pos, msg)
}

func ReportWarning(r Reporter, code Code, pos Pos, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, pos, msg)
}

func ReportInfo(r Reporter, code Code, pos Pos, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevInfo, code, pos, msg)
}

// WithNote appends a note to the diagnostic.
func (b *ReportBuilder) WithNote(pos Pos, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithNote(pos, msg)
	return b
}

// Emit sends the diagnostic to the underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag.Code, b.diag.Severity, b.diag.Pos, b.diag.Message, b.diag.Notes)
	}
	b.emitted = true
}

// BagReporter writes into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, pos Pos, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Pos: pos, Notes: notes})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Pos, string, []Note) {}
