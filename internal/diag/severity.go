package diag

// Severity ranks a diagnostic raised while reading IR or running the
// inliner. Higher values sort first in a Bag.
type Severity uint8

const (
	// SevInfo records a decision, such as a call site the inliner skipped.
	SevInfo Severity = iota
	// SevWarning flags IR the inliner worked around, such as a call to an
	// empty function that was dropped or a call with too few arguments.
	SevWarning
	// SevError stops the pipeline. Parse, verify and config failures land here.
	SevError
)

// Fails reports whether a diagnostic of this severity makes the run fail.
func (s Severity) Fails() bool { return s >= SevError }

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
