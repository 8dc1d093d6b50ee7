package diag

import "fmt"

type Note struct {
	Pos Pos
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Pos      Pos
	Notes    []Note
}

func New(sev Severity, code Code, pos Pos, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Pos: pos, Message: msg}
}

func NewError(code Code, pos Pos, msg string) Diagnostic {
	return New(SevError, code, pos, msg)
}

func (d Diagnostic) WithNote(pos Pos, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: pos, Msg: msg})
	return d
}

// Error makes a Diagnostic usable as an error value.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Pos, d.Severity, d.Code.ID(), d.Message)
}
