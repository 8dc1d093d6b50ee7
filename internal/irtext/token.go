package irtext

import (
	"fmt"

	"ipa/internal/diag"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Ident
	Int
	String
	Preg // $name
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case Int:
		return "integer"
	case String:
		return "string"
	case Preg:
		return "register"
	case Punct:
		return "punctuation"
	}
	return "unknown"
}

// Token is a lexeme with its position. Text holds the identifier, register
// name (without '$'), unquoted string or punctuation.
type Token struct {
	Kind  Kind
	Text  string
	Value int64
	Pos   diag.Pos
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of file"
	case Int:
		return fmt.Sprintf("%d", t.Value)
	case String:
		return fmt.Sprintf("%q", t.Text)
	case Preg:
		return "$" + t.Text
	}
	return fmt.Sprintf("%q", t.Text)
}

// Is reports whether t is the given punctuation or identifier text.
func (t Token) Is(text string) bool {
	return (t.Kind == Punct || t.Kind == Ident) && t.Text == text
}
