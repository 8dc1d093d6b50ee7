package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// textual IR: lexing
	IRLexInfo               Code = 1000
	IRLexUnknownChar        Code = 1001
	IRLexUnterminatedString Code = 1002
	IRLexBadNumber          Code = 1003

	// textual IR: syntax
	IRSynInfo            Code = 1100
	IRSynUnexpectedToken Code = 1101
	IRSynExpectIdent     Code = 1102
	IRSynExpectSemicolon Code = 1103
	IRSynUnclosedBrace   Code = 1104
	IRSynExpectExpr      Code = 1105

	// textual IR: name resolution
	IRSemInfo             Code = 1200
	IRSemUndefinedFunc    Code = 1201
	IRSemUndefinedSymbol  Code = 1202
	IRSemUndefinedLabel   Code = 1203
	IRSemDuplicate        Code = 1204
	IRSemUnknownAttr      Code = 1205
	IRSemUnknownClass     Code = 1206
	IRSemNotAssignable    Code = 1207
	IRSemBadConstInit     Code = 1208
	IRSemDuplicateLabel   Code = 1209
	IRSemUndefinedMethod  Code = 1210
	IRSemVerifyFailed     Code = 1211

	// inliner
	InlineInfo          Code = 2000
	InlineArgMismatch   Code = 2001
	InlineEmptyCallee   Code = 2002
	InlineUntrustworthy Code = 2003

	// option files
	CfgInfo          Code = 3000
	ListBadLine      Code = 3001
	ListUnknownFunc  Code = 3002
	ProfileBadLine   Code = 3003
	ProfileUnknownFn Code = 3004
	CfgUnknownKey    Code = 3005
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	IRLexInfo:               "Lexical information",
	IRLexUnknownChar:        "Unknown character",
	IRLexUnterminatedString: "Unterminated string literal",
	IRLexBadNumber:          "Malformed integer literal",

	IRSynInfo:            "Syntax information",
	IRSynUnexpectedToken: "Unexpected token",
	IRSynExpectIdent:     "Expected identifier",
	IRSynExpectSemicolon: "Expected ';'",
	IRSynUnclosedBrace:   "Unclosed '{'",
	IRSynExpectExpr:      "Expected expression",

	IRSemInfo:            "Name resolution information",
	IRSemUndefinedFunc:   "Undefined function",
	IRSemUndefinedSymbol: "Undefined symbol",
	IRSemUndefinedLabel:  "Undefined label",
	IRSemDuplicate:       "Duplicate declaration",
	IRSemUnknownAttr:     "Unknown function attribute",
	IRSemUnknownClass:    "Unknown class or interface",
	IRSemNotAssignable:   "Assignment to a constant",
	IRSemBadConstInit:    "Initialiser is not a constant",
	IRSemDuplicateLabel:  "Label defined twice",
	IRSemUndefinedMethod: "Method not declared by class",
	IRSemVerifyFailed:    "Module failed verification",

	InlineInfo:          "Inliner information",
	InlineArgMismatch:   "Argument count does not match the callee's formals",
	InlineEmptyCallee:   "Callee body is empty; call removed",
	InlineUntrustworthy: "Summary merged from a recursive inline",

	CfgInfo:          "Configuration information",
	ListBadLine:      "Malformed inline list line",
	ListUnknownFunc:  "Inline list names an unknown function",
	ProfileBadLine:   "Malformed profile line",
	ProfileUnknownFn: "Profile names an unknown function",
	CfgUnknownKey:    "Unknown configuration key",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("INL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
