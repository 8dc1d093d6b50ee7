// Package ir provides the structured tree IR consumed by the call graph builder
// and the inliner.
//
// A Module is the compilation context of one unit: it owns the function table,
// the global symbol table, class declarations and the statement id allocator.
// Every lookup by index goes through the Module, never through package state.
package ir

// FuncID identifies a function within a Module.
type FuncID uint32

// SymID identifies a symbol within a global or function-local table.
type SymID uint32

// PregID identifies a virtual register within a function.
type PregID uint32

// LabelID identifies a label within a function.
type LabelID uint32

// StmtID is unique across a Module, including statements created by cloning.
type StmtID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoFuncID  FuncID  = 0
	NoSymID   SymID   = 0
	NoPregID  PregID  = 0
	NoLabelID LabelID = 0
	NoStmtID  StmtID  = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id FuncID) IsValid() bool  { return id != NoFuncID }
func (id SymID) IsValid() bool   { return id != NoSymID }
func (id PregID) IsValid() bool  { return id != NoPregID }
func (id LabelID) IsValid() bool { return id != NoLabelID }
func (id StmtID) IsValid() bool  { return id != NoStmtID }
