package ir

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	// StmtAssign stores an expression into a symbol.
	StmtAssign StmtKind = iota
	// StmtRegAssign stores an expression into a virtual register.
	StmtRegAssign
	// StmtCall is any call-like statement.
	StmtCall
	// StmtIf is a two-way conditional.
	StmtIf
	// StmtWhile tests the condition before each iteration.
	StmtWhile
	// StmtDoWhile tests the condition after each iteration.
	StmtDoWhile
	// StmtDoLoop is a counted loop over an induction variable.
	StmtDoLoop
	// StmtSwitch dispatches to labels through a case table.
	StmtSwitch
	// StmtLabel defines a jump target.
	StmtLabel
	// StmtGoto jumps unconditionally.
	StmtGoto
	// StmtCondGoto jumps when the condition holds (or fails, for brfalse).
	StmtCondGoto
	// StmtReturn leaves the function.
	StmtReturn
	// StmtTry protects a body with a handler.
	StmtTry
	// StmtThrow raises an exception.
	StmtThrow
	// StmtEval evaluates an expression for its side effects.
	StmtEval
	// StmtComment carries text only.
	StmtComment
	// StmtBlock is a nested block.
	StmtBlock
)

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "Assign"
	case StmtRegAssign:
		return "RegAssign"
	case StmtCall:
		return "Call"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtDoWhile:
		return "DoWhile"
	case StmtDoLoop:
		return "DoLoop"
	case StmtSwitch:
		return "Switch"
	case StmtLabel:
		return "Label"
	case StmtGoto:
		return "Goto"
	case StmtCondGoto:
		return "CondGoto"
	case StmtReturn:
		return "Return"
	case StmtTry:
		return "Try"
	case StmtThrow:
		return "Throw"
	case StmtEval:
		return "Eval"
	case StmtComment:
		return "Comment"
	case StmtBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// Block is an ordered list of statements.
type Block struct {
	Stmts []*Stmt
}

// Stmt is a statement node.
type Stmt struct {
	Kind StmtKind
	ID   StmtID
	Data StmtData // Kind-specific payload
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

// AssignData holds data for StmtAssign.
type AssignData struct {
	Dst   SymRef
	Value *Expr
}

func (*AssignData) stmtData() {}

// RegAssignData holds data for StmtRegAssign.
type RegAssignData struct {
	Reg   PregID
	Value *Expr
}

func (*RegAssignData) stmtData() {}

// CallKind classifies a call statement.
type CallKind uint8

const (
	// CallDirect names its callee.
	CallDirect CallKind = iota
	// CallVirtual dispatches on the receiver's class.
	CallVirtual
	// CallInterface dispatches through an interface.
	CallInterface
	// CallSuper calls the nearest inherited implementation.
	CallSuper
	// CallIndirect calls through a computed function address.
	CallIndirect
	// CallIntrinsic is a compiler-provided operation.
	CallIntrinsic
)

// String returns a human-readable name for the call kind.
func (k CallKind) String() string {
	switch k {
	case CallDirect:
		return "call"
	case CallVirtual:
		return "vcall"
	case CallInterface:
		return "intfcall"
	case CallSuper:
		return "supercall"
	case CallIndirect:
		return "icall"
	case CallIntrinsic:
		return "intrinsic"
	default:
		return "unknown"
	}
}

// CallData holds data for StmtCall.
type CallData struct {
	Kind CallKind

	Callee    FuncID // CallDirect, and CallSuper once resolved
	Class     string // CallVirtual, CallInterface, CallSuper
	Method    string
	Target    *Expr  // CallIndirect
	Intrinsic string // CallIntrinsic

	Args      []*Expr
	HasResult bool
	Result    SymRef
}

func (*CallData) stmtData() {}

// IfData holds data for StmtIf.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Block // nil if no else branch
}

func (*IfData) stmtData() {}

// WhileData holds data for StmtWhile and StmtDoWhile.
type WhileData struct {
	Cond *Expr
	Body *Block
}

func (*WhileData) stmtData() {}

// DoLoopData holds data for StmtDoLoop.
type DoLoopData struct {
	Var   SymRef
	Start *Expr
	Cond  *Expr
	Incr  *Expr // new value of Var after each iteration
	Body  *Block
}

func (*DoLoopData) stmtData() {}

// SwitchCase maps one value to a label.
type SwitchCase struct {
	Value int64
	Label LabelID
}

// SwitchData holds data for StmtSwitch.
type SwitchData struct {
	Value   *Expr
	Cases   []SwitchCase
	Default LabelID
}

func (*SwitchData) stmtData() {}

// LabelData holds data for StmtLabel.
type LabelData struct {
	Label LabelID
}

func (*LabelData) stmtData() {}

// GotoData holds data for StmtGoto.
type GotoData struct {
	Label LabelID
}

func (*GotoData) stmtData() {}

// CondGotoData holds data for StmtCondGoto.
type CondGotoData struct {
	Cond    *Expr
	Label   LabelID
	OnFalse bool
}

func (*CondGotoData) stmtData() {}

// ReturnData holds data for StmtReturn.
type ReturnData struct {
	Value *Expr // nil for bare return
}

func (*ReturnData) stmtData() {}

// TryData holds data for StmtTry.
type TryData struct {
	Body    *Block
	Handler *Block
}

func (*TryData) stmtData() {}

// ThrowData holds data for StmtThrow.
type ThrowData struct {
	Value *Expr
}

func (*ThrowData) stmtData() {}

// EvalData holds data for StmtEval.
type EvalData struct {
	Value *Expr
}

func (*EvalData) stmtData() {}

// CommentData holds data for StmtComment.
type CommentData struct {
	Text string
}

func (*CommentData) stmtData() {}

// BlockData holds data for StmtBlock.
type BlockData struct {
	Block *Block
}

func (*BlockData) stmtData() {}

// Call returns the call payload or nil.
func (s *Stmt) Call() *CallData {
	if s == nil || s.Kind != StmtCall {
		return nil
	}
	d, _ := s.Data.(*CallData)
	return d
}

// IsLoop reports whether the statement repeats its body.
func (s *Stmt) IsLoop() bool {
	return s.Kind == StmtWhile || s.Kind == StmtDoWhile || s.Kind == StmtDoLoop
}
