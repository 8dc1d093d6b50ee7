package ir

// Storage is the storage class of a symbol.
type Storage uint8

const (
	// StorageGlobal is a module-visible global.
	StorageGlobal Storage = iota + 1
	// StorageStatic is a file-static global.
	StorageStatic
	// StorageLocal is a function local.
	StorageLocal
	// StorageFormal is a function parameter.
	StorageFormal
)

func (s Storage) String() string {
	switch s {
	case StorageGlobal:
		return "global"
	case StorageStatic:
		return "static"
	case StorageLocal:
		return "local"
	case StorageFormal:
		return "formal"
	default:
		return "unknown"
	}
}

// ConstKind enumerates constant initialiser kinds.
type ConstKind uint8

const (
	// ConstInt is an integer constant.
	ConstInt ConstKind = iota + 1
	// ConstFuncAddr is the address of a function.
	ConstFuncAddr
	// ConstAgg is an aggregate of constants.
	ConstAgg
)

// Const is a constant initialiser of a symbol.
type Const struct {
	Kind  ConstKind
	Int   int64
	Func  FuncID
	Elems []Const
}

// Elem walks an aggregate by the given indexes. It returns false when an index
// is out of range or a non-aggregate is indexed.
func (c *Const) Elem(indexes ...int64) (*Const, bool) {
	cur := c
	for _, idx := range indexes {
		if cur == nil || cur.Kind != ConstAgg || idx < 0 || idx >= int64(len(cur.Elems)) {
			return nil, false
		}
		cur = &cur.Elems[idx]
	}
	return cur, cur != nil
}

// Symbol is an entry of a global or local symbol table.
type Symbol struct {
	Name      string
	Storage   Storage
	IsConst   bool
	Init      *Const
	AddrTaken bool
}

// IsGlobal reports whether the symbol lives in the module table.
func (s *Symbol) IsGlobal() bool {
	return s.Storage == StorageGlobal || s.Storage == StorageStatic
}

// SymRef addresses a symbol in either the global table or the enclosing
// function's local table.
type SymRef struct {
	Global bool
	ID     SymID
}

// GlobalRef returns a reference into the module symbol table.
func GlobalRef(id SymID) SymRef { return SymRef{Global: true, ID: id} }

// LocalRef returns a reference into the function symbol table.
func LocalRef(id SymID) SymRef { return SymRef{ID: id} }

// IsValid reports whether the reference points at a table slot.
func (r SymRef) IsValid() bool { return r.ID.IsValid() }
