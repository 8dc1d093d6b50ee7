package ir

import (
	"errors"
	"fmt"
)

// Verify checks structural well-formedness of m: symbol, register and label
// references resolve, direct callees are live and every label is defined
// exactly once per function.
func Verify(m *Module) error {
	var errs []error
	for _, f := range m.LiveFuncs() {
		if f.Body == nil {
			continue
		}
		errs = append(errs, verifyFunc(m, f)...)
	}
	for id := 1; id < len(m.Globals); id++ {
		g := m.Globals[id]
		if g.Init != nil {
			if err := verifyConst(m, g.Init); err != nil {
				errs = append(errs, fmt.Errorf("global %s: %w", g.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func verifyConst(m *Module, c *Const) error {
	switch c.Kind {
	case ConstFuncAddr:
		if m.Func(c.Func) == nil {
			return fmt.Errorf("address of dead function %d", c.Func)
		}
	case ConstAgg:
		for i := range c.Elems {
			if err := verifyConst(m, &c.Elems[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyFunc(m *Module, f *Func) []error {
	var errs []error
	report := func(s *Stmt, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: stmt %d (%s): %s", f.Name, s.ID, s.Kind, fmt.Sprintf(format, args...)))
	}
	defined := make(map[LabelID]int)
	seen := make(map[StmtID]bool)
	checkSym := func(s *Stmt, ref SymRef) {
		if m.Symbol(f, ref) == nil {
			report(s, "unresolved symbol %+v", ref)
		}
	}
	checkLabel := func(s *Stmt, id LabelID) {
		if !id.IsValid() || int(id) >= len(f.Labels) {
			report(s, "unresolved label %d", id)
		}
	}
	WalkBlock(f.Body, func(s *Stmt) bool {
		if seen[s.ID] {
			report(s, "duplicate statement id")
		}
		seen[s.ID] = true
		WalkStmtExprs(s, func(e *Expr) {
			switch e.Kind {
			case ExprRead, ExprAddrOf, ExprIndex:
				checkSym(s, e.Sym)
			case ExprRegRead:
				if !e.Reg.IsValid() || int(e.Reg) >= len(f.Pregs) {
					report(s, "unresolved register %d", e.Reg)
				}
			case ExprFuncAddr:
				if m.Func(e.Func) == nil {
					report(s, "address of dead function %d", e.Func)
				}
			}
		})
		switch d := s.Data.(type) {
		case *AssignData:
			checkSym(s, d.Dst)
		case *RegAssignData:
			if !d.Reg.IsValid() || int(d.Reg) >= len(f.Pregs) {
				report(s, "unresolved register %d", d.Reg)
			}
		case *CallData:
			if d.HasResult {
				checkSym(s, d.Result)
			}
			if d.Kind == CallDirect && m.Func(d.Callee) == nil {
				report(s, "call to dead function %d", d.Callee)
			}
		case *DoLoopData:
			checkSym(s, d.Var)
		case *LabelData:
			checkLabel(s, d.Label)
			defined[d.Label]++
		case *GotoData:
			checkLabel(s, d.Label)
		case *CondGotoData:
			checkLabel(s, d.Label)
		case *SwitchData:
			for _, c := range d.Cases {
				checkLabel(s, c.Label)
			}
			if d.Default.IsValid() {
				checkLabel(s, d.Default)
			}
		}
		return true
	})
	for id := 1; id < len(f.Labels); id++ {
		if n := defined[LabelID(id)]; n > 1 {
			errs = append(errs, fmt.Errorf("%s: label %s defined %d times", f.Name, f.Labels[id].Name, n))
		}
	}
	return errs
}
