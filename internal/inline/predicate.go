package inline

import (
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// MaxConditions bounds the conditions of one summary. An Assert is a bitmask
// over condition indices, so the bound is the width of the mask.
const MaxConditions = 64

// Reserved condition indices.
const (
	condFalse = 0 // never holds; an assert mentioning it is dropped
	// CondNotInlined holds when the function runs as an out-of-line call.
	CondNotInlined = 1

	firstCondition = 2
	maxAsserts     = 16
)

// Assert is a conjunction of conditions, one bit per condition index. The
// empty assert is true.
type Assert uint64

func (a Assert) has(idx int) bool { return a&(1<<uint(idx)) != 0 }

// Tri is a three-valued truth.
type Tri uint8

const (
	TriUnknown Tri = iota
	TriFalse
	TriTrue
)

func (t Tri) String() string {
	switch t {
	case TriFalse:
		return "false"
	case TriTrue:
		return "true"
	default:
		return "unknown"
	}
}

func triOf(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// Predicate is a disjunction of asserts. The zero value is false.
type Predicate struct {
	asserts []Assert
}

// TruePredicate holds unconditionally.
func TruePredicate() Predicate { return Predicate{asserts: []Assert{0}} }

// FalsePredicate never holds.
func FalsePredicate() Predicate { return Predicate{} }

// CondPredicate holds when condition idx holds.
func CondPredicate(idx int) Predicate {
	if idx == condFalse {
		return FalsePredicate()
	}
	return Predicate{asserts: []Assert{1 << uint(idx)}}
}

// IsFalse reports whether p never holds.
func (p Predicate) IsFalse() bool { return len(p.asserts) == 0 }

// IsTrue reports whether p holds unconditionally.
func (p Predicate) IsTrue() bool { return slices.Contains(p.asserts, 0) }

// Asserts returns the disjuncts.
func (p Predicate) Asserts() []Assert { return p.asserts }

// Equal reports whether both predicates have the same disjuncts.
func (p Predicate) Equal(q Predicate) bool {
	if len(p.asserts) != len(q.asserts) {
		return false
	}
	a, b := slices.Clone(p.asserts), slices.Clone(q.asserts)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// add appends a to the disjunction, keeping it free of subsumed asserts. An
// assert that already holds whenever a holds makes a redundant.
func (p *Predicate) add(a Assert) {
	if a.has(condFalse) {
		return
	}
	for _, b := range p.asserts {
		if a&b == b {
			return
		}
	}
	p.asserts = slices.DeleteFunc(p.asserts, func(b Assert) bool { return a&b == a })
	p.asserts = append(p.asserts, a)
	if len(p.asserts) > maxAsserts {
		p.asserts = []Assert{0}
	}
}

// Or returns p || q.
func (p Predicate) Or(q Predicate) Predicate {
	out := Predicate{asserts: slices.Clone(p.asserts)}
	for _, a := range q.asserts {
		out.add(a)
	}
	return out
}

// And returns p && q, distributed back into disjunctive form.
func (p Predicate) And(q Predicate) Predicate {
	var out Predicate
	for _, a := range p.asserts {
		for _, b := range q.asserts {
			out.add(a | b)
		}
	}
	return out
}

// Evaluate reduces p given the truth of every condition. Conditions beyond
// vals are unknown.
func (p Predicate) Evaluate(vals []Tri) Tri {
	res := TriFalse
	for _, a := range p.asserts {
		v := TriTrue
		for m := uint64(a); m != 0; m &= m - 1 {
			idx := bits.TrailingZeros64(m)
			c := TriUnknown
			if idx < len(vals) {
				c = vals[idx]
			}
			if c == TriFalse {
				v = TriFalse
				break
			}
			if c == TriUnknown {
				v = TriUnknown
			}
		}
		switch v {
		case TriTrue:
			return TriTrue
		case TriUnknown:
			res = TriUnknown
		}
	}
	return res
}

// Condition index remapping results, besides a new index.
const (
	remapTrue  = -1
	remapFalse = -2
)

// Remap rewrites every condition index through m. A condition mapped to
// remapTrue is dropped from its assert; remapFalse drops the whole assert.
func (p Predicate) Remap(m *[MaxConditions]int) Predicate {
	var out Predicate
next:
	for _, a := range p.asserts {
		var na Assert
		for bs := uint64(a); bs != 0; bs &= bs - 1 {
			switch to := m[bits.TrailingZeros64(bs)]; to {
			case remapTrue:
			case remapFalse:
				continue next
			default:
				na |= 1 << uint(to)
			}
		}
		out.add(na)
	}
	return out
}

// CondsUsed returns the union of all asserts.
func (p Predicate) CondsUsed() Assert {
	var u Assert
	for _, a := range p.asserts {
		u |= a
	}
	return u
}

func (p Predicate) String() string {
	if p.IsFalse() {
		return "false"
	}
	if p.IsTrue() {
		return "true"
	}
	parts := make([]string, 0, len(p.asserts))
	for _, a := range p.asserts {
		var conj []string
		for m := uint64(a); m != 0; m &= m - 1 {
			idx := bits.TrailingZeros64(m)
			if idx == CondNotInlined {
				conj = append(conj, "not_inlined")
			} else {
				conj = append(conj, "c"+strconv.Itoa(idx))
			}
		}
		parts = append(parts, strings.Join(conj, " && "))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ") || (") + ")"
}
