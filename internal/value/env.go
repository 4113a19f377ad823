package value

import (
	"github.com/roach88/smarm/internal/halt"
)

// indexThreshold is the frame size above which lookups use a map.
const indexThreshold = 8

// Env is one immutable frame of a lexical environment chain.
//
// Plain frames bind values directly. Recursive frames (letrec bodies and
// program top level) bind write-once slots that are filled in declared
// order after the frame exists, so closures created by the initializers
// can refer to the frame itself.
type Env struct {
	parent *Env
	names  []Symbol
	vals   []Value
	slots  []*Slot
	index  map[Symbol]int
}

// Slot is a write-once binding in a recursive frame.
type Slot struct {
	name  Symbol
	val   Value
	ready bool
}

// Init sets the slot's value. Panics if called twice: each slot is
// initialized exactly once by the eval.Machine method that created its
// frame (formLetrec, namedLet, EvalProgram), so a second call is a bug in
// the evaluator, never a consequence of program input.
func (s *Slot) Init(v Value) {
	if s.ready {
		panic("value: slot " + string(s.name) + " initialized twice")
	}
	s.val = v
	s.ready = true
}

// Name returns the bound name.
func (s *Slot) Name() Symbol { return s.name }

// NewEnv creates a root frame.
func NewEnv(names []Symbol, vals []Value) *Env {
	return (*Env)(nil).Extend(names, vals)
}

// Extend returns a child frame of e binding names to vals. e is unchanged.
// Later names shadow earlier ones with the same spelling.
func (e *Env) Extend(names []Symbol, vals []Value) *Env {
	if len(names) != len(vals) {
		panic("value: Extend with mismatched names and values")
	}
	child := &Env{parent: e, names: names, vals: vals}
	child.buildIndex()
	return child
}

// ExtendRecursive returns a child frame of e whose bindings are unset slots.
func (e *Env) ExtendRecursive(names []Symbol) (*Env, []*Slot) {
	slots := make([]*Slot, len(names))
	for i, n := range names {
		slots[i] = &Slot{name: n}
	}
	child := &Env{parent: e, names: names, slots: slots}
	child.buildIndex()
	return child, slots
}

func (e *Env) buildIndex() {
	if len(e.names) <= indexThreshold {
		return
	}
	e.index = make(map[Symbol]int, len(e.names))
	for i, n := range e.names {
		e.index[n] = i
	}
}

func (e *Env) find(sym Symbol) int {
	if e.index != nil {
		if i, ok := e.index[sym]; ok {
			return i
		}
		return -1
	}
	for i := len(e.names) - 1; i >= 0; i-- {
		if e.names[i] == sym {
			return i
		}
	}
	return -1
}

// Lookup resolves sym through the chain. A missing name, or a recursive
// binding read before it is initialized, is an UnboundVariable halt.
func (e *Env) Lookup(sym Symbol) (Value, error) {
	for f := e; f != nil; f = f.parent {
		i := f.find(sym)
		if i < 0 {
			continue
		}
		if f.slots == nil {
			return f.vals[i], nil
		}
		s := f.slots[i]
		if !s.ready {
			return nil, halt.Unassigned(string(sym))
		}
		return s.val, nil
	}
	return nil, halt.Unbound(string(sym))
}

// Parent returns the enclosing frame, nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// Names returns a copy of this frame's bound names.
func (e *Env) Names() []Symbol {
	out := make([]Symbol, len(e.names))
	copy(out, e.names)
	return out
}

// Len returns the number of bindings in this frame.
func (e *Env) Len() int { return len(e.names) }
