// Package value defines the Smarm data model.
//
// Every value implements the sealed Value interface. Atoms, pairs, numbers
// and environments are immutable once constructed; the only mutable state a
// program can reach lives in a per-evaluation CellTable and, when the
// mutation grant is present, in vectors.
//
// Nothing in this package consults the clock, randomness or map iteration
// order: two evaluations that build the same values observe the same
// behavior on any host.
package value

import (
	"strings"
)

// Value is the sealed interface for all Smarm values.
type Value interface {
	value()
}

// Bool is #t or #f.
type Bool bool

// Symbol is an interned name. Symbols beginning with "#:" are keywords and
// evaluate to themselves.
type Symbol string

// Bytes is an immutable byte string.
type Bytes string

// Char is a single byte character.
type Char byte

// Null is the empty list.
type Null struct{}

// Void is the unspecified value returned by definitions and mutators.
type Void struct{}

func (Bool) value()   {}
func (Symbol) value() {}
func (Bytes) value()  {}
func (Char) value()   {}
func (Null) value()   {}
func (Void) value()   {}

// Shared singletons.
var (
	True  Value = Bool(true)
	False Value = Bool(false)
	Nil   Value = Null{}
	Unit  Value = Void{}
)

// KeywordPrefix marks self-evaluating keyword symbols.
const KeywordPrefix = "#:"

// IsKeyword reports whether s is a keyword.
func (s Symbol) IsKeyword() bool {
	return strings.HasPrefix(string(s), KeywordPrefix)
}

// Truthy reports whether v counts as true in a conditional. Only #f is false.
func Truthy(v Value) bool {
	b, ok := v.(Bool)
	return !ok || bool(b)
}

// Pair is an immutable cons cell.
type Pair struct {
	car Value
	cdr Value
}

func (*Pair) value() {}

// Cons creates a pair.
func Cons(car, cdr Value) *Pair {
	return &Pair{car: car, cdr: cdr}
}

// Car returns the first element.
func (p *Pair) Car() Value { return p.car }

// Cdr returns the rest.
func (p *Pair) Cdr() Value { return p.cdr }

// List builds a proper list from vals.
func List(vals ...Value) Value {
	return ListWithTail(vals, Nil)
}

// ListWithTail builds a list of vals ending in tail. With an empty vals it
// returns tail itself.
func ListWithTail(vals []Value, tail Value) Value {
	out := tail
	for i := len(vals) - 1; i >= 0; i-- {
		out = Cons(vals[i], out)
	}
	return out
}

// ListToSlice returns the elements of a proper list. ok is false for an
// improper list or a non-list.
func ListToSlice(v Value) (items []Value, ok bool) {
	for {
		switch x := v.(type) {
		case Null:
			return items, true
		case *Pair:
			items = append(items, x.car)
			v = x.cdr
		default:
			return nil, false
		}
	}
}

// SplitList returns the leading elements of a possibly improper list and its
// final tail (Nil for a proper list).
func SplitList(v Value) (items []Value, tail Value) {
	for {
		p, ok := v.(*Pair)
		if !ok {
			return items, v
		}
		items = append(items, p.car)
		v = p.cdr
	}
}

// Vector is a fixed-length sequence. It is mutated only through
// explicitly granted primitives.
type Vector struct {
	items []Value
}

func (*Vector) value() {}

// NewVector creates a vector that takes ownership of items.
func NewVector(items []Value) *Vector {
	return &Vector{items: items}
}

// Len returns the number of elements.
func (v *Vector) Len() int { return len(v.items) }

// Ref returns element i. The caller checks bounds.
func (v *Vector) Ref(i int) Value { return v.items[i] }

// Set replaces element i. The caller checks bounds.
func (v *Vector) Set(i int, x Value) { v.items[i] = x }

// Items returns a copy of the elements.
func (v *Vector) Items() []Value {
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// TypeName returns the name of v's kind as used in halt messages.
func TypeName(v Value) string {
	switch x := v.(type) {
	case Bool:
		return "boolean"
	case *Number:
		switch x.Kind() {
		case KindInteger:
			return "integer"
		case KindRational:
			return "rational"
		default:
			return "real"
		}
	case Symbol:
		return "symbol"
	case Bytes:
		return "bytes"
	case Char:
		return "char"
	case Null:
		return "null"
	case Void:
		return "void"
	case *Pair:
		return "pair"
	case *Vector:
		return "vector"
	case *Cell:
		return "cell"
	case *Sealed:
		return "sealed"
	case Procedure:
		return "procedure"
	default:
		return "unknown"
	}
}
