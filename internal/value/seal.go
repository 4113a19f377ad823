package value

import (
	"github.com/roach88/smarm/internal/halt"
)

// brand ties a sealer to its unsealer. It has non-zero size so every
// allocation has a distinct address.
type brand struct {
	_ byte
}

// Sealer wraps values so only the matching Unsealer can open them.
type Sealer struct {
	b *brand
}

// Unsealer opens values sealed by its matching Sealer.
type Unsealer struct {
	b *brand
}

// Sealed is an opaque value produced by a Sealer.
type Sealed struct {
	b   *brand
	val Value
}

func (*Sealer) value()   {}
func (*Unsealer) value() {}
func (*Sealed) value()   {}

// NewSealerPair creates a sealer and unsealer sharing a fresh brand.
func NewSealerPair() (*Sealer, *Unsealer) {
	b := &brand{}
	return &Sealer{b: b}, &Unsealer{b: b}
}

// Name implements Procedure.
func (*Sealer) Name() string { return "sealer" }

// Name implements Procedure.
func (*Unsealer) Name() string { return "unsealer" }

// Seal wraps v.
func (s *Sealer) Seal(v Value) *Sealed {
	return &Sealed{b: s.b, val: v}
}

// Unseal opens x. A sealed object from another sealer is a SealMismatch
// halt; anything that is not sealed is a TypeError.
func (u *Unsealer) Unseal(x Value) (Value, error) {
	s, ok := x.(*Sealed)
	if !ok {
		return nil, halt.Type("unsealer: expected sealed, got %s", TypeName(x))
	}
	if s.b != u.b {
		return nil, halt.SealMismatch()
	}
	return s.val, nil
}
