package stdenv

import (
	"github.com/roach88/smarm/internal/value"
)

var corePrimitives = map[string]value.PrimitiveFunc{
	"not": func(_ value.Context, args []value.Value) (value.Value, error) {
		return boolean(args[0] == value.False), nil
	},
	"boolean?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(value.Bool)
		return boolean(ok), nil
	},
	// eq? and eqv? coincide: numbers and characters are compared by value
	// since they have no observable identity.
	"eq?": func(_ value.Context, args []value.Value) (value.Value, error) {
		return boolean(value.Eqv(args[0], args[1])), nil
	},
	"eqv?": func(_ value.Context, args []value.Value) (value.Value, error) {
		return boolean(value.Eqv(args[0], args[1])), nil
	},
	"equal?": func(ctx value.Context, args []value.Value) (value.Value, error) {
		eq, err := equal(ctx, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return boolean(eq), nil
	},
	"procedure?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(value.Procedure)
		return boolean(ok), nil
	},

	"make-sealer-pair": func(ctx value.Context, _ []value.Value) (value.Value, error) {
		sizes := ctx.Sizes()
		if err := ctx.Alloc(sizes.SealerPair + sizes.Pair); err != nil {
			return nil, err
		}
		seal, unseal := value.NewSealerPair()
		return value.Cons(seal, unseal), nil
	},
	"sealed?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Sealed)
		return boolean(ok), nil
	},
	"sealer?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Sealer)
		return boolean(ok), nil
	},
	"unsealer?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Unsealer)
		return boolean(ok), nil
	},
}

// equal compares structurally, charging one step per visited node.
func equal(ctx value.Context, a, b value.Value) (bool, error) {
	return value.EqualMetered(a, b, func() error { return ctx.Charge(1) })
}
