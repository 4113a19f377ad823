package stdenv

import (
	"github.com/roach88/smarm/internal/value"
)

var vectorPrimitives = map[string]value.PrimitiveFunc{
	"vector?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Vector)
		return boolean(ok), nil
	},
	"vector": func(ctx value.Context, args []value.Value) (value.Value, error) {
		return newVector(ctx, append([]value.Value(nil), args...))
	},
	"make-vector": func(ctx value.Context, args []value.Value) (value.Value, error) {
		k, err := sizeArg(ctx, "make-vector", args, 0)
		if err != nil {
			return nil, err
		}
		fill := value.False
		if len(args) == 2 {
			fill = args[1]
		}
		if err := ctx.Alloc(ctx.Sizes().ForVector(k)); err != nil {
			return nil, err
		}
		items := make([]value.Value, k)
		for i := range items {
			items[i] = fill
		}
		return value.NewVector(items), nil
	},
	"vector-length": func(_ value.Context, args []value.Value) (value.Value, error) {
		v, err := vectorArg("vector-length", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Int(int64(v.Len())), nil
	},
	"vector-ref": func(_ value.Context, args []value.Value) (value.Value, error) {
		v, err := vectorArg("vector-ref", args, 0)
		if err != nil {
			return nil, err
		}
		k, err := indexArg("vector-ref", args, 1, v.Len())
		if err != nil {
			return nil, err
		}
		return v.Ref(k), nil
	},
	"vector->list": func(ctx value.Context, args []value.Value) (value.Value, error) {
		v, err := vectorArg("vector->list", args, 0)
		if err != nil {
			return nil, err
		}
		return list(ctx, v.Items())
	},
	"list->vector": func(ctx value.Context, args []value.Value) (value.Value, error) {
		items, err := listArg("list->vector", args, 0)
		if err != nil {
			return nil, err
		}
		return newVector(ctx, items)
	},

	// Bound only with the vector-mutation grant.
	"vector-set!": func(_ value.Context, args []value.Value) (value.Value, error) {
		v, err := vectorArg("vector-set!", args, 0)
		if err != nil {
			return nil, err
		}
		k, err := indexArg("vector-set!", args, 1, v.Len())
		if err != nil {
			return nil, err
		}
		v.Set(k, args[2])
		return value.Unit, nil
	},
	"vector-fill!": func(_ value.Context, args []value.Value) (value.Value, error) {
		v, err := vectorArg("vector-fill!", args, 0)
		if err != nil {
			return nil, err
		}
		for i := 0; i < v.Len(); i++ {
			v.Set(i, args[1])
		}
		return value.Unit, nil
	},
}

// newVector charges for and wraps items, which the vector takes over.
func newVector(ctx value.Context, items []value.Value) (value.Value, error) {
	if err := ctx.Alloc(ctx.Sizes().ForVector(len(items))); err != nil {
		return nil, err
	}
	return value.NewVector(items), nil
}
