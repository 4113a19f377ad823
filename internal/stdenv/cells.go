package stdenv

import (
	"github.com/roach88/smarm/internal/value"
)

// Cells are the only general mutation. Holding a cell and holding
// cell-set! are separate authorities: a procedure given only the result of
// cell-ref cannot reach the cell at all.
var cellPrimitives = map[string]value.PrimitiveFunc{
	"new-cell": func(ctx value.Context, args []value.Value) (value.Value, error) {
		if err := ctx.Alloc(ctx.Sizes().Cell); err != nil {
			return nil, err
		}
		return ctx.Cells().New(args[0]), nil
	},
	"cell?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Cell)
		return boolean(ok), nil
	},
	"cell-ref": func(ctx value.Context, args []value.Value) (value.Value, error) {
		c, err := cellArg("cell-ref", args, 0)
		if err != nil {
			return nil, err
		}
		return ctx.Cells().Ref(c)
	},
	"cell-set!": func(ctx value.Context, args []value.Value) (value.Value, error) {
		c, err := cellArg("cell-set!", args, 0)
		if err != nil {
			return nil, err
		}
		if err := ctx.Cells().Set(c, args[1]); err != nil {
			return nil, err
		}
		return value.Unit, nil
	},
}
