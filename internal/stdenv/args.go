package stdenv

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// argError reports argument i (0-based) of proc outside its domain.
func argError(proc string, i int, want string, got value.Value) error {
	return halt.Type("%s: argument %d must be %s, got %s", proc, i+1, want, value.TypeName(got)).
		With("procedure", proc)
}

func numberArg(proc string, args []value.Value, i int) (*value.Number, error) {
	n, ok := args[i].(*value.Number)
	if !ok {
		return nil, argError(proc, i, "a number", args[i])
	}
	return n, nil
}

func numberArgs(proc string, args []value.Value) ([]*value.Number, error) {
	out := make([]*value.Number, len(args))
	for i := range args {
		n, err := numberArg(proc, args, i)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// indexArg returns a non-negative exact integer argument below limit.
func indexArg(proc string, args []value.Value, i int, limit int) (int, error) {
	n, ok := args[i].(*value.Number)
	if !ok || n.Kind() != value.KindInteger {
		return 0, argError(proc, i, "an exact integer", args[i])
	}
	k, ok := n.Int64()
	if !ok || k < 0 || k >= int64(limit) {
		return 0, halt.Type("%s: index %s out of range [0, %d)", proc, n, limit).
			With("procedure", proc)
	}
	return int(k), nil
}

// sizeArg returns a non-negative exact integer used as a length. Lengths
// above the manifest's length limit exhaust it; the caller charges the
// memory budget before allocating.
func sizeArg(ctx value.Context, proc string, args []value.Value, i int) (int, error) {
	n, ok := args[i].(*value.Number)
	if !ok || n.Kind() != value.KindInteger {
		return 0, argError(proc, i, "an exact integer", args[i])
	}
	if n.Sign() < 0 {
		return 0, halt.Type("%s: invalid length %s", proc, n).With("procedure", proc)
	}
	limit := int64(ctx.MaxLength())
	k, ok := n.Int64()
	if !ok || k > limit {
		return 0, halt.Exhausted("length", limit, limit).With("procedure", proc)
	}
	return int(k), nil
}

func byteArg(proc string, args []value.Value, i int) (byte, error) {
	n, ok := args[i].(*value.Number)
	if ok {
		if k, fits := n.Int64(); fits && k >= 0 && k <= 255 {
			return byte(k), nil
		}
	}
	return 0, argError(proc, i, "a byte value 0-255", args[i])
}

func bytesArg(proc string, args []value.Value, i int) (value.Bytes, error) {
	b, ok := args[i].(value.Bytes)
	if !ok {
		return "", argError(proc, i, "a byte string", args[i])
	}
	return b, nil
}

func charArg(proc string, args []value.Value, i int) (value.Char, error) {
	c, ok := args[i].(value.Char)
	if !ok {
		return 0, argError(proc, i, "a char", args[i])
	}
	return c, nil
}

func symbolArg(proc string, args []value.Value, i int) (value.Symbol, error) {
	s, ok := args[i].(value.Symbol)
	if !ok {
		return "", argError(proc, i, "a symbol", args[i])
	}
	return s, nil
}

func pairArg(proc string, args []value.Value, i int) (*value.Pair, error) {
	p, ok := args[i].(*value.Pair)
	if !ok {
		return nil, argError(proc, i, "a pair", args[i])
	}
	return p, nil
}

func listArg(proc string, args []value.Value, i int) ([]value.Value, error) {
	items, ok := value.ListToSlice(args[i])
	if !ok {
		return nil, argError(proc, i, "a proper list", args[i])
	}
	return items, nil
}

func vectorArg(proc string, args []value.Value, i int) (*value.Vector, error) {
	v, ok := args[i].(*value.Vector)
	if !ok {
		return nil, argError(proc, i, "a vector", args[i])
	}
	return v, nil
}

func cellArg(proc string, args []value.Value, i int) (*value.Cell, error) {
	c, ok := args[i].(*value.Cell)
	if !ok {
		return nil, argError(proc, i, "a cell", args[i])
	}
	return c, nil
}

func procedureArg(proc string, args []value.Value, i int) (value.Procedure, error) {
	p, ok := args[i].(value.Procedure)
	if !ok {
		return nil, argError(proc, i, "a procedure", args[i])
	}
	return p, nil
}

// number charges and returns a freshly computed numeric result.
func number(ctx value.Context, n *value.Number, err error) (value.Value, error) {
	if err != nil {
		return nil, err
	}
	if err := ctx.Alloc(ctx.Sizes().ForNumber(n)); err != nil {
		return nil, err
	}
	return n, nil
}

// list charges and returns a fresh proper list of items.
func list(ctx value.Context, items []value.Value) (value.Value, error) {
	if err := ctx.Alloc(ctx.Sizes().ForList(len(items))); err != nil {
		return nil, err
	}
	return value.List(items...), nil
}

func boolean(b bool) value.Value {
	if b {
		return value.True
	}
	return value.False
}
