package stdenv

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

var listPrimitives = map[string]value.PrimitiveFunc{
	"cons": func(ctx value.Context, args []value.Value) (value.Value, error) {
		if err := ctx.Alloc(ctx.Sizes().Pair); err != nil {
			return nil, err
		}
		return value.Cons(args[0], args[1]), nil
	},
	"car":   accessor("car", "a"),
	"cdr":   accessor("cdr", "d"),
	"cadr":  accessor("cadr", "da"),
	"cddr":  accessor("cddr", "dd"),
	"caddr": accessor("caddr", "dda"),

	"pair?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Pair)
		return boolean(ok), nil
	},
	"null?": func(_ value.Context, args []value.Value) (value.Value, error) {
		return boolean(args[0] == value.Nil), nil
	},
	"list?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := value.ListToSlice(args[0])
		return boolean(ok), nil
	},
	"list": func(ctx value.Context, args []value.Value) (value.Value, error) {
		return list(ctx, args)
	},
	"length": func(_ value.Context, args []value.Value) (value.Value, error) {
		items, err := listArg("length", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Int(int64(len(items))), nil
	},
	"append":  appendLists,
	"reverse": reverse,

	"list-ref": func(_ value.Context, args []value.Value) (value.Value, error) {
		items, err := listArg("list-ref", args, 0)
		if err != nil {
			return nil, err
		}
		k, err := indexArg("list-ref", args, 1, len(items))
		if err != nil {
			return nil, err
		}
		return items[k], nil
	},
	"list-tail": listTail,

	"memv":   member("memv", eqvMatch),
	"member": member("member", equal),
	"assv":   assoc("assv", eqvMatch),
	"assoc":  assoc("assoc", equal),

	"apply":    apply,
	"map":      mapLists,
	"for-each": forEach,
}

// accessor composes car ("a") and cdr ("d") steps, applied left to right.
func accessor(name, path string) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		v := args[0]
		for i := 0; i < len(path); i++ {
			p, ok := v.(*value.Pair)
			if !ok {
				return nil, halt.Type("%s: expected a pair, got %s", name, value.TypeName(v)).With("procedure", name)
			}
			if path[i] == 'a' {
				v = p.Car()
			} else {
				v = p.Cdr()
			}
		}
		return v, nil
	}
}

// appendLists copies every argument but the last, which becomes the shared
// tail of the result.
func appendLists(ctx value.Context, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Nil, nil
	}
	var prefix []value.Value
	for i := range args[:len(args)-1] {
		items, err := listArg("append", args, i)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, items...)
	}
	if err := ctx.Alloc(ctx.Sizes().ForList(len(prefix))); err != nil {
		return nil, err
	}
	return value.ListWithTail(prefix, args[len(args)-1]), nil
}

func reverse(ctx value.Context, args []value.Value) (value.Value, error) {
	items, err := listArg("reverse", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[len(items)-1-i] = v
	}
	return list(ctx, out)
}

func listTail(_ value.Context, args []value.Value) (value.Value, error) {
	n, ok := args[1].(*value.Number)
	if !ok || n.Kind() != value.KindInteger || n.Sign() < 0 {
		return nil, argError("list-tail", 1, "a non-negative exact integer", args[1])
	}
	k, _ := n.Int64()
	v := args[0]
	for i := int64(0); i < k; i++ {
		p, ok := v.(*value.Pair)
		if !ok {
			return nil, halt.Type("list-tail: index %s out of range", n).With("procedure", "list-tail")
		}
		v = p.Cdr()
	}
	return v, nil
}

type matcher func(ctx value.Context, a, b value.Value) (bool, error)

func eqvMatch(_ value.Context, a, b value.Value) (bool, error) {
	return value.Eqv(a, b), nil
}

// member returns the first tail of the list whose car matches, or #f.
func member(name string, match matcher) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		if _, err := listArg(name, args, 1); err != nil {
			return nil, err
		}
		for v := args[1]; v != value.Nil; {
			p := v.(*value.Pair)
			ok, err := match(ctx, args[0], p.Car())
			if err != nil {
				return nil, err
			}
			if ok {
				return p, nil
			}
			v = p.Cdr()
		}
		return value.False, nil
	}
}

// assoc returns the first pair of the association list whose car matches,
// or #f.
func assoc(name string, match matcher) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		entries, err := listArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p, ok := e.(*value.Pair)
			if !ok {
				return nil, halt.Type("%s: association list entry is not a pair", name).With("procedure", name)
			}
			found, err := match(ctx, args[0], p.Car())
			if err != nil {
				return nil, err
			}
			if found {
				return p, nil
			}
		}
		return value.False, nil
	}
}

// apply spreads its last argument, which must be a proper list.
func apply(ctx value.Context, args []value.Value) (value.Value, error) {
	proc, err := procedureArg("apply", args, 0)
	if err != nil {
		return nil, err
	}
	last := len(args) - 1
	spread, err := listArg("apply", args, last)
	if err != nil {
		return nil, err
	}
	callArgs := make([]value.Value, 0, last-1+len(spread))
	callArgs = append(callArgs, args[1:last]...)
	callArgs = append(callArgs, spread...)
	return ctx.Apply(proc, callArgs)
}

// columns type checks the list arguments of map and for-each and returns
// them, all of the same length.
func columns(name string, args []value.Value) (value.Procedure, [][]value.Value, error) {
	proc, err := procedureArg(name, args, 0)
	if err != nil {
		return nil, nil, err
	}
	lists := make([][]value.Value, len(args)-1)
	for i := range lists {
		if lists[i], err = listArg(name, args, i+1); err != nil {
			return nil, nil, err
		}
		if len(lists[i]) != len(lists[0]) {
			return nil, nil, halt.Type("%s: lists differ in length", name).With("procedure", name)
		}
	}
	return proc, lists, nil
}

func row(lists [][]value.Value, j int) []value.Value {
	out := make([]value.Value, len(lists))
	for i := range lists {
		out[i] = lists[i][j]
	}
	return out
}

func mapLists(ctx value.Context, args []value.Value) (value.Value, error) {
	proc, lists, err := columns("map", args)
	if err != nil {
		return nil, err
	}
	results := make([]value.Value, len(lists[0]))
	for j := range results {
		if results[j], err = ctx.Apply(proc, row(lists, j)); err != nil {
			return nil, err
		}
	}
	return list(ctx, results)
}

func forEach(ctx value.Context, args []value.Value) (value.Value, error) {
	proc, lists, err := columns("for-each", args)
	if err != nil {
		return nil, err
	}
	for j := range lists[0] {
		if _, err := ctx.Apply(proc, row(lists, j)); err != nil {
			return nil, err
		}
	}
	return value.Unit, nil
}
