package stdenv

import (
	"strings"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

var bytesPrimitives = map[string]value.PrimitiveFunc{
	"bytes?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(value.Bytes)
		return boolean(ok), nil
	},
	"make-bytes": func(ctx value.Context, args []value.Value) (value.Value, error) {
		k, err := sizeArg(ctx, "make-bytes", args, 0)
		if err != nil {
			return nil, err
		}
		var fill byte
		if len(args) == 2 {
			if fill, err = byteArg("make-bytes", args, 1); err != nil {
				return nil, err
			}
		}
		if err := ctx.Alloc(ctx.Sizes().ForBytes(k)); err != nil {
			return nil, err
		}
		return value.Bytes(strings.Repeat(string([]byte{fill}), k)), nil
	},
	"bytes": func(ctx value.Context, args []value.Value) (value.Value, error) {
		buf := make([]byte, len(args))
		for i := range args {
			b, err := byteArg("bytes", args, i)
			if err != nil {
				return nil, err
			}
			buf[i] = b
		}
		return newBytes(ctx, string(buf))
	},
	"bytes-length": func(_ value.Context, args []value.Value) (value.Value, error) {
		b, err := bytesArg("bytes-length", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Int(int64(len(b))), nil
	},
	"bytes-ref": func(_ value.Context, args []value.Value) (value.Value, error) {
		b, err := bytesArg("bytes-ref", args, 0)
		if err != nil {
			return nil, err
		}
		k, err := indexArg("bytes-ref", args, 1, len(b))
		if err != nil {
			return nil, err
		}
		return value.Int(int64(b[k])), nil
	},
	"subbytes":     subbytes,
	"bytes-append": bytesAppend,
	"bytes=?":      bytesCompare("bytes=?", func(c int) bool { return c == 0 }),
	"bytes<?":      bytesCompare("bytes<?", func(c int) bool { return c < 0 }),
	"bytes->list": func(ctx value.Context, args []value.Value) (value.Value, error) {
		b, err := bytesArg("bytes->list", args, 0)
		if err != nil {
			return nil, err
		}
		items := make([]value.Value, len(b))
		for i := 0; i < len(b); i++ {
			items[i] = value.Int(int64(b[i]))
		}
		return list(ctx, items)
	},
	"list->bytes": func(ctx value.Context, args []value.Value) (value.Value, error) {
		items, err := listArg("list->bytes", args, 0)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, len(items))
		for i := range items {
			b, err := byteArg("list->bytes", items, i)
			if err != nil {
				return nil, err
			}
			buf[i] = b
		}
		return newBytes(ctx, string(buf))
	},
}

func newBytes(ctx value.Context, s string) (value.Value, error) {
	if err := ctx.Alloc(ctx.Sizes().ForBytes(len(s))); err != nil {
		return nil, err
	}
	return value.Bytes(s), nil
}

// subbytes returns the range [start, end) of a byte string; end defaults
// to its length.
func subbytes(ctx value.Context, args []value.Value) (value.Value, error) {
	b, err := bytesArg("subbytes", args, 0)
	if err != nil {
		return nil, err
	}
	start, err := indexArg("subbytes", args, 1, len(b)+1)
	if err != nil {
		return nil, err
	}
	end := len(b)
	if len(args) == 3 {
		if end, err = indexArg("subbytes", args, 2, len(b)+1); err != nil {
			return nil, err
		}
	}
	if end < start {
		return nil, halt.Type("subbytes: end %d before start %d", end, start).With("procedure", "subbytes")
	}
	return newBytes(ctx, string(b[start:end]))
}

func bytesAppend(ctx value.Context, args []value.Value) (value.Value, error) {
	var sb strings.Builder
	for i := range args {
		b, err := bytesArg("bytes-append", args, i)
		if err != nil {
			return nil, err
		}
		sb.WriteString(string(b))
	}
	return newBytes(ctx, sb.String())
}

func bytesCompare(name string, ok func(int) bool) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		strs := make([]string, len(args))
		for i := range args {
			b, err := bytesArg(name, args, i)
			if err != nil {
				return nil, err
			}
			strs[i] = string(b)
		}
		result := true
		for i := 1; i < len(strs); i++ {
			if !ok(strings.Compare(strs[i-1], strs[i])) {
				result = false
			}
		}
		return boolean(result), nil
	}
}
