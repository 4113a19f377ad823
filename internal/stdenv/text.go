package stdenv

import (
	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

var textPrimitives = map[string]value.PrimitiveFunc{
	"symbol?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(value.Symbol)
		return boolean(ok), nil
	},
	"symbol->bytes": func(ctx value.Context, args []value.Value) (value.Value, error) {
		s, err := symbolArg("symbol->bytes", args, 0)
		if err != nil {
			return nil, err
		}
		if err := ctx.Alloc(ctx.Sizes().ForBytes(len(s))); err != nil {
			return nil, err
		}
		return value.Bytes(s), nil
	},
	// bytes->symbol accepts exactly the spellings the codec accepts.
	"bytes->symbol": func(_ value.Context, args []value.Value) (value.Value, error) {
		b, err := bytesArg("bytes->symbol", args, 0)
		if err != nil {
			return nil, err
		}
		if err := canonical.CheckSymbol(string(b)); err != nil {
			return nil, halt.Type("bytes->symbol: %s", halt.MessageOf(err)).With("procedure", "bytes->symbol")
		}
		return value.Symbol(b), nil
	},

	"char?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(value.Char)
		return boolean(ok), nil
	},
	"char->integer": func(_ value.Context, args []value.Value) (value.Value, error) {
		c, err := charArg("char->integer", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Int(int64(c)), nil
	},
	"integer->char": func(_ value.Context, args []value.Value) (value.Value, error) {
		b, err := byteArg("integer->char", args, 0)
		if err != nil {
			return nil, err
		}
		return value.Char(b), nil
	},
	"char=?": charCompare("char=?", func(a, b value.Char) bool { return a == b }),
	"char<?": charCompare("char<?", func(a, b value.Char) bool { return a < b }),
}

func charCompare(name string, ok func(a, b value.Char) bool) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		chars := make([]value.Char, len(args))
		for i := range args {
			c, err := charArg(name, args, i)
			if err != nil {
				return nil, err
			}
			chars[i] = c
		}
		result := true
		for i := 1; i < len(chars); i++ {
			if !ok(chars[i-1], chars[i]) {
				result = false
			}
		}
		return boolean(result), nil
	}
}
