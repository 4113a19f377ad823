package stdenv

import (
	"math/big"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

var numberPrimitives = map[string]value.PrimitiveFunc{
	"+": fold("+", value.Int(0), value.Add),
	"*": fold("*", value.Int(1), value.Mul),
	"-": inverseFold("-", value.Int(0), value.Sub),
	"/": inverseFold("/", value.Int(1), value.Div),

	"quotient":  integerDivision("quotient"),
	"remainder": integerDivision("remainder"),
	"modulo":    integerDivision("modulo"),

	"=":  compare("=", func(c int) bool { return c == 0 }),
	"<":  compare("<", func(c int) bool { return c < 0 }),
	">":  compare(">", func(c int) bool { return c > 0 }),
	"<=": compare("<=", func(c int) bool { return c <= 0 }),
	">=": compare(">=", func(c int) bool { return c >= 0 }),

	"zero?":     signTest("zero?", func(s int) bool { return s == 0 }),
	"positive?": signTest("positive?", func(s int) bool { return s > 0 }),
	"negative?": signTest("negative?", func(s int) bool { return s < 0 }),

	"number?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Number)
		return boolean(ok), nil
	},
	"integer?": func(_ value.Context, args []value.Value) (value.Value, error) {
		n, ok := args[0].(*value.Number)
		return boolean(ok && n.IsInteger()), nil
	},
	// Every number is finite, so every number is rational and real.
	"rational?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Number)
		return boolean(ok), nil
	},
	"real?": func(_ value.Context, args []value.Value) (value.Value, error) {
		_, ok := args[0].(*value.Number)
		return boolean(ok), nil
	},
	"exact?":   exactness("exact?", true),
	"inexact?": exactness("inexact?", false),

	"exact->inexact": unary("exact->inexact", (*value.Number).ToInexact),
	"inexact->exact": unary("inexact->exact", (*value.Number).ToExact),
	"abs": unary("abs", func(n *value.Number) (*value.Number, error) {
		if n.Sign() < 0 {
			return value.Neg(n)
		}
		return n, nil
	}),
	"numerator":   unary("numerator", numerator),
	"denominator": unary("denominator", denominator),

	"min": extremum("min", func(c int) bool { return c < 0 }),
	"max": extremum("max", func(c int) bool { return c > 0 }),

	"gcd": integerFold("gcd", big.NewInt(0), func(a, b *big.Int) *big.Int {
		return new(big.Int).GCD(nil, nil, a, b)
	}),
	"lcm": integerFold("lcm", big.NewInt(1), func(a, b *big.Int) *big.Int {
		if a.Sign() == 0 || b.Sign() == 0 {
			return new(big.Int)
		}
		g := new(big.Int).GCD(nil, nil, a, b)
		return new(big.Int).Mul(new(big.Int).Quo(a, g), b)
	}),

	"expt": func(ctx value.Context, args []value.Value) (value.Value, error) {
		base, err := numberArg("expt", args, 0)
		if err != nil {
			return nil, err
		}
		power, err := numberArg("expt", args, 1)
		if err != nil {
			return nil, err
		}
		n, err := value.Expt(base, power)
		return number(ctx, n, err)
	},

	"floor":    rounding(value.RoundFloor),
	"ceiling":  rounding(value.RoundCeiling),
	"round":    rounding(value.RoundNearest),
	"truncate": rounding(value.RoundTruncate),

	"number->bytes": func(ctx value.Context, args []value.Value) (value.Value, error) {
		n, err := numberArg("number->bytes", args, 0)
		if err != nil {
			return nil, err
		}
		text := n.String()
		if err := ctx.Alloc(ctx.Sizes().ForBytes(len(text))); err != nil {
			return nil, err
		}
		return value.Bytes(text), nil
	},
	// bytes->number returns #f for anything that is not the text of a
	// valid number.
	"bytes->number": func(ctx value.Context, args []value.Value) (value.Value, error) {
		b, err := bytesArg("bytes->number", args, 0)
		if err != nil {
			return nil, err
		}
		n, ok, perr := value.ParseNumber(string(b))
		if !ok || perr != nil {
			return value.False, nil
		}
		return number(ctx, n, nil)
	},
}

type binaryOp func(a, b *value.Number) (*value.Number, error)

func fold(name string, identity *value.Number, op binaryOp) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		acc := identity
		for _, n := range nums {
			if acc, err = op(acc, n); err != nil {
				return nil, err
			}
		}
		return number(ctx, acc, nil)
	}
}

// inverseFold applies op left to right, or to identity and the argument
// when there is only one.
func inverseFold(name string, identity *value.Number, op binaryOp) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		if len(nums) == 1 {
			n, err := op(identity, nums[0])
			return number(ctx, n, err)
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			if acc, err = op(acc, n); err != nil {
				return nil, err
			}
		}
		return number(ctx, acc, nil)
	}
}

func integerDivision(name string) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		n, err := value.IntegerDivision(name, nums[0], nums[1])
		return number(ctx, n, err)
	}
}

// compare checks every adjacent pair. All arguments are type checked even
// when an earlier pair already fails.
func compare(name string, ok func(int) bool) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		result := true
		for i := 1; i < len(nums); i++ {
			if !ok(value.Cmp(nums[i-1], nums[i])) {
				result = false
			}
		}
		return boolean(result), nil
	}
}

func signTest(name string, ok func(int) bool) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		n, err := numberArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return boolean(ok(n.Sign())), nil
	}
}

func exactness(name string, exact bool) value.PrimitiveFunc {
	return func(_ value.Context, args []value.Value) (value.Value, error) {
		n, err := numberArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return boolean(n.IsExact() == exact), nil
	}
}

func unary(name string, op func(*value.Number) (*value.Number, error)) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		n, err := numberArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		r, err := op(n)
		return number(ctx, r, err)
	}
}

func rounding(mode string) value.PrimitiveFunc {
	return unary(mode, func(n *value.Number) (*value.Number, error) {
		return value.Round(mode, n)
	})
}

// ratioPart applies part to the exact value of n, keeping n's exactness.
func ratioPart(n *value.Number, part func(*big.Rat) *big.Int) (*value.Number, error) {
	exact, err := n.ToExact()
	if err != nil {
		return nil, err
	}
	r, _ := exact.Rat()
	out, err := value.BigInt(part(r))
	if err != nil {
		return nil, err
	}
	if n.IsExact() {
		return out, nil
	}
	return out.ToInexact()
}

func numerator(n *value.Number) (*value.Number, error) {
	return ratioPart(n, func(r *big.Rat) *big.Int { return new(big.Int).Set(r.Num()) })
}

func denominator(n *value.Number) (*value.Number, error) {
	return ratioPart(n, func(r *big.Rat) *big.Int { return new(big.Int).Set(r.Denom()) })
}

// extremum returns the argument preferred by better, made inexact when any
// argument is inexact.
func extremum(name string, better func(int) bool) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		nums, err := numberArgs(name, args)
		if err != nil {
			return nil, err
		}
		best, exact := nums[0], nums[0].IsExact()
		for _, n := range nums[1:] {
			exact = exact && n.IsExact()
			if better(value.Cmp(n, best)) {
				best = n
			}
		}
		if exact {
			return best, nil
		}
		r, err := best.ToInexact()
		return number(ctx, r, err)
	}
}

// integerFold folds exact integer arguments by magnitude.
func integerFold(name string, identity *big.Int, op func(a, b *big.Int) *big.Int) value.PrimitiveFunc {
	return func(ctx value.Context, args []value.Value) (value.Value, error) {
		acc := new(big.Int).Set(identity)
		for i := range args {
			n, ok := args[i].(*value.Number)
			if !ok || n.Kind() != value.KindInteger {
				return nil, argError(name, i, "an exact integer", args[i])
			}
			x, _ := n.BigInt()
			acc = op(acc, x.Abs(x))
			if acc.BitLen() > value.MaxIntegerBits {
				return nil, halt.Type("%s: result exceeds %d bits", name, value.MaxIntegerBits)
			}
		}
		n, err := value.BigInt(acc)
		return number(ctx, n, err)
	}
}
