package stdenv

import (
	"fmt"
	"math"

	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/value"
)

// measure computes the size of a call's arguments in one cost unit.
type measure func(args []value.Value) int64

var measures = map[string]measure{
	manifest.UnitNone:     func([]value.Value) int64 { return 0 },
	manifest.UnitArgs:     func(args []value.Value) int64 { return int64(len(args)) },
	manifest.UnitElements: elements,
	manifest.UnitBytes:    byteLength,
	manifest.UnitWords:    words,
	manifest.UnitCount:    count,
}

// CostFunc turns a declared cost into a step cost function. The result
// saturates at math.MaxInt64 instead of overflowing.
func CostFunc(c manifest.Cost) (value.CostFunc, error) {
	measure, ok := measures[c.Unit]
	if !ok {
		return nil, fmt.Errorf("unknown cost unit %q", c.Unit)
	}
	base, per := c.Base, c.Per
	return func(args []value.Value) int64 {
		if per == 0 {
			return base
		}
		n := measure(args)
		if n > (math.MaxInt64-base)/per {
			return math.MaxInt64
		}
		return base + per*n
	}, nil
}

// elements sums the lengths of list and vector arguments. Improper lists
// count their pairs.
func elements(args []value.Value) int64 {
	var n int64
	for _, a := range args {
		switch x := a.(type) {
		case *value.Pair:
			for v := value.Value(x); ; {
				p, ok := v.(*value.Pair)
				if !ok {
					break
				}
				n++
				v = p.Cdr()
			}
		case *value.Vector:
			n += int64(x.Len())
		}
	}
	return n
}

// byteLength sums the lengths of byte string and symbol arguments.
func byteLength(args []value.Value) int64 {
	var n int64
	for _, a := range args {
		switch x := a.(type) {
		case value.Bytes:
			n += int64(len(x))
		case value.Symbol:
			n += int64(len(x))
		}
	}
	return n
}

// words sums the storage words of numeric arguments.
func words(args []value.Value) int64 {
	var n int64
	for _, a := range args {
		if x, ok := a.(*value.Number); ok {
			n += x.Words()
		}
	}
	return n
}

// count is the value of the first exact integer argument, clamped to
// [0, math.MaxInt64].
func count(args []value.Value) int64 {
	for _, a := range args {
		x, ok := a.(*value.Number)
		if !ok || x.Kind() != value.KindInteger {
			continue
		}
		if x.Sign() <= 0 {
			return 0
		}
		if v, ok := x.Int64(); ok {
			return v
		}
		return math.MaxInt64
	}
	return 0
}
