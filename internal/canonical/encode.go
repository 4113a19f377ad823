package canonical

import (
	"encoding/binary"
	"math/big"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// Encode produces the canonical binary encoding of v.
//
// Returns an UnsupportedType halt if v contains a cell, procedure or
// sealed object, or nests deeper than MaxDepth.
//
// Shared substructure is written out once per reference, so a value a
// program built by reusing pairs can encode to exponentially many bytes.
// Such values go through EncodeMetered.
func Encode(v value.Value) ([]byte, error) {
	return EncodeMetered(v, nil)
}

// EncodeMetered is Encode with charge called with the number of bytes
// each node adds to the output, after the node's own bytes and before its
// children. An error from charge aborts encoding and is returned.
func EncodeMetered(v value.Value, charge func(n int64) error) ([]byte, error) {
	e := encoder{charge: charge}
	if err := e.value(v, 0); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// EncodeProgram encodes a sequence of top-level forms as a program. A
// single form is encoded as itself; several are wrapped in (begin ...).
func EncodeProgram(forms []value.Value) ([]byte, error) {
	if len(forms) == 1 {
		return Encode(forms[0])
	}
	return Encode(value.Cons(value.Symbol("begin"), value.List(forms...)))
}

func appendUvarint(buf []byte, n int) []byte {
	return binary.AppendUvarint(buf, uint64(n))
}

func appendMagnitude(buf []byte, x *big.Int) []byte {
	mag := new(big.Int).Abs(x).Bytes()
	buf = appendUvarint(buf, len(mag))
	return append(buf, mag...)
}

type encoder struct {
	buf    []byte
	mark   int
	charge func(n int64) error
}

// flush charges the bytes written since the previous flush.
func (e *encoder) flush() error {
	n := len(e.buf) - e.mark
	e.mark = len(e.buf)
	if e.charge == nil {
		return nil
	}
	return e.charge(int64(n))
}

func (e *encoder) value(v value.Value, depth int) error {
	switch x := v.(type) {
	case value.Null:
		e.buf = append(e.buf, TagNull)
	case value.Bool:
		if x {
			e.buf = append(e.buf, TagTrue)
		} else {
			e.buf = append(e.buf, TagFalse)
		}
	case value.Void:
		e.buf = append(e.buf, TagVoid)
	case *value.Number:
		e.buf = appendNumber(e.buf, x)
	case value.Symbol:
		if err := CheckSymbol(string(x)); err != nil {
			return halt.Unsupported("unencodable symbol: %v", err)
		}
		e.buf = append(e.buf, TagSymbol)
		e.buf = appendUvarint(e.buf, len(x))
		e.buf = append(e.buf, x...)
	case value.Bytes:
		e.buf = append(e.buf, TagBytes)
		e.buf = appendUvarint(e.buf, len(x))
		e.buf = append(e.buf, x...)
	case value.Char:
		e.buf = append(e.buf, TagChar, byte(x))
	case *value.Pair:
		if depth >= MaxDepth {
			return halt.Unsupported("nesting exceeds %d", MaxDepth)
		}
		items, tail := value.SplitList(x)
		e.buf = append(e.buf, TagList)
		e.buf = appendUvarint(e.buf, len(items))
		if err := e.flush(); err != nil {
			return err
		}
		for _, item := range items {
			if err := e.value(item, depth+1); err != nil {
				return err
			}
		}
		return e.value(tail, depth+1)
	case *value.Vector:
		if depth >= MaxDepth {
			return halt.Unsupported("nesting exceeds %d", MaxDepth)
		}
		e.buf = append(e.buf, TagVector)
		e.buf = appendUvarint(e.buf, x.Len())
		if err := e.flush(); err != nil {
			return err
		}
		for i := 0; i < x.Len(); i++ {
			if err := e.value(x.Ref(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return halt.Unsupported("%s has no canonical form", value.TypeName(v))
	}
	return e.flush()
}

func appendNumber(buf []byte, n *value.Number) []byte {
	switch n.Kind() {
	case value.KindInteger:
		i, _ := n.BigInt()
		if i.Sign() < 0 {
			buf = append(buf, TagNegInt)
		} else {
			buf = append(buf, TagPosInt)
		}
		return appendMagnitude(buf, i)
	case value.KindRational:
		r, _ := n.Rat()
		buf = append(buf, TagRational, signByte(r.Sign() < 0))
		buf = appendMagnitude(buf, r.Num())
		return appendMagnitude(buf, r.Denom())
	default:
		neg, coeff, exp := n.RealParts()
		buf = append(buf, TagReal, signByte(neg))
		buf = appendMagnitude(buf, coeff)
		return binary.AppendVarint(buf, exp)
	}
}

func signByte(neg bool) byte {
	if neg {
		return 1
	}
	return 0
}
