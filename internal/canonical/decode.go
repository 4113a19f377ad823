package canonical

import (
	"encoding/binary"
	"math/big"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// Decode parses exactly one canonical binary value from data.
//
// Any byte sequence Encode could not have produced is rejected: truncation,
// trailing bytes, overlong varints, non-minimal numbers, lists whose tail is
// itself a list, and nesting beyond MaxDepth are MalformedInput halts; a tag
// outside the table is an UnsupportedType halt.
func Decode(data []byte) (value.Value, error) {
	d := &decoder{data: data}
	v, err := d.next(0)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, halt.Malformed("%d trailing bytes at offset %d", len(d.data)-d.pos, d.pos)
	}
	return v, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, halt.Malformed("truncated input at offset %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n uint64) ([]byte, error) {
	if n > uint64(len(d.data)-d.pos) {
		return nil, halt.Malformed("truncated input: need %d bytes at offset %d", n, d.pos)
	}
	out := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return out, nil
}

func (d *decoder) uvarint() (uint64, error) {
	n, size := binary.Uvarint(d.data[d.pos:])
	switch {
	case size == 0:
		return 0, halt.Malformed("truncated varint at offset %d", d.pos)
	case size < 0:
		return 0, halt.Malformed("varint overflows at offset %d", d.pos)
	case size != len(binary.AppendUvarint(nil, n)):
		return 0, halt.Malformed("overlong varint at offset %d", d.pos)
	}
	d.pos += size
	return n, nil
}

func (d *decoder) varint() (int64, error) {
	n, size := binary.Varint(d.data[d.pos:])
	switch {
	case size == 0:
		return 0, halt.Malformed("truncated varint at offset %d", d.pos)
	case size < 0:
		return 0, halt.Malformed("varint overflows at offset %d", d.pos)
	case size != len(binary.AppendVarint(nil, n)):
		return 0, halt.Malformed("overlong varint at offset %d", d.pos)
	}
	d.pos += size
	return n, nil
}

// count reads an element count, bounding it by the bytes that remain so a
// forged count cannot force a huge allocation.
func (d *decoder) count() (int, error) {
	n, err := d.uvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(len(d.data)-d.pos) {
		return 0, halt.Malformed("count %d exceeds remaining input", n)
	}
	return int(n), nil
}

// magnitude reads a minimal big-endian unsigned integer.
func (d *decoder) magnitude() (*big.Int, error) {
	n, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	raw, err := d.take(n)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == 0 {
		return nil, halt.Malformed("non-minimal integer at offset %d", d.pos-len(raw))
	}
	return new(big.Int).SetBytes(raw), nil
}

func (d *decoder) sign() (bool, error) {
	b, err := d.readByte()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, halt.Malformed("invalid sign byte 0x%02x", b)
	}
	return b == 1, nil
}

func (d *decoder) next(depth int) (value.Value, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagNull:
		return value.Nil, nil
	case TagFalse:
		return value.False, nil
	case TagTrue:
		return value.True, nil
	case TagVoid:
		return value.Unit, nil
	case TagPosInt, TagNegInt:
		return d.integer(tag == TagNegInt)
	case TagRational:
		return d.rational()
	case TagReal:
		return d.realNumber()
	case TagSymbol:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		raw, err := d.take(n)
		if err != nil {
			return nil, err
		}
		if err := CheckSymbol(string(raw)); err != nil {
			return nil, err
		}
		return value.Symbol(raw), nil
	case TagBytes:
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		raw, err := d.take(n)
		if err != nil {
			return nil, err
		}
		return value.Bytes(raw), nil
	case TagChar:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return value.Char(b), nil
	case TagList:
		return d.list(depth)
	case TagVector:
		if depth >= MaxDepth {
			return nil, halt.Malformed("nesting exceeds %d", MaxDepth)
		}
		n, err := d.count()
		if err != nil {
			return nil, err
		}
		items := make([]value.Value, n)
		for i := range items {
			if items[i], err = d.next(depth + 1); err != nil {
				return nil, err
			}
		}
		return value.NewVector(items), nil
	default:
		return nil, halt.Unsupported("unknown tag 0x%02x at offset %d", tag, d.pos-1)
	}
}

func (d *decoder) list(depth int) (value.Value, error) {
	if depth >= MaxDepth {
		return nil, halt.Malformed("nesting exceeds %d", MaxDepth)
	}
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, halt.Malformed("empty list must use the null tag")
	}
	items := make([]value.Value, n)
	for i := range items {
		if items[i], err = d.next(depth + 1); err != nil {
			return nil, err
		}
	}
	if d.pos < len(d.data) && d.data[d.pos] == TagList {
		return nil, halt.Malformed("list tail is itself a list at offset %d", d.pos)
	}
	tail, err := d.next(depth + 1)
	if err != nil {
		return nil, err
	}
	return value.ListWithTail(items, tail), nil
}

func (d *decoder) integer(neg bool) (value.Value, error) {
	mag, err := d.magnitude()
	if err != nil {
		return nil, err
	}
	if neg {
		if mag.Sign() == 0 {
			return nil, halt.Malformed("negative zero")
		}
		mag.Neg(mag)
	}
	n, err := value.BigInt(mag)
	if err != nil {
		return nil, halt.Malformed("integer out of range: %v", err)
	}
	return n, nil
}

func (d *decoder) rational() (value.Value, error) {
	neg, err := d.sign()
	if err != nil {
		return nil, err
	}
	num, err := d.magnitude()
	if err != nil {
		return nil, err
	}
	den, err := d.magnitude()
	if err != nil {
		return nil, err
	}
	if num.Sign() == 0 || den.Cmp(big.NewInt(1)) <= 0 {
		return nil, halt.Malformed("rational must have a non-zero numerator and a denominator above 1")
	}
	if new(big.Int).GCD(nil, nil, num, den).Cmp(big.NewInt(1)) != 0 {
		return nil, halt.Malformed("rational is not in lowest terms")
	}
	if neg {
		num.Neg(num)
	}
	n, err := value.Rat(new(big.Rat).SetFrac(num, den))
	if err != nil {
		return nil, halt.Malformed("rational out of range: %v", err)
	}
	return n, nil
}

func (d *decoder) realNumber() (value.Value, error) {
	neg, err := d.sign()
	if err != nil {
		return nil, err
	}
	coeff, err := d.magnitude()
	if err != nil {
		return nil, err
	}
	exp, err := d.varint()
	if err != nil {
		return nil, err
	}
	if coeff.BitLen() > 128 {
		return nil, halt.Malformed("real coefficient exceeds %d digits", value.RealPrecision)
	}
	n, err := value.RealFromParts(neg, coeff, exp)
	if err != nil {
		return nil, halt.Malformed("non-canonical real: %v", err)
	}
	return n, nil
}
