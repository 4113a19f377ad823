package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/smarm/internal/halt"
)

// Numeric tower limits. These are part of the execution contract: changing
// them changes which programs halt, so they move only with a new
// environment version.
const (
	// MaxIntegerBits bounds the magnitude of exact integers, numerators
	// and denominators.
	MaxIntegerBits = 4096

	// RealPrecision is the number of significant decimal digits kept by
	// inexact reals.
	RealPrecision = 34

	// MaxRealExponent bounds the adjusted exponent of inexact reals.
	MaxRealExponent = 6144
)

// realContext rounds every inexact operation to RealPrecision digits,
// half-even, and traps overflow, underflow, division by zero and invalid
// operations so no non-finite value is ever produced.
var realContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(RealPrecision)
	c.Rounding = apd.RoundHalfEven
	c.MaxExponent = MaxRealExponent
	c.MinExponent = -MaxRealExponent
	return c
}()

// NumberKind identifies a level of the numeric tower.
type NumberKind uint8

const (
	// KindInteger is an exact integer.
	KindInteger NumberKind = iota + 1
	// KindRational is an exact non-integer ratio.
	KindRational
	// KindReal is an inexact, finite decimal.
	KindReal
)

// Number is an immutable member of the numeric tower.
//
// Exactly one of i, r, d is set, according to kind. Rationals are always
// normalized and never integer-valued; reals are always finite and reduced
// (no trailing zeros in the coefficient), so two numbers of the same kind
// are equal iff their representations are equal.
type Number struct {
	kind NumberKind
	i    *big.Int
	r    *big.Rat
	d    *apd.Decimal
}

func (*Number) value() {}

// Int creates an exact integer.
func Int(n int64) *Number {
	return &Number{kind: KindInteger, i: big.NewInt(n)}
}

// BigInt creates an exact integer from x, which is copied.
// Returns a TypeError halt if x exceeds MaxIntegerBits.
func BigInt(x *big.Int) (*Number, error) {
	if x.BitLen() > MaxIntegerBits {
		return nil, halt.Type("integer exceeds %d bits", MaxIntegerBits)
	}
	return &Number{kind: KindInteger, i: new(big.Int).Set(x)}, nil
}

// Rat creates an exact number from x, which is copied. Integer-valued
// ratios collapse to integers.
func Rat(x *big.Rat) (*Number, error) {
	if x.IsInt() {
		return BigInt(x.Num())
	}
	if x.Num().BitLen() > MaxIntegerBits || x.Denom().BitLen() > MaxIntegerBits {
		return nil, halt.Type("rational exceeds %d bits", MaxIntegerBits)
	}
	return &Number{kind: KindRational, r: new(big.Rat).Set(x)}, nil
}

// Real creates an inexact number from d. Non-finite values are rejected.
func Real(d *apd.Decimal) (*Number, error) {
	if d.Form != apd.Finite {
		return nil, halt.Type("non-finite real")
	}
	neg, coeff, exp := decimalParts(d)
	if adjusted := exp + int64(len(coeff.String())) - 1; adjusted > MaxRealExponent || adjusted < -MaxRealExponent {
		return nil, halt.Type("real out of range")
	}
	reduced, _, err := apd.NewFromString(fmt.Sprintf("%s%sE%d", signPrefix(neg), coeff.String(), exp))
	if err != nil {
		return nil, halt.Type("real out of range: %v", err)
	}
	return &Number{kind: KindReal, d: reduced}, nil
}

func signPrefix(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

// RealFromParts creates an inexact number coeff × 10^exp, negated when neg.
func RealFromParts(neg bool, coeff *big.Int, exp int64) (*Number, error) {
	if coeff.Sign() < 0 {
		return nil, halt.Type("negative real coefficient")
	}
	if len(coeff.String()) > RealPrecision {
		return nil, halt.Type("real coefficient exceeds %d digits", RealPrecision)
	}
	d, _, err := apd.NewFromString(fmt.Sprintf("%s%sE%d", signPrefix(neg), coeff.String(), exp))
	if err != nil {
		return nil, halt.Type("invalid real: %v", err)
	}
	n, err := Real(d)
	if err != nil {
		return nil, err
	}
	// Construction must not round: the parts are the canonical identity.
	gotNeg, gotCoeff, gotExp := n.RealParts()
	if gotNeg != neg || gotCoeff.Cmp(coeff) != 0 || gotExp != exp {
		return nil, halt.Type("real is not representable in %d digits", RealPrecision)
	}
	return n, nil
}

// Kind returns the tower level of n.
func (n *Number) Kind() NumberKind {
	return n.kind
}

// IsExact reports whether n is an integer or rational.
func (n *Number) IsExact() bool {
	return n.kind != KindReal
}

// IsInteger reports whether n is integer-valued (exact or inexact).
func (n *Number) IsInteger() bool {
	switch n.kind {
	case KindInteger:
		return true
	case KindReal:
		_, _, exp := n.RealParts()
		return exp >= 0
	default:
		return false
	}
}

// Sign returns -1, 0 or +1.
func (n *Number) Sign() int {
	switch n.kind {
	case KindInteger:
		return n.i.Sign()
	case KindRational:
		return n.r.Sign()
	default:
		return n.d.Sign()
	}
}

// Int64 returns n as an int64 when n is an exact integer that fits.
func (n *Number) Int64() (int64, bool) {
	if n.kind != KindInteger || !n.i.IsInt64() {
		return 0, false
	}
	return n.i.Int64(), true
}

// BigInt returns a copy of an exact integer's value.
func (n *Number) BigInt() (*big.Int, bool) {
	if n.kind != KindInteger {
		return nil, false
	}
	return new(big.Int).Set(n.i), true
}

// Rat returns a copy of an exact number's value.
func (n *Number) Rat() (*big.Rat, bool) {
	switch n.kind {
	case KindInteger:
		return new(big.Rat).SetInt(n.i), true
	case KindRational:
		return new(big.Rat).Set(n.r), true
	default:
		return nil, false
	}
}

// RealParts decomposes an inexact real into sign, coefficient and exponent.
// The coefficient carries no trailing zeros; zero is (false, 0, 0).
func (n *Number) RealParts() (neg bool, coeff *big.Int, exp int64) {
	return decimalParts(n.d)
}

func decimalParts(d *apd.Decimal) (neg bool, coeff *big.Int, exp int64) {
	s := d.String()
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	mant := s
	if i := strings.IndexAny(s, "Ee"); i >= 0 {
		mant = s[:i]
		e, err := strconv.ParseInt(strings.TrimPrefix(s[i+1:], "+"), 10, 64)
		if err != nil {
			panic(fmt.Sprintf("value: malformed decimal %q", s))
		}
		exp = e
	}
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		exp -= int64(len(mant) - i - 1)
		mant = mant[:i] + mant[i+1:]
	}
	coeff, ok := new(big.Int).SetString(mant, 10)
	if !ok {
		panic(fmt.Sprintf("value: malformed decimal %q", s))
	}
	ten := big.NewInt(10)
	rem := new(big.Int)
	for coeff.Sign() != 0 {
		q, r := new(big.Int).QuoRem(coeff, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coeff = q
		exp++
	}
	if coeff.Sign() == 0 {
		return false, coeff, 0
	}
	return neg, coeff, exp
}

// Words returns the declared storage size of n in machine-independent words.
func (n *Number) Words() int64 {
	words := func(x *big.Int) int64 { return 1 + int64(x.BitLen())/64 }
	switch n.kind {
	case KindInteger:
		return words(n.i)
	case KindRational:
		return words(n.r.Num()) + words(n.r.Denom())
	default:
		_, coeff, _ := n.RealParts()
		return 1 + words(coeff)
	}
}

// Identical reports whether a and b are the same number of the same
// exactness. 1 and 1.0 are not identical.
func (n *Number) Identical(other *Number) bool {
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindInteger:
		return n.i.Cmp(other.i) == 0
	case KindRational:
		return n.r.Cmp(other.r) == 0
	default:
		return n.d.Cmp(other.d) == 0 && n.d.Exponent == other.d.Exponent
	}
}

// exact returns n as an exact rational. Reals convert without loss.
func (n *Number) exact() *big.Rat {
	if r, ok := n.Rat(); ok {
		return r
	}
	neg, coeff, exp := n.RealParts()
	r := new(big.Rat)
	if exp >= 0 {
		r.SetInt(new(big.Int).Mul(coeff, pow10(exp)))
	} else {
		r.SetFrac(coeff, pow10(-exp))
	}
	if neg {
		r.Neg(r)
	}
	return r
}

// inexact returns n as a decimal rounded to RealPrecision.
func (n *Number) inexact() (*apd.Decimal, error) {
	switch n.kind {
	case KindReal:
		return n.d, nil
	case KindInteger:
		return decimalFromInt(n.i)
	default:
		num, err := decimalFromInt(n.r.Num())
		if err != nil {
			return nil, err
		}
		den, err := decimalFromInt(n.r.Denom())
		if err != nil {
			return nil, err
		}
		out := new(apd.Decimal)
		if _, err := realContext.Quo(out, num, den); err != nil {
			return nil, halt.Type("inexact conversion: %v", err)
		}
		return out, nil
	}
}

func decimalFromInt(x *big.Int) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(x.String())
	if err != nil {
		return nil, halt.Type("inexact conversion: %v", err)
	}
	out := new(apd.Decimal)
	if _, err := realContext.Round(out, d); err != nil {
		return nil, halt.Type("inexact conversion: %v", err)
	}
	return out, nil
}

func pow10(e int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(e), nil)
}

// ToInexact converts n to an inexact real.
func (n *Number) ToInexact() (*Number, error) {
	d, err := n.inexact()
	if err != nil {
		return nil, err
	}
	return Real(d)
}

// ToExact converts n to an exact number.
func (n *Number) ToExact() (*Number, error) {
	return Rat(n.exact())
}

// arithOp implements one binary operation at every tower level.
type arithOp struct {
	name string
	i    func(z, x, y *big.Int) (*big.Int, error)
	r    func(z, x, y *big.Rat) (*big.Rat, error)
	d    func(z, x, y *apd.Decimal) (apd.Condition, error)
}

func level(a, b *Number) NumberKind {
	if a.kind > b.kind {
		return a.kind
	}
	return b.kind
}

func (op arithOp) apply(a, b *Number) (*Number, error) {
	switch level(a, b) {
	case KindInteger:
		z, err := op.i(new(big.Int), a.i, b.i)
		if err != nil {
			return nil, err
		}
		return BigInt(z)
	case KindRational:
		z, err := op.r(new(big.Rat), a.exact(), b.exact())
		if err != nil {
			return nil, err
		}
		return Rat(z)
	default:
		x, err := a.inexact()
		if err != nil {
			return nil, err
		}
		y, err := b.inexact()
		if err != nil {
			return nil, err
		}
		z := new(apd.Decimal)
		if _, err := op.d(z, x, y); err != nil {
			return nil, halt.Type("%s: %v", op.name, err)
		}
		return Real(z)
	}
}

var (
	addOp = arithOp{
		name: "+",
		i:    func(z, x, y *big.Int) (*big.Int, error) { return z.Add(x, y), nil },
		r:    func(z, x, y *big.Rat) (*big.Rat, error) { return z.Add(x, y), nil },
		d:    realContext.Add,
	}
	subOp = arithOp{
		name: "-",
		i:    func(z, x, y *big.Int) (*big.Int, error) { return z.Sub(x, y), nil },
		r:    func(z, x, y *big.Rat) (*big.Rat, error) { return z.Sub(x, y), nil },
		d:    realContext.Sub,
	}
	mulOp = arithOp{
		name: "*",
		i:    func(z, x, y *big.Int) (*big.Int, error) { return z.Mul(x, y), nil },
		r:    func(z, x, y *big.Rat) (*big.Rat, error) { return z.Mul(x, y), nil },
		d:    realContext.Mul,
	}
)

// Add returns a + b.
func Add(a, b *Number) (*Number, error) { return addOp.apply(a, b) }

// Sub returns a - b.
func Sub(a, b *Number) (*Number, error) { return subOp.apply(a, b) }

// Mul returns a × b.
func Mul(a, b *Number) (*Number, error) { return mulOp.apply(a, b) }

// Div returns a / b. Exact division yields a rational; division of exact
// numbers by exact zero is a TypeError.
func Div(a, b *Number) (*Number, error) {
	if level(a, b) != KindReal {
		if b.Sign() == 0 {
			return nil, halt.Type("/: division by zero")
		}
		return Rat(new(big.Rat).Quo(a.exact(), b.exact()))
	}
	x, err := a.inexact()
	if err != nil {
		return nil, err
	}
	y, err := b.inexact()
	if err != nil {
		return nil, err
	}
	z := new(apd.Decimal)
	if _, err := realContext.Quo(z, x, y); err != nil {
		return nil, halt.Type("/: %v", err)
	}
	return Real(z)
}

// Neg returns -n.
func Neg(n *Number) (*Number, error) {
	return Sub(Int(0), n)
}

// Cmp compares a and b by numeric value, across exactness. Reals are
// compared exactly, so 1/3 never equals its rounded decimal.
func Cmp(a, b *Number) int {
	if a.kind == KindInteger && b.kind == KindInteger {
		return a.i.Cmp(b.i)
	}
	return a.exact().Cmp(b.exact())
}

// IntegerDivision performs quotient, remainder or modulo on exact integers.
func IntegerDivision(name string, a, b *Number) (*Number, error) {
	if a.kind != KindInteger || b.kind != KindInteger {
		return nil, halt.Type("%s: expected exact integers", name)
	}
	if b.i.Sign() == 0 {
		return nil, halt.Type("%s: division by zero", name)
	}
	switch name {
	case "quotient":
		return BigInt(new(big.Int).Quo(a.i, b.i))
	case "remainder":
		return BigInt(new(big.Int).Rem(a.i, b.i))
	case "modulo":
		m := new(big.Int).Rem(a.i, b.i)
		if m.Sign() != 0 && m.Sign() != b.i.Sign() {
			m.Add(m, b.i)
		}
		return BigInt(m)
	default:
		return nil, fmt.Errorf("value: unknown integer division %q", name)
	}
}

// Rounding modes for Round.
const (
	RoundFloor    = "floor"
	RoundCeiling  = "ceiling"
	RoundTruncate = "truncate"
	RoundNearest  = "round"
)

// Round rounds n to an integer with the given mode, preserving exactness.
// RoundNearest rounds half to even.
func Round(mode string, n *Number) (*Number, error) {
	if n.kind == KindInteger {
		return n, nil
	}
	x := n.exact()
	num, den := x.Num(), x.Denom()
	floor := new(big.Int).Div(num, den) // Euclidean with den > 0
	var out *big.Int
	switch mode {
	case RoundFloor:
		out = floor
	case RoundCeiling:
		out = floor
		if !x.IsInt() {
			out = new(big.Int).Add(floor, big.NewInt(1))
		}
	case RoundTruncate:
		out = new(big.Int).Quo(num, den)
	case RoundNearest:
		frac := new(big.Rat).Sub(x, new(big.Rat).SetInt(floor))
		switch frac.Cmp(big.NewRat(1, 2)) {
		case -1:
			out = floor
		case 1:
			out = new(big.Int).Add(floor, big.NewInt(1))
		default:
			out = floor
			if floor.Bit(0) == 1 {
				out = new(big.Int).Add(floor, big.NewInt(1))
			}
		}
	default:
		return nil, fmt.Errorf("value: unknown rounding mode %q", mode)
	}
	exact, err := BigInt(out)
	if err != nil {
		return nil, err
	}
	if n.kind == KindReal {
		return exact.ToInexact()
	}
	return exact, nil
}

// Expt returns base raised to an exact integer power.
func Expt(base, power *Number) (*Number, error) {
	if power.kind != KindInteger {
		return nil, halt.Type("expt: exponent must be an exact integer")
	}
	if base.kind == KindReal {
		p, err := decimalFromInt(power.i)
		if err != nil {
			return nil, err
		}
		z := new(apd.Decimal)
		if _, err := realContext.Pow(z, base.d, p); err != nil {
			return nil, halt.Type("expt: %v", err)
		}
		return Real(z)
	}
	if power.i.Sign() < 0 && base.Sign() == 0 {
		return nil, halt.Type("expt: division by zero")
	}
	e := new(big.Int).Abs(power.i)
	if base.Sign() != 0 && base.exact().Cmp(big.NewRat(1, 1)) != 0 && base.exact().Cmp(big.NewRat(-1, 1)) != 0 {
		// |base| ≥ 2 or a fraction with a numerator or denominator of at
		// least 2, so the result needs at least e bits.
		if !e.IsInt64() || e.Int64() > MaxIntegerBits {
			return nil, halt.Type("expt: result exceeds %d bits", MaxIntegerBits)
		}
		x := base.exact()
		bits := int64(x.Num().BitLen()-1) * e.Int64()
		if dbits := int64(x.Denom().BitLen()-1) * e.Int64(); dbits > bits {
			bits = dbits
		}
		if bits > MaxIntegerBits {
			return nil, halt.Type("expt: result exceeds %d bits", MaxIntegerBits)
		}
	}
	x := base.exact()
	num := new(big.Int).Exp(x.Num(), e, nil)
	den := new(big.Int).Exp(x.Denom(), e, nil)
	if power.i.Sign() < 0 {
		num, den = den, num
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	return Rat(new(big.Rat).SetFrac(num, den))
}

// String returns the canonical text form of n.
func (n *Number) String() string {
	switch n.kind {
	case KindInteger:
		return n.i.String()
	case KindRational:
		return n.r.Num().String() + "/" + n.r.Denom().String()
	default:
		return formatReal(n.RealParts())
	}
}

// sciThreshold is the exponent magnitude beyond which reals print in
// scientific form.
const sciThreshold = 20

func formatReal(neg bool, coeff *big.Int, exp int64) string {
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	digits := coeff.String()
	adjusted := exp + int64(len(digits)) - 1
	switch {
	case exp >= 0 && exp <= sciThreshold:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", int(exp)))
		sb.WriteString(".0")
	case exp < 0 && adjusted >= -sciThreshold:
		point := int64(len(digits)) + exp
		if point > 0 {
			sb.WriteString(digits[:point])
			sb.WriteByte('.')
			sb.WriteString(digits[point:])
		} else {
			sb.WriteString("0.")
			sb.WriteString(strings.Repeat("0", int(-point)))
			sb.WriteString(digits)
		}
	default:
		sb.WriteString(digits[:1])
		sb.WriteByte('.')
		if len(digits) > 1 {
			sb.WriteString(digits[1:])
		} else {
			sb.WriteByte('0')
		}
		fmt.Fprintf(&sb, "e%+d", adjusted)
	}
	return sb.String()
}

// ParseNumber parses the canonical text of a number. ok is false when s
// does not have numeric syntax at all (it is then a symbol); err is set
// when s looks numeric but denotes no valid number.
func ParseNumber(s string) (n *Number, ok bool, err error) {
	switch {
	case isIntegerSyntax(s):
		x, good := new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
		if !good {
			return nil, true, halt.Malformed("invalid integer %q", s)
		}
		n, err := BigInt(x)
		return n, true, err
	case isRationalSyntax(s):
		i := strings.IndexByte(s, '/')
		num, _ := new(big.Int).SetString(strings.TrimPrefix(s[:i], "+"), 10)
		den, _ := new(big.Int).SetString(s[i+1:], 10)
		if den.Sign() == 0 {
			return nil, true, halt.Malformed("zero denominator in %q", s)
		}
		n, err := Rat(new(big.Rat).SetFrac(num, den))
		return n, true, err
	case isRealSyntax(s):
		d, _, perr := apd.NewFromString(s)
		if perr != nil {
			return nil, true, halt.Malformed("invalid real %q", s)
		}
		n, err := Real(d)
		if err != nil {
			return nil, true, err
		}
		// Reading rounds to RealPrecision like any other inexact operation.
		rounded := new(apd.Decimal)
		if _, err := realContext.Round(rounded, n.d); err != nil {
			return nil, true, halt.Type("real out of range: %v", err)
		}
		n, err = Real(rounded)
		return n, true, err
	default:
		return nil, false, nil
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimSign(s string) string {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return s[1:]
	}
	return s
}

func isIntegerSyntax(s string) bool {
	return isDigits(trimSign(s))
}

func isRationalSyntax(s string) bool {
	i := strings.IndexByte(s, '/')
	return i > 0 && isDigits(trimSign(s[:i])) && isDigits(s[i+1:])
}

// isRealSyntax accepts [sign] digits "." digits [e [sign] digits], where
// one side of the point may be empty but not both.
func isRealSyntax(s string) bool {
	s = trimSign(s)
	mant := s
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant = s[:i]
		if !isDigits(trimSign(s[i+1:])) {
			return false
		}
	}
	i := strings.IndexByte(mant, '.')
	if i < 0 {
		return false
	}
	whole, frac := mant[:i], mant[i+1:]
	if whole == "" && frac == "" {
		return false
	}
	return (whole == "" || isDigits(whole)) && (frac == "" || isDigits(frac))
}
