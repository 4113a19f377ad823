package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smarm/internal/halt"
)

func num(t *testing.T, s string) *Number {
	t.Helper()
	n, ok, err := ParseNumber(s)
	require.True(t, ok, "not numeric syntax: %s", s)
	require.NoError(t, err)
	return n
}

func TestParseNumberCanonicalText(t *testing.T) {
	tests := []struct {
		in   string
		want string
		kind NumberKind
	}{
		{"42", "42", KindInteger},
		{"-0", "0", KindInteger},
		{"+7", "7", KindInteger},
		{"6/4", "3/2", KindRational},
		{"-6/4", "-3/2", KindRational},
		{"4/2", "2", KindInteger},
		{"1.50", "1.5", KindReal},
		{"1.", "1.0", KindReal},
		{"-0.0", "0.0", KindReal},
		{"100.0", "100.0", KindReal},
		{"0.001", "0.001", KindReal},
		{"1.5e30", "1.5e+30", KindReal},
		{"1.0e-25", "1.0e-25", KindReal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := num(t, tt.in)
			assert.Equal(t, tt.want, n.String())
			assert.Equal(t, tt.kind, n.Kind())
		})
	}
}

func TestParseNumberNotNumeric(t *testing.T) {
	for _, s := range []string{"abc", "-", "+", "1e5", "inf", "nan", "1/2/3", "1/-2", "..", "a.b"} {
		_, ok, err := ParseNumber(s)
		assert.False(t, ok, s)
		assert.NoError(t, err, s)
	}
}

func TestParseNumberZeroDenominator(t *testing.T) {
	_, ok, err := ParseNumber("1/0")
	assert.True(t, ok)
	assert.True(t, halt.Is(err, halt.CodeMalformedInput))
}

func TestParseNumberIntegerBound(t *testing.T) {
	_, _, err := ParseNumber("1" + strings.Repeat("0", 1300))
	assert.True(t, halt.Is(err, halt.CodeTypeError))
}

func TestArithmeticContagion(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b *Number) (*Number, error)
		a, b string
		want string
	}{
		{"int add", Add, "1", "2", "3"},
		{"rat add", Add, "1/3", "1/6", "1/2"},
		{"rat collapses", Add, "1/2", "1/2", "1"},
		{"int real", Add, "1", "0.5", "1.5"},
		{"decimal add", Add, "0.1", "0.2", "0.3"},
		{"sub", Sub, "1", "3", "-2"},
		{"mul rat", Mul, "2/3", "3", "2"},
		{"exact div", Div, "1", "3", "1/3"},
		{"inexact div", Div, "1.0", "3", "0." + strings.Repeat("3", RealPrecision)},
		{"div collapses", Div, "6", "3", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(num(t, tt.a), num(t, tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(Int(1), Int(0))
	assert.True(t, halt.Is(err, halt.CodeTypeError))

	_, err = Div(num(t, "1.0"), Int(0))
	assert.True(t, halt.Is(err, halt.CodeTypeError))
}

func TestCmpAcrossExactness(t *testing.T) {
	third := num(t, "1/3")
	rounded, err := third.ToInexact()
	require.NoError(t, err)

	assert.Equal(t, 1, Cmp(third, rounded))
	assert.Equal(t, 0, Cmp(Int(1), num(t, "1.0")))
	assert.Equal(t, -1, Cmp(num(t, "-1/2"), Int(0)))
	assert.False(t, Int(1).Identical(num(t, "1.0")))
	assert.True(t, num(t, "2.50").Identical(num(t, "2.5")))
}

func TestIntegerDivision(t *testing.T) {
	tests := []struct {
		op   string
		a, b int64
		want string
	}{
		{"quotient", -7, 2, "-3"},
		{"remainder", -7, 2, "-1"},
		{"modulo", -7, 2, "1"},
		{"modulo", 7, -2, "-1"},
		{"modulo", 6, 3, "0"},
	}
	for _, tt := range tests {
		got, err := IntegerDivision(tt.op, Int(tt.a), Int(tt.b))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "%s %d %d", tt.op, tt.a, tt.b)
	}

	_, err := IntegerDivision("quotient", Int(1), Int(0))
	assert.True(t, halt.Is(err, halt.CodeTypeError))
	_, err = IntegerDivision("modulo", num(t, "1.5"), Int(1))
	assert.True(t, halt.Is(err, halt.CodeTypeError))
}

func TestRound(t *testing.T) {
	tests := []struct {
		mode string
		in   string
		want string
	}{
		{RoundNearest, "5/2", "2"},
		{RoundNearest, "7/2", "4"},
		{RoundNearest, "-5/2", "-2"},
		{RoundNearest, "2.5", "2.0"},
		{RoundNearest, "2.6", "3.0"},
		{RoundFloor, "-1/2", "-1"},
		{RoundCeiling, "-1/2", "0"},
		{RoundCeiling, "1.2", "2.0"},
		{RoundTruncate, "-7/2", "-3"},
		{RoundFloor, "9", "9"},
	}
	for _, tt := range tests {
		got, err := Round(tt.mode, num(t, tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "%s %s", tt.mode, tt.in)
	}
}

func TestExpt(t *testing.T) {
	got, err := Expt(Int(2), Int(10))
	require.NoError(t, err)
	assert.Equal(t, "1024", got.String())

	got, err = Expt(Int(2), Int(-2))
	require.NoError(t, err)
	assert.Equal(t, "1/4", got.String())

	got, err = Expt(num(t, "-2/3"), Int(3))
	require.NoError(t, err)
	assert.Equal(t, "-8/27", got.String())

	got, err = Expt(Int(2), Int(4095))
	require.NoError(t, err)
	assert.Equal(t, KindInteger, got.Kind())

	_, err = Expt(Int(2), Int(4096))
	assert.True(t, halt.Is(err, halt.CodeTypeError))

	_, err = Expt(Int(0), Int(-1))
	assert.True(t, halt.Is(err, halt.CodeTypeError))
}

func TestExactnessConversion(t *testing.T) {
	exact, err := num(t, "0.5").ToExact()
	require.NoError(t, err)
	assert.Equal(t, "1/2", exact.String())

	exact, err = num(t, "2.0").ToExact()
	require.NoError(t, err)
	assert.Equal(t, KindInteger, exact.Kind())

	inexact, err := Int(3).ToInexact()
	require.NoError(t, err)
	assert.Equal(t, "3.0", inexact.String())
}

func TestRealParts(t *testing.T) {
	neg, coeff, exp := num(t, "-12.500").RealParts()
	assert.True(t, neg)
	assert.Equal(t, "125", coeff.String())
	assert.Equal(t, int64(-1), exp)

	neg, coeff, exp = num(t, "0.0").RealParts()
	assert.False(t, neg)
	assert.Equal(t, "0", coeff.String())
	assert.Equal(t, int64(0), exp)

	n, err := RealFromParts(false, coeff.SetInt64(15), 29)
	require.NoError(t, err)
	assert.Equal(t, "1.5e+30", n.String())

	_, err = RealFromParts(false, coeff.SetInt64(150), 0)
	assert.Error(t, err, "trailing zeros are not canonical")
}
