package canonical

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// encodingCases are written in canonical text, so each must print back
// unchanged.
var encodingCases = []string{
	"()",
	"#t",
	"#f",
	"#!void",
	"0",
	"255",
	"-256",
	"18446744073709551616",
	"3/2",
	"-1/2",
	"1.5",
	"0.0",
	"-250.0",
	"1.0e-25",
	"abc",
	"#:key",
	"caf\u00e9",
	`"hi\n"`,
	`"\x00\xff"`,
	`#\a`,
	`#\space`,
	"(1 2 3)",
	"(a . b)",
	"(1 . #(2))",
	"#(1 #t)",
	"#()",
	"'x",
	"(() ())",
}

func TestEncodingsGolden(t *testing.T) {
	var sb strings.Builder
	for _, text := range encodingCases {
		v, err := ParseText(text)
		require.NoError(t, err, text)

		data, err := Encode(v)
		require.NoError(t, err, text)

		printed, err := FormatText(v)
		require.NoError(t, err, text)
		assert.Equal(t, text, printed, "text form must be canonical")

		decoded, err := Decode(data)
		require.NoError(t, err, text)
		assert.True(t, value.Equal(v, decoded), "round trip %s", text)

		sb.WriteString(text + "\t" + hex.EncodeToString(data) + "\n")
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "encodings", []byte(sb.String()))
}

func TestCanonicalEquality(t *testing.T) {
	tests := []struct {
		a, b  string
		equal bool
	}{
		{"(1 2)", "(1 2)", true},
		{"6/4", "3/2", true},
		{"1.50", "1.5", true},
		{"1", "1.0", false},
		{"(a . (b))", "(a b)", true},
		{"#(1)", "(1)", false},
		{`"a"`, "a", false},
	}
	for _, tt := range tests {
		a, err := ParseText(tt.a)
		require.NoError(t, err)
		b, err := ParseText(tt.b)
		require.NoError(t, err)

		ea, err := Encode(a)
		require.NoError(t, err)
		eb, err := Encode(b)
		require.NoError(t, err)

		assert.Equal(t, tt.equal, string(ea) == string(eb), "%s vs %s", tt.a, tt.b)
		assert.Equal(t, tt.equal, value.Equal(a, b), "%s vs %s", tt.a, tt.b)
	}
}

func TestDecodeRejects(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("3101", n) + "3100"
	}
	tests := []struct {
		name string
		hex  string
		code halt.Code
	}{
		{"empty input", "", halt.CodeMalformedInput},
		{"unknown tag", "05", halt.CodeUnsupportedType},
		{"trailing bytes", "0101", halt.CodeMalformedInput},
		{"non-minimal integer", "100100", halt.CodeMalformedInput},
		{"negative zero", "1100", halt.CodeMalformedInput},
		{"overlong varint", "108000", halt.CodeMalformedInput},
		{"empty list tag", "3000", halt.CodeMalformedInput},
		{"list tail is a list", "30011001013001100101" + "01", halt.CodeMalformedInput},
		{"truncated list", "300210010101", halt.CodeMalformedInput},
		{"rational not reduced", "120001020104", halt.CodeMalformedInput},
		{"rational denominator one", "120001040101", halt.CodeMalformedInput},
		{"rational bad sign", "120201010102", halt.CodeMalformedInput},
		{"real trailing zero", "1300010a00", halt.CodeMalformedInput},
		{"real negative zero", "13010000", halt.CodeMalformedInput},
		{"numeric symbol", "2003313233", halt.CodeMalformedInput},
		{"truncated symbol", "2002c3", halt.CodeMalformedInput},
		{"non NFC symbol", "200365cc81", halt.CodeMalformedInput},
		{"forged count", "31ffffffff0f", halt.CodeMalformedInput},
		{"too deep", nested(1025), halt.CodeMalformedInput},
		{"unknown tag inside list", "300140" + "01", halt.CodeUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := hex.DecodeString(tt.hex)
			require.NoError(t, err)

			_, err = Decode(data)
			require.Error(t, err)
			assert.Equal(t, tt.code, halt.CodeOf(err), err.Error())
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	data, err := hex.DecodeString(strings.Repeat("3101", MaxDepth-1) + "3100")
	require.NoError(t, err)

	v, err := Decode(data)
	require.NoError(t, err)

	again, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEncodeUnsupported(t *testing.T) {
	cells := value.NewCellTable()
	seal, unseal := value.NewSealerPair()
	prim := value.NewPrimitive("car", value.Arity{Min: 1, Max: 1}, nil, nil)

	for _, v := range []value.Value{
		cells.New(value.Nil),
		seal,
		unseal,
		seal.Seal(value.Int(1)),
		prim,
		value.List(value.Int(1), prim),
		value.Symbol("12"),
	} {
		_, err := Encode(v)
		assert.True(t, halt.Is(err, halt.CodeUnsupportedType), "%s", value.TypeName(v))

		_, err = FormatText(v)
		assert.True(t, halt.Is(err, halt.CodeUnsupportedType), "%s", value.TypeName(v))
	}
}

func TestEncodeCyclicVector(t *testing.T) {
	v := value.NewVector([]value.Value{nil})
	v.Set(0, v)

	_, err := Encode(v)
	assert.True(t, halt.Is(err, halt.CodeUnsupportedType))
}

// doubled returns a value of depth n in which every pair holds the same
// child twice, so its written form has 2^n leaves.
func doubled(n int) value.Value {
	var x value.Value = value.Int(0)
	for i := 0; i < n; i++ {
		x = value.Cons(x, x)
	}
	return x
}

func TestEncodeMetered_ChargesEveryByte(t *testing.T) {
	var charged int64
	data, err := EncodeMetered(doubled(3), func(n int64) error {
		charged += n
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), charged)

	tree, err := ParseText("(((0 . 0) 0 . 0) (0 . 0) 0 . 0)")
	require.NoError(t, err)
	want, err := Encode(tree)
	require.NoError(t, err)
	assert.Equal(t, want, data, "shared structure is written once per reference")
}

func TestEncodeMetered_SharedStructureStaysBounded(t *testing.T) {
	const limit = 10_000
	var charged, calls int64
	_, err := EncodeMetered(doubled(60), func(n int64) error {
		calls++
		if n > limit-charged {
			charged = limit
			return halt.Exhausted("memory", charged, limit)
		}
		charged += n
		return nil
	})
	require.Error(t, err)
	assert.True(t, halt.Is(err, halt.CodeBudgetExhausted))
	assert.Equal(t, int64(limit), charged)
	assert.LessOrEqual(t, calls, int64(limit), "every node writes at least one byte")
}

func TestParseProgram(t *testing.T) {
	src := `
; a tiny module
(define (double x) (* x 2)) ; trailing comment
(double 21)
`
	forms, err := ParseProgram(src)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "(define (double x) (* x 2))", MustFormatText(forms[0]))

	single, err := EncodeProgram(forms[1:])
	require.NoError(t, err)
	direct, err := Encode(forms[1])
	require.NoError(t, err)
	assert.Equal(t, direct, single)

	wrapped, err := EncodeProgram(forms)
	require.NoError(t, err)
	decoded, err := Decode(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "(begin (define (double x) (* x 2)) (double 21))", MustFormatText(decoded))
}

func TestParseTextErrors(t *testing.T) {
	for _, src := range []string{
		"(1 2",
		")",
		`#\bogus`,
		`"abc`,
		`"\q"`,
		"(. 1)",
		"(1 . 2 3)",
		"#x",
		"1/0",
		"a b",
		"",
		"cafe\u0301",
	} {
		_, err := ParseText(src)
		assert.True(t, halt.Is(err, halt.CodeMalformedInput), "%q", src)
	}
}

func TestParseTextChars(t *testing.T) {
	tests := map[string]value.Char{
		`#\(`:       '(',
		`#\x`:       'x',
		`#\x41`:     'A',
		`#\newline`: '\n',
		`#\x00`:     0,
	}
	for src, want := range tests {
		v, err := ParseText(src)
		require.NoError(t, err, src)
		assert.Equal(t, want, v, src)
	}
	assert.Equal(t, `#\x00`, MustFormatText(value.Char(0)))
	assert.Equal(t, `#\newline`, MustFormatText(value.Char('\n')))
}

func TestIDs(t *testing.T) {
	assert.Equal(t,
		"d75cca6a72f231db706407b23842773ab2e05c5e9ed88f30c479772f301c0db3",
		ProgramID([]byte{TagNull}))
	assert.Equal(t,
		"9e06907b43ea257e144777bc6f300cb9888b1f82d57ced884d1418fa1078d78e",
		ResultID([]byte{TagPosInt, 0x01, 0x03}))
	assert.NotEqual(t, ProgramID([]byte{TagNull}), ResultID([]byte{TagNull}),
		"domains must separate identical bytes")

	id, err := ValueID(DomainResult, value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, ResultID([]byte{TagPosInt, 0x01, 0x03}), id)

	_, err = ValueID(DomainResult, value.NewCellTable().New(value.Nil))
	assert.Error(t, err)
}
