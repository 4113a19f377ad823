package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v1Source(t *testing.T) string {
	t.Helper()
	src, err := files.ReadFile("manifests/v1.cue")
	require.NoError(t, err)
	return string(src)
}

func TestLoadV1(t *testing.T) {
	m, err := Load(DefaultVersion)
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, m.Version)
	assert.Equal(t, 1000, m.Limits.Depth)
	assert.Equal(t, 1<<20, m.Limits.Length)
	assert.Len(t, m.ID(), 64)
	assert.Equal(t, []string{"vector-mutation"}, m.Grants())
	assert.True(t, m.HasGrant("vector-mutation"))
	assert.False(t, m.HasGrant("io"))
	assert.Equal(t, int64(1), m.FormCost("atom"))
	assert.Equal(t, int64(2), m.Sizes.Values().Pair)

	plus, ok := m.Primitive("+")
	require.True(t, ok)
	assert.Equal(t, Cost{Base: 1, Per: 1, Unit: UnitWords}, plus.Cost)
	assert.Equal(t, -1, plus.Max)

	zero, ok := m.Primitive("zero?")
	require.True(t, ok)
	assert.Equal(t, Cost{Base: 1, Per: 0, Unit: UnitNone}, zero.Cost, "schema defaults apply")

	set, ok := m.Primitive("vector-set!")
	require.True(t, ok)
	assert.Equal(t, "vector-mutation", set.Grant)
}

func TestLoadIsCached(t *testing.T) {
	a, err := Load(DefaultVersion)
	require.NoError(t, err)
	b, err := Load(DefaultVersion)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestLoadUnknownVersion(t *testing.T) {
	for _, v := range []string{"smarm/env/v999", "v1", "smarm/env/", "smarm/env/../v1", "smarm/env/schema"} {
		_, err := Load(v)
		require.Error(t, err, v)

		var le *LoadError
		require.True(t, errors.As(err, &le), v)
		if v != "smarm/env/schema" {
			assert.Equal(t, ErrCodeUnknownVersion, le.Code, v)
		}
	}
}

func TestVersions(t *testing.T) {
	assert.Contains(t, Versions(), DefaultVersion)
	assert.NotContains(t, Versions(), "smarm/env/schema")
}

func TestIDIgnoresDocs(t *testing.T) {
	src := v1Source(t)
	base, err := Parse("v1.cue", []byte(src))
	require.NoError(t, err)

	redocumented := strings.Replace(src, `"Sum of the arguments; 0 with none."`, `"Adds numbers."`, 1)
	require.NotEqual(t, src, redocumented)
	m, err := Parse("v1.cue", []byte(redocumented))
	require.NoError(t, err)
	assert.Equal(t, base.ID(), m.ID())

	recosted := strings.Replace(src, `{name: "+", min: 0, max: -1, cost: {base: 1,`, `{name: "+", min: 0, max: -1, cost: {base: 2,`, 1)
	require.NotEqual(t, src, recosted)
	m, err = Parse("v1.cue", []byte(recosted))
	require.NoError(t, err)
	assert.NotEqual(t, base.ID(), m.ID())
}

func TestParseRejects(t *testing.T) {
	src := v1Source(t)
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"not cue", "version: {", ErrCodeCUE},
		{"bad version", strings.Replace(src, `version: "smarm/env/v1"`, `version: "v1"`, 1), ErrCodeCUE},
		{"unknown field", src + "\nextra: 1\n", ErrCodeCUE},
		{"missing size", strings.Replace(src, "\tword:        1\n", "", 1), ErrCodeCUE},
		{"bad unit", strings.Replace(src, `unit: "words"`, `unit: "bits"`, 1), ErrCodeCUE},
		{"negative cost", strings.Replace(src, `cost: {base: 1}`, `cost: {base: -1}`, 1), ErrCodeCUE},
		{"duplicate primitive", strings.Replace(src, `{name: "-",`, `{name: "+",`, 1), ErrCodeInvalid},
		{"max below min", strings.Replace(src, `{name: "cons", min: 2, max: 2,`, `{name: "cons", min: 2, max: 1,`, 1), ErrCodeInvalid},
		{"numeric name", strings.Replace(src, `{name: "cons",`, `{name: "12",`, 1), ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEqual(t, src, tt.src)
			_, err := Parse("test.cue", []byte(tt.src))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), err.Error())
			assert.Equal(t, tt.code, le.Code, err.Error())
		})
	}
}

func TestLoadErrorFormat(t *testing.T) {
	err := &LoadError{Code: ErrCodeInvalid, Field: "primitives", Message: "duplicate primitive \"+\""}
	assert.Equal(t, `E203: primitives: duplicate primitive "+"`, err.Error())
}
