// Package testutil holds helpers shared by the tests of packages that
// evaluate or record programs.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/store"
)

// Program parses src and returns its canonical program bytes. Several
// top-level forms are wrapped in one begin form.
func Program(t testing.TB, src string) []byte {
	t.Helper()
	forms, err := canonical.ParseProgram(src)
	require.NoError(t, err)
	program, err := canonical.EncodeProgram(forms)
	require.NoError(t, err)
	return program
}

// Text decodes canonical bytes and renders them in text form.
func Text(t testing.TB, data []byte) string {
	t.Helper()
	v, err := canonical.Decode(data)
	require.NoError(t, err)
	text, err := canonical.FormatText(v)
	require.NoError(t, err)
	return text
}

// OpenStore opens a ledger in a fresh temporary directory, closed when the
// test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// IDs returns n record IDs of the form prefix-01, prefix-02, ...
//
// Paired with engine.NewFixedGenerator, the same batch produces identical
// ledgers on every run.
func IDs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%02d", prefix, i+1)
	}
	return out
}
