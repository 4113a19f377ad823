package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smarm/internal/manifest"
)

func TestManifest_Text(t *testing.T) {
	out, err := execute(t, "manifest")
	require.NoError(t, err)

	m, err := manifest.Load(manifest.DefaultVersion)
	require.NoError(t, err)

	assert.Contains(t, out, "version: smarm/env/v1\n")
	assert.Contains(t, out, "id:      "+m.ID()+"\n")
	assert.Contains(t, out, "grants:  vector-mutation\n")
	assert.Contains(t, out, "length:  1048576\n")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "vector-set!")
	assert.NotContains(t, out, "Replaces one element.")
}

func TestManifest_VerboseShowsDocs(t *testing.T) {
	out, err := execute(t, "manifest", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "vector-set!: Replaces one element.")
}

func TestManifest_List(t *testing.T) {
	out, err := execute(t, "manifest", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "smarm/env/v1\n")
}

func TestManifest_JSON(t *testing.T) {
	out, err := execute(t, "manifest", "smarm/env/v1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ID         string               `json:"id"`
			Version    string               `json:"version"`
			Grants     []string             `json:"grants"`
			Primitives []manifest.Primitive `json:"primitives"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	m, err := manifest.Load("smarm/env/v1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, m.ID(), resp.Data.ID)
	assert.Equal(t, "smarm/env/v1", resp.Data.Version)
	assert.Equal(t, []string{"vector-mutation"}, resp.Data.Grants)
	assert.Len(t, resp.Data.Primitives, len(m.Primitives))
}

func TestManifest_UnknownVersion(t *testing.T) {
	out, err := execute(t, "manifest", "smarm/env/v99")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestManifest_ValidateFile(t *testing.T) {
	path := writeFile(t, "v2.cue", "version: \"smarm/env/v2\"\nlimits: depth: -1\n")
	out, err := execute(t, "manifest", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestArityAndCostText(t *testing.T) {
	assert.Equal(t, "0+", arityText(manifest.Primitive{Min: 0, Max: -1}))
	assert.Equal(t, "2", arityText(manifest.Primitive{Min: 2, Max: 2}))
	assert.Equal(t, "1-2", arityText(manifest.Primitive{Min: 1, Max: 2}))

	assert.Equal(t, "1", costText(manifest.Cost{Base: 1}))
	assert.Equal(t, "1+2/word", costText(manifest.Cost{Base: 1, Per: 2, Unit: "words"}))
}
