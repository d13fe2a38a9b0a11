package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/testutil"
)

// execute runs the root command with args against an isolated config that
// keeps console logging quiet.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "prism.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\n"), 0o644))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func forestScene(t *testing.T) string {
	t.Helper()
	return testutil.WriteScene(t, t.TempDir(), "forest.cue", testutil.ForestCUE)
}

func decode(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

const brokenCUE = `package scene

material: [{id: "bark"}]
sphere_geometry: [{id: "trunk", radius: 1}]
master_group: [{members: [{geometry_id: "trunk"}, {sub_group_id: "bush", instance_id: "b"}]}]
material_instance: [{material_id: "bark", geometries: [{geometry_id: "trunk"}]}]
`
