package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand_WritesStarter(t *testing.T) {
	newTestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	cmd, out := testCmd()

	require.NoError(t, initCommand(cmd, false))

	path := filepath.Join(dir, config.ConfigFileName)
	assert.FileExists(t, path)
	assert.Contains(t, out.String(), "Wrote")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
}

func TestInitCommand_ExistingFile(t *testing.T) {
	tests := []struct {
		name        string
		force       bool
		interactive bool
		answer      bool
		wantErr     bool
		overwritten bool
	}{
		{"non-interactive refuses", false, false, false, true, false},
		{"force overwrites", true, false, false, false, true},
		{"confirmed overwrite", false, true, true, false, true},
		{"declined overwrite", false, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.app.interactive = tt.interactive
			asked := false
			env.app.confirm = func(string) (bool, error) {
				asked = true
				return tt.answer, nil
			}

			dir := t.TempDir()
			t.Chdir(dir)
			path := filepath.Join(dir, config.ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte("key_path: ~/.ssh/mine\n"), 0644))
			cmd, _ := testCmd()

			err := initCommand(cmd, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "--force")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.interactive && !tt.force, asked)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			if tt.overwritten {
				assert.Contains(t, string(data), "# vmprov configuration")
			} else {
				assert.Equal(t, "key_path: ~/.ssh/mine\n", string(data))
			}
		})
	}
}
