package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadInto points the env's app at the config file at path.
func (e *testEnv) loadInto(t *testing.T, path string) {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.KeyPath = e.app.cfg.KeyPath
	e.app.cfg = cfg
	e.app.cfgPath = path
}

func TestHostAdd_CreatesConfigInWorkingDir(t *testing.T) {
	newTestEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	cmd, out := testCmd()

	err := hostAdd(cmd, "web1", "ubuntu@10.0.0.5", HostAddOptions{Port: 2222, RemoteDir: "/opt/setup"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added web1")

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Contains(t, cfg.Hosts, "web1")
	assert.Equal(t, "ubuntu@10.0.0.5", cfg.Hosts["web1"].Host)
	assert.Equal(t, 2222, cfg.Hosts["web1"].Port)
	assert.Equal(t, "/opt/setup", cfg.Hosts["web1"].RemoteDir)
}

func TestHostAdd_WritesToLoadedConfig(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "lab.yaml")
	require.NoError(t, config.WriteStarter(path, false))
	env.loadInto(t, path)
	cmd, _ := testCmd()

	require.NoError(t, hostAdd(cmd, "db", "10.0.0.7", HostAddOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "db:")
	assert.Contains(t, string(data), "# vmprov configuration", "starter comments survive")
}

func TestHostAdd_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		address string
		opts    HostAddOptions
	}{
		{"bad name", "web 1", "10.0.0.5", HostAddOptions{}},
		{"bad port", "web1", "10.0.0.5", HostAddOptions{Port: 70000}},
		{"empty address", "web1", "", HostAddOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newTestEnv(t)
			dir := t.TempDir()
			t.Chdir(dir)
			cmd, _ := testCmd()

			err := hostAdd(cmd, tt.host, tt.address, tt.opts)
			require.Error(t, err)
			assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileName))
		})
	}
}

func TestHostList(t *testing.T) {
	env := newTestEnv(t)
	env.app.cfg.Hosts["web1"] = config.Host{Host: "10.0.0.5", User: "ubuntu"}
	env.app.cfg.Hosts["db"] = config.Host{Host: "10.0.0.7", User: "admin", Port: 2200}
	cmd, out := testCmd()

	require.NoError(t, hostList(cmd, false))
	assert.Contains(t, out.String(), "web1")
	assert.Contains(t, out.String(), "admin@10.0.0.7:2200")
}

func TestHostList_Empty(t *testing.T) {
	newTestEnv(t)
	cmd, out := testCmd()

	require.NoError(t, hostList(cmd, false))
	assert.Contains(t, out.String(), "No hosts configured")
}

func TestHostList_CheckJSON(t *testing.T) {
	env := newTestEnv(t)
	env.app.cfg.Hosts["web1"] = config.Host{Host: "10.0.0.5", User: "ubuntu"}
	env.app.cfg.Hosts["db"] = config.Host{Host: "10.0.0.7", User: "admin"}
	withMachineMode(t)
	cmd, out := testCmd()

	require.NoError(t, hostList(cmd, true))

	var envl struct {
		Data []HostListEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &envl))
	require.Len(t, envl.Data, 2)
	assert.Equal(t, "db", envl.Data[0].Name)
	for _, e := range envl.Data {
		require.NotNil(t, e.Reachable)
		assert.True(t, *e.Reachable)
		require.NotNil(t, e.LatencyMS)
		assert.InDelta(t, 3.0, *e.LatencyMS, 0.001)
	}
}

func TestHostRemove(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "vmprov.yaml")
	require.NoError(t, config.SetHost(path, "web1", config.Host{Host: "10.0.0.5"}))
	require.NoError(t, config.SetHost(path, "db", config.Host{Host: "10.0.0.7"}))
	env.loadInto(t, path)
	cmd, out := testCmd()

	require.NoError(t, hostRemove(cmd, "web1", true))
	assert.Contains(t, out.String(), "Removed web1")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.Hosts, "web1")
	assert.Contains(t, cfg.Hosts, "db")
}

func TestHostRemove_ConfirmDeclined(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "vmprov.yaml")
	require.NoError(t, config.SetHost(path, "web1", config.Host{Host: "10.0.0.5"}))
	env.loadInto(t, path)
	env.app.interactive = true
	env.app.confirm = func(string) (bool, error) { return false, nil }
	cmd, out := testCmd()

	require.NoError(t, hostRemove(cmd, "web1", false))
	assert.Contains(t, out.String(), "Cancelled")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Hosts, "web1")
}

func TestHostRemove_Unknown(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "vmprov.yaml")
	require.NoError(t, config.SetHost(path, "web1", config.Host{Host: "10.0.0.5"}))
	env.loadInto(t, path)
	cmd, _ := testCmd()

	err := hostRemove(cmd, "web2", true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Did you mean: web1?")
}

func TestHostRemove_NoConfig(t *testing.T) {
	newTestEnv(t)
	cmd, _ := testCmd()

	err := hostRemove(cmd, "web1", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No hosts configured")
}
