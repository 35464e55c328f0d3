package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetHost(t *testing.T) {
	tests := []struct {
		name         string
		initialYAML  string
		hostName     string
		host         Host
		wantContains []string
		wantAbsent   []string
	}{
		{
			name: "add to existing hosts",
			initialYAML: `version: 1
# keep me
hosts:
  old:
    host: 10.0.0.1
`,
			hostName: "new",
			host:     Host{Host: "10.0.0.2", Port: 2222, User: "ubuntu"},
			wantContains: []string{
				"# keep me",
				"old:",
				"new:",
				"host: 10.0.0.2",
				"port: 2222",
				"user: ubuntu",
			},
		},
		{
			name:        "create hosts section",
			initialYAML: "version: 1\nkey_path: ~/.ssh/vmprov_rsa\n",
			hostName:    "dev",
			host:        Host{Host: "dev.local"},
			wantContains: []string{
				"key_path: ~/.ssh/vmprov_rsa",
				"hosts:",
				"dev:",
				"host: dev.local",
			},
			wantAbsent: []string{"port:", "user:"},
		},
		{
			name: "replace existing host",
			initialYAML: `version: 1
hosts:
  dev:
    host: 10.0.0.1
    user: old-user
`,
			hostName:     "dev",
			host:         Host{Host: "10.0.0.9", RemoteDir: "/opt/"},
			wantContains: []string{"host: 10.0.0.9", "remote_dir: /opt/"},
			wantAbsent:   []string{"old-user", "10.0.0.1"},
		},
		{
			name:         "empty file",
			initialYAML:  "",
			hostName:     "dev",
			host:         Host{Host: "10.0.0.3"},
			wantContains: []string{"version: 1", "dev:", "host: 10.0.0.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.initialYAML), 0644))

			require.NoError(t, SetHost(path, tt.hostName, tt.host))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, string(data), want)
			}
			for _, absent := range tt.wantAbsent {
				assert.NotContains(t, string(data), absent)
			}

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Hosts[tt.hostName])
		})
	}
}

func TestSetHost_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	require.NoError(t, SetHost(path, "dev", Host{Host: "10.0.0.3"}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", cfg.Hosts["dev"].Host)
}

func TestSetHost_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0644))

	err := SetHost(path, "dev", Host{Host: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected mapping")
}

func TestRemoveHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`version: 1
hosts:
  # the dev box
  dev:
    host: 10.0.0.1
  prod:
    host: 10.0.0.2
`), 0644))

	removed, err := RemoveHost(path, "dev")
	require.NoError(t, err)
	assert.True(t, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "10.0.0.1"))
	assert.Contains(t, string(data), "prod:")

	removed, err = RemoveHost(path, "dev")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveHost_MissingFile(t *testing.T) {
	_, err := RemoveHost(filepath.Join(t.TempDir(), "nope.yaml"), "dev")
	assert.Error(t, err)
}
