package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Key generation backends.
const (
	BackendSSHKeygen = "ssh-keygen"
	BackendNative    = "native"
)

// DefaultKeyPath is where vmprov keeps its key pair unless told otherwise.
const DefaultKeyPath = "~/.ssh/vmprov_rsa"

// Config represents the complete vmprov.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// KeyPath is the private key used for every host without its own key.
	// The public key is expected next to it with a .pub suffix.
	KeyPath string `yaml:"key_path" mapstructure:"key_path"`

	Keygen KeygenConfig `yaml:"keygen" mapstructure:"keygen"`

	// StrictHostKeyChecking verifies host keys against KnownHosts. Off by
	// default, in which case any host key is accepted without checking.
	StrictHostKeyChecking bool   `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
	KnownHosts            string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// SSHConfig is the OpenSSH client config consulted for aliases.
	// Empty means ~/.ssh/config.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	// ConnectTimeout bounds the TCP connect and SSH handshake. Zero waits forever.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Hosts are named VMs. Names are case-insensitive.
	Hosts map[string]Host `yaml:"hosts" mapstructure:"hosts"`
}

// KeygenConfig selects how key pairs are generated.
type KeygenConfig struct {
	// Backend is "ssh-keygen" (default) or "native".
	Backend string `yaml:"backend" mapstructure:"backend"`
}

// LogConfig controls the process-wide logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// Host defines one VM and how to reach it.
type Host struct {
	// Host is an address, hostname, or ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port,omitempty" mapstructure:"port"`
	User string `yaml:"user,omitempty" mapstructure:"user"`

	// Key overrides the global key_path for this host.
	Key string `yaml:"key,omitempty" mapstructure:"key"`
	// PubKey overrides the public key installed by copy-key. Defaults to Key + ".pub".
	PubKey string `yaml:"pub_key,omitempty" mapstructure:"pub_key"`

	// RemoteDir is where push puts scripts when no destination is given.
	RemoteDir string `yaml:"remote_dir,omitempty" mapstructure:"remote_dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		KeyPath: DefaultKeyPath,
		Keygen: KeygenConfig{
			Backend: BackendSSHKeygen,
		},
		StrictHostKeyChecking: false,
		KnownHosts:            "~/.ssh/known_hosts",
		ConnectTimeout:        0,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Hosts: make(map[string]Host),
	}
}
