package sshutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry represents a parsed host entry from SSH config.
type SSHHostEntry struct {
	Alias        string // The Host pattern (alias)
	Hostname     string // The HostName value (actual host to connect to)
	User         string
	Port         string
	IdentityFile string
}

// Description returns a user-friendly description of the host.
func (h SSHHostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// matchWarningOnce ensures the SSH config Match directive warning is only shown once per process.
var matchWarningOnce sync.Once

// WarningHandler receives non-fatal warnings. Nil discards them.
var WarningHandler func(message string)

func emitWarning(message string) {
	if WarningHandler != nil {
		WarningHandler(message)
	}
}

// ResolveTarget fills the parts of t the caller left empty from the SSH
// config at configPath ("" means ~/.ssh/config), then from defaults:
// the HostName an alias points at, its Port (else 22) and its User (else $USER).
// Explicit values on t always win.
func ResolveTarget(t Target, configPath string) Target {
	if configPath == "" {
		configPath = DefaultSSHConfigPath()
	}
	resolved := t

	content, matchLine, err := preprocessSSHConfig(configPath)
	if err == nil {
		if cfg, decodeErr := ssh_config.Decode(bytes.NewReader(content)); decodeErr == nil {
			found := false
			if hostname, _ := cfg.Get(t.Host, "HostName"); hostname != "" && !strings.HasPrefix(hostname, "-") {
				resolved.Host = hostname
				found = true
			}
			if resolved.Port == 0 {
				if port, _ := cfg.Get(t.Host, "Port"); port != "" {
					if p, convErr := strconv.Atoi(port); convErr == nil {
						resolved.Port = p
						found = true
					}
				}
			}
			if resolved.User == "" {
				if user, _ := cfg.Get(t.Host, "User"); user != "" {
					resolved.User = user
					found = true
				}
			}

			// The host might be defined after a Match block we had to cut off.
			if matchLine > 0 && !found {
				matchWarningOnce.Do(func() {
					emitWarning(fmt.Sprintf(
						"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries)",
						t.Host, matchLine))
				})
			}
		}
	}

	if resolved.Port == 0 {
		resolved.Port = DefaultPort
	}
	if resolved.User == "" {
		resolved.User = currentUser()
	}
	return resolved
}

// ParseSSHConfigFile returns the concrete (non-wildcard) host entries of an
// SSH config file. A missing file yields no entries and no error.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []SSHHostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := SSHHostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})
	return hosts, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the first
// Match directive, which kevinburke/ssh_config cannot parse. The second return
// is the 1-indexed line of that directive, or 0.
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

// expandPath expands a leading ~/ to the local home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
