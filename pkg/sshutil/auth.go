package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Credentials selects how a session authenticates. UsePassword picks
// password auth with Password, which may be empty; otherwise the private
// key at KeyPath is used.
type Credentials struct {
	KeyPath     string
	Password    string
	UsePassword bool
}

// PasswordCredentials authenticates with pw, even when pw is empty.
func PasswordCredentials(pw string) Credentials {
	return Credentials{Password: pw, UsePassword: true}
}

func (c Credentials) usesPassword() bool {
	return c.UsePassword
}

// authMethods builds the ssh.AuthMethod list for these credentials.
func (c Credentials) authMethods() ([]ssh.AuthMethod, error) {
	if c.usesPassword() {
		pw := c.Password
		// Many servers only offer password login through keyboard-interactive.
		answer := func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = pw
			}
			return answers, nil
		}
		return []ssh.AuthMethod{
			ssh.Password(pw),
			ssh.KeyboardInteractive(answer),
		}, nil
	}

	if c.KeyPath == "" {
		return nil, stderrors.New("no private key path or password given")
	}
	auth, err := KeyAuth(c.KeyPath)
	if err != nil {
		return nil, err
	}
	return []ssh.AuthMethod{auth}, nil
}

// KeyAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func KeyAuth(keyPath string) (ssh.AuthMethod, error) {
	signer, err := LoadSigner(keyPath)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// LoadSigner reads and parses an unencrypted private key file.
func LoadSigner(keyPath string) (ssh.Signer, error) {
	key, err := os.ReadFile(expandPath(keyPath))
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) ||
			strings.Contains(err.Error(), "encrypted") ||
			strings.Contains(err.Error(), "passphrase") ||
			isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}
	return signer, nil
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyCallback returns the host key policy. With strict off, every host
// key is trusted without checking (the historical behavior of these helpers,
// open to man-in-the-middle). With strict on, keys are verified against
// knownHostsPath, which is created empty if missing.
func HostKeyCallback(strict bool, knownHostsPath string) (ssh.HostKeyCallback, error) {
	if !strict {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opt-in via strict_host_key_checking
	}
	if knownHostsPath == "" {
		knownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	return createHostKeyCallback(expandPath(knownHostsPath))
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	return fmt.Sprintf(
		"The server's host key doesn't match %s.\n"+
			"  If the VM was rebuilt, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		e.KnownHosts, host)
}

// UnknownHostError is returned in strict mode for hosts missing from known_hosts.
type UnknownHostError struct {
	Hostname   string
	KnownHosts string
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("host %s is not in %s", e.Hostname, e.KnownHosts)
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) {
			if len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
			return &UnknownHostError{Hostname: hostname, KnownHosts: knownHostsPath}
		}
		return err
	}, nil
}
