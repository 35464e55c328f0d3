package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/setup"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
)

// KeyPairCheck verifies the configured key pair exists, is usable without
// a passphrase, and that the .pub file matches the private key.
type KeyPairCheck struct {
	KeyPath string // already expanded
	// Provisioner generates the pair on Fix.
	Provisioner setup.Provisioner
}

func (c *KeyPairCheck) Name() string     { return "key_pair" }
func (c *KeyPairCheck) Category() string { return "KEYS" }

func (c *KeyPairCheck) Run(ctx context.Context) CheckResult {
	if _, err := os.Stat(c.KeyPath); os.IsNotExist(err) {
		suggestion := "Generate one with: vmprov keygen (or vmprov doctor --fix)"
		if others := otherKeys(c.KeyPath); len(others) > 0 {
			suggestion += "\n  Or point key_path at an existing key: " + strings.Join(others, ", ")
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("No key pair at %s", c.KeyPath),
			Suggestion: suggestion,
			Fixable:    true,
		}
	}

	if _, err := sshutil.LoadSigner(c.KeyPath); err != nil {
		var encErr *sshutil.EncryptedKeyError
		if stderrors.As(err, &encErr) {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    fmt.Sprintf("%s is passphrase protected", c.KeyPath),
				Suggestion: "vmprov needs a key without a passphrase. Point key_path at a different file.",
			}
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't read %s: %v", c.KeyPath, err),
			Suggestion: "Check file permissions, or move the file aside and run vmprov keygen",
		}
	}

	if err := setup.VerifyKeyPair(c.KeyPath); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Public key problem: %v", err),
			Suggestion: fmt.Sprintf("Recreate it: ssh-keygen -y -f %s > %s", c.KeyPath, setup.PublicKeyPath(c.KeyPath)),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Key pair: %s", c.KeyPath),
	}
}

// otherKeys lists the standard keys that exist and have a public half.
func otherKeys(configured string) []string {
	var found []string
	for _, k := range setup.FindLocalKeys(setup.DefaultKeyPaths(configured)) {
		if k.Path == configured || !k.HasPublic {
			continue
		}
		found = append(found, fmt.Sprintf("%s (%s)", k.Path, k.Type))
	}
	return found
}

// Fix generates the key pair. It never touches an existing file.
func (c *KeyPairCheck) Fix(ctx context.Context) error {
	return c.Provisioner.Ensure(ctx, c.KeyPath)
}

// KeyPermissionsCheck warns when the private key is readable by others,
// which OpenSSH itself refuses.
type KeyPermissionsCheck struct {
	KeyPath string
}

func (c *KeyPermissionsCheck) Name() string     { return "key_permissions" }
func (c *KeyPermissionsCheck) Category() string { return "KEYS" }

func (c *KeyPermissionsCheck) Run(ctx context.Context) CheckResult {
	info, err := os.Stat(c.KeyPath)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No key to check permissions on",
		}
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s has mode %04o; ssh wants 0600", c.KeyPath, mode),
			Suggestion: "Fix: chmod 600 " + c.KeyPath,
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Private key permissions are 0600",
	}
}

func (c *KeyPermissionsCheck) Fix(ctx context.Context) error {
	return os.Chmod(c.KeyPath, 0600)
}
