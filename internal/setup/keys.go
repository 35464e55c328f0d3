package setup

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/keygen"
	"github.com/gofrs/flock"
	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
	"golang.org/x/crypto/ssh"
)

// KeyBits is the RSA modulus size of every generated key.
const KeyBits = 2048

// KeyGenerator writes a new RSA key pair with an empty passphrase to path
// and path.pub.
type KeyGenerator interface {
	Generate(ctx context.Context, path string) error
	Name() string
}

// SSHKeygen generates keys with the ssh-keygen binary.
type SSHKeygen struct {
	// Run executes ssh-keygen. Nil means util.ExecRunner.
	Run util.Runner
}

// Args returns the ssh-keygen arguments for path.
func (SSHKeygen) Args(path string) []string {
	return []string{"-t", "rsa", "-b", fmt.Sprint(KeyBits), "-N", "", "-f", path}
}

// Generate runs ssh-keygen once.
func (g SSHKeygen) Generate(ctx context.Context, path string) error {
	run := g.Run
	if run == nil {
		run = util.ExecRunner
	}
	output, err := run(ctx, "ssh-keygen", g.Args(path)...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("ssh-keygen failed: %s", detail),
			"Ensure ssh-keygen is installed, or set keygen.backend: native")
	}
	return nil
}

func (SSHKeygen) Name() string { return "ssh-keygen" }

// NativeKeygen generates keys in-process, for hosts without OpenSSH.
type NativeKeygen struct{}

// Generate creates the pair and writes both files.
func (NativeKeygen) Generate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kp, err := keygen.New(path,
		keygen.WithKeyType(keygen.RSA),
		keygen.WithBitSize(KeyBits),
	)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			"Couldn't generate an RSA key",
			"Try the ssh-keygen backend instead")
	}
	if err := kp.WriteKeys(); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't write key pair to %s", path),
			"Check permissions on the key directory")
	}
	return nil
}

func (NativeKeygen) Name() string { return "native" }

// GeneratorFor maps a keygen.backend config value to a generator.
func GeneratorFor(backend string) (KeyGenerator, error) {
	switch backend {
	case "", config.BackendSSHKeygen:
		return SSHKeygen{}, nil
	case config.BackendNative:
		return NativeKeygen{}, nil
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown keygen backend: %s", backend),
			fmt.Sprintf("Use %s or %s", config.BackendSSHKeygen, config.BackendNative))
	}
}

// Provisioner makes sure a local key pair exists.
type Provisioner struct {
	Generator KeyGenerator   // nil means SSHKeygen{}
	Logger    logger.Logger  // nil means logger.Default()
	Exit      func(code int) // used by MustEnsure; nil means os.Exit
	LockWait  time.Duration  // poll interval while another process holds the lock
}

// Ensure creates the parent directory of path and, if nothing exists at
// path, generates a key pair there. An existing file of any kind counts as
// done; its contents are not checked.
//
// Generation holds a file lock at path.lock so two processes don't run the
// generator for the same path at once.
func (p Provisioner) Ensure(ctx context.Context, path string) error {
	log := logger.OrDefault(p.Logger)
	path = config.ExpandTilde(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't create key directory %s", dir),
			"Check permissions on the parent directory")
	}

	if exists(path) {
		log.Info("Key pair already exists at %s", path)
		return nil
	}

	lock := flock.New(path + ".lock")
	wait := p.LockWait
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	locked, err := lock.TryLockContext(ctx, wait)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't lock %s for key generation", path),
			"Another vmprov may be generating the same key")
	}
	defer func() { _ = lock.Unlock() }()

	// Someone else may have finished while we waited.
	if exists(path) {
		log.Info("Key pair already exists at %s", path)
		return nil
	}

	gen := p.Generator
	if gen == nil {
		gen = SSHKeygen{}
	}

	hadPub := exists(PublicKeyPath(path))

	log.Info("Generating %d-bit RSA key pair at %s (%s)", KeyBits, path, gen.Name())
	if err := gen.Generate(ctx, path); err != nil {
		// Leave nothing half-written behind.
		_ = os.Remove(path)
		if !hadPub {
			_ = os.Remove(PublicKeyPath(path))
		}
		log.Error("Key generation at %s failed: %v", path, err)
		return err
	}
	if !exists(path) {
		return errors.New(errors.ErrKeygen,
			fmt.Sprintf("%s finished but %s doesn't exist", gen.Name(), path),
			"Check disk space and permissions")
	}

	log.Info("Key pair written to %s and %s", path, PublicKeyPath(path))
	return nil
}

// MustEnsure is Ensure for callers that can't go on without a key: any
// failure is logged and the process exits with status 1.
func (p Provisioner) MustEnsure(ctx context.Context, path string) {
	if err := p.Ensure(ctx, path); err != nil {
		logger.OrDefault(p.Logger).Error("Can't continue without a key pair: %v", err)
		exit := p.Exit
		if exit == nil {
			exit = os.Exit
		}
		exit(1)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// KeyInfo contains information about an SSH key.
type KeyInfo struct {
	Path       string // Full path to private key
	Type       string // Key type (ed25519, rsa, ecdsa)
	PublicPath string // Path to public key
	HasPublic  bool   // Whether public key file exists
}

// DefaultKeyPaths returns the standard locations for SSH keys, with the
// configured key first when given.
func DefaultKeyPaths(configured string) []string {
	var paths []string
	if configured != "" {
		paths = append(paths, config.ExpandTilde(configured))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return paths
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		p := filepath.Join(home, ".ssh", name)
		if len(paths) > 0 && paths[0] == p {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

// FindLocalKeys returns the keys that exist among paths.
func FindLocalKeys(paths []string) []KeyInfo {
	var keys []KeyInfo

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			pubPath := PublicKeyPath(path)
			_, pubErr := os.Stat(pubPath)

			keys = append(keys, KeyInfo{
				Path:       path,
				Type:       inferKeyType(path),
				PublicPath: pubPath,
				HasPublic:  pubErr == nil,
			})
		}
	}

	return keys
}

// PublicKeyPath returns the public half's path for a private key path.
func PublicKeyPath(privPath string) string {
	return privPath + ".pub"
}

// inferKeyType determines key type from filename.
func inferKeyType(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "ed25519"):
		return "ed25519"
	case strings.Contains(base, "ecdsa"):
		return "ecdsa"
	case strings.Contains(base, "rsa"):
		return "rsa"
	default:
		return "unknown"
	}
}

// ReadPublicKey reads the contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(config.ExpandTilde(pubPath))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// ErrKeyMismatch means a public key file doesn't belong to its private key.
var ErrKeyMismatch = stderrors.New("public key does not match private key")

// VerifyKeyPair checks that privPath parses and that privPath.pub holds the
// public key derived from it.
func VerifyKeyPair(privPath string) error {
	privPath = config.ExpandTilde(privPath)

	signer, err := sshutil.LoadSigner(privPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't read private key %s", privPath),
			"Regenerate it: remove the file and run vmprov keygen")
	}

	pubData, err := os.ReadFile(PublicKeyPath(privPath))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("Couldn't read public key %s", PublicKeyPath(privPath)),
			"Recreate it: ssh-keygen -y -f "+privPath+" > "+PublicKeyPath(privPath))
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(pubData)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKeygen,
			fmt.Sprintf("%s isn't a valid public key", PublicKeyPath(privPath)),
			"Recreate it: ssh-keygen -y -f "+privPath+" > "+PublicKeyPath(privPath))
	}

	if string(pub.Marshal()) != string(signer.PublicKey().Marshal()) {
		return errors.WrapWithCode(ErrKeyMismatch, errors.ErrKeygen,
			fmt.Sprintf("%s doesn't match %s", PublicKeyPath(privPath), privPath),
			"Recreate it: ssh-keygen -y -f "+privPath+" > "+PublicKeyPath(privPath))
	}
	return nil
}
