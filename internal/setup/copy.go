package setup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// Prompter asks the user for a secret.
type Prompter interface {
	Password(prompt string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(prompt string) (string, error)

func (f PrompterFunc) Password(prompt string) (string, error) { return f(prompt) }

// TerminalPrompter reads a password from the controlling terminal without echo.
type TerminalPrompter struct {
	In  *os.File  // nil means os.Stdin
	Out io.Writer // nil means os.Stderr
}

// Password prints prompt and reads one line with echo disabled.
func (p TerminalPrompter) Password(prompt string) (string, error) {
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	var out io.Writer = os.Stderr
	if p.Out != nil {
		out = p.Out
	}

	fd := int(in.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrSSH,
			"No terminal to read a password from",
			"Run this interactively, or install the key with key auth first")
	}

	fmt.Fprint(out, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read the password",
			"Try again from an interactive terminal")
	}
	return string(pw), nil
}

// Installer appends a local public key to a remote authorized_keys file.
type Installer struct {
	Dial   sshutil.DialFunc // nil means sshutil.Dialer with default options
	Prompt Prompter         // nil means TerminalPrompter{}
	Logger logger.Logger    // nil means logger.Default()
}

// Install connects to target with the private key at privPath and appends
// the key at pubPath to ~/.ssh/authorized_keys. If the server rejects the
// key, the user is prompted for a password and the same append runs over a
// password-authenticated session. The append is not deduplicated; running
// Install twice leaves two entries.
//
// Failures carry a reason: ReasonAuthPasswordRejected when the fallback
// password is refused, ReasonSession for connection and remote command
// failures, ReasonOther for everything else.
func (i Installer) Install(ctx context.Context, target sshutil.Target, pubPath, privPath string) error {
	log := logger.OrDefault(i.Logger)

	keyLine, err := AuthorizedKeyLine(pubPath)
	if err != nil {
		log.Error("Can't install %s on %s: %v", pubPath, target.Host, err)
		return err
	}
	cmd := AppendAuthorizedKeyCommand(keyLine)

	err = i.appendKey(ctx, target, sshutil.Credentials{KeyPath: privPath}, cmd)
	if err == nil {
		log.Info("Public key installed on %s (key auth)", target.Host)
		return nil
	}
	if errors.ReasonOf(err) != errors.ReasonAuthKeyRejected {
		log.Error("Installing public key on %s failed: %v", target.Host, err)
		return err
	}

	log.Warn("Key authentication to %s was rejected, falling back to password", target.Host)

	prompt := i.Prompt
	if prompt == nil {
		prompt = TerminalPrompter{}
	}
	password, err := prompt.Password(fmt.Sprintf("%s@%s's password: ", target.User, target.Host))
	if err != nil {
		err = errors.WrapWithCode(err, errors.ErrSSH,
			"Password fallback aborted",
			"Run again from an interactive terminal").
			WithReason(errors.ReasonOther)
		log.Error("Installing public key on %s failed: %v", target.Host, err)
		return err
	}

	if err := i.appendKey(ctx, target, sshutil.PasswordCredentials(password), cmd); err != nil {
		log.Error("Installing public key on %s failed: %v", target.Host, err)
		return err
	}

	log.Info("Public key installed on %s (password auth)", target.Host)
	return nil
}

// appendKey runs cmd over one session and always closes it.
func (i Installer) appendKey(ctx context.Context, target sshutil.Target, creds sshutil.Credentials, cmd string) error {
	dial := i.Dial
	if dial == nil {
		dial = sshutil.Dialer(sshutil.DialOptions{})
	}

	client, err := dial(ctx, target, creds)
	if err != nil {
		return err
	}
	defer client.Close()

	return sshutil.Run(client, cmd)
}

// AuthorizedKeyLine reads pubPath and returns its key as a single
// authorized_keys line. Anything that doesn't parse as exactly one public
// key without options is rejected. The result is safe to embed in a remote
// command.
func AuthorizedKeyLine(pubPath string) (string, error) {
	data, err := os.ReadFile(config.ExpandTilde(pubPath))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't read public key %s", pubPath),
			"Generate a key pair first: vmprov keygen").
			WithReason(errors.ReasonOther)
	}

	pub, comment, options, rest, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("%s isn't a valid public key", pubPath),
			"Point at the .pub half of the key pair").
			WithReason(errors.ReasonOther)
	}
	if len(options) > 0 {
		return "", errors.New(errors.ErrSSH,
			fmt.Sprintf("%s has authorized_keys options (%s)", pubPath, strings.Join(options, ",")),
			"Point at a plain .pub file; add options to authorized_keys on the VM by hand").
			WithReason(errors.ReasonOther)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return "", errors.New(errors.ErrSSH,
			fmt.Sprintf("%s holds more than one key", pubPath),
			"Install one key at a time").
			WithReason(errors.ReasonOther)
	}

	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

// AppendAuthorizedKeyCommand builds the remote command that appends keyLine
// to the login user's authorized_keys.
func AppendAuthorizedKeyCommand(keyLine string) string {
	return "mkdir -p ~/.ssh && chmod 700 ~/.ssh && echo " + util.ShellQuote(keyLine) + " >> ~/.ssh/authorized_keys"
}

// CopyKeyManual provides instructions for installing the key by hand when
// Install can't.
func CopyKeyManual(host string, pubKeyPath string) string {
	pubKey, err := ReadPublicKey(pubKeyPath)
	if err != nil {
		return fmt.Sprintf(`To copy your SSH key manually:

1. Display your public key:
   cat %s

2. Copy the output and add it to the remote host:
   ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && cat >> ~/.ssh/authorized_keys" << 'EOF'
   <paste your public key here>
   EOF

3. Set correct permissions:
   ssh %s "chmod 600 ~/.ssh/authorized_keys"
`, pubKeyPath, host, host)
	}

	return fmt.Sprintf(`To copy your SSH key manually, run:

ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && echo '%s' >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"
`, host, pubKey)
}
