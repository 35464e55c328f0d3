package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// DialOptions tunes a single connection attempt.
type DialOptions struct {
	// Timeout bounds the TCP connect and the SSH handshake. Zero means no timeout.
	Timeout time.Duration

	// HostKeyCallback verifies the server's host key. Nil trusts any key.
	HostKeyCallback ssh.HostKeyCallback
}

// Dial opens an authenticated session to target. Port and user must already
// be resolved (see ResolveTarget); a zero port dials 22.
//
// Failures carry a reason: ReasonAuthKeyRejected or ReasonAuthPasswordRejected
// when the server refused the credentials, ReasonSession for network and
// protocol failures, ReasonOther when the local key could not be loaded.
func Dial(ctx context.Context, target Target, creds Credentials, opts DialOptions) (*Client, error) {
	address := target.Address()

	auth, err := creds.authMethods()
	if err != nil {
		var encErr *EncryptedKeyError
		if stderrors.As(err, &encErr) {
			// Unusable without a passphrase, same as a rejected key for fallback purposes.
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				fmt.Sprintf("Can't use encrypted key %s", encErr.Path),
				"Use an unencrypted key or fall back to password login").
				WithReason(errors.ReasonAuthKeyRejected)
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't load SSH key %s", creds.KeyPath),
			"Check the key exists: vmprov keygen").
			WithReason(errors.ReasonOther)
	}

	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // see HostKeyCallback
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}

	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", target.Host, address),
			suggestionForDialError(err)).
			WithReason(errors.ReasonSession)
	}

	if opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	stop()
	if err != nil {
		conn.Close()
		return nil, handshakeError(target, creds, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    target.Host,
		Address: address,
	}, nil
}

// handshakeError categorizes a failed handshake.
func handshakeError(target Target, creds Credentials, err error) error {
	var hostKeyErr *HostKeyMismatchError
	if stderrors.As(err, &hostKeyErr) {
		return errors.WrapWithCode(err, errors.ErrSSH,
			hostKeyErr.Error(),
			hostKeyErr.Suggestion()).
			WithReason(errors.ReasonSession)
	}
	var unknownErr *UnknownHostError
	if stderrors.As(err, &unknownErr) {
		return errors.WrapWithCode(err, errors.ErrSSH,
			unknownErr.Error(),
			fmt.Sprintf("Add it first: ssh-keyscan %s >> %s", target.Host, unknownErr.KnownHosts)).
			WithReason(errors.ReasonSession)
	}

	if IsAuthError(err) {
		if creds.usesPassword() {
			return errors.WrapWithCode(err, errors.ErrSSH,
				fmt.Sprintf("Password rejected by '%s'", target.Host),
				"Double-check the password for "+target.User).
				WithReason(errors.ReasonAuthPasswordRejected)
		}
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Key rejected by '%s'", target.Host),
			"The key isn't in the remote authorized_keys yet: vmprov copy-key "+target.Host).
			WithReason(errors.ReasonAuthKeyRejected)
	}

	return errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("SSH handshake with '%s' didn't go through", target.Host),
		suggestionForHandshakeError(err)).
		WithReason(errors.ReasonSession)
}

// IsAuthError reports whether a handshake error means the server refused
// every offered credential, as opposed to a network or protocol failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is sshd running on the VM? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if stderrors.Is(err, os.ErrDeadlineExceeded) || strings.Contains(errStr, "timeout") {
		return "Connection timed out. The VM might be down or blocked by a firewall."
	}
	return "Make sure the host is reachable: vmprov ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	if strings.Contains(errStr, "EOF") || strings.Contains(errStr, "reset by peer") {
		return "The server closed the connection. Check sshd logs on the VM."
	}
	return "Something went wrong during SSH setup. Try: ssh -v <host>"
}
