package sshutil

import (
	"context"
	"io"
)

// SSHClient is the slice of a live session that provisioning code needs.
// Both the real Client and the mocks in sshutil/testing satisfy it.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Upload copies r to remotePath over scp with the given octal mode.
	Upload(ctx context.Context, r io.Reader, remotePath, perm string) error

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// DialFunc opens an authenticated session. Dialer adapts Dial to it.
type DialFunc func(ctx context.Context, target Target, creds Credentials) (SSHClient, error)

// Dialer returns a DialFunc that calls Dial with fixed options.
func Dialer(opts DialOptions) DialFunc {
	return func(ctx context.Context, target Target, creds Credentials) (SSHClient, error) {
		client, err := Dial(ctx, target, creds, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
