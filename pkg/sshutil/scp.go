package sshutil

import (
	"context"
	"fmt"
	"io"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/rileyhilliard/vmprov/internal/errors"
)

// Upload pushes the contents of r to remotePath over an scp channel on
// this connection. perm is an octal mode string such as "0644".
func (c *Client) Upload(ctx context.Context, r io.Reader, remotePath, perm string) error {
	scpClient, err := scp.NewClientBySSH(c.Client)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTransfer,
			"Couldn't open an scp channel",
			"Make sure scp is installed on the remote host.").
			WithReason(errors.ReasonSession)
	}
	// scpClient.Close would close the shared connection; the caller owns it.

	if err := scpClient.CopyFile(ctx, r, remotePath, perm); err != nil {
		return errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Copy to %s:%s didn't finish", c.Host, remotePath),
			"Check the remote directory exists and is writable.").
			WithReason(errors.ReasonSession)
	}
	return nil
}
