package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try again.").
			WithReason(errors.ReasonSession)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Run(cmd); err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			// Command ran, just had non-zero exit
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"The connection dropped while the command was running.").
			WithReason(errors.ReasonSession)
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
}

// Run executes cmd through client and treats a non-zero exit as a session failure.
func Run(client SSHClient, cmd string) error {
	_, stderr, exitCode, err := client.Exec(cmd)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			detail = "no output"
		}
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Remote command exited with status %d: %s", exitCode, detail),
			"Check permissions on the remote host.").
			WithReason(errors.ReasonSession)
	}
	return nil
}
