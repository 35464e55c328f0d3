package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/setup"
	"github.com/spf13/cobra"
)

// KeygenResult is the --json output of keygen.
type KeygenResult struct {
	KeyPath       string `json:"key_path"`
	PublicKeyPath string `json:"public_key_path"`
}

// CopyKeyResult is the --json output of copy-key.
type CopyKeyResult struct {
	Host          string `json:"host"`
	Target        string `json:"target"`
	PublicKeyPath string `json:"public_key_path"`
}

// PushResult is the --json output of push.
type PushResult struct {
	Host       string `json:"host"`
	Target     string `json:"target"`
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
}

// ProvisionResult is the --json output of provision.
type ProvisionResult struct {
	KeyPath    string `json:"key_path"`
	Host       string `json:"host"`
	Target     string `json:"target"`
	RemotePath string `json:"remote_path"`
}

func keygenCommand(cmd *cobra.Command, keyFlag string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	path := a.keyPath(keyFlag)

	if err := a.ensureKey(cmd.Context(), out, path); err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, KeygenResult{KeyPath: path, PublicKeyPath: setup.PublicKeyPath(path)})
	}
	return nil
}

func copyKeyCommand(cmd *cobra.Command, hostArg string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	r, err := a.resolveHost(hostArg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if err := a.copyKey(cmd.Context(), out, r); err != nil {
		if !errors.HasReason(err, errors.ReasonProbe) && !machineMode {
			fmt.Fprintln(cmd.ErrOrStderr(), setup.CopyKeyManual(r.Target.String(), r.PubKeyPath))
		}
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, CopyKeyResult{
			Host:          hostLabel(r),
			Target:        r.Target.String(),
			PublicKeyPath: r.PubKeyPath,
		})
	}
	return nil
}

// copyKey runs the gated public-key install for one resolved host.
func (a *app) copyKey(ctx context.Context, out io.Writer, r config.Resolved) error {
	sp := a.spinner(out, fmt.Sprintf("Install key on %s", r.Target))
	// The password prompt shares the terminal, so no animation.
	sp.SetAnimated(false)
	sp.Start()

	err := a.gate().Run(ctx, r.Target.Host, func(ctx context.Context, _ string) error {
		return a.installer().Install(ctx, r.Target, r.PubKeyPath, r.KeyPath)
	})
	if err != nil {
		stepFailed(sp, err)
		return err
	}
	sp.Success()
	return nil
}

func pushCommand(cmd *cobra.Command, hostArg, localPath, remotePath, name string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	r, err := a.resolveHost(hostArg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dest, err := a.push(cmd.Context(), out, r, localPath, remotePath, name)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, PushResult{
			Host:       hostLabel(r),
			Target:     r.Target.String(),
			LocalPath:  localPath,
			RemotePath: dest,
		})
	}
	return nil
}

// push runs the gated script transfer and returns where the file landed.
func (a *app) push(ctx context.Context, out io.Writer, r config.Resolved, localPath, remotePath, name string) (string, error) {
	if remotePath == "" && r.RemoteDir != "" {
		remotePath = strings.TrimSuffix(r.RemoteDir, "/") + "/"
	}
	if name == "" {
		name = filepath.Base(localPath)
	}
	dest := setup.RemoteDestination(remotePath, name)

	sp := a.spinner(out, fmt.Sprintf("Push %s to %s:%s", filepath.Base(localPath), r.Target.Host, dest))
	sp.Start()

	err := a.gate().Run(ctx, r.Target.Host, func(ctx context.Context, _ string) error {
		return a.transferrer().Transfer(ctx, r.Target, r.KeyPath, localPath, remotePath, name)
	})
	if err != nil {
		stepFailed(sp, err)
		return "", err
	}
	sp.Success()
	return dest, nil
}

func provisionCommand(cmd *cobra.Command, hostArg, localPath, remotePath, name string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	r, err := a.resolveHost(hostArg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := a.ensureKey(ctx, out, r.KeyPath); err != nil {
		return err
	}
	if err := a.copyKey(ctx, out, r); err != nil {
		return err
	}
	dest, err := a.push(ctx, out, r, localPath, remotePath, name)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, ProvisionResult{
			KeyPath:    r.KeyPath,
			Host:       hostLabel(r),
			Target:     r.Target.String(),
			RemotePath: dest,
		})
	}
	fmt.Fprintf(out, "\n%s is ready.\n", hostLabel(r))
	return nil
}

// stepFailed closes a spinner with a short reason. A failed ping is shown
// as skipped since nothing was attempted on the VM.
func stepFailed(sp interface {
	FailWith(string)
	SkipWith(string)
}, err error) {
	switch errors.ReasonOf(err) {
	case errors.ReasonProbe:
		sp.SkipWith("no reply to ping")
	case errors.ReasonAuthKeyRejected:
		sp.FailWith("key rejected")
	case errors.ReasonAuthPasswordRejected:
		sp.FailWith("password rejected")
	case errors.ReasonSession:
		sp.FailWith("session error")
	default:
		sp.FailWith("failed")
	}
}

func hostLabel(r config.Resolved) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Target.Host
}
