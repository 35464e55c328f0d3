package cli

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	sshtesting "github.com/rileyhilliard/vmprov/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKeygen struct{}

func (failingKeygen) Generate(ctx context.Context, path string) error {
	return stderrors.New("ssh-keygen: exit status 1")
}
func (failingKeygen) Name() string { return "failing" }

func keyRejected() error {
	return errors.New(errors.ErrSSH, "Key rejected", "").WithReason(errors.ReasonAuthKeyRejected)
}

func writeLocalScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boot.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho ready\n"), 0644))
	return path
}

func TestKeygenCommand_Generates(t *testing.T) {
	env := newTestEnv(t)
	cmd, out := testCmd()

	require.NoError(t, keygenCommand(cmd, ""))

	assert.FileExists(t, env.app.cfg.KeyPath)
	assert.FileExists(t, env.app.cfg.KeyPath+".pub")
	assert.Contains(t, out.String(), "Key pair")
	assert.Equal(t, -1, env.exitCode)
}

func TestKeygenCommand_KeyFlag(t *testing.T) {
	env := newTestEnv(t)
	cmd, _ := testCmd()
	path := filepath.Join(env.dir, "other", "lab_rsa")

	require.NoError(t, keygenCommand(cmd, path))
	assert.FileExists(t, path)
	assert.NoFileExists(t, env.app.cfg.KeyPath)
}

func TestKeygenCommand_FailureExitsOne(t *testing.T) {
	env := newTestEnv(t)
	env.app.keygen = failingKeygen{}
	cmd, _ := testCmd()

	err := keygenCommand(cmd, "")
	require.Error(t, err)

	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, env.exitCode)
	assert.NoFileExists(t, env.app.cfg.KeyPath)
}

func TestKeygenCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	withMachineMode(t)
	cmd, out := testCmd()

	require.NoError(t, keygenCommand(cmd, ""))

	var envl struct {
		Success bool         `json:"success"`
		Data    KeygenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &envl))
	assert.True(t, envl.Success)
	assert.Equal(t, env.app.cfg.KeyPath, envl.Data.KeyPath)
	assert.Equal(t, env.app.cfg.KeyPath+".pub", envl.Data.PublicKeyPath)
}

func TestCopyKeyCommand_KeyAuth(t *testing.T) {
	client := sshtesting.NewMockClient("10.0.0.5")
	env := newTestEnv(t, sshtesting.DialResult{Client: client})
	priv := env.addHost(t, "web1", config.Host{Host: "10.0.0.5", User: "ubuntu"})
	cmd, _ := testCmd()

	require.NoError(t, copyKeyCommand(cmd, "web1"))

	assert.Equal(t, []string{"10.0.0.5"}, env.pinger.probed())
	calls := env.dialer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, priv, calls[0].Creds.KeyPath)
	assert.Equal(t, "ubuntu", calls[0].Target.User)
	assert.Empty(t, env.prompts)

	cmds := client.Commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "authorized_keys")
}

func TestCopyKeyCommand_PasswordFallback(t *testing.T) {
	client := sshtesting.NewMockClient("10.0.0.5")
	env := newTestEnv(t,
		sshtesting.DialResult{Err: keyRejected()},
		sshtesting.DialResult{Client: client},
	)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5", User: "ubuntu"})
	cmd, _ := testCmd()

	require.NoError(t, copyKeyCommand(cmd, "web1"))

	require.Len(t, env.prompts, 1)
	assert.Contains(t, env.prompts[0], "ubuntu@10.0.0.5")
	calls := env.dialer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "hunter2", calls[1].Creds.Password)
	assert.Len(t, client.Commands(), 1)
}

func TestCopyKeyCommand_UnreachableNeverDials(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})
	env.pinger.down["10.0.0.5"] = true
	cmd, out := testCmd()

	err := copyKeyCommand(cmd, "web1")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonProbe, errors.ReasonOf(err))
	assert.Empty(t, env.dialer.Calls())
	assert.NotContains(t, out.String(), "manually", "no manual steps when the VM is down")
}

func TestCopyKeyCommand_FailurePrintsManualSteps(t *testing.T) {
	env := newTestEnv(t, sshtesting.DialResult{
		Err: errors.New(errors.ErrSSH, "dropped", "").WithReason(errors.ReasonSession),
	})
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})
	cmd, out := testCmd()

	err := copyKeyCommand(cmd, "web1")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonSession, errors.ReasonOf(err))
	assert.Contains(t, out.String(), "manually")
	assert.Empty(t, env.prompts, "a session error must not trigger the password fallback")
}

func TestPushCommand_RemoteDirDefault(t *testing.T) {
	client := sshtesting.NewMockClient("10.0.0.5")
	env := newTestEnv(t, sshtesting.DialResult{Client: client})
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5", RemoteDir: "/opt/setup"})
	script := writeLocalScript(t)
	cmd, _ := testCmd()

	require.NoError(t, pushCommand(cmd, "web1", script, "", ""))

	up, ok := client.Uploaded("/opt/setup/boot.sh")
	require.True(t, ok)
	assert.Equal(t, "#!/bin/sh\necho ready\n", string(up.Data))
	assert.Equal(t, []string{"chmod '+x' '/opt/setup/boot.sh'"}, client.Commands())

	calls := env.dialer.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Creds.Password)
}

func TestPushCommand_ExplicitRemoteAndName(t *testing.T) {
	client := sshtesting.NewMockClient("10.0.0.5")
	env := newTestEnv(t, sshtesting.DialResult{Client: client})
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5", RemoteDir: "/opt/setup"})
	script := writeLocalScript(t)
	withMachineMode(t)
	cmd, out := testCmd()

	require.NoError(t, pushCommand(cmd, "web1", script, "/tmp/", "init.sh"))

	_, ok := client.Uploaded("/tmp/init.sh")
	assert.True(t, ok)

	var envl struct {
		Data PushResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &envl))
	assert.Equal(t, "/tmp/init.sh", envl.Data.RemotePath)
	assert.Equal(t, "web1", envl.Data.Host)
}

func TestPushCommand_UploadFailureSkipsChmod(t *testing.T) {
	client := sshtesting.NewMockClient("10.0.0.5")
	client.SetUploadError(errors.New(errors.ErrTransfer, "dropped", "").WithReason(errors.ReasonSession))
	env := newTestEnv(t, sshtesting.DialResult{Client: client})
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})
	cmd, _ := testCmd()

	err := pushCommand(cmd, "web1", writeLocalScript(t), "/tmp/", "")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonSession, errors.ReasonOf(err))
	assert.Empty(t, client.Commands())
}

func TestPushCommand_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})
	env.pinger.down["10.0.0.5"] = true
	cmd, _ := testCmd()

	err := pushCommand(cmd, "web1", writeLocalScript(t), "/tmp/", "")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonProbe, errors.ReasonOf(err))
	assert.Empty(t, env.dialer.Calls())
}

func TestProvisionCommand_RunsAllSteps(t *testing.T) {
	installClient := sshtesting.NewMockClient("10.0.0.5")
	pushClient := sshtesting.NewMockClient("10.0.0.5")
	env := newTestEnv(t,
		sshtesting.DialResult{Client: installClient},
		sshtesting.DialResult{Client: pushClient},
	)
	script := writeLocalScript(t)
	cmd, out := testCmd()

	require.NoError(t, provisionCommand(cmd, "ubuntu@10.0.0.5", script, "/tmp/", ""))

	assert.FileExists(t, env.app.cfg.KeyPath, "provision generates the key pair first")
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.5"}, env.pinger.probed())

	require.Len(t, installClient.Commands(), 1)
	assert.Contains(t, installClient.Commands()[0], "authorized_keys")
	_, ok := pushClient.Uploaded("/tmp/boot.sh")
	assert.True(t, ok)

	for _, call := range env.dialer.Calls() {
		assert.Equal(t, env.app.cfg.KeyPath, call.Creds.KeyPath)
		assert.Equal(t, "ubuntu", call.Target.User)
	}
	assert.Contains(t, out.String(), "10.0.0.5 is ready")
}

func TestProvisionCommand_StopsAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	env.pinger.down["10.0.0.5"] = true
	cmd, _ := testCmd()

	err := provisionCommand(cmd, "10.0.0.5", writeLocalScript(t), "", "")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonProbe, errors.ReasonOf(err))

	assert.Len(t, env.pinger.probed(), 1, "push must not be attempted after copy-key failed")
	assert.Empty(t, env.dialer.Calls())
}

func TestProvisionCommand_KeygenFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	env.app.keygen = failingKeygen{}
	cmd, _ := testCmd()

	err := provisionCommand(cmd, "10.0.0.5", writeLocalScript(t), "", "")
	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Empty(t, env.pinger.probed())
}

func TestStepFailedLabels(t *testing.T) {
	tests := []struct {
		reason errors.Reason
		want   string
	}{
		{errors.ReasonProbe, "no reply to ping"},
		{errors.ReasonAuthKeyRejected, "key rejected"},
		{errors.ReasonAuthPasswordRejected, "password rejected"},
		{errors.ReasonSession, "session error"},
		{errors.ReasonOther, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			rec := &recordingStep{}
			stepFailed(rec, errors.New(errors.ErrSSH, "x", "").WithReason(tt.reason))
			assert.Equal(t, tt.want, rec.detail)
			assert.Equal(t, tt.reason == errors.ReasonProbe, rec.skipped)
		})
	}
}

type recordingStep struct {
	detail  string
	skipped bool
}

func (r *recordingStep) FailWith(d string) { r.detail = d }
func (r *recordingStep) SkipWith(d string) { r.detail, r.skipped = d, true }

func TestResolveHost_NoArg(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})

	env.app.interactive = false
	_, err := env.app.resolveHost("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No host given")

	env.app.interactive = true
	r, err := env.app.resolveHost("")
	require.NoError(t, err)
	assert.Equal(t, "web1", r.Name)
}

func TestPickableHosts_MergesSSHConfig(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})

	sshDir := filepath.Join(env.dir, ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "config"), []byte(strings.Join([]string{
		"Host web1",
		"  HostName 10.9.9.9",
		"Host lab",
		"  HostName 172.16.0.9",
		"  User labuser",
		"Host *",
		"  ServerAliveInterval 30",
	}, "\n")), 0600))

	hosts := env.app.pickableHosts()
	require.Len(t, hosts, 2)
	assert.Equal(t, "web1", hosts[0].Name)
	assert.Equal(t, "10.0.0.5", hosts[0].Address, "config entry wins over the ssh alias")
	assert.Equal(t, "lab", hosts[1].Name)
	assert.Equal(t, "labuser", hosts[1].User)
}
