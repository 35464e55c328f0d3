package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingCommand_ICMP(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5"})
	cmd, out := testCmd()

	require.NoError(t, pingCommand(cmd, "web1", false, ""))
	assert.Equal(t, []string{"10.0.0.5"}, env.pinger.probed())
	assert.Contains(t, out.String(), "10.0.0.5 is up (icmp")
	assert.Empty(t, env.dialer.Calls(), "ping never opens an SSH session")
}

func TestPingCommand_AdHocAddress(t *testing.T) {
	env := newTestEnv(t)
	cmd, _ := testCmd()

	require.NoError(t, pingCommand(cmd, "root@192.168.1.20", false, ""))
	assert.Equal(t, []string{"192.168.1.20"}, env.pinger.probed())
}

func TestPingCommand_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.pinger.down["10.0.0.5"] = true
	cmd, out := testCmd()

	err := pingCommand(cmd, "10.0.0.5", false, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrProbe))
	assert.Equal(t, errors.ReasonProbe, errors.ReasonOf(err))
	assert.Contains(t, out.String(), "10.0.0.5")
}

func TestPingCommand_TCP(t *testing.T) {
	env := newTestEnv(t)
	env.addHost(t, "web1", config.Host{Host: "10.0.0.5", Port: 2222})

	var gotAddr string
	var gotTimeout time.Duration
	env.app.probe = func(ctx context.Context, address string, timeout time.Duration) (time.Duration, error) {
		gotAddr, gotTimeout = address, timeout
		return 12 * time.Millisecond, nil
	}
	withMachineMode(t)
	cmd, out := testCmd()

	require.NoError(t, pingCommand(cmd, "web1", true, "750ms"))
	assert.Equal(t, "10.0.0.5:2222", gotAddr)
	assert.Equal(t, 750*time.Millisecond, gotTimeout)
	assert.Empty(t, env.pinger.probed(), "--tcp skips ICMP")

	var envl struct {
		Success bool       `json:"success"`
		Data    PingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &envl))
	assert.True(t, envl.Success)
	assert.Equal(t, "tcp", envl.Data.Method)
	assert.True(t, envl.Data.Reachable)
	assert.InDelta(t, 12.0, envl.Data.LatencyMS, 0.001)
}

func TestPingCommand_TCPDefaultTimeout(t *testing.T) {
	env := newTestEnv(t)
	var gotTimeout time.Duration
	env.app.probe = func(ctx context.Context, address string, timeout time.Duration) (time.Duration, error) {
		gotTimeout = timeout
		return 0, stderrors.New("connection refused")
	}
	cmd, _ := testCmd()

	err := pingCommand(cmd, "10.0.0.5", true, "")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonProbe, errors.ReasonOf(err))
	assert.Equal(t, 3*time.Second, gotTimeout)

	env.app.cfg.ConnectTimeout = 8 * time.Second
	_ = pingCommand(cmd, "10.0.0.5", true, "")
	assert.Equal(t, 8*time.Second, gotTimeout)
}

func TestPingCommand_BadTimeout(t *testing.T) {
	newTestEnv(t)
	cmd, _ := testCmd()

	err := pingCommand(cmd, "10.0.0.5", true, "soon")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
