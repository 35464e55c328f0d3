package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/host"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/setup"
	"github.com/rileyhilliard/vmprov/internal/ui"
	sshtesting "github.com/rileyhilliard/vmprov/pkg/sshutil/testing"
	"github.com/spf13/cobra"
)

// fakePinger records probed hosts and fails the ones listed in down.
type fakePinger struct {
	mu    sync.Mutex
	hosts []string
	down  map[string]bool
}

func (p *fakePinger) Ping(ctx context.Context, h string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hosts = append(p.hosts, h)
	if p.down[h] {
		return &host.ProbeError{Host: h, Reason: host.ProbeFailTimeout}
	}
	return nil
}

func (p *fakePinger) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.hosts...)
}

// testEnv is an app wired to fakes, plus handles to inspect them.
type testEnv struct {
	app      *app
	pinger   *fakePinger
	dialer   *sshtesting.MockDialer
	prompts  []string
	exitCode int
	dir      string
}

// newTestEnv isolates HOME, installs an app built on fakes as newApp, and
// returns it. The default key lives in the temp dir.
func newTestEnv(t *testing.T, dials ...sshtesting.DialResult) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USER", "tester")

	cfg := config.DefaultConfig()
	cfg.KeyPath = filepath.Join(dir, "keys", "vm_rsa")

	env := &testEnv{
		pinger:   &fakePinger{down: map[string]bool{}},
		dialer:   sshtesting.NewMockDialer(dials...),
		exitCode: -1,
		dir:      dir,
	}
	env.app = &app{
		cfg:    cfg,
		log:    logger.Noop(),
		dial:   env.dialer.Dial,
		pinger: env.pinger,
		prompt: setup.PrompterFunc(func(prompt string) (string, error) {
			env.prompts = append(env.prompts, prompt)
			return "hunter2", nil
		}),
		keygen: setup.NativeKeygen{},
		probe: func(ctx context.Context, address string, timeout time.Duration) (time.Duration, error) {
			return 3 * time.Millisecond, nil
		},
		pick: func(hosts []ui.HostInfo) (*ui.HostInfo, error) {
			return &hosts[0], nil
		},
		confirm: func(string) (bool, error) { return true, nil },
		exit:    func(code int) { env.exitCode = code },
	}

	old := newApp
	newApp = func(*cobra.Command) (*app, error) { return env.app, nil }
	t.Cleanup(func() { newApp = old })
	return env
}

// testCmd returns a command whose output lands in the returned buffer.
func testCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

// withMachineMode turns --json on for one test.
func withMachineMode(t *testing.T) {
	t.Helper()
	old := machineMode
	machineMode = true
	t.Cleanup(func() { machineMode = old })
}

// addHost registers a host in the env's config with its own key pair and
// returns the private key path.
func (e *testEnv) addHost(t *testing.T, name string, h config.Host) string {
	t.Helper()
	if h.Key == "" {
		priv, _ := sshtesting.WriteKeyPair(t, e.dir, name+"_rsa")
		h.Key = priv
	}
	e.app.cfg.Hosts[name] = h
	return h.Key
}
