package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/host"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/setup"
	"github.com/rileyhilliard/vmprov/internal/ui"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
	"github.com/spf13/cobra"
)

// app holds what a command needs to touch the outside world. Commands get
// it from newApp so tests can swap in fakes.
type app struct {
	cfg     *config.Config
	cfgPath string // "" when running on defaults
	log     logger.Logger

	dial    sshutil.DialFunc
	pinger  host.Pinger
	prompt  setup.Prompter
	keygen  setup.KeyGenerator
	probe   func(ctx context.Context, address string, timeout time.Duration) (time.Duration, error)
	pick    func(hosts []ui.HostInfo) (*ui.HostInfo, error)
	confirm func(title string) (bool, error)
	exit    func(code int)

	// interactive is true when a person is at the terminal and --json is off.
	interactive bool
}

var newApp = loadApp

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, cfgPath, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	if err := logger.Init(logger.Options{Level: level, Format: format}); err != nil {
		return nil, err
	}
	log := logger.New("cli")

	sshutil.WarningHandler = func(msg string) { log.Warn("%s", msg) }

	hostKeys, err := sshutil.HostKeyCallback(cfg.StrictHostKeyChecking, config.ExpandTilde(cfg.KnownHosts))
	if err != nil {
		return nil, err
	}
	gen, err := setup.GeneratorFor(cfg.Keygen.Backend)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     log,
		dial: sshutil.Dialer(sshutil.DialOptions{
			Timeout:         cfg.ConnectTimeout,
			HostKeyCallback: hostKeys,
		}),
		pinger:      host.ExecPinger{},
		prompt:      setup.TerminalPrompter{},
		keygen:      gen,
		probe:       host.ProbeTCP,
		pick:        ui.PickHost,
		confirm:     huhConfirm,
		exit:        os.Exit,
		interactive: !machineMode && ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout),
	}, nil
}

func (a *app) provisioner() setup.Provisioner {
	return setup.Provisioner{Generator: a.keygen, Logger: logger.New("keys"), Exit: a.exit}
}

func (a *app) gate() host.Gate {
	return host.Gate{Pinger: a.pinger, Logger: logger.New("probe")}
}

func (a *app) installer() setup.Installer {
	return setup.Installer{Dial: a.dial, Prompt: a.prompt, Logger: logger.New("copy-key")}
}

func (a *app) transferrer() setup.Transferrer {
	return setup.Transferrer{Dial: a.dial, Logger: logger.New("push")}
}

// spinner returns a step indicator on w, or a silent one in --json mode.
func (a *app) spinner(w io.Writer, label string) *ui.Spinner {
	if machineMode {
		w = io.Discard
	}
	return ui.NewSpinnerTo(w, label)
}

// keyPath is the key from --key when given, else the configured one.
func (a *app) keyPath(flag string) string {
	if flag != "" {
		return config.ExpandTilde(flag)
	}
	return config.ExpandTilde(a.cfg.KeyPath)
}

// ensureKey runs the key-pair provisioner. A failure is fatal: the process
// exits 1 through a.exit. When a.exit returns (tests), the failure comes
// back as an ExitError.
func (a *app) ensureKey(ctx context.Context, w io.Writer, path string) error {
	sp := a.spinner(w, "Key pair "+path)
	sp.Start()

	failed := false
	p := a.provisioner()
	p.Exit = func(code int) {
		failed = true
		sp.Fail()
		a.exit(code)
	}
	p.MustEnsure(ctx, path)
	if failed {
		return errors.NewExitError(1)
	}
	sp.Success()
	return nil
}

// resolveHost turns a host argument into a target. With no argument it
// offers a picker on a terminal, and errors otherwise.
func (a *app) resolveHost(arg string) (config.Resolved, error) {
	if arg == "" {
		if !a.interactive {
			return config.Resolved{}, errors.New(errors.ErrConfig,
				"No host given",
				"Pass a host name from vmprov.yaml or an address like user@10.0.0.5")
		}
		picked, err := a.pick(a.pickableHosts())
		if err != nil {
			return config.Resolved{}, err
		}
		if picked == nil {
			return config.Resolved{}, errors.New(errors.ErrConfig, "No host selected", "")
		}
		arg = picked.Name
	}

	r, err := a.cfg.Resolve(arg)
	if err != nil {
		if similar := a.cfg.SuggestHost(arg); len(similar) > 0 {
			return r, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Couldn't resolve host '%s'", arg),
				fmt.Sprintf("Did you mean: %s?", similar[0]))
		}
		return r, err
	}
	return r, nil
}

// pickableHosts lists configured hosts first, then ~/.ssh/config aliases
// that don't shadow one.
func (a *app) pickableHosts() []ui.HostInfo {
	var hosts []ui.HostInfo
	seen := make(map[string]bool)

	for _, name := range a.cfg.HostNames() {
		h := a.cfg.Hosts[name]
		hosts = append(hosts, ui.HostInfo{
			Name:    name,
			Address: h.Host,
			User:    h.User,
			Source:  ui.SourceConfig,
		})
		seen[name] = true
	}

	sshConfig := config.ExpandTilde(a.cfg.SSHConfig)
	if sshConfig == "" {
		sshConfig = sshutil.DefaultSSHConfigPath()
	}
	entries, err := sshutil.ParseSSHConfigFile(sshConfig)
	if err != nil {
		a.log.Debug("Skipping ssh config hosts: %v", err)
		return hosts
	}
	for _, e := range entries {
		if seen[e.Alias] {
			continue
		}
		hosts = append(hosts, ui.HostInfo{
			Name:    e.Alias,
			Address: e.Hostname,
			User:    e.User,
			Source:  ui.SourceSSH,
		})
		seen[e.Alias] = true
	}
	return hosts
}
