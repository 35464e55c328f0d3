package doctor

import (
	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/setup"
)

// Options selects which checks Build returns.
type Options struct {
	ConfigPath  string
	Config      *config.Config
	Provisioner setup.Provisioner
	// Probe is handed to each host check; nil means host.ProbeTCP.
	Probe ProbeFunc
	// SkipHosts leaves out the per-host reachability checks.
	SkipHosts bool
}

// Build returns the checks for the current setup, grouped CONFIG, TOOLS,
// KEYS, HOSTS in that order.
func Build(opts Options) []Check {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	checks := []Check{
		&ConfigCheck{ConfigPath: opts.ConfigPath},
		&ToolCheck{
			Binary:     "ping",
			Purpose:    "check a VM is up before connecting",
			Suggestion: "Install iputils-ping (Debian/Ubuntu) or iputils (Fedora)",
		},
		&ToolCheck{
			Binary:     "ssh-keygen",
			Purpose:    "generate key pairs",
			Optional:   cfg.Keygen.Backend == config.BackendNative,
			Suggestion: "Install OpenSSH, or set keygen.backend: native",
		},
	}

	keyPath := config.ExpandTilde(cfg.KeyPath)
	checks = append(checks,
		&KeyPairCheck{KeyPath: keyPath, Provisioner: opts.Provisioner},
		&KeyPermissionsCheck{KeyPath: keyPath},
	)

	if opts.SkipHosts {
		return checks
	}

	for _, name := range cfg.HostNames() {
		r, err := cfg.Resolve(name)
		checks = append(checks, &HostReachableCheck{
			HostName:   name,
			Address:    r.Target.Address(),
			Timeout:    cfg.ConnectTimeout,
			Probe:      opts.Probe,
			ResolveErr: err,
		})
	}
	return checks
}
