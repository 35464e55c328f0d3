package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/vmprov/internal/host"
)

// DefaultProbeTimeout bounds each host's TCP probe.
const DefaultProbeTimeout = 3 * time.Second

// ProbeFunc measures how long a TCP connect to address takes.
type ProbeFunc func(ctx context.Context, address string, timeout time.Duration) (time.Duration, error)

// HostReachableCheck verifies a configured host accepts TCP connections
// on its SSH port.
type HostReachableCheck struct {
	HostName string
	Address  string // host:port
	Timeout  time.Duration
	// Probe defaults to host.ProbeTCP.
	Probe ProbeFunc
	// ResolveErr fails the check without probing.
	ResolveErr error
}

func (c *HostReachableCheck) Name() string     { return "host_" + c.HostName }
// CategoryHosts groups the checks that touch the network.
const CategoryHosts = "HOSTS"

func (c *HostReachableCheck) Category() string { return CategoryHosts }

func (c *HostReachableCheck) Run(ctx context.Context) CheckResult {
	if c.ResolveErr != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %v", c.HostName, c.ResolveErr),
			Suggestion: "Fix the host entry in your vmprov.yaml",
		}
	}

	probe := c.Probe
	if probe == nil {
		probe = host.ProbeTCP
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	latency, err := probe(ctx, c.Address, timeout)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s (%s): %v", c.HostName, c.Address, err),
			Suggestion: "Check the VM is running and its SSH port is open",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%s) reachable in %s", c.HostName, c.Address, latency.Round(time.Millisecond)),
	}
}

func (c *HostReachableCheck) Fix(ctx context.Context) error {
	return nil
}
