package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rileyhilliard/vmprov/internal/util"
)

// ProbeError represents a failed probe with categorized failure reason.
type ProbeError struct {
	Host   string
	Reason ProbeFailReason
	Cause  error
}

// ProbeFailReason categorizes why a probe failed.
type ProbeFailReason int

const (
	ProbeFailUnknown ProbeFailReason = iota
	ProbeFailTimeout
	ProbeFailRefused
	ProbeFailUnreachable
	ProbeFailUnknownHost
	ProbeFailTool
)

// String returns a human-readable description of the failure reason.
func (r ProbeFailReason) String() string {
	switch r {
	case ProbeFailTimeout:
		return "connection timed out"
	case ProbeFailRefused:
		return "connection refused"
	case ProbeFailUnreachable:
		return "host unreachable"
	case ProbeFailUnknownHost:
		return "unknown host"
	case ProbeFailTool:
		return "probe tool failed"
	default:
		return "unknown error"
	}
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Host, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Host, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Pinger sends a single echo probe to a host.
type Pinger interface {
	Ping(ctx context.Context, host string) error
}

// ExecPinger probes with the host OS ping binary, one packet per call.
type ExecPinger struct {
	// Run executes ping. Nil means util.ExecRunner.
	Run util.Runner
	// GOOS selects the packet-count flag. Empty means runtime.GOOS.
	GOOS string
}

// Args returns the ping arguments for host.
func (p ExecPinger) Args(host string) []string {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return []string{"-n", "1", host}
	}
	return []string{"-c", "1", host}
}

// Ping runs ping once. A non-zero exit means no reply; a ping that
// couldn't be started is a ProbeFailTool error.
func (p ExecPinger) Ping(ctx context.Context, host string) error {
	run := p.Run
	if run == nil {
		run = util.ExecRunner
	}

	out, err := run(ctx, "ping", p.Args(host)...)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		detail := strings.TrimSpace(string(out))
		cause := fmt.Errorf("ping exited with status %d", exitErr.ExitCode())
		if detail != "" {
			cause = fmt.Errorf("ping exited with status %d: %s", exitErr.ExitCode(), lastLine(detail))
		}
		probeErr := categorizeProbeError(host, cause)
		if probeErr.Reason == ProbeFailUnknown {
			probeErr.Reason = ProbeFailUnreachable
		}
		return probeErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ProbeError{Host: host, Reason: ProbeFailTimeout, Cause: ctxErr}
	}
	return &ProbeError{Host: host, Reason: ProbeFailTool, Cause: err}
}

// ProbeTCP performs only a TCP connection test without SSH handshake.
// Useful for quick reachability checks when ICMP is filtered.
func ProbeTCP(ctx context.Context, address string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return 0, categorizeProbeError(address, err)
	}
	defer conn.Close()

	return time.Since(start), nil
}

// categorizeProbeError converts a generic error into a ProbeError with
// a categorized failure reason.
func categorizeProbeError(host string, err error) *ProbeError {
	if err == nil {
		return nil
	}

	probeErr := &ProbeError{
		Host:   host,
		Reason: ProbeFailUnknown,
		Cause:  err,
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		probeErr.Reason = ProbeFailTimeout
	case strings.Contains(errStr, "connection refused"):
		probeErr.Reason = ProbeFailRefused
	case strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "host is down") ||
		strings.Contains(errStr, "unreachable"):
		probeErr.Reason = ProbeFailUnreachable
	case strings.Contains(errStr, "unknown host") ||
		strings.Contains(errStr, "name or service not known") ||
		strings.Contains(errStr, "cannot resolve") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "could not find host"):
		probeErr.Reason = ProbeFailUnknownHost
	}

	return probeErr
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i != -1 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
