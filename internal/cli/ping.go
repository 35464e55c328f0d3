package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/vmprov/internal/doctor"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/spf13/cobra"
)

// PingResult is the --json output of ping.
type PingResult struct {
	Host      string  `json:"host"`
	Address   string  `json:"address"`
	Method    string  `json:"method"`
	Reachable bool    `json:"reachable"`
	LatencyMS float64 `json:"latency_ms"`
}

func pingCommand(cmd *cobra.Command, hostArg string, tcp bool, timeoutFlag string) error {
	timeout, err := ParseProbeTimeout(timeoutFlag)
	if err != nil {
		return err
	}

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

	res := PingResult{Host: hostLabel(r), Address: r.Target.Host, Method: "icmp"}
	var latency time.Duration

	if tcp {
		res.Method = "tcp"
		res.Address = r.Target.Address()
		if timeout == 0 {
			timeout = a.cfg.ConnectTimeout
		}
		if timeout == 0 {
			timeout = doctor.DefaultProbeTimeout
		}
		latency, err = a.probe(ctx, res.Address, timeout)
		if err != nil {
			err = errors.WrapWithCode(err, errors.ErrProbe,
				fmt.Sprintf("'%s' didn't accept a connection on %s", res.Host, res.Address),
				"Check sshd is running and the port is open").
				WithReason(errors.ReasonProbe)
		}
	} else {
		start := time.Now()
		err = a.gate().Probe(ctx, r.Target.Host)
		latency = time.Since(start)
	}

	if err != nil {
		if !machineMode {
			fmt.Fprintf(out, "%s %s\n", failMark(), res.Address)
		}
		return err
	}

	res.Reachable = true
	res.LatencyMS = float64(latency.Microseconds()) / 1000
	if machineMode {
		return WriteJSONSuccess(out, res)
	}
	fmt.Fprintf(out, "%s %s is up (%s, %s)\n", okMark(), res.Address, res.Method, latency.Round(time.Millisecond))
	return nil
}
