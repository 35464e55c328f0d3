package host

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/logger"
)

// Operation is a host-targeted action. Extra arguments travel in the closure.
type Operation func(ctx context.Context, host string) error

// Gate runs operations only against hosts that answer a ping.
type Gate struct {
	Pinger Pinger        // nil means ExecPinger{}
	Logger logger.Logger // nil means logger.Default()
}

// Run probes host and, if it answered, runs op and returns its result.
// When the probe fails op is never called and the error has ReasonProbe.
func (g Gate) Run(ctx context.Context, host string, op Operation) error {
	if err := g.Probe(ctx, host); err != nil {
		return err
	}
	return op(ctx, host)
}

// Probe sends one echo probe to host. It is the first half of Run for
// callers that want to decide themselves what to do next.
func (g Gate) Probe(ctx context.Context, host string) error {
	log := logger.OrDefault(g.Logger)

	pinger := g.Pinger
	if pinger == nil {
		pinger = ExecPinger{}
	}

	if err := pinger.Ping(ctx, host); err != nil {
		log.Error("%s is unreachable: %v", host, err)
		return errors.WrapWithCode(err, errors.ErrProbe,
			fmt.Sprintf("'%s' didn't answer a ping", host),
			probeSuggestion(err)).
			WithReason(errors.ReasonProbe)
	}

	log.Info("%s is reachable", host)
	return nil
}

func probeSuggestion(err error) string {
	var probeErr *ProbeError
	if !stderrors.As(err, &probeErr) {
		return "Check the VM is running and on your network."
	}
	switch probeErr.Reason {
	case ProbeFailTool:
		return "Couldn't run ping. Make sure it's installed and on your PATH."
	case ProbeFailUnknownHost:
		return "The name didn't resolve. Check the spelling or use an IP address."
	case ProbeFailTimeout:
		return "No reply in time. The VM might be down or ICMP is filtered; try: vmprov ping --tcp <host>"
	default:
		return "Check the VM is running and on your network. If ICMP is blocked, try: vmprov ping --tcp <host>"
	}
}
