package sshutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/errors"
)

// DefaultPort is used when neither the target nor ~/.ssh/config names a port.
const DefaultPort = 22

// Target identifies one remote host for a single call. It is an input, never stored.
type Target struct {
	Host string
	Port int // 0 means "resolve from ssh config, else 22"
	User string
}

// ParseTarget parses host, user@host, host:port, user@host:port and
// [v6addr]:port forms.
func ParseTarget(s string) (Target, error) {
	var t Target
	s = strings.TrimSpace(s)
	if s == "" {
		return t, errors.New(errors.ErrConfig,
			"No host given",
			"Pass a host like vm1, 10.0.0.5, or ubuntu@10.0.0.5:2222")
	}

	if at := strings.LastIndex(s, "@"); at != -1 {
		t.User = s[:at]
		s = s[at+1:]
	}

	if host, port, err := net.SplitHostPort(s); err == nil {
		p, convErr := strconv.Atoi(port)
		if convErr != nil || p < 1 || p > 65535 {
			return Target{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' isn't a valid port", port),
				"Ports are numbers between 1 and 65535")
		}
		t.Host = host
		t.Port = p
	} else {
		// Bare IPv6 literals contain colons but no port.
		t.Host = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}

	if t.Host == "" {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No hostname in '%s'", s),
			"Pass a host like vm1, 10.0.0.5, or ubuntu@10.0.0.5:2222")
	}
	// ping and ssh would read it as an option.
	if strings.HasPrefix(t.Host, "-") || strings.HasPrefix(t.User, "-") {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' can't start with '-'", s),
			"Pass a host like vm1, 10.0.0.5, or ubuntu@10.0.0.5:2222")
	}
	return t, nil
}

// Address returns the host:port string for dialing.
func (t Target) Address() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// String renders user@host:port, omitting the parts that are unset.
func (t Target) String() string {
	s := t.Host
	if t.Port != 0 {
		s = t.Address()
	}
	if t.User != "" {
		s = t.User + "@" + s
	}
	return s
}
