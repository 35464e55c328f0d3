package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
)

// Resolved is everything needed to talk to one host.
type Resolved struct {
	// Name is the config entry name, or "" for an ad-hoc address.
	Name       string
	Target     sshutil.Target
	KeyPath    string
	PubKeyPath string
	RemoteDir  string
}

// Resolve turns a host name from the config, or an ad-hoc address such as
// ubuntu@10.0.0.5:2222, into a dialable target. Aliases from the SSH config
// are resolved last. Local paths come back with ~ expanded.
func (c *Config) Resolve(nameOrAddr string) (Resolved, error) {
	var r Resolved

	if h, name, ok := c.LookupHost(nameOrAddr); ok {
		t, err := sshutil.ParseTarget(h.Host)
		if err != nil {
			return r, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Host '%s' has an invalid address '%s'", name, h.Host),
				"Fix the 'host' field in your vmprov.yaml")
		}
		if h.Port != 0 {
			t.Port = h.Port
		}
		if h.User != "" {
			t.User = h.User
		}
		r = Resolved{
			Name:       name,
			Target:     t,
			KeyPath:    h.Key,
			PubKeyPath: h.PubKey,
			RemoteDir:  h.RemoteDir,
		}
	} else {
		t, err := sshutil.ParseTarget(nameOrAddr)
		if err != nil {
			return r, err
		}
		r.Target = t
	}

	if r.KeyPath == "" {
		r.KeyPath = c.KeyPath
	}
	if r.KeyPath == "" {
		r.KeyPath = DefaultKeyPath
	}
	r.KeyPath = ExpandTilde(r.KeyPath)
	if r.PubKeyPath == "" {
		r.PubKeyPath = r.KeyPath + ".pub"
	}
	r.PubKeyPath = ExpandTilde(r.PubKeyPath)

	r.Target = sshutil.ResolveTarget(r.Target, ExpandTilde(c.SSHConfig))
	return r, nil
}

// LookupHost finds a configured host by name, ignoring case.
func (c *Config) LookupHost(name string) (Host, string, bool) {
	if h, ok := c.Hosts[name]; ok {
		return h, name, true
	}
	for n, h := range c.Hosts {
		if strings.EqualFold(n, name) {
			return h, n, true
		}
	}
	return Host{}, "", false
}

// HostNames returns the configured host names, sorted.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuggestHost returns configured names close to a mistyped one.
func (c *Config) SuggestHost(name string) []string {
	return util.SuggestSimilar(name, c.HostNames(), 3)
}
