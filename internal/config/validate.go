package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/errors"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but vmprov only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest vmprov release")
	}

	if strings.TrimSpace(cfg.KeyPath) == "" {
		return errors.New(errors.ErrConfig,
			"key_path is empty",
			fmt.Sprintf("Set key_path, or remove it to use the default %s", DefaultKeyPath))
	}

	switch cfg.Keygen.Backend {
	case "", BackendSSHKeygen, BackendNative:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown keygen backend '%s'", cfg.Keygen.Backend),
			fmt.Sprintf("Use '%s' or '%s'", BackendSSHKeygen, BackendNative))
	}

	if cfg.ConnectTimeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("connect_timeout can't be negative (got %s)", cfg.ConnectTimeout),
			"Use 0 to wait indefinitely, or something like '10s'")
	}

	if err := validateLog(cfg.Log); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'log' section in your vmprov.yaml.")
	}

	for name, h := range cfg.Hosts {
		if err := validateHostReference(name); err != nil {
			return err
		}
		if err := validateHost(name, h); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'hosts' section in your vmprov.yaml.")
		}
	}

	return nil
}

func validateLog(l LogConfig) error {
	if l.Level != "" && !validLogLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("log.level '%s' isn't valid, use debug, info, warn, or error", l.Level)
	}
	if l.Format != "" && !validLogFormats[strings.ToLower(l.Format)] {
		return fmt.Errorf("log.format '%s' isn't valid, use text or json", l.Format)
	}
	return nil
}

// validateHostReference checks that a host name is a plain identifier.
func validateHostReference(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrConfig,
			"Host names can't be empty",
			"Give the host a name like 'dev-vm'")
	}
	if strings.ContainsAny(name, "@/: \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' looks like an address", name),
			"Host names are labels. Put the address under the host's 'host' field.")
	}
	return nil
}

func validateHost(name string, h Host) error {
	if strings.TrimSpace(h.Host) == "" {
		return fmt.Errorf("host '%s' has no address", name)
	}
	if strings.HasPrefix(strings.TrimSpace(h.Host), "-") {
		return fmt.Errorf("host '%s' has address '%s', which can't start with '-'", name, h.Host)
	}
	if strings.HasPrefix(h.User, "-") {
		return fmt.Errorf("host '%s' has user '%s', which can't start with '-'", name, h.User)
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("host '%s' has port %d, which is out of range", name, h.Port)
	}
	return nil
}
