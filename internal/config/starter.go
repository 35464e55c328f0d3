package config

import (
	"os"
	"path/filepath"

	"github.com/rileyhilliard/vmprov/internal/errors"
)

const starterConfig = `# vmprov configuration
version: 1

# Private key used to log in to every VM. The public half is expected
# next to it with a .pub suffix. Created by 'vmprov keygen' if missing.
key_path: ~/.ssh/vmprov_rsa

keygen:
  # ssh-keygen shells out to OpenSSH; native generates the key in-process.
  backend: ssh-keygen

# Verify host keys against known_hosts. When false, any host key is accepted.
strict_host_key_checking: false
known_hosts: ~/.ssh/known_hosts

# 0 waits indefinitely.
connect_timeout: 0

log:
  level: warn
  format: text

# Named VMs. 'host' may be an address or an alias from ~/.ssh/config.
hosts: {}
#  dev-vm:
#    host: 192.168.56.10
#    user: ubuntu
#    remote_dir: /opt/scripts/
`

// WriteStarter writes a commented starter config to path. An existing file
// is only replaced when force is set.
func WriteStarter(path string, force bool) error {
	path = ExpandTilde(path)
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			"Config already exists at "+path,
			"Use --force to overwrite it")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create "+dir,
				"Check directory permissions")
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path,
			"Check file permissions")
	}
	return nil
}
