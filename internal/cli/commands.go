package cli

import (
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	keygenKeyFlag     string
	pingTCPFlag       bool
	pingTimeoutFlag   string
	pushNameFlag      string
	provisionNameFlag string
	initForce         bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Make sure the local key pair exists",
	Long: `Generate a 2048-bit RSA key pair with an empty passphrase.

If anything already exists at the key path it is left alone. If generation
fails vmprov exits with status 1: nothing else works without a key.

Examples:
  vmprov keygen
  vmprov keygen --key ~/.ssh/lab_rsa`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keygenCommand(cmd, keygenKeyFlag)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping [host]",
	Short: "Check a VM answers a single ping",
	Long: `Send one ICMP echo to the VM and report whether it answered.

With --tcp, connect to the SSH port instead, which works where ICMP is
filtered. With no host on a terminal, pick one from vmprov.yaml and
~/.ssh/config.

Examples:
  vmprov ping web1
  vmprov ping 10.0.0.5
  vmprov ping web1 --tcp --timeout 2s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pingCommand(cmd, optionalArg(args), pingTCPFlag, pingTimeoutFlag)
	},
}

var copyKeyCmd = &cobra.Command{
	Use:   "copy-key [host]",
	Short: "Install the public key on a VM",
	Long: `Append the local public key to ~/.ssh/authorized_keys on the VM.

vmprov logs in with the key first. Only if the VM rejects the key does it
ask for a password and retry over a password login. The VM must answer a
ping first. Running it twice adds the key twice.

Examples:
  vmprov copy-key web1
  vmprov copy-key ubuntu@10.0.0.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return copyKeyCommand(cmd, optionalArg(args))
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <host> <script> [remote-path]",
	Short: "Copy a script to a VM and make it executable",
	Long: `Copy a local file to the VM over scp, then chmod +x it.

Only key authentication is used. A remote path ending in / is a directory;
the default is the host's remote_dir, else the login directory. A leading
~/ means the login directory too. If the copy fails, chmod is not run.

Examples:
  vmprov push web1 ./bootstrap.sh
  vmprov push web1 ./bootstrap.sh /opt/setup/
  vmprov push web1 ./bootstrap.sh /opt/ --name init.sh`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pushCommand(cmd, args[0], args[1], argAt(args, 2), pushNameFlag)
	},
}

var provisionCmd = &cobra.Command{
	Use:   "provision <host> <script> [remote-path]",
	Short: "Key pair, copy-key, and push in one go",
	Long: `Run the whole setup against one VM: make sure the key pair exists,
install the public key, then push the script and make it executable.

Each remote step only runs if the VM answers a ping. The first failure
stops the rest.

Examples:
  vmprov provision web1 ./bootstrap.sh
  vmprov provision ubuntu@10.0.0.5 ./bootstrap.sh /tmp/`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return provisionCommand(cmd, args[0], args[1], argAt(args, 2), provisionNameFlag)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter vmprov.yaml",
	Long: `Create vmprov.yaml in the current directory with every setting
commented.

Examples:
  vmprov init
  vmprov init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd, initForce)
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenKeyFlag, "key", "", "private key path (default from config)")

	pingCmd.Flags().BoolVar(&pingTCPFlag, "tcp", false, "probe the SSH port instead of ICMP")
	pingCmd.Flags().StringVar(&pingTimeoutFlag, "timeout", "", "TCP probe timeout (e.g., 2s, 500ms)")

	pushCmd.Flags().StringVar(&pushNameFlag, "name", "", "remote file name (default: local base name)")
	provisionCmd.Flags().StringVar(&provisionNameFlag, "name", "", "remote file name (default: local base name)")

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing vmprov.yaml")

	rootCmd.AddCommand(keygenCmd, pingCmd, copyKeyCmd, pushCmd, provisionCmd, initCmd)
}

func optionalArg(args []string) string {
	return argAt(args, 0)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
