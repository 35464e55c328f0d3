package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/ui"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile   string
	verbose   bool
	logFormat string
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:   "vmprov",
	Short: "Get fresh VMs ready for SSH automation",
	Long: `vmprov prepares virtual machines for automated access over SSH.

It generates a local key pair, installs the public key on each VM (falling
back to a password login the first time), and pushes setup scripts over.
Every step checks the VM answers a ping before connecting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch colorMode {
		case ui.ColorAuto, ui.ColorAlways, ui.ColorNever:
		default:
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown color mode '%s'", colorMode),
				"Use auto, always, or never")
		}
		ui.SetColorMode(colorMode)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./vmprov.yaml, then ~/.config/vmprov/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug detail to stderr")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", ui.ColorAuto, "color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print results as JSON")
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	if machineMode {
		_ = WriteJSONFromError(os.Stdout, err)
		return 1
	}

	if isUnknownCommandError(err) {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle().Render(ui.SymbolFail)+" "+err.Error())
		if name := extractUnknownCommand(err); name != "" {
			if similar := util.SuggestSimilar(name, commandNames(), 2); len(similar) > 0 {
				fmt.Fprintf(os.Stderr, "\n  Did you mean: %s?\n", strings.Join(similar, ", "))
			}
		}
		fmt.Fprintln(os.Stderr, "\n  Run 'vmprov --help' for the list of commands.")
		return 1
	}

	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(os.Stderr, msg)
	return 1
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if !c.Hidden {
			names = append(names, c.Name())
		}
	}
	return names
}

// isUnknownCommandError reports whether cobra rejected the command line
// itself rather than a command failing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls "foo" out of `unknown command "foo" for "vmprov"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
