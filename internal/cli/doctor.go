package cli

import (
	"fmt"
	"os"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/doctor"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/host"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/setup"
	"github.com/rileyhilliard/vmprov/internal/ui"
	"github.com/spf13/cobra"
)

var (
	doctorFix     bool
	doctorNoHosts bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check this machine is ready to provision VMs",
	Long: `Run diagnostics on the config, local tools, the key pair, and every
configured host.

With --fix, vmprov generates a missing key pair and tightens key file
permissions.

Examples:
  vmprov doctor
  vmprov doctor --fix
  vmprov doctor --no-hosts --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd, doctorFix, doctorNoHosts)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	doctorCmd.Flags().BoolVar(&doctorNoHosts, "no-hosts", false, "skip host reachability checks")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(cmd *cobra.Command, fix, noHosts bool) error {
	a, err := newApp(cmd)
	if err != nil {
		// A broken config is one of the things doctor reports.
		a = fallbackApp()
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	checks := doctor.Build(doctor.Options{
		ConfigPath:  cfgFile,
		Config:      a.cfg,
		Provisioner: setup.Provisioner{Generator: a.keygen, Logger: logger.New("keys")},
		Probe:       a.probe,
		SkipHosts:   noHosts,
	})

	results := doctor.RunChecks(ctx, checks)
	if fix {
		var fixErr error
		results, fixErr = doctor.FixAll(ctx, checks, results)
		if fixErr != nil {
			a.log.Warn("Some fixes failed: %v", fixErr)
		}
	}

	if machineMode {
		if err := WriteJSONSuccess(out, doctorOutput(checks, results)); err != nil {
			return err
		}
	} else {
		writeDoctorText(cmd, checks, results, fix)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// fallbackApp runs on built-in defaults when the config can't be loaded.
func fallbackApp() *app {
	return &app{
		cfg:    config.DefaultConfig(),
		log:    logger.Default(),
		keygen: setup.SSHKeygen{},
		probe:  host.ProbeTCP,
		exit:   os.Exit,
	}
}

func doctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := make(map[string][]doctor.CheckResult)
	var order []string
	for i, c := range checks {
		cat := c.Category()
		if _, ok := grouped[cat]; !ok {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], results[i])
	}

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(order))}
	for _, cat := range order {
		output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: grouped[cat]})
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func writeDoctorText(cmd *cobra.Command, checks []doctor.Check, results []doctor.CheckResult, fixed bool) {
	out := cmd.OutOrStdout()

	rows := make([]ui.DoctorCheckRow, len(results))
	for i, r := range results {
		rows[i] = ui.DoctorCheckRow{
			Status:     r.Status.String(),
			Category:   checks[i].Category(),
			Message:    r.Message,
			Suggestion: r.Suggestion,
		}
	}
	fmt.Fprintln(out, ui.RenderDoctorTable(rows))

	summary := doctor.Summary(results)
	if !doctor.HasIssues(results) {
		fmt.Fprintln(out, ui.SuccessStyle().Render(summary))
		return
	}
	fmt.Fprintln(out, ui.WarningStyle().Render(summary))
	if n := doctor.FixableCount(results); n > 0 && !fixed {
		fmt.Fprintf(out, "\nRun 'vmprov doctor --fix' to fix %d of them.\n", n)
	}
}
