package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/doctor"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/ui"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
	"github.com/spf13/cobra"
)

// HostAddOptions holds the flags for host add.
type HostAddOptions struct {
	Port      int
	User      string
	Key       string
	PubKey    string
	RemoteDir string
}

var (
	hostAddOpts   HostAddOptions
	hostListCheck bool
	hostRemoveYes bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage the VMs in vmprov.yaml",
	Long: `Add, list, and remove named hosts so commands can refer to a VM by name.

Examples:
  vmprov host add web1 ubuntu@10.0.0.5
  vmprov host list --check
  vmprov host remove web1`,
}

var hostAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add or replace a host",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostAdd(cmd, args[0], args[1], hostAddOpts)
	},
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostList(cmd, hostListCheck)
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a host",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRemove(cmd, optionalArg(args), hostRemoveYes)
	},
}

func init() {
	hostAddCmd.Flags().IntVar(&hostAddOpts.Port, "port", 0, "SSH port (default 22)")
	hostAddCmd.Flags().StringVar(&hostAddOpts.User, "user", "", "login user (overrides user@ in the address)")
	hostAddCmd.Flags().StringVar(&hostAddOpts.Key, "key", "", "private key for this host")
	hostAddCmd.Flags().StringVar(&hostAddOpts.PubKey, "pub-key", "", "public key for this host (default <key>.pub)")
	hostAddCmd.Flags().StringVar(&hostAddOpts.RemoteDir, "remote-dir", "", "default destination directory for push")

	hostListCmd.Flags().BoolVar(&hostListCheck, "check", false, "probe each host's SSH port")

	hostRemoveCmd.Flags().BoolVarP(&hostRemoveYes, "yes", "y", false, "don't ask for confirmation")

	hostCmd.AddCommand(hostAddCmd, hostListCmd, hostRemoveCmd)
	rootCmd.AddCommand(hostCmd)
}

// writablePath is the config file host edits go to: the loaded one, else
// ./vmprov.yaml.
func (a *app) writablePath() (string, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	if cfgFile != "" {
		return config.ExpandTilde(cfgFile), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig, "Couldn't get the current directory", "")
	}
	return filepath.Join(cwd, config.ConfigFileName), nil
}

func hostAdd(cmd *cobra.Command, name, address string, opts HostAddOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	h := config.Host{
		Host:      address,
		Port:      opts.Port,
		User:      opts.User,
		Key:       opts.Key,
		PubKey:    opts.PubKey,
		RemoteDir: opts.RemoteDir,
	}

	// Validate the same way loading would, before touching the file.
	if _, err := sshutil.ParseTarget(address); err != nil {
		return err
	}
	check := config.DefaultConfig()
	check.Hosts[name] = h
	if err := config.Validate(check); err != nil {
		return err
	}

	path, err := a.writablePath()
	if err != nil {
		return err
	}
	if err := config.SetHost(path, name, h); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if machineMode {
		return WriteJSONSuccess(out, map[string]string{"name": name, "host": address, "config_path": path})
	}
	fmt.Fprintf(out, "%s Added %s (%s) to %s\n", okMark(), name, address, path)
	return nil
}

// HostListEntry is one host in the --json output of host list.
type HostListEntry struct {
	Name      string   `json:"name"`
	Target    string   `json:"target"`
	KeyPath   string   `json:"key_path"`
	RemoteDir string   `json:"remote_dir,omitempty"`
	Reachable *bool    `json:"reachable,omitempty"`
	LatencyMS *float64 `json:"latency_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func hostList(cmd *cobra.Command, check bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	names := a.cfg.HostNames()

	entries := make([]HostListEntry, len(names))
	for i, name := range names {
		entries[i].Name = name
		r, err := a.cfg.Resolve(name)
		if err != nil {
			entries[i].Error = err.Error()
			continue
		}
		entries[i].Target = r.Target.String()
		entries[i].KeyPath = r.KeyPath
		entries[i].RemoteDir = r.RemoteDir
	}

	if check {
		a.probeAll(cmd, entries)
	}

	if machineMode {
		return WriteJSONSuccess(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No hosts configured. Add one with: vmprov host add <name> <address>")
		return nil
	}

	if check {
		rows := make([]ui.HostStatusRow, len(entries))
		for i, e := range entries {
			rows[i] = ui.HostStatusRow{Name: e.Name, Target: e.Target}
			switch {
			case e.Reachable != nil && *e.Reachable:
				rows[i].OK = true
				rows[i].Latency = fmt.Sprintf("%.0fms", *e.LatencyMS)
			case e.Error != "":
				rows[i].Latency = e.Error
			default:
				rows[i].Latency = "unreachable"
			}
		}
		fmt.Fprint(out, ui.RenderHostStatusTable(rows))
		return nil
	}

	columns := []ui.TableColumn{
		{Title: "HOST", Width: 16},
		{Title: "TARGET", Width: 32},
		{Title: "KEY", Width: 36},
		{Title: "REMOTE DIR", Width: 20},
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Name, e.Target, e.KeyPath, e.RemoteDir}
	}
	fmt.Fprintln(out, ui.RenderSimpleTable(columns, rows))
	return nil
}

// probeAll dials every host's SSH port concurrently and records the result.
func (a *app) probeAll(cmd *cobra.Command, entries []HostListEntry) {
	timeout := a.cfg.ConnectTimeout
	if timeout == 0 {
		timeout = doctor.DefaultProbeTimeout
	}

	var wg sync.WaitGroup
	for i := range entries {
		if entries[i].Error != "" {
			continue
		}
		wg.Add(1)
		go func(e *HostListEntry) {
			defer wg.Done()
			r, _ := a.cfg.Resolve(e.Name)
			latency, err := a.probe(cmd.Context(), r.Target.Address(), timeout)
			ok := err == nil
			e.Reachable = &ok
			if err != nil {
				e.Error = err.Error()
				return
			}
			ms := float64(latency.Microseconds()) / 1000
			e.LatencyMS = &ms
		}(&entries[i])
	}
	wg.Wait()
}

func hostRemove(cmd *cobra.Command, name string, yes bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if a.cfgPath == "" || len(a.cfg.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"No hosts configured",
			"Nothing to remove.")
	}

	if name == "" {
		if !a.interactive {
			return errors.New(errors.ErrConfig,
				"No host given",
				"Use: vmprov host remove <name>")
		}
		name, err = selectHost(a.cfg)
		if err != nil {
			return err
		}
	}

	_, canonical, ok := a.cfg.LookupHost(name)
	if !ok {
		suggestion := "Configured hosts: " + util.JoinOrNone(a.cfg.HostNames())
		if similar := a.cfg.SuggestHost(name); len(similar) > 0 {
			suggestion = fmt.Sprintf("Did you mean: %s?", similar[0])
		}
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' not found", name),
			suggestion)
	}
	name = canonical

	if !yes && a.interactive {
		ok, err := a.confirm(fmt.Sprintf("Remove host '%s'?", name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	removed, err := config.RemoveHost(a.cfgPath, name)
	if err != nil {
		return err
	}
	if !removed {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' isn't in %s", name, a.cfgPath),
			"It may come from an environment override")
	}

	if machineMode {
		return WriteJSONSuccess(out, map[string]string{"removed": name, "config_path": a.cfgPath})
	}
	fmt.Fprintf(out, "%s Removed %s\n", okMark(), name)
	return nil
}

// selectHost shows a picker of configured hosts.
func selectHost(cfg *config.Config) (string, error) {
	names := cfg.HostNames()
	options := make([]huh.Option[string], len(names))
	for i, n := range names {
		options[i] = huh.NewOption(n+" - "+cfg.Hosts[n].Host, n)
	}

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select host to remove").
				Options(options...).
				Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your selection",
			"Try again or use: vmprov host remove <name>")
	}
	return name, nil
}
