package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/ui"
	"github.com/spf13/cobra"
)

func initCommand(cmd *cobra.Command, force bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	path := cfgFile
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't get the current directory", "")
		}
		path = filepath.Join(cwd, config.ConfigFileName)
	}

	// Without a terminal, WriteStarter refuses to overwrite on its own.
	if _, err := os.Stat(path); err == nil && !force && a.interactive {
		ok, err := a.confirm(fmt.Sprintf("%s already exists. Overwrite it?", path))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Left the existing config alone.")
			return nil
		}
		force = true
	}

	if err := config.WriteStarter(path, force); err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, map[string]string{"config_path": path})
	}
	fmt.Fprintf(out, "%s Wrote %s\n", okMark(), path)
	fmt.Fprintln(out, "\nNext:")
	fmt.Fprintln(out, "  vmprov host add web1 ubuntu@10.0.0.5")
	fmt.Fprintln(out, "  vmprov provision web1 ./bootstrap.sh")
	return nil
}

// huhConfirm asks a yes/no question on the terminal, defaulting to no.
func huhConfirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your answer",
			"Pass --force, or run again in a terminal")
	}
	return ok, nil
}

func okMark() string {
	return ui.SuccessStyle().Render(ui.SymbolSuccess)
}

func failMark() string {
	return ui.ErrorStyle().Render(ui.SymbolFail)
}
