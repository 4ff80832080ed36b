package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/schema-sync/internal/config"
	"github.com/mvp-joe/schema-sync/internal/workspace"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create the .schemasync directory and a default config",
	Long: `Init creates .schemasync/ in dir (default: current directory) with a
config.yml holding the default settings. An existing config is kept unless
--force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config.yml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := firstArg(args)
	if dir == "" {
		dir = "."
	}
	ws, err := workspace.New(dir)
	if err != nil {
		return err
	}

	written, err := initWorkspace(ws, initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if written {
		color.New(color.FgGreen).Fprintf(out, "Wrote %s\n", ws.ConfigPath())
	} else {
		color.New(color.FgYellow).Fprintf(out, "Keeping existing %s (use --force to overwrite)\n", ws.ConfigPath())
	}
	return nil
}

// initWorkspace creates the state directories and writes the default config.
// It reports whether the config file was written.
func initWorkspace(ws *workspace.Workspace, force bool) (bool, error) {
	if err := ws.Init(); err != nil {
		return false, err
	}

	if !force {
		if _, err := os.Stat(ws.ConfigPath()); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return false, fmt.Errorf("failed to encode default config: %w", err)
	}
	header := []byte("# schemasync configuration. Environment variables SCHEMASYNC_<SECTION>_<KEY> override these values.\n")
	if err := os.WriteFile(ws.ConfigPath(), append(header, data...), 0644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
