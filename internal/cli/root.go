package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/schema-sync/internal/config"
	"github.com/mvp-joe/schema-sync/internal/workspace"
)

var (
	rootDir string
	envFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemasync",
	Short: "Keep DBML schema files and schema diagrams in sync",
	Long: `schemasync keeps a DBML schema text and its diagram (tables as nodes,
relationships as edges) consistent in both directions.

Edits to the text are parsed by an external parser and projected onto the
diagram; edits to the diagram are validated, converted back and re-rendered
as text. Diagrams are persisted to local files, a SQL database or a remote
schemasync server.

Configuration is read from .schemasync/config.yml in the workspace root and
SCHEMASYNC_* environment variables. A .env file in the working directory is
loaded first when present.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "workspace root (default: nearest directory with .schemasync or .git)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadEnv loads the env file without overriding variables already set.
func loadEnv(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		if verbose {
			log.Printf("Loaded environment from %s", envFile)
		}
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", envFile, err)
}

// openWorkspace resolves the workspace root and loads its configuration.
func openWorkspace() (*workspace.Workspace, *config.Config, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		if root, err = workspace.FindRoot(wd); err != nil {
			return nil, nil, err
		}
	}

	ws, err := workspace.New(root)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfigFromDir(ws.Root())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		log.Printf("Workspace: %s", ws.Root())
	}
	return ws, cfg, nil
}
