package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags at build time.
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

type buildInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

var versionOutput string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the schemasync version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(versionOutput, true); err != nil {
			return err
		}
		return printVersion(cmd.OutOrStdout(), versionOutput, currentBuild())
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", formatText, "output format: text, json or yaml")
	rootCmd.AddCommand(versionCmd)
}

// currentBuild falls back to the module version when no ldflags were set,
// which is the case for "go install".
func currentBuild() buildInfo {
	info := buildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if info.Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	return info
}

func printVersion(w io.Writer, format string, info buildInfo) error {
	if format != formatText {
		return writeOutput(w, format, info)
	}
	fmt.Fprintf(w, "schemasync %s\n", info.Version)
	fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build date: %s\n", info.BuildDate)
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
	return nil
}
