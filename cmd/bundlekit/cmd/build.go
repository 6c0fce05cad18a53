package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the configured entry points",
	Long: `Validates the configuration, bundles every entry point with esbuild into
output.path and runs the declared post-build plugins in order.
Exit non-zero if the configuration is invalid or the build fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, err := newEngine(cfg, newLogger())
		if err != nil {
			return err
		}

		result, err := eng.Build(cmd.Context())
		if err != nil {
			return err
		}

		for _, w := range result.Warnings {
			warnf("%s", w)
		}
		for _, f := range result.Files {
			size := ""
			if st, err := os.Stat(filepath.Join(cfg.Output.Path, filepath.FromSlash(f))); err == nil {
				size = humanSize(st.Size())
			}
			info("  %-40s %s", f, dimColor.Sprint(size))
		}
		info("")
		success("Built %d file(s) into %s in %s", len(result.Files), cfg.Output.Path, result.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
