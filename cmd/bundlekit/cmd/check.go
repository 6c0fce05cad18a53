package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/spf13/cobra"
)

var checkManifest string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that build output matches the manifest",
	Long: `Hashes every file recorded in the build manifest and compares it against
the recorded digest. Reports drifted and missing files.
Exit 0 if everything matches; exit non-zero on drift. Suitable for CI pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := checkManifest
		if path == "" {
			path = filepath.Join(cfg.Output.Path, manifestName(cfg))
		}

		m, err := manifest.Load(path)
		if err != nil {
			return err
		}

		result, err := manifest.Check(cfg.Output.Path, m)
		if err != nil {
			return err
		}

		if result.Clean {
			success("All %d file(s) match %s.", len(m.Files), path)
			return nil
		}

		for _, d := range result.Drifted {
			info("  %s  %s", warnColor.Sprint("drifted"), d.Path)
			detail("expected: %s", d.Expected)
			detail("actual:   %s", d.Actual)
		}
		for _, p := range result.Missing {
			info("  %s  %s", errorColor.Sprint("missing"), p)
		}

		total := len(result.Drifted) + len(result.Missing)
		return fmt.Errorf("check failed: %d file(s) out of sync", total)
	},
}

// manifestName returns the filename of the first manifest plugin.
func manifestName(cfg *config.Config) string {
	for _, p := range cfg.Plugins {
		if p.Kind == config.PluginManifest {
			if name := p.String("filename"); name != "" {
				return name
			}
		}
	}
	return config.DefaultManifestFilename
}

func init() {
	checkCmd.Flags().StringVar(&checkManifest, "manifest", "", "manifest path (default: the manifest plugin's file in output.path)")
	rootCmd.AddCommand(checkCmd)
}
