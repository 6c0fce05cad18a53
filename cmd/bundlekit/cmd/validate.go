package cmd

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without building",
	Long: `Loads the configuration (and the mode overlay, if present), resolves paths,
applies defaults and reports every problem found: missing entry points or
templates, invalid ports, conflicting rules, unknown loaders and plugins.
Exit 0 if the configuration is valid; exit non-zero otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		success("%s is valid (mode: %s)", configPath, cfg.Mode)

		names := make([]string, 0, len(cfg.Entry))
		for name := range cfg.Entry {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			detail("entry   %-12s %s", name, cfg.Entry[name])
		}
		for i, r := range cfg.Module.Rules {
			what := r.Type
			if what == "" {
				what = strings.Join(r.Use.Loaders(), ", ")
			}
			detail("rule %d  %-12s %s", i, r.Test.String(), what)
		}
		for _, p := range cfg.Plugins {
			detail("plugin  %s", p.Kind)
		}
		detail("output  %s", cfg.Output.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
