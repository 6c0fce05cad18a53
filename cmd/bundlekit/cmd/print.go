package cmd

import (
	"fmt"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/spf13/cobra"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the resolved configuration",
	Long: `Prints the configuration after overlays are merged, relative paths are
resolved and defaults are applied. The output is itself a valid bundlekit.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
}
