package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bianoble/bundlekit/internal/devserver"
	"github.com/bianoble/bundlekit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server",
	Long: `Builds the configured entry points and serves devServer.static.directory.
With devServer.hot, sources are rebuilt on change and open pages reload
automatically. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveHost != "" {
			cfg.DevServer.Host = serveHost
		}
		if servePort != 0 {
			cfg.DevServer.Port = servePort
		}

		log := logger.Setup(verbose, quiet)
		eng, err := newEngine(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return devserver.New(eng, log).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "override devServer.host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override devServer.port")
	rootCmd.AddCommand(serveCmd)
}
