package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docflow/internal/docflow/server"
	"docflow/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference backend",
		Long: `Run a local backend implementing POST /upload/ and POST /run-driver/.

Uploaded files are kept under the data directory until the driver processes
them or they expire. The driver waits for the configured process delay to
simulate a long job, then counts the pages of PDF documents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg := cfg.Server
			if cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}
			if dataDir != "" {
				serverCfg.DataDir = dataDir
			}

			srv, err := server.New(serverCfg, cfg.IsDevelopmentMode())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.WithField("command", "serve")
			log.Info("starting reference backend",
				"address", serverCfg.Address, "port", serverCfg.Port, "dataDir", serverCfg.DataDir,
				"processDelay", serverCfg.ProcessDelay, "config", configPath)

			if err := srv.Run(ctx); err != nil {
				return err
			}
			log.Info("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overrides configuration")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Upload directory, overrides configuration")
	return cmd
}
