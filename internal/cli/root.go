package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/pkg/config"
	"docflow/pkg/logger"
)

var (
	cfg        *config.Config
	configPath string
)

type rootFlags struct {
	configFile string
	baseURL    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "docflow",
		Short: "Document submission client",
		Long: "Submit documents to a processing backend: the file is uploaded, then the " +
			"backend driver is triggered, with estimated progress shown while it runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "",
		"Path to configuration file (default: search ./docflow.yaml, ./config/docflow.yaml, ~/.docflow/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "",
		"Backend base URL, overrides configuration")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level (DEBUG, INFO, WARN, ERROR)")

	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}

// setup loads configuration, applies flag overrides and configures the global logger.
func setup(cmd *cobra.Command, flags *rootFlags) error {
	loaded, path, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}

	if flags.baseURL != "" {
		loaded.Client.BaseURL = flags.baseURL
	}
	if flags.logLevel != "" {
		loaded.Logging.Level = flags.logLevel
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	level, err := logger.ParseLevel(loaded.Logging.Level)
	if err != nil {
		return err
	}
	logger.SetGlobal(logger.NewWithConfig(logger.Config{
		Level:  level,
		Output: logger.OpenOutput(loaded.Logging.Output),
		Format: loaded.Logging.Format,
	}))

	cfg = loaded
	configPath = path
	logger.Debug("configuration loaded", "source", path, "baseUrl", cfg.Client.BaseURL)
	return nil
}
