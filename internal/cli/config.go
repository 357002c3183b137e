package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/pkg/config"
)

func newConfigCmd() *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, config file, .env and environment
variables have been applied. With --write, a file holding the defaults is
written instead.

Files searched (in order):
  $DOCFLOW_CONFIG_PATH
  ./docflow.yaml
  ./config/docflow.yaml
  ~/.docflow/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writePath != "" {
				if err := config.GenerateDefaultConfig(writePath); err != nil {
					return fmt.Errorf("failed to write configuration: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", writePath)
				return nil
			}

			data, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", configPath)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&writePath, "write", "", "Write the default configuration to this path")
	return cmd
}
