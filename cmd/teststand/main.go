package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/teststand/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "teststand",
	Short:   "Provision private, migrated databases for test runs",
	Long: `teststand creates an ephemeral copy of each configured database,
applies its migrations and prints the connection URLs of the copies.

Configuration is read from teststand.yaml (or --config files), then
TESTSTAND_ environment variables, then flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env-file")
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}

		configFiles, _ := cmd.Flags().GetStringSlice("config")
		tree, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		settings, err := tree.Settings()
		if err != nil {
			return err
		}
		setupLogging(settings)

		cmd.SetContext(config.WithContext(cmd.Context(), tree))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, later files override earlier ones (default: ./teststand.yaml)")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "KEY=VALUE files loaded into the environment before reading config")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error (env: TESTSTAND_LOG_LEVEL)")
	rootCmd.PersistentFlags().Int("workers", 0, "worker count used to size connection pools (default: number of CPUs, env: TESTSTAND_WORKERS)")
	rootCmd.PersistentFlags().String("env", "", "environment name; prod or production switches to JSON logs (env: TESTSTAND_ENV)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
