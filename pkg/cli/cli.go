// Package cli wires the service's cobra commands: serve, version, and
// config validation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/version"
)

const (
	serviceName = "familylists-realtime"
	envPrefix   = "FAMILYLISTS"
)

// NewRootCommand builds the service CLI. Running the root command with
// no subcommand starts the servers.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Real-time stream and notification service for family lists",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the public and management HTTP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewViperLoader(cfgPath, envPrefix).Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			base, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = base.Sync() }()
			return runServe(cmd.Context(), cfg, base.With("service", cfg.Service.Name))
		},
	}
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(serviceName)
			fmt.Printf("Service:    %s\n", info.Service)
			fmt.Printf("Version:    %s\n", info.Version)
			fmt.Printf("Commit:     %s\n", info.Commit)
			fmt.Printf("Build Time: %s\n", info.BuildTime)
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.NewViperLoader(cfgPath, envPrefix).Load(); err != nil {
				return err
			}
			fmt.Println("configuration is valid")
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)

	return rootCmd
}

func newLogger(cfg *config.Config) (*logger.ZapLogger, error) {
	level, err := logger.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
