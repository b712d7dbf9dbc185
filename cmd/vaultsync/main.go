package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/vaultsync"
	"github.com/eringen/vaultsync/views"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	envFile string
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultsync",
		Short: "Publish a knowledge vault as a blog",
		Long: `vaultsync scans a vault of Markdown posts and PNG images, records new
and changed items in SQLite, and serves the released ones over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to read configuration from")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(serveCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(releaseCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	return root
}

// setup loads configuration and builds the logger every command shares.
func setup() (vaultsync.SiteConfig, *zap.Logger, error) {
	cfg, err := vaultsync.LoadConfig(envFile)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := vaultsync.NewLogger(cfg.LogLevel, cfg.LogFile, verbose)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// newApp builds an App from the environment with the stock views.
func newApp() (*vaultsync.App, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return vaultsync.New(cfg, views.Default(), vaultsync.WithLogger(logger)), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vaultsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vaultsync %s\n", version)
		},
	}
}
