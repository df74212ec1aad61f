// Package commands implements the CLI commands for annexport.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/internal/metrics"
	"github.com/annexport/annexport/pkg/annex"
	"github.com/annexport/annexport/pkg/config"
	"github.com/annexport/annexport/pkg/importer"
	"github.com/annexport/annexport/pkg/remote"
	s3meta "github.com/annexport/annexport/pkg/remote/s3"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "annexport",
	Short: "Batched git-annex imports from local and cloud backends",
	Long: `annexport wraps git-annex to make large sets of files known to a
repository in few tool invocations. It resolves content keys for local
paths and object-store URLs through the configured special remotes and
batches every registration and verification call.

Use "annexport [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// PrintErr prints an error message to stderr.
func PrintErr(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to config file (default: $XDG_CONFIG_HOME/annexport/config.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(remotesCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration named by --config (or the default
// location) and initializes logging and metrics accordingly.
func loadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(configFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		metrics.Init()
	}
	return cfg, nil
}

// buildTool creates the annex tool from configuration.
func buildTool(cfg *config.Config) *annex.Tool {
	return annex.New(annex.Config{
		BinDir:     cfg.Annex.BinDir,
		RemotesDir: cfg.Annex.RemotesDir,
		RepoDir:    cfg.Annex.RepoDir,
	})
}

// buildFactories wires the remote constructors available to an import.
func buildFactories(cmd *cobra.Command, cfg *config.Config) (map[string]remote.Factory, error) {
	provider, err := s3meta.NewFromConfig(cmd.Context(), s3meta.Config{
		Region:         cfg.S3.Region,
		Endpoint:       cfg.S3.Endpoint,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("building s3 metadata provider: %w", err)
	}
	return map[string]remote.Factory{
		remote.ExternalTypeLocalDir: remote.LocalDirFactory,
		remote.ExternalTypeS3:       remote.S3Factory(provider),
	}, nil
}

// buildCoordinator assembles the import coordinator.
func buildCoordinator(cmd *cobra.Command, cfg *config.Config) (*importer.Coordinator, error) {
	factories, err := buildFactories(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return importer.New(buildTool(cfg), factories), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("annexport %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}
