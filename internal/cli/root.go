package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"docchat-be/internal/bootstrap"
	"docchat-be/internal/config"
	"docchat-be/internal/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	timeout time.Duration

	currentConfig *config.Config
	container     *bootstrap.Container
)

var rootCmd = &cobra.Command{
	Use:           "ragctl",
	Short:         "ragctl: ingest documents and chat with them from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failure(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "deadline for the whole command")
}

// loadConfig reads the same environment as the REST server. Ingestion always
// runs inline here because no consumer is listening.
func loadConfig() (*config.Config, error) {
	if currentConfig != nil {
		return currentConfig, nil
	}
	cfg := config.Load()
	cfg.Rag.IngestAsync = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig = cfg
	return cfg, nil
}

// requireContainer is used as PreRunE by commands that touch the pipeline.
func requireContainer(cmd *cobra.Command, args []string) error {
	if container != nil {
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	c, err := bootstrap.NewContainer(db, cfg, logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction()))
	if err != nil {
		return err
	}
	container = c
	return nil
}

func closeContainer(cmd *cobra.Command, args []string) {
	if container != nil {
		container.Close()
		container = nil
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// pipelineCommand attaches the container lifecycle to cmd.
func pipelineCommand(cmd *cobra.Command) *cobra.Command {
	cmd.PreRunE = requireContainer
	cmd.PostRun = closeContainer
	return cmd
}
