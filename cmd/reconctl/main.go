package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/providers"
)

var (
	// Global flags
	configPath string
	token      string
	verbose    bool

	cfg      *config.Config
	provider *providers.PlaygroundAPIProvider
)

var rootCmd = &cobra.Command{
	Use:   "reconctl",
	Short: "Operate reconciliation mappings and inspect their samples",
	Long: `reconctl talks to the playground backend directly.

It lists task fields and mappings, triggers reconciliation runs and waits for
them, and decodes sample files the same way the dashboard does.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := zap.NewNop()
		if verbose {
			var err error
			if logger, err = zap.NewDevelopment(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		logging.SetLogger(logger.Sugar())

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		var creds auth.CredentialSource
		switch {
		case token != "":
			creds = auth.StaticCredentials(token)
		case cfg.Backend.Token != "":
			creds = auth.StaticCredentials(cfg.Backend.Token)
		case cfg.Backend.SigningKey != "":
			creds = auth.NewServiceTokenSigner([]byte(cfg.Backend.SigningKey), "reconctl", cfg.Backend.TokenTTL)
		}
		provider = providers.NewPlaygroundAPIProvider(cfg.Backend.BaseURL, creds, cfg.Backend.Timeout)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.GetLogger().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults to $RECON_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token for the playground backend")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(decodeCmd, fieldsCmd, mappingsCmd, runCmd, statusCmd, previewCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
