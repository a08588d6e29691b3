package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/logging"
)

var (
	configPath string
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "leadctl",
	Short: "leadctl scores, imports and mails lead files outside the dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or config/config.toml)")
}

// ExecuteContext runs the command line. Cancelling ctx stops the running
// loop; whatever it finished is still written out.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the same configuration as the server and builds a
// console logger from it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Log.Format = "console"
	if l, err := logging.New(cfg.Log); err == nil {
		logger = l
	}
	return cfg, nil
}
