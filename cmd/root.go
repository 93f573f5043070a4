package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/config"
)

var (
	cfg         *config.Config
	logLevel    string
	defaultCtry string
)

var rootCmd = &cobra.Command{
	Use:          "lead-dedup",
	Short:        "Business lead deduplication and validation engine",
	Long:         "Merges duplicate business leads, validates emails and Latin American phone numbers, scores record quality and filters low-quality leads.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if defaultCtry != "" {
			c.Validation.DefaultCountry = defaultCtry
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")
	rootCmd.PersistentFlags().StringVar(&defaultCtry, "default-country", "", "ISO country code assumed when none can be inferred")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
