package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/pipeline"
)

var validateFlags recordFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate and score a lead file without deduplicating",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRecordFlags(cmd, &validateFlags)
		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		return runRecords(ctx, cmd.OutOrStdout(), validateFlags, func(p *pipeline.Pipeline, input string, recs []model.Record) (*pipeline.Output, error) {
			return p.Validate(ctx, input, recs)
		})
	},
}

func init() {
	addRecordFlags(validateCmd, &validateFlags)
	rootCmd.AddCommand(validateCmd)
}
