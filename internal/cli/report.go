package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"prime-quiz-bot/internal/app"
	"prime-quiz-bot/internal/config"
	"prime-quiz-bot/internal/logger"
	"prime-quiz-bot/internal/render"
)

// NewReportCmd regenerates the ranked PDF of a closed test from history.
func NewReportCmd(configPath *string) *cobra.Command {
	var code, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the ranked results PDF of the latest test with the given code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), *configPath, code, out)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "test code")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to results_<code>.pdf)")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func runReport(ctx context.Context, configPath, code, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	store, closeStore, err := openRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	history := app.NewHistoryStore(store)
	history.Load(ctx)
	summary, err := history.FindLatestByCode(code)
	if err != nil {
		return fmt.Errorf("test %s: %w", code, err)
	}

	doc, err := render.NewReportRenderer().RenderReport(ctx, summary, app.Rank(summary))
	if err != nil {
		return err
	}
	if out == "" {
		out = doc.Filename
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return err
	}
	slog.Info("report written", "code", code, "file", out, "participants", len(summary.Results))
	return nil
}
