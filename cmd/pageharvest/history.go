package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-page-harvest/internal/ledger"
	"github.com/porticus-lab/go-page-harvest/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run",
		Long: `History lists the most recent runs as a Markdown table. Given a run ID
it prints the summary and the page outcomes of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "l", 20, "Number of runs to list (0: all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cfg.DBDir == "" {
		return report.WriteHistory(out, nil)
	}
	l, err := ledger.Open(cfg.DBDir, ledger.Options{EnableWAL: true})
	if errors.Is(err, os.ErrNotExist) {
		return report.WriteHistory(out, nil)
	}
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		run, err := l.Run(ctx, args[0])
		if err != nil {
			return err
		}
		pages, err := l.Pages(ctx, run.ID)
		if err != nil {
			return err
		}
		return report.Write(out, run, pages)
	}

	runs, err := l.Runs(ctx, limit)
	if err != nil {
		return err
	}
	return report.WriteHistory(out, runs)
}
