package commands

import (
	"context"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/adapters"
	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/store/duckdb"
	"github.com/hpc-tools/usage-atlas/pkg/store/duckdb/history"
	"github.com/spf13/cobra"
)

type HistoryCmd struct {
	db     string
	limit  int
	format string
	env    *Env
}

func NewHistoryCmd(env *Env) *cobra.Command {
	hc := &HistoryCmd{env: env}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the budgets recorded with budget --record",
		RunE:  hc.run,
	}

	cmd.Flags().StringVar(&hc.db, "db", "", "Path to the history database")
	cmd.Flags().IntVar(&hc.limit, "limit", 20, "Maximum number of snapshots to list")
	cmd.Flags().StringVar(&hc.format, "format", export.FormatPretty, "Output format: pretty, csv or html")

	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (hc *HistoryCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := checkChoice("format", hc.format, export.Formats); err != nil {
		return err
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: hc.db})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	store, err := history.NewStore(db)
	if err != nil {
		return err
	}
	snapshots, err := store.List(ctx, hc.limit)
	if err != nil {
		return fmt.Errorf("failed to list budgets: %w", err)
	}

	return hc.env.Reporter.Render(adapters.MapHistoryReport(snapshots), hc.format)
}
