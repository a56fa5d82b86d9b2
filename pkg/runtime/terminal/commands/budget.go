package commands

import (
	"context"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/adapters"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/services/budget"
	"github.com/hpc-tools/usage-atlas/pkg/services/cache"
	"github.com/hpc-tools/usage-atlas/pkg/store/duckdb"
	"github.com/hpc-tools/usage-atlas/pkg/store/duckdb/history"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type BudgetCmd struct {
	user      string
	pi        string
	partition string
	year      int
	teamSize  int
	refresh   bool
	record    string
	quiet     bool
	format    string
	env       *Env
}

func NewBudgetCmd(env *Env) *cobra.Command {
	bc := &BudgetCmd{env: env}
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Compare the yearly CPU hour budget of a PI with the team and personal usage",
		RunE:  bc.run,
	}

	cmd.Flags().StringVar(&bc.user, "user", "", "Username whose personal usage is reported (default: current user)")
	cmd.Flags().StringVar(&bc.pi, "pi", "", "PI account (default: budget.pi setting)")
	cmd.Flags().StringVar(&bc.partition, "partition", "", "Private partition of the PI (default: budget.partition setting)")
	cmd.Flags().IntVar(&bc.year, "year", 0, "Reference year (default: current year)")
	cmd.Flags().IntVar(&bc.teamSize, "team-size", 0, "Number of users sharing the budget (default: budget.team_size setting)")
	cmd.Flags().BoolVar(&bc.refresh, "refresh", false, "Ignore the cached budget")
	cmd.Flags().StringVar(&bc.record, "record", "", "Record the budget in this history database")
	cmd.Flags().BoolVar(&bc.quiet, "quiet", false, "Only refresh the cache file, print nothing")
	cmd.Flags().StringVar(&bc.format, "format", export.FormatPretty, "Output format: pretty, csv or html")

	return cmd
}

func (bc *BudgetCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := checkChoice("format", bc.format, export.Formats); err != nil {
		return err
	}
	req, err := bc.request()
	if err != nil {
		return err
	}

	report, err := bc.service().Budget(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to compute budget: %w", err)
	}

	if bc.record != "" {
		if err := bc.recordSnapshot(ctx, report); err != nil {
			return err
		}
	}
	if bc.quiet {
		return nil
	}
	return bc.env.Reporter.Render(adapters.MapBudgetReport(report, budget.Clusters(report)), bc.format)
}

func (bc *BudgetCmd) request() (budget.Request, error) {
	settings := bc.env.Settings
	req := budget.Request{
		User:      bc.user,
		PI:        firstNonEmpty(bc.pi, settings.Budget.PI),
		Partition: firstNonEmpty(bc.partition, settings.Budget.Partition),
		Clusters:  settings.Clusters,
		Year:      bc.year,
		TeamSize:  bc.teamSize,
		Refresh:   bc.refresh,
	}
	if req.TeamSize == 0 {
		req.TeamSize = settings.Budget.TeamSize
	}
	if req.Year == 0 {
		req.Year = bc.env.now().Year()
	}
	if req.User == "" {
		user, err := bc.env.currentUser()
		if err != nil {
			return req, fmt.Errorf("could not determine user: %w", err)
		}
		req.User = user
	}
	if req.PI == "" || req.Partition == "" {
		return req, fmt.Errorf("a PI and a partition are required, use --pi and --partition or the budget settings")
	}
	return req, nil
}

func (bc *BudgetCmd) service() budget.Service {
	settings := bc.env.Settings
	svc := budget.NewService(
		bc.env.inventory(),
		slurm.NewPartitionResolver(bc.env.Runner),
		slurm.NewUsageReporter(bc.env.Runner),
		bc.env.calculator(),
	)
	return cache.NewCachedService(svc, settings.Cache.Path, settings.Cache.TTL, bc.env.Now)
}

func (bc *BudgetCmd) recordSnapshot(ctx context.Context, report *domain.BudgetReport) error {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: bc.record})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	store, err := history.NewStore(db)
	if err != nil {
		return err
	}
	snapshot, rows := adapters.MapBudgetSnapshot(report)
	id, err := store.Add(ctx, snapshot, rows)
	if err != nil {
		return fmt.Errorf("failed to record budget: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("snapshot", id).Str("db", bc.record).Msg("budget recorded")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
