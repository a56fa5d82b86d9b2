package commands

import (
	"context"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/adapters"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/runtime/terminal/export"
	"github.com/hpc-tools/usage-atlas/pkg/services/config"
	"github.com/hpc-tools/usage-atlas/pkg/services/usage"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/jinzhu/now"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const sreportTime = "2006-01-02T15:04:05"

type UsageCmd struct {
	user       string
	start      string
	end        string
	pi         string
	group      string
	cluster    string
	allUsers   bool
	aggregate  bool
	reportType string
	timeFormat string
	verbose    bool
	format     string
	env        *Env
}

func NewUsageCmd(env *Env) *cobra.Command {
	uc := &UsageCmd{env: env}
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Retrieve HPC utilization statistics for a user or group of users",
		RunE:  uc.run,
	}

	cmd.Flags().StringVar(&uc.user, "user", "", "Username to retrieve usage for (default: current user)")
	cmd.Flags().StringVar(&uc.start, "start", "", "Start date (default: first of month)")
	cmd.Flags().StringVar(&uc.end, "end", "", "End date (default: now)")
	cmd.Flags().StringVar(&uc.pi, "pi", "", "Specify a PI account manually")
	cmd.Flags().StringVar(&uc.group, "group", "", "Group name whose PIs are all reported")
	cmd.Flags().StringVar(&uc.cluster, "cluster", "", "Cluster name (default: all clusters)")
	cmd.Flags().BoolVar(&uc.allUsers, "all-users", false, "Include all users under the PI account")
	cmd.Flags().BoolVar(&uc.aggregate, "aggregate", false, "Aggregate the usage per user")
	cmd.Flags().StringVar(&uc.reportType, "report-type", slurm.ReportTypeUser, "Type of report: user or account")
	cmd.Flags().StringVar(&uc.timeFormat, "time-format", "Hours", "Time format: Hours, Minutes or Seconds")
	cmd.Flags().BoolVar(&uc.verbose, "verbose", false, "Log the accounting queries")
	cmd.Flags().StringVar(&uc.format, "format", export.FormatPretty, "Output format: pretty, csv or html")

	cmd.MarkFlagsMutuallyExclusive("pi", "group")

	return cmd
}

func (uc *UsageCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	if uc.verbose {
		logger := zerolog.Ctx(ctx).Level(zerolog.DebugLevel)
		ctx = logger.WithContext(ctx)
	}

	if err := uc.validate(); err != nil {
		return err
	}
	user, err := uc.resolveUser()
	if err != nil {
		return err
	}
	pis, err := uc.resolvePIs(ctx, user)
	if err != nil {
		return err
	}

	start, end := uc.period()
	reporter := slurm.NewUsageReporter(uc.env.Runner)
	parser := usage.NewSreportParser()

	var banner []string
	rows := make([]domain.UsageRow, 0)
	for _, pi := range pis {
		query := slurm.UsageQuery{
			User:       user,
			Cluster:    uc.cluster,
			Account:    pi,
			Start:      start,
			End:        end,
			TimeFormat: uc.timeFormat,
			AllUsers:   uc.allUsers,
			ReportType: uc.reportType,
		}
		zerolog.Ctx(ctx).Debug().Strs("args", slurm.SreportArgs(query)).Msg("executing sreport")

		out, err := reporter.UserUsage(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to retrieve usage: %w", err)
		}
		if banner == nil {
			banner = out.Banner
		}

		parsed, stats := parser.ParseRows(out.Body)
		zerolog.Ctx(ctx).Debug().Str("pi", pi).Int("rows", stats.Rows).Int("skipped", stats.Skipped).Msg("parsed usage")
		rows = append(rows, parsed...)
	}

	if uc.aggregate {
		rows = usage.RollupByUser(rows)
	}
	return uc.env.Reporter.Render(adapters.MapUsageReport(banner, rows, uc.timeFormat), uc.format)
}

func (uc *UsageCmd) validate() error {
	if err := checkChoice("report-type", uc.reportType, []string{slurm.ReportTypeUser, slurm.ReportTypeAccount}); err != nil {
		return err
	}
	if err := checkChoice("time-format", uc.timeFormat, slurm.TimeFormats); err != nil {
		return err
	}
	if err := checkChoice("format", uc.format, export.Formats); err != nil {
		return err
	}
	return uc.env.checkCluster(uc.cluster)
}

// resolveUser refuses root, except for account reports which are not tied to a login.
func (uc *UsageCmd) resolveUser() (string, error) {
	user := uc.user
	if user == "" {
		current, err := uc.env.currentUser()
		if err != nil {
			return "", fmt.Errorf("could not determine user: %w", err)
		}
		user = current
	}
	if user == "" || (user == "root" && uc.reportType != slurm.ReportTypeAccount) {
		return "", fmt.Errorf("could not determine user or running as root")
	}
	return user, nil
}

func (uc *UsageCmd) resolvePIs(ctx context.Context, user string) ([]string, error) {
	switch {
	case uc.group != "":
		if uc.env.Settings.GroupsFile == "" {
			return nil, fmt.Errorf("--group needs groups_file in the settings")
		}
		registry, err := config.NewGroupRegistry(uc.env.Settings.GroupsFile)
		if err != nil {
			return nil, err
		}
		pis, err := registry.GetPIs(ctx, uc.group)
		if err != nil {
			return nil, err
		}
		if len(pis) == 0 {
			return nil, fmt.Errorf("no PIs found in group %q", uc.group)
		}
		zerolog.Ctx(ctx).Debug().Strs("pis", pis).Str("group", uc.group).Msg("PIs in group")
		return pis, nil
	case uc.pi != "":
		return []string{uc.pi}, nil
	default:
		pis, err := slurm.NewAccountResolver(uc.env.Runner, uc.env.Settings.AssocCluster).ForUser(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve accounts of %s: %w", user, err)
		}
		if len(pis) == 0 {
			return nil, fmt.Errorf("no PI found for user %q, use --pi or --group", user)
		}
		return pis, nil
	}
}

// period defaults to the current month so far.
func (uc *UsageCmd) period() (string, string) {
	current := now.With(uc.env.now())
	start, end := uc.start, uc.end
	if start == "" {
		start = current.BeginningOfMonth().Format(sreportTime)
	}
	if end == "" {
		end = current.Time.Format(sreportTime)
	}
	return start, end
}
