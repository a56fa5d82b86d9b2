package budget

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hpc-tools/usage-atlas/pkg/adapters"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/services/capacity"
	"github.com/hpc-tools/usage-atlas/pkg/services/usage"
	"github.com/hpc-tools/usage-atlas/pkg/store/inventory"
	"github.com/hpc-tools/usage-atlas/pkg/store/slurm"
	"github.com/rs/zerolog"
)

const sreportDate = "2006-01-02"

type Request struct {
	User      string
	PI        string
	Partition string
	Clusters  []string
	Year      int
	// TeamSize splits the capacity into fair shares; 0 counts the users in the report.
	TeamSize int
	// Refresh asks caching layers to recompute.
	Refresh bool
}

// Service compares a PI's yearly capacity with what the team and the user consumed.
type Service interface {
	Budget(ctx context.Context, req Request) (*domain.BudgetReport, error)
}

type service struct {
	inventory  inventory.Store
	partitions slurm.PartitionResolver
	reporter   slurm.UsageReporter
	calculator capacity.Calculator
	parser     *usage.Parser
	now        func() time.Time
}

func NewService(
	inv inventory.Store,
	partitions slurm.PartitionResolver,
	reporter slurm.UsageReporter,
	calculator capacity.Calculator,
) Service {
	return &service{
		inventory:  inv,
		partitions: partitions,
		reporter:   reporter,
		calculator: calculator,
		parser:     usage.NewSreportParser(),
		now:        time.Now,
	}
}

func (s *service) Budget(ctx context.Context, req Request) (*domain.BudgetReport, error) {
	if req.PI == "" {
		return nil, fmt.Errorf("pi account is required")
	}
	if req.Partition == "" {
		return nil, fmt.Errorf("partition is required")
	}
	if req.Year == 0 {
		req.Year = s.now().Year()
	}

	report := &domain.BudgetReport{
		User:              req.User,
		Accounts:          []string{req.PI},
		Partition:         req.Partition,
		Year:              req.Year,
		GeneratedAt:       s.now(),
		CapacityByCluster: make(map[string]float64, len(req.Clusters)),
	}

	for _, cluster := range req.Clusters {
		hours, err := s.clusterCapacity(ctx, cluster, req.Partition, req.Year)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("cluster", cluster).Msg("cluster capacity unavailable, counted as 0")
		}
		report.CapacityByCluster[cluster] = hours
		report.Capacity += hours
	}

	rows, err := s.teamUsage(ctx, req)
	if err != nil {
		return nil, err
	}
	report.Usage = *usage.Aggregate(rows)
	report.TeamUsage = usage.TeamTotal(rows)
	report.UserUsage = usage.UserTotal(rows, req.User)

	report.TeamSize = req.TeamSize
	if report.TeamSize <= 0 {
		report.TeamSize = len(usage.AggregateByUser(rows))
	}
	report.Metrics = ComputeMetrics(report.Capacity, report.TeamUsage, report.UserUsage, report.TeamSize)

	return report, nil
}

func (s *service) clusterCapacity(ctx context.Context, cluster, partition string, year int) (float64, error) {
	inv, err := s.inventory.Load(ctx, cluster)
	if err != nil {
		return 0, err
	}
	records, errs := adapters.MapInventory(inv)
	for _, recordErr := range errs {
		zerolog.Ctx(ctx).Debug().Err(recordErr).Str("cluster", cluster).Msg("skipping inventory record")
	}

	ids, err := s.partitions.Nodes(ctx, cluster, partition)
	if err != nil {
		return 0, err
	}
	summary, err := s.calculator.Summarize(capacity.FilterByMembership(records, ids), year)
	if err != nil {
		return 0, fmt.Errorf("cluster %s: %w", cluster, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("cluster", cluster).
		Int("nodes", summary.Nodes).
		Float64("cpu_hours", summary.CPUHoursYear).
		Msg("cluster capacity")
	return summary.CPUHoursYear, nil
}

func (s *service) teamUsage(ctx context.Context, req Request) ([]domain.UsageRow, error) {
	start := time.Date(req.Year, time.January, 1, 0, 0, 0, 0, time.Local)
	out, err := s.reporter.UserUsage(ctx, slurm.UsageQuery{
		Account:    req.PI,
		Start:      start.Format(sreportDate),
		End:        start.AddDate(1, 0, 0).Format(sreportDate),
		TimeFormat: "Hours",
		AllUsers:   true,
		ReportType: slurm.ReportTypeUser,
	})
	if err != nil {
		return nil, fmt.Errorf("team usage: %w", err)
	}

	rows, stats := s.parser.ParseRows(out.Body)
	zerolog.Ctx(ctx).Debug().
		Int("lines", stats.Lines).
		Int("rows", stats.Rows).
		Int("skipped", stats.Skipped).
		Msg("parsed sreport output")
	return usage.UserRows(rows), nil
}

// ComputeMetrics derives the percentages shown next to a budget. Team usage is
// measured against the whole capacity, personal usage against one fair share.
func ComputeMetrics(capacity, teamUsage, userUsage float64, teamSize int) domain.BudgetMetrics {
	var metrics domain.BudgetMetrics
	if teamSize > 0 {
		metrics.FairSharePercent = 100 / float64(teamSize)
	}
	if capacity <= 0 {
		return metrics
	}
	metrics.TeamPercentOfCapacity = percent(teamUsage, capacity)
	metrics.UserPercentOfCapacity = percent(userUsage, capacity)
	if teamSize > 0 {
		metrics.UserPercentOfFairShare = percent(userUsage, capacity/float64(teamSize))
	}
	return metrics
}

func percent(part, whole float64) float64 {
	return part / whole * 100
}

// Clusters returns the cluster names of a report in a stable order.
func Clusters(report *domain.BudgetReport) []string {
	clusters := make([]string, 0, len(report.CapacityByCluster))
	for cluster := range report.CapacityByCluster {
		clusters = append(clusters, cluster)
	}
	sort.Strings(clusters)
	return clusters
}
