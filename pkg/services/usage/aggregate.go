package usage

import (
	"sort"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

// AggregateByUser sums usage per login, leaving out account level rows so the
// account total is not counted twice. Sorted by total descending, then login.
func AggregateByUser(rows []domain.UsageRow) []domain.UserTotal {
	totals := make(map[string]float64)
	for _, row := range rows {
		if row.Login == "" {
			continue
		}
		totals[row.Login] += row.Used
	}

	result := make([]domain.UserTotal, 0, len(totals))
	for login, used := range totals {
		result = append(result, domain.UserTotal{Login: login, Used: used})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Used != result[j].Used {
			return result[i].Used > result[j].Used
		}
		return result[i].Login < result[j].Login
	})
	return result
}

// Aggregate builds the cluster/login matrix in both orientations in one pass.
func Aggregate(rows []domain.UsageRow) *domain.UsageAggregate {
	agg := &domain.UsageAggregate{
		ByCluster: make(map[string]map[string]float64),
		ByUser:    make(map[string]map[string]float64),
	}
	for _, row := range rows {
		if agg.ByCluster[row.Cluster] == nil {
			agg.ByCluster[row.Cluster] = make(map[string]float64)
		}
		if agg.ByUser[row.Login] == nil {
			agg.ByUser[row.Login] = make(map[string]float64)
		}
		agg.ByCluster[row.Cluster][row.Login] += row.Used
		agg.ByUser[row.Login][row.Cluster] += row.Used
	}
	return agg
}

func AggregateByClusterAndUser(rows []domain.UsageRow) map[string]map[string]float64 {
	return Aggregate(rows).ByCluster
}

func AggregateByUserAndCluster(rows []domain.UsageRow) map[string]map[string]float64 {
	return Aggregate(rows).ByUser
}

// RollupByUser collapses user rows into one row per login; account level rows are dropped.
func RollupByUser(rows []domain.UsageRow) []domain.UsageRow {
	totals := AggregateByUser(rows)
	rolled := make([]domain.UsageRow, 0, len(totals))
	for _, total := range totals {
		rolled = append(rolled, domain.UsageRow{Login: total.Login, Used: total.Used})
	}
	return rolled
}

// UserRows keeps the rows carrying a login.
func UserRows(rows []domain.UsageRow) []domain.UsageRow {
	kept := make([]domain.UsageRow, 0, len(rows))
	for _, row := range rows {
		if row.Login != "" {
			kept = append(kept, row)
		}
	}
	return kept
}

func TeamTotal(rows []domain.UsageRow) float64 {
	var total float64
	for _, row := range rows {
		total += row.Used
	}
	return total
}

// UserTotal sums the rows of one login. An unknown or empty login is 0.
func UserTotal(rows []domain.UsageRow, login string) float64 {
	var total float64
	if login == "" {
		return 0
	}
	for _, row := range rows {
		if row.Login == login {
			total += row.Used
		}
	}
	return total
}
