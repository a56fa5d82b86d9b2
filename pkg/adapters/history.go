package adapters

import (
	"sort"
	"strings"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/models/store"
)

// MapBudgetSnapshot flattens a budget report into a history snapshot and its
// per cluster and login usage rows, ordered by cluster then login.
func MapBudgetSnapshot(report *domain.BudgetReport) (store.BudgetSnapshot, []store.UsageSnapshotRow) {
	snapshot := store.BudgetSnapshot{
		User:        report.User,
		Accounts:    strings.Join(report.Accounts, ","),
		Partition:   report.Partition,
		Year:        report.Year,
		Capacity:    report.Capacity,
		TeamUsage:   report.TeamUsage,
		UserUsage:   report.UserUsage,
		TeamPercent: report.Metrics.TeamPercentOfCapacity,
		UserPercent: report.Metrics.UserPercentOfFairShare,
		CreatedAt:   report.GeneratedAt,
	}

	rows := make([]store.UsageSnapshotRow, 0)
	for cluster, logins := range report.Usage.ByCluster {
		for login, used := range logins {
			rows = append(rows, store.UsageSnapshotRow{Cluster: cluster, Login: login, Used: used})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cluster != rows[j].Cluster {
			return rows[i].Cluster < rows[j].Cluster
		}
		return rows[i].Login < rows[j].Login
	})
	return snapshot, rows
}
