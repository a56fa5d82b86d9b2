package adapters

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/hpc-tools/usage-atlas/pkg/models/store"
	"github.com/hpc-tools/usage-atlas/pkg/services/usage"
)

// FormatHours renders an amount with space separated thousands and no decimals.
func FormatHours(v float64) string {
	return humanize.FormatFloat("# ###.", v)
}

// FormatMillions renders large CPU hour figures as 12.34M.
func FormatMillions(v float64) string {
	return fmt.Sprintf("%.2fM", v/1_000_000)
}

func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(inventoryDateLayout)
}

// MapCapacityReport lists the nodes of a cluster with their production months
// for year. The summary section is added when summary is not nil.
func MapCapacityReport(cluster string, year int, lines []domain.NodeCapacity, summary *domain.CapacitySummary) *domain.Report {
	table := domain.Table{
		Headers: []string{
			"host", "sn", "cpu", "mem", "gpunumber", "gpudeleted", "gpumodel", "gpumemory",
			"purchasedate", "months in prod this year",
			fmt.Sprintf("months remaining in prod. (Jan %d)", year),
			"billing",
		},
		Rows: make([][]string, 0, len(lines)),
	}
	for i, line := range lines {
		n := line.Node
		table.Rows = append(table.Rows, []string{
			n.ID,
			n.SerialNumber,
			strconv.Itoa(n.CPU),
			strconv.Itoa(n.Memory),
			strconv.Itoa(n.GPUCount),
			strconv.Itoa(n.GPUDeleted),
			n.GPUModel,
			strconv.Itoa(n.GPUMemory),
			formatDate(n.PurchaseDate),
			strconv.Itoa(line.MonthsInProduction),
			strconv.Itoa(line.RemainingMonths),
			strconv.Itoa(n.Billing),
		})
		if line.MonthsInProduction == 0 {
			table.Alerts = append(table.Alerts, i)
		}
	}

	section := domain.ReportSection{Title: "Nodes", Table: table}
	report := &domain.Report{
		Title: fmt.Sprintf("Capacity of %s for %d", cluster, year),
		Unit:  "CPU hours",
	}
	if summary != nil {
		section.Summary = map[string]interface{}{
			"Total CPUs":            summary.CPU,
			"Total CPUs memory[GB]": summary.Memory,
			"Total GPUs":            summary.GPU,
			"Total GPUs memory[MB]": summary.GPUMemory,
			"Billing":               int(summary.Billing),
			"CPUhours per year":     FormatMillions(summary.CPUHoursYear),
		}
		report.TotalAmount = summary.CPUHoursYear
	}
	report.Sections = []domain.ReportSection{section}
	return report
}

// MapUsageReport tabulates parsed sreport rows under the sreport banner.
func MapUsageReport(banner []string, rows []domain.UsageRow, unit string) *domain.Report {
	table := domain.Table{
		Headers: []string{"Cluster", "Login", "Proper Name", "Account", "TRES Name", "Used"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Cluster, row.Login, row.ProperName, row.Account, row.TRES, FormatHours(row.Used),
		})
	}

	return &domain.Report{
		Title:       "Cluster usage",
		Header:      banner,
		Sections:    []domain.ReportSection{{Table: table}},
		TotalAmount: usage.TeamTotal(rows),
		Unit:        unit,
	}
}

// MapBudgetReport lays out the yearly budget: an overview with percentages, the
// capacity per cluster and the usage of every user per cluster.
func MapBudgetReport(report *domain.BudgetReport, clusters []string) *domain.Report {
	m := report.Metrics
	overview := domain.Table{
		Headers: []string{"", "CPU hours", "% of budget"},
		Rows: [][]string{
			{"User usage", FormatHours(report.UserUsage), FormatPercent(m.UserPercentOfCapacity)},
			{"Team usage", FormatHours(report.TeamUsage), FormatPercent(m.TeamPercentOfCapacity)},
			{"Total budget", FormatHours(report.Capacity), FormatPercent(100)},
		},
	}
	if report.Capacity > 0 && m.TeamPercentOfCapacity > 100 {
		overview.Alerts = append(overview.Alerts, 1)
	}

	fairShare := domain.Table{
		Headers: []string{"", "CPU hours", "% of fair share"},
		Rows: [][]string{
			{"Fair share", FormatHours(fairShareHours(report)), FormatPercent(m.FairSharePercent) + " of budget"},
			{"User usage", FormatHours(report.UserUsage), FormatPercent(m.UserPercentOfFairShare)},
		},
	}
	if m.UserPercentOfFairShare > 100 {
		fairShare.Alerts = append(fairShare.Alerts, 1)
	}

	perCluster := domain.Table{Headers: append([]string{""}, clusters...)}
	budgetRow := []string{"Budget"}
	for _, cluster := range clusters {
		budgetRow = append(budgetRow, FormatHours(report.CapacityByCluster[cluster]))
	}
	perCluster.Rows = [][]string{budgetRow}

	return &domain.Report{
		Title: "HPC Usage Report",
		Header: []string{
			"User: " + report.User,
			fmt.Sprintf("PI: %v", report.Accounts),
			"Partitions: " + report.Partition,
			fmt.Sprintf("Year: %d", report.Year),
		},
		Sections: []domain.ReportSection{
			{Title: "Overview", Table: overview},
			{Title: "Fair share", Table: fairShare},
			{Title: "Budget per Cluster", Table: perCluster},
			{Title: "Usage per User", Table: usagePerUser(report.Usage, clusters, report.User)},
		},
		TotalAmount: report.Capacity,
		Unit:        "CPU hours",
	}
}

func fairShareHours(report *domain.BudgetReport) float64 {
	if report.TeamSize <= 0 {
		return 0
	}
	return report.Capacity / float64(report.TeamSize)
}

// usagePerUser is the login by cluster matrix, heaviest users first. The row of
// the current user is flagged.
func usagePerUser(agg domain.UsageAggregate, clusters []string, current string) domain.Table {
	table := domain.Table{Headers: append(append([]string{""}, clusters...), "Total")}

	logins := make([]string, 0, len(agg.ByUser))
	for login := range agg.ByUser {
		if login != "" {
			logins = append(logins, login)
		}
	}
	sort.Slice(logins, func(i, j int) bool {
		ti, tj := agg.UserTotal(logins[i]), agg.UserTotal(logins[j])
		if ti != tj {
			return ti > tj
		}
		return logins[i] < logins[j]
	})

	for i, login := range logins {
		row := []string{login}
		for _, cluster := range clusters {
			row = append(row, FormatHours(agg.ByUser[login][cluster]))
		}
		row = append(row, FormatHours(agg.UserTotal(login)))
		table.Rows = append(table.Rows, row)
		if login == current {
			table.Alerts = append(table.Alerts, i)
		}
	}
	return table
}

// MapHistoryReport lists recorded budget snapshots, newest first.
func MapHistoryReport(snapshots []store.BudgetSnapshot) *domain.Report {
	table := domain.Table{
		Headers: []string{"id", "recorded", "user", "accounts", "partition", "year", "budget", "team usage", "team %", "user usage", "user % of fair share"},
		Rows:    make([][]string, 0, len(snapshots)),
	}
	for i, s := range snapshots {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.User,
			s.Accounts,
			s.Partition,
			strconv.Itoa(s.Year),
			FormatHours(s.Capacity),
			FormatHours(s.TeamUsage),
			FormatPercent(s.TeamPercent),
			FormatHours(s.UserUsage),
			FormatPercent(s.UserPercent),
		})
		if s.UserPercent > 100 {
			table.Alerts = append(table.Alerts, i)
		}
	}
	return &domain.Report{
		Title:    "Budget history",
		Sections: []domain.ReportSection{{Table: table}},
	}
}
