package capacity

import (
	"fmt"
	"sort"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

const (
	// DefaultHoursPerYear is a 365 day year of wall-clock hours.
	DefaultHoursPerYear = 24 * 365
	// DefaultUsageRatio is the share of a node's hours that is billable.
	DefaultUsageRatio = 0.6
	// DefaultLifetimeYears is how long a purchased node stays in production.
	DefaultLifetimeYears = 5
)

// Settings holds the accrual policy. HoursPerYear is not leap year adjusted.
type Settings struct {
	HoursPerYear  float64 `mapstructure:"hours_per_year"`
	UsageRatio    float64 `mapstructure:"usage_ratio"`
	LifetimeYears int     `mapstructure:"lifetime_years"`
}

// DefaultSettings returns the accrual policy used when the settings file sets none.
func DefaultSettings() Settings {
	return Settings{
		HoursPerYear:  DefaultHoursPerYear,
		UsageRatio:    DefaultUsageRatio,
		LifetimeYears: DefaultLifetimeYears,
	}
}

// Calculator turns node records into billable CPU-hour capacity for a calendar year.
type Calculator interface {
	ProductionWindow(node domain.NodeRecord) (domain.ProductionWindow, error)
	MonthsInProduction(node domain.NodeRecord, year int) (int, error)
	RemainingMonths(node domain.NodeRecord, year int) (int, error)
	BillingContribution(node domain.NodeRecord, year int) (float64, error)
	Nodes(nodes []domain.NodeRecord, year int) ([]domain.NodeCapacity, error)
	Summarize(nodes []domain.NodeRecord, year int) (*domain.CapacitySummary, error)
	CPUHours(billing float64) float64
}

type calculator struct {
	settings Settings
}

func NewCalculator(settings Settings) Calculator {
	defaults := DefaultSettings()
	if settings.HoursPerYear <= 0 {
		settings.HoursPerYear = defaults.HoursPerYear
	}
	if settings.UsageRatio <= 0 {
		settings.UsageRatio = defaults.UsageRatio
	}
	if settings.LifetimeYears <= 0 {
		settings.LifetimeYears = defaults.LifetimeYears
	}
	return &calculator{settings: settings}
}

func (c *calculator) ProductionWindow(node domain.NodeRecord) (domain.ProductionWindow, error) {
	var lease domain.Lease
	if node.Lease != nil {
		lease = *node.Lease
	}

	start := lease.Start
	if start.IsZero() {
		if node.PurchaseDate.IsZero() {
			return domain.ProductionWindow{}, missingDate(node, "purchasedate")
		}
		start = node.PurchaseDate
	}

	end := lease.End
	if end.IsZero() {
		if node.PurchaseDate.IsZero() {
			return domain.ProductionWindow{}, missingDate(node, "purchasedate")
		}
		end = addMonths(node.PurchaseDate, c.settings.LifetimeYears*12+node.ExtensionMonths)
	}

	return domain.ProductionWindow{Start: dateOf(start), End: dateOf(end)}, nil
}

// MonthsInProduction counts the months of `year` the node is in production.
// A partial trailing month bills as a full month.
func (c *calculator) MonthsInProduction(node domain.NodeRecord, year int) (int, error) {
	window, err := c.ProductionWindow(node)
	if err != nil {
		return 0, err
	}

	yearStart, yearEnd := startOfYear(year), endOfYear(year)
	if window.End.Before(yearStart) {
		return 0, nil
	}

	start := later(window.Start, yearStart)
	end := earlier(window.End, yearEnd)
	if end.Before(start) {
		return 0, nil
	}

	months, days := monthsBetween(start, end)
	if days > 0 {
		months++
	}
	return months, nil
}

// RemainingMonths counts the whole months left in production from January 1st of `year`.
func (c *calculator) RemainingMonths(node domain.NodeRecord, year int) (int, error) {
	window, err := c.ProductionWindow(node)
	if err != nil {
		return 0, err
	}

	ref := startOfYear(year)
	if window.End.Before(ref) {
		return 0, nil
	}
	months, _ := monthsBetween(ref, window.End)
	return months, nil
}

func (c *calculator) BillingContribution(node domain.NodeRecord, year int) (float64, error) {
	months, err := c.MonthsInProduction(node, year)
	if err != nil {
		return 0, err
	}
	return float64(months) * float64(node.Billing) / 12, nil
}

func (c *calculator) Nodes(nodes []domain.NodeRecord, year int) ([]domain.NodeCapacity, error) {
	lines := make([]domain.NodeCapacity, 0, len(nodes))
	for _, node := range nodes {
		window, err := c.ProductionWindow(node)
		if err != nil {
			return nil, err
		}
		months, err := c.MonthsInProduction(node, year)
		if err != nil {
			return nil, err
		}
		remaining, err := c.RemainingMonths(node, year)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.NodeCapacity{
			Node:                node,
			Window:              window,
			MonthsInProduction:  months,
			RemainingMonths:     remaining,
			BillingContribution: float64(months) * float64(node.Billing) / 12,
		})
	}
	return lines, nil
}

func (c *calculator) Summarize(nodes []domain.NodeRecord, year int) (*domain.CapacitySummary, error) {
	summary := &domain.CapacitySummary{}
	for _, node := range nodes {
		contribution, err := c.BillingContribution(node, year)
		if err != nil {
			return nil, fmt.Errorf("summarize %d: %w", year, err)
		}
		summary.Nodes++
		summary.CPU += node.CPU
		summary.GPU += node.NetGPU()
		summary.Memory += node.Memory
		summary.GPUMemory += node.GPUMemory
		summary.Billing += contribution
	}
	summary.CPUHoursYear = c.CPUHours(summary.Billing)
	return summary, nil
}

func (c *calculator) CPUHours(billing float64) float64 {
	return c.settings.HoursPerYear * c.settings.UsageRatio * billing
}

// FilterByMembership keeps the inventory nodes named in ids. Ids missing from
// the inventory are out of inventory or decommissioned and are dropped.
func FilterByMembership(inventory map[string]domain.NodeRecord, ids []string) []domain.NodeRecord {
	seen := make(map[string]struct{}, len(ids))
	subset := make([]domain.NodeRecord, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if node, ok := inventory[id]; ok {
			subset = append(subset, node)
		}
	}
	sort.Slice(subset, func(i, j int) bool {
		return subset[i].ID < subset[j].ID
	})
	return subset
}

func missingDate(node domain.NodeRecord, field string) error {
	return &domain.RecordError{Node: node.ID, Field: field, Err: domain.ErrMissingDate}
}
