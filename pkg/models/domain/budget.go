package domain

import "time"

type BudgetReport struct {
	User        string
	Accounts    []string
	Partition   string
	Year        int
	TeamSize    int
	GeneratedAt time.Time
	Cached      bool

	CapacityByCluster map[string]float64 // cluster -> CPU hours per year
	Capacity          float64
	TeamUsage         float64
	UserUsage         float64
	Usage             UsageAggregate

	Metrics BudgetMetrics
}

// BudgetMetrics keeps the team and personal views apart; they use different denominators.
type BudgetMetrics struct {
	TeamPercentOfCapacity  float64
	UserPercentOfCapacity  float64
	UserPercentOfFairShare float64
	FairSharePercent       float64
}
