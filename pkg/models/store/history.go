package store

import "time"

type BudgetSnapshot struct {
	ID          int64
	User        string
	Accounts    string // comma separated
	Partition   string
	Year        int
	Capacity    float64
	TeamUsage   float64
	UserUsage   float64
	TeamPercent float64
	UserPercent float64
	CreatedAt   time.Time
}

type UsageSnapshotRow struct {
	SnapshotID int64
	Cluster    string
	Login      string
	Used       float64
}
