package domain

import "time"

// Report is a titled set of tables rendered by the terminal reporters
type Report struct {
	Title       string
	Period      TimePeriod
	Header      []string
	Sections    []ReportSection
	TotalAmount float64
	Unit        string
}

// TimePeriod represents a time range for the report
type TimePeriod struct {
	Start time.Time
	End   time.Time
}

// ReportSection represents a logical section in the report
type ReportSection struct {
	Title   string
	Summary map[string]interface{}
	Table   Table
}

// Table is a rectangular listing with a header row
type Table struct {
	Headers []string
	Rows    [][]string
	// Alerts holds the indexes of rows that need attention, e.g. over budget.
	Alerts []int
}

func (t Table) IsAlert(row int) bool {
	for _, i := range t.Alerts {
		if i == row {
			return true
		}
	}
	return false
}
