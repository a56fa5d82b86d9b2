package slurm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ReportTypeUser    = "user"
	ReportTypeAccount = "account"

	sreportFormat = "Cluster,Login%15,Proper%20,Account,TresName,Used"
	bannerLines   = 4
)

var TimeFormats = []string{"Hours", "Minutes", "Seconds"}

// UsageQuery selects the sreport cluster utilization report to run.
type UsageQuery struct {
	User       string
	Cluster    string // all clusters when empty
	Account    string
	Start      string
	End        string
	TimeFormat string
	AllUsers   bool
	AllTRES    bool
	ReportType string
}

// UsageOutput is sreport output split into its banner and pipe-delimited body.
type UsageOutput struct {
	Banner []string
	Body   string
}

type UsageReporter interface {
	UserUsage(ctx context.Context, q UsageQuery) (*UsageOutput, error)
}

type usageReporter struct {
	runner Runner
}

func NewUsageReporter(runner Runner) UsageReporter {
	return &usageReporter{runner: runner}
}

func (r *usageReporter) UserUsage(ctx context.Context, q UsageQuery) (*UsageOutput, error) {
	if q.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	out, err := r.runner.Run(ctx, "sreport", SreportArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("sreport for account %s: %w", q.Account, err)
	}
	return SplitBanner(out), nil
}

// SreportArgs builds the sreport arguments for q.
func SreportArgs(q UsageQuery) []string {
	timeFormat := q.TimeFormat
	if timeFormat == "" {
		timeFormat = "Hours"
	}
	tres := "billing"
	if q.AllTRES {
		tres = "ALL"
	}
	clusters := "--all_clusters"
	if q.Cluster != "" {
		clusters = "--cluster=" + q.Cluster
	}

	args := []string{clusters, "-t", timeFormat, "--parsable2", "--tres=" + tres, "Cluster"}
	if q.ReportType == ReportTypeAccount {
		args = append(args, "AccountUtilizationByUser")
		if !q.AllUsers {
			args = append(args, "User=")
		}
	} else {
		args = append(args, "UserUtilizationByAccount")
		if !q.AllUsers && q.User != "" {
			args = append(args, "users="+q.User)
		}
	}

	return append(args,
		"Accounts="+q.Account,
		"start="+q.Start,
		"end="+q.End,
		"Format="+sreportFormat,
	)
}

// SplitBanner separates the report preamble from the delimited data.
func SplitBanner(out string) *UsageOutput {
	lines := strings.Split(out, "\n")
	if len(lines) <= bannerLines {
		return &UsageOutput{Banner: trimLines(lines)}
	}
	return &UsageOutput{
		Banner: trimLines(lines[:bannerLines]),
		Body:   strings.Join(lines[bannerLines:], "\n"),
	}
}

func trimLines(lines []string) []string {
	trimmed := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimRight(line, "\r "); line != "" {
			trimmed = append(trimmed, line)
		}
	}
	return trimmed
}
