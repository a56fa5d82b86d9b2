package usage

import (
	"strings"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

const (
	ColumnCluster    = "cluster"
	ColumnLogin      = "login"
	ColumnProperName = "propername"
	ColumnAccount    = "account"
	ColumnTRES       = "tresname"
	ColumnUsed       = "used"

	minFields = 3
)

// SreportColumns is the column order requested from sreport with
// Format=Cluster,Login,Proper,Account,TresName,Used.
var SreportColumns = []string{ColumnCluster, ColumnLogin, ColumnProperName, ColumnAccount, ColumnTRES, ColumnUsed}

// SreportSkipPrefixes matches the banners, rules, headers and summary lines
// found around sreport output and its tabulated reprints.
var SreportSkipPrefixes = []string{
	"----",
	"Cluster/",
	"Cluster|",
	"Usage reported",
	"Total usage:",
	"TRES",
}

var columnAliases = map[string]string{
	"proper": ColumnProperName,
	"name":   ColumnProperName,
	"tres":   ColumnTRES,
	"user":   ColumnLogin,
}

type Parser struct {
	// Delimiter separates fields; "|" when empty.
	Delimiter string
	// SkipPrefixes drops any trimmed line starting with one of them.
	SkipPrefixes []string
	// Columns is the explicit schema. When empty the first kept line is the header.
	Columns []string
}

type ParseStats struct {
	Lines   int
	Rows    int
	Skipped int
}

// NewSreportParser returns a parser for sreport --parsable2 output whose banner was already removed.
func NewSreportParser() *Parser {
	return &Parser{
		Delimiter:    "|",
		SkipPrefixes: SreportSkipPrefixes,
		Columns:      SreportColumns,
	}
}

// ParseRows turns report text into usage rows. Malformed lines are skipped and counted.
func (p *Parser) ParseRows(raw string) ([]domain.UsageRow, ParseStats) {
	var stats ParseStats
	delimiter := p.Delimiter
	if delimiter == "" {
		delimiter = "|"
	}

	columns := normalizeColumns(p.Columns)
	rows := make([]domain.UsageRow, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || p.skip(line) {
			continue
		}

		fields := strings.Split(line, delimiter)
		if columns == nil {
			columns = normalizeColumns(fields)
			continue
		}

		stats.Lines++
		row, ok := buildRow(columns, fields)
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
	}

	stats.Rows = len(rows)
	return rows, stats
}

func (p *Parser) skip(line string) bool {
	for _, prefix := range p.SkipPrefixes {
		if prefix != "" && strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func buildRow(columns []string, fields []string) (domain.UsageRow, bool) {
	if len(fields) < minFields {
		return domain.UsageRow{}, false
	}

	var row domain.UsageRow
	usedSeen := false
	for i, field := range fields {
		if i >= len(columns) {
			break
		}
		field = strings.TrimSpace(field)
		switch columns[i] {
		case ColumnCluster:
			row.Cluster = field
		case ColumnLogin:
			row.Login = field
		case ColumnProperName:
			row.ProperName = field
		case ColumnAccount:
			row.Account = field
		case ColumnTRES:
			row.TRES = field
		case ColumnUsed:
			used, ok := parseAmount(field)
			if !ok || used < 0 {
				return domain.UsageRow{}, false
			}
			row.Used = used
			usedSeen = true
		}
	}

	if !usedSeen {
		return domain.UsageRow{}, false
	}
	return row, true
}

func normalizeColumns(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	columns := make([]string, len(names))
	for i, name := range names {
		key := strings.ToLower(strings.Join(strings.Fields(name), ""))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		columns[i] = key
	}
	return columns
}
