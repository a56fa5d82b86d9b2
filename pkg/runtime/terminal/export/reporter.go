package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

const (
	FormatPretty = "pretty"
	FormatCSV    = "csv"
	FormatHTML   = "html"
)

var Formats = []string{FormatPretty, FormatCSV, FormatHTML}

type TableConfig struct {
	MinWidth int
	MaxWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		MinWidth: 4,
		MaxWidth: 40,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
	alert  *color.Color
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
		alert:  color.New(color.FgRed, color.Bold),
	}
}

// SetColor forces alert highlighting on or off; by default it follows the terminal.
func (c *Reporter) SetColor(enabled bool) {
	if enabled {
		c.alert.EnableColor()
	} else {
		c.alert.DisableColor()
	}
}

// Render writes report in one of Formats.
func (c *Reporter) Render(report *domain.Report, format string) error {
	switch format {
	case FormatPretty, "":
		return c.Handle(report)
	case FormatCSV:
		return c.CSV(report)
	case FormatHTML:
		return c.HTML(report)
	default:
		return fmt.Errorf("unsupported format %q, expected one of %v", format, Formats)
	}
}

// Handle writes report as aligned text tables.
func (c *Reporter) Handle(report *domain.Report) error {
	funcMap := template.FuncMap{
		"formatRow": func(table domain.Table, row int) string {
			line := c.formatCells(table, table.Rows[row])
			if table.IsAlert(row) {
				return c.alert.Sprint(line)
			}
			return line
		},
		"formatHeader": func(table domain.Table) string {
			return c.formatCells(table, table.Headers)
		},
		"separator": func(table domain.Table) string {
			parts := make([]string, 0, len(table.Headers))
			for _, width := range c.widths(table) {
				parts = append(parts, strings.Repeat("-", width+2))
			}
			return "+" + strings.Join(parts, "+") + "+"
		},
	}

	tmpl := `{{if .Title}}{{.Title}}
{{end}}{{range .Header}}{{.}}
{{end}}{{range .Sections}}
{{if .Title}}=== {{.Title}} ===
{{end}}{{if .Table.Headers}}{{separator .Table}}
{{formatHeader .Table}}
{{separator .Table}}
{{$table := .Table}}{{range $i, $row := .Table.Rows}}{{formatRow $table $i}}
{{end}}{{separator .Table}}
{{end}}{{range $key, $value := .Summary}}{{$key}}: {{$value}}
{{end}}{{end}}{{if and .Unit .TotalAmount}}
Total: {{printf "%.2f" .TotalAmount}} {{.Unit}}
{{end}}`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}

func (c *Reporter) widths(table domain.Table) []int {
	widths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		widths[i] = max(utf8.RuneCountInString(header), c.config.MinWidth)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], c.config.MaxWidth)
	}
	return widths
}

// formatCells left aligns text and right aligns the numeric looking cells.
func (c *Reporter) formatCells(table domain.Table, cells []string) string {
	widths := c.widths(table)
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = truncate(cells[i], width)
		}
		if isNumeric(cell) {
			parts[i] = fmt.Sprintf(" %*s ", width, cell)
		} else {
			parts[i] = fmt.Sprintf(" %-*s ", width, cell)
		}
	}
	return "|" + strings.Join(parts, "|") + "|"
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "~"
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && !strings.ContainsRune(" .,%M-", r) {
			return false
		}
	}
	return true
}
