package export

import (
	"encoding/csv"
	"fmt"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

// CSV writes every section table with its header row. Sections are separated
// by an empty record.
func (c *Reporter) CSV(report *domain.Report) error {
	w := csv.NewWriter(c.writer)
	for i, section := range report.Sections {
		if i > 0 {
			if err := w.Write([]string{}); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
		if err := w.Write(section.Table.Headers); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		if err := w.WriteAll(section.Table.Rows); err != nil {
			return fmt.Errorf("write csv rows: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
