package export

import (
	"fmt"
	"html/template"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
)

var htmlReport = template.Must(template.New("html").Parse(`{{range .Header}}<p>{{.}}</p>
{{end}}{{range .Sections}}{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<table>
<thead>
<tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{$table := .Table}}{{range $i, $row := .Table.Rows}}<tr{{if $table.IsAlert $i}} class="alert"{{end}}>{{range $row}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}`))

// HTML writes the section tables as plain HTML tables.
func (c *Reporter) HTML(report *domain.Report) error {
	if err := htmlReport.Execute(c.writer, report); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
