package sheet

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/nhle/replydraft/internal/model"
)

// NotFoundHTML is returned in place of a table when no row matches.
const NotFoundHTML = "<p>No data found for the client in the spreadsheet.</p>"

// Find returns the record for client from s. The header is the first
// row; only columns under a non-empty header are kept, each paired with
// the cell in its own column. A data row
// matches when its name column (1-based) contains client,
// case-insensitively. A row whose name equals client wins over earlier
// substring matches; otherwise the first match in row order is used.
func Find(s *Sheet, client string, nameColumn int) (*model.ClientRecord, bool) {
	needle := strings.ToLower(strings.TrimSpace(client))
	if s == nil || len(s.Rows) == 0 || needle == "" || nameColumn < 1 {
		return nil, false
	}

	var header []column
	for i, c := range s.Rows[0] {
		if !c.Empty() {
			header = append(header, column{index: i, name: c.Format()})
		}
	}

	idx := nameColumn - 1
	first := -1
	for r := 1; r < len(s.Rows); r++ {
		row := s.Rows[r]
		if idx >= len(row) || row[idx].Empty() {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(row[idx].Format()))
		if name == needle {
			return record(header, row, r+1, nameColumn), true
		}
		if first < 0 && strings.Contains(name, needle) {
			first = r
		}
	}

	if first < 0 {
		return nil, false
	}
	return record(header, s.Rows[first], first+1, nameColumn), true
}

// column is a non-empty header cell and its 0-based sheet column.
type column struct {
	index int
	name  string
}

func record(header []column, row []Cell, rowNum, nameColumn int) *model.ClientRecord {
	rec := &model.ClientRecord{
		Row:    rowNum,
		Name:   row[nameColumn-1].Format(),
		Fields: make([]model.Field, len(header)),
	}
	for i, col := range header {
		var value string
		if col.index < len(row) {
			value = row[col.index].Format()
		}
		rec.Fields[i] = model.Field{Name: col.name, Value: value}
	}
	return rec
}

var tableTmpl = template.Must(template.New("table").Parse(
	`<table border="1" style="border-collapse: collapse; width: 100%; font-family: Arial; font-size: 12px;">` +
		`<tr style="background-color: #f2f2f2;">` +
		`{{range .Fields}}<th style="padding: 8px; text-align: center;">{{.Name}}</th>{{end}}` +
		`</tr>` +
		`<tr>` +
		`{{range .Fields}}<td style="padding: 8px; text-align: center;">{{.Value}}</td>{{end}}` +
		`</tr>` +
		`</table>`,
))

// RenderHTML renders the record as a two-row HTML table: header and data.
func RenderHTML(rec *model.ClientRecord) (string, error) {
	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, rec); err != nil {
		return "", fmt.Errorf("rendering client table: %w", err)
	}
	return buf.String(), nil
}

// Lookup answers client-table queries against spreadsheet files.
type Lookup struct {
	src        Source
	nameColumn int
}

// NewLookup returns a Lookup reading through src, matching client names
// in the given 1-based column.
func NewLookup(src Source, nameColumn int) *Lookup {
	if nameColumn < 1 {
		nameColumn = model.DefaultNameColumn
	}
	return &Lookup{src: src, nameColumn: nameColumn}
}

// ClientTable reads the spreadsheet at path and returns the client's row
// as an HTML table, or NotFoundHTML with a nil record when no row
// matches. Read errors are returned as is.
func (l *Lookup) ClientTable(path, client string) (string, *model.ClientRecord, error) {
	s, err := l.src.ActiveSheet(path)
	if err != nil {
		return "", nil, err
	}

	rec, ok := Find(s, client, l.nameColumn)
	if !ok {
		return NotFoundHTML, nil, nil
	}

	html, err := RenderHTML(rec)
	if err != nil {
		return "", nil, err
	}
	return html, rec, nil
}
