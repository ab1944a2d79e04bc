package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/repository"
)

// renderTable writes rows as an ASCII table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(entity.SortableLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// renderDocuments writes the key and promoted fields of each document.
func renderDocuments(w io.Writer, meta *entity.Meta, docs []*entity.Document) {
	header := []string{meta.KeyColumn()}
	for _, c := range meta.Columns {
		header = append(header, c.Field)
	}
	rows := make([][]string, len(docs))
	for i, d := range docs {
		row := []string{strconv.FormatInt(d.EntityID(), 10)}
		for _, c := range meta.Columns {
			v, _ := d.Get(c.Field)
			row = append(row, formatValue(v))
		}
		rows[i] = row
	}
	renderTable(w, header, rows)
}

// renderRecords writes reader rows under the given column names.
func renderRecords(w io.Writer, columns []string, records []map[string]any) {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = formatValue(rec[c])
		}
		rows[i] = row
	}
	renderTable(w, columns, rows)
}

func renderPage(w io.Writer, meta *entity.Meta, page *repository.Page[*entity.Document], total bool) {
	renderDocuments(w, meta, page.Items)
	if total {
		_, _ = fmt.Fprintf(w, "page %d of %d rows\n", page.Page, page.TotalRows)
	}
}

// renderMetrics writes every counter sample gathered from reg.
func renderMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	var rows [][]string
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels string
			for i, l := range m.GetLabel() {
				if i > 0 {
					labels += ","
				}
				labels += l.GetName() + "=" + l.GetValue()
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("n=%d sum=%.3fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{f.GetName(), labels, value})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})
	renderTable(w, []string{"metric", "labels", "value"}, rows)
	return nil
}
