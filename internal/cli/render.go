package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// maxRejectionsShown caps the rejected-row table of a run.
const maxRejectionsShown = 20

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderMapping(w io.Writer, name string, m *resolve.Mapping, review []string) {
	_, _ = fmt.Fprintf(w, "Mapping for %s\n", name)

	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Column", "Tier", "Score", "Evidence"})
	for _, a := range m.Assignments {
		t.AppendRow(table.Row{a.Field, a.Column, a.Tier.String(), formatScore(a.Score), a.Evidence})
	}
	t.Render()

	if len(m.UnresolvedRequired) > 0 {
		_, _ = fmt.Fprintf(w, "Unresolved required: %s\n", strings.Join(m.UnresolvedRequired, ", "))
	}
	if len(m.UnmappedColumns) > 0 {
		_, _ = fmt.Fprintf(w, "Unmapped columns: %s\n", strings.Join(m.UnmappedColumns, ", "))
	}
	for _, issue := range review {
		_, _ = fmt.Fprintf(w, "Review: %s\n", issue)
	}
}

func renderSummary(w io.Writer, s *core.RunSummary) {
	status := "ok"
	switch {
	case s.Aborted:
		status = "aborted"
	case s.Error != "":
		status = "failed"
	}
	_, _ = fmt.Fprintf(w, "Run %s: %s (%s)\n", s.RunID, s.File, status)

	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Rows", s.TotalRows},
		{"Accepted", s.Accepted},
		{"Rejected", s.Rejected},
		{"Written", s.Written},
		{"Duration", s.Duration.Round(time.Millisecond)},
	})
	t.Render()

	if len(s.UnresolvedRequired) > 0 {
		_, _ = fmt.Fprintf(w, "Unresolved required: %s\n", strings.Join(s.UnresolvedRequired, ", "))
	}
	for _, issue := range s.Review {
		_, _ = fmt.Fprintf(w, "Review: %s\n", issue)
	}
	if s.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", s.Error)
	}

	if len(s.Rejections) > 0 {
		rt := newTable(w)
		rt.AppendHeader(table.Row{"Line", "Field", "Kind", "Value", "Message"})
		for i, r := range s.Rejections {
			if i == maxRejectionsShown {
				break
			}
			rt.AppendRow(table.Row{r.Line, r.Field, r.Kind, r.Value, r.Message})
		}
		rt.Render()
		if extra := len(s.Rejections) - maxRejectionsShown; extra > 0 {
			_, _ = fmt.Fprintf(w, "... and %d more rejected rows\n", extra)
		}
	}
	if s.FailedFile != "" {
		_, _ = fmt.Fprintf(w, "Failed rows written to %s\n", s.FailedFile)
	}
}

func renderCatalog(w io.Writer, cat *catalog.Catalog) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Required", "Type", "Range", "Default", "Aliases"})
	for _, f := range cat.Describe() {
		req := ""
		if f.Required {
			req = "yes"
		}
		def := ""
		if f.Default != nil {
			def = f.Default.String()
		}
		t.AppendRow(table.Row{f.Name, req, string(f.Type), formatRange(f.Min, f.Max), def, len(f.Aliases)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d fields, %d required)\n", cat.Len(), len(cat.Required()))
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatRange(lo, hi *float64) string {
	if lo == nil && hi == nil {
		return ""
	}
	bound := func(p *float64, inf string) string {
		if p == nil {
			return inf
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return "[" + bound(lo, "-inf") + ", " + bound(hi, "+inf") + "]"
}

// catalogJSON is the shape of "catalog show --json".
func catalogJSON(cat *catalog.Catalog) map[string]any {
	return map[string]any{"fields": cat.Describe()}
}
