package tui

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/kpi"
)

// Column width limits for cell formatting.
const (
	maxCellWidth   = 24
	minTruncateLen = 3
)

// Column headers that precede the row fields.
const (
	headerSelected = " "
	headerStatus   = "STATUS"
)

// Columns returns the id column followed by every other field in rows,
// sorted by name.
func Columns(rows []grid.Row) []string {
	seen := map[string]bool{grid.IDField: true}
	var rest []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	slices.Sort(rest)
	return append([]string{grid.IDField}, rest...)
}

// FormatValue renders one cell value. Integral numbers get thousand
// separators; other floats are rounded to precision.
func FormatValue(v any, precision int) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return kpi.FormatNumber(int64(n))
		}
		return kpi.FormatFloat(n, precision)
	case float32:
		return FormatValue(float64(n), precision)
	case int:
		return kpi.FormatNumber(int64(n))
	case int64:
		return kpi.FormatNumber(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return kpi.FormatNumber(i)
		}
		if f, err := n.Float64(); err == nil {
			return FormatValue(f, precision)
		}
		return n.String()
	case string:
		return n
	default:
		return fmt.Sprint(v)
	}
}

// RenderChangeSet renders a grid's rows with pending and selection markers,
// preceded by a one-line summary.
func RenderChangeSet(name string, st grid.State, rows []grid.Row, precision int) string {
	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorHeader).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	sb.WriteString(titleStyle.Render(name))
	sb.WriteString("\n")
	sb.WriteString(RenderSummary(st))
	sb.WriteString("\n\n")

	if len(rows) == 0 {
		muted := lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
		sb.WriteString(muted.Render("No rows"))
		return sb.String()
	}

	newIDs := idSet(st.PendingNew)
	updatedIDs := idSet(st.PendingUpdated)
	selected := make(map[string]bool, len(st.Selected))
	for _, id := range st.Selected {
		selected[id] = true
	}

	cols := Columns(rows)
	headers := append([]string{headerSelected, headerStatus}, cols...)
	status := make([]string, len(rows))
	cells := make([][]string, len(rows))
	for i, r := range rows {
		id := grid.IDOf(r)
		mark := ""
		if selected[id] {
			mark = IconSelected
		}
		switch {
		case newIDs[id]:
			status[i] = StatusNew
		case updatedIDs[id]:
			status[i] = StatusModified
		}
		line := []string{mark, status[i]}
		for _, c := range cols {
			line = append(line, truncate(FormatValue(r[c], precision), maxCellWidth))
		}
		cells[i] = line
	}

	headerStyle := lipgloss.NewStyle().Foreground(ColorHeader).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue).Padding(0, 1)
	newStyle := cellStyle.Foreground(ColorOK)
	modifiedStyle := cellStyle.Foreground(ColorHighlight).Bold(true)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(status) {
				return cellStyle
			}
			switch status[row] {
			case StatusNew:
				return newStyle
			case StatusModified:
				return modifiedStyle
			default:
				return cellStyle
			}
		})

	sb.WriteString(t.String())
	return sb.String()
}

// RenderSummary renders the pending counts of st on one line.
func RenderSummary(st grid.State) string {
	labelStyle := lipgloss.NewStyle().Foreground(ColorLabel)
	valueStyle := lipgloss.NewStyle().Foreground(ColorValue).Bold(true)

	parts := []string{
		labelStyle.Render("rows: ") + valueStyle.Render(kpi.FormatNumber(int64(len(st.Rows)))),
		labelStyle.Render("new: ") + valueStyle.Render(kpi.FormatNumber(int64(len(st.PendingNew)))),
		labelStyle.Render("updated: ") + valueStyle.Render(kpi.FormatNumber(int64(len(st.PendingUpdated)))),
		labelStyle.Render("selected: ") + valueStyle.Render(kpi.FormatNumber(int64(len(st.Selected)))),
	}
	return strings.Join(parts, "  ")
}

// RenderRowDiff renders the fields that differ between prev and next.
func RenderRowDiff(prev, next grid.Row, precision int) string {
	changed := grid.ChangedFields(prev, next)
	if len(changed) == 0 {
		muted := lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
		return muted.Render("No field changes")
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorLabel)
	oldStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	newStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)

	lines := make([]string, 0, len(changed))
	for _, f := range changed {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			keyStyle.Render(f+":"),
			oldStyle.Render(truncate(FormatValue(prev[f], precision), maxCellWidth)),
			IconArrowRight,
			newStyle.Render(truncate(FormatValue(next[f], precision), maxCellWidth)),
		))
	}
	return strings.Join(lines, "\n")
}

// RenderError renders an error line.
func RenderError(err error) string {
	return lipgloss.NewStyle().Foreground(ColorError).Bold(true).Render("Error: " + err.Error())
}

func idSet(rows []grid.Row) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[grid.IDOf(r)] = true
	}
	return out
}

// truncate truncates a string to maxLen runes with an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= minTruncateLen {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-minTruncateLen]) + "..."
}
