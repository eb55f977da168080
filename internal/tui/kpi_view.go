package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/mesgrid/internal/kpi"
)

// fullRate is the percentage at which a KPI counts as met.
const fullRate = 100

// RenderAchievement renders an achievement rate, green when the plan is met.
func RenderAchievement(a kpi.Achievement, precision int) string {
	color := ColorWarning
	if a.Rate >= fullRate {
		color = ColorOK
	}
	return renderKPI("Achievement Rate", [][2]string{
		{"Planned", kpi.FormatFloat(a.Planned, 0)},
		{"Actual", kpi.FormatFloat(a.Actual, 0)},
	}, kpi.FormatPercent(a.Rate, precision), color)
}

// RenderReconciliation renders a defect reconciliation, red when unbalanced.
func RenderReconciliation(r kpi.Reconciliation, precision int) string {
	color := ColorOK
	headline := "balanced"
	if !r.Balanced {
		color = ColorError
		headline = "difference " + kpi.FormatNumber(r.Difference)
	}
	return renderKPI("Defect Reconciliation", [][2]string{
		{"Produced", kpi.FormatNumber(r.Produced)},
		{"Good", kpi.FormatNumber(r.Good)},
		{"Defective", kpi.FormatNumber(r.DefectTotal)},
		{"Defect rate", kpi.FormatPercent(r.DefectRate, precision)},
	}, headline, color)
}

// RenderPowerEfficiency renders a power efficiency result.
func RenderPowerEfficiency(p kpi.PowerEfficiency, precision int) string {
	color := ColorWarning
	if p.Efficiency >= fullRate {
		color = ColorOK
	}
	return renderKPI("Power Efficiency", [][2]string{
		{"Actual kWh/unit", kpi.FormatFloat(p.ActualKWhPerUnit, 3)},
	}, kpi.FormatPercent(p.Efficiency, precision), color)
}

func renderKPI(title string, fields [][2]string, headline string, color lipgloss.Color) string {
	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	labelStyle := lipgloss.NewStyle().Foreground(ColorLabel).Width(labelWidth(fields))
	valueStyle := lipgloss.NewStyle().Foreground(ColorValue)
	headlineStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	sb.WriteString(titleStyle.Render(title))
	sb.WriteString(" ")
	sb.WriteString(headlineStyle.Render(headline))
	for _, f := range fields {
		sb.WriteString("\n  ")
		sb.WriteString(labelStyle.Render(f[0]))
		sb.WriteString(valueStyle.Render(f[1]))
	}
	return sb.String()
}

func labelWidth(fields [][2]string) int {
	w := 0
	for _, f := range fields {
		w = max(w, lipgloss.Width(f[0]))
	}
	return w + 2
}
