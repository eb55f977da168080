package tui

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/kpi"
)

func sampleState(t *testing.T) grid.State {
	t.Helper()
	s := grid.NewState()
	for _, a := range []grid.Action{
		grid.LoadRows{Rows: []grid.Row{
			{"id": "10", "itemCode": "A-100", "qty": 1.0},
			{"id": "11", "itemCode": "B-200", "qty": 2.0},
		}},
		grid.AddRow{Row: grid.Row{"id": "NEW_1", "itemCode": "", "qty": 0.0}},
		grid.EditRow{Row: grid.Row{"id": "10", "itemCode": "A-100", "qty": 1250.0}},
		grid.SelectRows{IDs: []string{"11"}},
	} {
		var err error
		s, err = grid.Reduce(s, a)
		require.NoError(t, err)
	}
	return s
}

func TestColumns(t *testing.T) {
	rows := []grid.Row{{"qty": 1, "id": "1"}, {"id": "2", "itemCode": "X", "unit": "EA"}}
	assert.Equal(t, []string{"id", "itemCode", "qty", "unit"}, Columns(rows))
	assert.Equal(t, []string{"id"}, Columns(nil))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"integral float", 1250.0, "1,250"},
		{"fraction", 2.345, "2.3"},
		{"int", 42, "42"},
		{"int64", int64(-1234), "-1,234"},
		{"string", "EA", "EA"},
		{"bool", true, "true"},
		{"json integer", json.Number("12345678901234567"), "12,345,678,901,234,567"},
		{"json fraction", json.Number("2.345"), "2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.v, 1))
		})
	}
}

func TestRenderChangeSet(t *testing.T) {
	st := sampleState(t)
	out := RenderChangeSet("bom", st, st.Rows, 1)

	assert.Contains(t, out, "bom")
	assert.Contains(t, out, "rows: 3")
	assert.Contains(t, out, "new: 1")
	assert.Contains(t, out, "updated: 1")
	assert.Contains(t, out, "selected: 1")
	assert.Contains(t, out, "1,250")

	var newLine, modifiedLine, selectedLine string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "NEW_1"):
			newLine = line
		case strings.Contains(line, "A-100"):
			modifiedLine = line
		case strings.Contains(line, "B-200"):
			selectedLine = line
		}
	}
	assert.Contains(t, newLine, StatusNew)
	assert.Contains(t, modifiedLine, StatusModified)
	assert.Contains(t, selectedLine, IconSelected)
	assert.NotContains(t, selectedLine, StatusModified)
}

func TestRenderChangeSet_Empty(t *testing.T) {
	out := RenderChangeSet("kpi", grid.NewState(), nil, 1)
	assert.Contains(t, out, "No rows")
	assert.Contains(t, out, "rows: 0")
}

func TestRenderRowDiff(t *testing.T) {
	prev := grid.Row{"id": "10", "qty": 1.0, "unit": "EA"}
	next := grid.Row{"id": "10", "qty": 4.0, "unit": "EA"}

	out := RenderRowDiff(prev, next, 1)
	assert.Contains(t, out, "qty:")
	assert.Contains(t, out, IconArrowRight)
	assert.NotContains(t, out, "unit")

	assert.Contains(t, RenderRowDiff(prev, prev, 1), "No field changes")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "日本...", truncate("日本語テキスト", 5))
}

func TestRenderError(t *testing.T) {
	assert.Contains(t, RenderError(errors.New("boom")), "Error: boom")
}

func TestRenderKPIs(t *testing.T) {
	a, err := kpi.AchievementRate(875, 1000)
	require.NoError(t, err)
	out := RenderAchievement(a, 1)
	assert.Contains(t, out, "Achievement Rate")
	assert.Contains(t, out, "87.5%")
	assert.Contains(t, out, "1,000")

	r, err := kpi.ReconcileDefects(100, 90, []kpi.DefectCount{{Code: "DENT", Qty: 5}})
	require.NoError(t, err)
	out = RenderReconciliation(r, 1)
	assert.Contains(t, out, "difference 5")
	assert.Contains(t, out, "Defect rate")

	p, err := kpi.CalculatePowerEfficiency(kpi.PowerInput{StandardKWhPerUnit: 2, ActualKWh: 100, Units: 100})
	require.NoError(t, err)
	assert.Contains(t, RenderPowerEfficiency(p, 1), "200.0%")
}
