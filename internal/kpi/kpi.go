package kpi

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rshade/mesgrid/internal/grid"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100

// DefaultPrecision is the number of decimals used in DisplayText.
const DefaultPrecision = 1

// AchievementRate computes actual output against plan.
func AchievementRate(actual, planned float64) (Achievement, error) {
	if actual < 0 || planned < 0 {
		return Achievement{}, ErrNegativeValue
	}
	if planned == 0 {
		return Achievement{}, ErrZeroPlan
	}

	rate := actual / planned * percentMultiplier
	return Achievement{
		Planned: planned,
		Actual:  actual,
		Rate:    rate,
		DisplayText: fmt.Sprintf("Achieved %s of %s planned (%s)",
			FormatFloat(actual, 0), FormatFloat(planned, 0), FormatPercent(rate, DefaultPrecision)),
	}, nil
}

// ReconcileDefects checks that produced = good + sum(defects).
func ReconcileDefects(produced, good int64, defects []DefectCount) (Reconciliation, error) {
	if produced < 0 || good < 0 {
		return Reconciliation{}, ErrNegativeValue
	}

	var total int64
	for _, d := range defects {
		if d.Qty < 0 {
			return Reconciliation{}, fmt.Errorf("defect %q: %w", d.Code, ErrNegativeValue)
		}
		total += d.Qty
	}

	r := Reconciliation{
		Produced:    produced,
		Good:        good,
		DefectTotal: total,
		Difference:  produced - (good + total),
	}
	r.Balanced = r.Difference == 0
	if produced > 0 {
		r.DefectRate = float64(total) / float64(produced) * percentMultiplier
	}

	switch {
	case r.Balanced:
		r.DisplayText = fmt.Sprintf("Balanced: %s good + %s defective = %s produced (defect rate %s)",
			FormatNumber(good), FormatNumber(total), FormatNumber(produced),
			FormatPercent(r.DefectRate, DefaultPrecision))
	case r.Difference > 0:
		r.DisplayText = fmt.Sprintf("Unbalanced: %s units unaccounted for", FormatNumber(r.Difference))
	default:
		r.DisplayText = fmt.Sprintf("Unbalanced: %s units over-reported", FormatNumber(-r.Difference))
	}
	return r, nil
}

// CalculatePowerEfficiency compares metered energy per unit with the standard.
func CalculatePowerEfficiency(in PowerInput) (PowerEfficiency, error) {
	if in.StandardKWhPerUnit < 0 || in.ActualKWh < 0 || in.Units < 0 {
		return PowerEfficiency{}, ErrNegativeValue
	}
	if in.Units == 0 {
		return PowerEfficiency{}, ErrNoOutput
	}
	if in.ActualKWh == 0 {
		return PowerEfficiency{}, ErrZeroEnergy
	}

	perUnit := in.ActualKWh / float64(in.Units)
	eff := in.StandardKWhPerUnit / perUnit * percentMultiplier
	if math.IsInf(eff, 0) || math.IsNaN(eff) {
		return PowerEfficiency{}, ErrZeroEnergy
	}

	return PowerEfficiency{
		ActualKWhPerUnit: perUnit,
		Efficiency:       eff,
		DisplayText: fmt.Sprintf("%s kWh/unit against standard %s kWh/unit (efficiency %s)",
			FormatFloat(perUnit, 3), FormatFloat(in.StandardKWhPerUnit, 3), FormatPercent(eff, DefaultPrecision)),
	}, nil
}

// SumField totals a numeric field across rows. Rows without the field count
// as zero; strings are parsed.
func SumField(rows []grid.Row, field string) (float64, error) {
	var total float64
	for _, r := range rows {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return 0, fmt.Errorf("row %s field %s: %w", grid.IDOf(r), field, err)
		}
		total += f
	}
	return total, nil
}

// DefectsFromRows groups quantity by code across defect rows.
func DefectsFromRows(rows []grid.Row, codeField, qtyField string) ([]DefectCount, error) {
	index := make(map[string]int)
	var out []DefectCount
	for _, r := range rows {
		code := fmt.Sprint(r[codeField])
		qty, err := toFloat(r[qtyField])
		if err != nil {
			return nil, fmt.Errorf("row %s field %s: %w", grid.IDOf(r), qtyField, err)
		}
		i, seen := index[code]
		if !seen {
			i = len(out)
			index[code] = i
			out = append(out, DefectCount{Code: code})
		}
		out[i].Qty += int64(math.Round(qty))
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
}
