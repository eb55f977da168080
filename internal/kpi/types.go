// Package kpi derives production KPIs from plan, result and energy figures:
// achievement rate, defect-quantity reconciliation and power efficiency.
package kpi

// Achievement is the ratio of actual to planned output.
type Achievement struct {
	Planned float64 `json:"planned"`
	Actual  float64 `json:"actual"`

	// Rate is Actual / Planned as a percentage.
	Rate float64 `json:"rate"`

	DisplayText string `json:"display_text"`
}

// DefectCount is the quantity recorded for one defect code.
type DefectCount struct {
	Code string `json:"code"`
	Qty  int64  `json:"qty"`
}

// Reconciliation compares produced quantity against good plus defective units.
type Reconciliation struct {
	Produced    int64 `json:"produced"`
	Good        int64 `json:"good"`
	DefectTotal int64 `json:"defect_total"`

	// Difference is Produced - (Good + DefectTotal). Zero means balanced.
	Difference int64 `json:"difference"`
	Balanced   bool  `json:"balanced"`

	// DefectRate is DefectTotal / Produced as a percentage, 0 when nothing was produced.
	DefectRate float64 `json:"defect_rate"`

	DisplayText string `json:"display_text"`
}

// PowerInput is the energy data for one production run.
type PowerInput struct {
	// StandardKWhPerUnit is the engineered energy standard per unit.
	StandardKWhPerUnit float64 `json:"standard_kwh_per_unit"`

	// ActualKWh is the metered consumption for the run.
	ActualKWh float64 `json:"actual_kwh"`

	Units int64 `json:"units"`
}

// PowerEfficiency is the ratio of standard to actual energy per unit.
type PowerEfficiency struct {
	ActualKWhPerUnit float64 `json:"actual_kwh_per_unit"`

	// Efficiency is standard / actual per-unit energy as a percentage. Above
	// 100 means the run used less energy than the standard.
	Efficiency float64 `json:"efficiency"`

	DisplayText string `json:"display_text"`
}
