package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/mesgrid/internal/config"
	"github.com/rshade/mesgrid/internal/grid"
	"github.com/rshade/mesgrid/internal/kpi"
	"github.com/rshade/mesgrid/internal/tui"
)

// Grids and fields read by --from-drafts.
const (
	ordersGrid  = "production_orders"
	resultsGrid = "production_results"
	defectsGrid = "defects"
)

// newKPICmd creates the kpi command group.
func newKPICmd() *cobra.Command {
	cmd := &cobra.Command{Use: "kpi", Short: "Production KPI calculations"}
	cmd.AddCommand(NewKPIAchievementCmd(), NewKPIDefectsCmd(), NewKPIPowerCmd())
	return cmd
}

// draftRows returns the rows of each named grid from the draft store.
func draftRows(names ...string) (map[string][]grid.Row, error) {
	store, err := openDraftStore(config.GetGlobalConfig())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]grid.Row, len(names))
	for _, name := range names {
		st, _ := store.Get(name)
		out[name] = st.Rows
	}
	return out, nil
}

// NewKPIAchievementCmd creates the kpi achievement command.
func NewKPIAchievementCmd() *cobra.Command {
	var (
		planned, actual float64
		fromDrafts      bool
		planField       string
		actualField     string
	)

	cmd := &cobra.Command{
		Use:   "achievement",
		Short: "Actual output against plan, as a percentage",
		Example: `  # From explicit figures
  mesgrid kpi achievement --planned 1000 --actual 875

  # Sum planQty over production_orders and goodQty over production_results
  mesgrid kpi achievement --from-drafts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromDrafts {
				rows, err := draftRows(ordersGrid, resultsGrid)
				if err != nil {
					return err
				}
				if planned, err = kpi.SumField(rows[ordersGrid], planField); err != nil {
					return fmt.Errorf("%s: %w", ordersGrid, err)
				}
				if actual, err = kpi.SumField(rows[resultsGrid], actualField); err != nil {
					return fmt.Errorf("%s: %w", resultsGrid, err)
				}
			}

			a, err := kpi.AchievementRate(actual, planned)
			if err != nil {
				return err
			}
			return render(cmd, a, func() string { return tui.RenderAchievement(a, precision()) })
		},
	}

	cmd.Flags().Float64Var(&planned, "planned", 0, "planned quantity")
	cmd.Flags().Float64Var(&actual, "actual", 0, "actual good quantity")
	cmd.Flags().BoolVar(&fromDrafts, "from-drafts", false, "sum quantities from the local grid drafts")
	cmd.Flags().StringVar(&planField, "plan-field", "planQty", "production_orders field holding the plan quantity")
	cmd.Flags().StringVar(&actualField, "actual-field", "goodQty", "production_results field holding the good quantity")
	cmd.MarkFlagsMutuallyExclusive("from-drafts", "planned")
	cmd.MarkFlagsMutuallyExclusive("from-drafts", "actual")
	return cmd
}

// NewKPIDefectsCmd creates the kpi defects command.
func NewKPIDefectsCmd() *cobra.Command {
	var (
		produced, good int64
		defectPairs    []string
		fromDrafts     bool
	)

	cmd := &cobra.Command{
		Use:   "defects",
		Short: "Check produced = good + defective quantities",
		Long: `Reconciles produced quantity against good quantity plus the sum of defect
quantities. With --from-drafts, produced is goodQty + defectQty summed over
production_results, good is goodQty, and defects come from the defects grid
grouped by defectCode.`,
		Example: `  mesgrid kpi defects --produced 1000 --good 980 --defect SCRATCH=12 --defect DENT=8`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var defects []kpi.DefectCount
			if fromDrafts {
				var err error
				produced, good, defects, err = defectsFromDrafts()
				if err != nil {
					return err
				}
			} else {
				var err error
				if defects, err = parseDefects(defectPairs); err != nil {
					return err
				}
			}

			r, err := kpi.ReconcileDefects(produced, good, defects)
			if err != nil {
				return err
			}
			if err = render(cmd, r, func() string { return tui.RenderReconciliation(r, precision()) }); err != nil {
				return err
			}
			if !r.Balanced {
				return &ExitError{Code: ExitCodeError, Err: errors.New(r.DisplayText)}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&produced, "produced", 0, "produced quantity")
	cmd.Flags().Int64Var(&good, "good", 0, "good quantity")
	cmd.Flags().StringArrayVar(&defectPairs, "defect", nil, "CODE=QTY defect quantity (repeatable)")
	cmd.Flags().BoolVar(&fromDrafts, "from-drafts", false, "read quantities from the local grid drafts")
	return cmd
}

func parseDefects(pairs []string) ([]kpi.DefectCount, error) {
	out := make([]kpi.DefectCount, 0, len(pairs))
	for _, p := range pairs {
		code, raw, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("invalid --defect %q: expected CODE=QTY", p)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --defect %q: %w", p, err)
		}
		out = append(out, kpi.DefectCount{Code: strings.TrimSpace(code), Qty: qty})
	}
	return out, nil
}

//nolint:nonamedreturns // Named returns document the four figures.
func defectsFromDrafts() (produced, good int64, defects []kpi.DefectCount, err error) {
	rows, err := draftRows(resultsGrid, defectsGrid)
	if err != nil {
		return 0, 0, nil, err
	}
	goodSum, err := kpi.SumField(rows[resultsGrid], "goodQty")
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: %w", resultsGrid, err)
	}
	defectSum, err := kpi.SumField(rows[resultsGrid], "defectQty")
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: %w", resultsGrid, err)
	}
	defects, err = kpi.DefectsFromRows(rows[defectsGrid], "defectCode", "qty")
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: %w", defectsGrid, err)
	}
	return int64(goodSum + defectSum), int64(goodSum), defects, nil
}

// NewKPIPowerCmd creates the kpi power command.
func NewKPIPowerCmd() *cobra.Command {
	var in kpi.PowerInput

	cmd := &cobra.Command{
		Use:     "power",
		Short:   "Energy efficiency against the per-unit standard",
		Example: `  mesgrid kpi power --standard 1.2 --actual-kwh 1500 --units 1000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := kpi.CalculatePowerEfficiency(in)
			if err != nil {
				return err
			}
			return render(cmd, p, func() string { return tui.RenderPowerEfficiency(p, precision()) })
		},
	}

	cmd.Flags().Float64Var(&in.StandardKWhPerUnit, "standard", 0, "standard energy per unit in kWh")
	cmd.Flags().Float64Var(&in.ActualKWh, "actual-kwh", 0, "metered energy for the run in kWh")
	cmd.Flags().Int64Var(&in.Units, "units", 0, "units produced in the run")
	_ = cmd.MarkFlagRequired("standard")
	_ = cmd.MarkFlagRequired("actual-kwh")
	_ = cmd.MarkFlagRequired("units")
	return cmd
}
