package kpi

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for KPI calculations, compared with errors.Is().
var (
	// ErrNegativeValue indicates a negative quantity or energy reading.
	ErrNegativeValue = constError("negative value")

	// ErrZeroPlan indicates a plan quantity of zero, which has no achievement rate.
	ErrZeroPlan = constError("planned quantity must be positive")

	// ErrNoOutput indicates zero produced units, which has no per-unit energy.
	ErrNoOutput = constError("produced units must be positive")

	// ErrZeroEnergy indicates zero actual energy consumption.
	ErrZeroEnergy = constError("actual energy must be positive")

	// ErrNotNumeric indicates a grid field that cannot be read as a number.
	ErrNotNumeric = constError("value is not numeric")
)
