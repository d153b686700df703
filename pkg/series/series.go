// Package series turns the upstream monthly arrays into the scaled records
// shown by the dashboard.
package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jameshartig/solarwatts/pkg/types"
)

const (
	// NominalYear is the year every record is stamped with. The upstream
	// figures describe a typical year, not a calendar one.
	NominalYear = 2024

	MonthsPerYear = 12

	DefaultMultiplier = 1
	MinMultiplier     = 1
	MaxMultiplier     = 10
)

// InvalidDataMessage is shown to the user when ErrInvalidData occurs.
const InvalidDataMessage = "Invalid data format received from server."

// ErrInvalidData is returned when the monthly arrays are missing or don't
// line up.
var ErrInvalidData = errors.New("invalid data format received from server")

// ParseOutputs extracts the monthly arrays from a raw upstream body and
// checks them.
func ParseOutputs(body []byte) (types.Outputs, error) {
	var resp types.UpstreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Outputs{}, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if resp.Outputs == nil {
		return types.Outputs{}, fmt.Errorf("%w: missing outputs", ErrInvalidData)
	}
	if err := Check(*resp.Outputs); err != nil {
		return types.Outputs{}, err
	}
	return *resp.Outputs, nil
}

// Check verifies that all three arrays are present with one value per month.
func Check(o types.Outputs) error {
	channels := []struct {
		name   string
		values []float64
	}{
		{"ac_monthly", o.ACMonthly},
		{"poa_monthly", o.POAMonthly},
		{"solrad_monthly", o.SolradMonthly},
	}
	for _, c := range channels {
		if c.values == nil {
			return fmt.Errorf("%w: missing %s", ErrInvalidData, c.name)
		}
		if len(c.values) != MonthsPerYear {
			return fmt.Errorf("%w: %s has %d values, expected %d", ErrInvalidData, c.name, len(c.values), MonthsPerYear)
		}
	}
	return nil
}

// Derive returns one record per month in chronological order with every
// channel multiplied by multiplier. Values are not rounded.
func Derive(o types.Outputs, multiplier float64) ([]types.DisplayRecord, error) {
	if err := Check(o); err != nil {
		return nil, err
	}
	records := make([]types.DisplayRecord, MonthsPerYear)
	for i := range records {
		records[i] = types.DisplayRecord{
			PeriodEnd:   time.Date(NominalYear, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			ACValue:     o.ACMonthly[i] * multiplier,
			POAValue:    o.POAMonthly[i] * multiplier,
			SolradValue: o.SolradMonthly[i] * multiplier,
		}
	}
	return records, nil
}

// NormalizeMultiplier keeps m within [MinMultiplier, MaxMultiplier] and
// replaces values that aren't finite with DefaultMultiplier.
func NormalizeMultiplier(m float64) float64 {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return DefaultMultiplier
	}
	return math.Min(math.Max(m, MinMultiplier), MaxMultiplier)
}

// FormatValue renders a value the way the table shows it.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Highlight reports whether a table cell should be emphasized.
func Highlight(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

// ChartMax is the upper bound of the chart's y axis: the largest charted
// value with 20% headroom, and never less than 1.2.
func ChartMax(records []types.DisplayRecord) float64 {
	top := 1.0
	for _, r := range records {
		top = math.Max(top, math.Max(r.ACValue, r.POAValue))
	}
	return top * 1.2
}
