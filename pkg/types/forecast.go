package types

import "time"

// ForecastRequest carries the per-request panel orientation in degrees.
type ForecastRequest struct {
	Tilt    float64 `json:"tilt"`
	Azimuth float64 `json:"azimuth"`
}

// Outputs is the subset of the upstream "outputs" object that is charted.
// Each slice holds one value per calendar month.
type Outputs struct {
	ACMonthly     []float64 `json:"ac_monthly"`
	POAMonthly    []float64 `json:"poa_monthly"`
	SolradMonthly []float64 `json:"solrad_monthly"`
}

// UpstreamResponse is the shape of a PVWatts response. Only Outputs is
// required, Errors and Warnings are logged when present.
type UpstreamResponse struct {
	Outputs  *Outputs `json:"outputs"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// DisplayRecord is one month of the scaled series shown in the chart and the
// table.
type DisplayRecord struct {
	PeriodEnd   time.Time `json:"period_end"`
	ACValue     float64   `json:"ac_value"`
	POAValue    float64   `json:"poa_value"`
	SolradValue float64   `json:"solrad_value"`
}
