package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/pvwatts"
	"github.com/jameshartig/solarwatts/pkg/series"
	"github.com/jameshartig/solarwatts/pkg/types"
)

// parseFloatParam returns the named query value or def when it is absent,
// not a number or not finite. Parsed values are returned unchanged.
func parseFloatParam(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func (s *Server) parseForecastRequest(r *http.Request) types.ForecastRequest {
	def := s.forecaster.Defaults()
	return types.ForecastRequest{
		Tilt:    parseFloatParam(r, "tilt", def.Tilt),
		Azimuth: parseFloatParam(r, "azimuth", def.Azimuth),
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.parseForecastRequest(r)
	log.Ctx(ctx).InfoContext(ctx, "forecast request", slog.Float64("tilt", req.Tilt), slog.Float64("azimuth", req.Azimuth))

	body, err := s.forecaster.Fetch(ctx, req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch forecast", slog.Any("error", err))
		writeJSONError(w, pvwatts.ErrorMessage(err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.parseForecastRequest(r)
	multiplier := series.NormalizeMultiplier(parseFloatParam(r, "multiplier", series.DefaultMultiplier))
	log.Ctx(ctx).InfoContext(ctx, "series request",
		slog.Float64("tilt", req.Tilt),
		slog.Float64("azimuth", req.Azimuth),
		slog.Float64("multiplier", multiplier),
	)

	body, err := s.forecaster.Fetch(ctx, req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch forecast", slog.Any("error", err))
		writeJSONError(w, pvwatts.ErrorMessage(err), http.StatusBadGateway)
		return
	}

	outputs, err := series.ParseOutputs(body)
	var records []types.DisplayRecord
	if err == nil {
		records, err = series.Derive(outputs, multiplier)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to derive series", slog.Any("error", err))
		writeJSONError(w, series.InvalidDataMessage, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// forecastFetcher serves the dashboard from the in-process adapter instead
// of calling back into our own HTTP API.
type forecastFetcher struct {
	forecaster Forecaster
}

func (f forecastFetcher) Forecast(ctx context.Context, req types.ForecastRequest) (types.Outputs, error) {
	body, err := f.forecaster.Fetch(ctx, req)
	if err != nil {
		return types.Outputs{}, err
	}
	return series.ParseOutputs(body)
}
