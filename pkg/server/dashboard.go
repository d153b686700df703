package server

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/jameshartig/solarwatts/pkg/dashboard"
	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/series"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	def := dashboard.DefaultParams()
	params := dashboard.Params{
		Tilt:       parseFloatParam(r, "tilt", def.Tilt),
		Azimuth:    parseFloatParam(r, "azimuth", def.Azimuth),
		Multiplier: series.NormalizeMultiplier(parseFloatParam(r, "multiplier", def.Multiplier)),
	}

	st := dashboard.Build(ctx, forecastFetcher{forecaster: s.forecaster}, params)

	// render into a buffer so a template failure can still become a JSON error
	var buf bytes.Buffer
	if err := dashboard.RenderHTML(&buf, st); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render dashboard", slog.Any("error", err))
		writeJSONError(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}
