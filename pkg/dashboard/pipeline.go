// Package dashboard renders the monthly production series and keeps it in
// step with the user's tilt, azimuth and multiplier choices.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/pvwatts"
	"github.com/jameshartig/solarwatts/pkg/series"
	"github.com/jameshartig/solarwatts/pkg/types"
)

// Dashboard defaults, also used by "reset".
const (
	DefaultTilt    = 30
	DefaultAzimuth = 180
)

// FetchFailedMessage is shown when the forecast could not be fetched and no
// better message is known.
const FetchFailedMessage = "Failed to fetch data from the server."

// Params are the user controlled inputs.
type Params struct {
	Tilt       float64 `json:"tilt"`
	Azimuth    float64 `json:"azimuth"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultParams returns the initial dashboard parameters.
func DefaultParams() Params {
	return Params{
		Tilt:       DefaultTilt,
		Azimuth:    DefaultAzimuth,
		Multiplier: series.DefaultMultiplier,
	}
}

// Request returns the part of p that is sent to the forecast API.
func (p Params) Request() types.ForecastRequest {
	return types.ForecastRequest{Tilt: p.Tilt, Azimuth: p.Azimuth}
}

// State is what the dashboard displays. Records is empty whenever Error is
// set.
type State struct {
	Params    Params                `json:"params"`
	Records   []types.DisplayRecord `json:"records"`
	Error     string                `json:"error,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Fetcher returns the monthly arrays for a forecast request.
type Fetcher interface {
	Forecast(ctx context.Context, req types.ForecastRequest) (types.Outputs, error)
}

// Build fetches the forecast for params and derives the display state.
// Failures never leave stale records behind.
func Build(ctx context.Context, f Fetcher, params Params) State {
	st := State{Params: params}
	outputs, err := f.Forecast(ctx, params.Request())
	if err == nil {
		st.Records, err = series.Derive(outputs, params.Multiplier)
	}
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to build dashboard", slog.Any("error", err))
		st.Records = nil
		st.Error = ErrorMessage(err)
		return st
	}
	st.UpdatedAt = time.Now()
	return st
}

// ErrorMessage returns the user facing text for an error from Build.
func ErrorMessage(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, series.ErrInvalidData):
		return series.InvalidDataMessage
	case errors.Is(err, pvwatts.ErrUpstreamUnavailable), errors.Is(err, pvwatts.ErrUpstreamMalformed):
		return pvwatts.ErrorMessage(err)
	default:
		return FetchFailedMessage
	}
}

// Pipeline refetches the forecast whenever the parameters change. A change
// cancels the fetch started by the previous change and only the result for
// the latest parameters is ever published.
type Pipeline struct {
	fetcher Fetcher
	updates chan State

	mu         sync.Mutex
	params     Params
	state      State
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

// NewPipeline returns an idle pipeline starting from params. Call Set to
// trigger the first fetch.
func NewPipeline(f Fetcher, params Params) *Pipeline {
	return &Pipeline{
		fetcher: f,
		params:  params,
		state:   State{Params: params},
		updates: make(chan State, 1),
	}
}

// Updates delivers published states. Only the most recent unread state is
// kept. The channel is closed by Close.
func (p *Pipeline) Updates() <-chan State {
	return p.updates
}

// Params returns the latest requested parameters.
func (p *Pipeline) Params() Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// State returns the most recently published state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Set records new parameters and starts a fetch for them, cancelling any
// fetch still in flight.
func (p *Pipeline) Set(ctx context.Context, params Params) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	p.params = params

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(fetchCtx, p.generation, params)
}

// Update applies fn to the current parameters and calls Set with the result.
func (p *Pipeline) Update(ctx context.Context, fn func(Params) Params) {
	p.Set(ctx, fn(p.Params()))
}

func (p *Pipeline) run(ctx context.Context, generation uint64, params Params) {
	defer p.wg.Done()

	st := Build(ctx, p.fetcher, params)

	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		log.Ctx(ctx).DebugContext(ctx, "dropping superseded dashboard state", slog.Uint64("generation", generation))
		return
	}
	p.cancel()
	p.cancel = nil
	p.state = st

	// keep only the newest unread state
	select {
	case <-p.updates:
	default:
	}
	p.updates <- st
}

// Close stops accepting changes, waits for the in-flight fetch and closes
// Updates.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.updates)
}
