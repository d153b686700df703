// Package pvwatts forwards forecast requests to the NREL PVWatts API.
package pvwatts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jameshartig/solarwatts/pkg/common"
	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/metrics"
	"github.com/jameshartig/solarwatts/pkg/types"
)

// Messages returned to callers. Details stay in the server logs.
const (
	UnavailableMessage = "Failed to fetch data from upstream API"
	MalformedMessage   = "Unexpected data format from upstream API"
)

var (
	// ErrUpstreamUnavailable is returned when the upstream could not be
	// reached, timed out or answered with a non-2xx status.
	ErrUpstreamUnavailable = errors.New("failed to fetch data from upstream api")

	// ErrUpstreamMalformed is returned when the upstream answered but the
	// body has no "outputs" object.
	ErrUpstreamMalformed = errors.New("unexpected data format from upstream api")
)

// ErrorMessage returns the caller facing message for an error returned by
// Fetch.
func ErrorMessage(err error) string {
	if errors.Is(err, ErrUpstreamMalformed) {
		return MalformedMessage
	}
	return UnavailableMessage
}

const maxBodyBytes = 4 << 20

// Client issues PVWatts requests. It holds no per-request state and is safe
// for concurrent use.
type Client struct {
	cfg     Config
	client  *http.Client
	metrics *metrics.Recorder
}

// NewClient validates cfg and returns a Client using it.
func NewClient(cfg Config, m *metrics.Recorder) (*Client, error) {
	c := &Client{metrics: m}
	if err := c.configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.client = common.HTTPClient(cfg.Timeout)
	return nil
}

// Defaults returns the orientation used for missing request parameters.
func (c *Client) Defaults() types.ForecastRequest {
	return c.cfg.Defaults
}

// Fetch performs exactly one upstream request and returns the upstream body
// unmodified once it is known to contain "outputs". The request is bounded
// by the configured timeout only, cancelling ctx does not abort it.
func (c *Client) Fetch(ctx context.Context, req types.ForecastRequest) ([]byte, error) {
	ctx = context.WithoutCancel(ctx)

	params := c.cfg.Params(req)
	log.Ctx(ctx).InfoContext(ctx, "requesting pvwatts data", slog.Any("params", redacted(params)))

	start := time.Now()
	body, err := c.fetch(ctx, params)
	took := time.Since(start)
	switch {
	case err == nil:
		c.metrics.RecordUpstream(metrics.OutcomeOK, took)
		log.Ctx(ctx).InfoContext(ctx, "fetched pvwatts data", slog.Duration("took", took))
	case errors.Is(err, ErrUpstreamMalformed):
		c.metrics.RecordUpstream(metrics.OutcomeMalformed, took)
		log.Ctx(ctx).WarnContext(ctx, "unexpected pvwatts data format", slog.Any("error", err))
	default:
		c.metrics.RecordUpstream(metrics.OutcomeUnavailable, took)
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch pvwatts data", slog.Duration("took", took), slog.Any("error", err))
	}
	return body, err
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %w", ErrUpstreamUnavailable, err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// the error includes the url which contains the api key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %s%s", ErrUpstreamUnavailable, resp.Status, upstreamErrors(body))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamMalformed, err)
	}
	outputs, ok := fields["outputs"]
	if !ok || isFalsy(outputs) {
		return nil, fmt.Errorf("%w: missing outputs%s", ErrUpstreamMalformed, upstreamErrors(body))
	}
	return body, nil
}

// isFalsy reports whether raw is null, false, a zero number or an empty
// string. Any of those means the upstream sent no outputs.
func isFalsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	default:
		return false
	}
}

// upstreamErrors extracts the PVWatts "errors" list for logging.
func upstreamErrors(body []byte) string {
	var resp types.UpstreamResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf(" (upstream errors: %q)", resp.Errors)
}
