package pvwatts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/metrics"
	"github.com/jameshartig/solarwatts/pkg/types"
	"github.com/levenlabs/go-lflag"
)

const (
	DefaultAPIURL  = "https://developer.nrel.gov/api/pvwatts/v6.json"
	DefaultTimeout = 15 * time.Second
	DefaultTilt    = 40
	DefaultAzimuth = 180
)

// ErrMissingAPIKey is returned by Validate when no credential was configured.
// Every upstream request would be rejected so the service refuses to start.
var ErrMissingAPIKey = errors.New("pvwatts api key is required")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the immutable adapter configuration.
type Config struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
	Site    types.SiteConfig

	// Defaults substituted when a request omits tilt or azimuth or sends
	// something that isn't a number.
	Defaults types.ForecastRequest
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.APIURL == "" {
		return fmt.Errorf("pvwatts-api-url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("failed to parse pvwatts url (%s): %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("pvwatts url must be http or https: %s", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("pvwatts-timeout must be positive: %s", c.Timeout)
	}
	if err := validate.Struct(c.Site); err != nil {
		return fmt.Errorf("invalid pvwatts site: %w", err)
	}
	return nil
}

// Params merges the fixed site parameters with the request orientation into
// the upstream query. Values are forwarded exactly as given.
func (c Config) Params(req types.ForecastRequest) url.Values {
	return url.Values{
		"api_key":         {c.APIKey},
		"lat":             {formatFloat(c.Site.Latitude)},
		"lon":             {formatFloat(c.Site.Longitude)},
		"system_capacity": {formatFloat(c.Site.SystemCapacityKW)},
		"azimuth":         {formatFloat(req.Azimuth)},
		"tilt":            {formatFloat(req.Tilt)},
		"array_type":      {strconv.Itoa(int(c.Site.ArrayType))},
		"module_type":     {strconv.Itoa(int(c.Site.ModuleType))},
		"losses":          {formatFloat(c.Site.LossesPercent)},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// redacted returns params safe for logging.
func redacted(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k := range params {
		out[k] = params.Get(k)
	}
	if out["api_key"] != "" {
		out["api_key"] = "REDACTED"
	}
	return out
}

// Configured sets up the PVWatts client from flags. It uses lflag to register
// command-line flags and exits the process if the configuration is invalid.
func Configured(m *metrics.Recorder) *Client {
	c := &Client{metrics: m}

	apiKey := lflag.String("pvwatts-api-key", os.Getenv("NREL_API_KEY"), "API key for the NREL PVWatts API (defaults to $NREL_API_KEY)")
	apiURL := lflag.String("pvwatts-api-url", DefaultAPIURL, "URL for the PVWatts API")
	timeout := lflag.Duration("pvwatts-timeout", DefaultTimeout, "Timeout for a single PVWatts request")
	site := types.DefaultSiteConfig()
	lflag.JSON(&site, "pvwatts-site", site, "JSON site configuration (latitude, longitude, systemCapacityKW, arrayType, moduleType, lossesPercent)")
	defaultTilt := lflag.String("default-tilt", formatFloat(DefaultTilt), "Tilt in degrees used when a request doesn't specify one")
	defaultAzimuth := lflag.String("default-azimuth", formatFloat(DefaultAzimuth), "Azimuth in degrees used when a request doesn't specify one")

	lflag.Do(func() {
		ctx := context.Background()
		tilt, err := strconv.ParseFloat(*defaultTilt, 64)
		if err != nil {
			log.Ctx(ctx).Error("invalid default-tilt", slog.String("value", *defaultTilt), slog.Any("error", err))
			os.Exit(1)
		}
		azimuth, err := strconv.ParseFloat(*defaultAzimuth, 64)
		if err != nil {
			log.Ctx(ctx).Error("invalid default-azimuth", slog.String("value", *defaultAzimuth), slog.Any("error", err))
			os.Exit(1)
		}
		cfg := Config{
			APIKey:   *apiKey,
			APIURL:   *apiURL,
			Timeout:  *timeout,
			Site:     site,
			Defaults: types.ForecastRequest{Tilt: tilt, Azimuth: azimuth},
		}
		if err := c.configure(cfg); err != nil {
			log.Ctx(ctx).Error("invalid pvwatts configuration", slog.Any("error", err))
			os.Exit(1)
		}
	})

	return c
}
