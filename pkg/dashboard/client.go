package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jameshartig/solarwatts/pkg/series"
	"github.com/jameshartig/solarwatts/pkg/types"
)

// APIError is a non-2xx answer from the forecast endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forecast api status %d: %s", e.StatusCode, e.Message)
}

// Client calls the forecast endpoint of a running server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the server at baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Forecast fetches the forecast for req and returns the checked monthly
// arrays.
func (c *Client) Forecast(ctx context.Context, req types.ForecastRequest) (types.Outputs, error) {
	params := url.Values{}
	params.Set("tilt", strconv.FormatFloat(req.Tilt, 'f', -1, 64))
	params.Set("azimuth", strconv.FormatFloat(req.Azimuth, 'f', -1, 64))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/forecast?"+params.Encode(), nil)
	if err != nil {
		return types.Outputs{}, err
	}
	resp, err := c.http.Do(hreq)
	if err != nil {
		return types.Outputs{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Outputs{}, err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "Server Error"}
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		return types.Outputs{}, apiErr
	}

	return series.ParseOutputs(body)
}
