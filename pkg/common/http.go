package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// Version returns the embedded release version.
func Version() string {
	return strings.TrimSpace(version)
}

// UserAgent is sent on every outbound request made by HTTPClient.
func UserAgent() string {
	return "SolarWatts/" + Version()
}

type headerTransport struct {
	transport http.RoundTripper
	headers   http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// the caller owns the original request so we must not touch its headers
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header[k] = v
		}
	}
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http client that identifies itself with UserAgent and
// asks for JSON unless the request already set an Accept header. The timeout
// bounds the whole exchange including reading the body.
func HTTPClient(timeout time.Duration) *http.Client {
	headers := http.Header{}
	headers.Set("User-Agent", UserAgent())
	headers.Set("Accept", "application/json")

	return &http.Client{
		Transport: &headerTransport{
			transport: http.DefaultTransport,
			headers:   headers,
		},
		Timeout: timeout,
	}
}
