package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jameshartig/solarwatts/pkg/metrics"
	"github.com/jameshartig/solarwatts/pkg/pvwatts"
	"github.com/jameshartig/solarwatts/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWelcomeAndHealthz(t *testing.T) {
	srv := newTestServer(&mockForecaster{})
	h := srv.setupHandler()

	t.Run("Welcome", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Welcome to the Solar Energy Project API!", w.Body.String())
		assert.Equal(t, "solarwatts", w.Header().Get("Server"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("Healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("Unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCORS(t *testing.T) {
	f := &mockForecaster{}
	f.On("Fetch", mock.Anything, mock.Anything).Return([]byte(forecastBody), nil)
	h := newTestServer(f).setupHandler()

	t.Run("Allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/forecast", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Other origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/forecast", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/forecast", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("Wildcard", func(t *testing.T) {
		srv := newTestServer(f)
		srv.allowedOrigins = splitList(" * , ")
		req := httptest.NewRequest("GET", "/api/forecast", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

// newUpstream returns a fake PVWatts API and a server wired to it through the
// real adapter.
func newUpstream(t *testing.T, h http.HandlerFunc) *Server {
	t.Helper()
	upstream := httptest.NewServer(h)
	t.Cleanup(upstream.Close)

	reg := prometheus.NewRegistry()
	client, err := pvwatts.NewClient(pvwatts.Config{
		APIKey:   "secret-key",
		APIURL:   upstream.URL,
		Timeout:  time.Second,
		Site:     types.DefaultSiteConfig(),
		Defaults: types.ForecastRequest{Tilt: 40, Azimuth: 180},
	}, metrics.New(reg))
	require.NoError(t, err)

	srv := newTestServer(client)
	srv.gatherer = reg
	return srv
}

func TestEndToEnd(t *testing.T) {
	t.Run("Forwards parameters unchanged", func(t *testing.T) {
		var got url.Values
		srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query()
			_, _ = w.Write([]byte(forecastBody))
		})

		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast?tilt=500&azimuth=abc", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, forecastBody, w.Body.String())
		assert.Equal(t, "500", got.Get("tilt"))
		assert.Equal(t, "180", got.Get("azimuth"))
		assert.Equal(t, "secret-key", got.Get("api_key"))
		assert.Equal(t, "51.20578", got.Get("lat"))
		assert.Equal(t, "3.47789", got.Get("lon"))
		assert.Equal(t, "4", got.Get("system_capacity"))
		assert.Equal(t, "1", got.Get("array_type"))
		assert.Equal(t, "1", got.Get("module_type"))
		assert.Equal(t, "10", got.Get("losses"))
	})

	t.Run("Missing outputs", func(t *testing.T) {
		srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errors":["tilt out of range"]}`))
		})

		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error":"Unexpected data format from upstream API"}`, w.Body.String())
	})

	t.Run("Slow upstream", func(t *testing.T) {
		release := make(chan struct{})
		srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		start := time.Now()
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch data from upstream API"}`, w.Body.String())
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.NotContains(t, w.Body.String(), "secret-key")
	})

	t.Run("Concurrent identical requests each call upstream", func(t *testing.T) {
		var calls atomic.Int32
		srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(forecastBody))
		})
		h := srv.setupHandler()

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast?tilt=40&azimuth=180", nil))
				assert.Equal(t, http.StatusOK, w.Code)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(5), calls.Load())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `solarwatts_upstream_requests_total{outcome="ok"} 5`)
	})
}

func TestRun(t *testing.T) {
	srv := newTestServer(&mockForecaster{})
	srv.listenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	// give the listener a moment before shutting down
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a ,, http://b"))
	assert.Nil(t, splitList(""))
}
