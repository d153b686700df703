package server

import (
	"context"
	"log/slog"

	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

const forecastBody = `{"inputs":{"tilt":"40"},"outputs":{"ac_monthly":[10,20,30,40,50,60,70,80,90,100,110,120],"poa_monthly":[1,2,3,4,5,6,7,8,9,10,11,12],"solrad_monthly":[0.5,1,1.5,2,2.5,3,3.5,4,4.5,5,5.5,6],"ac_annual":780},"errors":[],"warnings":[]}`

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Fetch(ctx context.Context, req types.ForecastRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForecaster) Defaults() types.ForecastRequest {
	return types.ForecastRequest{Tilt: 40, Azimuth: 180}
}

func newTestServer(f Forecaster) *Server {
	return &Server{
		forecaster:     f,
		allowedOrigins: []string{"http://localhost:3000"},
		serverName:     "solarwatts",
	}
}
