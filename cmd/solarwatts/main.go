package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/metrics"
	"github.com/jameshartig/solarwatts/pkg/pvwatts"
	"github.com/jameshartig/solarwatts/pkg/server"

	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// init packages
	p := pvwatts.Configured(metrics.New(reg))

	// init server
	srv := server.Configured(p, reg)

	// parse flags, an invalid pvwatts configuration exits here before we
	// listen on anything
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
