package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jameshartig/solarwatts/pkg/common"
	"github.com/jameshartig/solarwatts/pkg/dashboard"
	"github.com/jameshartig/solarwatts/pkg/log"
	"github.com/jameshartig/solarwatts/pkg/series"

	"github.com/levenlabs/go-lflag"
)

func parseParam(ctx context.Context, name, raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Ctx(ctx).Error("invalid flag value", slog.String("flag", name), slog.String("value", raw), slog.Any("error", err))
		os.Exit(1)
	}
	return v
}

func main() {
	apiURL := lflag.String("api-url", "http://localhost:8080", "Base URL of the solarwatts server")
	tilt := lflag.String("tilt", strconv.Itoa(dashboard.DefaultTilt), "Initial tilt in degrees")
	azimuth := lflag.String("azimuth", strconv.Itoa(dashboard.DefaultAzimuth), "Initial azimuth in degrees")
	multiplier := lflag.String("multiplier", strconv.Itoa(series.DefaultMultiplier), "Initial multiplier (1-10)")
	timeout := lflag.Duration("timeout", 30*time.Second, "Timeout for a single request to the server")

	lflag.Configure()

	level, err := log.LevelFromLLog()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	params := dashboard.Params{
		Tilt:       parseParam(ctx, "tilt", *tilt),
		Azimuth:    parseParam(ctx, "azimuth", *azimuth),
		Multiplier: series.NormalizeMultiplier(parseParam(ctx, "multiplier", *multiplier)),
	}

	client := dashboard.NewClient(*apiURL, common.HTTPClient(*timeout))
	pipeline := dashboard.NewPipeline(client, params)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for st := range pipeline.Updates() {
			if err := dashboard.RenderText(os.Stdout, st); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to render", slog.Any("error", err))
			}
			fmt.Fprint(os.Stdout, "> ")
		}
	}()

	pipeline.Set(ctx, params)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if line == "" {
				continue
			}
			next, err := dashboard.ApplyCommand(pipeline.Params(), line)
			if err != nil {
				fmt.Fprintf(os.Stdout, "%s\n> ", err)
				continue
			}
			pipeline.Set(ctx, next)
		}
	}

	pipeline.Close()
	<-rendered
}
