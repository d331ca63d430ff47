// Command routeopt plans the routes of one instance file and prints a JSON
// report on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"routeopt/internal/buildinfo"
	"routeopt/internal/config"
	"routeopt/internal/metrics"
	"routeopt/internal/plan"
	"routeopt/internal/status"
)

var interruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

func main() {
	var (
		configPath   = flag.String("config", "", "run configuration YAML")
		instancePath = flag.String("instance", "", "instance YAML to plan (required)")
		eventsPath   = flag.String("events", "", "append run events as JSON lines to this file")
		linger       = flag.Duration("linger", 0, "keep serving /metrics this long after planning")
		showVersion  = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *instancePath == "" {
		log.Fatal().Msg("-instance is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := run(ctx, cfg, *instancePath, *eventsPath, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("planning failed")
	}

	if cfg.Metrics.Addr != "" && *linger > 0 {
		log.Info().Dur("linger", *linger).Msg("serving metrics")
		select {
		case <-ctx.Done():
		case <-time.After(*linger):
		}
	}
}

func run(ctx context.Context, cfg *config.Config, instancePath, eventsPath string, out io.Writer) error {
	in, err := config.LoadInstance(instancePath)
	if err != nil {
		return err
	}
	nodes, vehicle, metric, err := in.Build()
	if err != nil {
		return err
	}

	sink, closeSink, err := buildSink(ctx, cfg.Status, eventsPath)
	if err != nil {
		return err
	}
	defer closeSink()

	p := &plan.Planner{
		Metric: metric,
		Params: cfg.Params,
		Stages: cfg.Stages,
		Status: sink,
		Logger: log.Logger,
	}
	res, err := p.Plan(nodes, vehicle)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(newReport(res))
}

// buildSink assembles the status sinks of the run. The returned func
// releases them once planning is done.
func buildSink(ctx context.Context, cfg config.Status, eventsPath string) (status.Sink, func(), error) {
	sinks := status.Multi{status.LogSink{Logger: log.Logger}}
	var closers []func()

	if cfg.RedisURL != "" {
		rs, err := status.NewRedisSink(cfg.RedisURL, log.Logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, rs)
		closers = append(closers, func() { _ = rs.Close() })
	}

	if cfg.WebhookURL != "" {
		ws := status.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret, log.Logger)
		sinks = append(sinks, ws)
		closers = append(closers, func() { _ = ws.Close() })
	}

	if eventsPath != "" {
		f, err := os.OpenFile(eventsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open events file: %w", err)
		}
		broker := status.NewBroker()
		done := streamEvents(ctx, broker, f)
		sinks = append(sinks, broker)
		closers = append(closers, func() {
			done()
			_ = f.Close()
		})
	}

	var sink status.Sink = sinks
	if cfg.Rate > 0 {
		sink = status.NewThrottled(sinks, cfg.Rate, cfg.Burst)
	}
	return sink, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// eventBuffer bounds the events queued for the event file.
const eventBuffer = 4096

// streamEvents writes every event published on b to w until the returned
// func is called or ctx ends. The func blocks until pending events are written.
func streamEvents(ctx context.Context, b *status.Broker, w io.Writer) func() {
	ch := b.SubscribeBuffered(status.AllRuns, eventBuffer)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		enc := json.NewEncoder(w)
		for evt := range ch {
			if err := enc.Encode(evt); err != nil {
				log.Warn().Err(err).Msg("write event")
			}
		}
	}()
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		b.Unsubscribe(status.AllRuns, ch)
	}()
	return func() {
		close(stop)
		<-finished
	}
}

func serveMetrics(addr string) *http.Server {
	metrics.RegisterDefault()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
