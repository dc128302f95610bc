package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/geosrv/live-dataset-routing-go/cmd/internal/logbridge"
	"github.com/geosrv/live-dataset-routing-go/routing/queryengine"
	"github.com/geosrv/live-dataset-routing-go/routing/registry"
)

func main() {
	configPath := flag.String("config", "routed.yaml", "path to the YAML config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build query engine: %v", err)
	}
	defer cleanup()
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           NewHandler(engine).Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout(),
	}

	done := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr": srv.Addr,
			"mode": cfg.Dataset.Mode,
		}).Info("routed listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
			return
		}
		done <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
		<-done
	case err := <-done:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}

// buildEngine wires an embedded or shared engine per the config. The returned
// cleanup releases shared-mode resources (the Postgres pool); it is a no-op
// in embedded mode.
func buildEngine(ctx context.Context, cfg Config) (*queryengine.Engine, func(), error) {
	logger := logbridge.New(log.StandardLogger())

	options := []queryengine.Option{
		queryengine.WithLogger(logger),
	}
	options = append(options, limitOptions(cfg.Limits)...)

	if cfg.Dataset.Mode == modeEmbedded {
		engine, err := queryengine.NewEmbeddedEngineFromFile(cfg.Dataset.Path, options...)
		if err != nil {
			return nil, nil, err
		}
		return engine, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Registry.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.NewRegistryFromPGXPool(pool, registry.WithLogger(logger))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := reg.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	barrier, err := registry.NewAdvisoryBarrier(ctx, pool, cfg.Dataset.Region)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	watchdog := registry.NewWatchdog(
		reg,
		cfg.Dataset.Region,
		registry.WithPollInterval(cfg.Registry.PollInterval()),
		registry.WithWatchdogLogger(logger),
	)
	watchdog.Start(ctx)

	options = append(options, queryengine.WithGateBarrier(barrier))

	engine, err := queryengine.NewSharedEngine(ctx, watchdog, options...)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return engine, pool.Close, nil
}

func limitOptions(limits LimitsConfig) []queryengine.Option {
	var options []queryengine.Option

	if limits.MaxLocationsRoute > 0 {
		options = append(options, queryengine.WithMaxLocationsRoute(limits.MaxLocationsRoute))
	}
	if limits.MaxLocationsTable > 0 {
		options = append(options, queryengine.WithMaxLocationsTable(limits.MaxLocationsTable))
	}
	if limits.MaxResultsNearest > 0 {
		options = append(options, queryengine.WithMaxResultsNearest(limits.MaxResultsNearest))
	}
	if limits.MaxLocationsTrip > 0 {
		options = append(options, queryengine.WithMaxLocationsTrip(limits.MaxLocationsTrip))
	}
	if limits.MaxTracePointsMatch > 0 {
		options = append(options, queryengine.WithMaxTracePointsMatch(limits.MaxTracePointsMatch))
	}

	return options
}
