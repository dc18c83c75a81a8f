package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/case-trend-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/case-trend-service/internal/adapter/kafka"
	"github.com/couchcryptid/case-trend-service/internal/adapter/provider"
	"github.com/couchcryptid/case-trend-service/internal/config"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/couchcryptid/case-trend-service/internal/pipeline"
	"github.com/couchcryptid/case-trend-service/internal/query"
	"github.com/couchcryptid/case-trend-service/internal/registry"
	"github.com/couchcryptid/case-trend-service/internal/store"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	models, closeRegistry, err := registry.Open(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open model registry", "backend", cfg.RegistryBackend, "error", err)
		os.Exit(1)
	}
	defer closeRegistry()

	records := store.New()

	var (
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
		publisher pipeline.ModelPublisher
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka disabled")
	}

	var refresher httpadapter.SeriesRefresher
	if cfg.ProviderEnabled {
		client := provider.NewClient(cfg.ProviderURL, cfg.ProviderTimeout, metrics, logger)
		refresher = pipeline.NewRefresher(client, records, logger)
		logger.Info("case-data provider enabled", "url", cfg.ProviderURL, "timeout", cfg.ProviderTimeout)
	} else {
		logger.Info("case-data provider disabled")
	}

	trainer := pipeline.NewTrainer(records, models, publisher, clockwork.NewRealClock(), logger, metrics,
		pipeline.TrainerOptions{TestFraction: cfg.TestFraction, Seed: cfg.SplitSeed})

	api := &httpadapter.API{
		Store:     records,
		Models:    models,
		Trainer:   trainer,
		Query:     query.New(models, logger, metrics),
		Refresher: refresher,
		Logger:    logger,
	}

	readiness := observability.Readiness{{Name: "registry", Checker: models}}
	var ingestor *pipeline.Ingestor
	if reader != nil {
		ingestor = pipeline.NewIngestor(reader, records, logger, metrics, cfg.BatchSize)
		readiness = append(readiness, observability.NamedChecker{Name: "ingestor", Checker: ingestor})
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness, api, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if ingestor != nil {
		g.Go(func() error { return ingestor.Run(gctx) })
	}

	g.Go(func() error { return trainer.RunSchedule(gctx, cfg.TrainInterval) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
