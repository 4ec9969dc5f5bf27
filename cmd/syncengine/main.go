package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/guddu1cse/health-sync-engine/internal/api"
	"github.com/guddu1cse/health-sync-engine/internal/auth"
	"github.com/guddu1cse/health-sync-engine/internal/bus"
	"github.com/guddu1cse/health-sync-engine/internal/config"
	"github.com/guddu1cse/health-sync-engine/internal/consumer"
	"github.com/guddu1cse/health-sync-engine/internal/domain"
	"github.com/guddu1cse/health-sync-engine/internal/emitter"
	"github.com/guddu1cse/health-sync-engine/internal/persistence/postgres"
	"github.com/guddu1cse/health-sync-engine/internal/provider"
	"github.com/guddu1cse/health-sync-engine/internal/token"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	connections := postgres.NewConnectionRepository(pool)
	metrics := postgres.NewMetricRepository(pool)
	codec := token.NewCodec(cfg.EncryptionSecret)

	producer := bus.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()
	publisher := bus.NewPublisher(producer, cfg.SyncTopic, cfg.IngestedTopic)

	fetchers := map[domain.Provider]domain.Fetcher{
		domain.ProviderGoogleFit: provider.NewGoogleFitFetcher(provider.GoogleFitConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		}),
		domain.ProviderFitbit: provider.NewFitbitFetcher(provider.FitbitConfig{}),
	}

	service := domain.NewService(connections, metrics, codec, fetchers, publisher,
		domain.WithAttemptTimeout(cfg.AttemptTimeout))
	handler := consumer.NewSyncHandler(service)

	mux := http.NewServeMux()
	api.NewHandler(publisher).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      authMiddleware.Wrap(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	periodic := emitter.NewPeriodic(connections, publisher, cfg.PeriodicInterval, nil)
	go periodic.Start(ctx)

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.SyncTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})

	proc := consumer.NewProcessor(reader, handler)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("consumer started (topic=%s, group=%s)", cfg.SyncTopic, cfg.ConsumerGroupID)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("consumer stopped with error: %v", err)
		}
	}()

	<-stop
	log.Println("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}

	periodic.Wait()
	wg.Wait()
}
