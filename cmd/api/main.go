package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/facematch/internal/api"
	"github.com/your-org/facematch/internal/api/handlers"
	"github.com/your-org/facematch/internal/api/ws"
	"github.com/your-org/facematch/internal/config"
	"github.com/your-org/facematch/internal/matcher"
	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/observability"
	"github.com/your-org/facematch/internal/queue"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/internal/reference"
	"github.com/your-org/facematch/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facematch API service", "port", cfg.Server.Port, "reference_source", cfg.Recognition.Source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Reference set
	source, err := reference.NewSource(cfg.Recognition, minioStore, db)
	if err != nil {
		slog.Error("reference source", "error", err)
		os.Exit(1)
	}
	registry := recognition.NewRegistry(reference.DimensionChecked(source, cfg.Recognition.Dimension))
	reloader := matcher.NewReloader(registry, cfg.Recognition.ReloadInterval)
	if err := reloader.Reload(ctx); err != nil {
		slog.Warn("initial reference load failed, classifying as Unknown until reload", "error", err)
	}
	go reloader.Run(ctx)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Persist and broadcast match results from workers
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create match consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeMatches(ctx, "api-matches", func(ctx context.Context, res models.MatchResult) error {
		m, err := db.CreateMatch(ctx, res)
		if err != nil {
			return fmt.Errorf("store match %s: %w", res.TaskID, err)
		}
		resp := handlers.MatchToResponse(m)
		hub.BroadcastMatch(&resp)
		return nil
	})
	if err != nil {
		slog.Warn("start match consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:           cfg.Server.APIKey,
		Registry:         registry,
		MaxDistance:      cfg.Recognition.MaxDistance,
		Dimension:        cfg.Recognition.Dimension,
		BatchConcurrency: cfg.Recognition.BatchConcurrency,
		DB:               db,
		Queue:            producer,
		Hub:              hub,
		Reloader:         reloader,
		Checks: []handlers.Check{
			{Name: "postgres", Ping: db.Ping},
			{Name: "minio", Ping: minioStore.Ping},
			{Name: "nats", Ping: func(context.Context) error { return producer.Ping() }},
		},
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
