package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

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

	slog.Info("starting facematch worker",
		"workers", cfg.Recognition.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
		"reference_source", cfg.Recognition.Source,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage is only needed by the selected reference source.
	var (
		objects reference.ObjectGetter
		lister  reference.EmbeddingLister
	)
	switch cfg.Recognition.Source {
	case config.SourceObject:
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		objects = minioStore
	case config.SourceDatabase:
		db, err := storage.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			slog.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		lister = db
	}

	source, err := reference.NewSource(cfg.Recognition, objects, lister)
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

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	pipeline := matcher.NewPipeline(registry, producer, cfg.Recognition.MaxDistance)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	sub, err := consumer.SubscribeReload(reloader.Trigger)
	if err != nil {
		slog.Warn("subscribe to reference reloads", "error", err)
	} else {
		defer func() { _ = sub.Unsubscribe() }()
	}

	// Start consuming embedding tasks
	err = consumer.ConsumeEmbeddings(ctx, "match-workers", func(ctx context.Context, task models.EmbeddingTask) error {
		if _, err := pipeline.Process(ctx, task); err != nil {
			if errors.Is(err, matcher.ErrMalformedTask) {
				return queue.Permanent(err)
			}
			return fmt.Errorf("process task %s: %w", task.TaskID, err)
		}
		return nil
	}, cfg.Recognition.WorkerCount)
	if err != nil {
		slog.Error("start embedding consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		slog.Info("worker metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}
