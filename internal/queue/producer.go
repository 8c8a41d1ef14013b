package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/facematch/internal/models"
)

const (
	EmbeddingsStreamName  = "EMBEDDINGS"
	EmbeddingsSubjectBase = "embeddings"
	MatchesStreamName     = "MATCHES"
	MatchesSubjectBase    = "matches"

	// ReloadSubject is a core NATS subject; every worker receives each reload.
	ReloadSubject = "references.reload"
)

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

func streamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:        EmbeddingsStreamName,
			Subjects:    []string{EmbeddingsSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      5 * time.Minute,
			MaxMsgs:     100000,
			MaxBytes:    256 * 1024 * 1024,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  30 * time.Second,
			Description: "Query embeddings awaiting classification",
		},
		{
			Name:        MatchesStreamName,
			Subjects:    []string{MatchesSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Classification results",
		},
	}
}

// EnsureStreams creates JetStream streams if they don't exist, retrying with
// exponential backoff while NATS starts up.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	return ensureStreams(ctx, p.js.CreateOrUpdateStream, streamBackoff())
}

type createStreamFunc func(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)

func streamBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

func ensureStreams(ctx context.Context, create createStreamFunc, b backoff.BackOff) error {
	for _, cfg := range streamConfigs() {
		op := func() error {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if _, err := create(opCtx, cfg); err != nil {
				return fmt.Errorf("create stream %s: %w", cfg.Name, err)
			}
			return nil
		}
		notify := func(err error, wait time.Duration) {
			slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "wait", wait.String(), "error", err)
		}
		b.Reset()
		if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
			return err
		}
		slog.Info("ensured NATS stream", "name", cfg.Name)
	}
	return nil
}

// PublishEmbedding enqueues a task for workers. The task ID doubles as the
// JetStream deduplication ID.
func (p *Producer) PublishEmbedding(ctx context.Context, task models.EmbeddingTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal embedding task: %w", err)
	}

	_, err = p.js.Publish(ctx, subjectFor(EmbeddingsSubjectBase, task.SourceID), payload,
		jetstream.WithMsgID(task.TaskID.String()))
	if err != nil {
		return fmt.Errorf("publish embedding: %w", err)
	}
	return nil
}

// PublishMatch publishes a classification result.
func (p *Producer) PublishMatch(ctx context.Context, res models.MatchResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}

	if _, err := p.js.Publish(ctx, subjectFor(MatchesSubjectBase, res.SourceID), payload); err != nil {
		return fmt.Errorf("publish match: %w", err)
	}
	return nil
}

// PublishReload asks every subscribed worker to reload its reference set.
func (p *Producer) PublishReload() error {
	if err := p.nc.Publish(ReloadSubject, nil); err != nil {
		return fmt.Errorf("publish reload: %w", err)
	}
	return nil
}

// QueueDepth returns the number of pending messages in the EMBEDDINGS stream.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, EmbeddingsStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
