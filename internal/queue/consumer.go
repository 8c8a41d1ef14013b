package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/facematch/internal/models"
)

// ErrPermanent marks a handler failure that redelivery cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the message is terminated instead of redelivered.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type (
	EmbeddingHandler func(ctx context.Context, task models.EmbeddingTask) error
	MatchHandler     func(ctx context.Context, res models.MatchResult) error
)

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

type settler interface {
	Ack() error
	Nak() error
	Term() error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeNak
	outcomeTerm
)

// settle acknowledges a message according to the handler result.
func settle(msg settler, err error) outcome {
	switch {
	case err == nil:
		_ = msg.Ack()
		return outcomeAck
	case errors.Is(err, ErrPermanent):
		_ = msg.Term()
		return outcomeTerm
	default:
		_ = msg.Nak()
		return outcomeNak
	}
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, Permanent(fmt.Errorf("decode message: %w", err))
	}
	return v, nil
}

// ConsumeEmbeddings starts consuming tasks from the EMBEDDINGS stream.
// workerCount determines how many goroutines process messages concurrently.
func (c *Consumer) ConsumeEmbeddings(ctx context.Context, consumerName string, handler EmbeddingHandler, workerCount int) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	stream, err := c.js.Stream(ctx, EmbeddingsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", EmbeddingsStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		FilterSubject: EmbeddingsSubjectBase + ".>",
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	msgCh := make(chan jetstream.Msg, workerCount*2)
	go fetchLoop(ctx, cons, workerCount, msgCh)

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			for msg := range msgCh {
				err := handleEmbedding(ctx, msg.Data(), handler)
				if err != nil {
					slog.Error("process embedding error", "worker", workerID, "error", err, "subject", msg.Subject())
				}
				settle(msg, err)
			}
		}(i)
	}

	slog.Info("embedding consumer started", "consumer", consumerName, "workers", workerCount)
	return nil
}

func handleEmbedding(ctx context.Context, data []byte, handler EmbeddingHandler) error {
	task, err := decode[models.EmbeddingTask](data)
	if err != nil {
		return err
	}
	return handler(ctx, task)
}

func fetchLoop(ctx context.Context, cons jetstream.Consumer, batchSize int, out chan<- jetstream.Msg) {
	defer close(out)
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := cons.Fetch(batchSize, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("fetch embeddings error", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// ConsumeMatches starts consuming classification results (for the API to
// persist and broadcast via WebSocket).
func (c *Consumer) ConsumeMatches(ctx context.Context, consumerName string, handler MatchHandler) error {
	stream, err := c.js.Stream(ctx, MatchesStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", MatchesStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: MatchesSubjectBase + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				res, err := decode[models.MatchResult](msg.Data())
				if err == nil {
					err = handler(ctx, res)
				}
				if err != nil {
					slog.Error("process match error", "error", err)
				}
				settle(msg, err)
			}
		}
	}()

	slog.Info("match consumer started", "consumer", consumerName)
	return nil
}

// SubscribeReload calls handler for every reload request until the returned
// subscription is drained or the connection closes.
func (c *Consumer) SubscribeReload(handler func()) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(ReloadSubject, func(*nats.Msg) { handler() })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", ReloadSubject, err)
	}
	return sub, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
