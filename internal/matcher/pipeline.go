// Package matcher classifies query embeddings delivered by the detection
// side and emits match results.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/observability"
	"github.com/your-org/facematch/internal/recognition"
)

// ErrMalformedTask marks tasks that can never be classified; retrying them
// is pointless.
var ErrMalformedTask = errors.New("malformed embedding task")

// Publisher delivers match results downstream.
type Publisher interface {
	PublishMatch(ctx context.Context, res models.MatchResult) error
}

type Pipeline struct {
	registry    *recognition.Registry
	publisher   Publisher
	maxDistance float64
}

func NewPipeline(registry *recognition.Registry, publisher Publisher, maxDistance float64) *Pipeline {
	return &Pipeline{
		registry:    registry,
		publisher:   publisher,
		maxDistance: maxDistance,
	}
}

// Process handles one task: validate → classify → threshold → publish.
func (p *Pipeline) Process(ctx context.Context, task models.EmbeddingTask) (models.MatchResult, error) {
	if len(task.Embedding) == 0 {
		observability.MalformedTasks.Inc()
		return models.MatchResult{}, fmt.Errorf("%w: task %s has no embedding", ErrMalformedTask, task.TaskID)
	}

	start := time.Now()
	res, err := p.registry.Classify(task.Embedding)
	if err != nil {
		observability.MalformedTasks.Inc()
		return models.MatchResult{}, fmt.Errorf("%w: task %s: %w", ErrMalformedTask, task.TaskID, err)
	}
	if err := res.CheckFinite(); err != nil {
		observability.MalformedTasks.Inc()
		return models.MatchResult{}, fmt.Errorf("%w: task %s: %w", ErrMalformedTask, task.TaskID, err)
	}
	observability.ClassificationDuration.WithLabelValues("task").Observe(time.Since(start).Seconds())

	out := NewMatchResult(task, res, p.maxDistance)
	if err := p.publisher.PublishMatch(ctx, out); err != nil {
		return out, fmt.Errorf("publish match: %w", err)
	}
	// only published results are counted
	observability.Classifications.WithLabelValues(Outcome(res, out.Recognized)).Inc()

	slog.Debug("task classified",
		"task_id", task.TaskID,
		"source_id", task.SourceID,
		"label", out.Label,
		"recognized", out.Recognized,
	)
	return out, nil
}

// NewMatchResult combines a task with its classification. A zero task ID or
// timestamp is filled in.
func NewMatchResult(task models.EmbeddingTask, res recognition.Result, maxDistance float64) models.MatchResult {
	out := models.MatchResult{
		TaskID:     task.TaskID,
		SourceID:   task.SourceID,
		FaceID:     task.FaceID,
		Timestamp:  task.Timestamp,
		Label:      res.Label,
		Index:      res.Index,
		Recognized: res.Known(maxDistance),
	}
	if out.TaskID == uuid.Nil {
		out.TaskID = uuid.New()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	if !res.IsUnknown() {
		d := res.Distance
		out.Distance = &d
	}
	return out
}

// Outcome names the metrics label for a classification.
func Outcome(res recognition.Result, recognized bool) string {
	switch {
	case res.IsUnknown():
		return observability.OutcomeUnknown
	case recognized:
		return observability.OutcomeRecognized
	default:
		return observability.OutcomeUnrecognized
	}
}
