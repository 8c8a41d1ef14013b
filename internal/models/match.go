package models

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingTask is the message published to NATS for worker classification.
// The embedding was computed upstream from an aligned face crop.
type EmbeddingTask struct {
	TaskID    uuid.UUID `json:"task_id"`
	SourceID  string    `json:"source_id"`
	FaceID    string    `json:"face_id"`
	Timestamp time.Time `json:"timestamp"`
	Embedding []float64 `json:"embedding"`
}

// MatchResult is the worker's verdict for one task.
type MatchResult struct {
	TaskID     uuid.UUID `json:"task_id"`
	SourceID   string    `json:"source_id"`
	FaceID     string    `json:"face_id"`
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label"`
	Distance   *float64  `json:"distance,omitempty"` // nil when no reference set was available
	Index      int       `json:"index"`
	Recognized bool      `json:"recognized"`
}

// Match is a persisted MatchResult.
type Match struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TaskID     uuid.UUID  `json:"task_id" db:"task_id"`
	SourceID   string     `json:"source_id" db:"source_id"`
	FaceID     string     `json:"face_id" db:"face_id"`
	Label      string     `json:"label" db:"label"`
	Distance   *float64   `json:"distance,omitempty" db:"distance"`
	Recognized bool       `json:"recognized" db:"recognized"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty" db:"identity_id"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// MatchFilter narrows QueryMatches. Zero values mean no filtering.
type MatchFilter struct {
	SourceID string
	Label    string
	Unknown  *bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
