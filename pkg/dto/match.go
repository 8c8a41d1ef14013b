package dto

import "github.com/google/uuid"

type MatchResponse struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     uuid.UUID  `json:"task_id"`
	SourceID   string     `json:"source_id"`
	FaceID     string     `json:"face_id,omitempty"`
	Label      string     `json:"label"`
	Distance   *float64   `json:"distance,omitempty"`
	Recognized bool       `json:"recognized"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Timestamp  string     `json:"timestamp"`
	CreatedAt  string     `json:"created_at,omitempty"`
}

type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
	Total   int             `json:"total"`
}

type MatchQuery struct {
	SourceID string `form:"source_id"`
	Label    string `form:"label"`
	From     string `form:"from"`
	To       string `form:"to"`
	Unknown  *bool  `form:"unknown"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// WSEvent is a WebSocket message for real-time match delivery.
type WSEvent struct {
	Type     string         `json:"type"` // match, references_reloaded
	SourceID string         `json:"source_id,omitempty"`
	Data     *MatchResponse `json:"data,omitempty"`
}
