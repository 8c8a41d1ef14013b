package dto

type ClassifyRequest struct {
	Embedding []float64 `json:"embedding" binding:"required"`
}

// ClassifyResponse reports the nearest reference identity. Distance is the
// squared Euclidean distance and is omitted for Unknown results.
type ClassifyResponse struct {
	Label      string   `json:"label"`
	Distance   *float64 `json:"distance,omitempty"`
	Index      int      `json:"index"`
	Recognized bool     `json:"recognized"`
}

type ClassifyBatchRequest struct {
	Embeddings [][]float64 `json:"embeddings" binding:"required"`
}

type ClassifyBatchResponse struct {
	Results []ClassifyResponse `json:"results"`
}

type SubmitEmbeddingRequest struct {
	SourceID  string    `json:"source_id" binding:"required"`
	FaceID    string    `json:"face_id"`
	Embedding []float64 `json:"embedding" binding:"required"`
}

type SubmitEmbeddingResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type ReferenceSetResponse struct {
	Size      int      `json:"size"`
	Dimension int      `json:"dimension"`
	Labels    []string `json:"labels"`
}
