package store

import "time"

// Chunk is a single retrievable unit of text produced by the chunker for
// one ingested file, enriched with a model-generated topic label and
// short summary.
type Chunk struct {
	CardID    string    `bson:"card_id" json:"card_id"`
	Tenant    string    `bson:"tenant" json:"tenant"`
	Filename  string    `bson:"filename" json:"filename"`
	Sequence  int       `bson:"sequence" json:"sequence"`
	Text      string    `bson:"text" json:"content"`
	Title     string    `bson:"title" json:"topic"`
	Summary   string    `bson:"summary" json:"summary"`
	PageSpan  [2]int    `bson:"page_span" json:"page_span"`
	Embedding []float32 `bson:"embedding" json:"embedding,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// FileSummary is the per-file record tracking what has been ingested for a
// tenant's uploaded document.
type FileSummary struct {
	Tenant      string    `bson:"tenant" json:"tenant"`
	Filename    string    `bson:"filename" json:"filename"`
	ContentType string    `bson:"content_type" json:"content_type"`
	Pages       int       `bson:"pages" json:"pages"`
	ChunkCount  int       `bson:"chunk_count" json:"chunk_count"`
	Summary     string    `bson:"summary" json:"summary"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// JobStatus enumerates the externally-visible lifecycle of an ingestion
// job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is the durable record of one submitted upload batch, polled by
// clients via GET /upload/status. Total and Completed track progress
// across the whole batch; Stage records which pipeline stage the file
// currently in flight is in, for observability only.
type Job struct {
	JobID     string    `bson:"job_id" json:"job_id"`
	Tenant    string    `bson:"tenant" json:"tenant"`
	Status    JobStatus `bson:"status" json:"status"`
	Stage     string    `bson:"stage" json:"-"`
	Total     int       `bson:"total" json:"total"`
	Completed int       `bson:"completed" json:"completed"`
	LastError string    `bson:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
