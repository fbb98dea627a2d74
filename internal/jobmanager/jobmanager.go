// Package jobmanager tracks the externally-visible lifecycle of ingestion
// jobs on top of the storage gateway's jobs collection.
package jobmanager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"ingestpipe/internal/store"
)

// Manager creates and advances job records tracking an upload batch's
// progress.
type Manager struct {
	store *store.Store
}

// New constructs a Manager backed by store.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create inserts a new job covering a batch of total files and returns its
// id. The caller (the orchestrator's SubmitUpload) must not return to its
// own caller until this has completed, so a client polling
// GET /upload/status immediately after a 202 response always finds a
// record.
func (m *Manager) Create(ctx context.Context, tenant string, total int) (string, error) {
	jobID := uuid.NewString()
	job := store.Job{
		JobID:  jobID,
		Tenant: tenant,
		Status: store.JobProcessing,
		Stage:  "queued",
		Total:  total,
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return jobID, nil
}

// AdvanceStage records which pipeline stage the file currently in flight
// has entered. It never changes status or completed.
func (m *Manager) AdvanceStage(ctx context.Context, jobID, stage string) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{"stage": stage})
}

// RecordProgress sets the number of files fully processed so far.
// completed must be non-decreasing across calls for the same job.
func (m *Manager) RecordProgress(ctx context.Context, jobID string, completed int) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{"completed": completed})
}

// Complete marks a job done once every file in its batch has succeeded.
func (m *Manager) Complete(ctx context.Context, jobID string, total int) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{
		"status":    store.JobDone,
		"stage":     "done",
		"completed": total,
	})
}

// Fail marks a job failed, recording the slot consumed by the file that
// aborted the batch and the error that stopped it. The orchestrator is the
// only writer of terminal job states; nothing else transitions a job to
// done or failed.
func (m *Manager) Fail(ctx context.Context, jobID string, completed int, cause error) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{
		"status":     store.JobFailed,
		"stage":      "failed",
		"completed":  completed,
		"last_error": cause.Error(),
	})
}

// Get returns a job's current record.
func (m *Manager) Get(ctx context.Context, jobID string) (store.Job, error) {
	return m.store.GetJob(ctx, jobID)
}
