// Package orchestrator runs the background ingestion pipeline: one
// goroutine per queued upload batch, pulled off a bounded worker pool,
// moving each file through reconcile -> parse -> chunk -> enrich -> embed
// -> persist.
package orchestrator

import (
	"context"
	"fmt"

	"ingestpipe/internal/chunker"
	"ingestpipe/internal/config"
	"ingestpipe/internal/embedclient"
	"ingestpipe/internal/ingestpipe"
	"ingestpipe/internal/jobmanager"
	"ingestpipe/internal/llmclient"
	"ingestpipe/internal/parser"
	"ingestpipe/internal/rag/obs"
	"ingestpipe/internal/store"
	"ingestpipe/internal/summarize"
)

type job struct {
	jobID string
	req   ingestpipe.UploadRequest
}

// Pool is the fire-and-forget worker pool backing SubmitUpload: it owns a
// buffered channel of pending job batches and a fixed number of
// goroutines that drain it.
type Pool struct {
	store      *store.Store
	jobs       *jobmanager.Manager
	parser     *parser.Parser
	embedder   *embedclient.Client
	llm        *llmclient.Client
	summarizer *summarize.Summarizer
	metrics    *obs.OtelMetrics

	chunkOpts  chunker.Options
	fanout     int
	smallModel string
	largeModel string
	limits     ingestpipe.Limits

	queue chan job
}

// New constructs a Pool and starts its worker goroutines. Cancelling ctx
// makes idle workers exit; jobs still in the queue are not processed, and
// a job already in flight continues with the cancelled context.
func New(ctx context.Context, cfg config.Config, s *store.Store, jm *jobmanager.Manager, p *parser.Parser, ec *embedclient.Client, lc *llmclient.Client, sm *summarize.Summarizer) *Pool {
	pool := &Pool{
		store:      s,
		jobs:       jm,
		parser:     p,
		embedder:   ec,
		llm:        lc,
		summarizer: sm,
		metrics:    obs.NewOtelMetrics(),
		chunkOpts:  chunker.Options{},
		fanout:     cfg.Orchestrator.ChunkFanout,
		smallModel: cfg.LLM.SmallModel,
		largeModel: cfg.LLM.LargeModel,
		limits: ingestpipe.Limits{
			MaxFiles:  cfg.Upload.MaxFilesPerUpload,
			MaxFileMB: cfg.Upload.MaxFileMB,
		},
		queue: make(chan job, cfg.Orchestrator.QueueCapacity),
	}
	workers := cfg.Orchestrator.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go pool.runWorker(ctx)
	}
	return pool
}

// SubmitUpload validates the batch, creates its job record (Total = the
// number of files submitted), and enqueues it for background processing.
// It returns only after the job record exists, so a client polling
// immediately after this call's response always finds the job.
func (p *Pool) SubmitUpload(ctx context.Context, req ingestpipe.UploadRequest) (string, error) {
	if err := req.Validate(p.limits); err != nil {
		return "", err
	}
	jobID, err := p.jobs.Create(ctx, req.Tenant, len(req.Files))
	if err != nil {
		return "", fmt.Errorf("submit upload: %w", err)
	}

	select {
	case p.queue <- job{jobID: jobID, req: req}:
	default:
		// Queue is full: run the job in its own detached goroutine outside
		// the pool rather than reject the upload outright.
		go func() {
			p.process(context.WithoutCancel(ctx), job{jobID: jobID, req: req})
		}()
	}
	return jobID, nil
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			p.process(ctx, j)
		}
	}
}
