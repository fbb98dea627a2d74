package orchestrator

import (
	"context"
	"fmt"
	"time"

	"ingestpipe/internal/chunker"
	"ingestpipe/internal/ingestpipe"
	"ingestpipe/internal/observability"
	"ingestpipe/internal/store"
	"ingestpipe/internal/summarize"
)

// fileSummarySentences bounds the per-file summary stored alongside a
// FileSummary record; per-chunk summaries use the shorter
// chunker.chunkSummarySentences instead.
const fileSummarySentences = 6

// process drives every file in a job's batch sequentially, recording
// progress after each success. On the first per-file failure it aborts
// the remaining files: the failing file still consumes a completed slot
// before the job is marked failed, since it was dequeued and attempted.
func (p *Pool) process(ctx context.Context, j job) {
	log := observability.LoggerWithTrace(ctx)
	total := len(j.req.Files)
	for i, file := range j.req.Files {
		if err := p.runFile(ctx, j, file); err != nil {
			completed := i + 1
			log.Error().Err(err).Str("job_id", j.jobID).Str("tenant", j.req.Tenant).
				Str("filename", file.Filename).Msg("ingestion failed, aborting remaining files in batch")
			if ferr := p.jobs.Fail(ctx, j.jobID, completed, err); ferr != nil {
				log.Error().Err(ferr).Str("job_id", j.jobID).Msg("failed to record job failure")
			}
			return
		}
		if err := p.jobs.RecordProgress(ctx, j.jobID, i+1); err != nil {
			log.Error().Err(err).Str("job_id", j.jobID).Msg("failed to record job progress")
		}
	}
	if err := p.jobs.Complete(ctx, j.jobID, total); err != nil {
		log.Error().Err(err).Str("job_id", j.jobID).Msg("failed to mark job complete")
	}
}

// runFile drives one file in the batch through every pipeline stage,
// advancing the job record's stage field as it goes and aborting on the
// first error. Purging prior chunks only happens when the client named
// this file (by its uploaded name) in replace_filenames — re-uploading a
// name that happens to already have stored data is never, on its own,
// grounds to delete it.
func (p *Pool) runFile(ctx context.Context, j job, file ingestpipe.FileBlob) error {
	tenant := j.req.Tenant
	filename := j.req.EffectiveFilename(file.Filename)

	state := stateReconciling
	if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
		return fmt.Errorf("advance stage %s: %w", state, err)
	}
	if j.req.ReplaceFilenames[file.Filename] {
		state = statePurging
		if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
			return fmt.Errorf("advance stage %s: %w", state, err)
		}
		if err := p.store.DeleteChunksForFile(ctx, tenant, filename); err != nil {
			return fmt.Errorf("purge existing chunks for %s: %w", filename, err)
		}
	}

	state = stateParsing
	if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
		return fmt.Errorf("advance stage %s: %w", state, err)
	}
	t0 := time.Now()
	parsed, err := p.parser.Parse(file.Filename, file.Data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	p.observeStage(ctx, "parsing", t0, tenant)

	fullText := parsed.FullText()
	fileSummary := p.summarizer.CheapSummarize(ctx, fullText, fileSummarySentences)

	state = stateChunking
	if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
		return fmt.Errorf("advance stage %s: %w", state, err)
	}
	t0 = time.Now()
	cleanText := summarize.CleanChunkText(fullText)
	chunks := chunker.ChunkText(ctx, p.llm, p.smallModel, p.largeModel, filename, cleanText, p.chunkOpts)
	enriched, err := chunker.Enrich(ctx, p.llm, p.summarizer, p.smallModel, chunks, p.fanout)
	if err != nil {
		return fmt.Errorf("enrich chunks: %w", err)
	}
	p.observeStage(ctx, "chunking", t0, tenant)

	state = stateEmbedding
	if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
		return fmt.Errorf("advance stage %s: %w", state, err)
	}
	t0 = time.Now()
	texts := make([]string, len(enriched))
	for i, e := range enriched {
		texts[i] = e.Text
	}
	var vectors [][]float32
	if len(texts) > 0 {
		var embErr error
		vectors, embErr = p.embedder.EmbedBatch(ctx, texts)
		if embErr != nil {
			log := observability.LoggerWithTrace(ctx)
			log.Warn().Err(embErr).Str("job_id", j.jobID).Msg("embedding degraded for one or more batches")
		}
	}
	p.observeStage(ctx, "embedding", t0, tenant)

	state = statePersisting
	if err := p.jobs.AdvanceStage(ctx, j.jobID, state.String()); err != nil {
		return fmt.Errorf("advance stage %s: %w", state, err)
	}
	t0 = time.Now()
	now := time.Now()
	storeChunks := make([]store.Chunk, len(enriched))
	for i, e := range enriched {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		storeChunks[i] = store.Chunk{
			CardID:    e.CardID,
			Tenant:    tenant,
			Filename:  filename,
			Sequence:  e.Sequence,
			Text:      e.Text,
			Title:     e.Title,
			Summary:   e.Summary,
			PageSpan:  [2]int{1, len(parsed.Pages)},
			Embedding: vec,
			CreatedAt: now,
		}
	}
	// An empty document yields zero chunks: skip the chunk write but still
	// emit a file summary, so the upload is visible in GET /files.
	if len(storeChunks) > 0 {
		if err := p.store.UpsertChunks(ctx, storeChunks); err != nil {
			return fmt.Errorf("persist chunks: %w", err)
		}
	}
	if err := p.store.UpsertFile(ctx, store.FileSummary{
		Tenant:      tenant,
		Filename:    filename,
		ContentType: file.ContentType,
		Pages:       len(parsed.Pages),
		ChunkCount:  len(storeChunks),
		Summary:     fileSummary,
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("persist file summary: %w", err)
	}
	p.observeStage(ctx, "persisting", t0, tenant)

	return nil
}

func (p *Pool) observeStage(ctx context.Context, stage string, start time.Time, tenant string) {
	elapsed := time.Since(start)
	log := observability.LoggerWithTrace(ctx)
	log.Debug().
		Str("stage", stage).
		Str("tenant", tenant).
		Dur("elapsed", elapsed).
		Msg("ingestion stage completed")
	p.metrics.ObserveHistogram("ingestion_stage_ms", float64(elapsed.Milliseconds()), map[string]string{
		"stage":  stage,
		"tenant": tenant,
	})
}
