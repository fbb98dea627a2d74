// Package store is the storage gateway: the only package in the pipeline
// that talks to Mongo. Every other component goes through Store so the
// wire-format of chunks, files and jobs stays in one place.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ingestpipe/internal/config"
	"ingestpipe/internal/observability"
)

// Store wraps the three collections the pipeline needs.
type Store struct {
	client      *mongo.Client
	chunks      *mongo.Collection
	files       *mongo.Collection
	jobs        *mongo.Collection
	batchSize   int
	pingTimeout time.Duration
}

// Connect dials Mongo, verifies reachability and ensures indexes exist.
// Index creation tolerates IndexOptionsConflict/IndexKeySpecsConflict
// (codes 85/86): a second instance racing to create the same index is not
// an error.
func Connect(ctx context.Context, cfg config.Mongo) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:      client,
		chunks:      db.Collection("chunks"),
		files:       db.Collection("files"),
		jobs:        db.Collection("jobs"),
		batchSize:   cfg.InsertBatchSize,
		pingTimeout: cfg.PingTimeout,
	}
	if s.batchSize <= 0 {
		s.batchSize = 200
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	log := observability.LoggerWithTrace(ctx)

	chunkIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "filename", Value: 1}, {Key: "card_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "filename", Value: 1}}},
	}
	fileIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant", Value: 1}, {Key: "filename", Value: 1}}},
	}
	jobIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	for _, pair := range []struct {
		coll *mongo.Collection
		idx  []mongo.IndexModel
	}{
		{s.chunks, chunkIdx},
		{s.files, fileIdx},
		{s.jobs, jobIdx},
	} {
		if _, err := pair.coll.Indexes().CreateMany(ctx, pair.idx); err != nil {
			if isIndexConflict(err) {
				log.Warn().Err(err).Str("collection", pair.coll.Name()).Msg("index already exists with different options, continuing")
				continue
			}
			return err
		}
	}
	return nil
}

func isIndexConflict(err error) bool {
	var ce mongo.CommandError
	if ok := asCommandError(err, &ce); ok {
		return ce.Code == 85 || ce.Code == 86
	}
	return false
}

func asCommandError(err error, target *mongo.CommandError) bool {
	ce, ok := err.(mongo.CommandError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

// Close disconnects from Mongo.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Health pings Mongo and re-runs ensureIndexes, the same probe GET /health
// performs. It reports false rather than returning an error so the HTTP
// layer can surface a plain boolean.
func (s *Store) Health(ctx context.Context) bool {
	timeout := s.pingTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.client.Ping(pctx, nil); err != nil {
		return false
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return false
	}
	return true
}

// UpsertChunks writes chunks in unordered batches of batchSize so one bad
// document in a batch never blocks the rest.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := make([]mongo.WriteModel, 0, end-start)
		for _, c := range chunks[start:end] {
			batch = append(batch, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"tenant": c.Tenant, "filename": c.Filename, "card_id": c.CardID}).
				SetUpdate(bson.M{"$set": c}).
				SetUpsert(true))
		}
		if _, err := s.chunks.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("bulk upsert chunks [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// DeleteChunksForFile purges every chunk belonging to filename before a
// re-ingestion run writes its replacement set (the "purging" pipeline
// stage, only entered when the client named this file in
// replace_filenames).
func (s *Store) DeleteChunksForFile(ctx context.Context, tenant, filename string) error {
	_, err := s.chunks.DeleteMany(ctx, bson.M{"tenant": tenant, "filename": filename})
	if err != nil {
		return fmt.Errorf("delete chunks for file %s: %w", filename, err)
	}
	return nil
}

// ListChunks returns up to limit chunks for a file, ordered by sequence.
// A non-positive limit returns every chunk.
func (s *Store) ListChunks(ctx context.Context, tenant, filename string, limit int) ([]Chunk, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.chunks.Find(ctx, bson.M{"tenant": tenant, "filename": filename}, opts)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer cur.Close(ctx)
	var out []Chunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return out, nil
}

// UpsertFile writes or replaces the summary record for a file.
func (s *Store) UpsertFile(ctx context.Context, f FileSummary) error {
	_, err := s.files.UpdateOne(ctx,
		bson.M{"tenant": f.Tenant, "filename": f.Filename},
		bson.M{"$set": f},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.Filename, err)
	}
	return nil
}

// ListFiles returns every file record for a tenant, sorted by filename.
func (s *Store) ListFiles(ctx context.Context, tenant string) ([]FileSummary, error) {
	cur, err := s.files.Find(ctx, bson.M{"tenant": tenant}, options.Find().SetSort(bson.D{{Key: "filename", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer cur.Close(ctx)
	var out []FileSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return out, nil
}

// CreateJob inserts a new job record. SubmitUpload must not return to its
// caller until this has completed.
func (s *Store) CreateJob(ctx context.Context, j Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	j.UpdatedAt = j.CreatedAt
	_, err := s.jobs.InsertOne(ctx, j)
	if err != nil {
		return fmt.Errorf("create job %s: %w", j.JobID, err)
	}
	return nil
}

// UpdateJob applies a partial update ($set) to a job, bumping UpdatedAt.
func (s *Store) UpdateJob(ctx context.Context, jobID string, set bson.M) error {
	set["updated_at"] = time.Now()
	_, err := s.jobs.UpdateOne(ctx, bson.M{"job_id": jobID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (Job, error) {
	var j Job
	err := s.jobs.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&j)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return Job{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return j, nil
}
