package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ingestpipe/internal/ingestpipe"
	"ingestpipe/internal/store"
)

type fakeOrchestrator struct {
	jobID string
	err   error
	last  ingestpipe.UploadRequest
}

func (f *fakeOrchestrator) SubmitUpload(ctx context.Context, req ingestpipe.UploadRequest) (string, error) {
	f.last = req
	return f.jobID, f.err
}

type fakeJobs struct {
	job store.Job
	err error
}

func (f *fakeJobs) Get(ctx context.Context, jobID string) (store.Job, error) { return f.job, f.err }

type fakeLister struct {
	files       []store.FileSummary
	chunks      []store.Chunk
	err         error
	healthy     bool
	lastLimit   int
	lastFilename string
}

func (f *fakeLister) ListFiles(ctx context.Context, tenant string) ([]store.FileSummary, error) {
	return f.files, f.err
}
func (f *fakeLister) ListChunks(ctx context.Context, tenant, filename string, limit int) ([]store.Chunk, error) {
	f.lastFilename = filename
	f.lastLimit = limit
	return f.chunks, f.err
}
func (f *fakeLister) Health(ctx context.Context) bool { return f.healthy }

func multipartUpload(t *testing.T, tenant string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("tenant", tenant))
	for filename, content := range files {
		part, err := w.CreateFormFile("files", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHandleUploadSuccess(t *testing.T) {
	orch := &fakeOrchestrator{jobID: "job-123"}
	s := NewServer(orch, &fakeJobs{}, &fakeLister{})

	body, contentType := multipartUpload(t, "acme", map[string]string{"report.pdf": "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "job-123", resp["job_id"])
	require.Equal(t, "acme", orch.last.Tenant)
	require.Len(t, orch.last.Files, 1)
	require.Equal(t, "report.pdf", orch.last.Files[0].Filename)
}

func TestHandleUploadBatchWithReplaceAndRename(t *testing.T) {
	orch := &fakeOrchestrator{jobID: "job-456"}
	s := NewServer(orch, &fakeJobs{}, &fakeLister{})

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("tenant", "acme"))
	require.NoError(t, w.WriteField("replace_filenames", `["a.pdf"]`))
	require.NoError(t, w.WriteField("rename_map", `{"b.pdf":"b-renamed.pdf"}`))
	pa, err := w.CreateFormFile("files", "a.pdf")
	require.NoError(t, err)
	_, err = pa.Write([]byte("content a"))
	require.NoError(t, err)
	pb, err := w.CreateFormFile("files", "b.pdf")
	require.NoError(t, err)
	_, err = pb.Write([]byte("content b"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, orch.last.Files, 2)
	require.True(t, orch.last.ReplaceFilenames["a.pdf"])
	require.Equal(t, "b-renamed.pdf", orch.last.EffectiveFilename("b.pdf"))
}

func TestHandleUploadMissingFile(t *testing.T) {
	s := NewServer(&fakeOrchestrator{err: ingestpipe.ErrValidation}, &fakeJobs{}, &fakeLister{})
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("tenant", "acme"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadStatusNotFound(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{err: errors.Join(store.ErrNotFound, errors.New("job x"))}, &fakeLister{})
	req := httptest.NewRequest(http.MethodGet, "/upload/status?job_id=x", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUploadStatusMissingJobID(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, &fakeLister{})
	req := httptest.NewRequest(http.MethodGet, "/upload/status", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadStatusShape(t *testing.T) {
	lastErr := "boom"
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{job: store.Job{
		JobID: "job-1", Status: store.JobFailed, Total: 3, Completed: 2, LastError: lastErr,
	}}, &fakeLister{})
	req := httptest.NewRequest(http.MethodGet, "/upload/status?job_id=job-1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "job-1", resp.JobID)
	require.Equal(t, "failed", resp.Status)
	require.Equal(t, 3, resp.Total)
	require.Equal(t, 2, resp.Completed)
	require.NotNil(t, resp.LastError)
	require.Equal(t, lastErr, *resp.LastError)
}

func TestHandleListFiles(t *testing.T) {
	lister := &fakeLister{files: []store.FileSummary{{Filename: "f1.pdf", Tenant: "acme", Summary: "s1"}}}
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, lister)

	req := httptest.NewRequest(http.MethodGet, "/files?tenant=acme", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	filenames, ok := resp["filenames"].([]any)
	require.True(t, ok)
	require.Contains(t, filenames, "f1.pdf")
}

func TestHandleListChunksRequiresFilename(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, &fakeLister{})
	req := httptest.NewRequest(http.MethodGet, "/files/chunks?tenant=acme", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListChunksAppliesLimit(t *testing.T) {
	lister := &fakeLister{}
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, lister)
	req := httptest.NewRequest(http.MethodGet, "/files/chunks?tenant=acme&filename=report.pdf&limit=5", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "report.pdf", lister.lastFilename)
	require.Equal(t, 5, lister.lastLimit)
}

func TestHandleListChunksRejectsBadLimit(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, &fakeLister{})
	req := httptest.NewRequest(http.MethodGet, "/files/chunks?tenant=acme&filename=report.pdf&limit=notanumber", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, &fakeLister{healthy: true})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["ok"])
	require.Equal(t, true, resp["mongodb_connected"])
	require.Equal(t, "ingestion_pipeline", resp["service"])
}

func TestHandleHealthReportsDisconnected(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, &fakeJobs{}, &fakeLister{healthy: false})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["mongodb_connected"])
}
