package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ingestpipe/internal/ingestpipe"
	"ingestpipe/internal/store"
)

const (
	maxUploadBytes    = 1 << 30 // 1GiB backstop; real per-file/per-batch limits are enforced by ingestpipe.UploadRequest.Validate
	defaultChunkLimit = 200
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tenant := r.FormValue("tenant")

	var replaceList []string
	if raw := r.FormValue("replace_filenames"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &replaceList); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("replace_filenames: "+err.Error()))
			return
		}
	}
	replaceSet := make(map[string]bool, len(replaceList))
	for _, name := range replaceList {
		replaceSet[name] = true
	}

	renameMap := map[string]string{}
	if raw := r.FormValue("rename_map"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &renameMap); err != nil {
			respondError(w, http.StatusBadRequest, errors.New("rename_map: "+err.Error()))
			return
		}
	}

	var files []ingestpipe.FileBlob
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				respondError(w, http.StatusBadRequest, err)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				respondError(w, http.StatusBadRequest, err)
				return
			}
			files = append(files, ingestpipe.FileBlob{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	req := ingestpipe.UploadRequest{
		Tenant:           tenant,
		Files:            files,
		ReplaceFilenames: replaceSet,
		RenameMap:        renameMap,
	}

	jobID, err := s.orchestrator.SubmitUpload(ctx, req)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      jobID,
		"status":      "processing",
		"total_files": len(files),
	})
}

// jobStatusResponse is the exact GET /upload/status contract: job_id,
// status, total, completed and last_error, nothing more.
type jobStatusResponse struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	LastError *string `json:"last_error"`
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, errors.New("job_id is required"))
		return
	}
	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	resp := jobStatusResponse{
		JobID:     job.JobID,
		Status:    string(job.Status),
		Total:     job.Total,
		Completed: job.Completed,
	}
	if job.LastError != "" {
		resp.LastError = &job.LastError
	}
	respondJSON(w, http.StatusOK, resp)
}

// fileListItem is the per-file shape inside GET /files' "files" array.
type fileListItem struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		respondError(w, http.StatusBadRequest, errors.New("tenant is required"))
		return
	}
	summaries, err := s.reader.ListFiles(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	files := make([]fileListItem, len(summaries))
	filenames := make([]string, len(summaries))
	for i, f := range summaries {
		files[i] = fileListItem{Filename: f.Filename, Summary: f.Summary}
		filenames[i] = f.Filename
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": files, "filenames": filenames})
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	filename := r.URL.Query().Get("filename")
	if tenant == "" || filename == "" {
		respondError(w, http.StatusBadRequest, errors.New("tenant and filename are required"))
		return
	}
	limit := defaultChunkLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	chunks, err := s.reader.ListChunks(r.Context(), tenant, filename, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.reader.Health(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"mongodb_connected": connected,
		"service":           "ingestion_pipeline",
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, ingestpipe.ErrValidation), errors.Is(err, ingestpipe.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ingestpipe.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
