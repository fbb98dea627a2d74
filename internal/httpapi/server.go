// Package httpapi exposes the ingestion pipeline over HTTP using the
// standard library's method-pattern routing (Go 1.22+), the same way the
// rest of this codebase's servers are built — no router dependency.
package httpapi

import (
	"context"
	"net/http"

	"ingestpipe/internal/ingestpipe"
	"ingestpipe/internal/store"
)

// Orchestrator is the subset of *orchestrator.Pool the HTTP layer needs.
type Orchestrator interface {
	SubmitUpload(ctx context.Context, req ingestpipe.UploadRequest) (string, error)
}

// JobGetter is the subset of *jobmanager.Manager the HTTP layer needs.
type JobGetter interface {
	Get(ctx context.Context, jobID string) (store.Job, error)
}

// Lister is the subset of *store.Store the HTTP layer needs for reads and
// health probing.
type Lister interface {
	ListFiles(ctx context.Context, tenant string) ([]store.FileSummary, error)
	ListChunks(ctx context.Context, tenant, filename string, limit int) ([]store.Chunk, error)
	Health(ctx context.Context) bool
}

// Server wires the ingestion orchestrator, job manager and storage
// gateway to the module's HTTP surface.
type Server struct {
	orchestrator Orchestrator
	jobs         JobGetter
	reader       Lister
	mux          *http.ServeMux
}

// NewServer constructs the HTTP API server.
func NewServer(o Orchestrator, j JobGetter, r Lister) *Server {
	s := &Server{orchestrator: o, jobs: j, reader: r, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("GET /upload/status", s.handleUploadStatus)
	s.mux.HandleFunc("GET /files", s.handleListFiles)
	s.mux.HandleFunc("GET /files/chunks", s.handleListChunks)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}
