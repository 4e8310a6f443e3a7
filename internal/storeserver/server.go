package storeserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ncboard/internal/candidates"
	"ncboard/internal/config"
	"ncboard/internal/logging"
	"ncboard/internal/record"
)

const maxBodyBytes = 32 << 20

// Repository is the persistence the API serves.
type Repository interface {
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id int64) (record.Record, error)
	Create(ctx context.Context, rec record.Record) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]string) (int, error)
	Delete(ctx context.Context, id int64) (int, error)
	DeleteBySource(ctx context.Context, sourceFile string) (int, []string, error)
	Import(ctx context.Context, rows []record.Record, sourceFile string) (int, error)
	Ping(ctx context.Context) error
}

// Server is the candidate store HTTP API.
type Server struct {
	bind    string
	repo    Repository
	logger  *slog.Logger
	metrics *metrics
	handler http.Handler
	server  *http.Server
}

// New builds a server for repo using the [server] section of cfg.
func New(cfg *config.Config, repo Repository, logger *slog.Logger) *Server {
	s := &Server{
		bind:    cfg.Server.Bind,
		repo:    repo,
		logger:  logging.NewComponentLogger(logger, "store-api"),
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/candidates", s.handleList)
	mux.HandleFunc("POST /api/candidates", s.handleCreate)
	mux.HandleFunc("PUT /api/candidates/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/candidates/{id}", s.handleDelete)
	mux.HandleFunc("DELETE /api/candidates/by-source/{file}", s.handleDeleteBySource)
	mux.HandleFunc("POST /api/import-json", s.handleImport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if cfg.Server.Metrics {
		mux.Handle("GET /metrics", s.metrics.handler())
	}

	s.handler = s.requestID(s.metrics.middleware(authMiddleware(cfg.Server.APIToken, mux)))
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured bind address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("store api listening", logging.String("address", listener.Addr().String()))
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		s.logger.Info("store api stopped")
		return nil
	})
	return g.Wait()
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.WithContext(r.Context(), s.logger)
}

// candidateJSON is the wire shape of a stored candidate.
type candidateJSON struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	Qualification    string `json:"qualification"`
	DateAssessed     string `json:"date_assessed"`
	AssessmentCenter string `json:"assessment_center"`
	AssessmentStatus string `json:"assessment_status"`
	Result           string `json:"result"`
	NCNo             string `json:"nc_no"`
	School           string `json:"school"`
	SourceFile       string `json:"source_file"`
}

func toJSON(rec record.Record) candidateJSON {
	return candidateJSON{
		ID:               rec.ID,
		Name:             rec.Name,
		Gender:           rec.Gender,
		Qualification:    rec.Qualification,
		DateAssessed:     rec.DateAssessed,
		AssessmentCenter: rec.AssessmentCenter,
		AssessmentStatus: rec.AssessmentStatus,
		Result:           rec.Result,
		NCNo:             rec.NCNo,
		School:           rec.School,
		SourceFile:       rec.SourceFile,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list candidates", err)
		return
	}
	out := make([]candidateJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toJSON(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !s.decode(w, r, &body) {
		return
	}
	rec := record.MapServerRow(body)
	rec.ID = ""
	id, err := s.repo.Create(r.Context(), rec)
	if err != nil {
		s.internalError(w, r, "create candidate", err)
		return
	}
	s.log(r).Info("candidate created", logging.Int64(logging.FieldRecordID, id))
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if !s.decode(w, r, &body) {
		return
	}
	pairs := make(map[string]string, len(body))
	for key, value := range body {
		if _, ok := record.FieldName(key); ok {
			pairs[key] = record.Stringify(value)
		}
	}
	update, err := record.ParseUpdate(pairs)
	if err != nil || update.IsEmpty() {
		s.writeError(w, http.StatusBadRequest, "no updatable fields in request")
		return
	}
	if _, err := s.repo.Get(r.Context(), id); err != nil {
		if errors.Is(err, candidates.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "candidate not found")
			return
		}
		s.internalError(w, r, "load candidate", err)
		return
	}
	n, err := s.repo.Update(r.Context(), id, update.Fields())
	if err != nil {
		s.internalError(w, r, "update candidate", err)
		return
	}
	s.log(r).Info("candidate updated", logging.Int64(logging.FieldRecordID, id))
	s.writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	n, err := s.repo.Delete(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "delete candidate", err)
		return
	}
	s.metrics.deleted.Add(float64(n))
	s.log(r).Info("candidate deleted", logging.Int64(logging.FieldRecordID, id), logging.Int("deleted", n))
	s.writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleDeleteBySource(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimSpace(r.PathValue("file"))
	if file == "" {
		s.writeError(w, http.StatusBadRequest, "source file is required")
		return
	}
	n, remaining, err := s.repo.DeleteBySource(r.Context(), file)
	if err != nil {
		s.internalError(w, r, "delete by source", err)
		return
	}
	if remaining == nil {
		remaining = []string{}
	}
	s.metrics.deleted.Add(float64(n))
	s.log(r).Info("candidates deleted by source",
		logging.String(logging.FieldSourceFile, file),
		logging.Int("deleted", n))
	s.writeJSON(w, http.StatusOK, struct {
		Deleted        int      `json:"deleted"`
		AllSourceFiles []string `json:"all_source_files"`
	}{Deleted: n, AllSourceFiles: remaining})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rows       []map[string]any `json:"rows"`
		SourceFile string           `json:"source_file"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	rows := make([]record.Record, 0, len(body.Rows))
	for _, raw := range body.Rows {
		rec := record.MapServerRow(raw)
		rec.ID = ""
		rows = append(rows, rec)
	}
	n, err := s.repo.Import(r.Context(), rows, body.SourceFile)
	if err != nil {
		s.internalError(w, r, "import candidates", err)
		return
	}
	s.metrics.imported.Add(float64(n))
	s.log(r).Info("candidates imported",
		logging.String(logging.FieldSourceFile, body.SourceFile),
		logging.Int("inserted", n))
	s.writeJSON(w, http.StatusOK, map[string]int{"inserted": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := candidates.ParseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid candidate id")
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logging.ErrorWithContext(s.log(r), op+" failed", "store_api_error",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database connectivity and ncstored logs"))
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
