package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"minuet/internal/api"
	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
)

const maxUploadBytes = 64 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/audio", srv.handleList)
	mux.HandleFunc("/api/audio/", srv.handleEntry)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." {
		s.writeError(w, http.StatusBadRequest, "uploaded file has no name")
		return
	}

	tmp, err := os.CreateTemp(s.daemon.cfg.Paths.StagingDir, "upload-*")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "stage upload: "+err.Error())
		return
	}
	tmpName := tmp.Name()
	written, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmpName)
		s.writeError(w, http.StatusInternalServerError, "stage upload failed")
		return
	}
	if written == 0 {
		os.Remove(tmpName)
		s.writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	entry, err := s.daemon.store.NewEntry(r.Context(), filename,
		strings.TrimSpace(r.FormValue("user_id")),
		strings.TrimSpace(r.FormValue("session_id")))
	if err != nil {
		os.Remove(tmpName)
		s.writeError(w, http.StatusInternalServerError, "create entry: "+err.Error())
		return
	}

	storedPath, err := s.daemon.artifacts.PutRawAudio(tmpName, entry.ID, filename)
	if err != nil {
		os.Remove(tmpName)
		s.writeError(w, http.StatusInternalServerError, "store audio: "+err.Error())
		return
	}
	if err := s.daemon.store.SetStoragePath(r.Context(), entry.ID, storedPath); err != nil {
		s.writeError(w, http.StatusInternalServerError, "record storage path: "+err.Error())
		return
	}

	s.daemon.pipeline.OnUpload(entry.ID)
	s.logger.Info("upload accepted",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.String("filename", filename),
		logging.Int64("bytes", written))
	s.writeJSON(w, http.StatusOK, api.FromEntry(entry))
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter := journal.ListFilter{
		UserID:    strings.TrimSpace(r.URL.Query().Get("user_id")),
		SessionID: strings.TrimSpace(r.URL.Query().Get("session_id")),
	}
	entries, err := s.daemon.store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Entries: api.FromEntryList(entries)})
}

func (s *apiServer) handleEntry(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/audio/")
	idStr, op, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || strings.Contains(op, "/") {
		s.writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	entry, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		s.writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	switch op {
	case "status", "":
		s.requireGet(w, r, func() {
			s.writeJSON(w, http.StatusOK, api.FromEntry(entry))
		})
	case "file":
		s.requireGet(w, r, func() {
			s.serveAudio(w, r, entry)
		})
	case "vad":
		s.requireGet(w, r, func() {
			s.serveArtifact(w, r, artifacts.CategoryAffect, entry.ID, "affect not ready")
		})
	case "transcript":
		s.requireGet(w, r, func() {
			s.serveArtifact(w, r, artifacts.CategoryTranscript, entry.ID, "transcript not ready")
		})
	case "summary":
		s.requireGet(w, r, func() {
			s.serveArtifact(w, r, artifacts.CategorySummary, entry.ID, "summary not ready")
		})
	case "response":
		s.requireGet(w, r, func() {
			s.serveArtifact(w, r, artifacts.CategoryResponse, entry.ID, "response not ready")
		})
	case "music":
		s.requireGet(w, r, func() {
			s.serveArtifact(w, r, artifacts.CategoryMusic, entry.ID, "music not ready")
		})
	case "summarize":
		s.retrigger(w, r, entry.ID, journal.StageSummary)
	case "respond":
		s.retrigger(w, r, entry.ID, journal.StageResponse)
	default:
		s.writeError(w, http.StatusNotFound, "unknown operation")
	}
}

func (s *apiServer) requireGet(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fn()
}

func (s *apiServer) retrigger(w http.ResponseWriter, r *http.Request, entryID int64, st journal.Stage) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, err := s.daemon.pipeline.Retrigger(r.Context(), entryID, st); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "entry not found")
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, api.OKResponse{OK: true})
}

func (s *apiServer) serveArtifact(w http.ResponseWriter, r *http.Request, category artifacts.Category, entryID int64, notReady string) {
	data, err := s.daemon.artifacts.Get(category, entryID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, notReady)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *apiServer) serveAudio(w http.ResponseWriter, r *http.Request, entry *journal.Entry) {
	if entry.StoragePath == "" {
		s.writeError(w, http.StatusNotFound, "audio not stored")
		return
	}
	if contentType := mime.TypeByExtension(filepath.Ext(entry.StoragePath)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	http.ServeFile(w, r, entry.StoragePath)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, storeErr := s.daemon.store.Stats(r.Context())
	stages := api.FromStageHealth(s.daemon.pipeline.Health(r.Context()))

	status := "ok"
	if storeErr != nil {
		status = "degraded"
	}
	for _, st := range stages {
		if !st.Ready {
			status = "degraded"
			break
		}
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status: status,
		Store:  storeErr == nil,
		Stages: stages,
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
