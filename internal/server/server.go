// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/KaramelBytes/csvinsight-cli/internal/analysis"
	"github.com/KaramelBytes/csvinsight-cli/internal/report"
	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
)

const (
	msgNoFile         = "No file uploaded"
	msgAnalysisFailed = "Analysis failed. Check backend logs."
)

// Config holds the HTTP-facing settings.
type Config struct {
	UploadDir      string
	OutputDir      string
	AllowedOrigins []string
	// MaxUploadBytes caps the request body. Zero means 100 MiB.
	MaxUploadBytes int64
}

// Server runs uploaded CSV files through the pipeline, one at a time.
type Server struct {
	cfg Config
	opt analysis.Options
	log *slog.Logger

	// mu serializes pipeline runs.
	mu sync.Mutex
}

// New returns a Server. The upload and output directories are created on
// first use.
func New(cfg Config, opt analysis.Options, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt.Logger = logger
	return &Server{cfg: cfg, opt: opt, log: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.log.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Post("/analyze", s.handleAnalyze)
	return r
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		writeError(w, http.StatusBadRequest, analysis.ErrNotCSV.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.store(name, file)
	if err != nil {
		s.log.Error("store upload", "file", name, "err", err)
		writeError(w, http.StatusInternalServerError, msgAnalysisFailed)
		return
	}
	s.log.Info("running analysis", "file", path)

	doc, written, err := analysis.AnalyzeFile(path, s.cfg.OutputDir, s.opt)
	switch {
	case analysis.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("analysis failed", "file", path, "err", err)
		writeError(w, http.StatusInternalServerError, msgAnalysisFailed)
		return
	}
	s.log.Info("analysis complete", "file", path, "result", written)
	writeJSON(w, http.StatusOK, doc)
}

// store copies the upload to <UploadDir>/<name>, replacing any earlier
// upload with the same name.
func (s *Server) store(name string, src io.Reader) (string, error) {
	if err := utils.EnsureDir(s.cfg.UploadDir); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := report.Marshal(v, report.StdoutIndent)
	if err != nil {
		http.Error(w, msgAnalysisFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, report.ErrorDocument(msg))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "uploads", s.cfg.UploadDir, "output", s.cfg.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
