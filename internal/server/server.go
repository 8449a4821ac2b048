// Package server serves a generated collection over HTTP for local preview.
//
// Routes:
//
//	GET /healthz             liveness probe
//	GET /images/{id}.png     token image
//	GET /metadata            all records, ordered by edition
//	GET /metadata/{id}       one record
//	GET /report              rarity and constraint audit
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tokenforge/pkg/constraint"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/report"
)

// Config holds runtime options for the preview server.
type Config struct {
	Address     string
	ImageDir    string
	MetadataDir string

	// Pairs and Expected feed the /report endpoint.
	Pairs    []constraint.ForbiddenPair
	Expected map[string]map[string]float64

	Logger *log.Logger
}

// New constructs the HTTP server.
func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      Router(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Router builds the route tree.
func Router(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &handlers{cfg: cfg}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger(logger))
	router.Use(chimw.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/images/{file}", h.image)
	router.Get("/metadata", h.listMetadata)
	router.Get("/metadata/{id}", h.metadata)
	router.Get("/report", h.report)
	return router
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", chimw.GetReqID(r.Context()))
		})
	}
}

type handlers struct {
	cfg Config
}

// parseID accepts positive decimal ids only, so the value is safe to use in
// a file name.
func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 || strconv.Itoa(id) != s {
		return 0, false
	}
	return id, true
}

func (h *handlers) image(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	id, ok := parseID(strings.TrimSuffix(file, ".png"))
	if !ok || !strings.HasSuffix(file, ".png") {
		writeError(w, http.StatusNotFound, "unknown image")
		return
	}
	path := filepath.Join(h.cfg.ImageDir, strconv.Itoa(id)+".png")
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "unknown image")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	md, err := tfio.ImportJSON(filepath.Join(h.cfg.MetadataDir, strconv.Itoa(id)+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "unknown token")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (h *handlers) listMetadata(w http.ResponseWriter, _ *http.Request) {
	records, err := tfio.ImportDir(h.cfg.MetadataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) report(w http.ResponseWriter, _ *http.Request) {
	records, err := tfio.ImportDir(h.cfg.MetadataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rep := report.Analyze(records, report.Options{Pairs: h.cfg.Pairs, Expected: h.cfg.Expected})
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
