package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
	"github.com/mdobak/go-xerrors"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service soundalike.Service
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	StorePath      string
	CatalogDir     string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service soundalike.Service, config *ServerConfig, log *logger.Logger) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log.Named("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondFailure maps a service error to a status code and logs unexpected ones.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, soundalike.ErrQueryFingerprint),
		errors.Is(err, soundalike.ErrDecode),
		errors.Is(err, soundalike.ErrExtraction):
		s.log.Warnf("%s: %v", op, err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, fmt.Sprintf("%s timed out", op))
	default:
		s.log.Errorf("%s: %+v", op, xerrors.New(err))
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed: %v", op, err))
	}
}

func (s *Server) catalogDir(dir string) string {
	if dir == "" {
		return s.config.CatalogDir
	}
	return dir
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "SoundAlike API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"search":          "POST /api/search",
			"searchUpload":    "POST /api/search/upload",
			"compare":         "POST /api/compare",
			"precompute":      "POST /api/precompute",
			"fingerprints":    "GET /api/fingerprints",
			"fingerprintInfo": "GET /api/fingerprints/{name}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"time":         time.Now().Format(time.RFC3339),
		"fingerprints": len(s.service.ListFingerprints()),
	})
}

// handleSearch handles POST /api/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.search(ctx, w, req.Query, s.catalogDir(req.Catalog), req.Top)
}

// handleSearchUpload handles POST /api/search/upload (multipart file upload)
func (s *Server) handleSearchUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !utils.HasAudioExtension(name) {
		s.respondError(w, http.StatusBadRequest, "audio must be a .mp3 or .wav file")
		return
	}

	var top int
	if v := r.FormValue("top"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &top); err != nil || top < 0 {
			s.respondError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
	}

	// Save to temporary file
	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("query_%s_%s", utils.NewRunID(), name))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Searching with uploaded file: %s", name)
	s.search(ctx, w, tempFile, s.catalogDir(r.FormValue("catalog")), top)
}

func (s *Server) search(ctx context.Context, w http.ResponseWriter, query, dir string, top int) {
	report, err := s.service.FindSimilar(ctx, query, dir, nil)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}

	s.log.Infof("Search %s complete: %d results, %d skipped", report.RunID, len(report.Results), len(report.Skipped))
	s.respondJSON(w, http.StatusOK, newSearchResponse(report, top))
}

// handleCompare handles POST /api/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bd, err := s.service.Compare(ctx, req.A, req.B)
	if err != nil {
		s.respondFailure(w, "compare", err)
		return
	}
	s.respondJSON(w, http.StatusOK, bd)
}

// handlePrecompute handles POST /api/precompute
func (s *Server) handlePrecompute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Hour)
	defer cancel()

	var req PrecomputeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	report, err := s.service.Precompute(ctx, s.catalogDir(req.Catalog), nil)
	if err != nil {
		s.respondFailure(w, "precompute", err)
		return
	}

	s.log.Infof("Precompute complete: added=%d cached=%d skipped=%d",
		len(report.Added), len(report.Cached), len(report.Skipped))
	s.respondJSON(w, http.StatusOK, report)
}

// handleListFingerprints handles GET /api/fingerprints
func (s *Server) handleListFingerprints(w http.ResponseWriter, r *http.Request) {
	names := s.service.ListFingerprints()
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, ListFingerprintsResponse{
		Names: names,
		Count: len(names),
	})
}

// handleGetFingerprint handles GET /api/fingerprints/{name}
func (s *Server) handleGetFingerprint(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	fp, ok := s.service.GetFingerprint(name)
	if !ok {
		s.log.Warnf("Fingerprint not found: %s", name)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Fingerprint %q not found", name))
		return
	}
	s.respondJSON(w, http.StatusOK, fp)
}
