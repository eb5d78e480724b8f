package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/types"
)

// maxUploadBytes caps the accepted document size.
const maxUploadBytes = 20 << 20 // 20 MiB

// AnalyzeResponse is the body returned by POST /analyze.
type AnalyzeResponse struct {
	Filename        string        `json:"filename"`
	IsCV            bool          `json:"is_cv"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CVData          *types.CVData `json:"cv_data,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "multipart 'file' field is required")
		return
	}
	defer file.Close()

	// Stage the upload to a temp file for the duration of the call, the way
	// classifiers that shell out to converters expect a path on disk.
	tmp, err := os.CreateTemp("", "cv-upload-*")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		s.errorResponse(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if err := tmp.Close(); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}

	content, err := os.ReadFile(tmpPath)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to read staged upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	result, err := s.classifier.Classify(r.Context(), content, mimeType)
	if err != nil {
		s.log.Error("document analysis failed",
			zap.String("filename", header.Filename), zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := AnalyzeResponse{
		Filename:        header.Filename,
		IsCV:            result.IsCV,
		RejectionReason: result.RejectionReason,
		CVData:          result.CV,
	}

	// Persistence is decoupled from analysis: a storage failure is logged
	// and the caller still receives the extraction result.
	if result.IsCV && result.CV != nil {
		if _, err := s.store.Append(r.Context(), *result.CV, header.Filename); err != nil {
			s.log.Error("storing analyzed CV failed",
				zap.String("filename", header.Filename), zap.Error(err))
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleListCVs(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.List(r.Context(), r.URL.Query().Get("q"))
	s.jsonResponse(w, http.StatusOK, map[string]any{"cvs": summaries})
}

func (s *Server) handleGetCV(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid CV ID")
		return
	}

	rec := s.store.Get(r.Context(), id)
	if rec == nil {
		s.errorResponse(w, http.StatusNotFound, "CV not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteCV(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid CV ID")
		return
	}

	if !s.store.Delete(r.Context(), id) {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to delete CV " + id.String(),
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "deleted",
		"message": "CV " + id.String() + " removed from the catalog",
	})
}

func (s *Server) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SmartSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Query is required")
		return
	}

	candidates := s.store.ListFull(r.Context())
	matches := s.ranker.Rank(r.Context(), req.Query, candidates)

	s.jsonResponse(w, http.StatusOK, map[string]any{"results": matches})
}
