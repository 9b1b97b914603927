package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/dialogue"
	"github.com/terra-clan/scheme-connect/internal/ingest"
	"github.com/terra-clan/scheme-connect/internal/metrics"
	"github.com/terra-clan/scheme-connect/internal/models"
)

// Catalog handlers: browsing, editing and importing schemes

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": catalog.Categories,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.Stats())
}

func (s *Server) handleListSchemes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	if category == "" {
		category = catalog.AllCategories
	}

	schemes := catalog.Filter(s.catalog.List(), query, category)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"schemes": schemes,
		"total":   len(schemes),
	})
}

func (s *Server) handleFeaturedSchemes(w http.ResponseWriter, r *http.Request) {
	schemes := catalog.Featured(s.catalog.List())
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"schemes": schemes,
		"total":   len(schemes),
	})
}

func (s *Server) handleGetScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scheme, err := s.catalog.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrSchemeNotFound) {
			s.respondError(w, http.StatusNotFound, "not_found", "scheme not found")
			return
		}
		s.logger.Error("failed to get scheme", zap.Error(err), zap.String("id", id))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to get scheme")
		return
	}

	s.respondJSON(w, http.StatusOK, scheme)
}

func (s *Server) handleCreateScheme(w http.ResponseWriter, r *http.Request) {
	var scheme models.Scheme
	if err := json.NewDecoder(r.Body).Decode(&scheme); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	applySchemeDefaults(&scheme)

	if err := s.catalog.Add(scheme); err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidScheme):
			s.respondError(w, http.StatusBadRequest, "validation_error", "id is required")
		case errors.Is(err, catalog.ErrDuplicateID):
			s.respondError(w, http.StatusConflict, "duplicate_id", "a scheme with this id already exists")
		default:
			s.logger.Error("failed to add scheme", zap.Error(err), zap.String("id", scheme.ID))
			s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to add scheme")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, scheme)
}

func (s *Server) handleUpdateScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var scheme models.Scheme
	if err := json.NewDecoder(r.Body).Decode(&scheme); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if scheme.ID != "" && scheme.ID != id {
		s.respondError(w, http.StatusBadRequest, "validation_error", "body id does not match path")
		return
	}
	scheme.ID = id
	applySchemeDefaults(&scheme)

	if s.catalog.IsSeed(id) {
		s.respondError(w, http.StatusConflict, "seed_immutable", "built-in schemes cannot be modified")
		return
	}

	if !s.catalog.Update(scheme) {
		s.respondError(w, http.StatusNotFound, "not_found", "scheme not found")
		return
	}

	s.respondJSON(w, http.StatusOK, scheme)
}

func (s *Server) handleDeleteScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.catalog.IsSeed(id) {
		s.respondError(w, http.StatusConflict, "seed_immutable", "built-in schemes cannot be removed")
		return
	}

	if !s.catalog.Remove(id) {
		s.respondError(w, http.StatusNotFound, "not_found", "scheme not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "scheme deleted",
	})
}

func (s *Server) handleImportSchemes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > s.maxUploadBytes {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file_too_large", "spreadsheet exceeds the upload limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "failed to read uploaded file")
		return
	}

	result, err := s.importer.Import(data, header.Filename)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failure").Inc()

		var perr *ingest.ParseError
		if errors.As(err, &perr) {
			s.respondError(w, http.StatusUnprocessableEntity, "invalid_spreadsheet", ingest.FailureMessage)
			return
		}
		s.logger.Error("failed to import spreadsheet", zap.Error(err), zap.String("file", header.Filename))
		s.respondError(w, http.StatusInternalServerError, "internal_error", ingest.FailureMessage)
		return
	}

	metrics.ImportsTotal.WithLabelValues("success").Inc()
	metrics.ImportedSchemes.Set(float64(result.Imported))

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req models.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	reply := dialogue.Respond(req.Message, req.Profile, s.catalog.List())

	profile := req.Profile.Clone()
	profile.Merge(reply.ProfileUpdate)

	s.respondJSON(w, http.StatusOK, models.RespondResponse{
		Intent:        string(reply.Intent),
		Content:       reply.Content,
		Suggestions:   reply.Suggestions,
		ProfileUpdate: reply.ProfileUpdate,
		Profile:       profile,
	})
}

// applySchemeDefaults fills the fields a hand-written scheme may omit
func applySchemeDefaults(s *models.Scheme) {
	if s.Category == "" {
		s.Category = ingest.DefaultCategory
	}
	if s.Amount == "" {
		s.Amount = ingest.DefaultAmount
	}
	if s.Deadline == "" {
		s.Deadline = ingest.DefaultDeadline
	}
	if s.Status == "" {
		s.Status = models.SchemeActive
	}
	if s.ProcessingTime == "" {
		s.ProcessingTime = ingest.DefaultProcessingTime
	}
	if s.Eligibility == nil {
		s.Eligibility = []string{}
	}
	if s.Documents == nil {
		s.Documents = []string{}
	}
	if s.Applicants < 0 {
		s.Applicants = 0
	}
}
