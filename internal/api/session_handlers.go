package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/models"
)

// Advisor session handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := s.advisor.CreateSession(req)
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "unavailable", "failed to create session")
		return
	}

	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.advisor.ListSessions()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.advisor.GetSession(SessionIDFromContext(r.Context()))
	if err != nil {
		s.respondSessionError(w, err, "failed to get session")
		return
	}

	view := sessionView{Session: session}
	if ttl := s.advisor.TTL(); ttl > 0 {
		view.ExpiresIn = int64(session.TimeRemaining(time.Now(), ttl).Seconds())
	}
	s.respondJSON(w, http.StatusOK, view)
}

// sessionView adds the seconds left before an idle session is cleaned up
type sessionView struct {
	*models.Session
	ExpiresIn int64 `json:"expires_in_seconds,omitempty"`
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.advisor.DeleteSession(SessionIDFromContext(r.Context())); err != nil {
		s.respondSessionError(w, err, "failed to delete session")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "session deleted",
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	session, err := s.advisor.GetSession(SessionIDFromContext(r.Context()))
	if err != nil {
		s.respondSessionError(w, err, "failed to get profile")
		return
	}

	s.respondJSON(w, http.StatusOK, session.Profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if update.IsEmpty() {
		s.respondError(w, http.StatusBadRequest, "validation_error", "profile update is empty")
		return
	}

	session, err := s.advisor.UpdateProfile(SessionIDFromContext(r.Context()), &update)
	if err != nil {
		s.respondSessionError(w, err, "failed to update profile")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile":  session.Profile,
		"workflow": session.Workflow,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 0 // matcher default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "validation_error", "limit must be an integer")
			return
		}
		limit = l
	}

	schemes, err := s.advisor.Recommend(SessionIDFromContext(r.Context()), limit)
	if err != nil {
		s.respondSessionError(w, err, "failed to recommend schemes")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"schemes": schemes,
		"total":   len(schemes),
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	res, err := s.advisor.CheckEligibility(SessionIDFromContext(r.Context()))
	if err != nil {
		s.respondSessionError(w, err, "failed to check eligibility")
		return
	}

	s.respondJSON(w, http.StatusOK, models.EligibilityResponse{
		Ready:    res.Ready,
		Missing:  res.Missing,
		Eligible: res.Eligible,
		Count:    len(res.Eligible),
	})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	session, err := s.advisor.GetSession(SessionIDFromContext(r.Context()))
	if err != nil {
		s.respondSessionError(w, err, "failed to get workflow")
		return
	}

	resp := map[string]interface{}{
		"steps": session.Workflow,
	}
	if current := session.CurrentStep(); current != nil {
		resp["current"] = current.ID
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	step := models.StepID(chi.URLParam(r, "step"))

	steps, err := s.advisor.CompleteStep(SessionIDFromContext(r.Context()), step)
	if err != nil {
		if errors.Is(err, advisor.ErrUnknownStep) {
			s.respondError(w, http.StatusNotFound, "unknown_step", "unknown workflow step")
			return
		}
		s.respondSessionError(w, err, "failed to complete step")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"steps": steps,
	})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.advisor.Messages(SessionIDFromContext(r.Context()))
	if err != nil {
		s.respondSessionError(w, err, "failed to list messages")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    len(messages),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	msg, err := s.advisor.SendMessage(r.Context(), SessionIDFromContext(r.Context()), req.Content)
	if err != nil {
		if errors.Is(err, advisor.ErrEmptyMessage) {
			s.respondError(w, http.StatusBadRequest, "validation_error", "content is required")
			return
		}
		s.respondSessionError(w, err, "failed to send message")
		return
	}

	// The bot reply is appended asynchronously
	s.respondJSON(w, http.StatusAccepted, msg)
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, advisor.ErrSessionNotFound) {
		s.respondError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	s.logger.Error(message, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "internal_error", message)
}
