package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sanonone/wikiwalk/pkg/engine"
	"github.com/sanonone/wikiwalk/pkg/linkcache"
)

// maxBodyBytes caps walk request bodies.
const maxBodyBytes = 64 << 10

func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /walks", s.handleWalk)
	mux.HandleFunc("POST /walks/async", s.handleWalkAsync)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /links/{title}", s.handleLinks)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"cached_pages": s.service.Source.Cache().Len(),
	})
}

// handleWalk runs a walk inside the request and returns its Result.
func (s *Server) handleWalk(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWalkRequest(w, r)
	if !ok {
		return
	}
	if !s.tryAcquireWalk() {
		s.writeHTTPError(w, http.StatusTooManyRequests, "too many walks in progress")
		return
	}
	defer s.releaseWalk()

	res, err := s.service.Walk(r.Context(), req)
	if err != nil {
		s.writeWalkError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

// handleWalkAsync starts a walk in the background and returns its task.
func (s *Server) handleWalkAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWalkRequest(w, r)
	if !ok {
		return
	}
	if !s.tryAcquireWalk() {
		s.writeHTTPError(w, http.StatusTooManyRequests, "too many walks in progress")
		return
	}

	task := s.taskManager.NewTask(req)
	req.OnHop = task.SetProgress

	go func() {
		defer s.releaseWalk()
		task.SetStatus(TaskStatusRunning)
		res, err := s.service.Walk(s.baseCtx, req)
		if err != nil {
			s.logger.Warn("async walk failed", "task_id", task.ID(), "error", err)
			task.SetError(err)
			return
		}
		task.SetResult(res)
	}()

	w.Header().Set("Location", "/tasks/"+task.ID())
	s.writeHTTPResponse(w, http.StatusAccepted, task.View())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.View())
}

// handleLinks returns a page's filtered links, fetching and caching on a miss.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.PathValue("title"))
	if title == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "title is required")
		return
	}

	links, err := s.service.Source.Links(r.Context(), title)
	if err != nil {
		s.writeWalkError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{
		"title": title,
		"links": links,
		"count": len(links),
	})
}

func (s *Server) decodeWalkRequest(w http.ResponseWriter, r *http.Request) (engine.Request, bool) {
	var req engine.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}

	req.Start = strings.TrimSpace(req.Start)
	req.Target = strings.TrimSpace(req.Target)
	switch {
	case req.Start == "" || req.Target == "":
		s.writeHTTPError(w, http.StatusBadRequest, "start and target are required")
		return req, false
	case req.MaxSteps != nil && *req.MaxSteps < 0:
		s.writeHTTPError(w, http.StatusBadRequest, "max_steps must be >= 0")
		return req, false
	case req.TopK < 0:
		s.writeHTTPError(w, http.StatusBadRequest, "top_k must be >= 0")
		return req, false
	}
	return req, true
}

// writeWalkError maps engine and cache failures to status codes.
func (s *Server) writeWalkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrProviderUnavailable), errors.Is(err, engine.ErrEmbedding):
		s.writeHTTPError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, engine.ErrCancelled):
		s.writeHTTPError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, linkcache.ErrCorrupt), errors.Is(err, linkcache.ErrClosed):
		s.logger.Error("link cache failure", "error", err)
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
