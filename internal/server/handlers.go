package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// Selection is one (node, value) event. An empty value clears the node.
type Selection struct {
	Node  string `json:"node"`
	Value string `json:"value"`
}

// CreateSessionRequest optionally preselects inputs in order.
type CreateSessionRequest struct {
	Selections []Selection `json:"selections"`
}

// SelectResponse carries the pass a selection triggered and the
// resulting session state.
type SelectResponse struct {
	Result  *engine.Result     `json:"result"`
	Session dashboard.Snapshot `json:"session"`
}

// OptionsResponse describes one input's current domain.
type OptionsResponse struct {
	Node         string           `json:"node"`
	Instantiated bool             `json:"instantiated"`
	Domain       selection.Domain `json:"domain"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// maxBody caps request bodies.
const maxBody = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sports := s.dash.Catalog().SportNames()
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"sessions":  s.Len(),
		"sports":    sports,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	entry, err := s.create(req.Selections)
	if err != nil {
		s.respondEngineError(w, "failed to create session", err)
		return
	}
	snap, err := entry.snapshot()
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	snap, err := entry.snapshot()
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	entry, err := s.remove(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	entry.close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	entry, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	var sel Selection
	if err := decodeBody(r, &sel); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if sel.Node == "" {
		respondError(w, http.StatusBadRequest, "node is required", nil)
		return
	}

	resp, err := entry.apply(sel)
	if err != nil {
		s.respondEngineError(w, "selection rejected", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	entry, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	node := chi.URLParam(r, "node")

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	d, err := entry.s.Options(node)
	if err != nil {
		s.respondEngineError(w, "no options", err)
		return
	}
	respondJSON(w, http.StatusOK, OptionsResponse{
		Node:         node,
		Instantiated: entry.s.Instantiated(node),
		Domain:       d,
	})
}

// respondEngineError maps engine and selection errors to status codes.
func (s *Server) respondEngineError(w http.ResponseWriter, message string, err error) {
	status, message := s.engineError(message, err)
	respondError(w, status, message, nil)
}

// engineError returns the status for err and the message to show. Client
// errors expose err itself; anything else is logged and hidden.
func (s *Server) engineError(message string, err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, selection.ErrInvalidSelection):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, engine.ErrUnknownNode):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, engine.ErrNotInput):
		return http.StatusBadRequest, err.Error()
	}
	fmt.Fprintf(s.logger, "error: %s: %v\n", message, err)
	return http.StatusInternalServerError, message
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
