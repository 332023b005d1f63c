package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// turnView is the wire form of a recorded turn.
type turnView struct {
	ID                   string    `json:"id"`
	RawQuestion          string    `json:"raw_question"`
	ReformulatedQuestion string    `json:"reformulated_question,omitempty"`
	GeneratedSQL         string    `json:"generated_sql,omitempty"`
	Validation           string    `json:"validation,omitempty"`
	RejectionReason      string    `json:"rejection_reason,omitempty"`
	Error                string    `json:"error,omitempty"`
	VizMode              string    `json:"viz_mode,omitempty"`
	RowCount             int       `json:"row_count"`
	CreatedAt            time.Time `json:"created_at"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	state := s.resolveSession(w, r)
	state.mu.Lock()
	defer state.mu.Unlock()

	resp, err := s.cfg.Pipeline.Ask(r.Context(), state.session, req.Question)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			// Client went away; nothing left to write.
			return
		}
		s.logger.Error("turn failed", "session", state.session.ID(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	state := s.resolveSession(w, r)
	state.mu.Lock()
	turns := state.session.History(state.session.Len())
	state.mu.Unlock()

	views := make([]turnView, len(turns))
	for i, t := range turns {
		views[i] = turnView{
			ID:                   t.ID,
			RawQuestion:          t.RawQuestion,
			ReformulatedQuestion: t.ReformulatedQuestion,
			GeneratedSQL:         t.GeneratedSQL,
			Validation:           string(t.Validation),
			RejectionReason:      t.RejectionReason,
			Error:                t.Error,
			VizMode:              string(t.VizMode),
			RowCount:             t.RowCount,
			CreatedAt:            t.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": state.session.ID(),
		"turns":      views,
	})
}

func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	state := s.resolveSession(w, r)
	state.mu.Lock()
	state.session.Reset()
	state.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
