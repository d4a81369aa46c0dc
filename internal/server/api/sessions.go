package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/store"
)

const defaultSessionLimit = 20

// SessionHandler serves the recorded sessions and their event journals.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// Routes returns the router for /api/sessions.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/events", h.events)
	return r
}

type sessionResponse struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	StartedAt string         `json:"started_at"`
	EndedAt   string         `json:"ended_at,omitempty"`
	Ticks     int64          `json:"ticks"`
	Counts    map[string]int `json:"counts,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	Seq   uint64 `json:"seq"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Tool  string `json:"tool"`
	At    string `json:"at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		StartedAt: s.StartedAt.Format(timeFormat),
		Ticks:     s.Ticks,
	}
	if !s.EndedAt.IsZero() {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultSessionLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	sessions, err := h.store.Sessions().List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.store.Sessions().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	counts, err := h.store.Events().CountByKind(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	resp := toSessionResponse(sess)
	resp.Counts = counts
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Sessions().GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	events, err := h.store.Events().ListBySession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			Seq:   e.Seq,
			Kind:  e.Kind,
			Value: e.Value,
			Tool:  e.Tool,
			At:    e.At.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
