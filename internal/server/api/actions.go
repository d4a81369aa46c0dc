package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/store"
)

// ActionHandler serves the event to plugin action bindings.
type ActionHandler struct {
	store    *store.Store
	onChange func(context.Context)
}

// NewActionHandler creates an ActionHandler. onChange, when set, runs after
// every successful write.
func NewActionHandler(s *store.Store, onChange func(context.Context)) *ActionHandler {
	return &ActionHandler{store: s, onChange: onChange}
}

// Routes returns the router for /api/actions.
func (h *ActionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

type actionRequest struct {
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Params     json.RawMessage `json:"params"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Params     json.RawMessage `json:"params"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	params := a.Params
	if params == nil {
		params = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		Event:      a.Event,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Params:     params,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(timeFormat),
	}
}

// validEvent accepts "kind" or "kind:value" with a known kind.
func validEvent(event string) bool {
	kind, _, _ := strings.Cut(event, ":")
	return engine.EventKind(kind).Valid()
}

func (h *ActionHandler) changed(r *http.Request) {
	if h.onChange != nil {
		h.onChange(r.Context())
	}
}

func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}
	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch {
	case req.Event == "":
		writeError(w, http.StatusBadRequest, "event is required")
		return
	case !validEvent(req.Event):
		writeError(w, http.StatusBadRequest, "Unknown event kind")
		return
	case req.PluginName == "":
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	case req.ActionName == "":
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	action := &store.Action{
		Event:      req.Event,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Params:     req.Params,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Actions().Create(r.Context(), action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	h.changed(r)
	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Event != "" {
		if !validEvent(req.Event) {
			writeError(w, http.StatusBadRequest, "Unknown event kind")
			return
		}
		action.Event = req.Event
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Params != nil {
		action.Params = req.Params
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	if err := h.store.Actions().Update(r.Context(), action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	h.changed(r)
	writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Actions().Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}
