package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/store"
)

// SettingsHandler serves the persisted configuration overrides. Keys are
// dotted config paths such as "swipe.mode".
type SettingsHandler struct {
	store    *store.Store
	validate func(key, value string) error
	onChange func(context.Context)
}

// NewSettingsHandler creates a SettingsHandler. validate, when set, vets a
// value before it is stored; onChange runs after every successful write.
func NewSettingsHandler(s *store.Store, validate func(key, value string) error, onChange func(context.Context)) *SettingsHandler {
	return &SettingsHandler{store: s, validate: validate, onChange: onChange}
}

// Routes returns the router for /api/settings.
func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{key}", h.get)
	r.Put("/{key}", h.put)
	r.Delete("/{key}", h.delete)
	return r
}

type settingRequest struct {
	Value *string `json:"value"`
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type listSettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

func (h *SettingsHandler) changed(r *http.Request) {
	if h.onChange != nil {
		h.onChange(r.Context())
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, listSettingsResponse{Settings: settings})
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.store.Settings().Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get setting")
		return
	}
	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: value})
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	if h.validate != nil {
		if err := h.validate(key, *req.Value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.store.Settings().Set(r.Context(), key, *req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}

	h.changed(r)
	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: *req.Value})
}

func (h *SettingsHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Settings().Delete(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete setting")
		return
	}

	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}
