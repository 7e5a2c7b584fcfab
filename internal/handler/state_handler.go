package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/service"
	"examtrack-sync/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// StateHandler exposes the local study state: every write lands in the
// store first and reaches the remote through the debounced sync.
type StateHandler struct {
	store    *service.StateStore
	validate *validator.Validate
}

func NewStateHandler(store *service.StateStore) *StateHandler {
	return &StateHandler{
		store:    store,
		validate: validator.New(),
	}
}

func (h *StateHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.Snapshot())
}

func (h *StateHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	var req domain.SetProgressRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.store.SetStatus(mux.Vars(r)["id"], req.Status); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Progress saved"})
}

func (h *StateHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	var req domain.SetNoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.store.SetNote(mux.Vars(r)["id"], req.Content); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Note saved"})
}

func (h *StateHandler) AddTime(w http.ResponseWriter, r *http.Request) {
	var req domain.AddTimeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.store.AddTime(mux.Vars(r)["id"], req.DurationMs); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Time recorded"})
}

func (h *StateHandler) Star(w http.ResponseWriter, r *http.Request) {
	h.setStar(w, r, true)
}

func (h *StateHandler) Unstar(w http.ResponseWriter, r *http.Request) {
	h.setStar(w, r, false)
}

func (h *StateHandler) setStar(w http.ResponseWriter, r *http.Request, starred bool) {
	if err := h.store.SetStar(mux.Vars(r)["id"], starred); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]bool{"starred": starred})
}

func (h *StateHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.RepoSources())
}

func (h *StateHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	var req domain.AddRepoSourceRequest
	if !h.decode(w, r, &req) {
		return
	}

	source := domain.RepoSource{Name: req.Name, URL: req.URL, Enabled: true}
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}

	if err := h.store.AddRepoSource(source); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Created(w, source)
}

func (h *StateHandler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	var req domain.RepoSourceRef
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.store.RemoveRepoSource(req.URL); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Source removed"})
}

func (h *StateHandler) SetSourceEnabled(w http.ResponseWriter, r *http.Request) {
	var req domain.SetRepoSourceEnabledRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.store.SetRepoSourceEnabled(req.URL, req.Enabled); err != nil {
		writeStoreError(w, err)
		return
	}
	response.Success(w, map[string]bool{"enabled": req.Enabled})
}

func (h *StateHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.store.ImportCustom(&req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	response.Created(w, resp)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrDuplicateSource), errors.Is(err, service.ErrBuiltinSource):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
