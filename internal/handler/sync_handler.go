package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/repository"
	"examtrack-sync/internal/service"
	"examtrack-sync/pkg/response"

	"github.com/go-playground/validator/v10"
)

type SyncHandler struct {
	store           *service.StateStore
	syncService     *service.SyncService
	conflictService *service.ConflictService
	validate        *validator.Validate
}

func NewSyncHandler(store *service.StateStore, syncService *service.SyncService, conflictService *service.ConflictService) *SyncHandler {
	return &SyncHandler{
		store:           store,
		syncService:     syncService,
		conflictService: conflictService,
		validate:        validator.New(),
	}
}

// Sync runs an attempt immediately. Requests are foreground unless the body
// says otherwise, so the merged result is applied locally.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req domain.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !h.store.Settings().Configured() {
		response.BadRequest(w, service.ErrNoCredential.Error())
		return
	}

	opts := service.SyncOptions{Foreground: true}
	if req.Foreground != nil {
		opts.Foreground = *req.Foreground
	}

	if err := h.syncService.SyncData(r.Context(), opts); err != nil {
		writeSyncError(w, err)
		return
	}

	response.Success(w, domain.SyncResponse{
		Status: h.syncService.Status(),
		BlobID: h.store.Settings().BlobID,
	})
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, domain.SyncResponse{
		Status: h.syncService.Status(),
		BlobID: h.store.Settings().BlobID,
	})
}

func (h *SyncHandler) GetConflict(w http.ResponseWriter, r *http.Request) {
	conflict := h.conflictService.Pending()
	if conflict == nil {
		response.NotFound(w, "no pending conflict")
		return
	}
	response.Success(w, conflict)
}

func (h *SyncHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req domain.ConflictResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.conflictService.Resolve(r.Context(), req.Strategy); err != nil {
		writeSyncError(w, err)
		return
	}

	response.Success(w, domain.SyncResponse{
		Status: h.syncService.Status(),
		BlobID: h.store.Settings().BlobID,
	})
}

// UpdateSettings stores the credential and optional blob id, then schedules
// a sync so the new remote is reconciled without blocking the request.
func (h *SyncHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSyncSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.store.UpdateSyncSettings(req.Credential, req.BlobID); err != nil {
		response.InternalError(w, err.Error())
		return
	}
	h.syncService.ScheduleSync()

	response.Success(w, map[string]string{"blobId": h.store.Settings().BlobID})
}

func (h *SyncHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.Disconnect(); err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Success(w, map[string]string{"message": "Sync disconnected"})
}

func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		response.Conflict(w, err.Error())
	case errors.Is(err, repository.ErrUnauthorized):
		response.BadGateway(w, err.Error())
	case errors.Is(err, repository.ErrBlobNotFound):
		response.NotFound(w, err.Error())
	default:
		var syncErr *service.SyncError
		switch {
		case !errors.As(err, &syncErr):
			response.BadRequest(w, err.Error())
		case syncErr.Stage == service.StageApply:
			response.InternalError(w, err.Error())
		default:
			response.BadGateway(w, err.Error())
		}
	}
}
