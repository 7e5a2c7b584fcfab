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

type StatsHandler struct {
	stats    *service.StatsService
	store    *service.StateStore
	validate *validator.Validate
}

func NewStatsHandler(stats *service.StatsService, store *service.StateStore) *StatsHandler {
	return &StatsHandler{
		stats:    stats,
		store:    store,
		validate: validator.New(),
	}
}

func (h *StatsHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.stats.Subjects())
}

// SubjectReport aggregates the custom questions of a subject against the
// local progress map.
func (h *StatsHandler) SubjectReport(w http.ResponseWriter, r *http.Request) {
	subject := mux.Vars(r)["subject"]
	questions := service.OutcomesFromPayload(h.store.Snapshot(), subject)
	h.writeReport(w, subject, questions)
}

// TagStats aggregates an explicit question list, for banks loaded by the UI.
func (h *StatsHandler) TagStats(w http.ResponseWriter, r *http.Request) {
	var req domain.TagStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	h.writeReport(w, req.Subject, req.Questions)
}

func (h *StatsHandler) writeReport(w http.ResponseWriter, subject string, questions []domain.QuestionOutcome) {
	report, err := h.stats.SubjectReport(subject, questions)
	if errors.Is(err, service.ErrNotFound) {
		response.NotFound(w, err.Error())
		return
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Success(w, report)
}
