package diagnosis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/common/models"
	"github.com/meddiag/platform/pkg/features"
	"github.com/meddiag/platform/pkg/serving/predictor"
	"github.com/meddiag/platform/pkg/storage"
)

const unavailable = "prediction unavailable"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/predict/{disease}", h.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/users", h.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/diagnoses/history", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/diagnoses/{id}/status", h.handleUpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/schemas/{disease}", h.handleSchema).Methods(http.MethodGet)
	r.HandleFunc("/patients/features", h.handleLastSubmission).Methods(http.MethodGet)
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Features == nil {
		req.Features = map[string]interface{}{}
	}

	resp, err := h.service.Diagnose(r.Context(), features.ResolveAlias(mux.Vars(r)["disease"]), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var patient models.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		writeDecodeError(w, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), patient)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := HistoryFilter{
		Name:  query.Get("name"),
		Email: query.Get("email"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset", nil)
			return
		}
		filter.Offset = offset
	}

	entries, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid diagnosis id", nil)
		return
	}
	var payload models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := h.service.UpdateStatus(r.Context(), uint(id), payload.Status); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	desc, err := h.service.Schema(features.ResolveAlias(mux.Vars(r)["disease"]))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (h *Handler) handleLastSubmission(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, http.StatusBadRequest, "email is required", nil)
		return
	}
	submission, err := h.service.LastSubmission(r.Context(), features.ResolveAlias(r.URL.Query().Get("disease")), email)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"features": submission})
}

// fail translates service errors into status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var unknown *features.UnknownDiseaseError
	var failed *predictor.PredictionFailedError

	switch {
	case features.IsValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), features.InvalidFields(err))
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, unavailable, nil)
	case errors.As(err, &failed):
		writeError(w, http.StatusServiceUnavailable, unavailable, nil)
	case errors.Is(err, ErrInvalidGender),
		errors.Is(err, ErrInvalidAge),
		errors.Is(err, ErrInvalidLimit),
		errors.Is(err, ErrInvalidOffset),
		errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrDiagnosisNotFound), errors.Is(err, storage.ErrNoFeatures):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrCacheDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		logger.Log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// writeDecodeError reports an oversized body as 413 and any other decode
// failure as 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request", nil)
}

func writeError(w http.ResponseWriter, status int, message string, fields []string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Fields: fields})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}
