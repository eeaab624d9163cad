package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
	"gorm.io/gorm"
)

// Handler exposes run management for the derivation pipeline and the ingest
// entrypoint for pushed batches.
type Handler struct {
	runner     *Runner
	runs       *RunRepository
	normalizer *normalizer.Service
	runTimeout time.Duration
}

func NewHandler(runner *Runner, runs *RunRepository, norm *normalizer.Service, runTimeout time.Duration) *Handler {
	return &Handler{runner: runner, runs: runs, normalizer: norm, runTimeout: runTimeout}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/runs", h.handleStartRun).Methods(http.MethodPost)
	r.HandleFunc("/runs", h.handleListRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}", h.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/ingest/{source}", h.handleIngest).Methods(http.MethodPost)
}

func (h *Handler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.runner.Start(r.Context(), req, h.runTimeout)
	if err != nil {
		logger.Log.WithError(err).Error("failed to start pipeline run")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": runs})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get run")
		http.Error(w, "failed to get run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	var payload struct {
		Records []map[string]interface{} `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	records := make([]models.RawRecord, 0, len(payload.Records))
	for _, fields := range payload.Records {
		records = append(records, models.RawRecord{Source: source, Fields: fields})
	}

	summary, err := h.normalizer.Ingest(r.Context(), source, records)
	if err != nil {
		if normalizer.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("ingest failed")
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
