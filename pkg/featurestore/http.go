package featurestore

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pharmkit-ai/platform/pkg/benchmark"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
	"gorm.io/gorm"
)

// Handler exposes read-only queries over the canonical tables and the
// materialized projections. No write access outside the pipeline.
type Handler struct {
	store      *Store
	studies    *normalizer.Repository
	benchmarks *benchmark.Repository
}

func NewHandler(store *Store, studies *normalizer.Repository, benchmarks *benchmark.Repository) *Handler {
	return &Handler{store: store, studies: studies, benchmarks: benchmarks}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/studies", h.handleListStudies).Methods(http.MethodGet)
	r.HandleFunc("/studies/{sid}", h.handleGetStudy).Methods(http.MethodGet)
	r.HandleFunc("/studies/{sid}/demographics", h.handleStudyDemographics).Methods(http.MethodGet)
	r.HandleFunc("/studies/{sid}/covariates", h.handleStudyCovariates).Methods(http.MethodGet)
	r.HandleFunc("/covariates", h.handleListCovariates).Methods(http.MethodGet)
	r.HandleFunc("/features/{level}/{sid}/{subject}", h.handleGetFeatureSet).Methods(http.MethodGet)
	r.HandleFunc("/benchmarks/{endpoint}", h.handleListBenchmark).Methods(http.MethodGet)
	r.HandleFunc("/substances", h.handleListSubstances).Methods(http.MethodGet)
}

func (h *Handler) handleListStudies(w http.ResponseWriter, r *http.Request) {
	studies, err := h.studies.ListStudies(r.Context(), parseLimit(r, 100))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list studies")
		http.Error(w, "failed to list studies", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": studies})
}

func (h *Handler) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	study, err := h.studies.GetStudy(r.Context(), sid)
	if err != nil {
		if errors.Is(err, normalizer.ErrStudyNotFound) {
			http.Error(w, "study not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get study")
		http.Error(w, "failed to get study", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"study": study})
}

func (h *Handler) handleStudyDemographics(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	level := r.URL.Query().Get("level")
	if level == "" {
		level = models.LevelGroup
	}

	switch level {
	case models.LevelGroup:
		rows, err := h.store.repo.GroupDemographics(r.Context(), sid)
		if err != nil {
			logger.Log.WithError(err).Error("failed to load group demographics")
			http.Error(w, "failed to load demographics", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"level": level, "items": rows})
	case models.LevelIndividual:
		rows, err := h.store.repo.IndividualDemographics(r.Context(), sid)
		if err != nil {
			logger.Log.WithError(err).Error("failed to load individual demographics")
			http.Error(w, "failed to load demographics", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"level": level, "items": rows})
	default:
		http.Error(w, "invalid level", http.StatusBadRequest)
	}
}

func (h *Handler) handleStudyCovariates(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	level := r.URL.Query().Get("level")
	rows, err := h.store.repo.CovariatesForStudy(r.Context(), sid, level)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load covariates")
		http.Error(w, "failed to load covariates", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (h *Handler) handleListCovariates(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	rows, err := h.store.repo.ListCovariates(r.Context(), level, parseLimit(r, 500))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list covariates")
		http.Error(w, "failed to list covariates", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (h *Handler) handleGetFeatureSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	level := vars["level"]
	if level != models.LevelGroup && level != models.LevelIndividual {
		http.Error(w, "invalid level", http.StatusBadRequest)
		return
	}
	subjectPK, err := strconv.ParseInt(vars["subject"], 10, 64)
	if err != nil {
		http.Error(w, "invalid subject pk", http.StatusBadRequest)
		return
	}

	fs, err := h.store.GetFeatureSet(r.Context(), level, vars["sid"], subjectPK)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "feature set not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load feature set")
		http.Error(w, "failed to load feature set", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *Handler) handleListBenchmark(w http.ResponseWriter, r *http.Request) {
	endpoint := mux.Vars(r)["endpoint"]
	rows, err := h.benchmarks.List(r.Context(), endpoint, parseLimit(r, 100))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list benchmark records")
		http.Error(w, "unknown benchmark endpoint", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"endpoint": endpoint, "items": rows})
}

func (h *Handler) handleListSubstances(w http.ResponseWriter, r *http.Request) {
	rows, err := h.studies.ListSubstanceStats(r.Context(), parseLimit(r, 100))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list substance stats")
		http.Error(w, "failed to list substances", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
