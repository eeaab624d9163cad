package pipeline

import (
	"sort"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
)

// InterventionSummary condenses a study's dosing records into the handful of
// fields the feature store serves alongside subject covariates.
type InterventionSummary struct {
	StudySID          string   `json:"study_sid"`
	InterventionCount int      `json:"intervention_count"`
	PrimarySubstance  string   `json:"primary_substance,omitempty"`
	PrimaryRoute      string   `json:"primary_route,omitempty"`
	Application       string   `json:"application,omitempty"`
	DoseValue         *float64 `json:"dose_value,omitempty"`
	DoseUnit          string   `json:"dose_unit,omitempty"`
}

// SummarizeInterventions collapses the intervention records of one study.
// The primary substance and route are the modal values; ties break to the
// lexicographically smallest so reruns stay deterministic. The dose is taken
// from the first dosing record carrying a value.
func SummarizeInterventions(studySID string, records []normalizer.InterventionRecord) InterventionSummary {
	summary := InterventionSummary{StudySID: studySID}

	seen := make(map[int64]bool)
	substances := make(map[string]int)
	routes := make(map[string]int)

	for _, rec := range records {
		if rec.StudySID != studySID {
			continue
		}
		if !seen[rec.InterventionPK] {
			seen[rec.InterventionPK] = true
			summary.InterventionCount++
		}
		if rec.Substance != "" {
			substances[rec.Substance]++
		}
		if rec.Route != "" {
			routes[rec.Route]++
		}
		if summary.Application == "" && rec.Application != "" {
			summary.Application = rec.Application
		}
		if summary.DoseValue == nil && rec.MeasurementType == "dosing" && rec.Value != nil {
			v := *rec.Value
			summary.DoseValue = &v
			summary.DoseUnit = rec.Unit
		}
	}

	summary.PrimarySubstance = modal(substances)
	summary.PrimaryRoute = modal(routes)
	return summary
}

func modal(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	bestCount := 0
	for _, k := range keys {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best
}

// ExtractFeatures turns an intervention summary into serving features keyed
// for merge into a subject's feature set.
func ExtractFeatures(summary InterventionSummary) map[string]models.Feature {
	now := time.Now().UTC()
	features := make(map[string]models.Feature)

	put := func(name string, value interface{}) {
		features[name] = models.Feature{Name: name, Value: value, Timestamp: now}
	}

	if summary.InterventionCount > 0 {
		put("intervention_count", summary.InterventionCount)
	}
	if summary.PrimarySubstance != "" {
		put("primary_substance", summary.PrimarySubstance)
	}
	if summary.PrimaryRoute != "" {
		put("primary_route", summary.PrimaryRoute)
	}
	if summary.Application != "" {
		put("application", summary.Application)
	}
	if summary.DoseValue != nil {
		put("dose_value", *summary.DoseValue)
		if summary.DoseUnit != "" {
			put("dose_unit", summary.DoseUnit)
		}
	}

	return features
}
