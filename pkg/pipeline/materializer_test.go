package pipeline

import (
	"testing"

	"github.com/pharmkit-ai/platform/pkg/normalizer"
)

func fptr(v float64) *float64 { return &v }

func TestSummarizeInterventionsModalValues(t *testing.T) {
	records := []normalizer.InterventionRecord{
		{StudySID: "PKDB00001", InterventionPK: 1, MeasurementType: "dosing", Substance: "caffeine", Route: "oral", Application: "single dose", Value: fptr(100), Unit: "mg"},
		{StudySID: "PKDB00001", InterventionPK: 2, MeasurementType: "dosing", Substance: "caffeine", Route: "oral", Value: fptr(200), Unit: "mg"},
		{StudySID: "PKDB00001", InterventionPK: 3, MeasurementType: "dosing", Substance: "midazolam", Route: "iv", Value: fptr(2), Unit: "mg"},
	}

	summary := SummarizeInterventions("PKDB00001", records)

	if summary.InterventionCount != 3 {
		t.Fatalf("expected 3 distinct interventions, got %d", summary.InterventionCount)
	}
	if summary.PrimarySubstance != "caffeine" {
		t.Fatalf("expected modal substance caffeine, got %q", summary.PrimarySubstance)
	}
	if summary.PrimaryRoute != "oral" {
		t.Fatalf("expected modal route oral, got %q", summary.PrimaryRoute)
	}
	if summary.DoseValue == nil || *summary.DoseValue != 100 {
		t.Fatalf("expected first dose 100, got %v", summary.DoseValue)
	}
	if summary.DoseUnit != "mg" {
		t.Fatalf("expected dose unit mg, got %q", summary.DoseUnit)
	}
	if summary.Application != "single dose" {
		t.Fatalf("expected application carried, got %q", summary.Application)
	}
}

func TestSummarizeInterventionsTieBreaksLexicographically(t *testing.T) {
	records := []normalizer.InterventionRecord{
		{StudySID: "PKDB00002", InterventionPK: 1, Substance: "midazolam"},
		{StudySID: "PKDB00002", InterventionPK: 2, Substance: "caffeine"},
	}

	summary := SummarizeInterventions("PKDB00002", records)
	if summary.PrimarySubstance != "caffeine" {
		t.Fatalf("expected lexicographic tie-break to caffeine, got %q", summary.PrimarySubstance)
	}
}

func TestSummarizeInterventionsIgnoresOtherStudies(t *testing.T) {
	records := []normalizer.InterventionRecord{
		{StudySID: "PKDB00003", InterventionPK: 1, Substance: "caffeine"},
		{StudySID: "PKDB09999", InterventionPK: 2, Substance: "midazolam"},
	}

	summary := SummarizeInterventions("PKDB00003", records)
	if summary.InterventionCount != 1 {
		t.Fatalf("expected 1 intervention, got %d", summary.InterventionCount)
	}
	if summary.PrimarySubstance != "caffeine" {
		t.Fatalf("expected caffeine, got %q", summary.PrimarySubstance)
	}
}

func TestSummarizeInterventionsCountsDistinctPKs(t *testing.T) {
	records := []normalizer.InterventionRecord{
		{StudySID: "PKDB00004", InterventionPK: 7, MeasurementType: "dosing", Substance: "caffeine"},
		{StudySID: "PKDB00004", InterventionPK: 7, MeasurementType: "route", Substance: "caffeine"},
	}

	summary := SummarizeInterventions("PKDB00004", records)
	if summary.InterventionCount != 1 {
		t.Fatalf("expected distinct pk count 1, got %d", summary.InterventionCount)
	}
}

func TestExtractFeatures(t *testing.T) {
	dose := 100.0
	summary := InterventionSummary{
		StudySID:          "PKDB00001",
		InterventionCount: 2,
		PrimarySubstance:  "caffeine",
		PrimaryRoute:      "oral",
		DoseValue:         &dose,
		DoseUnit:          "mg",
	}

	features := ExtractFeatures(summary)

	if features["primary_substance"].Value != "caffeine" {
		t.Fatalf("expected primary_substance feature, got %v", features["primary_substance"].Value)
	}
	if features["dose_value"].Value != 100.0 {
		t.Fatalf("expected dose_value 100, got %v", features["dose_value"].Value)
	}
	if _, ok := features["application"]; ok {
		t.Fatal("expected no application feature when summary field empty")
	}
}

func TestExtractFeaturesEmptySummary(t *testing.T) {
	features := ExtractFeatures(InterventionSummary{StudySID: "PKDB00005"})
	if len(features) != 0 {
		t.Fatalf("expected no features for empty summary, got %d", len(features))
	}
}
