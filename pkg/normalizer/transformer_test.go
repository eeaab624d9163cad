package normalizer

import (
	"testing"

	"github.com/pharmkit-ai/platform/pkg/catalog"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
)

func init() {
	logger.Init()
}

func TestTransformGroupMeasurement(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	rec, err := tr.TransformGroupMeasurement(map[string]interface{}{
		"study_sid":        "PKDB00198",
		"study_name":       "Blanchard1983",
		"group_pk":         float64(412),
		"group_name":       "smokers",
		"group_count":      "12",
		"measurement_type": "Weight",
		"mean":             72.4,
		"sd":               8.1,
		"unit":             "kg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.MeasurementType != "weight" {
		t.Fatalf("expected lowercased measurement type, got %q", rec.MeasurementType)
	}
	if rec.CalculationType != CalcMean {
		t.Fatalf("expected calculation type %q, got %q", CalcMean, rec.CalculationType)
	}
	if rec.Mean == nil || *rec.Mean != 72.4 {
		t.Fatalf("expected mean 72.4, got %v", rec.Mean)
	}
	if rec.GroupCount == nil || *rec.GroupCount != 12 {
		t.Fatalf("expected group count 12, got %v", rec.GroupCount)
	}
}

func TestTransformGroupMeasurementConvertsUnits(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	rec, err := tr.TransformGroupMeasurement(map[string]interface{}{
		"study_sid":        "PKDB00001",
		"group_pk":         1,
		"measurement_type": "height",
		"mean":             1.76,
		"sd":               0.05,
		"unit":             "m",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Mean == nil || *rec.Mean != 176 {
		t.Fatalf("expected 1.76 m converted to 176 cm, got %v", rec.Mean)
	}
	if rec.SD == nil || *rec.SD != 5 {
		t.Fatalf("expected dispersion converted too, got %v", rec.SD)
	}
	if rec.Unit != "cm" {
		t.Fatalf("expected canonical unit cm, got %q", rec.Unit)
	}
}

func TestTransformRejectsMissingRequiredKeys(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	cases := []map[string]interface{}{
		{"group_pk": 1, "measurement_type": "age", "mean": 30.0},                   // no study
		{"study_sid": "PKDB00001", "measurement_type": "age", "mean": 30.0},        // no subject
		{"study_sid": "PKDB00001", "group_pk": 1, "mean": 30.0},                    // no attribute type
		{"study_sid": "PKDB00001", "group_pk": 1, "measurement_type": "age"},       // no value at all
	}
	for i, fields := range cases {
		if _, err := tr.TransformGroupMeasurement(fields); !IsValidationError(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestTransformIndividualMeasurement(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	rec, err := tr.TransformIndividualMeasurement(map[string]interface{}{
		"study_sid":           "PKDB00102",
		"individual_pk":       9007,
		"individual_name":     "S3",
		"individual_group_pk": 55,
		"measurement_type":    "sex",
		"choice":              "F",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CalculationType != CalcChoice {
		t.Fatalf("expected choice calculation type, got %q", rec.CalculationType)
	}
	if rec.Choice == nil || *rec.Choice != "F" {
		t.Fatalf("expected choice F, got %v", rec.Choice)
	}
	if rec.IndividualGroupPK == nil || *rec.IndividualGroupPK != 55 {
		t.Fatalf("expected parent group 55, got %v", rec.IndividualGroupPK)
	}
}

func TestTransformInterventionLowercasesCategories(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	rec, err := tr.TransformIntervention(map[string]interface{}{
		"study_sid":        "PKDB00198",
		"intervention_pk":  77,
		"measurement_type": "dosing",
		"substance":        "Caffeine",
		"route":            "Oral",
		"application":      "single dose",
		"value":            200.0,
		"unit":             "mg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Substance != "caffeine" || rec.Route != "oral" {
		t.Fatalf("expected lowercased substance/route, got %q/%q", rec.Substance, rec.Route)
	}
}

func TestTransformStudy(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	rec, err := tr.TransformStudy(map[string]interface{}{
		"sid":        "PKDB00198",
		"name":       "Blanchard1983",
		"licence":    "open",
		"substances": "['caffeine', 'paraxanthine']",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.SID != "PKDB00198" {
		t.Fatalf("expected sid preserved, got %q", rec.SID)
	}
	if string(rec.Substances) != `["caffeine","paraxanthine"]` {
		t.Fatalf("unexpected substances encoding: %s", rec.Substances)
	}

	if _, err := tr.TransformStudy(map[string]interface{}{"name": "NoSID"}); !IsValidationError(err) {
		t.Fatalf("expected validation error for missing sid, got %v", err)
	}
}

func TestNaNValuesTreatedAsMissing(t *testing.T) {
	tr := NewTransformer(catalog.Default())

	_, err := tr.TransformGroupMeasurement(map[string]interface{}{
		"study_sid":        "PKDB00001",
		"group_pk":         1,
		"measurement_type": "age",
		"mean":             "NaN",
		"choice":           "nan",
	})
	if !IsValidationError(err) {
		t.Fatalf("expected NaN-only record to be rejected, got %v", err)
	}
}
