package benchmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
)

var (
	errMissingDrugID = errors.New("drug identifier missing")
	errMissingSMILES = errors.New("structural encoding missing")
	errMissingTarget = errors.New("target value missing")
)

// ValidationError marks a benchmark row that is dropped and logged.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string { return e.reason.Error() }

func (e ValidationError) Unwrap() error { return e.reason }

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Transform maps one fixed-schema benchmark row (Drug_ID, Drug, Y) into the
// endpoint-independent record.
func Transform(fields map[string]interface{}) (*MoleculeRecord, error) {
	drugID := stringField(fields, "Drug_ID", "drug_id")
	if drugID == "" {
		return nil, ValidationError{reason: errMissingDrugID}
	}
	smiles := stringField(fields, "Drug", "drug", "smiles")
	if smiles == "" {
		return nil, ValidationError{reason: errMissingSMILES}
	}
	y, ok := floatField(fields, "Y", "y")
	if !ok {
		return nil, ValidationError{reason: errMissingTarget}
	}

	name := stringField(fields, "Drug_Name", "drug_name")
	if name == "" {
		name = drugID
	}

	return &MoleculeRecord{
		DrugID:   drugID,
		DrugName: name,
		SMILES:   smiles,
		Y:        y,
	}, nil
}

// Service ingests benchmark batches into their endpoint tables.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Ingest(ctx context.Context, endpoint string, records []models.RawRecord) (models.IngestSummary, error) {
	summary := models.IngestSummary{Source: endpoint}
	if len(records) == 0 {
		return summary, fmt.Errorf("empty benchmark batch for endpoint %s", endpoint)
	}

	for _, raw := range records {
		rec, err := Transform(raw.Fields)
		if err != nil {
			if IsValidationError(err) {
				summary.Rejected++
				logger.Log.WithError(err).WithField("endpoint", endpoint).Warn("dropping malformed benchmark row")
				continue
			}
			return summary, err
		}
		if err := s.repo.Upsert(ctx, endpoint, rec); err != nil {
			return summary, fmt.Errorf("persisting %s benchmark row: %w", endpoint, err)
		}
		summary.Accepted++
	}

	logger.Log.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"accepted": summary.Accepted,
		"rejected": summary.Rejected,
	}).Info("benchmark batch ingested")

	return summary, nil
}

func stringField(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func floatField(fields map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val, true
		case int:
			return float64(val), true
		case string:
			var f float64
			if _, err := fmt.Sscanf(val, "%g", &f); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
