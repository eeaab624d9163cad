package normalizer

import (
	"context"
	"fmt"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
)

// Service normalizes raw adapter batches into the canonical tables. Bad
// records are dropped and logged; only an empty batch is treated as a
// systemic failure.
type Service struct {
	transformer *Transformer
	repo        *Repository
}

func NewService(transformer *Transformer, repo *Repository) *Service {
	return &Service{transformer: transformer, repo: repo}
}

func (s *Service) Ingest(ctx context.Context, source string, records []models.RawRecord) (models.IngestSummary, error) {
	summary := models.IngestSummary{Source: source}
	if len(records) == 0 {
		return summary, fmt.Errorf("empty input batch for source %s", source)
	}

	for _, raw := range records {
		if err := s.ingestOne(ctx, source, raw); err != nil {
			if IsValidationError(err) {
				summary.Rejected++
				logger.Log.WithError(err).WithField("source", source).Warn("dropping malformed record")
				continue
			}
			return summary, fmt.Errorf("persisting %s record: %w", source, err)
		}
		summary.Accepted++
	}

	// Studies arrive in their own batch, so referential flagging runs after
	// measurement batches rather than per record.
	if source != models.SourceStudies && source != models.SourceSubstanceStats {
		orphaned, err := s.flagOrphans(ctx, source)
		if err != nil {
			return summary, err
		}
		summary.Orphaned = orphaned
	}

	logger.Log.WithFields(map[string]interface{}{
		"source":   source,
		"accepted": summary.Accepted,
		"rejected": summary.Rejected,
		"orphaned": summary.Orphaned,
	}).Info("batch normalized")

	return summary, nil
}

func (s *Service) ingestOne(ctx context.Context, source string, raw models.RawRecord) error {
	switch source {
	case models.SourceStudies:
		rec, err := s.transformer.TransformStudy(raw.Fields)
		if err != nil {
			return err
		}
		return s.repo.UpsertStudy(ctx, rec)
	case models.SourceGroups:
		rec, err := s.transformer.TransformGroupMeasurement(raw.Fields)
		if err != nil {
			return err
		}
		return s.repo.UpsertGroupMeasurement(ctx, rec)
	case models.SourceIndividuals:
		rec, err := s.transformer.TransformIndividualMeasurement(raw.Fields)
		if err != nil {
			return err
		}
		return s.repo.UpsertIndividualMeasurement(ctx, rec)
	case models.SourceInterventions:
		rec, err := s.transformer.TransformIntervention(raw.Fields)
		if err != nil {
			return err
		}
		return s.repo.UpsertIntervention(ctx, rec)
	case models.SourceSubstanceStats:
		rec, err := s.transformer.TransformSubstanceStat(raw.Fields)
		if err != nil {
			return err
		}
		return s.repo.UpsertSubstanceStat(ctx, rec)
	}
	return fmt.Errorf("unknown source %s", source)
}

// flagOrphans marks measurement and intervention rows whose study is absent
// from the studies table. The rows stay queryable; joins that need study
// metadata filter on the flag.
func (s *Service) flagOrphans(ctx context.Context, source string) (int, error) {
	var table string
	switch source {
	case models.SourceGroups:
		table = GroupMeasurementRecord{}.TableName()
	case models.SourceIndividuals:
		table = IndividualMeasurementRecord{}.TableName()
	case models.SourceInterventions:
		table = InterventionRecord{}.TableName()
	default:
		return 0, nil
	}

	result := s.repo.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s SET orphan = (study_sid NOT IN (SELECT sid FROM studies))`, table))
	if result.Error != nil {
		return 0, fmt.Errorf("flagging orphans in %s: %w", table, result.Error)
	}

	var orphaned int64
	if err := s.repo.db.WithContext(ctx).
		Table(table).
		Where("orphan = ?", true).
		Count(&orphaned).Error; err != nil {
		return 0, err
	}
	if orphaned > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"table": table,
			"count": orphaned,
		}).Warn("records reference unknown studies")
	}
	return int(orphaned), nil
}
