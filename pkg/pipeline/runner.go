package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/covariates"
	"github.com/pharmkit-ai/platform/pkg/featurestore"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
	"github.com/pharmkit-ai/platform/pkg/pivot"
)

// EventPublisher matches the kafka producer; kept as an interface so the
// runner can be exercised without a broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Runner drives the derivation pipeline: for each study it pivots the long
// measurements to wide rows, computes covariates, replaces the materialized
// projections, and warms the feature cache. Stages run in that fixed order;
// a failure in one study never blocks the rest of the batch.
type Runner struct {
	studies    *normalizer.Repository
	features   *featurestore.Repository
	store      *featurestore.Store
	runs       *RunRepository
	aggregator *pivot.Aggregator
	calculator *covariates.Calculator
	producer   EventPublisher
}

func NewRunner(
	studies *normalizer.Repository,
	features *featurestore.Repository,
	store *featurestore.Store,
	runs *RunRepository,
	aggregator *pivot.Aggregator,
	calculator *covariates.Calculator,
	producer EventPublisher,
) *Runner {
	return &Runner{
		studies:    studies,
		features:   features,
		store:      store,
		runs:       runs,
		aggregator: aggregator,
		calculator: calculator,
		producer:   producer,
	}
}

// Run processes the requested studies sequentially and records progress on
// the run row as it goes. An empty study list means every observed study.
func (r *Runner) Run(ctx context.Context, req models.RunRequest) (*RunModel, error) {
	run, studySIDs, levels, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, run, studySIDs, levels)
}

// Start creates the run row and executes the batch in the background,
// returning immediately so callers can poll the run by ID.
func (r *Runner) Start(ctx context.Context, req models.RunRequest, timeout time.Duration) (*RunModel, error) {
	run, studySIDs, levels, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := r.execute(runCtx, run, studySIDs, levels); err != nil {
			logger.Log.WithError(err).WithField("run_id", run.ID).Error("pipeline run failed")
		}
	}()

	return run, nil
}

func (r *Runner) prepare(ctx context.Context, req models.RunRequest) (*RunModel, []string, []string, error) {
	studySIDs := req.StudySIDs
	if len(studySIDs) == 0 {
		observed, err := r.studies.ObservedStudySIDs(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolving study list: %w", err)
		}
		studySIDs = observed
	}

	levels := req.Levels
	if len(levels) == 0 {
		levels = []string{models.LevelGroup, models.LevelIndividual}
	}
	for _, level := range levels {
		if level != models.LevelGroup && level != models.LevelIndividual {
			return nil, nil, nil, fmt.Errorf("unknown subject level %s", level)
		}
	}

	run, err := r.runs.Create(ctx, req, len(studySIDs))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating run: %w", err)
	}
	return run, studySIDs, levels, nil
}

func (r *Runner) execute(ctx context.Context, run *RunModel, studySIDs, levels []string) (*RunModel, error) {
	for _, sid := range studySIDs {
		run.InProgressStudy = sid
		if err := r.runs.Update(ctx, run); err != nil {
			logger.Log.WithError(err).Warn("failed to checkpoint run progress")
		}

		if err := r.processStudy(ctx, sid, levels); err != nil {
			run.StudiesFailed++
			run.ErrorMessage = fmt.Sprintf("study %s: %v", sid, err)
			logger.Log.WithError(err).WithField("study_sid", sid).Error("study derivation failed")
			continue
		}
		run.StudiesCompleted++
	}

	run.InProgressStudy = ""
	switch {
	case run.StudiesTotal > 0 && run.StudiesFailed == run.StudiesTotal:
		run.Status = models.RunStatusFailed
	case run.StudiesFailed > 0:
		run.Status = models.RunStatusPartial
	default:
		run.Status = models.RunStatusCompleted
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := r.runs.Update(ctx, run); err != nil {
		return run, fmt.Errorf("finalizing run: %w", err)
	}

	r.publish(ctx, "pipeline.run.finished", map[string]interface{}{
		"run_id":            run.ID,
		"status":            run.Status,
		"studies_total":     run.StudiesTotal,
		"studies_completed": run.StudiesCompleted,
		"studies_failed":    run.StudiesFailed,
	})

	return run, nil
}

func (r *Runner) processStudy(ctx context.Context, sid string, levels []string) error {
	interventions, err := r.studies.InterventionsForStudies(ctx, []string{sid})
	if err != nil {
		return fmt.Errorf("loading interventions: %w", err)
	}
	extra := ExtractFeatures(SummarizeInterventions(sid, interventions))

	for _, level := range levels {
		var measurements []pivot.Measurement
		switch level {
		case models.LevelGroup:
			recs, err := r.studies.GroupMeasurementsForStudy(ctx, sid)
			if err != nil {
				return fmt.Errorf("loading group measurements: %w", err)
			}
			measurements = pivot.FromGroupRecords(recs)
		case models.LevelIndividual:
			recs, err := r.studies.IndividualMeasurementsForStudy(ctx, sid)
			if err != nil {
				return fmt.Errorf("loading individual measurements: %w", err)
			}
			measurements = pivot.FromIndividualRecords(recs)
		}

		wide := r.aggregator.Collapse(level, measurements)
		derived := make([]covariates.Row, 0, len(wide))
		for _, w := range wide {
			derived = append(derived, r.calculator.Compute(w))
		}

		if err := r.store.InvalidateStudy(ctx, level, sid); err != nil {
			logger.Log.WithError(err).WithField("study_sid", sid).Warn("cache invalidation failed")
		}
		if err := r.features.ReplaceStudy(ctx, sid, level, wide, derived); err != nil {
			return fmt.Errorf("replacing %s rows: %w", level, err)
		}
		if err := r.store.WarmStudy(ctx, derived, extra); err != nil {
			logger.Log.WithError(err).WithField("study_sid", sid).Warn("cache warm failed")
		}

		r.publish(ctx, "pipeline.study.derived", map[string]interface{}{
			"study_sid": sid,
			"level":     level,
			"subjects":  len(wide),
		})
	}

	return nil
}

func (r *Runner) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.producer == nil {
		return
	}
	if err := r.producer.PublishEvent(ctx, eventType, "pipeline-service", data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("event publish failed")
	}
}
