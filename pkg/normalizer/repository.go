package normalizer

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrStudyNotFound = errors.New("study not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&StudyRecord{},
		&GroupMeasurementRecord{},
		&IndividualMeasurementRecord{},
		&InterventionRecord{},
		&SubstanceStatRecord{},
	)
}

// UpsertStudy inserts the study or leaves an existing row untouched. Studies
// are immutable once ingested.
func (r *Repository) UpsertStudy(ctx context.Context, rec *StudyRecord) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sid"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

// UpsertGroupMeasurement upserts by the natural key so re-ingesting an
// identical batch never duplicates rows.
func (r *Repository) UpsertGroupMeasurement(ctx context.Context, rec *GroupMeasurementRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "study_sid"}, {Name: "group_pk"},
				{Name: "measurement_type"}, {Name: "calculation_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"study_name", "group_name", "group_count", "choice",
				"value", "mean", "median", "sd", "se", "cv", "unit",
				"orphan", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *Repository) UpsertIndividualMeasurement(ctx context.Context, rec *IndividualMeasurementRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "study_sid"}, {Name: "individual_pk"},
				{Name: "measurement_type"}, {Name: "calculation_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"study_name", "individual_name", "individual_group_pk",
				"choice", "value", "mean", "median", "unit",
				"orphan", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *Repository) UpsertIntervention(ctx context.Context, rec *InterventionRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "study_sid"}, {Name: "intervention_pk"}, {Name: "measurement_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"substance", "route", "form", "application",
				"time", "time_unit", "value", "unit", "orphan", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *Repository) UpsertSubstanceStat(ctx context.Context, rec *SubstanceStatRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "substance"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"output_count", "intervention_count", "study_count", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *Repository) StudyExists(ctx context.Context, sid string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&StudyRecord{}).Where("sid = ?", sid).Count(&count).Error
	return count > 0, err
}

func (r *Repository) GetStudy(ctx context.Context, sid string) (*StudyRecord, error) {
	var rec StudyRecord
	result := r.db.WithContext(ctx).First(&rec, "sid = ?", sid)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrStudyNotFound
	}
	return &rec, result.Error
}

func (r *Repository) ListStudies(ctx context.Context, limit int) ([]StudyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var studies []StudyRecord
	err := r.db.WithContext(ctx).Order("sid").Limit(limit).Find(&studies).Error
	return studies, err
}

// ObservedStudySIDs returns every distinct study identifier present in the
// measurement tables, orphans included. This drives the per-study batch loop.
func (r *Repository) ObservedStudySIDs(ctx context.Context) ([]string, error) {
	var sids []string
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT study_sid FROM group_measurements
		     UNION SELECT DISTINCT study_sid FROM individual_measurements
		     ORDER BY study_sid`).
		Scan(&sids).Error
	return sids, err
}

func (r *Repository) GroupMeasurementsForStudy(ctx context.Context, studySID string) ([]GroupMeasurementRecord, error) {
	var recs []GroupMeasurementRecord
	err := r.db.WithContext(ctx).
		Where("study_sid = ?", studySID).
		Order("id").
		Find(&recs).Error
	return recs, err
}

func (r *Repository) IndividualMeasurementsForStudy(ctx context.Context, studySID string) ([]IndividualMeasurementRecord, error) {
	var recs []IndividualMeasurementRecord
	err := r.db.WithContext(ctx).
		Where("study_sid = ?", studySID).
		Order("id").
		Find(&recs).Error
	return recs, err
}

// InterventionsForStudies returns dosing records for the given studies,
// excluding orphans since the dose join requires study metadata.
func (r *Repository) InterventionsForStudies(ctx context.Context, studySIDs []string) ([]InterventionRecord, error) {
	var recs []InterventionRecord
	q := r.db.WithContext(ctx).Where("orphan = ?", false).Order("id")
	if len(studySIDs) > 0 {
		q = q.Where("study_sid IN ?", studySIDs)
	}
	err := q.Find(&recs).Error
	return recs, err
}

func (r *Repository) ListSubstanceStats(ctx context.Context, limit int) ([]SubstanceStatRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []SubstanceStatRecord
	err := r.db.WithContext(ctx).Order("output_count DESC").Limit(limit).Find(&recs).Error
	return recs, err
}
