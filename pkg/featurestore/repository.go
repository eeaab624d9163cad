package featurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/covariates"
	"github.com/pharmkit-ai/platform/pkg/pivot"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&WideGroupRow{},
		&WideIndividualRow{},
		&DerivedCovariateRow{},
	)
}

// ReplaceStudy swaps out every materialized row for one (study, level) in a
// single transaction. Wholesale replacement avoids stale-field drift when an
// upstream value changed between runs.
func (r *Repository) ReplaceStudy(ctx context.Context, studySID, level string, wide []pivot.WideRow, derived []covariates.Row) error {
	now := time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch level {
		case models.LevelGroup:
			if err := tx.Where("study_sid = ?", studySID).Delete(&WideGroupRow{}).Error; err != nil {
				return err
			}
			for _, w := range wide {
				row := groupRowFromWide(w)
				row.CreatedAt = now
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		case models.LevelIndividual:
			if err := tx.Where("study_sid = ?", studySID).Delete(&WideIndividualRow{}).Error; err != nil {
				return err
			}
			for _, w := range wide {
				row := individualRowFromWide(w)
				row.CreatedAt = now
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown subject level %s", level)
		}

		if err := tx.Where("study_sid = ? AND level = ?", studySID, level).Delete(&DerivedCovariateRow{}).Error; err != nil {
			return err
		}
		for _, d := range derived {
			row := derivedRowFromCovariates(d)
			row.CreatedAt = now
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GroupDemographics(ctx context.Context, studySID string) ([]WideGroupRow, error) {
	var rows []WideGroupRow
	err := r.db.WithContext(ctx).
		Where("study_sid = ?", studySID).
		Order("group_pk").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) IndividualDemographics(ctx context.Context, studySID string) ([]WideIndividualRow, error) {
	var rows []WideIndividualRow
	err := r.db.WithContext(ctx).
		Where("study_sid = ?", studySID).
		Order("individual_pk").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CovariatesForStudy(ctx context.Context, studySID, level string) ([]DerivedCovariateRow, error) {
	var rows []DerivedCovariateRow
	q := r.db.WithContext(ctx).Where("study_sid = ?", studySID)
	if level != "" {
		q = q.Where("level = ?", level)
	}
	err := q.Order("subject_pk").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListCovariates(ctx context.Context, level string, limit int) ([]DerivedCovariateRow, error) {
	if limit <= 0 {
		limit = 500
	}
	q := r.db.WithContext(ctx).Order("study_sid, subject_pk").Limit(limit)
	if level != "" {
		q = q.Where("level = ?", level)
	}
	var rows []DerivedCovariateRow
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) GetCovariateRow(ctx context.Context, level, studySID string, subjectPK int64) (*DerivedCovariateRow, error) {
	var row DerivedCovariateRow
	err := r.db.WithContext(ctx).
		Where("level = ? AND study_sid = ? AND subject_pk = ?", level, studySID, subjectPK).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
