package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&ClearanceRecord{},
		&HalfLifeRecord{},
		&BioavailabilityRecord{},
		&ProteinBindingRecord{},
	)
}

var drugKeyConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "drug_id"}, {Name: "smiles"}},
	DoUpdates: clause.AssignmentColumns([]string{"drug_name", "y", "updated_at"}),
}

// Upsert writes the record into the endpoint's table, keyed by
// (drug_id, smiles) so re-ingestion is idempotent.
func (r *Repository) Upsert(ctx context.Context, endpoint string, rec *MoleculeRecord) error {
	now := time.Now().UTC()
	db := r.db.WithContext(ctx).Clauses(drugKeyConflict)

	switch endpoint {
	case models.EndpointClearance:
		return db.Create(&ClearanceRecord{
			DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y,
			CreatedAt: now, UpdatedAt: now,
		}).Error
	case models.EndpointHalfLife:
		return db.Create(&HalfLifeRecord{
			DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y,
			CreatedAt: now, UpdatedAt: now,
		}).Error
	case models.EndpointBioavailability:
		return db.Create(&BioavailabilityRecord{
			DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y,
			CreatedAt: now, UpdatedAt: now,
		}).Error
	case models.EndpointProteinBinding:
		return db.Create(&ProteinBindingRecord{
			DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y,
			CreatedAt: now, UpdatedAt: now,
		}).Error
	}
	return fmt.Errorf("unknown benchmark endpoint %s", endpoint)
}

// List returns up to limit rows from the endpoint's table in the
// endpoint-independent shape.
func (r *Repository) List(ctx context.Context, endpoint string, limit int) ([]MoleculeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	db := r.db.WithContext(ctx).Order("drug_id").Limit(limit)

	switch endpoint {
	case models.EndpointClearance:
		var recs []ClearanceRecord
		if err := db.Find(&recs).Error; err != nil {
			return nil, err
		}
		out := make([]MoleculeRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, MoleculeRecord{DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y})
		}
		return out, nil
	case models.EndpointHalfLife:
		var recs []HalfLifeRecord
		if err := db.Find(&recs).Error; err != nil {
			return nil, err
		}
		out := make([]MoleculeRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, MoleculeRecord{DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y})
		}
		return out, nil
	case models.EndpointBioavailability:
		var recs []BioavailabilityRecord
		if err := db.Find(&recs).Error; err != nil {
			return nil, err
		}
		out := make([]MoleculeRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, MoleculeRecord{DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y})
		}
		return out, nil
	case models.EndpointProteinBinding:
		var recs []ProteinBindingRecord
		if err := db.Find(&recs).Error; err != nil {
			return nil, err
		}
		out := make([]MoleculeRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, MoleculeRecord{DrugID: rec.DrugID, DrugName: rec.DrugName, SMILES: rec.SMILES, Y: rec.Y})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown benchmark endpoint %s", endpoint)
}
