package benchmark

import "time"

// One flat table per ADME endpoint, keyed by drug identifier plus SMILES.
// These records arrive already wide; no pivoting happens here.

type ClearanceRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	DrugID    string    `json:"drug_id" gorm:"column:drug_id;uniqueIndex:idx_clearance_drug,priority:1"`
	DrugName  string    `json:"drug_name" gorm:"column:drug_name"`
	SMILES    string    `json:"smiles" gorm:"column:smiles;uniqueIndex:idx_clearance_drug,priority:2"`
	Y         float64   `json:"y" gorm:"column:y"` // intrinsic clearance, uL/min/mg
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (ClearanceRecord) TableName() string { return "drug_clearance" }

type HalfLifeRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	DrugID    string    `json:"drug_id" gorm:"column:drug_id;uniqueIndex:idx_half_life_drug,priority:1"`
	DrugName  string    `json:"drug_name" gorm:"column:drug_name"`
	SMILES    string    `json:"smiles" gorm:"column:smiles;uniqueIndex:idx_half_life_drug,priority:2"`
	Y         float64   `json:"y" gorm:"column:y"` // half-life, hours
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (HalfLifeRecord) TableName() string { return "drug_half_life" }

type BioavailabilityRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	DrugID    string    `json:"drug_id" gorm:"column:drug_id;uniqueIndex:idx_bioavail_drug,priority:1"`
	DrugName  string    `json:"drug_name" gorm:"column:drug_name"`
	SMILES    string    `json:"smiles" gorm:"column:smiles;uniqueIndex:idx_bioavail_drug,priority:2"`
	Y         float64   `json:"y" gorm:"column:y"` // oral bioavailability, binary label
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (BioavailabilityRecord) TableName() string { return "drug_bioavailability" }

type ProteinBindingRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	DrugID    string    `json:"drug_id" gorm:"column:drug_id;uniqueIndex:idx_ppb_drug,priority:1"`
	DrugName  string    `json:"drug_name" gorm:"column:drug_name"`
	SMILES    string    `json:"smiles" gorm:"column:smiles;uniqueIndex:idx_ppb_drug,priority:2"`
	Y         float64   `json:"y" gorm:"column:y"` // plasma protein binding rate, percent
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (ProteinBindingRecord) TableName() string { return "drug_protein_binding" }

// MoleculeRecord is the endpoint-independent shape the transformer emits
// before it lands in one of the four tables.
type MoleculeRecord struct {
	DrugID   string
	DrugName string
	SMILES   string
	Y        float64
}
