package normalizer

import (
	"time"

	"gorm.io/datatypes"
)

// Calculation types in precedence order: an explicit point value beats a
// reported mean, which beats a median. Categorical records carry a choice.
const (
	CalcValue  = "value"
	CalcMean   = "mean"
	CalcMedian = "median"
	CalcChoice = "choice"
)

// StudyRecord is study metadata from the clinical source. Immutable once
// ingested; all measurement entities reference it by SID.
type StudyRecord struct {
	SID        string         `json:"sid" gorm:"primaryKey;column:sid"`
	Name       string         `json:"name" gorm:"column:name"`
	Licence    string         `json:"licence" gorm:"column:licence"`
	Substances datatypes.JSON `json:"substances" gorm:"column:substances"`
	Reference  string         `json:"reference,omitempty" gorm:"column:reference"`
	CreatedAt  time.Time      `json:"created_at" gorm:"column:created_at"`
}

func (StudyRecord) TableName() string { return "studies" }

// GroupMeasurementRecord is one long-format attribute row at cohort level.
// Natural key: (study_sid, group_pk, measurement_type, calculation_type).
type GroupMeasurementRecord struct {
	ID              uint       `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	StudySID        string     `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_group_meas_natural,priority:1"`
	StudyName       string     `json:"study_name" gorm:"column:study_name"`
	GroupPK         int64      `json:"group_pk" gorm:"column:group_pk;uniqueIndex:idx_group_meas_natural,priority:2"`
	GroupName       string     `json:"group_name" gorm:"column:group_name"`
	GroupCount      *int64     `json:"group_count,omitempty" gorm:"column:group_count"`
	MeasurementType string     `json:"measurement_type" gorm:"column:measurement_type;uniqueIndex:idx_group_meas_natural,priority:3"`
	CalculationType string     `json:"calculation_type" gorm:"column:calculation_type;uniqueIndex:idx_group_meas_natural,priority:4"`
	Choice          *string    `json:"choice,omitempty" gorm:"column:choice"`
	Value           *float64   `json:"value,omitempty" gorm:"column:value"`
	Mean            *float64   `json:"mean,omitempty" gorm:"column:mean"`
	Median          *float64   `json:"median,omitempty" gorm:"column:median"`
	SD              *float64   `json:"sd,omitempty" gorm:"column:sd"`
	SE              *float64   `json:"se,omitempty" gorm:"column:se"`
	CV              *float64   `json:"cv,omitempty" gorm:"column:cv"`
	Unit            string     `json:"unit,omitempty" gorm:"column:unit"`
	Orphan          bool       `json:"orphan" gorm:"column:orphan"`
	CreatedAt       time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (GroupMeasurementRecord) TableName() string { return "group_measurements" }

// IndividualMeasurementRecord is one long-format attribute row at patient
// level. Natural key: (study_sid, individual_pk, measurement_type,
// calculation_type).
type IndividualMeasurementRecord struct {
	ID                uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	StudySID          string    `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_indiv_meas_natural,priority:1"`
	StudyName         string    `json:"study_name" gorm:"column:study_name"`
	IndividualPK      int64     `json:"individual_pk" gorm:"column:individual_pk;uniqueIndex:idx_indiv_meas_natural,priority:2"`
	IndividualName    string    `json:"individual_name" gorm:"column:individual_name"`
	IndividualGroupPK *int64    `json:"individual_group_pk,omitempty" gorm:"column:individual_group_pk"`
	MeasurementType   string    `json:"measurement_type" gorm:"column:measurement_type;uniqueIndex:idx_indiv_meas_natural,priority:3"`
	CalculationType   string    `json:"calculation_type" gorm:"column:calculation_type;uniqueIndex:idx_indiv_meas_natural,priority:4"`
	Choice            *string   `json:"choice,omitempty" gorm:"column:choice"`
	Value             *float64  `json:"value,omitempty" gorm:"column:value"`
	Mean              *float64  `json:"mean,omitempty" gorm:"column:mean"`
	Median            *float64  `json:"median,omitempty" gorm:"column:median"`
	Unit              string    `json:"unit,omitempty" gorm:"column:unit"`
	Orphan            bool      `json:"orphan" gorm:"column:orphan"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (IndividualMeasurementRecord) TableName() string { return "individual_measurements" }

// InterventionRecord is one dosing event. Joined to demographics by study
// identity only.
type InterventionRecord struct {
	ID              uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	StudySID        string    `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_intervention_natural,priority:1"`
	InterventionPK  int64     `json:"intervention_pk" gorm:"column:intervention_pk;uniqueIndex:idx_intervention_natural,priority:2"`
	MeasurementType string    `json:"measurement_type" gorm:"column:measurement_type;uniqueIndex:idx_intervention_natural,priority:3"`
	Substance       string    `json:"substance" gorm:"column:substance"`
	Route           string    `json:"route,omitempty" gorm:"column:route"`
	Form            string    `json:"form,omitempty" gorm:"column:form"`
	Application     string    `json:"application,omitempty" gorm:"column:application"`
	Time            *float64  `json:"time,omitempty" gorm:"column:time"`
	TimeUnit        string    `json:"time_unit,omitempty" gorm:"column:time_unit"`
	Value           *float64  `json:"value,omitempty" gorm:"column:value"`
	Unit            string    `json:"unit,omitempty" gorm:"column:unit"`
	Orphan          bool      `json:"orphan" gorm:"column:orphan"`
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (InterventionRecord) TableName() string { return "interventions" }

// SubstanceStatRecord mirrors the source's per-substance output statistics.
type SubstanceStatRecord struct {
	Substance         string    `json:"substance" gorm:"primaryKey;column:substance"`
	OutputCount       int64     `json:"output_count" gorm:"column:output_count"`
	InterventionCount int64     `json:"intervention_count" gorm:"column:intervention_count"`
	StudyCount        int64     `json:"study_count" gorm:"column:study_count"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (SubstanceStatRecord) TableName() string { return "substance_stats" }
