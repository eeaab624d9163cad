package featurestore

import (
	"time"

	"github.com/pharmkit-ai/platform/pkg/covariates"
	"github.com/pharmkit-ai/platform/pkg/pivot"
)

// Materialized projections. The long-format tables stay the source of
// truth; everything here is regenerable and replaced wholesale per study.

type WideGroupRow struct {
	ID          uint     `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	StudySID    string   `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_wide_group_subject,priority:1"`
	StudyName   string   `json:"study_name" gorm:"column:study_name"`
	GroupPK     int64    `json:"group_pk" gorm:"column:group_pk;uniqueIndex:idx_wide_group_subject,priority:2"`
	GroupName   string   `json:"group_name" gorm:"column:group_name"`
	GroupCount  *int64   `json:"group_count,omitempty" gorm:"column:group_count"`

	Age             *float64 `json:"age,omitempty" gorm:"column:age"`
	Weight          *float64 `json:"weight,omitempty" gorm:"column:weight"`
	Height          *float64 `json:"height,omitempty" gorm:"column:height"`
	BMI             *float64 `json:"bmi,omitempty" gorm:"column:bmi"`
	SerumCreatinine *float64 `json:"serum_creatinine,omitempty" gorm:"column:serum_creatinine"`

	Sex                *string `json:"sex,omitempty" gorm:"column:sex"`
	Healthy            *string `json:"healthy,omitempty" gorm:"column:healthy"`
	Species            *string `json:"species,omitempty" gorm:"column:species"`
	Smoking            *string `json:"smoking,omitempty" gorm:"column:smoking"`
	Ethnicity          *string `json:"ethnicity,omitempty" gorm:"column:ethnicity"`
	Disease            *string `json:"disease,omitempty" gorm:"column:disease"`
	Medication         *string `json:"medication,omitempty" gorm:"column:medication"`
	OralContraceptives *string `json:"oral_contraceptives,omitempty" gorm:"column:oral_contraceptives"`
	OvernightFast      *string `json:"overnight_fast,omitempty" gorm:"column:overnight_fast"`
	CYP2D6Phenotype    *string `json:"cyp2d6_phenotype,omitempty" gorm:"column:cyp2d6_phenotype"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (WideGroupRow) TableName() string { return "wide_group_demographics" }

type WideIndividualRow struct {
	ID                uint   `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	StudySID          string `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_wide_indiv_subject,priority:1"`
	StudyName         string `json:"study_name" gorm:"column:study_name"`
	IndividualPK      int64  `json:"individual_pk" gorm:"column:individual_pk;uniqueIndex:idx_wide_indiv_subject,priority:2"`
	IndividualName    string `json:"individual_name" gorm:"column:individual_name"`
	IndividualGroupPK *int64 `json:"individual_group_pk,omitempty" gorm:"column:individual_group_pk"`

	Age             *float64 `json:"age,omitempty" gorm:"column:age"`
	Weight          *float64 `json:"weight,omitempty" gorm:"column:weight"`
	Height          *float64 `json:"height,omitempty" gorm:"column:height"`
	BMI             *float64 `json:"bmi,omitempty" gorm:"column:bmi"`
	SerumCreatinine *float64 `json:"serum_creatinine,omitempty" gorm:"column:serum_creatinine"`

	Sex                *string `json:"sex,omitempty" gorm:"column:sex"`
	Healthy            *string `json:"healthy,omitempty" gorm:"column:healthy"`
	Species            *string `json:"species,omitempty" gorm:"column:species"`
	Smoking            *string `json:"smoking,omitempty" gorm:"column:smoking"`
	Ethnicity          *string `json:"ethnicity,omitempty" gorm:"column:ethnicity"`
	Disease            *string `json:"disease,omitempty" gorm:"column:disease"`
	Medication         *string `json:"medication,omitempty" gorm:"column:medication"`
	OralContraceptives *string `json:"oral_contraceptives,omitempty" gorm:"column:oral_contraceptives"`
	OvernightFast      *string `json:"overnight_fast,omitempty" gorm:"column:overnight_fast"`
	CYP2D6Phenotype    *string `json:"cyp2d6_phenotype,omitempty" gorm:"column:cyp2d6_phenotype"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (WideIndividualRow) TableName() string { return "wide_individual_demographics" }

// DerivedCovariateRow extends one wide row with the computed clinical
// features. Replaced wholesale on re-run, never patched in place.
type DerivedCovariateRow struct {
	ID          uint   `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	Level       string `json:"level" gorm:"column:level;uniqueIndex:idx_derived_subject,priority:1"`
	StudySID    string `json:"study_sid" gorm:"column:study_sid;uniqueIndex:idx_derived_subject,priority:2"`
	StudyName   string `json:"study_name" gorm:"column:study_name"`
	SubjectPK   int64  `json:"subject_pk" gorm:"column:subject_pk;uniqueIndex:idx_derived_subject,priority:3"`
	SubjectName string `json:"subject_name" gorm:"column:subject_name"`

	Age    *float64 `json:"age,omitempty" gorm:"column:age"`
	Weight *float64 `json:"weight,omitempty" gorm:"column:weight"`
	Height *float64 `json:"height,omitempty" gorm:"column:height"`
	Sex    *string  `json:"sex,omitempty" gorm:"column:sex"`

	BSA     *float64 `json:"bsa,omitempty" gorm:"column:bsa"`
	EstCrCl *float64 `json:"est_crcl,omitempty" gorm:"column:est_crcl"`
	IBW     *float64 `json:"ibw,omitempty" gorm:"column:ibw"`
	BMI     *float64 `json:"bmi,omitempty" gorm:"column:bmi"`

	IsSmoker  *bool `json:"is_smoker,omitempty" gorm:"column:is_smoker"`
	IsFemale  *bool `json:"is_female,omitempty" gorm:"column:is_female"`
	IsHealthy *bool `json:"is_healthy,omitempty" gorm:"column:is_healthy"`
	OnOC      *bool `json:"on_oc,omitempty" gorm:"column:on_oc"`

	AgeCategory string `json:"age_category,omitempty" gorm:"column:age_category"`
	BMICategory string `json:"bmi_category,omitempty" gorm:"column:bmi_category"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (DerivedCovariateRow) TableName() string { return "derived_covariates" }

func groupRowFromWide(w pivot.WideRow) WideGroupRow {
	return WideGroupRow{
		StudySID:           w.StudySID,
		StudyName:          w.StudyName,
		GroupPK:            w.SubjectPK,
		GroupName:          w.SubjectName,
		GroupCount:         w.GroupCount,
		Age:                w.Age,
		Weight:             w.Weight,
		Height:             w.Height,
		BMI:                w.BMI,
		SerumCreatinine:    w.SerumCreatinine,
		Sex:                w.Sex,
		Healthy:            w.Healthy,
		Species:            w.Species,
		Smoking:            w.Smoking,
		Ethnicity:          w.Ethnicity,
		Disease:            w.Disease,
		Medication:         w.Medication,
		OralContraceptives: w.OralContraceptives,
		OvernightFast:      w.OvernightFast,
		CYP2D6Phenotype:    w.CYP2D6Phenotype,
	}
}

func individualRowFromWide(w pivot.WideRow) WideIndividualRow {
	return WideIndividualRow{
		StudySID:           w.StudySID,
		StudyName:          w.StudyName,
		IndividualPK:       w.SubjectPK,
		IndividualName:     w.SubjectName,
		IndividualGroupPK:  w.GroupPK,
		Age:                w.Age,
		Weight:             w.Weight,
		Height:             w.Height,
		BMI:                w.BMI,
		SerumCreatinine:    w.SerumCreatinine,
		Sex:                w.Sex,
		Healthy:            w.Healthy,
		Species:            w.Species,
		Smoking:            w.Smoking,
		Ethnicity:          w.Ethnicity,
		Disease:            w.Disease,
		Medication:         w.Medication,
		OralContraceptives: w.OralContraceptives,
		OvernightFast:      w.OvernightFast,
		CYP2D6Phenotype:    w.CYP2D6Phenotype,
	}
}

func derivedRowFromCovariates(r covariates.Row) DerivedCovariateRow {
	return DerivedCovariateRow{
		Level:       r.Level,
		StudySID:    r.StudySID,
		StudyName:   r.StudyName,
		SubjectPK:   r.SubjectPK,
		SubjectName: r.SubjectName,
		Age:         r.Age,
		Weight:      r.Weight,
		Height:      r.Height,
		Sex:         r.Sex,
		BSA:         r.BSA,
		EstCrCl:     r.EstCrCl,
		IBW:         r.IBW,
		BMI:         r.BMI,
		IsSmoker:    r.IsSmoker,
		IsFemale:    r.IsFemale,
		IsHealthy:   r.IsHealthy,
		OnOC:        r.OnOC,
		AgeCategory: r.AgeCategory,
		BMICategory: r.BMICategory,
	}
}
