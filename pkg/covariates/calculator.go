package covariates

import (
	"math"
	"strings"

	"github.com/pharmkit-ai/platform/pkg/pivot"
)

// Age bins follow clinical convention; a boundary age belongs to the higher
// bin (18 is young adult, 65 is elderly).
const (
	AgePediatric  = "pediatric"
	AgeYoungAdult = "young_adult"
	AgeMiddleAged = "middle_aged"
	AgeElderly    = "elderly"
)

// WHO BMI bins.
const (
	BMIUnderweight = "underweight"
	BMINormal      = "normal"
	BMIOverweight  = "overweight"
	BMIObese       = "obese"
)

const cmPerInch = 2.54

// Encodings is the explicit configuration of categorical matches used by the
// binary flags. Passed in rather than ambient so adding a value is a
// localized change.
type Encodings struct {
	FemaleValues  []string
	SmokerValues  []string
	HealthyValues []string
	OCValues      []string
}

func DefaultEncodings() Encodings {
	return Encodings{
		FemaleValues:  []string{"f", "female"},
		SmokerValues:  []string{"yes", "true", "smoker", "y"},
		HealthyValues: []string{"yes", "true", "y", "healthy"},
		OCValues:      []string{"yes", "true", "y"},
	}
}

// Row is one derived covariate row. Nil means the formula's precondition was
// unmet; the row is still emitted so partial subjects stay usable.
type Row struct {
	StudySID    string `json:"study_sid"`
	StudyName   string `json:"study_name"`
	Level       string `json:"level"`
	SubjectPK   int64  `json:"subject_pk"`
	SubjectName string `json:"subject_name"`

	// inputs carried through for downstream consumers
	Age    *float64 `json:"age,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Sex    *string  `json:"sex,omitempty"`

	BSA     *float64 `json:"bsa,omitempty"`
	EstCrCl *float64 `json:"est_crcl,omitempty"`
	IBW     *float64 `json:"ibw,omitempty"`
	BMI     *float64 `json:"bmi,omitempty"`

	IsSmoker  *bool `json:"is_smoker,omitempty"`
	IsFemale  *bool `json:"is_female,omitempty"`
	IsHealthy *bool `json:"is_healthy,omitempty"`
	OnOC      *bool `json:"on_oc,omitempty"`

	AgeCategory string `json:"age_category,omitempty"`
	BMICategory string `json:"bmi_category,omitempty"`
}

// Calculator computes derived clinical covariates from wide demographic
// rows. All formulas assume metric inputs; unit conversion happened in the
// normalizer.
type Calculator struct {
	encodings Encodings
}

func NewCalculator(encodings Encodings) *Calculator {
	return &Calculator{encodings: encodings}
}

// Compute derives one covariate row from one wide demographic row. A missing
// input never discards the row; only the affected fields stay unknown.
func (c *Calculator) Compute(w pivot.WideRow) Row {
	row := Row{
		StudySID:    w.StudySID,
		StudyName:   w.StudyName,
		Level:       w.Level,
		SubjectPK:   w.SubjectPK,
		SubjectName: w.SubjectName,
		Age:         w.Age,
		Weight:      w.Weight,
		Height:      w.Height,
		Sex:         w.Sex,
	}

	row.IsFemale = c.matchFlag(w.Sex, c.encodings.FemaleValues)
	row.IsSmoker = c.matchFlag(w.Smoking, c.encodings.SmokerValues)
	row.IsHealthy = c.matchFlag(w.Healthy, c.encodings.HealthyValues)
	row.OnOC = c.matchFlag(w.OralContraceptives, c.encodings.OCValues)

	// BMI: source value wins; compute only where missing
	row.BMI = w.BMI
	if row.BMI == nil && w.Height != nil && w.Weight != nil && *w.Height > 0 {
		heightM := *w.Height / 100
		bmi := *w.Weight / (heightM * heightM)
		row.BMI = &bmi
	}

	if w.Height != nil && w.Weight != nil && *w.Height > 0 && *w.Weight > 0 {
		bsa := BSADuBois(*w.Weight, *w.Height)
		row.BSA = &bsa
	}

	if w.Age != nil && w.Weight != nil && row.IsFemale != nil && w.SerumCreatinine != nil && *w.SerumCreatinine > 0 {
		crcl := CockcroftGault(*w.Age, *w.Weight, *w.SerumCreatinine, *row.IsFemale)
		row.EstCrCl = &crcl
	}

	if w.Height != nil && row.IsFemale != nil {
		ibw := DevineIBW(*w.Height, *row.IsFemale)
		row.IBW = &ibw
	}

	if w.Age != nil {
		row.AgeCategory = AgeCategory(*w.Age)
	}
	if row.BMI != nil {
		row.BMICategory = BMICategory(*row.BMI)
	}

	return row
}

func (c *Calculator) matchFlag(choice *string, positive []string) *bool {
	if choice == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(*choice))
	for _, p := range positive {
		if value == p {
			flag := true
			return &flag
		}
	}
	flag := false
	return &flag
}

// BSADuBois computes body surface area in m².
// BSA = 0.007184 × height^0.725 × weight^0.425
func BSADuBois(weightKg, heightCm float64) float64 {
	return 0.007184 * math.Pow(heightCm, 0.725) * math.Pow(weightKg, 0.425)
}

// CockcroftGault estimates creatinine clearance in mL/min from a measured
// serum creatinine (mg/dL). No population-mean imputation: callers must hold
// a real creatinine value.
func CockcroftGault(ageYears, weightKg, serumCreatinine float64, female bool) float64 {
	crcl := ((140 - ageYears) * weightKg) / (72 * serumCreatinine)
	if female {
		crcl *= 0.85
	}
	return crcl
}

// DevineIBW computes ideal body weight in kg. The formula is defined in
// inches; heights at or below 60 in (152.4 cm) clamp to the base weight.
func DevineIBW(heightCm float64, female bool) float64 {
	base := 50.0
	if female {
		base = 45.5
	}
	if heightCm <= 152.4 {
		return base
	}
	heightIn := heightCm / cmPerInch
	return base + 2.3*(heightIn-60)
}

// AgeCategory assigns the clinical age bin. Boundary ages go to the higher
// bin.
func AgeCategory(age float64) string {
	switch {
	case age < 18:
		return AgePediatric
	case age < 35:
		return AgeYoungAdult
	case age < 65:
		return AgeMiddleAged
	default:
		return AgeElderly
	}
}

// BMICategory assigns the WHO bin.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}
