package pivot

import (
	"sort"

	"github.com/pharmkit-ai/platform/pkg/catalog"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
)

// Measurement is the level-agnostic long-format view the aggregator folds
// over. One instance per canonical measurement row.
type Measurement struct {
	StudySID        string
	StudyName       string
	SubjectPK       int64
	SubjectName     string
	GroupPK         *int64 // parent group, individual level only
	GroupCount      *int64 // subject count, group level only
	AttributeType   string
	CalculationType string
	Numeric         *float64
	Choice          *string
}

// WideRow is one pivoted row per (study, subject). Nil fields mean the
// attribute was never observed; they are never defaulted to zero or "".
type WideRow struct {
	StudySID    string  `json:"study_sid"`
	StudyName   string  `json:"study_name"`
	Level       string  `json:"level"`
	SubjectPK   int64   `json:"subject_pk"`
	SubjectName string  `json:"subject_name"`
	GroupPK     *int64  `json:"group_pk,omitempty"`
	GroupCount  *int64  `json:"group_count,omitempty"`

	Age             *float64 `json:"age,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Height          *float64 `json:"height,omitempty"`
	BMI             *float64 `json:"bmi,omitempty"`
	SerumCreatinine *float64 `json:"serum_creatinine,omitempty"`

	Sex                *string `json:"sex,omitempty"`
	Healthy            *string `json:"healthy,omitempty"`
	Species            *string `json:"species,omitempty"`
	Smoking            *string `json:"smoking,omitempty"`
	Ethnicity          *string `json:"ethnicity,omitempty"`
	Disease            *string `json:"disease,omitempty"`
	Medication         *string `json:"medication,omitempty"`
	OralContraceptives *string `json:"oral_contraceptives,omitempty"`
	OvernightFast      *string `json:"overnight_fast,omitempty"`
	CYP2D6Phenotype    *string `json:"cyp2d6_phenotype,omitempty"`
}

// Aggregator collapses long-format measurements into wide demographic rows
// using a fixed calculation-type precedence.
type Aggregator struct {
	catalog catalog.Catalog
}

func NewAggregator(cat catalog.Catalog) *Aggregator {
	return &Aggregator{catalog: cat}
}

// calculation-type precedence: explicit point value > mean > median.
// First-seen wins within the same rank.
var calcRank = map[string]int{
	normalizer.CalcValue:  3,
	normalizer.CalcMean:   2,
	normalizer.CalcMedian: 1,
	normalizer.CalcChoice: 1,
}

type cell struct {
	rank    int
	numeric *float64
	choice  *string
}

type subjectState struct {
	row   *WideRow
	cells map[string]cell // keyed by attribute type
}

// Collapse produces exactly one WideRow per distinct subject observed in the
// input. Unknown attribute types are skipped; the enumerated catalog decides
// which column a value lands in.
func (a *Aggregator) Collapse(level string, records []Measurement) []WideRow {
	subjects := make(map[int64]*subjectState)
	order := make([]int64, 0)

	for _, m := range records {
		state, ok := subjects[m.SubjectPK]
		if !ok {
			state = &subjectState{
				row: &WideRow{
					StudySID:    m.StudySID,
					StudyName:   m.StudyName,
					Level:       level,
					SubjectPK:   m.SubjectPK,
					SubjectName: m.SubjectName,
					GroupPK:     m.GroupPK,
					GroupCount:  m.GroupCount,
				},
				cells: make(map[string]cell),
			}
			subjects[m.SubjectPK] = state
			order = append(order, m.SubjectPK)
		}
		if state.row.GroupPK == nil && m.GroupPK != nil {
			state.row.GroupPK = m.GroupPK
		}
		if state.row.GroupCount == nil && m.GroupCount != nil {
			state.row.GroupCount = m.GroupCount
		}

		if !a.catalog.Known(m.AttributeType) {
			continue
		}

		rank := calcRank[m.CalculationType]
		if rank == 0 {
			continue
		}
		existing, seen := state.cells[m.AttributeType]
		// first-seen wins unless a higher-precedence calculation arrives
		if seen && rank <= existing.rank {
			continue
		}
		state.cells[m.AttributeType] = cell{rank: rank, numeric: m.Numeric, choice: m.Choice}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	rows := make([]WideRow, 0, len(order))
	for _, pk := range order {
		state := subjects[pk]
		a.project(state)
		rows = append(rows, *state.row)
	}
	return rows
}

// project assigns each selected cell into its named column. Explicit fold
// over the enumerated attribute set rather than reflective field access.
func (a *Aggregator) project(state *subjectState) {
	for attr, c := range state.cells {
		if numAttr, ok := a.catalog.LookupNumeric(attr); ok {
			if c.numeric == nil {
				continue
			}
			switch numAttr.Column {
			case "age":
				state.row.Age = c.numeric
			case "weight":
				state.row.Weight = c.numeric
			case "height":
				state.row.Height = c.numeric
			case "bmi":
				state.row.BMI = c.numeric
			case "serum_creatinine":
				state.row.SerumCreatinine = c.numeric
			}
			continue
		}
		catAttr, ok := a.catalog.LookupCategorical(attr)
		if !ok || c.choice == nil {
			continue
		}
		switch catAttr.Column {
		case "sex":
			state.row.Sex = c.choice
		case "healthy":
			state.row.Healthy = c.choice
		case "species":
			state.row.Species = c.choice
		case "smoking":
			state.row.Smoking = c.choice
		case "ethnicity":
			state.row.Ethnicity = c.choice
		case "disease":
			state.row.Disease = c.choice
		case "medication":
			state.row.Medication = c.choice
		case "oral_contraceptives":
			state.row.OralContraceptives = c.choice
		case "overnight_fast":
			state.row.OvernightFast = c.choice
		case "cyp2d6_phenotype":
			state.row.CYP2D6Phenotype = c.choice
		}
	}
}

// FromGroupRecords adapts canonical group measurement rows into the
// aggregator's input form. The selected numeric follows the record's own
// calculation type.
func FromGroupRecords(records []normalizer.GroupMeasurementRecord) []Measurement {
	out := make([]Measurement, 0, len(records))
	for _, rec := range records {
		out = append(out, Measurement{
			StudySID:        rec.StudySID,
			StudyName:       rec.StudyName,
			SubjectPK:       rec.GroupPK,
			SubjectName:     rec.GroupName,
			GroupCount:      rec.GroupCount,
			AttributeType:   rec.MeasurementType,
			CalculationType: rec.CalculationType,
			Numeric:         selectNumeric(rec.CalculationType, rec.Value, rec.Mean, rec.Median),
			Choice:          rec.Choice,
		})
	}
	return out
}

func FromIndividualRecords(records []normalizer.IndividualMeasurementRecord) []Measurement {
	out := make([]Measurement, 0, len(records))
	for _, rec := range records {
		out = append(out, Measurement{
			StudySID:        rec.StudySID,
			StudyName:       rec.StudyName,
			SubjectPK:       rec.IndividualPK,
			SubjectName:     rec.IndividualName,
			GroupPK:         rec.IndividualGroupPK,
			AttributeType:   rec.MeasurementType,
			CalculationType: rec.CalculationType,
			Numeric:         selectNumeric(rec.CalculationType, rec.Value, rec.Mean, rec.Median),
			Choice:          rec.Choice,
		})
	}
	return out
}

func selectNumeric(calculationType string, value, mean, median *float64) *float64 {
	switch calculationType {
	case normalizer.CalcValue:
		return value
	case normalizer.CalcMean:
		return mean
	case normalizer.CalcMedian:
		return median
	}
	return nil
}
