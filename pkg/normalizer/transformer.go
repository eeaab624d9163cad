package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pharmkit-ai/platform/pkg/catalog"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"gorm.io/datatypes"
)

var (
	errMissingStudy        = errors.New("study identifier missing")
	errMissingSubject      = errors.New("subject identity missing")
	errMissingAttribute    = errors.New("attribute type missing")
	errNoAuthoritative     = errors.New("record carries no value, mean, median or choice")
	errMissingSubstance    = errors.New("substance missing")
	errMissingIntervention = errors.New("intervention identity missing")
)

// ValidationError marks a raw record that must be dropped and logged rather
// than coerced into the canonical tables.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string { return e.reason.Error() }

func (e ValidationError) Unwrap() error { return e.reason }

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Transformer maps raw attribute-keyed records into canonical entities.
type Transformer struct {
	catalog catalog.Catalog
}

func NewTransformer(cat catalog.Catalog) *Transformer {
	return &Transformer{catalog: cat}
}

func (t *Transformer) TransformStudy(fields map[string]interface{}) (*StudyRecord, error) {
	sid := getString(fields["sid"])
	if sid == "" {
		sid = getString(fields["study_sid"])
	}
	if sid == "" {
		return nil, ValidationError{reason: errMissingStudy}
	}

	substances := datatypes.JSON([]byte("[]"))
	if raw := getStringSlice(fields["substances"]); len(raw) > 0 {
		encoded := make([]string, 0, len(raw))
		for _, s := range raw {
			encoded = append(encoded, strconv.Quote(s))
		}
		substances = datatypes.JSON([]byte("[" + strings.Join(encoded, ",") + "]"))
	}

	return &StudyRecord{
		SID:        sid,
		Name:       getString(fields["name"]),
		Licence:    getString(fields["licence"]),
		Substances: substances,
		Reference:  getString(fields["reference"]),
	}, nil
}

func (t *Transformer) TransformGroupMeasurement(fields map[string]interface{}) (*GroupMeasurementRecord, error) {
	studySID := getString(fields["study_sid"])
	if studySID == "" {
		return nil, ValidationError{reason: errMissingStudy}
	}
	groupPK, ok := getInt64(fields["group_pk"])
	if !ok {
		return nil, ValidationError{reason: errMissingSubject}
	}
	measurementType := strings.ToLower(getString(fields["measurement_type"]))
	if measurementType == "" {
		return nil, ValidationError{reason: errMissingAttribute}
	}

	rec := &GroupMeasurementRecord{
		StudySID:        studySID,
		StudyName:       getString(fields["study_name"]),
		GroupPK:         groupPK,
		GroupName:       getString(fields["group_name"]),
		MeasurementType: measurementType,
		Choice:          getOptionalString(fields["choice"]),
		Value:           getOptionalFloat(fields["value"]),
		Mean:            getOptionalFloat(fields["mean"]),
		Median:          getOptionalFloat(fields["median"]),
		SD:              getOptionalFloat(fields["sd"]),
		SE:              getOptionalFloat(fields["se"]),
		CV:              getOptionalFloat(fields["cv"]),
		Unit:            getString(fields["unit"]),
	}
	if count, ok := getInt64(fields["group_count"]); ok {
		rec.GroupCount = &count
	}

	calc, err := deriveCalculationType(rec.Value, rec.Mean, rec.Median, rec.Choice)
	if err != nil {
		return nil, err
	}
	rec.CalculationType = calc

	t.convertUnits(measurementType, rec.Unit, func(canonicalUnit string) {
		rec.Unit = canonicalUnit
	}, rec.Value, rec.Mean, rec.Median, rec.SD, rec.SE)

	return rec, nil
}

func (t *Transformer) TransformIndividualMeasurement(fields map[string]interface{}) (*IndividualMeasurementRecord, error) {
	studySID := getString(fields["study_sid"])
	if studySID == "" {
		return nil, ValidationError{reason: errMissingStudy}
	}
	individualPK, ok := getInt64(fields["individual_pk"])
	if !ok {
		return nil, ValidationError{reason: errMissingSubject}
	}
	measurementType := strings.ToLower(getString(fields["measurement_type"]))
	if measurementType == "" {
		return nil, ValidationError{reason: errMissingAttribute}
	}

	rec := &IndividualMeasurementRecord{
		StudySID:        studySID,
		StudyName:       getString(fields["study_name"]),
		IndividualPK:    individualPK,
		IndividualName:  getString(fields["individual_name"]),
		MeasurementType: measurementType,
		Choice:          getOptionalString(fields["choice"]),
		Value:           getOptionalFloat(fields["value"]),
		Mean:            getOptionalFloat(fields["mean"]),
		Median:          getOptionalFloat(fields["median"]),
		Unit:            getString(fields["unit"]),
	}
	if groupPK, ok := getInt64(fields["individual_group_pk"]); ok {
		rec.IndividualGroupPK = &groupPK
	}

	calc, err := deriveCalculationType(rec.Value, rec.Mean, rec.Median, rec.Choice)
	if err != nil {
		return nil, err
	}
	rec.CalculationType = calc

	t.convertUnits(measurementType, rec.Unit, func(canonicalUnit string) {
		rec.Unit = canonicalUnit
	}, rec.Value, rec.Mean, rec.Median)

	return rec, nil
}

func (t *Transformer) TransformIntervention(fields map[string]interface{}) (*InterventionRecord, error) {
	studySID := getString(fields["study_sid"])
	if studySID == "" {
		return nil, ValidationError{reason: errMissingStudy}
	}
	interventionPK, ok := getInt64(fields["intervention_pk"])
	if !ok {
		return nil, ValidationError{reason: errMissingIntervention}
	}
	measurementType := strings.ToLower(getString(fields["measurement_type"]))
	if measurementType == "" {
		return nil, ValidationError{reason: errMissingAttribute}
	}

	rec := &InterventionRecord{
		StudySID:        studySID,
		InterventionPK:  interventionPK,
		MeasurementType: measurementType,
		Substance:       strings.ToLower(getString(fields["substance"])),
		Route:           strings.ToLower(getString(fields["route"])),
		Form:            strings.ToLower(getString(fields["form"])),
		Application:     strings.ToLower(getString(fields["application"])),
		Time:            getOptionalFloat(fields["time"]),
		TimeUnit:        getString(fields["time_unit"]),
		Value:           getOptionalFloat(fields["value"]),
		Unit:            getString(fields["unit"]),
	}
	return rec, nil
}

func (t *Transformer) TransformSubstanceStat(fields map[string]interface{}) (*SubstanceStatRecord, error) {
	name := strings.ToLower(getString(fields["substance"]))
	if name == "" {
		name = strings.ToLower(getString(fields["name"]))
	}
	if name == "" {
		return nil, ValidationError{reason: errMissingSubstance}
	}

	rec := &SubstanceStatRecord{Substance: name}
	if v, ok := getInt64(fields["output_count"]); ok {
		rec.OutputCount = v
	}
	if v, ok := getInt64(fields["intervention_count"]); ok {
		rec.InterventionCount = v
	}
	if v, ok := getInt64(fields["study_count"]); ok {
		rec.StudyCount = v
	}
	return rec, nil
}

// convertUnits rewrites the given numeric fields into the attribute's
// canonical metric unit in place. Unknown units are kept as-is and logged so
// the record survives without fabricated values.
func (t *Transformer) convertUnits(measurementType, unit string, setUnit func(string), values ...*float64) {
	attr, ok := t.catalog.LookupNumeric(measurementType)
	if !ok {
		return
	}
	converted := true
	for _, v := range values {
		if v == nil {
			continue
		}
		out, ok := attr.Convert(*v, unit)
		if !ok {
			converted = false
			break
		}
		*v = out
	}
	if converted {
		setUnit(attr.Unit)
		return
	}
	logger.Log.WithFields(map[string]interface{}{
		"measurement_type": measurementType,
		"unit":             unit,
	}).Warn("unrecognized unit, keeping source values")
}

func deriveCalculationType(value, mean, median *float64, choice *string) (string, error) {
	switch {
	case value != nil:
		return CalcValue, nil
	case mean != nil:
		return CalcMean, nil
	case median != nil:
		return CalcMedian, nil
	case choice != nil:
		return CalcChoice, nil
	}
	return "", ValidationError{reason: errNoAuthoritative}
}

func getString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}

func getOptionalString(v interface{}) *string {
	s := getString(v)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	return &s
}

func getOptionalFloat(v interface{}) *float64 {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		return &val
	case float32:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" || strings.EqualFold(trimmed, "nan") {
			return nil
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return &f
		}
	}
	return nil
}

func getInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func getStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := getString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		trimmed := strings.Trim(strings.TrimSpace(val), "[]")
		if trimmed == "" {
			return nil
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.Trim(strings.TrimSpace(p), `'" `); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
