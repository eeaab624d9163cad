package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NumericAttribute describes one numeric measurement type: the wide-row
// column it projects into, its canonical metric unit, and multipliers for
// converting known source units into that canonical unit.
type NumericAttribute struct {
	Column      string             `yaml:"column" json:"column"`
	Unit        string             `yaml:"unit" json:"unit"`
	Conversions map[string]float64 `yaml:"conversions,omitempty" json:"conversions,omitempty"`
}

// CategoricalAttribute describes one choice-valued measurement type.
type CategoricalAttribute struct {
	Column string `yaml:"column" json:"column"`
}

// Catalog is the explicit table of known attribute types. The normalizer
// uses it for unit conversion, the pivot aggregator folds over it.
type Catalog struct {
	Numeric     map[string]NumericAttribute     `yaml:"numeric" json:"numeric"`
	Categorical map[string]CategoricalAttribute `yaml:"categorical" json:"categorical"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Default(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Numeric) == 0 && len(cat.Categorical) == 0 {
		return Catalog{}, fmt.Errorf("attribute catalog empty")
	}
	return cat, nil
}

func (c Catalog) LookupNumeric(measurementType string) (NumericAttribute, bool) {
	attr, ok := c.Numeric[normalizeKey(measurementType)]
	return attr, ok
}

func (c Catalog) LookupCategorical(measurementType string) (CategoricalAttribute, bool) {
	attr, ok := c.Categorical[normalizeKey(measurementType)]
	return attr, ok
}

// Known reports whether the measurement type appears in either table.
func (c Catalog) Known(measurementType string) bool {
	key := normalizeKey(measurementType)
	if _, ok := c.Numeric[key]; ok {
		return true
	}
	_, ok := c.Categorical[key]
	return ok
}

// Convert maps a numeric value in the given source unit into the attribute's
// canonical unit. The second return reports whether the unit was understood.
func (a NumericAttribute) Convert(value float64, unit string) (float64, bool) {
	u := normalizeKey(unit)
	if u == "" || u == normalizeKey(a.Unit) {
		return value, true
	}
	if factor, ok := a.Conversions[u]; ok {
		return value * factor, true
	}
	return value, false
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Default returns the compiled-in attribute table covering the measurement
// types observed in the clinical source.
func Default() Catalog {
	return Catalog{
		Numeric: map[string]NumericAttribute{
			"age": {
				Column: "age",
				Unit:   "yr",
				Conversions: map[string]float64{
					"year":  1,
					"years": 1,
					"month": 1.0 / 12.0,
					"week":  1.0 / 52.1775,
				},
			},
			"weight": {
				Column: "weight",
				Unit:   "kg",
				Conversions: map[string]float64{
					"g":  0.001,
					"lb": 0.45359237,
				},
			},
			"height": {
				Column: "height",
				Unit:   "cm",
				Conversions: map[string]float64{
					"m":  100,
					"mm": 0.1,
					"in": 2.54,
				},
			},
			"bmi": {
				Column: "bmi",
				Unit:   "kg/m^2",
			},
			"serum creatinine": {
				Column: "serum_creatinine",
				Unit:   "mg/dl",
				Conversions: map[string]float64{
					// SI convention seen in some studies
					"µmol/l": 1.0 / 88.42,
					"umol/l": 1.0 / 88.42,
				},
			},
		},
		Categorical: map[string]CategoricalAttribute{
			"sex":                 {Column: "sex"},
			"healthy":             {Column: "healthy"},
			"species":             {Column: "species"},
			"smoking":             {Column: "smoking"},
			"ethnicity":           {Column: "ethnicity"},
			"disease":             {Column: "disease"},
			"medication":          {Column: "medication"},
			"oral contraceptives": {Column: "oral_contraceptives"},
			"overnight fast":      {Column: "overnight_fast"},
			"cyp2d6 phenotype":    {Column: "cyp2d6_phenotype"},
		},
	}
}
