package pivot

import (
	"testing"

	"github.com/pharmkit-ai/platform/pkg/catalog"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func measurement(subject int64, attr, calc string, numeric *float64, choice *string) Measurement {
	return Measurement{
		StudySID:        "PKDB00198",
		StudyName:       "Blanchard1983",
		SubjectPK:       subject,
		SubjectName:     "all",
		AttributeType:   attr,
		CalculationType: calc,
		Numeric:         numeric,
		Choice:          choice,
	}
}

func TestCollapseOneRowPerSubject(t *testing.T) {
	agg := NewAggregator(catalog.Default())

	rows := agg.Collapse(models.LevelGroup, []Measurement{
		measurement(2, "age", normalizer.CalcMean, fp(31), nil),
		measurement(1, "age", normalizer.CalcMean, fp(28), nil),
		measurement(1, "weight", normalizer.CalcMean, fp(70), nil),
		measurement(1, "sex", normalizer.CalcChoice, nil, sp("M")),
		measurement(2, "smoking", normalizer.CalcChoice, nil, sp("yes")),
	})

	if len(rows) != 2 {
		t.Fatalf("expected 2 wide rows, got %d", len(rows))
	}
	// deterministic subject order
	if rows[0].SubjectPK != 1 || rows[1].SubjectPK != 2 {
		t.Fatalf("expected rows sorted by subject pk, got %d, %d", rows[0].SubjectPK, rows[1].SubjectPK)
	}
	if rows[0].Age == nil || *rows[0].Age != 28 {
		t.Fatalf("expected age 28 for subject 1, got %v", rows[0].Age)
	}
	if rows[0].Sex == nil || *rows[0].Sex != "M" {
		t.Fatalf("expected sex M for subject 1, got %v", rows[0].Sex)
	}
	// absent attribute stays unknown, never zero
	if rows[1].Weight != nil {
		t.Fatalf("expected unknown weight for subject 2, got %v", *rows[1].Weight)
	}
	if rows[1].Smoking == nil || *rows[1].Smoking != "yes" {
		t.Fatalf("expected smoking yes for subject 2, got %v", rows[1].Smoking)
	}
}

func TestCollapsePrecedenceSelectsMeanOverMedian(t *testing.T) {
	agg := NewAggregator(catalog.Default())

	// median first, mean second: mean must still win
	rows := agg.Collapse(models.LevelGroup, []Measurement{
		measurement(1, "weight", normalizer.CalcMedian, fp(68), nil),
		measurement(1, "weight", normalizer.CalcMean, fp(71), nil),
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Weight == nil || *rows[0].Weight != 71 {
		t.Fatalf("expected mean 71 preferred over median, got %v", rows[0].Weight)
	}
}

func TestCollapsePrecedenceValueBeatsMean(t *testing.T) {
	agg := NewAggregator(catalog.Default())

	rows := agg.Collapse(models.LevelIndividual, []Measurement{
		measurement(1, "age", normalizer.CalcMean, fp(30), nil),
		measurement(1, "age", normalizer.CalcValue, fp(34), nil),
	})
	if rows[0].Age == nil || *rows[0].Age != 34 {
		t.Fatalf("expected point value 34 preferred, got %v", rows[0].Age)
	}
}

func TestCollapseFirstSeenWinsOnEqualRank(t *testing.T) {
	agg := NewAggregator(catalog.Default())

	rows := agg.Collapse(models.LevelGroup, []Measurement{
		measurement(1, "age", normalizer.CalcMean, fp(25), nil),
		measurement(1, "age", normalizer.CalcMean, fp(99), nil),
	})
	if rows[0].Age == nil || *rows[0].Age != 25 {
		t.Fatalf("expected first-seen mean 25 to win, got %v", rows[0].Age)
	}
}

func TestCollapseSkipsUnknownAttributeTypes(t *testing.T) {
	agg := NewAggregator(catalog.Default())

	rows := agg.Collapse(models.LevelGroup, []Measurement{
		measurement(1, "blood pressure variability", normalizer.CalcMean, fp(12), nil),
		measurement(1, "age", normalizer.CalcMean, fp(40), nil),
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Age == nil || *rows[0].Age != 40 {
		t.Fatalf("expected known attribute projected, got %v", rows[0].Age)
	}
}

func TestFromGroupRecordsSelectsByCalculationType(t *testing.T) {
	count := int64(12)
	recs := []normalizer.GroupMeasurementRecord{
		{
			StudySID:        "PKDB00198",
			GroupPK:         9,
			GroupName:       "controls",
			GroupCount:      &count,
			MeasurementType: "weight",
			CalculationType: normalizer.CalcMean,
			Mean:            fp(70.5),
			Median:          fp(69.0),
		},
	}
	ms := FromGroupRecords(recs)
	if len(ms) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(ms))
	}
	if ms[0].Numeric == nil || *ms[0].Numeric != 70.5 {
		t.Fatalf("expected mean selected, got %v", ms[0].Numeric)
	}
	if ms[0].GroupCount == nil || *ms[0].GroupCount != 12 {
		t.Fatalf("expected group count carried, got %v", ms[0].GroupCount)
	}
}
