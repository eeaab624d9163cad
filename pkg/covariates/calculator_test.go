package covariates

import (
	"math"
	"testing"

	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/pivot"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func wideRow() pivot.WideRow {
	return pivot.WideRow{
		StudySID:  "PKDB00198",
		Level:     models.LevelGroup,
		SubjectPK: 1,
	}
}

func TestBSADuBois(t *testing.T) {
	got := BSADuBois(75, 180)
	if math.Abs(got-1.9423) > 0.01 {
		t.Fatalf("expected BSA ~1.94 m2 for 180cm/75kg, got %.4f", got)
	}
}

func TestCockcroftGault(t *testing.T) {
	got := CockcroftGault(50, 70, 1.0, false)
	if math.Abs(got-87.5) > 0.001 {
		t.Fatalf("expected CrCl 87.5 mL/min, got %.4f", got)
	}
	female := CockcroftGault(50, 70, 1.0, true)
	if math.Abs(female-87.5*0.85) > 0.001 {
		t.Fatalf("expected female correction 0.85, got %.4f", female)
	}
}

func TestDevineIBW(t *testing.T) {
	// 170 cm female: 45.5 + 2.3 * (170/2.54 - 60)
	want := 45.5 + 2.3*(170/2.54-60)
	got := DevineIBW(170, true)
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("expected IBW %.3f, got %.3f", want, got)
	}

	got = DevineIBW(180, false)
	want = 50 + 2.3*(180/2.54-60)
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("expected IBW %.3f, got %.3f", want, got)
	}

	// at or below 60 inches the base weight applies
	if got := DevineIBW(152.4, false); got != 50 {
		t.Fatalf("expected base IBW 50 at 152.4 cm, got %.3f", got)
	}
	if got := DevineIBW(140, true); got != 45.5 {
		t.Fatalf("expected base IBW 45.5 below 152.4 cm, got %.3f", got)
	}
}

func TestComputeBMI(t *testing.T) {
	calc := NewCalculator(DefaultEncodings())

	w := wideRow()
	w.Weight = fp(70)
	w.Height = fp(175)
	row := calc.Compute(w)
	if row.BMI == nil || math.Abs(*row.BMI-22.857) > 0.01 {
		t.Fatalf("expected BMI ~22.86, got %v", row.BMI)
	}
	if row.BMICategory != BMINormal {
		t.Fatalf("expected normal BMI category, got %q", row.BMICategory)
	}

	// a source-reported BMI is authoritative
	w.BMI = fp(31.2)
	row = calc.Compute(w)
	if row.BMI == nil || *row.BMI != 31.2 {
		t.Fatalf("expected source BMI preserved, got %v", row.BMI)
	}
	if row.BMICategory != BMIObese {
		t.Fatalf("expected obese category, got %q", row.BMICategory)
	}
}

func TestComputeCrClRequiresSerumCreatinine(t *testing.T) {
	calc := NewCalculator(DefaultEncodings())

	w := wideRow()
	w.Age = fp(50)
	w.Weight = fp(70)
	w.Sex = sp("M")
	row := calc.Compute(w)
	if row.EstCrCl != nil {
		t.Fatalf("expected unknown CrCl without measured creatinine, got %v", *row.EstCrCl)
	}

	w.SerumCreatinine = fp(1.0)
	row = calc.Compute(w)
	if row.EstCrCl == nil || math.Abs(*row.EstCrCl-87.5) > 0.001 {
		t.Fatalf("expected CrCl 87.5, got %v", row.EstCrCl)
	}
}

func TestComputePartialInputKeepsRow(t *testing.T) {
	calc := NewCalculator(DefaultEncodings())

	// weight missing: BSA/CrCl/BMI unknown, flags still populated
	w := wideRow()
	w.Age = fp(40)
	w.Height = fp(168)
	w.Sex = sp("female")
	w.Smoking = sp("no")
	w.SerumCreatinine = fp(0.9)

	row := calc.Compute(w)
	if row.BSA != nil || row.EstCrCl != nil || row.BMI != nil {
		t.Fatal("expected weight-dependent covariates to stay unknown")
	}
	if row.IsFemale == nil || !*row.IsFemale {
		t.Fatalf("expected is_female true, got %v", row.IsFemale)
	}
	if row.IsSmoker == nil || *row.IsSmoker {
		t.Fatalf("expected is_smoker false, got %v", row.IsSmoker)
	}
	if row.IBW == nil {
		t.Fatal("expected IBW from height+sex alone")
	}
	if row.AgeCategory != AgeMiddleAged {
		t.Fatalf("expected middle_aged, got %q", row.AgeCategory)
	}
}

func TestComputeFlagsUnknownWhenAttributeAbsent(t *testing.T) {
	calc := NewCalculator(DefaultEncodings())

	row := calc.Compute(wideRow())
	if row.IsSmoker != nil || row.IsFemale != nil || row.OnOC != nil || row.IsHealthy != nil {
		t.Fatal("expected flags to stay unknown, not false, when attributes are absent")
	}
	if row.AgeCategory != "" {
		t.Fatalf("expected unknown age category, got %q", row.AgeCategory)
	}
}

func TestAgeCategoryBoundaries(t *testing.T) {
	cases := []struct {
		age  float64
		want string
	}{
		{5, AgePediatric},
		{17.9, AgePediatric},
		{18, AgeYoungAdult},
		{34, AgeYoungAdult},
		{35, AgeMiddleAged},
		{64, AgeMiddleAged},
		{65, AgeElderly},
		{80, AgeElderly},
	}
	for _, tc := range cases {
		if got := AgeCategory(tc.age); got != tc.want {
			t.Fatalf("age %.1f: expected %q, got %q", tc.age, tc.want, got)
		}
	}
}

func TestBMICategoryBoundaries(t *testing.T) {
	cases := []struct {
		bmi  float64
		want string
	}{
		{17, BMIUnderweight},
		{18.5, BMINormal},
		{24.9, BMINormal},
		{25, BMIOverweight},
		{30, BMIObese},
	}
	for _, tc := range cases {
		if got := BMICategory(tc.bmi); got != tc.want {
			t.Fatalf("bmi %.1f: expected %q, got %q", tc.bmi, tc.want, got)
		}
	}
}
