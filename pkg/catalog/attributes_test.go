package catalog

import "testing"

func TestDefaultCatalogKnowsCoreAttributes(t *testing.T) {
	cat := Default()

	for _, mt := range []string{"age", "weight", "height", "bmi", "serum creatinine"} {
		if _, ok := cat.LookupNumeric(mt); !ok {
			t.Fatalf("expected numeric attribute %q in default catalog", mt)
		}
	}
	for _, mt := range []string{"sex", "smoking", "oral contraceptives"} {
		if _, ok := cat.LookupCategorical(mt); !ok {
			t.Fatalf("expected categorical attribute %q in default catalog", mt)
		}
	}
	if cat.Known("dosing") {
		t.Fatal("dosing must not be a demographic attribute")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	cat := Default()
	if _, ok := cat.LookupNumeric(" Weight "); !ok {
		t.Fatal("expected lookup to trim and lowercase the key")
	}
}

func TestConvertUnits(t *testing.T) {
	cat := Default()

	weight, _ := cat.LookupNumeric("weight")
	got, ok := weight.Convert(70500, "g")
	if !ok || got < 70.4 || got > 70.6 {
		t.Fatalf("expected 70500 g -> ~70.5 kg, got %v (ok=%v)", got, ok)
	}

	height, _ := cat.LookupNumeric("height")
	got, ok = height.Convert(1.8, "m")
	if !ok || got != 180 {
		t.Fatalf("expected 1.8 m -> 180 cm, got %v (ok=%v)", got, ok)
	}

	// Canonical unit passes through unchanged.
	got, ok = height.Convert(172, "cm")
	if !ok || got != 172 {
		t.Fatalf("expected canonical unit passthrough, got %v (ok=%v)", got, ok)
	}

	// Unknown unit is reported, value untouched.
	got, ok = height.Convert(60, "furlong")
	if ok || got != 60 {
		t.Fatalf("expected unknown unit to be flagged, got %v (ok=%v)", got, ok)
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cat.Known("age") {
		t.Fatal("expected default catalog when no path configured")
	}
}
