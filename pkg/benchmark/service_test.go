package benchmark

import "testing"

func TestTransformFixedSchema(t *testing.T) {
	rec, err := Transform(map[string]interface{}{
		"Drug_ID": "Terbinafine",
		"Drug":    "CC(C)(C)C#CC=CCN(C)Cc1cccc2ccccc12",
		"Y":       110.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DrugID != "Terbinafine" {
		t.Fatalf("expected drug id preserved, got %q", rec.DrugID)
	}
	if rec.SMILES == "" {
		t.Fatal("expected SMILES mapped from Drug column")
	}
	if rec.DrugName != "Terbinafine" {
		t.Fatalf("expected name fallback to drug id, got %q", rec.DrugName)
	}
	if rec.Y != 110.0 {
		t.Fatalf("expected target 110.0, got %v", rec.Y)
	}
}

func TestTransformParsesStringTarget(t *testing.T) {
	rec, err := Transform(map[string]interface{}{
		"Drug_ID": "Caffeine",
		"Drug":    "Cn1cnc2c1c(=O)n(C)c(=O)n2C",
		"Y":       "4.9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Y != 4.9 {
		t.Fatalf("expected parsed target 4.9, got %v", rec.Y)
	}
}

func TestTransformRejectsMissingKeys(t *testing.T) {
	cases := []map[string]interface{}{
		{"Drug": "CCO", "Y": 1.0},             // no drug id
		{"Drug_ID": "Ethanol", "Y": 1.0},      // no SMILES
		{"Drug_ID": "Ethanol", "Drug": "CCO"}, // no target
	}
	for i, fields := range cases {
		if _, err := Transform(fields); !IsValidationError(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}
