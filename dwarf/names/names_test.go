package names

import "testing"

func TestTagsKnownExactMatch(t *testing.T) {
	v := Tags()
	if !v.Known("compile_unit") {
		t.Fatal("expected compile_unit to be known")
	}
	if v.Known("compile_unitttt") {
		t.Fatal("expected a garbage name to be unknown")
	}
}

func TestAttrsSuggestPrefix(t *testing.T) {
	v := Attrs()
	suggestions := v.Suggest("low_")
	found := false
	for _, s := range suggestions {
		if s == "low_pc" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Suggest(%q) = %v, want low_pc among them", "low_", suggestions)
	}
}

func TestSuggestFallsBackToFuzzy(t *testing.T) {
	v := Tags()
	// "subprogam" is missing the second "r" from "subprogram" -- no
	// known tag starts with this exact prefix, so Suggest must fall
	// back to the fuzzy pass to still surface it.
	suggestions := v.Suggest("subprogam")
	found := false
	for _, s := range suggestions {
		if s == "subprogram" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Suggest(%q) = %v, want subprogram among them", "subprogam", suggestions)
	}
}
