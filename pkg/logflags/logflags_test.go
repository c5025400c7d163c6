package logflags

import "testing"

func TestSetupWithoutLogFlagRejectsLogstr(t *testing.T) {
	if err := Setup(false, "query"); err != errLogstrWithoutLog {
		t.Fatalf("got %v, want errLogstrWithoutLog", err)
	}
}

func TestSetupEnablesNamedSubsystems(t *testing.T) {
	query = false
	sections = false

	if err := Setup(true, "query,sections"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !Query() {
		t.Fatal("expected Query() to be true")
	}
	if !Sections() {
		t.Fatal("expected Sections() to be true")
	}
}

func TestSetupAcceptsEmptyLogstr(t *testing.T) {
	if err := Setup(true, ""); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}
