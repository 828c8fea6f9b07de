package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	t.Setenv("CROSSTALLY_TEST_DIR", "/var/lib/crosstally")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/data/crosstally.db", filepath.Join(home, "data", "crosstally.db")},
		{"$CROSSTALLY_TEST_DIR/crosstally.db", "/var/lib/crosstally/crosstally.db"},
		{"/absolute/path.db", "/absolute/path.db"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration failed validation: %v", err)
	}
}

func TestStaleDaysFor(t *testing.T) {
	cfg := Default()

	tests := []struct {
		category string
		want     int
	}{
		{"resale", 14},
		{"Resale", 14}, // lookup is case-insensitive
		{"pack", 14},
		{"generators", 30}, // unregistered category falls back to default
		{"", 30},
	}

	for _, tt := range tests {
		if got := cfg.Activity.StaleDaysFor(tt.category); got != tt.want {
			t.Errorf("StaleDaysFor(%q) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestRegisterCategory(t *testing.T) {
	var a Activity
	a.DefaultStaleDays = 30

	if err := a.RegisterCategory(CategoryRule{Name: "trailers", StaleDays: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.RegisterCategory(CategoryRule{Name: "trailers", StaleDays: 45}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := a.RegisterCategory(CategoryRule{Name: "", StaleDays: 10}); err == nil {
		t.Fatal("expected missing name to fail")
	}
	if err := a.RegisterCategory(CategoryRule{Name: "bad", StaleDays: 0}); err == nil {
		t.Fatal("expected non-positive stale days to fail")
	}

	if got := a.StaleDaysFor("trailers"); got != 60 {
		t.Errorf("StaleDaysFor(trailers) = %d, want 60", got)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.AutoAccept = 40
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected inverted thresholds to fail validation")
	}

	cfg = Default()
	cfg.Bands.Good = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected non-increasing variance bands to fail validation")
	}
}
