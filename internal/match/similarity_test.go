package match

import "testing"

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "Honda Generator 5000W", "Honda Generator 5000W", 1, 1},
		{"case and punctuation ignored", "Generator - 5000W (Honda)", "HONDA generator 5000w", 0.99, 1},
		{"reordered words via token overlap", "5000w generator honda", "honda generator 5000w", 0.99, 1},
		{"minor misspelling", "Generatr 5000W", "Generator 5000W", 0.8, 1},
		{"unrelated names", "Carpet Cleaner", "Mini Excavator", 0, 0.4},
		{"empty side", "", "Honda Generator", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("NameSimilarity(%q, %q) = %.3f, want within [%.2f, %.2f]",
					tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestCategoryAlignment(t *testing.T) {
	tests := []struct {
		name     string
		category string
		subcat   string
		class    string
		want     float64
	}{
		{"exact category", "Generators", "", "generators", 1},
		{"subcategory match", "Power", "Generators", "Generators", 1},
		{"partial overlap", "Power Generators", "", "Diesel Generators", 0.5},
		{"no overlap", "Saws", "", "Trailers", 0},
		{"missing class category", "Saws", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategoryAlignment(tt.category, tt.subcat, tt.class)
			if got != tt.want {
				t.Errorf("CategoryAlignment(%q, %q, %q) = %.2f, want %.2f",
					tt.category, tt.subcat, tt.class, got, tt.want)
			}
		})
	}
}

func TestDomainBonus(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"shared manufacturer", "Honda Generator", "honda 5000w", 1},
		{"shared size only", "Generator 5000w", "Pump 5000w", 0.5},
		{"nothing shared", "Carpet Cleaner", "Mini Excavator", 0},
		{"empty side", "", "Honda Generator", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DomainBonus(tt.a, tt.b); got != tt.want {
				t.Errorf("DomainBonus(%q, %q) = %.2f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestQuantityConsistency(t *testing.T) {
	tests := []struct {
		name       string
		catalogQty int
		classCount int
		want       float64
	}{
		{"equal", 4, 4, 1},
		{"both zero", 0, 0, 1},
		{"half off", 2, 4, 0.5},
		{"wildly off", 1, 200, 0.005},
		{"negative catalog clamps", -3, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuantityConsistency(tt.catalogQty, tt.classCount)
			if diff := got - tt.want; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("QuantityConsistency(%d, %d) = %.4f, want %.4f",
					tt.catalogQty, tt.classCount, got, tt.want)
			}
		})
	}
}
