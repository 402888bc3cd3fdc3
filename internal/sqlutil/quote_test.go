package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "users", "`users`"},
		{"with underscore", "user_profiles", "`user_profiles`"},
		{"embedded backtick", "bad`name", "`bad``name`"},
		{"empty", "", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.input); got != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQualify(t *testing.T) {
	if got := Qualify("", "name"); got != "`name`" {
		t.Errorf("Qualify(\"\", name) = %q", got)
	}
	if got := Qualify("a1", "name"); got != "`a1`.`name`" {
		t.Errorf("Qualify(a1, name) = %q", got)
	}
}
