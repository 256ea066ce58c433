package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		min     int
		max     int
		want    string
		wantErr error
	}{
		{"empty", "", 1, 100, "", ErrCityRequired},
		{"spaces", "   ", 1, 100, "", ErrCityRequired},
		{"tab", "\t", 1, 100, "", ErrCityRequired},
		{"too short", "x", 2, 100, "", ErrCityTooShort},
		{"too long", strings.Repeat("a", 101), 1, 100, "", ErrCityTooLong},
		{"max in runes", strings.Repeat("é", 100), 1, 100, strings.Repeat("é", 100), nil},
		{"bounds disabled", strings.Repeat("a", 500), 0, 0, strings.Repeat("a", 500), nil},
		{"slash", "sea/ttle", 1, 100, "", ErrCityInvalidChars},
		{"angle brackets", "<script>", 1, 100, "", ErrCityInvalidChars},
		{"semicolon", "london;drop", 1, 100, "", ErrCityInvalidChars},
		{"newline", "new\nyork", 1, 100, "", ErrCityInvalidChars},
		{"trimmed", "  London  ", 1, 100, "London", nil},
		{"space", "New York", 1, 100, "New York", nil},
		{"comma country", "London,GB", 1, 100, "London,GB", nil},
		{"hyphen", "Winston-Salem", 1, 100, "Winston-Salem", nil},
		{"period and apostrophe", "St. John's", 1, 100, "St. John's", nil},
		{"unicode", "São Paulo", 1, 100, "São Paulo", nil},
		{"cjk", "東京", 1, 100, "東京", nil},
		{"digits", "Area 51", 1, 100, "Area 51", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCity(tt.input, tt.min, tt.max)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateCity(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCity(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestErrorMessagesAreUserFacing(t *testing.T) {
	if ErrCityRequired.Error() != "City is required" {
		t.Errorf("ErrCityRequired = %q", ErrCityRequired.Error())
	}
}

func TestRequireCity(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{"", "", ErrCityRequired},
		{" \t ", "", ErrCityRequired},
		{"  London ", "London", nil},
		{"Frankfurt (Oder)", "Frankfurt (Oder)", nil},
		{"Halle/Saale", "Halle/Saale", nil},
		{"Lantau #1", "Lantau #1", nil},
		{strings.Repeat("a", 500), strings.Repeat("a", 500), nil},
	}
	for _, tt := range tests {
		got, err := RequireCity(tt.input)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("RequireCity(%q) err = %v, want %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("RequireCity(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
