package validate

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		wantErr     error
		wantOutput  string
	}{
		{
			name:        "valid string within length constraints",
			input:       "  Hello World ",
			constraints: StringConstraints{MinLength: 5, MaxLength: 20, TrimSpace: true},
			wantOutput:  "Hello World",
		},
		{
			name:        "string too short",
			input:       "Hi",
			constraints: StringConstraints{MinLength: 5},
			wantErr:     ErrStringTooShort,
		},
		{
			name:        "length counts runes not bytes",
			input:       "北京朝阳区",
			constraints: StringConstraints{MaxLength: 5},
			wantOutput:  "北京朝阳区",
		},
		{
			name:        "string too long",
			input:       strings.Repeat("a", 101),
			constraints: StringConstraints{MaxLength: 100},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "empty string not allowed",
			input:       "   ",
			constraints: StringConstraints{TrimSpace: true},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty string allowed",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			wantOutput:  "",
		},
		{
			name:        "control character",
			input:       "line\x00break",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "pattern mismatch",
			input:       "abc!",
			constraints: StringConstraints{AllowedPattern: regexp.MustCompile(`^[a-z]+$`)},
			wantErr:     ErrInvalidCharacters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("String() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("String() unexpected error: %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("String() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestDomainValidators(t *testing.T) {
	if _, err := SearchQuery(""); err != nil {
		t.Errorf("empty query should be allowed: %v", err)
	}
	if _, err := SearchQuery(strings.Repeat("q", MaxQueryLength+1)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected long query to fail, got %v", err)
	}
	if got, err := Address(" 北京市朝阳区 "); err != nil || got != "北京市朝阳区" {
		t.Errorf("Address() = %q, %v", got, err)
	}
	if _, err := Address("road\nname"); !errors.Is(err, ErrInvalidCharacters) {
		t.Errorf("expected newline in address to fail, got %v", err)
	}
	if _, err := ID("7f9c2ba4-e88f-11ee"); err != nil {
		t.Errorf("expected UUID-like ID to pass: %v", err)
	}
	for _, bad := range []string{"", "a b", "../etc", strings.Repeat("x", MaxIDLength+1)} {
		if _, err := ID(bad); err == nil {
			t.Errorf("expected ID %q to fail", bad)
		}
	}
}

func TestProjectTextValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) (string, error)
		input   string
		wantErr error
	}{
		{"title trimmed", Title, "  Mural  ", nil},
		{"title required", Title, "   ", ErrEmpty},
		{"title too long", Title, strings.Repeat("t", MaxTitleLength+1), ErrStringTooLong},
		{"title rejects newline", Title, "two\nlines", ErrInvalidCharacters},
		{"text allows newlines", Text, "first line\nsecond\tline", nil},
		{"text rejects other control", Text, "bell\a", ErrInvalidCharacters},
		{"text optional", Text, "", nil},
		{"place optional", Place, "", nil},
		{"place too long", Place, strings.Repeat("p", MaxPlaceLength+1), ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn(tt.input)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints URLConstraints
		wantErr     error
	}{
		{"public https", "https://restapi.amap.com", ProductionServiceURL, nil},
		{"http rejected in production", "http://restapi.amap.com", ProductionServiceURL, ErrDisallowedScheme},
		{"localhost rejected in production", "https://localhost:8443", ProductionServiceURL, ErrPrivateHost},
		{"private IP rejected in production", "https://10.0.0.5", ProductionServiceURL, ErrPrivateHost},
		{"loopback IPv6 rejected in production", "https://[::1]:9000", ProductionServiceURL, ErrPrivateHost},
		{"local stub allowed in development", "http://127.0.0.1:9000", DevelopmentServiceURL, nil},
		{"missing host", "https://", DevelopmentServiceURL, ErrInvalidURL},
		{"unsupported scheme", "ftp://example.com", DevelopmentServiceURL, ErrDisallowedScheme},
		{"empty", "  ", DevelopmentServiceURL, ErrEmpty},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), DevelopmentServiceURL, ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := URL(tt.input, tt.constraints)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("URL() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("URL() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
