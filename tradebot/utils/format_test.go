package utils

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCardName(t *testing.T) {
	tests := map[string]string{
		"hoot_taeyeon": "Hoot Taeyeon",
		"solo":         "Solo",
		"":             "",
		"a__b":         "A  B",
	}
	for in, want := range tests {
		if got := FormatCardName(in); got != want {
			t.Errorf("FormatCardName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{45 * time.Second, "45s"},
		{4*time.Minute + 30*time.Second, "4m 30s"},
		{2*time.Minute + 400*time.Millisecond, "2m 0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetStarsDisplay(t *testing.T) {
	if got := GetStarsDisplay(3); got != "`★★★`" {
		t.Errorf("GetStarsDisplay(3) = %q", got)
	}
	if got := GetStarsDisplay(9); got != "`✧`" {
		t.Errorf("GetStarsDisplay(9) = %q", got)
	}
}
