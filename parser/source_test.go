package parser

import (
	"testing"
)

func TestExtractVolumeFromSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "label before colon",
			source: "Journal of Testing; Vol. 12 No. 3: Special Issue; 45-67",
			want:   "Vol. 12 No. 3",
		},
		{
			name:   "label before parenthesis",
			source: "Journal of Testing; Vol. 12 No. 3 (2021); 45-67",
			want:   "Vol. 12 No. 3",
		},
		{
			name:   "parenthesis before colon",
			source: "Journal X; Vol 12 No 3 (2020): Fall; 45-60",
			want:   "Vol 12 No 3",
		},
		{
			name:   "no second segment",
			source: "Journal of Testing",
			want:   "",
		},
		{
			name:   "empty second segment",
			source: "Journal of Testing; ; 45-67",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVolumeFromSource(tt.source); got != tt.want {
				t.Errorf("ExtractVolumeFromSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestExtractPagesFromSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "third segment", source: "Journal; Vol. 1; 45-67", want: "45-67"},
		{name: "missing third segment", source: "Journal; Vol. 1", want: ""},
		{name: "extra segments ignored", source: "Journal; Vol. 1; 45-67; extra", want: "45-67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPagesFromSource(tt.source); got != tt.want {
				t.Errorf("ExtractPagesFromSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestExtractVolumeNumber(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"Journal of Testing Vol. 12 (2021)", "12"},
		{"Journal of Testing vol 7", "7"},
		{"VOL.3", "3"},
		{"Journal of Testing", ""},
	}

	for _, tt := range tests {
		if got := ExtractVolumeNumber(tt.source); got != tt.want {
			t.Errorf("ExtractVolumeNumber(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestExtractPageRange(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"Journal Vol. 12; 45-67", "45-67"},
		{"pp. 100-123", "100-123"},
		{"no pages here", ""},
	}

	for _, tt := range tests {
		if got := ExtractPageRange(tt.source); got != tt.want {
			t.Errorf("ExtractPageRange(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestExtractDOI(t *testing.T) {
	tests := []struct {
		relation string
		want     string
	}{
		{"https://doi.org/10.1234/jt.2021.001", "10.1234/jt.2021.001"},
		{"http://dx.doi.org/10.1234/jt.2021.001", "10.1234/jt.2021.001"},
		{"https://example.org/article/5", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractDOI(tt.relation); got != tt.want {
			t.Errorf("ExtractDOI(%q) = %q, want %q", tt.relation, got, tt.want)
		}
	}
}
