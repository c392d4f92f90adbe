package playback

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
	}{
		{"full span", "bytes=0-999", 0, 999},
		{"open end", "bytes=500-", 500, 999},
		{"suffix", "bytes=-200", 800, 999},
		{"suffix larger than file", "bytes=-5000", 0, 999},
		{"end clamped", "bytes=0-5000", 0, 999},
		{"first of multi", "bytes=0-99,200-299", 0, 99},
		{"single byte", "bytes=42-42", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br, err := ParseRange(tt.header, size)
			if err != nil {
				t.Fatalf("ParseRange(%q) failed: %v", tt.header, err)
			}
			if br == nil {
				t.Fatal("got nil range")
			}
			if br.Start != tt.wantStart || br.End != tt.wantEnd {
				t.Errorf("got [%d, %d], want [%d, %d]", br.Start, br.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseRangeNoHeader(t *testing.T) {
	br, err := ParseRange("", 1000)
	if err != nil || br != nil {
		t.Errorf("empty header should mean whole file, got (%v, %v)", br, err)
	}
}

func TestParseRangeInvalid(t *testing.T) {
	tests := []string{
		"items=0-10",
		"bytes=abc-10",
		"bytes=10",
		"bytes=-0",
		"bytes=-abc",
		"bytes=5-abc",
	}
	for _, header := range tests {
		t.Run(header, func(t *testing.T) {
			if _, err := ParseRange(header, 1000); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("ParseRange(%q) = %v, want ErrInvalidRange", header, err)
			}
		})
	}
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	tests := []string{
		"bytes=1000-",
		"bytes=2000-3000",
		"bytes=500-400",
	}
	for _, header := range tests {
		t.Run(header, func(t *testing.T) {
			if _, err := ParseRange(header, 1000); !errors.Is(err, ErrUnsatisfiable) {
				t.Errorf("ParseRange(%q) = %v, want ErrUnsatisfiable", header, err)
			}
		})
	}
}

func TestByteRange(t *testing.T) {
	br := ByteRange{Start: 100, End: 199}
	if br.Length() != 100 {
		t.Errorf("Length() = %d, want 100", br.Length())
	}
	if got := br.ContentRange(1000); got != "bytes 100-199/1000" {
		t.Errorf("ContentRange = %q", got)
	}
}
