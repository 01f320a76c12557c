package snap_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"fsnap/internal/snap"
)

func TestShortenName(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		suffix string
		want   string
	}{
		{
			name:   "short name passes through",
			base:   "a.txt",
			suffix: ".bak",
			want:   "a.txt.bak",
		},
		{
			name:   "exactly at the limit passes through",
			base:   strings.Repeat("x", 251),
			suffix: ".bak",
			want:   strings.Repeat("x", 251) + ".bak",
		},
		{
			name:   "ascii overflow truncates with marker",
			base:   strings.Repeat("x", 255),
			suffix: ".bak",
			want:   strings.Repeat("x", 245) + "(omit).bak",
		},
		{
			name:   "three-byte glyphs truncate on a code-point boundary",
			base:   strings.Repeat("界", 85), // 255 bytes
			suffix: ".bak",
			want:   strings.Repeat("界", 81) + "(omit).bak",
		},
		{
			name:   "two-byte glyphs truncate on a code-point boundary",
			base:   strings.Repeat("é", 127), // 254 bytes
			suffix: ".bak2",
			want:   strings.Repeat("é", 122) + "(omit).bak2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.ShortenName(tt.base, tt.suffix)
			if got != tt.want {
				t.Errorf("ShortenName(%d bytes, %q) = %q, want %q", len(tt.base), tt.suffix, got, tt.want)
			}
			if len(got) > 255 {
				t.Errorf("result is %d bytes, exceeds component limit", len(got))
			}
			if !utf8.ValidString(got) {
				t.Errorf("result splits a multibyte character: %q", got)
			}
		})
	}
}
