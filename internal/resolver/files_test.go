package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Song Title", "Song Title"},
		{"separators", "AC/DC - Back In Black", "AC_DC - Back In Black"},
		{"reserved characters", `a:b*c?"d"<e>|f`, "a_b_c__d__e__f"},
		{"control characters", "bad\x00name\n", "badname"},
		{"dots only", "...", "untitled"},
		{"empty", "   ", "untitled"},
		{"traversal", "../../etc/passwd", "_.._etc_passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 300))
	require.Len(t, []rune(got), maxFilenameLength)
}
