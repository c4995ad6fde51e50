package resolver

import (
	"strings"
	"unicode"
)

const maxFilenameLength = 120

// SanitizeFilename makes a song title safe to use as a file name
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), ". ")
	if runes := []rune(cleaned); len(runes) > maxFilenameLength {
		cleaned = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}
