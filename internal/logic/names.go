package logic

import "strings"

// SanitizeName reduces a user-provided name to filesystem-safe characters:
// letters, digits, space, dash and underscore, with surrounding space
// trimmed. Used for sensor display names and measurement names, both of
// which end up in file and folder names.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
