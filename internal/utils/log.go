package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// PreviewFields describes a payload for debug logs: its length in runes and a
// truncated preview, keyed as <name>_length and <name>_preview.
func PreviewFields(name, s string, limit int) []zap.Field {
	return []zap.Field{
		zap.Int(name+"_length", utf8.RuneCountInString(s)),
		zap.String(name+"_preview", TruncateForLog(s, limit)),
	}
}
