package events

import (
	"strconv"
	"strings"
	"time"
)

func formatAmount(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func setIfPresent(attrs map[string]string, key, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		attrs[key] = trimmed
	}
}
