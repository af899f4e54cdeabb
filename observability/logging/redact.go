package logging

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"txid":      {},
	"status":    {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the log keys that are allowed to be emitted
// without redaction.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the canonical redacted placeholder for non-empty values. Empty values
// are returned unchanged to avoid introducing noise in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts the supplied value unless the key is
// explicitly allowlisted. The original key casing is preserved for readability.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskWallet shortens a cash address to its network prefix, the first four
// characters of the payload and the last four, e.g. bitcoincash:qz3f...8a2c.
func MaskWallet(key, address string) slog.Attr {
	address = strings.TrimSpace(address)
	prefix, payload, found := strings.Cut(address, ":")
	if !found {
		prefix, payload = "", address
	}
	if utf8.RuneCountInString(payload) <= 8 {
		return MaskField(key, address)
	}
	runes := []rune(payload)
	short := string(runes[:4]) + "..." + string(runes[len(runes)-4:])
	if prefix != "" {
		short = prefix + ":" + short
	}
	return slog.String(key, short)
}
