package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeywords mark field keys whose values never reach log output
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "authorization",
	"cookie", "api_key", "apikey", "hash",
}

// sensitiveValuePatterns catch secrets embedded in free text values
var sensitiveValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	regexp.MustCompile(`(eyJ[a-zA-Z0-9_\-]{5,}\.eyJ[a-zA-Z0-9_\-]{5,})\.[a-zA-Z0-9_\-]{5,}`),
	regexp.MustCompile(`(?i)((?:token|secret|passw(?:or)?d)[\s:=]+)([^;,\s]{5,})`),
}

// IsSensitiveKey reports whether a field key indicates sensitive data.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}

// RedactSensitiveData replaces secrets found in free text with [REDACTED]
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitiveValuePatterns {
		input = pattern.ReplaceAllString(input, "${1}"+redacted)
	}
	return input
}

// redactAttr is applied by every handler through ReplaceAttr.
func redactAttr(a slog.Attr) slog.Attr {
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if clean := RedactSensitiveData(s); clean != s {
				return slog.String(a.Key, clean)
			}
		}
	}
	return a
}
