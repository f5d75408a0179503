// Package privacy redacts personal data and credentials from text that
// leaves the process: telemetry events, error reports and log lines.
package privacy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`\b(?:https?|tcp|ssl|mqtts?|wss?|s3)://\S+`)
	dataURIPattern = regexp.MustCompile(`data:[a-z]+/[a-z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	bearerPattern  = regexp.MustCompile(`(?i)bearer\s+\S+`)
	jwtPattern     = regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`)
	secretPattern  = regexp.MustCompile(`(?i)\b(password|passwd|secret|token|api[_-]?key)(\s*[=:]\s*)\S+`)
	ipv4Pattern    = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage redacts URLs, inline images, email addresses, bearer and
// session tokens and key=value secrets from message.
func ScrubMessage(message string) string {
	scrubbed := dataURIPattern.ReplaceAllString(message, "data:[IMAGE_REDACTED]")
	scrubbed = urlPattern.ReplaceAllStringFunc(scrubbed, AnonymizeURL)
	scrubbed = jwtPattern.ReplaceAllString(scrubbed, "[TOKEN_REDACTED]")
	scrubbed = bearerPattern.ReplaceAllString(scrubbed, "Bearer [TOKEN_REDACTED]")
	scrubbed = emailPattern.ReplaceAllString(scrubbed, "[EMAIL_REDACTED]")
	return secretPattern.ReplaceAllString(scrubbed, "$1$2[REDACTED]")
}

// RedactEmail keeps the first character of the local part and the domain,
// so log lines stay useful without naming the patient.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "[EMAIL_REDACTED]"
	}
	return email[:1] + "***" + email[at:]
}

// AnonymizeURL replaces a URL with a stable hash of its shape: scheme, host
// category, port and path structure. Credentials, host names and query
// strings never contribute.
func AnonymizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		sum := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", sum[:8])
	}

	var parts []string
	if parsed.Scheme != "" {
		parts = append(parts, parsed.Scheme)
	}
	if host := parsed.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := parsed.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		parts = append(parts, anonymizePath(parsed.Path))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", sum[:12])
}

// GenerateSystemID returns a random identifier formatted XXXX-XXXX-XXXX.
func GenerateSystemID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	id := hex.EncodeToString(buf)
	return strings.ToUpper(id[0:4] + "-" + id[4:8] + "-" + id[8:12]), nil
}

// IsValidSystemID reports whether id has the GenerateSystemID format.
func IsValidSystemID(id string) bool {
	if len(id) != 14 || id[4] != '-' || id[9] != '-' {
		return false
	}
	for i, r := range id {
		if i == 4 || i == 9 {
			continue
		}
		if !isHexChar(r) {
			return false
		}
	}
	return true
}

func categorizeHost(host string) string {
	switch {
	case host == "localhost" || host == "127.0.0.1" || host == "::1":
		return "localhost"
	case isPrivateIP(host):
		return "private-ip"
	case isIPAddress(host):
		return "public-ip"
	}
	if parts := strings.Split(host, "."); len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// anonymizePath hashes each path segment, keeping the organ names and
// numeric segments readable.
func anonymizePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "root"
	}
	var segments []string
	for _, segment := range strings.Split(p, "/") {
		switch {
		case segment == "":
			continue
		case isKnownSegment(segment):
			segments = append(segments, strings.ToLower(segment))
		case isNumeric(segment):
			segments = append(segments, "numeric")
		default:
			sum := sha256.Sum256([]byte(segment))
			segments = append(segments, fmt.Sprintf("seg-%x", sum[:4]))
		}
	}
	return strings.Join(segments, "/")
}

var privatePrefixes = []string{
	"10.", "192.168.", "169.254.",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
	"fc00:", "fd00:", "fe80:",
}

func isPrivateIP(host string) bool {
	lower := strings.ToLower(host)
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isIPAddress(host string) bool {
	return ipv4Pattern.MatchString(host) || strings.Contains(host, ":")
}

func isKnownSegment(segment string) bool {
	switch strings.ToLower(segment) {
	case "api", "v1", "v2", "predict", "classify", "brain", "breast", "diagnoses", "events":
		return true
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isHexChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}
