package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings.
	tokenKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|auth[_-]?token|build2[_-]?token)\b\s*[:=]\s*[^\s"']+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = tokenKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
