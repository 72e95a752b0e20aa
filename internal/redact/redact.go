// Package redact scrubs credentials from free-form text before it is logged.
package redact

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	bearerRe      = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	apiKeyListRe  = regexp.MustCompile(`(?i)(api[_-]?keys?\s*[:=]\s*\[)([^\]]+)(\])`)
	apiKeyValueRe = regexp.MustCompile(`(?i)(api[_-]?key(?:s)?\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	headerKeyRe   = regexp.MustCompile(`(?i)(x-api-key\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	googleKeyRe   = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`)
	passwordRe    = regexp.MustCompile(`(?i)(password\s*[:=]\s*)(\S+)`)
	urlRe         = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.\-]*://[^\s"'<>]+`)
	digitRunRe    = regexp.MustCompile(`\d(?:[\s-]?\d){3,}`)
)

// String redacts known secret patterns from s.
func String(s string) string {
	if s == "" {
		return s
	}

	out := s
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyListRe.ReplaceAllString(out, "${1}REDACTED${3}")
	out = apiKeyValueRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = headerKeyRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = passwordRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = googleKeyRe.ReplaceAllString(out, "[REDACTED_GOOGLE_KEY]")
	out = urlRe.ReplaceAllStringFunc(out, redactURL)
	for strings.Contains(out, "[REDACTED][REDACTED]") {
		out = strings.ReplaceAll(out, "[REDACTED][REDACTED]", "[REDACTED]")
	}
	return out
}

// Transcript redacts s like String and also masks runs of four or more
// digits, which in call audio are usually OTPs, PINs or card numbers.
func Transcript(s string) string {
	return digitRunRe.ReplaceAllString(String(s), "[DIGITS]")
}

// Sprintf formats like fmt.Sprintf and redacts the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// redactURL keeps scheme, host and the last path segment. Query strings are
// dropped because capability endpoints carry their keys there.
func redactURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "[REDACTED_URL]"
	}

	host := u.Host
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if strings.HasSuffix(u.Path, "/") && u.Path != "/" {
		return fmt.Sprintf("%s://%s/[REDACTED_PATH]", u.Scheme, host)
	}

	base := path.Base(strings.TrimSuffix(u.Path, "/"))
	if base == "." || base == "/" || base == "" {
		return fmt.Sprintf("%s://%s", u.Scheme, host)
	}
	return fmt.Sprintf("%s://%s/%s", u.Scheme, host, base)
}
