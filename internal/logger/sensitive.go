package logger

import (
	"regexp"
	"strings"
)

// sensitivePatterns match credentials that must never reach a log sink.
// The first capture group is kept, the secret is replaced.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|token|access_token)=)([^&\s]+)`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|secret|passw(?:or)?d|token)[\s:=]+)([^;,\s&]{4,})`),
	regexp.MustCompile(`(?i)((?:session|trainingportal_session|sid)=)([^;,\s]{5,})`),
	regexp.MustCompile(`(?i)(://[^:/\s]+:)([^@\s]+)(@)`),
}

var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "apikey", "api_key", "authorization", "cookie", "session",
}

// RedactSensitiveData masks credentials embedded in free text, URLs and DSNs
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitivePatterns {
		if pattern.NumSubexp() == 3 {
			input = pattern.ReplaceAllString(input, "${1}[REDACTED]${3}")
			continue
		}
		input = pattern.ReplaceAllString(input, "${1}[REDACTED]")
	}
	return input
}

// IsSensitiveKey reports whether a field or header name usually carries a secret
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// Redacted returns a string field whose value is masked when it looks sensitive
func Redacted(key, value string) Field {
	if IsSensitiveKey(key) && value != "" {
		return String(key, "[REDACTED]")
	}
	return String(key, RedactSensitiveData(value))
}
