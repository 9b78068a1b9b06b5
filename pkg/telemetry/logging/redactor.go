package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[-_]?key[=:]\s*)[a-zA-Z0-9]+`)
)

// Redactor masks requester email addresses and service API keys.
type Redactor struct{}

// NewRedactor creates a redactor.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// RedactString masks every email address and inline API key in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	if strings.Contains(value, "@") {
		value = emailPattern.ReplaceAllStringFunc(value, RedactEmail)
	}
	return apiKeyPattern.ReplaceAllString(value, "${1}***")
}

// RedactAttr masks string attributes. Attributes whose key names a secret
// are replaced entirely.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactAPIKey(a.Value.String()))
	}
	return slog.String(a.Key, r.RedactString(a.Value.String()))
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "api_key", "apikey"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// RedactEmail redacts an email address partially (shows first char and domain).
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	user, domain := email[:at], email[at+1:]
	if user == "" {
		return "***@" + domain
	}
	return user[:1] + "***@" + domain
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
