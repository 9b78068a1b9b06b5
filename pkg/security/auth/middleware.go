package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid API key.
type Middleware struct {
	validator *Validator
	sources   []KeySource
}

// NewMiddleware creates the middleware. Nil sources means DefaultSources.
func NewMiddleware(validator *Validator, sources []KeySource) *Middleware {
	if sources == nil {
		sources = DefaultSources
	}
	return &Middleware{validator: validator, sources: sources}
}

// Handle wraps next with API key authentication. While the validator holds no
// enabled key every request passes.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.validator.Empty() {
			next.ServeHTTP(w, r)
			return
		}

		presented, ok := m.extract(r)
		if !ok {
			slog.WarnContext(r.Context(), "missing API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			unauthorized(w, "missing API key")
			return
		}

		key, err := m.validator.Validate(presented)
		if err != nil {
			slog.WarnContext(r.Context(), "rejected API key", "error", err, "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			unauthorized(w, err.Error())
			return
		}

		slog.DebugContext(r.Context(), "API key authenticated", "key", key.Name, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyNameKey, key.Name)))
	})
}

func (m *Middleware) extract(r *http.Request) (string, bool) {
	for _, source := range m.sources {
		value := r.Header.Get(source.Header)
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value, true
		}
		if token, ok := strings.CutPrefix(value, source.Scheme+" "); ok && token != "" {
			return token, true
		}
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="scruffy"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const keyNameKey contextKey = "api_key_name"

// KeyName returns the name of the key that authenticated the request in ctx.
func KeyName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(keyNameKey).(string)
	return name, ok
}
