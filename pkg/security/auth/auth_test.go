package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidator(t *testing.T) {
	v := NewValidator([]APIKey{
		{Name: "ops", Key: "ops-key-0123456789", Enabled: true},
		{Name: "old", Key: "old-key-0123456789", Enabled: false},
		{Name: "blank", Key: "", Enabled: true},
	})

	tests := []struct {
		presented string
		wantName  string
		wantErr   error
	}{
		{presented: "ops-key-0123456789", wantName: "ops"},
		{presented: "old-key-0123456789", wantErr: ErrDisabledKey},
		{presented: "nope", wantErr: ErrInvalidKey},
		{presented: "", wantErr: ErrInvalidKey},
	}
	for _, tt := range tests {
		key, err := v.Validate(tt.presented)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Validate(%q) error = %v, want %v", tt.presented, err, tt.wantErr)
			continue
		}
		if key.Name != tt.wantName {
			t.Errorf("Validate(%q) = %q, want %q", tt.presented, key.Name, tt.wantName)
		}
	}

	if v.Empty() {
		t.Error("Empty() = true with an enabled key")
	}
	v.Replace([]APIKey{{Name: "old", Key: "old-key-0123456789"}})
	if !v.Empty() {
		t.Error("Empty() = false with only disabled keys")
	}
}

func TestMiddleware(t *testing.T) {
	v := NewValidator([]APIKey{{Name: "ops", Key: "ops-key-0123456789", Enabled: true}})

	var seen string
	handler := NewMiddleware(v, nil).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = KeyName(r.Context())
	}))

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{name: "bearer token", header: "Authorization", value: "Bearer ops-key-0123456789", wantStatus: http.StatusOK},
		{name: "api key header", header: "X-Api-Key", value: "ops-key-0123456789", wantStatus: http.StatusOK},
		{name: "wrong scheme", header: "Authorization", value: "Basic ops-key-0123456789", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "X-Api-Key", value: "guess", wantStatus: http.StatusUnauthorized},
		{name: "missing", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if seen != "ops" {
					t.Errorf("KeyName() = %q, want ops", seen)
				}
				return
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("body = %v, %v", body, err)
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("WWW-Authenticate header missing")
			}
		})
	}
}

func TestMiddleware_NoKeysIsOpen(t *testing.T) {
	handler := NewMiddleware(NewValidator(nil), nil).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}
