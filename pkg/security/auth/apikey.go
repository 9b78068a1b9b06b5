package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
)

var (
	// ErrInvalidKey is returned for a key matching no configured key.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrDisabledKey is returned for a configured but disabled key.
	ErrDisabledKey = errors.New("API key disabled")
)

// Validator checks presented keys against the configured set. It is safe for
// concurrent use; Replace swaps the set on configuration reload.
type Validator struct {
	mu   sync.RWMutex
	keys []APIKey
}

// NewValidator creates a validator for keys.
func NewValidator(keys []APIKey) *Validator {
	v := &Validator{}
	v.Replace(keys)
	return v
}

// Validate returns the configured key matching presented. Every configured
// key is compared in constant time.
func (v *Validator) Validate(presented string) (APIKey, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var (
		match APIKey
		found bool
	)
	for _, k := range v.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(presented)) == 1 {
			match, found = k, true
		}
	}
	switch {
	case !found:
		return APIKey{}, ErrInvalidKey
	case !match.Enabled:
		return APIKey{}, ErrDisabledKey
	}
	return match, nil
}

// Empty reports whether no enabled key is configured.
func (v *Validator) Empty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, k := range v.keys {
		if k.Enabled {
			return false
		}
	}
	return true
}

// Replace swaps the configured keys. Keys with an empty secret are ignored.
func (v *Validator) Replace(keys []APIKey) {
	kept := make([]APIKey, 0, len(keys))
	for _, k := range keys {
		if k.Key != "" {
			kept = append(kept, k)
		}
	}

	v.mu.Lock()
	v.keys = kept
	v.mu.Unlock()
}
