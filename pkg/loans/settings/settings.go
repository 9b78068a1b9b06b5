// Package settings resolves the effective retention settings of a run.
//
// Every field is resolved independently through three tiers:
//
//  1. a value stored in the database by an administrator, if present and valid
//  2. the configuration file or environment, if set
//  3. the built-in default
//
// Invalid database values are logged and skipped rather than failing the
// run. Writes go through Update, which validates the merged policy so an
// invalid combination is never persisted.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/retention"
)

// Setting keys as stored in the settings table.
const (
	KeyRetentionDays = "retention_days"
	KeyReminderDays  = "reminder_days"
	KeyExtensionDays = "extension_days"
	KeyBaseURL       = "base_url"
	KeyTimezone      = "timezone"
)

// Keys lists every setting in display order.
var Keys = []string{KeyRetentionDays, KeyReminderDays, KeyExtensionDays, KeyBaseURL, KeyTimezone}

// Source is the tier a resolved value came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceConfig   Source = "config"
	SourceDefault  Source = "default"
)

// Default values for the non-policy settings.
const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultTimezone = "Local"
)

// Fallback holds the values of the configuration tier. Zero values mean
// "not set".
type Fallback struct {
	RetentionDays int
	ReminderDays  int
	ExtensionDays int
	BaseURL       string
	Timezone      string
}

// Settings is the immutable result of one resolution.
type Settings struct {
	Policy   retention.Policy
	BaseURL  string
	Location *time.Location
}

// ExtendURL returns the link a requester follows to extend a loan.
func (s *Settings) ExtendURL(requestID int) string {
	return fmt.Sprintf("%s/extend?request_id=%d", strings.TrimRight(s.BaseURL, "/"), requestID)
}

// Field is one resolved setting with its provenance.
type Field struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Patch holds the optional fields of a settings update.
type Patch struct {
	RetentionDays *int    `json:"retention_days,omitempty"`
	ReminderDays  *int    `json:"reminder_days,omitempty"`
	ExtensionDays *int    `json:"extension_days,omitempty"`
	BaseURL       *string `json:"base_url,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.RetentionDays == nil && p.ReminderDays == nil && p.ExtensionDays == nil &&
		p.BaseURL == nil && p.Timezone == nil
}

// Resolver resolves settings from the store and the configuration tier.
type Resolver struct {
	store    loans.SettingsStore
	fallback func() Fallback
	logger   *slog.Logger
}

// NewResolver creates a resolver. fallback is consulted on every resolution
// so configuration reloads take effect on the next run; it may be nil.
func NewResolver(store loans.SettingsStore, fallback func() Fallback) *Resolver {
	if fallback == nil {
		fallback = func() Fallback { return Fallback{} }
	}
	return &Resolver{
		store:    store,
		fallback: fallback,
		logger:   slog.Default().With("component", "loans.settings"),
	}
}

// resolved carries the provenance of every field alongside the values.
type resolved struct {
	settings Settings
	fields   []Field
}

func (r *Resolver) resolve(ctx context.Context) (*resolved, error) {
	stored, err := r.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	fb := r.fallback()

	var out resolved
	days := func(key string, cfg, def int) int {
		if raw, ok := stored[key]; ok {
			v, err := cast.ToIntE(strings.TrimSpace(raw))
			if err == nil && v >= 1 {
				out.fields = append(out.fields, Field{Key: key, Value: cast.ToString(v), Source: SourceDatabase})
				return v
			}
			r.logger.Warn("ignoring invalid stored setting", "key", key, "value", raw)
		}
		if cfg > 0 {
			out.fields = append(out.fields, Field{Key: key, Value: cast.ToString(cfg), Source: SourceConfig})
			return cfg
		}
		out.fields = append(out.fields, Field{Key: key, Value: cast.ToString(def), Source: SourceDefault})
		return def
	}

	out.settings.Policy = retention.Policy{
		RetentionDays: days(KeyRetentionDays, fb.RetentionDays, retention.DefaultRetentionDays),
		ReminderDays:  days(KeyReminderDays, fb.ReminderDays, retention.DefaultReminderDays),
		ExtensionDays: days(KeyExtensionDays, fb.ExtensionDays, retention.DefaultExtensionDays),
	}

	switch raw := strings.TrimSpace(stored[KeyBaseURL]); {
	case raw != "":
		out.settings.BaseURL = raw
		out.fields = append(out.fields, Field{Key: KeyBaseURL, Value: raw, Source: SourceDatabase})
	case fb.BaseURL != "":
		out.settings.BaseURL = fb.BaseURL
		out.fields = append(out.fields, Field{Key: KeyBaseURL, Value: fb.BaseURL, Source: SourceConfig})
	default:
		out.settings.BaseURL = DefaultBaseURL
		out.fields = append(out.fields, Field{Key: KeyBaseURL, Value: DefaultBaseURL, Source: SourceDefault})
	}

	out.settings.Location = r.location(stored[KeyTimezone], fb.Timezone, &out.fields)

	return &out, nil
}

func (r *Resolver) location(stored, cfg string, fields *[]Field) *time.Location {
	if name := strings.TrimSpace(stored); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			*fields = append(*fields, Field{Key: KeyTimezone, Value: name, Source: SourceDatabase})
			return loc
		}
		r.logger.Warn("ignoring invalid stored setting", "key", KeyTimezone, "value", stored)
	}
	if cfg != "" {
		if loc, err := time.LoadLocation(cfg); err == nil {
			*fields = append(*fields, Field{Key: KeyTimezone, Value: cfg, Source: SourceConfig})
			return loc
		}
		r.logger.Warn("ignoring invalid configured time zone", "value", cfg)
	}
	*fields = append(*fields, Field{Key: KeyTimezone, Value: DefaultTimezone, Source: SourceDefault})
	return time.Local
}

// Resolve returns the effective settings. A combination of tiers that
// yields an invalid policy is reported as a ConfigError.
func (r *Resolver) Resolve(ctx context.Context) (*Settings, error) {
	res, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := res.settings.Policy.Validate(); err != nil {
		return nil, err
	}
	s := res.settings
	return &s, nil
}

// Clock returns a retention clock for the effective settings.
func (r *Resolver) Clock(ctx context.Context) (*retention.Clock, error) {
	s, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return retention.NewClock(s.Policy, s.Location), nil
}

// Current returns every setting with the tier it was resolved from.
func (r *Resolver) Current(ctx context.Context) ([]Field, error) {
	res, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return res.fields, nil
}

// Update validates patch merged over the effective settings and persists
// the patched fields. Nothing is written when validation fails.
func (r *Resolver) Update(ctx context.Context, patch Patch) (*Settings, error) {
	res, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	next := res.settings
	values := make(map[string]string)

	if patch.RetentionDays != nil {
		next.Policy.RetentionDays = *patch.RetentionDays
		values[KeyRetentionDays] = cast.ToString(*patch.RetentionDays)
	}
	if patch.ReminderDays != nil {
		next.Policy.ReminderDays = *patch.ReminderDays
		values[KeyReminderDays] = cast.ToString(*patch.ReminderDays)
	}
	if patch.ExtensionDays != nil {
		next.Policy.ExtensionDays = *patch.ExtensionDays
		values[KeyExtensionDays] = cast.ToString(*patch.ExtensionDays)
	}
	if patch.BaseURL != nil {
		u := strings.TrimSpace(*patch.BaseURL)
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, loans.NewConfigError(KeyBaseURL, fmt.Sprintf("must be an http(s) URL, got %q", u))
		}
		next.BaseURL = u
		values[KeyBaseURL] = u
	}
	if patch.Timezone != nil {
		name := strings.TrimSpace(*patch.Timezone)
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, loans.NewConfigError(KeyTimezone, fmt.Sprintf("unknown time zone %q", name))
		}
		next.Location = loc
		values[KeyTimezone] = name
	}

	if err := next.Policy.Validate(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return &next, nil
	}
	if err := r.store.PutSettings(ctx, values); err != nil {
		return nil, err
	}

	r.logger.Info("settings updated",
		"retention_days", next.Policy.RetentionDays,
		"reminder_days", next.Policy.ReminderDays,
		"extension_days", next.Policy.ExtensionDays,
	)
	// Re-resolve so an empty base URL falls back to the lower tiers.
	return r.Resolve(ctx)
}
