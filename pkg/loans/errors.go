package loans

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid policy, schedule or setting. Invalid values
// are rejected at write time and never persisted.
type ConfigError struct {
	Field   string // Offending field ("reminder_days", "cron_expression", etc.)
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Message)
	}
	return fmt.Sprintf("invalid configuration [field=%s]: %s", e.Field, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NotFoundError reports an unknown schedule, request or run.
type NotFoundError struct {
	Resource string // "schedule", "request", etc.
	ID       any
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a state transition that is no longer allowed, such
// as a second extension of the same request.
type ConflictError struct {
	Resource string
	ID       any
	Reason   string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Resource, e.ID, e.Reason)
}

// NewConflictError creates a new ConflictError.
func NewConflictError(resource string, id any, reason string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, Reason: reason}
}

// UnavailableError reports that a collaborator (catalog, downstream media
// manager, mail server) could not be reached. The failed work is retried by
// the next scheduled run, never within the same run.
type UnavailableError struct {
	Service   string // "overseerr", "radarr", "sonarr", "smtp"
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable [operation=%s]: %v", e.Service, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(service, operation string, cause error) *UnavailableError {
	return &UnavailableError{Service: service, Operation: operation, Cause: cause}
}

// ItemError is a failure confined to one request. The batch continues and the
// failure is recorded in the run summary.
type ItemError struct {
	RequestID int
	Stage     string
	Cause     error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("request %d failed at %s: %v", e.RequestID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ItemError) Unwrap() error {
	return e.Cause
}

// NewItemError creates a new ItemError.
func NewItemError(requestID int, stage string, cause error) *ItemError {
	return &ItemError{RequestID: requestID, Stage: stage, Cause: cause}
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "create_schedule", "append_job_run", etc.
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsUnavailable reports whether err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}
