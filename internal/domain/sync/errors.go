package sync

import "errors"

var (
	// Cycle-level errors
	ErrSourceUnavailable = errors.New("sync: source unavailable")
	ErrPersistence       = errors.New("sync: persistence failure")
	ErrSyncInProgress    = errors.New("sync: a cycle is already running")

	// Item-level errors
	ErrAuthExpired   = errors.New("sync: destination authentication expired")
	ErrTransientPush = errors.New("sync: transient push failure")
	ErrValidation    = errors.New("sync: invalid product payload")
	ErrPushFailed    = errors.New("sync: push failed after retries")

	// ErrAlreadyExists is the destination's conflict signal on create.
	// It is policy, not a failure: the client falls back to update.
	ErrAlreadyExists = errors.New("sync: product already exists on destination")

	// Lookup errors
	ErrProductNotFound = errors.New("sync: product not found")
	ErrTokenNotFound   = errors.New("sync: no stored credentials")
	ErrRunNotFound     = errors.New("sync: run not found")
	ErrEntryNotFound   = errors.New("sync: log entry not found")
)

// ErrorClass categorizes a failure for the audit trail.
type ErrorClass string

const (
	ErrorClassSourceUnavailable ErrorClass = "SOURCE_UNAVAILABLE"
	ErrorClassAuthExpired       ErrorClass = "AUTH_EXPIRED"
	ErrorClassTransientPush     ErrorClass = "TRANSIENT_PUSH"
	ErrorClassValidation        ErrorClass = "VALIDATION"
	ErrorClassPersistence       ErrorClass = "PERSISTENCE"
	ErrorClassUnknown           ErrorClass = "UNKNOWN"
)

// Classify maps an error to its audit class.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return ErrorClassSourceUnavailable
	case errors.Is(err, ErrAuthExpired):
		return ErrorClassAuthExpired
	case errors.Is(err, ErrTransientPush), errors.Is(err, ErrPushFailed):
		return ErrorClassTransientPush
	case errors.Is(err, ErrValidation):
		return ErrorClassValidation
	case errors.Is(err, ErrPersistence):
		return ErrorClassPersistence
	default:
		return ErrorClassUnknown
	}
}

// IsTransient reports whether a push failure is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientPush) || errors.Is(err, ErrAuthExpired)
}
