package sync

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	// ErrConflict is returned when a sync job is already running for the campaign
	ErrConflict = errors.New("sync: a sync job is already in flight for this campaign")
	// ErrJobNotFound is returned when the referenced job does not exist
	ErrJobNotFound = errors.New("sync: sync job not found")
	// ErrBindingNotFound is returned when no binding exists for (campaign, platform)
	ErrBindingNotFound = errors.New("sync: platform binding not found")
	// ErrEmptyScope is returned when a job is submitted with no scope items
	ErrEmptyScope = errors.New("sync: sync scope must include at least one item")
	// ErrRemoteCampaignNotFound is returned when the remote platform reports
	// the campaign missing; it aborts a job before any scope item starts
	ErrRemoteCampaignNotFound = errors.New("sync: campaign not found on remote platform")
	// ErrUnknownPlatform is returned for an unregistered platform code
	ErrUnknownPlatform = errors.New("sync: unknown platform code")
)

// Reason is the machine-readable outcome code attached to every terminal
// job and scope-item outcome
type Reason string

const (
	// ReasonNone indicates success
	ReasonNone Reason = ""
	// ReasonValidation indicates a malformed request; never retried
	ReasonValidation Reason = "VALIDATION_ERROR"
	// ReasonTransientRemote indicates a network/rate-limit/server-side failure
	// that persisted past the retry cap
	ReasonTransientRemote Reason = "TRANSIENT_REMOTE_ERROR"
	// ReasonPermanentRemote indicates a semantic remote rejection; never retried
	ReasonPermanentRemote Reason = "PERMANENT_REMOTE_ERROR"
	// ReasonConflict indicates a concurrent sync job was already running
	ReasonConflict Reason = "CONFLICT_ERROR"
	// ReasonNotFound indicates a referenced campaign/creative was absent
	ReasonNotFound Reason = "NOT_FOUND_ERROR"
	// ReasonCancelled indicates the owning job/operation was cancelled
	ReasonCancelled Reason = "CANCELLED"
	// ReasonInternal indicates a fault outside the known taxonomy;
	// it is the only reason that triggers an error.critical event
	ReasonInternal Reason = "INTERNAL_ERROR"
)

// TransientError wraps a remote failure that is eligible for retry
// (timeouts, rate limiting, server-side faults)
type TransientError struct {
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient remote error: %v", e.Err)
}

// Unwrap returns the wrapped error
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is classified as retry-eligible
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// PermanentError wraps a semantic remote rejection that retrying cannot fix
type PermanentError struct {
	Code string
	Err  error
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("permanent remote error [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("permanent remote error: %v", e.Err)
}

// Unwrap returns the wrapped error
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError with a remote error code
func Permanent(code string, err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Code: code, Err: err}
}

// IsPermanent reports whether err is a semantic remote rejection
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ValidationError describes a malformed request or row; never retried
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return "validation error: " + e.Message
}

// Invalid creates a ValidationError for a field
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ClassifyReason maps an error to its taxonomy reason code. Errors outside
// the taxonomy classify as ReasonInternal.
func ClassifyReason(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case IsTransient(err) || errors.Is(err, context.DeadlineExceeded):
		return ReasonTransientRemote
	case IsPermanent(err):
		return ReasonPermanentRemote
	case errors.Is(err, ErrConflict):
		return ReasonConflict
	case errors.Is(err, ErrRemoteCampaignNotFound), errors.Is(err, ErrJobNotFound), errors.Is(err, ErrBindingNotFound):
		return ReasonNotFound
	default:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ReasonValidation
		}
		return ReasonInternal
	}
}
