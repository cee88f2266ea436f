package transfer

import (
	"errors"

	"github.com/example/trading-services/internal/store"
)

var (
	ErrInvalidRequest    = errors.New("missing required parameters")
	ErrNotFound          = store.ErrNotFound
	ErrOwnershipMismatch = store.ErrOwnerMismatch
	ErrPersistence       = errors.New("failed to persist records")
)

// Outcome names a transfer result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOwnershipMismatch):
		return "ownership_mismatch"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "error"
	}
}

// Message is the client-facing text for err.
func Message(err error) string {
	for _, kind := range []error{ErrInvalidRequest, ErrNotFound, ErrOwnershipMismatch, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}
