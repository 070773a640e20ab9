package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/expo-appointments/internal/repository"
)

// Booking error taxonomy.  Handlers classify with errors.Is.
var (
	// ErrInvalidRequest covers missing or malformed identifiers, dates and
	// times.  Never retried automatically.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is an ErrInvalidRequest for identifiers that do not
	// resolve to an existing, active resource.
	ErrNotFound = fmt.Errorf("%w: not found", ErrInvalidRequest)

	// ErrSlotUnavailable means the window is booked or no longer offered.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrPersistence means the lock could not be acquired, the transaction
	// aborted or the database is unreachable.  Nothing was written, so the
	// request is safe to retry.
	ErrPersistence = errors.New("persistence failure")

	// ErrForbidden means the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means the resource state does not allow the change.
	ErrConflict = errors.New("conflict")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// classified reports whether err already belongs to the taxonomy.
func classified(err error) bool {
	for _, target := range []error{ErrInvalidRequest, ErrSlotUnavailable, ErrPersistence, ErrForbidden, ErrConflict} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storageErr maps repository failures onto the taxonomy.  Anything not
// recognised is a persistence failure.
func storageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case classified(err):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, repository.ErrForbidden):
		return fmt.Errorf("%w: %s", ErrForbidden, op)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
