package service

import "errors"

// Domain errors returned by the Engine and the Directory.  They are
// usually wrapped with detail via fmt.Errorf("%w: ...") so callers must
// compare with errors.Is.
var (
	// ErrInvalidInput reports missing or malformed fields.  Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound reports an unknown restaurant, table or booking.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports that the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyBooked reports a reserve on a table that is taken.
	ErrAlreadyBooked = errors.New("table already booked")

	// ErrNotBooked reports a cancel or release on a free table, usually
	// because a concurrent cancel or release won.
	ErrNotBooked = errors.New("table is not booked")

	// ErrTransientConflict reports that the optimistic concurrency loop
	// ran out of attempts.  The whole request may be retried.
	ErrTransientConflict = errors.New("concurrent modification, retry the request")

	// ErrInternal wraps persistence and other infrastructure failures.
	ErrInternal = errors.New("internal error")
)
