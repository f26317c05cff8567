package registry

import "errors"

var (
	// ErrNotFound signals that the referenced ride or driver does not exist.
	ErrNotFound = errors.New("registry: not found")
	// ErrInvalidTransition signals a lifecycle mutation attempted from a
	// state that does not permit it. The entity is left untouched.
	ErrInvalidTransition = errors.New("registry: invalid transition")
	// ErrConflict signals that a conditional write lost a race. Callers
	// must re-fetch the entity and decide; blind retries are wrong.
	ErrConflict = errors.New("registry: conflicting concurrent update")
	// ErrDriverUnavailable signals an assignment to a driver that is
	// offline or already at capacity.
	ErrDriverUnavailable = errors.New("registry: driver unavailable")
	// ErrStaleLocation signals a location update older than the stored one.
	ErrStaleLocation = errors.New("registry: stale location update")
	// ErrUnavailable signals that the backing store could not be reached
	// and no cached snapshot exists.
	ErrUnavailable = errors.New("registry: store unavailable")
)
