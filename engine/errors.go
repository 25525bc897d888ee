package engine

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMemberNotFound is returned for lookups and edits of an unknown
	// member id.
	ErrMemberNotFound = errors.New("member not found")

	// ErrDuplicateMember is returned when adding a member whose id is
	// already on the roster.
	ErrDuplicateMember = errors.New("member id already on roster")

	// ErrSchedulerStopped is returned by Wait when the scheduler shuts
	// down before the awaited pass commits.
	ErrSchedulerStopped = errors.New("scheduler stopped")
)
