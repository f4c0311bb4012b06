package appstore

import "errors"

var (
	// ErrDuplicatePending: the applicant already has a pending
	// application for the same club.
	ErrDuplicatePending = errors.New("a pending application for this club already exists")
	// ErrNotFound: no application with the given ID.
	ErrNotFound = errors.New("application not found")
	// ErrNotAuthorized: the authorization predicate denied the caller.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidTransition: the application is no longer pending.
	ErrInvalidTransition = errors.New("application already reviewed")
	// ErrPersistence: the blob store write failed; the in-memory
	// mutation was rolled back.
	ErrPersistence = errors.New("failed to persist applications")
)
