package sessionkit

import "errors"

var (
	// ErrContextUnavailable is returned (or panicked with) when a consumer asks a
	// context for its session store and none was attached with [WithStore].
	ErrContextUnavailable = errors.New("session store unavailable: use within a WithStore scope")
	// ErrNetwork is returned when the remote session lookup could not be reached.
	ErrNetwork = errors.New("session lookup network error")
	// ErrRemoteRejection is returned when the remote session lookup answered
	// with a non-success status or an unusable body.
	ErrRemoteRejection = errors.New("session lookup rejected")
	// ErrStorageUnavailable is returned when durable storage fails during an
	// explicit sign-in or sign-out.
	ErrStorageUnavailable = errors.New("session storage unavailable")
	// ErrInvalidCredentials is returned for a sign-in attempt without an email.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreNotReady is returned by methods called on a nil or unbuilt store.
	ErrStoreNotReady = errors.New("session store not initialized")
)
