package core

import "errors"

var (
	// ErrUnauthorized is returned when a handshake carries no valid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAMember is returned for operations on rooms the user does not
	// belong to.
	ErrNotAMember = errors.New("not a member")
	// ErrBadRequest is returned for inbound payloads that fail validation.
	ErrBadRequest = errors.New("bad request")
	// ErrClosed is returned for operations on a closed session.
	ErrClosed = errors.New("session closed")
)
