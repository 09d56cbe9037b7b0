package service

import "errors"

// Error kinds surfaced to the HTTP layer. Handlers map these to statuses and
// never leak collaborator detail to the client.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream service unavailable")
	ErrInternal     = errors.New("internal error")
)
