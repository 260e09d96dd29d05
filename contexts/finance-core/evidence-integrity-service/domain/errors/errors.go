package errors

import "errors"

var (
	ErrInvalidRequest        = errors.New("evidence package request is invalid")
	ErrNotFound              = errors.New("evidence resource not found")
	ErrDataUnavailable       = errors.New("optional evidence data unavailable")
	ErrDependencyUnavailable = errors.New("evidence dependency unavailable")
	ErrStorage               = errors.New("evidence storage failure")
	ErrIntegrityViolation    = errors.New("evidence bytes do not match recorded hash")
	ErrConflict              = errors.New("evidence record conflict")
)
