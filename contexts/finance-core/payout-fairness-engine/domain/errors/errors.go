package errors

import "errors"

var (
	ErrInvalidRequest        = errors.New("fairness audit request is invalid")
	ErrValidation            = errors.New("payout split input is invalid")
	ErrNotFound              = errors.New("fairness audit resource not found")
	ErrDistributionNotFound  = errors.New("no payout distribution or payments recorded for challenge")
	ErrDataUnavailable       = errors.New("optional audit data unavailable")
	ErrDependencyUnavailable = errors.New("fairness audit dependency unavailable")
	ErrConflict              = errors.New("fairness audit record conflict")
)
