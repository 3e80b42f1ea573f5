package attendance

import "errors"

var (
	ErrNotFound     = errors.New("attendance record not found")
	ErrForbidden    = errors.New("not allowed to mark this worker")
	ErrSettled      = errors.New("attendance is already settled and cannot be re-marked")
	ErrInvalidUnits = errors.New("day units must be 0, 0.5 or 1")
	ErrInvalidInput = errors.New("invalid attendance input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
