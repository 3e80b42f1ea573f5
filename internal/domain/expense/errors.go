package expense

import "errors"

var (
	ErrNotFound     = errors.New("expense not found")
	ErrForbidden    = errors.New("not allowed to act on this expense")
	ErrInvalidInput = errors.New("invalid expense input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
