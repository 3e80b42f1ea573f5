package bill

import "errors"

var (
	ErrNotFound          = errors.New("bill not found")
	ErrForbidden         = errors.New("not allowed to act on this bill")
	ErrInvalidTransition = errors.New("bill status transition not allowed")
	ErrInvalidInput      = errors.New("invalid bill input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
