package allocation

import "errors"

var (
	ErrNotFound          = errors.New("allocation not found")
	ErrForbidden         = errors.New("not allowed to act on this allocation")
	ErrInvalidTransition = errors.New("allocation status transition not allowed")
	ErrReferenced        = errors.New("allocation is referenced by spending records and cannot be deleted")
	ErrInvalidInput      = errors.New("invalid allocation input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
