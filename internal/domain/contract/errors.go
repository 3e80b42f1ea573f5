package contract

import "errors"

var (
	ErrNotFound          = errors.New("contract not found")
	ErrForbidden         = errors.New("not allowed to act on this contract")
	ErrNotActive         = errors.New("contract is not active")
	ErrExceedsValue      = errors.New("payment exceeds remaining contract value")
	ErrInvalidTransition = errors.New("contract status transition not allowed")
	ErrInvalidInput      = errors.New("invalid contract input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
