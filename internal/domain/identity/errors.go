package identity

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not allowed to act on this user")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidParent      = errors.New("parent must outrank the new user and be within your span")
	ErrInactiveUser       = errors.New("user account is inactive")
	ErrInvalidInput       = errors.New("invalid user input")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidInput)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidInput }
