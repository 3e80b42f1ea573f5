package ledger

import "errors"

var (
	ErrNotFound        = errors.New("ledger entry not found")
	ErrForbidden       = errors.New("not allowed to act on this worker's ledger")
	ErrSettled         = errors.New("entry is settled and cannot be changed")
	ErrAlreadyDeducted = errors.New("advance has already been deducted")
	ErrInvalidEntry    = errors.New("invalid ledger entry")
)

// invalidError carries a caller-fixable message. errors.Is(err, ErrInvalidEntry)
// matches it.
type invalidError string

func (e invalidError) Error() string        { return string(e) }
func (e invalidError) Is(target error) bool { return target == ErrInvalidEntry }
