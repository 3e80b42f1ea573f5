package settlement

import "errors"

var (
	ErrEmptySelection   = errors.New("no workers selected")
	ErrNoPendingEntries = errors.New("no pending salary entries to settle")
	ErrForbidden        = errors.New("not allowed to settle this worker")
	ErrNotWorker        = errors.New("settlement targets workers only")
	ErrEntriesChanged   = errors.New("pending entries changed during settlement")
)
