package ports

import "errors"

// Error kinds shared by adapters and use cases; callers classify with errors.Is.
var (
	ErrPrecondition     = errors.New("precondition failed")
	ErrUnknownRecording = errors.New("unknown recording")
	ErrUnknownFormat    = errors.New("unknown annotation format")
	ErrMissingFile      = errors.New("missing file")
	ErrPathExists       = errors.New("path already exists")
	ErrLocked           = errors.New("project index is locked by another operation")
	ErrConverterCrashed = errors.New("converter crashed")
)
