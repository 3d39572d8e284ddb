package facility

import "errors"

// Domain error taxonomy. Mutation failures are recoverable: the aggregate is
// left untouched and the caller surfaces a message.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate")
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence failed")
)
