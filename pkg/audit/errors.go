package audit

import "errors"

var (
	ErrInvalidEvent = errors.New("audit: invalid event")
	ErrWriterClosed = errors.New("audit: writer is closed")
	ErrBufferFull   = errors.New("audit: buffer is full")
	ErrWriteFailed  = errors.New("audit: failed to write events")
)
