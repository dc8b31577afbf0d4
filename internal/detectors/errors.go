package detectors

import "errors"

var (
	// ErrStatus indicates the backend answered with a non-2xx status.
	ErrStatus = errors.New("detector returned unexpected status")
	// ErrInvalidResponse indicates the backend body failed schema validation.
	ErrInvalidResponse = errors.New("detector response is invalid")
	// ErrEmptyFrame indicates an empty frame was submitted.
	ErrEmptyFrame = errors.New("frame is empty")
	// ErrFrameTooLarge indicates a frame above the configured size limit.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
)
