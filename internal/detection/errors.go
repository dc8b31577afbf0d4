package detection

import "errors"

var (
	// ErrInvalidCategory indicates a malformed prohibited-object category.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidThreshold indicates a detection threshold outside its valid range.
	ErrInvalidThreshold = errors.New("invalid threshold")
)
