package entity

import "errors"

// Domain errors
var (
	// Context errors
	ErrContextNotFound = errors.New("context not found")
	ErrInvalidContext  = errors.New("invalid context id")

	// Pipeline errors
	ErrGenerationFailed     = errors.New("generation failed")
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrTotalSizeTooLarge = errors.New("total file size too large")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// GenerationError wraps a failure of the text generation backend.
// It matches ErrGenerationFailed and is safe for the caller to retry.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
