package entity

import "errors"

// Domain errors
var (
	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDocument     = errors.New("document contains no extractable text")

	// Model / provider errors
	ErrModelNotFound   = errors.New("model not found")
	ErrUnknownSDK      = errors.New("unknown provider SDK family")
	ErrEmptyCompletion = errors.New("provider returned no completion choices")

	// Agent errors
	ErrAgentNotFound = errors.New("retrieval agent not found")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
