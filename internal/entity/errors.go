package entity

import "errors"

// Domain errors
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Agent errors
	ErrAgentNotFound = errors.New("agent not found")

	// Document / ingestion errors
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptDocument   = errors.New("document could not be parsed")

	// Chunk store errors
	ErrStoreUnavailable  = errors.New("vector store unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidCollection = errors.New("invalid collection name")

	// Embedding errors
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Generation errors
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrRateLimited           = errors.New("generation service rate limited")

	// File upload errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrTotalSizeTooLarge = errors.New("total file size too large")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
