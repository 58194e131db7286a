package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrOCRUnavailable   = errors.New("ocr unavailable")
	ErrExtractionFailed = errors.New("structured extraction failed")
	ErrLockHeld         = errors.New("lock already held")
	ErrNotConfigured    = errors.New("not configured")
)
