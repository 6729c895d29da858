package domain

import "errors"

var (
	ErrNotFound                = errors.New("resource not found")
	ErrRunNotFound             = errors.New("comparison run not found")
	ErrDocumentUnavailable     = errors.New("document could not be obtained")
	ErrInvalidCorrelationTable = errors.New("invalid correlation table")
	ErrUnsupportedCode         = errors.New("unsupported component code")
	ErrInvalidMode             = errors.New("invalid run mode")
	ErrDatabaseDisabled        = errors.New("database is not configured")
	ErrNoCodes                 = errors.New("no component codes given")
	ErrListingUnsupported      = errors.New("source cannot list its documents")
	ErrRateLimited             = errors.New("rate limited")
)
