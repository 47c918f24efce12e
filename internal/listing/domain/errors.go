package domain

import "errors"

var (
	ErrListingNotFound    = errors.New("listing not found")
	ErrInvalidListingData = errors.New("invalid listing data")
	ErrMalformedImageRef  = errors.New("malformed image reference")
	ErrImageNotFound      = errors.New("image not found")
	ErrObjectNotFound     = errors.New("object not found")
	ErrNoUploadBackend    = errors.New("no upload backend available")
	ErrRemoteWriteFailed  = errors.New("remote document write failed")
	ErrDocumentNotFound   = errors.New("remote document not found")
	ErrQuotaExceeded      = errors.New("local cache quota exceeded")
)
