package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a lookup has no result
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks validation failures; the input never enters a bucket
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidBucket is returned when a bucket mixes parties or currencies
	ErrInvalidBucket = errors.New("invalid bucket")

	// ErrUndefinedRate is returned when gain/loss is requested against a zero or missing rate
	ErrUndefinedRate = errors.New("undefined exchange rate")

	// ErrRebuildFailed wraps any failure that rolled back a bucket rebuild.
	// The caller retries by re-issuing the rebuild.
	ErrRebuildFailed = errors.New("bucket rebuild failed")
)
