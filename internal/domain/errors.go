package domain

import "errors"

var (
	// ErrInvalidRequest is returned when caller input is empty or malformed
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRegionUnresolved is returned when no region id can be derived from the credential
	ErrRegionUnresolved = errors.New("could not determine region from session ID")

	// ErrSessionNotFound is returned when a processing session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrRepository is returned when the session/product store fails
	ErrRepository = errors.New("repository operation failed")

	// ErrUpstreamFailure is returned when the catalog request cannot be completed
	ErrUpstreamFailure = errors.New("catalog request failed")

	// ErrUpstreamStatus is returned when the catalog answers with a non-200 status
	ErrUpstreamStatus = errors.New("catalog returned unexpected status")

	// ErrResponseTooLarge is returned when a catalog body exceeds the configured size bound
	ErrResponseTooLarge = errors.New("catalog response exceeds size limit")

	// ErrTooDeep is returned when a product object nests deeper than the configured bound
	ErrTooDeep = errors.New("catalog response nesting exceeds depth limit")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
