package repository

import "errors"

var (
	// ErrBlobNotFound is returned when a key is not present in a blob store.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrBucketNotFound is returned when the configured object storage bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrUnauthenticated is returned when the backend has no valid session.
	ErrUnauthenticated = errors.New("backend session is not authenticated")

	// ErrBackendUnavailable is returned when the backend answers with a non-success status.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
