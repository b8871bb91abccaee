package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidSession is returned when a session identifier is unusable
	ErrInvalidSession = errors.New("invalid session id")

	// ErrUnsupportedSchema is returned for records written by a newer version
	ErrUnsupportedSchema = errors.New("unsupported record schema version")
)
