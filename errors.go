package kgweave

import "errors"

var (
	// ErrEmptyClusterID is returned for records missing their cluster_id.
	ErrEmptyClusterID = errors.New("kgweave: record missing cluster_id")

	// ErrEmptyAnswer is returned when a record's rendered answer text is empty.
	ErrEmptyAnswer = errors.New("kgweave: empty answer text")

	// ErrInputNotFound is returned when the input directory does not exist.
	ErrInputNotFound = errors.New("kgweave: input directory not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("kgweave: invalid configuration")
)
