package constants

import "errors"

// Configuration errors.
var (
	ErrNoServicesConfigured = errors.New("no services configured, use 'clientable services add' to add one")
	ErrServiceExists        = errors.New("service already configured")
	ErrServiceNotConfigured = errors.New("service not configured")
	ErrResourceNotFound     = errors.New("resource not found")
)

// Validation errors.
var (
	ErrInvalidFilter     = errors.New("filter must be in the form key=value or key:op=value")
	ErrInvalidData       = errors.New("data must be a JSON object")
	ErrInvalidDataList   = errors.New("data must be a JSON array of objects")
	ErrDataRequired      = errors.New("--data or --file is required")
	ErrInvalidOutput     = errors.New("output must be one of table, json, yaml")
	ErrAggregateKeyCount = errors.New("aggregate requires a method and at least one key")
	ErrInvalidHeader     = errors.New("header must be in the form Name: value or Name=value")
)

// File system errors.
var (
	ErrNotRegularFile             = errors.New("path is not a regular file")
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
)
