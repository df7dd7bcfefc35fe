package model

import "errors"

// Error categories. Callers wrap these with context and test with errors.Is.
var (
	// ErrParse covers malformed filenames, malformed XML or zip containers,
	// and missing mandatory fields.
	ErrParse = errors.New("parse error")
	// ErrNotFound covers a missing root archive or an unknown task id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidChain covers forked, cyclic, or dangling archive chains.
	ErrInvalidChain = errors.New("invalid chain")
	// ErrInvalidArgument covers caller misuse such as writing before open.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIO wraps filesystem and container failures.
	ErrIO = errors.New("io error")
)
