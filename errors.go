package main

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned when an ingestion is cancelled before it completes.
	ErrAborted = errors.New("operation cancelled")

	// ErrArchiveRead is returned when an archive cannot be fully expanded.
	ErrArchiveRead = errors.New("failed to read archive")

	// ErrUndecodable marks a file whose bytes are not text.
	ErrUndecodable = errors.New("content is not decodable text")

	// ErrNotFound is returned when a path does not name a node in the tree.
	ErrNotFound = errors.New("path not found")

	// ErrNotExcludable is returned when exclusion targets anything but a processed file.
	ErrNotExcludable = errors.New("only processed files can be excluded")

	// ErrNothingLoaded is returned by operations that need a previous ingestion.
	ErrNothingLoaded = errors.New("nothing has been ingested")
)

// errSuperseded is the cancellation cause used when a newer ingestion starts.
var errSuperseded = errors.New("superseded by a newer ingestion")

// aborted wraps the context's cancellation cause in ErrAborted.
func aborted(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = errSuperseded
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// checkAborted returns an ErrAborted error once ctx is done.
func checkAborted(ctx context.Context) error {
	if ctx.Err() != nil {
		return aborted(ctx)
	}
	return nil
}

func isAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
