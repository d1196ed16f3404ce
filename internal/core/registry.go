package core

import (
	"context"
	"errors"
)

// Registry indexes completed runs by ID.
type Registry interface {
	// Register stores a record. Registering an ID twice fails with ErrExists.
	Register(ctx context.Context, rec Record) error

	// Get returns the record for runID.
	Get(ctx context.Context, runID string) (Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]Record, error)
}

var (
	ErrNotFound = errors.New("run not found")
	ErrExists   = errors.New("run already registered")
)
