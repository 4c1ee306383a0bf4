// Package storage provides request-scoped temporary file storage.
// It defines the Storage interface (port) used by the conversion pipeline
// and a local disk implementation.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary file storage.
// Every path handed out must be released through CleanupTemp.
type Storage interface {
	// SaveTemp saves data to a new uniquely named temporary file and returns its path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// TempPath reserves a unique temporary path with the given extension.
	// Nothing is created on disk.
	TempPath(name, ext string) string

	// LoadTemp opens a temporary file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}
