package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// ErrCleanupFailed is returned when a temporary file could not be removed
// after all retries.
var ErrCleanupFailed = errors.New("cleanup failed")

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// Default cleanup retry policy. Removal can fail transiently while another
// process still holds the file open on some platforms.
const (
	DefaultCleanupTries = 3
	DefaultCleanupDelay = 200 * time.Millisecond
)

// LocalStorage implements the Storage interface using local disk.
type LocalStorage struct {
	tempDir      string
	cleanupTries uint
	cleanupDelay time.Duration
}

// Option configures a LocalStorage.
type Option func(*LocalStorage)

// WithCleanupRetry sets how many times a removal is attempted and the fixed
// delay between attempts.
func WithCleanupRetry(tries int, delay time.Duration) Option {
	return func(s *LocalStorage) {
		if tries > 0 {
			s.cleanupTries = uint(tries)
		}
		if delay >= 0 {
			s.cleanupDelay = delay
		}
	}
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where temporary files are stored.
// If tempDir is empty, a "video2gif" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string, opts ...Option) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "video2gif")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	s := &LocalStorage{
		tempDir:      tempDir,
		cleanupTries: DefaultCleanupTries,
		cleanupDelay: DefaultCleanupDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp saves data to a temporary file and returns the file path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// TempPath returns a unique path inside the temp directory of the form
// <name>_<uuid><ext>.
func (s *LocalStorage) TempPath(name, ext string) string {
	return filepath.Join(s.tempDir, name+"_"+uuid.NewString()+ext)
}

// LoadTemp reads a temporary file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified temporary files. Missing files are not
// an error. Each removal is retried with a fixed delay; paths that still
// cannot be removed are reported as ErrCleanupFailed after the remaining
// paths have been processed.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := s.remove(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%w: remove temp file %s: %w", ErrCleanupFailed, p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *LocalStorage) remove(ctx context.Context, path string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cleanupDelay)),
		backoff.WithMaxTries(s.cleanupTries),
	)
	return err
}
