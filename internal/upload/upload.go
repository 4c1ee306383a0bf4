// Package upload provides collaborators that host a finished GIF and return
// a retrievable URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUploadFailed is returned for every failed upload: network errors,
// timeouts, non-success statuses and malformed responses alike.
var ErrUploadFailed = errors.New("upload failed")

// Uploader hosts an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data io.Reader) (url string, err error)
}

// Error carries the status and message reported by the image host.
// It matches ErrUploadFailed with errors.Is.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upload failed: %s", e.Message)
	}
	return fmt.Sprintf("upload failed: %s (status %d)", e.Message, e.StatusCode)
}

// Is reports whether target is ErrUploadFailed.
func (e *Error) Is(target error) bool {
	return target == ErrUploadFailed
}

// Message returns the collaborator-facing message of err: the host's own
// message when one was reported, otherwise the error text.
func Message(err error) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return err.Error()
}
