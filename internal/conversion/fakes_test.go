package conversion

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/video2gif-api/internal/media"
)

// fakeSource emits n empty frames and records whether it was closed.
type fakeSource struct {
	n      int
	i      int
	closed bool
}

func (s *fakeSource) Next() (media.Frame, error) {
	if s.i >= s.n {
		return media.Frame{}, io.EOF
	}
	s.i++
	return media.Frame{Index: s.i - 1, Width: 1, Height: 1, Pix: []byte{0, 0, 0}}, nil
}

func (s *fakeSource) Stats() media.StreamStats {
	return media.StreamStats{Stride: 1, Width: 1, Height: 1, Emitted: s.i, Expected: s.n}
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeExtractor hands out fakeSources and records the options of every call.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   []media.ExtractOptions
	sources []*fakeSource
	err     error
}

func (e *fakeExtractor) Extract(_ context.Context, _ string, opts media.ExtractOptions) (media.FrameSource, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, opts)
	if e.err != nil {
		return nil, e.err
	}
	src := &fakeSource{n: 3}
	e.sources = append(e.sources, src)
	return src, nil
}

// fakeEncoder drains the source and writes sizeFn(fps, call) bytes to dst.
type fakeEncoder struct {
	mu     sync.Mutex
	calls  int
	sizeFn func(fps, call int) int
	err    error
}

func (e *fakeEncoder) Encode(ctx context.Context, src media.FrameSource, fps int, dst string) error {
	e.mu.Lock()
	call := e.calls
	e.calls++
	e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := src.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}
	return os.WriteFile(dst, make([]byte, e.sizeFn(fps, call)), 0600)
}

// constSize always produces n bytes.
func constSize(n int) func(int, int) int {
	return func(int, int) int { return n }
}

// shrinking produces sizes[call], repeating the last entry.
func shrinking(sizes ...int) func(int, int) int {
	return func(_, call int) int {
		if call >= len(sizes) {
			return sizes[len(sizes)-1]
		}
		return sizes[call]
	}
}

// mockUploader is a testify mock of upload.Uploader.
type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, name string, data io.Reader) (string, error) {
	body, _ := io.ReadAll(data)
	args := m.Called(ctx, name, body)
	return args.String(0), args.Error(1)
}
