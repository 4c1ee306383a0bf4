package media

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Compile-time check that FrameStream implements FrameSource.
var (
	_ FrameSource   = (*FrameStream)(nil)
	_ StatsReporter = (*FrameStream)(nil)
)

// FrameStream reads raw rgb24 frames from a decoder pipe, keeps every
// stride-th frame and resizes it to the target dimensions.
type FrameStream struct {
	r      io.Reader
	closer func(drained bool) error

	srcW, srcH int
	dstW, dstH int
	stride     int

	buf      []byte
	index    int
	emitted  int
	expected int
	err      error

	closeOnce sync.Once
	closeErr  error
	drained   bool
}

// newFrameStream builds a stream over r. closer is called exactly once;
// drained reports whether the decoder output was read to its end.
func newFrameStream(r io.Reader, closer func(drained bool) error, srcW, srcH, dstW, dstH, stride int) *FrameStream {
	if stride < 1 {
		stride = 1
	}
	return &FrameStream{
		r:      r,
		closer: closer,
		srcW:   srcW,
		srcH:   srcH,
		dstW:   dstW,
		dstH:   dstH,
		stride: stride,
		buf:    make([]byte, srcW*srcH*3),
	}
}

// Stride returns the sampling step of the stream.
func (s *FrameStream) Stride() int {
	return s.stride
}

// Size returns the dimensions of emitted frames.
func (s *FrameStream) Size() (int, int) {
	return s.dstW, s.dstH
}

// Emitted returns the number of frames returned so far.
func (s *FrameStream) Emitted() int {
	return s.emitted
}

// Stats reports the sampling parameters and the frames emitted so far.
func (s *FrameStream) Stats() StreamStats {
	w, h := s.Size()
	return StreamStats{
		Stride:   s.Stride(),
		Width:    w,
		Height:   h,
		Emitted:  s.Emitted(),
		Expected: s.expected,
	}
}

// Next returns the next sampled frame, or io.EOF when the source is exhausted.
// A source that ends without producing a frame fails with ErrDecode.
func (s *FrameStream) Next() (Frame, error) {
	if s.err != nil {
		return Frame{}, s.err
	}

	for {
		if _, err := io.ReadFull(s.r, s.buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// A trailing partial frame is dropped.
				s.drained = true
				return Frame{}, s.finish(nil)
			}
			return Frame{}, s.finish(err)
		}

		idx := s.index
		s.index++
		if idx%s.stride != 0 {
			continue
		}

		s.emitted++
		return Frame{
			Index:  idx,
			Width:  s.dstW,
			Height: s.dstH,
			Pix:    resizeRGB(s.buf, s.srcW, s.srcH, s.dstW, s.dstH),
		}, nil
	}
}

// finish releases the decoder and records the terminal error of the stream.
func (s *FrameStream) finish(readErr error) error {
	closeErr := s.Close()

	switch {
	case s.emitted == 0 && readErr != nil:
		s.err = fmt.Errorf("%w: read frame: %w", ErrDecode, readErr)
	case s.emitted == 0 && closeErr != nil:
		s.err = fmt.Errorf("%w: %w", ErrDecode, closeErr)
	case s.emitted == 0:
		s.err = fmt.Errorf("%w: %w", ErrDecode, ErrNoFrames)
	case readErr != nil:
		s.err = fmt.Errorf("%w: read frame %d: %w", ErrDecode, s.index, readErr)
	default:
		s.err = io.EOF
	}
	return s.err
}

// Close releases the decoder. It is idempotent.
func (s *FrameStream) Close() error {
	s.closeOnce.Do(func() {
		if s.err == nil && !s.drained {
			s.err = io.EOF
		}
		if s.closer != nil {
			s.closeErr = s.closer(s.drained)
		}
	})
	return s.closeErr
}
