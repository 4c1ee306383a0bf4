package media

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawFrames builds n rgb24 frames of w x h where every byte of frame i is i.
func rawFrames(n, w, h int) []byte {
	size := w * h * 3
	out := make([]byte, 0, n*size)
	for i := 0; i < n; i++ {
		out = append(out, bytes.Repeat([]byte{byte(i)}, size)...)
	}
	return out
}

type closeRecorder struct {
	calls   int
	drained bool
	err     error
}

func (c *closeRecorder) close(drained bool) error {
	c.calls++
	c.drained = drained
	return c.err
}

func drain(t *testing.T, s FrameSource) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := s.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestFrameStream_Sampling(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		stride      int
		wantIndices []int
	}{
		{"ten frames stride three", 10, 3, []int{0, 3, 6, 9}},
		{"nine frames stride three", 9, 3, []int{0, 3, 6}},
		{"single frame", 1, 3, []int{0}},
		{"stride one keeps all", 4, 1, []int{0, 1, 2, 3}},
		{"stride larger than source", 4, 6, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &closeRecorder{}
			s := newFrameStream(bytes.NewReader(rawFrames(tt.total, 2, 2)), rec.close, 2, 2, 2, 2, tt.stride)

			frames := drain(t, s)

			require.Len(t, frames, len(tt.wantIndices))
			assert.Equal(t, SampledFrameCount(tt.total, tt.stride), len(frames))
			for i, f := range frames {
				assert.Equal(t, tt.wantIndices[i], f.Index)
				assert.Equal(t, byte(f.Index), f.Pix[0], "frame %d carries wrong pixels", f.Index)
			}
			assert.Equal(t, 1, rec.calls, "decoder must be released exactly once")
			assert.True(t, rec.drained)
		})
	}
}

func TestFrameStream_TenSecondsAt30FPS(t *testing.T) {
	stride := Stride(30, 10)
	require.Equal(t, 3, stride)

	w, h, err := ScaledDimensions(64, 48, 0.5, false)
	require.NoError(t, err)

	s := newFrameStream(bytes.NewReader(rawFrames(300, 64, 48)), nil, 64, 48, w, h, stride)
	frames := drain(t, s)

	require.Len(t, frames, 100)
	assert.Equal(t, 32, frames[0].Width)
	assert.Equal(t, 24, frames[0].Height)
	assert.Len(t, frames[0].Pix, 32*24*3)
}

func TestFrameStream_DropsTrailingPartialFrame(t *testing.T) {
	data := rawFrames(3, 2, 2)
	data = append(data, 1, 2, 3, 4, 5)

	s := newFrameStream(bytes.NewReader(data), nil, 2, 2, 2, 2, 1)
	frames := drain(t, s)

	assert.Len(t, frames, 3)
}

func TestFrameStream_EmptySourceIsDecodeError(t *testing.T) {
	rec := &closeRecorder{}
	s := newFrameStream(bytes.NewReader(nil), rec.close, 2, 2, 2, 2, 1)

	_, err := s.Next()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, ErrNoFrames)
	assert.Equal(t, 1, rec.calls)

	// The error is sticky and the decoder is not released twice.
	_, err = s.Next()
	assert.ErrorIs(t, err, ErrDecode)
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, rec.calls)
}

func TestFrameStream_DecoderFailureWithoutFrames(t *testing.T) {
	exitErr := &FFmpegError{Args: []string{"-i", "bad.mp4"}, Stderr: "Invalid data found", Err: errors.New("exit status 1")}
	rec := &closeRecorder{err: exitErr}
	s := newFrameStream(bytes.NewReader(nil), rec.close, 2, 2, 2, 2, 1)

	_, err := s.Next()

	assert.ErrorIs(t, err, ErrDecode)
	var ffErr *FFmpegError
	require.ErrorAs(t, err, &ffErr)
	assert.Contains(t, ffErr.Stderr, "Invalid data")
}

func TestFrameStream_DecoderFailureAfterFramesEndsStream(t *testing.T) {
	rec := &closeRecorder{err: errors.New("exit status 1")}
	s := newFrameStream(bytes.NewReader(rawFrames(2, 2, 2)), rec.close, 2, 2, 2, 2, 1)

	frames := drain(t, s)

	assert.Len(t, frames, 2)
}

func TestFrameStream_ReadError(t *testing.T) {
	readErr := errors.New("pipe broken")
	r := io.MultiReader(bytes.NewReader(rawFrames(1, 2, 2)), &failingReader{err: readErr})
	rec := &closeRecorder{}
	s := newFrameStream(r, rec.close, 2, 2, 2, 2, 1)

	_, err := s.Next()
	require.NoError(t, err)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, rec.calls)
	assert.False(t, rec.drained)
}

func TestFrameStream_EarlyClose(t *testing.T) {
	rec := &closeRecorder{}
	s := newFrameStream(bytes.NewReader(rawFrames(5, 2, 2)), rec.close, 2, 2, 2, 2, 1)

	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 1, rec.calls)
	assert.False(t, rec.drained)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameStream_FramesDoNotAliasBuffer(t *testing.T) {
	s := newFrameStream(bytes.NewReader(rawFrames(2, 2, 2)), nil, 2, 2, 2, 2, 1)

	first, err := s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)

	assert.Equal(t, byte(0), first.Pix[0])
}

func TestFrameStream_Accessors(t *testing.T) {
	s := newFrameStream(bytes.NewReader(rawFrames(4, 4, 4)), nil, 4, 4, 2, 2, 2)

	assert.Equal(t, 2, s.Stride())
	w, h := s.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	drain(t, s)
	assert.Equal(t, 2, s.Emitted())
}

func TestFrameStream_Stats(t *testing.T) {
	s := newFrameStream(bytes.NewReader(rawFrames(5, 4, 4)), nil, 4, 4, 2, 2, 2)
	s.expected = SampledFrameCount(5, 2)

	drain(t, s)
	assert.Equal(t, StreamStats{Stride: 2, Width: 2, Height: 2, Emitted: 3, Expected: 3}, s.Stats())
}

func TestResizeRGB(t *testing.T) {
	src := bytes.Repeat([]byte{200, 100, 50}, 8*6)

	out := resizeRGB(src, 8, 6, 4, 3)

	require.Len(t, out, 4*3*3)
	// A flat colour survives bilinear resampling.
	assert.InDelta(t, 200, int(out[0]), 1)
	assert.InDelta(t, 100, int(out[1]), 1)
	assert.InDelta(t, 50, int(out[2]), 1)
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
