// Package media decodes video sources into sampled raster frames and encodes
// frame sequences into animated GIFs.
package media

import (
	"context"
	"errors"
	"image"
)

// Static errors for media operations.
var (
	// ErrDecode is returned when a video source cannot be opened or yields no usable frames.
	ErrDecode = errors.New("decode failed")
	// ErrNoFrames is returned when sampling produced zero frames.
	ErrNoFrames = errors.New("no frames decoded")
	// ErrNoVideoStream is returned when the container has no video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrInvalidDimensions is returned when scaled dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidFPS is returned when the sampling rate is not positive.
	ErrInvalidFPS = errors.New("invalid fps: must be positive")
)

// DefaultFrameRate is assumed when the source does not report a usable frame rate.
const DefaultFrameRate = 30.0

// Frame is one decoded raster image. Pix holds interleaved RGB samples,
// row-major, three bytes per pixel and no row padding.
type Frame struct {
	// Index is the position of the frame in the decoded source sequence.
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// Image converts the frame into an RGBA image.
func (f Frame) Image() *image.RGBA {
	return rgbToRGBA(f.Pix, f.Width, f.Height)
}

// VideoInfo describes the first video stream of a source.
type VideoInfo struct {
	Width     int
	Height    int
	FrameRate float64
	// FrameCount is the stream frame count reported by the container, or 0 when unknown.
	FrameCount int
	// Duration is the stream duration in seconds, or 0 when unknown.
	Duration float64
}

// ExtractOptions configures one extraction pass.
type ExtractOptions struct {
	// FPS is the target sampling rate in frames per second.
	FPS int
	// Scale is applied to both axes of every emitted frame (0 < Scale <= 1).
	Scale float64
	// EvenDimensions rounds each scaled axis down to an even value.
	EvenDimensions bool
}

// StreamStats describes the sampling of a frame source.
type StreamStats struct {
	Stride  int
	Width   int
	Height  int
	Emitted int
	// Expected is the sampled frame count predicted from the container
	// frame count, or 0 when the container does not report one.
	Expected int
}

// StatsReporter is implemented by frame sources that report their sampling.
type StatsReporter interface {
	Stats() StreamStats
}

// FrameSource is an ordered, finite, non-restartable sequence of frames.
// Next returns io.EOF once the sequence is exhausted. Close releases the
// underlying decoder and is safe to call more than once.
type FrameSource interface {
	Next() (Frame, error)
	Close() error
}

// Extractor opens a video file and produces sampled, resized frames.
type Extractor interface {
	Extract(ctx context.Context, videoPath string, opts ExtractOptions) (FrameSource, error)
}

// Encoder assembles a frame sequence into an animated image written to dst.
// fps sets the per-frame display duration.
type Encoder interface {
	Encode(ctx context.Context, src FrameSource, fps int, dst string) error
}
