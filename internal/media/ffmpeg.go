package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Compile-time check that FFmpegExtractor implements Extractor.
var _ Extractor = (*FFmpegExtractor)(nil)

// FFmpegExtractor implements Extractor using the ffmpeg and ffprobe CLIs.
// Frames are decoded to raw rgb24 on ffmpeg's stdout and sampled in-process.
type FFmpegExtractor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegExtractor creates a new FFmpegExtractor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegExtractor(ffmpegPath, ffprobePath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Extract probes videoPath, starts a decoder and returns a stream of frames
// sampled at opts.FPS and resized by opts.Scale. The caller must Close the
// returned source; it is also closed when it reaches its end.
func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath string, opts ExtractOptions) (FrameSource, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFPS, opts.FPS)
	}

	info, err := e.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: probe: %w", ErrDecode, err)
	}

	dstW, dstH, err := ScaledDimensions(info.Width, info.Height, opts.Scale, opts.EvenDimensions)
	if err != nil {
		return nil, err
	}
	stride := Stride(info.FrameRate, opts.FPS)

	args := []string{
		"-v", "error",
		"-nostdin",
		"-noautorotate", // Keep decoded size equal to the probed size
		"-i", videoPath,
		"-an", "-sn",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}

	decodeCtx, cancel := context.WithCancel(ctx)
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(decodeCtx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrDecode, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start ffmpeg: %w", ErrDecode, err)
	}

	closer := func(drained bool) error {
		defer cancel()
		if !drained {
			// Consumer stopped early; kill the decoder before reaping it.
			cancel()
			_ = cmd.Wait()
			return nil
		}
		if err := cmd.Wait(); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
			}
			return &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
		}
		return nil
	}

	s := newFrameStream(stdout, closer, info.Width, info.Height, dstW, dstH, stride)
	s.expected = SampledFrameCount(info.FrameCount, stride)
	return s, nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
