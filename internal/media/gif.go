package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Compile-time check that GIFEncoder implements Encoder.
var _ Encoder = (*GIFEncoder)(nil)

// GIFEncoder writes frames as a looping animated GIF. Every frame is
// quantised to a fixed palette with Floyd-Steinberg dithering.
type GIFEncoder struct {
	palette color.Palette
}

// NewGIFEncoder creates a GIFEncoder using the Plan 9 palette.
func NewGIFEncoder() *GIFEncoder {
	return &GIFEncoder{palette: palette.Plan9}
}

// Encode drains src and writes the animation to dst, truncating any
// previous content. Each frame is shown for 1000/fps milliseconds.
func (e *GIFEncoder) Encode(ctx context.Context, src FrameSource, fps int, dst string) error {
	if fps <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFPS, fps)
	}

	anim := &gif.GIF{LoopCount: 0}
	delay := gifDelay(fps)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gif encode cancelled: %w", err)
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		img := frame.Image()
		p := image.NewPaletted(img.Bounds(), e.palette)
		draw.FloydSteinberg.Draw(p, img.Bounds(), img, image.Point{})

		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}

	if len(anim.Image) == 0 {
		return fmt.Errorf("%w: %w", ErrDecode, ErrNoFrames)
	}

	return writeGIF(dst, anim)
}

func writeGIF(dst string, anim *gif.GIF) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600) // #nosec G304 - dst is provided by trusted internal code
	if err != nil {
		return fmt.Errorf("create gif file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := gif.EncodeAll(w, anim); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode gif: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write gif file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close gif file: %w", err)
	}
	return nil
}
