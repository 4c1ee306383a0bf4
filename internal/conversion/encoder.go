// Package conversion turns uploaded videos into size-bounded animated GIFs.
// The AdaptiveEncoder runs the extract/encode/size-check loop, and the
// Service adds validation, temp file lifecycle and delivery around it.
package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/maauso/video2gif-api/internal/media"
)

// Adaptive encode defaults.
const (
	DefaultSizeBudget  int64 = 8 << 20
	DefaultMaxAttempts       = 3
)

// Artifact is an encoded GIF on disk.
type Artifact struct {
	Path string
	Size int64
}

// AttemptResult records one executed plan and the artifact size it produced.
type AttemptResult struct {
	Plan Plan
	Size int64
	// Frames is the number of frames encoded, or 0 when the source does not
	// report it.
	Frames   int
	Duration time.Duration
}

// EncodeRequest describes one adaptive encode.
type EncodeRequest struct {
	// VideoPath is the saved source video; it is re-read by every attempt.
	VideoPath string
	// ArtifactPath is overwritten by every attempt.
	ArtifactPath string
	FPS          int
	Scale        float64
	// RequestID is attached to log records.
	RequestID string
}

// Result is the outcome of an adaptive encode.
type Result struct {
	Artifact Artifact
	Attempts []AttemptResult
	State    State
}

// AdaptiveEncoder encodes a video as a GIF and, when size is enforced,
// re-encodes with reduced fps and scale until the artifact fits the budget
// or the retry ceiling is reached.
type AdaptiveEncoder struct {
	extractor    media.Extractor
	encoder      media.Encoder
	budget       int64
	maxAttempts  int
	sizeEnforced bool
	logger       *slog.Logger
}

// EncoderOption configures an AdaptiveEncoder.
type EncoderOption func(*AdaptiveEncoder)

// WithSizeBudget sets the artifact byte budget.
func WithSizeBudget(b int64) EncoderOption {
	return func(a *AdaptiveEncoder) {
		if b > 0 {
			a.budget = b
		}
	}
}

// WithMaxAttempts sets how many retries follow the initial attempt.
// Values above MaxRetries are clamped to MaxRetries; negative values are
// ignored.
func WithMaxAttempts(n int) EncoderOption {
	return func(a *AdaptiveEncoder) {
		if n >= 0 {
			a.maxAttempts = min(n, MaxRetries)
		}
	}
}

// WithSizeEnforced toggles the size check. When disabled the first artifact
// is always accepted.
func WithSizeEnforced(enforced bool) EncoderOption {
	return func(a *AdaptiveEncoder) {
		a.sizeEnforced = enforced
	}
}

// WithEncoderLogger sets the logger.
func WithEncoderLogger(l *slog.Logger) EncoderOption {
	return func(a *AdaptiveEncoder) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdaptiveEncoder creates an AdaptiveEncoder with size enforcement on,
// an 8 MiB budget and 3 retries.
func NewAdaptiveEncoder(extractor media.Extractor, encoder media.Encoder, opts ...EncoderOption) *AdaptiveEncoder {
	a := &AdaptiveEncoder{
		extractor:    extractor,
		encoder:      encoder,
		budget:       DefaultSizeBudget,
		maxAttempts:  DefaultMaxAttempts,
		sizeEnforced: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Encode runs the adaptive loop. The returned Result is never nil and
// records every executed attempt, even on failure.
func (a *AdaptiveEncoder) Encode(ctx context.Context, req EncodeRequest) (*Result, error) {
	m := newMachine()
	res := &Result{State: m.state}
	defer func() { res.State = m.state }()

	base := Plan{Attempt: 0, FPS: req.FPS, Scale: req.Scale}
	plan := base

	for {
		ar, err := a.attempt(ctx, m, req, plan)
		if err != nil {
			m.fail()
			return res, err
		}
		res.Attempts = append(res.Attempts, ar)
		size := ar.Size

		a.logger.Info("gif attempt encoded",
			slog.String("request_id", req.RequestID),
			slog.Int("attempt", plan.Attempt),
			slog.Int("fps", plan.FPS),
			slog.Float64("scale", plan.Scale),
			slog.Int("frames", ar.Frames),
			slog.String("size", humanize.IBytes(uint64(size))),
			slog.Duration("duration", ar.Duration),
		)

		if !a.sizeEnforced || size <= a.budget {
			if err := m.to(StateDone); err != nil {
				m.fail()
				return res, err
			}
			res.Artifact = Artifact{Path: req.ArtifactPath, Size: size}
			return res, nil
		}

		if plan.Attempt >= a.maxAttempts {
			m.fail()
			return res, fmt.Errorf("%w: %s after %d attempts, budget %s",
				ErrCompressionBudgetExceeded,
				humanize.IBytes(uint64(size)),
				len(res.Attempts),
				humanize.IBytes(uint64(a.budget)),
			)
		}

		if err := m.to(StateRetrying); err != nil {
			m.fail()
			return res, err
		}
		plan = NextPlan(base, plan.Attempt+1)

		a.logger.Info("gif over budget, retrying",
			slog.String("request_id", req.RequestID),
			slog.String("size", humanize.IBytes(uint64(size))),
			slog.String("budget", humanize.IBytes(uint64(a.budget))),
			slog.String("next", plan.String()),
		)
	}
}

// attempt extracts frames for plan, encodes them to the artifact path and
// measures the artifact. The frame source is closed on every path.
func (a *AdaptiveEncoder) attempt(ctx context.Context, m *machine, req EncodeRequest, plan Plan) (AttemptResult, error) {
	start := time.Now()
	ar := AttemptResult{Plan: plan}

	if err := m.to(StateExtracting); err != nil {
		return ar, err
	}
	src, err := a.extractor.Extract(ctx, req.VideoPath, media.ExtractOptions{
		FPS:   plan.FPS,
		Scale: plan.Scale,
	})
	if err != nil {
		return ar, fmt.Errorf("extract frames (%s): %w", plan, err)
	}
	defer func() { _ = src.Close() }()

	if err := m.to(StateEncoding); err != nil {
		return ar, err
	}
	if err := a.encoder.Encode(ctx, src, plan.FPS, req.ArtifactPath); err != nil {
		return ar, fmt.Errorf("encode gif (%s): %w", plan, err)
	}

	if sr, ok := src.(media.StatsReporter); ok {
		st := sr.Stats()
		ar.Frames = st.Emitted
		a.logger.Debug("frames sampled",
			slog.String("request_id", req.RequestID),
			slog.Int("attempt", plan.Attempt),
			slog.Int("stride", st.Stride),
			slog.Int("width", st.Width),
			slog.Int("height", st.Height),
			slog.Int("emitted", st.Emitted),
			slog.Int("expected", st.Expected),
		)
	}

	if err := m.to(StateSizeCheck); err != nil {
		return ar, err
	}
	info, err := os.Stat(req.ArtifactPath)
	if err != nil {
		return ar, fmt.Errorf("stat artifact: %w", err)
	}
	ar.Size = info.Size()
	ar.Duration = time.Since(start)
	return ar, nil
}
