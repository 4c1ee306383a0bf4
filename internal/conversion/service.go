package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/video2gif-api/internal/conversion/id"
	"github.com/maauso/video2gif-api/internal/storage"
	"github.com/maauso/video2gif-api/internal/upload"
)

// DeliveryMode selects how a finished GIF is returned.
type DeliveryMode string

const (
	// DeliveryHostedURL uploads the GIF and returns its URL.
	DeliveryHostedURL DeliveryMode = "hosted-url"
	// DeliveryDirectStream returns the GIF bytes to the caller.
	DeliveryDirectStream DeliveryMode = "direct-stream"
)

// IsValid returns true if the delivery mode is known.
func (m DeliveryMode) IsValid() bool {
	return m == DeliveryHostedURL || m == DeliveryDirectStream
}

// DefaultScale returns the scale used when neither caller nor config set one.
func (m DeliveryMode) DefaultScale() float64 {
	if m == DeliveryDirectStream {
		return 0.5
	}
	return 1.0
}

// AllowedExtensions lists the accepted video file extensions.
var AllowedExtensions = []string{"mp4", "webm", "mov", "avi"}

// Service defaults.
const (
	DefaultMaxUploadBytes int64 = 20 << 20
	DefaultFPS                  = 10
	sniffLen                    = 3072
)

// ErrUploaderRequired is returned when hosted-url delivery has no uploader.
var ErrUploaderRequired = errors.New("hosted-url delivery requires an uploader")

// Config holds the request-independent settings of a Service.
type Config struct {
	DeliveryMode   DeliveryMode
	MaxUploadBytes int64
	DefaultFPS     int
	// DefaultScale of 0 selects the delivery mode default.
	DefaultScale float64
	// VerifyContent rejects uploads whose bytes are not a video container.
	VerifyContent bool
}

// ConvertInput is one conversion request.
type ConvertInput struct {
	// Filename is the client-supplied name; only its extension is trusted.
	Filename string `validate:"required,videoext"`
	// Body is the uploaded video.
	Body io.Reader `validate:"required"`
	// Size is the declared upload size in bytes, or 0 when unknown.
	Size int64 `validate:"gte=0"`
	// FPS is nil when the caller did not set one; Validate fills the default.
	FPS *int `validate:"omitempty,gt=0"`
	// Scale is nil when the caller did not set one; Validate fills the default.
	Scale *float64 `validate:"omitempty,gt=0,lte=1"`
	// RequestID is generated when empty.
	RequestID string
}

// ConvertOutput is the result of a successful conversion.
type ConvertOutput struct {
	RequestID string
	Mode      DeliveryMode
	// URL is set in hosted-url mode.
	URL string
	// GIF holds the artifact bytes in direct-stream mode.
	GIF []byte
	// Filename is the suggested download name, <base>.gif.
	Filename string
	Size     int64
	Attempts []AttemptResult
}

// Service validates uploads, runs the adaptive encoder and delivers the
// artifact. Every temp file it creates is removed before Convert returns.
type Service struct {
	cfg      Config
	storage  storage.Storage
	encoder  *AdaptiveEncoder
	uploader upload.Uploader
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a new Service. uploader may be nil in direct-stream mode.
func NewService(cfg Config, store storage.Storage, encoder *AdaptiveEncoder, uploader upload.Uploader, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DeliveryMode == "" {
		cfg.DeliveryMode = DeliveryHostedURL
	}
	if !cfg.DeliveryMode.IsValid() {
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.DeliveryMode)
	}
	if cfg.DeliveryMode == DeliveryHostedURL && uploader == nil {
		return nil, ErrUploaderRequired
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = DefaultFPS
	}
	if cfg.DefaultScale <= 0 || cfg.DefaultScale > 1 {
		cfg.DefaultScale = cfg.DeliveryMode.DefaultScale()
	}

	v := validator.New()
	if err := v.RegisterValidation("videoext", func(fl validator.FieldLevel) bool {
		return hasVideoExtension(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register validation: %w", err)
	}

	return &Service{
		cfg:      cfg,
		storage:  store,
		encoder:  encoder,
		uploader: uploader,
		validate: v,
		logger:   logger,
	}, nil
}

// Mode returns the configured delivery mode.
func (s *Service) Mode() DeliveryMode {
	return s.cfg.DeliveryMode
}

// MaxUploadBytes returns the upload size ceiling.
func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// Validate checks in and fills fps and scale defaults for the fields the
// caller left unset; an explicit zero is rejected. It reads nothing
// from Body unless content verification is enabled.
func (s *Service) Validate(in ConvertInput) (ConvertInput, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return in, fieldError(verrs[0])
		}
		return in, newValidationError(CodeValidation, "invalid request: %v", err)
	}

	if in.Size > s.cfg.MaxUploadBytes {
		return in, FileTooLarge(s.cfg.MaxUploadBytes)
	}

	if in.FPS == nil {
		fps := s.cfg.DefaultFPS
		in.FPS = &fps
	}
	if in.Scale == nil {
		scale := s.cfg.DefaultScale
		in.Scale = &scale
	}

	if s.cfg.VerifyContent {
		body, err := sniffVideo(in.Body)
		if err != nil {
			return in, err
		}
		in.Body = body
	}
	return in, nil
}

func fieldError(fe validator.FieldError) *ValidationError {
	switch fe.Field() {
	case "Filename":
		if fe.Tag() == "required" {
			return newValidationError(CodeMissingFile, MsgNoFileSelected)
		}
		return newValidationError(CodeInvalidFormat, MsgInvalidFormat)
	case "Body":
		return newValidationError(CodeMissingFile, MsgNoFileProvided)
	case "FPS":
		return newValidationError(CodeValidation, "fps must be a positive integer")
	case "Scale":
		return newValidationError(CodeValidation, "scale must be greater than 0 and at most 1")
	default:
		return newValidationError(CodeValidation, "invalid %s", strings.ToLower(fe.Field()))
	}
}

func hasVideoExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return slices.Contains(AllowedExtensions, ext)
}

// sniffVideo inspects the leading bytes of r and returns a reader that
// replays them followed by the rest of r.
func sniffVideo(r io.Reader) (io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "video/") {
		return nil, newValidationError(CodeInvalidFormat, MsgInvalidFormat)
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}

// Convert validates in, encodes the upload as a GIF and delivers it
// according to the delivery mode. Temp files are removed on every path; a
// removal failure is joined to the returned error.
func (s *Service) Convert(ctx context.Context, in ConvertInput) (out *ConvertOutput, err error) {
	in, err = s.Validate(in)
	if err != nil {
		return nil, err
	}

	reqID := in.RequestID
	if reqID == "" {
		reqID = id.Generate()
	}
	logger := s.logger.With(slog.String("request_id", reqID))
	start := time.Now()

	var temps []string
	defer func() {
		cleanupErr := s.storage.CleanupTemp(context.WithoutCancel(ctx), temps)
		if cleanupErr != nil {
			logger.Error("failed to remove temp files",
				slog.Any("paths", temps),
				slog.String("error", cleanupErr.Error()),
			)
			err = errors.Join(err, cleanupErr)
			out = nil
		}
	}()

	counter := &countingReader{r: io.LimitReader(in.Body, s.cfg.MaxUploadBytes+1)}
	videoPath, err := s.storage.SaveTemp(ctx, reqID+"_source", counter)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	temps = append(temps, videoPath)

	if counter.n > s.cfg.MaxUploadBytes {
		return nil, FileTooLarge(s.cfg.MaxUploadBytes)
	}

	logger.Info("upload saved",
		slog.String("filename", in.Filename),
		slog.String("size", humanize.IBytes(uint64(counter.n))),
		slog.Int("fps", *in.FPS),
		slog.Float64("scale", *in.Scale),
	)

	artifactPath := s.storage.TempPath(reqID+"_gif", ".gif")
	temps = append(temps, artifactPath)

	res, err := s.encoder.Encode(ctx, EncodeRequest{
		VideoPath:    videoPath,
		ArtifactPath: artifactPath,
		FPS:          *in.FPS,
		Scale:        *in.Scale,
		RequestID:    reqID,
	})
	if err != nil {
		logger.Error("gif encoding failed",
			slog.Int("attempts", len(res.Attempts)),
			slog.String("state", string(res.State)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	out = &ConvertOutput{
		RequestID: reqID,
		Mode:      s.cfg.DeliveryMode,
		Filename:  gifName(in.Filename),
		Size:      res.Artifact.Size,
		Attempts:  res.Attempts,
	}

	f, err := s.storage.LoadTemp(ctx, res.Artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch s.cfg.DeliveryMode {
	case DeliveryHostedURL:
		url, uerr := s.uploader.Upload(ctx, out.Filename, f)
		if uerr != nil {
			logger.Error("gif upload failed", slog.String("error", uerr.Error()))
			return nil, uerr
		}
		out.URL = url
	case DeliveryDirectStream:
		data, rerr := io.ReadAll(f)
		if rerr != nil {
			return nil, fmt.Errorf("read artifact: %w", rerr)
		}
		out.GIF = data
	}

	logger.Info("conversion completed",
		slog.String("mode", string(s.cfg.DeliveryMode)),
		slog.String("size", humanize.IBytes(uint64(out.Size))),
		slog.Int("attempts", len(out.Attempts)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// gifName derives the download name from the uploaded filename.
func gifName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "output"
	}
	return base + ".gif"
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
