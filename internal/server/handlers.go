package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/swaggo/swag"

	"github.com/maauso/video2gif-api/internal/conversion"
	"github.com/maauso/video2gif-api/internal/media"
	"github.com/maauso/video2gif-api/internal/storage"
	"github.com/maauso/video2gif-api/internal/upload"
)

// Error codes returned outside the validation family.
const (
	CodeDecodeFailed     = "DECODE_FAILED"
	CodeEncodeFailed     = "ENCODE_FAILED"
	CodeBudgetExceeded   = "COMPRESSION_BUDGET_EXCEEDED"
	CodeUploadFailed     = "UPLOAD_FAILED"
	CodeCleanupFailed    = "CLEANUP_FAILED"
	CodeConversionFailed = "CONVERSION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

const (
	// multipartMemory is the part of a multipart body kept in memory; the
	// rest spills to temp files removed when the request ends.
	multipartMemory = 8 << 20
	// multipartOverhead is allowed on top of the upload ceiling for the
	// other form fields and part headers.
	multipartOverhead = 1 << 20
)

// Converter runs one conversion request.
type Converter interface {
	Convert(ctx context.Context, in conversion.ConvertInput) (*conversion.ConvertOutput, error)
	Mode() conversion.DeliveryMode
	MaxUploadBytes() int64
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	converter Converter
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(converter Converter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		converter: converter,
		logger:    logger,
	}
}

// Health handles GET /health requests.
//
// @Summary Health check
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		DeliveryMode: string(h.converter.Mode()),
	})
}

// Convert handles POST /convert requests.
//
// @Summary Convert a video to an animated GIF
// @Accept multipart/form-data
// @Produce json,image/gif
// @Param video formData file true "Video file (mp4, webm, mov, avi)"
// @Param fps formData integer false "Frames per second"
// @Param scale formData number false "Scale factor in (0, 1]"
// @Success 200 {object} ConvertResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /convert [post]
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	limit := h.converter.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			tooLarge := conversion.FileTooLarge(limit)
			writeError(w, http.StatusBadRequest, tooLarge.Message, tooLarge.Code)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			writeError(w, http.StatusBadRequest, conversion.MsgNoFileProvided, conversion.CodeMissingFile)
		default:
			h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "invalid multipart form", conversion.CodeValidation)
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		// A part sent without a filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value["video"]; ok {
			writeError(w, http.StatusBadRequest, conversion.MsgNoFileSelected, conversion.CodeMissingFile)
			return
		}
		writeError(w, http.StatusBadRequest, conversion.MsgNoFileProvided, conversion.CodeMissingFile)
		return
	}
	defer func() { _ = file.Close() }()

	fps, err := parseIntField(r, "fps")
	if err != nil {
		writeError(w, http.StatusBadRequest, "fps must be an integer", conversion.CodeValidation)
		return
	}
	scale, err := parseFloatField(r, "scale")
	if err != nil {
		writeError(w, http.StatusBadRequest, "scale must be a number", conversion.CodeValidation)
		return
	}

	out, err := h.converter.Convert(r.Context(), conversion.ConvertInput{
		Filename:  header.Filename,
		Body:      file,
		Size:      header.Size,
		FPS:       fps,
		Scale:     scale,
		RequestID: RequestIDFromContext(r.Context()),
	})
	if err != nil {
		status, code, msg := classifyError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("video to gif conversion failed",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, msg, code)
		return
	}

	if out.Mode == conversion.DeliveryDirectStream {
		writeGIF(w, out)
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{Success: true, GIFURL: out.URL})
}

// SwaggerDoc handles GET /swagger/doc.json requests.
func (h *Handlers) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "swagger document unavailable", CodeInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// classifyError maps a conversion error to a status, code and message.
// The primary failure decides the code; a joined cleanup failure is only
// reported on its own when nothing else failed.
func classifyError(err error) (int, string, string) {
	var ve *conversion.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Code, ve.Message
	}

	failed := "Failed to convert video to GIF: " + err.Error()
	switch {
	case errors.Is(err, media.ErrInvalidDimensions):
		return http.StatusInternalServerError, CodeEncodeFailed, failed
	case errors.Is(err, media.ErrDecode):
		return http.StatusInternalServerError, CodeDecodeFailed, failed
	case errors.Is(err, conversion.ErrCompressionBudgetExceeded):
		return http.StatusInternalServerError, CodeBudgetExceeded, failed
	case errors.Is(err, upload.ErrUploadFailed):
		msg := upload.Message(err)
		if errors.Is(err, storage.ErrCleanupFailed) {
			msg += "; temp file cleanup also failed"
		}
		return http.StatusInternalServerError, CodeUploadFailed, msg
	case errors.Is(err, storage.ErrCleanupFailed):
		return http.StatusInternalServerError, CodeCleanupFailed, failed
	default:
		return http.StatusInternalServerError, CodeConversionFailed, failed
	}
}

// parseIntField returns nil when key is absent or blank.
func parseIntField(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseFloatField returns nil when key is absent or blank.
func parseFloatField(r *http.Request, key string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// writeGIF writes a direct-stream artifact as an attachment.
func writeGIF(w http.ResponseWriter, out *conversion.ConvertOutput) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.GIF)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.GIF); err != nil {
		slog.Error("failed to write gif response", slog.String("error", err.Error()))
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
