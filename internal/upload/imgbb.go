package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrAPIKeyRequired is returned when the ImgBB API key is not provided.
var ErrAPIKeyRequired = errors.New("imgbb: API key is required")

// DefaultImgBBURL is the ImgBB v1 upload endpoint.
const DefaultImgBBURL = "https://api.imgbb.com/1/upload"

// maxResponseBytes bounds how much of an ImgBB response is read.
const maxResponseBytes = 1 << 20

// Compile-time check that ImgBBClient implements Uploader.
var _ Uploader = (*ImgBBClient)(nil)

// ImgBBClient uploads images to ImgBB.
type ImgBBClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	expiration time.Duration
}

// ImgBBOption is a function that configures an ImgBBClient.
type ImgBBOption func(*ImgBBClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ImgBBOption {
	return func(ic *ImgBBClient) {
		ic.httpClient = c
	}
}

// WithEndpoint sets a custom upload endpoint.
func WithEndpoint(url string) ImgBBOption {
	return func(ic *ImgBBClient) {
		ic.endpoint = url
	}
}

// WithTimeout sets the request timeout. A client passed with WithHTTPClient
// is copied rather than modified.
func WithTimeout(d time.Duration) ImgBBOption {
	return func(ic *ImgBBClient) {
		if d > 0 {
			ic.timeout = d
		}
	}
}

// WithExpiration asks ImgBB to delete the image after d. Zero keeps it forever.
func WithExpiration(d time.Duration) ImgBBOption {
	return func(ic *ImgBBClient) {
		ic.expiration = d
	}
}

// NewImgBBClient creates a new ImgBB client.
func NewImgBBClient(apiKey string, opts ...ImgBBOption) (*ImgBBClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &ImgBBClient{
		apiKey:   apiKey,
		endpoint: DefaultImgBBURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// imgbbResponse is the ImgBB upload response envelope.
type imgbbResponse struct {
	Data    imgbbData  `json:"data"`
	Success bool       `json:"success"`
	Status  int        `json:"status"`
	Error   imgbbError `json:"error"`
}

type imgbbData struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	DeleteURL  string `json:"delete_url"`
}

type imgbbError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Upload sends data as a multipart image upload and returns data.url.
// It does not retry.
func (c *ImgBBClient) Upload(ctx context.Context, name string, data io.Reader) (string, error) {
	body, contentType, err := c.buildForm(name, data)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	var parsed imgbbResponse
	jsonErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if jsonErr == nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if jsonErr != nil {
		return "", &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", jsonErr)}
	}
	if !parsed.Success && parsed.Status != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if parsed.Data.URL == "" {
		return "", &Error{StatusCode: resp.StatusCode, Message: "response did not include an image URL"}
	}

	return parsed.Data.URL, nil
}

// buildForm encodes the API key, optional fields and the image file part.
func (c *ImgBBClient) buildForm(name string, data io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("key", c.apiKey); err != nil {
		return nil, "", err
	}
	if base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)); base != "" && base != "." {
		if err := w.WriteField("name", base); err != nil {
			return nil, "", err
		}
	}
	if c.expiration > 0 {
		if err := w.WriteField("expiration", strconv.Itoa(int(c.expiration.Seconds()))); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
