package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewImgBBClient(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewImgBBClient("  ")
		if !errors.Is(err, ErrAPIKeyRequired) {
			t.Errorf("expected ErrAPIKeyRequired, got %v", err)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		hc := &http.Client{}
		c, err := NewImgBBClient("key",
			WithHTTPClient(hc),
			WithEndpoint("http://example.test/upload"),
			WithExpiration(10*time.Minute),
		)
		if err != nil {
			t.Fatalf("NewImgBBClient() error = %v", err)
		}
		if c.httpClient != hc {
			t.Error("expected custom HTTP client")
		}
		if c.endpoint != "http://example.test/upload" {
			t.Errorf("endpoint = %s", c.endpoint)
		}
		if c.expiration != 10*time.Minute {
			t.Errorf("expiration = %v", c.expiration)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := NewImgBBClient("key", WithTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("NewImgBBClient() error = %v", err)
		}
		if c.endpoint != DefaultImgBBURL {
			t.Errorf("endpoint = %s, want %s", c.endpoint, DefaultImgBBURL)
		}
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
		}
	})

	t.Run("default timeout", func(t *testing.T) {
		c, err := NewImgBBClient("key")
		if err != nil {
			t.Fatalf("NewImgBBClient() error = %v", err)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", c.httpClient.Timeout)
		}
	})

	t.Run("timeout does not modify a shared client", func(t *testing.T) {
		shared := &http.Client{}
		c, err := NewImgBBClient("key", WithHTTPClient(shared), WithTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("NewImgBBClient() error = %v", err)
		}
		if shared.Timeout != 0 {
			t.Errorf("shared client timeout = %v, want unchanged", shared.Timeout)
		}
		if c.httpClient == shared {
			t.Error("expected a copy of the shared client")
		}
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
		}
	})

	t.Run("nil client with timeout", func(t *testing.T) {
		c, err := NewImgBBClient("key", WithHTTPClient(nil), WithTimeout(time.Second))
		if err != nil {
			t.Fatalf("NewImgBBClient() error = %v", err)
		}
		if c.httpClient == nil || c.httpClient.Timeout != time.Second {
			t.Errorf("httpClient = %+v, want a client with a 1s timeout", c.httpClient)
		}
	})
}

func TestImgBBClient_Upload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("key"); got != "secret" {
			t.Errorf("key = %q, want secret", got)
		}
		if got := r.FormValue("name"); got != "clip" {
			t.Errorf("name = %q, want clip", got)
		}
		if got := r.FormValue("expiration"); got != "600" {
			t.Errorf("expiration = %q, want 600", got)
		}

		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer func() { _ = f.Close() }()
		if hdr.Filename != "clip.gif" {
			t.Errorf("filename = %s, want clip.gif", hdr.Filename)
		}
		body, _ := io.ReadAll(f)
		if string(body) != "GIF89a" {
			t.Errorf("image body = %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"abc","url":"https://i.ibb.co/abc/clip.gif"},"success":true,"status":200}`))
	}))
	defer server.Close()

	c, err := NewImgBBClient("secret", WithEndpoint(server.URL), WithExpiration(10*time.Minute))
	if err != nil {
		t.Fatalf("NewImgBBClient() error = %v", err)
	}

	url, err := c.Upload(context.Background(), "/tmp/clip.gif", bytes.NewReader([]byte("GIF89a")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://i.ibb.co/abc/clip.gif" {
		t.Errorf("url = %s", url)
	}
}

func TestImgBBClient_Upload_OmitsExpirationByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if _, ok := r.MultipartForm.Value["expiration"]; ok {
			t.Error("expiration should not be sent")
		}
		_, _ = w.Write([]byte(`{"data":{"url":"https://i.ibb.co/x.gif"},"success":true,"status":200}`))
	}))
	defer server.Close()

	c, _ := NewImgBBClient("secret", WithEndpoint(server.URL))
	if _, err := c.Upload(context.Background(), "x.gif", strings.NewReader("GIF89a")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestImgBBClient_Upload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "service unavailable with message",
			status:     http.StatusServiceUnavailable,
			body:       `{"status_code":503,"error":{"message":"Service Unavailable","code":503},"status_txt":"Service Unavailable"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "Service Unavailable",
		},
		{
			name:       "bad request without json",
			status:     http.StatusBadRequest,
			body:       `nope`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Bad Request",
		},
		{
			name:       "malformed json",
			status:     http.StatusOK,
			body:       `{"data":`,
			wantStatus: http.StatusOK,
			wantMsg:    "malformed response",
		},
		{
			name:       "unsuccessful envelope",
			status:     http.StatusOK,
			body:       `{"success":false,"status":400,"error":{"message":"Invalid API v1 key."}}`,
			wantStatus: http.StatusOK,
			wantMsg:    "Invalid API v1 key.",
		},
		{
			name:       "missing url",
			status:     http.StatusOK,
			body:       `{"data":{},"success":true,"status":200}`,
			wantStatus: http.StatusOK,
			wantMsg:    "image URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewImgBBClient("secret", WithEndpoint(server.URL))
			_, err := c.Upload(context.Background(), "clip.gif", strings.NewReader("GIF89a"))
			if !errors.Is(err, ErrUploadFailed) {
				t.Fatalf("expected ErrUploadFailed, got %v", err)
			}

			var ue *Error
			if !errors.As(err, &ue) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ue.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", ue.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(Message(err), tt.wantMsg) {
				t.Errorf("Message() = %q, want it to contain %q", Message(err), tt.wantMsg)
			}
		})
	}
}

func TestImgBBClient_Upload_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, _ := NewImgBBClient("secret", WithEndpoint(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Upload(ctx, "clip.gif", strings.NewReader("GIF89a"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Errorf("expected ErrUploadFailed on timeout, got %v", err)
	}
}

func TestImgBBClient_Upload_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := NewImgBBClient("secret", WithEndpoint(url))
	_, err := c.Upload(context.Background(), "clip.gif", strings.NewReader("GIF89a"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Errorf("expected ErrUploadFailed, got %v", err)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(&Error{StatusCode: 503, Message: "busy"}); got != "busy" {
		t.Errorf("Message() = %q, want busy", got)
	}
	plain := errors.New("plain")
	if got := Message(plain); got != "plain" {
		t.Errorf("Message() = %q, want plain", got)
	}
}
