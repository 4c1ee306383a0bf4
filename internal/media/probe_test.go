package media

import (
	"errors"
	"testing"
)

func TestParseRational(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
		{"30/x", 0},
	}

	for _, tt := range tests {
		if got := parseRational(tt.in); got != tt.want {
			t.Errorf("parseRational(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"programs": [],
		"streams": [
			{
				"width": 640,
				"height": 480,
				"r_frame_rate": "30/1",
				"avg_frame_rate": "30/1",
				"duration": "10.000000",
				"nb_frames": "300"
			}
		]
	}`)

	info, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if info.Width != 640 || info.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", info.Width, info.Height)
	}
	if info.FrameRate != 30 {
		t.Errorf("FrameRate = %v, want 30", info.FrameRate)
	}
	if info.FrameCount != 300 {
		t.Errorf("FrameCount = %d, want 300", info.FrameCount)
	}
	if info.Duration != 10 {
		t.Errorf("Duration = %v, want 10", info.Duration)
	}
}

func TestParseProbeOutput_FrameRateFallbacks(t *testing.T) {
	t.Run("falls back to r_frame_rate", func(t *testing.T) {
		info, err := parseProbeOutput([]byte(`{"streams":[{"width":2,"height":2,"avg_frame_rate":"0/0","r_frame_rate":"24/1"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.FrameRate != 24 {
			t.Errorf("FrameRate = %v, want 24", info.FrameRate)
		}
	})

	t.Run("defaults to 30 when unknown", func(t *testing.T) {
		info, err := parseProbeOutput([]byte(`{"streams":[{"width":2,"height":2,"avg_frame_rate":"0/0","r_frame_rate":"0/0","nb_frames":"N/A"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.FrameRate != DefaultFrameRate {
			t.Errorf("FrameRate = %v, want %v", info.FrameRate, DefaultFrameRate)
		}
		if info.FrameCount != 0 {
			t.Errorf("FrameCount = %d, want 0", info.FrameCount)
		}
	})
}

func TestParseProbeOutput_Errors(t *testing.T) {
	t.Run("no streams", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams":[]}`))
		if !errors.Is(err, ErrNoVideoStream) {
			t.Errorf("expected ErrNoVideoStream, got %v", err)
		}
	})

	t.Run("zero dimensions", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams":[{"width":0,"height":0}]}`))
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("expected ErrInvalidDimensions, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`not json`))
		if err == nil {
			t.Error("expected error for malformed output")
		}
	})
}
