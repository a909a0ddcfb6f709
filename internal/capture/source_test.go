package capture

import (
	"bytes"
	"errors"
	"testing"
)

func jpegBytes(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestExtractJPEGFrame(t *testing.T) {
	tests := []struct {
		name      string
		buffer    []byte
		wantFrame []byte
		wantRest  int // bytes remaining in the buffer after extraction
	}{
		{
			name:      "complete frame",
			buffer:    jpegBytes(0x01, 0x02, 0x03),
			wantFrame: jpegBytes(0x01, 0x02, 0x03),
			wantRest:  0,
		},
		{
			name:      "frame with trailing partial data",
			buffer:    append(jpegBytes(0x01), 0xFF, 0xD8, 0x02),
			wantFrame: jpegBytes(0x01),
			wantRest:  3,
		},
		{
			name:      "garbage before start marker",
			buffer:    append([]byte{0x00, 0x11, 0x22}, jpegBytes(0x05)...),
			wantFrame: jpegBytes(0x05),
			wantRest:  0,
		},
		{
			name:      "incomplete frame",
			buffer:    []byte{0xFF, 0xD8, 0x01, 0x02, 0x03},
			wantFrame: nil,
			wantRest:  5,
		},
		{
			name:      "no start marker",
			buffer:    []byte{0x00, 0x01, 0x02, 0x03},
			wantFrame: nil,
			wantRest:  4,
		},
		{
			name:      "too short",
			buffer:    []byte{0xFF, 0xD8},
			wantFrame: nil,
			wantRest:  2,
		},
		{
			name:      "empty buffer",
			buffer:    nil,
			wantFrame: nil,
			wantRest:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte(nil), tt.buffer...)
			got := ExtractJPEGFrame(&buf)

			if !bytes.Equal(got, tt.wantFrame) {
				t.Errorf("frame = % X, want % X", got, tt.wantFrame)
			}
			if len(buf) != tt.wantRest {
				t.Errorf("remaining buffer = %d bytes, want %d", len(buf), tt.wantRest)
			}
		})
	}
}

func TestExtractJPEGFrameConsumesSequentially(t *testing.T) {
	first := jpegBytes(0x01)
	second := jpegBytes(0x02)
	buf := append(append([]byte(nil), first...), second...)

	if got := ExtractJPEGFrame(&buf); !bytes.Equal(got, first) {
		t.Fatalf("first extraction = % X, want % X", got, first)
	}
	if got := ExtractJPEGFrame(&buf); !bytes.Equal(got, second) {
		t.Fatalf("second extraction = % X, want % X", got, second)
	}
	if got := ExtractJPEGFrame(&buf); got != nil {
		t.Fatalf("third extraction = % X, want nil", got)
	}
}

func TestDeviceForIndex(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "/dev/video0"},
		{1, "/dev/video1"},
		{10, "/dev/video10"},
	}

	for _, tt := range tests {
		if got := DeviceForIndex(tt.index); got != tt.want {
			t.Errorf("DeviceForIndex(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestIsNetworkSource(t *testing.T) {
	tests := []struct {
		device string
		want   bool
	}{
		{"rtsp://cam.local/stream", true},
		{"http://cam.local/mjpeg", true},
		{"https://cam.local/mjpeg", true},
		{"/dev/video0", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isNetworkSource(tt.device); got != tt.want {
			t.Errorf("isNetworkSource(%q) = %v, want %v", tt.device, got, tt.want)
		}
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/dev/video-does-not-exist", DefaultConfig())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("error = %v, want ErrCameraUnavailable", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FPS != 30 {
		t.Errorf("FPS = %d, want 30", cfg.FPS)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.ReadTimeout <= 0 || cfg.WarmupTimeout <= cfg.ReadTimeout {
		t.Errorf("timeouts = %s/%s, warmup must exceed read", cfg.ReadTimeout, cfg.WarmupTimeout)
	}
}
