package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"drowsisense/internal/vision"
)

var (
	// ErrCameraUnavailable is returned by Open when the requested device
	// cannot be opened at all. This is fatal to monitoring startup.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrNoFrame is returned by Read when no frame arrives within the read
	// timeout. It is a recoverable condition: the caller should back off
	// briefly and retry.
	ErrNoFrame = errors.New("no frame available")
)

// Stats contains frame capture statistics
type Stats struct {
	FramesCaptured uint64
	FramesDropped  uint64
	LastFrameTime  int64 // Unix timestamp
}

// Config controls how a Source captures frames
type Config struct {
	FPS         int
	Width       int
	Height      int
	ReadTimeout time.Duration
	// WarmupTimeout extends the timeout for the first frame, giving the
	// stream time to start producing
	WarmupTimeout time.Duration
}

// DefaultConfig returns capture defaults for the standard processing pipeline
func DefaultConfig() Config {
	return Config{
		FPS:           30,
		Width:         vision.StandardWidth,
		Height:        vision.StandardHeight,
		ReadTimeout:   2 * time.Second,
		WarmupTimeout: 5 * time.Second,
	}
}

// Source captures frames from a single video device using FFmpeg.
// It is owned exclusively by the monitoring loop: Read must only be called
// from one goroutine. Release is idempotent and safe to call multiple times.
type Source struct {
	device string
	cfg    Config

	cmd      *exec.Cmd
	frames   chan *vision.Frame
	stopCh   chan struct{}
	released atomic.Bool
	seq      atomic.Uint64
	firstOK  atomic.Bool

	stats   Stats
	statsMu sync.RWMutex
}

// DeviceForIndex maps a numeric camera index to a V4L2 device path
func DeviceForIndex(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// isNetworkSource checks if device is an HTTP/RTSP URL
func isNetworkSource(device string) bool {
	return strings.HasPrefix(device, "http://") ||
		strings.HasPrefix(device, "https://") ||
		strings.HasPrefix(device, "rtsp://")
}

// deviceAccessible checks whether a local device node exists and is readable.
// Network sources are verified by actually connecting.
func deviceAccessible(device string) bool {
	if isNetworkSource(device) {
		return true
	}

	if _, err := os.Stat(device); os.IsNotExist(err) {
		return false
	}

	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer file.Close()

	return true
}

// Open starts frame capture from the given device. The device may be a V4L2
// path (/dev/video0), an rtsp:// or http:// URL. Open fails with
// ErrCameraUnavailable when the device does not exist or FFmpeg cannot start.
func Open(device string, cfg Config) (*Source, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width = vision.StandardWidth
		cfg.Height = vision.StandardHeight
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}

	if !deviceAccessible(device) {
		return nil, fmt.Errorf("%w: device %s is not accessible", ErrCameraUnavailable, device)
	}

	s := &Source{
		device: device,
		cfg:    cfg,
		frames: make(chan *vision.Frame, 5),
		stopCh: make(chan struct{}),
	}

	if err := s.startFFmpeg(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	log.Printf("[Capture] Opened device %s (%dx%d @ %d fps)", device, cfg.Width, cfg.Height, cfg.FPS)
	return s, nil
}

func (s *Source) startFFmpeg() error {
	var args []string

	if strings.HasPrefix(s.device, "rtsp://") {
		args = []string{
			"-rtsp_transport", "tcp",
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", s.cfg.FPS),
			"-q:v", "5",
			"-",
		}
	} else if isNetworkSource(s.device) {
		args = []string{
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", s.cfg.FPS),
			"-q:v", "5",
			"-",
		}
	} else {
		// V4L2 device (USB camera)
		args = []string{
			"-f", "v4l2",
			"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
			"-framerate", fmt.Sprintf("%d", s.cfg.FPS),
			"-i", s.device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}

	s.cmd = exec.Command("ffmpeg", args...)

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Consume stderr silently
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	go s.readFrames(stdout)
	return nil
}

// readFrames extracts complete JPEG frames from the FFmpeg pipe and queues
// them for Read. Slow consumers drop frames rather than block capture.
func (s *Source) readFrames(stdout io.Reader) {
	frameBuffer := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 8192)

	for {
		select {
		case <-s.stopCh:
			return
		default:
			n, err := stdout.Read(chunk)
			if err != nil {
				if !s.released.Load() {
					log.Printf("[Capture] Read error on %s: %v", s.device, err)
				}
				return
			}

			frameBuffer = append(frameBuffer, chunk[:n]...)

			for {
				data := ExtractJPEGFrame(&frameBuffer)
				if data == nil {
					break
				}
				s.queueFrame(data)
			}
		}
	}
}

func (s *Source) queueFrame(data []byte) {
	frame := &vision.Frame{
		Data:      data,
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
	}

	s.statsMu.Lock()
	s.stats.FramesCaptured++
	s.stats.LastFrameTime = frame.Timestamp.Unix()
	s.statsMu.Unlock()

	select {
	case s.frames <- frame:
	default:
		// Consumer is slow, drop the frame
		s.statsMu.Lock()
		s.stats.FramesDropped++
		s.statsMu.Unlock()
	}
}

// Read returns the next captured frame. It blocks for at most the configured
// read timeout (extended for the very first frame while the stream warms up)
// and returns ErrNoFrame on expiry. ErrNoFrame is recoverable; the caller
// should retry after a brief pause.
func (s *Source) Read() (*vision.Frame, error) {
	if s.released.Load() {
		return nil, ErrNoFrame
	}

	timeout := s.cfg.ReadTimeout
	if !s.firstOK.Load() && s.cfg.WarmupTimeout > timeout {
		timeout = s.cfg.WarmupTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-s.frames:
		if !ok || frame == nil {
			return nil, ErrNoFrame
		}
		s.firstOK.Store(true)
		return frame, nil
	case <-s.stopCh:
		return nil, ErrNoFrame
	case <-timer.C:
		return nil, ErrNoFrame
	}
}

// Release stops capture and frees the device. It is idempotent: only the
// first call has any effect and later calls return immediately.
func (s *Source) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}

	close(s.stopCh)

	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}

	log.Printf("[Capture] Released device %s", s.device)
}

// GetStats returns a copy of the capture statistics
func (s *Source) GetStats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// ExtractJPEGFrame extracts one complete JPEG frame from the buffer, consuming
// the bytes through the end marker. Returns nil when no complete frame is
// present yet.
func ExtractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	// Find JPEG start marker (FFD8)
	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	// Find JPEG end marker (FFD9)
	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}
