package detector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"drowsisense/internal/vision"
)

const facemeshName = "facemesh"

// meshVerdict is the JSON payload the face-mesh worker returns per frame
type meshVerdict struct {
	Drowsy     bool    `json:"drowsy"`
	Yawning    bool    `json:"yawning"`
	Confidence float64 `json:"confidence"`
	FaceFound  bool    `json:"face_found"`
}

// FacemeshBackend runs face-mesh based detection in a helper process.
// Frames are shipped over stdin as length-prefixed JPEG bytes; verdicts come
// back as length-prefixed JSON on a dedicated pipe (FD 3 in the child), which
// keeps the protocol clean of anything the helper prints to stdout.
type FacemeshBackend struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	dataPipe io.ReadCloser
	mu       sync.Mutex
	closed   bool
}

// NewFacemeshBackend starts the helper process. It fails when the worker
// command is not installed, which advances the fallback chain.
func NewFacemeshBackend(workerPath string) (*FacemeshBackend, error) {
	if workerPath == "" {
		return nil, fmt.Errorf("facemesh worker not configured")
	}

	python, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("python3 not available: %w", err)
	}
	if _, err := os.Stat(workerPath); err != nil {
		return nil, fmt.Errorf("facemesh worker script missing: %w", err)
	}

	cmd := exec.Command(python, "-u", workerPath)

	// Side-channel pipe: appears as FD 3 in the child
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("facemesh worker failed to start: %w", err)
	}

	// Parent must drop the write end so only the child holds it
	w.Close()

	log.Printf("[Facemesh] Worker started (pid %d)", cmd.Process.Pid)
	return &FacemeshBackend{cmd: cmd, stdin: stdin, dataPipe: r}, nil
}

func (b *FacemeshBackend) Name() string { return facemeshName }

func (b *FacemeshBackend) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.cmd.ProcessState == nil
}

// Detect ships one frame to the worker and decodes its verdict. Protocol or
// worker failures are logged and absorbed.
func (b *FacemeshBackend) Detect(_ context.Context, frame *vision.Frame) *Result {
	if frame == nil || len(frame.Data) == 0 {
		return safeResult(facemeshName, frame)
	}

	raw, err := b.communicate(frame.Data)
	if err != nil {
		log.Printf("[Facemesh] Worker error on frame %d: %v", frame.Seq, err)
		return safeResult(facemeshName, frame)
	}

	var verdict meshVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		log.Printf("[Facemesh] Bad verdict for frame %d: %v", frame.Seq, err)
		return safeResult(facemeshName, frame)
	}

	labels := []vision.Annotation{
		{Text: "Detector: facemesh", X: 10, Y: 30, Color: vision.ColorOK},
	}
	if !verdict.FaceFound {
		labels = append(labels, vision.Annotation{Text: "No face in frame", X: 10, Y: 70, Color: vision.ColorInfo})
	}
	if verdict.Drowsy {
		labels = append(labels, vision.Annotation{Text: "DROWSINESS DETECTED!", X: 10, Y: 70, Color: vision.ColorAlarm})
	}
	if verdict.Yawning {
		labels = append(labels, vision.Annotation{Text: "YAWNING DETECTED!", X: 10, Y: 110, Color: vision.ColorWarn})
	}

	return &Result{
		Drowsy:     verdict.Drowsy,
		Yawning:    verdict.Yawning,
		Confidence: verdict.Confidence,
		Frame:      vision.Annotate(frame, labels),
		Backend:    facemeshName,
	}
}

// communicate performs one request/response exchange with the worker.
// Protocol: [uint32 length][payload] in both directions, big endian.
func (b *FacemeshBackend) communicate(data []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("worker closed")
	}

	if err := binary.Write(b.stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := b.stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(b.dataPipe, header); err != nil {
		return nil, err
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(b.dataPipe, respBody)
	return respBody, err
}

func (b *FacemeshBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.stdin.Close()
	b.dataPipe.Close()
	return b.cmd.Wait()
}

var _ Backend = (*FacemeshBackend)(nil)
