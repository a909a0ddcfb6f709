package detector

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"drowsisense/internal/vision"
)

const landmarkName = "landmark"

// RPC method names exposed by the external landmark inference service.
// Both use protobuf well-known types on the wire: Analyze takes the JPEG frame
// as a BytesValue and returns a Struct verdict, Check takes Empty.
const (
	landmarkAnalyzeMethod   = "/fatigue.v1.LandmarkDetector/Analyze"
	landmarkCheckMethod     = "/fatigue.v1.LandmarkDetector/Check"
	landmarkConfigureMethod = "/fatigue.v1.LandmarkDetector/Configure"
)

// LandmarkConfig holds configuration for the landmark backend
type LandmarkConfig struct {
	Endpoint     string
	EARThreshold float64 // Eye-aspect-ratio sensitivity, passed to the service
	DialTimeout  time.Duration
	CallTimeout  time.Duration
}

// LandmarkBackend is the high-fidelity detection backend. Facial-landmark
// extraction and the eye-aspect-ratio math run in an external inference
// service reached over gRPC; this client only ships frames and reads verdicts.
type LandmarkBackend struct {
	cfg  LandmarkConfig
	conn *grpc.ClientConn

	healthy  bool
	healthMu sync.RWMutex
}

// NewLandmarkBackend connects to the inference service and probes it. A dial
// or probe failure means the backend is unavailable and the caller should try
// the next candidate in the fallback chain.
func NewLandmarkBackend(cfg LandmarkConfig) (*LandmarkBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("landmark endpoint not configured")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	// Keepalive detects dead connections quickly
	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial landmark service: %w", err)
	}

	b := &LandmarkBackend{cfg: cfg, conn: conn, healthy: true}

	if err := b.probe(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("landmark service probe failed: %w", err)
	}

	if err := b.configure(); err != nil {
		// Service runs with its own defaults; not worth failing the chain over
		log.Printf("[Landmark] Configure failed, using service defaults: %v", err)
	}

	log.Printf("[Landmark] Connected to %s", cfg.Endpoint)
	return b, nil
}

// configure pushes the EAR sensitivity to the service
func (b *LandmarkBackend) configure() error {
	if b.cfg.EARThreshold <= 0 {
		return nil
	}

	req, err := structpb.NewStruct(map[string]interface{}{
		"ear_threshold": b.cfg.EARThreshold,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.CallTimeout)
	defer cancel()

	var reply emptypb.Empty
	return b.conn.Invoke(ctx, landmarkConfigureMethod, req, &reply)
}

// probe verifies the service answers before the backend is handed out
func (b *LandmarkBackend) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.CallTimeout)
	defer cancel()

	var reply structpb.Struct
	return b.conn.Invoke(ctx, landmarkCheckMethod, &emptypb.Empty{}, &reply)
}

func (b *LandmarkBackend) Name() string { return landmarkName }

func (b *LandmarkBackend) Healthy() bool {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthy
}

func (b *LandmarkBackend) setHealthy(v bool) {
	b.healthMu.Lock()
	b.healthy = v
	b.healthMu.Unlock()
}

// Detect sends the frame to the inference service. Any RPC failure is logged
// and absorbed: the loop must keep running when one frame's analysis fails.
func (b *LandmarkBackend) Detect(ctx context.Context, frame *vision.Frame) *Result {
	if frame == nil || len(frame.Data) == 0 {
		return safeResult(landmarkName, frame)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	req := wrapperspb.Bytes(frame.Data)
	var reply structpb.Struct
	if err := b.conn.Invoke(callCtx, landmarkAnalyzeMethod, req, &reply); err != nil {
		log.Printf("[Landmark] Analyze failed for frame %d: %v", frame.Seq, err)
		b.setHealthy(false)
		return safeResult(landmarkName, frame)
	}
	b.setHealthy(true)

	fields := reply.GetFields()
	drowsy := fields["drowsy"].GetBoolValue()
	yawning := fields["yawning"].GetBoolValue()
	confidence := fields["confidence"].GetNumberValue()
	ear := fields["ear"].GetNumberValue()

	labels := []vision.Annotation{
		{Text: fmt.Sprintf("Detector: landmark  EAR %.3f", ear), X: 10, Y: 30, Color: vision.ColorOK},
	}
	if drowsy {
		labels = append(labels, vision.Annotation{Text: "DROWSINESS DETECTED!", X: 10, Y: 70, Color: vision.ColorAlarm})
	}
	if yawning {
		labels = append(labels, vision.Annotation{Text: "YAWNING DETECTED!", X: 10, Y: 110, Color: vision.ColorWarn})
	}

	return &Result{
		Drowsy:     drowsy,
		Yawning:    yawning,
		Confidence: confidence,
		Frame:      vision.Annotate(frame, labels),
		Backend:    landmarkName,
	}
}

func (b *LandmarkBackend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

var _ Backend = (*LandmarkBackend)(nil)
