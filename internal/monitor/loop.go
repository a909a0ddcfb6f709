// Package monitor drives the real-time detection loop: it pulls frames from
// the capture source, runs the detection backend, feeds the alert state
// machine and hands fired alerts to the notification dispatcher.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"drowsisense/internal/alert"
	"drowsisense/internal/capture"
	"drowsisense/internal/detector"
	"drowsisense/internal/notify"
	"drowsisense/internal/vision"
)

// ErrAlreadyRunning is returned by Start while a monitoring session is active
var ErrAlreadyRunning = errors.New("monitoring already running")

// Loop phases
const (
	phaseIdle int32 = iota
	phaseRunning
	phaseStopping
)

// Config holds a monitoring session's parameters. Supplied at Start and
// read-only for the session's lifetime.
type Config struct {
	CameraIndex   int
	Device        string  // Overrides CameraIndex when set (rtsp/http URLs)
	EARThreshold  float64 // Sensitivity consumed by the detection backend
	DrowsyFrames  int     // Consecutive drowsy frames before an alert
	YawnFrames    int     // Consecutive yawning frames before an alert
	Cooldown      time.Duration
	FrameInterval time.Duration // Pacing between iterations, default ~30 FPS
}

// Validate fails fast on configuration errors before the loop starts
func (c Config) Validate() error {
	if c.EARThreshold <= 0 {
		return fmt.Errorf("EAR threshold must be positive, got %v", c.EARThreshold)
	}
	return alert.MachineConfig{
		DrowsyFrames: c.DrowsyFrames,
		YawnFrames:   c.YawnFrames,
		Cooldown:     c.Cooldown,
	}.Validate()
}

func (c Config) device() string {
	if c.Device != "" {
		return c.Device
	}
	return capture.DeviceForIndex(c.CameraIndex)
}

// FrameSource abstracts the capture device so tests can run the loop against
// scripted frames. Implemented by *capture.Source.
type FrameSource interface {
	Read() (*vision.Frame, error)
	Release()
}

// SourceFactory acquires a frame source for a device
type SourceFactory func(device string) (FrameSource, error)

// DisplaySink receives annotated frames for live viewing. Optional: a nil
// sink simply drops them.
type DisplaySink interface {
	ShowFrame(driverID string, frame *vision.Frame)
}

// Dispatcher is the alert fan-out consumed by the loop
type Dispatcher interface {
	Dispatch(ev alert.Event, contact notify.Contact, frame *vision.Frame)
}

// Per-iteration outcome. The loop's continue/abort decision is an explicit
// branch on this tag instead of a catch-all error path.
type iterOutcome int

const (
	iterOK iterOutcome = iota
	iterTransient
	iterStopped
)

// Loop runs one driver's monitoring session. The loop goroutine is the sole
// owner of the frame source, the state machine and the iteration state;
// external callers communicate only through Start and the stop flag.
type Loop struct {
	backend    detector.Backend
	dispatcher Dispatcher
	display    DisplaySink
	openSource SourceFactory

	phase    atomic.Int32
	stopFlag atomic.Bool
	done     chan struct{}
}

// New creates a monitoring loop. openSource may be nil to use the real
// capture device.
func New(backend detector.Backend, dispatcher Dispatcher, display DisplaySink, openSource SourceFactory) *Loop {
	if openSource == nil {
		openSource = func(device string) (FrameSource, error) {
			return capture.Open(device, capture.DefaultConfig())
		}
	}
	return &Loop{
		backend:    backend,
		dispatcher: dispatcher,
		display:    display,
		openSource: openSource,
	}
}

// Start validates the config, acquires the camera and launches the loop
// goroutine. It fails with ErrAlreadyRunning while a session is active, and
// with the source or backend acquisition error (camera unavailable, no
// backend) before any loop state exists, so fatal failures leave nothing
// running.
func (l *Loop) Start(cfg Config, contact notify.Contact) error {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 33 * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid monitoring config: %w", err)
	}

	if !l.phase.CompareAndSwap(phaseIdle, phaseRunning) {
		return ErrAlreadyRunning
	}

	machine, err := alert.NewMachine(alert.MachineConfig{
		DriverID:     contact.DriverID,
		DrowsyFrames: cfg.DrowsyFrames,
		YawnFrames:   cfg.YawnFrames,
		Cooldown:     cfg.Cooldown,
	})
	if err != nil {
		l.phase.Store(phaseIdle)
		return err
	}

	source, err := l.openSource(cfg.device())
	if err != nil {
		l.phase.Store(phaseIdle)
		return fmt.Errorf("failed to open video source: %w", err)
	}

	l.stopFlag.Store(false)
	l.done = make(chan struct{})

	go l.run(cfg, contact, source, machine)

	log.Printf("[Loop] Monitoring started for driver %s (device %s, backend %s)",
		contact.DriverID, cfg.device(), l.backend.Name())
	return nil
}

// Stop requests a cooperative stop and waits for the loop to exit. The flag
// is polled once per iteration, so stop latency is bounded by one frame
// interval. Safe to call when the loop is not running.
func (l *Loop) Stop() {
	if l.phase.Load() == phaseIdle {
		return
	}

	l.phase.Store(phaseStopping)
	l.stopFlag.Store(true)

	if l.done != nil {
		<-l.done
	}
}

// Running reports whether a monitoring session is active
func (l *Loop) Running() bool {
	return l.phase.Load() == phaseRunning
}

// run is the loop body. It owns the source for its whole lifetime and
// releases it on every exit path.
func (l *Loop) run(cfg Config, contact notify.Contact, source FrameSource, machine *alert.Machine) {
	defer close(l.done)
	defer l.phase.Store(phaseIdle)
	defer source.Release()

	ctx := context.Background()

	for {
		if l.stopFlag.Load() {
			log.Printf("[Loop] Stop requested, monitoring for driver %s ending", contact.DriverID)
			return
		}

		switch l.iterate(ctx, contact, source, machine) {
		case iterStopped:
			return
		case iterTransient:
			// Camera hiccup or analysis fault: brief pause, then continue
			time.Sleep(100 * time.Millisecond)
		case iterOK:
			// Pace to the target frame rate to bound CPU and camera usage
			time.Sleep(cfg.FrameInterval)
		}
	}
}

// iterate processes a single frame and reports a tagged outcome
func (l *Loop) iterate(ctx context.Context, contact notify.Contact, source FrameSource, machine *alert.Machine) iterOutcome {
	frame, err := source.Read()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrame) {
			log.Printf("[Loop] No frame from camera, retrying")
			return iterTransient
		}
		log.Printf("[Loop] Frame read failed: %v", err)
		return iterTransient
	}

	normalized, err := vision.Normalize(frame)
	if err != nil {
		log.Printf("[Loop] Skipping undecodable frame %d: %v", frame.Seq, err)
		return iterTransient
	}

	// Backends never fail; a bad frame yields a quiet verdict
	result := l.backend.Detect(ctx, normalized)

	for _, ev := range machine.Observe(result.Drowsy, result.Yawning) {
		log.Printf("[Loop] %s alert fired for driver %s", ev.Kind, contact.DriverID)
		l.dispatcher.Dispatch(ev, contact, result.Frame)
	}

	if l.display != nil && result.Frame != nil {
		l.display.ShowFrame(contact.DriverID, result.Frame)
	}

	return iterOK
}
