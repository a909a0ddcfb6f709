// Package detector provides the drowsiness detection backends and the
// fallback chain that selects the best available one at startup.
package detector

import (
	"context"

	"drowsisense/internal/vision"
)

// Result is the per-frame verdict produced by a backend. It is transient:
// consumed immediately by the alert state machine and then discarded.
type Result struct {
	Drowsy     bool
	Yawning    bool
	Confidence float64       // Verdict confidence [0-1]
	Frame      *vision.Frame // Annotated frame (derived, never the shared input)
	Backend    string        // Name of the backend that produced this result
}

// Backend analyzes frames for signs of driver fatigue.
//
// Detect never fails: on any internal error the backend logs the failure and
// returns a result with Drowsy and Yawning false and the original (or a
// diagnostic) frame. The monitoring loop depends on this to keep running when
// a single frame's analysis goes wrong.
type Backend interface {
	// Name returns the backend identifier ("landmark", "facemesh", "simulated")
	Name() string

	// Detect analyzes one frame
	Detect(ctx context.Context, frame *vision.Frame) *Result

	// Healthy returns true if the backend is operational
	Healthy() bool

	// Close releases backend resources
	Close() error
}

// safeResult builds the fallback verdict used when analysis fails
func safeResult(name string, frame *vision.Frame) *Result {
	if frame == nil {
		frame = vision.Placeholder(0, "No input frame", "Detection skipped")
	}
	return &Result{
		Drowsy:  false,
		Yawning: false,
		Frame:   frame,
		Backend: name,
	}
}
