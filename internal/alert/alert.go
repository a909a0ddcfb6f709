// Package alert turns per-frame detection verdicts into rate-limited alert
// events using hysteresis counters and a shared cooldown clock.
package alert

import "time"

// Kind identifies the monitored condition that triggered an alert
type Kind string

const (
	KindDrowsiness Kind = "drowsiness"
	KindYawning    Kind = "yawning"
)

// Severity grades an alert
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is one qualifying alert. It is created exactly once per hysteresis
// breach that clears the cooldown gate and is immutable afterwards; ownership
// passes to the notification dispatcher.
type Event struct {
	Kind        Kind
	Severity    Severity
	Confidence  float64
	Description string
	CreatedAt   time.Time
	DriverID    string
}
