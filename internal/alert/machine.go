package alert

import (
	"fmt"
	"time"
)

// MachineConfig holds the state machine thresholds. Drowsiness typically
// requires more consecutive frames than yawning.
type MachineConfig struct {
	DriverID     string
	DrowsyFrames int           // Consecutive drowsy frames before an alert
	YawnFrames   int           // Consecutive yawning frames before an alert
	Cooldown     time.Duration // Minimum interval between any two alerts
}

// Validate rejects non-positive thresholds and durations
func (c MachineConfig) Validate() error {
	if c.DrowsyFrames <= 0 {
		return fmt.Errorf("drowsy frame threshold must be positive, got %d", c.DrowsyFrames)
	}
	if c.YawnFrames <= 0 {
		return fmt.Errorf("yawn frame threshold must be positive, got %d", c.YawnFrames)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("alert cooldown must be positive, got %s", c.Cooldown)
	}
	return nil
}

// counter is a per-condition hysteresis streak counter
type counter struct {
	count     int
	threshold int
}

// observe advances the counter with one frame's flag. It reports true when
// the streak reaches the threshold; the counter resets to zero at that moment
// whether or not the caller ends up emitting an alert, so sustained
// conditions during cooldown do not accumulate without bound.
func (c *counter) observe(active bool) bool {
	if !active {
		c.count = 0
		return false
	}
	c.count++
	if c.count >= c.threshold {
		c.count = 0
		return true
	}
	return false
}

// Machine tracks independent drowsiness and yawning streaks gated by a single
// shared cooldown clock, so a burst of evidence produces at most one alert of
// any kind per cooldown window. It is owned exclusively by the monitoring
// loop and is not safe for concurrent use.
type Machine struct {
	driverID string
	drowsy   counter
	yawn     counter

	cooldown  time.Duration
	lastFired time.Time

	now func() time.Time
}

// NewMachine creates a state machine, failing fast on invalid thresholds
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		driverID: cfg.DriverID,
		drowsy:   counter{threshold: cfg.DrowsyFrames},
		yawn:     counter{threshold: cfg.YawnFrames},
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source; for tests
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// gateOpen reports whether the cooldown window has fully elapsed. The
// boundary is strict: a threshold reached exactly cooldown after the last
// firing is still absorbed, and the gate reopens only once elapsed > cooldown.
func (m *Machine) gateOpen(at time.Time) bool {
	return m.lastFired.IsZero() || at.Sub(m.lastFired) > m.cooldown
}

// Observe advances both condition tracks with one frame's verdict and
// returns the alerts that fire, at most one per condition. A threshold
// reached while the gate is closed is silently absorbed: the streak resets
// but no event is emitted.
func (m *Machine) Observe(drowsy, yawning bool) []Event {
	at := m.now()
	var events []Event

	if m.drowsy.observe(drowsy) && m.gateOpen(at) {
		events = append(events, Event{
			Kind:        KindDrowsiness,
			Severity:    SeverityHigh,
			Confidence:  0.9,
			Description: "Drowsiness detected!",
			CreatedAt:   at,
			DriverID:    m.driverID,
		})
		m.lastFired = at
	}

	if m.yawn.observe(yawning) && m.gateOpen(at) {
		events = append(events, Event{
			Kind:        KindYawning,
			Severity:    SeverityMedium,
			Confidence:  0.8,
			Description: "Excessive yawning detected!",
			CreatedAt:   at,
			DriverID:    m.driverID,
		})
		m.lastFired = at
	}

	return events
}
