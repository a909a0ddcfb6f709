package ws

import "time"

// AlertMessage is a real-time alert broadcast to a driver's live session
type AlertMessage struct {
	Type        string    `json:"type"` // "alert"
	AlertID     string    `json:"alert_id,omitempty"`
	DriverID    string    `json:"driver_id"`
	Kind        string    `json:"kind"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// FrameMessage carries an annotated video frame for a live viewer session
type FrameMessage struct {
	Type        string    `json:"type"` // "frame"
	DriverID    string    `json:"driver_id"`
	Timestamp   time.Time `json:"timestamp"`
	FrameWidth  int       `json:"frame_width"`
	FrameHeight int       `json:"frame_height"`
	Frame       string    `json:"frame"` // Base64 encoded JPEG frame
}

// NewAlertMessage creates an alert broadcast message
func NewAlertMessage(driverID, kind, severity, description string, confidence float64, at time.Time) *AlertMessage {
	return &AlertMessage{
		Type:        "alert",
		DriverID:    driverID,
		Kind:        kind,
		Severity:    severity,
		Confidence:  confidence,
		Description: description,
		Timestamp:   at,
	}
}

// NewFrameMessage creates a frame broadcast message for live viewing
func NewFrameMessage(driverID string, width, height int, frameBase64 string) *FrameMessage {
	return &FrameMessage{
		Type:        "frame",
		DriverID:    driverID,
		Timestamp:   time.Now(),
		FrameWidth:  width,
		FrameHeight: height,
		Frame:       frameBase64,
	}
}
