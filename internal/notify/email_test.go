package notify

import (
	"bytes"
	"testing"
	"time"

	"drowsisense/internal/alert"
)

func TestNewSMTPMailerDisabledWithoutHost(t *testing.T) {
	if m := NewSMTPMailer(SMTPConfig{}); m != nil {
		t.Fatal("expected nil mailer without a relay host")
	}
}

func TestNewSMTPMailerDefaultPort(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	if m == nil {
		t.Fatal("mailer unexpectedly disabled")
	}
	if m.cfg.Port != 587 {
		t.Errorf("port = %d, want 587", m.cfg.Port)
	}
}

func TestSubjectForKind(t *testing.T) {
	if got := subjectFor(alert.KindDrowsiness); got != "Drowsiness Alert - Immediate Attention Required" {
		t.Errorf("drowsiness subject = %q", got)
	}
	if got := subjectFor(alert.KindYawning); got != "Fatigue Alert - Driver Monitoring System" {
		t.Errorf("yawning subject = %q", got)
	}
}

func TestAlertEmailTemplateRenders(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})

	var body bytes.Buffer
	err := m.tmpl.Execute(&body, map[string]string{
		"Headline":    "Drowsiness Alert - Immediate Attention Required",
		"FirstName":   "Ada",
		"Description": "Drowsiness detected!",
		"AlertID":     "alert-1",
		"Kind":        "drowsiness",
		"Severity":    "high",
		"CreatedAt":   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		t.Fatalf("template failed to render: %v", err)
	}

	html := body.String()
	for _, want := range []string{"Ada", "Drowsiness detected!", "alert-1", "2025-06-01 12:00:00"} {
		if !bytes.Contains(body.Bytes(), []byte(want)) {
			t.Errorf("rendered email missing %q:\n%s", want, html)
		}
	}
}
