package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"

	"drowsisense/internal/alert"
)

const alertEmailTemplate = `<html>
<body style="font-family: sans-serif;">
  <h2>{{.Headline}}</h2>
  <p>Hello {{.FirstName}},</p>
  <p>{{.Description}}</p>
  <table>
    <tr><td><b>Alert</b></td><td>{{.AlertID}}</td></tr>
    <tr><td><b>Kind</b></td><td>{{.Kind}}</td></tr>
    <tr><td><b>Severity</b></td><td>{{.Severity}}</td></tr>
    <tr><td><b>Time</b></td><td>{{.CreatedAt}}</td></tr>
  </table>
  <p>Please take a break if you are feeling tired.</p>
  <p>— DrowsiSense Driver Monitoring</p>
</body>
</html>`

// SMTPConfig holds the mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer renders and sends alert emails. Sending always happens off the
// monitoring loop's goroutine; failures are logged by the dispatcher, never
// propagated to the loop.
type SMTPMailer struct {
	cfg  SMTPConfig
	tmpl *template.Template
}

// NewSMTPMailer creates a mailer; returns nil (channel disabled) when no
// relay host is configured.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		log.Printf("[Email] No SMTP host configured, email alerts disabled")
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{
		cfg:  cfg,
		tmpl: template.Must(template.New("alert").Parse(alertEmailTemplate)),
	}
}

// subjectFor picks the subject line by alert kind
func subjectFor(kind alert.Kind) string {
	if kind == alert.KindDrowsiness {
		return "Drowsiness Alert - Immediate Attention Required"
	}
	return "Fatigue Alert - Driver Monitoring System"
}

// Send delivers one alert email
func (m *SMTPMailer) Send(alertID string, ev alert.Event, contact Contact) error {
	firstName := contact.FirstName
	if firstName == "" {
		firstName = "Driver"
	}

	var body bytes.Buffer
	err := m.tmpl.Execute(&body, map[string]string{
		"Headline":    subjectFor(ev.Kind),
		"FirstName":   firstName,
		"Description": ev.Description,
		"AlertID":     alertID,
		"Kind":        string(ev.Kind),
		"Severity":    string(ev.Severity),
		"CreatedAt":   ev.CreatedAt.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", contact.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subjectFor(ev.Kind))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{contact.Email}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	log.Printf("[Email] Alert email sent to %s", contact.Email)
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
