// Package notify fans a single alert event out to its side-effect channels:
// persistence, real-time push, audio cue, text-to-speech and email. Channels
// are isolated from each other, and slow channels run as detached background
// work so dispatch never blocks the monitoring loop.
package notify

import (
	"context"
	"log"
	"sync"

	"drowsisense/internal/alert"
	"drowsisense/internal/vision"
	"drowsisense/internal/ws"
)

// Contact identifies the alert recipient
type Contact struct {
	DriverID  string
	FirstName string
	Email     string
}

// AlertStore is the persistence boundary consumed by the dispatcher
type AlertStore interface {
	SaveAlert(ev alert.Event) (string, error)
	MarkNotified(alertID string) error
}

// Pusher is the real-time push boundary (a driver's live session)
type Pusher interface {
	BroadcastAlert(driverID string, msg *ws.AlertMessage)
}

// CuePlayer plays the audible alert cue
type CuePlayer interface {
	Play()
}

// Speaker voices an alert message
type Speaker interface {
	Say(message string)
}

// Mailer sends the alert email
type Mailer interface {
	Send(alertID string, ev alert.Event, contact Contact) error
}

// Messenger delivers the alert to an operator chat, with the annotated frame
// attached when available
type Messenger interface {
	SendFatigueAlert(ctx context.Context, ev alert.Event, driverName string, frameData []byte) error
}

// Dispatcher fans one alert event out to all notification channels. Each
// channel's failure is caught and logged independently so one broken channel
// never silences the others.
type Dispatcher struct {
	store     AlertStore
	pusher    Pusher
	audio     CuePlayer
	tts       Speaker
	mailer    Mailer
	messenger Messenger

	wg sync.WaitGroup
}

// NewDispatcher wires the notification channels. Any channel may be nil and
// is simply skipped; audio and TTS in particular are best-effort features.
func NewDispatcher(store AlertStore, pusher Pusher, audio CuePlayer, tts Speaker, mailer Mailer, messenger Messenger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		pusher:    pusher,
		audio:     audio,
		tts:       tts,
		mailer:    mailer,
		messenger: messenger,
	}
}

// Dispatch hands one immutable alert event to every channel and returns
// immediately. Fast channels (audio trigger, push) fire right away; persist
// and email run as detached background work, with email chained after
// persist because it carries the stored alert's ID. The frame is the
// annotated frame that triggered the event; it may be nil.
func (d *Dispatcher) Dispatch(ev alert.Event, contact Contact, frame *vision.Frame) {
	// Audio cue: best-effort, non-blocking by construction (last-wins player)
	if d.audio != nil {
		d.audio.Play()
	}

	// Real-time push: fire and forget
	if d.pusher != nil {
		msg := ws.NewAlertMessage(
			contact.DriverID, string(ev.Kind), string(ev.Severity),
			ev.Description, ev.Confidence, ev.CreatedAt,
		)
		d.pusher.BroadcastAlert(contact.DriverID, msg)
	}

	// Text-to-speech: detached, the synthesis can take seconds
	if d.tts != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.tts.Say(ev.Description)
		}()
	}

	// Operator chat: detached, network delivery
	if d.messenger != nil {
		var frameData []byte
		if frame != nil {
			frameData = frame.Data
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.messenger.SendFatigueAlert(context.Background(), ev, contact.FirstName, frameData); err != nil {
				log.Printf("[Notify] Failed to send %s alert to operator chat: %v", ev.Kind, err)
			}
		}()
	}

	// Persist, then email with the stored ID. A persist failure is logged
	// and skips only the email (which has no alert to reference).
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.persistAndMail(ev, contact)
	}()
}

func (d *Dispatcher) persistAndMail(ev alert.Event, contact Contact) {
	var alertID string

	if d.store != nil {
		id, err := d.store.SaveAlert(ev)
		if err != nil {
			log.Printf("[Notify] Failed to persist %s alert: %v", ev.Kind, err)
		} else {
			alertID = id
		}
	}

	if d.mailer == nil || contact.Email == "" || alertID == "" {
		return
	}

	if err := d.mailer.Send(alertID, ev, contact); err != nil {
		log.Printf("[Notify] Failed to send alert email to %s: %v", contact.Email, err)
		return
	}

	if d.store != nil {
		if err := d.store.MarkNotified(alertID); err != nil {
			log.Printf("[Notify] Failed to mark alert %s notified: %v", alertID, err)
		}
	}
}

// Wait blocks until all detached notification work has finished. Used by
// shutdown and by tests that need to observe background channels
// deterministically.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
