package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"drowsisense/internal/alert"
	"drowsisense/internal/vision"
	"drowsisense/internal/ws"
)

type fakeStore struct {
	mu       sync.Mutex
	saveErr  error
	saved    []alert.Event
	notified []string
}

func (f *fakeStore) SaveAlert(ev alert.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, ev)
	return "alert-1", nil
}

func (f *fakeStore) MarkNotified(alertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, alertID)
	return nil
}

type fakePusher struct {
	mu   sync.Mutex
	msgs []*ws.AlertMessage
}

func (f *fakePusher) BroadcastAlert(driverID string, msg *ws.AlertMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

type fakeCue struct {
	mu    sync.Mutex
	plays int
}

func (f *fakeCue) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
}

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (f *fakeSpeaker) Say(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, message)
}

type fakeMailer struct {
	mu      sync.Mutex
	sendErr error
	sent    []string
}

func (f *fakeMailer) Send(alertID string, ev alert.Event, contact Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, alertID)
	return nil
}

type fakeMessenger struct {
	mu      sync.Mutex
	sendErr error
	frames  [][]byte
}

func (f *fakeMessenger) SendFatigueAlert(_ context.Context, ev alert.Event, driverName string, frameData []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, frameData)
	return nil
}

func testEvent() alert.Event {
	return alert.Event{
		Kind:        alert.KindDrowsiness,
		Severity:    alert.SeverityHigh,
		Confidence:  0.9,
		Description: "Drowsiness detected!",
		CreatedAt:   time.Now(),
		DriverID:    "driver-1",
	}
}

func testContact() Contact {
	return Contact{DriverID: "driver-1", FirstName: "Ada", Email: "ada@example.com"}
}

func TestDispatchReachesAllChannels(t *testing.T) {
	store := &fakeStore{}
	pusher := &fakePusher{}
	cue := &fakeCue{}
	speaker := &fakeSpeaker{}
	mailer := &fakeMailer{}
	messenger := &fakeMessenger{}

	d := NewDispatcher(store, pusher, cue, speaker, mailer, messenger)
	d.Dispatch(testEvent(), testContact(), vision.Placeholder(1, "test"))
	d.Wait()

	if cue.plays != 1 {
		t.Errorf("audio plays = %d, want 1", cue.plays)
	}
	if len(pusher.msgs) != 1 {
		t.Errorf("pushed messages = %d, want 1", len(pusher.msgs))
	}
	if len(speaker.said) != 1 || speaker.said[0] != "Drowsiness detected!" {
		t.Errorf("tts said = %v", speaker.said)
	}
	if len(store.saved) != 1 {
		t.Errorf("saved alerts = %d, want 1", len(store.saved))
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "alert-1" {
		t.Errorf("emails sent = %v, want [alert-1]", mailer.sent)
	}
	if len(store.notified) != 1 || store.notified[0] != "alert-1" {
		t.Errorf("notified = %v, want [alert-1]", store.notified)
	}
	if len(messenger.frames) != 1 || len(messenger.frames[0]) == 0 {
		t.Errorf("operator chat deliveries = %d, want 1 with frame data", len(messenger.frames))
	}
}

func TestDispatchWithoutFrameStillReachesMessenger(t *testing.T) {
	messenger := &fakeMessenger{}

	d := NewDispatcher(nil, nil, nil, nil, nil, messenger)
	d.Dispatch(testEvent(), testContact(), nil)
	d.Wait()

	if len(messenger.frames) != 1 {
		t.Fatalf("operator chat deliveries = %d, want 1", len(messenger.frames))
	}
	if messenger.frames[0] != nil {
		t.Error("expected nil frame data without a frame")
	}
}

func TestFailingMailerDoesNotBlockOtherChannels(t *testing.T) {
	store := &fakeStore{}
	pusher := &fakePusher{}
	cue := &fakeCue{}
	mailer := &fakeMailer{sendErr: errors.New("relay down")}

	d := NewDispatcher(store, pusher, cue, nil, mailer, nil)
	d.Dispatch(testEvent(), testContact(), nil)
	d.Wait()

	if len(store.saved) != 1 {
		t.Errorf("saved alerts = %d, want 1", len(store.saved))
	}
	if cue.plays != 1 {
		t.Errorf("audio plays = %d, want 1", cue.plays)
	}
	if len(pusher.msgs) != 1 {
		t.Errorf("pushed messages = %d, want 1", len(pusher.msgs))
	}
	// A failed send must not mark the alert notified
	if len(store.notified) != 0 {
		t.Errorf("notified = %v, want none", store.notified)
	}
}

func TestFailingStoreSkipsOnlyEmail(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	pusher := &fakePusher{}
	mailer := &fakeMailer{}

	d := NewDispatcher(store, pusher, nil, nil, mailer, nil)
	d.Dispatch(testEvent(), testContact(), nil)
	d.Wait()

	if len(pusher.msgs) != 1 {
		t.Errorf("pushed messages = %d, want 1", len(pusher.msgs))
	}
	// No stored alert means no ID to reference in an email
	if len(mailer.sent) != 0 {
		t.Errorf("emails sent = %v, want none", mailer.sent)
	}
}

func TestNoEmailWithoutContactAddress(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}

	d := NewDispatcher(store, nil, nil, nil, mailer, nil)
	d.Dispatch(testEvent(), Contact{DriverID: "driver-1"}, nil)
	d.Wait()

	if len(store.saved) != 1 {
		t.Errorf("saved alerts = %d, want 1", len(store.saved))
	}
	if len(mailer.sent) != 0 {
		t.Errorf("emails sent = %v, want none", mailer.sent)
	}
}

func TestDispatchWithAllChannelsNil(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil, nil, nil)
	d.Dispatch(testEvent(), testContact(), nil)
	d.Wait()
}
