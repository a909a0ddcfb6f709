package notify

import (
	"log"
	"os/exec"
)

// EspeakSpeaker voices alert messages with the espeak binary. The subsystem
// is optional: if espeak is missing the speaker is disabled and Say becomes a
// no-op, leaving every other channel untouched.
type EspeakSpeaker struct {
	bin string
}

// NewEspeakSpeaker probes for espeak
func NewEspeakSpeaker() *EspeakSpeaker {
	bin, err := exec.LookPath("espeak")
	if err != nil {
		log.Printf("[TTS] espeak not available, voice alerts disabled")
		return &EspeakSpeaker{}
	}
	return &EspeakSpeaker{bin: bin}
}

// Enabled reports whether voice output is available
func (s *EspeakSpeaker) Enabled() bool { return s.bin != "" }

// Say voices the message, blocking until synthesis finishes. The dispatcher
// always calls this from a detached goroutine.
func (s *EspeakSpeaker) Say(message string) {
	if s.bin == "" {
		return
	}

	if err := exec.Command(s.bin, message).Run(); err != nil {
		log.Printf("[TTS] espeak failed: %v", err)
	}
}

var _ Speaker = (*EspeakSpeaker)(nil)
