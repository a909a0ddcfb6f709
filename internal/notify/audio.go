package notify

import (
	"log"
	"os/exec"
	"sync"
)

// AudioPlayer plays the alert cue through ffplay. Playback is last-wins: a
// new trigger kills any cue still playing, which is acceptable because cues
// are best-effort and not safety-critical signaling.
type AudioPlayer struct {
	file string
	bin  string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewAudioPlayer creates a player for the given cue file. When ffplay or the
// file is unavailable the player is disabled and every Play is a logged no-op:
// audio absence never affects detection or the other alert channels.
func NewAudioPlayer(file string) *AudioPlayer {
	p := &AudioPlayer{file: file}

	if file == "" {
		log.Printf("[Audio] No cue file configured, audio alerts disabled")
		return p
	}

	bin, err := exec.LookPath("ffplay")
	if err != nil {
		log.Printf("[Audio] ffplay not available, audio alerts disabled: %v", err)
		return p
	}
	p.bin = bin
	log.Printf("[Audio] Cue playback ready (%s)", file)
	return p
}

// Play starts the cue without waiting for it to finish. An in-flight cue is
// replaced by the new one.
func (p *AudioPlayer) Play() {
	if p.bin == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Process != nil {
		p.current.Process.Kill()
	}

	cmd := exec.Command(p.bin, "-nodisp", "-autoexit", "-loglevel", "quiet", p.file)
	if err := cmd.Start(); err != nil {
		log.Printf("[Audio] Failed to play cue: %v", err)
		return
	}
	p.current = cmd

	go cmd.Wait()
}

var _ CuePlayer = (*AudioPlayer)(nil)
