// Package voice sequences a voice call: capture a final transcript, send it,
// speak the reply, loop until the call ends.
package voice

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tidecall/supportkit/internal/chat"
	"github.com/tidecall/supportkit/internal/speech"
	"github.com/tidecall/supportkit/internal/store"
)

// State is the coordinator's call state.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
)

// Config wires a coordinator to its collaborators.
type Config struct {
	Controller *chat.Controller
	Store      *store.Store
	Recognizer speech.RecognizerFactory
	Speaker    *speech.Speaker

	Greeting    string
	GreetDelay  time.Duration
	SendTimeout time.Duration

	// OnEnd tells the host to dismiss the call overlay. Called once per call.
	OnEnd func()
	// OnInterim receives partial transcripts for display. Optional.
	OnInterim func(string)
}

// Coordinator is the four-state machine behind a voice call. One mutex
// serializes every transition; each call carries an epoch so completions
// from recognition or synthesis runs belonging to an ended call are no-ops.
type Coordinator struct {
	cfg      Config
	listener *speech.Listener

	mu     sync.Mutex
	state  State
	active bool
	epoch  uint64
}

// NewCoordinator builds a coordinator. SendTimeout defaults to 30s.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	c := &Coordinator{cfg: cfg, state: StateIdle}
	c.listener = speech.NewListener(cfg.Recognizer, speech.Callbacks{
		OnInterim: c.handleInterim,
		OnFinal:   c.handleFinal,
		OnError:   c.handleListenError,
	})
	return c
}

// State reports the current call state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a call is in progress.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// StartCall begins a call: a brief idle beat while the overlay mounts, the
// scripted greeting, then listening. No-op when a call is already active.
func (c *Coordinator) StartCall() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.epoch++
	epoch := c.epoch
	c.state = StateIdle
	c.mu.Unlock()

	time.AfterFunc(c.cfg.GreetDelay, func() { c.speakGreeting(epoch) })
}

// EndCall tears the call down from any state: stop capture, cancel output,
// notify the host. Idempotent; late adapter callbacks from this call are
// dropped by the epoch guard.
func (c *Coordinator) EndCall() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.epoch++
	c.state = StateIdle
	c.mu.Unlock()

	c.listener.Stop()
	if c.cfg.Speaker != nil {
		c.cfg.Speaker.Cancel()
	}
	if c.cfg.OnEnd != nil {
		c.cfg.OnEnd()
	}
}

// Mute pauses the microphone while keeping the call active.
func (c *Coordinator) Mute() {
	c.mu.Lock()
	if !c.active || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()

	c.listener.Stop()
}

// Unmute resumes listening after a mute.
func (c *Coordinator) Unmute() {
	c.mu.Lock()
	if !c.active || c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	c.mu.Unlock()

	c.beginListening(epoch)
}

func (c *Coordinator) speakGreeting(epoch uint64) {
	c.mu.Lock()
	if !c.guard(epoch) {
		c.mu.Unlock()
		return
	}
	if c.cfg.Speaker == nil || c.cfg.Greeting == "" {
		c.mu.Unlock()
		c.beginListening(epoch)
		return
	}
	c.state = StateSpeaking
	c.mu.Unlock()

	c.cfg.Speaker.Speak(c.cfg.Greeting, func(err error) {
		c.handleSpeechDone(epoch, err)
	})
}

// handleFinal hands a committed transcript to the send path. The state check
// makes the hand-off fire at most once per final transcript.
func (c *Coordinator) handleFinal(t speech.Transcript) {
	c.mu.Lock()
	if !c.active || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	c.state = StateProcessing
	c.mu.Unlock()

	c.listener.Stop()
	go c.process(epoch, t.Text)
}

func (c *Coordinator) handleInterim(t speech.Transcript) {
	c.mu.Lock()
	relevant := c.active && c.state == StateListening
	c.mu.Unlock()

	if relevant && c.cfg.OnInterim != nil {
		c.cfg.OnInterim(t.Text)
	}
}

func (c *Coordinator) handleListenError(err error) {
	c.mu.Lock()
	relevant := c.active
	c.mu.Unlock()

	if !relevant {
		return
	}
	if errors.Is(err, speech.ErrUnavailable) {
		// Capture is gone for good; pause the call rather than spin.
		log.Printf("[voice] recognition unavailable, muting call")
		c.cfg.Store.SetError(err)
		c.Mute()
		return
	}
	c.cfg.Store.SetError(err)
}

func (c *Coordinator) process(epoch uint64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
	defer cancel()

	reply, err := c.cfg.Controller.Send(ctx, text)

	c.mu.Lock()
	if !c.guard(epoch) {
		c.mu.Unlock()
		return
	}
	if err != nil || reply == "" || c.cfg.Speaker == nil {
		// The error is already on the store; resume listening so the call
		// does not go dead.
		c.mu.Unlock()
		c.beginListening(epoch)
		return
	}
	c.state = StateSpeaking
	c.mu.Unlock()

	c.cfg.Speaker.Speak(reply, func(err error) {
		c.handleSpeechDone(epoch, err)
	})
}

// handleSpeechDone runs after an utterance completes or fails; both return
// the call to listening unless the call ended in the interim.
func (c *Coordinator) handleSpeechDone(epoch uint64, err error) {
	if err != nil {
		log.Printf("[voice] speech output error: %v", err)
	}

	c.mu.Lock()
	if !c.guard(epoch) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.beginListening(epoch)
}

func (c *Coordinator) beginListening(epoch uint64) {
	c.mu.Lock()
	if !c.guard(epoch) {
		c.mu.Unlock()
		return
	}
	c.state = StateListening
	c.mu.Unlock()

	if err := c.listener.Start(); err != nil {
		c.mu.Lock()
		if c.guard(epoch) {
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.cfg.Store.SetError(err)
		log.Printf("[voice] cannot start listening: %v", err)
	}
}

// guard reports whether an event from the given epoch is still relevant.
// Callers must hold c.mu.
func (c *Coordinator) guard(epoch uint64) bool {
	return c.active && c.epoch == epoch
}
