package speech

import (
	"errors"
	"log"
	"sync"
	"time"
)

const (
	initialRestartDelay = 250 * time.Millisecond
	maxRestartDelay     = 2 * time.Second
)

// Callbacks receive transcript updates from a Listener. They run on the
// listening goroutine.
type Callbacks struct {
	OnInterim func(Transcript)
	OnFinal   func(Transcript)
	OnError   func(error)
}

// Listener keeps a continuous recognition loop alive: when a run ends while
// we are still supposed to be listening, a fresh run is started. Restarts
// back off (250ms doubling to 2s) so a capability that dies immediately
// cannot spin; the delay resets once a run delivers a result.
type Listener struct {
	factory   RecognizerFactory
	callbacks Callbacks

	mu        sync.Mutex
	listening bool
	disabled  bool
	current   Recognizer
	stopCh    chan struct{}
}

// NewListener builds a listener over the given recognizer factory.
func NewListener(factory RecognizerFactory, callbacks Callbacks) *Listener {
	return &Listener{factory: factory, callbacks: callbacks}
}

// Enabled reports whether the capability is still usable.
func (l *Listener) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.disabled
}

// Start begins continuous listening. Calling Start while already listening
// is a no-op. Returns ErrUnavailable once the capability has been found
// unusable.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.disabled {
		l.mu.Unlock()
		return ErrUnavailable
	}
	if l.listening {
		l.mu.Unlock()
		return nil
	}
	l.listening = true
	l.stopCh = make(chan struct{})
	stopCh := l.stopCh
	l.mu.Unlock()

	go l.run(stopCh)
	return nil
}

// Stop ends listening and stops any active recognition run. Idempotent.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.listening {
		l.mu.Unlock()
		return
	}
	l.listening = false
	close(l.stopCh)
	current := l.current
	l.current = nil
	l.mu.Unlock()

	if current != nil {
		current.Stop()
	}
}

func (l *Listener) run(stopCh chan struct{}) {
	delay := initialRestartDelay

	for l.isListening() {
		rec, err := l.factory()
		if errors.Is(err, ErrUnavailable) {
			l.mu.Lock()
			l.disabled = true
			l.listening = false
			l.mu.Unlock()
			log.Printf("[speech] recognition unavailable, disabling voice input")
			l.emitError(err)
			return
		}
		if err == nil {
			err = rec.Start()
		}
		if err != nil {
			l.emitError(err)
			if !l.wait(stopCh, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		l.setCurrent(rec)
		delivered := l.pump(rec)
		l.setCurrent(nil)

		if delivered {
			delay = initialRestartDelay
		} else {
			delay = nextDelay(delay)
		}

		if !l.isListening() {
			return
		}
		if !l.wait(stopCh, delay) {
			return
		}
	}
}

// pump forwards one run's results until it ends, reporting whether any
// transcript was delivered.
func (l *Listener) pump(rec Recognizer) bool {
	delivered := false
	for {
		select {
		case t := <-rec.Results():
			delivered = true
			if t.Final {
				if l.callbacks.OnFinal != nil {
					l.callbacks.OnFinal(t)
				}
			} else if l.callbacks.OnInterim != nil {
				l.callbacks.OnInterim(t)
			}
		case err := <-rec.Done():
			if err != nil && !errors.Is(err, ErrNoSpeech) {
				l.emitError(err)
			}
			return delivered
		}
	}
}

func (l *Listener) isListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

func (l *Listener) setCurrent(rec Recognizer) {
	l.mu.Lock()
	l.current = rec
	l.mu.Unlock()
}

func (l *Listener) emitError(err error) {
	if l.callbacks.OnError != nil {
		l.callbacks.OnError(err)
	}
}

// wait sleeps for d, returning false when listening stopped meanwhile.
func (l *Listener) wait(stopCh chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return l.isListening()
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxRestartDelay {
		return maxRestartDelay
	}
	return d
}
