// Package speech wraps the host environment's speech capabilities behind
// small adapters: a restartable continuous-listening input loop and a
// single-utterance, cancelable output path.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the underlying speech capability cannot be used
	// in this environment. Callers degrade to text-only.
	ErrUnavailable = errors.New("speech capability unavailable")

	// ErrNoSpeech is the transient no-signal condition. It is swallowed by
	// the listening loop, never surfaced.
	ErrNoSpeech = errors.New("no speech detected")
)

// Transcript is one recognition update. Interim transcripts are superseded
// by later ones; a final transcript is committed.
type Transcript struct {
	Text       string
	Confidence float64
	Final      bool
}

// Recognizer models a single continuous recognition run. Results carries
// transcript updates; Done delivers exactly one value when the run ends,
// nil for a plain end-of-stream.
type Recognizer interface {
	Start() error
	Stop()
	Results() <-chan Transcript
	Done() <-chan error
}

// RecognizerFactory creates a fresh recognition run. Returning ErrUnavailable
// marks the capability as disabled for good.
type RecognizerFactory func() (Recognizer, error)

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, format string, err error)
}

// Player plays one utterance, returning when playback finishes or ctx is
// canceled.
type Player interface {
	Play(ctx context.Context, audio []byte, format string) error
}
