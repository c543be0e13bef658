package speech

import (
	"context"
	"sync"
)

// Speaker speaks one utterance at a time. Starting a new utterance cancels
// any in-flight one (most-recent-wins, no queueing); only the surviving
// utterance's done callback fires.
type Speaker struct {
	synth  Synthesizer
	player Player

	mu        sync.Mutex
	utterance uint64
	cancel    context.CancelFunc
}

// NewSpeaker builds a speaker from a synthesizer and a player.
func NewSpeaker(synth Synthesizer, player Player) *Speaker {
	return &Speaker{synth: synth, player: player}
}

// Speak synthesizes and plays text. done fires exactly once with the
// playback outcome, unless a later Speak or Cancel supersedes this
// utterance, in which case it never fires.
func (s *Speaker) Speak(text string, done func(err error)) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.utterance++
	id := s.utterance
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		err := s.speak(ctx, text)

		s.mu.Lock()
		superseded := s.utterance != id
		if !superseded {
			s.cancel = nil
		}
		s.mu.Unlock()

		if superseded || ctx.Err() != nil {
			return
		}
		if done != nil {
			done(err)
		}
	}()
}

// Cancel silences any in-flight utterance without firing its callback. Used
// for user-initiated mute; it does not transition any coordinator state.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.utterance++
	}
	s.mu.Unlock()
}

func (s *Speaker) speak(ctx context.Context, text string) error {
	audio, format, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.player.Play(ctx, audio, format)
}
