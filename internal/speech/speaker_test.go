package speech

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSynth struct {
	err error
}

func (s stubSynth) Synthesize(_ context.Context, text string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []byte(text), "wav", nil
}

// gatePlayer blocks playback until release is closed, honoring cancellation.
type gatePlayer struct {
	started chan string
	release chan struct{}
}

func newGatePlayer() *gatePlayer {
	return &gatePlayer{started: make(chan string, 4), release: make(chan struct{})}
}

func (p *gatePlayer) Play(ctx context.Context, audio []byte, _ string) error {
	p.started <- string(audio)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.release:
		return nil
	}
}

type instantPlayer struct{}

func (instantPlayer) Play(context.Context, []byte, string) error { return nil }

func TestSpeakReportsCompletion(t *testing.T) {
	speaker := NewSpeaker(stubSynth{}, instantPlayer{})

	done := make(chan error, 1)
	speaker.Speak("hello", func(err error) { done <- err })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected playback error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("done callback never fired")
	}
}

func TestSpeakReportsSynthesisError(t *testing.T) {
	wantErr := errors.New("synthesis blew up")
	speaker := NewSpeaker(stubSynth{err: wantErr}, instantPlayer{})

	done := make(chan error, 1)
	speaker.Speak("hello", func(err error) { done <- err })

	select {
	case err := <-done:
		if !errors.Is(err, wantErr) {
			t.Fatalf("got %v, want %v", err, wantErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("done callback never fired")
	}
}

func TestSpeakSupersedesInFlightUtterance(t *testing.T) {
	player := newGatePlayer()
	speaker := NewSpeaker(stubSynth{}, player)

	firstDone := make(chan error, 1)
	speaker.Speak("first", func(err error) { firstDone <- err })
	waitStarted(t, player, "first")

	secondDone := make(chan error, 1)
	speaker.Speak("second", func(err error) { secondDone <- err })
	waitStarted(t, player, "second")

	close(player.release)

	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving utterance's callback never fired")
	}

	select {
	case <-firstDone:
		t.Fatal("superseded utterance's callback fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelSuppressesCallback(t *testing.T) {
	player := newGatePlayer()
	speaker := NewSpeaker(stubSynth{}, player)

	done := make(chan error, 1)
	speaker.Speak("quiet now", func(err error) { done <- err })
	waitStarted(t, player, "quiet now")

	speaker.Cancel()

	select {
	case err := <-done:
		t.Fatalf("canceled utterance's callback fired with %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func waitStarted(t *testing.T, player *gatePlayer, want string) {
	t.Helper()
	select {
	case got := <-player.started:
		if got != want {
			t.Fatalf("playback started with %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("playback of %q never started", want)
	}
}
