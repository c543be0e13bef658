package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tidecall/supportkit/internal/api"
)

// Transcriber is the remote speech-to-text capability, satisfied by
// *api.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (*api.TranscriptResult, error)
}

// TTSClient is the remote text-to-speech capability, satisfied by
// *api.Client.
type TTSClient interface {
	Synthesize(ctx context.Context, text, voice string) (*api.SynthesisResult, error)
}

// CaptureSource supplies utterance-sized chunks of captured audio. Next
// blocks until a full utterance is available; io.EOF ends the stream.
type CaptureSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// NewRemoteRecognizerFactory builds recognition runs that transcribe
// utterances from source through the backend voice endpoint. The batch
// endpoint only yields final transcripts; interim updates come from engines
// that support them. A nil source means the capability is unavailable.
func NewRemoteRecognizerFactory(client Transcriber, source CaptureSource, format string) RecognizerFactory {
	return func() (Recognizer, error) {
		if source == nil || client == nil {
			return nil, ErrUnavailable
		}
		return newRemoteRecognizer(client, source, format), nil
	}
}

type remoteRecognizer struct {
	client  Transcriber
	source  CaptureSource
	format  string
	results chan Transcript
	done    chan error
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRemoteRecognizer(client Transcriber, source CaptureSource, format string) *remoteRecognizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &remoteRecognizer{
		client:  client,
		source:  source,
		format:  format,
		results: make(chan Transcript, 4),
		done:    make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (r *remoteRecognizer) Start() error {
	go r.loop()
	return nil
}

func (r *remoteRecognizer) Stop() {
	r.cancel()
}

func (r *remoteRecognizer) Results() <-chan Transcript { return r.results }

func (r *remoteRecognizer) Done() <-chan error { return r.done }

func (r *remoteRecognizer) loop() {
	for {
		audio, err := r.source.Next(r.ctx)
		if errors.Is(err, io.EOF) || r.ctx.Err() != nil {
			r.done <- nil
			return
		}
		if err != nil {
			r.done <- err
			return
		}
		if len(audio) == 0 {
			// Empty capture, keep listening.
			continue
		}

		result, err := r.client.Transcribe(r.ctx, audio, r.format)
		if r.ctx.Err() != nil {
			r.done <- nil
			return
		}
		if err != nil {
			r.done <- err
			return
		}
		if result.Text == "" {
			// No speech in the utterance; recognition simply continues.
			continue
		}

		select {
		case r.results <- Transcript{Text: result.Text, Confidence: result.Confidence, Final: true}:
		case <-r.ctx.Done():
			r.done <- nil
			return
		}
	}
}

// NewRemoteSynthesizer adapts the backend text-to-speech endpoint to the
// Synthesizer interface with a fixed voice.
func NewRemoteSynthesizer(client TTSClient, voice string) Synthesizer {
	return &remoteSynthesizer{client: client, voice: voice}
}

type remoteSynthesizer struct {
	client TTSClient
	voice  string
}

func (s *remoteSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	result, err := s.client.Synthesize(ctx, text, s.voice)
	if err != nil {
		return nil, "", err
	}
	return result.Audio, result.Format, nil
}

// FileSource is a CaptureSource over pre-recorded utterance files, one file
// per utterance. It ends with io.EOF once all files are consumed.
type FileSource struct {
	paths []string
	next  int
}

// NewFileSource builds a source over the given audio files in order.
func NewFileSource(paths []string) *FileSource {
	return &FileSource{paths: append([]string(nil), paths...)}
}

func (f *FileSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.next >= len(f.paths) {
		return nil, io.EOF
	}
	path := f.paths[f.next]
	f.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read utterance %s: %w", path, err)
	}
	return data, nil
}

// FilePlayer "plays" utterances by writing them to a directory, for hosts
// without an audio device. Real hosts supply their own Player.
type FilePlayer struct {
	dir string
}

// NewFilePlayer writes played utterances under dir (created on demand).
func NewFilePlayer(dir string) *FilePlayer {
	return &FilePlayer{dir: dir}
}

func (p *FilePlayer) Play(ctx context.Context, audio []byte, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if format == "" {
		format = "mp3"
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("utterance-%d.%s", time.Now().UnixNano(), format)
	return os.WriteFile(filepath.Join(p.dir, name), audio, 0o600)
}
