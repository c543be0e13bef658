package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// TranscriptResult is the backend's answer to a transcription request.
type TranscriptResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SynthesisResult carries synthesized speech audio.
type SynthesisResult struct {
	Audio  []byte
	Format string
}

// Transcribe sends captured audio to the backend speech-to-text endpoint.
// The audio travels base64-encoded inside a JSON body.
func (c *Client) Transcribe(ctx context.Context, audio []byte, format string) (*TranscriptResult, error) {
	payload := struct {
		AudioData string `json:"audio_data"`
		Format    string `json:"format"`
	}{
		AudioData: base64.StdEncoding.EncodeToString(audio),
		Format:    format,
	}

	var result TranscriptResult
	if err := c.do(ctx, http.MethodPost, "/voice/transcribe", nil, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Synthesize asks the backend text-to-speech endpoint for spoken audio.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*SynthesisResult, error) {
	payload := struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}{Text: text, Voice: voice}

	var wire struct {
		AudioData string `json:"audio_data"`
		Format    string `json:"format"`
	}
	if err := c.do(ctx, http.MethodPost, "/voice/synthesize", nil, payload, &wire); err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(wire.AudioData)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}

	return &SynthesisResult{Audio: audio, Format: wire.Format}, nil
}
