package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tidecall/supportkit/internal/api"
	"github.com/tidecall/supportkit/internal/config"
)

// Manual tester for the backend voice endpoints: transcribe an audio file or
// synthesize a line of text, without going through a call.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "test mode: asr or tts")
	audioPath := flag.String("audio", "", "ASR input audio file path")
	text := flag.String("text", "", "TTS input text")
	outputPath := flag.String("out", "", "TTS output audio file path (derived from format when empty)")
	format := flag.String("format", "", "ASR input audio format, defaults to the file extension")
	voiceName := flag.String("voice", "", "TTS voice id, defaults to VOICE_NAME")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("specify -mode=asr or -mode=tts")
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.AuthToken, *timeout)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, client, *audioPath, *format)
	case "tts":
		runTTS(ctx, client, cfg, *text, *voiceName, *outputPath)
	}
}

func runASR(ctx context.Context, client *api.Client, audioPath, format string) {
	if audioPath == "" {
		log.Fatal("asr mode needs -audio with an audio file path")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	log.Printf("transcribing: file=%s format=%s bytes=%d", audioPath, format, len(audio))

	result, err := client.Transcribe(ctx, audio, format)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription ok: text=%q confidence=%.2f", result.Text, result.Confidence)
}

func runTTS(ctx context.Context, client *api.Client, cfg *config.Config, text, voiceName, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode needs -text with the text to synthesize")
	}

	if voiceName == "" {
		voiceName = cfg.Voice.Voice
	}

	log.Printf("synthesizing: voice=%s chars=%d", voiceName, len(text))

	result, err := client.Synthesize(ctx, text, voiceName)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), result.Format)
	}

	if err := os.WriteFile(outputPath, result.Audio, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("synthesis ok: wrote %s (%d bytes, format=%s)", outputPath, len(result.Audio), result.Format)
}
