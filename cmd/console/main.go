package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tidecall/supportkit/internal/api"
	"github.com/tidecall/supportkit/internal/chat"
	modelchat "github.com/tidecall/supportkit/internal/model/chat"
	"github.com/tidecall/supportkit/internal/config"
	"github.com/tidecall/supportkit/internal/speech"
	"github.com/tidecall/supportkit/internal/store"
	"github.com/tidecall/supportkit/internal/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	stateFile := store.NewStateFile(statePath())
	organizationID, authToken, err := resolveIdentity(cfg, stateFile)
	if err != nil {
		log.Fatalf("cannot determine identity: %v", err)
	}

	client := api.NewClient(cfg.API.BaseURL, authToken, cfg.API.RequestTimeout)
	st := store.NewStore(stateFile)

	playbackDir := filepath.Join(os.TempDir(), "supportkit-audio")
	speaker := speech.NewSpeaker(
		speech.NewRemoteSynthesizer(client, cfg.Voice.Voice),
		speech.NewFilePlayer(playbackDir),
	)

	controller := chat.NewController(st, &chat.OrgSender{Client: client, OrganizationID: organizationID}, speaker)

	attachRenderer(st)

	sessionID, err := st.InitSession()
	if err != nil {
		log.Fatalf("cannot initialize session: %v", err)
	}

	// Live channel for agent replies after escalation; chat works without it.
	live, err := api.DialLive(ctx, cfg.API.BaseURL, organizationID, sessionID, func(m api.LiveMessage) {
		controller.HandlePush(m.Content)
	})
	if err != nil {
		log.Printf("live channel unavailable: %v", err)
	} else {
		defer live.Close()
	}

	runLoop(ctx, cfg, client, controller, st, speaker)
}

func runLoop(ctx context.Context, cfg *config.Config, client *api.Client, controller *chat.Controller, st *store.Store, speaker *speech.Speaker) {
	fmt.Println("supportkit console — /new /call <dir> /end /mute /unmute /voice on|off /bye")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var call *voice.Coordinator

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			if call != nil {
				call.EndCall()
			}
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			if strings.HasPrefix(text, "/") {
				if quit := handleCommand(ctx, text, cfg, client, controller, st, speaker, &call); quit {
					return
				}
				continue
			}

			if _, err := controller.Send(ctx, text); err != nil {
				fmt.Printf("! send failed: %v\n", err)
				st.SetError(nil) // shown, dismiss
			}
		}
	}
}

func handleCommand(ctx context.Context, text string, cfg *config.Config, client *api.Client, controller *chat.Controller, st *store.Store, speaker *speech.Speaker, call **voice.Coordinator) bool {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/bye":
		if *call != nil {
			(*call).EndCall()
		}
		return true
	case "/new":
		if err := controller.StartNewConversation(); err != nil {
			fmt.Printf("! %v\n", err)
			break
		}
		if _, err := st.InitSession(); err != nil {
			fmt.Printf("! %v\n", err)
			break
		}
		fmt.Println("(started a new conversation)")
	case "/voice":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Println("usage: /voice on|off")
			break
		}
		controller.SetVoiceOutput(fields[1] == "on")
	case "/call":
		if !cfg.Voice.Enabled {
			fmt.Println("voice is disabled (set VOICE_ENABLED=true)")
			break
		}
		if len(fields) < 2 {
			fmt.Println("usage: /call <utterance dir>")
			break
		}
		if *call != nil && (*call).Active() {
			fmt.Println("a call is already active")
			break
		}
		coord, err := startCall(cfg, client, controller, st, speaker, fields[1])
		if err != nil {
			fmt.Printf("! %v\n", err)
			break
		}
		*call = coord
	case "/end":
		if *call != nil {
			(*call).EndCall()
			*call = nil
		}
	case "/mute":
		if *call != nil {
			(*call).Mute()
		}
	case "/unmute":
		if *call != nil {
			(*call).Unmute()
		}
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func startCall(cfg *config.Config, client *api.Client, controller *chat.Controller, st *store.Store, speaker *speech.Speaker, dir string) (*voice.Coordinator, error) {
	files, err := utteranceFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no utterance audio files in %s", dir)
	}

	source := speech.NewFileSource(files)
	factory := speech.NewRemoteRecognizerFactory(client, source, cfg.Voice.Format)

	coord := voice.NewCoordinator(voice.Config{
		Controller:  controller,
		Store:       st,
		Recognizer:  factory,
		Speaker:     speaker,
		Greeting:    cfg.Voice.Greeting,
		GreetDelay:  cfg.Voice.GreetDelay,
		SendTimeout: cfg.API.RequestTimeout,
		OnEnd:       func() { fmt.Println("(call ended)") },
		OnInterim:   func(text string) { fmt.Printf("(hearing) %s\n", text) },
	})
	coord.StartCall()
	fmt.Println("(call started)")
	return coord, nil
}

// utteranceFiles lists the audio files under dir, each one spoken utterance.
func utteranceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".wav", ".mp3", ".webm", ".m4a":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// attachRenderer prints messages as they land in the store, whether from a
// typed send, a voice turn or a live push.
func attachRenderer(st *store.Store) {
	var mu sync.Mutex
	printed := 0
	st.Subscribe(func() {
		mu.Lock()
		defer mu.Unlock()
		messages := st.Messages()
		for ; printed < len(messages); printed++ {
			m := messages[printed]
			if m.Role == modelchat.RoleUser {
				fmt.Printf("you: %s\n", m.Content)
			} else if m.ConfidenceScore != nil {
				fmt.Printf("bot: %s (confidence %.2f)\n", m.Content, *m.ConfidenceScore)
			} else {
				fmt.Printf("bot: %s\n", m.Content)
			}
		}
	})
}

func resolveIdentity(cfg *config.Config, stateFile *store.StateFile) (string, string, error) {
	organizationID := cfg.API.OrganizationID
	if organizationID == "" {
		organizationID, _ = stateFile.Get(store.KeyOrganizationID)
	} else if err := stateFile.Put(store.KeyOrganizationID, organizationID); err != nil {
		log.Printf("warning: cannot persist organization id: %v", err)
	}
	if organizationID == "" {
		return "", "", fmt.Errorf("set ORGANIZATION_ID (persisted for later runs)")
	}

	authToken := cfg.API.AuthToken
	if authToken == "" {
		authToken, _ = stateFile.Get(store.KeyAuthToken)
	} else if err := stateFile.Put(store.KeyAuthToken, authToken); err != nil {
		log.Printf("warning: cannot persist auth token: %v", err)
	}

	return organizationID, authToken, nil
}

func statePath() string {
	path, err := store.DefaultStatePath()
	if err != nil {
		return filepath.Join(os.TempDir(), "supportkit", "state.db")
	}
	return path
}
