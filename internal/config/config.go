package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the client commands need.
type Config struct {
	Server ServerConfig
	API    APIConfig
	Voice  VoiceConfig
	Widget WidgetConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		API:    api,
		Voice:  voice,
		Widget: loadWidgetConfig(),
	}, nil
}

// ServerConfig describes the widget host listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8090"
	}

	if strings.Contains(port, ":") {
		// Accept ":8090" or "127.0.0.1:8090" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// APIConfig describes how to reach the support backend.
type APIConfig struct {
	BaseURL        string
	OrganizationID string
	AuthToken      string
	RequestTimeout time.Duration
}

func loadAPIConfig() (APIConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("REQUEST_TIMEOUT"); err != nil {
		return APIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return APIConfig{}, fmt.Errorf("REQUEST_TIMEOUT must be at least 1 second, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return APIConfig{
		BaseURL:        getEnvOrDefault("API_BASE_URL", "http://localhost:8000/api"),
		OrganizationID: strings.TrimSpace(os.Getenv("ORGANIZATION_ID")),
		AuthToken:      strings.TrimSpace(os.Getenv("AUTH_TOKEN")),
		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// Enabled reports whether the dashboard chat path has its required identity.
func (c APIConfig) Enabled() bool {
	return c.OrganizationID != ""
}

// VoiceConfig describes the voice call feature.
type VoiceConfig struct {
	Enabled    bool
	Voice      string
	Format     string
	Greeting   string
	GreetDelay time.Duration
}

func loadVoiceConfig() (VoiceConfig, error) {
	enabled, err := parseBoolEnv("VOICE_ENABLED", false)
	if err != nil {
		return VoiceConfig{}, err
	}

	greetDelayMs := 600
	if override, err := parseOptionalIntEnv("VOICE_GREET_DELAY_MS"); err != nil {
		return VoiceConfig{}, err
	} else if override != nil && *override >= 0 {
		greetDelayMs = *override
	}

	return VoiceConfig{
		Enabled:    enabled,
		Voice:      getEnvOrDefault("VOICE_NAME", "alloy"),
		Format:     getEnvOrDefault("VOICE_AUDIO_FORMAT", "wav"),
		Greeting:   getEnvOrDefault("VOICE_GREETING", "Hi! You're connected to support. How can I help you today?"),
		GreetDelay: time.Duration(greetDelayMs) * time.Millisecond,
	}, nil
}

// WidgetConfig describes the embeddable widget identity.
type WidgetConfig struct {
	ChatbotID string
}

func loadWidgetConfig() WidgetConfig {
	return WidgetConfig{
		ChatbotID: strings.TrimSpace(os.Getenv("CHATBOT_ID")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
