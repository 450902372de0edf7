package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type config struct {
	Port        string
	DatabaseURL string
	// RedisURL selects the redis session store when set; otherwise sessions
	// live in process memory.
	RedisURL string

	TelnyxAPIKey     string
	GroqAPIKey       string
	DeepgramAPIKey   string
	ElevenLabsAPIKey string

	SessionIdleTimeout time.Duration
	GeneratedGreetings bool
}

func configFromEnv() (*config, error) {
	cfg := &config{
		Port:               envOr("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TelnyxAPIKey:       os.Getenv("TELNYX_API_KEY"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		DeepgramAPIKey:     os.Getenv("DEEPGRAM_API_KEY"),
		ElevenLabsAPIKey:   os.Getenv("ELEVENLABS_API_KEY"),
		SessionIdleTimeout: 10 * time.Minute,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	for name, value := range map[string]string{
		"TELNYX_API_KEY":   cfg.TelnyxAPIKey,
		"GROQ_API_KEY":     cfg.GroqAPIKey,
		"DEEPGRAM_API_KEY": cfg.DeepgramAPIKey,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	if raw, ok := os.LookupEnv("SESSION_IDLE_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.SessionIdleTimeout = timeout
	}

	if raw, ok := os.LookupEnv("GENERATED_GREETINGS"); ok {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid GENERATED_GREETINGS: %w", err)
		}
		cfg.GeneratedGreetings = enabled
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}
