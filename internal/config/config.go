package config

import "os"

// Config holds application configuration loaded from environment variables.
type Config struct {
	AuthorityURL string
	Email        string
	Password     string
	GameID       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		AuthorityURL: envOrDefault("AUTHORITY_URL", "http://localhost:8000"),
		Email:        envOrDefault("PLAYER_EMAIL", ""),
		Password:     envOrDefault("PLAYER_PASSWORD", ""),
		GameID:       envOrDefault("GAME_ID", ""),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
