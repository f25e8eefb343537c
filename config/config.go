// Package config loads runtime configuration from environment variables,
// with .env support for local development.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SMTPConfig holds outbound mail credentials.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// AIConfig holds the generative-AI completion API settings for the chatbot.
type AIConfig struct {
	APIKey  string
	Model   string
	APIBase string
}

// Config holds all runtime configuration for the server.
type Config struct {
	Port        int
	DatabaseURL string
	SessionKey  string
	JWTSecret   string
	JWTExpiry   time.Duration
	FrontendURL string
	SMTP        SMTPConfig
	AI          AIConfig
	GoogleOAuth *oauth2.Config
}

// Load reads configuration from the environment, applying defaults where
// sensible and failing on missing required values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        envInt("PORT", 5000),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SessionKey:  envStr("SESSION_KEY", "cxo-survey-session"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envStr("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envStr("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
		AI: AIConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   envStr("GEMINI_MODEL", "gemini-1.5-flash"),
			APIBase: envStr("GEMINI_API_BASE", "https://generativelanguage.googleapis.com/v1beta"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}

	var err error
	cfg.JWTExpiry, err = envDuration("JWT_EXPIRES_IN", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}

	cfg.GoogleOAuth = &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  envStr("GOOGLE_REDIRECT_URL", "http://localhost:5000/api/auth/google/callback"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	return d, nil
}
