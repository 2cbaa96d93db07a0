// Package config loads reader settings from the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// MaxParagraphSpacing is the most blank lines allowed between source lines.
const MaxParagraphSpacing = 64

type Settings struct {
	// Where the reading library lives. Empty means the XDG default.
	StateDir string

	// Blank lines inserted between source lines; below 0.5 means none.
	ParagraphSpacing float64

	// Position restore
	RetryDelay    time.Duration
	RetryAttempts int
	Debounce      time.Duration
	SettleDelay   time.Duration

	// Logging
	LogFile string
	Debug   bool
}

func Load() Settings {
	s := Settings{
		StateDir: os.Getenv("TREAD_STATE_DIR"),

		ParagraphSpacing: envFloat("TREAD_PARAGRAPH_SPACING", 0),

		RetryDelay:    envDuration("TREAD_RETRY_DELAY", 100*time.Millisecond),
		RetryAttempts: envInt("TREAD_RETRY_ATTEMPTS", 10),
		Debounce:      envDuration("TREAD_DEBOUNCE", 500*time.Millisecond),
		SettleDelay:   envDuration("TREAD_SETTLE_DELAY", 16*time.Millisecond),

		LogFile: envOr("TREAD_LOG_FILE", ""),
		Debug:   envBool("TREAD_DEBUG", false),
	}

	if s.RetryDelay <= 0 {
		s.RetryDelay = 100 * time.Millisecond
	}
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = 10
	}
	if s.Debounce <= 0 {
		s.Debounce = 500 * time.Millisecond
	}
	if s.SettleDelay <= 0 {
		s.SettleDelay = 16 * time.Millisecond
	}

	return s
}

func (s Settings) Validate() error {
	if math.IsNaN(s.ParagraphSpacing) || s.ParagraphSpacing < 0 || s.ParagraphSpacing > MaxParagraphSpacing {
		return fmt.Errorf("paragraph spacing must be between 0 and %d, got %v", MaxParagraphSpacing, s.ParagraphSpacing)
	}
	if s.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive, got %d", s.RetryAttempts)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
