// Package dashboard is the terminal client staff use to triage calls.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the dashboard's own settings file.
type Config struct {
	APIURL  string
	Token   string
	StaffID string
	Poll    time.Duration
}

const (
	defaultConfigPath  = "~/.config/call-desk/dashboard.toml"
	defaultAPIURL      = "http://127.0.0.1:8080"
	defaultPollSeconds = 30
)

// LoadConfig parses the TOML file at path, falling back to defaults when it
// is missing. An empty path uses ~/.config/call-desk/dashboard.toml.
func LoadConfig(path string) (Config, error) {
	cfg := Config{APIURL: defaultAPIURL, Poll: defaultPollSeconds * time.Second}

	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL      string `toml:"api_url"`
		Token       string `toml:"token"`
		StaffID     string `toml:"staff_id"`
		PollSeconds int    `toml:"poll_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if u := strings.TrimRight(strings.TrimSpace(raw.APIURL), "/"); u != "" {
		cfg.APIURL = u
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.StaffID = strings.TrimSpace(raw.StaffID)
	switch {
	case raw.PollSeconds < 0:
		return Config{}, fmt.Errorf("poll_seconds must not be negative, got %d", raw.PollSeconds)
	case raw.PollSeconds > 0:
		cfg.Poll = time.Duration(raw.PollSeconds) * time.Second
	}
	return cfg, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultConfigPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
