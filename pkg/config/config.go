// Package config holds the client configuration: where the worker
// lives, which remote root to browse, and session defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config is the persisted client configuration.
type Config struct {
	// WorkerURL is the worker's HTTP base URL.
	WorkerURL string `yaml:"worker_url"`

	// ChannelPath is the WebSocket endpoint path on the worker.
	ChannelPath string `yaml:"channel_path"`

	// DeviceRoot is the remote directory browsing starts from.
	DeviceRoot string `yaml:"device_root"`

	// DefaultDestination is the local folder offered for transfers.
	DefaultDestination string `yaml:"default_destination,omitempty"`

	// UserID is the cloud account used for backup/restore, if any.
	UserID string `yaml:"user_id,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		WorkerURL:   "http://127.0.0.1:5000",
		ChannelPath: "/channel",
		DeviceRoot:  "/sdcard",
	}
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.WorkerURL == "" {
		return fmt.Errorf("worker_url must be set")
	}
	u, err := url.Parse(c.WorkerURL)
	if err != nil {
		return fmt.Errorf("worker_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("worker_url must use http or https, got %q", u.Scheme)
	}
	if c.ChannelPath == "" || !strings.HasPrefix(c.ChannelPath, "/") {
		return fmt.Errorf("channel_path must start with /")
	}
	if c.DeviceRoot == "" {
		return fmt.Errorf("device_root must be set")
	}
	return nil
}

// ChannelURL derives the WebSocket URL for the event channel from the
// worker's HTTP base URL.
func (c *Config) ChannelURL() string {
	ws := c.WorkerURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimSuffix(ws, "/") + c.ChannelPath
}
