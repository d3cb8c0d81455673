/*
Package configs loads the chat client's settings from environment variables.

It covers the chat server target (with the host:3000 fallback), the optional
bearer token, the local control API, the request timeout/retry policy and the
outgoing message rate limit.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultServerPort is used when CHAT_SERVER_URL is not set.
	DefaultServerPort = 3000

	// DefaultSocketPath is the websocket endpoint on the chat server.
	DefaultSocketPath = "/ws"
)

// AppConfig contains all configuration parameters of the client.
type AppConfig struct {
	// General Settings
	Environment string
	LogLevel    string

	// Control API Settings
	Port           int
	AllowedOrigins []string

	// Chat Server Settings
	ServerURL  string
	SocketPath string

	// Identity Settings
	Token    string
	TokenDir string

	// Request Policy
	RequestTimeout time.Duration
	RequestRetries int

	// Outgoing Message Limits
	SendRate  float64
	SendBurst int
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and validates the configuration from environment variables,
// applying defaults for everything optional.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))

	// --- Control API Settings ---
	port, err := intFromEnv("PORT", 8081)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Chat Server Settings ---
	cfg.ServerURL = os.Getenv("CHAT_SERVER_URL")
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL(localHostname())
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid CHAT_SERVER_URL environment variable: %w", err)
	}

	cfg.SocketPath = os.Getenv("CHAT_SOCKET_PATH")
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath
	}
	if !strings.HasPrefix(cfg.SocketPath, "/") {
		return nil, fmt.Errorf("CHAT_SOCKET_PATH must start with '/', got %q", cfg.SocketPath)
	}

	// --- Identity Settings ---
	cfg.Token = strings.TrimSpace(os.Getenv("CHAT_TOKEN"))
	cfg.TokenDir = os.Getenv("TOKEN_DIR")
	if cfg.TokenDir == "" {
		cfg.TokenDir = "~/.config/hzchat-client"
	}

	// --- Request Policy ---
	cfg.RequestTimeout, err = durationFromEnv("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	cfg.RequestRetries, err = intFromEnv("REQUEST_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	if cfg.RequestRetries < 0 {
		return nil, fmt.Errorf("REQUEST_RETRIES must not be negative, got %d", cfg.RequestRetries)
	}

	// --- Outgoing Message Limits ---
	rateStr := os.Getenv("SEND_RATE")
	if rateStr == "" {
		rateStr = "2"
	}
	cfg.SendRate, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE environment variable: %w", err)
	}

	cfg.SendBurst, err = intFromEnv("SEND_BURST", 5)
	if err != nil {
		return nil, err
	}
	if cfg.SendRate <= 0 || cfg.SendBurst <= 0 {
		return nil, fmt.Errorf("SEND_RATE and SEND_BURST must be positive")
	}

	return cfg, nil
}

// DefaultServerURL is the fallback chat server address: the given host on DefaultServerPort.
func DefaultServerURL(host string) string {
	return fmt.Sprintf("http://%s:%d", host, DefaultServerPort)
}

func localHostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
