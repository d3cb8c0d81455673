package configs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "LOG_LEVEL", "PORT", "ALLOWED_ORIGINS", "CHAT_SERVER_URL", "CHAT_SOCKET_PATH",
	"CHAT_TOKEN", "TOKEN_DIR", "REQUEST_TIMEOUT", "REQUEST_RETRIES", "SEND_RATE", "SEND_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}

	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8081, cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, "http://"+host+":3000", cfg.ServerURL)
	assert.Equal(t, "/ws", cfg.SocketPath)
	assert.Empty(t, cfg.Token)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RequestRetries)
	assert.Equal(t, 2.0, cfg.SendRate)
	assert.Equal(t, 5, cfg.SendBurst)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", " warn ")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("CHAT_SERVER_URL", "https://abc.ngrok.app")
	t.Setenv("CHAT_SOCKET_PATH", "/socket")
	t.Setenv("CHAT_TOKEN", "  tok  ")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("REQUEST_RETRIES", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://abc.ngrok.app", cfg.ServerURL)
	assert.Equal(t, "/socket", cfg.SocketPath)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 0, cfg.RequestRetries)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "eighty"},
		{"PORT", "80"},
		{"CHAT_SOCKET_PATH", "ws"},
		{"REQUEST_TIMEOUT", "soon"},
		{"REQUEST_TIMEOUT", "-1s"},
		{"REQUEST_RETRIES", "-1"},
		{"SEND_RATE", "fast"},
		{"SEND_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestDefaultServerURL(t *testing.T) {
	assert.Equal(t, "http://chat.local:3000", DefaultServerURL("chat.local"))
}
