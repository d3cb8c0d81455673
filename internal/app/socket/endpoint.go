package socket

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint builds the websocket URL from the configured server URL, the socket
// path and the optional bearer token.
func Endpoint(serverURL, path, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + path

	q := u.Query()
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// redact hides the token query parameter for logging.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "invalid-url"
	}

	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
