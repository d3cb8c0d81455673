/*
Package user defines how the client represents a chat participant.
*/
package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User is a participant as announced by the chat server.
type User struct {
	// ID is the server-assigned identifier, normalized to a string.
	ID string `json:"id"`

	// Nickname is the display name at announcement time.
	Nickname string `json:"nickname"`
}

// ParseID normalizes a wire identifier. The server may send identifiers as JSON
// strings or numbers; numbers keep their literal decimal text.
func ParseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("missing user id")
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("invalid user id: %w", err)
		}
		if strings.TrimSpace(id) == "" {
			return "", fmt.Errorf("empty user id")
		}
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid user id %s: %w", raw, err)
	}
	return n.String(), nil
}

// ParsePair decodes an [id, nickname] tuple as sent with otherUser and getMyId.
func ParsePair(raw json.RawMessage) (User, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return User{}, fmt.Errorf("expected [id, nickname]: %w", err)
	}
	if len(pair) != 2 {
		return User{}, fmt.Errorf("expected [id, nickname], got %d elements", len(pair))
	}

	id, err := ParseID(pair[0])
	if err != nil {
		return User{}, err
	}

	var nickname string
	if err := json.Unmarshal(pair[1], &nickname); err != nil {
		return User{}, fmt.Errorf("invalid nickname for %s: %w", id, err)
	}

	return User{ID: id, Nickname: nickname}, nil
}
