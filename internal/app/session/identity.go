package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"hzchat-client/internal/app/user"
)

// IdentityState is the Identity Resolver's position for the current connection.
type IdentityState int

const (
	IdentityDisconnected IdentityState = iota
	IdentityAwaiting
	IdentityKnown
)

func (s IdentityState) String() string {
	switch s {
	case IdentityAwaiting:
		return "awaiting"
	case IdentityKnown:
		return "known"
	default:
		return "disconnected"
	}
}

// identityResolver tracks who the server says we are on the current connection.
type identityResolver struct {
	state IdentityState
	self  user.User
}

// begin moves Disconnected to AwaitingIdentity. It reports false when the
// resolver is already past Disconnected, in which case no request is due.
func (r *identityResolver) begin() bool {
	if r.state != IdentityDisconnected {
		return false
	}
	r.state = IdentityAwaiting
	return true
}

// resolve moves AwaitingIdentity to IdentityKnown. It fires at most once per
// connection: any later answer is reported as not applied.
func (r *identityResolver) resolve(self user.User) bool {
	if r.state != IdentityAwaiting {
		return false
	}
	r.state = IdentityKnown
	r.self = self
	return true
}

// reset returns to Disconnected. The last known self is kept for display until
// the next connection resolves.
func (r *identityResolver) reset() {
	r.state = IdentityDisconnected
}

func (r *identityResolver) known() bool {
	return r.state == IdentityKnown
}

// selfID is empty until the identity is known on this connection.
func (r *identityResolver) selfID() string {
	if !r.known() {
		return ""
	}
	return r.self.ID
}

// parseSelf accepts both identity payload shapes: a bare id, or [id, nickname].
func parseSelf(raw json.RawMessage) (user.User, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return user.ParsePair(raw)
	}

	id, err := user.ParseID(raw)
	if err != nil {
		return user.User{}, fmt.Errorf("identity payload: %w", err)
	}
	return user.User{ID: id}, nil
}
