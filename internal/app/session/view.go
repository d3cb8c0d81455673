package session

import (
	"time"

	"hzchat-client/internal/app/user"
)

const (
	// NotConnectedBanner is shown whenever there is no live connection.
	NotConnectedBanner = "Not Connected"

	// NoGroupLabel is shown while no group is selected.
	NoGroupLabel = "no group selected"
)

// ErrorInfo is the last error worth showing to the user.
type ErrorInfo struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// View is a consistent snapshot of the session for display.
type View struct {
	Status       Status `json:"status"`
	StatusReason string `json:"statusReason,omitempty"`
	Banner       string `json:"banner,omitempty"`

	SignedIn      bool   `json:"signedIn"`
	SignedInLabel string `json:"signedInLabel,omitempty"`
	AuthProblem   string `json:"authProblem,omitempty"`

	Identity     string `json:"identity"`
	SelfID       string `json:"selfId,omitempty"`
	SelfNickname string `json:"selfNickname,omitempty"`

	OtherUsers []user.User `json:"otherUsers"`
	Groups     []Group     `json:"groups"`

	SelectedGroup string    `json:"selectedGroup,omitempty"`
	GroupLabel    string    `json:"groupLabel"`
	Messages      []Message `json:"messages"`

	LastError *ErrorInfo `json:"lastError,omitempty"`
}

// View returns a snapshot of the current state. Messages holds the selected
// group's history only.
func (s *Session) View() View {
	s.mu.RLock()
	v := View{
		Status:        s.status,
		StatusReason:  s.reason,
		SignedIn:      s.claims != nil,
		AuthProblem:   s.authProblem,
		Identity:      s.identity.state.String(),
		SelfID:        s.identity.self.ID,
		SelfNickname:  s.nickname,
		OtherUsers:    s.roster.list(),
		Groups:        s.channel.groups(),
		SelectedGroup: s.channel.selected,
	}
	if s.claims != nil {
		v.SignedInLabel = "Signed in as " + s.claims.DisplayName()
	}
	if s.lastErr != nil {
		e := *s.lastErr
		v.LastError = &e
	}
	s.mu.RUnlock()

	if v.Status != StatusConnected {
		v.Banner = NotConnectedBanner
	}

	if v.SelectedGroup == "" {
		v.GroupLabel = NoGroupLabel
		v.Messages = []Message{}
	} else {
		v.GroupLabel = "current group: " + v.SelectedGroup
		v.Messages = s.hist.messages(v.SelectedGroup)
	}

	return v
}

// History returns the messages received so far for group, selected or not.
func (s *Session) History(group string) []Message {
	return s.hist.messages(group)
}

// Status returns the connection status and its reason.
func (s *Session) Status() (Status, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.reason
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}
