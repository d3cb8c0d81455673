package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"hzchat-client/internal/app/socket"
	"hzchat-client/internal/app/user"
	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/randx"
)

// Inbound events.
const (
	EventMyID        = "getMyId"
	EventOtherUser   = "otherUser"
	EventNewGroup    = "newGroup"
	EventDMGroupName = "DMGroupName"
	EventMessage     = "message"
	EventError       = "error"
)

// Outbound requests.
const (
	RequestMyID           = "getMyId"
	RequestAllUsers       = "getAllUser"
	RequestAllGroups      = "getAllGroups"
	RequestJoinGroup      = "joinGroup"
	RequestDMGroupName    = "getDMGroupName"
	RequestSetNickname    = "setNickname"
	RequestSubscribeGroup = "subscribeGroup"
	RequestSendMessage    = "message"
)

type groupPayload struct {
	Name string `json:"name"`
}

// inboundMessage is a chat message as pushed by the server.
type inboundMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	TempID string          `json:"tempId,omitempty"`
	Group  string          `json:"group"`
	Sender json.RawMessage `json:"sender"`
	Body   string          `json:"body"`
}

type outboundMessage struct {
	Group  string `json:"group"`
	Body   string `json:"body"`
	TempID string `json:"tempId"`
}

type serverError struct {
	Code    json.RawMessage `json:"code,omitempty"`
	Message string          `json:"message"`
}

// register binds every inbound handler to conn. They all go away with OffAll
// when conn is torn down.
func (s *Session) register(conn *socket.Conn) {
	conn.On(EventMyID, s.onMyID)
	conn.On(EventOtherUser, s.onOtherUser)
	conn.On(EventNewGroup, s.onNewGroup)
	conn.On(EventDMGroupName, s.onDMGroupName)
	conn.On(EventMessage, s.onMessage)
	conn.On(EventError, s.onServerError)
}

func (s *Session) onMyID(payload json.RawMessage) error {
	self, err := parseSelf(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	applied := s.identity.resolve(self)
	if applied {
		s.roster.identify(self.ID)
		if self.Nickname != "" {
			s.nickname = self.Nickname
		}
	}
	selected := s.channel.selected
	s.mu.Unlock()

	s.pending.settle(EventMyID, "", self.ID)

	if !applied {
		s.logger.Debug().Str("self_id", self.ID).Msg("Identity already resolved on this connection. Ignoring.")
		return nil
	}

	s.logger.Info().Str("self_id", self.ID).Str("nickname", self.Nickname).Msg("Identity resolved.")
	s.reconnect = s.newReconnectBackoff()

	for _, event := range []string{RequestAllUsers, RequestAllGroups} {
		if err := s.emit(event, nil); err != nil {
			s.logger.Warn().Err(err).Str("event", event).Msg("Failed to request initial state.")
		}
	}

	if selected != "" {
		if err := s.emit(RequestSubscribeGroup, selected); err != nil {
			s.logger.Warn().Err(err).Str("group", selected).Msg("Failed to subscribe to group.")
		}
	}
	return nil
}

func (s *Session) onOtherUser(payload json.RawMessage) error {
	u, err := user.ParsePair(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.roster.announce(u, s.identity.selfID())
	s.mu.Unlock()

	if changed {
		s.logger.Debug().Str("user_id", u.ID).Str("nickname", u.Nickname).Msg("User added to roster.")
	}
	return nil
}

func (s *Session) onNewGroup(payload json.RawMessage) error {
	var g groupPayload
	if err := json.Unmarshal(payload, &g); err != nil {
		return fmt.Errorf("newGroup payload: %w", err)
	}
	if g.Name == "" {
		return fmt.Errorf("newGroup payload: empty name")
	}

	s.mu.Lock()
	added := s.channel.addGroup(g.Name)
	s.mu.Unlock()

	s.pending.settle(EventNewGroup, g.Name, g.Name)

	if added {
		s.logger.Debug().Str("group", g.Name).Msg("Group announced.")
	}
	return nil
}

func (s *Session) onDMGroupName(payload json.RawMessage) error {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		return fmt.Errorf("DMGroupName payload: %w", err)
	}
	if name == "" {
		return fmt.Errorf("DMGroupName payload: empty name")
	}

	s.activate(name)
	s.pending.settle(EventDMGroupName, "", name)
	return nil
}

func (s *Session) onMessage(payload json.RawMessage) error {
	var in inboundMessage
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("message payload: %w", err)
	}
	if in.Group == "" {
		return fmt.Errorf("message payload: missing group")
	}

	sender, err := user.ParseID(in.Sender)
	if err != nil {
		return fmt.Errorf("message sender: %w", err)
	}

	m := Message{
		Group:      in.Group,
		SenderID:   sender,
		Body:       in.Body,
		ReceivedAt: s.opts.Now(),
	}
	if randx.IsTempMessageID(in.TempID) {
		m.TempID = in.TempID
	}
	if len(bytes.TrimSpace(in.ID)) > 0 {
		if m.ID, err = user.ParseID(in.ID); err != nil {
			return fmt.Errorf("message id: %w", err)
		}
	}

	if !s.hist.of(in.Group).add(m) {
		s.logger.Debug().Str("group", in.Group).Str("message_id", m.ID).Msg("Duplicate message dropped.")
	}
	return nil
}

func (s *Session) onServerError(payload json.RawMessage) error {
	var se serverError
	if err := json.Unmarshal(payload, &se); err != nil || se.Message == "" {
		var text string
		if json.Unmarshal(payload, &text) != nil {
			text = strings.TrimSpace(string(payload))
		}
		se.Message = text
	}

	s.logger.Warn().RawJSON("code", nonEmptyJSON(se.Code)).Str("server_message", se.Message).Msg("Server reported an error.")
	s.fail(errs.NewError(errs.ErrServerRejected, se.Message))
	return nil
}

func nonEmptyJSON(raw json.RawMessage) []byte {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null")
	}
	return raw
}
