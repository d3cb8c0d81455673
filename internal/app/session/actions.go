package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/randx"
)

const (
	// MaxGroupNameLength is the longest accepted group name, in characters.
	MaxGroupNameLength = 64

	// MaxNicknameLength is the longest accepted nickname, in characters.
	MaxNicknameLength = 32

	// MaxMessageBytes is the largest accepted message body.
	MaxMessageBytes = 5000
)

func validGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxGroupNameLength {
		return "", errs.NewError(errs.ErrGroupNameInvalid)
	}
	return name, nil
}

// SelectGroup makes name the active group. The message stream is subscribed to
// it now, or as soon as the identity is known. Histories of other groups stay
// in memory.
func (s *Session) SelectGroup(ctx context.Context, name string) error {
	name, err := validGroupName(name)
	if err != nil {
		return err
	}

	return s.exec(ctx, func() {
		s.activate(name)
	})
}

func (s *Session) activate(name string) {
	s.mu.Lock()
	changed := s.channel.selectGroup(name)
	identified := s.identity.known()
	s.mu.Unlock()

	if !changed {
		return
	}

	s.logger.Info().Str("group", name).Msg("Group selected.")

	if identified {
		if err := s.emit(RequestSubscribeGroup, name); err != nil {
			s.logger.Warn().Err(err).Str("group", name).Msg("Failed to subscribe to group.")
		}
	}
}

// JoinOrCreateGroup asks the server to join or create name. The group shows up
// once the server announces it; a name that is already known is re-joined
// without waiting for an announcement. Fails with ErrIdentityPending until the
// server has identified us.
func (s *Session) JoinOrCreateGroup(ctx context.Context, name string) error {
	name, err := validGroupName(name)
	if err != nil {
		return err
	}

	var joinErr error
	if err := s.exec(ctx, func() {
		if s.conn == nil {
			joinErr = errs.NewError(errs.ErrNotConnected)
			return
		}

		s.mu.RLock()
		identified := s.identity.known()
		known := s.channel.has(name)
		s.mu.RUnlock()

		if !identified {
			joinErr = errs.NewError(errs.ErrIdentityPending)
			return
		}

		switch {
		case known:
			joinErr = s.emit(RequestJoinGroup, name)
		case s.pending.find(RequestJoinGroup, name) != nil:
			// already on its way
		default:
			joinErr = s.track(&request{event: RequestJoinGroup, payload: name, expect: EventNewGroup, key: name})
		}
	}); err != nil {
		return err
	}

	return joinErr
}

// RequestDirectMessageGroup asks the server for the private group shared with
// userID and selects it. Like JoinOrCreateGroup it needs a resolved identity.
// Concurrent requests for the same user share one round trip.
func (s *Session) RequestDirectMessageGroup(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errs.NewError(errs.ErrUserIDInvalid)
	}

	ch := s.dmFlight.DoChan(userID, func() (any, error) {
		return s.requestDM(userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// requestDM is shared by every caller asking for userID, so it is bounded by
// the request policy rather than any single caller's context.
func (s *Session) requestDM(userID string) (string, error) {
	budget := s.opts.RequestTimeout*time.Duration(s.opts.RequestRetries+2) + s.opts.SweepInterval
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	waiter := make(chan result, 1)

	var reqErr error
	if err := s.exec(ctx, func() {
		if s.conn == nil {
			reqErr = errs.NewError(errs.ErrNotConnected)
			return
		}

		s.mu.RLock()
		identified := s.identity.known()
		self := s.identity.selfID()
		s.mu.RUnlock()

		if !identified {
			reqErr = errs.NewError(errs.ErrIdentityPending)
			return
		}
		if userID == self {
			reqErr = errs.NewError(errs.ErrUserIDInvalid)
			return
		}

		reqErr = s.track(&request{
			event:   RequestDMGroupName,
			payload: userID,
			expect:  EventDMGroupName,
			waiters: []chan<- result{waiter},
		})
	}); err != nil {
		return "", errs.From(err)
	}
	if reqErr != nil {
		return "", reqErr
	}

	select {
	case res := <-waiter:
		return res.value, res.err
	case <-ctx.Done():
		return "", errs.NewError(errs.ErrRequestTimeout, RequestDMGroupName)
	}
}

// SendMessage posts body to the selected group. The message is appended at
// once as pending and confirmed when the server echoes its temporary id.
func (s *Session) SendMessage(ctx context.Context, body string) (Message, error) {
	if strings.TrimSpace(body) == "" {
		return Message{}, errs.NewError(errs.ErrMessageContentInvalid)
	}
	if len(body) > MaxMessageBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong, MaxMessageBytes)
	}

	var (
		sent    Message
		sendErr error
	)
	if err := s.exec(ctx, func() {
		s.mu.RLock()
		group := s.channel.selected
		identified := s.identity.known()
		self := s.identity.selfID()
		s.mu.RUnlock()

		switch {
		case group == "":
			sendErr = errs.NewError(errs.ErrNoGroupSelected)
			return
		case s.conn == nil:
			sendErr = errs.NewError(errs.ErrNotConnected)
			return
		case !identified:
			sendErr = errs.NewError(errs.ErrIdentityPending)
			return
		case !s.sendLimiter.Allow(group):
			sendErr = errs.NewError(errs.ErrRateLimitExceeded)
			return
		}

		m := Message{
			TempID:     randx.TempMessageID(),
			Group:      group,
			SenderID:   self,
			Body:       body,
			Pending:    true,
			ReceivedAt: s.opts.Now(),
		}

		if sendErr = s.emit(RequestSendMessage, outboundMessage{Group: group, Body: body, TempID: m.TempID}); sendErr != nil {
			return
		}

		s.hist.of(group).add(m)
		sent = m
	}); err != nil {
		return Message{}, err
	}

	return sent, sendErr
}

// SetNickname sends a new self nickname. Only the local display of self
// changes; the roster is untouched.
func (s *Session) SetNickname(ctx context.Context, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return errs.NewError(errs.ErrNicknameInvalid)
	}

	var setErr error
	if err := s.exec(ctx, func() {
		if setErr = s.emit(RequestSetNickname, nickname); setErr != nil {
			return
		}

		s.mu.Lock()
		s.nickname = nickname
		s.mu.Unlock()

		s.logger.Info().Str("nickname", nickname).Msg("Nickname changed.")
	}); err != nil {
		return err
	}

	return setErr
}
