package handler

import (
	"context"
	"time"

	"hzchat-client/internal/app/session"
	"hzchat-client/internal/configs"
	"hzchat-client/internal/pkg/keystore"
	"hzchat-client/internal/pkg/limiter"
)

// ChatService is the part of the chat session the control API drives.
type ChatService interface {
	View() session.View
	History(group string) []session.Message
	SelectGroup(ctx context.Context, name string) error
	JoinOrCreateGroup(ctx context.Context, name string) error
	RequestDirectMessageGroup(ctx context.Context, userID string) (string, error)
	SendMessage(ctx context.Context, body string) (session.Message, error)
	SetNickname(ctx context.Context, nickname string) error
	SetToken(token string) error
}

type AppDeps struct {
	Session ChatService
	Tokens  keystore.Store
	Config  *configs.AppConfig

	// Limiter throttles control API callers by IP.
	Limiter *limiter.KeyedLimiter

	Now func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
