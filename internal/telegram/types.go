package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	syncsvc "steam-tracker-bot/internal/sync"
	"steam-tracker-bot/internal/tracking"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	WebAppURL      string
}

// ProfileResolver is the steam client surface the bot needs.
type ProfileResolver interface {
	ResolveProfileID(ctx context.Context, link string) (string, error)
}

// UserStore persists the chat-to-steam link.
type UserStore interface {
	SaveUser(chatID int64, steamID string) error
}

// Bot telegram interaction client
type Bot struct {
	Bot      *tgbotapi.BotAPI
	Config   BotConfig
	steam    ProfileResolver
	users    UserStore
	sync     *syncsvc.Service
	tracking *tracking.Service
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
