package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	syncsvc "steam-tracker-bot/internal/sync"
	"steam-tracker-bot/internal/tracking"
	"steam-tracker-bot/internal/types"
	"steam-tracker-bot/lib/helpers"
	"steam-tracker-bot/lib/translation"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, steam ProfileResolver, users UserStore, sync *syncsvc.Service, trackingSvc *tracking.Service) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:      bot,
		Config:   c,
		steam:    steam,
		users:    users,
		sync:     sync,
		tracking: trackingSvc,
	}, nil
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// NotifyPriceRise sends one price-increase alert. It implements the
// watcher's Notifier.
func (b *Bot) NotifyPriceRise(chatID int64, itemName string, oldPrice float64, newPrice types.PriceQuote) error {
	text := fmt.Sprintf(
		"📈 *%s*\n%s\n%s: %s → %s",
		helpers.EscapeMarkdownV2(translation.Translate("Price went up!")),
		helpers.EscapeMarkdownV2(itemName),
		helpers.EscapeMarkdownV2(translation.Translate("Was")),
		helpers.FormatPrice(oldPrice, true),
		helpers.EscapeMarkdownV2(newPrice.Display),
	)
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// HandleUpdate processes one telegram update and returns the reply text,
// or "" when the handler already replied itself.
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	log.Debugf("received command: %s", u.Message.Command())

	switch u.Message.Command() {
	case "start":
		b.sendStartKeyboard(u.Message.Chat.ID)
		return ""
	case "list":
		return b.handleListCommand(u.Message.Chat.ID)
	}

	// Any free-text message carrying a profile link is a link request.
	if strings.Contains(u.Message.Text, "steamcommunity.com") {
		return b.handleProfileLink(u.Message.Chat.ID, strings.TrimSpace(u.Message.Text))
	}

	return helpers.EscapeMarkdownV2(translation.Translate("Send me a link to your steam profile to get started."))
}

func (b *Bot) sendStartKeyboard(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpers.EscapeMarkdownV2(
		translation.Translate("Hi! I track the market prices of your skins. Send me a link to your steam profile, then open the tracker.")))
	msg.ParseMode = "MarkdownV2"

	if b.Config.WebAppURL != "" {
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.KeyboardButton{
				Text:   translation.Translate("📦 Open tracker"),
				WebApp: &tgbotapi.WebAppInfo{URL: b.Config.WebAppURL},
			}),
		)
		keyboard.ResizeKeyboard = true
		msg.ReplyMarkup = keyboard
	}

	if _, err := b.Bot.Send(msg); err != nil {
		log.Errorf("failed to send start message: %v", err)
	}
}

// handleProfileLink resolves the link, persists the steam id and runs the
// first sync.
func (b *Bot) handleProfileLink(chatID int64, link string) string {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	steamID, err := b.steam.ResolveProfileID(ctx, link)
	if err != nil {
		log.Warnf("profile resolution failed for chat %d: %v", chatID, err)
		return errorText(err)
	}

	if err := b.users.SaveUser(chatID, steamID); err != nil {
		log.Errorf("failed to save user %d: %v", chatID, err)
		return errorText(err)
	}

	result, err := b.sync.Sync(ctx, chatID)
	if err != nil {
		log.Warnf("sync failed for chat %d: %v", chatID, err)
		return errorText(err)
	}

	text := helpers.EscapeMarkdownV2(fmt.Sprintf(
		translation.Translate("Profile linked. Found %d items in your inventory."), result.Items))
	if len(result.Untracked) > 0 {
		text += "\n" + helpers.EscapeMarkdownV2(fmt.Sprintf(
			translation.Translate("No longer in your inventory, tracking stopped: %s"),
			strings.Join(result.Untracked, ", ")))
	}
	return text
}

func (b *Bot) handleListCommand(chatID int64) string {
	entries, err := b.tracking.Entries(chatID)
	if err != nil {
		log.Errorf("failed to list tracking for chat %d: %v", chatID, err)
		return errorText(err)
	}
	if len(entries) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You are not tracking any items yet."))
	}

	var list strings.Builder
	list.WriteString("*" + helpers.EscapeMarkdownV2(translation.Translate("Tracked items:")) + "*\n")
	for _, e := range entries {
		since := humanize.Time(e.CreatedAt)
		list.WriteString(fmt.Sprintf(
			"• %s: %s → %s \\(%s\\)\n",
			helpers.EscapeMarkdownV2(e.ItemName),
			helpers.FormatPrice(e.StartPrice, true),
			helpers.FormatPrice(e.LastPrice, true),
			helpers.EscapeMarkdownV2(since),
		))
	}
	return list.String()
}

// errorText maps an error kind to the user-facing message.
func errorText(err error) string {
	var msgID string
	switch types.Code(err) {
	case "INVALID_LINK":
		msgID = "That does not look like a steam profile link."
	case "PROFILE_PRIVATE":
		msgID = "Your profile is private. Make it public and try again."
	case "INVENTORY_PRIVATE":
		msgID = "Your inventory is private. Open it in your steam privacy settings."
	case "STEAM_ID_MISSING":
		msgID = "Send me a link to your steam profile first."
	case "PRICE_UNAVAILABLE":
		msgID = "Could not get a market price for that item right now."
	case "STORAGE_ERROR":
		msgID = "Something went wrong on my side. Please try again."
	default:
		msgID = "Steam is not responding right now. Please try again in a few minutes."
	}
	return helpers.EscapeMarkdownV2(translation.Translate(msgID))
}
