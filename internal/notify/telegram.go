package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers one text message
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts messages to a single chat through the Bot API.
// The bot is authorized on the first Send and again after a failed attempt,
// so a network outage at startup only fails the messages sent during it.
type TelegramSender struct {
	token    string
	endpoint string

	chatID  int64
	channel string

	bot *tgbotapi.BotAPI
}

// NewTelegramSender binds a sender to chatID, which is either a numeric id or a @channel name.
// No request is made until the first message.
func NewTelegramSender(token, chatID string) (*TelegramSender, error) {
	return newTelegramSender(token, chatID, tgbotapi.APIEndpoint)
}

func newTelegramSender(token, chatID, endpoint string) (*TelegramSender, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}

	s := &TelegramSender{token: token, endpoint: endpoint}

	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") {
		s.channel = chatID
		return s, nil
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	s.chatID = id
	return s, nil
}

// Send posts text without link previews.
// The Bot API client has no context support, ctx is only checked before the call.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bot, err := s.client()
	if err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if s.channel != "" {
		msg = tgbotapi.NewMessageToChannel(s.channel, text)
	} else {
		msg = tgbotapi.NewMessage(s.chatID, text)
	}
	msg.DisableWebPagePreview = true

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	return nil
}

func (s *TelegramSender) client() (*tgbotapi.BotAPI, error) {
	if s.bot != nil {
		return s.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(s.token, s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("error connecting to telegram: %w", err)
	}

	log.Printf("Telegram: Authorized as @%s\n", bot.Self.UserName)
	s.bot = bot
	return bot, nil
}
