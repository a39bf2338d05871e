package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"

	"github.com/paradisestayz/staywatch/internal/logger"
)

// TelegramConfig configures the Telegram sink.
type TelegramConfig struct {
	Token              string
	ChatIDs            []int64
	SendTimeoutSeconds int
}

// botAPI is the slice of telego the sink uses; tests substitute a mock.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
}

// TelegramSink delivers messages and attachments to the configured
// chats. Usually the operator-facing escalation channel.
type TelegramSink struct {
	cfg    TelegramConfig
	bot    botAPI
	logger *logger.Logger
}

// NewTelegramSink creates the Telegram sink, validating the token with
// the Bot API.
func NewTelegramSink(cfg TelegramConfig, log *logger.Logger) (*TelegramSink, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSink{cfg: cfg, bot: bot, logger: log}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

// Send delivers the message text to every configured chat, then ships
// attachments as documents. A failure for any chat fails the send so
// the dispatcher records the channel as failed.
func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	text := msg.Subject
	if msg.Body != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}

	for _, chatID := range s.cfg.ChatIDs {
		sendCtx, cancel := s.sendTimeout(ctx)
		_, err := s.bot.SendMessage(sendCtx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: chatID},
			Text:   text,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
		}

		for _, att := range msg.Attachments {
			sendCtx, cancel := s.sendTimeout(ctx)
			_, err := s.bot.SendDocument(sendCtx, &telego.SendDocumentParams{
				ChatID:   telego.ChatID{ID: chatID},
				Document: telego.InputFile{File: telegoutil.NameReader(bytes.NewReader(att.Data), att.Filename)},
			})
			cancel()
			if err != nil {
				return fmt.Errorf("telegram document to chat %d: %w", chatID, err)
			}
		}
	}

	s.logger.Info("telegram sent", logger.Field{Key: "chats", Value: len(s.cfg.ChatIDs)})
	return nil
}

func (s *TelegramSink) sendTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.SendTimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
}
