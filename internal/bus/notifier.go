package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/harunnryd/denrei/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
)

// ChatSender posts a message to a chat surface.
type ChatSender interface {
	Name() string
	Send(ctx context.Context, recipient, text string) error
}

// ApprovalNotifier pings the owner when a low-confidence action lands in
// awaiting_approval. Deduplicates on ActionID because bus delivery is
// at-least-once.
type ApprovalNotifier struct {
	sender    ChatSender
	threshold float64
	mu        sync.Mutex
	seen      map[string]struct{}
}

func NewApprovalNotifier(sender ChatSender, autoThreshold float64) *ApprovalNotifier {
	return &ApprovalNotifier{
		sender:    sender,
		threshold: autoThreshold,
		seen:      make(map[string]struct{}),
	}
}

func (n *ApprovalNotifier) Name() string {
	return "approval-notifier-" + n.sender.Name()
}

func (n *ApprovalNotifier) HandleActionCreated(ctx context.Context, evt ActionCreated) error {
	if evt.Confidence >= n.threshold {
		return nil
	}

	n.mu.Lock()
	if _, dup := n.seen[evt.ActionID]; dup {
		n.mu.Unlock()
		return nil
	}
	n.seen[evt.ActionID] = struct{}{}
	n.mu.Unlock()

	text := fmt.Sprintf("Filed %q as %s (confidence %.0f%%). Approve it or change the type.",
		evt.Title, evt.Type, evt.Confidence*100)

	if err := n.sender.Send(ctx, evt.UserID, text); err != nil {
		// Allow a redelivery to retry
		n.mu.Lock()
		delete(n.seen, evt.ActionID)
		n.mu.Unlock()
		return err
	}
	return nil
}

// TelegramSender delivers notifications over Telegram. Recipients are chat IDs.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init telegram bot")
	}
	return &TelegramSender{bot: bot}, nil
}

func (t *TelegramSender) Name() string {
	return "telegram"
}

func (t *TelegramSender) Send(ctx context.Context, recipient, text string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return errors.Validation("invalid telegram chat id: " + recipient)
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrap(err, "failed to send telegram message")
	}

	slog.Debug("Telegram notification sent", "chat_id", recipient)
	return nil
}

// SlackSender delivers notifications to a Slack channel.
type SlackSender struct {
	client  *slack.Client
	channel string
}

func NewSlackSender(botToken, channel string) *SlackSender {
	return &SlackSender{client: slack.New(botToken), channel: channel}
}

func (s *SlackSender) Name() string {
	return "slack"
}

func (s *SlackSender) Send(ctx context.Context, recipient, text string) error {
	channel := s.channel
	if channel == "" {
		channel = recipient
	}

	_, _, err := s.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return errors.Wrap(err, "failed to send slack message")
	}

	slog.Debug("Slack notification sent", "channel", channel)
	return nil
}
