package ingress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/denrei/internal/admission"
	"github.com/harunnryd/denrei/internal/config"
	"github.com/harunnryd/denrei/internal/domain"
	denreiErrors "github.com/harunnryd/denrei/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAdapter long-polls Telegram and admits each text message. The
// update ID is the external ID, so Telegram's own redelivery is absorbed by
// the idempotency ledger.
type TelegramAdapter struct {
	token         string
	updateTimeout int
	admission     *admission.Service
	bot           *tgbotapi.BotAPI
	updates       tgbotapi.UpdatesChannel
}

func NewTelegramAdapter(token string, adm *admission.Service, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		admission:     adm,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram-adapter"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	var err error
	t.bot, err = tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return denreiErrors.Wrap(err, "failed to init telegram bot")
	}

	slog.Info("Telegram adapter started", "user", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout

	t.updates = t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-t.updates:
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return denreiErrors.Internal("telegram bot not initialized")
	}
	if _, err := t.bot.GetMe(); err != nil {
		return denreiErrors.Wrap(err, "telegram connection failed")
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message

	result, err := t.admission.Admit(ctx, admission.Event{
		Source:     domain.SourceTelegramText,
		ExternalID: fmt.Sprintf("%d", update.UpdateID),
		UserID:     fmt.Sprintf("%d", msg.Chat.ID),
		Text:       msg.Text,
		Timestamp:  time.Unix(int64(msg.Date), 0).UTC(),
	})
	if err != nil {
		slog.Error("Failed to admit telegram message", "update", update.UpdateID, "error", err)
		return
	}
	if !result.IsNew {
		slog.Debug("Telegram redelivery absorbed", "update", update.UpdateID)
	}
}
