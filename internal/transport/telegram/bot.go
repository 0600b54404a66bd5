package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"prime-quiz-bot/internal/domain"
)

// Handler receives the conversational inputs of one user at a time.
type Handler interface {
	Start(ctx context.Context, actorID string)
	Action(ctx context.Context, actorID, action string)
	Text(ctx context.Context, actorID, text string)
}

// Bot long-polls Telegram for updates and implements app.Notifier.
// Recipient ids are Telegram user ids, which equal private chat ids.
type Bot struct {
	api *tgbotapi.BotAPI
}

func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	slog.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api}, nil
}

// Run dispatches updates to h until ctx is canceled. Updates are handled one
// at a time.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if callbackID := route(ctx, h, update); callbackID != "" {
				if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
					slog.Warn("answer callback", "err", err)
				}
			}
		}
	}
}

// route feeds one update to h and returns the callback query id that still
// needs answering, if any.
func route(ctx context.Context, h Handler, update tgbotapi.Update) string {
	if q := update.CallbackQuery; q != nil {
		if q.From != nil {
			h.Action(ctx, strconv.FormatInt(q.From.ID, 10), q.Data)
		}
		return q.ID
	}
	m := update.Message
	if m == nil || m.From == nil {
		return ""
	}
	actorID := strconv.FormatInt(m.From.ID, 10)
	if m.IsCommand() {
		if m.Command() == "start" {
			h.Start(ctx, actorID)
		}
		return ""
	}
	if m.Text != "" {
		h.Text(ctx, actorID, m.Text)
	}
	return ""
}

func (b *Bot) SendText(_ context.Context, to string, msg domain.Message) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", to, err)
	}
	out := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Actions) > 0 {
		out.ReplyMarkup = keyboard(msg.Actions)
	}
	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	return nil
}

func (b *Bot) SendDocument(_ context.Context, to string, doc domain.Document) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("recipient %q: %w", to, err)
	}
	out := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Filename, Bytes: doc.Data})
	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("send document to %s: %w", to, err)
	}
	return nil
}

// keyboard lays out one inline button per row.
func keyboard(actions []domain.Action) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(a.Label, a.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
