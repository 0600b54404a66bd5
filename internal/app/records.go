package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"prime-quiz-bot/internal/domain"
)

const (
	// ParticipantsKey is the record holding every registered profile.
	ParticipantsKey = "users"
	// HistoryKey is the record holding the ordered closed-test summaries.
	HistoryKey = "history"
)

var validate = validator.New()

// loadRecord reads key and treats any read failure as an empty record.
func loadRecord(ctx context.Context, store RecordStore, key string) []byte {
	data, err := store.Load(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("record unreadable, starting empty", "key", key, "err", err)
		return nil
	}
	return data
}
