package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"prime-quiz-bot/internal/domain"
)

// HistoryStore is the append-only log of closed tests. The full sequence is
// kept in memory and rewritten on every append.
type HistoryStore struct {
	store     RecordStore
	summaries []domain.HistorySummary
}

func NewHistoryStore(store RecordStore) *HistoryStore {
	return &HistoryStore{store: store}
}

// Load replaces the in-memory log with the persisted one, skipping records
// that fail validation.
func (h *HistoryStore) Load(ctx context.Context) {
	h.summaries = nil
	data := loadRecord(ctx, h.store, HistoryKey)
	if len(data) == 0 {
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("history record malformed, starting empty", "err", err)
		return
	}
	for i, msg := range raw {
		var s domain.HistorySummary
		if err := json.Unmarshal(msg, &s); err != nil {
			slog.Warn("dropping malformed summary", "index", i, "err", err)
			continue
		}
		if err := validate.Struct(s); err != nil {
			slog.Warn("dropping invalid summary", "index", i, "code", s.Code, "err", err)
			continue
		}
		if s.Results == nil {
			s.Results = []domain.ResultEntry{}
		}
		h.summaries = append(h.summaries, s)
	}
}

// Append adds summary to the end of the log and persists the whole log. The
// summary stays in memory even when the write fails.
func (h *HistoryStore) Append(ctx context.Context, summary domain.HistorySummary) error {
	h.summaries = append(h.summaries, cloneSummary(summary))
	data, err := json.MarshalIndent(h.summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode history: %v", domain.ErrPersistence, err)
	}
	if err := h.store.Save(ctx, HistoryKey, data); err != nil {
		return fmt.Errorf("%w: save history: %v", domain.ErrPersistence, err)
	}
	return nil
}

// FindLatestByCode scans from the newest summary backwards so a reused code
// resolves to its most recent test.
func (h *HistoryStore) FindLatestByCode(code string) (domain.HistorySummary, error) {
	for i := len(h.summaries) - 1; i >= 0; i-- {
		if h.summaries[i].Code == code {
			return cloneSummary(h.summaries[i]), nil
		}
	}
	return domain.HistorySummary{}, domain.ErrNotFound
}

// Recent returns up to n summaries, newest first.
func (h *HistoryStore) Recent(n int) []domain.HistorySummary {
	out := make([]domain.HistorySummary, 0, n)
	for i := len(h.summaries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneSummary(h.summaries[i]))
	}
	return out
}

func (h *HistoryStore) Len() int {
	return len(h.summaries)
}

func cloneSummary(s domain.HistorySummary) domain.HistorySummary {
	s.Results = append([]domain.ResultEntry{}, s.Results...)
	return s
}
