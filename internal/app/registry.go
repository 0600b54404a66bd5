package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"prime-quiz-bot/internal/domain"
)

// ParticipantRegistry maps participant ids to their profiles. Profiles are
// never modified once registered.
type ParticipantRegistry struct {
	store        RecordStore
	participants map[string]domain.Participant
}

func NewParticipantRegistry(store RecordStore) *ParticipantRegistry {
	return &ParticipantRegistry{
		store:        store,
		participants: make(map[string]domain.Participant),
	}
}

// Load replaces the in-memory profiles with the persisted ones. Malformed
// records are dropped; an unreadable store leaves the registry empty.
func (r *ParticipantRegistry) Load(ctx context.Context) {
	r.participants = make(map[string]domain.Participant)
	data := loadRecord(ctx, r.store, ParticipantsKey)
	if len(data) == 0 {
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("participants record malformed, starting empty", "err", err)
		return
	}
	for id, msg := range raw {
		var p domain.Participant
		if err := json.Unmarshal(msg, &p); err != nil {
			slog.Warn("dropping malformed participant", "participant", id, "err", err)
			continue
		}
		if err := validate.Struct(p); err != nil {
			slog.Warn("dropping invalid participant", "participant", id, "err", err)
			continue
		}
		p.ID = id
		r.participants[id] = p
	}
}

func (r *ParticipantRegistry) Get(id string) (domain.Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

func (r *ParticipantRegistry) Len() int {
	return len(r.participants)
}

// Register adds a profile and rewrites the whole record. On a failed write the
// profile is not kept.
func (r *ParticipantRegistry) Register(ctx context.Context, p domain.Participant) error {
	if _, ok := r.participants[p.ID]; ok {
		return domain.ErrAlreadyRegistered
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("validate participant: %w", err)
	}
	r.participants[p.ID] = p
	if err := r.persist(ctx); err != nil {
		delete(r.participants, p.ID)
		return err
	}
	return nil
}

func (r *ParticipantRegistry) persist(ctx context.Context) error {
	data, err := json.MarshalIndent(r.participants, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode participants: %v", domain.ErrPersistence, err)
	}
	if err := r.store.Save(ctx, ParticipantsKey, data); err != nil {
		return fmt.Errorf("%w: save participants: %v", domain.ErrPersistence, err)
	}
	return nil
}
