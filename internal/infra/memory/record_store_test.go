package memory

import (
	"context"
	"errors"
	"testing"

	"prime-quiz-bot/internal/domain"
)

func TestRecordStoreLifecycle(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "users"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}

	payload := []byte(`{"1":{"name":"ali","surname":"valiyev"}}`)
	if err := store.Save(ctx, "users", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'x'

	got, err := store.Load(ctx, "users")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[0] != '{' {
		t.Fatalf("expected stored copy to be isolated from caller buffer, got %q", got)
	}
}

func TestOutboxFailsConfiguredRecipients(t *testing.T) {
	outbox := NewOutbox()
	outbox.Fail["u2"] = true
	outbox.FailErr = errors.New("blocked")
	ctx := context.Background()

	if err := outbox.SendText(ctx, "u1", domain.Message{Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := outbox.SendText(ctx, "u2", domain.Message{Text: "hi"}); err == nil {
		t.Fatalf("expected failure for u2")
	}
	if got := outbox.LastText("u1"); got != "hi" {
		t.Fatalf("expected hi, got %q", got)
	}
	if len(outbox.For("u2")) != 0 {
		t.Fatalf("expected nothing recorded for u2")
	}
}
