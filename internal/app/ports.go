package app

import (
	"context"
	"time"

	"prime-quiz-bot/internal/domain"
)

// RecordStore persists whole serialized records by key (file, Redis, Postgres, memory).
// Load returns domain.ErrRecordNotFound for a key that was never saved.
type RecordStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Notifier delivers replies and generated documents to a remote user.
type Notifier interface {
	SendText(ctx context.Context, recipientID string, msg domain.Message) error
	SendDocument(ctx context.Context, recipientID string, doc domain.Document) error
}

// CertificateRenderer produces the per-participant certificate image.
type CertificateRenderer interface {
	RenderCertificate(ctx context.Context, participant domain.Participant, percent int, code string, issued time.Time) (domain.Document, error)
}

// ReportRenderer produces the ranked results document of a closed test.
type ReportRenderer interface {
	RenderReport(ctx context.Context, summary domain.HistorySummary, ranked []domain.RankedEntry) (domain.Document, error)
}
