package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"prime-quiz-bot/internal/app"
	"prime-quiz-bot/internal/config"
	"prime-quiz-bot/internal/domain"
	"prime-quiz-bot/internal/infra/file"
	"prime-quiz-bot/internal/infra/memory"
	pgstore "prime-quiz-bot/internal/infra/postgres"
	redisstore "prime-quiz-bot/internal/infra/redis"
	"prime-quiz-bot/internal/render"
	transport "prime-quiz-bot/internal/transport/http"
)

var errNoTelegram = errors.New("telegram is not configured")

// openRecordStore builds the configured record store. The returned func
// releases its connections.
func openRecordStore(ctx context.Context, cfg config.Config) (app.RecordStore, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.NewRecordStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.NewRecordStore(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	case "postgres":
		if err := migrateRecords(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pgstore.NewRecordStore(pool), pool.Close, nil
	default:
		return file.NewRecordStore(cfg.Storage.Dir), func() {}, nil
	}
}

// newQuizService loads persisted participants and history and wires the renderers.
func newQuizService(ctx context.Context, cfg config.Config, store app.RecordStore, notifier app.Notifier) (*app.QuizService, error) {
	certificates, err := render.NewCertificateRenderer(render.Branding{
		Title:          cfg.Branding.Title,
		Subtitle:       cfg.Branding.Subtitle,
		ResultLead:     cfg.Branding.ResultLead,
		ResultTemplate: cfg.Branding.ResultTemplate,
		Issuer:         cfg.Branding.Issuer,
	})
	if err != nil {
		return nil, err
	}

	registry := app.NewParticipantRegistry(store)
	registry.Load(ctx)
	history := app.NewHistoryStore(store)
	history.Load(ctx)

	return app.NewQuizService(app.ServiceDeps{
		Registry:     registry,
		History:      history,
		Notifier:     notifier,
		Certificates: certificates,
		Reports:      render.NewReportRenderer(),
		Footer:       cfg.Branding.Footer,
	}), nil
}

// routeNotifier delivers to websocket actors through the websocket and to
// everyone else through Telegram. The namespaces never overlap.
type routeNotifier struct {
	ws       *transport.WSHandler
	telegram app.Notifier
}

func (n routeNotifier) target(to string) (app.Notifier, error) {
	if strings.HasPrefix(to, transport.ActorPrefix) {
		return n.ws, nil
	}
	if n.telegram == nil {
		return nil, fmt.Errorf("%w: %s", errNoTelegram, to)
	}
	return n.telegram, nil
}

func (n routeNotifier) SendText(ctx context.Context, to string, msg domain.Message) error {
	target, err := n.target(to)
	if err != nil {
		return err
	}
	return target.SendText(ctx, to, msg)
}

func (n routeNotifier) SendDocument(ctx context.Context, to string, doc domain.Document) error {
	target, err := n.target(to)
	if err != nil {
		return err
	}
	return target.SendDocument(ctx, to, doc)
}
