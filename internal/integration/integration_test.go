package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"prime-quiz-bot/internal/app"
	"prime-quiz-bot/internal/domain"
	"prime-quiz-bot/internal/infra/memory"
	infrapg "prime-quiz-bot/internal/infra/postgres"
	pgmigrations "prime-quiz-bot/internal/infra/postgres/migrations"
	infraredis "prime-quiz-bot/internal/infra/redis"
)

type stubCertificates struct{}

func (stubCertificates) RenderCertificate(_ context.Context, p domain.Participant, _ int, code string, _ time.Time) (domain.Document, error) {
	return domain.Document{Filename: "cert_" + p.ID + "_" + code + ".jpg", Data: []byte{0xff, 0xd8}}, nil
}

type stubReports struct{}

func (stubReports) RenderReport(_ context.Context, s domain.HistorySummary, _ []domain.RankedEntry) (domain.Document, error) {
	return domain.Document{Filename: "results_" + s.Code + ".pdf", Data: []byte("%PDF-")}, nil
}

func TestPostgresRecordStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	migrateRecords(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	runQuizLifecycle(t, ctx, infrapg.NewRecordStore(pool))
	assertHistoryReloads(t, ctx, infrapg.NewRecordStore(pool))
}

func TestRedisRecordStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	runQuizLifecycle(t, ctx, infraredis.NewRecordStore(client, ""))
	assertHistoryReloads(t, ctx, infraredis.NewRecordStore(client, ""))
}

func newService(t *testing.T, ctx context.Context, store app.RecordStore, outbox *memory.Outbox) *app.QuizService {
	t.Helper()
	registry := app.NewParticipantRegistry(store)
	registry.Load(ctx)
	history := app.NewHistoryStore(store)
	history.Load(ctx)
	return app.NewQuizService(app.ServiceDeps{
		Registry:     registry,
		History:      history,
		Notifier:     outbox,
		Certificates: stubCertificates{},
		Reports:      stubReports{},
	})
}

func runQuizLifecycle(t *testing.T, ctx context.Context, store app.RecordStore) {
	t.Helper()
	outbox := memory.NewOutbox()
	service := newService(t, ctx, store, outbox)

	if err := service.Register(ctx, "u1", "ali", "valiyev"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.Register(ctx, "u2", "bob", "karimov"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.OpenTest(ctx, "55", "abcde"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := service.Submit(ctx, "u1", "55*abcde"); err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	if _, _, err := service.Submit(ctx, "u2", "55*abxxx"); err != nil {
		t.Fatalf("submit u2: %v", err)
	}

	summary, err := service.CloseTest(ctx)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", summary.Results)
	}
	if len(outbox.For("u1")) == 0 || len(outbox.For("u2")) == 0 {
		t.Fatalf("expected results delivered to both participants")
	}
}

func assertHistoryReloads(t *testing.T, ctx context.Context, store app.RecordStore) {
	t.Helper()
	service := newService(t, ctx, store, memory.NewOutbox())

	if !service.IsRegistered("u1") || !service.IsRegistered("u2") {
		t.Fatalf("expected participants to survive restart")
	}
	recent := service.RecentTests(1)
	if len(recent) != 1 || recent[0].Code != "55" || recent[0].QuestionCount != 5 {
		t.Fatalf("unexpected history after restart: %+v", recent)
	}
	ranked := app.Rank(recent[0])
	if ranked[0].FullName != "valiyev ali" || ranked[0].Percent != 100 || ranked[1].Percent != 40 {
		t.Fatalf("unexpected ranking: %+v", ranked)
	}
	doc, err := service.Report(ctx, "55")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if doc.Filename != "results_55.pdf" {
		t.Fatalf("unexpected report filename %q", doc.Filename)
	}
}

func migrateRecords(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	applied, err := pgmigrations.Apply(ctx, dsn)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected the records migration to be applied, got %v", applied)
	}
	again, err := pgmigrations.Apply(ctx, dsn)
	if err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new migrations on rerun, got %v", again)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
