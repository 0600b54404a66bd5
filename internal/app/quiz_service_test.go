package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prime-quiz-bot/internal/app"
	"prime-quiz-bot/internal/domain"
	"prime-quiz-bot/internal/infra/memory"
)

type fakeCertificates struct {
	fail  map[string]bool
	panic map[string]bool
	calls []string
}

func (f *fakeCertificates) RenderCertificate(_ context.Context, p domain.Participant, percent int, code string, _ time.Time) (domain.Document, error) {
	f.calls = append(f.calls, p.ID)
	if f.panic[p.ID] {
		panic("font exploded")
	}
	if f.fail[p.ID] {
		return domain.Document{}, errors.New("no fonts")
	}
	return domain.Document{Filename: "cert_" + p.ID + "_" + code + ".jpg", Data: []byte{byte(percent)}}, nil
}

type fakeReports struct {
	err    error
	ranked []domain.RankedEntry
}

func (f *fakeReports) RenderReport(_ context.Context, s domain.HistorySummary, ranked []domain.RankedEntry) (domain.Document, error) {
	if f.err != nil {
		return domain.Document{}, f.err
	}
	f.ranked = ranked
	return domain.Document{Filename: "results_" + s.Code + ".pdf", Data: []byte("%PDF-")}, nil
}

type testEnv struct {
	service *app.QuizService
	outbox  *memory.Outbox
	store   *flakyStore
	certs   *fakeCertificates
	reports *fakeReports
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		outbox:  memory.NewOutbox(),
		store:   newFlakyStore(),
		certs:   &fakeCertificates{fail: map[string]bool{}, panic: map[string]bool{}},
		reports: &fakeReports{},
	}
	env.service = app.NewQuizService(app.ServiceDeps{
		Registry:     app.NewParticipantRegistry(env.store),
		History:      app.NewHistoryStore(env.store),
		Notifier:     env.outbox,
		Certificates: env.certs,
		Reports:      env.reports,
		Footer:       []string{"📢 follow us"},
		Now:          func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) },
	})
	return env
}

func (e *testEnv) register(t *testing.T, id, name, surname string) {
	t.Helper()
	require.NoError(t, e.service.Register(context.Background(), id, name, surname))
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "p1", "ali", "valiyev")

	require.NoError(t, env.service.OpenTest(ctx, "10", "abcab"))
	res, accepted, err := env.service.Submit(ctx, "p1", "10*abcxx")
	require.NoError(t, err)
	require.True(t, accepted)
	assert.Equal(t, 3, res.Correct)
	assert.Equal(t, 60, res.Percent)
	assert.Equal(t, "✅ Answer received", env.outbox.LastText("p1"))

	summary, err := env.service.CloseTest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", summary.Code)
	assert.Equal(t, 5, summary.QuestionCount)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, []domain.ResultEntry{{Name: "ali", Surname: "valiyev", Percent: 60, Correct: 3}}, summary.Results)

	deliveries := env.outbox.For("p1")
	require.Len(t, deliveries, 3)
	assert.Contains(t, deliveries[1].Message.Text, "📈 Result: 60%")
	assert.Contains(t, deliveries[1].Message.Text, "📢 follow us")
	require.NotNil(t, deliveries[2].Document)
	assert.Equal(t, "cert_p1_10.jpg", deliveries[2].Document.Filename)

	_, open := env.service.ActiveCode()
	assert.False(t, open)

	doc, err := env.service.Report(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "results_10.pdf", doc.Filename)
	require.Len(t, env.reports.ranked, 1)
	assert.Equal(t, 1, env.reports.ranked[0].Rank)
	assert.Equal(t, "3/5", env.reports.ranked[0].Score())
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, _, err := env.service.Submit(ctx, "p1", "10*abc")
	assert.ErrorIs(t, err, domain.ErrNotOpen)

	require.NoError(t, env.service.OpenTest(ctx, "10", "abc"))
	_, _, err = env.service.Submit(ctx, "p1", "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, accepted, err := env.service.Submit(ctx, "p1", "11*abc")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Empty(t, env.outbox.For("p1"), "mismatched codes get no acknowledgement")

	assert.ErrorIs(t, env.service.OpenTest(ctx, "12", "abc"), domain.ErrConflict)
	code, _ := env.service.ActiveCode()
	assert.Equal(t, "10", code)
}

func TestResubmissionDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "p1", "ali", "valiyev")
	require.NoError(t, env.service.OpenTest(ctx, "10", "abcab"))

	first, _, err := env.service.Submit(ctx, "p1", "10*abcab")
	require.NoError(t, err)
	second, _, err := env.service.Submit(ctx, "p1", "10*abcab")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	summary, err := env.service.CloseTest(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 100, summary.Results[0].Percent)
}

func TestCloseWithoutEligibleParticipants(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.service.CloseTest(ctx)
	require.ErrorIs(t, err, domain.ErrNotOpen)

	require.NoError(t, env.service.OpenTest(ctx, "10", "abc"))
	summary, err := env.service.CloseTest(ctx)
	require.NoError(t, err)
	assert.NotNil(t, summary.Results)
	assert.Empty(t, summary.Results)

	require.NoError(t, env.service.OpenTest(ctx, "11", "abc"))
	_, _, err = env.service.Submit(ctx, "ghost", "11*abc")
	require.NoError(t, err)
	env.outbox.Reset()
	summary, err = env.service.CloseTest(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Empty(t, env.outbox.For("ghost"), "unregistered submitters get no results")
	assert.Empty(t, env.certs.calls)

	assert.Len(t, env.service.RecentTests(10), 2)
}

func TestCloseSurvivesPerParticipantFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		env.register(t, id, "name"+id, "surname"+id)
	}
	env.certs.fail["p1"] = true
	env.certs.panic["p2"] = true
	env.outbox.Fail["p3"] = true
	env.outbox.FailErr = errors.New("blocked by user")

	require.NoError(t, env.service.OpenTest(ctx, "10", "abcd"))
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		_, _, err := env.service.Submit(ctx, id, "10*abcd")
		require.NoError(t, err)
	}
	env.outbox.Reset()

	summary, err := env.service.CloseTest(ctx)
	require.NoError(t, err)
	assert.Len(t, summary.Results, 4, "failures never drop computed scores")
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, env.certs.calls)

	p4 := env.outbox.For("p4")
	require.Len(t, p4, 2)
	assert.NotNil(t, p4[1].Document)

	p1 := env.outbox.For("p1")
	require.Len(t, p1, 1, "result text still sent when the certificate fails")
}

func TestClosePersistenceFailureIsReported(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "p1", "ali", "valiyev")
	require.NoError(t, env.service.OpenTest(ctx, "10", "ab"))
	_, _, err := env.service.Submit(ctx, "p1", "10*ab")
	require.NoError(t, err)

	env.store.failSave = true
	summary, err := env.service.CloseTest(ctx)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, "10", summary.Code)
	assert.Contains(t, env.outbox.LastText("p1"), "Result: 100%")

	_, open := env.service.ActiveCode()
	assert.False(t, open, "session is closed even when history could not be written")
}

func TestReportErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.service.Report(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.service.OpenTest(ctx, "10", "ab"))
	_, err = env.service.CloseTest(ctx)
	require.NoError(t, err)

	env.reports.err = errors.New("no paper")
	_, err = env.service.Report(ctx, "10")
	assert.ErrorIs(t, err, domain.ErrRender)
}
