package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"prime-quiz-bot/internal/domain"
)

// ServiceDeps wires the collaborators of a QuizService.
type ServiceDeps struct {
	Registry     *ParticipantRegistry
	History      *HistoryStore
	Notifier     Notifier
	Certificates CertificateRenderer
	Reports      ReportRenderer
	// Footer lines are appended to every result message.
	Footer []string
	// Now defaults to time.Now.
	Now func() time.Time
}

// QuizService contains the core quiz use cases. One mutex guards the session,
// the registry and the history, so callers may invoke it from any goroutine.
type QuizService struct {
	mu       sync.Mutex
	session  *TestSession
	registry *ParticipantRegistry
	history  *HistoryStore

	notifier     Notifier
	certificates CertificateRenderer
	reports      ReportRenderer
	footer       []string
	now          func() time.Time
}

func NewQuizService(deps ServiceDeps) *QuizService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &QuizService{
		session:      NewTestSession(),
		registry:     deps.Registry,
		history:      deps.History,
		notifier:     deps.Notifier,
		certificates: deps.Certificates,
		reports:      deps.Reports,
		footer:       deps.Footer,
		now:          now,
	}
}

// IsRegistered reports whether id has a stored profile.
func (s *QuizService) IsRegistered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registry.Get(id)
	return ok
}

// Register stores a new participant profile.
func (s *QuizService) Register(ctx context.Context, id, name, surname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Register(ctx, domain.Participant{ID: id, Name: name, Surname: surname})
}

// ActiveCode returns the code of the open test.
func (s *QuizService) ActiveCode() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.State() != SessionOpen {
		return "", false
	}
	return s.session.Code(), true
}

// OpenTest starts accepting answers for code against key.
func (s *QuizService) OpenTest(_ context.Context, code, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Open(code, key); err != nil {
		return err
	}
	slog.Info("test opened", "code", code, "questions", len([]rune(key)))
	return nil
}

// Submit parses "code*answers" from participantID and scores it. A code that
// targets another test is ignored: accepted is false and err is nil.
// Accepted submissions are acknowledged to the participant.
func (s *QuizService) Submit(ctx context.Context, participantID, text string) (result domain.ScoreResult, accepted bool, err error) {
	s.mu.Lock()
	if s.session.State() != SessionOpen {
		s.mu.Unlock()
		return domain.ScoreResult{}, false, domain.ErrNotOpen
	}
	code, answers, ok := strings.Cut(text, "*")
	if !ok {
		s.mu.Unlock()
		return domain.ScoreResult{}, false, domain.ErrInvalidFormat
	}
	result, accepted, err = s.session.Submit(participantID, code, answers)
	s.mu.Unlock()
	if err != nil || !accepted {
		return result, accepted, err
	}

	if err := s.notifier.SendText(ctx, participantID, domain.Message{Text: "✅ Answer received"}); err != nil {
		slog.Error("acknowledge submission", "participant", participantID, "err", err)
	}
	return result, true, nil
}

type pendingResult struct {
	participant domain.Participant
	submission  domain.Submission
}

// CloseTest ends the open test, records its summary in history and then sends
// every registered submitter their breakdown and certificate, one at a time.
// Submitters without a profile are left out. A failed history write is
// returned after delivery together with the summary.
func (s *QuizService) CloseTest(ctx context.Context) (domain.HistorySummary, error) {
	s.mu.Lock()
	closed, err := s.session.Close()
	if err != nil {
		s.mu.Unlock()
		return domain.HistorySummary{}, err
	}

	closedAt := s.now()
	summary := domain.HistorySummary{
		ID:            uuid.NewString(),
		Code:          closed.Code,
		QuestionCount: len([]rune(closed.Key)),
		ClosedAt:      closedAt,
		Results:       make([]domain.ResultEntry, 0, len(closed.Submissions)),
	}
	pending := make([]pendingResult, 0, len(closed.Submissions))
	for _, sub := range closed.Submissions {
		p, ok := s.registry.Get(sub.ParticipantID)
		if !ok {
			slog.Warn("skipping unregistered submitter", "participant", sub.ParticipantID, "code", closed.Code)
			continue
		}
		summary.Results = append(summary.Results, domain.ResultEntry{
			Name:    p.Name,
			Surname: p.Surname,
			Percent: sub.Percent,
			Correct: sub.Correct,
		})
		pending = append(pending, pendingResult{participant: p, submission: sub})
	}
	persistErr := s.history.Append(ctx, summary)
	s.mu.Unlock()

	if persistErr != nil {
		slog.Error("history append failed", "code", summary.Code, "err", persistErr)
	}
	for _, pr := range pending {
		s.deliverResult(ctx, closed, pr, closedAt)
	}
	slog.Info("test closed", "code", summary.Code, "participants", len(summary.Results))
	return summary, persistErr
}

func (s *QuizService) deliverResult(ctx context.Context, closed ClosedTest, pr pendingResult, issued time.Time) {
	id := pr.participant.ID
	defer func() {
		if r := recover(); r != nil {
			slog.Error("result delivery panicked", "participant", id, "code", closed.Code, "panic", r)
		}
	}()

	text := ResultMessage(closed.Key, pr.submission.Answers, pr.submission.Percent, s.footer)
	if err := s.notifier.SendText(ctx, id, domain.Message{Text: text}); err != nil {
		slog.Error("send result", "participant", id, "code", closed.Code, "err", err)
	}

	doc, err := s.certificates.RenderCertificate(ctx, pr.participant, pr.submission.Percent, closed.Code, issued)
	if err != nil {
		slog.Error("render certificate", "participant", id, "code", closed.Code, "err", err)
		return
	}
	if err := s.notifier.SendDocument(ctx, id, doc); err != nil {
		slog.Error("send certificate", "participant", id, "code", closed.Code, "err", err)
	}
}

// Report renders the ranked results of the most recent test closed under code.
func (s *QuizService) Report(ctx context.Context, code string) (domain.Document, error) {
	s.mu.Lock()
	summary, err := s.history.FindLatestByCode(code)
	s.mu.Unlock()
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.reports.RenderReport(ctx, summary, Rank(summary))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: report %s: %v", domain.ErrRender, code, err)
	}
	return doc, nil
}

// RecentTests lists up to n closed tests, newest first.
func (s *QuizService) RecentTests(n int) []domain.HistorySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(n)
}
