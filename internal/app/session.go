package app

import (
	"strings"
	"unicode"

	"prime-quiz-bot/internal/domain"
)

// SessionState tags whether a test is currently accepting answers.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionOpen
)

// TestSession is the single-slot holder for the running test. Open and Close
// are the only transitions; Submit mutates only while open.
// It is not safe for concurrent use; QuizService serializes access.
type TestSession struct {
	state       SessionState
	code        string
	key         string
	order       []string
	submissions map[string]domain.Submission
}

// ClosedTest is what remains of a session after Close.
type ClosedTest struct {
	Code        string
	Key         string
	Submissions []domain.Submission // first-submission order
}

func NewTestSession() *TestSession {
	return &TestSession{state: SessionIdle}
}

func (s *TestSession) State() SessionState {
	return s.state
}

// Code returns the open test's code, or "" when idle.
func (s *TestSession) Code() string {
	return s.code
}

// Open starts a test. It never replaces a running test.
func (s *TestSession) Open(code, key string) error {
	if s.state == SessionOpen {
		return domain.ErrConflict
	}
	if err := validateCode(code); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	s.state = SessionOpen
	s.code = code
	s.key = key
	s.order = nil
	s.submissions = make(map[string]domain.Submission)
	return nil
}

// Submit scores answers for participantID. accepted is false when code targets
// a different test; that is not an error.
func (s *TestSession) Submit(participantID, code, answers string) (result domain.ScoreResult, accepted bool, err error) {
	if s.state != SessionOpen {
		return domain.ScoreResult{}, false, domain.ErrNotOpen
	}
	if code != s.code {
		return domain.ScoreResult{}, false, nil
	}
	result, err = Score(s.key, answers)
	if err != nil {
		return domain.ScoreResult{}, false, err
	}
	if _, seen := s.submissions[participantID]; !seen {
		s.order = append(s.order, participantID)
	}
	s.submissions[participantID] = domain.Submission{ParticipantID: participantID, ScoreResult: result}
	return result, true, nil
}

// Close ends the test and returns its submissions, leaving the session idle.
func (s *TestSession) Close() (ClosedTest, error) {
	if s.state != SessionOpen {
		return ClosedTest{}, domain.ErrNotOpen
	}
	closed := ClosedTest{
		Code:        s.code,
		Key:         s.key,
		Submissions: make([]domain.Submission, 0, len(s.order)),
	}
	for _, id := range s.order {
		closed.Submissions = append(closed.Submissions, s.submissions[id])
	}
	s.state = SessionIdle
	s.code = ""
	s.key = ""
	s.order = nil
	s.submissions = nil
	return closed, nil
}

func validateCode(code string) error {
	if code == "" || strings.Contains(code, "*") {
		return domain.ErrInvalidCode
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	if strings.ContainsRune(key, '*') || strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return domain.ErrInvalidKey
	}
	return nil
}
