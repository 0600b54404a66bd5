package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"prime-quiz-bot/internal/domain"
)

// Admin panel actions.
const (
	ActionNew     = "new"
	ActionResults = "results"
	ActionStop    = "stop"
	ActionCancel  = "cancel"
)

// CreationState tracks the admin's test creation dialogue.
type CreationState int

const (
	CreationIdle CreationState = iota
	CreationAwaitingCode
	CreationAwaitingKey
	CreationOpen
)

// LookupState tracks the admin's report lookup dialogue.
type LookupState int

const (
	LookupIdle LookupState = iota
	LookupAwaitingCode
)

// RegistrationState tracks one participant's registration dialogue.
type RegistrationState int

const (
	RegistrationUnregistered RegistrationState = iota
	RegistrationAwaitingSurname
	RegistrationRegistered
)

type creationFlow struct {
	state CreationState
	code  string
}

const (
	// pendingRegistrationTTL bounds how long a half-finished registration is kept.
	pendingRegistrationTTL = 24 * time.Hour
	recentLookupCodes      = 5
)

type registrationFlow struct {
	state   RegistrationState
	name    string
	started time.Time
}

// Controller routes one inbound string at a time to the dialogue it belongs
// to and invokes the quiz use cases when a dialogue completes. Inputs are
// handled one at a time, except that result delivery after a stop runs
// without blocking other users.
type Controller struct {
	mu       sync.Mutex
	adminID  string
	service  *QuizService
	notifier Notifier

	creation      creationFlow
	lookup        LookupState
	registrations map[string]*registrationFlow
	now           func() time.Time
}

func NewController(adminID string, service *QuizService, notifier Notifier) *Controller {
	return &Controller{
		adminID:       adminID,
		service:       service,
		notifier:      notifier,
		registrations: make(map[string]*registrationFlow),
		now:           time.Now,
	}
}

func (c *Controller) IsAdmin(actorID string) bool {
	return actorID == c.adminID
}

// CreationState is exposed for inspection.
func (c *Controller) CreationState() CreationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creation.state
}

func (c *Controller) LookupState() LookupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup
}

func (c *Controller) RegistrationState(actorID string) RegistrationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registrationStateLocked(actorID)
}

func (c *Controller) registrationStateLocked(actorID string) RegistrationState {
	if c.service.IsRegistered(actorID) {
		return RegistrationRegistered
	}
	if flow, ok := c.registrations[actorID]; ok && !c.expired(flow) {
		return flow.state
	}
	return RegistrationUnregistered
}

// Start handles the entry command.
func (c *Controller) Start(ctx context.Context, actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsAdmin(actorID) {
		c.reply(ctx, actorID, c.panel("👑 Admin panel"))
		return
	}
	switch c.registrationStateLocked(actorID) {
	case RegistrationRegistered:
		c.replyText(ctx, actorID, "📝 Send test code*answers\nExample: 55*abcde")
	case RegistrationAwaitingSurname:
		c.replyText(ctx, actorID, "Surname:")
	default:
		c.replyText(ctx, actorID, "👤 Your first name:")
	}
}

// Action handles an admin panel button. Actions from anyone else are ignored.
func (c *Controller) Action(ctx context.Context, actorID, action string) {
	if !c.IsAdmin(actorID) {
		return
	}
	if action == ActionStop {
		c.stop(ctx, actorID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch action {
	case ActionNew:
		if _, open := c.service.ActiveCode(); open {
			c.creation.state = CreationOpen
			c.reply(ctx, actorID, domain.Message{
				Text:    "⚠️ A test is already running. Stop it before starting a new one.",
				Actions: []domain.Action{{ID: ActionStop, Label: "🛑 Stop test"}},
			})
			return
		}
		c.lookup = LookupIdle
		c.creation = creationFlow{state: CreationAwaitingCode}
		c.replyText(ctx, actorID, "Enter the test code:")
	case ActionResults:
		if c.creation.state != CreationOpen {
			c.creation = creationFlow{state: CreationIdle}
		}
		c.lookup = LookupAwaitingCode
		c.replyText(ctx, actorID, c.lookupPrompt())
	case ActionCancel:
		if c.creation.state != CreationOpen {
			c.creation = creationFlow{state: CreationIdle}
		}
		c.lookup = LookupIdle
		c.reply(ctx, actorID, c.panel("Cancelled."))
	default:
		slog.Warn("unknown admin action", "action", action)
	}
}

// Text handles one free-text message, trimmed and lowercased.
func (c *Controller) Text(ctx context.Context, actorID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return
	}
	if c.IsAdmin(actorID) {
		c.adminText(ctx, actorID, text)
		return
	}
	switch c.registrationStateLocked(actorID) {
	case RegistrationRegistered:
		c.submit(ctx, actorID, text)
	default:
		c.register(ctx, actorID, text)
	}
}

func (c *Controller) adminText(ctx context.Context, actorID, text string) {
	switch {
	case c.creation.state == CreationAwaitingCode:
		if err := validateCode(text); err != nil {
			c.replyText(ctx, actorID, "❗ "+err.Error())
			return
		}
		c.creation = creationFlow{state: CreationAwaitingKey, code: text}
		c.replyText(ctx, actorID, "Enter the answer key:")
	case c.creation.state == CreationAwaitingKey:
		c.open(ctx, actorID, text)
	case c.lookup == LookupAwaitingCode:
		c.report(ctx, actorID, text)
	default:
		c.reply(ctx, actorID, c.panel("👑 Admin panel"))
	}
}

func (c *Controller) open(ctx context.Context, actorID, key string) {
	err := c.service.OpenTest(ctx, c.creation.code, key)
	switch {
	case err == nil:
		c.creation = creationFlow{state: CreationOpen}
		c.reply(ctx, actorID, domain.Message{
			Text:    "🚀 Test started!",
			Actions: []domain.Action{{ID: ActionStop, Label: "🛑 Stop test"}},
		})
	case errors.Is(err, domain.ErrConflict):
		c.creation = creationFlow{state: CreationOpen}
		c.replyText(ctx, actorID, "⚠️ A test is already running.")
	default:
		c.replyText(ctx, actorID, "❗ "+err.Error())
	}
}

// stop closes the open test without holding c.mu, so other users keep being
// served while results are delivered.
func (c *Controller) stop(ctx context.Context, actorID string) {
	summary, err := c.service.CloseTest(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case errors.Is(err, domain.ErrNotOpen):
		if c.creation.state == CreationOpen {
			c.creation = creationFlow{state: CreationIdle}
		}
		c.replyText(ctx, actorID, "No active test.")
		return
	case err != nil && summary.Code == "":
		c.replyText(ctx, actorID, "❌ "+err.Error())
		return
	}
	if c.creation.state == CreationOpen {
		c.creation = creationFlow{state: CreationIdle}
	}
	text := fmt.Sprintf("✅ Test %s finished: %d participants", summary.Code, len(summary.Results))
	if err != nil {
		text += "\n⚠️ History was not saved: " + err.Error()
	}
	c.reply(ctx, actorID, c.panel(text))
}

func (c *Controller) report(ctx context.Context, actorID, code string) {
	doc, err := c.service.Report(ctx, code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.replyText(ctx, actorID, "❌ Test not found")
		return
	case err != nil:
		slog.Error("report failed", "code", code, "err", err)
		c.replyText(ctx, actorID, "❌ Could not build the report: "+err.Error())
		return
	}
	if err := c.notifier.SendDocument(ctx, actorID, doc); err != nil {
		slog.Error("send report", "code", code, "err", err)
		return
	}
	c.lookup = LookupIdle
}

// lookupPrompt asks for a code and lists the most recently closed ones.
func (c *Controller) lookupPrompt() string {
	prompt := "Which test code?"
	seen := make(map[string]bool)
	var codes []string
	for _, s := range c.service.RecentTests(recentLookupCodes) {
		if !seen[s.Code] {
			seen[s.Code] = true
			codes = append(codes, s.Code)
		}
	}
	if len(codes) == 0 {
		return prompt
	}
	return prompt + "\nRecent: " + strings.Join(codes, ", ")
}

// prunePending drops registrations abandoned before the surname arrived.
func (c *Controller) prunePending() {
	for id, flow := range c.registrations {
		if c.expired(flow) {
			delete(c.registrations, id)
		}
	}
}

func (c *Controller) expired(flow *registrationFlow) bool {
	return flow.started.Before(c.now().Add(-pendingRegistrationTTL))
}

func (c *Controller) register(ctx context.Context, actorID, text string) {
	flow, ok := c.registrations[actorID]
	if ok && c.expired(flow) {
		delete(c.registrations, actorID)
		ok = false
	}
	if !ok {
		c.prunePending()
		flow = &registrationFlow{state: RegistrationUnregistered, started: c.now()}
		c.registrations[actorID] = flow
	}
	switch flow.state {
	case RegistrationUnregistered:
		flow.name = text
		flow.state = RegistrationAwaitingSurname
		c.replyText(ctx, actorID, "Surname:")
	case RegistrationAwaitingSurname:
		if err := c.service.Register(ctx, actorID, flow.name, text); err != nil {
			slog.Error("register participant", "participant", actorID, "err", err)
			c.replyText(ctx, actorID, "❌ Registration failed, send your surname again.")
			return
		}
		delete(c.registrations, actorID)
		c.replyText(ctx, actorID, "✅ You are registered\n📝 Send test code*answers\nExample: 55*abcde")
	}
}

func (c *Controller) submit(ctx context.Context, actorID, text string) {
	_, _, err := c.service.Submit(ctx, actorID, text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotOpen):
		c.replyText(ctx, actorID, "⏳ No active test")
	case errors.Is(err, domain.ErrInvalidFormat):
		c.replyText(ctx, actorID, "❗ Format: 55*abcde")
	default:
		slog.Error("submit answers", "participant", actorID, "err", err)
		c.replyText(ctx, actorID, "❌ "+err.Error())
	}
}

func (c *Controller) panel(text string) domain.Message {
	return domain.Message{
		Text: text,
		Actions: []domain.Action{
			{ID: ActionNew, Label: "🆕 New test"},
			{ID: ActionResults, Label: "📊 Results"},
		},
	}
}

func (c *Controller) replyText(ctx context.Context, to, text string) {
	c.reply(ctx, to, domain.Message{Text: text})
}

func (c *Controller) reply(ctx context.Context, to string, msg domain.Message) {
	if err := c.notifier.SendText(ctx, to, msg); err != nil {
		slog.Error("send reply", "to", to, "err", err)
	}
}
