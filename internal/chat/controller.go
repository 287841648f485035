// Package chat orchestrates conversation turns and the per-tab session registry.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/learnerbot/internal/catalog"
	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/ashureev/learnerbot/internal/domain"
)

const (
	// XPPerTurn is awarded for every successful reply.
	XPPerTurn = 10
	// CuriousMindThreshold is the log length that unlocks the curious-mind badge.
	CuriousMindThreshold = 10
	// ApologyText replaces the reply when the backend fails.
	ApologyText = "Something went wrong. Please try again. I'm here to help once you're ready!"
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only submissions.
	ErrEmptyInput = errors.New("message is empty")
	// ErrTurnInProgress is returned when a submission arrives while a reply is pending.
	ErrTurnInProgress = errors.New("a reply is already in progress")
)

// State is the turn state of a controller.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progress is the subset of the progress engine the controller drives.
// *progress.Engine implements it.
type Progress interface {
	Snapshot(ctx context.Context) (domain.UserProgress, error)
	AddXP(ctx context.Context, amount int) (domain.UserProgress, error)
	EarnBadge(ctx context.Context, id string) (*domain.Badge, error)
	RecordQuizAnswer(ctx context.Context, correct bool) (domain.UserProgress, error)
}

// TurnResult is the outcome of one Submit.
type TurnResult struct {
	User      domain.Message
	Bot       domain.Message
	Failed    bool
	Progress  *domain.UserProgress
	NewBadges []domain.Badge
	// ProgressErr is set when a progress update could not be persisted.
	// The transcript is never rolled back for it.
	ProgressErr error
}

// Controller runs the turns of one conversation. It owns the message log.
type Controller struct {
	backend  Backend
	progress Progress
	ids      *domain.IDSource
	now      func() time.Time
	log      *slog.Logger

	mu         sync.Mutex
	messages   []domain.Message
	state      State
	started    bool
	lastActive time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the controller clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDSource shares an id source with the backend.
func WithIDSource(ids *domain.IDSource) Option {
	return func(c *Controller) { c.ids = ids }
}

// WithLogger sets the logger used for turn failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController creates an idle controller with an empty log.
func NewController(backend Backend, progress Progress, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		progress: progress,
		ids:      domain.NewIDSource(),
		now:      time.Now,
		log:      slog.Default(),
		messages: []domain.Message{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActive = c.now()
	return c
}

// Start appends the welcome message and unlocks the first-chat badge. Only
// the first call has any effect. The returned badge is nil unless it was
// unlocked by this call.
func (c *Controller) Start(ctx context.Context) (*domain.Badge, error) {
	if !c.welcome() {
		return nil, nil
	}
	return c.awardFirstChat(ctx)
}

func (c *Controller) welcome() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return false
	}
	c.started = true
	c.messages = append(c.messages, c.backend.Welcome())
	return true
}

func (c *Controller) awardFirstChat(ctx context.Context) (*domain.Badge, error) {
	b, err := c.progress.EarnBadge(ctx, catalog.BadgeFirstChat)
	if err != nil {
		c.log.Warn("Failed to unlock first-chat badge", "error", err)
		return nil, err
	}
	return b, nil
}

// Submit runs one turn. The log grows by exactly two messages unless an
// error is returned, in which case it is unchanged.
func (c *Controller) Submit(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.state == StateAwaitingResponse {
		c.mu.Unlock()
		return TurnResult{}, ErrTurnInProgress
	}
	user := c.newMessage(domain.AuthorUser, text)
	c.messages = append(c.messages, user)
	c.state = StateAwaitingResponse
	c.lastActive = c.now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.lastActive = c.now()
		c.mu.Unlock()
	}()

	res := TurnResult{User: user.Clone()}

	bot, err := c.backend.Reply(ctx, text)
	if err != nil {
		c.logFailure(err)
		bot = c.newMessage(domain.AuthorBot, ApologyText)
		res.Failed = true
	}

	c.mu.Lock()
	c.messages = append(c.messages, bot)
	logLen := len(c.messages)
	c.mu.Unlock()

	res.Bot = bot.Clone()
	if !res.Failed {
		c.applyProgress(ctx, &res, bot, logLen)
	}
	return res, nil
}

func (c *Controller) applyProgress(ctx context.Context, res *TurnResult, bot domain.Message, logLen int) {
	record := func(err error) {
		if err != nil && res.ProgressErr == nil {
			res.ProgressErr = err
		}
	}

	_, err := c.progress.AddXP(ctx, XPPerTurn)
	record(err)

	if bot.Answer != nil {
		_, err := c.progress.RecordQuizAnswer(ctx, bot.Answer.Correct)
		record(err)
	}

	if logLen >= CuriousMindThreshold {
		b, err := c.progress.EarnBadge(ctx, catalog.BadgeCuriousMind)
		record(err)
		if b != nil {
			res.NewBadges = append(res.NewBadges, *b)
		}
	}

	p, err := c.progress.Snapshot(ctx)
	record(err)
	if err == nil {
		res.Progress = &p
	}

	if res.ProgressErr != nil {
		c.log.Warn("Failed to persist progress", "error", res.ProgressErr)
	}
}

func (c *Controller) logFailure(err error) {
	var ce *completion.Error
	if errors.As(err, &ce) {
		c.log.Error("Completion request failed",
			"kind", ce.Kind.String(),
			"status", ce.StatusCode,
			"error", ce.Message)
		return
	}
	c.log.Error("Reply failed", "error", err)
}

// Messages returns a copy of the log.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// State returns the current turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the learner's current progress.
func (c *Controller) Progress(ctx context.Context) (domain.UserProgress, error) {
	return c.progress.Snapshot(ctx)
}

// idleFor reports how long the controller has been idle. ok is false while a
// turn is in flight.
func (c *Controller) idleFor(now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return 0, false
	}
	return now.Sub(c.lastActive), true
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()
}

func (c *Controller) newMessage(author domain.Author, content string) domain.Message {
	now := c.now()
	m := domain.Message{
		ID:           c.ids.NewID(now),
		Author:       author,
		Content:      content,
		Timestamp:    now,
		QuickReplies: []string{},
	}
	if author == domain.AuthorBot {
		m.Emoji = "🤖"
	}
	return m
}
