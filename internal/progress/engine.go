package progress

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/learnerbot/internal/domain"
)

// ErrNegativeXP is returned when AddXP is called with a negative amount.
var ErrNegativeXP = errors.New("xp amount must be non-negative")

// Engine applies XP, badge, quiz and streak updates to one profile's record.
// It is the only writer of that record.
type Engine struct {
	store *Store
	key   string
	now   func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the clock used for earnedAt stamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine bound to the record under key.
func NewEngine(s *Store, key string, opts ...EngineOption) *Engine {
	e := &Engine{store: s, key: key, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the storage key the engine writes to.
func (e *Engine) Key() string { return e.key }

// Snapshot returns the current progress without changing it.
func (e *Engine) Snapshot(ctx context.Context) (domain.UserProgress, error) {
	return e.store.Load(ctx, e.key)
}

// AddXP adds amount to the learner's XP and recomputes the level.
func (e *Engine) AddXP(ctx context.Context, amount int) (domain.UserProgress, error) {
	if amount < 0 {
		return domain.UserProgress{}, ErrNegativeXP
	}
	return e.store.Update(ctx, e.key, func(p *domain.UserProgress) (bool, error) {
		p.XP += amount
		p.Level = domain.LevelForXP(p.XP)
		return true, nil
	})
}

// EarnBadge marks the badge as earned. It returns nil when the id is unknown
// or the badge was already earned.
func (e *Engine) EarnBadge(ctx context.Context, id string) (*domain.Badge, error) {
	var earned *domain.Badge
	_, err := e.store.Update(ctx, e.key, func(p *domain.UserProgress) (bool, error) {
		b := p.Badge(id)
		if b == nil || b.Earned {
			return false, nil
		}
		at := e.now()
		b.Earned = true
		b.EarnedAt = &at
		cp := *b
		earned = &cp
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return earned, nil
}

// RecordQuizAnswer counts one answered question, and one correct answer if correct.
func (e *Engine) RecordQuizAnswer(ctx context.Context, correct bool) (domain.UserProgress, error) {
	return e.store.Update(ctx, e.key, func(p *domain.UserProgress) (bool, error) {
		p.TotalQuestions++
		if correct {
			p.CorrectAnswers++
		}
		return true, nil
	})
}

// IncrementStreak adds one day to the learning streak.
func (e *Engine) IncrementStreak(ctx context.Context) (domain.UserProgress, error) {
	return e.store.Update(ctx, e.key, func(p *domain.UserProgress) (bool, error) {
		p.Streak++
		return true, nil
	})
}
