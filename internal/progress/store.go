// Package progress persists learner progress and applies gamification rules.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ashureev/learnerbot/internal/catalog"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/store"
)

// StorageKey is the key of the progress record for the local profile.
const StorageKey = "learnerbot-progress"

// KeyFor returns the storage key of a profile's progress record.
func KeyFor(profileID string) string {
	if profileID == "" {
		return StorageKey
	}
	return StorageKey + ":" + profileID
}

// Store reads and writes serialized UserProgress records.
type Store struct {
	kv store.KV

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a progress store over kv.
func NewStore(kv store.KV) *Store {
	return &Store{kv: kv, locks: make(map[string]*sync.Mutex)}
}

// Default returns the progress of a learner who has never been saved.
func Default() domain.UserProgress {
	return domain.UserProgress{
		Level:  1,
		Badges: catalog.Badges(),
	}
}

// Load returns the record stored under key, or Default when there is none.
func (s *Store) Load(ctx context.Context, key string) (domain.UserProgress, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("load progress: %w", err)
	}
	if !ok {
		return Default(), nil
	}

	var p domain.UserProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.UserProgress{}, fmt.Errorf("decode progress: %w", err)
	}
	p.Badges = reconcileBadges(p.Badges)
	if p.Level < 1 {
		p.Level = domain.LevelForXP(p.XP)
	}
	return p, nil
}

// Save writes p under key.
func (s *Store) Save(ctx context.Context, key string, p domain.UserProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Update runs fn as one read-modify-write transaction on the record under key.
// Calls for the same key are serialized. The record is saved only when fn
// returns changed=true and no error.
func (s *Store) Update(ctx context.Context, key string, fn func(p *domain.UserProgress) (changed bool, err error)) (domain.UserProgress, error) {
	l := s.lockFor(key)
	l.Lock()
	defer l.Unlock()

	p, err := s.Load(ctx, key)
	if err != nil {
		return domain.UserProgress{}, err
	}
	changed, err := fn(&p)
	if err != nil {
		return domain.UserProgress{}, err
	}
	if changed {
		if err := s.Save(ctx, key, p); err != nil {
			return domain.UserProgress{}, err
		}
	}
	return p, nil
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// reconcileBadges keeps earned state for catalog badges and drops ids the
// catalog no longer knows, so the badge set always matches the catalog.
func reconcileBadges(stored []domain.Badge) []domain.Badge {
	byID := make(map[string]domain.Badge, len(stored))
	for _, b := range stored {
		byID[b.ID] = b
	}

	out := catalog.Badges()
	for i := range out {
		if b, ok := byID[out[i].ID]; ok && b.Earned {
			out[i].Earned = true
			out[i].EarnedAt = b.EarnedAt
		}
	}
	return out
}
