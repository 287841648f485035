package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Factory builds the controller for a new tab session.
type Factory func(profileID, sessionID string) *Controller

// Sessions keeps one controller per profile and tab session.
type Sessions struct {
	newController Factory
	now           func() time.Time

	mu     sync.RWMutex
	active map[string]map[string]*Controller
}

// NewSessions creates an empty registry.
func NewSessions(newController Factory) *Sessions {
	return &Sessions{
		newController: newController,
		now:           time.Now,
		active:        make(map[string]map[string]*Controller),
	}
}

// Get returns the controller of the tab session, creating and starting it on
// first use.
func (s *Sessions) Get(ctx context.Context, profileID, sessionID string) *Controller {
	s.mu.RLock()
	c := s.lookup(profileID, sessionID)
	s.mu.RUnlock()
	if c != nil {
		c.touch()
		return c
	}

	s.mu.Lock()
	if c = s.lookup(profileID, sessionID); c != nil {
		s.mu.Unlock()
		c.touch()
		return c
	}
	c = s.newController(profileID, sessionID)
	c.welcome()
	if _, ok := s.active[profileID]; !ok {
		s.active[profileID] = make(map[string]*Controller)
	}
	s.active[profileID][sessionID] = c
	s.mu.Unlock()

	slog.Info("Chat session started", "profile_id", profileID, "session_id", sessionID)
	if _, err := c.awardFirstChat(ctx); err != nil {
		slog.Warn("Chat session started without first-chat badge",
			"profile_id", profileID,
			"session_id", sessionID,
			"error", err)
	}
	return c
}

func (s *Sessions) lookup(profileID, sessionID string) *Controller {
	if tabs, ok := s.active[profileID]; ok {
		return tabs[sessionID]
	}
	return nil
}

// End drops the controller of the tab session. It reports whether one existed.
func (s *Sessions) End(profileID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs, ok := s.active[profileID]
	if !ok {
		return false
	}
	if _, ok := tabs[sessionID]; !ok {
		return false
	}
	delete(tabs, sessionID)
	if len(tabs) == 0 {
		delete(s.active, profileID)
	}
	slog.Info("Chat session ended", "profile_id", profileID, "session_id", sessionID)
	return true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tabs := range s.active {
		n += len(tabs)
	}
	return n
}

// Evict drops sessions idle for longer than ttl and returns how many were
// dropped. Sessions with a turn in flight are kept.
func (s *Sessions) Evict(ttl time.Duration) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for profileID, tabs := range s.active {
		for sessionID, c := range tabs {
			idle, ok := c.idleFor(now)
			if !ok || idle <= ttl {
				continue
			}
			delete(tabs, sessionID)
			evicted++
			slog.Debug("Chat session evicted", "profile_id", profileID, "session_id", sessionID, "idle", idle)
		}
		if len(tabs) == 0 {
			delete(s.active, profileID)
		}
	}
	return evicted
}

// StartEvictionWorker runs Evict every interval until ctx is done. The
// returned channel is closed when the worker has exited.
func (s *Sessions) StartEvictionWorker(ctx context.Context, ttl, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session eviction worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := s.Evict(ttl); n > 0 {
					slog.Info("Session eviction worker evicted idle sessions", "count", n)
				}
			case <-ctx.Done():
				slog.Info("Session eviction worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
