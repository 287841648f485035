// Package domain contains core domain types for the LearnerBot application.
package domain

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// Role is the speaker role used by the completion API.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one conversational turn. Messages are never mutated once they
// are appended to a conversation log.
type Message struct {
	ID           string      `json:"id"`
	Author       Author      `json:"author"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
	QuickReplies []string    `json:"quickReplies"`
	Emoji        string      `json:"emoji,omitempty"`
	QuizID       string      `json:"quizId,omitempty"`
	Answer       *QuizAnswer `json:"answer,omitempty"`
}

// QuizAnswer records the grading of a quiz reply.
type QuizAnswer struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

// IsBot reports whether the message was authored by the bot.
func (m Message) IsBot() bool {
	return m.Author == AuthorBot
}

// Clone returns a copy that shares no slices or pointers with m.
func (m Message) Clone() Message {
	out := m
	out.QuickReplies = append([]string{}, m.QuickReplies...)
	if m.Answer != nil {
		a := *m.Answer
		out.Answer = &a
	}
	return out
}

// HistoryEntry is the reduced projection of a Message sent to the completion API.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IDSource hands out message ids that are unique within a process and sort
// in creation order.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an id source backed by monotonic ULID entropy.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID returns a new id stamped with t.
func (s *IDSource) NewID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}
