package chat

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/responder"
)

// Mode selects the reply backend of a deployment.
type Mode string

const (
	ModeRules      Mode = "rules"
	ModeCompletion Mode = "completion"
)

// Valid reports whether m names a known backend.
func (m Mode) Valid() bool {
	return m == ModeRules || m == ModeCompletion
}

// Backend produces the bot side of a conversation.
type Backend interface {
	// Welcome returns the first bot message of a conversation.
	Welcome() domain.Message
	// Reply answers userText. Only remote backends fail.
	Reply(ctx context.Context, userText string) (domain.Message, error)
}

// RuleBackend answers with the keyword responder and grades quiz answers
// given right after a quiz question.
type RuleBackend struct {
	responder *responder.Responder

	mu      sync.Mutex
	pending *domain.QuizQuestion
}

// NewRuleBackend creates a backend over r.
func NewRuleBackend(r *responder.Responder) *RuleBackend {
	return &RuleBackend{responder: r}
}

// Welcome returns the gamified welcome message.
func (b *RuleBackend) Welcome() domain.Message {
	return b.responder.Welcome()
}

// Reply grades userText when a quiz question is open and userText is one of
// its options; otherwise it responds by keyword. An open question is closed
// by any reply.
func (b *RuleBackend) Reply(_ context.Context, userText string) (domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		q := *b.pending
		b.pending = nil
		if msg, ok := b.responder.Grade(q, userText); ok {
			return msg, nil
		}
	}

	msg := b.responder.Respond(userText)
	if msg.QuizID != "" {
		if q, ok := b.responder.Question(msg.QuizID); ok {
			b.pending = &q
		}
	}
	return msg, nil
}

// Completer is the remote completion port. *completion.Client implements it.
type Completer interface {
	Complete(ctx context.Context, userText string, history []domain.HistoryEntry) (string, error)
}

const completionWelcome = "🎓 Hello! I'm **LearnerBot**, your advanced AI learning companion powered by GPT-4. I'm here to help you:\n\n" +
	"✨ **Learn new concepts** with clear explanations\n" +
	"🧠 **Solve complex problems** step-by-step\n" +
	"💡 **Get instant answers** to your questions\n" +
	"🚀 **Accelerate your learning** journey\n\n" +
	"What would you like to explore today?"

// CompletionBackend answers through a Completer and keeps the history sent
// with each request.
type CompletionBackend struct {
	client Completer
	ids    *domain.IDSource
	now    func() time.Time

	mu      sync.Mutex
	history []domain.HistoryEntry
}

// NewCompletionBackend creates a backend over client. ids may be nil.
func NewCompletionBackend(client Completer, ids *domain.IDSource) *CompletionBackend {
	if ids == nil {
		ids = domain.NewIDSource()
	}
	return &CompletionBackend{client: client, ids: ids, now: time.Now}
}

// Welcome returns the assistant welcome message.
func (b *CompletionBackend) Welcome() domain.Message {
	return b.message(completionWelcome, "🎓")
}

// Reply sends userText with the prior history. The user turn is added to the
// history either way; the assistant turn only when the request succeeds.
func (b *CompletionBackend) Reply(ctx context.Context, userText string) (domain.Message, error) {
	history := b.History()

	text, err := b.client.Complete(ctx, userText, history)

	b.mu.Lock()
	b.history = append(b.history, domain.HistoryEntry{Role: domain.RoleUser, Content: userText})
	if err == nil {
		b.history = append(b.history, domain.HistoryEntry{Role: domain.RoleAssistant, Content: text})
	}
	b.mu.Unlock()

	if err != nil {
		return domain.Message{}, err
	}
	return b.message(text, ""), nil
}

// History returns a copy of the conversation history.
func (b *CompletionBackend) History() []domain.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.HistoryEntry(nil), b.history...)
}

func (b *CompletionBackend) message(content, emoji string) domain.Message {
	now := b.now()
	return domain.Message{
		ID:           b.ids.NewID(now),
		Author:       domain.AuthorBot,
		Content:      content,
		Timestamp:    now,
		QuickReplies: []string{},
		Emoji:        emoji,
	}
}
