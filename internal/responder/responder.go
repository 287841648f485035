// Package responder produces canned bot replies from keyword matching.
package responder

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ashureev/learnerbot/internal/catalog"
	"github.com/ashureev/learnerbot/internal/domain"
)

const defaultEmoji = "🤖"

// Quick-reply sets. Each branch always returns the same set.
var (
	GreetingReplies = []string{"Tell me about space! 🚀", "I want to learn math! 🧮", "Show me science experiments! 🔬", "Surprise me! ✨"}
	AIReplies       = []string{"Show me an AI game! 🎮", "How does AI learn? 🧠", "Can AI be creative? 🎨", "What can AI do? ⚡"}
	MathReplies     = []string{"Fun number tricks! 🎯", "Geometry shapes! 📐", "Math in games! 🎮", "Quick math quiz! ⚡"}
	SpaceReplies    = []string{"Tell me about planets! 🪐", "How big is space? 🌟", "Can we live on Mars? 🔴", "Space quiz time! 🚀"}
	ScienceReplies  = []string{"Chemistry experiments! ⚗️", "How things work! ⚙️", "Animals and nature! 🦋", "Science quiz! 🧪"}
	GenericReplies  = []string{"Yes, let's explore! 🌟", "Show me examples! 👁️", "I want a challenge! 💪", "Tell me more! 📚"}
	WelcomeReplies  = []string{"Let's learn about space! 🌌", "Show me cool science! 🔬", "Math can be fun? 🧮", "Surprise me! ✨"}
)

// AfterQuizReplies follow a graded quiz answer.
var AfterQuizReplies = []string{"Another quiz! 🎯", "Tell me about space! 🚀", "I want to learn math! 🧮", "Surprise me! ✨"}

// Encouragements and FollowUps are combined at random by the fallback branch.
var (
	Encouragements = []string{
		"That's a great question! 🌟 I love how curious you are! Let me think about this with you...",
		"Wow, you're asking such smart questions! 🧠 This is exactly how great learners think!",
		"I'm so excited you asked that! 🎉 Learning together is the best part of my day!",
		"You know what? That's the kind of question that leads to amazing discoveries! 🔍",
	}
	FollowUps = []string{
		"Want to explore this more? 🚀",
		"Should we try a fun activity about this? 🎮",
		"Would you like to see some examples? 👀",
		"Ready for a quick challenge? ⚡",
	}
)

const (
	aiText      = "AI means Artificial Intelligence! 🤖 It's like giving computers a super smart brain that can learn and think. Would you like me to show you how AI works with a fun example?"
	mathText    = "Math is like a superpower for solving puzzles! 🧮✨ It helps us understand patterns, solve problems, and even create video games! What kind of math adventure should we go on?"
	spaceText   = "Space is AMAZING! 🌌 Did you know there are billions of stars and planets out there? Some planets have diamond rain! 💎 What space mystery should we explore together?"
	scienceText = "Science is like being a detective! 🔍 We ask questions, do experiments, and discover cool secrets about our world! What kind of science adventure sounds fun to you?"
	quizIntro   = "Let's test your knowledge! 🎯 Here's a fun question for you:"

	welcomeText = `🎉 Welcome to the most awesome learning adventure ever! I'm your AI learning buddy, and I'm super excited to explore the world with you!

What makes you curious today? I love talking about science, math, space, animals, technology, and so much more!

Ready to start our learning journey? 🚀`
)

// Responder maps free text to a bot message. Safe for concurrent use.
type Responder struct {
	mu        sync.Mutex
	rng       *rand.Rand
	ids       *domain.IDSource
	now       func() time.Time
	questions []domain.QuizQuestion
	topics    []catalog.Topic
	rules     []rule
}

// Option configures a Responder.
type Option func(*Responder)

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// WithIDSource shares an id source with other message producers.
func WithIDSource(ids *domain.IDSource) Option {
	return func(r *Responder) { r.ids = ids }
}

// WithQuestions replaces the quiz bank. An empty bank is ignored.
func WithQuestions(qs []domain.QuizQuestion) Option {
	return func(r *Responder) {
		if len(qs) > 0 {
			r.questions = qs
		}
	}
}

// New creates a responder drawing its random choices from rng.
// A nil rng is seeded from the clock.
func New(rng *rand.Rand, opts ...Option) *Responder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r := &Responder{
		rng:       rng,
		ids:       domain.NewIDSource(),
		now:       time.Now,
		questions: catalog.QuizQuestions(),
		topics:    catalog.Topics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rules = []rule{
		{keywords: []string{"hello", "hi"}, reply: r.greeting},
		{keywords: []string{"ai", "artificial intelligence"}, reply: r.fixed(aiText, AIReplies)},
		{keywords: []string{"math", "mathematics"}, reply: r.fixed(mathText, MathReplies)},
		{keywords: []string{"space", "planet", "star"}, reply: r.fixed(spaceText, SpaceReplies)},
		{keywords: []string{"science", "experiment"}, reply: r.fixed(scienceText, ScienceReplies)},
		{keywords: []string{"quiz", "test", "question"}, reply: r.quiz},
	}
	return r
}

type rule struct {
	keywords []string
	reply    func() domain.Message
}

func (rl rule) matches(text string) bool {
	for _, kw := range rl.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Respond returns the reply for userText. The first matching rule wins;
// unmatched input gets a random encouragement.
func (r *Responder) Respond(userText string) domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := strings.ToLower(userText)
	for _, rl := range r.rules {
		if rl.matches(text) {
			return rl.reply()
		}
	}
	return r.fallback()
}

// Welcome returns the greeting shown when a conversation starts.
func (r *Responder) Welcome() domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message(welcomeText, WelcomeReplies, "🎓")
}

// Grade checks answerText against the options of q. ok is false when the
// text is not one of the options.
func (r *Responder) Grade(q domain.QuizQuestion, answerText string) (domain.Message, bool) {
	idx := optionIndex(q.Options, answerText)
	if idx < 0 {
		return domain.Message{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	correct := q.IsCorrect(idx)
	var content string
	if correct {
		content = fmt.Sprintf("Yes! **%s** is right! 🎉\n\n%s", q.Options[idx], q.Explanation)
	} else {
		content = fmt.Sprintf("Nice try! The answer is **%s**. 💡\n\n%s", q.Options[q.CorrectAnswer], q.Explanation)
	}
	msg := r.message(content, AfterQuizReplies, defaultEmoji)
	msg.Answer = &domain.QuizAnswer{QuestionID: q.ID, Correct: correct}
	return msg, true
}

// Question returns the quiz question with the given id from the responder's bank.
func (r *Responder) Question(id string) (domain.QuizQuestion, bool) {
	for _, q := range r.questions {
		if q.ID == id {
			q.Options = append([]string{}, q.Options...)
			return q, true
		}
	}
	return domain.QuizQuestion{}, false
}

func (r *Responder) greeting() domain.Message {
	topic := r.topics[r.rng.Intn(len(r.topics))]
	content := fmt.Sprintf("Hey there, awesome learner! 👋 I'm so excited to explore and learn with you today! What would you like to discover? Maybe something about %s? %s",
		strings.ToLower(topic.Name), topic.Emoji)
	return r.message(content, GreetingReplies, defaultEmoji)
}

func (r *Responder) fixed(content string, replies []string) func() domain.Message {
	return func() domain.Message {
		return r.message(content, replies, defaultEmoji)
	}
}

func (r *Responder) quiz() domain.Message {
	if len(r.questions) == 0 {
		return r.fallback()
	}
	q := r.questions[r.rng.Intn(len(r.questions))]
	msg := r.message(quizIntro+"\n\n**"+q.Question+"**", q.Options, "🤔")
	msg.QuizID = q.ID
	return msg
}

func (r *Responder) fallback() domain.Message {
	enc := Encouragements[r.rng.Intn(len(Encouragements))]
	follow := FollowUps[r.rng.Intn(len(FollowUps))]
	return r.message(enc+" "+follow, GenericReplies, defaultEmoji)
}

func (r *Responder) message(content string, replies []string, emoji string) domain.Message {
	now := r.now()
	return domain.Message{
		ID:           r.ids.NewID(now),
		Author:       domain.AuthorBot,
		Content:      content,
		Timestamp:    now,
		QuickReplies: append([]string{}, replies...),
		Emoji:        emoji,
	}
}

// optionIndex finds the option matching answer, ignoring case, surrounding
// space and trailing emoji or punctuation.
func optionIndex(options []string, answer string) int {
	want := normalizeAnswer(answer)
	if want == "" {
		return -1
	}
	for i, o := range options {
		if normalizeAnswer(o) == want {
			return i
		}
	}
	return -1
}

func normalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRightFunc(s, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}
