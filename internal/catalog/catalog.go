// Package catalog holds the static badge definitions, quiz bank and topic list.
package catalog

import "github.com/ashureev/learnerbot/internal/domain"

// Badge ids.
const (
	BadgeFirstChat       = "first-chat"
	BadgeCuriousMind     = "curious-mind"
	BadgeQuizMaster      = "quiz-master"
	BadgeStreakWarrior   = "streak-warrior"
	BadgeScienceExplorer = "science-explorer"
	BadgeMathWizard      = "math-wizard"
)

var badges = []domain.Badge{
	{ID: BadgeFirstChat, Name: "First Chat", Emoji: "🎉", Description: "Started your first conversation!"},
	{ID: BadgeCuriousMind, Name: "Curious Mind", Emoji: "🤔", Description: "Asked 10 questions"},
	{ID: BadgeQuizMaster, Name: "Quiz Master", Emoji: "🏆", Description: "Completed 5 quizzes"},
	{ID: BadgeStreakWarrior, Name: "Streak Warrior", Emoji: "🔥", Description: "Maintained a 7-day learning streak"},
	{ID: BadgeScienceExplorer, Name: "Science Explorer", Emoji: "🔬", Description: "Learned about 10 science topics"},
	{ID: BadgeMathWizard, Name: "Math Wizard", Emoji: "🧙‍♂️", Description: "Solved 20 math problems"},
}

// Badges returns a fresh, unearned copy of every catalog badge.
func Badges() []domain.Badge {
	out := make([]domain.Badge, len(badges))
	copy(out, badges)
	return out
}

// BadgeIDs returns the catalog ids in order.
func BadgeIDs() []string {
	ids := make([]string, len(badges))
	for i, b := range badges {
		ids[i] = b.ID
	}
	return ids
}

var questions = []domain.QuizQuestion{
	{
		ID:            "ai-basics-1",
		Question:      "What does AI stand for?",
		Options:       []string{"Artificial Intelligence", "Amazing Ideas", "Automatic Internet", "Advanced Information"},
		CorrectAnswer: 0,
		Explanation:   "AI stands for Artificial Intelligence - it's like giving computers a brain to think and learn! 🧠",
		Topic:         "AI Basics",
	},
	{
		ID:            "space-1",
		Question:      "Which planet is closest to the Sun?",
		Options:       []string{"Venus", "Earth", "Mercury", "Mars"},
		CorrectAnswer: 2,
		Explanation:   "Mercury is the closest planet to the Sun! It's super hot during the day but freezing at night! ☀️",
		Topic:         "Space",
	},
	{
		ID:            "math-1",
		Question:      "What is 15 × 8?",
		Options:       []string{"120", "125", "115", "130"},
		CorrectAnswer: 0,
		Explanation:   "Great job! 15 × 8 = 120. Here's a trick: 15 × 8 = (10 × 8) + (5 × 8) = 80 + 40 = 120! 🎯",
		Topic:         "Math",
	},
}

// QuizQuestions returns a copy of the quiz bank.
func QuizQuestions() []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, len(questions))
	for i, q := range questions {
		q.Options = append([]string{}, q.Options...)
		out[i] = q
	}
	return out
}

// QuizQuestion looks a question up by id.
func QuizQuestion(id string) (domain.QuizQuestion, bool) {
	for _, q := range questions {
		if q.ID == id {
			q.Options = append([]string{}, q.Options...)
			return q, true
		}
	}
	return domain.QuizQuestion{}, false
}

// Topic is a subject the bot likes to suggest.
type Topic struct {
	Name     string
	Emoji    string
	Keywords []string
}

// Topics returns the suggestion topics.
func Topics() []Topic {
	return []Topic{
		{Name: "Science", Emoji: "🔬", Keywords: []string{"science", "chemistry", "physics", "biology", "experiment"}},
		{Name: "Math", Emoji: "🧮", Keywords: []string{"math", "mathematics", "number", "calculate", "equation"}},
		{Name: "Space", Emoji: "🚀", Keywords: []string{"space", "planet", "star", "galaxy", "astronaut"}},
		{Name: "Animals", Emoji: "🦁", Keywords: []string{"animal", "dog", "cat", "lion", "elephant"}},
		{Name: "Technology", Emoji: "💻", Keywords: []string{"computer", "robot", "ai", "technology", "internet"}},
		{Name: "History", Emoji: "🏛️", Keywords: []string{"history", "ancient", "war", "king", "queen"}},
	}
}
