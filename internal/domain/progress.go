package domain

import (
	"math"
	"time"
)

// XPPerLevel is the amount of XP that separates two levels.
const XPPerLevel = 100

// Badge is a one-time unlockable achievement.
type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Emoji       string     `json:"emoji"`
	Description string     `json:"description"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

// UserProgress holds the gamification state of one learner profile.
type UserProgress struct {
	Level          int     `json:"level"`
	XP             int     `json:"xp"`
	Streak         int     `json:"streak"`
	Badges         []Badge `json:"badges"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
}

// LevelForXP returns the level reached with the given amount of XP.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// Badge returns a pointer to the badge with the given id, or nil.
func (p *UserProgress) Badge(id string) *Badge {
	for i := range p.Badges {
		if p.Badges[i].ID == id {
			return &p.Badges[i]
		}
	}
	return nil
}

// EarnedBadges returns the earned badges in catalog order.
func (p UserProgress) EarnedBadges() []Badge {
	var out []Badge
	for _, b := range p.Badges {
		if b.Earned {
			out = append(out, b)
		}
	}
	return out
}

// XPToNextLevel returns how much XP is still missing for the next level.
func (p UserProgress) XPToNextLevel() int {
	return p.Level*XPPerLevel - p.XP
}

// Accuracy returns the percentage of correct quiz answers, rounded.
func (p UserProgress) Accuracy() int {
	if p.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(p.CorrectAnswers) / float64(p.TotalQuestions) * 100))
}

// Clone returns a deep copy of p.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.Badges = make([]Badge, len(p.Badges))
	for i, b := range p.Badges {
		if b.EarnedAt != nil {
			t := *b.EarnedAt
			b.EarnedAt = &t
		}
		out.Badges[i] = b
	}
	return out
}

// QuizQuestion is a multiple-choice question from the quiz bank.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
}

// IsCorrect reports whether the option at index is the right answer.
func (q QuizQuestion) IsCorrect(index int) bool {
	return index == q.CorrectAnswer
}
