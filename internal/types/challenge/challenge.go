package challenge

import (
	"time"

	"github.com/google/uuid"
)

// Challenge is one day of a skill's 7-day micro-challenge plan.
// A skill has at most one active set of 7 at a time; regenerating a
// skill replaces the whole set.
type Challenge struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	SkillName     string     `json:"skill_name" db:"skill_name"`
	Day           int        `json:"day" db:"day"`
	ChallengeText string     `json:"challenge_text" db:"challenge_text"`
	IsCompleted   bool       `json:"is_completed" db:"is_completed"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// DailyChallenge is a generated (day, text) pair before it is persisted.
// It is also the wire shape the model is asked to emit.
type DailyChallenge struct {
	Day       int    `json:"day"`
	Challenge string `json:"challenge"`
}

// SkillProgress is the derived completion snapshot for one skill.
// Recomputed from the challenges table on demand, never stored.
type SkillProgress struct {
	SkillName   string `json:"skill_name"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	IsCompleted bool   `json:"is_completed"`
}

// CompletionResult is what MarkComplete reports back to the client.
type CompletionResult struct {
	Challenge                *Challenge    `json:"challenge"`
	Progress                 SkillProgress `json:"progress"`
	StreakCount              int           `json:"streak_count"`
	TotalChallengesCompleted int           `json:"total_challenges_completed"`
	SkillJustCompleted       bool          `json:"skill_just_completed"`
	AlreadyCompleted         bool          `json:"already_completed"`
}

type GenerateChallengesRequest struct {
	SkillName string `json:"skill_name"`
}

type SetActiveSkillRequest struct {
	SkillName string `json:"skill_name"`
}
