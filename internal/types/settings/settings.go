package settings

import (
	"time"

	"github.com/google/uuid"
)

// UserSettings is the per-user settings row: profile, notification
// preferences, and the progress counters the challenge flow maintains.
type UserSettings struct {
	ID                       uuid.UUID  `json:"id" db:"id"`
	DeviceID                 string     `json:"device_id" db:"device_id"`
	Username                 string     `json:"username" db:"username"`
	PushToken                string     `json:"-" db:"push_token"`
	NotificationHour         int        `json:"notification_hour" db:"notification_hour"`
	CompletedSkills          []string   `json:"completed_skills" db:"completed_skills"`
	TotalChallengesCompleted int        `json:"total_challenges_completed" db:"total_challenges_completed"`
	StreakCount              int        `json:"streak_count" db:"streak_count"`
	LastActivityAt           *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`
	OnboardingCompleted      bool       `json:"onboarding_completed" db:"onboarding_completed"`
	PreferredDifficulty      string     `json:"preferred_difficulty" db:"preferred_difficulty"`
	ActiveSkill              *string    `json:"active_skill,omitempty" db:"active_skill"`
	CreatedAt                time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

type RegisterDeviceRequest struct {
	DeviceID  string `json:"device_id"`
	PushToken string `json:"push_token,omitempty"`
	Username  string `json:"username,omitempty"`
}

type RegisterDeviceResponse struct {
	Token string        `json:"token"`
	User  *UserSettings `json:"user"`
}

type UpdateSettingsRequest struct {
	Username            *string `json:"username,omitempty"`
	NotificationHour    *int    `json:"notification_hour,omitempty"`
	OnboardingCompleted *bool   `json:"onboarding_completed,omitempty"`
	PreferredDifficulty *string `json:"preferred_difficulty,omitempty"`
}

type UpdatePushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// NextStreak applies the streak rule at calendar-day granularity:
// same day leaves the streak alone, exactly one day later extends it,
// anything else (including no prior activity) resets it to 1.
func NextStreak(current int, lastActivity *time.Time, now time.Time) int {
	if lastActivity == nil {
		return 1
	}

	la := lastActivity.In(now.Location())
	lastDay := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Round absorbs the off-by-an-hour midnights DST transitions produce.
	days := int(today.Sub(lastDay).Round(24*time.Hour) / (24 * time.Hour))

	switch days {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}
