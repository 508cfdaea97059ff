package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skillSnapAPI/internal/types/settings"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, device_id, username, push_token, notification_hour, completed_skills,
	total_challenges_completed, streak_count, last_activity_at, onboarding_completed,
	preferred_difficulty, active_skill, created_at, updated_at`

type SettingsService struct {
	db *pgxpool.Pool
}

func NewSettingsService(db *pgxpool.Pool) *SettingsService {
	return &SettingsService{db: db}
}

// RegisterDevice creates the settings row for a device, or returns the
// existing one. A non-empty push token always replaces the stored one so
// FCM token refreshes land here too.
func (s *SettingsService) RegisterDevice(ctx context.Context, req *settings.RegisterDeviceRequest) (*settings.UserSettings, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	now := time.Now()
	query := `
	INSERT INTO users (id, device_id, username, push_token, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (device_id) DO UPDATE SET
		push_token = COALESCE(NULLIF(EXCLUDED.push_token, ''), users.push_token),
		username   = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
		updated_at = EXCLUDED.updated_at
	RETURNING ` + userColumns

	row := s.db.QueryRow(ctx, query, uuid.New(), req.DeviceID, req.Username, req.PushToken, now)
	user, err := scanUserSettings(row)
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	log.Printf("SettingsService: registered device %s as user %s", req.DeviceID, user.ID)
	return user, nil
}

func (s *SettingsService) GetByID(ctx context.Context, userID uuid.UUID) (*settings.UserSettings, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUserSettings(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateSettings applies the non-nil fields of req and returns the fresh row.
func (s *SettingsService) UpdateSettings(ctx context.Context, userID uuid.UUID, req *settings.UpdateSettingsRequest) (*settings.UserSettings, error) {
	if req.NotificationHour != nil && (*req.NotificationHour < 0 || *req.NotificationHour > 23) {
		return nil, fmt.Errorf("notification_hour must be between 0 and 23")
	}

	query := `
	UPDATE users SET
		username             = COALESCE($2, username),
		notification_hour    = COALESCE($3, notification_hour),
		onboarding_completed = COALESCE($4, onboarding_completed),
		preferred_difficulty = COALESCE($5, preferred_difficulty),
		updated_at           = $6
	WHERE id = $1
	RETURNING ` + userColumns

	row := s.db.QueryRow(ctx, query, userID,
		req.Username, req.NotificationHour, req.OnboardingCompleted, req.PreferredDifficulty, time.Now())
	user, err := scanUserSettings(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return user, nil
}

func (s *SettingsService) UpdatePushToken(ctx context.Context, userID uuid.UUID, pushToken string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET push_token = $2, updated_at = $3 WHERE id = $1`,
		userID, pushToken, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser wipes the settings row and every challenge row for the user.
// This backs the app's "clear all data" action.
func (s *SettingsService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM challenges WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete challenges: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return tx.Commit(ctx)
}

func scanUserSettings(row pgx.Row) (*settings.UserSettings, error) {
	user := &settings.UserSettings{}
	err := row.Scan(
		&user.ID,
		&user.DeviceID,
		&user.Username,
		&user.PushToken,
		&user.NotificationHour,
		&user.CompletedSkills,
		&user.TotalChallengesCompleted,
		&user.StreakCount,
		&user.LastActivityAt,
		&user.OnboardingCompleted,
		&user.PreferredDifficulty,
		&user.ActiveSkill,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if user.CompletedSkills == nil {
		user.CompletedSkills = []string{}
	}
	return user, nil
}
