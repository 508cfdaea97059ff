package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skillSnapAPI/internal/types/challenge"
	"skillSnapAPI/internal/types/settings"
)

var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeService owns the lifecycle of a skill's challenge set:
// generation, completion marking, streak bookkeeping, and
// skill-completion detection.
type ChallengeService struct {
	db        *pgxpool.Pool
	generator *GeneratorService
	scheduler *ReminderScheduler
}

func NewChallengeService(db *pgxpool.Pool, generator *GeneratorService, scheduler *ReminderScheduler) *ChallengeService {
	return &ChallengeService{
		db:        db,
		generator: generator,
		scheduler: scheduler,
	}
}

// GenerateChallenges replaces the user's challenge set for skillName with a
// freshly generated 7-day plan, makes it the active skill, and (re)schedules
// the daily reminder. The generation call happens before the transaction so
// a slow model response never holds a database transaction open.
func (s *ChallengeService) GenerateChallenges(ctx context.Context, userID uuid.UUID, skillName string) ([]challenge.Challenge, error) {
	skillName = strings.TrimSpace(skillName)
	if skillName == "" {
		return nil, fmt.Errorf("skill name is required")
	}

	generated := s.generator.Generate(ctx, skillName)

	now := time.Now()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Full replace: the prior set for this skill goes away first.
	if _, err := tx.Exec(ctx,
		`DELETE FROM challenges WHERE user_id = $1 AND skill_name = $2`,
		userID, skillName); err != nil {
		return nil, fmt.Errorf("failed to delete prior challenges: %w", err)
	}

	saved := make([]challenge.Challenge, 0, len(generated))
	for _, dc := range generated {
		c := challenge.Challenge{
			ID:            uuid.New(),
			UserID:        userID,
			SkillName:     skillName,
			Day:           dc.Day,
			ChallengeText: dc.Challenge,
			IsCompleted:   false,
			CreatedAt:     now,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO challenges (id, user_id, skill_name, day, challenge_text, is_completed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.UserID, c.SkillName, c.Day, c.ChallengeText, c.IsCompleted, c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert challenge for day %d: %w", c.Day, err)
		}
		saved = append(saved, c)
	}

	var notificationHour int
	err = tx.QueryRow(ctx, `
		UPDATE users SET active_skill = $2, updated_at = $3
		WHERE id = $1
		RETURNING notification_hour`,
		userID, skillName, now).Scan(&notificationHour)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set active skill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit challenges: %w", err)
	}

	log.Printf("ChallengeService: saved %d challenges for user %s skill %q", len(saved), userID, skillName)

	if s.scheduler != nil {
		s.scheduler.ScheduleDaily(userID, notificationHour)
	}

	return saved, nil
}

// MarkComplete flips one challenge to completed and applies every progress
// side effect in a single transaction: the global completed counter, the
// streak rule, and the completed-skills set. Marking a challenge that is
// already complete changes nothing.
func (s *ChallengeService) MarkComplete(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.CompletionResult, error) {
	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ch := &challenge.Challenge{}
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, skill_name, day, challenge_text, is_completed, created_at, completed_at
		FROM challenges
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`,
		challengeID, userID).Scan(
		&ch.ID, &ch.UserID, &ch.SkillName, &ch.Day, &ch.ChallengeText,
		&ch.IsCompleted, &ch.CreatedAt, &ch.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	if ch.IsCompleted {
		completed, total, err := countProgress(ctx, tx, userID, ch.SkillName)
		if err != nil {
			return nil, err
		}
		var streak, totalCompleted int
		if err := tx.QueryRow(ctx,
			`SELECT streak_count, total_challenges_completed FROM users WHERE id = $1`,
			userID).Scan(&streak, &totalCompleted); err != nil {
			return nil, fmt.Errorf("failed to load counters: %w", err)
		}
		return &challenge.CompletionResult{
			Challenge:                ch,
			Progress:                 snapshot(ch.SkillName, completed, total),
			StreakCount:              streak,
			TotalChallengesCompleted: totalCompleted,
			AlreadyCompleted:         true,
		}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE challenges SET is_completed = TRUE, completed_at = $2 WHERE id = $1`,
		ch.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark challenge complete: %w", err)
	}
	ch.IsCompleted = true
	ch.CompletedAt = &now

	var (
		streak         int
		lastActivity   *time.Time
		totalCompleted int
		completedSet   []string
	)
	err = tx.QueryRow(ctx, `
		SELECT streak_count, last_activity_at, total_challenges_completed, completed_skills
		FROM users WHERE id = $1
		FOR UPDATE`,
		userID).Scan(&streak, &lastActivity, &totalCompleted, &completedSet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	streak = settings.NextStreak(streak, lastActivity, now)
	totalCompleted++

	completed, total, err := countProgress(ctx, tx, userID, ch.SkillName)
	if err != nil {
		return nil, err
	}

	skillDone := completed == total && total > 0
	justCompleted := false
	if skillDone && !containsSkill(completedSet, ch.SkillName) {
		completedSet = append(completedSet, ch.SkillName)
		justCompleted = true
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET
			streak_count = $2,
			last_activity_at = $3,
			total_challenges_completed = $4,
			completed_skills = $5,
			updated_at = $3
		WHERE id = $1`,
		userID, streak, now, totalCompleted, completedSet); err != nil {
		return nil, fmt.Errorf("failed to update progress counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	if justCompleted {
		log.Printf("ChallengeService: user %s completed skill %q", userID, ch.SkillName)
	}

	return &challenge.CompletionResult{
		Challenge:                ch,
		Progress:                 snapshot(ch.SkillName, completed, total),
		StreakCount:              streak,
		TotalChallengesCompleted: totalCompleted,
		SkillJustCompleted:       justCompleted,
	}, nil
}

// GetProgress returns (completed, total) for the skill. Total counts every
// record regardless of completion state.
func (s *ChallengeService) GetProgress(ctx context.Context, userID uuid.UUID, skillName string) (int, int, error) {
	var completed, total int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_completed), COUNT(*)
		FROM challenges
		WHERE user_id = $1 AND skill_name = $2`,
		userID, skillName).Scan(&completed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return completed, total, nil
}

// GetChallengesForSkill lists the active set in day order.
func (s *ChallengeService) GetChallengesForSkill(ctx context.Context, userID uuid.UUID, skillName string) ([]challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, skill_name, day, challenge_text, is_completed, created_at, completed_at
		FROM challenges
		WHERE user_id = $1 AND skill_name = $2
		ORDER BY day ASC`,
		userID, skillName)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []challenge.Challenge{}
	for rows.Next() {
		var c challenge.Challenge
		if err := rows.Scan(&c.ID, &c.UserID, &c.SkillName, &c.Day, &c.ChallengeText,
			&c.IsCompleted, &c.CreatedAt, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// SetActiveSkill switches the current skill and returns its fresh snapshot.
func (s *ChallengeService) SetActiveSkill(ctx context.Context, userID uuid.UUID, skillName string) (*challenge.SkillProgress, error) {
	skillName = strings.TrimSpace(skillName)
	if skillName == "" {
		return nil, fmt.Errorf("skill name is required")
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET active_skill = $2, updated_at = $3 WHERE id = $1`,
		userID, skillName, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to set active skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	completed, total, err := s.GetProgress(ctx, userID, skillName)
	if err != nil {
		return nil, err
	}
	progress := snapshot(skillName, completed, total)
	return &progress, nil
}

// GetNextIncompleteChallenge returns the lowest-day incomplete challenge
// across all of the user's skills, or nil when everything is done.
func (s *ChallengeService) GetNextIncompleteChallenge(ctx context.Context, userID uuid.UUID) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, skill_name, day, challenge_text, is_completed, created_at, completed_at
		FROM challenges
		WHERE user_id = $1 AND is_completed = FALSE
		ORDER BY day ASC
		LIMIT 1`,
		userID).Scan(&c.ID, &c.UserID, &c.SkillName, &c.Day, &c.ChallengeText,
		&c.IsCompleted, &c.CreatedAt, &c.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query next challenge: %w", err)
	}
	return c, nil
}

func countProgress(ctx context.Context, tx pgx.Tx, userID uuid.UUID, skillName string) (int, int, error) {
	var completed, total int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_completed), COUNT(*)
		FROM challenges
		WHERE user_id = $1 AND skill_name = $2`,
		userID, skillName).Scan(&completed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return completed, total, nil
}

func snapshot(skillName string, completed, total int) challenge.SkillProgress {
	return challenge.SkillProgress{
		SkillName:   skillName,
		Completed:   completed,
		Total:       total,
		IsCompleted: completed == total && total > 0,
	}
}

func containsSkill(skills []string, name string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
