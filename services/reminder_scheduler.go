package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"skillSnapAPI/internal/types/challenge"
	"skillSnapAPI/middleware"
)

const defaultNotificationHour = 9

// PushProvider delivers one push notification to a device token.
// The real implementation is internal/notification's FCM service.
type PushProvider interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

// ChallengeSource is the one question the reminder asks the progress
// engine when it fires.
type ChallengeSource interface {
	GetNextIncompleteChallenge(ctx context.Context, userID uuid.UUID) (*challenge.Challenge, error)
}

// ReminderScheduler runs named repeating tasks: an initial delay, then a
// fixed period, cancelable by name. Daily reminders are one such task per
// user. Entries live in memory, so RestoreDailyReminders re-registers
// them after a restart.
type ReminderScheduler struct {
	db         *pgxpool.Pool
	push       PushProvider
	challenges ChallengeSource

	mu      sync.Mutex
	entries map[string]chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewReminderScheduler(db *pgxpool.Pool) *ReminderScheduler {
	return &ReminderScheduler{
		db:      db,
		entries: make(map[string]chan struct{}),
	}
}

// Allow injecting the real FCM provider from main.go
func (rs *ReminderScheduler) SetPushProvider(provider PushProvider) {
	rs.push = provider
}

// SetChallengeSource injects the progress engine. A setter rather than a
// constructor argument because the engine also holds the scheduler.
func (rs *ReminderScheduler) SetChallengeSource(source ChallengeSource) {
	rs.challenges = source
}

// Schedule arranges task to run after initialDelay and then every period,
// replacing any existing entry with the same name.
func (rs *ReminderScheduler) Schedule(name string, initialDelay, period time.Duration, task func(ctx context.Context)) {
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return
	}
	if stop, ok := rs.entries[name]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	rs.entries[name] = stop
	rs.wg.Add(1)
	rs.mu.Unlock()

	go func() {
		defer rs.wg.Done()

		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-stop:
			return
		}
		rs.runTask(task)

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rs.runTask(task)
			case <-stop:
				return
			}
		}
	}()
}

// Cancel removes the named entry if it exists.
func (rs *ReminderScheduler) Cancel(name string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if stop, ok := rs.entries[name]; ok {
		close(stop)
		delete(rs.entries, name)
	}
}

// Stop cancels every entry and waits for running tasks to finish.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	rs.closed = true
	for name, stop := range rs.entries {
		close(stop)
		delete(rs.entries, name)
	}
	rs.mu.Unlock()
	rs.wg.Wait()
}

func (rs *ReminderScheduler) runTask(task func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	task(ctx)
}

func reminderName(userID uuid.UUID) string {
	return "daily_reminder:" + userID.String()
}

// ScheduleDaily arranges the user's reminder for the next occurrence of
// hour:00 local time and every 24 hours after that.
func (rs *ReminderScheduler) ScheduleDaily(userID uuid.UUID, hour int) {
	if hour < 0 || hour > 23 {
		hour = defaultNotificationHour
	}

	delay := delayUntilHour(time.Now(), hour)
	log.Printf("ReminderScheduler: daily reminder for user %s in %s", userID, delay.Round(time.Second))

	rs.Schedule(reminderName(userID), delay, 24*time.Hour, func(ctx context.Context) {
		rs.fireDailyReminder(ctx, userID)
	})
}

// CancelDaily removes the user's reminder, e.g. when the account is wiped.
func (rs *ReminderScheduler) CancelDaily(userID uuid.UUID) {
	rs.Cancel(reminderName(userID))
}

// delayUntilHour computes the wait until the next hour:00. If that time
// has already passed today, it lands on tomorrow.
func delayUntilHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// fireDailyReminder surfaces the next incomplete challenge as a push, or a
// generic nudge when everything is done. Failures are logged and swallowed;
// the next firing simply tries again.
func (rs *ReminderScheduler) fireDailyReminder(ctx context.Context, userID uuid.UUID) {
	var pushToken string
	if err := rs.db.QueryRow(ctx, `SELECT push_token FROM users WHERE id = $1`, userID).Scan(&pushToken); err != nil {
		log.Printf("ReminderScheduler: failed to load push token for user %s: %v", userID, err)
		return
	}
	if pushToken == "" {
		log.Printf("ReminderScheduler: user %s has no push token, skipping reminder", userID)
		return
	}

	title := "SkillSnap"
	body := "Time for today's micro-challenge!"
	if rs.challenges != nil {
		next, err := rs.challenges.GetNextIncompleteChallenge(ctx, userID)
		if err != nil {
			log.Printf("ReminderScheduler: failed to look up next challenge for user %s: %v", userID, err)
		} else if next != nil {
			body = fmt.Sprintf("Day %d: %s", next.Day, next.ChallengeText)
		}
	}

	if rs.push == nil {
		log.Printf("ReminderScheduler: no push provider configured, dropping reminder for user %s", userID)
		return
	}

	if err := rs.push.SendPush(ctx, pushToken, title, body, map[string]string{"type": "daily_reminder"}); err != nil {
		log.Printf("ReminderScheduler: push failed for user %s: %v", userID, err)
		middleware.ReminderPushes.WithLabelValues("failed").Inc()
		return
	}
	middleware.ReminderPushes.WithLabelValues("sent").Inc()
}

// RestoreDailyReminders re-registers the reminder for every user with a
// push token. Called once at startup.
func (rs *ReminderScheduler) RestoreDailyReminders(ctx context.Context) error {
	rows, err := rs.db.Query(ctx, `SELECT id, notification_hour FROM users WHERE push_token <> ''`)
	if err != nil {
		return fmt.Errorf("failed to query users for reminder restore: %w", err)
	}
	defer rows.Close()

	restored := 0
	for rows.Next() {
		var userID uuid.UUID
		var hour int
		if err := rows.Scan(&userID, &hour); err != nil {
			log.Printf("ReminderScheduler: failed to scan user row during restore: %v", err)
			continue
		}
		rs.ScheduleDaily(userID, hour)
		restored++
	}

	log.Printf("ReminderScheduler: restored %d daily reminders", restored)
	return rows.Err()
}
