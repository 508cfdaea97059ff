package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayUntilHourLaterToday(t *testing.T) {
	now := time.Date(2026, 8, 31, 7, 30, 0, 0, time.UTC)

	delay := delayUntilHour(now, 9)

	assert.Equal(t, 90*time.Minute, delay)
}

func TestDelayUntilHourAlreadyPassed(t *testing.T) {
	// Hour 9 at 14:00 -> 9:00 the following day.
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	delay := delayUntilHour(now, 9)

	assert.Equal(t, 19*time.Hour, delay)
}

func TestDelayUntilHourExactlyNow(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	delay := delayUntilHour(now, 9)

	assert.Equal(t, 24*time.Hour, delay)
}

func TestScheduleFiresAndRepeats(t *testing.T) {
	rs := NewReminderScheduler(nil)
	defer rs.Stop()

	var fired int32
	done := make(chan struct{})
	rs.Schedule("test_task", 5*time.Millisecond, 10*time.Millisecond, func(ctx context.Context) {
		if atomic.AddInt32(&fired, 1) == 2 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire twice in time")
	}
}

func TestCancelStopsTask(t *testing.T) {
	rs := NewReminderScheduler(nil)
	defer rs.Stop()

	var fired int32
	rs.Schedule("test_task", 50*time.Millisecond, time.Hour, func(ctx context.Context) {
		atomic.AddInt32(&fired, 1)
	})
	rs.Cancel("test_task")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestScheduleReplacesSameName(t *testing.T) {
	rs := NewReminderScheduler(nil)
	defer rs.Stop()

	var old, replacement int32
	rs.Schedule("test_task", 50*time.Millisecond, time.Hour, func(ctx context.Context) {
		atomic.AddInt32(&old, 1)
	})

	done := make(chan struct{})
	rs.Schedule("test_task", 5*time.Millisecond, time.Hour, func(ctx context.Context) {
		if atomic.AddInt32(&replacement, 1) == 1 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement task did not fire")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&old), "replaced task must not fire")
	require.Equal(t, int32(1), atomic.LoadInt32(&replacement))
}

func TestScheduleAfterStopIsIgnored(t *testing.T) {
	rs := NewReminderScheduler(nil)
	rs.Stop()

	var fired int32
	rs.Schedule("test_task", time.Millisecond, time.Hour, func(ctx context.Context) {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
