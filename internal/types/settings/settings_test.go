package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStreakNoPriorActivity(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, NextStreak(0, nil, now))
}

func TestNextStreakSameDayUnchanged(t *testing.T) {
	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, NextStreak(4, &earlier, now))
}

func TestNextStreakConsecutiveDayIncrements(t *testing.T) {
	last := time.Date(2026, 8, 30, 23, 55, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC)

	// Calendar-day boundary, not a rolling 24h window: ten minutes apart
	// but on consecutive days still counts.
	assert.Equal(t, 5, NextStreak(4, &last, now))
}

func TestNextStreakGapResets(t *testing.T) {
	last := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, NextStreak(9, &last, now))
}

func TestNextStreakFutureClockSkewResets(t *testing.T) {
	last := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, NextStreak(3, &last, now))
}
