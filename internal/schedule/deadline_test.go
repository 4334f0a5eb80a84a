package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

func TestNextDeadlineFixedIntervals(t *testing.T) {
	tests := []struct {
		name     string
		interval Interval
		custom   int
		want     time.Time
	}{
		{"daily", IntervalDaily, 0, now.AddDate(0, 0, 1)},
		{"weekly", IntervalWeekly, 0, now.AddDate(0, 0, 7)},
		{"monthly", IntervalMonthly, 0, now.AddDate(0, 1, 0)},
		{"custom 6h", IntervalCustom, 6, now.Add(6 * time.Hour)},
		{"custom 72h", IntervalCustom, 72, now.Add(72 * time.Hour)},
		{"custom zero falls back to daily", IntervalCustom, 0, now.AddDate(0, 0, 1)},
		{"custom negative falls back to daily", IntervalCustom, -5, now.AddDate(0, 0, 1)},
		{"unknown interval falls back to daily", Interval("hourly"), 0, now.AddDate(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDeadline(DeadlineFixed, tt.interval, tt.custom, nil, now)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(now), "deadline must be strictly after base")
		})
	}
}

func TestNextDeadlineRollingUsesLastCompletion(t *testing.T) {
	completed := now.Add(-100 * time.Hour)

	got := NextDeadline(DeadlineRolling, IntervalDaily, 0, &completed, now)

	// Based off the completion instant, independent of now.
	assert.Equal(t, completed.AddDate(0, 0, 1), got)
}

func TestNextDeadlineRollingWithoutCompletionUsesNow(t *testing.T) {
	got := NextDeadline(DeadlineRolling, IntervalWeekly, 0, nil, now)
	assert.Equal(t, now.AddDate(0, 0, 7), got)
}

func TestNextDeadlineFixedIgnoresLastCompletion(t *testing.T) {
	completed := now.Add(-48 * time.Hour)

	got := NextDeadline(DeadlineFixed, IntervalDaily, 0, &completed, now)

	assert.Equal(t, now.AddDate(0, 0, 1), got)
}

func TestNextDeadlineIsDeterministic(t *testing.T) {
	a := NextDeadline(DeadlineFixed, IntervalMonthly, 0, nil, now)
	b := NextDeadline(DeadlineFixed, IntervalMonthly, 0, nil, now)
	assert.Equal(t, a, b)
}

func TestFormatTimeRemaining(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     string
	}{
		{"exactly now is overdue", now, "Overdue"},
		{"past is overdue", now.Add(-time.Minute), "Overdue"},
		{"sub-minute remainder", now.Add(30 * time.Second), "0m"},
		{"minutes only", now.Add(45 * time.Minute), "45m"},
		{"90 minutes", now.Add(90 * time.Minute), "1h 30m"},
		{"hours and minutes", now.Add(5*time.Hour + 12*time.Minute), "5h 12m"},
		{"days and hours", now.Add(49 * time.Hour), "2d 1h"},
		{"exact day boundary", now.Add(24 * time.Hour), "1d 0h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRemaining(tt.deadline, now))
		})
	}
}

func TestUrgencyBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     UrgencyLevel
	}{
		{"past", now.Add(-time.Hour), UrgencyOverdue},
		{"exactly now", now, UrgencyOverdue},
		{"exactly 1h is critical", now.Add(time.Hour), UrgencyCritical},
		{"1h 1s is high", now.Add(time.Hour + time.Second), UrgencyHigh},
		{"exactly 6h is high", now.Add(6 * time.Hour), UrgencyHigh},
		{"6h 1s is medium", now.Add(6*time.Hour + time.Second), UrgencyMedium},
		{"exactly 24h is medium", now.Add(24 * time.Hour), UrgencyMedium},
		{"beyond 24h is low", now.Add(24*time.Hour + time.Second), UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Urgency(tt.deadline, now))
		})
	}
}

func TestReminderTime(t *testing.T) {
	deadline := now.Add(24 * time.Hour)

	assert.Equal(t, deadline.Add(-3*time.Hour), ReminderTime(deadline, 3))
	// Unspecified lead time gets the 12 hour default.
	assert.Equal(t, deadline.Add(-12*time.Hour), ReminderTime(deadline, 0))
	assert.Equal(t, deadline.Add(-12*time.Hour), ReminderTime(deadline, -1))
}

func TestIsOverdue(t *testing.T) {
	assert.True(t, IsOverdue(now.Add(-time.Second), now))
	assert.False(t, IsOverdue(now, now))
	assert.False(t, IsOverdue(now.Add(time.Second), now))
}
