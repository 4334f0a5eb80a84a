package schedule

import (
	"fmt"
	"time"
)

// Interval controls how often a testnet expects participation
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalCustom  Interval = "custom"
)

// DeadlineType controls what the next deadline is computed from
type DeadlineType string

const (
	// DeadlineFixed advances from the current instant
	DeadlineFixed DeadlineType = "fixed"
	// DeadlineRolling advances from the last completion when one exists
	DeadlineRolling DeadlineType = "rolling"
)

// UrgencyLevel is a coarse classification of time-to-deadline
type UrgencyLevel string

const (
	UrgencyOverdue  UrgencyLevel = "overdue"
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

// DefaultReminderHours is used when an account has no reminder preference
const DefaultReminderHours = 12

// NextDeadline computes the upcoming deadline for a testnet.
//
// Rolling deadlines advance from the last completion when one exists,
// fixed deadlines always advance from now. Daily/weekly/monthly use
// calendar arithmetic so DST transitions behave like a wall clock.
// A custom interval must be a positive number of hours; anything else
// falls back to the daily rule rather than erroring, matching what is
// already stored for legacy rows. Request validation rejects bad
// intervals before they are persisted.
func NextDeadline(deadlineType DeadlineType, interval Interval, customHours int, lastCompletedAt *time.Time, now time.Time) time.Time {
	base := now
	if deadlineType == DeadlineRolling && lastCompletedAt != nil {
		base = *lastCompletedAt
	}

	switch interval {
	case IntervalWeekly:
		return base.AddDate(0, 0, 7)
	case IntervalMonthly:
		return base.AddDate(0, 1, 0)
	case IntervalCustom:
		if customHours > 0 {
			return base.Add(time.Duration(customHours) * time.Hour)
		}
		return base.AddDate(0, 0, 1)
	default: // daily or unrecognised
		return base.AddDate(0, 0, 1)
	}
}

// FormatTimeRemaining renders the time left until deadline as a short
// human string: "2d 5h", "5h 30m" or "45m". A deadline at or before
// now renders as "Overdue".
func FormatTimeRemaining(deadline, now time.Time) string {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return "Overdue"
	}

	days := int(diff.Hours()) / 24
	hours := int(diff.Hours()) % 24
	minutes := int(diff.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// IsOverdue reports whether the deadline has passed.
func IsOverdue(deadline, now time.Time) bool {
	return deadline.Before(now)
}

// Urgency classifies the remaining time. Boundaries are inclusive:
// exactly 1h out is critical, exactly 6h is high, exactly 24h is medium.
func Urgency(deadline, now time.Time) UrgencyLevel {
	hours := deadline.Sub(now).Hours()

	switch {
	case hours <= 0:
		return UrgencyOverdue
	case hours <= 1:
		return UrgencyCritical
	case hours <= 6:
		return UrgencyHigh
	case hours <= 24:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// ReminderTime returns the instant a reminder should fire for the given
// deadline. A non-positive reminderHours means the caller had no
// preference and gets the 12 hour default. The [1,168] range is
// enforced at the API boundary, not here.
func ReminderTime(deadline time.Time, reminderHours int) time.Time {
	if reminderHours <= 0 {
		reminderHours = DefaultReminderHours
	}
	return deadline.Add(-time.Duration(reminderHours) * time.Hour)
}
