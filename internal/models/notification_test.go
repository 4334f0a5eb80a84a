package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypeEnabled(t *testing.T) {
	s := DefaultNotificationSettings("alice")
	s.TypeReminder = false
	s.TypeSystem = false

	assert.False(t, s.TypeEnabled(NotificationTypeReminder))
	assert.False(t, s.TypeEnabled(NotificationTypeSystem))
	assert.True(t, s.TypeEnabled(NotificationTypeDeadline))
	assert.True(t, s.TypeEnabled(NotificationTypeAchievement))
	// Unknown types are never silently dropped.
	assert.True(t, s.TypeEnabled("somethingelse"))
}

func at(hour, min int) time.Time {
	return time.Date(2025, time.June, 3, hour, min, 0, 0, time.UTC)
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	s := DefaultNotificationSettings("alice")
	s.QuietHoursEnabled = true
	s.QuietHoursStart = "13:00"
	s.QuietHoursEnd = "15:00"

	assert.False(t, s.InQuietHours(at(12, 59)))
	assert.True(t, s.InQuietHours(at(13, 0)))
	assert.True(t, s.InQuietHours(at(14, 30)))
	assert.True(t, s.InQuietHours(at(15, 0)))
	assert.False(t, s.InQuietHours(at(15, 1)))
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	s := DefaultNotificationSettings("alice")
	s.QuietHoursEnabled = true
	s.QuietHoursStart = "22:00"
	s.QuietHoursEnd = "08:00"

	assert.True(t, s.InQuietHours(at(23, 30)))
	assert.True(t, s.InQuietHours(at(3, 0)))
	assert.True(t, s.InQuietHours(at(8, 0)))
	assert.False(t, s.InQuietHours(at(9, 0)))
	assert.False(t, s.InQuietHours(at(21, 59)))
}

func TestInQuietHoursDisabled(t *testing.T) {
	s := DefaultNotificationSettings("alice")
	s.QuietHoursEnabled = false

	assert.False(t, s.InQuietHours(at(23, 30)))
}
