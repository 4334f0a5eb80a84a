package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nettrack/internal/models"
)

func TestNotifierAlwaysWritesLedgerRow(t *testing.T) {
	db := setupTestDB(t)
	createAccount(t, db, "alice")

	// System notices disabled and email off: the row must still be
	// written, because it doubles as the de-dup ledger.
	settings := models.DefaultNotificationSettings("alice")
	settings.TypeSystem = false
	settings.EmailEnabled = false
	require.NoError(t, db.Create(&settings).Error)

	n := NewNotifier(db, NewEmailService())
	require.NoError(t, n.Notify("alice", Notice{
		Type:     models.NotificationTypeSystem,
		Title:    "Daily Testnet Summary",
		Message:  "You have 1 testnet deadline(s) today: Nova",
		Priority: models.PriorityMedium,
		Metadata: map[string]interface{}{"summary_type": "daily"},
	}))

	var stored models.Notification
	require.NoError(t, db.Where("username = ?", "alice").First(&stored).Error)
	assert.Equal(t, models.NotificationTypeSystem, stored.Type)
	assert.Equal(t, models.PriorityMedium, stored.Priority)
	assert.False(t, stored.Read)
	assert.Contains(t, string(stored.Metadata), "daily")
}

func TestSettingsForFallsBackToDefaults(t *testing.T) {
	db := setupTestDB(t)

	settings := SettingsFor(db, "nobody")

	assert.Equal(t, "nobody", settings.Username)
	assert.True(t, settings.DeadlineReminders)
	assert.Equal(t, 12, settings.ReminderHours)
	assert.True(t, settings.TypeReminder)
}
