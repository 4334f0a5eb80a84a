package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nettrack/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.Testnet{},
		&models.Notification{},
		&models.NotificationSetting{},
	))

	return db
}

// recordingEmitter stores notices in memory and writes the ledger row,
// standing in for the Notifier.
type recordingEmitter struct {
	db *gorm.DB

	mu      sync.Mutex
	notices []recordedNotice
}

type recordedNotice struct {
	username string
	notice   Notice
}

func (e *recordingEmitter) Notify(username string, notice Notice) error {
	row := models.Notification{
		Username:  username,
		Type:      notice.Type,
		TestnetID: notice.TestnetID,
		Title:     notice.Title,
		Message:   notice.Message,
		Priority:  notice.Priority,
	}
	if err := e.db.Create(&row).Error; err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, recordedNotice{username: username, notice: notice})
	return nil
}

func (e *recordingEmitter) byType(notifType string) []recordedNotice {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []recordedNotice
	for _, n := range e.notices {
		if n.notice.Type == notifType {
			out = append(out, n)
		}
	}
	return out
}

func newTestScheduler(t *testing.T, db *gorm.DB, now time.Time) (*Scheduler, *recordingEmitter) {
	t.Helper()

	emitter := &recordingEmitter{db: db}
	s := NewScheduler(db, emitter)
	s.now = func() time.Time { return now }
	return s, emitter
}

func createAccount(t *testing.T, db *gorm.DB, username string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Account{
		Username: username,
		Email:    username + "@example.com",
	}).Error)
}

func TestOverdueSweepEmitsAndFlipsStatus(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "alice")
	testnet := models.Testnet{
		Username:     "alice",
		Name:         "Nova",
		Blockchain:   "cosmos",
		Interval:     "daily",
		DeadlineType: "fixed",
		Status:       models.StatusActive,
		NextDeadline: now.Add(-24*time.Hour - 30*time.Minute),
	}
	require.NoError(t, db.Create(&testnet).Error)

	require.NoError(t, s.CheckOverdueTestnets())

	notices := emitter.byType(models.NotificationTypeDeadline)
	require.Len(t, notices, 1)
	assert.Equal(t, "alice", notices[0].username)
	assert.Equal(t, models.PriorityHigh, notices[0].notice.Priority)
	assert.Equal(t, 25, notices[0].notice.Metadata["hours_overdue"])

	var updated models.Testnet
	require.NoError(t, db.First(&updated, testnet.ID).Error)
	assert.Equal(t, models.StatusOverdue, updated.Status)
	assert.Equal(t, 1, updated.MissedCount)

	var account models.Account
	require.NoError(t, db.Where("username = ?", "alice").First(&account).Error)
	assert.Equal(t, 1, account.MissedDeadlines)

	// The flipped testnet leaves the active filter, so another sweep
	// emits nothing more.
	require.NoError(t, s.CheckOverdueTestnets())
	assert.Len(t, emitter.byType(models.NotificationTypeDeadline), 1)
}

func TestOverdueSweepIsIdempotentWithinWindow(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "bob")
	require.NoError(t, db.Create(&models.Testnet{
		Username:     "bob",
		Name:         "Spark",
		Blockchain:   "eth",
		Interval:     "daily",
		DeadlineType: "fixed",
		Status:       models.StatusActive,
		NextDeadline: now.Add(-90 * time.Minute),
	}).Error)

	require.NoError(t, s.CheckOverdueTestnets())
	require.NoError(t, s.CheckOverdueTestnets())

	// Second run finds the ledger row and skips.
	notices := emitter.byType(models.NotificationTypeDeadline)
	require.Len(t, notices, 1)
	assert.Equal(t, 2, notices[0].notice.Metadata["hours_overdue"])

	// Ninety minutes late is not enough to flip the status.
	var updated models.Testnet
	require.NoError(t, db.Where("username = ?", "bob").First(&updated).Error)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Equal(t, 0, updated.MissedCount)
}

func TestReminderSweepEmitsInsideWindow(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "carol")
	require.NoError(t, db.Create(&models.Testnet{
		Username:      "carol",
		Name:          "Quanta",
		Blockchain:    "solana",
		Interval:      "daily",
		DeadlineType:  "fixed",
		ReminderHours: 3,
		Status:        models.StatusActive,
		NextDeadline:  now.Add(2 * time.Hour),
	}).Error)

	require.NoError(t, s.CheckDeadlineReminders())

	notices := emitter.byType(models.NotificationTypeReminder)
	require.Len(t, notices, 1)
	assert.Equal(t, "carol", notices[0].username)
	// Two hours out is high urgency, which maps to medium priority.
	assert.Equal(t, models.PriorityMedium, notices[0].notice.Priority)

	// Re-running within the window emits nothing new.
	require.NoError(t, s.CheckDeadlineReminders())
	assert.Len(t, emitter.byType(models.NotificationTypeReminder), 1)
}

func TestReminderSweepElevatesCriticalDeadlines(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "dave")
	require.NoError(t, db.Create(&models.Testnet{
		Username:      "dave",
		Name:          "Flare",
		Blockchain:    "near",
		Interval:      "daily",
		DeadlineType:  "fixed",
		ReminderHours: 12,
		Status:        models.StatusActive,
		NextDeadline:  now.Add(30 * time.Minute),
	}).Error)

	require.NoError(t, s.CheckDeadlineReminders())

	notices := emitter.byType(models.NotificationTypeReminder)
	require.Len(t, notices, 1)
	assert.Equal(t, models.PriorityHigh, notices[0].notice.Priority)
}

func TestReminderSweepWaitsForWindow(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "erin")
	require.NoError(t, db.Create(&models.Testnet{
		Username:      "erin",
		Name:          "Drift",
		Blockchain:    "aptos",
		Interval:      "daily",
		DeadlineType:  "fixed",
		ReminderHours: 3,
		Status:        models.StatusActive,
		NextDeadline:  now.Add(10 * time.Hour),
	}).Error)

	require.NoError(t, s.CheckDeadlineReminders())

	assert.Empty(t, emitter.byType(models.NotificationTypeReminder))
}

func TestReminderSweepSkipsPassedDeadlines(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "frank")
	require.NoError(t, db.Create(&models.Testnet{
		Username:      "frank",
		Name:          "Ember",
		Blockchain:    "sui",
		Interval:      "daily",
		DeadlineType:  "fixed",
		ReminderHours: 12,
		Status:        models.StatusActive,
		NextDeadline:  now.Add(-time.Hour),
	}).Error)

	require.NoError(t, s.CheckDeadlineReminders())

	assert.Empty(t, emitter.byType(models.NotificationTypeReminder))
}

func TestReminderSweepHonorsDisabledPreference(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "grace")
	settings := models.DefaultNotificationSettings("grace")
	settings.DeadlineReminders = false
	require.NoError(t, db.Create(&settings).Error)

	require.NoError(t, db.Create(&models.Testnet{
		Username:      "grace",
		Name:          "Pulse",
		Blockchain:    "celestia",
		Interval:      "daily",
		DeadlineType:  "fixed",
		ReminderHours: 12,
		Status:        models.StatusActive,
		NextDeadline:  now.Add(2 * time.Hour),
	}).Error)

	require.NoError(t, s.CheckDeadlineReminders())

	assert.Empty(t, emitter.notices)
}

func TestDailySummaryGroupsByOwner(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "heidi")
	createAccount(t, db, "ivan")

	// Heidi has two deadlines today, Ivan has system notices disabled.
	ivanSettings := models.DefaultNotificationSettings("ivan")
	ivanSettings.TypeSystem = false
	require.NoError(t, db.Create(&ivanSettings).Error)

	for _, tn := range []models.Testnet{
		{Username: "heidi", Name: "Atlas", Blockchain: "eth", Interval: "daily", DeadlineType: "fixed", Status: models.StatusActive, NextDeadline: now.Add(3 * time.Hour)},
		{Username: "heidi", Name: "Borealis", Blockchain: "dot", Interval: "daily", DeadlineType: "fixed", Status: models.StatusActive, NextDeadline: now.Add(20 * time.Hour)},
		{Username: "ivan", Name: "Cinder", Blockchain: "eth", Interval: "daily", DeadlineType: "fixed", Status: models.StatusActive, NextDeadline: now.Add(5 * time.Hour)},
	} {
		tn := tn
		require.NoError(t, db.Create(&tn).Error)
	}

	require.NoError(t, s.SendDailySummary())

	notices := emitter.byType(models.NotificationTypeSystem)
	require.Len(t, notices, 1)
	assert.Equal(t, "heidi", notices[0].username)
	assert.Contains(t, notices[0].notice.Message, "2 testnet deadline(s)")
	assert.Contains(t, notices[0].notice.Message, "Atlas")
	assert.Contains(t, notices[0].notice.Message, "Borealis")
}

func TestWeeklySummarySkipsOwnersWithoutActiveTestnets(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	s, emitter := newTestScheduler(t, db, now)

	createAccount(t, db, "judy")
	createAccount(t, db, "mallory")

	completedAt := now.Add(-2 * 24 * time.Hour)
	for _, tn := range []models.Testnet{
		{Username: "judy", Name: "Vertex", Blockchain: "eth", Interval: "weekly", DeadlineType: "rolling", Status: models.StatusActive, NextDeadline: now.Add(48 * time.Hour), LastCompletedAt: &completedAt},
		{Username: "judy", Name: "Helios", Blockchain: "sol", Interval: "daily", DeadlineType: "fixed", Status: models.StatusOverdue, NextDeadline: now.Add(-30 * time.Hour)},
		// Mallory only has a paused testnet: excluded entirely.
		{Username: "mallory", Name: "Umbra", Blockchain: "eth", Interval: "daily", DeadlineType: "fixed", Status: models.StatusPaused, NextDeadline: now.Add(24 * time.Hour)},
	} {
		tn := tn
		require.NoError(t, db.Create(&tn).Error)
	}

	require.NoError(t, s.SendWeeklySummary())

	notices := emitter.byType(models.NotificationTypeSystem)
	require.Len(t, notices, 1)
	assert.Equal(t, "judy", notices[0].username)
	assert.Contains(t, notices[0].notice.Message, "1 completed")
	assert.Contains(t, notices[0].notice.Message, "1 missed")
	assert.Contains(t, notices[0].notice.Message, "1 active")
}
