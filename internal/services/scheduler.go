package services

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"nettrack/internal/models"
	"nettrack/internal/schedule"
)

// dedupWindow is the sliding window within which a second notice of the
// same type for the same testnet is suppressed.
const dedupWindow = 24 * time.Hour

// sweepConcurrency bounds how many testnets one sweep evaluates at once
const sweepConcurrency = 8

// Scheduler drives the four recurring sweeps: deadline reminders every
// 15 minutes, overdue checks hourly, a daily summary at 09:00 and a
// weekly summary on Sunday 10:00.
//
// Sweeps tolerate overlap: de-duplication rests on the notification
// ledger's 24 hour window, not on mutual exclusion, so delivery is
// at-least-once. A failure on one testnet never aborts the rest of the
// sweep.
type Scheduler struct {
	db      *gorm.DB
	emitter Emitter
	cron    *cron.Cron

	// now is the clock; tests substitute a fixed instant.
	now func() time.Time
}

func NewScheduler(db *gorm.DB, emitter Emitter) *Scheduler {
	return &Scheduler{
		db:      db,
		emitter: emitter,
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Start registers the sweeps and starts the cron loop
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func() error
	}{
		{"*/15 * * * *", "deadline reminders", s.CheckDeadlineReminders},
		{"0 * * * *", "overdue testnets", s.CheckOverdueTestnets},
		{"0 9 * * *", "daily summary", s.SendDailySummary},
		{"0 10 * * 0", "weekly summary", s.SendWeeklySummary},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			if err := job.run(); err != nil {
				log.Printf("Error: %s sweep failed: %v", job.name, err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	log.Println("Notification scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running sweeps to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Notification scheduler stopped")
}

// hasRecentNotification reports whether a notice of the given type for
// this testnet was created inside the de-duplication window.
func (s *Scheduler) hasRecentNotification(username string, testnetID uint, notifType string, now time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("username = ? AND testnet_id = ? AND type = ? AND created_at >= ?",
			username, testnetID, notifType, now.Add(-dedupWindow)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckDeadlineReminders emits one reminder per testnet whose reminder
// window has opened, at most once per 24 hours.
func (s *Scheduler) CheckDeadlineReminders() error {
	now := s.now()

	var testnets []models.Testnet
	if err := s.db.Where("status = ? AND next_deadline <= ?",
		models.StatusActive, now.Add(24*time.Hour)).Find(&testnets).Error; err != nil {
		return fmt.Errorf("failed to query upcoming testnets: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for _, testnet := range testnets {
		testnet := testnet
		g.Go(func() error {
			if err := s.remindTestnet(testnet, now); err != nil {
				log.Printf("Error: Reminder check for testnet %d (%s): %v", testnet.ID, testnet.Name, err)
			}
			return nil
		})
	}
	g.Wait()

	log.Printf("Deadline reminder sweep finished over %d testnet(s)", len(testnets))
	return nil
}

func (s *Scheduler) remindTestnet(testnet models.Testnet, now time.Time) error {
	// Skip if the deadline has already passed; the overdue sweep owns it.
	if !testnet.NextDeadline.After(now) {
		return nil
	}

	settings := SettingsFor(s.db, testnet.Username)
	if !settings.DeadlineReminders {
		return nil
	}

	// Per-testnet lead time wins over the account preference.
	leadHours := testnet.ReminderHours
	if leadHours <= 0 {
		leadHours = settings.ReminderHours
	}

	reminderAt := schedule.ReminderTime(testnet.NextDeadline, leadHours)
	if now.Before(reminderAt) {
		return nil
	}

	sent, err := s.hasRecentNotification(testnet.Username, testnet.ID, models.NotificationTypeReminder, now)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}
	if sent {
		return nil
	}

	urgency := schedule.Urgency(testnet.NextDeadline, now)
	priority := models.PriorityMedium
	if urgency == schedule.UrgencyCritical {
		priority = models.PriorityHigh
	}
	hoursRemaining := int(math.Ceil(testnet.NextDeadline.Sub(now).Hours()))

	return s.emitter.Notify(testnet.Username, Notice{
		Type:      models.NotificationTypeReminder,
		Title:     fmt.Sprintf("Testnet Deadline Reminder: %s", testnet.Name),
		Message:   fmt.Sprintf("Your testnet %q on %s has a deadline in %d hour(s).", testnet.Name, testnet.Blockchain, hoursRemaining),
		Priority:  priority,
		TestnetID: testnet.ID,
		Metadata: map[string]interface{}{
			"testnet_name":   testnet.Name,
			"blockchain":     testnet.Blockchain,
			"deadline":       testnet.NextDeadline,
			"time_remaining": fmt.Sprintf("%dh", hoursRemaining),
			"urgency":        urgency,
		},
	})
}

// CheckOverdueTestnets emits one overdue notice per testnet per 24
// hours, and flips testnets more than a day late to overdue status.
func (s *Scheduler) CheckOverdueTestnets() error {
	now := s.now()

	var testnets []models.Testnet
	if err := s.db.Where("status = ? AND next_deadline < ?",
		models.StatusActive, now).Find(&testnets).Error; err != nil {
		return fmt.Errorf("failed to query overdue testnets: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for _, testnet := range testnets {
		testnet := testnet
		g.Go(func() error {
			if err := s.handleOverdueTestnet(testnet, now); err != nil {
				log.Printf("Error: Overdue check for testnet %d (%s): %v", testnet.ID, testnet.Name, err)
			}
			return nil
		})
	}
	g.Wait()

	log.Printf("Overdue sweep finished over %d testnet(s)", len(testnets))
	return nil
}

func (s *Scheduler) handleOverdueTestnet(testnet models.Testnet, now time.Time) error {
	sent, err := s.hasRecentNotification(testnet.Username, testnet.ID, models.NotificationTypeDeadline, now)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}
	if sent {
		return nil
	}

	hoursOverdue := int(math.Ceil(now.Sub(testnet.NextDeadline).Hours()))

	if err := s.emitter.Notify(testnet.Username, Notice{
		Type:      models.NotificationTypeDeadline,
		Title:     fmt.Sprintf("Overdue: %s", testnet.Name),
		Message:   fmt.Sprintf("Your testnet %q on %s is %d hour(s) overdue. Don't forget to complete your participation!", testnet.Name, testnet.Blockchain, hoursOverdue),
		Priority:  models.PriorityHigh,
		TestnetID: testnet.ID,
		Metadata: map[string]interface{}{
			"testnet_name":  testnet.Name,
			"blockchain":    testnet.Blockchain,
			"deadline":      testnet.NextDeadline,
			"hours_overdue": hoursOverdue,
		},
	}); err != nil {
		return err
	}

	// More than a day late: flip to overdue and count the miss. The
	// sweep only queries active rows, so this fires once per episode;
	// the testnet drops out until the user reactivates it.
	if hoursOverdue > 24 {
		updates := map[string]interface{}{
			"status":       models.StatusOverdue,
			"missed_count": gorm.Expr("missed_count + 1"),
			"updated_at":   now,
		}
		if err := s.db.Model(&models.Testnet{}).
			Where("id = ?", testnet.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to mark testnet overdue: %w", err)
		}

		if err := s.db.Model(&models.Account{}).
			Where("username = ?", testnet.Username).
			Update("missed_deadlines", gorm.Expr("missed_deadlines + 1")).Error; err != nil {
			return fmt.Errorf("failed to update account stats: %w", err)
		}
	}

	return nil
}

// SendDailySummary notifies each owner of the testnets due in the next
// 24 hours, one summary per owner.
func (s *Scheduler) SendDailySummary() error {
	now := s.now()

	var testnets []models.Testnet
	if err := s.db.Where("status = ? AND next_deadline >= ? AND next_deadline < ?",
		models.StatusActive, now, now.Add(24*time.Hour)).Find(&testnets).Error; err != nil {
		return fmt.Errorf("failed to query testnets due today: %w", err)
	}

	byOwner := make(map[string][]models.Testnet)
	for _, testnet := range testnets {
		byOwner[testnet.Username] = append(byOwner[testnet.Username], testnet)
	}

	for username, due := range byOwner {
		settings := SettingsFor(s.db, username)
		if !settings.TypeSystem {
			continue
		}

		names := make([]string, 0, len(due))
		for _, testnet := range due {
			names = append(names, testnet.Name)
		}

		if err := s.emitter.Notify(username, Notice{
			Type:     models.NotificationTypeSystem,
			Title:    "Daily Testnet Summary",
			Message:  fmt.Sprintf("You have %d testnet deadline(s) today: %s", len(due), strings.Join(names, ", ")),
			Priority: models.PriorityMedium,
			Metadata: map[string]interface{}{
				"summary_type":  "daily",
				"testnet_count": len(due),
			},
		}); err != nil {
			log.Printf("Error: Daily summary for %s: %v", username, err)
		}
	}

	log.Printf("Sent daily summaries to %d user(s)", len(byOwner))
	return nil
}

// SendWeeklySummary reports completions, misses and the active count
// over the trailing week. Owners with no active testnets are skipped.
func (s *Scheduler) SendWeeklySummary() error {
	now := s.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var usernames []string
	if err := s.db.Model(&models.Account{}).
		Pluck("username", &usernames).Error; err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	sent := 0
	for _, username := range usernames {
		settings := SettingsFor(s.db, username)
		if !settings.TypeSystem {
			continue
		}

		var testnets []models.Testnet
		if err := s.db.Where("username = ?", username).Find(&testnets).Error; err != nil {
			log.Printf("Error: Weekly summary query for %s: %v", username, err)
			continue
		}

		completed := 0
		missed := 0
		active := 0
		for _, testnet := range testnets {
			if testnet.Status == models.StatusActive {
				active++
			}
			if testnet.LastCompletedAt != nil && !testnet.LastCompletedAt.Before(weekAgo) {
				completed++
			}
			if testnet.Status == models.StatusOverdue && !testnet.UpdatedAt.Before(weekAgo) {
				missed++
			}
		}

		if active == 0 {
			continue
		}

		if err := s.emitter.Notify(username, Notice{
			Type:     models.NotificationTypeSystem,
			Title:    "Weekly Testnet Summary",
			Message:  fmt.Sprintf("This week: %d completed, %d missed. You have %d active testnets.", completed, missed, active),
			Priority: models.PriorityLow,
			Metadata: map[string]interface{}{
				"summary_type": "weekly",
				"completed":    completed,
				"missed":       missed,
				"active":       active,
				"week_start":   weekAgo,
				"week_end":     now,
			},
		}); err != nil {
			log.Printf("Error: Weekly summary for %s: %v", username, err)
			continue
		}
		sent++
	}

	log.Printf("Sent weekly summaries to %d user(s)", sent)
	return nil
}
