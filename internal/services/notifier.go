package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nettrack/internal/models"
)

// Notice is the payload handed to an Emitter. Metadata is stored on the
// notification row as JSON.
type Notice struct {
	Type      string
	Title     string
	Message   string
	Priority  string
	TestnetID uint
	Metadata  map[string]interface{}
}

// Emitter delivers notices to a user. The scheduler is written against
// this interface so tests can capture emissions.
type Emitter interface {
	Notify(username string, notice Notice) error
}

// Notifier persists notifications and dispatches them by email
// according to the recipient's settings. The row is always written
// (it is also the scheduler's de-duplication ledger); settings only
// gate delivery.
type Notifier struct {
	db    *gorm.DB
	email *EmailService
}

func NewNotifier(db *gorm.DB, email *EmailService) *Notifier {
	return &Notifier{db: db, email: email}
}

// SettingsFor loads an account's notification settings, falling back to
// the defaults when none were ever saved.
func SettingsFor(db *gorm.DB, username string) models.NotificationSetting {
	var settings models.NotificationSetting
	if err := db.Where("username = ?", username).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Warning: Failed to load notification settings for %s: %v", username, err)
		}
		return models.DefaultNotificationSettings(username)
	}
	return settings
}

// Notify implements Emitter
func (n *Notifier) Notify(username string, notice Notice) error {
	var metadata datatypes.JSON
	if notice.Metadata != nil {
		raw, err := json.Marshal(notice.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode notification metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	notification := models.Notification{
		Username:  username,
		Type:      notice.Type,
		TestnetID: notice.TestnetID,
		Title:     notice.Title,
		Message:   notice.Message,
		Priority:  notice.Priority,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	if err := n.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	settings := SettingsFor(n.db, username)

	// The row exists either way; settings only decide whether we
	// additionally push it out by email.
	if !settings.TypeEnabled(notice.Type) {
		return nil
	}

	if settings.InQuietHours(time.Now()) && notice.Priority != models.PriorityCritical {
		return nil
	}

	if settings.EmailEnabled {
		var account models.Account
		if err := n.db.Select("username, email, full_name").
			Where("username = ?", username).First(&account).Error; err != nil {
			log.Printf("Warning: Notification %d stored but recipient %s not found for email: %v", notification.ID, username, err)
			return nil
		}

		name := account.FullName
		if name == "" {
			name = account.Username
		}
		if err := n.email.SendNotificationEmail(account.Email, name, notice.Title, notice.Message); err != nil {
			// Delivery is best effort; the in-app notification stands.
			log.Printf("Warning: Failed to email notification %d to %s: %v", notification.ID, username, err)
		}
	}

	return nil
}
