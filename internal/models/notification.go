package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types. The scheduler's de-duplication window keys on
// (username, testnet_id, type), so reminder and overdue sweeps never
// suppress each other.
const (
	NotificationTypeReminder    = "reminder"
	NotificationTypeDeadline    = "deadline" // overdue notices
	NotificationTypeSystem      = "system"
	NotificationTypeAchievement = "achievement"
)

// Notification priorities
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification is a user-facing notice. Rows double as the reminder
// ledger: the scheduler checks for a recent row of the same type and
// testnet before emitting another.
type Notification struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string         `gorm:"size:30;not null;index:idx_notification_dedup" json:"username"`
	Type      string         `gorm:"size:15;not null;index:idx_notification_dedup" json:"type"`
	TestnetID uint           `gorm:"index:idx_notification_dedup" json:"testnet_id"` // zero for summaries
	Title     string         `gorm:"size:200;not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Priority  string         `gorm:"size:10;not null;default:'medium'" json:"priority"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	Read      bool           `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time      `gorm:"not null;index:idx_notification_dedup" json:"created_at"`
}

// BeforeCreate hook is called before creating a new notification
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	return nil
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notification"
}

// NotificationSetting holds one account's delivery preferences
type NotificationSetting struct {
	Username          string `gorm:"primaryKey;size:30" json:"username"`
	EmailEnabled      bool   `gorm:"not null;default:true" json:"email_enabled"`
	PushEnabled       bool   `gorm:"not null;default:true" json:"push_enabled"` // persisted for the client; no push transport server-side
	DeadlineReminders bool   `gorm:"not null;default:true" json:"deadline_reminders"`
	ReminderHours     int    `gorm:"not null;default:12" json:"reminder_hours"` // lead time, 1-168

	QuietHoursEnabled bool   `gorm:"not null;default:false" json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"size:5;not null;default:'22:00'" json:"quiet_hours_start"` // HH:MM
	QuietHoursEnd     string `gorm:"size:5;not null;default:'08:00'" json:"quiet_hours_end"`

	TypeReminder    bool `gorm:"not null;default:true" json:"type_reminder"`
	TypeDeadline    bool `gorm:"not null;default:true" json:"type_deadline"`
	TypeSystem      bool `gorm:"not null;default:true" json:"type_system"`
	TypeAchievement bool `gorm:"not null;default:true" json:"type_achievement"`

	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the NotificationSetting model
func (NotificationSetting) TableName() string {
	return "notification_setting"
}

// DefaultNotificationSettings returns the settings used for accounts
// that never saved any.
func DefaultNotificationSettings(username string) NotificationSetting {
	return NotificationSetting{
		Username:          username,
		EmailEnabled:      true,
		PushEnabled:       true,
		DeadlineReminders: true,
		ReminderHours:     12,
		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "08:00",
		TypeReminder:      true,
		TypeDeadline:      true,
		TypeSystem:        true,
		TypeAchievement:   true,
	}
}

// TypeEnabled reports whether the given notification type is switched on
func (s *NotificationSetting) TypeEnabled(notifType string) bool {
	switch notifType {
	case NotificationTypeReminder:
		return s.TypeReminder
	case NotificationTypeDeadline:
		return s.TypeDeadline
	case NotificationTypeSystem:
		return s.TypeSystem
	case NotificationTypeAchievement:
		return s.TypeAchievement
	default:
		return true
	}
}

// InQuietHours reports whether t falls inside the configured quiet
// window. Windows may wrap midnight ("22:00"-"08:00").
func (s *NotificationSetting) InQuietHours(t time.Time) bool {
	if !s.QuietHoursEnabled {
		return false
	}
	current := t.Format("15:04")
	if s.QuietHoursStart <= s.QuietHoursEnd {
		return current >= s.QuietHoursStart && current <= s.QuietHoursEnd
	}
	return current >= s.QuietHoursStart || current <= s.QuietHoursEnd
}

// UpdateNotificationSettingsRequest carries optional settings updates
type UpdateNotificationSettingsRequest struct {
	EmailEnabled      *bool   `json:"email_enabled"`
	PushEnabled       *bool   `json:"push_enabled"`
	DeadlineReminders *bool   `json:"deadline_reminders"`
	ReminderHours     *int    `json:"reminder_hours" binding:"omitempty,min=1,max=168"`
	QuietHoursEnabled *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   *string `json:"quiet_hours_start" binding:"omitempty,len=5"`
	QuietHoursEnd     *string `json:"quiet_hours_end" binding:"omitempty,len=5"`
	TypeReminder      *bool   `json:"type_reminder"`
	TypeDeadline      *bool   `json:"type_deadline"`
	TypeSystem        *bool   `json:"type_system"`
	TypeAchievement   *bool   `json:"type_achievement"`
}
