package models

import (
	"time"

	"gorm.io/gorm"

	"nettrack/internal/schedule"
)

// TestnetStatus represents the lifecycle state of a tracked testnet
type TestnetStatus string

const (
	StatusActive    TestnetStatus = "active"
	StatusCompleted TestnetStatus = "completed"
	StatusOverdue   TestnetStatus = "overdue"
	StatusPaused    TestnetStatus = "paused"
)

// TestnetCategory groups testnets on the dashboard
type TestnetCategory string

const (
	CategoryLayer1  TestnetCategory = "layer1"
	CategoryLayer2  TestnetCategory = "layer2"
	CategoryDefi    TestnetCategory = "defi"
	CategoryInfra   TestnetCategory = "infra"
	CategoryGaming  TestnetCategory = "gaming"
	CategoryOtherTN TestnetCategory = "other"
)

// Testnet represents a recurring participation task for one account.
// NextDeadline is the single upcoming due time; it only ever advances.
type Testnet struct {
	ID             uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string                `gorm:"size:30;not null;index" json:"username"`
	Name           string                `gorm:"size:100;not null" json:"name"`
	Description    string                `gorm:"type:text" json:"description"`
	Blockchain     string                `gorm:"size:50;not null;index" json:"blockchain"`
	Category       TestnetCategory       `gorm:"size:20;not null;default:'other'" json:"category"`
	WebsiteURL     string                `gorm:"size:500" json:"website_url"`
	LogoURL        string                `gorm:"size:500" json:"logo_url"`
	WalletAddress  string                `gorm:"size:128" json:"wallet_address"`
	Interval       schedule.Interval     `gorm:"size:10;not null" json:"interval"`
	CustomInterval int                   `json:"custom_interval"` // hours, only for interval=custom
	DeadlineType   schedule.DeadlineType `gorm:"size:10;not null;default:'fixed'" json:"deadline_type"`
	ReminderHours  int                   `gorm:"not null;default:12" json:"reminder_hours"`
	Status         TestnetStatus         `gorm:"size:10;not null;default:'active';index" json:"status"`
	NextDeadline   time.Time             `gorm:"not null;index" json:"next_deadline"`
	LastCompletedAt *time.Time           `json:"last_completed_at"`
	CompletionCount int                  `gorm:"not null;default:0" json:"completion_count"`
	MissedCount     int                  `gorm:"not null;default:0" json:"missed_count"`
	CreatedAt       time.Time            `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"not null;index" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new testnet
func (t *Testnet) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.ReminderHours == 0 {
		t.ReminderHours = schedule.DefaultReminderHours
	}
	return nil
}

// BeforeSave hook keeps UpdatedAt current
func (t *Testnet) BeforeSave(tx *gorm.DB) error {
	t.UpdatedAt = time.Now()
	return nil
}

// TableName specifies the table name for the Testnet model
func (Testnet) TableName() string {
	return "testnet"
}

// CreateTestnetRequest represents the data needed to track a new testnet
type CreateTestnetRequest struct {
	Name           string                `json:"name" binding:"required,max=100"`
	Description    string                `json:"description"`
	Blockchain     string                `json:"blockchain" binding:"required,max=50"`
	Category       TestnetCategory       `json:"category" binding:"omitempty,oneof=layer1 layer2 defi infra gaming other"`
	WebsiteURL     string                `json:"website_url" binding:"omitempty,url"`
	LogoURL        string                `json:"logo_url"`
	WalletAddress  string                `json:"wallet_address"`
	Interval       schedule.Interval     `json:"interval" binding:"required,oneof=daily weekly monthly custom"`
	CustomInterval int                   `json:"custom_interval" binding:"omitempty,min=1,max=8760"`
	DeadlineType   schedule.DeadlineType `json:"deadline_type" binding:"required,oneof=fixed rolling"`
	ReminderHours  int                   `json:"reminder_hours" binding:"omitempty,min=1,max=168"`
}

// UpdateTestnetRequest carries optional field updates. Pointer fields
// distinguish "absent" from zero values.
type UpdateTestnetRequest struct {
	Name           *string                `json:"name" binding:"omitempty,max=100"`
	Description    *string                `json:"description"`
	Blockchain     *string                `json:"blockchain" binding:"omitempty,max=50"`
	Category       *TestnetCategory       `json:"category" binding:"omitempty,oneof=layer1 layer2 defi infra gaming other"`
	WebsiteURL     *string                `json:"website_url" binding:"omitempty,url"`
	LogoURL        *string                `json:"logo_url"`
	WalletAddress  *string                `json:"wallet_address"`
	Interval       *schedule.Interval     `json:"interval" binding:"omitempty,oneof=daily weekly monthly custom"`
	CustomInterval *int                   `json:"custom_interval" binding:"omitempty,min=1,max=8760"`
	DeadlineType   *schedule.DeadlineType `json:"deadline_type" binding:"omitempty,oneof=fixed rolling"`
	ReminderHours  *int                   `json:"reminder_hours" binding:"omitempty,min=1,max=168"`
	Status         *TestnetStatus         `json:"status" binding:"omitempty,oneof=active completed overdue paused"`
}

// TestnetStats aggregates an account's testnets for the stats endpoint
type TestnetStats struct {
	Total            int            `json:"total"`
	Active           int            `json:"active"`
	Completed        int            `json:"completed"`
	Overdue          int            `json:"overdue"`
	Paused           int            `json:"paused"`
	TotalCompletions int            `json:"total_completions"`
	TotalMissed      int            `json:"total_missed"`
	Blockchains      map[string]int `json:"blockchains"`
	Categories       map[string]int `json:"categories"`
}
