package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ActivityLog represents an entry in the user's activity history
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:30;not null;index" json:"username"`
	EventType string    `gorm:"size:30;not null" json:"event_type"` // create_testnet, complete_testnet, delete_testnet, submit_faucet
	TestnetID uint      `gorm:"index" json:"testnet_id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// Account represents a user account in the system
type Account struct {
	Username      string `gorm:"primaryKey;size:30;not null" json:"username" binding:"required,alphanum"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email" binding:"required,email"`
	HashedPass    string `gorm:"size:255" json:"-"`
	GoogleID      string `gorm:"size:128;index" json:"-"` // set when the account signed up via Google
	FullName      string `gorm:"size:100" json:"full_name"`
	AvatarURL     string `gorm:"size:500" json:"avatar_url"`
	Bio           string `gorm:"size:500" json:"bio"`
	EmailVerified bool   `gorm:"not null;default:false" json:"email_verified"`
	TokenVersion  int    `gorm:"not null;default:0" json:"-"`

	// Aggregate participation stats, maintained by handlers and the
	// overdue sweep.
	TotalTestnets     int `gorm:"not null;default:0" json:"total_testnets"`
	CompletedTestnets int `gorm:"not null;default:0" json:"completed_testnets"`
	MissedDeadlines   int `gorm:"not null;default:0" json:"missed_deadlines"`

	Activities []ActivityLog `gorm:"foreignKey:Username" json:"activities,omitempty"`
	Testnets   []Testnet     `gorm:"foreignKey:Username" json:"testnets,omitempty"`

	DateJoined time.Time      `gorm:"not null" json:"date_joined"`
	LastLogin  time.Time      `gorm:"not null" json:"last_login"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook is called before creating a new account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.DateJoined.IsZero() {
		a.DateJoined = now
	}
	if a.LastLogin.IsZero() {
		a.LastLogin = now
	}

	// Hash the password unless the account came from an OAuth provider
	// with no local password.
	if a.HashedPass != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(a.HashedPass), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		a.HashedPass = string(hashed)
	}
	return nil
}

// BeforeSave hook is called before saving the account
func (a *Account) BeforeSave(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}

// VerifyPassword compares a plaintext password against the stored hash
func (a *Account) VerifyPassword(password string) bool {
	if a.HashedPass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.HashedPass), []byte(password)) == nil
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "account"
}

// TableName specifies the table name for the ActivityLog model
func (ActivityLog) TableName() string {
	return "activity_log"
}

// LoginLog records sign-in attempts for auditing
type LoginLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:30;not null;index" json:"username"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Success   bool      `gorm:"not null" json:"success"`
	Method    string    `gorm:"size:10;not null;default:'password'" json:"method"` // password or google
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for the LoginLog model
func (LoginLog) TableName() string {
	return "login_log"
}

// PasswordReset stores a single-use password reset token
type PasswordReset struct {
	Token     string    `gorm:"primaryKey;size:64" json:"-"`
	Username  string    `gorm:"size:30;not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`
	Used      bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

// TableName specifies the table name for the PasswordReset model
func (PasswordReset) TableName() string {
	return "password_reset"
}

// IsExpired reports whether the reset token can no longer be redeemed
func (p *PasswordReset) IsExpired() bool {
	return p.Used || time.Now().After(p.ExpiresAt)
}

// CreateAccountRequest represents the data needed to create a new account
type CreateAccountRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"omitempty,max=100"`
}

// LoginRequest represents the data needed for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries optional profile updates
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" binding:"omitempty,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}
