package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Faucet is a community-submitted directory entry for a token faucet
type Faucet struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Network      string         `gorm:"size:50;not null;index" json:"network"`
	TokenSymbol  string         `gorm:"size:20" json:"token_symbol"`
	URL          string         `gorm:"size:500;not null" json:"url"`
	LogoURL      string         `gorm:"size:500" json:"logo_url"`
	Tags         datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"tags"`
	Requirements datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"requirements"`
	CreatedBy    string         `gorm:"size:30;not null;index" json:"created_by"`
	IsActive     bool           `gorm:"not null;default:true;index" json:"is_active"`
	ViewCount    int            `gorm:"not null;default:0" json:"view_count"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new faucet
func (f *Faucet) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = now
	}
	return nil
}

// BeforeSave hook keeps UpdatedAt current
func (f *Faucet) BeforeSave(tx *gorm.DB) error {
	f.UpdatedAt = time.Now()
	return nil
}

// TableName specifies the table name for the Faucet model
func (Faucet) TableName() string {
	return "faucet"
}

// FaucetFavorite marks a faucet as a favourite of one account
type FaucetFavorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:30;not null;uniqueIndex:idx_faucet_favorite" json:"username"`
	FaucetID  uint      `gorm:"not null;uniqueIndex:idx_faucet_favorite" json:"faucet_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for the FaucetFavorite model
func (FaucetFavorite) TableName() string {
	return "faucet_favorite"
}

// CreateFaucetRequest represents the data needed to submit a faucet
type CreateFaucetRequest struct {
	Name         string   `json:"name" binding:"required,max=100"`
	Description  string   `json:"description"`
	Network      string   `json:"network" binding:"required,max=50"`
	TokenSymbol  string   `json:"token_symbol" binding:"omitempty,max=20"`
	URL          string   `json:"url" binding:"required,url"`
	LogoURL      string   `json:"logo_url"`
	Tags         []string `json:"tags"`
	Requirements []string `json:"requirements"`
}

// UpdateFaucetRequest carries optional faucet updates
type UpdateFaucetRequest struct {
	Name         *string   `json:"name" binding:"omitempty,max=100"`
	Description  *string   `json:"description"`
	Network      *string   `json:"network" binding:"omitempty,max=50"`
	TokenSymbol  *string   `json:"token_symbol" binding:"omitempty,max=20"`
	URL          *string   `json:"url" binding:"omitempty,url"`
	LogoURL      *string   `json:"logo_url"`
	Tags         []string  `json:"tags"`
	Requirements []string  `json:"requirements"`
	IsActive     *bool     `json:"is_active"`
}
