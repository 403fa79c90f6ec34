// Package domain holds the organization branding contract used when
// rendering the public document view. Read-only inside the engine.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Organization struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null"`
	LogoURL     string       `gorm:"type:text"`
	Address     string       `gorm:"type:text"`
	ABN         string       `gorm:"type:text"`
	BankName    string       `gorm:"type:text"`
	BankBSB     string       `gorm:"type:text"`
	BankAccount string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
}

var (
	ErrNotFound = errors.New("organization_not_found")
)
