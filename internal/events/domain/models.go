// Package domain defines the transition event outbox. Every status
// transition writes one event row in the same transaction as the
// transition itself; downstream dispatchers (email, SMS, webhooks) consume
// the rows and are out of scope here.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventDocumentSent          = "document.sent"
	EventQuoteAccepted         = "quote.accepted"
	EventQuoteRejected         = "quote.rejected"
	EventQuoteDepositPaid      = "quote.deposit_paid"
	EventInvoicePaid           = "invoice.paid"
	EventInvoicePartiallyPaid  = "invoice.partially_paid"
	EventInvoiceCancelled      = "invoice.cancelled"
	EventDocumentVariationUsed = "document.variation_applied"
)

// Event is one row in the transition outbox.
type Event struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	OrgID      snowflake.ID      `gorm:"not null;index"`
	DocumentID snowflake.ID      `gorm:"not null;index"`
	EventType  string            `gorm:"type:text;not null"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "document_events" }

// Publisher records transition events. Publish must run on the caller's
// transaction handle so the event commits or rolls back with the
// transition that produced it.
type Publisher interface {
	Publish(ctx context.Context, tx *gorm.DB, event *Event) error
}

var (
	ErrInvalidEvent = errors.New("invalid_event")
)
