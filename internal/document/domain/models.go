// Package domain contains the financial-document models shared by quotes
// and invoices: line items, derived totals, deposit terms and lifecycle
// timestamps. Every monetary column is NUMERIC; derived columns are
// recomputed from their inputs on every mutation, never edited directly.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DocumentKind distinguishes the two tagged variants. The transition
// tables genuinely differ per kind, so the kind guards every status
// change instead of a shared base type.
type DocumentKind string

const (
	KindQuote   DocumentKind = "quote"
	KindInvoice DocumentKind = "invoice"
)

// ItemType classifies a line item.
type ItemType string

const (
	ItemTypeLabor     ItemType = "labor"
	ItemTypeMaterial  ItemType = "material"
	ItemTypeEquipment ItemType = "equipment"
	ItemTypeFee       ItemType = "fee"
	ItemTypeOther     ItemType = "other"
)

// DepositType selects how a quote's deposit is derived.
type DepositType string

const (
	DepositTypePercentage DepositType = "percentage"
	DepositTypeAmount     DepositType = "amount"
)

// Document is a quote or invoice. It exclusively owns its line items;
// client, organization and job are weak references resolved elsewhere.
type Document struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID          snowflake.ID      `json:"org_id" gorm:"not null;index"`
	Kind           DocumentKind      `json:"kind" gorm:"type:text;not null;index"`
	DocumentNumber string            `json:"document_number" gorm:"type:text;not null;uniqueIndex:ux_documents_org_number"`
	ClientID       snowflake.ID      `json:"client_id" gorm:"not null;index"`
	JobID          *snowflake.ID     `json:"job_id,omitempty" gorm:"index"`
	Status         DocumentStatus    `json:"status" gorm:"type:text;not null;default:'draft'"`
	Subtotal       money.Amount      `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	GSTAmount      money.Amount      `json:"gst_amount" gorm:"type:numeric(12,2);not null"`
	TotalAmount    money.Amount      `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Notes          string            `json:"notes,omitempty" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
	SentAt         *time.Time        `json:"sent_at,omitempty" gorm:""`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Quote-only.
	ValidUntil      *time.Time   `json:"valid_until,omitempty" gorm:""`
	DepositRequired bool         `json:"deposit_required" gorm:"not null;default:false"`
	DepositType     DepositType  `json:"deposit_type,omitempty" gorm:"type:text"`
	DepositValue    money.Amount `json:"deposit_value" gorm:"type:numeric(12,2);not null;default:0"`
	DepositAmount   money.Amount `json:"deposit_amount" gorm:"type:numeric(12,2);not null;default:0"`
	DepositPaid     bool         `json:"deposit_paid" gorm:"not null;default:false"`
	DepositPaidAt   *time.Time   `json:"deposit_paid_at,omitempty" gorm:""`
	PublicTokenHash string       `json:"-" gorm:"type:text;index"`
	AcceptedAt      *time.Time   `json:"accepted_at,omitempty" gorm:""`
	AcceptedByName  string       `json:"accepted_by_name,omitempty" gorm:"type:text"`
	AcceptedByEmail string       `json:"accepted_by_email,omitempty" gorm:"type:text"`
	RejectedAt      *time.Time   `json:"rejected_at,omitempty" gorm:""`
	RejectionReason string       `json:"rejection_reason,omitempty" gorm:"type:text"`

	// Invoice-only.
	DueDate      *time.Time   `json:"due_date,omitempty" gorm:""`
	PaymentTerms string       `json:"payment_terms,omitempty" gorm:"type:text"`
	PaidAmount   money.Amount `json:"paid_amount" gorm:"type:numeric(12,2);not null;default:0"`
	PaidAt       *time.Time   `json:"paid_at,omitempty" gorm:""`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty" gorm:""`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// OutstandingAmount is always derived, never stored.
func (d Document) OutstandingAmount() decimal.Decimal {
	return d.TotalAmount.Sub(d.PaidAmount.Decimal)
}

// LineItem is one line on a document. The derived columns are a pure
// function of quantity and unit price.
type LineItem struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID    `json:"org_id" gorm:"not null;index"`
	DocumentID   snowflake.ID    `json:"document_id" gorm:"not null;index"`
	ItemType     ItemType        `json:"item_type" gorm:"type:text;not null"`
	Description  string          `json:"description" gorm:"type:text;not null"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:numeric(12,3);not null"`
	UnitPrice    money.Amount    `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineSubtotal money.Amount    `json:"line_subtotal" gorm:"type:numeric(12,2);not null"`
	GSTAmount    money.Amount    `json:"gst_amount" gorm:"type:numeric(12,2);not null"`
	LineTotal    money.Amount    `json:"line_total" gorm:"type:numeric(12,2);not null"`
	LineOrder    int             `json:"line_order" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }

func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeLabor, ItemTypeMaterial, ItemTypeEquipment, ItemTypeFee, ItemTypeOther:
		return true
	default:
		return false
	}
}
