// Package domain holds the payment records of invoices. Payments are
// append-only: corrections are modelled as new records, never edits, so
// the paid amount is always the sum of what was actually received.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod classifies how the money arrived.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodCheque       PaymentMethod = "cheque"
	MethodOther        PaymentMethod = "other"
)

func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodBankTransfer, MethodCash, MethodCard, MethodCheque, MethodOther:
		return true
	default:
		return false
	}
}

// Payment is one received payment against an invoice. Immutable once
// written.
type Payment struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID  `json:"org_id" gorm:"not null;index"`
	DocumentID snowflake.ID  `json:"document_id" gorm:"not null;index"`
	Amount     money.Amount  `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method     PaymentMethod `json:"method" gorm:"type:text;not null"`
	Reference  string        `json:"reference,omitempty" gorm:"type:text"`
	Notes      string        `json:"notes,omitempty" gorm:"type:text"`
	ReceivedAt time.Time     `json:"received_at" gorm:"not null"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type RecordPaymentRequest struct {
	DocumentID string
	Amount     decimal.Decimal
	Method     PaymentMethod
	Reference  string
	Notes      string
	ReceivedAt *time.Time
}

// RecordPaymentResponse returns the recorded payment together with the
// invoice as it stands after the payment landed.
type RecordPaymentResponse struct {
	Payment  Payment                 `json:"payment"`
	Document documentdomain.Document `json:"document"`
}

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, payment *Payment) error
	ListByDocument(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]Payment, error)
	// SumByDocument totals the recorded payments inside the caller's
	// transaction, under the invoice's row lock.
	SumByDocument(ctx context.Context, tx *gorm.DB, orgID, documentID snowflake.ID) (decimal.Decimal, error)
}

type Service interface {
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (RecordPaymentResponse, error)
	ListPayments(ctx context.Context, documentID string) ([]Payment, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_payment_amount")
	ErrInvalidMethod = errors.New("invalid_payment_method")
	ErrOverpayment   = errors.New("overpayment")
)
