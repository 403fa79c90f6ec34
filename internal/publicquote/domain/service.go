// Package domain is the client-facing read model of a quote. Lookups are
// by opaque token only; nothing here ever exposes internal identifiers or
// other documents of the organization.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"gorm.io/gorm"
)

// PublicLineItem is a ledger line as the client sees it. All money is
// formatted to two decimal places.
type PublicLineItem struct {
	ItemType     string `json:"item_type"`
	Description  string `json:"description"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	LineSubtotal string `json:"line_subtotal"`
	GSTAmount    string `json:"gst_amount"`
	LineTotal    string `json:"line_total"`
}

// PublicOrganization is the issuing business's letterhead.
type PublicOrganization struct {
	Name        string `json:"name"`
	LogoURL     string `json:"logo_url,omitempty"`
	Address     string `json:"address,omitempty"`
	ABN         string `json:"abn,omitempty"`
	BankName    string `json:"bank_name,omitempty"`
	BankBSB     string `json:"bank_bsb,omitempty"`
	BankAccount string `json:"bank_account,omitempty"`
}

// PublicQuoteView is everything the client needs to decide on the quote.
type PublicQuoteView struct {
	Organization   PublicOrganization `json:"organization"`
	DocumentNumber string             `json:"document_number"`
	Status         string             `json:"status"`
	ClientName     string             `json:"client_name,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Items          []PublicLineItem   `json:"items"`
	Subtotal       string             `json:"subtotal"`
	GSTAmount      string             `json:"gst_amount"`
	TotalAmount    string             `json:"total_amount"`
	ValidUntil     *time.Time         `json:"valid_until,omitempty"`

	DepositRequired bool   `json:"deposit_required"`
	DepositAmount   string `json:"deposit_amount,omitempty"`
	DepositPaid     bool   `json:"deposit_paid"`

	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	AcceptedByName string     `json:"accepted_by_name,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
}

type AcceptRequest struct {
	OrgID string
	Token string
	Name  string
	Email string
}

type RejectRequest struct {
	OrgID  string
	Token  string
	Reason string
}

type Service interface {
	GetQuote(ctx context.Context, orgID string, token string) (PublicQuoteView, error)
	Accept(ctx context.Context, req AcceptRequest) (PublicQuoteView, error)
	Reject(ctx context.Context, req RejectRequest) (PublicQuoteView, error)
}

// Repository resolves quotes by token hash. The raw token never reaches
// storage.
type Repository interface {
	FindByTokenHash(ctx context.Context, db *gorm.DB, orgID snowflake.ID, hash string) (*documentdomain.Document, error)
	FindByTokenHashForUpdate(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, hash string) (*documentdomain.Document, error)
}

var (
	// ErrQuoteUnavailable deliberately covers bad org, bad token and
	// never-shared drafts alike so the public surface leaks nothing.
	ErrQuoteUnavailable = errors.New("quote_unavailable")
	ErrNotActionable    = errors.New("not_actionable")
	ErrDepositRequired  = errors.New("deposit_required")
)
