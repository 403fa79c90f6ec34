package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateDocumentRequest struct {
	Kind         DocumentKind
	ClientID     snowflake.ID
	JobID        *snowflake.ID
	Notes        string
	ValidUntil   *time.Time // quotes
	DueDate      *time.Time // invoices
	PaymentTerms string     // invoices

	DepositRequired bool
	DepositType     DepositType
	DepositValue    decimal.Decimal
}

// CreateDocumentResponse carries the new document and, for quotes, the raw
// public token. The raw token is returned exactly once; only its hash is
// stored.
type CreateDocumentResponse struct {
	Document    Document `json:"document"`
	PublicToken string   `json:"public_token,omitempty"`
}

type ListDocumentRequest struct {
	pagination.Pagination
	Kind     DocumentKind
	Status   DocumentStatus
	ClientID string
}

type ListDocumentResponse struct {
	pagination.PageInfo
	Documents []Document `json:"documents"`
}

// DocumentDetail is a document with its ledger and the read-time derived
// status.
type DocumentDetail struct {
	Document
	Items           []LineItem     `json:"items"`
	EffectiveStatus DocumentStatus `json:"effective_status"`
}

type ItemSpec struct {
	ItemType    ItemType
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type ItemUpdateSpec struct {
	ID          snowflake.ID
	ItemType    *ItemType
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
}

// VariationDecision resolves an edit to a non-draft document. Exactly one
// of the two named outcomes must be chosen before anything is written.
type VariationDecision string

const (
	DecisionNone               VariationDecision = ""
	DecisionResetForReapproval VariationDecision = "reset_for_reapproval"
	DecisionSelfApprove        VariationDecision = "self_approve"
)

type VariationRequest struct {
	DocumentID string
	Decision   VariationDecision
	Add        []ItemSpec
	Update     []ItemUpdateSpec
	Remove     []snowflake.ID
}

type AcceptQuoteRequest struct {
	DocumentID string
	Name       string
	Email      string
}

type Service interface {
	Create(ctx context.Context, req CreateDocumentRequest) (CreateDocumentResponse, error)
	GetByID(ctx context.Context, id string) (DocumentDetail, error)
	List(ctx context.Context, req ListDocumentRequest) (ListDocumentResponse, error)

	AddLineItem(ctx context.Context, documentID string, spec ItemSpec) (LineItem, error)
	UpdateLineItem(ctx context.Context, documentID string, update ItemUpdateSpec) (LineItem, error)
	RemoveLineItem(ctx context.Context, documentID string, itemID string) error
	ApplyVariation(ctx context.Context, req VariationRequest) (DocumentDetail, error)

	Send(ctx context.Context, id string) (Document, error)
	AcceptQuote(ctx context.Context, req AcceptQuoteRequest) (Document, error)
	RejectQuote(ctx context.Context, id string, reason string) (Document, error)
	MarkDepositPaid(ctx context.Context, id string) (Document, error)
	CancelInvoice(ctx context.Context, id string) (Document, error)
}
