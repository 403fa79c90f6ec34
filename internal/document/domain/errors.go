package domain

import "errors"

var (
	ErrNotFound            = errors.New("document_not_found")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidClient       = errors.New("invalid_client")

	// Line item validation.
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidItemType    = errors.New("invalid_item_type")
	ErrLineItemNotFound   = errors.New("line_item_not_found")

	// Deposit validation.
	ErrInvalidDepositType  = errors.New("invalid_deposit_type")
	ErrInvalidDepositValue = errors.New("invalid_deposit_value")
	ErrDepositExceedsTotal = errors.New("deposit_exceeds_total")
	ErrDepositNotRequired  = errors.New("deposit_not_required")
	ErrDepositAlreadyPaid  = errors.New("deposit_already_paid")

	// State machine.
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrNoLineItems       = errors.New("no_line_items")
	ErrDueDateRequired   = errors.New("due_date_required")
	ErrQuoteOnly         = errors.New("quote_only_operation")
	ErrInvoiceOnly       = errors.New("invoice_only_operation")

	// Variation policy: an edit to a non-draft document needs an explicit
	// reset-for-reapproval or self-approve decision before anything is
	// written.
	ErrDecisionRequired = errors.New("variation_decision_required")
	ErrInvalidDecision  = errors.New("invalid_variation_decision")

	// Acceptance identity.
	ErrInvalidAcceptorName  = errors.New("invalid_acceptor_name")
	ErrInvalidAcceptorEmail = errors.New("invalid_acceptor_email")
)
