package domain

import "time"

// DocumentStatus is the persisted lifecycle state. expired and overdue are
// never persisted; they are derived at read time from the stored status and
// the document's deadline (see EffectiveStatus).
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusSent          DocumentStatus = "sent"
	StatusAccepted      DocumentStatus = "accepted"
	StatusRejected      DocumentStatus = "rejected"
	StatusExpired       DocumentStatus = "expired"
	StatusPaid          DocumentStatus = "paid"
	StatusPartiallyPaid DocumentStatus = "partially_paid"
	StatusOverdue       DocumentStatus = "overdue"
	StatusCancelled     DocumentStatus = "cancelled"
)

// quoteTransitions and invoiceTransitions are the only legal explicit
// status changes. Anything outside the table fails with
// ErrIllegalTransition; nothing is ever coerced to a nearby state.
var quoteTransitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft: {StatusSent},
	StatusSent:  {StatusAccepted, StatusRejected},
}

var invoiceTransitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft: {StatusSent},
	StatusSent:  {StatusPaid, StatusPartiallyPaid, StatusCancelled},
	// Partially paid invoices keep receiving payments until settled.
	StatusPartiallyPaid: {StatusPaid, StatusPartiallyPaid},
}

// CanTransition reports whether from→to is in the legal table for the kind.
func CanTransition(kind DocumentKind, from, to DocumentStatus) bool {
	var table map[DocumentStatus][]DocumentStatus
	switch kind {
	case KindQuote:
		table = quoteTransitions
	case KindInvoice:
		table = invoiceTransitions
	default:
		return false
	}
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further explicit transition is permitted.
// The variation reset path is handled separately and is the only way a
// document moves backward.
func IsTerminal(status DocumentStatus) bool {
	switch status {
	case StatusAccepted, StatusRejected, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// EffectiveStatus derives the display status: a sent quote past its
// valid-until date reads as expired, a sent or partially paid invoice past
// its due date reads as overdue. The stored status is the single source of
// truth; this function is the single derivation point.
func (d Document) EffectiveStatus(now time.Time) DocumentStatus {
	switch d.Kind {
	case KindQuote:
		if d.Status == StatusSent && d.ValidUntil != nil && now.After(*d.ValidUntil) {
			return StatusExpired
		}
	case KindInvoice:
		if (d.Status == StatusSent || d.Status == StatusPartiallyPaid) &&
			d.DueDate != nil && now.After(*d.DueDate) {
			return StatusOverdue
		}
	}
	return d.Status
}
