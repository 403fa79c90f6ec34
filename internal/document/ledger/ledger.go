// Package ledger owns the ordered line items of one document and the
// totals derived from them. Everything here is pure computation; the
// document service is responsible for persisting the result inside the
// per-document transaction.
package ledger

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/shopspring/decimal"
)

// ItemSpec is the caller-supplied input for adding a line item.
type ItemSpec struct {
	ItemType    domain.ItemType
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// ItemUpdate carries the mutable fields of an existing item. Nil fields
// are left unchanged.
type ItemUpdate struct {
	ItemType    *domain.ItemType
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
}

// Ledger is the in-memory ordered set of line items for one document. It
// has no status awareness: routing non-draft edits through the variation
// decision is the caller's job.
type Ledger struct {
	items []domain.LineItem
	dirty bool
}

// New wraps the stored items, ordered by line order.
func New(items []domain.LineItem) *Ledger {
	copied := make([]domain.LineItem, len(items))
	copy(copied, items)
	return &Ledger{items: copied}
}

// Items returns the items in ledger order.
func (l *Ledger) Items() []domain.LineItem {
	return l.items
}

// Dirty reports whether the ledger mutated since it was loaded, meaning
// totals must be recomputed before the document is consistent.
func (l *Ledger) Dirty() bool {
	return l.dirty
}

// AddItem validates the spec, computes the derived amounts and appends the
// item at the end of the ledger order.
func (l *Ledger) AddItem(id snowflake.ID, spec ItemSpec) (domain.LineItem, error) {
	if err := validateSpec(spec); err != nil {
		return domain.LineItem{}, err
	}

	item := domain.LineItem{
		ID:          id,
		ItemType:    spec.ItemType,
		Description: strings.TrimSpace(spec.Description),
		Quantity:    spec.Quantity,
		UnitPrice:   money.Amt(spec.UnitPrice),
		LineOrder:   l.nextOrder(),
	}
	compute(&item)

	l.items = append(l.items, item)
	l.dirty = true
	return item, nil
}

// UpdateItem applies the non-nil fields and recomputes the derived
// amounts. The ledger is untouched when validation fails.
func (l *Ledger) UpdateItem(id snowflake.ID, update ItemUpdate) (domain.LineItem, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return domain.LineItem{}, domain.ErrLineItemNotFound
	}

	item := l.items[idx]
	if update.ItemType != nil {
		item.ItemType = *update.ItemType
	}
	if update.Description != nil {
		item.Description = strings.TrimSpace(*update.Description)
	}
	if update.Quantity != nil {
		item.Quantity = *update.Quantity
	}
	if update.UnitPrice != nil {
		item.UnitPrice = money.Amt(*update.UnitPrice)
	}

	if err := validateSpec(ItemSpec{
		ItemType:    item.ItemType,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice.Decimal,
	}); err != nil {
		return domain.LineItem{}, err
	}

	compute(&item)
	l.items[idx] = item
	l.dirty = true
	return item, nil
}

// RemoveItem deletes the item and closes the gap in line order.
func (l *Ledger) RemoveItem(id snowflake.ID) error {
	idx := l.indexOf(id)
	if idx < 0 {
		return domain.ErrLineItemNotFound
	}

	l.items = append(l.items[:idx], l.items[idx+1:]...)
	for i := range l.items {
		l.items[i].LineOrder = i + 1
	}
	l.dirty = true
	return nil
}

func (l *Ledger) indexOf(id snowflake.ID) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) nextOrder() int {
	max := 0
	for i := range l.items {
		if l.items[i].LineOrder > max {
			max = l.items[i].LineOrder
		}
	}
	return max + 1
}

func validateSpec(spec ItemSpec) error {
	if !domain.ValidItemType(spec.ItemType) {
		return domain.ErrInvalidItemType
	}
	if strings.TrimSpace(spec.Description) == "" {
		return domain.ErrInvalidDescription
	}
	if !money.IsPositive(spec.Quantity) {
		return domain.ErrInvalidQuantity
	}
	if money.IsNegative(spec.UnitPrice) {
		return domain.ErrInvalidUnitPrice
	}
	return nil
}

// compute derives subtotal, GST and total from quantity and unit price.
// Rounding happens per line; the summed totals inherit it.
func compute(item *domain.LineItem) {
	subtotal := money.Round(item.Quantity.Mul(item.UnitPrice.Decimal))
	gst := money.GST(subtotal)
	item.LineSubtotal = money.Amt(subtotal)
	item.GSTAmount = money.Amt(gst)
	item.LineTotal = money.Amt(subtotal.Add(gst))
}
