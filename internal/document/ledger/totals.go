package ledger

import (
	"github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/shopspring/decimal"
)

// Totals is the aggregate of a document's ledger.
type Totals struct {
	Subtotal  decimal.Decimal
	GSTAmount decimal.Decimal
	Total     decimal.Decimal
}

// Sum aggregates the per-line values. GST is the sum of per-line GST, not
// 10% of the summed subtotal; the two differ under rounding and the
// per-line method is authoritative. Line order never affects the sums.
func Sum(items []domain.LineItem) Totals {
	subtotal := decimal.Zero
	gst := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineSubtotal.Decimal)
		gst = gst.Add(items[i].GSTAmount.Decimal)
	}
	return Totals{
		Subtotal:  subtotal,
		GSTAmount: gst,
		Total:     subtotal.Add(gst),
	}
}

// DepositAmount derives a quote's deposit from its terms and total. A
// fixed-amount deposit is taken verbatim but must not exceed the total.
func DepositAmount(required bool, depType domain.DepositType, value, total decimal.Decimal) (decimal.Decimal, error) {
	if !required {
		return decimal.Zero, nil
	}

	switch depType {
	case domain.DepositTypePercentage:
		if !money.IsPositive(value) || value.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, domain.ErrInvalidDepositValue
		}
		return money.Percentage(total, value), nil
	case domain.DepositTypeAmount:
		if !money.IsPositive(value) {
			return decimal.Zero, domain.ErrInvalidDepositValue
		}
		if value.GreaterThan(total) {
			return decimal.Zero, domain.ErrDepositExceedsTotal
		}
		return money.Round(value), nil
	default:
		return decimal.Zero, domain.ErrInvalidDepositType
	}
}

// Apply writes the aggregate back onto the document, including the derived
// deposit. Recompute is idempotent.
func Apply(doc *domain.Document, totals Totals) error {
	doc.Subtotal = money.Amt(totals.Subtotal)
	doc.GSTAmount = money.Amt(totals.GSTAmount)
	doc.TotalAmount = money.Amt(totals.Total)

	if doc.Kind == domain.KindQuote {
		deposit, err := DepositAmount(doc.DepositRequired, doc.DepositType, doc.DepositValue.Decimal, doc.TotalAmount.Decimal)
		if err != nil {
			return err
		}
		doc.DepositAmount = money.Amt(deposit)
	}
	return nil
}
