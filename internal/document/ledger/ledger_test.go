package ledger

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func spec(t *testing.T, desc, qty, price string) ItemSpec {
	t.Helper()
	return ItemSpec{
		ItemType:    domain.ItemTypeLabor,
		Description: desc,
		Quantity:    dec(t, qty),
		UnitPrice:   dec(t, price),
	}
}

func TestAddItemComputesDerivedAmounts(t *testing.T) {
	led := New(nil)

	item, err := led.AddItem(snowflake.ID(1), spec(t, "Callout", "1.5", "90.00"))
	require.NoError(t, err)

	assert.Equal(t, "135.00", money.Format(item.LineSubtotal))
	assert.Equal(t, "13.50", money.Format(item.GSTAmount))
	assert.Equal(t, "148.50", money.Format(item.LineTotal))
	assert.Equal(t, 1, item.LineOrder)
	assert.True(t, led.Dirty())
}

func TestAddItemRoundsSubtotalBeforeGST(t *testing.T) {
	led := New(nil)

	// 3 x 33.333 = 99.999 rounds to 100.00 before GST applies.
	item, err := led.AddItem(snowflake.ID(1), spec(t, "Cable run", "3", "33.333"))
	require.NoError(t, err)

	assert.Equal(t, "100.00", money.Format(item.LineSubtotal))
	assert.Equal(t, "10.00", money.Format(item.GSTAmount))
}

func TestSumUsesPerLineGST(t *testing.T) {
	led := New(nil)

	// Two 0.25 lines carry 0.03 GST each. The per-line sum is 0.06 even
	// though 10% of the combined 0.50 subtotal would round to 0.05.
	_, err := led.AddItem(snowflake.ID(1), spec(t, "Washer", "1", "0.25"))
	require.NoError(t, err)
	_, err = led.AddItem(snowflake.ID(2), spec(t, "O-ring", "1", "0.25"))
	require.NoError(t, err)

	totals := Sum(led.Items())
	assert.Equal(t, "0.50", money.Format(totals.Subtotal))
	assert.Equal(t, "0.06", money.Format(totals.GSTAmount))
	assert.Equal(t, "0.56", money.Format(totals.Total))
}

func TestSumIsOrderIndependent(t *testing.T) {
	a := domain.LineItem{LineSubtotal: money.Amt(dec(t, "10.01")), GSTAmount: money.Amt(dec(t, "1.00"))}
	b := domain.LineItem{LineSubtotal: money.Amt(dec(t, "0.25")), GSTAmount: money.Amt(dec(t, "0.03"))}
	c := domain.LineItem{LineSubtotal: money.Amt(dec(t, "99.99")), GSTAmount: money.Amt(dec(t, "10.00"))}

	forward := Sum([]domain.LineItem{a, b, c})
	reverse := Sum([]domain.LineItem{c, b, a})

	assert.True(t, forward.Subtotal.Equal(reverse.Subtotal))
	assert.True(t, forward.GSTAmount.Equal(reverse.GSTAmount))
	assert.True(t, forward.Total.Equal(reverse.Total))
}

func TestAddItemValidation(t *testing.T) {
	led := New(nil)

	_, err := led.AddItem(snowflake.ID(1), ItemSpec{
		ItemType:    "freight",
		Description: "x",
		Quantity:    dec(t, "1"),
		UnitPrice:   dec(t, "1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItemType)

	_, err = led.AddItem(snowflake.ID(1), spec(t, "   ", "1", "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidDescription)

	_, err = led.AddItem(snowflake.ID(1), spec(t, "x", "0", "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = led.AddItem(snowflake.ID(1), spec(t, "x", "1", "-0.01"))
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)

	assert.Empty(t, led.Items())
	assert.False(t, led.Dirty())
}

func TestZeroUnitPriceAllowed(t *testing.T) {
	led := New(nil)

	item, err := led.AddItem(snowflake.ID(1), spec(t, "Warranty visit", "1", "0"))
	require.NoError(t, err)
	assert.Equal(t, "0.00", money.Format(item.LineTotal))
}

func TestUpdateItemRecomputes(t *testing.T) {
	led := New(nil)
	_, err := led.AddItem(snowflake.ID(1), spec(t, "Labour", "2", "80.00"))
	require.NoError(t, err)

	qty := dec(t, "3")
	item, err := led.UpdateItem(snowflake.ID(1), ItemUpdate{Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, "240.00", money.Format(item.LineSubtotal))
	assert.Equal(t, "24.00", money.Format(item.GSTAmount))
	assert.Equal(t, "264.00", money.Format(item.LineTotal))
}

func TestUpdateItemValidationLeavesLedgerUntouched(t *testing.T) {
	led := New(nil)
	_, err := led.AddItem(snowflake.ID(1), spec(t, "Labour", "2", "80.00"))
	require.NoError(t, err)

	bad := dec(t, "-1")
	_, err = led.UpdateItem(snowflake.ID(1), ItemUpdate{Quantity: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Equal(t, "160.00", money.Format(led.Items()[0].LineSubtotal))
}

func TestUpdateItemNotFound(t *testing.T) {
	led := New(nil)
	_, err := led.UpdateItem(snowflake.ID(42), ItemUpdate{})
	assert.ErrorIs(t, err, domain.ErrLineItemNotFound)
}

func TestRemoveItemClosesOrderGap(t *testing.T) {
	led := New(nil)
	for i, desc := range []string{"first", "second", "third"} {
		_, err := led.AddItem(snowflake.ID(i+1), spec(t, desc, "1", "10.00"))
		require.NoError(t, err)
	}

	require.NoError(t, led.RemoveItem(snowflake.ID(2)))

	items := led.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Description)
	assert.Equal(t, 1, items[0].LineOrder)
	assert.Equal(t, "third", items[1].Description)
	assert.Equal(t, 2, items[1].LineOrder)
}

func TestRemoveItemNotFound(t *testing.T) {
	led := New(nil)
	assert.ErrorIs(t, led.RemoveItem(snowflake.ID(7)), domain.ErrLineItemNotFound)
}

func TestDepositAmountPercentage(t *testing.T) {
	got, err := DepositAmount(true, domain.DepositTypePercentage, dec(t, "30"), dec(t, "275.00"))
	require.NoError(t, err)
	assert.Equal(t, "82.50", money.Format(got))
}

func TestDepositAmountFixed(t *testing.T) {
	got, err := DepositAmount(true, domain.DepositTypeAmount, dec(t, "50.00"), dec(t, "275.00"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", money.Format(got))
}

func TestDepositAmountNotRequired(t *testing.T) {
	got, err := DepositAmount(false, "", decimal.Zero, dec(t, "275.00"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDepositAmountErrors(t *testing.T) {
	_, err := DepositAmount(true, domain.DepositTypePercentage, dec(t, "101"), dec(t, "100.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidDepositValue)

	_, err = DepositAmount(true, domain.DepositTypePercentage, dec(t, "0"), dec(t, "100.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidDepositValue)

	_, err = DepositAmount(true, domain.DepositTypeAmount, dec(t, "100.01"), dec(t, "100.00"))
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)

	_, err = DepositAmount(true, "half_upfront", dec(t, "50"), dec(t, "100.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidDepositType)
}

func TestApplyRecomputesDeposit(t *testing.T) {
	led := New(nil)
	_, err := led.AddItem(snowflake.ID(1), spec(t, "Install", "1", "250.00"))
	require.NoError(t, err)

	doc := &domain.Document{
		Kind:            domain.KindQuote,
		DepositRequired: true,
		DepositType:     domain.DepositTypePercentage,
		DepositValue:    money.Amt(dec(t, "30")),
	}
	require.NoError(t, Apply(doc, Sum(led.Items())))

	assert.Equal(t, "250.00", money.Format(doc.Subtotal))
	assert.Equal(t, "25.00", money.Format(doc.GSTAmount))
	assert.Equal(t, "275.00", money.Format(doc.TotalAmount))
	assert.Equal(t, "82.50", money.Format(doc.DepositAmount))
}

func TestApplyDepositExceedsTotal(t *testing.T) {
	led := New(nil)
	_, err := led.AddItem(snowflake.ID(1), spec(t, "Small job", "1", "40.00"))
	require.NoError(t, err)

	doc := &domain.Document{
		Kind:            domain.KindQuote,
		DepositRequired: true,
		DepositType:     domain.DepositTypeAmount,
		DepositValue:    money.Amt(dec(t, "50.00")),
	}
	err = Apply(doc, Sum(led.Items()))
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)
}
