package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.03", Format(Round(dec("0.025"))))
	assert.Equal(t, "-0.03", Format(Round(dec("-0.025"))))
	assert.Equal(t, "1.00", Format(Round(dec("1.004"))))
	assert.Equal(t, "1.01", Format(Round(dec("1.005"))))
}

func TestFormatAlwaysTwoPlaces(t *testing.T) {
	assert.Equal(t, "275.00", Format(dec("275")))
	assert.Equal(t, "275.50", Format(dec("275.5")))
	assert.Equal(t, "0.00", Format(decimal.Zero))
}

func TestAmountJSONAlwaysTwoPlaces(t *testing.T) {
	payload := struct {
		Subtotal Amount `json:"subtotal"`
		Deposit  Amount `json:"deposit_amount"`
	}{
		Subtotal: Amt(dec("250")),
		Deposit:  Amt(dec("82.5")),
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subtotal":"250.00","deposit_amount":"82.50"}`, string(raw))
}

func TestAmountJSONRoundTrip(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"19.90"`), &a))
	assert.Equal(t, "19.90", Format(a))
}

func TestGST(t *testing.T) {
	assert.Equal(t, "10.00", Format(GST(dec("100.00"))))
	assert.Equal(t, "0.01", Format(GST(dec("0.05"))))
	assert.Equal(t, "2.14", Format(GST(dec("21.35"))))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "82.50", Format(Percentage(dec("275.00"), dec("30"))))
	assert.Equal(t, "0.03", Format(Percentage(dec("0.25"), dec("10"))))
}

func TestSigns(t *testing.T) {
	assert.True(t, IsPositive(dec("0.01")))
	assert.False(t, IsPositive(decimal.Zero))
	assert.True(t, IsNegative(dec("-0.01")))
	assert.False(t, IsNegative(decimal.Zero))
}
