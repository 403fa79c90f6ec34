package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, invalidRequestError()
	}
	return &parsed, nil
}

func parseOptionalTime(field, value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, newValidationError(field, "invalid_"+field, "invalid date")
}

// parseMoney parses a monetary amount from its wire form. Amounts travel
// as decimal strings with at most two fractional digits.
func parseMoney(field, value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "amount is required")
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "invalid amount")
	}
	if parsed.Exponent() < -2 {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "at most two decimal places")
	}
	return parsed, nil
}

// parseQuantity allows three fractional digits, matching the quantity
// column precision.
func parseQuantity(field, value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "quantity is required")
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "invalid quantity")
	}
	if parsed.Exponent() < -3 {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "at most three decimal places")
	}
	return parsed, nil
}
