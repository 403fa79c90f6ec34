// Package numbering renders human-readable document numbers from a
// per-kind template. QTE-{YYYY}{MM}-{SEQ5} with sequence 42 in March
// 2024 comes out as QTE-202403-00042.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultQuoteNumberTemplate   = "QTE-{YYYY}{MM}-{SEQ5}"
	DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}-{SEQ5}"
)

// paddedSeq matches {SEQn} tokens, n being the zero-pad width.
var paddedSeq = regexp.MustCompile(`\{SEQ(\d+)\}`)

// FormatDocumentNumber expands the date and sequence tokens of a number
// template. The sequence comes from the per-org counter and must be
// positive. A template that still carries braces after expansion is
// refused rather than stored half-rendered.
func FormatDocumentNumber(template string, createdAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("document number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	out := strings.NewReplacer(
		"{YYYY}", createdAt.Format("2006"),
		"{YY}", createdAt.Format("06"),
		"{MM}", createdAt.Format("01"),
		"{DD}", createdAt.Format("02"),
		"{SEQ}", strconv.FormatInt(seq, 10),
	).Replace(template)

	// A sequence wider than its pad keeps all its digits.
	out = paddedSeq.ReplaceAllStringFunc(out, func(token string) string {
		width, err := strconv.Atoi(paddedSeq.FindStringSubmatch(token)[1])
		if err != nil || width <= 0 {
			return token
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in document number template: %q", out)
	}
	return out, nil
}
