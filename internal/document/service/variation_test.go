package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/clock"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentQuoteWithItem(t *testing.T, svc documentdomain.Service, ctx context.Context) (documentdomain.Document, documentdomain.LineItem) {
	t.Helper()

	doc := createQuote(t, ctx, svc).Document
	item, err := svc.AddLineItem(ctx, doc.ID.String(), itemSpec(t, "Labour", "1", "100.00"))
	require.NoError(t, err)
	sent, err := svc.Send(ctx, doc.ID.String())
	require.NoError(t, err)
	return sent, item
}

func TestVariationDraftNeedsNoDecision(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc := createQuote(t, ctx, svc).Document

	detail, err := svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Labour", "2", "80.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, documentdomain.StatusDraft, detail.Status)
	assert.Equal(t, "176.00", money.Format(detail.TotalAmount))

	// Draft edits are plain edits, not variations.
	assert.Equal(t, int64(0), countEvents(t, db, doc.ID, "document.variation_applied"))
}

func TestVariationSentRequiresDecision(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc, _ := sentQuoteWithItem(t, svc, ctx)

	_, err := svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
	})
	assert.ErrorIs(t, err, documentdomain.ErrDecisionRequired)

	_, err = svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Decision:   "approve_later",
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
	})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidDecision)

	detail, err := svc.GetByID(ctx, doc.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "110.00", money.Format(detail.TotalAmount))
}

func TestVariationResetForReapproval(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc, item := sentQuoteWithItem(t, svc, ctx)
	_, err := svc.AcceptQuote(ctx, documentdomain.AcceptQuoteRequest{
		DocumentID: doc.ID.String(),
		Name:       "Dana Smith",
		Email:      "dana@example.com",
	})
	require.NoError(t, err)

	qty := dec(t, "2")
	detail, err := svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Decision:   documentdomain.DecisionResetForReapproval,
		Update: []documentdomain.ItemUpdateSpec{
			{ID: item.ID, Quantity: &qty},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, documentdomain.StatusDraft, detail.Status)
	assert.Nil(t, detail.SentAt)
	assert.Nil(t, detail.AcceptedAt)
	assert.Empty(t, detail.AcceptedByName)
	assert.Empty(t, detail.AcceptedByEmail)
	assert.Equal(t, "220.00", money.Format(detail.TotalAmount))
	assert.Equal(t, int64(1), countEvents(t, db, doc.ID, "document.variation_applied"))
}

func TestVariationSelfApproveKeepsStatus(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc, _ := sentQuoteWithItem(t, svc, ctx)

	detail, err := svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Decision:   documentdomain.DecisionSelfApprove,
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, documentdomain.StatusSent, detail.Status)
	require.NotNil(t, detail.SentAt)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, "165.00", money.Format(detail.TotalAmount))
	assert.Equal(t, int64(1), countEvents(t, db, doc.ID, "document.variation_applied"))
}

func TestVariationBatchIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc, item := sentQuoteWithItem(t, svc, ctx)

	// The add is valid but the remove targets a missing item; neither half
	// may land.
	_, err := svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Decision:   documentdomain.DecisionSelfApprove,
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
		Remove:     []snowflake.ID{snowflake.ID(999999)},
	})
	assert.ErrorIs(t, err, documentdomain.ErrLineItemNotFound)

	detail, err := svc.GetByID(ctx, doc.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, item.ID, detail.Items[0].ID)
	assert.Equal(t, "110.00", money.Format(detail.TotalAmount))
	assert.Equal(t, int64(0), countEvents(t, db, doc.ID, "document.variation_applied"))
}

func TestVariationRefusedOnSettledDocuments(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)
	ctx := orgContext(node.Generate())

	doc, _ := sentQuoteWithItem(t, svc, ctx)
	_, err := svc.RejectQuote(ctx, doc.ID.String(), "too expensive")
	require.NoError(t, err)

	_, err = svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: doc.ID.String(),
		Decision:   documentdomain.DecisionSelfApprove,
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
	})
	assert.ErrorIs(t, err, documentdomain.ErrIllegalTransition)

	inv := createInvoice(t, ctx, svc, testStart.AddDate(0, 0, 14)).Document
	_, err = svc.AddLineItem(ctx, inv.ID.String(), itemSpec(t, "Callout", "1", "90.00"))
	require.NoError(t, err)
	_, err = svc.Send(ctx, inv.ID.String())
	require.NoError(t, err)
	_, err = svc.CancelInvoice(ctx, inv.ID.String())
	require.NoError(t, err)

	_, err = svc.ApplyVariation(ctx, documentdomain.VariationRequest{
		DocumentID: inv.ID.String(),
		Decision:   documentdomain.DecisionSelfApprove,
		Add:        []documentdomain.ItemSpec{itemSpec(t, "Extra", "1", "50.00")},
	})
	assert.ErrorIs(t, err, documentdomain.ErrIllegalTransition)
}
