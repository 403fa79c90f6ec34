package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/clock"
	"github.com/fieldserve/tradebill/internal/config"
	customerrepo "github.com/fieldserve/tradebill/internal/customer/repository"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	documentrepo "github.com/fieldserve/tradebill/internal/document/repository"
	documentservice "github.com/fieldserve/tradebill/internal/document/service"
	eventsrepo "github.com/fieldserve/tradebill/internal/events/repository"
	orgrepo "github.com/fieldserve/tradebill/internal/organization/repository"
	"github.com/fieldserve/tradebill/internal/orgcontext"
	publicquotedomain "github.com/fieldserve/tradebill/internal/publicquote/domain"
	publicquoterepo "github.com/fieldserve/tradebill/internal/publicquote/repository"
	publicquoteservice "github.com/fieldserve/tradebill/internal/publicquote/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE documents (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			document_number TEXT NOT NULL,
			client_id BIGINT NOT NULL,
			job_id BIGINT,
			status TEXT NOT NULL DEFAULT 'draft',
			subtotal NUMERIC NOT NULL DEFAULT 0,
			gst_amount NUMERIC NOT NULL DEFAULT 0,
			total_amount NUMERIC NOT NULL DEFAULT 0,
			notes TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			sent_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			valid_until TIMESTAMP,
			deposit_required BOOLEAN NOT NULL DEFAULT FALSE,
			deposit_type TEXT,
			deposit_value NUMERIC NOT NULL DEFAULT 0,
			deposit_amount NUMERIC NOT NULL DEFAULT 0,
			deposit_paid BOOLEAN NOT NULL DEFAULT FALSE,
			deposit_paid_at TIMESTAMP,
			public_token_hash TEXT,
			accepted_at TIMESTAMP,
			accepted_by_name TEXT,
			accepted_by_email TEXT,
			rejected_at TIMESTAMP,
			rejection_reason TEXT,
			due_date TIMESTAMP,
			payment_terms TEXT,
			paid_amount NUMERIC NOT NULL DEFAULT 0,
			paid_at TIMESTAMP,
			cancelled_at TIMESTAMP
		)`,
		`CREATE TABLE line_items (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			document_id BIGINT NOT NULL,
			item_type TEXT NOT NULL,
			description TEXT NOT NULL,
			quantity NUMERIC NOT NULL,
			unit_price NUMERIC NOT NULL,
			line_subtotal NUMERIC NOT NULL,
			gst_amount NUMERIC NOT NULL,
			line_total NUMERIC NOT NULL,
			line_order INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE document_sequences (
			org_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			next_value BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (org_id, kind)
		)`,
		`CREATE TABLE document_events (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			document_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE organizations (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			logo_url TEXT,
			address TEXT,
			abn TEXT,
			bank_name TEXT,
			bank_bsb TEXT,
			bank_account TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE clients (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	docSvc    documentdomain.Service
	publicSvc publicquotedomain.Service
	clk       *clock.FakeClock
	node      *snowflake.Node
	db        *gorm.DB
	orgID     snowflake.ID
	clientID  snowflake.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	orgID := node.Generate()
	clientID := node.Generate()
	if err := db.Exec(
		`INSERT INTO organizations (id, name, abn, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		orgID, "Harbour Plumbing", "51 824 753 556", testStart, testStart,
	).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	if err := db.Exec(
		`INSERT INTO clients (id, org_id, name, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		clientID, orgID, "Dana Smith", "dana@example.com", testStart, testStart,
	).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}

	docSvc := documentservice.NewService(documentservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Cfg:    config.Config{},
		Repo:   documentrepo.Provide(),
		Events: eventsrepo.Provide(),
	})
	publicSvc := publicquoteservice.NewService(publicquoteservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         publicquoterepo.Provide(),
		DocRepo:      documentrepo.Provide(),
		OrgRepo:      orgrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		Events:       eventsrepo.Provide(),
	})
	return fixture{
		docSvc:    docSvc,
		publicSvc: publicSvc,
		clk:       clk,
		node:      node,
		db:        db,
		orgID:     orgID,
		clientID:  clientID,
	}
}

func (f fixture) staffCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(f.orgID))
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type quoteOpts struct {
	depositRequired bool
	validUntil      *time.Time
	send            bool
}

func (f fixture) newQuote(t *testing.T, opts quoteOpts) (documentdomain.Document, string) {
	t.Helper()
	ctx := f.staffCtx()

	req := documentdomain.CreateDocumentRequest{
		Kind:       documentdomain.KindQuote,
		ClientID:   f.clientID,
		ValidUntil: opts.validUntil,
	}
	if opts.depositRequired {
		req.DepositRequired = true
		req.DepositType = documentdomain.DepositTypePercentage
		req.DepositValue = dec(t, "30")
	}
	resp, err := f.docSvc.Create(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.PublicToken)

	_, err = f.docSvc.AddLineItem(ctx, resp.Document.ID.String(), documentdomain.ItemSpec{
		ItemType:    documentdomain.ItemTypeLabor,
		Description: "Bathroom renovation",
		Quantity:    dec(t, "1"),
		UnitPrice:   dec(t, "250.00"),
	})
	require.NoError(t, err)

	doc := resp.Document
	if opts.send {
		doc, err = f.docSvc.Send(ctx, resp.Document.ID.String())
		require.NoError(t, err)
	}
	return doc, resp.PublicToken
}

func TestGetQuoteByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, token := f.newQuote(t, quoteOpts{send: true})

	view, err := f.publicSvc.GetQuote(ctx, f.orgID.String(), token)
	require.NoError(t, err)

	assert.Equal(t, "sent", view.Status)
	assert.Equal(t, "Harbour Plumbing", view.Organization.Name)
	assert.Equal(t, "Dana Smith", view.ClientName)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "250.00", view.Items[0].UnitPrice)
	assert.Equal(t, "250.00", view.Subtotal)
	assert.Equal(t, "25.00", view.GSTAmount)
	assert.Equal(t, "275.00", view.TotalAmount)
	assert.False(t, view.DepositRequired)
	assert.Empty(t, view.DepositAmount)
}

func TestGetQuoteUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Drafts are never visible, even with the real token.
	_, token := f.newQuote(t, quoteOpts{})
	_, err := f.publicSvc.GetQuote(ctx, f.orgID.String(), token)
	assert.ErrorIs(t, err, publicquotedomain.ErrQuoteUnavailable)

	_, err = f.publicSvc.GetQuote(ctx, f.orgID.String(), "no-such-token")
	assert.ErrorIs(t, err, publicquotedomain.ErrQuoteUnavailable)

	_, err = f.publicSvc.GetQuote(ctx, "not-an-org", token)
	assert.ErrorIs(t, err, publicquotedomain.ErrQuoteUnavailable)

	// A valid token under the wrong org leaks nothing.
	otherOrg := f.node.Generate()
	_, err = f.publicSvc.GetQuote(ctx, otherOrg.String(), token)
	assert.ErrorIs(t, err, publicquotedomain.ErrQuoteUnavailable)
}

func TestPublicAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, token := f.newQuote(t, quoteOpts{send: true})

	view, err := f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Dana Smith",
		Email: "dana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", view.Status)
	require.NotNil(t, view.AcceptedAt)
	assert.Equal(t, "Dana Smith", view.AcceptedByName)

	var n int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM document_events WHERE document_id = ? AND event_type = ?`,
		doc.ID, "quote.accepted",
	).Scan(&n).Error)
	assert.Equal(t, int64(1), n)

	// The second acceptance attempt fails; the first decision stands.
	_, err = f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Someone Else",
		Email: "else@example.com",
	})
	assert.ErrorIs(t, err, publicquotedomain.ErrNotActionable)

	detail, err := f.docSvc.GetByID(f.staffCtx(), doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Dana Smith", detail.AcceptedByName)
}

func TestPublicAcceptValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, token := f.newQuote(t, quoteOpts{send: true})

	_, err := f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Email: "dana@example.com",
	})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidAcceptorName)

	_, err = f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Dana Smith",
		Email: "not-an-email",
	})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidAcceptorEmail)
}

func TestPublicAcceptDepositGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, token := f.newQuote(t, quoteOpts{depositRequired: true, send: true})

	view, err := f.publicSvc.GetQuote(ctx, f.orgID.String(), token)
	require.NoError(t, err)
	assert.True(t, view.DepositRequired)
	assert.Equal(t, "82.50", view.DepositAmount)
	assert.False(t, view.DepositPaid)

	_, err = f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Dana Smith",
		Email: "dana@example.com",
	})
	assert.ErrorIs(t, err, publicquotedomain.ErrDepositRequired)

	_, err = f.docSvc.MarkDepositPaid(f.staffCtx(), doc.ID.String())
	require.NoError(t, err)

	accepted, err := f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Dana Smith",
		Email: "dana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)
	assert.True(t, accepted.DepositPaid)
}

func TestPublicAcceptExpiredQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	validUntil := testStart.AddDate(0, 0, 7)
	_, token := f.newQuote(t, quoteOpts{validUntil: &validUntil, send: true})

	f.clk.Advance(8 * 24 * time.Hour)

	view, err := f.publicSvc.GetQuote(ctx, f.orgID.String(), token)
	require.NoError(t, err)
	assert.Equal(t, "expired", view.Status)

	_, err = f.publicSvc.Accept(ctx, publicquotedomain.AcceptRequest{
		OrgID: f.orgID.String(),
		Token: token,
		Name:  "Dana Smith",
		Email: "dana@example.com",
	})
	assert.ErrorIs(t, err, publicquotedomain.ErrNotActionable)
}

func TestPublicReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, token := f.newQuote(t, quoteOpts{depositRequired: true, send: true})

	// Rejection needs no deposit.
	view, err := f.publicSvc.Reject(ctx, publicquotedomain.RejectRequest{
		OrgID:  f.orgID.String(),
		Token:  token,
		Reason: "too expensive",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", view.Status)
	require.NotNil(t, view.RejectedAt)

	detail, err := f.docSvc.GetByID(f.staffCtx(), doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "too expensive", detail.RejectionReason)

	_, err = f.publicSvc.Reject(ctx, publicquotedomain.RejectRequest{
		OrgID: f.orgID.String(),
		Token: token,
	})
	assert.ErrorIs(t, err, publicquotedomain.ErrNotActionable)
}
