package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldserve/tradebill/internal/audit/domain"
	"github.com/fieldserve/tradebill/internal/clock"
	"github.com/fieldserve/tradebill/internal/config"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/document/ledger"
	"github.com/fieldserve/tradebill/internal/document/numbering"
	eventsdomain "github.com/fieldserve/tradebill/internal/events/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/fieldserve/tradebill/internal/orgcontext"
	publicquotedomain "github.com/fieldserve/tradebill/internal/publicquote/domain"
	"github.com/fieldserve/tradebill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     documentdomain.Repository
	Events   eventsdomain.Publisher
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	repo     documentdomain.Repository
	events   eventsdomain.Publisher
	auditSvc auditdomain.Service
}

func NewService(p Params) documentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("document.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Cfg,
		repo:     p.Repo,
		events:   p.Events,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req documentdomain.CreateDocumentRequest) (documentdomain.CreateDocumentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidOrganization
	}
	if req.Kind != documentdomain.KindQuote && req.Kind != documentdomain.KindInvoice {
		return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidKind
	}
	if req.ClientID == 0 {
		return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidClient
	}
	if req.Kind == documentdomain.KindQuote && req.DepositRequired {
		if req.DepositType != documentdomain.DepositTypePercentage && req.DepositType != documentdomain.DepositTypeAmount {
			return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidDepositType
		}
		if !money.IsPositive(req.DepositValue) {
			return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidDepositValue
		}
		if req.DepositType == documentdomain.DepositTypePercentage &&
			req.DepositValue.GreaterThan(decimal.NewFromInt(100)) {
			return documentdomain.CreateDocumentResponse{}, documentdomain.ErrInvalidDepositValue
		}
	}

	now := s.clock.Now()
	doc := documentdomain.Document{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Kind:         req.Kind,
		ClientID:     req.ClientID,
		JobID:        req.JobID,
		Status:       documentdomain.StatusDraft,
		Subtotal:     money.Amt(decimal.Zero),
		GSTAmount:    money.Amt(decimal.Zero),
		TotalAmount:  money.Amt(decimal.Zero),
		Notes:        strings.TrimSpace(req.Notes),
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
		PaidAmount:   money.Amt(decimal.Zero),
		DepositValue: money.Amt(decimal.Zero),
	}

	var rawToken string
	if req.Kind == documentdomain.KindQuote {
		doc.ValidUntil = req.ValidUntil
		doc.DepositRequired = req.DepositRequired
		if req.DepositRequired {
			doc.DepositType = req.DepositType
			doc.DepositValue = money.Amt(req.DepositValue)
		}

		raw, hash, err := publicquotedomain.NewToken()
		if err != nil {
			return documentdomain.CreateDocumentResponse{}, err
		}
		rawToken = raw
		doc.PublicTokenHash = hash
	} else {
		doc.DueDate = req.DueDate
		doc.PaymentTerms = strings.TrimSpace(req.PaymentTerms)
	}
	doc.DepositAmount = money.Amt(decimal.Zero)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, orgID, req.Kind)
		if err != nil {
			return err
		}

		number, err := numbering.FormatDocumentNumber(s.numberTemplate(req.Kind), now, seq)
		if err != nil {
			return err
		}
		doc.DocumentNumber = number

		return s.repo.Insert(ctx, tx, &doc)
	})
	if err != nil {
		return documentdomain.CreateDocumentResponse{}, err
	}

	s.writeAuditLog(ctx, "document.created", &doc, nil)
	return documentdomain.CreateDocumentResponse{
		Document:    doc,
		PublicToken: rawToken,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (documentdomain.DocumentDetail, error) {
	orgID, docID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return documentdomain.DocumentDetail{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, orgID, docID)
	if err != nil {
		return documentdomain.DocumentDetail{}, err
	}
	if doc == nil {
		return documentdomain.DocumentDetail{}, documentdomain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, orgID, docID)
	if err != nil {
		return documentdomain.DocumentDetail{}, err
	}

	return documentdomain.DocumentDetail{
		Document:        *doc,
		Items:           items,
		EffectiveStatus: doc.EffectiveStatus(s.clock.Now()),
	}, nil
}

func (s *Service) List(ctx context.Context, req documentdomain.ListDocumentRequest) (documentdomain.ListDocumentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return documentdomain.ListDocumentResponse{}, documentdomain.ErrInvalidOrganization
	}

	filter := documentdomain.ListDocumentFilter{
		Kind:   req.Kind,
		Status: req.Status,
	}
	if clientID := strings.TrimSpace(req.ClientID); clientID != "" {
		parsed, err := snowflake.ParseString(clientID)
		if err != nil {
			return documentdomain.ListDocumentResponse{}, documentdomain.ErrInvalidClient
		}
		filter.ClientID = parsed
	}

	docs, err := s.repo.List(ctx, s.db, orgID, filter, req.Pagination)
	if err != nil {
		return documentdomain.ListDocumentResponse{}, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	resp := documentdomain.ListDocumentResponse{}
	if len(docs) > limit {
		docs = docs[:limit]
		resp.HasMore = true

		last := docs[len(docs)-1]
		token, err := pageCursor(last)
		if err != nil {
			return documentdomain.ListDocumentResponse{}, err
		}
		resp.NextPageToken = token
	}
	resp.Documents = docs
	return resp, nil
}

// AddLineItem appends a line to a draft document. Non-draft documents must
// go through ApplyVariation with an explicit decision.
func (s *Service) AddLineItem(ctx context.Context, documentID string, spec documentdomain.ItemSpec) (documentdomain.LineItem, error) {
	var added documentdomain.LineItem
	err := s.mutateDraftLedger(ctx, documentID, func(led *ledger.Ledger) error {
		item, err := led.AddItem(s.genID.Generate(), ledger.ItemSpec{
			ItemType:    spec.ItemType,
			Description: spec.Description,
			Quantity:    spec.Quantity,
			UnitPrice:   spec.UnitPrice,
		})
		if err != nil {
			return err
		}
		added = item
		return nil
	})
	if err != nil {
		return documentdomain.LineItem{}, err
	}
	return added, nil
}

func (s *Service) UpdateLineItem(ctx context.Context, documentID string, update documentdomain.ItemUpdateSpec) (documentdomain.LineItem, error) {
	var updated documentdomain.LineItem
	err := s.mutateDraftLedger(ctx, documentID, func(led *ledger.Ledger) error {
		item, err := led.UpdateItem(update.ID, ledger.ItemUpdate{
			ItemType:    update.ItemType,
			Description: update.Description,
			Quantity:    update.Quantity,
			UnitPrice:   update.UnitPrice,
		})
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return documentdomain.LineItem{}, err
	}
	return updated, nil
}

func (s *Service) RemoveLineItem(ctx context.Context, documentID string, itemID string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(itemID))
	if err != nil {
		return documentdomain.ErrLineItemNotFound
	}
	return s.mutateDraftLedger(ctx, documentID, func(led *ledger.Ledger) error {
		return led.RemoveItem(parsed)
	})
}

// mutateDraftLedger runs one ledger mutation inside the per-document
// transaction, recomputes totals and persists the whole ledger. The edit
// either commits in full or not at all.
func (s *Service) mutateDraftLedger(ctx context.Context, documentID string, mutate func(*ledger.Ledger) error) error {
	orgID, docID, err := s.resolveIDs(ctx, documentID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Status != documentdomain.StatusDraft {
			return documentdomain.ErrDecisionRequired
		}

		items, err := s.repo.ListItems(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}

		led := ledger.New(items)
		if err := mutate(led); err != nil {
			return err
		}

		return s.persistLedger(ctx, tx, doc, led)
	})
}

// persistLedger writes the mutated ledger and the recomputed totals back
// in one transaction.
func (s *Service) persistLedger(ctx context.Context, tx *gorm.DB, doc *documentdomain.Document, led *ledger.Ledger) error {
	if err := ledger.Apply(doc, ledger.Sum(led.Items())); err != nil {
		return err
	}
	doc.UpdatedAt = s.clock.Now()

	if err := s.repo.ReplaceItems(ctx, tx, doc.OrgID, doc.ID, led.Items()); err != nil {
		return err
	}
	return s.repo.Update(ctx, tx, doc)
}

// Send moves a draft to sent. Invoices need a due date; both kinds need at
// least one line item.
func (s *Service) Send(ctx context.Context, id string) (documentdomain.Document, error) {
	orgID, docID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return documentdomain.Document{}, err
	}

	var sent documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if !documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusSent) {
			return documentdomain.ErrIllegalTransition
		}

		items, err := s.repo.ListItems(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return documentdomain.ErrNoLineItems
		}
		if doc.Kind == documentdomain.KindInvoice && doc.DueDate == nil {
			return documentdomain.ErrDueDateRequired
		}

		now := s.clock.Now()
		doc.Status = documentdomain.StatusSent
		doc.SentAt = &now
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventDocumentSent, map[string]any{
			"document_number": doc.DocumentNumber,
			"total_amount":    money.Format(doc.TotalAmount),
		}); err != nil {
			return err
		}

		sent = *doc
		return nil
	})
	if err != nil {
		return documentdomain.Document{}, err
	}

	s.writeAuditLog(ctx, "document.sent", &sent, nil)
	return sent, nil
}

// AcceptQuote is the staff override of the public acceptance path. It
// follows the same transition rules but skips deposit gating: staff assert
// the deposit conversation happened out-of-band.
func (s *Service) AcceptQuote(ctx context.Context, req documentdomain.AcceptQuoteRequest) (documentdomain.Document, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return documentdomain.Document{}, documentdomain.ErrInvalidAcceptorName
	}
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return documentdomain.Document{}, documentdomain.ErrInvalidAcceptorEmail
	}

	orgID, docID, err := s.resolveIDs(ctx, req.DocumentID)
	if err != nil {
		return documentdomain.Document{}, err
	}

	var accepted documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Kind != documentdomain.KindQuote {
			return documentdomain.ErrQuoteOnly
		}

		now := s.clock.Now()
		if doc.EffectiveStatus(now) != documentdomain.StatusSent ||
			!documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusAccepted) {
			return documentdomain.ErrIllegalTransition
		}

		doc.Status = documentdomain.StatusAccepted
		doc.AcceptedAt = &now
		doc.AcceptedByName = name
		doc.AcceptedByEmail = email
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventQuoteAccepted, map[string]any{
			"document_number": doc.DocumentNumber,
			"accepted_by":     name,
		}); err != nil {
			return err
		}

		accepted = *doc
		return nil
	})
	if err != nil {
		return documentdomain.Document{}, err
	}

	s.writeAuditLog(ctx, "quote.accepted", &accepted, map[string]any{"accepted_by": name})
	return accepted, nil
}

func (s *Service) RejectQuote(ctx context.Context, id string, reason string) (documentdomain.Document, error) {
	orgID, docID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return documentdomain.Document{}, err
	}

	var rejected documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Kind != documentdomain.KindQuote {
			return documentdomain.ErrQuoteOnly
		}

		now := s.clock.Now()
		if doc.EffectiveStatus(now) != documentdomain.StatusSent ||
			!documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusRejected) {
			return documentdomain.ErrIllegalTransition
		}

		doc.Status = documentdomain.StatusRejected
		doc.RejectedAt = &now
		doc.RejectionReason = strings.TrimSpace(reason)
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventQuoteRejected, map[string]any{
			"document_number": doc.DocumentNumber,
			"reason":          doc.RejectionReason,
		}); err != nil {
			return err
		}

		rejected = *doc
		return nil
	})
	if err != nil {
		return documentdomain.Document{}, err
	}

	s.writeAuditLog(ctx, "quote.rejected", &rejected, nil)
	return rejected, nil
}

// MarkDepositPaid records that the quote's deposit has been received,
// unblocking public acceptance.
func (s *Service) MarkDepositPaid(ctx context.Context, id string) (documentdomain.Document, error) {
	orgID, docID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return documentdomain.Document{}, err
	}

	var updated documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Kind != documentdomain.KindQuote {
			return documentdomain.ErrQuoteOnly
		}
		if !doc.DepositRequired {
			return documentdomain.ErrDepositNotRequired
		}
		if doc.DepositPaid {
			return documentdomain.ErrDepositAlreadyPaid
		}

		now := s.clock.Now()
		doc.DepositPaid = true
		doc.DepositPaidAt = &now
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventQuoteDepositPaid, map[string]any{
			"document_number": doc.DocumentNumber,
			"deposit_amount":  money.Format(doc.DepositAmount),
		}); err != nil {
			return err
		}

		updated = *doc
		return nil
	})
	if err != nil {
		return documentdomain.Document{}, err
	}

	s.writeAuditLog(ctx, "quote.deposit_paid", &updated, nil)
	return updated, nil
}

func (s *Service) CancelInvoice(ctx context.Context, id string) (documentdomain.Document, error) {
	orgID, docID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return documentdomain.Document{}, err
	}

	var cancelled documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Kind != documentdomain.KindInvoice {
			return documentdomain.ErrInvoiceOnly
		}
		if !documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusCancelled) {
			return documentdomain.ErrIllegalTransition
		}

		now := s.clock.Now()
		doc.Status = documentdomain.StatusCancelled
		doc.CancelledAt = &now
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventInvoiceCancelled, map[string]any{
			"document_number": doc.DocumentNumber,
		}); err != nil {
			return err
		}

		cancelled = *doc
		return nil
	})
	if err != nil {
		return documentdomain.Document{}, err
	}

	s.writeAuditLog(ctx, "invoice.cancelled", &cancelled, nil)
	return cancelled, nil
}

func (s *Service) numberTemplate(kind documentdomain.DocumentKind) string {
	switch kind {
	case documentdomain.KindQuote:
		if s.cfg.QuoteNumberTemplate != "" {
			return s.cfg.QuoteNumberTemplate
		}
		return numbering.DefaultQuoteNumberTemplate
	default:
		if s.cfg.InvoiceNumberTemplate != "" {
			return s.cfg.InvoiceNumberTemplate
		}
		return numbering.DefaultInvoiceNumberTemplate
	}
}

func pageCursor(doc documentdomain.Document) (string, error) {
	return pagination.EncodeCursor(pagination.Cursor{
		ID:        doc.ID.String(),
		CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Service) resolveIDs(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, 0, documentdomain.ErrInvalidOrganization
	}
	docID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, 0, documentdomain.ErrNotFound
	}
	return orgID, docID, nil
}

func (s *Service) publishEvent(ctx context.Context, tx *gorm.DB, doc *documentdomain.Document, eventType string, payload map[string]any) error {
	event := eventsdomain.Event{
		ID:         s.genID.Generate(),
		OrgID:      doc.OrgID,
		DocumentID: doc.ID,
		EventType:  eventType,
		Payload:    datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	return s.events.Publish(ctx, tx, &event)
}

func (s *Service) writeAuditLog(ctx context.Context, action string, doc *documentdomain.Document, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"document_number": doc.DocumentNumber,
		"kind":            string(doc.Kind),
		"status":          string(doc.Status),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	orgID := doc.OrgID
	targetID := doc.ID.String()
	if err := s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "document", &targetID, metadata); err != nil {
		s.log.Warn("failed to write document audit log", zap.String("action", action), zap.Error(err))
	}
}
