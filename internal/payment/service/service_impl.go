package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldserve/tradebill/internal/audit/domain"
	"github.com/fieldserve/tradebill/internal/clock"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	eventsdomain "github.com/fieldserve/tradebill/internal/events/domain"
	"github.com/fieldserve/tradebill/internal/money"
	"github.com/fieldserve/tradebill/internal/orgcontext"
	"github.com/fieldserve/tradebill/internal/payment/domain"
	"gorm.io/datatypes"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	DocRepo  documentdomain.Repository
	Events   eventsdomain.Publisher
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	docRepo  documentdomain.Repository
	events   eventsdomain.Publisher
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		docRepo:  p.DocRepo,
		events:   p.Events,
		auditSvc: p.AuditSvc,
	}
}

// RecordPayment applies one payment to an invoice. The invoice row is
// locked first, the outstanding amount is recomputed from the stored
// payments under that lock, and only then is the payment admitted. This is
// the only code path that moves an invoice to paid or partially_paid.
func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.RecordPaymentResponse, error) {
	orgID, docID, err := s.resolveIDs(ctx, req.DocumentID)
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}
	if !domain.ValidMethod(req.Method) {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidMethod
	}
	amount := money.Round(req.Amount)
	if !money.IsPositive(amount) {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidAmount
	}

	var resp domain.RecordPaymentResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.docRepo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}
		if doc.Kind != documentdomain.KindInvoice {
			return documentdomain.ErrInvoiceOnly
		}
		if doc.Status != documentdomain.StatusSent &&
			doc.Status != documentdomain.StatusPartiallyPaid {
			return documentdomain.ErrIllegalTransition
		}

		paidSoFar, err := s.repo.SumByDocument(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		outstanding := doc.TotalAmount.Sub(paidSoFar)
		if amount.GreaterThan(outstanding) {
			return domain.ErrOverpayment
		}

		now := s.clock.Now()
		receivedAt := now
		if req.ReceivedAt != nil {
			receivedAt = *req.ReceivedAt
		}

		payment := domain.Payment{
			ID:         s.genID.Generate(),
			OrgID:      orgID,
			DocumentID: docID,
			Amount:     money.Amt(amount),
			Method:     req.Method,
			Reference:  strings.TrimSpace(req.Reference),
			Notes:      strings.TrimSpace(req.Notes),
			ReceivedAt: receivedAt,
			CreatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		newPaid := paidSoFar.Add(amount)
		settled := newPaid.Equal(doc.TotalAmount.Decimal)

		target := documentdomain.StatusPartiallyPaid
		if settled {
			target = documentdomain.StatusPaid
		}
		if !documentdomain.CanTransition(doc.Kind, doc.Status, target) {
			return documentdomain.ErrIllegalTransition
		}

		doc.Status = target
		doc.PaidAmount = money.Amt(newPaid)
		doc.UpdatedAt = now
		if settled {
			doc.PaidAt = &now
		}

		if err := s.docRepo.Update(ctx, tx, doc); err != nil {
			return err
		}

		eventType := eventsdomain.EventInvoicePartiallyPaid
		if settled {
			eventType = eventsdomain.EventInvoicePaid
		}
		event := eventsdomain.Event{
			ID:         s.genID.Generate(),
			OrgID:      orgID,
			DocumentID: docID,
			EventType:  eventType,
			Payload: datatypes.JSONMap{
				"document_number": doc.DocumentNumber,
				"amount":          money.Format(amount),
				"paid_amount":     money.Format(newPaid),
				"outstanding":     money.Format(doc.OutstandingAmount()),
			},
			CreatedAt: now,
		}
		if err := s.events.Publish(ctx, tx, &event); err != nil {
			return err
		}

		resp = domain.RecordPaymentResponse{Payment: payment, Document: *doc}
		return nil
	})
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}

	s.writeAuditLog(ctx, &resp)
	return resp, nil
}

func (s *Service) ListPayments(ctx context.Context, documentID string) ([]domain.Payment, error) {
	orgID, docID, err := s.resolveIDs(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.FindByID(ctx, s.db, orgID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documentdomain.ErrNotFound
	}

	return s.repo.ListByDocument(ctx, s.db, orgID, docID)
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

func (s *Service) writeAuditLog(ctx context.Context, resp *domain.RecordPaymentResponse) {
	if s.auditSvc == nil {
		return
	}
	orgID := resp.Document.OrgID
	targetID := resp.Document.ID.String()
	err := s.auditSvc.AuditLog(ctx, &orgID, "", nil, "payment.recorded", "document", &targetID, map[string]any{
		"payment_id":      resp.Payment.ID.String(),
		"amount":          money.Format(resp.Payment.Amount),
		"method":          string(resp.Payment.Method),
		"document_number": resp.Document.DocumentNumber,
		"status":          string(resp.Document.Status),
	})
	if err != nil {
		s.log.Warn("failed to write payment audit log", zap.Error(err))
	}
}
