package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldserve/tradebill/internal/audit/domain"
	"github.com/fieldserve/tradebill/internal/clock"
	customerdomain "github.com/fieldserve/tradebill/internal/customer/domain"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	eventsdomain "github.com/fieldserve/tradebill/internal/events/domain"
	"github.com/fieldserve/tradebill/internal/money"
	orgdomain "github.com/fieldserve/tradebill/internal/organization/domain"
	"github.com/fieldserve/tradebill/internal/publicquote/domain"
	"gorm.io/datatypes"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	DocRepo      documentdomain.Repository
	OrgRepo      orgdomain.Repository
	CustomerRepo customerdomain.Repository
	Events       eventsdomain.Publisher
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	docRepo      documentdomain.Repository
	orgRepo      orgdomain.Repository
	customerRepo customerdomain.Repository
	events       eventsdomain.Publisher
	auditSvc     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("publicquote.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		docRepo:      p.DocRepo,
		orgRepo:      p.OrgRepo,
		customerRepo: p.CustomerRepo,
		events:       p.Events,
		auditSvc:     p.AuditSvc,
	}
}

// GetQuote renders the client-facing view of a shared quote. Drafts, bad
// tokens and bad orgs all come back as ErrQuoteUnavailable.
func (s *Service) GetQuote(ctx context.Context, orgID string, token string) (domain.PublicQuoteView, error) {
	resolvedOrg, hash, err := resolveLookup(orgID, token)
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	doc, err := s.repo.FindByTokenHash(ctx, s.db, resolvedOrg, hash)
	if err != nil {
		return domain.PublicQuoteView{}, err
	}
	if doc == nil || doc.Status == documentdomain.StatusDraft {
		return domain.PublicQuoteView{}, domain.ErrQuoteUnavailable
	}

	return s.render(ctx, doc)
}

// Accept records the client's acceptance. A required, unpaid deposit
// blocks acceptance; a quote that is no longer in a decidable state,
// including one already accepted, is not actionable.
func (s *Service) Accept(ctx context.Context, req domain.AcceptRequest) (domain.PublicQuoteView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PublicQuoteView{}, documentdomain.ErrInvalidAcceptorName
	}
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.PublicQuoteView{}, documentdomain.ErrInvalidAcceptorEmail
	}

	resolvedOrg, hash, err := resolveLookup(req.OrgID, req.Token)
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	var accepted documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByTokenHashForUpdate(ctx, tx, resolvedOrg, hash)
		if err != nil {
			return err
		}
		if doc == nil || doc.Status == documentdomain.StatusDraft {
			return domain.ErrQuoteUnavailable
		}

		now := s.clock.Now()
		if doc.EffectiveStatus(now) != documentdomain.StatusSent {
			return domain.ErrNotActionable
		}
		if doc.DepositRequired && !doc.DepositPaid {
			return domain.ErrDepositRequired
		}
		if !documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusAccepted) {
			return domain.ErrNotActionable
		}

		doc.Status = documentdomain.StatusAccepted
		doc.AcceptedAt = &now
		doc.AcceptedByName = name
		doc.AcceptedByEmail = email
		doc.UpdatedAt = now

		if err := s.docRepo.Update(ctx, tx, doc); err != nil {
			return err
		}

		event := eventsdomain.Event{
			ID:         s.genID.Generate(),
			OrgID:      doc.OrgID,
			DocumentID: doc.ID,
			EventType:  eventsdomain.EventQuoteAccepted,
			Payload: datatypes.JSONMap{
				"document_number": doc.DocumentNumber,
				"accepted_by":     name,
				"channel":         "public",
			},
			CreatedAt: now,
		}
		if err := s.events.Publish(ctx, tx, &event); err != nil {
			return err
		}

		accepted = *doc
		return nil
	})
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	s.writeAuditLog(ctx, "quote.accepted", &accepted, map[string]any{"accepted_by": name, "channel": "public"})
	return s.render(ctx, &accepted)
}

// Reject records the client's decline. Rejection needs no deposit.
func (s *Service) Reject(ctx context.Context, req domain.RejectRequest) (domain.PublicQuoteView, error) {
	resolvedOrg, hash, err := resolveLookup(req.OrgID, req.Token)
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	var rejected documentdomain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByTokenHashForUpdate(ctx, tx, resolvedOrg, hash)
		if err != nil {
			return err
		}
		if doc == nil || doc.Status == documentdomain.StatusDraft {
			return domain.ErrQuoteUnavailable
		}

		now := s.clock.Now()
		if doc.EffectiveStatus(now) != documentdomain.StatusSent ||
			!documentdomain.CanTransition(doc.Kind, doc.Status, documentdomain.StatusRejected) {
			return domain.ErrNotActionable
		}

		doc.Status = documentdomain.StatusRejected
		doc.RejectedAt = &now
		doc.RejectionReason = strings.TrimSpace(req.Reason)
		doc.UpdatedAt = now

		if err := s.docRepo.Update(ctx, tx, doc); err != nil {
			return err
		}

		event := eventsdomain.Event{
			ID:         s.genID.Generate(),
			OrgID:      doc.OrgID,
			DocumentID: doc.ID,
			EventType:  eventsdomain.EventQuoteRejected,
			Payload: datatypes.JSONMap{
				"document_number": doc.DocumentNumber,
				"reason":          doc.RejectionReason,
				"channel":         "public",
			},
			CreatedAt: now,
		}
		if err := s.events.Publish(ctx, tx, &event); err != nil {
			return err
		}

		rejected = *doc
		return nil
	})
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	s.writeAuditLog(ctx, "quote.rejected", &rejected, map[string]any{"channel": "public"})
	return s.render(ctx, &rejected)
}

func (s *Service) render(ctx context.Context, doc *documentdomain.Document) (domain.PublicQuoteView, error) {
	items, err := s.docRepo.ListItems(ctx, s.db, doc.OrgID, doc.ID)
	if err != nil {
		return domain.PublicQuoteView{}, err
	}

	view := domain.PublicQuoteView{
		DocumentNumber:  doc.DocumentNumber,
		Status:          string(doc.EffectiveStatus(s.clock.Now())),
		Notes:           doc.Notes,
		Items:           make([]domain.PublicLineItem, 0, len(items)),
		Subtotal:        money.Format(doc.Subtotal),
		GSTAmount:       money.Format(doc.GSTAmount),
		TotalAmount:     money.Format(doc.TotalAmount),
		ValidUntil:      doc.ValidUntil,
		DepositRequired: doc.DepositRequired,
		DepositPaid:     doc.DepositPaid,
		AcceptedAt:      doc.AcceptedAt,
		AcceptedByName:  doc.AcceptedByName,
		RejectedAt:      doc.RejectedAt,
	}
	if doc.DepositRequired {
		view.DepositAmount = money.Format(doc.DepositAmount)
	}

	for _, item := range items {
		view.Items = append(view.Items, domain.PublicLineItem{
			ItemType:     string(item.ItemType),
			Description:  item.Description,
			Quantity:     item.Quantity.String(),
			UnitPrice:    money.Format(item.UnitPrice),
			LineSubtotal: money.Format(item.LineSubtotal),
			GSTAmount:    money.Format(item.GSTAmount),
			LineTotal:    money.Format(item.LineTotal),
		})
	}

	org, err := s.orgRepo.FindByID(ctx, s.db, doc.OrgID)
	if err != nil && !errors.Is(err, orgdomain.ErrNotFound) {
		return domain.PublicQuoteView{}, err
	}
	if org != nil {
		view.Organization = domain.PublicOrganization{
			Name:        org.Name,
			LogoURL:     org.LogoURL,
			Address:     org.Address,
			ABN:         org.ABN,
			BankName:    org.BankName,
			BankBSB:     org.BankBSB,
			BankAccount: org.BankAccount,
		}
	}

	client, err := s.customerRepo.FindByID(ctx, s.db, doc.OrgID, doc.ClientID)
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return domain.PublicQuoteView{}, err
	}
	if client != nil {
		view.ClientName = client.Name
	}

	return view, nil
}

func resolveLookup(orgID string, token string) (snowflake.ID, string, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil {
		return 0, "", domain.ErrQuoteUnavailable
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, "", domain.ErrQuoteUnavailable
	}
	return parsed, domain.HashToken(token), nil
}

func (s *Service) writeAuditLog(ctx context.Context, action string, doc *documentdomain.Document, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"document_number": doc.DocumentNumber,
		"status":          string(doc.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}

	orgID := doc.OrgID
	targetID := doc.ID.String()
	actorType := "client"
	if err := s.auditSvc.AuditLog(ctx, &orgID, actorType, nil, action, "document", &targetID, metadata); err != nil {
		s.log.Warn("failed to write public quote audit log", zap.String("action", action), zap.Error(err))
	}
}
