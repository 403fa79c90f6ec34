package service

import (
	"context"

	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/document/ledger"
	eventsdomain "github.com/fieldserve/tradebill/internal/events/domain"
	"gorm.io/gorm"
)

// ApplyVariation edits a document's ledger as one batch. Draft documents
// take the edit directly. Non-draft documents require an explicit decision,
// validated before anything is written: reset_for_reapproval sends the
// document back to draft and clears the approval trail, self_approve keeps
// the current status. The batch commits in full or not at all.
func (s *Service) ApplyVariation(ctx context.Context, req documentdomain.VariationRequest) (documentdomain.DocumentDetail, error) {
	switch req.Decision {
	case documentdomain.DecisionNone,
		documentdomain.DecisionResetForReapproval,
		documentdomain.DecisionSelfApprove:
	default:
		return documentdomain.DocumentDetail{}, documentdomain.ErrInvalidDecision
	}

	orgID, docID, err := s.resolveIDs(ctx, req.DocumentID)
	if err != nil {
		return documentdomain.DocumentDetail{}, err
	}

	var detail documentdomain.DocumentDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return documentdomain.ErrNotFound
		}

		variation := doc.Status != documentdomain.StatusDraft
		if variation {
			switch doc.Status {
			case documentdomain.StatusPaid,
				documentdomain.StatusPartiallyPaid,
				documentdomain.StatusCancelled,
				documentdomain.StatusRejected:
				return documentdomain.ErrIllegalTransition
			}
			if req.Decision == documentdomain.DecisionNone {
				return documentdomain.ErrDecisionRequired
			}
		}

		items, err := s.repo.ListItems(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}

		led := ledger.New(items)
		for _, spec := range req.Add {
			if _, err := led.AddItem(s.genID.Generate(), ledger.ItemSpec{
				ItemType:    spec.ItemType,
				Description: spec.Description,
				Quantity:    spec.Quantity,
				UnitPrice:   spec.UnitPrice,
			}); err != nil {
				return err
			}
		}
		for _, update := range req.Update {
			if _, err := led.UpdateItem(update.ID, ledger.ItemUpdate{
				ItemType:    update.ItemType,
				Description: update.Description,
				Quantity:    update.Quantity,
				UnitPrice:   update.UnitPrice,
			}); err != nil {
				return err
			}
		}
		for _, itemID := range req.Remove {
			if err := led.RemoveItem(itemID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		if variation && req.Decision == documentdomain.DecisionResetForReapproval {
			doc.Status = documentdomain.StatusDraft
			doc.SentAt = nil
			doc.AcceptedAt = nil
			doc.AcceptedByName = ""
			doc.AcceptedByEmail = ""
		}

		if err := s.persistLedger(ctx, tx, doc, led); err != nil {
			return err
		}

		if variation {
			if err := s.publishEvent(ctx, tx, doc, eventsdomain.EventDocumentVariationUsed, map[string]any{
				"document_number": doc.DocumentNumber,
				"decision":        string(req.Decision),
			}); err != nil {
				return err
			}
		}

		detail = documentdomain.DocumentDetail{
			Document:        *doc,
			Items:           led.Items(),
			EffectiveStatus: doc.EffectiveStatus(now),
		}
		return nil
	})
	if err != nil {
		return documentdomain.DocumentDetail{}, err
	}

	s.writeAuditLog(ctx, "document.variation_applied", &detail.Document, map[string]any{
		"decision": string(req.Decision),
	})
	return detail, nil
}
