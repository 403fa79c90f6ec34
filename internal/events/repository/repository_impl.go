package repository

import (
	"context"
	"strings"

	"github.com/fieldserve/tradebill/internal/events/domain"
	"gorm.io/gorm"
)

type publisher struct{}

func Provide() domain.Publisher {
	return &publisher{}
}

func (p *publisher) Publish(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	if event == nil || event.ID == 0 || event.OrgID == 0 || event.DocumentID == 0 {
		return domain.ErrInvalidEvent
	}
	if strings.TrimSpace(event.EventType) == "" {
		return domain.ErrInvalidEvent
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO document_events (id, org_id, document_id, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrgID,
		event.DocumentID,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	).Error
}
