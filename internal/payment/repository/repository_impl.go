package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/payment/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *repo) ListByDocument(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Model(&domain.Payment{}).
		Where("org_id = ? AND document_id = ?", orgID, documentID).
		Order("received_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) SumByDocument(ctx context.Context, tx *gorm.DB, orgID, documentID snowflake.ID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.WithContext(ctx).Raw(
		`SELECT SUM(amount) FROM payments WHERE org_id = ? AND document_id = ?`,
		orgID,
		documentID,
	).Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
