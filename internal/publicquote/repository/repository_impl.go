package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/internal/publicquote/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByTokenHash(ctx context.Context, db *gorm.DB, orgID snowflake.ID, hash string) (*documentdomain.Document, error) {
	return find(db.WithContext(ctx), orgID, hash)
}

func (r *repo) FindByTokenHashForUpdate(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, hash string) (*documentdomain.Document, error) {
	stmt := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return find(stmt, orgID, hash)
}

func find(stmt *gorm.DB, orgID snowflake.ID, hash string) (*documentdomain.Document, error) {
	var doc documentdomain.Document
	err := stmt.
		Where("org_id = ? AND kind = ? AND public_token_hash = ?", orgID, documentdomain.KindQuote, hash).
		Limit(1).
		Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}
