package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/document/domain"
	"github.com/fieldserve/tradebill/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
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

// FindByIDForUpdate acquires the per-document row lock. sqlite has no
// FOR UPDATE and serializes writers itself, so the clause is skipped there.
func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	stmt := tx.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var doc domain.Document
	if err := stmt.Find(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, doc *domain.Document) error {
	return tx.WithContext(ctx).Save(doc).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListDocumentFilter, page pagination.Pagination) ([]domain.Document, error) {
	stmt := db.WithContext(ctx).Model(&domain.Document{}).
		Where("org_id = ?", orgID)

	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt,
			cursor.CreatedAt,
			cursor.ID,
		)
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 25
	}

	var docs []domain.Document
	if err := stmt.Order("created_at desc, id desc").Limit(limit + 1).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).Model(&domain.LineItem{}).
		Where("org_id = ? AND document_id = ?", orgID, documentID).
		Order("line_order asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReplaceItems(ctx context.Context, tx *gorm.DB, orgID, documentID snowflake.ID, items []domain.LineItem) error {
	if err := tx.WithContext(ctx).Exec(
		`DELETE FROM line_items WHERE org_id = ? AND document_id = ?`,
		orgID,
		documentID,
	).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrgID = orgID
		items[i].DocumentID = documentID
		if err := tx.WithContext(ctx).Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) NextSequence(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind domain.DocumentKind) (int64, error) {
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO document_sequences (org_id, kind, next_value)
		 VALUES (?, ?, 0)
		 ON CONFLICT (org_id, kind) DO NOTHING`,
		orgID,
		kind,
	).Error; err != nil {
		return 0, err
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE document_sequences
		 SET next_value = next_value + 1
		 WHERE org_id = ? AND kind = ?`,
		orgID,
		kind,
	).Error; err != nil {
		return 0, err
	}

	var seq int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT next_value FROM document_sequences WHERE org_id = ? AND kind = ?`,
		orgID,
		kind,
	).Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}
