package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListDocumentFilter struct {
	Kind     DocumentKind
	Status   DocumentStatus
	ClientID snowflake.ID
}

// Repository abstracts document persistence. Mutations run against the
// caller's transaction handle so the per-document row lock spans the whole
// read-modify-write.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	// FindByIDForUpdate locks the document row for the duration of the
	// surrounding transaction. All mutating paths go through it.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	Update(ctx context.Context, tx *gorm.DB, doc *Document) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListDocumentFilter, page pagination.Pagination) ([]Document, error)

	ListItems(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]LineItem, error)
	// ReplaceItems rewrites the document's ledger in one statement batch;
	// partial application of a variation is forbidden.
	ReplaceItems(ctx context.Context, tx *gorm.DB, orgID, documentID snowflake.ID, items []LineItem) error

	// NextSequence increments and returns the per-org, per-kind document
	// number sequence inside the caller's transaction.
	NextSequence(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind DocumentKind) (int64, error)
}
