package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldserve/tradebill/internal/audit/domain"
	auditrepo "github.com/fieldserve/tradebill/internal/audit/repository"
	auditservice "github.com/fieldserve/tradebill/internal/audit/service"
	"github.com/fieldserve/tradebill/internal/clock"
	"github.com/glebarez/sqlite"
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
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.Exec(`CREATE TABLE audit_logs (
		id BIGINT PRIMARY KEY,
		org_id BIGINT,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) (auditdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	return svc, node
}

func TestAuditLogStampsInjectedClock(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)

	orgID := node.Generate()
	ctx := context.Background()

	require.NoError(t, svc.AuditLog(ctx, &orgID, "user", nil, "document.sent", "document", nil, nil))

	clk.Advance(2 * time.Hour)
	require.NoError(t, svc.AuditLog(ctx, &orgID, "user", nil, "quote.accepted", "document", nil, nil))

	logs, err := svc.List(ctx, auditdomain.ListFilter{OrgID: orgID})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first.
	assert.Equal(t, "quote.accepted", logs[0].Action)
	assert.True(t, logs[0].CreatedAt.Equal(testStart.Add(2*time.Hour)))
	assert.True(t, logs[1].CreatedAt.Equal(testStart))
}

func TestAuditLogRequiresAction(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(testStart)
	svc, node := newTestService(t, db, clk)

	orgID := node.Generate()
	err := svc.AuditLog(context.Background(), &orgID, "user", nil, "  ", "document", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}
