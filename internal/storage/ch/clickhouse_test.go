package ch

import (
	"context"
	"sync"
	"testing"
	"time"

	"moderation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"go.uber.org/zap"
)

// runMigrations manually creates the journal table
func runMigrations(ctx context.Context, db *AuditDB) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS moderation_decisions")

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS moderation_decisions (
			submission_id   Int64,
			user_id         Int64,
			moderator_id    Int64,
			verdict         LowCardinality(String),
			section         LowCardinality(String),
			previous_status LowCardinality(String),
			new_status      LowCardinality(String),
			decided_at      DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (submission_id, decided_at)
	`)
}

// startClickHouse runs a disposable ClickHouse server and returns its native address
func startClickHouse(t *testing.T) (string, int, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse container test in short mode")
	}
	ctx := context.Background()

	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	return host, port.Int(), func() { clickhouseContainer.Terminate(ctx) }
}

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) (*AuditDB, func()) {
	host, port, terminate := startClickHouse(t)
	ctx := context.Background()

	db, err := NewAuditDB(host, port, "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	err = runMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")

	cleanup := func() {
		db.Close()
		terminate()
	}

	return db, cleanup
}

func decision(submissionID int64, verdict models.Verdict, at time.Time) models.DecisionRecord {
	status := models.StatusApproved
	if verdict == models.VerdictReject {
		status = models.StatusBanned
	}
	if verdict == models.VerdictNeedsFix {
		status = models.StatusPending
	}
	return models.DecisionRecord{
		SubmissionID:   submissionID,
		UserID:         100 + submissionID,
		ModeratorID:    1,
		Verdict:        verdict,
		Section:        models.SectionGarage,
		PreviousStatus: models.StatusPending,
		NewStatus:      status,
		DecidedAt:      at,
	}
}

func TestAuditDB_RecordAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordDecision(ctx, decision(7, models.VerdictNeedsFix, base)))
	require.NoError(t, db.RecordDecision(ctx, decision(7, models.VerdictApprove, base.Add(time.Hour))))
	require.NoError(t, db.RecordDecision(ctx, decision(8, models.VerdictReject, base)))

	records, err := db.ListDecisions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.VerdictNeedsFix, records[0].Verdict)
	assert.Equal(t, models.StatusPending, records[0].NewStatus)
	assert.Equal(t, models.VerdictApprove, records[1].Verdict)
	assert.Equal(t, models.StatusApproved, records[1].NewStatus)
	assert.Equal(t, int64(107), records[1].UserID)
	assert.Equal(t, models.SectionGarage, records[1].Section)
	assert.WithinDuration(t, base.Add(time.Hour), records[1].DecidedAt, time.Millisecond)
}

func TestAuditDB_ListUnknownSubmission(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	records, err := db.ListDecisions(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAuditDB_ConcurrentRecords(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	numGoroutines := 10

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			at := time.Now().UTC().Add(time.Duration(idx) * time.Minute)
			assert.NoError(t, db.RecordDecision(ctx, decision(42, models.VerdictNeedsFix, at)))
		}(i)
	}
	wg.Wait()

	records, err := db.ListDecisions(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, records, numGoroutines)
}

func TestAuditDB_Close(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, db.Close())
	// Second close should not panic
	assert.NoError(t, db.Close())
}

func TestMigrations_UpAndDown(t *testing.T) {
	host, port, terminate := startClickHouse(t)
	defer terminate()

	sqlDB := OpenSQL(host, port, "default", "default", "", false)
	defer sqlDB.Close()
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(sqlDB, logger))
	version, err := MigrationVersion(sqlDB, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	db, err := NewAuditDB(host, port, "default", "default", "", false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.RecordDecision(context.Background(), decision(1, models.VerdictApprove, time.Now().UTC())))

	require.NoError(t, MigrateDown(sqlDB, logger))
	version, err = MigrationVersion(sqlDB, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}
