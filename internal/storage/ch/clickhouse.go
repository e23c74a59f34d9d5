package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"time"

	"moderation/internal/models"
	"moderation/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// AuditDB is the ClickHouse-backed moderation journal
type AuditDB struct {
	conn clickhouse.Conn
}

func connOptions(host string, port int, database, user, password string, useTLS bool) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", host, port)},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}
	if useTLS {
		options.TLS = &tls.Config{}
	}
	return options
}

// NewAuditDB connects to the ClickHouse journal and verifies the connection
func NewAuditDB(host string, port int, database, user, password string, useTLS bool) (*AuditDB, error) {
	conn, err := clickhouse.Open(connOptions(host, port, database, user, password, useTLS))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &AuditDB{conn: conn}, nil
}

// OpenSQL opens a database/sql handle for the journal, used by goose
func OpenSQL(host string, port int, database, user, password string, useTLS bool) *sql.DB {
	return clickhouse.OpenDB(connOptions(host, port, database, user, password, useTLS))
}

// RecordDecision appends one decision to the journal
func (db *AuditDB) RecordDecision(ctx context.Context, record models.DecisionRecord) error {
	err := db.conn.Exec(ctx, `INSERT INTO moderation_decisions
		(submission_id, user_id, moderator_id, verdict, section, previous_status, new_status, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SubmissionID,
		record.UserID,
		record.ModeratorID,
		string(record.Verdict),
		string(record.Section),
		string(record.PreviousStatus),
		string(record.NewStatus),
		record.DecidedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// ListDecisions returns every decision taken on a submission, oldest first
func (db *AuditDB) ListDecisions(ctx context.Context, submissionID int64) ([]models.DecisionRecord, error) {
	rows, err := db.conn.Query(ctx, `SELECT submission_id, user_id, moderator_id, verdict, section,
			previous_status, new_status, decided_at
		FROM moderation_decisions WHERE submission_id = ? ORDER BY decided_at`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var records []models.DecisionRecord
	for rows.Next() {
		var (
			record                                   models.DecisionRecord
			verdict, section, previousStatus, status string
		)
		if err := rows.Scan(
			&record.SubmissionID,
			&record.UserID,
			&record.ModeratorID,
			&verdict,
			&section,
			&previousStatus,
			&status,
			&record.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		record.Verdict = models.Verdict(verdict)
		record.Section = models.Section(section)
		record.PreviousStatus = models.AccountStatus(previousStatus)
		record.NewStatus = models.AccountStatus(status)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decisions: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (db *AuditDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

var _ storage.AuditLog = (*AuditDB)(nil)
