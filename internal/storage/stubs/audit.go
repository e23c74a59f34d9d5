package stubs

import (
	"context"
	"sync"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// AuditLog is an in-memory moderation journal
type AuditLog struct {
	mu      sync.RWMutex
	records []models.DecisionRecord
}

// NewAuditLog creates an empty in-memory journal
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// RecordDecision appends one record
func (a *AuditLog) RecordDecision(ctx context.Context, record models.DecisionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

// ListDecisions returns the records of one submission in insertion order
func (a *AuditLog) ListDecisions(ctx context.Context, submissionID int64) ([]models.DecisionRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []models.DecisionRecord
	for _, r := range a.records {
		if r.SubmissionID == submissionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close does nothing for the in-memory journal
func (a *AuditLog) Close() error {
	return nil
}

var _ storage.AuditLog = (*AuditLog)(nil)
